package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/MedCall/internal/adapters/signal"
	"github.com/dkeye/MedCall/internal/app/orch"
	"github.com/dkeye/MedCall/internal/config"
	"github.com/dkeye/MedCall/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware pins a stable token to the browser session. It only
// labels log lines; call identity always comes from the signaling events.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, gatherer prometheus.Gatherer) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("MedCallSession", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	ctl := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendQueue:  cfg.SendQueue,
	})
	api.GET("/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/users/online", func(c *gin.Context) {
		users := o.OnlineUsers()
		c.JSON(http.StatusOK, gin.H{"success": true, "users": users, "count": len(users)})
	})

	video := api.Group("/video")
	video.GET("/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"config": gin.H{
				"iceServers":           o.ICEServers,
				"iceCandidatePoolSize": o.ICECandidatePoolSize,
			},
		})
	})

	video.GET("/rooms", func(c *gin.Context) {
		rooms := o.ListActiveRooms()
		c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms, "count": len(rooms)})
	})

	video.GET("/rooms/:roomId", func(c *gin.Context) {
		d, err := o.GetRoomDetails(domain.RoomID(c.Param("roomId")))
		if err != nil {
			notFound(c, err, "Room not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "room": d})
	})

	video.POST("/rooms/:roomId/kick/:userId", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("roomId"))
		userID := domain.UserID(c.Param("userId"))
		if err := o.DisconnectUser(roomID, userID); err != nil {
			notFound(c, err, "User or room not found")
			return
		}
		log.Info().Str("module", "adapters.http").Str("room", string(roomID)).Str("user", string(userID)).Str("client", c.GetString(clientTokenKey)).Msg("admin kick")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User disconnected from room"})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

func notFound(c *gin.Context, err error, msg string) {
	status := http.StatusNotFound
	if !errors.Is(err, orch.ErrNotFound) {
		status = http.StatusInternalServerError
		msg = err.Error()
	}
	c.JSON(status, gin.H{"success": false, "message": msg})
}
