package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/MedCall/internal/app"
	"github.com/dkeye/MedCall/internal/core"
	"github.com/dkeye/MedCall/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the session coordinator. It is the only writer of room
// state and reacts to one tagged event at a time per connection.
type Orchestrator struct {
	Registry  *app.Registry
	Rooms     *app.RoomStore
	Relay     *app.Relay
	Policy    app.Policy
	Metrics   *app.Metrics
	ChatLimit *app.RateLimiter

	// Handed to every client in session:ready, never inspected.
	ICEServers           []webrtc.ICEServer
	ICECandidatePoolSize uint8

	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Connect attaches a new transport and greets it with its handle and the
// relay servers it should use.
func (o *Orchestrator) Connect(conn domain.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Attach(conn, sig, cancel)
	o.send(conn, core.SessionReady{
		Type:                 core.EventSessionReady,
		ConnID:               conn,
		ICEServers:           o.ICEServers,
		ICECandidatePoolSize: o.ICECandidatePoolSize,
	})
}

// Dispatch routes one inbound event. It never returns an error: anything
// stale resolves to a no-op here.
func (o *Orchestrator) Dispatch(conn domain.ConnID, ev core.Event) {
	o.Metrics.Event(ev.EventType())

	switch e := ev.(type) {
	case core.UserJoin:
		o.UserJoin(conn, e)
	case core.RoomJoin:
		o.Join(conn, e)
	case core.Offer:
		o.Offer(conn, e)
	case core.Answer:
		o.Answer(conn, e)
	case core.ICECandidate:
		o.ICECandidate(conn, e)
	case core.MediaToggle:
		o.ToggleMedia(conn, e)
	case core.ChatMessage:
		o.Chat(conn, e)
	case core.RoomLeave:
		o.Leave(conn, e.RoomID)
	case core.Ping:
		o.send(conn, core.Pong{Type: core.EventPong})
	case core.Disconnect:
		o.OnDisconnect(conn)
	default:
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Str("type", ev.EventType()).Msg("unhandled event")
	}
}

// Reject answers a frame that could not be decoded. No state is touched.
func (o *Orchestrator) Reject(conn domain.ConnID, err error) {
	reason := "malformed"
	if errors.Is(err, core.ErrUnknownEvent) {
		reason = "unknown"
	}
	o.Metrics.Rejected(reason)
	log.Warn().Err(err).Str("module", "orch").Str("conn", string(conn)).Msg("rejected frame")
	o.send(conn, core.ErrorOut{Type: core.EventError, Message: err.Error()})
}

func (o *Orchestrator) send(conn domain.ConnID, v any) bool {
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return false
	}
	return o.deliver(conn, f)
}

func (o *Orchestrator) broadcast(to []domain.Participant, v any) {
	if len(to) == 0 {
		return
	}
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return
	}
	for _, p := range to {
		o.deliver(p.ConnID, f)
	}
}

func (o *Orchestrator) deliver(conn domain.ConnID, f core.Frame) bool {
	err := o.Relay.Forward(conn, f)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrBackpressure):
		o.onBackpressure(conn)
	default:
		log.Debug().Err(err).Str("module", "orch").Str("conn", string(conn)).Msg("deliver skipped")
	}
	return false
}

func (o *Orchestrator) onBackpressure(conn domain.ConnID) {
	action := app.DropConnection
	if o.Policy != nil {
		action = o.Policy.OnBackPressure(conn)
	}
	switch action {
	case app.DropConnection:
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Msg("outbound queue full, dropping connection")
		o.Metrics.DroppedConn()
		o.Registry.Cancel(conn)
	case app.DropFrame, app.NoAction:
	}
}
