package orch

import (
	"errors"
	"slices"

	"github.com/dkeye/MedCall/internal/app"
	"github.com/dkeye/MedCall/internal/core"
	"github.com/dkeye/MedCall/internal/domain"
	"github.com/rs/zerolog/log"
)

const KickReason = "Disconnected by admin"

var ErrNotFound = errors.New("not found")

// UserJoin registers the sender as the live connection for its identity and
// answers with everyone currently online.
func (o *Orchestrator) UserJoin(conn domain.ConnID, e core.UserJoin) {
	o.Registry.Register(e.UserID, conn)
	o.Registry.SetIdentity(conn, e.UserID, displayName(e.UserName, e.UserID))
	o.send(conn, core.UsersOnline{Type: core.EventUsersOnline, Users: o.OnlineUsers()})
}

func (o *Orchestrator) Join(conn domain.ConnID, e core.RoomJoin) {
	role, err := domain.ParseRole(e.Role, e.IsDoctor)
	if err != nil {
		o.Reject(conn, err)
		return
	}
	name := displayName(e.UserName, e.UserID)
	o.Registry.SetIdentity(conn, e.UserID, name)

	p := domain.NewParticipant(e.UserID, name, role, conn, o.now())
	o.Rooms.JoinRoom(e.RoomID, p, func(res app.JoinResult) {
		o.broadcast(res.Others, core.UserJoined{
			Type:             core.EventUserJoined,
			UserID:           res.Joined.UserID,
			UserName:         res.Joined.UserName,
			IsDoctor:         res.Joined.IsDoctor,
			ConnID:           conn,
			ParticipantCount: res.Room.ParticipantCount,
		})
		o.send(conn, core.RoomJoined{
			Type:             core.EventRoomJoined,
			RoomID:           e.RoomID,
			Participants:     res.Others,
			ParticipantCount: res.Room.ParticipantCount,
			Status:           res.Room.Status,
		})
		if res.Room.Status == domain.RoomActive {
			o.broadcast(append(res.Others, res.Joined), core.RoomStatusOut{Type: core.EventRoomStatus, Status: domain.RoomActive})
		}
	})
}

// Leave is idempotent: leaving a room the connection is not in does nothing.
func (o *Orchestrator) Leave(conn domain.ConnID, roomID domain.RoomID) bool {
	_, ok := o.Rooms.LeaveRoom(roomID, conn, func(res app.LeaveResult) {
		if res.Deleted {
			return
		}
		o.broadcast(res.Remaining, core.UserLeft{
			Type:             core.EventUserLeft,
			UserID:           res.Left.UserID,
			UserName:         res.Left.UserName,
			ParticipantCount: res.Count,
		})
		o.broadcast(res.Remaining, core.RoomStatusOut{Type: core.EventRoomStatus, Status: res.Status})
	})
	return ok
}

// OnDisconnect has the same effect as the connection leaving every room it
// was in, followed by releasing its identity.
func (o *Orchestrator) OnDisconnect(conn domain.ConnID) {
	o.Registry.UnregisterConn(conn)
	for _, id := range o.Rooms.RoomsOf(conn) {
		o.Leave(conn, id)
	}
	o.ChatLimit.Forget(conn)
	o.Registry.Detach(conn)
}

func (o *Orchestrator) OnlineUsers() []domain.UserID {
	users := slices.Collect(o.Registry.ListOnline())
	if users == nil {
		users = []domain.UserID{}
	}
	return users
}

func (o *Orchestrator) ListActiveRooms() []domain.RoomInfo {
	rooms := slices.Collect(o.Rooms.ListActiveRooms())
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	return rooms
}

func (o *Orchestrator) GetRoomDetails(id domain.RoomID) (domain.RoomDetails, error) {
	d, ok := o.Rooms.GetRoom(id)
	if !ok {
		return domain.RoomDetails{}, ErrNotFound
	}
	return d, nil
}

// DisconnectUser kicks every handle userID holds in the room. The target is
// told why before it is removed; the rest of the room sees a normal leave.
func (o *Orchestrator) DisconnectUser(roomID domain.RoomID, userID domain.UserID) error {
	conns := o.Rooms.ConnsOfUser(roomID, userID)
	if len(conns) == 0 {
		return ErrNotFound
	}
	kicked := 0
	for _, c := range conns {
		// A superseded handle is not addressable, so it is removed without notice.
		o.send(c, core.RoomKicked{Type: core.EventRoomKicked, Reason: KickReason})
		if o.Leave(c, roomID) {
			kicked++
			o.Metrics.Kick()
		}
	}
	if kicked == 0 {
		return ErrNotFound
	}
	log.Info().Str("module", "orch").Str("room", string(roomID)).Str("user", string(userID)).Int("conns", kicked).Msg("kicked user")
	return nil
}

func displayName(name string, userID domain.UserID) string {
	clean, err := domain.CleanUsername(name)
	if err != nil {
		return string(userID)
	}
	return clean
}
