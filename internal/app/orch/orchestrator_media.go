package orch

import (
	"github.com/dkeye/MedCall/internal/core"
	"github.com/dkeye/MedCall/internal/domain"
	"github.com/rs/zerolog/log"
)

// ChatTimeLayout is millisecond-precision RFC 3339 in UTC.
const ChatTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func (o *Orchestrator) ToggleMedia(conn domain.ConnID, e core.MediaToggle) {
	ok := o.Rooms.ToggleMedia(e.RoomID, conn, e.MediaType, *e.Enabled, func(p domain.Participant, others []domain.Participant) {
		o.broadcast(others, core.MediaToggled{
			Type:      core.EventMediaToggled,
			UserID:    p.UserID,
			MediaType: e.MediaType,
			Enabled:   *e.Enabled,
		})
	})
	if !ok {
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Str("room", string(e.RoomID)).Msg("media toggle ignored")
	}
}

// Chat relays a message to the whole room, sender included. Nothing is stored.
// Only members spend rate budget.
func (o *Orchestrator) Chat(conn domain.ConnID, e core.ChatMessage) {
	ok := o.Rooms.WithMembers(e.RoomID, conn, func(self domain.Participant, members []domain.Participant) {
		if !o.ChatLimit.Allow(conn) {
			o.Metrics.ChatRateLimited()
			o.send(conn, core.ErrorOut{Type: core.EventError, Message: "rate limited"})
			return
		}
		sender := e.SenderName
		if sender == "" {
			sender = self.UserName
		}
		o.broadcast(members, core.ChatOut{
			Type:       core.EventChatMessage,
			Message:    e.Message,
			SenderName: sender,
			SenderID:   self.UserID,
			Timestamp:  o.now().UTC().Format(ChatTimeLayout),
		})
	})
	if !ok {
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Str("room", string(e.RoomID)).Msg("chat from non-member ignored")
	}
}
