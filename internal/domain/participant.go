package domain

import "time"

// ConnID is an opaque per-transport handle. A new WebSocket gets a new one.
type ConnID string

type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Participant is one connection's presence in a room.
// Keyed by ConnID in the room, so one user may appear twice from two devices.
type Participant struct {
	UserID       UserID    `json:"userId"`
	UserName     string    `json:"userName"`
	Role         Role      `json:"role"`
	IsDoctor     bool      `json:"isDoctor"`
	ConnID       ConnID    `json:"connectionHandle"`
	JoinedAt     time.Time `json:"joinedAt"`
	AudioEnabled bool      `json:"audioEnabled"`
	VideoEnabled bool      `json:"videoEnabled"`
}

// NewParticipant avoids raw literals in the coordinator and sets media defaults.
func NewParticipant(userID UserID, name string, role Role, conn ConnID, now time.Time) Participant {
	return Participant{
		UserID:       userID,
		UserName:     name,
		Role:         role,
		IsDoctor:     role == RoleDoctor,
		ConnID:       conn,
		JoinedAt:     now,
		AudioEnabled: true,
		VideoEnabled: true,
	}
}

// SetMedia flips one media flag. Unknown kinds are ignored.
func (p *Participant) SetMedia(kind MediaType, enabled bool) bool {
	switch kind {
	case MediaAudio:
		p.AudioEnabled = enabled
	case MediaVideo:
		p.VideoEnabled = enabled
	default:
		return false
	}
	return true
}
