package domain

import "time"

type RoomID string

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomActive  RoomStatus = "active"
)

// StatusFor derives the room status from its participant count.
func StatusFor(count int) RoomStatus {
	if count >= 2 {
		return RoomActive
	}
	return RoomWaiting
}

// RoomInfo is the listing view used by the admin API.
type RoomInfo struct {
	ID               RoomID     `json:"roomId"`
	ParticipantCount int        `json:"participantCount"`
	Status           RoomStatus `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// RoomDetails is RoomInfo plus a participant snapshot.
type RoomDetails struct {
	RoomInfo
	Participants []Participant `json:"participants"`
}
