package core

import (
	"encoding/json"

	"github.com/dkeye/MedCall/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Inbound event names.
const (
	EventUserJoin     = "user:join"
	EventRoomJoin     = "room:join"
	EventOffer        = "webrtc:offer"
	EventAnswer       = "webrtc:answer"
	EventICECandidate = "webrtc:ice-candidate"
	EventMediaToggle  = "media:toggle"
	EventChatMessage  = "chat:message"
	EventRoomLeave    = "room:leave"
	EventPing         = "ping"
	EventDisconnect   = "disconnect"
)

// Outbound event names. Signaling and chat reuse the inbound names.
const (
	EventSessionReady = "session:ready"
	EventUsersOnline  = "users:online"
	EventRoomJoined   = "room:joined"
	EventUserJoined   = "user:joined"
	EventMediaToggled = "media:toggled"
	EventUserLeft     = "user:left"
	EventRoomStatus   = "room:status"
	EventRoomKicked   = "room:kicked"
	EventError        = "error"
	EventPong         = "pong"
)

// Event is the tagged union of everything a connection can deliver to the
// coordinator. The concrete type is the tag.
type Event interface {
	EventType() string
}

type UserJoin struct {
	UserID   domain.UserID `json:"userId" validate:"required,max=64"`
	UserName string        `json:"userName" validate:"max=64"`
}

type RoomJoin struct {
	RoomID   domain.RoomID `json:"roomId" validate:"required,max=128"`
	UserID   domain.UserID `json:"userId" validate:"required,max=64"`
	UserName string        `json:"userName" validate:"max=64"`
	IsDoctor bool          `json:"isDoctor"`
	Role     string        `json:"role,omitempty" validate:"omitempty,oneof=patient doctor admin"`
}

// Offer, Answer and ICECandidate carry the payload untouched.
type Offer struct {
	Offer  json.RawMessage `json:"offer" validate:"required"`
	RoomID domain.RoomID   `json:"roomId" validate:"max=128"`
	Target domain.ConnID   `json:"targetConnectionHandle" validate:"required"`
}

type Answer struct {
	Answer json.RawMessage `json:"answer" validate:"required"`
	Target domain.ConnID   `json:"targetConnectionHandle" validate:"required"`
}

type ICECandidate struct {
	Candidate json.RawMessage `json:"candidate" validate:"required"`
	Target    domain.ConnID   `json:"targetConnectionHandle" validate:"required"`
}

type MediaToggle struct {
	RoomID    domain.RoomID    `json:"roomId" validate:"required,max=128"`
	MediaType domain.MediaType `json:"mediaType" validate:"required,oneof=audio video"`
	Enabled   *bool            `json:"enabled" validate:"required"`
}

type ChatMessage struct {
	RoomID     domain.RoomID `json:"roomId" validate:"required,max=128"`
	Message    string        `json:"message" validate:"required,max=4096"`
	SenderName string        `json:"senderName" validate:"max=64"`
}

type RoomLeave struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128"`
}

type Ping struct{}

// Disconnect is raised by the transport when the channel is gone.
// It never arrives on the wire.
type Disconnect struct{}

func (UserJoin) EventType() string     { return EventUserJoin }
func (RoomJoin) EventType() string     { return EventRoomJoin }
func (Offer) EventType() string        { return EventOffer }
func (Answer) EventType() string       { return EventAnswer }
func (ICECandidate) EventType() string { return EventICECandidate }
func (MediaToggle) EventType() string  { return EventMediaToggle }
func (ChatMessage) EventType() string  { return EventChatMessage }
func (RoomLeave) EventType() string    { return EventRoomLeave }
func (Ping) EventType() string         { return EventPing }
func (Disconnect) EventType() string   { return EventDisconnect }

// Outbound payloads. Type is always set by the sender.

type SessionReady struct {
	Type                 string             `json:"type"`
	ConnID               domain.ConnID      `json:"connectionHandle"`
	ICEServers           []webrtc.ICEServer `json:"iceServers"`
	ICECandidatePoolSize uint8              `json:"iceCandidatePoolSize,omitempty"`
}

type UsersOnline struct {
	Type  string          `json:"type"`
	Users []domain.UserID `json:"users"`
}

type RoomJoined struct {
	Type             string               `json:"type"`
	RoomID           domain.RoomID        `json:"roomId"`
	Participants     []domain.Participant `json:"participants"`
	ParticipantCount int                  `json:"participantCount"`
	Status           domain.RoomStatus    `json:"status"`
}

type UserJoined struct {
	Type             string        `json:"type"`
	UserID           domain.UserID `json:"userId"`
	UserName         string        `json:"userName"`
	IsDoctor         bool          `json:"isDoctor"`
	ConnID           domain.ConnID `json:"connectionHandle"`
	ParticipantCount int           `json:"participantCount"`
}

type OfferOut struct {
	Type           string          `json:"type"`
	Offer          json.RawMessage `json:"offer"`
	SenderConnID   domain.ConnID   `json:"senderConnectionHandle"`
	SenderUserID   domain.UserID   `json:"senderUserId"`
	SenderUserName string          `json:"senderUserName"`
}

type AnswerOut struct {
	Type         string          `json:"type"`
	Answer       json.RawMessage `json:"answer"`
	SenderConnID domain.ConnID   `json:"senderConnectionHandle"`
}

type ICECandidateOut struct {
	Type         string          `json:"type"`
	Candidate    json.RawMessage `json:"candidate"`
	SenderConnID domain.ConnID   `json:"senderConnectionHandle"`
}

type MediaToggled struct {
	Type      string           `json:"type"`
	UserID    domain.UserID    `json:"userId"`
	MediaType domain.MediaType `json:"mediaType"`
	Enabled   bool             `json:"enabled"`
}

type ChatOut struct {
	Type       string        `json:"type"`
	Message    string        `json:"message"`
	SenderName string        `json:"senderName"`
	SenderID   domain.UserID `json:"senderId"`
	Timestamp  string        `json:"timestamp"`
}

type UserLeft struct {
	Type             string        `json:"type"`
	UserID           domain.UserID `json:"userId"`
	UserName         string        `json:"userName"`
	ParticipantCount int           `json:"participantCount"`
}

type RoomStatusOut struct {
	Type   string            `json:"type"`
	Status domain.RoomStatus `json:"status"`
}

type RoomKicked struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type ErrorOut struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Pong struct {
	Type string `json:"type"`
}
