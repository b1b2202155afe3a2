package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
)

// api keeps marshaler output as-is so signaling payloads leave byte-for-byte.
var api = sonic.ConfigDefault

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeEvent parses one inbound frame into its concrete Event.
// Errors wrap ErrMalformedEvent or ErrUnknownEvent.
func DecodeEvent(data []byte) (Event, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := api.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: bad json", ErrMalformedEvent)
	}

	var ev Event
	switch env.Type {
	case EventUserJoin:
		ev = &UserJoin{}
	case EventRoomJoin:
		ev = &RoomJoin{}
	case EventOffer:
		ev = &Offer{}
	case EventAnswer:
		ev = &Answer{}
	case EventICECandidate:
		ev = &ICECandidate{}
	case EventMediaToggle:
		ev = &MediaToggle{}
	case EventChatMessage:
		ev = &ChatMessage{}
	case EventRoomLeave:
		ev = &RoomLeave{}
	case EventPing:
		return Ping{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, env.Type)
	}

	if err := api.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: bad %s payload", ErrMalformedEvent, env.Type)
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedEvent, env.Type, describe(err))
	}
	return deref(ev), nil
}

// deref hands the coordinator values, not pointers, so the type switch stays flat.
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *UserJoin:
		return *e
	case *RoomJoin:
		return *e
	case *Offer:
		return *e
	case *Answer:
		return *e
	case *ICECandidate:
		return *e
	case *MediaToggle:
		return *e
	case *ChatMessage:
		return *e
	case *RoomLeave:
		return *e
	}
	return ev
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "max":
			parts = append(parts, fe.Field()+" is too long")
		case "oneof":
			parts = append(parts, fe.Field()+" must be one of "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, ", ")
}

// Encode marshals an outbound payload into a Frame.
func Encode(v any) (Frame, error) {
	b, err := api.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
