package core

import (
	"testing"

	"github.com/dkeye/MedCall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, ev Event)
	}{
		{
			name:  "user join",
			frame: `{"type":"user:join","userId":"u1","userName":"Alice"}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, UserJoin{UserID: "u1", UserName: "Alice"}, ev)
			},
		},
		{
			name:  "room join doctor",
			frame: `{"type":"room:join","roomId":"r1","userId":"u1","userName":"Dr","isDoctor":true}`,
			check: func(t *testing.T, ev Event) {
				rj, ok := ev.(RoomJoin)
				require.True(t, ok)
				assert.Equal(t, domain.RoomID("r1"), rj.RoomID)
				assert.True(t, rj.IsDoctor)
			},
		},
		{
			name:  "offer keeps payload bytes",
			frame: `{"type":"webrtc:offer","offer":{"type":"offer","sdp":"v=0\r\n"},"roomId":"r1","targetConnectionHandle":"c2"}`,
			check: func(t *testing.T, ev Event) {
				o, ok := ev.(Offer)
				require.True(t, ok)
				assert.Equal(t, domain.ConnID("c2"), o.Target)
				assert.Equal(t, `{"type":"offer","sdp":"v=0\r\n"}`, string(o.Offer))
			},
		},
		{
			name:  "candidate",
			frame: `{"type":"webrtc:ice-candidate","candidate":{"candidate":"candidate:1 1 udp 1 1.2.3.4 5 typ host"},"targetConnectionHandle":"c9"}`,
			check: func(t *testing.T, ev Event) {
				c, ok := ev.(ICECandidate)
				require.True(t, ok)
				assert.Equal(t, domain.ConnID("c9"), c.Target)
			},
		},
		{
			name:  "media toggle false is accepted",
			frame: `{"type":"media:toggle","roomId":"r1","mediaType":"video","enabled":false}`,
			check: func(t *testing.T, ev Event) {
				mt, ok := ev.(MediaToggle)
				require.True(t, ok)
				require.NotNil(t, mt.Enabled)
				assert.False(t, *mt.Enabled)
				assert.Equal(t, domain.MediaVideo, mt.MediaType)
			},
		},
		{
			name:  "ping",
			frame: `{"type":"ping"}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, Ping{}, ev)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.frame))
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestDecodeEventRejects(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
		msg     string
	}{
		{"not json", `{"type":`, ErrMalformedEvent, "bad json"},
		{"no type", `{"roomId":"r1"}`, ErrMalformedEvent, "missing type"},
		{"unknown", `{"type":"room:explode"}`, ErrUnknownEvent, "room:explode"},
		{"join without room", `{"type":"room:join","userId":"u1"}`, ErrMalformedEvent, "roomId is required"},
		{"offer without target", `{"type":"webrtc:offer","offer":{}}`, ErrMalformedEvent, "targetConnectionHandle is required"},
		{"toggle without enabled", `{"type":"media:toggle","roomId":"r1","mediaType":"audio"}`, ErrMalformedEvent, "enabled is required"},
		{"toggle bad kind", `{"type":"media:toggle","roomId":"r1","mediaType":"screen","enabled":true}`, ErrMalformedEvent, "mediaType must be one of"},
		{"bad role", `{"type":"room:join","roomId":"r1","userId":"u1","role":"nurse"}`, ErrMalformedEvent, "role must be one of"},
		{"empty chat", `{"type":"chat:message","roomId":"r1","message":""}`, ErrMalformedEvent, "message is required"},
		{"wrong field type", `{"type":"room:leave","roomId":42}`, ErrMalformedEvent, "bad room:leave payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.frame))
			assert.Nil(t, ev)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestEncodeKeepsRawPayload(t *testing.T) {
	f, err := Encode(OfferOut{
		Type:         EventOffer,
		Offer:        []byte(`{"sdp":"x"}`),
		SenderConnID: "c1",
		SenderUserID: "u1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"webrtc:offer","offer":{"sdp":"x"},"senderConnectionHandle":"c1","senderUserId":"u1","senderUserName":""}`, string(f))
}
