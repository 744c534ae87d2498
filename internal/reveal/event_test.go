package reveal

import (
	"testing"

	"github.com/anchal00/morningstar/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		SubmitAnswer{QuestionID: "3", Role: model.RoleHost, Answer: "blue", UserName: "ana"},
		SyncRequest{Role: model.RoleGuest, UserName: "ben"},
		SyncResponse{Role: model.RoleHost, Answers: Answers{"3": {Host: s("blue")}}},
	}
	for _, ev := range events {
		t.Run(string(ev.Kind()), func(t *testing.T) {
			frame, err := Encode(ev)
			require.Nil(t, err)
			decoded, err := Decode(frame)
			require.Nil(t, err)
			assert.Equal(t, ev, decoded)
		})
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		description string
		frame       string
	}{
		{"Test unknown event type", `{"type":"typing","payload":{"role":"host"}}`},
		{"Test invalid role", `{"type":"sync_request","payload":{"role":"userC"}}`},
		{"Test submit without question", `{"type":"submit_answer","payload":{"role":"host","answer":"x"}}`},
		{"Test malformed json", `{"type":`},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			_, err := Decode([]byte(tc.frame))
			assert.NotNil(t, err)
		})
	}
	_, err := Decode([]byte(`{"type":"typing","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
