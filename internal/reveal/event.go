package reveal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anchal00/morningstar/internal/model"
)

type Kind string

const (
	KindSubmitAnswer Kind = "submit_answer"
	KindSyncRequest  Kind = "sync_request"
	KindSyncResponse Kind = "sync_response"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is one of SubmitAnswer, SyncRequest or SyncResponse.
type Event interface {
	Kind() Kind
	Sender() model.PlayerRole
}

type SubmitAnswer struct {
	QuestionID string           `json:"question_id"`
	Role       model.PlayerRole `json:"role"`
	Answer     string           `json:"answer"`
	UserName   string           `json:"user_name"`
}

type SyncRequest struct {
	Role     model.PlayerRole `json:"role"`
	UserName string           `json:"user_name"`
}

type SyncResponse struct {
	Role    model.PlayerRole `json:"role"`
	Answers Answers          `json:"answers"`
}

func (SubmitAnswer) Kind() Kind { return KindSubmitAnswer }
func (SyncRequest) Kind() Kind  { return KindSyncRequest }
func (SyncResponse) Kind() Kind { return KindSyncResponse }

func (e SubmitAnswer) Sender() model.PlayerRole { return e.Role }
func (e SyncRequest) Sender() model.PlayerRole  { return e.Role }
func (e SyncResponse) Sender() model.PlayerRole { return e.Role }

type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: ev.Kind(), Payload: payload})
}

// Decode parses a wire frame. Frames with an unknown type or a sender role
// other than host or guest are rejected.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	var ev Event
	var err error
	switch env.Type {
	case KindSubmitAnswer:
		var e SubmitAnswer
		err = json.Unmarshal(env.Payload, &e)
		if err == nil && e.QuestionID == "" {
			err = errors.New("submit_answer without question_id")
		}
		ev = e
	case KindSyncRequest:
		var e SyncRequest
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case KindSyncResponse:
		var e SyncResponse
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrValidation, env.Type, err)
	}
	if !ev.Sender().Valid() {
		return nil, fmt.Errorf("%w: %s: invalid role %q", model.ErrValidation, env.Type, ev.Sender())
	}
	return ev, nil
}
