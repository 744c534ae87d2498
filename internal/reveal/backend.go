package reveal

import (
	"context"

	"github.com/anchal00/morningstar/internal/model"
)

// Backend is the durable room directory and answer store the engine syncs against.
type Backend interface {
	CreateRoom(ctx context.Context, code, hostID, hostName string) (*model.Room, error)
	JoinRoom(ctx context.Context, code, guestID, guestName string) (*model.Room, error)
	GetRoom(ctx context.Context, code string) (*model.Room, error)
	// SubmitAnswer upserts on (room, user, question).
	SubmitAnswer(ctx context.Context, code, userID, questionID, text string) error
	FetchAnswers(ctx context.Context, code string) ([]model.Answer, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]model.Room, error)
	ListQuestions(ctx context.Context) ([]model.Question, error)
}

// Broadcaster is the optional push channel. Subscribe returns a function that
// cancels the subscription.
type Broadcaster interface {
	Subscribe(ctx context.Context, code string, handler func(Event)) (func(), error)
	Publish(ctx context.Context, code string, ev Event) error
}

// Cache keeps the merged answer map of a room across restarts.
type Cache interface {
	LoadAnswers(code string) (Answers, error)
	SaveAnswers(code string, answers Answers) error
}
