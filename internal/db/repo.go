//go:generate mockery --with-expecter=false --name=Repository --output=./mocks
package db

import (
	"context"
	"time"

	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
)

type Repository interface {
	SetupConnection(dsn string) error
	CloseConnection()
	CreateRoom(ctx context.Context, room model.Room) (*model.Room, error)
	GetRoom(ctx context.Context, code string) (*model.Room, error)
	JoinRoom(ctx context.Context, code, guestID, guestName string) (*model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]model.Room, error)
	DeleteRoom(ctx context.Context, code string) error
	PurgeRoomsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	UpsertAnswer(ctx context.Context, answer model.Answer) error
	GetAnswers(ctx context.Context, code string) ([]model.Answer, error)
	ListQuestions(ctx context.Context) ([]model.Question, error)
	AddQuestion(ctx context.Context, question model.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

func SetupDB(dsn string) (Repository, error) {
	var repository Repository = &SqliteStore{
		Logger: logger.New("database"),
		Now:    func() time.Time { return time.Now().UTC() },
	}
	err := repository.SetupConnection(dsn)
	return repository, err
}
