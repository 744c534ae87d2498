package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anchal00/morningstar/internal/model"
)

const roomsKey = KeyPrefix + "rooms"

func answersKey(code string) string { return KeyPrefix + "answers_" + code }

// Backend serves rooms and answers from the local store when no server is
// configured. Only sessions on this machine can see each other through it.
type Backend struct {
	Store Store
	Now   func() time.Time

	mu sync.Mutex
}

func NewBackend(store Store) *Backend {
	return &Backend{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

func (b *Backend) rooms() ([]model.Room, error) {
	rooms := make([]model.Room, 0)
	if _, err := getJSON(b.Store, roomsKey, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func find(rooms []model.Room, code string) int {
	for i := range rooms {
		if rooms[i].ID == code {
			return i
		}
	}
	return -1
}

func (b *Backend) CreateRoom(_ context.Context, code, hostID, hostName string) (*model.Room, error) {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	if hostID == "" {
		return nil, fmt.Errorf("%w: host id is empty", model.ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.rooms()
	if err != nil {
		return nil, err
	}
	if find(rooms, code) >= 0 {
		return nil, fmt.Errorf("%w: room %s already exists", model.ErrConflict, code)
	}
	room := model.Room{ID: code, HostID: hostID, HostName: hostName, CreatedAt: b.Now()}
	rooms = append(rooms, room)
	if err := setJSON(b.Store, roomsKey, rooms); err != nil {
		return nil, err
	}
	return &room, nil
}

func (b *Backend) GetRoom(_ context.Context, code string) (*model.Room, error) {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.rooms()
	if err != nil {
		return nil, err
	}
	i := find(rooms, code)
	if i < 0 {
		return nil, fmt.Errorf("%w: room %s", model.ErrNotFound, code)
	}
	return &rooms[i], nil
}

// JoinRoom takes the guest slot once. Rejoining with the same guest id
// succeeds without changes.
func (b *Backend) JoinRoom(_ context.Context, code, guestID, guestName string) (*model.Room, error) {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	if guestID == "" {
		return nil, fmt.Errorf("%w: guest id is empty", model.ErrValidation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.rooms()
	if err != nil {
		return nil, err
	}
	i := find(rooms, code)
	if i < 0 {
		return nil, fmt.Errorf("%w: room %s", model.ErrNotFound, code)
	}
	room := rooms[i]
	switch {
	case room.HasGuest() && *room.GuestID == guestID:
		return &room, nil
	case room.HasGuest(), room.HostID == guestID:
		return nil, fmt.Errorf("%w: room %s is full", model.ErrConflict, code)
	}
	room.GuestID, room.GuestName = &guestID, &guestName
	rooms[i] = room
	if err := setJSON(b.Store, roomsKey, rooms); err != nil {
		return nil, err
	}
	return &room, nil
}

func (b *Backend) answers(code string) ([]model.Answer, error) {
	answers := make([]model.Answer, 0)
	if _, err := getJSON(b.Store, answersKey(code), &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (b *Backend) SubmitAnswer(_ context.Context, code, userID, questionID, text string) error {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.rooms()
	if err != nil {
		return err
	}
	if find(rooms, code) < 0 {
		return fmt.Errorf("%w: room %s", model.ErrNotFound, code)
	}
	answers, err := b.answers(code)
	if err != nil {
		return err
	}
	for i := range answers {
		if answers[i].UserID == userID && answers[i].QuestionID == questionID {
			answers[i].Text = text
			return setJSON(b.Store, answersKey(code), answers)
		}
	}
	answers = append(answers, model.Answer{RoomID: code, UserID: userID, QuestionID: questionID, Text: text, CreatedAt: b.Now()})
	return setJSON(b.Store, answersKey(code), answers)
}

func (b *Backend) FetchAnswers(_ context.Context, code string) ([]model.Answer, error) {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.answers(code)
}

// ListRoomsForUser returns rooms the user hosts or joined, newest first.
func (b *Backend) ListRoomsForUser(_ context.Context, userID string) ([]model.Room, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.rooms()
	if err != nil {
		return nil, err
	}
	mine := make([]model.Room, 0)
	for _, r := range rooms {
		if _, ok := r.RoleOf(userID); ok {
			mine = append(mine, r)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	return mine, nil
}

// ListQuestions always returns the built-in pool; custom questions need a server.
func (b *Backend) ListQuestions(context.Context) ([]model.Question, error) {
	return model.DefaultQuestions(), nil
}
