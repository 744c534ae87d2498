package reveal_test

import (
	"context"
	"sync"

	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
)

// stubBackend keeps rooms and answers in memory. Setting fail makes every
// call return that error.
type stubBackend struct {
	mu      sync.Mutex
	rooms   map[string]*model.Room
	answers map[[3]string]string
	fail    error
	submits int
	fetches int
}

func newStubBackend() *stubBackend {
	return &stubBackend{rooms: map[string]*model.Room{}, answers: map[[3]string]string{}}
}

func (s *stubBackend) setFail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *stubBackend) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *stubBackend) CreateRoom(_ context.Context, code, hostID, hostName string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	if _, ok := s.rooms[code]; ok {
		return nil, model.ErrConflict
	}
	r := &model.Room{ID: code, HostID: hostID, HostName: hostName}
	s.rooms[code] = r
	cp := *r
	return &cp, nil
}

func (s *stubBackend) JoinRoom(_ context.Context, code, guestID, guestName string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	r, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrNotFound
	}
	if r.HasGuest() && *r.GuestID != guestID {
		return nil, model.ErrConflict
	}
	r.GuestID, r.GuestName = &guestID, &guestName
	cp := *r
	return &cp, nil
}

func (s *stubBackend) GetRoom(_ context.Context, code string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	r, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *stubBackend) SubmitAnswer(_ context.Context, code, userID, questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.submits++
	s.answers[[3]string{code, userID, questionID}] = text
	return nil
}

func (s *stubBackend) FetchAnswers(_ context.Context, code string) ([]model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]model.Answer, 0)
	for k, v := range s.answers {
		if k[0] == code {
			out = append(out, model.Answer{RoomID: k[0], UserID: k[1], QuestionID: k[2], Text: v})
		}
	}
	return out, nil
}

func (s *stubBackend) ListRoomsForUser(_ context.Context, userID string) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Room, 0)
	for _, r := range s.rooms {
		if _, ok := r.RoleOf(userID); ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubBackend) ListQuestions(context.Context) ([]model.Question, error) {
	return model.DefaultQuestions(), nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]reveal.Answers
}

func newMemCache() *memCache {
	return &memCache{data: map[string]reveal.Answers{}}
}

func (c *memCache) LoadAnswers(code string) (reveal.Answers, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return reveal.Merge(reveal.Answers{}, c.data[code]), nil
}

func (c *memCache) SaveAnswers(code string, answers reveal.Answers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[code] = reveal.Merge(reveal.Answers{}, answers)
	return nil
}
