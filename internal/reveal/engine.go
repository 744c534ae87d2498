package reveal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
)

var ErrClosed = errors.New("engine closed")

type Config struct {
	RoomID   string
	UserID   string
	UserName string
	Role     model.PlayerRole

	Backend Backend
	// Broadcaster and Cache are optional.
	Broadcaster Broadcaster
	Cache       Cache
	// Questions seeds the pool until the first Refresh; the default list is used when empty.
	Questions []model.Question
	Logger    logger.Logger
}

// Engine holds the merged answer state of one room as seen by one user.
type Engine struct {
	cfg    Config
	logger logger.Logger

	mu          sync.Mutex
	answers     Answers
	questions   []model.Question
	room        *model.Room
	partnerSeen bool
	closed      bool
	cancels     []context.CancelFunc

	wg sync.WaitGroup
}

func New(cfg Config) (*Engine, error) {
	code, err := model.NormalizeRoomCode(cfg.RoomID)
	if err != nil {
		return nil, err
	}
	cfg.RoomID = code
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is empty", model.ErrValidation)
	}
	if !cfg.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", model.ErrValidation, cfg.Role)
	}
	if cfg.Backend == nil {
		return nil, model.ErrNotConfigured
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	e := &Engine{
		cfg:       cfg,
		logger:    cfg.Logger,
		answers:   Answers{},
		questions: cfg.Questions,
	}
	if len(e.questions) == 0 {
		e.questions = model.DefaultQuestions()
	}
	if cfg.Cache != nil {
		cached, err := cfg.Cache.LoadAnswers(code)
		if err != nil {
			e.logger.Error(fmt.Sprintf("Failed to load cached answers for room %s", code), err)
		} else {
			e.answers = Merge(e.answers, cached)
		}
	}
	return e, nil
}

func (e *Engine) RoomID() string {
	return e.cfg.RoomID
}

func (e *Engine) Role() model.PlayerRole {
	return e.cfg.Role
}

// persist must be called with e.mu held.
func (e *Engine) persist() {
	if e.cfg.Cache == nil {
		return
	}
	if err := e.cfg.Cache.SaveAnswers(e.cfg.RoomID, e.answers); err != nil {
		e.logger.Error(fmt.Sprintf("Failed to cache answers for room %s", e.cfg.RoomID), err)
	}
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	if e.cfg.Broadcaster == nil {
		return
	}
	if err := e.cfg.Broadcaster.Publish(ctx, e.cfg.RoomID, ev); err != nil {
		e.logger.Debug(fmt.Sprintf("Failed to publish %s for room %s: %v", ev.Kind(), e.cfg.RoomID, err))
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Submit writes the answer through the backend and applies it locally only
// once the write has been acknowledged.
func (e *Engine) Submit(ctx context.Context, questionID, text string) error {
	if e.isClosed() {
		return ErrClosed
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return fmt.Errorf("%w: question id is empty", model.ErrValidation)
	}
	text, err := model.NormalizeAnswer(text)
	if err != nil {
		return err
	}
	if err := e.cfg.Backend.SubmitAnswer(ctx, e.cfg.RoomID, e.cfg.UserID, questionID, text); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.answers[questionID] = e.answers[questionID].With(e.cfg.Role, text)
	e.persist()
	e.mu.Unlock()

	e.publish(ctx, SubmitAnswer{QuestionID: questionID, Role: e.cfg.Role, Answer: text, UserName: e.cfg.UserName})
	return nil
}

// Refresh pulls the remote snapshot and merges it. When the answers cannot be
// fetched the state is left alone and the last known view comes back with
// the error.
func (e *Engine) Refresh(ctx context.Context) (View, error) {
	if e.isClosed() {
		return View{}, ErrClosed
	}

	var (
		wg                     sync.WaitGroup
		rows                   []model.Answer
		room                   *model.Room
		questions              []model.Question
		rowsErr, roomErr, qErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		rows, rowsErr = e.cfg.Backend.FetchAnswers(ctx, e.cfg.RoomID)
	}()
	go func() {
		defer wg.Done()
		room, roomErr = e.cfg.Backend.GetRoom(ctx, e.cfg.RoomID)
	}()
	go func() {
		defer wg.Done()
		questions, qErr = e.cfg.Backend.ListQuestions(ctx)
	}()
	wg.Wait()

	if roomErr != nil {
		e.logger.Error(fmt.Sprintf("Failed to fetch room %s", e.cfg.RoomID), roomErr)
		room = nil
	}
	if qErr != nil {
		e.logger.Error("Failed to fetch question pool", qErr)
		questions = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return View{}, ErrClosed
	}
	if rowsErr != nil {
		return e.viewLocked(), rowsErr
	}
	if room == nil {
		room = e.room
	}
	e.answers = Merge(e.answers, FromRows(rows, room, e.cfg.UserID, e.cfg.Role))
	e.room = room
	if len(questions) > 0 {
		e.questions = questions
	}
	e.persist()
	e.logger.Debug(fmt.Sprintf("Refreshed room %s with %d answers", e.cfg.RoomID, len(rows)))
	return e.viewLocked(), nil
}

// Handle applies an event received from the push channel. Only the sender's
// own column is taken from it.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	if ev == nil || !ev.Sender().Valid() {
		return fmt.Errorf("%w: event without a valid sender", model.ErrValidation)
	}
	sender := ev.Sender()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if sender != e.cfg.Role {
		e.partnerSeen = true
	}
	var reply Event
	switch ev := ev.(type) {
	case SubmitAnswer:
		if strings.TrimSpace(ev.Answer) != "" && ev.QuestionID != "" {
			e.answers = Merge(e.answers, Answers{ev.QuestionID: Pair{}.With(sender, ev.Answer)})
			e.persist()
		}
	case SyncRequest:
		reply = SyncResponse{Role: e.cfg.Role, Answers: e.snapshotLocked()}
	case SyncResponse:
		e.answers = Merge(e.answers, ev.Answers.Column(sender))
		e.persist()
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind())
	}
	e.mu.Unlock()

	if reply != nil {
		e.publish(ctx, reply)
	}
	return nil
}

// RequestSync asks whoever is listening on the room to send their answers.
func (e *Engine) RequestSync(ctx context.Context) error {
	if e.isClosed() {
		return ErrClosed
	}
	if e.cfg.Broadcaster == nil {
		return nil
	}
	return e.cfg.Broadcaster.Publish(ctx, e.cfg.RoomID, SyncRequest{Role: e.cfg.Role, UserName: e.cfg.UserName})
}

func (e *Engine) partnerOnlineLocked() bool {
	if e.partnerSeen || e.cfg.Role == model.RoleGuest {
		return true
	}
	if e.room != nil && e.room.HasGuest() {
		return true
	}
	return e.answers.Count(e.cfg.Role.Partner()) > 0
}

func (e *Engine) viewLocked() View {
	v := BuildView(e.cfg.RoomID, e.cfg.Role, e.questions, e.answers)
	v.PartnerOnline = e.partnerOnlineLocked()
	return v
}

func (e *Engine) snapshotLocked() Answers {
	return Merge(Answers{}, e.answers)
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Snapshot returns a copy of the merged answer map.
func (e *Engine) Snapshot() Answers {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Start runs every source in its own goroutine until ctx is done or the
// engine is closed.
func (e *Engine) Start(ctx context.Context, sources ...ChangeSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancels = append(e.cancels, cancel)
	for _, src := range sources {
		if src == nil {
			continue
		}
		e.wg.Add(1)
		go func(src ChangeSource) {
			defer e.wg.Done()
			err := src.Run(runCtx, e)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
				e.logger.Error(fmt.Sprintf("Change source stopped for room %s", e.cfg.RoomID), err)
			}
		}(src)
	}
	return nil
}

// Close stops all sources and waits for them. Calling it again is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancels := e.cancels
	e.cancels = nil
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	e.wg.Wait()
	return nil
}
