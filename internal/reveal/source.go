package reveal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anchal00/morningstar/internal/logger"
)

const DefaultPollInterval = 30 * time.Second

// Target is the side of the engine a ChangeSource feeds.
type Target interface {
	RoomID() string
	Refresh(ctx context.Context) (View, error)
	Handle(ctx context.Context, ev Event) error
	RequestSync(ctx context.Context) error
}

// ChangeSource delivers remote changes to a Target until ctx is done.
type ChangeSource interface {
	Run(ctx context.Context, t Target) error
}

// PollSource refreshes the target on a fixed interval.
type PollSource struct {
	Interval time.Duration
	// Immediate refreshes once before the first tick.
	Immediate bool
	Logger    logger.Logger
}

func (p PollSource) Run(ctx context.Context, t Target) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := p.Logger
	if log == nil {
		log = logger.Discard()
	}
	refresh := func() error {
		_, err := t.Refresh(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrClosed):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.Error(fmt.Sprintf("Background refresh of room %s failed", t.RoomID()), err)
		}
		return nil
	}
	if p.Immediate {
		if err := refresh(); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := refresh(); err != nil {
				return err
			}
		}
	}
}

// PushSource feeds events from a Broadcaster subscription into the target.
// Without a broadcaster it returns immediately and polling carries on alone.
type PushSource struct {
	Broadcaster Broadcaster
	Logger      logger.Logger
}

func (p PushSource) Run(ctx context.Context, t Target) error {
	if p.Broadcaster == nil {
		return nil
	}
	log := p.Logger
	if log == nil {
		log = logger.Discard()
	}
	events := make(chan Event, 64)
	unsubscribe, err := p.Broadcaster.Subscribe(ctx, t.RoomID(), func(ev Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	if err := t.RequestSync(ctx); err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		log.Error(fmt.Sprintf("Sync request for room %s failed", t.RoomID()), err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := t.Handle(ctx, ev); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				log.Error(fmt.Sprintf("Dropped %s event for room %s", ev.Kind(), t.RoomID()), err)
			}
		}
	}
}
