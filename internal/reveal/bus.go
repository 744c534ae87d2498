package reveal

import (
	"context"
	"sync"
)

// LocalBus is a Broadcaster for sessions living in the same process. Events
// go through the wire codec so subscribers never share memory with the
// publisher.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Event)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]func(Event))}
}

func (b *LocalBus) Subscribe(_ context.Context, code string, handler func(Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[code] == nil {
		b.subs[code] = make(map[int]func(Event))
	}
	b.nextID++
	id := b.nextID
	b.subs[code][id] = handler
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[code], id)
			if len(b.subs[code]) == 0 {
				delete(b.subs, code)
			}
		})
	}, nil
}

func (b *LocalBus) Publish(ctx context.Context, code string, ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[code]))
	for _, h := range b.subs[code] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		decoded, err := Decode(frame)
		if err != nil {
			return err
		}
		h(decoded)
	}
	return nil
}

// Subscribers reports how many handlers are listening on code.
func (b *LocalBus) Subscribers(code string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[code])
}
