package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	minRedialDelay  = 500 * time.Millisecond
	maxRedialDelay  = 30 * time.Second
	maxInboundFrame = 64 * 1024
)

// Push is a reveal.Broadcaster over the server's websocket relay. One
// connection is kept per subscribed room and redialled when it drops.
type Push struct {
	client *Client
	dialer *websocket.Dialer
	Logger logger.Logger

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscription) set(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *subscription) write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("%w: relay connection is down", model.ErrTransientIO)
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransientIO, err)
	}
	return nil
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func NewPush(c *Client) *Push {
	return &Push{
		client: c,
		dialer: &websocket.Dialer{HandshakeTimeout: defaultTimeout},
		Logger: logger.New("push"),
		subs:   make(map[string]*subscription),
	}
}

func (p *Push) wsURL(code string) string {
	base := p.client.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	default:
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + apiPrefix + "/rooms/" + escape(code) + "/ws"
}

func (p *Push) dial(ctx context.Context, code string) (*websocket.Conn, error) {
	conn, resp, err := p.dialer.DialContext(ctx, p.wsURL(code), nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if resp != nil {
			defer resp.Body.Close()
			return nil, errorFor(resp)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrTransientIO, err)
	}
	conn.SetReadLimit(maxInboundFrame)
	return conn, nil
}

// Subscribe connects to the room relay and calls handler for every event
// until the returned cancel function is called or ctx is done.
func (p *Push) Subscribe(ctx context.Context, code string, handler func(reveal.Event)) (func(), error) {
	p.mu.Lock()
	if _, exists := p.subs[code]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: already subscribed to room %s", model.ErrConflict, code)
	}
	sub := &subscription{}
	p.subs[code] = sub
	p.mu.Unlock()

	conn, err := p.dial(ctx, code)
	if err != nil {
		p.drop(code, sub)
		return nil, err
	}
	sub.set(conn)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.readLoop(subCtx, code, sub, conn, handler)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.close()
			<-done
			p.drop(code, sub)
		})
	}, nil
}

func (p *Push) drop(code string, sub *subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs[code] == sub {
		delete(p.subs, code)
	}
}

func (p *Push) readLoop(ctx context.Context, code string, sub *subscription, conn *websocket.Conn, handler func(reveal.Event)) {
	delay := minRedialDelay
	for {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				break
			}
			delay = minRedialDelay
			ev, err := reveal.Decode(frame)
			if err != nil {
				p.Logger.Debug(fmt.Sprintf("Ignoring bad frame from room %s: %v", code, err))
				continue
			}
			handler(ev)
		}
		if ctx.Err() != nil {
			return
		}
		sub.close()
		p.Logger.Info(fmt.Sprintf("Relay connection for room %s dropped, redialling", code))
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, maxRedialDelay)
			next, err := p.dial(ctx, code)
			if err == nil {
				conn = next
				sub.set(conn)
				if ctx.Err() != nil {
					sub.close()
					return
				}
				break
			}
			if errors.Is(err, model.ErrNotFound) {
				p.Logger.Error(fmt.Sprintf("Room %s is gone, stopping relay", code), err)
				return
			}
			p.Logger.Debug(fmt.Sprintf("Redial of room %s failed: %v", code, err))
		}
	}
}

func (p *Push) Publish(ctx context.Context, code string, ev reveal.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := reveal.Encode(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	sub, exists := p.subs[code]
	p.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: not subscribed to room %s", model.ErrTransientIO, code)
	}
	return sub.write(frame)
}
