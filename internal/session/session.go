package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anchal00/morningstar/internal/identity"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/anchal00/morningstar/internal/state"
	"github.com/anchal00/morningstar/internal/utils"
)

const maxCreateAttempts = 8

// Manager creates and resumes sessions for the identity of this device.
type Manager struct {
	Identity *identity.Store
	Backend  reveal.Backend
	// Broadcaster is optional; without it sessions only poll.
	Broadcaster  reveal.Broadcaster
	Cache        *state.Cache
	Logger       logger.Logger
	PollInterval time.Duration
}

// Session is one user's live view of one room. Leave stops it.
type Session struct {
	Room   model.Room
	Me     identity.Identity
	Role   model.PlayerRole
	Engine *reveal.Engine
}

func (m *Manager) log() logger.Logger {
	if m.Logger == nil {
		return logger.Discard()
	}
	return m.Logger
}

func (m *Manager) me() (identity.Identity, error) {
	if m.Identity == nil {
		return identity.Identity{}, model.ErrNotConfigured
	}
	me, err := m.Identity.Current()
	if err != nil {
		return identity.Identity{}, err
	}
	if me.Name == "" {
		return identity.Identity{}, fmt.Errorf("%w: set a display name first", model.ErrValidation)
	}
	return me, nil
}

// Create makes a new room hosted by this device.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	me, err := m.me()
	if err != nil {
		return nil, err
	}
	var room *model.Room
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		room, err = m.Backend.CreateRoom(ctx, utils.GetRandomRoomCode(model.RoomCodeLength), me.ID, me.Name)
		if !errors.Is(err, model.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	m.log().Info(fmt.Sprintf("Created room %s", room.ID))
	return m.start(ctx, *room, me, model.RoleHost)
}

// Join enters the room as guest, or as host when this device created it.
func (m *Manager) Join(ctx context.Context, code string) (*Session, error) {
	code, err := model.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	me, err := m.me()
	if err != nil {
		return nil, err
	}
	room, err := m.Backend.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.HostID == me.ID {
		return m.start(ctx, *room, me, model.RoleHost)
	}
	if room.HasGuest() && *room.GuestID != me.ID {
		return nil, fmt.Errorf("%w: room %s is full", model.ErrConflict, code)
	}
	if !room.HasGuest() {
		if room, err = m.Backend.JoinRoom(ctx, code, me.ID, me.Name); err != nil {
			return nil, err
		}
	}
	m.log().Info(fmt.Sprintf("Joined room %s as guest", code))
	return m.start(ctx, *room, me, model.RoleGuest)
}

// Resume re-enters a room from the room list without joining again.
func (m *Manager) Resume(ctx context.Context, room model.Room) (*Session, error) {
	me, err := m.Identity.Current()
	if err != nil {
		return nil, err
	}
	role, ok := room.RoleOf(me.ID)
	if !ok {
		return nil, fmt.Errorf("%w: not a member of room %s", model.ErrValidation, room.ID)
	}
	return m.start(ctx, room, me, role)
}

// Rooms lists the rooms this device hosts or joined, newest first.
func (m *Manager) Rooms(ctx context.Context) ([]model.Room, error) {
	me, err := m.Identity.Current()
	if err != nil {
		return nil, err
	}
	return m.Backend.ListRoomsForUser(ctx, me.ID)
}

func (m *Manager) start(ctx context.Context, room model.Room, me identity.Identity, role model.PlayerRole) (*Session, error) {
	cfg := reveal.Config{
		RoomID:      room.ID,
		UserID:      me.ID,
		UserName:    me.Name,
		Role:        role,
		Backend:     m.Backend,
		Broadcaster: m.Broadcaster,
		Logger:      m.log(),
	}
	if m.Cache != nil {
		cfg.Cache = m.Cache
		if err := m.Cache.SaveRole(room.ID, role); err != nil {
			m.log().Error(fmt.Sprintf("Failed to remember role for room %s", room.ID), err)
		}
	}
	engine, err := reveal.New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := engine.Refresh(ctx); err != nil {
		m.log().Error(fmt.Sprintf("Initial refresh of room %s failed", room.ID), err)
	}
	sources := []reveal.ChangeSource{
		reveal.PollSource{Interval: m.PollInterval, Logger: m.log()},
	}
	if m.Broadcaster != nil {
		sources = append(sources, reveal.PushSource{Broadcaster: m.Broadcaster, Logger: m.log()})
	}
	if err := engine.Start(ctx, sources...); err != nil {
		return nil, err
	}
	return &Session{Room: room, Me: me, Role: role, Engine: engine}, nil
}

// Leave stops all background sync of the session.
func (s *Session) Leave() error {
	return s.Engine.Close()
}
