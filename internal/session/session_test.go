package session

import (
	"context"
	"testing"
	"time"

	"github.com/anchal00/morningstar/internal/identity"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/anchal00/morningstar/internal/state"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite
	ctx     context.Context
	backend *state.Backend
	bus     *reveal.LocalBus
}

func (suite *SessionTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.backend = state.NewBackend(state.NewInMemoryStore())
	suite.bus = reveal.NewLocalBus()
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

// device builds a manager with its own identity and cache but the shared
// backend and bus, like a second browser on the same machine.
func (suite *SessionTestSuite) device(name string) *Manager {
	kv := state.NewInMemoryStore()
	ids := identity.NewStore(kv)
	_, err := ids.SetName(name)
	suite.Require().Nil(err)
	return &Manager{
		Identity:     ids,
		Backend:      suite.backend,
		Broadcaster:  suite.bus,
		Cache:        state.NewCache(kv),
		Logger:       logger.Discard(),
		PollInterval: time.Hour,
	}
}

func (suite *SessionTestSuite) TestCreateAndJoin() {
	ana, ben, cy := suite.device("Ana"), suite.device("Ben"), suite.device("Cy")

	host, err := ana.Create(suite.ctx)
	suite.Require().Nil(err)
	defer host.Leave()
	suite.Equal(model.RoleHost, host.Role)
	suite.Len(host.Room.ID, model.RoomCodeLength)

	guest, err := ben.Join(suite.ctx, " "+host.Room.ID+" ")
	suite.Require().Nil(err)
	defer guest.Leave()
	suite.Equal(model.RoleGuest, guest.Role)
	suite.Equal("Ben", *guest.Room.GuestName)

	again, err := ben.Join(suite.ctx, host.Room.ID)
	suite.Require().Nil(err, "Rejoining as the same guest succeeds")
	suite.Nil(again.Leave())

	self, err := ana.Join(suite.ctx, host.Room.ID)
	suite.Require().Nil(err)
	suite.Equal(model.RoleHost, self.Role, "The host rejoining keeps the host role")
	suite.Nil(self.Leave())

	_, err = cy.Join(suite.ctx, host.Room.ID)
	suite.ErrorIs(err, model.ErrConflict)
	room, err := suite.backend.GetRoom(suite.ctx, host.Room.ID)
	suite.Nil(err)
	suite.Equal(guest.Me.ID, *room.GuestID)

	_, err = cy.Join(suite.ctx, "NOPE00")
	suite.ErrorIs(err, model.ErrNotFound)
}

func (suite *SessionTestSuite) TestJoinNeedsName() {
	m := suite.device("Ana")
	m.Identity = identity.NewStore(state.NewInMemoryStore())
	_, err := m.Create(suite.ctx)
	suite.ErrorIs(err, model.ErrValidation)
}

func (suite *SessionTestSuite) TestAnswersSyncBetweenDevices() {
	ana, ben := suite.device("Ana"), suite.device("Ben")
	host, err := ana.Create(suite.ctx)
	suite.Require().Nil(err)
	defer host.Leave()
	guest, err := ben.Join(suite.ctx, host.Room.ID)
	suite.Require().Nil(err)
	defer guest.Leave()
	suite.Eventually(func() bool { return suite.bus.Subscribers(host.Room.ID) == 2 }, time.Second, 5*time.Millisecond)

	suite.Require().Nil(host.Engine.Submit(suite.ctx, "3", "blue"))
	suite.Require().Nil(guest.Engine.Submit(suite.ctx, "3", "blue"))
	suite.Eventually(func() bool {
		h, _ := host.Engine.View().Entry("3")
		g, _ := guest.Engine.View().Entry("3")
		return h.Revealed && g.Revealed
	}, time.Second, 5*time.Millisecond)

	cached, err := ana.Cache.LoadAnswers(host.Room.ID)
	suite.Nil(err)
	suite.True(cached["3"].Revealed(), "The merged state is cached for the next launch")
	role, ok, err := ben.Cache.LoadRole(host.Room.ID)
	suite.Nil(err)
	suite.True(ok)
	suite.Equal(model.RoleGuest, role)
}

func (suite *SessionTestSuite) TestRoomsAndResume() {
	ana := suite.device("Ana")
	first, err := ana.Create(suite.ctx)
	suite.Require().Nil(err)
	suite.Nil(first.Leave())

	rooms, err := ana.Rooms(suite.ctx)
	suite.Nil(err)
	suite.Require().Len(rooms, 1)

	resumed, err := ana.Resume(suite.ctx, rooms[0])
	suite.Require().Nil(err)
	defer resumed.Leave()
	suite.Equal(model.RoleHost, resumed.Role)

	_, err = suite.device("Cy").Resume(suite.ctx, rooms[0])
	suite.ErrorIs(err, model.ErrValidation)
}

func (suite *SessionTestSuite) TestLeaveStopsEngine() {
	s, err := suite.device("Ana").Create(suite.ctx)
	suite.Require().Nil(err)
	suite.Nil(s.Leave())
	suite.ErrorIs(s.Engine.Submit(suite.ctx, "1", "late"), reveal.ErrClosed)
	suite.Eventually(func() bool { return suite.bus.Subscribers(s.Room.ID) == 0 }, time.Second, 5*time.Millisecond)
}
