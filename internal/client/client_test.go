package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anchal00/morningstar/internal/db"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/anchal00/morningstar/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	ctx    context.Context
	rs     *server.RoomServer
	server *httptest.Server
	client *Client
}

func (suite *ClientTestSuite) SetupTest() {
	suite.ctx = context.Background()
	repo, err := db.SetupDB(":memory:")
	suite.Require().Nil(err)
	suite.rs = server.New(repo, server.NewConnectionStore(logger.Discard()), server.Options{Admin: true})
	suite.rs.Logger = logger.Discard()
	suite.server = httptest.NewServer(suite.rs.Router)
	suite.client = suite.newClient()
}

func (suite *ClientTestSuite) TearDownTest() {
	suite.server.Close()
	suite.rs.Shutdown()
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) newClient() *Client {
	c, err := New(suite.server.URL + "/")
	suite.Require().Nil(err)
	c.Logger = logger.Discard()
	return c
}

func (suite *ClientTestSuite) TestRoomLifecycle() {
	room, err := suite.client.CreateRoom(suite.ctx, "", "h1", "Ana")
	suite.Require().Nil(err)
	suite.Len(room.ID, model.RoomCodeLength)

	_, err = suite.client.CreateRoom(suite.ctx, room.ID, "h2", "Bo")
	suite.ErrorIs(err, model.ErrConflict)

	_, err = suite.client.JoinRoom(suite.ctx, room.ID, "g1", "Ben")
	suite.Nil(err)
	_, err = suite.client.JoinRoom(suite.ctx, room.ID, "g2", "Cy")
	suite.ErrorIs(err, model.ErrConflict)
	got, err := suite.client.GetRoom(suite.ctx, room.ID)
	suite.Nil(err)
	suite.Equal("g1", *got.GuestID, "A rejected join leaves the guest in place")

	_, err = suite.client.GetRoom(suite.ctx, "NOPE00")
	suite.ErrorIs(err, model.ErrNotFound)

	suite.Nil(suite.client.SubmitAnswer(suite.ctx, room.ID, "h1", "3", "blue"))
	suite.ErrorIs(suite.client.SubmitAnswer(suite.ctx, room.ID, "h1", "3", " "), model.ErrValidation)
	answers, err := suite.client.FetchAnswers(suite.ctx, room.ID)
	suite.Nil(err)
	suite.Len(answers, 1)

	rooms, err := suite.client.ListRoomsForUser(suite.ctx, "g1")
	suite.Nil(err)
	suite.Len(rooms, 1)

	png, err := suite.client.QRCode(suite.ctx, room.ID)
	suite.Nil(err)
	suite.NotEmpty(png)
}

func (suite *ClientTestSuite) TestQuestionsAndAdmin() {
	q, err := suite.client.AddQuestion(suite.ctx, "Tea or coffee?", "h1")
	suite.Require().Nil(err)
	questions, err := suite.client.ListQuestions(suite.ctx)
	suite.Nil(err)
	suite.Len(questions, 35)

	suite.Nil(suite.client.DeleteQuestion(suite.ctx, q.ID))
	suite.ErrorIs(suite.client.DeleteQuestion(suite.ctx, q.ID), model.ErrNotFound)

	_, err = suite.client.CreateRoom(suite.ctx, "AB12CD", "h1", "Ana")
	suite.Require().Nil(err)
	all, err := suite.client.ListAllRooms(suite.ctx)
	suite.Nil(err)
	suite.Len(all, 1)

	purged, err := suite.client.PurgeRooms(suite.ctx, time.Hour)
	suite.Nil(err)
	suite.Equal(int64(0), purged, "Fresh rooms survive a purge")
	suite.Nil(suite.client.DeleteRoom(suite.ctx, "AB12CD"))
	suite.Nil(suite.client.Health(suite.ctx))
}

func (suite *ClientTestSuite) engine(userID string, role model.PlayerRole) *reveal.Engine {
	c := suite.newClient()
	push := NewPush(c)
	push.Logger = logger.Discard()
	e, err := reveal.New(reveal.Config{
		RoomID:      "AB12CD",
		UserID:      userID,
		Role:        role,
		Backend:     c,
		Broadcaster: push,
		Logger:      logger.Discard(),
	})
	suite.Require().Nil(err)
	suite.Require().Nil(e.Start(suite.ctx, reveal.PushSource{Broadcaster: push, Logger: logger.Discard()}))
	suite.Require().Eventually(func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		return push.subs["AB12CD"] != nil
	}, 2*time.Second, 10*time.Millisecond)
	return e
}

func (suite *ClientTestSuite) TestRevealOverServer() {
	_, err := suite.client.CreateRoom(suite.ctx, "AB12CD", "h1", "Ana")
	suite.Require().Nil(err)
	_, err = suite.client.JoinRoom(suite.ctx, "AB12CD", "g1", "Ben")
	suite.Require().Nil(err)

	host := suite.engine("h1", model.RoleHost)
	defer host.Close()
	guest := suite.engine("g1", model.RoleGuest)
	defer guest.Close()
	time.Sleep(50 * time.Millisecond)

	suite.Require().Nil(host.Submit(suite.ctx, "3", "blue"))
	suite.Eventually(func() bool {
		e, _ := guest.View().Entry("3")
		return e.PartnerAnswered && !e.Revealed
	}, 2*time.Second, 10*time.Millisecond, "Guest learns over the relay that the host answered")

	suite.Require().Nil(guest.Submit(suite.ctx, "3", "blue"))
	for _, side := range []*reveal.Engine{host, guest} {
		v, err := side.Refresh(suite.ctx)
		suite.Require().Nil(err)
		e, _ := v.Entry("3")
		suite.True(e.Revealed)
		suite.Equal("blue", *e.Partner)
	}
}

func TestNewRejectsBadURLs(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, model.ErrNotConfigured)
	_, err = New("ftp://example.com")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUnreachableServerIsTransient(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	c, err := New(url)
	require.Nil(t, err)
	c.Logger = logger.Discard()
	_, err = c.GetRoom(context.Background(), "AB12CD")
	assert.ErrorIs(t, err, model.ErrTransientIO)
}
