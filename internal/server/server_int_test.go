package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anchal00/morningstar/internal/db"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/parser"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *httptest.Server {
	repo, err := db.SetupDB(":memory:")
	require.Nil(t, err, "Failed to set up in-memory database")
	rs := New(repo, NewConnectionStore(logger.Discard()), Options{Admin: true})
	rs.Logger = logger.Discard()
	server := httptest.NewServer(rs.Router)
	t.Cleanup(func() {
		server.Close()
		rs.Shutdown()
	})
	return server
}

func apiCall(t *testing.T, server *httptest.Server, method, path string, body any) *http.Response {
	data, err := json.Marshal(body)
	require.Nil(t, err)
	req, err := http.NewRequest(method, server.URL+HTTP_API_V1_PREFIX+path, bytes.NewBuffer(data))
	require.Nil(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.Nil(t, err, "%s request to endpoint %s failed", method, path)
	return resp
}

func TestRoomFlow(t *testing.T) {
	server := setup(t)

	resp := apiCall(t, server, "POST", "/rooms", parser.CreateRoomRequest{HostID: "h1", HostName: "Ana"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "Failed to create new room")
	room := model.Room{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&room))
	resp.Body.Close()
	assert.Len(t, room.ID, model.RoomCodeLength)

	resp = apiCall(t, server, "PUT", fmt.Sprintf("/rooms/%s/answers/3", room.ID), parser.SubmitAnswerRequest{UserID: "h1", Text: "blue"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = apiCall(t, server, "POST", fmt.Sprintf("/rooms/%s/join", room.ID), parser.JoinRoomRequest{GuestID: "g1", GuestName: "Ben"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "Failed to join the room")
	resp.Body.Close()

	resp = apiCall(t, server, "POST", fmt.Sprintf("/rooms/%s/join", room.ID), parser.JoinRoomRequest{GuestID: "g2", GuestName: "Cy"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "The room is full, expected the join request to be rejected")
	resp.Body.Close()

	resp = apiCall(t, server, "PUT", fmt.Sprintf("/rooms/%s/answers/3", room.ID), parser.SubmitAnswerRequest{UserID: "g1", Text: "blue"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = apiCall(t, server, "GET", fmt.Sprintf("/rooms/%s/reveal?user_id=g1", room.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := reveal.View{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	entry, ok := view.Entry("3")
	require.True(t, ok)
	assert.True(t, entry.Revealed)
	assert.Equal(t, "blue", *entry.Partner)

	resp = apiCall(t, server, "GET", fmt.Sprintf("/rooms/%s/qr", room.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	resp = apiCall(t, server, "DELETE", "/admin/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	resp = apiCall(t, server, "GET", "/rooms/"+room.ID+"/answers", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func dial(t *testing.T, server *httptest.Server, code string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + HTTP_API_V1_PREFIX + "/rooms/" + code + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Nil(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRelayForwardsToOtherPeersOnly(t *testing.T) {
	server := setup(t)
	resp := apiCall(t, server, "POST", "/rooms", parser.CreateRoomRequest{ID: "AB12CD", HostID: "h1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	host := dial(t, server, "AB12CD")
	guest := dial(t, server, "AB12CD")
	time.Sleep(50 * time.Millisecond)

	garbage := []byte(`{"type":"typing","payload":{}}`)
	require.Nil(t, host.WriteMessage(websocket.TextMessage, garbage))
	frame, err := reveal.Encode(reveal.SubmitAnswer{QuestionID: "3", Role: model.RoleHost, Answer: "blue"})
	require.Nil(t, err)
	require.Nil(t, host.WriteMessage(websocket.TextMessage, frame))

	guest.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := guest.ReadMessage()
	require.Nil(t, err)
	assert.Equal(t, frame, got, "Unknown event types are dropped and valid ones relayed as is")

	host.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = host.ReadMessage()
	assert.NotNil(t, err, "The sender must not receive its own frame")
}

func TestRelayRejectsUnknownRoom(t *testing.T) {
	server := setup(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + HTTP_API_V1_PREFIX + "/rooms/NOPE00/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NotNil(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
