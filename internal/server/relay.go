package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/gorilla/websocket"
)

// Relay upgrades to a websocket and forwards every valid event frame to the
// other connections of the same room. The server keeps no state from it.
func (s *RoomServer) Relay(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	if _, err := s.Db.GetRoom(request.Context(), code); err != nil {
		s.sendError(writer, fmt.Sprintf("Relay %s failed", code), err)
		return
	}
	wssConn, err := s.wssUpgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.Logger.Error("Failed to upgrade to WS connection", err)
		return
	}
	peer := s.ConnStore.AddConnection(code, wssConn)
	go peer.writePump()
	defer s.ConnStore.RemoveConnection(peer)
	s.Logger.Debug(fmt.Sprintf("Peer connected to room %s (%d online)", code, s.ConnStore.Count(code)))

	wssConn.SetReadLimit(maxFrameSize)
	wssConn.SetReadDeadline(time.Now().Add(pongWait))
	wssConn.SetPongHandler(func(string) error {
		return wssConn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		msgType, frame, err := wssConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Error(fmt.Sprintf("Peer in room %s disconnected", code), err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ev, err := reveal.Decode(frame)
		if err != nil {
			s.Logger.Debug(fmt.Sprintf("Dropping bad frame in room %s: %v", code, err))
			continue
		}
		n := s.ConnStore.Broadcast(peer, frame)
		s.Logger.Debug(fmt.Sprintf("Relayed %s in room %s to %d peers", ev.Kind(), code, n))
	}
}
