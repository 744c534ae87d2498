package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 320
	maxQRSize     = 1024
)

// roomLink is what the QR code encodes: the public join link when one is
// configured, otherwise a link derived from the request.
func (s *RoomServer) roomLink(request *http.Request, code string) string {
	base := strings.TrimRight(s.opts.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if request.TLS != nil {
			scheme = "https"
		}
		if proto := request.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + request.Host
	}
	return fmt.Sprintf("%s/#/room/%s", base, code)
}

func (s *RoomServer) RoomQR(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	if _, err := s.Db.GetRoom(request.Context(), code); err != nil {
		s.sendError(writer, fmt.Sprintf("RoomQR %s failed", code), err)
		return
	}
	size := defaultQRSize
	if raw := request.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = min(n, maxQRSize)
		}
	}
	png, err := qrcode.Encode(s.roomLink(request, code), qrcode.Medium, size)
	if err != nil {
		s.sendError(writer, "QR generation failed", err)
		return
	}
	writer.Header().Set("Content-Type", "image/png")
	if _, err := writer.Write(png); err != nil {
		s.Logger.Error("Failed to write QR code", err)
	}
}
