package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anchal00/morningstar/internal/db"
	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/parser"
	"github.com/anchal00/morningstar/internal/reveal"
	"github.com/anchal00/morningstar/internal/utils"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	HTTP_API_V1_PREFIX = "/api/v1"
	// Attempts at finding a free generated room code before giving up.
	maxCodeAttempts = 8
	maxBodySize     = 64 * 1024
)

type Options struct {
	Bind      string
	Port      int
	DBPath    string
	Admin     bool
	PublicURL string
	// PurgeAfter is the default age for POST /admin/purge.
	PurgeAfter time.Duration
}

type RoomServer struct {
	Db          db.Repository
	Logger      logger.Logger
	Router      *mux.Router
	ConnStore   ConnectionStore
	opts        Options
	wssUpgrader websocket.Upgrader
	newCode     func() string
	now         func() time.Time
}

func NewRoomServer(opts Options) (*RoomServer, error) {
	repo, err := db.SetupDB(opts.DBPath)
	if err != nil {
		return nil, err
	}
	return New(repo, NewConnectionStore(logger.New("relay")), opts), nil
}

// New wires the routes over an already connected repository.
func New(repo db.Repository, conns ConnectionStore, opts Options) *RoomServer {
	if opts.PurgeAfter <= 0 {
		opts.PurgeAfter = 24 * time.Hour
	}
	s := &RoomServer{
		Db:        repo,
		Logger:    logger.New("api_server"),
		Router:    mux.NewRouter(),
		ConnStore: conns,
		opts:      opts,
		wssUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		newCode: func() string { return utils.GetRandomRoomCode(model.RoomCodeLength) },
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.Router.HandleFunc("/healthz", s.Health).Methods("GET")

	api := s.Router.PathPrefix(HTTP_API_V1_PREFIX).Subrouter()
	api.HandleFunc("/rooms", s.CreateRoom).Methods("POST")
	api.HandleFunc("/rooms/{code}", s.GetRoom).Methods("GET")
	api.HandleFunc("/rooms/{code}/join", s.JoinRoom).Methods("POST")
	api.HandleFunc("/rooms/{code}/answers", s.GetAnswers).Methods("GET")
	api.HandleFunc("/rooms/{code}/answers/{questionId}", s.SubmitAnswer).Methods("PUT")
	api.HandleFunc("/rooms/{code}/reveal", s.Reveal).Methods("GET")
	api.HandleFunc("/rooms/{code}/qr", s.RoomQR).Methods("GET")
	api.HandleFunc("/rooms/{code}/ws", s.Relay)
	api.HandleFunc("/users/{userId}/rooms", s.UserRooms).Methods("GET")
	api.HandleFunc("/questions", s.ListQuestions).Methods("GET")
	api.HandleFunc("/questions", s.AddQuestion).Methods("POST")
	if opts.Admin {
		admin := api.PathPrefix("/admin").Subrouter()
		admin.HandleFunc("/rooms", s.AdminListRooms).Methods("GET")
		admin.HandleFunc("/rooms/{code}", s.AdminDeleteRoom).Methods("DELETE")
		admin.HandleFunc("/purge", s.AdminPurge).Methods("POST")
		admin.HandleFunc("/questions/{id}", s.AdminDeleteQuestion).Methods("DELETE")
	}
	return s
}

func (s *RoomServer) Addr() string {
	return net.JoinHostPort(s.opts.Bind, fmt.Sprint(s.opts.Port))
}

// Run serves until ctx is cancelled and then shuts down.
func (s *RoomServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		s.Logger.Info(fmt.Sprintf("Starting server on %s", srv.Addr))
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		s.Logger.Error(fmt.Sprintf("Failed to start server on %s", srv.Addr), err)
		s.Shutdown()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.ConnStore.CloseAll()
	err := srv.Shutdown(shutdownCtx)
	s.Shutdown()
	return err
}

func (s *RoomServer) Shutdown() {
	s.Logger.Info("Shutting down server....")
	s.ConnStore.CloseAll()
	s.Db.CloseConnection()
	s.Logger.Info("Goodbye !")
}

func (s *RoomServer) ReadRequestBody(request *http.Request) ([]byte, error) {
	bytesRead, err := io.ReadAll(io.LimitReader(request.Body, maxBodySize))
	if err != nil {
		s.Logger.Error("Failed to read request body", err)
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return bytesRead, nil
}

func (s *RoomServer) sendJSON(writer http.ResponseWriter, body any, status int) {
	respBody, err := json.Marshal(body)
	if err != nil {
		s.Logger.Error("Failed to encode response", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if _, err := writer.Write(respBody); err != nil {
		s.Logger.Error("Failed to write response body", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *RoomServer) sendError(writer http.ResponseWriter, msg string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error(msg, err)
		s.sendJSON(writer, parser.ErrorResponse{Error: "internal error"}, status)
		return
	}
	s.Logger.Debug(fmt.Sprintf("%s: %v", msg, err))
	s.sendJSON(writer, parser.ErrorResponse{Error: err.Error()}, status)
}

func roomCode(request *http.Request) (string, error) {
	return model.NormalizeRoomCode(mux.Vars(request)["code"])
}

func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", model.ErrValidation, field)
	}
	return value, nil
}

func (s *RoomServer) Health(writer http.ResponseWriter, request *http.Request) {
	s.sendJSON(writer, parser.HealthResponse{Status: "ok"}, http.StatusOK)
}

func (s *RoomServer) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	data, err := s.ReadRequestBody(request)
	if err != nil {
		s.sendError(writer, "Bad create room request", err)
		return
	}
	req, err := parser.ParseCreateRoomRequest(data)
	if err != nil {
		s.sendError(writer, "Failed to parse create room request", err)
		return
	}
	hostID, err := required("host_id", req.HostID)
	if err != nil {
		s.sendError(writer, "Bad create room request", err)
		return
	}
	room := model.Room{HostID: hostID, HostName: strings.TrimSpace(req.HostName), CreatedAt: s.now()}

	if req.ID != "" {
		if room.ID, err = model.NormalizeRoomCode(req.ID); err != nil {
			s.sendError(writer, "Bad create room request", err)
			return
		}
		created, err := s.Db.CreateRoom(request.Context(), room)
		if err != nil {
			s.sendError(writer, "CreateRoom request failed", err)
			return
		}
		s.Logger.Info(fmt.Sprintf("Room %s created", created.ID))
		s.sendJSON(writer, created, http.StatusCreated)
		return
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room.ID = s.newCode()
		created, err := s.Db.CreateRoom(request.Context(), room)
		if errors.Is(err, model.ErrConflict) {
			s.Logger.Debug(fmt.Sprintf("Room code %s taken, retrying", room.ID))
			continue
		}
		if err != nil {
			s.sendError(writer, "CreateRoom request failed", err)
			return
		}
		s.Logger.Info(fmt.Sprintf("Room %s created", created.ID))
		s.sendJSON(writer, created, http.StatusCreated)
		return
	}
	s.sendError(writer, "CreateRoom request failed", errors.New("no free room code"))
}

func (s *RoomServer) GetRoom(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	room, err := s.Db.GetRoom(request.Context(), code)
	if err != nil {
		s.sendError(writer, fmt.Sprintf("GetRoom %s failed", code), err)
		return
	}
	s.sendJSON(writer, room, http.StatusOK)
}

func (s *RoomServer) JoinRoom(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	data, err := s.ReadRequestBody(request)
	if err != nil {
		s.sendError(writer, "Bad join room request", err)
		return
	}
	req, err := parser.ParseJoinRoomRequest(data)
	if err != nil {
		s.sendError(writer, "Failed to parse join room request", err)
		return
	}
	guestID, err := required("guest_id", req.GuestID)
	if err != nil {
		s.sendError(writer, "Bad join room request", err)
		return
	}
	s.Logger.Info(fmt.Sprintf("Guest is joining room %s", code))
	room, err := s.Db.JoinRoom(request.Context(), code, guestID, strings.TrimSpace(req.GuestName))
	if err != nil {
		s.sendError(writer, fmt.Sprintf("JoinRoom %s failed", code), err)
		return
	}
	s.sendJSON(writer, room, http.StatusOK)
}

func (s *RoomServer) GetAnswers(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	if _, err := s.Db.GetRoom(request.Context(), code); err != nil {
		s.sendError(writer, fmt.Sprintf("GetAnswers %s failed", code), err)
		return
	}
	answers, err := s.Db.GetAnswers(request.Context(), code)
	if err != nil {
		s.sendError(writer, fmt.Sprintf("GetAnswers %s failed", code), err)
		return
	}
	s.sendJSON(writer, answers, http.StatusOK)
}

// SubmitAnswer upserts one answer. Only the host or the joined guest of the
// room may write.
func (s *RoomServer) SubmitAnswer(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	questionID, err := required("question id", mux.Vars(request)["questionId"])
	if err != nil {
		s.sendError(writer, "Bad answer request", err)
		return
	}
	data, err := s.ReadRequestBody(request)
	if err != nil {
		s.sendError(writer, "Bad answer request", err)
		return
	}
	req, err := parser.ParseSubmitAnswerRequest(data)
	if err != nil {
		s.sendError(writer, "Failed to parse answer request", err)
		return
	}
	answer := model.Answer{RoomID: code, QuestionID: questionID, CreatedAt: s.now()}
	if answer.UserID, err = required("user_id", req.UserID); err != nil {
		s.sendError(writer, "Bad answer request", err)
		return
	}
	if answer.Text, err = model.NormalizeAnswer(req.Text); err != nil {
		s.sendError(writer, "Bad answer request", err)
		return
	}
	room, err := s.Db.GetRoom(request.Context(), code)
	if err != nil {
		s.sendError(writer, fmt.Sprintf("SubmitAnswer %s failed", code), err)
		return
	}
	if _, ok := room.RoleOf(answer.UserID); !ok {
		s.sendError(writer, "Rejected answer", fmt.Errorf("%w: user is not a member of room %s", model.ErrValidation, code))
		return
	}
	if err := s.Db.UpsertAnswer(request.Context(), answer); err != nil {
		s.sendError(writer, fmt.Sprintf("SubmitAnswer %s failed", code), err)
		return
	}
	s.sendJSON(writer, answer, http.StatusOK)
}

// Reveal returns the room as user_id may see it: the partner's answer stays
// hidden until both have answered.
func (s *RoomServer) Reveal(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	userID, err := required("user_id", request.URL.Query().Get("user_id"))
	if err != nil {
		s.sendError(writer, "Bad reveal request", err)
		return
	}
	ctx := request.Context()
	room, err := s.Db.GetRoom(ctx, code)
	if err != nil {
		s.sendError(writer, fmt.Sprintf("Reveal %s failed", code), err)
		return
	}
	role, ok := room.RoleOf(userID)
	if !ok {
		s.sendError(writer, "Rejected reveal", fmt.Errorf("%w: user is not a member of room %s", model.ErrValidation, code))
		return
	}
	rows, err := s.Db.GetAnswers(ctx, code)
	if err != nil {
		s.sendError(writer, fmt.Sprintf("Reveal %s failed", code), err)
		return
	}
	questions, err := s.Db.ListQuestions(ctx)
	if err != nil {
		s.sendError(writer, "Failed to list questions", err)
		return
	}
	view := reveal.BuildView(code, role, questions, reveal.FromRows(rows, room, userID, role))
	view.PartnerOnline = role == model.RoleGuest || room.HasGuest()
	s.sendJSON(writer, view, http.StatusOK)
}

func (s *RoomServer) UserRooms(writer http.ResponseWriter, request *http.Request) {
	userID, err := required("user id", mux.Vars(request)["userId"])
	if err != nil {
		s.sendError(writer, "Bad rooms request", err)
		return
	}
	rooms, err := s.Db.ListRoomsForUser(request.Context(), userID)
	if err != nil {
		s.sendError(writer, "ListRoomsForUser failed", err)
		return
	}
	s.sendJSON(writer, rooms, http.StatusOK)
}

func (s *RoomServer) ListQuestions(writer http.ResponseWriter, request *http.Request) {
	questions, err := s.Db.ListQuestions(request.Context())
	if err != nil {
		s.sendError(writer, "ListQuestions failed", err)
		return
	}
	s.sendJSON(writer, questions, http.StatusOK)
}

func (s *RoomServer) AddQuestion(writer http.ResponseWriter, request *http.Request) {
	data, err := s.ReadRequestBody(request)
	if err != nil {
		s.sendError(writer, "Bad question request", err)
		return
	}
	req, err := parser.ParseAddQuestionRequest(data)
	if err != nil {
		s.sendError(writer, "Failed to parse question request", err)
		return
	}
	q := model.Question{ID: model.NewCustomQuestionID(), CreatedAt: s.now()}
	if q.Text, err = model.NormalizeQuestion(req.Text); err != nil {
		s.sendError(writer, "Bad question request", err)
		return
	}
	if by := strings.TrimSpace(req.SubmittedBy); by != "" {
		q.SubmittedBy = &by
	}
	if err := s.Db.AddQuestion(request.Context(), q); err != nil {
		s.sendError(writer, "AddQuestion failed", err)
		return
	}
	s.Logger.Info(fmt.Sprintf("Question %s added", q.ID))
	s.sendJSON(writer, q, http.StatusCreated)
}

func (s *RoomServer) AdminListRooms(writer http.ResponseWriter, request *http.Request) {
	rooms, err := s.Db.ListRooms(request.Context())
	if err != nil {
		s.sendError(writer, "ListRooms failed", err)
		return
	}
	s.sendJSON(writer, rooms, http.StatusOK)
}

func (s *RoomServer) AdminDeleteRoom(writer http.ResponseWriter, request *http.Request) {
	code, err := roomCode(request)
	if err != nil {
		s.sendError(writer, "Bad room code", err)
		return
	}
	if err := s.Db.DeleteRoom(request.Context(), code); err != nil {
		s.sendError(writer, fmt.Sprintf("DeleteRoom %s failed", code), err)
		return
	}
	s.Logger.Info(fmt.Sprintf("Room %s deleted", code))
	writer.WriteHeader(http.StatusNoContent)
}

func (s *RoomServer) AdminPurge(writer http.ResponseWriter, request *http.Request) {
	olderThan := s.opts.PurgeAfter
	if raw := request.URL.Query().Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			s.sendError(writer, "Bad purge request", fmt.Errorf("%w: older_than must be a positive duration", model.ErrValidation))
			return
		}
		olderThan = d
	}
	purged, err := s.Db.PurgeRoomsBefore(request.Context(), s.now().Add(-olderThan))
	if err != nil {
		s.sendError(writer, "PurgeRooms failed", err)
		return
	}
	s.Logger.Info(fmt.Sprintf("Purged %d rooms older than %s", purged, olderThan))
	s.sendJSON(writer, parser.PurgeResponse{Purged: purged}, http.StatusOK)
}

func (s *RoomServer) AdminDeleteQuestion(writer http.ResponseWriter, request *http.Request) {
	id := mux.Vars(request)["id"]
	if err := s.Db.DeleteQuestion(request.Context(), id); err != nil {
		s.sendError(writer, fmt.Sprintf("DeleteQuestion %s failed", id), err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}
