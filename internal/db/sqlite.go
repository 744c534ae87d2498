package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var schema = `CREATE TABLE IF NOT EXISTS rooms (
  id varchar(16) PRIMARY KEY,
  host_id varchar NOT NULL,
  host_name varchar DEFAULT '' NOT NULL,
  guest_id varchar,
  guest_name varchar,
  created_at TIMESTAMP NOT NULL,

  CONSTRAINT non_empty_host CHECK (TRIM(host_id) <> '')
);

CREATE INDEX IF NOT EXISTS idx_rooms_host ON rooms(host_id);
CREATE INDEX IF NOT EXISTS idx_rooms_guest ON rooms(guest_id);

CREATE TABLE IF NOT EXISTS answers (
  room_id varchar(16) NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
  user_id varchar NOT NULL,
  question_id varchar NOT NULL,
  answer_text text NOT NULL,
  created_at TIMESTAMP NOT NULL,
  PRIMARY KEY (room_id, user_id, question_id)
);

CREATE TABLE IF NOT EXISTS questions (
  id varchar PRIMARY KEY,
  text text NOT NULL,
  submitted_by varchar,
  created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
  key varchar PRIMARY KEY,
  value varchar NOT NULL
);`

const seededKey = "questions_seeded"

type SqliteStore struct {
	Conn   *sqlx.DB
	Logger logger.Logger
	Now    func() time.Time
}

func (s *SqliteStore) SetupConnection(dsn string) error {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		s.Logger.Error("Database setup failed", err)
		return err
	}
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	s.Conn = db
	if _, err := s.Conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		s.Logger.Error("Failed to enable foreign keys", err)
		return err
	}
	if _, err := s.Conn.Exec(schema); err != nil {
		s.Logger.Error("Failed to apply schema", err)
		return err
	}
	if err := s.seedQuestions(context.Background()); err != nil {
		s.Logger.Error("Failed to seed question pool", err)
		return err
	}
	s.Logger.Info(fmt.Sprintf("Database %s setup successfully", dsn))
	return nil
}

func (s *SqliteStore) CloseConnection() {
	s.Logger.Info("Closing database connection")
	if err := s.Conn.Close(); err != nil {
		s.Logger.Error("Failed to tear down database connection", err)
		return
	}
	s.Logger.Info("Database connection closed successfully")
}

func (s *SqliteStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// seedQuestions inserts the default pool once per database, so admin
// deletions survive restarts.
func (s *SqliteStore) seedQuestions(ctx context.Context) error {
	var seeded int
	err := s.Conn.GetContext(ctx, &seeded, `SELECT COUNT(*) FROM settings WHERE key = ?;`, seededKey)
	if err != nil {
		return err
	}
	if seeded > 0 {
		return nil
	}
	txn, err := s.Conn.Beginx()
	if err != nil {
		return err
	}
	createdAt := s.now()
	for _, q := range model.DefaultQuestions() {
		_, err = txn.ExecContext(ctx, `INSERT OR IGNORE INTO questions(id, text, created_at) VALUES(?, ?, ?);`, q.ID, q.Text, createdAt)
		if err != nil {
			return s.rollback(txn, "SeedQuestions", err)
		}
	}
	if _, err = txn.ExecContext(ctx, `INSERT INTO settings(key, value) VALUES(?, ?);`, seededKey, "1"); err != nil {
		return s.rollback(txn, "SeedQuestions", err)
	}
	if err := txn.Commit(); err != nil {
		s.Logger.Error("Failed to Commit SeedQuestions txn", err)
		return err
	}
	s.Logger.Info("Question pool seeded")
	return nil
}

func (s *SqliteStore) rollback(txn *sqlx.Tx, name string, cause error) error {
	s.Logger.Error(fmt.Sprintf("%s failed", name), cause)
	if errRoll := txn.Rollback(); errRoll != nil {
		s.Logger.Error(fmt.Sprintf("Failed to rollback %s txn", name), errRoll)
		return errRoll
	}
	return cause
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func (s *SqliteStore) CreateRoom(ctx context.Context, room model.Room) (*model.Room, error) {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now()
	}
	room.CreatedAt = room.CreatedAt.UTC()
	sql := `INSERT INTO rooms(id, host_id, host_name, created_at) VALUES(?, ?, ?, ?);`
	_, err := s.Conn.ExecContext(ctx, sql, room.ID, room.HostID, room.HostName, room.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return nil, fmt.Errorf("%w: room %s already exists", model.ErrConflict, room.ID)
		}
		s.Logger.Error("Failed to create room", err)
		return nil, err
	}
	room.GuestID, room.GuestName = nil, nil
	s.Logger.Info(fmt.Sprintf("Room %s created by %s", room.ID, room.HostID))
	return &room, nil
}

func (s *SqliteStore) GetRoom(ctx context.Context, code string) (*model.Room, error) {
	return s.getRoom(ctx, s.Conn, code)
}

func (s *SqliteStore) getRoom(ctx context.Context, q sqlx.QueryerContext, code string) (*model.Room, error) {
	room := &model.Room{}
	err := sqlx.GetContext(ctx, q, room, `SELECT * FROM rooms WHERE id = ?;`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: room %s", model.ErrNotFound, code)
	}
	if err != nil {
		s.Logger.Error("Failed to fetch room", err)
		return nil, err
	}
	return room, nil
}

func (s *SqliteStore) JoinRoom(ctx context.Context, code, guestID, guestName string) (*model.Room, error) {
	txn, err := s.Conn.Beginx()
	if err != nil {
		s.Logger.Error("Failed to join room", err)
		return nil, err
	}
	claimSQL := `UPDATE rooms SET guest_id = ?, guest_name = ? WHERE id = ? AND guest_id IS NULL AND host_id <> ?;`
	res, err := txn.ExecContext(ctx, claimSQL, guestID, guestName, code, guestID)
	if err != nil {
		return nil, s.rollback(txn, "JoinRoom", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return nil, s.rollback(txn, "JoinRoom", err)
	}
	room, err := s.getRoom(ctx, txn, code)
	if err != nil {
		return nil, s.rollback(txn, "JoinRoom", err)
	}
	if claimed == 0 {
		if room.HostID == guestID || !room.HasGuest() || *room.GuestID != guestID {
			return nil, s.rollback(txn, "JoinRoom", fmt.Errorf("%w: room %s is full", model.ErrConflict, code))
		}
	}
	if errCommit := txn.Commit(); errCommit != nil {
		s.Logger.Error("Failed to Commit JoinRoom txn", errCommit)
		return nil, errCommit
	}
	if claimed > 0 {
		s.Logger.Info(fmt.Sprintf("Guest %s joined room %s", guestID, code))
	}
	return room, nil
}

func (s *SqliteStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	rooms := []model.Room{}
	err := s.Conn.SelectContext(ctx, &rooms, `SELECT * FROM rooms ORDER BY created_at DESC;`)
	if err != nil {
		s.Logger.Error("Failed to list rooms", err)
		return nil, err
	}
	return rooms, nil
}

func (s *SqliteStore) ListRoomsForUser(ctx context.Context, userID string) ([]model.Room, error) {
	rooms := []model.Room{}
	sql := `SELECT * FROM rooms WHERE host_id = ? OR guest_id = ? ORDER BY created_at DESC;`
	err := s.Conn.SelectContext(ctx, &rooms, sql, userID, userID)
	if err != nil {
		s.Logger.Error("Failed to list rooms for user", err)
		return nil, err
	}
	return rooms, nil
}

func (s *SqliteStore) DeleteRoom(ctx context.Context, code string) error {
	txn, err := s.Conn.Beginx()
	if err != nil {
		s.Logger.Error("Failed to delete room", err)
		return err
	}
	if _, err = txn.ExecContext(ctx, `DELETE FROM answers WHERE room_id = ?;`, code); err != nil {
		return s.rollback(txn, "DeleteRoom", err)
	}
	res, err := txn.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?;`, code)
	if err != nil {
		return s.rollback(txn, "DeleteRoom", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.rollback(txn, "DeleteRoom", fmt.Errorf("%w: room %s", model.ErrNotFound, code))
	}
	if errCommit := txn.Commit(); errCommit != nil {
		s.Logger.Error("Failed to Commit DeleteRoom txn", errCommit)
		return errCommit
	}
	s.Logger.Info(fmt.Sprintf("Room %s deleted", code))
	return nil
}

func (s *SqliteStore) PurgeRoomsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	txn, err := s.Conn.Beginx()
	if err != nil {
		s.Logger.Error("Failed to purge rooms", err)
		return 0, err
	}
	answersSQL := `DELETE FROM answers WHERE room_id IN (SELECT id FROM rooms WHERE created_at < ?);`
	if _, err = txn.ExecContext(ctx, answersSQL, cutoff); err != nil {
		return 0, s.rollback(txn, "PurgeRooms", err)
	}
	res, err := txn.ExecContext(ctx, `DELETE FROM rooms WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, s.rollback(txn, "PurgeRooms", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, s.rollback(txn, "PurgeRooms", err)
	}
	if errCommit := txn.Commit(); errCommit != nil {
		s.Logger.Error("Failed to Commit PurgeRooms txn", errCommit)
		return 0, errCommit
	}
	s.Logger.Info(fmt.Sprintf("Purged %d rooms created before %s", purged, cutoff.Format(time.RFC3339)))
	return purged, nil
}

func (s *SqliteStore) UpsertAnswer(ctx context.Context, answer model.Answer) error {
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = s.now()
	}
	sql := `INSERT INTO answers(room_id, user_id, question_id, answer_text, created_at) VALUES(?, ?, ?, ?, ?)
  ON CONFLICT(room_id, user_id, question_id) DO UPDATE SET answer_text = excluded.answer_text;`
	_, err := s.Conn.ExecContext(ctx, sql, answer.RoomID, answer.UserID, answer.QuestionID, answer.Text, answer.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("%w: room %s", model.ErrNotFound, answer.RoomID)
		}
		s.Logger.Error("Failed to save answer", err)
		return err
	}
	s.Logger.Debug(fmt.Sprintf("Answer saved for question %s in room %s", answer.QuestionID, answer.RoomID))
	return nil
}

func (s *SqliteStore) GetAnswers(ctx context.Context, code string) ([]model.Answer, error) {
	answers := []model.Answer{}
	sql := `SELECT * FROM answers WHERE room_id = ? ORDER BY created_at ASC;`
	if err := s.Conn.SelectContext(ctx, &answers, sql, code); err != nil {
		s.Logger.Error("Failed to fetch answers", err)
		return nil, err
	}
	return answers, nil
}

func (s *SqliteStore) ListQuestions(ctx context.Context) ([]model.Question, error) {
	questions := []model.Question{}
	sql := `SELECT * FROM questions ORDER BY created_at ASC, rowid ASC;`
	if err := s.Conn.SelectContext(ctx, &questions, sql); err != nil {
		s.Logger.Error("Failed to list questions", err)
		return nil, err
	}
	return questions, nil
}

func (s *SqliteStore) AddQuestion(ctx context.Context, question model.Question) error {
	if question.CreatedAt.IsZero() {
		question.CreatedAt = s.now()
	}
	sql := `INSERT INTO questions(id, text, submitted_by, created_at) VALUES(?, ?, ?, ?);`
	_, err := s.Conn.ExecContext(ctx, sql, question.ID, question.Text, question.SubmittedBy, question.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("%w: question %s already exists", model.ErrConflict, question.ID)
		}
		s.Logger.Error("Failed to save question", err)
		return err
	}
	return nil
}

func (s *SqliteStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.Conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?;`, id)
	if err != nil {
		s.Logger.Error("Failed to delete question", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: question %s", model.ErrNotFound, id)
	}
	s.Logger.Info(fmt.Sprintf("Question %s deleted", id))
	return nil
}
