package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxAnswerLength = 2000

type Answer struct {
	RoomID     string    `db:"room_id" json:"room_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	QuestionID string    `db:"question_id" json:"question_id"`
	Text       string    `db:"answer_text" json:"answer_text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NormalizeAnswer trims the text and enforces the length bounds.
func NormalizeAnswer(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: answer is empty", ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxAnswerLength {
		return "", fmt.Errorf("%w: answer longer than %d characters", ErrValidation, MaxAnswerLength)
	}
	return text, nil
}
