package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxQuestionLength    = 500
	CustomQuestionPrefix = "custom_"
)

type Question struct {
	ID          string    `db:"id" json:"id"`
	Text        string    `db:"text" json:"text"`
	SubmittedBy *string   `db:"submitted_by" json:"submitted_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func NewCustomQuestionID() string {
	return CustomQuestionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func NormalizeQuestion(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: question is empty", ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxQuestionLength {
		return "", fmt.Errorf("%w: question longer than %d characters", ErrValidation, MaxQuestionLength)
	}
	return text, nil
}

// DefaultQuestions returns a fresh copy of the built-in prompt list.
func DefaultQuestions() []Question {
	out := make([]Question, len(defaultQuestionTexts))
	for i, text := range defaultQuestionTexts {
		out[i] = Question{ID: fmt.Sprintf("%d", i+1), Text: text}
	}
	return out
}

var defaultQuestionTexts = []string{
	"What is your biggest red flag, and what is your biggest green flag?",
	"What is something you would never tolerate in a relationship?",
	"When was the last time you caught feelings unexpectedly?",
	"What is your toxic trait when you like someone?",
	"Have you ever ghosted someone you actually liked? Why?",
	"What is the fastest way someone can lose your interest?",
	"What is something you do that would annoy the person dating you?",
	"What is your love language when you are obsessed?",
	"What kind of attention makes you fold immediately?",
	"What is the worst date you have ever been on?",
	"Do you fall fast or do you pretend not to?",
	"What is something you secretly hope your partner will just get without you saying it?",
	"What kind of flirting actually works on you?",
	"Have you ever liked two people at the same time?",
	"What would make you stop replying mid-talking stage?",
	"What is something you are scared to admit when you like someone?",
	"What is one question you are afraid I might ask you?",
	"What makes you feel calm after a long day?",
	"How do you usually show interest when you like someone?",
	"What kind of communication drains you fastest?",
	"What does a good weekend look like for you?",
	"What habit are you trying to drop next year?",
	"What topic can you talk about for hours without getting bored?",
	"What makes you lose respect for someone quickly?",
	"How much alone time do you need to feel balanced?",
	"What does consistency mean to you in dating?",
	"What part of your life feels most stable right now?",
	"What scares you about getting close to someone?",
	"What does effort look like to you in a relationship?",
	"What kind of future excites you, even if it feels far off?",
	"What makes you feel appreciated without words?",
	"How do you usually know when something is not right?",
	"What is something people often misunderstand about you?",
	"What pace feels right for building something real?",
}
