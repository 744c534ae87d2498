package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoomCode(t *testing.T) {
	tests := []struct {
		description string
		input       string
		expected    string
		wantErr     bool
	}{
		{"Test lowercase code is uppercased", " ab12cd ", "AB12CD", false},
		{"Test empty code", "   ", "", true},
		{"Test oversized code", strings.Repeat("A", MaxRoomCodeLength+1), "", true},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			got, err := NormalizeRoomCode(tc.input)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNormalizeAnswer(t *testing.T) {
	got, err := NormalizeAnswer("  blue \n")
	assert.Nil(t, err)
	assert.Equal(t, "blue", got)

	_, err = NormalizeAnswer(" ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeAnswer(strings.Repeat("x", MaxAnswerLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRoomRoleOf(t *testing.T) {
	guest := "g1"
	room := Room{ID: "AB12CD", HostID: "h1", GuestID: &guest}

	role, ok := room.RoleOf("h1")
	assert.True(t, ok)
	assert.Equal(t, RoleHost, role)

	role, ok = room.RoleOf("g1")
	assert.True(t, ok)
	assert.Equal(t, RoleGuest, role)

	_, ok = room.RoleOf("g2")
	assert.False(t, ok)
	assert.Equal(t, RoleGuest, RoleHost.Partner())
}

func TestDefaultQuestions(t *testing.T) {
	qs := DefaultQuestions()
	assert.Len(t, qs, 34)
	assert.Equal(t, "1", qs[0].ID)
	assert.Equal(t, "34", qs[33].ID)
	qs[0].Text = "changed"
	assert.NotEqual(t, "changed", DefaultQuestions()[0].Text)
	assert.True(t, strings.HasPrefix(NewCustomQuestionID(), CustomQuestionPrefix))
}
