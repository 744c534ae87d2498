package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesNameAndError(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter("database", buf)
	l.Error("Failed to apply schema", errors.New("disk full"))

	out := buf.String()
	assert.Contains(t, out, "logger=database")
	assert.Contains(t, out, `error="disk full"`)
}

func TestSetVerboseTogglesDebug(t *testing.T) {
	defer SetVerbose(false)
	buf := &bytes.Buffer{}
	l := NewWithWriter("cli", buf)

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
