package logger

import (
	"io"
	"log/slog"
	"os"
)

type Logger interface {
	Info(msg string)
	Error(msg string, err error)
	Debug(msg string)
}

type MorningStarLogger struct {
	logger *slog.Logger
}

var level = new(slog.LevelVar)

// SetVerbose switches every logger created by New between Info and Debug.
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

func New(loggerName string) Logger {
	return NewWithWriter(loggerName, os.Stderr)
}

func NewWithWriter(loggerName string, w io.Writer) Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	attrs := []slog.Attr{slog.String("logger", loggerName)}
	h := handler.WithAttrs(attrs)
	return MorningStarLogger{slog.New(h)}
}

// Discard is used by tests and by callers that do not care about output.
func Discard() Logger {
	return NewWithWriter("discard", io.Discard)
}

func (ml MorningStarLogger) Info(msg string) {
	ml.logger.Info(msg)
}

func (ml MorningStarLogger) Error(msg string, err error) {
	if err != nil {
		e := slog.String("error", err.Error())
		ml.logger.Error(msg, e)
		return
	}
	ml.logger.Error(msg)
}

func (ml MorningStarLogger) Debug(msg string) {
	ml.logger.Debug(msg)
}
