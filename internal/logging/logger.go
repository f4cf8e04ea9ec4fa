package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.MessageFieldName = "msg"
}

// Logger writes one JSON object per line. Printf-style methods are kept for
// human messages; the *w variants carry structured fields and take a dotted
// event name as the message.
type Logger struct {
	zl zerolog.Logger
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stdout)
}

func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	return &Logger{
		zl: zerolog.New(w).Level(parseLevel(levelStr)).With().Timestamp().Logger(),
	}
}

// NewConsoleLogger renders events for a terminal instead of as JSON.
func NewConsoleLogger(levelStr string, w io.Writer) *Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return &Logger{
		zl: zerolog.New(cw).Level(parseLevel(levelStr)).With().Timestamp().Logger(),
	}
}

// New picks the JSON or console encoder by name.
func New(levelStr, format string, w io.Writer) *Logger {
	if strings.EqualFold(format, "console") {
		return NewConsoleLogger(levelStr, w)
	}
	return NewLoggerWithWriter(levelStr, w)
}

func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debugw(msg string, fields map[string]any) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *Logger) Infow(msg string, fields map[string]any) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warnw(msg string, fields map[string]any) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *Logger) Errorw(msg string, fields map[string]any) {
	l.zl.Error().Fields(fields).Msg(msg)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zl.WithLevel(zerolog.FatalLevel).Msgf(format, args...)
	os.Exit(1)
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}
