package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the key/value logger used across the service.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Fatal(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

type zerologLogger struct {
	zl zerolog.Logger
}

// New builds a JSON logger on stdout with the given level.
func New(level string) Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewConsole builds a human readable logger, used in development.
func NewConsole(level string) Logger {
	return NewWithWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, level)
}

func NewWithWriter(w io.Writer, level string) Logger {
	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", "wetalk").
		Logger()
	return &zerologLogger{zl: zl}
}

// Nop discards everything. Handy in tests.
func Nop() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (l *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	write(l.zl.Debug(), msg, keysAndValues)
}

func (l *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	write(l.zl.Info(), msg, keysAndValues)
}

func (l *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	write(l.zl.Warn(), msg, keysAndValues)
}

func (l *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	write(l.zl.Error(), msg, keysAndValues)
}

func (l *zerologLogger) Fatal(msg string, keysAndValues ...interface{}) {
	write(l.zl.Fatal(), msg, keysAndValues)
}

func (l *zerologLogger) With(keysAndValues ...interface{}) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(normalize(keysAndValues)).Logger()}
}

func write(e *zerolog.Event, msg string, keysAndValues []interface{}) {
	if e == nil {
		return
	}
	e.Fields(normalize(keysAndValues)).Msg(msg)
}

// normalize turns the variadic pairs into a map; errors are stringified so
// they render even when zerolog's error marshaller is not involved.
func normalize(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if i+1 >= len(keysAndValues) {
			fields[key] = nil
			break
		}
		value := keysAndValues[i+1]
		if err, isErr := value.(error); isErr && err != nil {
			value = err.Error()
		}
		fields[key] = value
	}
	return fields
}
