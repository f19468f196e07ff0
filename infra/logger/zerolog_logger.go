package logger

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	var out io.Writer = os.Stdout
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewZerologLoggerWithWriter(component, out)
}

// NewZerologLoggerWithWriter creates a ZerologLogger writing to w. The level
// is read from LOG_LEVEL and defaults to info.
func NewZerologLoggerWithWriter(component string, w io.Writer) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	withFields(l.log.Debug(), fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Warnw(msg string, fields map[string]any) {
	withFields(l.log.Warn(), fields).Msg(msg)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

// withFields adds fields in key order so log lines are stable across runs.
func withFields(ev *zerolog.Event, fields map[string]any) *zerolog.Event {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Interface(k, fields[k])
	}
	return ev
}
