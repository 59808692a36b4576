package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects how log events are rendered.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat accepts "console" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}

// ZerologAdapter implements Logger on top of a zerolog.Logger. Every event
// carries the component that emitted it.
type ZerologAdapter struct {
	zl zerolog.Logger
}

// New returns an adapter writing to w. Console output is human readable
// and uncoloured unless w is a terminal handled by the caller.
func New(w io.Writer, level zerolog.Level, format Format) *ZerologAdapter {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	}
	return &ZerologAdapter{
		zl: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	emit(z.zl.Debug(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	emit(z.zl.Info(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	emit(z.zl.Warn(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Error(component, message string, err error, fields map[string]interface{}) {
	emit(z.zl.Error().Err(err), component, fields).Msg(message)
}

// emit attaches the component and fields. A nil event (level disabled) is
// passed through untouched.
func emit(e *zerolog.Event, component string, fields map[string]interface{}) *zerolog.Event {
	if e == nil {
		return nil
	}
	e = e.Str("component", component)
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	return e
}
