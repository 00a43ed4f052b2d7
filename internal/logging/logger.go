package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Format selects how log records are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json", case-insensitively. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown log format %q (want text or json): %w", s, erpsync.ErrInvalidConfig)
}

// ConsoleLogger is an erpsync.Logger writing through zerolog.
// Safe for concurrent use.
type ConsoleLogger struct {
	log zerolog.Logger
}

var _ erpsync.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger writes text records to stderr.
// Verbose records are dropped unless verbose is set.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return New(os.Stderr, verbose, FormatText)
}

// New creates a logger writing to w in the given format.
func New(w io.Writer, verbose bool, format Format) *ConsoleLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	out := zerolog.SyncWriter(w)
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:         out,
			NoColor:     true,
			PartsOrder:  []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
			FormatLevel: textLevel,
		}
	}

	log := zerolog.New(out).Level(level)
	if format == FormatJSON {
		log = log.With().Timestamp().Logger()
	}
	return &ConsoleLogger{log: log}
}

// NewNullLogger discards everything.
func NewNullLogger() *ConsoleLogger {
	return &ConsoleLogger{log: zerolog.Nop()}
}

func textLevel(i any) string {
	switch i {
	case zerolog.LevelDebugValue:
		return "[VERBOSE]"
	case zerolog.LevelErrorValue:
		return "[ERROR]"
	}
	return ""
}

func (l *ConsoleLogger) Verbose(format string, args ...any) {
	l.log.Debug().Msg(render(format, args))
}

func (l *ConsoleLogger) Info(format string, args ...any) {
	l.log.Info().Msg(render(format, args))
}

func (l *ConsoleLogger) Error(format string, args ...any) {
	l.log.Error().Msg(render(format, args))
}

// render leaves format untouched without args so literal % signs survive.
func render(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
