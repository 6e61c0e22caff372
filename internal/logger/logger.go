package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger tagged with a component name.
func New(component string) zerolog.Logger {
	return NewWithWriter(component, nil)
}

// NewWithWriter creates a component logger that also mirrors every event
// to extra (typically a log file). A nil extra logs to the console only.
func NewWithWriter(component string, extra io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("[%s] %v", component, i)
		},
	}

	var out io.Writer = console
	if extra != nil {
		out = zerolog.MultiLevelWriter(console, extra)
	}

	level := zerolog.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
}

// OpenLogFile opens (creating if needed) an append-only log file for use
// as the extra writer of NewWithWriter.
func OpenLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
