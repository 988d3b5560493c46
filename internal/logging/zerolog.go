package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds the logger handed to the storage, database and influx
// layers. It writes JSON lines to file when given, and a human readable
// console format to stdout otherwise.
func NewZerolog(file io.Writer, level string) zerolog.Logger {
	var w io.Writer
	if file != nil {
		w = file
	} else {
		w = zerolog.ConsoleWriter{Out: osStdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
