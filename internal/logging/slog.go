package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// Swapped by tests to capture console output.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional Graylog shipping.
type SlogManager struct {
	logger *slog.Logger

	// GELF writer, closed on Flush
	graylog *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DialGraylog opens a GELF UDP writer to address.
func DialGraylog(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("graylog writer: %w", err)
	}
	w.Facility = "sloperunner"
	return w, nil
}

// Setup initializes the logging system. Records go to file when one is given,
// to stdout otherwise, and additionally to Graylog when graylog is non-nil.
func (m *SlogManager) Setup(file io.Writer, level string, graylog *gelf.Writer) {
	m.SetupWithContext(file, level, graylog, nil)
}

// SetupWithContext is Setup with a provider whose attributes are added to
// every record, such as the current run and tick.
func (m *SlogManager) SetupWithContext(file io.Writer, level string, graylog *gelf.Writer, provider ContextProvider) {
	lvl := parseLevel(level)
	m.graylog = graylog

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	// One JSON document per GELF message
	if graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(graylog, handlerOpts))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if provider != nil {
		handler = NewContextHandler(handler, provider)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level, "graylog", graylog != nil)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush closes the Graylog writer if one is attached.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.graylog == nil {
		return nil
	}
	err := m.graylog.Close()
	m.graylog = nil
	return err
}
