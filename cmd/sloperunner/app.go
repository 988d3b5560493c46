package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/config"
	"github.com/sloperunner/engine/internal/logging"
	"github.com/sloperunner/engine/internal/session"
)

// app carries the ambient services every command needs.
type app struct {
	Logger  *slog.Logger
	ZLog    zerolog.Logger
	RunCtx  *session.Context
	slogMgr *logging.SlogManager
	logFile *os.File
	closed  bool
}

// newApp loads the config and sets up logging. Log files are only opened
// for long-running commands; the rest log to the console.
func newApp(configDir string, debug bool, command string) (*app, error) {
	a := &app{
		slogMgr: logging.NewSlogManager(),
		RunCtx:  session.NewContext(),
	}

	cfgErr := config.Load(configDir)

	level := config.GetString("logLevel")
	if debug {
		level = "debug"
	}

	var file io.Writer
	if command == "serve" || command == "play" {
		if err := os.MkdirAll(config.GetString("logsDir"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs dir: %w", err)
		}
		path := logging.LogFilePath(config.GetString("logsDir"), command, time.Now())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		file = f
	}

	var graylog *gelf.Writer
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.DialGraylog(gl.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			graylog = w
		}
	}

	a.slogMgr.SetupWithContext(file, level, graylog, a.RunCtx.Attrs)
	a.Logger = a.slogMgr.Logger()
	a.ZLog = logging.NewZerolog(file, level)

	if cfgErr != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		a.Logger.Debug("Loaded config", "dir", configDir)
	}
	return a, nil
}

// Close flushes log shipping and closes the log file. It is safe to call twice.
func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.slogMgr.Flush(ctx)
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func configCommand(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(config.AllSettings())
}
