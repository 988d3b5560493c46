// Package monitor keeps a status file describing the running play session.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/sloperunner/engine/internal/logging"
	"github.com/spf13/afero"
)

const defaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service. Nil providers
// are reported as zero.
type Dependencies struct {
	Fs         afero.Fs
	StatusFile string
	RunAttrs   logging.ContextProvider
	Clients    func() int
	Pending    func() int
	Logger     *slog.Logger
}

// Status is one snapshot written to the status file.
type Status struct {
	Time          time.Time      `json:"time"`
	Run           map[string]any `json:"run,omitempty"`
	StreamClients int            `json:"streamClients"`
	PendingRuns   int            `json:"pendingRuns"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the current status from the providers.
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now()}
	if s.deps.RunAttrs != nil {
		if attrs := s.deps.RunAttrs(); len(attrs) > 0 {
			st.Run = make(map[string]any, len(attrs))
			for _, a := range attrs {
				st.Run[a.Key] = a.Value.Any()
			}
		}
	}
	if s.deps.Clients != nil {
		st.StreamClients = s.deps.Clients()
	}
	if s.deps.Pending != nil {
		st.PendingRuns = s.deps.Pending()
	}
	return st
}

// WriteStatus replaces the status file with the current status.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := s.deps.Fs.MkdirAll(filepath.Dir(s.deps.StatusFile), 0755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	if err := afero.WriteFile(s.deps.Fs, s.deps.StatusFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start(interval time.Duration) error {
	if s.deps.StatusFile == "" {
		return fmt.Errorf("monitor: no status file configured")
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor", "file", s.deps.StatusFile, "interval", interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				if err := s.WriteStatus(); err != nil {
					s.deps.Logger.Error("Error writing status file", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					s.deps.Logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
