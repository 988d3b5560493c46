package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sloperunner/engine/internal/dispatcher"
	"github.com/sloperunner/engine/internal/leaderboard"
	"github.com/sloperunner/engine/internal/storage"
	"github.com/sloperunner/engine/pkg/core"
)

// CommandWrite is the one buffered dispatcher command every leaderboard write
// goes through, so Submit and Retry share a single consumer and never overlap.
const CommandWrite = "leaderboard:write"

const (
	msgUpdated       = "Leaderboard updated successfully"
	msgUpdateFailed  = "Failed to update leaderboard"
	msgAbandoned     = "Request cancelled before the leaderboard was updated"
	msgReadFailed    = "Failed to read leaderboard"
	msgInvalidJSON   = "Invalid JSON format"
	msgInvalidData   = "Invalid data format. Expected { name: string, score: number }"
	msgNotAllowed    = "Method not allowed"
	msgNotFound      = "Not Found"
	maxBodyBytes     = 4096
	defaultQueueSize = 64
)

// RawReader is implemented by stores that keep the text file verbatim.
type RawReader interface {
	ReadRaw() ([]byte, error)
}

// SubmitRequest is the body of POST /api/updateLeaderboard.
type SubmitRequest struct {
	Name  *string  `json:"name"`
	Score *float64 `json:"score"`
}

// SubmitResponse is returned on success.
type SubmitResponse struct {
	Message       string                  `json:"message"`
	UpdatedScores []core.LeaderboardEntry `json:"updatedScores"`
}

// ErrorResponse is returned for every failure.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// QualifiesResponse is returned by GET /api/qualifies.
type QualifiesResponse struct {
	Score     int  `json:"score"`
	Qualifies bool `json:"qualifies"`
}

type writeKind int

const (
	writeSubmit writeKind = iota
	writeRetry
)

// writeRequest is the payload of CommandWrite.
type writeRequest struct {
	kind  writeKind
	name  string
	score float64
}

// ServerConfig configures the leaderboard HTTP handler.
type ServerConfig struct {
	AllowedOrigin string
	QueueSize     int
	Logger        *slog.Logger
}

// Server serves the leaderboard API. Submissions are queued on the
// dispatcher; reads go straight to the service.
type Server struct {
	svc    *leaderboard.Service
	disp   *dispatcher.Dispatcher
	cfg    ServerConfig
	logger *slog.Logger
}

// NewServer registers the leaderboard commands on d.
func NewServer(svc *leaderboard.Service, d *dispatcher.Dispatcher, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	s := &Server{svc: svc, disp: d, cfg: cfg, logger: logger}

	// Queued commands use a detached context: a caller that gives up does
	// not cancel a write that is already running.
	d.Register(CommandWrite, func(e dispatcher.Event) (any, error) {
		req, ok := e.Payload.(writeRequest)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", e.Payload)
		}
		switch req.kind {
		case writeSubmit:
			return svc.Submit(context.Background(), req.name, req.score)
		case writeRetry:
			return svc.Retry(context.Background())
		default:
			return nil, fmt.Errorf("unknown leaderboard write %d", req.kind)
		}
	}, dispatcher.Buffered(cfg.QueueSize), dispatcher.Blocking(), dispatcher.Awaited(), dispatcher.Logged())

	return s
}

// Handler returns the HTTP routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthcheck", s.handleHealthcheck)
	mux.HandleFunc("/api/updateLeaderboard", s.handleUpdate)
	mux.HandleFunc("/api/getLeaderboard", s.handleRaw)
	mux.HandleFunc("/api/leaderboard", s.handleList)
	mux.HandleFunc("/api/qualifies", s.handleQualifies)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: msgNotFound})
	})
	return s.withCORS(mux)
}

// Submit queues a submission and waits for its result.
func (s *Server) Submit(ctx context.Context, name string, score float64) ([]core.LeaderboardEntry, error) {
	return s.dispatchWrite(ctx, writeRequest{kind: writeSubmit, name: name, score: score})
}

// Retry queues a save of the list left over by a failed submission.
func (s *Server) Retry(ctx context.Context) ([]core.LeaderboardEntry, error) {
	return s.dispatchWrite(ctx, writeRequest{kind: writeRetry})
}

func (s *Server) dispatchWrite(ctx context.Context, req writeRequest) ([]core.LeaderboardEntry, error) {
	v, err := s.disp.Dispatch(dispatcher.Event{Command: CommandWrite, Payload: req, Context: ctx})
	entries, _ := v.([]core.LeaderboardEntry)
	return entries, err
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: msgNotAllowed})
		return
	}

	var req SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.logger.Warn("Invalid leaderboard submission body", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: msgInvalidJSON})
		return
	}
	if req.Name == nil || req.Score == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: msgInvalidData})
		return
	}

	updated, err := s.Submit(r.Context(), *req.Name, *req.Score)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SubmitResponse{Message: msgUpdated, UpdatedScores: updated})
	case errors.Is(err, leaderboard.ErrInvalidName), errors.Is(err, leaderboard.ErrInvalidScore):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: msgInvalidData, Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("Leaderboard submission abandoned by client", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: msgAbandoned, Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: msgUpdateFailed, Error: err.Error()})
	}
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: msgNotAllowed})
		return
	}

	var data []byte
	if raw, ok := s.svc.Store().(RawReader); ok {
		b, err := raw.ReadRaw()
		if err != nil {
			s.logger.Error("Failed to read leaderboard file", "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: msgReadFailed, Error: err.Error()})
			return
		}
		data = b
	} else {
		data = storage.FormatText(s.svc.Lookup(r.Context()))
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: msgNotAllowed})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Lookup(r.Context()))
}

func (s *Server) handleQualifies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Message: msgNotAllowed})
		return
	}
	raw := r.URL.Query().Get("score")
	score, err := strconv.Atoi(raw)
	if err != nil || score < 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid score", Error: fmt.Sprintf("score=%q", raw)})
		return
	}
	writeJSON(w, http.StatusOK, QualifiesResponse{Score: score, Qualifies: s.svc.Qualifies(r.Context(), score)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
