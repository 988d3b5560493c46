// Package influx records finished runs as points in InfluxDB. Runs are queued
// and flushed in batches; when the server is unreachable they go to a gzip
// line protocol backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/sloperunner/engine/internal/config"
	"github.com/sloperunner/engine/internal/queue"
)

// MeasurementRun is the measurement name for finished runs.
const MeasurementRun = "run"

// backlogLimit caps queued runs while the flush loop is behind.
const backlogLimit = 10_000

// Run is one finished run.
type Run struct {
	RunID     string
	Player    string
	Score     int
	Ticks     uint64
	Duration  time.Duration
	MaxSpeed  float64
	Cause     string // boundary, tree or rock
	Qualified bool
	Submitted bool
	EndedAt   time.Time
}

// Point converts the run to an InfluxDB point.
func (r Run) Point() *influxdb2_write.Point {
	player := r.Player
	if player == "" {
		player = "anonymous"
	}
	ended := r.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	return influxdb2.NewPoint(MeasurementRun,
		map[string]string{
			"player": player,
			"cause":  r.Cause,
		},
		map[string]interface{}{
			"run_id":      r.RunID,
			"score":       r.Score,
			"ticks":       int64(r.Ticks),
			"duration_ms": r.Duration.Milliseconds(),
			"max_speed":   r.MaxSpeed,
			"qualified":   r.Qualified,
			"submitted":   r.Submitted,
		},
		ended,
	)
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backlog    *queue.Queue[Run]
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		IsValid:    false,
		Logger:     log,
		BackupPath: filepath.Join(cfg.BackupDir, "runs.lp.gz"),
		cfg:        cfg,
		backlog:    queue.NewBounded[Run](backlogLimit),
	}
}

// Connect establishes a connection to InfluxDB, falling back to the backup
// file when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		if err := m.openBackup(); err != nil {
			return err
		}
		return nil
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.IsValid = true
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

// UseBackup skips the server and writes every run to the backup file.
func (m *Manager) UseBackup() error {
	m.IsValid = false
	return m.openBackup()
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup dir: %w", err)
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure bucket exists with 365 day retention
	if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 365,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// Record queues a finished run for the next flush.
func (m *Manager) Record(run Run) {
	if dropped := m.backlog.Push(run); dropped > 0 {
		m.Logger.Warn().Int("dropped", dropped).Msg("Run backlog full, dropped oldest runs")
	}
}

// Pending returns the number of queued runs.
func (m *Manager) Pending() int {
	return m.backlog.Len()
}

// Flush writes every queued run. Runs that could not be written are requeued.
func (m *Manager) Flush(ctx context.Context) error {
	runs := m.backlog.GetAndEmpty()
	for i, run := range runs {
		if err := m.WritePoint(ctx, run.Point()); err != nil {
			m.backlog.Requeue(runs[i:]...)
			return err
		}
	}
	if len(runs) > 0 {
		m.Logger.Debug().Int("runs", len(runs)).Msg("Flushed runs")
	}
	return nil
}

// Run flushes on every interval until ctx is done, then flushes once more.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := m.Flush(context.Background()); err != nil {
				m.Logger.Error().Err(err).Msg("Final run flush failed")
			}
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil {
				m.Logger.Error().Err(err).Msg("Run flush failed")
			}
		}
	}
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the client or backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}
