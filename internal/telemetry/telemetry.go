// Package telemetry records entity samples as InfluxDB points.
package telemetry

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

const (
	MeasurementEntity     = "entity"
	MeasurementNavigation = "navigation"

	retentionSeconds = 60 * 60 * 24 * 90
)

// ErrDisabled is returned by Connect when telemetry is switched off.
var ErrDisabled = errors.New("telemetry is disabled")

// pointWriter is the subset of the influx WriteAPI the manager needs.
type pointWriter interface {
	WritePoint(point *influxdb2_write.Point)
	Flush()
}

// Manager sends points to InfluxDB, or to a gzip line-protocol file when the
// server cannot be reached.
type Manager struct {
	cfg    config.TelemetryConfig
	logger zerolog.Logger

	mu         sync.Mutex
	client     influxdb2.Client
	writer     pointWriter
	backupFile *os.File
	backup     *gzip.Writer
	written    int
}

// NewManager creates an unconnected manager.
func NewManager(cfg config.TelemetryConfig, logger zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// Connect pings the server and prepares the bucket. On failure it falls back
// to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(m.cfg.URL, m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		m.client.Close()
		m.client = nil
		return m.openBackup()
	}

	if err := m.ensureBucket(ctx); err != nil {
		return err
	}

	api := m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(api.Errors())
	m.writer = api

	m.logger.Info().Str("url", m.cfg.URL).Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// openBackup opens the gzip backup file. Callers must hold m.mu.
func (m *Manager) openBackup() error {
	if m.backup != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return errors.New("influxDB unreachable and no backup path configured")
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

// Online reports whether points go to the server rather than the backup.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writer != nil
}

// WritePoint queues point for the server or appends it to the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.writer != nil:
		m.writer.WritePoint(point)
	case m.backup != nil:
		line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
		if _, err := m.backup.Write([]byte(line)); err != nil {
			return fmt.Errorf("error writing to backup file: %w", err)
		}
	default:
		return errors.New("telemetry not connected")
	}
	m.written++
	return nil
}

// Written returns the number of points accepted so far.
func (m *Manager) Written() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// Close flushes pending points and releases the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
		m.writer = nil
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}

	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		m.backup = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// EntityPoint builds the per-sample entity point.
func EntityPoint(e core.Entity, odo core.Odometer, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementEntity,
		map[string]string{
			"mode":   string(e.Mode),
			"model":  e.ModelID,
			"flying": strconv.FormatBool(e.Flying),
		},
		map[string]any{
			"lng":       e.Position.Lng,
			"lat":       e.Position.Lat,
			"elevation": e.Elevation,
			"heading":   e.HeadingDegrees(),
			"speed":     e.Speed,
			"driven":    odo.Driven,
			"walked":    odo.Walked,
		},
		ts,
	)
}

// NavigationPoint builds the per-sample navigation point.
func NavigationPoint(s core.NavigationStatus, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementNavigation,
		map[string]string{
			"arrived": strconv.FormatBool(s.Arrived),
		},
		map[string]any{
			"remaining": s.RemainingDistance,
			"total":     s.TotalDistance,
			"progress":  s.Progress,
			"eta":       s.RemainingDuration,
		},
		ts,
	)
}

var _ pointWriter = (influxdb2_api.WriteAPI)(nil)
