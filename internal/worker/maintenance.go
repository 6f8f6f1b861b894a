package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/featureflags"
)

// DeviceSweeper deactivates device registrations that have gone stale.
type DeviceSweeper interface {
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenPurger removes refresh tokens that expired or were revoked before
// the cutoff.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceJob runs the periodic registry cleanup tasks.
type MaintenanceJob struct {
	config MaintenanceConfig
	logger zerolog.Logger

	// Dependencies (optional, nil skips the corresponding task)
	devices DeviceSweeper
	tokens  TokenPurger
	flags   *featureflags.Service

	metrics *MaintenanceMetrics
}

// MaintenanceMetrics tracks maintenance job statistics.
type MaintenanceMetrics struct {
	mu sync.RWMutex

	TotalRuns          int64
	FailedRuns         int64
	DevicesDeactivated int64
	TokensPurged       int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// MaintenanceJobConfig holds configuration for creating a MaintenanceJob.
type MaintenanceJobConfig struct {
	Config  MaintenanceConfig
	Logger  zerolog.Logger
	Devices DeviceSweeper
	Tokens  TokenPurger
	Flags   *featureflags.Service
}

// NewMaintenanceJob creates a new maintenance job processor.
func NewMaintenanceJob(cfg MaintenanceJobConfig) *MaintenanceJob {
	config := cfg.Config
	if config.StaleDeviceAge <= 0 {
		config = DefaultMaintenanceConfig()
	}

	return &MaintenanceJob{
		config:  config,
		logger:  cfg.Logger,
		devices: cfg.Devices,
		tokens:  cfg.Tokens,
		flags:   cfg.Flags,
		metrics: &MaintenanceMetrics{},
	}
}

// MaintenanceResult contains the result of a maintenance run.
type MaintenanceResult struct {
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
	DevicesDeactivated int64
	TokensPurged       int64
	Errors             []MaintenanceError
}

// MaintenanceError represents an error during a maintenance task.
type MaintenanceError struct {
	Task  string
	Error string
}

// Run executes all enabled maintenance tasks.
func (j *MaintenanceJob) Run(ctx context.Context) *MaintenanceResult {
	startTime := time.Now()
	result := &MaintenanceResult{StartTime: startTime}

	runCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	j.logger.Info().
		Dur("stale_device_age", j.config.StaleDeviceAge).
		Dur("token_retention", j.config.TokenRetention).
		Msg("starting maintenance job")

	if j.shouldSweepDevices(runCtx) {
		cutoff := startTime.Add(-j.config.StaleDeviceAge)
		deactivated, err := j.devices.DeactivateStale(runCtx, cutoff)
		if err != nil {
			result.Errors = append(result.Errors, MaintenanceError{
				Task:  "device_sweep",
				Error: err.Error(),
			})
			j.logger.Error().Err(err).Msg("stale device sweep failed")
		} else {
			result.DevicesDeactivated = deactivated
			if deactivated > 0 {
				j.logger.Info().
					Int64("deactivated", deactivated).
					Time("cutoff", cutoff).
					Msg("deactivated stale devices")
			}
		}
	}

	if j.config.PurgeTokens && j.tokens != nil {
		cutoff := startTime.Add(-j.config.TokenRetention)
		purged, err := j.tokens.DeleteExpired(runCtx, cutoff)
		if err != nil {
			result.Errors = append(result.Errors, MaintenanceError{
				Task:  "token_purge",
				Error: err.Error(),
			})
			j.logger.Error().Err(err).Msg("refresh token purge failed")
		} else {
			result.TokensPurged = purged
			if purged > 0 {
				j.logger.Info().
					Int64("purged", purged).
					Time("cutoff", cutoff).
					Msg("purged expired refresh tokens")
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int64("devices_deactivated", result.DevicesDeactivated).
		Int64("tokens_purged", result.TokensPurged).
		Int("errors", len(result.Errors)).
		Msg("maintenance job completed")

	return result
}

func (j *MaintenanceJob) shouldSweepDevices(ctx context.Context) bool {
	if !j.config.SweepDevices || j.devices == nil {
		return false
	}
	if j.flags != nil && !j.flags.IsStaleDeviceSweepEnabled(ctx) {
		j.logger.Debug().Msg("stale device sweep disabled by feature flag")
		return false
	}
	return true
}

// HealthCheck verifies storage connectivity with a sweep that can never
// match a row.
func (j *MaintenanceJob) HealthCheck(ctx context.Context) error {
	if j.devices == nil {
		return nil
	}
	_, err := j.devices.DeactivateStale(ctx, time.Unix(0, 0))
	return err
}

func (j *MaintenanceJob) updateMetrics(result *MaintenanceResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	if len(result.Errors) > 0 {
		j.metrics.FailedRuns++
	}
	j.metrics.DevicesDeactivated += result.DevicesDeactivated
	j.metrics.TokensPurged += result.TokensPurged
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *MaintenanceJob) GetMetrics() MaintenanceMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return MaintenanceMetrics{
		TotalRuns:          j.metrics.TotalRuns,
		FailedRuns:         j.metrics.FailedRuns,
		DevicesDeactivated: j.metrics.DevicesDeactivated,
		TokensPurged:       j.metrics.TokensPurged,
		LastRunAt:          j.metrics.LastRunAt,
		LastRunDuration:    j.metrics.LastRunDuration,
		TotalDuration:      j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *MaintenanceJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":          m.TotalRuns,
		"failed_runs":         m.FailedRuns,
		"devices_deactivated": m.DevicesDeactivated,
		"tokens_purged":       m.TokensPurged,
		"last_run_at":         m.LastRunAt,
		"last_run_duration":   m.LastRunDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
