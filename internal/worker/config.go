// Package worker provides background job processing for WorkCrew.
package worker

import (
	"time"
)

// MaintenanceConfig holds configuration for the maintenance job.
type MaintenanceConfig struct {
	// StaleDeviceAge is how long a device may go without a registration
	// refresh before its push token is considered dead.
	// Default: 270 days.
	StaleDeviceAge time.Duration

	// TokenRetention is how long expired or revoked refresh tokens are
	// kept before being purged.
	// Default: 30 days.
	TokenRetention time.Duration

	// Timeout is the timeout for a full maintenance run.
	// Default: 2 minutes.
	Timeout time.Duration

	// SweepDevices enables the stale device sweep.
	// Default: true
	SweepDevices bool

	// PurgeTokens enables the refresh token purge.
	// Default: true
	PurgeTokens bool
}

// DefaultMaintenanceConfig returns the default maintenance configuration.
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		StaleDeviceAge: 270 * 24 * time.Hour,
		TokenRetention: 30 * 24 * time.Hour,
		Timeout:        2 * time.Minute,
		SweepDevices:   true,
		PurgeTokens:    true,
	}
}
