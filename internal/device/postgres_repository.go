package device

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const deviceColumns = `id, user_id, platform, token, active, created_at, updated_at`

// Get retrieves a device by user ID and device ID.
func (r *PostgresRepository) Get(ctx context.Context, userID, deviceID string) (*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE id = $1 AND user_id = $2
	`

	return r.scanDevice(ctx, query, deviceID, userID)
}

// GetByToken retrieves a device by token.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE token = $1
	`

	return r.scanDevice(ctx, query, token)
}

// scanDevice scans a single device from a query.
func (r *PostgresRepository) scanDevice(ctx context.Context, query string, args ...interface{}) (*Device, error) {
	var device Device

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&device.ID,
		&device.UserID,
		&device.Platform,
		&device.Token,
		&device.Active,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return &device, nil
}

// ListActiveByUser retrieves the active devices for a user, most recently
// registered first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	fetchLimit := limit + 1

	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE user_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		var device Device
		err := rows.Scan(
			&device.ID,
			&device.UserID,
			&device.Platform,
			&device.Token,
			&device.Active,
			&device.CreatedAt,
			&device.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		devices = append(devices, &device)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{
		Items: devices,
	}

	if len(devices) > limit {
		result.Items = devices[:limit]
		result.NextCursor = devices[limit-1].ID
	}

	return result, nil
}

// ActiveTokensForUsers retrieves the active device tokens for a set of users.
func (r *PostgresRepository) ActiveTokensForUsers(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT token
		FROM devices
		WHERE user_id = ANY($1) AND active
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// Upsert creates or updates a device based on the token.
// Returns true if a new device was created, false if updated.
func (r *PostgresRepository) Upsert(ctx context.Context, device *Device) (bool, error) {
	// Tokens are unique, so the token is the conflict target. A re-registered
	// token takes over the incoming owner and platform and is reactivated.
	query := `
		INSERT INTO devices (id, user_id, platform, token, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			active = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		device.ID,
		device.UserID,
		device.Platform,
		device.Token,
		device.CreatedAt,
		device.UpdatedAt,
	).Scan(&device.ID, &device.CreatedAt, &inserted)

	if err != nil {
		return false, err
	}

	device.Active = true
	return inserted, nil
}

// Deactivate marks a device inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, userID, deviceID string) error {
	query := `
		UPDATE devices SET active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query, deviceID, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// DeactivateByToken marks the device holding the given token inactive.
func (r *PostgresRepository) DeactivateByToken(ctx context.Context, token string) error {
	query := `
		UPDATE devices SET active = FALSE, updated_at = NOW()
		WHERE token = $1
	`

	result, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// DeactivateStale marks devices inactive whose last registration is older
// than the cutoff.
func (r *PostgresRepository) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE devices SET active = FALSE, updated_at = NOW()
		WHERE active AND updated_at < $1
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
