package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workcrew/workcrew/internal/user"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL invitation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const invitationColumns = `id, code, email, created_by, created_at, expires_at, is_used, used_at, is_cancelled`

// Get retrieves an invitation by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes WHERE id = $1`
	return r.scanInvitation(ctx, query, id)
}

// GetByCode retrieves an invitation by its code value.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes WHERE code = $1`
	return r.scanInvitation(ctx, query, code)
}

func (r *PostgresRepository) scanInvitation(ctx context.Context, query string, args ...interface{}) (*Invitation, error) {
	var inv Invitation

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&inv.ID,
		&inv.Code,
		&inv.Email,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&inv.Used,
		&inv.UsedAt,
		&inv.Cancelled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	return &inv, nil
}

// HasActiveForEmail reports whether a valid invitation is outstanding for the email.
func (r *PostgresRepository) HasActiveForEmail(ctx context.Context, email string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM invitation_codes
			WHERE email = $1 AND NOT is_used AND NOT is_cancelled AND expires_at > $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, now).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List retrieves all invitations, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		var inv Invitation
		err := rows.Scan(
			&inv.ID,
			&inv.Code,
			&inv.Email,
			&inv.CreatedBy,
			&inv.CreatedAt,
			&inv.ExpiresAt,
			&inv.Used,
			&inv.UsedAt,
			&inv.Cancelled,
		)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, &inv)
	}

	return invitations, rows.Err()
}

// Create stores a new invitation.
func (r *PostgresRepository) Create(ctx context.Context, inv *Invitation) error {
	query := `
		INSERT INTO invitation_codes (id, code, email, created_by, created_at, expires_at, is_used, used_at, is_cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		inv.ID,
		inv.Code,
		inv.Email,
		inv.CreatedBy,
		inv.CreatedAt,
		inv.ExpiresAt,
		inv.Used,
		inv.UsedAt,
		inv.Cancelled,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// Cancel marks the invitation cancelled.
func (r *PostgresRepository) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invitation_codes SET is_cancelled = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// Delete removes the invitation.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invitation_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// Redeem creates the account and marks the invitation used in one transaction.
func (r *PostgresRepository) Redeem(ctx context.Context, code string, usedAt time.Time, account *user.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning redemption transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	markUsed := `
		UPDATE invitation_codes
		SET is_used = TRUE, used_at = $2
		WHERE code = $1 AND NOT is_used AND NOT is_cancelled AND expires_at > $2
	`

	tag, err := tx.Exec(ctx, markUsed, code, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeInvalid
	}

	insertUser := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.Exec(ctx, insertUser,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.ErrEmailTaken
		}
		return err
	}

	return tx.Commit(ctx)
}
