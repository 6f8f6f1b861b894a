package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL task repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const taskColumns = `id, title, description, status, address, latitude, longitude,
	start_date, due_date, created_by, created_at, updated_at`

// Get retrieves a task with its assigned workers and documents.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`

	task, err := r.scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadWorkers(ctx, task); err != nil {
		return nil, err
	}
	if err := r.loadDocuments(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *PostgresRepository) scanTask(row pgx.Row) (*Task, error) {
	var task Task

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Address,
		&task.Latitude,
		&task.Longitude,
		&task.StartDate,
		&task.DueDate,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

func (r *PostgresRepository) loadWorkers(ctx context.Context, task *Task) error {
	query := `SELECT user_id FROM task_workers WHERE task_id = $1 ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query, task.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var workerID string
		if err := rows.Scan(&workerID); err != nil {
			return err
		}
		task.WorkerIDs = append(task.WorkerIDs, workerID)
	}

	return rows.Err()
}

func (r *PostgresRepository) loadDocuments(ctx context.Context, task *Task) error {
	query := `
		SELECT id, task_id, kind, file_name, file_url, uploaded_by, uploaded_at
		FROM task_documents
		WHERE task_id = $1
		ORDER BY uploaded_at DESC
	`

	rows, err := r.pool.Query(ctx, query, task.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var doc Document
		err := rows.Scan(
			&doc.ID,
			&doc.TaskID,
			&doc.Kind,
			&doc.FileName,
			&doc.FileURL,
			&doc.UploadedBy,
			&doc.UploadedAt,
		)
		if err != nil {
			return err
		}
		task.Documents = append(task.Documents, &doc)
	}

	return rows.Err()
}

// List retrieves tasks newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	fetchLimit := limit + 1

	var (
		rows pgx.Rows
		err  error
	)

	switch {
	case opts.AssignedTo != "" && opts.Status != "":
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			JOIN task_workers tw ON tw.task_id = tasks.id
			WHERE tw.user_id = $1 AND status = $2
			ORDER BY created_at DESC
			LIMIT $3
		`
		rows, err = r.pool.Query(ctx, query, opts.AssignedTo, opts.Status, fetchLimit)
	case opts.AssignedTo != "":
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			JOIN task_workers tw ON tw.task_id = tasks.id
			WHERE tw.user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = r.pool.Query(ctx, query, opts.AssignedTo, fetchLimit)
	case opts.Status != "":
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = r.pool.Query(ctx, query, opts.Status, fetchLimit)
	default:
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			ORDER BY created_at DESC
			LIMIT $1
		`
		rows, err = r.pool.Query(ctx, query, fetchLimit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if err := r.loadWorkers(ctx, task); err != nil {
			return nil, err
		}
	}

	result := &ListResult{Items: tasks}
	if len(tasks) > limit {
		result.Items = tasks[:limit]
		result.NextCursor = tasks[limit-1].ID
	}

	return result, nil
}

// Create creates a new task with its initial worker set and documents.
func (r *PostgresRepository) Create(ctx context.Context, task *Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Address,
		task.Latitude,
		task.Longitude,
		task.StartDate,
		task.DueDate,
		task.CreatedBy,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, workerID := range task.WorkerIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO task_workers (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			task.ID, workerID,
		)
		if err != nil {
			return err
		}
	}

	for _, doc := range task.Documents {
		if err := insertDocument(ctx, tx, doc); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update updates a task's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks SET
			title = $2,
			description = $3,
			status = $4,
			address = $5,
			latitude = $6,
			longitude = $7,
			start_date = $8,
			due_date = $9,
			updated_at = $10
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Address,
		task.Latitude,
		task.Longitude,
		task.StartDate,
		task.DueDate,
		task.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// Delete deletes a task. Assignment rows and document metadata cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// AddWorkers adds workers to the task's assigned set.
func (r *PostgresRepository) AddWorkers(ctx context.Context, taskID string, workerIDs []string) error {
	for _, workerID := range workerIDs {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO task_workers (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			taskID, workerID,
		)
		if err != nil {
			return fmt.Errorf("adding worker %s: %w", workerID, err)
		}
	}
	return nil
}

// AddDocuments appends document metadata to a task.
func (r *PostgresRepository) AddDocuments(ctx context.Context, taskID string, docs []*Document) error {
	for _, doc := range docs {
		if err := insertDocument(ctx, r.pool, doc); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertDocument(ctx context.Context, db execer, doc *Document) error {
	query := `
		INSERT INTO task_documents (id, task_id, kind, file_name, file_url, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := db.Exec(ctx, query,
		doc.ID,
		doc.TaskID,
		doc.Kind,
		doc.FileName,
		doc.FileURL,
		doc.UploadedBy,
		doc.UploadedAt,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
