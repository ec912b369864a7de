package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkdesk/internal/models"
)

const notifyColumns = `id, task_type, payment_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func scanNotifyTask(row rowScanner) (models.NotifyTask, error) {
	var t models.NotifyTask
	var lastErr sql.NullString
	var processed, next sql.NullTime
	if err := row.Scan(&t.ID, &t.TaskType, &t.PaymentID, &t.Payload, &t.Status, &t.RetryCount, &lastErr,
		&t.CreatedAt, &processed, &next); err != nil {
		return t, err
	}
	if lastErr.Valid {
		t.LastError = &lastErr.String
	}
	t.ProcessedAt = timePtr(processed)
	t.NextRetryAt = timePtr(next)
	return t, nil
}

func (db *DB) EnqueueNotifyTask(ctx context.Context, task *models.NotifyTask) error {
	now := time.Now()
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	res, err := db.ExecContext(ctx, `
        INSERT INTO notify_queue (task_type, payment_id, payload, status, retry_count, created_at, next_retry_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType, task.PaymentID, task.Payload, task.Status, task.RetryCount, now, nullTime(task.NextRetryAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue notify task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notify task id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

func (db *DB) GetNotifyTask(ctx context.Context, id int64) (*models.NotifyTask, error) {
	t, err := scanNotifyTask(db.QueryRowContext(ctx, `SELECT `+notifyColumns+` FROM notify_queue WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "notify task", id)
	}
	return &t, nil
}

// DueNotifyTasks returns pending and retrying tasks whose retry time has come.
func (db *DB) DueNotifyTasks(ctx context.Context, now time.Time, limit int) ([]models.NotifyTask, error) {
	return db.queryNotifyTasks(ctx, `SELECT `+notifyColumns+` FROM notify_queue
        WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
        ORDER BY created_at, id LIMIT ?`,
		models.TaskPending, models.TaskRetry, now, limit)
}

func (db *DB) FailedNotifyTasks(ctx context.Context) ([]models.NotifyTask, error) {
	return db.queryNotifyTasks(ctx, `SELECT `+notifyColumns+` FROM notify_queue
        WHERE status = ? ORDER BY created_at DESC`, models.TaskFailed)
}

func (db *DB) queryNotifyTasks(ctx context.Context, query string, args ...any) ([]models.NotifyTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotifyTask
	for rows.Next() {
		t, err := scanNotifyTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) MarkNotifyTaskDone(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `UPDATE notify_queue SET status = ?, last_error = NULL, next_retry_at = NULL, processed_at = ? WHERE id = ?`,
		models.TaskCompleted, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete notify task: %w", err)
	}
	return expectRow(res, "notify task", id)
}

func (db *DB) MarkNotifyTaskRetry(ctx context.Context, id int64, cause string, next time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`,
		models.TaskRetry, cause, next, id)
	if err != nil {
		return fmt.Errorf("failed to schedule notify retry: %w", err)
	}
	return expectRow(res, "notify task", id)
}

func (db *DB) MarkNotifyTaskFailed(ctx context.Context, id int64, cause string) error {
	res, err := db.ExecContext(ctx, `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ? WHERE id = ?`,
		models.TaskFailed, cause, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to fail notify task: %w", err)
	}
	return expectRow(res, "notify task", id)
}
