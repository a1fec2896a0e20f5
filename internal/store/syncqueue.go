package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// SyncQueueRepo exposes the `sync_queue` table operations of spec §4.5.
type SyncQueueRepo struct {
	db *sqlx.DB
}

// Enqueue inserts a single pending sync task.
func (r *SyncQueueRepo) Enqueue(t SyncTask) (int64, error) {
	if t.Status == "" {
		t.Status = SyncStatusPending
	}
	if t.MaxRetries == 0 {
		t.MaxRetries = 3
	}
	res, err := r.db.NamedExec(`
		INSERT INTO sync_queue (
			file_id, operation, priority, status, retry_count, max_retries,
			error_message, scheduled_at, last_attempt_at
		) VALUES (
			:file_id, :operation, :priority, :status, :retry_count, :max_retries,
			:error_message, :scheduled_at, :last_attempt_at
		)`, t)
	if err != nil {
		return 0, wrapSQL(errs.IoCorrupt, "enqueue sync task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapSQL(errs.IoCorrupt, "read enqueue last insert id", err)
	}
	return id, nil
}

// BatchEnqueue inserts a batch of pending sync tasks in
// insertChunkSize-row transactions.
func (r *SyncQueueRepo) BatchEnqueue(tasks []SyncTask) error {
	for _, batch := range chunk(tasks, insertChunkSize) {
		if err := r.batchEnqueue(batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *SyncQueueRepo) batchEnqueue(tasks []SyncTask) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "begin batch_enqueue tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`
		INSERT INTO sync_queue (
			file_id, operation, priority, status, retry_count, max_retries,
			error_message, scheduled_at, last_attempt_at
		) VALUES (
			:file_id, :operation, :priority, :status, :retry_count, :max_retries,
			:error_message, :scheduled_at, :last_attempt_at
		)`)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "prepare batch_enqueue", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if t.Status == "" {
			t.Status = SyncStatusPending
		}
		if t.MaxRetries == 0 {
			t.MaxRetries = 3
		}
		if _, err := stmt.Exec(t); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute batch_enqueue", err)
		}
	}
	return wrapSQL(errs.IoCorrupt, "commit batch_enqueue", tx.Commit())
}

// FindReady returns up to limit pending tasks whose scheduled_at has
// arrived, ordered by priority desc, scheduled_at asc.
func (r *SyncQueueRepo) FindReady(now int64, limit int) ([]SyncTask, error) {
	var tasks []SyncTask
	err := r.db.Select(&tasks, `
		SELECT * FROM sync_queue
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT ?`, SyncStatusPending, now, limit)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find ready sync tasks", err)
	}
	return tasks, nil
}

// FindRetriable returns failed tasks that have not exhausted their
// retry budget, in the same priority/schedule order as FindReady.
func (r *SyncQueueRepo) FindRetriable(limit int) ([]SyncTask, error) {
	var tasks []SyncTask
	err := r.db.Select(&tasks, `
		SELECT * FROM sync_queue
		WHERE status = ? AND retry_count < max_retries
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT ?`, SyncStatusFailed, limit)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find retriable sync tasks", err)
	}
	return tasks, nil
}

// UpdateStatus transitions a task's status, sets error_message to
// errMsg (passing "" clears any earlier message) and bumps
// last_attempt_at to now.
func (r *SyncQueueRepo) UpdateStatus(id int64, status SyncStatus, errMsg string, now int64) error {
	_, err := r.db.Exec(`
		UPDATE sync_queue
		SET status = ?, error_message = ?, last_attempt_at = ?
		WHERE id = ?`, status, errMsg, now, id)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "update sync task status", err)
	}
	return nil
}

// Retry increments retry_count, resets status to pending, and
// reschedules scheduled_at to now+delayMs.
func (r *SyncQueueRepo) Retry(id int64, now int64, delayMs int64) error {
	_, err := r.db.Exec(`
		UPDATE sync_queue
		SET retry_count = retry_count + 1,
			status = ?,
			scheduled_at = ?
		WHERE id = ?`, SyncStatusPending, now+delayMs, id)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "retry sync task", err)
	}
	return nil
}

// BatchRetry applies Retry to a set of task IDs sharing the same delay.
func (r *SyncQueueRepo) BatchRetry(ids []int64, now int64, delayMs int64) error {
	for _, batch := range chunk(ids, updateChunkSize) {
		query, args, err := sqlx.In(`
			UPDATE sync_queue
			SET retry_count = retry_count + 1, status = ?, scheduled_at = ?
			WHERE id IN (?)`, SyncStatusPending, now+delayMs, batch)
		if err != nil {
			return wrapSQL(errs.InternalAssertion, "build batch_retry query", err)
		}
		if _, err := r.db.Exec(r.db.Rebind(query), args...); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute batch_retry", err)
		}
	}
	return nil
}

// CancelByFileIDs deletes pending or failed tasks for the given files,
// leaving in-progress or completed tasks untouched.
func (r *SyncQueueRepo) CancelByFileIDs(fileIDs []int64) error {
	for _, batch := range chunk(fileIDs, insertChunkSize) {
		query, args, err := sqlx.In(`
			DELETE FROM sync_queue
			WHERE file_id IN (?) AND status IN (?, ?)`,
			batch, SyncStatusPending, SyncStatusFailed)
		if err != nil {
			return wrapSQL(errs.InternalAssertion, "build cancel_by_file_ids query", err)
		}
		if _, err := r.db.Exec(r.db.Rebind(query), args...); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute cancel_by_file_ids", err)
		}
	}
	return nil
}

// GetFileHistory returns every sync task ever recorded for a file, in
// chronological order.
func (r *SyncQueueRepo) GetFileHistory(fileID int64) ([]SyncTask, error) {
	var tasks []SyncTask
	err := r.db.Select(&tasks,
		`SELECT * FROM sync_queue WHERE file_id = ? ORDER BY id ASC`, fileID)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "get file sync history", err)
	}
	return tasks, nil
}

// GetStats returns counts of tasks by status.
func (r *SyncQueueRepo) GetStats() (*SyncQueueStats, error) {
	var stats SyncQueueStats
	row := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM sync_queue`,
		SyncStatusPending, SyncStatusInProgress, SyncStatusCompleted, SyncStatusFailed)
	if err := row.Scan(&stats.Pending, &stats.InProgress, &stats.Completed, &stats.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &stats, nil
		}
		return nil, wrapSQL(errs.IoCorrupt, "get sync queue stats", err)
	}
	return &stats, nil
}

// ClearCompleted deletes completed tasks whose last_attempt_at is
// older than maxAgeMs before now.
func (r *SyncQueueRepo) ClearCompleted(now int64, maxAgeMs int64) error {
	cutoff := now - maxAgeMs
	_, err := r.db.Exec(`
		DELETE FROM sync_queue WHERE status = ? AND last_attempt_at < ?`,
		SyncStatusCompleted, cutoff)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "clear completed sync tasks", err)
	}
	return nil
}
