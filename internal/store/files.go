package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// FileRepo exposes the `files` table operations of spec §4.5.
type FileRepo struct {
	db *sqlx.DB
}

// FindByPath looks up a file by its unique path.
func (r *FileRepo) FindByPath(path string) (*File, error) {
	var f File
	err := r.db.Get(&f, `SELECT * FROM files WHERE path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.IoFileNotFound, "no file with that path")
	}
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find file by path", err)
	}
	return &f, nil
}

// FindByID looks up a file by its primary key.
func (r *FileRepo) FindByID(id int64) (*File, error) {
	var f File
	err := r.db.Get(&f, `SELECT * FROM files WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.IoFileNotFound, "no file with that id")
	}
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find file by id", err)
	}
	return &f, nil
}

// FindByStatus returns up to limit files in the given status, oldest
// last_checked first.
func (r *FileRepo) FindByStatus(status FileStatus, limit int) ([]File, error) {
	var files []File
	err := r.db.Select(&files,
		`SELECT * FROM files WHERE status = ? ORDER BY last_checked ASC LIMIT ?`,
		status, limit)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find files by status", err)
	}
	return files, nil
}

// UpdateStatus sets status for the given file IDs in updateChunkSize
// batches, inside one transaction per batch.
func (r *FileRepo) UpdateStatus(ids []int64, status FileStatus) error {
	for _, batch := range chunk(ids, updateChunkSize) {
		if err := r.updateStatusBatch(batch, status); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileRepo) updateStatusBatch(ids []int64, status FileStatus) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "begin update_status tx", err)
	}
	defer tx.Rollback()

	query, args, err := sqlx.In(`UPDATE files SET status = ? WHERE id IN (?)`, status, ids)
	if err != nil {
		return wrapSQL(errs.InternalAssertion, "build update_status query", err)
	}
	if _, err := tx.Exec(tx.Rebind(query), args...); err != nil {
		return wrapSQL(errs.IoCorrupt, "execute update_status", err)
	}
	return wrapSQL(errs.IoCorrupt, "commit update_status", tx.Commit())
}

// MetadataUpdate is one row of a batched update_metadata call.
type MetadataUpdate struct {
	ID    int64
	Size  int64
	Mtime int64
}

// UpdateMetadata refreshes size/mtime for a batch of files, in
// updateChunkSize-row transactions.
func (r *FileRepo) UpdateMetadata(updates []MetadataUpdate) error {
	for _, batch := range chunk(updates, updateChunkSize) {
		if err := r.updateMetadataBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileRepo) updateMetadataBatch(updates []MetadataUpdate) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "begin update_metadata tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`UPDATE files SET size = ?, mtime = ? WHERE id = ?`)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "prepare update_metadata", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.Size, u.Mtime, u.ID); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute update_metadata", err)
		}
	}
	return wrapSQL(errs.IoCorrupt, "commit update_metadata", tx.Commit())
}

// MarkDeleted sets status=deleted for the given file IDs, batched.
func (r *FileRepo) MarkDeleted(ids []int64) error {
	return r.UpdateStatus(ids, FileStatusDeleted)
}

// GetFilesToCheck returns files whose last_checked predates olderThan,
// used to drive periodic re-scan.
func (r *FileRepo) GetFilesToCheck(olderThan time.Time) ([]File, error) {
	var files []File
	err := r.db.Select(&files,
		`SELECT * FROM files WHERE last_checked < ? AND status != ? ORDER BY last_checked ASC`,
		olderThan.Unix(), FileStatusDeleted)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "get files to check", err)
	}
	return files, nil
}

// BatchInsert inserts new files in insertChunkSize batches, one
// transaction per batch. Inside each transaction a prepared single-row
// INSERT ... ON CONFLICT(path) DO NOTHING runs once per file; no
// multi-value INSERT statement is issued. It returns only an error, not
// the assigned IDs.
func (r *FileRepo) BatchInsert(files []File) error {
	for _, batch := range chunk(files, insertChunkSize) {
		if err := r.batchInsert(batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileRepo) batchInsert(files []File) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "begin batch_insert tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`
		INSERT INTO files (path, size, mtime, status, last_checked)
		VALUES (:path, :size, :mtime, :status, :last_checked)
		ON CONFLICT(path) DO NOTHING`)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "prepare batch_insert", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if f.Status == "" {
			f.Status = FileStatusPending
		}
		if _, err := stmt.Exec(f); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute batch_insert", err)
		}
	}
	return wrapSQL(errs.IoCorrupt, "commit batch_insert", tx.Commit())
}

// BatchDelete removes files by ID in insertChunkSize batches.
func (r *FileRepo) BatchDelete(ids []int64) error {
	for _, batch := range chunk(ids, insertChunkSize) {
		query, args, err := sqlx.In(`DELETE FROM files WHERE id IN (?)`, batch)
		if err != nil {
			return wrapSQL(errs.InternalAssertion, "build batch_delete query", err)
		}
		if _, err := r.db.Exec(r.db.Rebind(query), args...); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute batch_delete", err)
		}
	}
	return nil
}

// FindFilesWithoutHashes returns up to limit files that have no rows
// in the hashes table yet.
func (r *FileRepo) FindFilesWithoutHashes(limit int) ([]File, error) {
	var files []File
	err := r.db.Select(&files, `
		SELECT f.* FROM files f
		LEFT JOIN hashes h ON h.file_id = f.id
		WHERE h.id IS NULL AND f.status != ?
		ORDER BY f.id ASC
		LIMIT ?`, FileStatusDeleted, limit)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find files without hashes", err)
	}
	return files, nil
}
