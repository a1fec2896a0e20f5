package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// HashRepo exposes the `hashes` table operations of spec §4.5.
type HashRepo struct {
	db *sqlx.DB
}

// FindByFileID returns every hash row recorded for a file.
func (r *HashRepo) FindByFileID(fileID int64) ([]Hash, error) {
	var hashes []Hash
	err := r.db.Select(&hashes, `SELECT * FROM hashes WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find hashes by file id", err)
	}
	return hashes, nil
}

// FindByFileAndAlgorithm returns the single hash row for (fileID, algorithm).
func (r *HashRepo) FindByFileAndAlgorithm(fileID int64, algorithm string) (*Hash, error) {
	var h Hash
	err := r.db.Get(&h, `SELECT * FROM hashes WHERE file_id = ? AND algorithm = ?`, fileID, algorithm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.IoFileNotFound, "no hash for that file and algorithm")
	}
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find hash by file and algorithm", err)
	}
	return &h, nil
}

// Upsert inserts or replaces the (file_id, algorithm) hash row.
func (r *HashRepo) Upsert(h Hash) error {
	_, err := r.db.NamedExec(`
		INSERT INTO hashes (file_id, algorithm, hash_value, duration_ms)
		VALUES (:file_id, :algorithm, :hash_value, :duration_ms)
		ON CONFLICT(file_id, algorithm) DO UPDATE SET
			hash_value = excluded.hash_value,
			duration_ms = excluded.duration_ms`, h)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "upsert hash", err)
	}
	return nil
}

// BatchInsert inserts hash rows in insertChunkSize batches.
func (r *HashRepo) BatchInsert(hashes []Hash) error {
	for _, batch := range chunk(hashes, insertChunkSize) {
		if err := r.batchInsert(batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *HashRepo) batchInsert(hashes []Hash) error {
	if len(hashes) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "begin hash batch_insert tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`
		INSERT INTO hashes (file_id, algorithm, hash_value, duration_ms)
		VALUES (:file_id, :algorithm, :hash_value, :duration_ms)
		ON CONFLICT(file_id, algorithm) DO UPDATE SET
			hash_value = excluded.hash_value,
			duration_ms = excluded.duration_ms`)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "prepare hash batch_insert", err)
	}
	defer stmt.Close()

	for _, h := range hashes {
		if _, err := stmt.Exec(h); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute hash batch_insert", err)
		}
	}
	return wrapSQL(errs.IoCorrupt, "commit hash batch_insert", tx.Commit())
}

// FindFilesByEd2k returns the file IDs whose ed2k hash matches value.
func (r *HashRepo) FindFilesByEd2k(value string) ([]int64, error) {
	var ids []int64
	err := r.db.Select(&ids,
		`SELECT file_id FROM hashes WHERE algorithm = 'ed2k' AND hash_value = ?`, value)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find files by ed2k", err)
	}
	return ids, nil
}

// FindDuplicateGroups returns (algorithm, hash_value) groups shared by
// at least minGroupSize distinct files, each with its member file IDs.
func (r *HashRepo) FindDuplicateGroups(minGroupSize int) ([]DuplicateGroup, error) {
	type row struct {
		Algorithm string `db:"algorithm"`
		HashValue string `db:"hash_value"`
	}
	var rows []row
	err := r.db.Select(&rows, `
		SELECT algorithm, hash_value
		FROM hashes
		GROUP BY algorithm, hash_value
		HAVING COUNT(DISTINCT file_id) >= ?`, minGroupSize)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find duplicate groups", err)
	}

	groups := make([]DuplicateGroup, 0, len(rows))
	for _, rw := range rows {
		var ids []int64
		err := r.db.Select(&ids,
			`SELECT DISTINCT file_id FROM hashes WHERE algorithm = ? AND hash_value = ?`,
			rw.Algorithm, rw.HashValue)
		if err != nil {
			return nil, wrapSQL(errs.IoCorrupt, "load duplicate group members", err)
		}
		groups = append(groups, DuplicateGroup{
			Algorithm: rw.Algorithm,
			HashValue: rw.HashValue,
			FileIDs:   ids,
		})
	}
	return groups, nil
}
