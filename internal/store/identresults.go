package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// IdentResultRepo exposes the `anidb_results` table operations of spec §4.5.
type IdentResultRepo struct {
	db *sqlx.DB
}

// FindByHashAndSize is the primary cache lookup keyed on the unique
// (ed2k_hash, file_size) pair.
func (r *IdentResultRepo) FindByHashAndSize(ed2k string, size int64) (*IdentResult, error) {
	var res IdentResult
	err := r.db.Get(&res,
		`SELECT * FROM anidb_results WHERE ed2k_hash = ? AND file_size = ?`, ed2k, size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.IoFileNotFound, "no cached result for that hash and size")
	}
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find ident result by hash and size", err)
	}
	return &res, nil
}

// FindByFileID returns the cached result for a given file, if any.
func (r *IdentResultRepo) FindByFileID(fileID int64) (*IdentResult, error) {
	var res IdentResult
	err := r.db.Get(&res, `SELECT * FROM anidb_results WHERE file_id = ?`, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.IoFileNotFound, "no cached result for that file")
	}
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find ident result by file id", err)
	}
	return &res, nil
}

// FindByAnimeID returns every cached result belonging to an anime.
func (r *IdentResultRepo) FindByAnimeID(animeID int64) ([]IdentResult, error) {
	var results []IdentResult
	err := r.db.Select(&results, `SELECT * FROM anidb_results WHERE anime_id = ?`, animeID)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find ident results by anime id", err)
	}
	return results, nil
}

// FindExpired returns up to limit results whose expires_at has passed.
func (r *IdentResultRepo) FindExpired(now int64, limit int) ([]IdentResult, error) {
	var results []IdentResult
	err := r.db.Select(&results,
		`SELECT * FROM anidb_results WHERE expires_at < ? ORDER BY expires_at ASC LIMIT ?`,
		now, limit)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "find expired ident results", err)
	}
	return results, nil
}

// DeleteExpired removes every result whose expires_at has passed.
func (r *IdentResultRepo) DeleteExpired(now int64) error {
	if _, err := r.db.Exec(`DELETE FROM anidb_results WHERE expires_at < ?`, now); err != nil {
		return wrapSQL(errs.IoCorrupt, "delete expired ident results", err)
	}
	return nil
}

// Upsert inserts or replaces the (ed2k_hash, file_size) result row.
func (r *IdentResultRepo) Upsert(res IdentResult) error {
	_, err := r.db.NamedExec(`
		INSERT INTO anidb_results (
			file_id, ed2k_hash, file_size, anidb_file_id, anime_id, episode_id, episode_number,
			titles, group_name, group_short, quality, codec, mylist_lid,
			fetched_at, expires_at
		) VALUES (
			:file_id, :ed2k_hash, :file_size, :anidb_file_id, :anime_id, :episode_id, :episode_number,
			:titles, :group_name, :group_short, :quality, :codec, :mylist_lid,
			:fetched_at, :expires_at
		)
		ON CONFLICT(ed2k_hash, file_size) DO UPDATE SET
			file_id = excluded.file_id,
			anidb_file_id = excluded.anidb_file_id,
			anime_id = excluded.anime_id,
			episode_id = excluded.episode_id,
			episode_number = excluded.episode_number,
			titles = excluded.titles,
			group_name = excluded.group_name,
			group_short = excluded.group_short,
			quality = excluded.quality,
			codec = excluded.codec,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`, res)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "upsert ident result", err)
	}
	return nil
}

// BatchInsert inserts result rows in insertChunkSize batches.
func (r *IdentResultRepo) BatchInsert(results []IdentResult) error {
	for _, batch := range chunk(results, insertChunkSize) {
		if err := r.batchInsert(batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *IdentResultRepo) batchInsert(results []IdentResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "begin ident batch_insert tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`
		INSERT INTO anidb_results (
			file_id, ed2k_hash, file_size, anidb_file_id, anime_id, episode_id, episode_number,
			titles, group_name, group_short, quality, codec, mylist_lid,
			fetched_at, expires_at
		) VALUES (
			:file_id, :ed2k_hash, :file_size, :anidb_file_id, :anime_id, :episode_id, :episode_number,
			:titles, :group_name, :group_short, :quality, :codec, :mylist_lid,
			:fetched_at, :expires_at
		)
		ON CONFLICT(ed2k_hash, file_size) DO NOTHING`)
	if err != nil {
		return wrapSQL(errs.IoCorrupt, "prepare ident batch_insert", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.Exec(res); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute ident batch_insert", err)
		}
	}
	return wrapSQL(errs.IoCorrupt, "commit ident batch_insert", tx.Commit())
}

// BatchUpdateExpiration sets expires_at for the given result IDs.
func (r *IdentResultRepo) BatchUpdateExpiration(ids []int64, expiresAt int64) error {
	for _, batch := range chunk(ids, updateChunkSize) {
		query, args, err := sqlx.In(
			`UPDATE anidb_results SET expires_at = ? WHERE id IN (?)`, expiresAt, batch)
		if err != nil {
			return wrapSQL(errs.InternalAssertion, "build batch_update_expiration query", err)
		}
		if _, err := r.db.Exec(r.db.Rebind(query), args...); err != nil {
			return wrapSQL(errs.IoCorrupt, "execute batch_update_expiration", err)
		}
	}
	return nil
}

// BatchMarkDeprecated forces the given results to expire immediately,
// so the next identify call refreshes them from the network.
func (r *IdentResultRepo) BatchMarkDeprecated(ids []int64) error {
	return r.BatchUpdateExpiration(ids, 0)
}

// UpdateMylistLID patches the mylist_lid column after a successful
// MYLISTADD, without disturbing the rest of the cached result.
func (r *IdentResultRepo) UpdateMylistLID(id int64, lid int64) error {
	if _, err := r.db.Exec(`UPDATE anidb_results SET mylist_lid = ? WHERE id = ?`, lid, id); err != nil {
		return wrapSQL(errs.IoCorrupt, "update mylist lid", err)
	}
	return nil
}

// GetAnimeStatistics aggregates file count, total size, and distinct
// episode coverage per anime.
func (r *IdentResultRepo) GetAnimeStatistics() ([]AnimeStatistic, error) {
	var stats []AnimeStatistic
	err := r.db.Select(&stats, `
		SELECT
			ar.anime_id AS anime_id,
			COUNT(DISTINCT ar.file_id) AS file_count,
			COALESCE(SUM(f.size), 0) AS total_size,
			COUNT(DISTINCT ar.episode_id) AS episode_count
		FROM anidb_results ar
		JOIN files f ON f.id = ar.file_id
		WHERE ar.anime_id != 0
		GROUP BY ar.anime_id
		ORDER BY ar.anime_id ASC`)
	if err != nil {
		return nil, wrapSQL(errs.IoCorrupt, "get anime statistics", err)
	}
	return stats, nil
}
