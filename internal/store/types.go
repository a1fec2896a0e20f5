package store

// FileStatus is the lifecycle state of a discovered file (spec §3).
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusHashed     FileStatus = "hashed"
	FileStatusIdentified FileStatus = "identified"
	FileStatusDeleted    FileStatus = "deleted"
)

// File mirrors the `files` table.
type File struct {
	ID          int64      `db:"id"`
	Path        string     `db:"path"`
	Size        int64      `db:"size"`
	Mtime       int64      `db:"mtime"`
	Status      FileStatus `db:"status"`
	LastChecked int64      `db:"last_checked"`
}

// Hash mirrors the `hashes` table.
type Hash struct {
	ID         int64  `db:"id"`
	FileID     int64  `db:"file_id"`
	Algorithm  string `db:"algorithm"`
	HashValue  string `db:"hash_value"`
	DurationMs int64  `db:"duration_ms"`
}

// Titles holds the localized anime titles carried as a CBOR blob on
// IdentResult, since they are never queried by field.
type Titles struct {
	Romaji  string `cbor:"romaji,omitempty"`
	Kanji   string `cbor:"kanji,omitempty"`
	English string `cbor:"english,omitempty"`
}

// IdentResult mirrors the `anidb_results` table.
type IdentResult struct {
	ID            int64  `db:"id"`
	FileID        int64  `db:"file_id"`
	Ed2kHash      string `db:"ed2k_hash"`
	FileSize      int64  `db:"file_size"`
	AniDBFileID   int64  `db:"anidb_file_id"`
	AnimeID       int64  `db:"anime_id"`
	EpisodeID     int64  `db:"episode_id"`
	EpisodeNumber string `db:"episode_number"`
	Titles        []byte `db:"titles"`
	GroupName     string `db:"group_name"`
	GroupShort    string `db:"group_short"`
	Quality       string `db:"quality"`
	Codec         string `db:"codec"`
	MylistLID     int64  `db:"mylist_lid"`
	FetchedAt     int64  `db:"fetched_at"`
	ExpiresAt     int64  `db:"expires_at"`
}

// SyncOperation enumerates sync_queue.operation values.
type SyncOperation string

const (
	SyncOpMylistAdd        SyncOperation = "mylist_add"
	SyncOpMylistDel        SyncOperation = "mylist_del"
	SyncOpIdentifyDeferred SyncOperation = "identify_deferred"
)

// SyncStatus enumerates sync_queue.status values.
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

// SyncTask mirrors the `sync_queue` table.
type SyncTask struct {
	ID            int64         `db:"id"`
	FileID        int64         `db:"file_id"`
	Operation     SyncOperation `db:"operation"`
	Priority      int           `db:"priority"`
	Status        SyncStatus    `db:"status"`
	RetryCount    int           `db:"retry_count"`
	MaxRetries    int           `db:"max_retries"`
	ErrorMessage  string        `db:"error_message"`
	ScheduledAt   int64         `db:"scheduled_at"`
	LastAttemptAt int64         `db:"last_attempt_at"`
}

// DuplicateGroup is the result row of HashRepo.FindDuplicateGroups.
type DuplicateGroup struct {
	Algorithm string  `db:"algorithm"`
	HashValue string  `db:"hash_value"`
	FileIDs   []int64 `db:"-"`
}

// AnimeStatistic is one row of IdentResultRepo.GetAnimeStatistics.
type AnimeStatistic struct {
	AnimeID      int64 `db:"anime_id"`
	FileCount    int64 `db:"file_count"`
	TotalSize    int64 `db:"total_size"`
	EpisodeCount int64 `db:"episode_count"`
}

// SyncQueueStats is the result of SyncQueueRepo.GetStats.
type SyncQueueStats struct {
	Pending    int64 `db:"pending"`
	InProgress int64 `db:"in_progress"`
	Completed  int64 `db:"completed"`
	Failed     int64 `db:"failed"`
}
