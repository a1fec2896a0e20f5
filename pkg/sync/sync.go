// Package sync implements the sync service: draining the persistent
// sync_queue against AniDB (MYLISTADD/MYLISTDEL), with exponential
// backoff retry and a fixed inter-task delay layered on top of the
// protocol client's own rate limiter.
//
// Grounded on pkg/agent/supervisor.go's find-work/act/record-outcome
// loop shape, generalized from SWIM health checks to sync_queue tasks.
package sync

import (
	"context"
	"time"

	"github.com/kraklabs/anidbclient/internal/credentials"
	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/internal/store"
	"github.com/kraklabs/anidbclient/pkg/proto"
)

const (
	defaultInitialRetryDelay = 2 * time.Second
	defaultMaxRetryDelay     = 60 * time.Second
	defaultOperationDelay    = 2100 * time.Millisecond
	// mylist state "on hdd" and viewed=false, per spec §4.10's
	// MYLISTADD dispatch: state=1, viewed=false.
	mylistStateOnHDD = 1
)

// Options tunes one ProcessQueue call.
type Options struct {
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	OperationDelay    time.Duration
	MaxRetries        int
}

func (o Options) initialRetryDelay() time.Duration {
	if o.InitialRetryDelay <= 0 {
		return defaultInitialRetryDelay
	}
	return o.InitialRetryDelay
}

func (o Options) maxRetryDelay() time.Duration {
	if o.MaxRetryDelay <= 0 {
		return defaultMaxRetryDelay
	}
	return o.MaxRetryDelay
}

func (o Options) operationDelay() time.Duration {
	if o.OperationDelay <= 0 {
		return defaultOperationDelay
	}
	return o.OperationDelay
}

func (o Options) maxRetries() int {
	if o.MaxRetries <= 0 {
		return 5
	}
	return o.MaxRetries
}

// Summary counts the outcomes of one ProcessQueue pass.
type Summary struct {
	Processed     int
	Succeeded     int
	AlreadyInList int
	Failed        int
}

// Service composes the protocol client, the store's sync queue, and a
// credential reader into the process_queue(limit) operation.
type Service struct {
	Client *proto.Client
	Store  *store.Store
	Creds  credentials.Reader
}

// NewService constructs a Service from its collaborators.
func NewService(client *proto.Client, st *store.Store, creds credentials.Reader) *Service {
	return &Service{Client: client, Store: st, Creds: creds}
}

// ProcessQueue drains up to limit ready tasks, ordered by the
// repository's (priority desc, scheduled_at asc) ordering, per spec
// §4.10.
func (s *Service) ProcessQueue(ctx context.Context, limit int, opts Options) (*Summary, error) {
	tasks, err := s.Store.SyncQueue.FindReady(time.Now().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		// identify_deferred tasks are not dispatched here; they are
		// left pending (no code in this module drains them).
		if task.Operation == store.SyncOpIdentifyDeferred {
			continue
		}
		if err := s.processOne(ctx, task, opts, summary); err != nil {
			return summary, err
		}
		if i < len(tasks)-1 {
			select {
			case <-ctx.Done():
				return summary, nil
			case <-time.After(opts.operationDelay()):
			}
		}
	}
	return summary, nil
}

func (s *Service) processOne(ctx context.Context, task store.SyncTask, opts Options, summary *Summary) error {
	now := time.Now().UnixMilli()
	if err := s.Store.SyncQueue.UpdateStatus(task.ID, store.SyncStatusInProgress, "", now); err != nil {
		return err
	}
	summary.Processed++

	if err := s.ensureAuthenticated(ctx); err != nil {
		return s.fail(task, opts, summary, err, true)
	}

	var opErr error
	var retriable bool
	switch task.Operation {
	case store.SyncOpMylistAdd:
		retriable, opErr = s.mylistAdd(ctx, task, summary)
	case store.SyncOpMylistDel:
		retriable, opErr = s.mylistDel(ctx, task)
	default:
		retriable, opErr = false, errs.Newf(errs.ValidationInvalidConfiguration, "unknown sync operation %q", task.Operation)
	}

	if opErr == nil {
		return nil
	}
	return s.fail(task, opts, summary, opErr, retriable)
}

func (s *Service) mylistAdd(ctx context.Context, task store.SyncTask, summary *Summary) (retriable bool, err error) {
	h, err := s.Store.Hashes.FindByFileAndAlgorithm(task.FileID, "ed2k")
	if err != nil {
		return false, err
	}
	f, err := s.fileByID(task.FileID)
	if err != nil {
		return false, err
	}
	ir, err := s.Store.IdentResults.FindByFileID(task.FileID)
	if err != nil {
		return false, err
	}

	res, err := s.Client.MylistAdd(ctx, f.Size, h.HashValue, mylistStateOnHDD, false)
	if err != nil {
		return true, err
	}

	now := time.Now().UnixMilli()
	switch res.Outcome {
	case proto.MylistAdded:
		if err := s.Store.IdentResults.UpdateMylistLID(ir.ID, res.Lid); err != nil {
			return false, err
		}
		if err := s.Store.SyncQueue.UpdateStatus(task.ID, store.SyncStatusCompleted, "", now); err != nil {
			return false, err
		}
		summary.Succeeded++
	case proto.MylistAlreadyPresent:
		if err := s.Store.IdentResults.UpdateMylistLID(ir.ID, res.Lid); err != nil {
			return false, err
		}
		if err := s.Store.SyncQueue.UpdateStatus(task.ID, store.SyncStatusCompleted, "already in mylist", now); err != nil {
			return false, err
		}
		summary.AlreadyInList++
	case proto.MylistFileNotFound:
		if err := s.Store.SyncQueue.UpdateStatus(task.ID, store.SyncStatusFailed, "file not found in anidb", now); err != nil {
			return false, err
		}
		summary.Failed++
	}
	return false, nil
}

func (s *Service) mylistDel(ctx context.Context, task store.SyncTask) (retriable bool, err error) {
	ir, err := s.Store.IdentResults.FindByFileID(task.FileID)
	if err != nil {
		return false, err
	}
	if err := s.Client.MylistDel(ctx, ir.AniDBFileID, ir.MylistLID); err != nil {
		return true, err
	}
	return false, s.Store.SyncQueue.UpdateStatus(task.ID, store.SyncStatusCompleted, "", time.Now().UnixMilli())
}

// fail records a task failure, retrying with exponential backoff when
// retriable and the task has budget left, per spec §4.10:
// delay = initial_retry_delay * 2^retry_count, capped at max_retry_delay.
func (s *Service) fail(task store.SyncTask, opts Options, summary *Summary, cause error, retriable bool) error {
	now := time.Now().UnixMilli()
	maxRetries := task.MaxRetries
	if maxRetries <= 0 {
		maxRetries = opts.maxRetries()
	}

	if retriable && task.RetryCount < maxRetries {
		delay := retryDelay(opts.initialRetryDelay(), opts.maxRetryDelay(), task.RetryCount)
		return s.Store.SyncQueue.Retry(task.ID, now, delay.Milliseconds())
	}

	summary.Failed++
	return s.Store.SyncQueue.UpdateStatus(task.ID, store.SyncStatusFailed, cause.Error(), now)
}

func retryDelay(initial, max time.Duration, retryCount int) time.Duration {
	d := initial
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (s *Service) ensureAuthenticated(ctx context.Context) error {
	if s.Client.Session() != nil {
		return nil
	}
	creds, err := s.Creds.Read()
	if err != nil {
		return err
	}
	_, err = s.Client.Authenticate(ctx, creds.Username, creds.Password)
	return err
}

func (s *Service) fileByID(fileID int64) (*store.File, error) {
	return s.Store.Files.FindByID(fileID)
}
