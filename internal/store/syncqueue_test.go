package store

import "testing"

func TestSyncQueueRepo_EnqueueAndFindReady(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/j.mkv")

	taskID, err := s.SyncQueue.Enqueue(SyncTask{
		FileID: id, Operation: SyncOpMylistAdd, Priority: 1, ScheduledAt: 100,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if taskID == 0 {
		t.Fatal("expected a nonzero task id")
	}

	ready, err := s.SyncQueue.FindReady(100, 10)
	if err != nil {
		t.Fatalf("FindReady() error = %v", err)
	}
	if len(ready) != 1 || ready[0].ID != taskID {
		t.Fatalf("FindReady(100) = %+v, want the enqueued task", ready)
	}

	notYet, err := s.SyncQueue.FindReady(50, 10)
	if err != nil {
		t.Fatalf("FindReady() error = %v", err)
	}
	if len(notYet) != 0 {
		t.Fatalf("FindReady(50) = %+v, want none (scheduled_at is in the future)", notYet)
	}
}

func TestSyncQueueRepo_FindReadyOrdersByPriorityThenSchedule(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/k.mkv")

	low, _ := s.SyncQueue.Enqueue(SyncTask{FileID: id, Operation: SyncOpMylistAdd, Priority: 0, ScheduledAt: 10})
	high, _ := s.SyncQueue.Enqueue(SyncTask{FileID: id, Operation: SyncOpMylistAdd, Priority: 5, ScheduledAt: 20})

	ready, err := s.SyncQueue.FindReady(100, 10)
	if err != nil {
		t.Fatalf("FindReady() error = %v", err)
	}
	if len(ready) != 2 || ready[0].ID != high || ready[1].ID != low {
		t.Fatalf("FindReady() order = %+v, want higher priority first", ready)
	}
}

func TestSyncQueueRepo_Retry(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/l.mkv")

	taskID, err := s.SyncQueue.Enqueue(SyncTask{
		FileID: id, Operation: SyncOpMylistAdd, ScheduledAt: 0, Status: SyncStatusFailed, MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := s.SyncQueue.Retry(taskID, 1000, 2000); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	history, err := s.SyncQueue.GetFileHistory(id)
	if err != nil {
		t.Fatalf("GetFileHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("GetFileHistory() = %+v, want 1 task", history)
	}
	task := history[0]
	if task.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", task.RetryCount)
	}
	if task.Status != SyncStatusPending {
		t.Errorf("Status = %v, want pending", task.Status)
	}
	if task.ScheduledAt != 3000 {
		t.Errorf("ScheduledAt = %d, want 3000 (now + delay)", task.ScheduledAt)
	}
}

func TestSyncQueueRepo_FindRetriableExcludesExhausted(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/m.mkv")

	exhausted, _ := s.SyncQueue.Enqueue(SyncTask{
		FileID: id, Operation: SyncOpMylistAdd, ScheduledAt: 0, Status: SyncStatusFailed, RetryCount: 3, MaxRetries: 3,
	})
	retriable, _ := s.SyncQueue.Enqueue(SyncTask{
		FileID: id, Operation: SyncOpMylistAdd, ScheduledAt: 0, Status: SyncStatusFailed, RetryCount: 1, MaxRetries: 3,
	})
	_ = exhausted

	tasks, err := s.SyncQueue.FindRetriable(10)
	if err != nil {
		t.Fatalf("FindRetriable() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != retriable {
		t.Fatalf("FindRetriable() = %+v, want only the task with remaining retry budget", tasks)
	}
}

func TestSyncQueueRepo_CancelByFileIDs(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/n.mkv")

	pending, _ := s.SyncQueue.Enqueue(SyncTask{FileID: id, Operation: SyncOpMylistAdd, ScheduledAt: 0})
	done, _ := s.SyncQueue.Enqueue(SyncTask{FileID: id, Operation: SyncOpMylistDel, ScheduledAt: 0, Status: SyncStatusCompleted})

	if err := s.SyncQueue.CancelByFileIDs([]int64{id}); err != nil {
		t.Fatalf("CancelByFileIDs() error = %v", err)
	}

	history, err := s.SyncQueue.GetFileHistory(id)
	if err != nil {
		t.Fatalf("GetFileHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].ID != done {
		t.Fatalf("history after cancel = %+v, want only the completed task to survive", history)
	}
	_ = pending
}

func TestSyncQueueRepo_GetStats(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/o.mkv")

	statuses := []SyncStatus{SyncStatusPending, SyncStatusPending, SyncStatusCompleted, SyncStatusFailed}
	for _, st := range statuses {
		if _, err := s.SyncQueue.Enqueue(SyncTask{FileID: id, Operation: SyncOpMylistAdd, ScheduledAt: 0, Status: st}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	stats, err := s.SyncQueue.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Pending != 2 || stats.Completed != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want pending=2 completed=1 failed=1", stats)
	}
}

func TestSyncQueueRepo_ClearCompleted(t *testing.T) {
	s := newTestStore(t)
	id := mustInsertFile(t, s, "/media/p.mkv")

	taskID, err := s.SyncQueue.Enqueue(SyncTask{FileID: id, Operation: SyncOpMylistAdd, ScheduledAt: 0, Status: SyncStatusCompleted})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := s.SyncQueue.UpdateStatus(taskID, SyncStatusCompleted, "", 1000); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	if err := s.SyncQueue.ClearCompleted(100000, 1000); err != nil {
		t.Fatalf("ClearCompleted() error = %v", err)
	}

	history, err := s.SyncQueue.GetFileHistory(id)
	if err != nil {
		t.Fatalf("GetFileHistory() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history after ClearCompleted() = %+v, want empty", history)
	}
}
