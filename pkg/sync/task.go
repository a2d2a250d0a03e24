package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/pdmscore/graphcore/pkg/model"
)

// TaskStatus is a Task's lifecycle state.
type TaskStatus int

const (
	Pending TaskStatus = iota
	Running
	Completed
	Failed
	Cancelled
	Paused
)

func (s TaskStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// TaskKind identifies what a Task syncs.
type TaskKind int

const (
	SyncPE TaskKind = iota
	SyncBatchPE
	SyncAttributes
	SyncRelations
	SyncSubtree
	SyncAll
)

// Task is one unit of sync work: a single PE, a batch, a subtree, or the
// whole element set. Refno/Refnos/Depth are populated per Kind.
type Task struct {
	ID     string
	Kind   TaskKind
	Refno  model.Refno
	Refnos []model.Refno
	Depth  int

	Status        TaskStatus
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	Progress      uint8
	ProcessedCount int
	TotalCount     int
	SuccessCount   int
	FailureCount   int
	ErrorMessage   string
	RetryCount     int
}

// NewTask builds a Pending task of the given kind with a fresh id.
func NewTask(kind TaskKind) *Task {
	return &Task{ID: uuid.NewString(), Kind: kind, Status: Pending, CreatedAt: time.Now()}
}

func (t *Task) Start() {
	t.Status = Running
	t.StartedAt = time.Now()
}

func (t *Task) UpdateProgress(processed, total int) {
	t.ProcessedCount = processed
	t.TotalCount = total
	if total > 0 {
		t.Progress = uint8(float64(processed) / float64(total) * 100)
	}
}

func (t *Task) RecordSuccess() {
	t.SuccessCount++
	t.ProcessedCount++
	t.UpdateProgress(t.ProcessedCount, t.TotalCount)
}

func (t *Task) RecordFailure(err error) {
	t.FailureCount++
	t.ProcessedCount++
	if err != nil {
		t.ErrorMessage = err.Error()
	}
	t.UpdateProgress(t.ProcessedCount, t.TotalCount)
}

func (t *Task) Complete() {
	t.Status = Completed
	t.CompletedAt = time.Now()
	t.Progress = 100
}

func (t *Task) Fail(err error) {
	t.Status = Failed
	t.CompletedAt = time.Now()
	if err != nil {
		t.ErrorMessage = err.Error()
	}
}

func (t *Task) Cancel() {
	t.Status = Cancelled
	t.CompletedAt = time.Now()
}

func (t *Task) Pause()  { t.Status = Paused }
func (t *Task) Resume() { t.Status = Running }

// Duration reports how long the task has run, or zero if it hasn't
// started.
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	end := t.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(t.StartedAt)
}

// CanRetry reports whether the task failed and hasn't exhausted maxRetries.
func (t *Task) CanRetry(maxRetries int) bool {
	return t.Status == Failed && t.RetryCount < maxRetries
}

// Retry resets the task to Pending, clearing its error and bumping
// RetryCount.
func (t *Task) Retry() {
	t.RetryCount++
	t.Status = Pending
	t.ErrorMessage = ""
}

// Statistics aggregates the outcome of one or more sync runs.
type Statistics struct {
	TotalTasks      int
	SuccessfulTasks int
	FailedTasks     int
	TotalRecords    int
	SuccessfulRecords int
	FailedRecords   int
	SkippedRecords  int
	TotalDuration   time.Duration
	StartTime       time.Time
	EndTime         time.Time
}

// Merge folds other's counts and time range into s.
func (s *Statistics) Merge(other Statistics) {
	s.TotalTasks += other.TotalTasks
	s.SuccessfulTasks += other.SuccessfulTasks
	s.FailedTasks += other.FailedTasks
	s.TotalRecords += other.TotalRecords
	s.SuccessfulRecords += other.SuccessfulRecords
	s.FailedRecords += other.FailedRecords
	s.SkippedRecords += other.SkippedRecords
	s.TotalDuration += other.TotalDuration

	if !other.StartTime.IsZero() && (s.StartTime.IsZero() || other.StartTime.Before(s.StartTime)) {
		s.StartTime = other.StartTime
	}
	if other.EndTime.After(s.EndTime) {
		s.EndTime = other.EndTime
	}
}

// SuccessRate returns the percentage of TotalRecords that succeeded, or
// 0 if none were processed.
func (s Statistics) SuccessRate() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.SuccessfulRecords) / float64(s.TotalRecords) * 100
}
