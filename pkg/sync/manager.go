package sync

import (
	"context"
	"sync"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
)

// Manager runs Engine operations as background Tasks and tracks them by
// ID, giving a control surface (get_progress/cancel) to callers that
// can't block on a potentially long sync run — the CLI and any future
// API surface both drive the engine through this rather than calling
// Engine directly.
type Manager struct {
	engine *Engine

	mu    sync.Mutex
	tasks map[string]*Task
	stats map[string]Statistics
	cancel map[string]context.CancelFunc
}

// NewManager wraps engine with task tracking.
func NewManager(engine *Engine) *Manager {
	return &Manager{
		engine: engine,
		tasks:  make(map[string]*Task),
		stats:  make(map[string]Statistics),
		cancel: make(map[string]context.CancelFunc),
	}
}

func (m *Manager) register(kind TaskKind) (*Task, context.Context) {
	task := NewTask(kind)
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.cancel[task.ID] = cancel
	m.mu.Unlock()

	task.Start()
	return task, ctx
}

func (m *Manager) finish(task *Task, stats Statistics, err error) {
	m.mu.Lock()
	m.stats[task.ID] = stats
	delete(m.cancel, task.ID)
	m.mu.Unlock()

	task.UpdateProgress(stats.TotalRecords, stats.TotalRecords)
	if task.Status == Cancelled {
		return
	}
	if err != nil {
		task.Fail(err)
		return
	}
	task.Complete()
}

// SyncAllAsync starts a full sync of dbnums in the background and returns
// the task tracking it immediately.
func (m *Manager) SyncAllAsync(dbnums []int32) *Task {
	task, ctx := m.register(SyncAll)
	go func() {
		stats, err := m.engine.FullSync(ctx, dbnums)
		m.finish(task, stats, err)
	}()
	return task
}

// SyncByRefnoAsync starts a full sync of just root's subtree.
func (m *Manager) SyncByRefnoAsync(root model.Refno) *Task {
	task, ctx := m.register(SyncSubtree)
	task.Refno = root
	go func() {
		from, to := m.engine.endpoints()
		subtree, err := from.QuerySubtree(ctx, root, -1, adapter.DefaultQueryContext())
		if err != nil {
			m.finish(task, Statistics{}, err)
			return
		}
		stats, err := m.engine.syncRefnos(ctx, from, to, subtree)
		m.finish(task, stats, err)
	}()
	return task
}

// SyncIncrementalAsync starts an incremental sync in the background.
func (m *Manager) SyncIncrementalAsync(dbnums []int32) *Task {
	task, ctx := m.register(SyncAll)
	go func() {
		stats, err := m.engine.IncrementalSync(ctx, dbnums)
		m.finish(task, stats, err)
	}()
	return task
}

// GetTask returns the task for id, or nil if unknown.
func (m *Manager) GetTask(id string) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// GetProgress returns task id's current progress percentage (0-100) and
// whether the task is known.
func (m *Manager) GetProgress(id string) (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return 0, false
	}
	return task.Progress, true
}

// Cancel requests task id's in-flight run stop. A task that already
// finished is left as-is.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	cancel, ok := m.cancel[id]
	task := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		if task == nil {
			return coreerr.New(coreerr.NotFound, "sync: unknown task %s", id)
		}
		return nil
	}
	cancel()
	task.Cancel()
	return nil
}

// Statistics returns the Statistics recorded for a completed task, if any.
func (m *Manager) Statistics(id string) (Statistics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[id]
	return s, ok
}
