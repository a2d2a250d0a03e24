package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/docstore"
	"github.com/pdmscore/graphcore/pkg/storage"
)

func awaitTerminal(t *testing.T, mgr *Manager, id string) *Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task := mgr.GetTask(id)
		require.NotNil(t, task)
		if task.Status != Running && task.Status != Pending {
			return task
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("task did not reach a terminal state in time")
	return nil
}

func TestManagerSyncAllAsyncCompletes(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	seedWorldTree(t, source, 21)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	mgr := NewManager(eng)

	task := mgr.SyncAllAsync([]int32{21})
	final := awaitTerminal(t, mgr, task.ID)

	assert.Equal(t, Completed, final.Status)
	stats, ok := mgr.Statistics(task.ID)
	require.True(t, ok)
	assert.Equal(t, 3, stats.TotalRecords)
}

func TestManagerSyncByRefnoAsyncCompletes(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	_, site, _ := seedWorldTree(t, source, 22)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	mgr := NewManager(eng)

	task := mgr.SyncByRefnoAsync(site)
	final := awaitTerminal(t, mgr, task.ID)

	assert.Equal(t, Completed, final.Status)
	stats, ok := mgr.Statistics(task.ID)
	require.True(t, ok)
	assert.Equal(t, 2, stats.TotalRecords)
}

func TestManagerGetProgressUnknownTask(t *testing.T) {
	mgr := NewManager(NewEngine(docstore.New(storage.NewMemoryEngine()), docstore.New(storage.NewMemoryEngine()), DefaultStrategy(), Filter{}))
	_, ok := mgr.GetProgress("nope")
	assert.False(t, ok)
}

func TestManagerCancelUnknownTaskErrors(t *testing.T) {
	mgr := NewManager(NewEngine(docstore.New(storage.NewMemoryEngine()), docstore.New(storage.NewMemoryEngine()), DefaultStrategy(), Filter{}))
	err := mgr.Cancel("nope")
	assert.Error(t, err)
}

func TestManagerCancelCompletedTaskIsNoop(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	seedWorldTree(t, source, 23)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	mgr := NewManager(eng)

	task := mgr.SyncAllAsync([]int32{23})
	final := awaitTerminal(t, mgr, task.ID)
	require.Equal(t, Completed, final.Status)

	require.NoError(t, mgr.Cancel(task.ID))
	assert.Equal(t, Completed, mgr.GetTask(task.ID).Status)
}
