package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetManager(t *testing.T) {
	// Reset the singleton for testing
	globalManager = nil
	managerOnce = sync.Once{}

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")

	assert.NotNil(t, manager1.queue)
	assert.NotNil(t, manager1.stopCh)
	assert.False(t, manager1.running)
	assert.Same(t, manager1.queue, manager1.GetQueue())
}

func TestGetManagerReadsWorkerCount(t *testing.T) {
	t.Setenv("JOBQUEUE_WORKERS", "7")
	globalManager = nil
	managerOnce = sync.Once{}

	assert.Equal(t, 7, GetManager().queue.workers)
}

func TestManager_StopWithoutStart(t *testing.T) {
	manager := NewManager(NewQueueWithClient(nil, 1))

	assert.False(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestManager_RunExpirySweepOnce(t *testing.T) {
	manager := NewManager(NewQueueWithClient(nil, 1))

	n, err := manager.RunExpirySweepOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "no sweep installed")

	var limit int
	manager.SetExpirySweep(func(ctx context.Context, l int) (int, error) {
		limit = l
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 2, nil
	})

	n, err = manager.RunExpirySweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, expirySweepBatch, limit)

	boom := errors.New("db down")
	manager.SetExpirySweep(func(context.Context, int) (int, error) { return 0, boom })
	_, err = manager.RunExpirySweepOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestManager_StopFlushesCounters(t *testing.T) {
	client := redisOrSkip(t)
	manager := NewManager(NewQueueWithClient(client, 1))

	var flushes atomic.Int32
	manager.flush = func() error {
		flushes.Add(1)
		return nil
	}

	manager.Start()
	assert.True(t, manager.IsRunning())
	manager.Start() // second start is a no-op

	manager.Stop()
	assert.False(t, manager.IsRunning())
	assert.GreaterOrEqual(t, flushes.Load(), int32(1))

	// restart after stop
	manager.Start()
	assert.True(t, manager.IsRunning())
	manager.Stop()
}
