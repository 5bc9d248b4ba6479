package authenticator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_CompletesAt100(t *testing.T) {
	var mu sync.Mutex
	var reports []int
	task := StartTask(40*time.Millisecond, 2*time.Millisecond, func(p int) {
		mu.Lock()
		reports = append(reports, p)
		mu.Unlock()
	})

	require.NoError(t, task.Wait(context.Background()))
	assert.Equal(t, 100, task.Progress())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reports)
	assert.Equal(t, 100, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i], reports[i-1])
	}
}

func TestTask_ZeroDelay(t *testing.T) {
	task := StartTask(0, 0, nil)

	select {
	case <-task.Done():
	default:
		t.Fatal("zero-delay task should be done immediately")
	}
	assert.NoError(t, task.Wait(context.Background()))
	assert.Equal(t, 100, task.Progress())
}

func TestTask_Stop(t *testing.T) {
	task := StartTask(time.Hour, time.Millisecond, nil)
	task.Stop()
	task.Stop()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("stopped task did not finish")
	}
	assert.ErrorIs(t, task.Wait(context.Background()), ErrTaskStopped)
	assert.Less(t, task.Progress(), 100)
}

func TestTask_StopAfterCompletion(t *testing.T) {
	task := StartTask(time.Millisecond, time.Millisecond, nil)
	require.NoError(t, task.Wait(context.Background()))

	task.Stop()
	assert.NoError(t, task.Wait(context.Background()))
}
