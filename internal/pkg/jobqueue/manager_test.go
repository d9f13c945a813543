package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetManager(t *testing.T) {
	t.Cleanup(func() { SetManager(nil) })

	assert.Nil(t, GetManager())

	m := NewManager(NewQueue(nil, 1))
	SetManager(m)

	assert.Same(t, m, GetManager())
	assert.Same(t, m.queue, GetManager().GetQueue())
}

func TestManager_IsRunning(t *testing.T) {
	manager := NewManager(NewQueue(nil, 1))

	assert.False(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = true
	manager.mu.Unlock()
	assert.True(t, manager.IsRunning())
}

func TestManager_StopWhenNotRunning(t *testing.T) {
	manager := NewManager(NewQueue(nil, 1))
	assert.NotPanics(t, manager.Stop)
}
