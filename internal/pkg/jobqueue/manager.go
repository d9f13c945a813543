package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Manager owns the job queue and its background reporting
type Manager struct {
	queue       *Queue
	statsTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerMu     sync.RWMutex
)

// NewManager creates a manager for q
func NewManager(q *Queue) *Manager {
	return &Manager{
		queue:  q,
		stopCh: make(chan struct{}),
	}
}

// SetManager installs the process-wide manager
func SetManager(m *Manager) {
	managerMu.Lock()
	defer managerMu.Unlock()
	globalManager = m
}

// GetManager returns the process-wide manager, or nil before SetManager
func GetManager() *Manager {
	managerMu.RLock()
	defer managerMu.RUnlock()
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	m.statsTicker = time.NewTicker(5 * time.Minute)
	m.wg.Add(1)
	go m.statsWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.statsTicker != nil {
		m.statsTicker.Stop()
	}
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// statsWorker periodically logs queue depth
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.statsTicker.C:
			m.logStats()
		}
	}
}

func (m *Manager) logStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Failed to read queue size: %v", err)
		return
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Failed to read processing size: %v", err)
		return
	}
	log.Infof("[JobQueue Manager] Queue depth: pending=%d processing=%d", pending, processing)
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
