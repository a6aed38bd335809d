package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/lynqit/lynqit/internal/pkg/env"
	metrics "github.com/lynqit/lynqit/internal/pkg/metrics/counter"
)

const (
	counterFlushInterval = 5 * time.Second
	expirySweepInterval  = 10 * time.Minute
	expirySweepBatch     = 100
)

// ExpirySweep demotes pages whose cancelled subscription has ended and
// returns how many it demoted.
type ExpirySweep func(ctx context.Context, limit int) (int, error)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	counterFlushTicker *time.Ticker
	expiryTicker       *time.Ticker
	sweepMu            sync.RWMutex
	expirySweep        ExpirySweep
	flush              func() error
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(NewQueue(env.GetInt("JOBQUEUE_WORKERS", 3)))
	})
	return globalManager
}

// NewManager creates a manager around queue
func NewManager(queue *Queue) *Manager {
	return &Manager{
		queue:  queue,
		flush:  metrics.FlushAll,
		stopCh: make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// SetExpirySweep installs the periodic subscription expiry sweep
func (m *Manager) SetExpirySweep(sweep ExpirySweep) {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	m.expirySweep = sweep
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Redis -> DB counter flush
	m.counterFlushTicker = time.NewTicker(counterFlushInterval)
	m.wg.Add(1)
	go m.counterFlushWorker(m.stopCh)

	if m.sweep() != nil {
		m.expiryTicker = time.NewTicker(expirySweepInterval)
		m.wg.Add(1)
		go m.expiryWorker(m.stopCh)
	}

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

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}
	if m.expiryTicker != nil {
		m.expiryTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Flush what is left so a deploy does not drop counts
	if err := m.flushCountersOnce(); err != nil {
		log.Errorf("[JobQueue Manager] Final counter flush error: %v", err)
	}

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// counterFlushWorker periodically flushes in-memory counters from Redis to DB
func (m *Manager) counterFlushWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := m.flushCountersOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// expiryWorker demotes pages whose cancellation took effect
func (m *Manager) expiryWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started expiry worker (interval: %s)", expirySweepInterval)
	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Expiry worker stopping")
			return
		case <-m.expiryTicker.C:
			if _, err := m.RunExpirySweepOnce(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Expiry sweep error: %v", err)
			}
		}
	}
}

func (m *Manager) flushCountersOnce() error {
	if m.flush == nil {
		return nil
	}
	return m.flush()
}

// RunExpirySweepOnce runs a single expiry sweep (admin use and tests).
func (m *Manager) RunExpirySweepOnce(ctx context.Context) (int, error) {
	sweep := m.sweep()
	if sweep == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := sweep(ctx, expirySweepBatch)
	if n > 0 {
		log.Infof("[JobQueue Manager] Expired %d cancelled subscriptions", n)
	}
	return n, err
}

func (m *Manager) sweep() ExpirySweep {
	m.sweepMu.RLock()
	defer m.sweepMu.RUnlock()
	return m.expirySweep
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
