// Package jobs runs named recurring background jobs. One Manager is
// constructed per process; each running job owns a goroutine whose ticker is
// independent of every other job's.
package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WorkFunc is one job firing. Errors are recorded, never fatal.
type WorkFunc func(ctx context.Context) error

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	At      string `json:"at,omitempty"` // RFC3339
}

type Status struct {
	ID         string  `json:"id"`
	IntervalMs int64   `json:"scheduleIntervalMs"`
	IsRunning  bool    `json:"isRunning"`
	LastRun    string  `json:"lastRun,omitempty"`
	NextRun    string  `json:"nextRun,omitempty"`
	LastResult *Result `json:"lastResult,omitempty"`
}

type job struct {
	id       string
	interval time.Duration
	work     WorkFunc

	running    bool
	lastRun    time.Time
	nextRun    time.Time
	lastResult *Result
	stop       chan struct{}
}

type Manager struct {
	mu     sync.Mutex
	jobs   map[string]*job
	logger *zap.SugaredLogger
	wg     sync.WaitGroup
}

func NewManager(logger *zap.SugaredLogger) *Manager {
	return &Manager{jobs: make(map[string]*job), logger: logger}
}

// Register adds a job definition without starting it. Re-registering an id
// replaces a stopped job and fails for a running one.
func (m *Manager) Register(id string, interval time.Duration, work WorkFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok && j.running {
		return fmt.Errorf("job %s is running, stop it before re-registering", id)
	}
	m.jobs[id] = &job{id: id, interval: interval, work: work}
	return nil
}

// Start arms the job's recurring timer and performs an immediate first run.
// Starting an already-running job is an error; no second timer is created.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown job %s", id)
	}
	if j.running {
		m.mu.Unlock()
		return fmt.Errorf("job %s already running", id)
	}
	j.running = true
	j.stop = make(chan struct{})
	j.nextRun = time.Now().Add(j.interval)
	stop := j.stop
	m.mu.Unlock()

	m.logger.Infow("job started", "job", id, "interval", j.interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		// Immediate first execution, then the recurring timer.
		m.runOnce(j)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A tick can sit buffered while a firing is in progress;
				// if Stop raced it, the stop wins.
				select {
				case <-stop:
					return
				default:
				}
				m.mu.Lock()
				j.nextRun = time.Now().Add(j.interval)
				m.mu.Unlock()
				m.runOnce(j)
			}
		}
	}()
	return nil
}

// Stop clears the job's timer. A firing already in progress completes; the
// next scheduled firing never happens.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	if !j.running {
		return fmt.Errorf("job %s is not running", id)
	}
	close(j.stop)
	j.running = false
	j.nextRun = time.Time{}
	m.logger.Infow("job stopped", "job", id)
	return nil
}

// ExecuteNow runs the job once, immediately, whatever its schedule state.
// The recurring timer's phase is not reset.
func (m *Manager) ExecuteNow(id string) (Result, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("unknown job %s", id)
	}
	m.runOnce(j)
	m.mu.Lock()
	defer m.mu.Unlock()
	return *j.lastResult, nil
}

// runOnce executes one firing with panic containment. A failure is recorded
// in lastResult and logged; it never unwinds past the scheduler.
func (m *Manager) runOnce(j *job) {
	started := time.Now()
	res := &Result{Success: true, At: started.UTC().Format(time.RFC3339)}

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Success = false
				res.Message = fmt.Sprintf("panic: %v", r)
				m.logger.Errorw("job panicked", "job", j.id, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		if err := j.work(context.Background()); err != nil {
			res.Success = false
			res.Message = err.Error()
			m.logger.Errorw("job failed", "job", j.id, "error", err)
		}
	}()

	if res.Success {
		m.logger.Infow("job completed", "job", j.id, "took", time.Since(started))
	}

	m.mu.Lock()
	j.lastRun = started
	j.lastResult = res
	m.mu.Unlock()
}

func (m *Manager) GetStatus(id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Status{}, fmt.Errorf("unknown job %s", id)
	}
	return statusOf(j), nil
}

func (m *Manager) GetAll() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, statusOf(j))
	}
	return out
}

// StopAll stops every running job and waits for in-flight firings.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for _, j := range m.jobs {
		if j.running {
			close(j.stop)
			j.running = false
			j.nextRun = time.Time{}
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func statusOf(j *job) Status {
	s := Status{
		ID:         j.id,
		IntervalMs: j.interval.Milliseconds(),
		IsRunning:  j.running,
	}
	if !j.lastRun.IsZero() {
		s.LastRun = j.lastRun.UTC().Format(time.RFC3339)
	}
	if j.running && !j.nextRun.IsZero() {
		s.NextRun = j.nextRun.UTC().Format(time.RFC3339)
	}
	if j.lastResult != nil {
		r := *j.lastResult
		s.LastResult = &r
	}
	return s
}
