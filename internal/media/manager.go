package media

import (
	"context"
	"fmt"
	"sync"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Producer writes the derivative of src to dst. *Generator implements it.
type Producer interface {
	Generate(ctx context.Context, src, dst string) error
}

// DerivativeRequest asks for the derivative of one photo.
type DerivativeRequest struct {
	PhotoID    int64
	SourcePath string
	TargetPath string
}

// Manager serialises derivative generation per photo. Each Manager owns
// one derivative tree and its own in-flight set.
type Manager struct {
	target   string
	producer Producer
	exists   func(path string) bool

	mu       sync.Mutex
	inFlight map[int64]chan struct{}
}

// NewManager creates a Manager for the named target tree ("preview" or
// "thumbnail").
func NewManager(target string, producer Producer) *Manager {
	return &Manager{
		target:   target,
		producer: producer,
		exists:   filesystem.Exists,
		inFlight: make(map[int64]chan struct{}),
	}
}

// Target returns the name of the derivative tree.
func (m *Manager) Target() string { return m.target }

// RequestDerivative makes sure req.TargetPath exists and reports whether it
// does. If another request for the same photo is generating, it waits for
// that to finish and checks the file again instead of trusting its result.
//
// Generation runs on its own goroutine and is not cancelled with ctx: a
// caller that gives up returns false, the generation completes and the next
// request finds the file.
func (m *Manager) RequestDerivative(ctx context.Context, req DerivativeRequest) bool {
	done, ok := m.claim(ctx, req)
	if !ok {
		return false
	}
	if done == nil {
		metrics.DerivativeRequestsTotal.WithLabelValues(m.target, "hit").Inc()
		return true
	}

	result := make(chan error, 1)
	go func() {
		defer m.release(req.PhotoID, done)
		result <- m.generate(context.WithoutCancel(ctx), req)
	}()

	select {
	case err := <-result:
		if err != nil {
			metrics.DerivativeRequestsTotal.WithLabelValues(m.target, "failed").Inc()
			return false
		}
		metrics.DerivativeRequestsTotal.WithLabelValues(m.target, "generated").Inc()
		return true
	case <-ctx.Done():
		metrics.DerivativeRequestsTotal.WithLabelValues(m.target, "abandoned").Inc()
		return false
	}
}

// claim waits until no generation for the photo is running. It returns a
// nil channel when the target already exists, or the completion channel of
// a freshly registered generation. ok is false when ctx ended first.
func (m *Manager) claim(ctx context.Context, req DerivativeRequest) (done chan struct{}, ok bool) {
	waited := false
	for {
		m.mu.Lock()
		running, busy := m.inFlight[req.PhotoID]
		if !busy {
			if m.exists(req.TargetPath) {
				m.mu.Unlock()
				return nil, true
			}
			done = make(chan struct{})
			m.inFlight[req.PhotoID] = done
			m.mu.Unlock()
			metrics.DerivativesInFlight.WithLabelValues(m.target).Inc()
			return done, true
		}
		m.mu.Unlock()

		if !waited {
			waited = true
			metrics.DerivativeWaits.WithLabelValues(m.target).Inc()
			logging.Debug("Waiting for in-flight %s of photo %d", m.target, req.PhotoID)
		}

		select {
		case <-running:
		case <-ctx.Done():
			metrics.DerivativeRequestsTotal.WithLabelValues(m.target, "abandoned").Inc()
			return nil, false
		}
	}
}

func (m *Manager) release(id int64, done chan struct{}) {
	m.mu.Lock()
	delete(m.inFlight, id)
	m.mu.Unlock()
	close(done)
	metrics.DerivativesInFlight.WithLabelValues(m.target).Dec()
}

func (m *Manager) generate(ctx context.Context, req DerivativeRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic generating %s for photo %d: %v", m.target, req.PhotoID, r)
			logging.Error("%v", err)
		}
	}()
	return m.producer.Generate(ctx, req.SourcePath, req.TargetPath)
}

// InFlight returns the number of generations currently running.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}
