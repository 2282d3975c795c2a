package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/metrics"
)

// TransitionFunc observes session state changes.
type TransitionFunc func(worker WorkerID, from, to State)

// Registry maps each worker to at most one active Session.
type Registry struct {
	factory Factory
	logger  *slog.Logger
	metrics *metrics.Metrics
	observe TransitionFunc
	now     func() time.Time

	mu       sync.Mutex
	sessions map[WorkerID]*Session
	handles  map[string]WorkerID
	inflight map[WorkerID]chan struct{}
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(r *Registry) {
		r.observe = fn
	}
}

func NewRegistry(factory Factory, opts ...Option) *Registry {
	r := &Registry{
		factory:  factory,
		now:      time.Now,
		sessions: make(map[WorkerID]*Session),
		handles:  make(map[string]WorkerID),
		inflight: make(map[WorkerID]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger)
	return r
}

// Acquire returns the worker's active session, creating it on first use.
// On failure the registry holds nothing for the worker.
func (r *Registry) Acquire(ctx context.Context, worker WorkerID, p Profile) (*Session, error) {
	for {
		r.mu.Lock()
		if s, ok := r.sessions[worker]; ok {
			r.mu.Unlock()
			return s, nil
		}
		wait, busy := r.inflight[worker]
		if !busy {
			r.inflight[worker] = make(chan struct{})
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, &AcquireError{Worker: worker, Profile: p.Name, Err: ctx.Err()}
		}
	}

	s, err := r.create(ctx, worker, p)

	r.mu.Lock()
	done := r.inflight[worker]
	delete(r.inflight, worker)
	if err == nil {
		r.sessions[worker] = s
	}
	r.mu.Unlock()
	close(done)

	if err != nil {
		r.metrics.SessionAcquireFailed()
		r.logger.Error("session acquisition failed", "worker", worker, "profile", p.Name, "error", err)
		return nil, err
	}

	r.metrics.SessionAcquired()
	r.transition(worker, Uninitialized, Active)
	r.logger.Debug("session acquired", "worker", worker, "session", s.ID, "handle", s.handle.ID(), "profile", p.Name)
	return s, nil
}

func (r *Registry) create(ctx context.Context, worker WorkerID, p Profile) (*Session, error) {
	if r.factory == nil {
		return nil, &AcquireError{Worker: worker, Profile: p.Name, Err: fmt.Errorf("no factory configured")}
	}

	h, err := r.newHandle(ctx, p)
	if err != nil {
		return nil, &AcquireError{Worker: worker, Profile: p.Name, Err: err}
	}
	if h == nil {
		return nil, &AcquireError{Worker: worker, Profile: p.Name, Err: fmt.Errorf("factory returned no resource")}
	}

	r.mu.Lock()
	owner, taken := r.handles[h.ID()]
	if !taken {
		r.handles[h.ID()] = worker
	}
	r.mu.Unlock()

	if taken {
		// The handle would be shared; give it back without touching the owner's binding.
		if cerr := h.Close(context.WithoutCancel(ctx)); cerr != nil {
			r.logger.Warn("closing duplicate handle", "worker", worker, "handle", h.ID(), "error", cerr)
		}
		return nil, &AcquireError{Worker: worker, Profile: p.Name, Err: fmt.Errorf("handle %s already bound to worker %s", h.ID(), owner)}
	}

	return &Session{
		ID:        uuid.NewString(),
		Worker:    worker,
		Profile:   p.Name,
		CreatedAt: r.now(),
		state:     Active,
		handle:    h,
	}, nil
}

// newHandle calls the factory, turning a panic into an error so the
// worker's in-flight marker is always cleared.
func (r *Registry) newHandle(ctx context.Context, p Profile) (h Resource, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			h, err = nil, fmt.Errorf("factory panicked: %v", rec)
		}
	}()
	return r.factory.Create(ctx, p)
}

// Lookup returns the worker's active session without creating one.
func (r *Registry) Lookup(worker WorkerID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[worker]
	return s, ok
}

// Release tears down the worker's resource. It is safe to call any number
// of times; only the first call after Acquire does work. Teardown failures
// are logged as TeardownError and never returned.
func (r *Registry) Release(ctx context.Context, worker WorkerID) {
	r.mu.Lock()
	s, ok := r.sessions[worker]
	if ok {
		delete(r.sessions, worker)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("release without active session", "worker", worker)
		return
	}

	h := s.close(r.now())
	var terr error
	if h != nil {
		terr = r.teardown(ctx, s, h)
		r.mu.Lock()
		delete(r.handles, h.ID())
		r.mu.Unlock()
	}

	r.metrics.SessionReleased(terr)
	r.transition(worker, Active, Closed)
	if terr != nil {
		r.logger.Warn("session teardown failed", "worker", worker, "session", s.ID, "error", terr)
		return
	}
	r.logger.Debug("session released", "worker", worker, "session", s.ID)
}

func (r *Registry) teardown(ctx context.Context, s *Session, h Resource) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &TeardownError{Worker: s.Worker, SessionID: s.ID, HandleID: h.ID(), Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if cerr := h.Close(ctx); cerr != nil {
		return &TeardownError{Worker: s.Worker, SessionID: s.ID, HandleID: h.ID(), Err: cerr}
	}
	return nil
}

// Active returns the workers that currently hold a session.
func (r *Registry) Active() []WorkerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	workers := make([]WorkerID, 0, len(r.sessions))
	for w := range r.sessions {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i] < workers[j] })
	return workers
}

// Close releases every remaining session and returns how many there were.
func (r *Registry) Close(ctx context.Context) int {
	workers := r.Active()
	for _, w := range workers {
		r.Release(ctx, w)
	}
	if len(workers) > 0 {
		r.logger.Warn("released sessions left open at shutdown", "count", len(workers))
	}
	return len(workers)
}

func (r *Registry) transition(worker WorkerID, from, to State) {
	if r.observe != nil {
		r.observe(worker, from, to)
	}
}
