package session

import (
	"context"
	"sync"

	apperrors "climate-risk-advisor/internal/common/errors"
	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/common/metrics"
)

// Manager serialises the turns of each session and moves state in and
// out of the Store. Different sessions never block each other.
type Manager struct {
	store  Store
	window int
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func NewManager(store Store, window int, log logger.Logger) *Manager {
	return &Manager{
		store:  store,
		window: window,
		logger: log.With(map[string]interface{}{"component": "session"}),
		locks:  make(map[string]*sessionLock),
	}
}

// WithSession runs fn with exclusive access to the session's state and
// saves the state afterwards, even when fn returns an error. Store
// failures never fail the turn: a failed load starts a fresh
// conversation and a failed save only loses the update.
func (m *Manager) WithSession(ctx context.Context, id string, fn func(*State) error) error {
	release, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	state := m.load(ctx, id)
	fnErr := fn(state)

	if err := m.store.Save(ctx, state.snapshot()); err != nil {
		metrics.SessionStoreFailures.WithLabelValues("save").Inc()
		m.logger.Error("failed to save session, continuing without persistence", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
	}
	return fnErr
}

// Reset forgets a session entirely.
func (m *Manager) Reset(ctx context.Context, id string) error {
	release, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := m.store.Delete(ctx, id); err != nil {
		return apperrors.NewSessionStoreError(err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, id string) *State {
	snap, ok, err := m.store.Load(ctx, id)
	if err != nil {
		metrics.SessionStoreFailures.WithLabelValues("load").Inc()
		m.logger.Error("failed to load session, starting fresh", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
		return NewState(id, m.window)
	}
	if !ok {
		m.logger.Debug("starting new session", map[string]interface{}{"sessionId": id})
		return NewState(id, m.window)
	}
	return fromSnapshot(snap, m.window)
}

// acquire takes the per-session lock, giving up when ctx is done.
func (m *Manager) acquire(ctx context.Context, id string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(id, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		m.unref(id, l)
	}, nil
}

func (m *Manager) unref(id string, l *sessionLock) {
	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
	m.mu.Unlock()
}
