package editor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/metrics"
	"github.com/meikuraledutech/canvas/remote"
)

// Workspace holds one Session per agent.
type Workspace struct {
	mu       sync.Mutex
	sessions map[string]*Session
	stops    map[string]func()
	autosave bool

	base     Config
	services remote.Services
	store    canvas.Store
	runner   *remote.Runner
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewWorkspace creates a workspace whose sessions start from base; the
// agent and organization ids are filled in per session.
func NewWorkspace(base Config, services remote.Services, store canvas.Store, runner *remote.Runner, m *metrics.Registry, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{
		sessions: make(map[string]*Session),
		stops:    make(map[string]func()),
		base:     base,
		services: services,
		store:    store,
		runner:   runner,
		metrics:  m,
		logger:   logger,
	}
}

// WithAutosave mirrors every change of every session into the store as
// it happens, on top of the full save on Close.
func (w *Workspace) WithAutosave() *Workspace {
	w.autosave = true
	return w
}

// Open returns the session of agentID, creating and loading it on first
// use. The store is read without holding the workspace lock; when two
// callers race on the same agent the first session installed wins.
func (w *Workspace) Open(ctx context.Context, agentID, organizationID string) (*Session, error) {
	if s, ok := w.Get(agentID); ok {
		return s, nil
	}

	// ids outlive the request that carried them
	agentID = strings.Clone(agentID)
	organizationID = strings.Clone(organizationID)

	cfg := w.base
	cfg.AgentID = agentID
	cfg.OrganizationID = organizationID
	opts := []Option{WithLogger(w.logger)}
	if w.store != nil {
		opts = append(opts, WithStore(w.store))
	}
	if w.runner != nil {
		opts = append(opts, WithRunner(w.runner))
	}
	if w.metrics != nil {
		opts = append(opts, WithMetrics(w.metrics))
	}
	s := New(cfg, w.services, opts...)

	if err := s.Load(ctx); err != nil {
		if !errors.Is(err, canvas.ErrNoStore) {
			return nil, err
		}
		s.Seed()
	}

	w.mu.Lock()
	if existing, ok := w.sessions[agentID]; ok {
		w.mu.Unlock()
		return existing, nil
	}
	w.sessions[agentID] = s
	autosave := w.autosave && w.store != nil
	if autosave {
		w.stops[agentID] = Autosave(s, w.store)
	}
	if w.metrics != nil {
		w.metrics.Sessions.Inc()
	}
	w.mu.Unlock()

	if autosave {
		// the seeded root was never announced to the store
		if err := s.Save(ctx); err != nil {
			w.logger.Warn("initial save failed", zap.String("agent_id", agentID), zap.Error(err))
		}
	}
	w.logger.Info("session opened", zap.String("agent_id", agentID))
	return s, nil
}

// Get returns an open session.
func (w *Workspace) Get(agentID string) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[agentID]
	return s, ok
}

// Close drops a session, saving it first when a store is configured.
func (w *Workspace) Close(ctx context.Context, agentID string) error {
	w.mu.Lock()
	s, ok := w.sessions[agentID]
	stop := w.stops[agentID]
	delete(w.sessions, agentID)
	delete(w.stops, agentID)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	if stop != nil {
		stop()
	}
	if w.metrics != nil {
		w.metrics.Sessions.Dec()
	}
	if w.store == nil {
		return nil
	}
	return s.Save(ctx)
}

// Agents lists the agents with an open session.
func (w *Workspace) Agents() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.sessions))
	for id := range w.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CloseAll closes every open session.
func (w *Workspace) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range w.Agents() {
		if err := w.Close(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
