package preview

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bravetux/greetcard/internal/compose"
)

const (
	// DefaultMaxIdle is how long a session survives without being touched.
	// Clients that navigate away never send the delete, so abandoned
	// sessions are swept instead of accumulating.
	DefaultMaxIdle = 15 * time.Minute

	sweepInterval = time.Minute
)

// Hub tracks live preview sessions by id. Sessions idle longer than
// MaxIdle are closed and forgotten by Sweep.
type Hub struct {
	renderer *compose.Renderer
	logger   *zap.Logger

	// MaxIdle may be adjusted before the first Create.
	MaxIdle time.Duration

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*hubEntry
}

type hubEntry struct {
	session  *Session
	lastSeen time.Time
}

func NewHub(renderer *compose.Renderer, logger *zap.Logger) *Hub {
	return &Hub{
		renderer: renderer,
		logger:   logger,
		MaxIdle:  DefaultMaxIdle,
		now:      time.Now,
		sessions: make(map[string]*hubEntry),
	}
}

// Create registers a new session and returns its id.
func (h *Hub) Create() (string, *Session) {
	id := uuid.New().String()
	s := NewSession(h.renderer, h.logger)

	h.mu.Lock()
	h.sessions[id] = &hubEntry{session: s, lastSeen: h.now()}
	h.mu.Unlock()
	return id, s
}

// Get returns the session and refreshes its idle deadline.
func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = h.now()
	return e.session, true
}

// Delete closes and forgets the session.
func (h *Hub) Delete(id string) {
	h.mu.Lock()
	e, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		e.session.Close()
	}
}

// Sweep closes and forgets every session idle longer than MaxIdle and
// reports how many were removed.
func (h *Hub) Sweep() int {
	cutoff := h.now().Add(-h.MaxIdle)

	h.mu.Lock()
	var stale []*Session
	for id, e := range h.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.session)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		h.logger.Info("swept idle preview sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}
