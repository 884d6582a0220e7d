package screens

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"beelogical.com/chat-portal/internal/auth"
	"beelogical.com/chat-portal/internal/core"
	"beelogical.com/chat-portal/internal/store"
)

var ErrScreenNotFound = errors.New("screen not found")

// Backend is what a screen needs from the remote service.
type Backend interface {
	core.Asker
	Links(userID string) []core.Link
}

type Options struct {
	IdleTTL       time.Duration
	EvictInterval time.Duration
}

// Registry tracks mounted screens. Every mount gets a fresh, empty
// conversation, so a page reload never sees a previous transcript.
type Registry struct {
	backend Backend
	now     func() time.Time

	mu            sync.Mutex
	screens       map[string]*Screen
	idleTTL       time.Duration
	evictInterval time.Duration
	evictRunning  bool
}

func NewRegistry(backend Backend, opts Options) *Registry {
	return &Registry{
		backend:       backend,
		now:           time.Now,
		screens:       make(map[string]*Screen),
		idleTTL:       opts.IdleTTL,
		evictInterval: opts.EvictInterval,
	}
}

func (r *Registry) Mount(identity auth.Identity) *Screen {
	now := r.now()
	id := uuid.NewString()
	conv := store.NewConversation()

	screen := &Screen{
		ID:           id,
		Identity:     identity,
		Session:      core.NewChatSession(identity, conv, r.backend),
		Links:        r.backend.Links(identity.UserID),
		MountedAt:    now,
		pool:         NewConnectionPool(id),
		lastActivity: now,
	}
	screen.unsubscribe = conv.Subscribe(func(snap store.Snapshot) {
		screen.Touch(r.now())
		screen.broadcast(snap)
	})

	r.mu.Lock()
	r.screens[id] = screen
	count := len(r.screens)
	r.mu.Unlock()

	log.Debug().Str("screen_id", id).Bool("guest", identity.Guest()).Int("screens", count).Msg("screen mounted")
	return screen
}

func (r *Registry) Get(id string) (*Screen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	screen, ok := r.screens[id]
	if !ok {
		return nil, ErrScreenNotFound
	}
	return screen, nil
}

func (r *Registry) Unmount(id string) bool {
	r.mu.Lock()
	screen, ok := r.screens[id]
	if ok {
		delete(r.screens, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	screen.close()
	log.Debug().Str("screen_id", id).Msg("screen unmounted")
	return true
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Attach adds a live connection to the screen.
func (r *Registry) Attach(screen *Screen, conn *websocket.Conn) {
	screen.pool.Add(conn)
	screen.Touch(r.now())
}

// Detach removes a live connection. When the last one goes away the page
// was closed or reloaded, so the screen is unmounted.
func (r *Registry) Detach(screen *Screen, conn *websocket.Conn) {
	if screen.pool.Remove(conn) {
		r.Unmount(screen.ID)
	}
}

func (r *Registry) StartEvictionLoop(ctx context.Context) {
	r.mu.Lock()
	if r.evictRunning || r.idleTTL <= 0 || r.evictInterval <= 0 {
		r.mu.Unlock()
		return
	}
	r.evictRunning = true
	interval := r.evictInterval
	r.mu.Unlock()

	go r.runEvictionLoop(ctx, interval)
}

func (r *Registry) runEvictionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.evictRunning = false
			r.mu.Unlock()
			return
		case now := <-ticker.C:
			if n := r.evictIdleOnce(now); n > 0 {
				log.Info().Int("evicted", n).Msg("evicted idle screens")
			}
		}
	}
}

func (r *Registry) evictIdleOnce(now time.Time) int {
	r.mu.Lock()
	idle := r.idleTTL
	candidates := make([]*Screen, 0, len(r.screens))
	for _, s := range r.screens {
		candidates = append(candidates, s)
	}
	r.mu.Unlock()

	if idle <= 0 {
		return 0
	}

	evicted := 0
	for _, s := range candidates {
		if !shouldEvict(now, idle, s) {
			continue
		}
		if r.Unmount(s.ID) {
			evicted++
		}
	}
	return evicted
}

func shouldEvict(now time.Time, idle time.Duration, s *Screen) bool {
	if s.pool.Count() > 0 {
		return false
	}
	if s.Conversation().Pending() {
		return false
	}
	return now.Sub(s.LastActivity()) >= idle
}
