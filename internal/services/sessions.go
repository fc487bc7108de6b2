package services

import (
	"context"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/metrics"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	playback *Playback
	lastUsed time.Time
}

// SessionRegistry keeps one Playback per open dashboard view.
type SessionRegistry struct {
	newPlayback func(sessionID string) *Playback
	metrics     *metrics.Collector
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionRegistry builds sessions with newPlayback, which receives the new
// session's ID.
func NewSessionRegistry(newPlayback func(sessionID string) *Playback, m *metrics.Collector) *SessionRegistry {
	return &SessionRegistry{
		newPlayback: newPlayback,
		metrics:     m,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// Open creates an idle playback session and returns its ID.
func (r *SessionRegistry) Open() string {
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = &session{playback: r.newPlayback(id), lastUsed: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SessionsOpen(n)
	return id
}

func (r *SessionRegistry) Get(id string) (*Playback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastUsed = r.now()
	return s.playback, true
}

// Select starts trip on the session's playback. It runs under the registry
// lock so a concurrent Close cannot be followed by a load on a forgotten
// playback. It reports false when the session does not exist.
func (r *SessionRegistry) Select(ctx context.Context, id string, trip domain.Trip) (PlaybackState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return StateIdle, false
	}
	s.lastUsed = r.now()
	s.playback.Select(ctx, trip)
	return s.playback.State(), true
}

// Close closes the session's playback and forgets it.
func (r *SessionRegistry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.playback.Close()
	r.metrics.SessionsOpen(n)
	return true
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions unused for longer than maxIdle and returns how many.
func (r *SessionRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*session
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range stale {
		s.playback.Close()
	}
	if len(stale) > 0 {
		r.metrics.SessionsOpen(n)
	}
	return len(stale)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *SessionRegistry) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(maxIdle); n > 0 {
					log.Printf("closed %d idle playback sessions", n)
				}
			}
		}
	}()
}
