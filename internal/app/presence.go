package app

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"classquiz-service/internal/domain"
)

// Tracker recomputes the active-user set on a fixed interval for as long
// as a session is running. StartSession begins the loop and EndSession
// cancels it; overlapping ticks are skipped rather than queued.
type Tracker struct {
	users    UserRepository
	liveness LivenessStore
	interval time.Duration
	window   time.Duration
	clock    func() time.Time

	inFlight atomic.Bool

	mu          sync.RWMutex
	cancel      context.CancelFunc
	active      []domain.PublicProfile
	subscribers map[chan []domain.PublicProfile]struct{}
}

// NewTracker builds a tracker over the user store. liveness may be nil.
func NewTracker(users UserRepository, liveness LivenessStore, interval, window time.Duration) *Tracker {
	return &Tracker{
		users:       users,
		liveness:    liveness,
		interval:    interval,
		window:      window,
		clock:       time.Now,
		subscribers: make(map[chan []domain.PublicProfile]struct{}),
	}
}

// WithClock is test-only for deterministic freshness windows.
func (t *Tracker) WithClock(now func() time.Time) { t.clock = now }

// StartSession begins the periodic refresh, heartbeating userID on each
// tick. A previous session, if any, is cancelled first.
func (t *Tracker) StartSession(userID string) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx, userID)
}

// EndSession stops the refresh loop.
func (t *Tracker) EndSession() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()
}

func (t *Tracker) run(ctx context.Context, userID string) {
	t.Refresh(ctx, userID)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Refresh(ctx, userID)
		}
	}
}

// Refresh heartbeats the session user, recomputes the active set from the
// last-active freshness window, and broadcasts the snapshot. A refresh
// already in flight makes this call a no-op.
func (t *Tracker) Refresh(ctx context.Context, userID string) {
	if !t.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer t.inFlight.Store(false)

	now := t.clock()
	if userID != "" {
		err := t.users.Update(ctx, userID, func(cred *domain.StoredCredential) error {
			cred.Active = true
			cred.LastActive = now
			return nil
		})
		if err != nil {
			log.Printf("presence heartbeat for %s: %v", userID, err)
		}
	}

	creds, err := t.users.List(ctx)
	if err != nil {
		log.Printf("presence refresh: %v", err)
		return
	}
	active := make([]domain.PublicProfile, 0, len(creds))
	for _, cred := range creds {
		if now.Sub(cred.LastActive) < t.window {
			active = append(active, cred.Profile())
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })

	if t.liveness != nil {
		for _, profile := range active {
			if err := t.liveness.Mark(ctx, profile.ID, t.window); err != nil {
				log.Printf("presence mark %s: %v", profile.ID, err)
			}
		}
	}

	t.mu.Lock()
	t.active = active
	t.broadcastLocked()
	t.mu.Unlock()
}

// ActiveUsers returns the latest computed snapshot.
func (t *Tracker) ActiveUsers() []domain.PublicProfile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.PublicProfile(nil), t.active...)
}

// Subscribe returns a channel receiving active-set snapshots, starting
// with the current one. The caller must invoke cancel to avoid leaks.
func (t *Tracker) Subscribe() (<-chan []domain.PublicProfile, func()) {
	ch := make(chan []domain.PublicProfile, 8)

	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	initial := append([]domain.PublicProfile(nil), t.active...)
	t.mu.Unlock()

	ch <- initial

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subscribers[ch]; ok {
			delete(t.subscribers, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

func (t *Tracker) broadcastLocked() {
	snapshot := append([]domain.PublicProfile(nil), t.active...)
	for ch := range t.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so a slow reader never blocks the tick.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
