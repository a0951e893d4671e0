package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

const (
	DefaultTTL           = time.Hour
	DefaultSweepSchedule = "@every 5m"
)

type entry struct {
	sess    *UploadSession
	claimed bool
}

// Store is a time-bounded cache of upload sessions keyed by an opaque id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	cron *cron.Cron
}

// NewStore creates a store whose sessions expire after ttl without access.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create stores a copy of sess under a new id and returns the id.
func (s *Store) Create(userID uuid.UUID, sess *UploadSession) string {
	now := s.now()
	c := sess.clone()
	c.ID = uuid.NewString()
	c.UserID = userID
	c.CreatedAt = now
	c.LastAccess = now

	s.mu.Lock()
	s.sessions[c.ID] = &entry{sess: c}
	s.mu.Unlock()

	return c.ID
}

// lookup returns the live entry for id. Must be called with s.mu held.
func (s *Store) lookup(userID uuid.UUID, id string, now time.Time) (*entry, error) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, common.ErrUploadNotFound
	}
	if now.Sub(e.sess.LastAccess) > s.ttl {
		delete(s.sessions, id)
		return nil, common.ErrUploadNotFound
	}
	// A foreign session is indistinguishable from a missing one.
	if e.sess.UserID != userID {
		return nil, common.ErrUploadNotFound
	}
	return e, nil
}

// Get returns a copy of the session and refreshes its expiry. Sessions being
// imported are not visible.
func (s *Store) Get(userID uuid.UUID, id string) (*UploadSession, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(userID, id, now)
	if err != nil {
		return nil, err
	}
	if e.claimed {
		return nil, common.ErrUploadNotFound
	}
	e.sess.LastAccess = now
	return e.sess.clone(), nil
}

// Update replaces the stored session with a copy of sess.
func (s *Store) Update(sess *UploadSession) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(sess.UserID, sess.ID, now)
	if err != nil {
		return err
	}
	if e.claimed {
		return common.ErrUploadNotFound
	}
	c := sess.clone()
	c.CreatedAt = e.sess.CreatedAt
	c.LastAccess = now
	e.sess = c
	return nil
}

// Claim atomically takes the session for an import. Only the first caller
// succeeds; later or concurrent callers get ErrUploadNotFound until the
// session is released.
func (s *Store) Claim(userID uuid.UUID, id string) (*UploadSession, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(userID, id, now)
	if err != nil {
		return nil, err
	}
	if e.claimed {
		return nil, common.ErrUploadNotFound
	}
	e.claimed = true
	e.sess.LastAccess = now
	return e.sess.clone(), nil
}

// Release makes a claimed session available again after a failed import.
func (s *Store) Release(userID uuid.UUID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok && e.sess.UserID == userID {
		e.claimed = false
		e.sess.LastAccess = s.now()
	}
}

// Delete removes the session, claimed or not.
func (s *Store) Delete(userID uuid.UUID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.sess.UserID != userID {
		return common.ErrUploadNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until the
// next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops every session idle for longer than the TTL at now and returns
// how many were removed. Claimed sessions are kept until their import ends.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !e.claimed && now.Sub(e.sess.LastAccess) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Start schedules Sweep using a cron spec such as "@every 5m".
func (s *Store) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n := s.Sweep(s.now()); n > 0 {
			s.logger.Info("expired upload sessions removed", slog.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	s.logger.Info("upload session sweeper started",
		slog.String("schedule", schedule),
		slog.Duration("ttl", s.ttl))
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish.
func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
