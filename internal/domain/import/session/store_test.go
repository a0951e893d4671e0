package session

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = clock.Now
	return s, clock
}

func sampleSession() *UploadSession {
	return &UploadSession{
		Filename: "jan.csv",
		FileType: "csv",
		Transactions: []ExtractedTransaction{
			{
				Date:              time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Description:       "Walmart Groceries",
				Amount:            decimal.NewFromInt(-50),
				Type:              common.TypeExpense,
				SuggestedCategory: common.CategoryGroceries,
				Confidence:        common.ConfidenceLow,
			},
		},
	}
}

func TestStore_CreateGet(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	user := uuid.New()

	id := s.Create(user, sampleSession())
	require.NotEmpty(t, id)

	got, err := s.Get(user, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, user, got.UserID)
	assert.Len(t, got.Transactions, 1)

	// Returned sessions are copies.
	got.Transactions[0].Description = "mutated"
	again, err := s.Get(user, id)
	require.NoError(t, err)
	assert.Equal(t, "Walmart Groceries", again.Transactions[0].Description)
}

func TestStore_ForeignUserSeesNothing(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	owner, other := uuid.New(), uuid.New()
	id := s.Create(owner, sampleSession())

	_, err := s.Get(other, id)
	assert.ErrorIs(t, err, common.ErrUploadNotFound)
	_, err = s.Claim(other, id)
	assert.ErrorIs(t, err, common.ErrUploadNotFound)
	assert.ErrorIs(t, s.Delete(other, id), common.ErrUploadNotFound)

	_, err = s.Get(owner, id)
	assert.NoError(t, err)
}

func TestStore_ExpiresAfterInactivity(t *testing.T) {
	s, clock := newTestStore(time.Hour)
	user := uuid.New()
	id := s.Create(user, sampleSession())

	clock.Advance(50 * time.Minute)
	_, err := s.Get(user, id)
	require.NoError(t, err, "access refreshes the expiry")

	clock.Advance(50 * time.Minute)
	_, err = s.Get(user, id)
	require.NoError(t, err)

	clock.Advance(61 * time.Minute)
	_, err = s.Get(user, id)
	assert.ErrorIs(t, err, common.ErrUploadNotFound)
}

func TestStore_Update(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	user := uuid.New()
	id := s.Create(user, sampleSession())

	sess, err := s.Get(user, id)
	require.NoError(t, err)
	sess.Filtered = sess.Transactions[:1]
	sess.RangeSelected = true
	require.NoError(t, s.Update(sess))

	got, err := s.Get(user, id)
	require.NoError(t, err)
	assert.True(t, got.RangeSelected)
	assert.Len(t, got.Selected(), 1)

	sess.ID = "missing"
	assert.ErrorIs(t, s.Update(sess), common.ErrUploadNotFound)
}

func TestStore_ClaimIsSingleUse(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	user := uuid.New()
	id := s.Create(user, sampleSession())

	_, err := s.Claim(user, id)
	require.NoError(t, err)

	_, err = s.Claim(user, id)
	assert.ErrorIs(t, err, common.ErrUploadNotFound)
	_, err = s.Get(user, id)
	assert.ErrorIs(t, err, common.ErrUploadNotFound, "claimed sessions are hidden")

	s.Release(user, id)
	_, err = s.Claim(user, id)
	require.NoError(t, err, "released session can be claimed again")

	require.NoError(t, s.Delete(user, id))
	_, err = s.Claim(user, id)
	assert.ErrorIs(t, err, common.ErrUploadNotFound)
}

func TestStore_ConcurrentClaim(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	user := uuid.New()
	id := s.Create(user, sampleSession())

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Claim(user, id); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestStore_Sweep(t *testing.T) {
	s, clock := newTestStore(time.Hour)
	user := uuid.New()

	stale := s.Create(user, sampleSession())
	claimed := s.Create(user, sampleSession())
	_, err := s.Claim(user, claimed)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	fresh := s.Create(user, sampleSession())

	clock.Advance(45 * time.Minute)
	removed := s.Sweep(clock.Now())

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Len())
	_, err = s.Get(user, stale)
	assert.ErrorIs(t, err, common.ErrUploadNotFound)
	_, err = s.Get(user, fresh)
	assert.NoError(t, err)
}

func TestStore_StartStop(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	assert.Error(t, s.Start("not a schedule"))

	require.NoError(t, s.Start("@every 1h"))
	s.Stop()
	s.Stop()
}
