package session

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/shopassist/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAcquireCreatesSessionLazily(t *testing.T) {
	t.Parallel()

	backing := make(map[string]*domain.Session)
	store := NewStore(WithSessions(backing))

	snap, release := store.Acquire("tab-1")
	defer release()

	if snap.ID != "tab-1" {
		t.Errorf("expected session id tab-1, got %q", snap.ID)
	}
	if snap.LastQuery != nil {
		t.Error("expected no last query on a new session")
	}
	if _, ok := backing["tab-1"]; !ok {
		t.Error("expected session to be stored in the injected map")
	}
}

func TestSnapshotIsIsolatedFromLaterUpdates(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Update("s", func(sess *domain.Session) {
		sess.LastQuery = &domain.Query{Category: "phone", Filters: domain.Filters{PriceMin: domain.IntPtr(20000)}}
	})

	snap, release := store.Acquire("s")
	release()

	store.Update("s", func(sess *domain.Session) {
		*sess.LastQuery.Filters.PriceMin = 1
		sess.LastQuery.Category = "laptop"
	})

	if snap.LastQuery.Category != "phone" || *snap.LastQuery.Filters.PriceMin != 20000 {
		t.Errorf("snapshot changed after update: %+v", snap.LastQuery)
	}
}

func TestResetClearsQueryAndResults(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Update("s", func(sess *domain.Session) {
		sess.LastQuery = &domain.Query{Category: "laptop"}
		sess.LastResults = []domain.Product{{ID: 1, Name: "Laptop", Price: 100}}
		sess.RecordTurn(domain.RoleUser, "laptops", time.Now())
	})

	store.Reset("s")

	got, ok := store.Get("s")
	if !ok {
		t.Fatal("expected session to survive reset")
	}
	if got.LastQuery != nil || len(got.LastResults) != 0 {
		t.Errorf("expected cleared context, got %+v", got)
	}
	if len(got.History) != 1 {
		t.Errorf("expected history to be kept, got %d turns", len(got.History))
	}
}

func TestUpdateBoundsHistory(t *testing.T) {
	t.Parallel()

	store := NewStore(WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		text := strconv.Itoa(i)
		store.Update("s", func(sess *domain.Session) {
			sess.RecordTurn(domain.RoleUser, text, time.Now())
		})
	}

	got, _ := store.Get("s")
	if len(got.History) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(got.History))
	}
	if got.History[0].Text != "2" || got.History[2].Text != "4" {
		t.Errorf("expected the most recent turns, got %+v", got.History)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now), WithTTL(time.Hour))

	store.Update("old", func(sess *domain.Session) {
		sess.LastQuery = &domain.Query{Category: "laptop", At: clock.Now()}
	})
	clock.Advance(50 * time.Minute)
	store.Update("fresh", func(sess *domain.Session) {
		sess.LastQuery = &domain.Query{Category: "phone", At: clock.Now()}
	})
	clock.Advance(20 * time.Minute)

	evicted := store.Sweep()
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Fatalf("expected only old to be evicted, got %v", evicted)
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("expected fresh session to remain")
	}
}

func TestSweepSkipsPinnedSessions(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now), WithTTL(time.Minute))

	_, release := store.Acquire("busy")
	clock.Advance(time.Hour)

	if evicted := store.Sweep(); len(evicted) != 0 {
		t.Fatalf("expected pinned session to survive, evicted %v", evicted)
	}

	release()
	release() // second call is a no-op

	if evicted := store.Sweep(); len(evicted) != 1 {
		t.Fatalf("expected released session to be evicted, got %v", evicted)
	}
}

func TestSweepOnceInvokesCallback(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now), WithTTL(time.Minute))
	store.Update("a", func(*domain.Session) {})
	store.Update("b", func(*domain.Session) {})
	clock.Advance(2 * time.Minute)

	var got []string
	n := sweepOnce(store, func(key string) { got = append(got, key) })
	if n != 2 || len(got) != 2 {
		t.Fatalf("expected 2 evictions reported, got n=%d callbacks=%v", n, got)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "tab-" + strconv.Itoa(i%5)
			_, release := store.Acquire(key)
			store.Update(key, func(sess *domain.Session) {
				sess.RecordTurn(domain.RoleUser, "hi", time.Now())
			})
			release()
			store.Sweep()
		}(i)
	}
	wg.Wait()

	if store.Len() != 5 {
		t.Errorf("expected 5 sessions, got %d", store.Len())
	}
}
