package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontdesk-hq/frontdesk-engine/pkg/models"
)

func pendingRequestCreatedAt(t *testing.T, repo *fakeHelpRequestRepo, question string, age time.Duration) *models.HelpRequest {
	t.Helper()
	req := &models.HelpRequest{Question: question}
	require.NoError(t, repo.Create(context.Background(), req))
	repo.mu.Lock()
	repo.requests[req.ID].CreatedAt = time.Now().Add(-age)
	repo.mu.Unlock()
	return req
}

func TestSweepService_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("escalates only requests older than the window", func(t *testing.T) {
		repo := newFakeHelpRequestRepo()
		sweeper := NewSweepService(repo, 24*time.Hour, zap.NewNop())

		stale := pendingRequestCreatedAt(t, repo, "Old question", 25*time.Hour)
		fresh := pendingRequestCreatedAt(t, repo, "New question", time.Hour)

		count, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		staleAfter, err := repo.Get(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnresolved, staleAfter.Status)
		assert.Nil(t, staleAfter.ResolvedAt)
		assert.Nil(t, staleAfter.ResolvedBy)

		freshAfter, err := repo.Get(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, freshAfter.Status)
	})

	t.Run("already terminal requests are untouched", func(t *testing.T) {
		repo := newFakeHelpRequestRepo()
		sweeper := NewSweepService(repo, 24*time.Hour, zap.NewNop())

		resolved := pendingRequestCreatedAt(t, repo, "Old but answered", 48*time.Hour)
		_, err := repo.Resolve(ctx, resolved.ID, "Yes", models.StatusResolved, nil, time.Now())
		require.NoError(t, err)

		count, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		after, err := repo.Get(ctx, resolved.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, after.Status)
	})

	t.Run("resolve committed before the sweep always wins", func(t *testing.T) {
		// The write predicate re-checks status per row, so no interleaving of
		// a committed resolve and a sweep tick may end in UNRESOLVED.
		repo := newFakeHelpRequestRepo()
		sweeper := NewSweepService(repo, 24*time.Hour, zap.NewNop())

		for i := 0; i < 50; i++ {
			req := pendingRequestCreatedAt(t, repo, "Race question", 48*time.Hour)

			_, err := repo.Resolve(ctx, req.ID, "Yes", models.StatusResolved, nil, time.Now())
			require.NoError(t, err)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = sweeper.Sweep(ctx)
			}()
			wg.Wait()

			after, err := repo.Get(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusResolved, after.Status,
				"a concurrently swept record must never lose a committed resolution")

			repo.mu.Lock()
			delete(repo.requests, req.ID)
			repo.mu.Unlock()
		}
	})

	t.Run("non-positive window falls back to the default", func(t *testing.T) {
		repo := newFakeHelpRequestRepo()
		sweeper := NewSweepService(repo, 0, zap.NewNop())

		pendingRequestCreatedAt(t, repo, "Just under a day", 23*time.Hour)

		count, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestSweepService_RunScheduler(t *testing.T) {
	t.Run("sweeps immediately and then on each tick", func(t *testing.T) {
		repo := newFakeHelpRequestRepo()
		sweeper := NewSweepService(repo, 24*time.Hour, zap.NewNop())

		pendingRequestCreatedAt(t, repo, "Old question", 48*time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sweeper.RunScheduler(ctx, 10*time.Millisecond)

		require.Eventually(t, func() bool {
			repo.mu.Lock()
			defer repo.mu.Unlock()
			for _, req := range repo.requests {
				if req.Status != models.StatusUnresolved {
					return false
				}
			}
			return true
		}, 2*time.Second, 5*time.Millisecond)

		// A request going stale later is picked up by a subsequent tick.
		pendingRequestCreatedAt(t, repo, "Another old question", 48*time.Hour)
		require.Eventually(t, func() bool {
			repo.mu.Lock()
			defer repo.mu.Unlock()
			for _, req := range repo.requests {
				if req.Status != models.StatusUnresolved {
					return false
				}
			}
			return true
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("keeps ticking through per-tick errors", func(t *testing.T) {
		repo := newFakeHelpRequestRepo()
		repo.expireErr = context.DeadlineExceeded
		sweeper := NewSweepService(repo, 24*time.Hour, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sweeper.RunScheduler(ctx, 10*time.Millisecond)

		time.Sleep(50 * time.Millisecond)

		// Clearing the error lets the next tick succeed.
		pendingRequestCreatedAt(t, repo, "Old question", 48*time.Hour)
		repo.mu.Lock()
		repo.expireErr = nil
		repo.mu.Unlock()

		require.Eventually(t, func() bool {
			repo.mu.Lock()
			defer repo.mu.Unlock()
			for _, req := range repo.requests {
				if req.Status != models.StatusUnresolved {
					return false
				}
			}
			return len(repo.requests) == 1
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		repo := newFakeHelpRequestRepo()
		sweeper := NewSweepService(repo, 24*time.Hour, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		sweeper.RunScheduler(ctx, 10*time.Millisecond)
		cancel()

		time.Sleep(30 * time.Millisecond)
		pendingRequestCreatedAt(t, repo, "Old question", 48*time.Hour)
		time.Sleep(50 * time.Millisecond)

		after, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, after, 1)
		assert.Equal(t, models.StatusPending, after[0].Status)
	})
}
