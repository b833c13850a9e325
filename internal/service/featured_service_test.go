package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"builders-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeaturedService(store *fakeStore) (*FeaturedService, *fakeEffects) {
	effects := &fakeEffects{}
	svc := NewFeaturedService(store, nil, NewLocalCheckoutClient("http://localhost:8080"), effects, testBusinessConfig())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, effects
}

func submitPaid(t *testing.T, svc *FeaturedService, store *fakeStore, userID int64, name string) *models.FeaturedEntry {
	t.Helper()
	ctx := context.Background()
	entry, err := svc.Submit(ctx, &SubmitRequest{UserID: userID, ProjectName: name, ProjectURL: "https://" + name + ".example"})
	require.NoError(t, err)
	_, err = svc.BeginCheckout(ctx, entry.ID, userID, 4900)
	require.NoError(t, err)
	require.NoError(t, svc.MarkFeaturedPaid(ctx, entry.ID, "pi_"+name))
	return entry
}

func TestFeaturedQueueOrderAndLazyPromotion(t *testing.T) {
	store := newFakeStore()
	svc, effects := newTestFeaturedService(store)
	ctx := context.Background()

	first := submitPaid(t, svc, store, 1, "alpha")
	second := submitPaid(t, svc, store, 2, "beta")

	// Empty slot: the first read promotes the earliest-paid entry.
	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, models.FeaturedStatusFeatured, current.Status)
	require.NotNil(t, current.ExpiresAt)

	// While alpha holds the slot, reads keep returning it.
	current, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)

	// Once the window lapses, the next read completes alpha and promotes beta.
	svc.now = func() time.Time { return time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC) }
	current, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	done, err := store.GetFeaturedEntryByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeaturedStatusCompleted, done.Status)

	assert.Equal(t, []int64{first.ID, second.ID}, effects.featuredPromoted)
}

func TestFeaturedEmptyQueue(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestFeaturedService(store)
	ctx := context.Background()

	_, err := svc.Current(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// A submitted-but-unpaid entry is not eligible.
	entry, err := svc.Submit(ctx, &SubmitRequest{UserID: 1, ProjectName: "gamma", ProjectURL: "https://gamma.example"})
	require.NoError(t, err)
	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := store.GetFeaturedEntryByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeaturedStatusPendingPayment, got.Status)
}

func TestMarkFeaturedPaidAssignsPositionOnce(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestFeaturedService(store)
	ctx := context.Background()

	entry, err := svc.Submit(ctx, &SubmitRequest{UserID: 1, ProjectName: "delta", ProjectURL: "https://delta.example"})
	require.NoError(t, err)
	_, err = svc.BeginCheckout(ctx, entry.ID, 1, 4900)
	require.NoError(t, err)

	require.NoError(t, svc.MarkFeaturedPaid(ctx, entry.ID, "pi_delta"))
	paid, err := store.GetFeaturedEntryByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, paid.QueuePosition)
	pos := *paid.QueuePosition

	// Replayed confirmation keeps the original position.
	err = svc.MarkFeaturedPaid(ctx, entry.ID, "pi_replay")
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
	again, err := store.GetFeaturedEntryByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, pos, *again.QueuePosition)
	assert.Equal(t, "pi_delta", *again.PaymentReference)
}

func TestConcurrentReadsPromoteExactlyOne(t *testing.T) {
	store := newFakeStore()
	svc, effects := newTestFeaturedService(store)

	submitPaid(t, svc, store, 1, "epsilon")
	submitPaid(t, svc, store, 2, "zeta")

	var wg sync.WaitGroup
	results := make([]int64, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			current, err := svc.Current(context.Background())
			if err == nil {
				results[i] = current.ID
			}
		}(i)
	}
	wg.Wait()

	// Every reader sees the same single winner.
	winner := results[0]
	require.NotZero(t, winner)
	for _, id := range results {
		assert.Equal(t, winner, id)
	}
	assert.Len(t, effects.featuredPromoted, 1)

	// And only one entry ended up FEATURED.
	featured := 0
	for _, e := range store.featured {
		if e.Status == models.FeaturedStatusFeatured {
			featured++
		}
	}
	assert.Equal(t, 1, featured)
}

func TestForcePromote(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestFeaturedService(store)
	ctx := context.Background()

	first := submitPaid(t, svc, store, 1, "eta")
	second := submitPaid(t, svc, store, 2, "theta")

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, current.ID)

	// Admin jumps theta past the incumbent.
	promoted, err := svc.ForcePromote(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, promoted.ID)
	assert.Equal(t, models.FeaturedStatusFeatured, promoted.Status)

	// The incumbent was completed, not left dangling.
	was, err := store.GetFeaturedEntryByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeaturedStatusCompleted, was.Status)

	current, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	// Only PAID entries can be forced.
	_, err = svc.ForcePromote(ctx, second.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = svc.ForcePromote(ctx, first.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
