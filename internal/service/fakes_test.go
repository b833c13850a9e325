package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"builders-core/internal/models"
)

// In-memory store doubles shared by the service tests. They implement the
// same conditional-update semantics as the SQL layer so the race handling
// in the services is exercised for real.

type fakeStore struct {
	mu       sync.Mutex
	listings map[int64]*models.Listing
	orders   map[int64]*models.ServiceOrder
	featured map[int64]*models.FeaturedEntry
	wallets  map[int64]*models.Wallet
	wagers   map[int64]*models.Wager
	projects map[int64]*models.Project
	ledger   []models.LedgerEntry
	nextID   int64
	nextPos  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings: make(map[int64]*models.Listing),
		orders:   make(map[int64]*models.ServiceOrder),
		featured: make(map[int64]*models.FeaturedEntry),
		wallets:  make(map[int64]*models.Wallet),
		wagers:   make(map[int64]*models.Wager),
		projects: make(map[int64]*models.Project),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// --- ListingStore ---

func (f *fakeStore) CreateListing(ctx context.Context, listing *models.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing.ID = f.id()
	cp := *listing
	f.listings[listing.ID] = &cp
	return nil
}

func (f *fakeStore) GetListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) GetListingsByUserID(ctx context.Context, userID int64) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Listing
	for _, l := range f.listings {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) BeginListingCheckout(ctx context.Context, listingID int64, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok || l.Status != models.ListingStatusDraft {
		return false, nil
	}
	l.Status = models.ListingStatusPendingPayment
	l.CheckoutSession = &sessionID
	return true, nil
}

func (f *fakeStore) ActivateListing(ctx context.Context, listingID int64, paymentRef string, activatedAt, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok || l.Status != models.ListingStatusPendingPayment {
		return false, nil
	}
	l.Status = models.ListingStatusActive
	l.PaymentReference = &paymentRef
	l.ActivatedAt = &activatedAt
	l.ExpiresAt = &expiresAt
	return true, nil
}

func (f *fakeStore) ExpireListing(ctx context.Context, listingID int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok || !l.ExpiredBy(now) {
		return false, nil
	}
	l.Status = models.ListingStatusExpired
	return true, nil
}

func (f *fakeStore) CancelListing(ctx context.Context, listingID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok || l.UserID != userID {
		return false, nil
	}
	switch l.Status {
	case models.ListingStatusDraft, models.ListingStatusPendingPayment, models.ListingStatusActive:
		l.Status = models.ListingStatusCancelled
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) DeleteListing(ctx context.Context, listingID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok || l.UserID != userID {
		return false, nil
	}
	delete(f.listings, listingID)
	return true, nil
}

// --- OrderStore ---

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.ServiceOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = f.id()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id int64) (*models.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.ServiceOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ServiceOrder
	for _, o := range f.orders {
		if o.BuyerID == userID || o.SellerID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) TransitionOrder(ctx context.Context, orderID int64, from, to string, deliveredAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return true, nil
}

// --- FeaturedStore ---

func (f *fakeStore) CreateFeaturedEntry(ctx context.Context, entry *models.FeaturedEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.id()
	cp := *entry
	f.featured[entry.ID] = &cp
	return nil
}

func (f *fakeStore) GetFeaturedEntryByID(ctx context.Context, id int64) (*models.FeaturedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.featured[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) BeginFeaturedCheckout(ctx context.Context, entryID int64, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.featured[entryID]
	if !ok || e.Status != models.FeaturedStatusPendingPayment {
		return false, nil
	}
	e.CheckoutSession = &sessionID
	return true, nil
}

func (f *fakeStore) MarkFeaturedPaid(ctx context.Context, entryID int64, paymentRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.featured[entryID]
	if !ok || e.Status != models.FeaturedStatusPendingPayment {
		return false, nil
	}
	e.Status = models.FeaturedStatusPaid
	e.PaymentReference = &paymentRef
	f.nextPos++
	pos := f.nextPos
	e.QueuePosition = &pos
	return true, nil
}

func (f *fakeStore) GetCurrentFeatured(ctx context.Context, now time.Time) (*models.FeaturedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.featured {
		if e.Status == models.FeaturedStatusFeatured && e.ExpiresAt != nil && e.ExpiresAt.After(now) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) CompleteStaleFeatured(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.featured {
		if e.Status == models.FeaturedStatusFeatured && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			e.Status = models.FeaturedStatusCompleted
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) NextQueued(ctx context.Context) (*models.FeaturedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.FeaturedEntry
	for _, e := range f.featured {
		if e.Status != models.FeaturedStatusPaid || e.QueuePosition == nil {
			continue
		}
		if best == nil || *e.QueuePosition < *best.QueuePosition {
			best = e
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeStore) PromoteFeatured(ctx context.Context, entryID int64, featuredAt, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.featured[entryID]
	if !ok || e.Status != models.FeaturedStatusPaid {
		return false, nil
	}
	e.Status = models.FeaturedStatusFeatured
	e.FeaturedAt = &featuredAt
	e.ExpiresAt = &expiresAt
	return true, nil
}

func (f *fakeStore) CompleteFeatured(ctx context.Context, entryID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.featured[entryID]
	if !ok || e.Status != models.FeaturedStatusFeatured {
		return false, nil
	}
	e.Status = models.FeaturedStatusCompleted
	return true, nil
}

// --- WagerStore ---

func (f *fakeStore) GetOrCreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[userID]
	if !ok {
		w = &models.Wallet{UserID: userID}
		f.wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) GetBalance(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[userID]
	if !ok {
		return 0, models.ErrNotFound
	}
	return w.Balance, nil
}

func (f *fakeStore) AdjustBalance(ctx context.Context, userID, delta int64, reason string, wagerID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adjustLocked(userID, delta, reason, wagerID)
}

func (f *fakeStore) adjustLocked(userID, delta int64, reason string, wagerID *int64) error {
	w, ok := f.wallets[userID]
	if !ok {
		w = &models.Wallet{UserID: userID}
		f.wallets[userID] = w
	}
	if w.Balance+delta < 0 {
		return models.ErrInsufficientFunds
	}
	w.Balance += delta
	f.ledger = append(f.ledger, models.LedgerEntry{
		UserID:  userID,
		Delta:   delta,
		Reason:  reason,
		WagerID: wagerID,
	})
	return nil
}

func (f *fakeStore) PlaceWager(ctx context.Context, wager *models.Wager) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wager.ID = f.id()
	if err := f.adjustLocked(wager.UserID, -wager.StakeTokens, models.LedgerReasonWagerStake, &wager.ID); err != nil {
		return err
	}
	cp := *wager
	f.wagers[wager.ID] = &cp
	return nil
}

func (f *fakeStore) SettleWager(ctx context.Context, wagerID int64, outcome string, payout int64) (*models.Wager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wagers[wagerID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if w.Status != models.WagerStatusPending {
		return nil, models.ErrAlreadyProcessed
	}
	w.Status = outcome
	w.PayoutTokens = payout
	if payout > 0 {
		reason := models.LedgerReasonWagerPayout
		if outcome == models.WagerStatusVoid {
			reason = models.LedgerReasonWagerRefund
		}
		if err := f.adjustLocked(w.UserID, payout, reason, &wagerID); err != nil {
			return nil, err
		}
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) GetWagerByID(ctx context.Context, id int64) (*models.Wager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wagers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) GetWagersByUserID(ctx context.Context, userID int64) ([]models.Wager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Wager
	for _, w := range f.wagers {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetPendingWagersByProject(ctx context.Context, projectID int64) ([]models.Wager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Wager
	for _, w := range f.wagers {
		if w.ProjectID == projectID && w.Status == models.WagerStatusPending {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateProject(ctx context.Context, project *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	project.ID = f.id()
	cp := *project
	f.projects[project.ID] = &cp
	return nil
}

func (f *fakeStore) GetProjectByID(ctx context.Context, id int64) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetLedgerByUserID(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range f.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeEffects records emitted side effects for assertions.
type fakeEffects struct {
	mu               sync.Mutex
	listingActivated []int64
	listingExpired   []int64
	orderTransitions []string
	featuredPromoted []int64
	wagersPlaced     []int64
	wagersSettled    []int64
}

func (f *fakeEffects) ListingActivated(ctx context.Context, listing *models.Listing, paymentRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listingActivated = append(f.listingActivated, listing.ID)
}

func (f *fakeEffects) ListingExpired(ctx context.Context, listing *models.Listing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listingExpired = append(f.listingExpired, listing.ID)
}

func (f *fakeEffects) OrderStatusChanged(ctx context.Context, order *models.ServiceOrder, fromStatus string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderTransitions = append(f.orderTransitions, fromStatus+"->"+order.Status)
}

func (f *fakeEffects) FeaturedPromoted(ctx context.Context, entry *models.FeaturedEntry, forced bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.featuredPromoted = append(f.featuredPromoted, entry.ID)
}

func (f *fakeEffects) WagerPlaced(ctx context.Context, wager *models.Wager) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wagersPlaced = append(f.wagersPlaced, wager.ID)
}

func (f *fakeEffects) WagerSettled(ctx context.Context, wager *models.Wager) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wagersSettled = append(f.wagersSettled, wager.ID)
}
