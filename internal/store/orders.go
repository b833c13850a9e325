package store

import (
	"context"
	"database/sql"
	"time"

	"builders-core/internal/models"
)

// CreateOrder inserts a new service order in PENDING_ACCEPTANCE.
func (s *Store) CreateOrder(ctx context.Context, order *models.ServiceOrder) error {
	query := `
		INSERT INTO service_orders (listing_id, buyer_id, seller_id, price_cents, status, payment_reference)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.ListingID, order.BuyerID, order.SellerID, order.PriceCents,
		order.Status, order.PaymentReference)
}

// GetOrderByID retrieves a service order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM service_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders where the user is buyer or seller
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.ServiceOrder, error) {
	var orders []models.ServiceOrder
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM service_orders WHERE buyer_id = $1 OR seller_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// TransitionOrder applies one status edge conditionally: the update only
// lands while the row still carries the expected prior status, so two
// concurrent callers cannot both win.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, from, to string, deliveredAt *time.Time) (bool, error) {
	var res sql.Result
	var err error
	if deliveredAt != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE service_orders
			SET status = $1, delivered_at = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4`,
			to, deliveredAt, orderID, from)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE service_orders
			SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3`,
			to, orderID, from)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
