package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

type fulfillmentRepository struct {
	storage *Storage
}

const fulfillmentColumns = `id, order_id, provider, provider_order_id, status, tracking_number, tracking_url, carrier,
                            retry_count, error_message, submitted_at, shipped_at, created_at, updated_at`

func scanFulfillment(row pgx.Row) (*model.FulfillmentOrder, error) {
	var f model.FulfillmentOrder
	err := row.Scan(&f.ID, &f.OrderID, &f.Provider, &f.ProviderOrderID, &f.Status, &f.TrackingNumber, &f.TrackingURL, &f.Carrier,
		&f.RetryCount, &f.ErrorMessage, &f.SubmittedAt, &f.ShippedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &f, nil
}

func (r *fulfillmentRepository) list(ctx context.Context, query string, args ...any) ([]model.FulfillmentOrder, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.FulfillmentOrder
	for rows.Next() {
		f, err := scanFulfillment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *fulfillmentRepository) Create(ctx context.Context, orderID uuid.UUID, provider model.Provider) (*model.FulfillmentOrder, error) {
	const query = `INSERT INTO fulfillment_orders (id, order_id, provider, status, retry_count)
                   VALUES ($1, $2, $3, $4, 0)
                   RETURNING created_at, updated_at`
	f := model.FulfillmentOrder{
		ID:       uuid.New(),
		OrderID:  orderID,
		Provider: provider,
		Status:   model.FulfillmentStatusPending,
	}
	err := r.storage.pool.QueryRow(ctx, query, f.ID, f.OrderID, f.Provider, f.Status).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &f, nil
}

func (r *fulfillmentRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string, provider model.Provider) (*model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + ` FROM fulfillment_orders
              WHERE provider_order_id=$1 AND provider=$2
              ORDER BY created_at DESC LIMIT 1`
	return scanFulfillment(r.storage.pool.QueryRow(ctx, query, providerOrderID, provider))
}

func (r *fulfillmentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + ` FROM fulfillment_orders
              WHERE order_id=$1
              ORDER BY created_at DESC LIMIT 1`
	return scanFulfillment(r.storage.pool.QueryRow(ctx, query, orderID))
}

func (r *fulfillmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FulfillmentStatus, update model.FulfillmentUpdate) error {
	const query = `UPDATE fulfillment_orders
                   SET status=$1,
                       provider_order_id=COALESCE($2, provider_order_id),
                       tracking_number=COALESCE($3, tracking_number),
                       tracking_url=COALESCE($4, tracking_url),
                       carrier=COALESCE($5, carrier),
                       error_message=CASE WHEN $6 THEN NULL ELSE COALESCE($7, error_message) END,
                       shipped_at=COALESCE($8, shipped_at),
                       submitted_at=CASE WHEN $1 = 'submitted' THEN NOW() ELSE submitted_at END,
                       updated_at=NOW()
                   WHERE id=$9`
	return expectAffected(r.storage.pool.Exec(ctx, query,
		status, update.ProviderOrderID, update.TrackingNumber, update.TrackingURL, update.Carrier,
		update.ClearError, update.ErrorMessage, update.ShippedAt, id,
	))
}

func (r *fulfillmentRepository) IncrementRetryCount(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE fulfillment_orders SET retry_count = retry_count + 1, updated_at=NOW() WHERE id=$1`
	return expectAffected(r.storage.pool.Exec(ctx, query, id))
}

func (r *fulfillmentRepository) ListAwaitingStatus(ctx context.Context, provider model.Provider) ([]model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + ` FROM fulfillment_orders
              WHERE provider=$1 AND status IN ('submitted', 'processing') AND provider_order_id IS NOT NULL
              ORDER BY created_at`
	return r.list(ctx, query, provider)
}

func (r *fulfillmentRepository) ListRetryable(ctx context.Context, maxRetries int) ([]model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + ` FROM fulfillment_orders
              WHERE status='failed' AND retry_count < $1
              ORDER BY created_at`
	return r.list(ctx, query, maxRetries)
}
