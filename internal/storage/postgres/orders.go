package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, storefront_order_id, customer_email, customer_name,
                      shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
                      total_cents, currency, status, fulfillment_provider, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.StorefrontOrderID, &o.CustomerEmail, &o.CustomerName,
		&o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.TotalCents, &o.Currency, &o.Status, &o.FulfillmentProvider, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

func (r *orderRepository) CreateWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	const insertOrder = `INSERT INTO orders (id, storefront_order_id, customer_email, customer_name,
                             shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
                             total_cents, currency, status)
                         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
                         RETURNING created_at, updated_at`
	const insertItem = `INSERT INTO order_items (id, order_id, product_id, variant_id, name, quantity, unit_price_cents)
                        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = model.OrderStatusReceived
	}

	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrder,
			order.ID, order.StorefrontOrderID, order.CustomerEmail, order.CustomerName,
			order.Shipping.Line1, order.Shipping.Line2, order.Shipping.City, order.Shipping.State,
			order.Shipping.PostalCode, order.Shipping.Country,
			order.TotalCents, order.Currency, order.Status,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return mapError(err)
		}

		for i := range items {
			item := &items[i]
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.OrderID = order.ID
			if _, err := tx.Exec(ctx, insertItem, item.ID, item.OrderID, item.ProductID, item.VariantID, item.Name, item.Quantity, item.UnitPriceCents); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	return scanOrder(r.storage.pool.QueryRow(ctx, query, id))
}

func (r *orderRepository) GetByStorefrontID(ctx context.Context, storefrontOrderID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE storefront_order_id=$1`
	return scanOrder(r.storage.pool.QueryRow(ctx, query, storefrontOrderID))
}

func (r *orderRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*model.OrderWithItems, error) {
	const itemsQuery = `SELECT id, order_id, product_id, variant_id, name, quantity, unit_price_cents
                        FROM order_items WHERE order_id=$1 ORDER BY created_at, id`

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &model.OrderWithItems{Order: *order}
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.Name, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	const query = `UPDATE orders
                   SET status=$1,
                       fulfillment_provider = CASE WHEN $2 THEN fulfillment_provider ELSE NULL END,
                       updated_at=NOW()
                   WHERE id=$3`
	return expectAffected(r.storage.pool.Exec(ctx, query, status, status.HasProvider(), id))
}

func (r *orderRepository) ClaimForProvider(ctx context.Context, id uuid.UUID, provider model.Provider) (bool, error) {
	const query = `UPDATE orders
                   SET status=$1, fulfillment_provider=$2, updated_at=NOW()
                   WHERE id=$3 AND status=$4`
	tag, err := r.storage.pool.Exec(ctx, query, model.OrderStatusProcessing, provider, id, model.OrderStatusReceived)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
