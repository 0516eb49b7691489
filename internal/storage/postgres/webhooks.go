package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

type webhookRepository struct {
	storage *Storage
}

const webhookColumns = `id, source, event_type, payload, processed_at, error_message, retry_count, created_at`

func scanWebhook(row pgx.Row) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	if err := row.Scan(&e.ID, &e.Source, &e.EventType, &e.Payload, &e.ProcessedAt, &e.ErrorMessage, &e.RetryCount, &e.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

func (r *webhookRepository) Create(ctx context.Context, source model.WebhookSource, eventType string, payload []byte) (*model.WebhookEvent, error) {
	const query = `INSERT INTO webhook_events (id, source, event_type, payload, retry_count)
                   VALUES ($1, $2, $3, $4, 0)
                   RETURNING created_at`
	e := model.WebhookEvent{ID: uuid.New(), Source: source, EventType: eventType, Payload: payload}
	if err := r.storage.pool.QueryRow(ctx, query, e.ID, e.Source, e.EventType, e.Payload).Scan(&e.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events WHERE id=$1`
	return scanWebhook(r.storage.pool.QueryRow(ctx, query, id))
}

func (r *webhookRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE webhook_events SET processed_at=NOW(), error_message=NULL WHERE id=$1`
	return expectAffected(r.storage.pool.Exec(ctx, query, id))
}

func (r *webhookRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	const query = `UPDATE webhook_events SET error_message=$1, retry_count = retry_count + 1 WHERE id=$2`
	return expectAffected(r.storage.pool.Exec(ctx, query, message, id))
}

func (r *webhookRepository) ListRetryable(ctx context.Context, maxRetries int) ([]model.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events
              WHERE processed_at IS NULL AND error_message IS NOT NULL AND retry_count < $1
              ORDER BY created_at`
	rows, err := r.storage.pool.Query(ctx, query, maxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WebhookEvent
	for rows.Next() {
		e, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *webhookRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM webhook_events WHERE created_at < $1 AND processed_at IS NOT NULL`
	tag, err := r.storage.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
