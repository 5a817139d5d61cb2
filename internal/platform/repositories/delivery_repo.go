package repositories

import (
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(delivery *models.WebhookDelivery) error {
	delivery.ID = "del_" + uuid.New().String()
	delivery.Status = models.DeliveryPending
	delivery.AttemptCount = 0
	delivery.CreatedAt = time.Now().Unix()
	delivery.UpdatedAt = delivery.CreatedAt

	query := `
		INSERT INTO webhook_deliveries (id, webhook_config_id, event_type, payload, status, attempt_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, delivery.ID, delivery.WebhookConfigID, delivery.EventType,
		delivery.Payload, delivery.Status, delivery.AttemptCount, delivery.CreatedAt, delivery.UpdatedAt)
	return err
}

func (r *DeliveryRepository) GetByID(id string) (*models.WebhookDelivery, error) {
	query := `
		SELECT id, webhook_config_id, event_type, payload, status, response_status, response_body,
		       attempt_count, next_retry_at, delivered_at, created_at, updated_at
		FROM webhook_deliveries WHERE id = ?
	`
	return scanDelivery(r.db.QueryRow(query, id))
}

// MarkDelivered records a successful attempt. All outcome fields are written
// in a single update; the delivered_at guard keeps the first success
// timestamp immutable if the same record is ever dispatched twice.
func (r *DeliveryRepository) MarkDelivered(id string, responseStatus int, responseBody string) error {
	now := time.Now().Unix()
	query := `
		UPDATE webhook_deliveries
		SET status = ?, response_status = ?, response_body = ?, next_retry_at = NULL,
		    delivered_at = COALESCE(delivered_at, ?), updated_at = ?
		WHERE id = ? AND status != ?
	`
	_, err := r.db.Exec(query, models.DeliveryDelivered, responseStatus, responseBody, now, now, id, models.DeliveryDelivered)
	return err
}

// MarkFailed records an unsuccessful attempt: status, response capture,
// attempt count, and the next retry time (nil once retries are exhausted)
// land in one update so a crash cannot leave a half-written outcome.
func (r *DeliveryRepository) MarkFailed(id string, responseStatus *int, responseBody string, attemptCount int, nextRetryAt *int64) error {
	now := time.Now().Unix()
	query := `
		UPDATE webhook_deliveries
		SET status = ?, response_status = ?, response_body = ?, attempt_count = ?, next_retry_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, models.DeliveryFailed, nullInt(responseStatus), responseBody,
		attemptCount, nullInt64(nextRetryAt), now, id)
	return err
}

// FindDueRetries returns failed deliveries whose retry time has passed and
// whose attempt budget is not exhausted, oldest first, capped at limit.
func (r *DeliveryRepository) FindDueRetries(limit, maxAttempts int) ([]*models.WebhookDelivery, error) {
	query := `
		SELECT id, webhook_config_id, event_type, payload, status, response_status, response_body,
		       attempt_count, next_retry_at, delivered_at, created_at, updated_at
		FROM webhook_deliveries
		WHERE status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ? AND attempt_count < ?
		ORDER BY next_retry_at ASC
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.DeliveryFailed, time.Now().Unix(), maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, rows.Err()
}

func (r *DeliveryRepository) ListByConfig(configID string, limit, offset int) ([]*models.WebhookDelivery, error) {
	query := `
		SELECT id, webhook_config_id, event_type, payload, status, response_status, response_body,
		       attempt_count, next_retry_at, delivered_at, created_at, updated_at
		FROM webhook_deliveries
		WHERE webhook_config_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, configID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, rows.Err()
}

// Stats aggregates delivery counts, optionally scoped to one config when
// configID is non-empty. Success rate is a percentage with two decimals.
func (r *DeliveryRepository) Stats(configID string) (*models.DeliveryStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM webhook_deliveries
	`
	args := []interface{}{models.DeliveryDelivered, models.DeliveryFailed, models.DeliveryPending}
	if configID != "" {
		query += ` WHERE webhook_config_id = ?`
		args = append(args, configID)
	}

	var stats models.DeliveryStats
	err := r.db.QueryRow(query, args...).Scan(&stats.Total, &stats.Delivered, &stats.Failed, &stats.Pending)
	if err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.SuccessRate = math.Round(float64(stats.Delivered)/float64(stats.Total)*100*100) / 100
	}

	return &stats, nil
}

// PurgeOlderThan deletes terminal deliveries created before the cutoff.
// Housekeeping only; pending and retryable rows are never purged.
func (r *DeliveryRepository) PurgeOlderThan(cutoff int64) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM webhook_deliveries
		WHERE created_at < ? AND (status = ? OR (status = ? AND next_retry_at IS NULL))
	`, cutoff, models.DeliveryDelivered, models.DeliveryFailed)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanDelivery(row rowScanner) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	var responseStatus sql.NullInt64
	var responseBody sql.NullString
	var nextRetryAt, deliveredAt sql.NullInt64

	err := row.Scan(&d.ID, &d.WebhookConfigID, &d.EventType, &d.Payload, &d.Status,
		&responseStatus, &responseBody, &d.AttemptCount, &nextRetryAt, &deliveredAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if responseStatus.Valid {
		status := int(responseStatus.Int64)
		d.ResponseStatus = &status
	}
	d.ResponseBody = responseBody.String
	if nextRetryAt.Valid {
		d.NextRetryAt = &nextRetryAt.Int64
	}
	if deliveredAt.Valid {
		d.DeliveredAt = &deliveredAt.Int64
	}

	return &d, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
