package repositories

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

func TestDeliveryRepository_CreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)

	d := &models.WebhookDelivery{
		WebhookConfigID: "wh_1",
		EventType:       "new_grant_match",
		Payload:         `{}`,
	}
	if err := repo.Create(d); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != models.DeliveryPending {
		t.Errorf("new delivery should be pending, got %s", fetched.Status)
	}
	if fetched.AttemptCount != 0 {
		t.Errorf("new delivery should have attempt count 0, got %d", fetched.AttemptCount)
	}
	if fetched.NextRetryAt != nil || fetched.DeliveredAt != nil {
		t.Error("new delivery should have no retry or delivered timestamps")
	}
}

func TestDeliveryRepository_MarkDelivered(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)

	d := &models.WebhookDelivery{WebhookConfigID: "wh_1", EventType: "new_grant_match", Payload: `{}`}
	if err := repo.Create(d); err != nil {
		t.Fatal(err)
	}

	past := time.Now().Add(-time.Minute).Unix()
	if err := repo.MarkFailed(d.ID, nil, "timeout", 1, &past); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkDelivered(d.ID, 200, "ok"); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != models.DeliveryDelivered {
		t.Errorf("expected delivered, got %s", fetched.Status)
	}
	if fetched.NextRetryAt != nil {
		t.Error("delivered row must clear next_retry_at")
	}
	if fetched.DeliveredAt == nil {
		t.Error("delivered_at must be set")
	}
	// Attempt count stays cumulative across the failure that preceded success.
	if fetched.AttemptCount != 1 {
		t.Errorf("expected attempt count 1, got %d", fetched.AttemptCount)
	}

	// A second MarkDelivered must not move delivered_at or status.
	first := *fetched.DeliveredAt
	if err := repo.MarkDelivered(d.ID, 500, "later"); err != nil {
		t.Fatal(err)
	}
	again, err := repo.GetByID(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *again.DeliveredAt != first {
		t.Error("delivered_at mutated by repeat MarkDelivered")
	}
	if *again.ResponseStatus != 200 {
		t.Error("response_status mutated by repeat MarkDelivered")
	}
}

func TestDeliveryRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)

	seed := func(configID, status string) {
		d := &models.WebhookDelivery{WebhookConfigID: configID, EventType: "new_grant_match", Payload: `{}`}
		if err := repo.Create(d); err != nil {
			t.Fatal(err)
		}
		switch status {
		case models.DeliveryDelivered:
			if err := repo.MarkDelivered(d.ID, 200, ""); err != nil {
				t.Fatal(err)
			}
		case models.DeliveryFailed:
			if err := repo.MarkFailed(d.ID, nil, "", 4, nil); err != nil {
				t.Fatal(err)
			}
		}
	}

	for i := 0; i < 7; i++ {
		seed("wh_1", models.DeliveryDelivered)
	}
	seed("wh_1", models.DeliveryFailed)
	seed("wh_1", models.DeliveryFailed)
	seed("wh_1", models.DeliveryPending)

	stats, err := repo.Stats("")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 10 || stats.Delivered != 7 || stats.Failed != 2 || stats.Pending != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.SuccessRate != 70.00 {
		t.Errorf("expected success rate 70.00, got %.2f", stats.SuccessRate)
	}
}

func TestDeliveryRepository_StatsEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)

	stats, err := repo.Stats("")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 || stats.SuccessRate != 0 {
		t.Errorf("empty store should report zero stats, got %+v", stats)
	}
}

func TestDeliveryRepository_StatsScopedByConfig(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)

	a := &models.WebhookDelivery{WebhookConfigID: "wh_a", EventType: "new_grant_match", Payload: `{}`}
	if err := repo.Create(a); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkDelivered(a.ID, 200, ""); err != nil {
		t.Fatal(err)
	}
	b := &models.WebhookDelivery{WebhookConfigID: "wh_b", EventType: "new_grant_match", Payload: `{}`}
	if err := repo.Create(b); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.Stats("wh_a")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.Delivered != 1 {
		t.Errorf("scoped stats wrong: %+v", stats)
	}
	if stats.SuccessRate != 100.00 {
		t.Errorf("expected 100.00, got %.2f", stats.SuccessRate)
	}
}

func TestDeliveryRepository_PurgeOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeliveryRepository(db)

	old := &models.WebhookDelivery{WebhookConfigID: "wh_1", EventType: "new_grant_match", Payload: `{}`}
	if err := repo.Create(old); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkDelivered(old.ID, 200, ""); err != nil {
		t.Fatal(err)
	}
	// Backdate creation past the retention window.
	if _, err := db.Exec(`UPDATE webhook_deliveries SET created_at = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -60).Unix(), old.ID); err != nil {
		t.Fatal(err)
	}

	// Old but still retryable: must survive the purge.
	retryable := &models.WebhookDelivery{WebhookConfigID: "wh_1", EventType: "new_grant_match", Payload: `{}`}
	if err := repo.Create(retryable); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour).Unix()
	if err := repo.MarkFailed(retryable.ID, nil, "", 1, &future); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE webhook_deliveries SET created_at = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -60).Unix(), retryable.ID); err != nil {
		t.Fatal(err)
	}

	purged, err := repo.PurgeOlderThan(time.Now().AddDate(0, 0, -30).Unix())
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged row, got %d", purged)
	}
	if _, err := repo.GetByID(retryable.ID); err != nil {
		t.Error("retryable delivery should survive the purge")
	}
}

// MarkFailed must write every outcome field in a single UPDATE so a crash
// cannot leave a partial attempt recorded.
func TestDeliveryRepository_MarkFailedSingleWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDeliveryRepository(db)

	status := 503
	next := time.Now().Add(time.Minute).Unix()

	mock.ExpectExec("UPDATE webhook_deliveries").
		WithArgs(models.DeliveryFailed, sqlmock.AnyArg(), "service unavailable", 2, sqlmock.AnyArg(), sqlmock.AnyArg(), "del_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkFailed("del_1", &status, "service unavailable", 2, &next); err != nil {
		t.Fatal(err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
