package webhooks

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/config"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// One connection: each :memory: connection is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE webhook_configs (
		id TEXT PRIMARY KEY,
		organization_id TEXT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		events TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		secret_key TEXT,
		last_triggered_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE webhook_deliveries (
		id TEXT PRIMARY KEY,
		webhook_config_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		response_status INTEGER,
		response_body TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		next_retry_at INTEGER,
		delivered_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func testWebhooksConfig() config.WebhooksConfig {
	return config.WebhooksConfig{
		WorkerCount:      4,
		DispatchTimeout:  2 * time.Second,
		MaxResponseChars: 1000,
		RetryBatchSize:   100,
		AttemptDelay:     time.Millisecond,
		UserAgent:        "eTownz-Grants-Webhooks/1.0",
	}
}

type testEngine struct {
	db         *sql.DB
	configs    *repositories.WebhookConfigRepository
	deliveries *repositories.DeliveryRepository
	dispatcher *Dispatcher
	router     *EventRouter
	scheduler  *Scheduler
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db := setupTestDB(t)
	configs := repositories.NewWebhookConfigRepository(db)
	deliveries := repositories.NewDeliveryRepository(db)
	cfg := testWebhooksConfig()
	dispatcher := NewDispatcher(configs, deliveries, cfg)

	return &testEngine{
		db:         db,
		configs:    configs,
		deliveries: deliveries,
		dispatcher: dispatcher,
		router:     NewEventRouter(configs, deliveries, dispatcher, cfg),
		scheduler:  NewScheduler(deliveries, dispatcher, cfg),
	}
}

func (e *testEngine) createConfig(t *testing.T, orgID, url string, events []string, secret string) *models.WebhookConfig {
	t.Helper()

	config := &models.WebhookConfig{
		OrganizationID: orgID,
		Name:           "test subscriber",
		URL:            url,
		Events:         events,
		IsActive:       true,
		SecretKey:      secret,
	}
	if err := e.configs.Create(config); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	return config
}

func (e *testEngine) createDelivery(t *testing.T, configID, eventType, payload string) *models.WebhookDelivery {
	t.Helper()

	delivery := &models.WebhookDelivery{
		WebhookConfigID: configID,
		EventType:       eventType,
		Payload:         payload,
	}
	if err := e.deliveries.Create(delivery); err != nil {
		t.Fatalf("Failed to create delivery: %v", err)
	}
	return delivery
}
