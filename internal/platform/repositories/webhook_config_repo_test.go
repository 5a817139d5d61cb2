package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

func TestWebhookConfigRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookConfigRepository(db)

	config := &models.WebhookConfig{
		OrganizationID: "org_1",
		Name:           "crm sync",
		URL:            "https://example.com/hooks",
		Events:         []string{"new_grant_match", "application_created"},
		IsActive:       true,
		SecretKey:      "whsec_abc",
	}
	if err := repo.Create(config); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	if config.ID == "" {
		t.Fatal("expected generated id")
	}

	fetched, err := repo.GetByID(config.ID)
	if err != nil {
		t.Fatalf("Failed to get config: %v", err)
	}
	if fetched.Name != "crm sync" {
		t.Errorf("expected name crm sync, got %s", fetched.Name)
	}
	if len(fetched.Events) != 2 {
		t.Errorf("expected 2 events, got %d", len(fetched.Events))
	}
	if fetched.SecretKey != "whsec_abc" {
		t.Errorf("secret not round-tripped")
	}
	if fetched.OrganizationID != "org_1" {
		t.Errorf("expected org_1, got %s", fetched.OrganizationID)
	}
}

func TestWebhookConfigRepository_GlobalConfigHasNoOrg(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookConfigRepository(db)

	config := &models.WebhookConfig{
		Name:     "audit feed",
		URL:      "https://example.com/audit",
		Events:   []string{"application_created"},
		IsActive: true,
	}
	if err := repo.Create(config); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(config.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.OrganizationID != "" {
		t.Errorf("global config should have empty org, got %s", fetched.OrganizationID)
	}
}

func TestWebhookConfigRepository_FindActiveForEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookConfigRepository(db)

	seed := func(orgID string, events []string, active bool) *models.WebhookConfig {
		c := &models.WebhookConfig{
			OrganizationID: orgID,
			Name:           "sub",
			URL:            "https://example.com/h",
			Events:         events,
			IsActive:       active,
		}
		if err := repo.Create(c); err != nil {
			t.Fatal(err)
		}
		return c
	}

	matchOrg := seed("org_1", []string{"new_grant_match"}, true)
	matchGlobal := seed("", []string{"new_grant_match"}, true)
	seed("org_2", []string{"new_grant_match"}, true)
	seed("org_1", []string{"grant_deadline_reminder"}, true)
	seed("org_1", []string{"new_grant_match"}, false)

	matched, err := repo.FindActiveForEvent("new_grant_match", "org_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
	ids := map[string]bool{matched[0].ID: true, matched[1].ID: true}
	if !ids[matchOrg.ID] || !ids[matchGlobal.ID] {
		t.Errorf("wrong configs matched: %v", ids)
	}

	globalOnly, err := repo.FindActiveForEvent("new_grant_match", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(globalOnly) != 1 || globalOnly[0].ID != matchGlobal.ID {
		t.Errorf("org-less lookup should match only global configs, got %d", len(globalOnly))
	}
}

func TestWebhookConfigRepository_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookConfigRepository(db)

	config := &models.WebhookConfig{
		OrganizationID: "org_1",
		Name:           "before",
		URL:            "https://example.com/h",
		Events:         []string{"new_grant_match"},
		IsActive:       true,
	}
	if err := repo.Create(config); err != nil {
		t.Fatal(err)
	}

	config.Name = "after"
	config.IsActive = false
	if err := repo.Update(config); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(config.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Name != "after" || fetched.IsActive {
		t.Errorf("update not applied: %+v", fetched)
	}

	if err := repo.Delete(config.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByID(config.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows after delete, got %v", err)
	}
}

func TestWebhookConfigRepository_TouchLastTriggered(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookConfigRepository(db)

	config := &models.WebhookConfig{
		OrganizationID: "org_1",
		Name:           "sub",
		URL:            "https://example.com/h",
		Events:         []string{"new_grant_match"},
		IsActive:       true,
	}
	if err := repo.Create(config); err != nil {
		t.Fatal(err)
	}

	if err := repo.TouchLastTriggered(config.ID); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(config.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.LastTriggeredAt == 0 {
		t.Error("last_triggered_at not stamped")
	}
}
