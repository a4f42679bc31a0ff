package repository

import (
	"testing"
	"time"

	"github.com/soapboxhq/soapbox/internal/models"
)

func TestCredentialRepository_UpsertAndGet(t *testing.T) {
	d := setupTestDB(t)
	repo := NewCredentialRepository(d)

	c := &models.Credential{
		UserID:   "user-1",
		Platform: models.PlatformReddit,
		Kind:     models.CredentialClientID,
		Value:    "abc123",
		Valid:    true,
	}
	if err := repo.Upsert(c); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.Get("user-1", models.PlatformReddit, models.CredentialClientID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Value != "abc123" {
		t.Fatalf("Get() = %+v, want value abc123", got)
	}

	// Upsert replaces value for the same key
	c2 := &models.Credential{
		UserID:   "user-1",
		Platform: models.PlatformReddit,
		Kind:     models.CredentialClientID,
		Value:    "def456",
		Valid:    true,
	}
	if err := repo.Upsert(c2); err != nil {
		t.Fatalf("Upsert(replace) error = %v", err)
	}

	got, _ = repo.Get("user-1", models.PlatformReddit, models.CredentialClientID)
	if got.Value != "def456" {
		t.Errorf("Get() after replace = %v, want def456", got.Value)
	}

	all, err := repo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListByUser() = %d credentials, want 1 (upsert must not duplicate)", len(all))
	}
}

func TestCredentialRepository_GetMissing(t *testing.T) {
	d := setupTestDB(t)
	repo := NewCredentialRepository(d)

	got, err := repo.Get("user-1", models.PlatformReddit, models.CredentialClientSecret)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("Get(missing) should return nil")
	}
}

func TestCredentialRepository_SetValid(t *testing.T) {
	d := setupTestDB(t)
	repo := NewCredentialRepository(d)

	repo.Upsert(&models.Credential{
		UserID: "user-1", Platform: models.PlatformReddit,
		Kind: models.CredentialAccessToken, Value: "tok", Valid: true,
	})

	if err := repo.SetValid("user-1", models.PlatformReddit, models.CredentialAccessToken, false); err != nil {
		t.Fatalf("SetValid() error = %v", err)
	}

	got, _ := repo.Get("user-1", models.PlatformReddit, models.CredentialAccessToken)
	if got.Valid {
		t.Error("credential should be invalid")
	}
}

func TestCredential_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	c := &models.Credential{ExpiresAt: &past}
	if !c.Expired(now) {
		t.Error("Expired() = false for past expiry")
	}

	c.ExpiresAt = &future
	if c.Expired(now) {
		t.Error("Expired() = true for future expiry")
	}

	c.ExpiresAt = nil
	if c.Expired(now) {
		t.Error("Expired() = true for no expiry")
	}
}
