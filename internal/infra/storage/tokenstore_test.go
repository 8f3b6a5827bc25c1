package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	store, err := NewTokenStore(filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User:         domain.AuthenticatedUser{ID: "user-1", Email: "ana@example.com"},
	}
}

func TestTokenStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	want := sampleSession()
	if err := store.SaveSession(want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected a session, got nil")
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("tokens mismatch: got %+v", got)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("expiry mismatch: got %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}
	if got.User != want.User {
		t.Errorf("user mismatch: got %+v", got.User)
	}
}

func TestTokenStore_SaveOverwritesPrevious(t *testing.T) {
	store := newTestStore(t)

	first := sampleSession()
	if err := store.SaveSession(first); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	second := sampleSession()
	second.AccessToken = "access-new"
	if err := store.SaveSession(second); err != nil {
		t.Fatalf("SaveSession (second): %v", err)
	}

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.AccessToken != "access-new" {
		t.Errorf("expected the overwritten token, got %s", got.AccessToken)
	}
}

func TestTokenStore_LoadEmptyIsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}
}

func TestTokenStore_SaveNilSessionFails(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveSession(nil)
	var storageErr *domain.ErrStorage
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestTokenStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveSession(sampleSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.DeleteSession(); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got != nil {
		t.Errorf("expected session gone, got %+v", got)
	}

	// Deleting again must stay a no-op.
	if err := store.DeleteSession(); err != nil {
		t.Errorf("DeleteSession on empty store: %v", err)
	}
}

func TestTokenStore_CorruptPayloadSurfacesStorageError(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)`, sessionKey, "{not json",
	); err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	_, err := store.LoadSession()
	var storageErr *domain.ErrStorage
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestTokenStore_ClearAuthData(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveSession(sampleSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := store.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)`, "unrelated/key", "kept",
	); err != nil {
		t.Fatalf("seeding unrelated row: %v", err)
	}

	if err := store.ClearAuthData(); err != nil {
		t.Fatalf("ClearAuthData: %v", err)
	}

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got != nil {
		t.Errorf("expected auth data wiped, got %+v", got)
	}

	var value string
	if err := store.db.QueryRow(
		`SELECT value FROM kv WHERE key = ?`, "unrelated/key",
	).Scan(&value); err != nil {
		t.Fatalf("unrelated key should survive the wipe: %v", err)
	}
}
