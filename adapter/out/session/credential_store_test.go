package session

import (
	"context"
	"io"
	"testing"
	"time"

	"webmail_client/core/domain"
	"webmail_client/pkg/crypto"
	"webmail_client/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard, Service: "test"})
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	enc, err := crypto.NewEncryptor([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	return NewStore(client, enc, time.Hour, testLogger()), mr
}

func TestStoreGetRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	s.Store(ctx, domain.CredentialAccess, "ya29.access-token")
	if got := s.Get(ctx, domain.CredentialAccess); got != "ya29.access-token" {
		t.Fatalf("round trip: %q", got)
	}

	// The value at rest must be ciphertext, not the token itself.
	raw, err := mr.Get("webmail:session:access")
	if err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if raw == "ya29.access-token" || !crypto.IsEncrypted(raw) {
		t.Fatalf("credential stored in plaintext: %q", raw)
	}
}

func TestGetAbsentIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.Get(context.Background(), domain.CredentialRefresh); got != "" {
		t.Fatalf("absent credential: %q", got)
	}
}

func TestTimestampZeroUntilSet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if got := s.Timestamp(ctx); got != 0 {
		t.Fatalf("timestamp before set: %d", got)
	}
	s.SetTimestamp(ctx, 1700000000000)
	if got := s.Timestamp(ctx); got != 1700000000000 {
		t.Fatalf("timestamp after set: %d", got)
	}
}

func TestRemoveDeletesOneKind(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Store(ctx, domain.CredentialAccess, "a")
	s.Store(ctx, domain.CredentialRefresh, "r")
	s.Remove(ctx, domain.CredentialAccess)

	if s.Get(ctx, domain.CredentialAccess) != "" {
		t.Fatal("removed credential must be absent")
	}
	if s.Get(ctx, domain.CredentialRefresh) != "r" {
		t.Fatal("other kind must survive")
	}
}

func TestClearAllRemovesEverything(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Store(ctx, domain.CredentialAccess, "a")
	s.Store(ctx, domain.CredentialRefresh, "r")
	s.SetTimestamp(ctx, 42)
	s.ClearAll(ctx)

	if s.Get(ctx, domain.CredentialAccess) != "" || s.Get(ctx, domain.CredentialRefresh) != "" {
		t.Fatal("credentials must be gone after ClearAll")
	}
	if s.Timestamp(ctx) != 0 {
		t.Fatal("timestamp must be gone after ClearAll")
	}
}

func TestFailOpenOnBrokenBackend(t *testing.T) {
	// Nothing listens here; every call errors. The store must degrade to
	// "not present" without panicking or returning errors.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	enc, _ := crypto.NewEncryptor([]byte("test-key"))
	s := NewStore(client, enc, time.Hour, testLogger())
	ctx := context.Background()

	s.Store(ctx, domain.CredentialAccess, "a")
	if got := s.Get(ctx, domain.CredentialAccess); got != "" {
		t.Fatalf("broken backend must read as absent, got %q", got)
	}
	if got := s.Timestamp(ctx); got != 0 {
		t.Fatalf("broken backend timestamp: %d", got)
	}
	s.ClearAll(ctx)
}

func TestMigrateLegacyEncryptsAndDeletes(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set("mail:token:access", "legacy-access")
	mr.Set("mail:token:refresh", "legacy-refresh")
	mr.Set("mail:token:issued_at", "1700000000000")

	s.MigrateLegacy(ctx)

	if got := s.Get(ctx, domain.CredentialAccess); got != "legacy-access" {
		t.Fatalf("migrated access token: %q", got)
	}
	if got := s.Get(ctx, domain.CredentialRefresh); got != "legacy-refresh" {
		t.Fatalf("migrated refresh token: %q", got)
	}
	if got := s.Timestamp(ctx); got != 1700000000000 {
		t.Fatalf("migrated timestamp: %d", got)
	}

	for _, key := range []string{"mail:token:access", "mail:token:refresh", "mail:token:issued_at"} {
		if mr.Exists(key) {
			t.Fatalf("legacy key %s must be deleted", key)
		}
	}

	raw, _ := mr.Get("webmail:session:access")
	if !crypto.IsEncrypted(raw) {
		t.Fatalf("migrated value must be encrypted at rest: %q", raw)
	}
}

func TestMigrateLegacyNoopWhenNothingLegacy(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	s.MigrateLegacy(ctx)

	if len(mr.Keys()) != 0 {
		t.Fatalf("migration with nothing legacy must write nothing: %v", mr.Keys())
	}
}

func TestMigrateLegacyDropsAlreadyEncryptedCopy(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	// A previous process already migrated; only the stale copy remains.
	enc, _ := crypto.NewEncryptor([]byte("test-key"))
	ct, _ := enc.Encrypt("old-access")
	mr.Set("mail:token:access", ct)

	s.MigrateLegacy(ctx)

	if mr.Exists("mail:token:access") {
		t.Fatal("stale encrypted copy must be deleted")
	}
	if got := s.Get(ctx, domain.CredentialAccess); got != "" {
		t.Fatalf("stale copy must not be re-imported, got %q", got)
	}
}

func TestMigrateLegacyRunsOncePerProcess(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	s.MigrateLegacy(ctx)

	// Legacy data appearing after the first run is ignored by this process.
	mr.Set("mail:token:access", "late-arrival")
	s.MigrateLegacy(ctx)

	if got := s.Get(ctx, domain.CredentialAccess); got != "" {
		t.Fatalf("second call must be a no-op, got %q", got)
	}
	if !mr.Exists("mail:token:access") {
		t.Fatal("second call must not touch legacy keys")
	}
}
