// Package session implements session-scoped credential storage on Redis.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"webmail_client/core/domain"
	"webmail_client/core/port/out"
	"webmail_client/pkg/crypto"
	"webmail_client/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Key layout. The legacy prefix is the pre-encryption location; MigrateLegacy
// moves anything found there under the current prefix.
const (
	keyPrefix       = "webmail:session:"
	legacyKeyPrefix = "mail:token:"
	timestampKey    = "issued_at"
)

// Store is a fail-open credential store: every Redis or cipher error is
// logged and surfaces as "not present". A lost credential signs the user
// out, which is the safe failure direction.
type Store struct {
	client    *redis.Client
	encryptor *crypto.Encryptor
	ttl       time.Duration
	log       *logger.Logger

	migrateOnce sync.Once
}

// NewStore creates a credential store with the given session TTL.
func NewStore(client *redis.Client, encryptor *crypto.Encryptor, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{
		client:    client,
		encryptor: encryptor,
		ttl:       ttl,
		log:       log.WithField("component", "credential_store"),
	}
}

func currentKey(kind domain.CredentialKind) string {
	return keyPrefix + string(kind)
}

func legacyKey(kind domain.CredentialKind) string {
	return legacyKeyPrefix + string(kind)
}

// Store persists the given token kind, encrypted at rest.
func (s *Store) Store(ctx context.Context, kind domain.CredentialKind, value string) {
	enc, err := s.encryptor.Encrypt(value)
	if err != nil {
		s.log.WithError(err).Error("failed to encrypt credential, not storing")
		return
	}
	if err := s.client.Set(ctx, currentKey(kind), enc, s.ttl).Err(); err != nil {
		s.log.WithError(err).Error("failed to store credential")
	}
}

// Get returns the stored token, or "" when absent or unreadable.
func (s *Store) Get(ctx context.Context, kind domain.CredentialKind) string {
	enc, err := s.client.Get(ctx, currentKey(kind)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.WithError(err).Warn("credential read failed, treating as absent")
		}
		return ""
	}
	value, err := s.encryptor.Decrypt(enc)
	if err != nil {
		s.log.WithError(err).Warn("credential decrypt failed, treating as absent")
		return ""
	}
	return value
}

// Remove deletes one token kind.
func (s *Store) Remove(ctx context.Context, kind domain.CredentialKind) {
	if err := s.client.Del(ctx, currentKey(kind)).Err(); err != nil {
		s.log.WithError(err).Warn("credential delete failed")
	}
}

// SetTimestamp records the access token issue time in unix millis.
func (s *Store) SetTimestamp(ctx context.Context, millis int64) {
	if err := s.client.Set(ctx, keyPrefix+timestampKey, strconv.FormatInt(millis, 10), s.ttl).Err(); err != nil {
		s.log.WithError(err).Error("failed to store token timestamp")
	}
}

// Timestamp returns the stored issue time, or 0 when absent.
func (s *Store) Timestamp(ctx context.Context) int64 {
	raw, err := s.client.Get(ctx, keyPrefix+timestampKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.WithError(err).Warn("timestamp read failed, treating as absent")
		}
		return 0
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.log.WithError(err).Warn("timestamp parse failed, treating as absent")
		return 0
	}
	return millis
}

// ClearAll removes both token kinds and the timestamp.
func (s *Store) ClearAll(ctx context.Context) {
	keys := []string{
		currentKey(domain.CredentialAccess),
		currentKey(domain.CredentialRefresh),
		keyPrefix + timestampKey,
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.WithError(err).Warn("credential clear failed")
	}
}

// MigrateLegacy moves plaintext credentials written under the legacy key
// prefix into the current encrypted location and deletes the legacy copies.
// Runs once per process; re-running when nothing legacy remains is a no-op.
func (s *Store) MigrateLegacy(ctx context.Context) {
	s.migrateOnce.Do(func() {
		migrated := 0
		for _, kind := range []domain.CredentialKind{domain.CredentialAccess, domain.CredentialRefresh} {
			raw, err := s.client.Get(ctx, legacyKey(kind)).Result()
			if err != nil {
				if err != redis.Nil {
					s.log.WithError(err).Warn("legacy credential read failed, skipping")
				}
				continue
			}
			if crypto.IsEncrypted(raw) {
				// Already migrated by a previous process; just drop the copy.
				s.client.Del(ctx, legacyKey(kind))
				continue
			}
			s.Store(ctx, kind, raw)
			if err := s.client.Del(ctx, legacyKey(kind)).Err(); err != nil {
				s.log.WithError(err).Warn("failed to delete legacy credential")
			}
			migrated++
		}

		if raw, err := s.client.Get(ctx, legacyKeyPrefix+timestampKey).Result(); err == nil {
			if millis, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				s.SetTimestamp(ctx, millis)
			}
			s.client.Del(ctx, legacyKeyPrefix+timestampKey)
			migrated++
		}

		if migrated > 0 {
			s.log.Info("migrated %d legacy credential entries", migrated)
		}
	})
}

var _ out.CredentialStore = (*Store)(nil)
