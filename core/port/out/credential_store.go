// Package out defines outbound ports implemented by adapters.
package out

import (
	"context"

	"webmail_client/core/domain"
)

// CredentialStore is session-scoped credential storage. Implementations are
// fail-open: a storage error is logged and treated as "not present". No
// method returns an error, and none may panic on a broken backend. Losing a
// credential drives the user to the signed-out state, which is the safe
// direction.
type CredentialStore interface {
	// Store persists the given token kind for the session.
	Store(ctx context.Context, kind domain.CredentialKind, value string)
	// Get returns the stored token, or "" when absent.
	Get(ctx context.Context, kind domain.CredentialKind) string
	// Remove deletes one token kind.
	Remove(ctx context.Context, kind domain.CredentialKind)
	// SetTimestamp records the access token issue time in unix millis.
	SetTimestamp(ctx context.Context, millis int64)
	// Timestamp returns the stored issue time, or 0 when absent.
	Timestamp(ctx context.Context) int64
	// ClearAll removes both token kinds and the timestamp.
	ClearAll(ctx context.Context)
	// MigrateLegacy moves credentials written by the legacy plaintext
	// location into the current store and deletes the legacy copies.
	// Idempotent; a no-op when nothing legacy remains.
	MigrateLegacy(ctx context.Context)
}
