// Package in defines inbound ports driven by HTTP handlers and agent tools.
package in

import (
	"context"

	"webmail_client/core/domain"
)

// Mailbox is the single entry surface for every mailbox operation. Manual UI
// actions and agent tool calls both go through this port so they converge on
// identical state mutations.
type Mailbox interface {
	// Bootstrap fetches the active folder once on sign-in detection, and
	// only if it is currently empty.
	Bootstrap(ctx context.Context) error

	// SwitchFolder changes the active folder, resets its cursor and fetches.
	SwitchFolder(ctx context.Context, folder domain.Folder) error

	// Refresh fetches the current folder. All triggers (manual, poll tick,
	// push event) funnel here and are subject to single-flight.
	Refresh(ctx context.Context, trigger domain.SyncTrigger) error

	// LoadMore appends the next page of the folder using its cursor.
	LoadMore(ctx context.Context, folder domain.Folder) error

	// SetFilter patches the folder's filter, invalidates its cursor, and
	// refetches from page one.
	SetFilter(ctx context.Context, folder domain.Folder, patch domain.FilterPatch) error

	// Search sets the query filter on the active folder and switches to the
	// search view.
	Search(ctx context.Context, query string) error

	// OpenMessage selects a message, marks it read optimistically and
	// returns it.
	OpenMessage(ctx context.Context, id string) (*domain.Message, error)

	// MarkRead / MarkUnread apply an optimistic patch, call the provider,
	// and revert the patch on remote failure.
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error

	// Compose surface: one shared draft.
	OpenCompose(patch domain.ComposePatch)
	UpdateCompose(patch domain.ComposePatch)
	ResetCompose()

	// StartReply prefills the draft from a loaded message (recipients,
	// subject, thread references).
	StartReply(ctx context.Context, id string) error

	// Send sends the current draft. Refused while a send is in flight; the
	// draft stays intact on failure.
	Send(ctx context.Context) (*domain.Message, error)

	// Snapshot returns a read-only copy of the mailbox state.
	Snapshot() domain.MailboxSnapshot
}
