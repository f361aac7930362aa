// Package sync coordinates when folder fetches happen and how responses are
// merged into the state store. Five triggers (bootstrap, view change,
// filter change, manual refresh and poll/push notification) all funnel into
// one per-folder fetch path guarded by single-flight and a monotonic
// sequence number that discards stale responses.
package sync

import (
	"context"
	"net/mail"
	"strings"
	sysync "sync"
	"time"

	"webmail_client/core/domain"
	"webmail_client/core/port/in"
	"webmail_client/core/port/out"
	"webmail_client/core/service/mailbox"
	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"
)

// Orchestrator implements in.Mailbox. Per folder the state machine is
// Idle → Fetching → Idle; entering Fetching is refused while the folder is
// already Fetching (triggers collapse to one fetch), and every entry
// captures a sequence number so a response is applied only when it is still
// the latest issued for its folder.
type Orchestrator struct {
	store    *mailbox.Store
	provider out.MailProvider
	realtime out.RealtimePort
	log      *logger.Logger

	pageSize     int64
	fetchTimeout time.Duration

	mu       sysync.Mutex
	seq      map[domain.Folder]uint64
	fetching map[domain.Folder]bool

	accountEmail string
}

// NewOrchestrator creates the synchronization orchestrator.
func NewOrchestrator(store *mailbox.Store, provider out.MailProvider, realtime out.RealtimePort, pageSize int64, fetchTimeout time.Duration, log *logger.Logger) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 25
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Orchestrator{
		store:        store,
		provider:     provider,
		realtime:     realtime,
		log:          log.WithField("component", "sync_orchestrator"),
		pageSize:     pageSize,
		fetchTimeout: fetchTimeout,
		seq:          make(map[domain.Folder]uint64),
		fetching:     make(map[domain.Folder]bool),
	}
}

// AccountEmail returns the profile address fetched at bootstrap.
func (o *Orchestrator) AccountEmail() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.accountEmail
}

// ---------------------------------------------------------------------------
// Fetch state machine
// ---------------------------------------------------------------------------

// enterFetch attempts the Idle → Fetching transition. Refused (ok=false)
// when the folder is already Fetching; otherwise it returns the captured
// sequence number for this fetch.
func (o *Orchestrator) enterFetch(folder domain.Folder) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fetching[folder] {
		return 0, false
	}
	o.fetching[folder] = true
	o.seq[folder]++
	return o.seq[folder], true
}

// leaveFetch exits Fetching and reports whether the captured sequence is
// still the latest issued for the folder. A superseded fetch must not touch
// the store.
func (o *Orchestrator) leaveFetch(folder domain.Folder, captured uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	// Only clear the flag if this fetch still owns it; a filter change may
	// have handed the folder to a newer fetch already.
	if o.seq[folder] == captured {
		o.fetching[folder] = false
	}
	return o.seq[folder] == captured
}

// supersede invalidates any in-flight fetch for the folder: its response
// will fail the sequence check, and the folder is free for a new fetch
// immediately. Used on filter changes, where the in-flight response belongs
// to a predicate that no longer exists.
func (o *Orchestrator) supersede(folder domain.Folder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq[folder]++
	o.fetching[folder] = false
}

// fetchFolder is the single fetch path every trigger funnels through.
func (o *Orchestrator) fetchFolder(ctx context.Context, folder domain.Folder, trigger domain.SyncTrigger) error {
	captured, ok := o.enterFetch(folder)
	if !ok {
		// Single-flight: a trigger during Fetching is a no-op, not a queue.
		o.log.Debug("fetch for %s skipped (%s): already in flight", folder, trigger)
		return nil
	}

	o.store.SetLoading(folder, true)
	o.store.SetInFlight(folder, true)
	filter := o.store.Filter(folder)

	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	result, err := o.provider.List(fetchCtx, out.ListQuery{
		Folder:   folder,
		Filter:   filter,
		PageSize: o.pageSize,
	})

	if !o.leaveFetch(folder, captured) {
		// A newer fetch was issued while this one was in flight; its data
		// belongs to a stale predicate. Discard without touching the store,
		// including the in-flight mirror the newer fetch now owns.
		o.log.Debug("fetch for %s discarded as stale (seq %d)", folder, captured)
		return nil
	}
	o.store.SetInFlight(folder, false)

	if err != nil {
		return o.fetchFailed(ctx, folder, err)
	}

	o.store.ReplaceFolder(folder, result.Messages, result.NextCursor)
	o.store.MarkSynced(time.Now())
	if folder == domain.FolderInbox {
		o.store.SetHasNewEmails(false)
	}
	o.broadcast(ctx, domain.EventFolderUpdated, map[string]any{
		"folder":  folder,
		"count":   len(result.Messages),
		"trigger": trigger,
	})
	return nil
}

// fetchFailed applies the error policy: folder-fetch failure is non-fatal
// (previous data stays, loading cleared, error surfaced); a token failure is
// session-fatal and drives the UI back to sign-in.
func (o *Orchestrator) fetchFailed(ctx context.Context, folder domain.Folder, err error) error {
	o.store.SetLoading(folder, false)

	if apperr.IsCode(err, apperr.CodeTokenExpired) {
		o.log.WithError(err).Error("token refresh failed, session is invalid")
		o.broadcast(ctx, domain.EventSessionEnded, nil)
		return err
	}

	o.log.WithError(err).Error("folder fetch failed for %s", folder)
	o.broadcast(ctx, domain.EventSyncError, map[string]any{
		"folder": folder,
		"error":  apperr.AsAppError(err).Message,
	})
	return err
}

func (o *Orchestrator) broadcast(ctx context.Context, t domain.EventType, data any) {
	if o.realtime == nil {
		return
	}
	if err := o.realtime.Broadcast(ctx, domain.NewRealtimeEvent(t, data)); err != nil {
		o.log.WithError(err).Warn("failed to broadcast %s", t)
	}
}

// ---------------------------------------------------------------------------
// Triggers
// ---------------------------------------------------------------------------

// Bootstrap runs once on sign-in detection: fetches the profile, then the
// active folder, but only when it holds no rehydrated data.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	email, err := o.provider.Profile(ctx)
	if err != nil {
		return o.fetchFailed(ctx, o.store.ActiveFolder(), err)
	}
	o.mu.Lock()
	o.accountEmail = email
	o.mu.Unlock()

	active := o.store.ActiveFolder()
	if !o.store.IsEmpty(active) {
		o.log.Info("bootstrap: %s already loaded, skipping fetch", active)
		return nil
	}
	return o.fetchFolder(ctx, active, domain.TriggerBootstrap)
}

// SwitchFolder changes the active folder, resets its pagination and fetches.
func (o *Orchestrator) SwitchFolder(ctx context.Context, folder domain.Folder) error {
	if !folder.Valid() {
		return apperr.InvalidInput("folder", "unknown folder "+string(folder))
	}
	o.store.SetActiveFolder(folder)
	o.store.SetView(domain.ViewList)
	o.store.SetSelection("")
	o.store.ResetCursor(folder)
	return o.fetchFolder(ctx, folder, domain.TriggerViewChange)
}

// Refresh fetches the current folder. Manual refresh, poll ticks and push
// events all land here.
func (o *Orchestrator) Refresh(ctx context.Context, trigger domain.SyncTrigger) error {
	if trigger == domain.TriggerPush {
		o.store.SetHasNewEmails(true)
		o.broadcast(ctx, domain.EventNewMail, nil)
	}
	return o.fetchFolder(ctx, o.store.ActiveFolder(), trigger)
}

// LoadMore appends the folder's next page using its cursor. No cursor means
// nothing to do.
func (o *Orchestrator) LoadMore(ctx context.Context, folder domain.Folder) error {
	cursor := o.store.Cursor(folder)
	if cursor == "" {
		return nil
	}

	captured, ok := o.enterFetch(folder)
	if !ok {
		return nil
	}

	o.store.SetLoading(folder, true)
	o.store.SetInFlight(folder, true)
	filter := o.store.Filter(folder)

	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	result, err := o.provider.List(fetchCtx, out.ListQuery{
		Folder:    folder,
		Filter:    filter,
		PageToken: cursor,
		PageSize:  o.pageSize,
	})

	if !o.leaveFetch(folder, captured) {
		return nil
	}
	o.store.SetInFlight(folder, false)
	if err != nil {
		return o.fetchFailed(ctx, folder, err)
	}

	o.store.AppendPage(folder, result.Messages, result.NextCursor)
	o.broadcast(ctx, domain.EventFolderUpdated, map[string]any{"folder": folder})
	return nil
}

// SetFilter patches the folder's filter, invalidates its cursor, supersedes
// any in-flight fetch for the old predicate and refetches from page one.
// The superseded response is discarded by the sequence rule, not cancelled
// at the transport level.
func (o *Orchestrator) SetFilter(ctx context.Context, folder domain.Folder, patch domain.FilterPatch) error {
	if !folder.Valid() {
		return apperr.InvalidInput("folder", "unknown folder "+string(folder))
	}
	o.store.SetFilter(folder, patch)
	o.supersede(folder)
	return o.fetchFolder(ctx, folder, domain.TriggerFilter)
}

// Search sets the query filter on the active folder and switches to the
// search view.
func (o *Orchestrator) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return apperr.MissingField("query")
	}
	o.store.SetView(domain.ViewSearch)
	return o.SetFilter(ctx, o.store.ActiveFolder(), domain.FilterPatch{Query: &query})
}

// ---------------------------------------------------------------------------
// Message operations
// ---------------------------------------------------------------------------

// OpenMessage selects a loaded message, optimistically marks it read and
// returns it.
func (o *Orchestrator) OpenMessage(ctx context.Context, id string) (*domain.Message, error) {
	msg, ok := o.store.Message(id)
	if !ok {
		return nil, apperr.NotFound("message")
	}

	o.store.SetSelection(id)
	o.store.SetView(domain.ViewDetail)

	if msg.IsUnread {
		if err := o.MarkRead(ctx, id); err != nil {
			// Opening still succeeds; the read flip is best-effort and has
			// already been reverted.
			o.log.WithError(err).Warn("mark-read on open failed for %s", id)
		} else {
			msg.IsUnread = false
		}
	}
	return &msg, nil
}

// MarkRead applies the optimistic patch, calls the provider, and reverts
// the patch when the remote call fails.
func (o *Orchestrator) MarkRead(ctx context.Context, id string) error {
	return o.setUnread(ctx, id, false)
}

// MarkUnread is the inverse optimistic flip.
func (o *Orchestrator) MarkUnread(ctx context.Context, id string) error {
	return o.setUnread(ctx, id, true)
}

func (o *Orchestrator) setUnread(ctx context.Context, id string, unread bool) error {
	prev, ok := o.store.Message(id)
	if !ok {
		return apperr.NotFound("message")
	}
	if prev.IsUnread == unread {
		return nil
	}

	// Snapshot, patch, call, compensate on failure.
	o.store.PatchMessage(id, domain.MessagePatch{IsUnread: &unread})

	var err error
	if unread {
		err = o.provider.MarkUnread(ctx, id)
	} else {
		err = o.provider.MarkRead(ctx, id)
	}
	if err != nil {
		restored := prev.IsUnread
		o.store.PatchMessage(id, domain.MessagePatch{IsUnread: &restored})
		o.log.WithError(err).Error("remote read-state change failed, patch reverted")
		return err
	}

	event := domain.EventMailRead
	if unread {
		event = domain.EventMailUnread
	}
	o.broadcast(ctx, event, map[string]any{"id": id})
	return nil
}

// ---------------------------------------------------------------------------
// Compose
// ---------------------------------------------------------------------------

// OpenCompose opens the shared draft with an initial patch.
func (o *Orchestrator) OpenCompose(patch domain.ComposePatch) {
	open := true
	patch.IsOpen = &open
	o.store.SetCompose(patch)
	o.store.SetView(domain.ViewCompose)
}

// UpdateCompose patches the shared draft.
func (o *Orchestrator) UpdateCompose(patch domain.ComposePatch) {
	o.store.SetCompose(patch)
}

// ResetCompose clears the draft.
func (o *Orchestrator) ResetCompose() {
	o.store.ResetCompose()
}

// StartReply prefills the draft from a loaded message.
func (o *Orchestrator) StartReply(ctx context.Context, id string) error {
	msg, ok := o.store.Message(id)
	if !ok {
		return apperr.NotFound("message")
	}

	subject := msg.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	o.OpenCompose(domain.ComposePatch{
		To:        []string{msg.From.Email},
		Subject:   &subject,
		InReplyTo: &msg.RFCMessageID,
		ThreadID:  &msg.ThreadID,
	})
	return nil
}

// Send validates and sends the current draft. While a send is in flight a
// second send is refused. On failure the draft content is left intact so
// nothing the user typed is lost.
func (o *Orchestrator) Send(ctx context.Context) (*domain.Message, error) {
	draft := o.store.Compose()
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	if !o.store.BeginSend() {
		return nil, apperr.State("a send is already in progress")
	}

	sent, err := o.provider.Send(ctx, &out.SendRequest{
		To:        draft.To,
		Cc:        draft.Cc,
		Bcc:       draft.Bcc,
		Subject:   draft.Subject,
		Body:      draft.Body,
		InReplyTo: draft.InReplyTo,
		ThreadID:  draft.ThreadID,
	})
	if err != nil {
		o.store.EndSend()
		o.log.WithError(err).Error("send failed, draft preserved")
		return nil, err
	}

	o.store.ResetCompose()
	o.store.SetView(domain.ViewList)
	o.broadcast(ctx, domain.EventMailSent, map[string]any{"id": sent.ID})

	// Refresh the sent folder so the new message shows up; failure here is
	// non-fatal, the send already succeeded.
	if err := o.fetchFolder(ctx, domain.FolderSent, domain.TriggerManual); err != nil {
		o.log.WithError(err).Warn("sent-folder refresh after send failed")
	}
	return sent, nil
}

func validateDraft(draft domain.ComposeDraft) error {
	if len(draft.To) == 0 {
		return apperr.MissingField("to")
	}
	for _, lists := range [][]string{draft.To, draft.Cc, draft.Bcc} {
		for _, addr := range lists {
			if _, err := mail.ParseAddress(addr); err != nil {
				return apperr.InvalidInput("recipient", addr)
			}
		}
	}
	if strings.TrimSpace(draft.Subject) == "" && strings.TrimSpace(draft.Body) == "" {
		return apperr.ValidationFailed("message has neither subject nor body")
	}
	return nil
}

// Snapshot returns a read-only copy of the mailbox state.
func (o *Orchestrator) Snapshot() domain.MailboxSnapshot {
	return o.store.Snapshot()
}

// SignOut tears the session down: supersedes any in-flight fetches so their
// responses cannot land in the fresh store, resets the state container, and
// tells clients. The notifier owns its own lifecycle and is stopped by the
// caller.
func (o *Orchestrator) SignOut(ctx context.Context) {
	o.mu.Lock()
	for folder := range o.seq {
		o.seq[folder]++
	}
	for folder := range o.fetching {
		o.fetching[folder] = false
	}
	o.accountEmail = ""
	o.mu.Unlock()

	o.store.Reset()
	o.broadcast(ctx, domain.EventSessionEnded, nil)
}

var _ in.Mailbox = (*Orchestrator)(nil)
