// Package mailbox holds the in-memory source of truth for fetched mailbox
// state: folder windows, filters, the shared compose draft, selection and
// sync bookkeeping.
package mailbox

import (
	"sync"
	"time"

	"webmail_client/core/domain"
)

// Store is the session's state container. It performs no I/O; all mutations
// are synchronous and last-writer-wins; the orchestrator enforces
// single-flight fetches per folder, so there are never concurrent writers
// for the same folder's data. Created at session start, discarded at
// sign-out.
type Store struct {
	mu sync.RWMutex

	folders map[domain.Folder]*domain.FolderState
	filters map[domain.Folder]*domain.FilterState
	compose domain.ComposeDraft
	sync    domain.SyncState

	activeFolder domain.Folder
	selection    string
	view         domain.ViewMode
}

// NewStore creates an empty state container with inbox active.
func NewStore() *Store {
	s := &Store{
		folders:      make(map[domain.Folder]*domain.FolderState),
		filters:      make(map[domain.Folder]*domain.FilterState),
		activeFolder: domain.FolderInbox,
		view:         domain.ViewList,
	}
	s.sync.InFlightFetch = make(map[domain.Folder]bool)
	for _, f := range domain.Folders {
		s.folders[f] = &domain.FolderState{Items: []domain.Message{}}
		s.filters[f] = &domain.FilterState{}
	}
	return s
}

// ---------------------------------------------------------------------------
// Folder mutations
// ---------------------------------------------------------------------------

// ReplaceFolder swaps a folder's items wholesale (page-one fetch result) and
// stores the new cursor.
func (s *Store) ReplaceFolder(folder domain.Folder, items []domain.Message, nextCursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs := s.folder(folder)
	fs.Items = items
	fs.NextCursor = nextCursor
	fs.IsLoading = false
}

// AppendPage appends the next page's items, skipping ids already present so
// a shifted window never introduces duplicates.
func (s *Store) AppendPage(folder domain.Folder, items []domain.Message, nextCursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs := s.folder(folder)

	seen := make(map[string]struct{}, len(fs.Items))
	for _, m := range fs.Items {
		seen[m.ID] = struct{}{}
	}
	for _, m := range items {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		fs.Items = append(fs.Items, m)
	}
	fs.NextCursor = nextCursor
	fs.IsLoading = false
}

// SetLoading flips a folder's loading flag.
func (s *Store) SetLoading(folder domain.Folder, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folder(folder).IsLoading = loading
}

// PatchMessage locates the message across all loaded folders and applies the
// patch in place. Used for optimistic read/unread flips; never appends.
// Returns false when the id is not loaded anywhere.
func (s *Store) PatchMessage(id string, patch domain.MessagePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, fs := range s.folders {
		for i := range fs.Items {
			if fs.Items[i].ID != id {
				continue
			}
			applyPatch(&fs.Items[i], patch)
			found = true
		}
	}
	return found
}

func applyPatch(m *domain.Message, patch domain.MessagePatch) {
	if patch.IsUnread != nil {
		m.IsUnread = *patch.IsUnread
	}
	if patch.Labels != nil {
		m.Labels = patch.Labels
	}
}

// Message returns a copy of a loaded message, searching all folders.
func (s *Store) Message(id string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fs := range s.folders {
		for i := range fs.Items {
			if fs.Items[i].ID == id {
				return fs.Items[i], true
			}
		}
	}
	return domain.Message{}, false
}

// FolderSnapshot returns a copy of a folder's state with the folder's filter
// applied locally, preserving server order.
func (s *Store) FolderSnapshot(folder domain.Folder) domain.FolderState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs := s.folder(folder)
	filter := *s.filter(folder)

	items := make([]domain.Message, 0, len(fs.Items))
	for _, m := range fs.Items {
		if m.MatchesFilter(filter) {
			items = append(items, m)
		}
	}
	return domain.FolderState{
		Items:      items,
		NextCursor: fs.NextCursor,
		IsLoading:  fs.IsLoading,
	}
}

// IsEmpty reports whether a folder has no loaded items.
func (s *Store) IsEmpty(folder domain.Folder) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.folder(folder).Items) == 0
}

// ResetCursor invalidates a folder's pagination cursor (view change).
func (s *Store) ResetCursor(folder domain.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folder(folder).NextCursor = ""
}

// Cursor returns a folder's pagination cursor.
func (s *Store) Cursor(folder domain.Folder) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folder(folder).NextCursor
}

// ---------------------------------------------------------------------------
// Filter mutations
// ---------------------------------------------------------------------------

// SetFilter patches a folder's filter and invalidates its pagination cursor.
// Cursors are only valid for the predicate they were issued under, so this
// is a hard correctness rule, not housekeeping.
func (s *Store) SetFilter(folder domain.Folder, patch domain.FilterPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.filter(folder)
	if patch.Query != nil {
		f.Query = *patch.Query
	}
	if patch.Sender != nil {
		f.Sender = *patch.Sender
	}
	if patch.ClearUnread {
		f.IsUnread = nil
	} else if patch.IsUnread != nil {
		f.IsUnread = patch.IsUnread
	}
	if patch.DateFrom != nil {
		f.DateFrom = *patch.DateFrom
	}
	if patch.DateTo != nil {
		f.DateTo = *patch.DateTo
	}

	s.folder(folder).NextCursor = ""
}

// Filter returns a copy of a folder's filter.
func (s *Store) Filter(folder domain.Folder) domain.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.filter(folder)
}

// ---------------------------------------------------------------------------
// Compose draft
// ---------------------------------------------------------------------------

// SetCompose patches the single shared draft.
func (s *Store) SetCompose(patch domain.ComposePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &s.compose
	if patch.To != nil {
		c.To = patch.To
	}
	if patch.Cc != nil {
		c.Cc = patch.Cc
	}
	if patch.Bcc != nil {
		c.Bcc = patch.Bcc
	}
	if patch.Subject != nil {
		c.Subject = *patch.Subject
	}
	if patch.Body != nil {
		c.Body = *patch.Body
	}
	if patch.InReplyTo != nil {
		c.InReplyTo = *patch.InReplyTo
	}
	if patch.ThreadID != nil {
		c.ThreadID = *patch.ThreadID
	}
	if patch.IsOpen != nil {
		c.IsOpen = *patch.IsOpen
	}
	if patch.IsSending != nil {
		c.IsSending = *patch.IsSending
	}
	if patch.IsAIComposed != nil {
		c.IsAIComposed = *patch.IsAIComposed
	}
}

// Compose returns a copy of the draft.
func (s *Store) Compose() domain.ComposeDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compose
}

// ResetCompose clears the draft back to its zero state.
func (s *Store) ResetCompose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compose = domain.ComposeDraft{}
}

// BeginSend atomically flips the transient send lock. Returns false when a
// send is already in flight.
func (s *Store) BeginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compose.IsSending {
		return false
	}
	s.compose.IsSending = true
	return true
}

// EndSend releases the send lock.
func (s *Store) EndSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compose.IsSending = false
}

// ---------------------------------------------------------------------------
// Selection, view, sync bookkeeping
// ---------------------------------------------------------------------------

// SetSelection records the selected message id ("" clears it).
func (s *Store) SetSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = id
}

// SetView changes the active view mode.
func (s *Store) SetView(view domain.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
}

// SetActiveFolder changes the folder the UI is looking at.
func (s *Store) SetActiveFolder(folder domain.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeFolder = folder
}

// ActiveFolder returns the folder the UI is looking at.
func (s *Store) ActiveFolder() domain.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFolder
}

// SetHasNewEmails raises or clears the new-mail badge flag.
func (s *Store) SetHasNewEmails(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.HasNewEmails = v
}

// MarkSynced records a successful fetch completion time.
func (s *Store) MarkSynced(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.LastSyncTime = at
}

// SetInFlight tracks the per-folder fetch flag for UI display. The
// orchestrator's own single-flight guard is authoritative; this mirror
// exists for snapshots.
func (s *Store) SetInFlight(folder domain.Folder, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.InFlightFetch[folder] = v
}

// Snapshot returns a read-only copy of the whole mailbox state with filters
// applied to folder views.
func (s *Store) Snapshot() domain.MailboxSnapshot {
	s.mu.RLock()
	active := s.activeFolder
	selection := s.selection
	view := s.view
	compose := s.compose
	syncState := domain.SyncState{
		LastSyncTime:  s.sync.LastSyncTime,
		InFlightFetch: make(map[domain.Folder]bool, len(s.sync.InFlightFetch)),
		HasNewEmails:  s.sync.HasNewEmails,
	}
	for k, v := range s.sync.InFlightFetch {
		syncState.InFlightFetch[k] = v
	}
	filters := make(map[domain.Folder]domain.FilterState, len(s.filters))
	for k, v := range s.filters {
		filters[k] = *v
	}
	s.mu.RUnlock()

	folders := make(map[domain.Folder]domain.FolderState, len(s.folders))
	for _, f := range domain.Folders {
		folders[f] = s.FolderSnapshot(f)
	}

	return domain.MailboxSnapshot{
		Folders:      folders,
		Filters:      filters,
		Compose:      compose,
		Sync:         syncState,
		ActiveFolder: active,
		Selection:    selection,
		View:         view,
	}
}

// Reset clears the whole container back to its signed-out zero state: folder
// items, filters, the compose draft, selection and sync bookkeeping. The next
// session must never see data from the previous one.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = make(map[domain.Folder]*domain.FolderState)
	s.filters = make(map[domain.Folder]*domain.FilterState)
	for _, f := range domain.Folders {
		s.folders[f] = &domain.FolderState{Items: []domain.Message{}}
		s.filters[f] = &domain.FilterState{}
	}
	s.compose = domain.ComposeDraft{}
	s.sync = domain.SyncState{InFlightFetch: make(map[domain.Folder]bool)}
	s.activeFolder = domain.FolderInbox
	s.selection = ""
	s.view = domain.ViewList
}

// folder returns the mutable folder state, creating it on first touch.
// Callers must hold the lock.
func (s *Store) folder(f domain.Folder) *domain.FolderState {
	fs, ok := s.folders[f]
	if !ok {
		fs = &domain.FolderState{Items: []domain.Message{}}
		s.folders[f] = fs
	}
	return fs
}

func (s *Store) filter(f domain.Folder) *domain.FilterState {
	fl, ok := s.filters[f]
	if !ok {
		fl = &domain.FilterState{}
		s.filters[f] = fl
	}
	return fl
}
