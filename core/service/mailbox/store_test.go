package mailbox

import (
	"testing"
	"time"

	"webmail_client/core/domain"
)

func msg(id, subject string, unread bool) domain.Message {
	return domain.Message{
		ID:       id,
		Subject:  subject,
		From:     domain.Address{Email: "sender@example.com"},
		Date:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		IsUnread: unread,
	}
}

func TestReplaceFolderSwapsItems(t *testing.T) {
	s := NewStore()
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{msg("1", "a", false)}, "cur-1")
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{msg("2", "b", false)}, "cur-2")

	snap := s.FolderSnapshot(domain.FolderInbox)
	if len(snap.Items) != 1 || snap.Items[0].ID != "2" {
		t.Fatalf("replace must swap wholesale, got %+v", snap.Items)
	}
	if snap.NextCursor != "cur-2" {
		t.Fatalf("cursor %q", snap.NextCursor)
	}
}

func TestAppendPageSkipsDuplicates(t *testing.T) {
	s := NewStore()
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{msg("1", "a", false), msg("2", "b", false)}, "cur-1")
	// Window shifted: page two re-includes id 2.
	s.AppendPage(domain.FolderInbox, []domain.Message{msg("2", "b", false), msg("3", "c", false)}, "")

	snap := s.FolderSnapshot(domain.FolderInbox)
	if len(snap.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(snap.Items))
	}
	for i, want := range []string{"1", "2", "3"} {
		if snap.Items[i].ID != want {
			t.Fatalf("item %d: got %q, want %q", i, snap.Items[i].ID, want)
		}
	}
	if snap.NextCursor != "" {
		t.Fatalf("cursor must follow the appended page, got %q", snap.NextCursor)
	}
}

func TestPatchMessageInPlace(t *testing.T) {
	s := NewStore()
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{
		msg("1", "a", true), msg("2", "b", true), msg("3", "c", true),
	}, "")

	unread := false
	if !s.PatchMessage("2", domain.MessagePatch{IsUnread: &unread}) {
		t.Fatal("patch must report the message as found")
	}

	snap := s.FolderSnapshot(domain.FolderInbox)
	if len(snap.Items) != 3 {
		t.Fatalf("patch must not add or remove items, got %d", len(snap.Items))
	}
	if snap.Items[1].ID != "2" || snap.Items[1].IsUnread {
		t.Fatalf("item 2 not patched in place: %+v", snap.Items[1])
	}

	if s.PatchMessage("missing", domain.MessagePatch{IsUnread: &unread}) {
		t.Fatal("patching an unloaded id must report not found")
	}
}

func TestFolderSnapshotAppliesFilterPreservingOrder(t *testing.T) {
	s := NewStore()
	items := make([]domain.Message, 0, 10)
	for i := 0; i < 10; i++ {
		m := msg(string(rune('a'+i)), "subject", i%3 == 0) // a, d, g, j unread
		items = append(items, m)
	}
	s.ReplaceFolder(domain.FolderInbox, items, "")

	unread := true
	s.SetFilter(domain.FolderInbox, domain.FilterPatch{IsUnread: &unread})

	snap := s.FolderSnapshot(domain.FolderInbox)
	if len(snap.Items) != 4 {
		t.Fatalf("expected 4 unread items, got %d", len(snap.Items))
	}
	for i, want := range []string{"a", "d", "g", "j"} {
		if snap.Items[i].ID != want {
			t.Fatalf("filtered order broken at %d: got %q, want %q", i, snap.Items[i].ID, want)
		}
	}
}

func TestSetFilterClearsCursor(t *testing.T) {
	s := NewStore()
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{msg("1", "a", false)}, "cur-1")

	query := "invoice"
	s.SetFilter(domain.FolderInbox, domain.FilterPatch{Query: &query})

	if got := s.Cursor(domain.FolderInbox); got != "" {
		t.Fatalf("filter change must invalidate the cursor, got %q", got)
	}
	if got := s.Filter(domain.FolderInbox); got.Query != "invoice" {
		t.Fatalf("filter not applied: %+v", got)
	}
}

func TestSetFilterClearUnread(t *testing.T) {
	s := NewStore()
	unread := true
	s.SetFilter(domain.FolderInbox, domain.FilterPatch{IsUnread: &unread})
	if s.Filter(domain.FolderInbox).IsUnread == nil {
		t.Fatal("unread predicate not set")
	}

	s.SetFilter(domain.FolderInbox, domain.FilterPatch{ClearUnread: true})
	if s.Filter(domain.FolderInbox).IsUnread != nil {
		t.Fatal("ClearUnread must drop the predicate")
	}
}

func TestFiltersAreIndependentPerFolder(t *testing.T) {
	s := NewStore()
	query := "report"
	s.SetFilter(domain.FolderInbox, domain.FilterPatch{Query: &query})

	if got := s.Filter(domain.FolderSent); !got.IsZero() {
		t.Fatalf("sent filter must stay untouched: %+v", got)
	}
}

func TestBeginSendLocks(t *testing.T) {
	s := NewStore()
	if !s.BeginSend() {
		t.Fatal("first BeginSend must succeed")
	}
	if s.BeginSend() {
		t.Fatal("second BeginSend must be refused while in flight")
	}
	s.EndSend()
	if !s.BeginSend() {
		t.Fatal("BeginSend must succeed after EndSend")
	}
}

func TestComposePatchAndReset(t *testing.T) {
	s := NewStore()
	subject := "hello"
	open := true
	s.SetCompose(domain.ComposePatch{To: []string{"a@example.com"}, Subject: &subject, IsOpen: &open})

	body := "typed text"
	s.SetCompose(domain.ComposePatch{Body: &body})

	draft := s.Compose()
	if draft.Subject != "hello" || draft.Body != "typed text" || !draft.IsOpen {
		t.Fatalf("partial patches must merge: %+v", draft)
	}
	if len(draft.To) != 1 {
		t.Fatalf("recipients lost: %+v", draft.To)
	}

	s.ResetCompose()
	if got := s.Compose(); got.IsOpen || got.Subject != "" || len(got.To) != 0 {
		t.Fatalf("reset must zero the draft: %+v", got)
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	s := NewStore()
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{msg("1", "a", true)}, "cur")
	s.SetActiveFolder(domain.FolderSent)
	s.SetSelection("1")
	s.SetView(domain.ViewDetail)
	s.SetHasNewEmails(true)
	s.SetInFlight(domain.FolderInbox, true)

	snap := s.Snapshot()
	if snap.ActiveFolder != domain.FolderSent {
		t.Fatalf("active folder %q", snap.ActiveFolder)
	}
	if snap.Selection != "1" || snap.View != domain.ViewDetail {
		t.Fatalf("selection/view: %q %q", snap.Selection, snap.View)
	}
	if !snap.Sync.HasNewEmails || !snap.Sync.InFlightFetch[domain.FolderInbox] {
		t.Fatalf("sync state: %+v", snap.Sync)
	}
	if len(snap.Folders[domain.FolderInbox].Items) != 1 {
		t.Fatalf("folders missing items: %+v", snap.Folders)
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := NewStore()
	s.ReplaceFolder(domain.FolderInbox, []domain.Message{{ID: "1"}}, "cursor")
	query := "invoice"
	s.SetFilter(domain.FolderInbox, domain.FilterPatch{Query: &query})
	body := "draft body"
	open := true
	s.SetCompose(domain.ComposePatch{Body: &body, IsOpen: &open})
	s.SetActiveFolder(domain.FolderSent)
	s.SetSelection("1")
	s.SetView(domain.ViewDetail)
	s.SetHasNewEmails(true)
	s.SetInFlight(domain.FolderInbox, true)
	s.MarkSynced(time.Now())

	s.Reset()

	if !s.IsEmpty(domain.FolderInbox) {
		t.Fatal("items must be gone after reset")
	}
	if s.Cursor(domain.FolderInbox) != "" {
		t.Fatal("cursor must be gone after reset")
	}
	if !s.Filter(domain.FolderInbox).IsZero() {
		t.Fatalf("filter must be zero after reset: %+v", s.Filter(domain.FolderInbox))
	}
	snap := s.Snapshot()
	if snap.Compose.IsOpen || snap.Compose.Body != "" {
		t.Fatalf("draft must be gone after reset: %+v", snap.Compose)
	}
	if snap.ActiveFolder != domain.FolderInbox || snap.Selection != "" || snap.View != domain.ViewList {
		t.Fatalf("navigation must return to defaults: %+v", snap)
	}
	if snap.Sync.HasNewEmails || snap.Sync.InFlightFetch[domain.FolderInbox] || !snap.Sync.LastSyncTime.IsZero() {
		t.Fatalf("sync bookkeeping must be gone after reset: %+v", snap.Sync)
	}
}
