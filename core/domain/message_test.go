package domain

import (
	"testing"
	"time"
)

func TestFolderLabelAndValidity(t *testing.T) {
	if FolderInbox.LabelID() != "INBOX" || FolderSent.LabelID() != "SENT" {
		t.Fatalf("label ids: %q %q", FolderInbox.LabelID(), FolderSent.LabelID())
	}
	if !FolderInbox.Valid() || !FolderSent.Valid() {
		t.Fatal("known folders must be valid")
	}
	if Folder("spam").Valid() {
		t.Fatal("unknown folder must be invalid")
	}
}

func TestAddressString(t *testing.T) {
	if got := (Address{Email: "a@example.com"}).String(); got != "a@example.com" {
		t.Fatalf("bare address: %q", got)
	}
	if got := (Address{Email: "a@example.com", Name: "Alice"}).String(); got != "Alice <a@example.com>" {
		t.Fatalf("named address: %q", got)
	}
}

func TestMatchesFilter(t *testing.T) {
	date := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := Message{
		Subject:  "Invoice for March",
		Snippet:  "attached you will find",
		Body:     "the full invoice details",
		From:     Address{Email: "Billing@Example.com"},
		Date:     date,
		IsUnread: true,
	}

	unread := true
	read := false
	cases := []struct {
		name   string
		filter FilterState
		want   bool
	}{
		{"empty filter matches", FilterState{}, true},
		{"unread matches", FilterState{IsUnread: &unread}, true},
		{"read mismatch", FilterState{IsUnread: &read}, false},
		{"sender case-insensitive", FilterState{Sender: "billing@example.com"}, true},
		{"sender mismatch", FilterState{Sender: "other@example.com"}, false},
		{"query in subject", FilterState{Query: "invoice"}, true},
		{"query in body", FilterState{Query: "DETAILS"}, true},
		{"query miss", FilterState{Query: "receipt"}, false},
		{"date range hit", FilterState{DateFrom: date.Add(-time.Hour), DateTo: date.Add(time.Hour)}, true},
		{"before range", FilterState{DateFrom: date.Add(time.Hour)}, false},
		{"after range", FilterState{DateTo: date.Add(-time.Hour)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.MatchesFilter(tc.filter); got != tc.want {
				t.Fatalf("MatchesFilter(%+v) = %v, want %v", tc.filter, got, tc.want)
			}
		})
	}
}

func TestFilterStateIsZero(t *testing.T) {
	if !(FilterState{}).IsZero() {
		t.Fatal("empty filter must be zero")
	}
	unread := true
	if (FilterState{IsUnread: &unread}).IsZero() {
		t.Fatal("set predicate must not be zero")
	}
	if (FilterState{Query: "x"}).IsZero() {
		t.Fatal("query must not be zero")
	}
}
