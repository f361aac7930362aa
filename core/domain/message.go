// Package domain holds the application's core types.
package domain

import (
	"strings"
	"time"
)

// Folder identifies a mailbox view.
type Folder string

const (
	FolderInbox Folder = "inbox"
	FolderSent  Folder = "sent"
)

// Folders lists the folders the client synchronizes.
var Folders = []Folder{FolderInbox, FolderSent}

// LabelID returns the provider label backing the folder.
func (f Folder) LabelID() string {
	switch f {
	case FolderSent:
		return "SENT"
	default:
		return "INBOX"
	}
}

// Valid reports whether the folder is one the client knows about.
func (f Folder) Valid() bool {
	for _, known := range Folders {
		if f == known {
			return true
		}
	}
	return false
}

// Address is an email address with an optional display name. Value type.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// UnknownSender is the sentinel used when a message carries no From header.
var UnknownSender = Address{Email: "unknown@example.com"}

// String renders the address in RFC 5322 form.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// Message is the normalized message record, independent of the provider's
// wire format. Immutable once produced by the normalizer; the state store
// overlays local patches (read flips) without re-deriving the rest.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId"`
	Snippet    string    `json:"snippet"`
	Subject    string    `json:"subject"`
	From       Address   `json:"from"`
	To         []Address `json:"to"`
	Cc         []Address `json:"cc,omitempty"`
	Date       time.Time `json:"date"`
	Body       string    `json:"body"`
	BodyIsHTML bool      `json:"bodyIsHtml"`
	IsUnread   bool      `json:"isUnread"`
	Labels     []string  `json:"labels"`

	// RFCMessageID is the wire Message-ID header, kept for reply threading.
	RFCMessageID string `json:"rfcMessageId,omitempty"`
}

// HasLabel reports whether the message carries the given provider label.
func (m *Message) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// MessagePatch is a partial overlay applied to a loaded message.
// Nil fields are left untouched.
type MessagePatch struct {
	IsUnread *bool
	Labels   []string
}

// MatchesFilter reports whether the message satisfies the filter predicate.
// Used for local re-filtering of already-loaded folders.
func (m *Message) MatchesFilter(f FilterState) bool {
	if f.IsUnread != nil && m.IsUnread != *f.IsUnread {
		return false
	}
	if f.Sender != "" && !strings.EqualFold(m.From.Email, f.Sender) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(m.Subject), q) &&
			!strings.Contains(strings.ToLower(m.Snippet), q) &&
			!strings.Contains(strings.ToLower(m.Body), q) {
			return false
		}
	}
	if !f.DateFrom.IsZero() && m.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && m.Date.After(f.DateTo) {
		return false
	}
	return true
}
