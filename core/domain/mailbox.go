package domain

import "time"

// ViewMode is the active UI view.
type ViewMode string

const (
	ViewList    ViewMode = "list"
	ViewDetail  ViewMode = "detail"
	ViewSearch  ViewMode = "search"
	ViewCompose ViewMode = "compose"
)

// FolderState holds the fetched window of a folder: items in server order
// (newest first), the pagination cursor for the next page, and the loading
// flag. Cursors are only valid for the filter predicate under which they
// were issued.
type FolderState struct {
	Items      []Message `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
	IsLoading  bool      `json:"isLoading"`
}

// FilterState is the per-folder filter predicate. Changing any field
// invalidates the folder's cursor; pagination restarts from page one.
type FilterState struct {
	Query    string    `json:"query,omitempty"`
	Sender   string    `json:"sender,omitempty"`
	IsUnread *bool     `json:"isUnread,omitempty"`
	DateFrom time.Time `json:"dateFrom,omitempty"`
	DateTo   time.Time `json:"dateTo,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f FilterState) IsZero() bool {
	return f.Query == "" && f.Sender == "" && f.IsUnread == nil &&
		f.DateFrom.IsZero() && f.DateTo.IsZero()
}

// FilterPatch is a partial filter update. Nil/absent fields keep their
// current value; ClearUnread drops the IsUnread predicate.
type FilterPatch struct {
	Query       *string
	Sender      *string
	IsUnread    *bool
	ClearUnread bool
	DateFrom    *time.Time
	DateTo      *time.Time
}

// ComposeDraft is the single shared draft. Manual UI and agent actions both
// write to this one instance. IsSending is a transient lock: while true no
// second send may start.
type ComposeDraft struct {
	To           []string `json:"to"`
	Cc           []string `json:"cc,omitempty"`
	Bcc          []string `json:"bcc,omitempty"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	InReplyTo    string   `json:"inReplyTo,omitempty"`    // provider message id being replied to
	ThreadID     string   `json:"threadId,omitempty"`     // thread for replies
	IsOpen       bool     `json:"isOpen"`
	IsSending    bool     `json:"isSending"`
	IsAIComposed bool     `json:"isAiComposed"`
}

// ComposePatch is a partial draft update.
type ComposePatch struct {
	To           []string
	Cc           []string
	Bcc          []string
	Subject      *string
	Body         *string
	InReplyTo    *string
	ThreadID     *string
	IsOpen       *bool
	IsSending    *bool
	IsAIComposed *bool
}

// SyncState tracks fetch coordination bookkeeping per session.
type SyncState struct {
	LastSyncTime  time.Time       `json:"lastSyncTime,omitempty"`
	InFlightFetch map[Folder]bool `json:"inFlightFetch"`
	HasNewEmails  bool            `json:"hasNewEmails"`
}

// MailboxSnapshot is a read-only copy of the full mailbox state, returned
// to HTTP handlers and agent tools.
type MailboxSnapshot struct {
	Folders      map[Folder]FolderState  `json:"folders"`
	Filters      map[Folder]FilterState  `json:"filters"`
	Compose      ComposeDraft            `json:"compose"`
	Sync         SyncState               `json:"sync"`
	ActiveFolder Folder                  `json:"activeFolder"`
	Selection    string                  `json:"selection,omitempty"`
	View         ViewMode                `json:"view"`
}
