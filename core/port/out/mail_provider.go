package out

import (
	"context"
	"time"

	"webmail_client/core/domain"
)

// TokenSource yields a currently-valid bearer token, refreshing if needed.
// A failure here means the session is invalid; callers must not retry.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
	// IsExpired is a pure check with no side effect: true when no issue
	// timestamp is stored or the token age exceeds the safety margin.
	IsExpired() bool
}

// ListQuery selects a page of messages from the provider.
type ListQuery struct {
	Folder    domain.Folder
	Filter    domain.FilterState
	PageToken string
	PageSize  int64
}

// ListResult is one page of normalized messages plus the opaque cursor for
// the next page. The cursor is only valid for the query it was issued under.
type ListResult struct {
	Messages   []domain.Message
	NextCursor string
}

// SendRequest carries the structured fields of an outgoing message.
type SendRequest struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string

	// Reply threading; empty for fresh messages.
	InReplyTo string // Message-ID header value of the replied-to message
	ThreadID  string
}

// Thread is a provider conversation.
type Thread struct {
	ID       string
	Messages []domain.Message
}

// WatchResult describes an established provider push subscription.
type WatchResult struct {
	HistoryID  uint64
	Expiration time.Time
}

// MailProvider is the typed wrapper over the provider's REST endpoints.
// Stateless aside from its token source; every call obtains a valid token
// first and maps non-2xx responses to apperr domain errors.
type MailProvider interface {
	Profile(ctx context.Context) (string, error)
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, id string) (*domain.Message, error)
	// BatchGet fetches ids concurrently and preserves input order.
	BatchGet(ctx context.Context, ids []string) ([]domain.Message, error)
	Search(ctx context.Context, query string, pageToken string, pageSize int64) (*ListResult, error)
	Send(ctx context.Context, req *SendRequest) (*domain.Message, error)
	ModifyLabels(ctx context.Context, id string, add, remove []string) error
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error
	GetThread(ctx context.Context, threadID string) (*Thread, error)
	Watch(ctx context.Context) (*WatchResult, error)
	Stop(ctx context.Context) error
}
