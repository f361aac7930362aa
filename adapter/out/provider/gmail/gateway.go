// Package gmail implements the mail provider gateway over the Gmail REST API.
package gmail

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"webmail_client/core/domain"
	"webmail_client/core/port/out"
	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// Bounded retry for provider calls: 5xx and transport errors only,
	// never 4xx.
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond

	// Bounded fan-out for per-id message fetches.
	defaultBatchConcurrency = 5
)

// Gateway is a stateless typed wrapper over the Gmail REST endpoints. Every
// call obtains a valid token from the token source first, then issues the
// HTTP call through a circuit breaker.
type Gateway struct {
	tokens           out.TokenSource
	httpClient       *http.Client
	topicName        string
	batchConcurrency int
	cb               *gobreaker.CircuitBreaker
	log              *logger.Logger
}

// Config holds gateway construction options.
type Config struct {
	HTTPClient       *http.Client
	PubSubTopic      string // full topic name for watch subscriptions, optional
	BatchConcurrency int
}

// NewGateway creates a Gmail gateway.
func NewGateway(tokens out.TokenSource, cfg *Config, log *logger.Logger) *Gateway {
	if cfg == nil {
		cfg = &Config{}
	}
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Gateway{
		tokens:           tokens,
		httpClient:       cfg.HTTPClient,
		topicName:        cfg.PubSubTopic,
		batchConcurrency: concurrency,
		cb:               gobreaker.NewCircuitBreaker(cbSettings),
		log:              log.WithField("component", "gmail_gateway"),
	}
}

// service builds an API client authenticated with a currently-valid token.
func (g *Gateway) service(ctx context.Context) (*gmailapi.Service, error) {
	tok, err := g.tokens.ValidToken(ctx)
	if err != nil {
		return nil, err
	}
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}))
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, apperr.Network("create gmail client", err)
	}
	return svc, nil
}

// call runs fn through the circuit breaker with bounded retry.
func (g *Gateway) call(ctx context.Context, op string, fn func() error) error {
	_, err := g.cb.Execute(func() (any, error) {
		var lastErr error
		delay := retryBaseDelay
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				delay *= 2
			}
			lastErr = fn()
			if lastErr == nil || !retryable(lastErr) {
				return nil, lastErr
			}
			g.log.Warn("%s failed (attempt %d/%d): %v", op, attempt+1, maxAttempts, lastErr)
		}
		return nil, lastErr
	})
	if err != nil {
		return g.wrapError(err, op)
	}
	return nil
}

// retryable reports whether the error is worth retrying: provider 5xx or a
// transport failure. 4xx responses are never retried.
func retryable(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code >= 500
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}
	// Non-API errors are transport-level.
	return true
}

// wrapError maps a provider failure to the application error taxonomy,
// carrying the response status and body.
func (g *Gateway) wrapError(err error, op string) error {
	if apperr.IsAppError(err) {
		return err
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperr.Network(op, err)
	}
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			e := apperr.PermissionDenied(fmt.Sprintf("provider rejected %s", op))
			e.Err = err
			return e.WithDetail("status", apiErr.Code).WithDetail("body", apiErr.Body)
		case apiErr.Code == 404:
			return apperr.NotFound(op).WithDetail("body", apiErr.Body)
		default:
			return apperr.Network(op, err).
				WithDetail("status", apiErr.Code).
				WithDetail("body", apiErr.Body)
		}
	}
	return apperr.Network(op, err)
}

// Profile returns the authenticated account's email address.
func (g *Gateway) Profile(ctx context.Context) (string, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return "", err
	}
	var profile *gmailapi.Profile
	err = g.call(ctx, "get profile", func() error {
		var apiErr error
		profile, apiErr = svc.Users.GetProfile("me").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return "", err
	}
	return profile.EmailAddress, nil
}

// List fetches one page of a folder, applying the filter as a server-side
// query, and returns normalized messages in server order.
func (g *Gateway) List(ctx context.Context, q out.ListQuery) (*out.ListResult, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := svc.Users.Messages.List("me").LabelIds(q.Folder.LabelID())
	if query := buildQuery(q.Filter); query != "" {
		req = req.Q(query)
	}
	if q.PageToken != "" {
		req = req.PageToken(q.PageToken)
	}
	if q.PageSize > 0 {
		req = req.MaxResults(q.PageSize)
	}

	var resp *gmailapi.ListMessagesResponse
	err = g.call(ctx, "list messages", func() error {
		var apiErr error
		resp, apiErr = req.Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		ids = append(ids, ref.Id)
	}

	messages, err := g.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &out.ListResult{Messages: messages, NextCursor: resp.NextPageToken}, nil
}

// Get retrieves and normalizes a single message.
func (g *Gateway) Get(ctx context.Context, id string) (*domain.Message, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}
	var msg *gmailapi.Message
	err = g.call(ctx, "get message", func() error {
		var apiErr error
		msg, apiErr = svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}
	normalized := Normalize(msg)
	return &normalized, nil
}

// BatchGet fetches messages concurrently with bounded fan-out and preserves
// input order in the result. Individual failures are dropped after logging.
func (g *Gateway) BatchGet(ctx context.Context, ids []string) ([]domain.Message, error) {
	if len(ids) == 0 {
		return []domain.Message{}, nil
	}

	type result struct {
		index int
		msg   *domain.Message
		err   error
	}

	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, g.batchConcurrency)

	for i, id := range ids {
		go func(idx int, msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			msg, err := g.Get(ctx, msgID)
			results <- result{index: idx, msg: msg, err: err}
		}(i, id)
	}

	ordered := make([]*domain.Message, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			g.log.WithError(r.err).Warn("batch get: dropping failed message fetch")
			continue
		}
		ordered[r.index] = r.msg
	}

	messages := make([]domain.Message, 0, len(ids))
	for _, msg := range ordered {
		if msg != nil {
			messages = append(messages, *msg)
		}
	}
	return messages, nil
}

// Search runs a free-text query across the whole mailbox.
func (g *Gateway) Search(ctx context.Context, query string, pageToken string, pageSize int64) (*out.ListResult, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := svc.Users.Messages.List("me").Q(query)
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}
	if pageSize > 0 {
		req = req.MaxResults(pageSize)
	}

	var resp *gmailapi.ListMessagesResponse
	err = g.call(ctx, "search messages", func() error {
		var apiErr error
		resp, apiErr = req.Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		ids = append(ids, ref.Id)
	}
	messages, err := g.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &out.ListResult{Messages: messages, NextCursor: resp.NextPageToken}, nil
}

// Send assembles the envelope, encodes it base64url without padding, and
// sends it, threading replies when a thread id is given.
func (g *Gateway) Send(ctx context.Context, req *out.SendRequest) (*domain.Message, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	msg := &gmailapi.Message{Raw: encodeEnvelope(buildEnvelope(req))}
	if req.ThreadID != "" {
		msg.ThreadId = req.ThreadID
	}

	var sent *gmailapi.Message
	err = g.call(ctx, "send message", func() error {
		var apiErr error
		sent, apiErr = svc.Users.Messages.Send("me", msg).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	return g.Get(ctx, sent.Id)
}

// ModifyLabels adds and removes labels on a message.
func (g *Gateway) ModifyLabels(ctx context.Context, id string, add, remove []string) error {
	svc, err := g.service(ctx)
	if err != nil {
		return err
	}
	return g.call(ctx, "modify labels", func() error {
		_, apiErr := svc.Users.Messages.Modify("me", id, &gmailapi.ModifyMessageRequest{
			AddLabelIds:    add,
			RemoveLabelIds: remove,
		}).Context(ctx).Do()
		return apiErr
	})
}

// MarkRead removes the UNREAD label.
func (g *Gateway) MarkRead(ctx context.Context, id string) error {
	return g.ModifyLabels(ctx, id, nil, []string{"UNREAD"})
}

// MarkUnread adds the UNREAD label.
func (g *Gateway) MarkUnread(ctx context.Context, id string) error {
	return g.ModifyLabels(ctx, id, []string{"UNREAD"}, nil)
}

// GetThread retrieves a conversation with all its messages normalized.
func (g *Gateway) GetThread(ctx context.Context, threadID string) (*out.Thread, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}
	var thread *gmailapi.Thread
	err = g.call(ctx, "get thread", func() error {
		var apiErr error
		thread, apiErr = svc.Users.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		messages = append(messages, Normalize(msg))
	}
	return &out.Thread{ID: thread.Id, Messages: messages}, nil
}

// Watch establishes a provider push subscription on the inbox.
func (g *Gateway) Watch(ctx context.Context) (*out.WatchResult, error) {
	if g.topicName == "" {
		return nil, apperr.ValidationFailed("push topic not configured")
	}
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	var resp *gmailapi.WatchResponse
	err = g.call(ctx, "watch", func() error {
		var apiErr error
		resp, apiErr = svc.Users.Watch("me", &gmailapi.WatchRequest{
			TopicName: g.topicName,
			LabelIds:  []string{"INBOX"},
		}).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	return &out.WatchResult{
		HistoryID:  resp.HistoryId,
		Expiration: time.Unix(0, resp.Expiration*int64(time.Millisecond)),
	}, nil
}

// Stop tears down the push subscription.
func (g *Gateway) Stop(ctx context.Context) error {
	svc, err := g.service(ctx)
	if err != nil {
		return err
	}
	return g.call(ctx, "stop watch", func() error {
		return svc.Users.Stop("me").Context(ctx).Do()
	})
}

// buildQuery translates the filter predicate into a provider query string.
func buildQuery(f domain.FilterState) string {
	var parts []string
	if f.Query != "" {
		parts = append(parts, f.Query)
	}
	if f.Sender != "" {
		parts = append(parts, "from:"+f.Sender)
	}
	if f.IsUnread != nil {
		if *f.IsUnread {
			parts = append(parts, "is:unread")
		} else {
			parts = append(parts, "is:read")
		}
	}
	if !f.DateFrom.IsZero() {
		parts = append(parts, "after:"+f.DateFrom.Format("2006/01/02"))
	}
	if !f.DateTo.IsZero() {
		parts = append(parts, "before:"+f.DateTo.Format("2006/01/02"))
	}
	return strings.Join(parts, " ")
}

var _ out.MailProvider = (*Gateway)(nil)
