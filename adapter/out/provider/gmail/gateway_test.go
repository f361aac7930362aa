package gmail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"webmail_client/core/domain"
	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"

	json "github.com/goccy/go-json"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard, Service: "test"})
}

type staticTokens struct{}

func (staticTokens) ValidToken(ctx context.Context) (string, error) { return "test-token", nil }
func (staticTokens) IsExpired() bool                                { return false }

// fakeTransport answers message-get requests from a canned map, optionally
// delaying specific ids to force out-of-order completion.
type fakeTransport struct {
	messages map[string]*gmailapi.Message
	delays   map[string]time.Duration
	calls    int64
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt64(&t.calls, 1)

	path := req.URL.Path
	idx := strings.LastIndex(path, "/messages/")
	if idx < 0 {
		return jsonResponse(404, `{"error":{"code":404,"message":"unexpected path"}}`), nil
	}
	id := path[idx+len("/messages/"):]

	if d := t.delays[id]; d > 0 {
		time.Sleep(d)
	}
	msg, ok := t.messages[id]
	if !ok {
		return jsonResponse(404, `{"error":{"code":404,"message":"not found"}}`), nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return jsonResponse(200, string(body)), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func fakeMessage(id, subject string) *gmailapi.Message {
	return &gmailapi.Message{
		Id: id,
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: subject},
				{Name: "From", Value: "sender@example.com"},
			},
		},
	}
}

func newFakeGateway(transport *fakeTransport) *Gateway {
	return NewGateway(staticTokens{}, &Config{
		HTTPClient:       &http.Client{Transport: transport},
		BatchConcurrency: 5,
	}, testLogger())
}

func TestBatchGetPreservesInputOrder(t *testing.T) {
	transport := &fakeTransport{
		messages: map[string]*gmailapi.Message{
			"m1": fakeMessage("m1", "first"),
			"m2": fakeMessage("m2", "second"),
			"m3": fakeMessage("m3", "third"),
		},
		// m1 finishes last; the result must still lead with it.
		delays: map[string]time.Duration{"m1": 50 * time.Millisecond},
	}
	g := newFakeGateway(transport)

	messages, err := g.BatchGet(context.Background(), []string{"m1", "m2", "m3"})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages", len(messages))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if messages[i].ID != want {
			t.Fatalf("position %d: got %q, want %q", i, messages[i].ID, want)
		}
	}
}

func TestBatchGetDropsFailedFetches(t *testing.T) {
	transport := &fakeTransport{
		messages: map[string]*gmailapi.Message{
			"m1": fakeMessage("m1", "first"),
			"m3": fakeMessage("m3", "third"),
		},
	}
	g := newFakeGateway(transport)

	messages, err := g.BatchGet(context.Background(), []string{"m1", "missing", "m3"})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" || messages[1].ID != "m3" {
		t.Fatalf("failed fetch must be dropped, order kept: %+v", messages)
	}
}

func TestBatchGetEmptyInput(t *testing.T) {
	g := newFakeGateway(&fakeTransport{})
	messages, err := g.BatchGet(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if messages == nil || len(messages) != 0 {
		t.Fatalf("empty input must yield empty non-nil slice: %+v", messages)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &googleapi.Error{Code: 500}, true},
		{"rate limited but 4xx", &googleapi.Error{Code: 429}, false},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"unauthorized", &googleapi.Error{Code: 401}, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"transport error", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWrapErrorTaxonomy(t *testing.T) {
	g := newFakeGateway(&fakeTransport{})

	cases := []struct {
		name string
		err  error
		code string
	}{
		{"401 is permission denied", &googleapi.Error{Code: 401, Body: "x"}, apperr.CodePermissionDenied},
		{"403 is permission denied", &googleapi.Error{Code: 403}, apperr.CodePermissionDenied},
		{"404 is not found", &googleapi.Error{Code: 404}, apperr.CodeNotFound},
		{"500 is network", &googleapi.Error{Code: 500}, apperr.CodeNetworkError},
		{"transport is network", errors.New("eof"), apperr.CodeNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := g.wrapError(tc.err, "op")
			if !apperr.IsCode(wrapped, tc.code) {
				t.Fatalf("wrapError(%v) = %v, want code %s", tc.err, wrapped, tc.code)
			}
		})
	}

	// Already-mapped errors pass through unchanged.
	original := apperr.TokenExpired(errors.New("no refresh token"))
	if got := g.wrapError(original, "op"); got != original {
		t.Fatalf("app errors must pass through, got %v", got)
	}
}

func TestWatchRequiresTopic(t *testing.T) {
	g := newFakeGateway(&fakeTransport{})
	if _, err := g.Watch(context.Background()); !apperr.IsCode(err, apperr.CodeValidationFailed) {
		t.Fatalf("watch without a topic must fail validation, got %v", err)
	}
}

func TestBuildQuery(t *testing.T) {
	unread := true
	read := false
	cases := []struct {
		name   string
		filter domain.FilterState
		want   string
	}{
		{"empty", domain.FilterState{}, ""},
		{"free text", domain.FilterState{Query: "invoice"}, "invoice"},
		{"sender", domain.FilterState{Sender: "a@example.com"}, "from:a@example.com"},
		{"unread", domain.FilterState{IsUnread: &unread}, "is:unread"},
		{"read", domain.FilterState{IsUnread: &read}, "is:read"},
		{
			"date range",
			domain.FilterState{
				DateFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				DateTo:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			},
			"after:2026/03/01 before:2026/03/31",
		},
		{
			"combined",
			domain.FilterState{Query: "report", Sender: "a@example.com", IsUnread: &unread},
			"report from:a@example.com is:unread",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildQuery(tc.filter); got != tc.want {
				t.Fatalf("buildQuery(%+v) = %q, want %q", tc.filter, got, tc.want)
			}
		})
	}
}
