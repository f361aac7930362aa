package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func header(name, value string) *gmailapi.MessagePartHeader {
	return &gmailapi.MessagePartHeader{Name: name, Value: value}
}

func TestNormalizeFullMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:       "m1",
		ThreadId: "t1",
		Snippet:  "snippet text",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				header("Subject", "Quarterly report"),
				header("From", "Alice <alice@example.com>"),
				header("To", "bob@example.com, Carol <carol@example.com>"),
				header("Date", "Mon, 02 Feb 2026 15:04:05 +0000"),
				header("Message-ID", "<abc123@mail.example.com>"),
			},
			Body: &gmailapi.MessagePartBody{Data: b64("hello body")},
		},
	}

	m := Normalize(msg)
	if m.ID != "m1" || m.ThreadID != "t1" {
		t.Fatalf("ids: %q %q", m.ID, m.ThreadID)
	}
	if m.Subject != "Quarterly report" {
		t.Fatalf("subject %q", m.Subject)
	}
	if m.From.Email != "alice@example.com" || m.From.Name != "Alice" {
		t.Fatalf("from %+v", m.From)
	}
	if len(m.To) != 2 || m.To[0].Email != "bob@example.com" || m.To[1].Name != "Carol" {
		t.Fatalf("to %+v", m.To)
	}
	if m.Body != "hello body" || m.BodyIsHTML {
		t.Fatalf("body %q html=%v", m.Body, m.BodyIsHTML)
	}
	if !m.IsUnread {
		t.Fatal("UNREAD label must map to IsUnread")
	}
	if m.RFCMessageID != "abc123@mail.example.com" {
		t.Fatalf("message-id %q", m.RFCMessageID)
	}
	want := time.Date(2026, 2, 2, 15, 4, 5, 0, time.UTC)
	if !m.Date.Equal(want) {
		t.Fatalf("date %v", m.Date)
	}
}

func TestNormalizeMissingEverything(t *testing.T) {
	before := time.Now()
	m := Normalize(&gmailapi.Message{Id: "m1"})

	if m.Subject != NoSubject {
		t.Fatalf("subject fallback %q", m.Subject)
	}
	if m.From.Email != "unknown@example.com" {
		t.Fatalf("from fallback %+v", m.From)
	}
	if m.To == nil || len(m.To) != 0 {
		t.Fatalf("to must be empty, not nil: %+v", m.To)
	}
	if m.Body != "" || m.BodyIsHTML {
		t.Fatalf("body fallback %q", m.Body)
	}
	if m.Labels == nil {
		t.Fatal("labels must be empty slice, not nil")
	}
	if m.Date.Before(before) {
		t.Fatalf("date fallback must be now-ish, got %v", m.Date)
	}
}

func TestNormalizeHeaderCaseInsensitive(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				header("subject", "lowercase header"),
				header("FROM", "a@example.com"),
			},
		},
	}
	m := Normalize(msg)
	if m.Subject != "lowercase header" {
		t.Fatalf("subject %q", m.Subject)
	}
	if m.From.Email != "a@example.com" {
		t.Fatalf("from %+v", m.From)
	}
}

func TestNormalizeUnparseableFromKeepsFallback(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				header("From", "not a valid address <<>"),
			},
		},
	}
	m := Normalize(msg)
	if m.From.Email != "unknown@example.com" {
		t.Fatalf("unparseable From must fall back, got %+v", m.From)
	}
}

func TestNormalizeAddressListDropsBadFragments(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				header("To", "good@example.com, <<broken>>, Named <named@example.com>"),
			},
		},
	}
	m := Normalize(msg)
	if len(m.To) != 2 {
		t.Fatalf("bad fragments must be dropped, got %+v", m.To)
	}
	if m.To[0].Email != "good@example.com" || m.To[1].Email != "named@example.com" {
		t.Fatalf("to %+v", m.To)
	}
}

func TestNormalizeDateFallsBackToInternal(t *testing.T) {
	internal := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	msg := &gmailapi.Message{
		Id:           "m1",
		InternalDate: internal.UnixMilli(),
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				header("Date", "not a date"),
			},
		},
	}
	m := Normalize(msg)
	if !m.Date.Equal(internal) {
		t.Fatalf("date must fall back to internal timestamp, got %v", m.Date)
	}
}

func TestExtractBodyPrefersDeepPlainOverEarlyHTML(t *testing.T) {
	// HTML appears first in the tree; plain text is nested deeper. The plain
	// part must still win.
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: b64("<p>html</p>")},
				},
				{
					MimeType: "multipart/related",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmailapi.MessagePartBody{Data: b64("plain text")},
						},
					},
				},
			},
		},
	}
	m := Normalize(msg)
	if m.Body != "plain text" {
		t.Fatalf("body %q", m.Body)
	}
	if m.BodyIsHTML {
		t.Fatal("plain-text selection must not flag HTML")
	}
}

func TestExtractBodyHTMLOnlyWhenNoPlain(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: b64("<p>html only</p>")},
				},
			},
		},
	}
	m := Normalize(msg)
	if m.Body != "<p>html only</p>" || !m.BodyIsHTML {
		t.Fatalf("body %q html=%v", m.Body, m.BodyIsHTML)
	}
}

func TestExtractBodyTopLevelDirect(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m1",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Body:     &gmailapi.MessagePartBody{Data: b64("<b>direct</b>")},
		},
	}
	m := Normalize(msg)
	if m.Body != "<b>direct</b>" || !m.BodyIsHTML {
		t.Fatalf("body %q html=%v", m.Body, m.BodyIsHTML)
	}
}

func TestDecodeBodyToleratesPadding(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("padded content"))
	got, ok := decodeBody(padded)
	if !ok || got != "padded content" {
		t.Fatalf("padded decode: %q %v", got, ok)
	}

	if _, ok := decodeBody("!!!not base64!!!"); ok {
		t.Fatal("garbage must not decode")
	}
}
