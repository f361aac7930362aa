package gmail

import (
	"encoding/base64"
	"strings"
	"testing"

	"webmail_client/core/port/out"
)

func TestBuildEnvelopeBasic(t *testing.T) {
	raw := buildEnvelope(&out.SendRequest{
		To:      []string{"a@example.com", "b@example.com"},
		Cc:      []string{"c@example.com"},
		Subject: "Status update",
		Body:    "All good.",
	})

	wantLines := []string{
		"To: a@example.com, b@example.com\r\n",
		"Cc: c@example.com\r\n",
		"Subject: Status update\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
	}
	for _, line := range wantLines {
		if !strings.Contains(raw, line) {
			t.Fatalf("envelope missing %q:\n%s", line, raw)
		}
	}
	if !strings.HasSuffix(raw, "\r\n\r\nAll good.") {
		t.Fatalf("body must follow a blank line:\n%s", raw)
	}
	if strings.Contains(raw, "Bcc:") {
		t.Fatal("empty Bcc must be omitted")
	}
	if strings.Contains(raw, "In-Reply-To:") {
		t.Fatal("fresh messages must not carry reply headers")
	}
}

func TestBuildEnvelopeReplyHeaders(t *testing.T) {
	raw := buildEnvelope(&out.SendRequest{
		To:        []string{"a@example.com"},
		Subject:   "Re: Status update",
		Body:      "Thanks.",
		InReplyTo: "abc123@mail.example.com",
	})

	if !strings.Contains(raw, "In-Reply-To: <abc123@mail.example.com>\r\n") {
		t.Fatalf("In-Reply-To must be angle-bracketed:\n%s", raw)
	}
	if !strings.Contains(raw, "References: <abc123@mail.example.com>\r\n") {
		t.Fatalf("References must mirror In-Reply-To:\n%s", raw)
	}
}

func TestBuildEnvelopeAlreadyBracketedID(t *testing.T) {
	raw := buildEnvelope(&out.SendRequest{
		To:        []string{"a@example.com"},
		Subject:   "Re: x",
		Body:      "y",
		InReplyTo: "<pre@mail.example.com>",
	})
	if strings.Contains(raw, "<<") {
		t.Fatalf("brackets must not double:\n%s", raw)
	}
}

func TestBuildEnvelopeSanitizesSubject(t *testing.T) {
	raw := buildEnvelope(&out.SendRequest{
		To:      []string{"a@example.com"},
		Subject: "inject\r\nX-Evil: yes",
		Body:    "b",
	})
	// The CR/LF is folded into the subject value, so the injected text may
	// still appear there; what must never happen is a new header line.
	if strings.Contains(raw, "\r\nX-Evil:") {
		t.Fatalf("header injection not stripped:\n%s", raw)
	}
	if !strings.Contains(raw, "Subject: inject  X-Evil: yes\r\n") {
		t.Fatalf("subject must fold onto one line:\n%s", raw)
	}
}

func TestEncodeEnvelopeIsUnpaddedURLSafe(t *testing.T) {
	// Input chosen so standard base64 would emit '+', '/' and '=' padding.
	raw := "subject?>???~~\xfb\xff body"
	encoded := encodeEnvelope(raw)

	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("encoding must be non-padded base64url, got %q", encoded)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("round trip decode: %v", err)
	}
	if string(decoded) != raw {
		t.Fatalf("round trip mismatch: %q", decoded)
	}
}
