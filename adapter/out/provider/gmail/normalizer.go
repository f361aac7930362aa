package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"webmail_client/core/domain"

	gmailapi "google.golang.org/api/gmail/v1"
)

// NoSubject is the placeholder for messages without a Subject header.
const NoSubject = "(No subject)"

// Normalize converts a provider wire message into the application's message
// record. It never fails: missing headers, undecodable bodies and bad dates
// all degrade to documented fallback values.
func Normalize(msg *gmailapi.Message) domain.Message {
	m := domain.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Subject:  NoSubject,
		From:     domain.UnknownSender,
		To:       []domain.Address{},
		Labels:   msg.LabelIds,
		IsUnread: hasLabel(msg.LabelIds, "UNREAD"),
	}
	if m.Labels == nil {
		m.Labels = []string{}
	}

	if msg.Payload == nil {
		m.Date = time.Now()
		return m
	}

	if subject := headerValue(msg.Payload.Headers, "Subject"); subject != "" {
		m.Subject = subject
	}
	if from := headerValue(msg.Payload.Headers, "From"); from != "" {
		if addr, err := mail.ParseAddress(from); err == nil {
			m.From = domain.Address{Email: addr.Address, Name: addr.Name}
		}
	}
	m.To = parseAddressList(headerValue(msg.Payload.Headers, "To"))
	m.Cc = parseAddressList(headerValue(msg.Payload.Headers, "Cc"))
	if len(m.Cc) == 0 {
		m.Cc = nil
	}
	m.Date = parseDate(headerValue(msg.Payload.Headers, "Date"), msg.InternalDate)
	m.RFCMessageID = strings.Trim(headerValue(msg.Payload.Headers, "Message-ID"), "<>")

	m.Body, m.BodyIsHTML = extractBody(msg.Payload)

	return m
}

// headerValue does a case-insensitive lookup over the wire header pairs.
// Missing headers yield "".
func headerValue(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// parseAddressList splits an address-list header on commas and parses each
// fragment independently. Fragments that fail to yield an email address are
// dropped rather than producing empty entries.
func parseAddressList(value string) []domain.Address {
	if value == "" {
		return []domain.Address{}
	}
	fragments := strings.Split(value, ",")
	addrs := make([]domain.Address, 0, len(fragments))
	for _, frag := range fragments {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		parsed, err := mail.ParseAddress(frag)
		if err != nil {
			continue
		}
		addrs = append(addrs, domain.Address{Email: parsed.Address, Name: parsed.Name})
	}
	return addrs
}

// parseDate parses the Date header, falling back to the provider's internal
// timestamp and finally to now. The final fallback is a known, accepted
// approximation rather than a hard failure.
func parseDate(value string, internalMillis int64) time.Time {
	if value != "" {
		if t, err := mail.ParseDate(value); err == nil {
			return t
		}
	}
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis)
	}
	return time.Now()
}

// extractBody applies the body selection policy:
//  1. a direct body payload on the top-level part;
//  2. otherwise the first text/plain body found by depth-first search over
//     the whole part tree;
//  3. only when no plain-text body exists anywhere, the same depth-first
//     search restricted to text/html.
//
// The two passes are global: an HTML part early in the tree never wins over
// a plain-text part that appears later.
func extractBody(payload *gmailapi.MessagePart) (body string, isHTML bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, ok := decodeBody(payload.Body.Data); ok {
			return decoded, strings.EqualFold(payload.MimeType, "text/html")
		}
	}

	if plain, ok := findBody(payload, "text/plain"); ok {
		return plain, false
	}
	if html, ok := findBody(payload, "text/html"); ok {
		return html, true
	}
	return "", false
}

// findBody walks the part tree depth-first and returns the first decodable
// body with the given MIME type.
func findBody(part *gmailapi.MessagePart, mimeType string) (string, bool) {
	if part == nil {
		return "", false
	}
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		if decoded, ok := decodeBody(part.Body.Data); ok {
			return decoded, true
		}
	}
	for _, child := range part.Parts {
		if body, ok := findBody(child, mimeType); ok {
			return body, true
		}
	}
	return "", false
}

// decodeBody decodes base64url body data, tolerating both padded and
// unpadded forms.
func decodeBody(data string) (string, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
