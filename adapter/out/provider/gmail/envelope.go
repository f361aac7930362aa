package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	"webmail_client/core/port/out"
)

// buildEnvelope assembles an RFC 822 message from the structured send
// request. Body is sent as UTF-8 text/plain.
func buildEnvelope(req *out.SendRequest) string {
	var sb strings.Builder

	sb.WriteString("To: " + strings.Join(req.To, ", ") + "\r\n")
	if len(req.Cc) > 0 {
		sb.WriteString("Cc: " + strings.Join(req.Cc, ", ") + "\r\n")
	}
	if len(req.Bcc) > 0 {
		sb.WriteString("Bcc: " + strings.Join(req.Bcc, ", ") + "\r\n")
	}
	sb.WriteString("Subject: " + sanitizeHeader(req.Subject) + "\r\n")
	if req.InReplyTo != "" {
		ref := req.InReplyTo
		if !strings.HasPrefix(ref, "<") {
			ref = fmt.Sprintf("<%s>", ref)
		}
		sb.WriteString("In-Reply-To: " + ref + "\r\n")
		sb.WriteString("References: " + ref + "\r\n")
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(req.Body)

	return sb.String()
}

// encodeEnvelope encodes the raw message per the provider's transport
// requirement: non-padded base64url ('+'→'-', '/'→'_', no trailing '=').
func encodeEnvelope(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// sanitizeHeader strips CR/LF so user input cannot inject extra headers.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	return strings.ReplaceAll(v, "\n", " ")
}
