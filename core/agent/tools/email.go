package tools

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"webmail_client/core/domain"
	"webmail_client/core/port/in"
)

// RegisterEmailTools wires the full set of mailbox tools into a registry.
func RegisterEmailTools(r *Registry, mailbox in.Mailbox) error {
	all := []Tool{
		&ComposeEmailTool{mailbox: mailbox},
		&SendEmailTool{mailbox: mailbox},
		&ReplyEmailTool{mailbox: mailbox},
		&SearchEmailTool{mailbox: mailbox},
		&FilterEmailTool{mailbox: mailbox},
		&OpenEmailTool{mailbox: mailbox},
		&MarkEmailTool{mailbox: mailbox},
		&SwitchFolderTool{mailbox: mailbox},
		&ListEmailsTool{mailbox: mailbox},
	}
	for _, t := range all {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func validateAddresses(field string, addrs []string) error {
	for _, a := range addrs {
		if _, err := mail.ParseAddress(a); err != nil {
			return fmt.Errorf("invalid %s address: %s", field, a)
		}
	}
	return nil
}

func failure(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// messageSummary is the trimmed view handed back to the LLM: no bodies, no
// label internals.
type messageSummary struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date"`
	IsUnread bool   `json:"isUnread"`
}

func summarize(m domain.Message) messageSummary {
	return messageSummary{
		ID:       m.ID,
		From:     m.From.Email,
		Subject:  m.Subject,
		Snippet:  m.Snippet,
		Date:     m.Date.Format("2006-01-02 15:04"),
		IsUnread: m.IsUnread,
	}
}

// ============================================================================
// ComposeEmailTool
// ============================================================================

// ComposeEmailTool opens the shared compose draft with the given content.
// It does not send; a separate send_email call commits the draft, so the
// user sees what the agent wrote before it goes out.
type ComposeEmailTool struct {
	mailbox in.Mailbox
}

func (t *ComposeEmailTool) Name() string { return "compose_email" }

func (t *ComposeEmailTool) Description() string {
	return "Open a draft email with recipients, subject and body. Does not send; call send_email to send the opened draft."
}

func (t *ComposeEmailTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "to", Type: "array", Description: "Recipient email addresses", Required: true},
		{Name: "cc", Type: "array", Description: "CC email addresses", Required: false},
		{Name: "bcc", Type: "array", Description: "BCC email addresses", Required: false},
		{Name: "subject", Type: "string", Description: "Email subject", Required: true},
		{Name: "body", Type: "string", Description: "Plain-text email body", Required: true},
	}
}

func (t *ComposeEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	to := stringSliceArg(args, "to")
	cc := stringSliceArg(args, "cc")
	bcc := stringSliceArg(args, "bcc")
	subject := stringArg(args, "subject")
	body := stringArg(args, "body")

	if len(to) == 0 {
		return failure("at least one recipient is required"), nil
	}
	if err := validateAddresses("to", to); err != nil {
		return failure("%v", err), nil
	}
	if err := validateAddresses("cc", cc); err != nil {
		return failure("%v", err), nil
	}
	if err := validateAddresses("bcc", bcc); err != nil {
		return failure("%v", err), nil
	}
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(body) == "" {
		return failure("draft needs a subject or a body"), nil
	}

	aiComposed := true
	t.mailbox.OpenCompose(domain.ComposePatch{
		To:           to,
		Cc:           cc,
		Bcc:          bcc,
		Subject:      &subject,
		Body:         &body,
		IsAIComposed: &aiComposed,
	})

	return &Result{
		Success: true,
		Message: fmt.Sprintf("draft opened for %s", strings.Join(to, ", ")),
		Data:    t.mailbox.Snapshot().Compose,
	}, nil
}

// ============================================================================
// SendEmailTool
// ============================================================================

// SendEmailTool sends the currently open draft.
type SendEmailTool struct {
	mailbox in.Mailbox
}

func (t *SendEmailTool) Name() string { return "send_email" }

func (t *SendEmailTool) Description() string {
	return "Send the currently open draft email. Open one first with compose_email or reply_email."
}

func (t *SendEmailTool) Parameters() []ParameterSpec { return nil }

func (t *SendEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	draft := t.mailbox.Snapshot().Compose
	if !draft.IsOpen {
		return failure("no draft is open; compose one first"), nil
	}

	sent, err := t.mailbox.Send(ctx)
	if err != nil {
		return failure("send failed: %v", err), nil
	}

	data := any(nil)
	if sent != nil {
		data = summarize(*sent)
	}
	return &Result{Success: true, Message: "email sent", Data: data}, nil
}

// ============================================================================
// ReplyEmailTool
// ============================================================================

// ReplyEmailTool prefills a reply draft from a loaded message and sets the
// body.
type ReplyEmailTool struct {
	mailbox in.Mailbox
}

func (t *ReplyEmailTool) Name() string { return "reply_email" }

func (t *ReplyEmailTool) Description() string {
	return "Open a reply draft to an email by id, threaded to the original. Does not send; call send_email to send it."
}

func (t *ReplyEmailTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "message_id", Type: "string", Description: "Id of the email to reply to", Required: true},
		{Name: "body", Type: "string", Description: "Plain-text reply body", Required: true},
	}
}

func (t *ReplyEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	id := stringArg(args, "message_id")
	body := stringArg(args, "body")
	if id == "" {
		return failure("message_id is required"), nil
	}
	if strings.TrimSpace(body) == "" {
		return failure("reply body is required"), nil
	}

	if err := t.mailbox.StartReply(ctx, id); err != nil {
		return failure("could not start reply: %v", err), nil
	}
	aiComposed := true
	t.mailbox.UpdateCompose(domain.ComposePatch{Body: &body, IsAIComposed: &aiComposed})

	return &Result{
		Success: true,
		Message: "reply draft opened",
		Data:    t.mailbox.Snapshot().Compose,
	}, nil
}

// ============================================================================
// SearchEmailTool
// ============================================================================

// SearchEmailTool runs a free-text search over the active folder.
type SearchEmailTool struct {
	mailbox in.Mailbox
}

func (t *SearchEmailTool) Name() string { return "search_email" }

func (t *SearchEmailTool) Description() string {
	return "Search emails in the active folder by free text (matches subject and body)."
}

func (t *SearchEmailTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "query", Type: "string", Description: "Search text", Required: true},
	}
}

func (t *SearchEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return failure("query is required"), nil
	}

	if err := t.mailbox.Search(ctx, query); err != nil {
		return failure("search failed: %v", err), nil
	}

	snap := t.mailbox.Snapshot()
	items := snap.Folders[snap.ActiveFolder].Items
	summaries := make([]messageSummary, 0, len(items))
	for _, m := range items {
		summaries = append(summaries, summarize(m))
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("%d results for %q", len(summaries), query),
		Data:    summaries,
	}, nil
}

// ============================================================================
// FilterEmailTool
// ============================================================================

// FilterEmailTool patches the active folder's filter (sender, unread status).
type FilterEmailTool struct {
	mailbox in.Mailbox
}

func (t *FilterEmailTool) Name() string { return "filter_email" }

func (t *FilterEmailTool) Description() string {
	return "Filter the active folder by sender address and/or unread status. Omit both to clear the filter."
}

func (t *FilterEmailTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "sender", Type: "string", Description: "Only show emails from this address", Required: false},
		{Name: "unread_only", Type: "boolean", Description: "Only show unread emails", Required: false},
	}
}

func (t *FilterEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	sender := stringArg(args, "sender")
	unread, hasUnread := boolArg(args, "unread_only")

	if sender != "" {
		if _, err := mail.ParseAddress(sender); err != nil {
			return failure("invalid sender address: %s", sender), nil
		}
	}

	patch := domain.FilterPatch{Sender: &sender}
	if hasUnread && unread {
		patch.IsUnread = &unread
	} else {
		patch.ClearUnread = true
	}

	folder := t.mailbox.Snapshot().ActiveFolder
	if err := t.mailbox.SetFilter(ctx, folder, patch); err != nil {
		return failure("filter failed: %v", err), nil
	}

	snap := t.mailbox.Snapshot()
	items := snap.Folders[folder].Items
	summaries := make([]messageSummary, 0, len(items))
	for _, m := range items {
		summaries = append(summaries, summarize(m))
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("%d emails match the filter", len(summaries)),
		Data:    summaries,
	}, nil
}

// ============================================================================
// OpenEmailTool
// ============================================================================

// OpenEmailTool opens a message (marking it read) and returns its content.
type OpenEmailTool struct {
	mailbox in.Mailbox
}

func (t *OpenEmailTool) Name() string { return "open_email" }

func (t *OpenEmailTool) Description() string {
	return "Open an email by id and return its full content. Opening marks it as read."
}

func (t *OpenEmailTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "message_id", Type: "string", Description: "Id of the email to open", Required: true},
	}
}

func (t *OpenEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	id := stringArg(args, "message_id")
	if id == "" {
		return failure("message_id is required"), nil
	}

	msg, err := t.mailbox.OpenMessage(ctx, id)
	if err != nil {
		return failure("could not open email: %v", err), nil
	}
	return &Result{Success: true, Data: msg}, nil
}

// ============================================================================
// MarkEmailTool
// ============================================================================

// MarkEmailTool flips an email's read status.
type MarkEmailTool struct {
	mailbox in.Mailbox
}

func (t *MarkEmailTool) Name() string { return "mark_email" }

func (t *MarkEmailTool) Description() string {
	return "Mark an email as read or unread by id."
}

func (t *MarkEmailTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "message_id", Type: "string", Description: "Id of the email to mark", Required: true},
		{Name: "status", Type: "string", Description: "Target status", Required: true, Enum: []string{"read", "unread"}},
	}
}

func (t *MarkEmailTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	id := stringArg(args, "message_id")
	status := stringArg(args, "status")
	if id == "" {
		return failure("message_id is required"), nil
	}

	var err error
	switch status {
	case "read":
		err = t.mailbox.MarkRead(ctx, id)
	case "unread":
		err = t.mailbox.MarkUnread(ctx, id)
	default:
		return failure("status must be read or unread, got %q", status), nil
	}
	if err != nil {
		return failure("could not mark email: %v", err), nil
	}
	return &Result{Success: true, Message: fmt.Sprintf("email marked %s", status)}, nil
}

// ============================================================================
// SwitchFolderTool
// ============================================================================

// SwitchFolderTool changes the active folder and fetches it.
type SwitchFolderTool struct {
	mailbox in.Mailbox
}

func (t *SwitchFolderTool) Name() string { return "switch_folder" }

func (t *SwitchFolderTool) Description() string {
	return "Switch the mailbox view to a folder and load its emails."
}

func (t *SwitchFolderTool) Parameters() []ParameterSpec {
	return []ParameterSpec{
		{Name: "folder", Type: "string", Description: "Target folder", Required: true, Enum: []string{"inbox", "sent"}},
	}
}

func (t *SwitchFolderTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	folder := domain.Folder(stringArg(args, "folder"))
	if !folder.Valid() {
		return failure("unknown folder: %s", folder), nil
	}

	if err := t.mailbox.SwitchFolder(ctx, folder); err != nil {
		return failure("could not switch folder: %v", err), nil
	}
	return &Result{Success: true, Message: fmt.Sprintf("switched to %s", folder)}, nil
}

// ============================================================================
// ListEmailsTool
// ============================================================================

// ListEmailsTool returns the loaded window of the active folder. It reads
// state only; use switch_folder or search_email to change what is loaded.
type ListEmailsTool struct {
	mailbox in.Mailbox
}

func (t *ListEmailsTool) Name() string { return "list_emails" }

func (t *ListEmailsTool) Description() string {
	return "List the emails currently loaded in the active folder, newest first."
}

func (t *ListEmailsTool) Parameters() []ParameterSpec { return nil }

func (t *ListEmailsTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	snap := t.mailbox.Snapshot()
	items := snap.Folders[snap.ActiveFolder].Items

	summaries := make([]messageSummary, 0, len(items))
	for _, m := range items {
		summaries = append(summaries, summarize(m))
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("%d emails loaded in %s", len(summaries), snap.ActiveFolder),
		Data:    summaries,
	}, nil
}

var (
	_ Tool = (*ComposeEmailTool)(nil)
	_ Tool = (*SendEmailTool)(nil)
	_ Tool = (*ReplyEmailTool)(nil)
	_ Tool = (*SearchEmailTool)(nil)
	_ Tool = (*FilterEmailTool)(nil)
	_ Tool = (*OpenEmailTool)(nil)
	_ Tool = (*MarkEmailTool)(nil)
	_ Tool = (*SwitchFolderTool)(nil)
	_ Tool = (*ListEmailsTool)(nil)
)
