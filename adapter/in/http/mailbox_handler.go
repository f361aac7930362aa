package http

import (
	"strings"
	"time"

	"webmail_client/core/domain"
	"webmail_client/core/port/in"
	"webmail_client/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// MailboxHandler exposes mailbox operations over REST. Every endpoint calls
// the in.Mailbox port; the handler layer only parses, validates shape and
// maps errors.
type MailboxHandler struct {
	mailbox in.Mailbox
}

// NewMailboxHandler creates the mailbox handler.
func NewMailboxHandler(mailbox in.Mailbox) *MailboxHandler {
	return &MailboxHandler{mailbox: mailbox}
}

// Register registers mailbox routes.
func (h *MailboxHandler) Register(app fiber.Router) {
	mb := app.Group("/mailbox")
	mb.Get("/", h.Snapshot)
	mb.Post("/bootstrap", h.Bootstrap)
	mb.Post("/refresh", h.Refresh)
	mb.Post("/folders/:folder", h.SwitchFolder)
	mb.Post("/folders/:folder/more", h.LoadMore)
	mb.Put("/folders/:folder/filter", h.SetFilter)
	mb.Get("/search", h.Search)

	msg := app.Group("/messages")
	msg.Get("/:id", h.OpenMessage)
	msg.Post("/:id/read", h.MarkRead)
	msg.Post("/:id/unread", h.MarkUnread)

	compose := app.Group("/compose")
	compose.Post("/", h.OpenCompose)
	compose.Patch("/", h.UpdateCompose)
	compose.Delete("/", h.DiscardCompose)
	compose.Post("/reply/:id", h.StartReply)
	compose.Post("/send", h.Send)
}

// Snapshot returns the full mailbox state.
func (h *MailboxHandler) Snapshot(c *fiber.Ctx) error {
	return SuccessResponse(c, h.mailbox.Snapshot())
}

// Bootstrap performs the sign-in-time initial fetch.
func (h *MailboxHandler) Bootstrap(c *fiber.Ctx) error {
	if err := h.mailbox.Bootstrap(c.Context()); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot())
}

// Refresh re-fetches the active folder.
func (h *MailboxHandler) Refresh(c *fiber.Ctx) error {
	if err := h.mailbox.Refresh(c.Context(), domain.TriggerManual); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot())
}

func parseFolder(c *fiber.Ctx) (domain.Folder, error) {
	folder := domain.Folder(c.Params("folder"))
	if !folder.Valid() {
		return "", apperr.InvalidInput("folder", "must be inbox or sent")
	}
	return folder, nil
}

// SwitchFolder activates a folder and fetches it.
func (h *MailboxHandler) SwitchFolder(c *fiber.Ctx) error {
	folder, err := parseFolder(c)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if err := h.mailbox.SwitchFolder(c.Context(), folder); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot())
}

// LoadMore appends the next page of a folder.
func (h *MailboxHandler) LoadMore(c *fiber.Ctx) error {
	folder, err := parseFolder(c)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if err := h.mailbox.LoadMore(c.Context(), folder); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot())
}

// filterRequest is the wire shape of a filter patch. Field presence is
// meaningful, so everything is a pointer.
type filterRequest struct {
	Query       *string `json:"query"`
	Sender      *string `json:"sender"`
	IsUnread    *bool   `json:"isUnread"`
	ClearUnread bool    `json:"clearUnread"`
	DateFrom    *string `json:"dateFrom"` // RFC 3339
	DateTo      *string `json:"dateTo"`
}

// SetFilter patches a folder's filter and refetches from page one.
func (h *MailboxHandler) SetFilter(c *fiber.Ctx) error {
	folder, err := parseFolder(c)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	var req filterRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, 400, apperr.CodeInvalidInput, "malformed filter body")
	}

	patch := domain.FilterPatch{
		Query:       req.Query,
		Sender:      req.Sender,
		IsUnread:    req.IsUnread,
		ClearUnread: req.ClearUnread,
	}
	if req.DateFrom != nil {
		t, err := time.Parse(time.RFC3339, *req.DateFrom)
		if err != nil {
			return ErrorResponse(c, 400, apperr.CodeInvalidInput, "dateFrom must be RFC 3339")
		}
		patch.DateFrom = &t
	}
	if req.DateTo != nil {
		t, err := time.Parse(time.RFC3339, *req.DateTo)
		if err != nil {
			return ErrorResponse(c, 400, apperr.CodeInvalidInput, "dateTo must be RFC 3339")
		}
		patch.DateTo = &t
	}

	if err := h.mailbox.SetFilter(c.Context(), folder, patch); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot())
}

// Search runs a free-text search over the active folder.
func (h *MailboxHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return ErrorResponse(c, 400, apperr.CodeMissingField, "missing query parameter q")
	}
	if err := h.mailbox.Search(c.Context(), query); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot())
}

// OpenMessage selects a message for the detail view (marking it read) and
// returns it.
func (h *MailboxHandler) OpenMessage(c *fiber.Ctx) error {
	msg, err := h.mailbox.OpenMessage(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, msg)
}

// MarkRead marks a message read.
func (h *MailboxHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.mailbox.MarkRead(c.Context(), c.Params("id")); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, fiber.Map{"id": c.Params("id"), "isUnread": false})
}

// MarkUnread marks a message unread.
func (h *MailboxHandler) MarkUnread(c *fiber.Ctx) error {
	if err := h.mailbox.MarkUnread(c.Context(), c.Params("id")); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, fiber.Map{"id": c.Params("id"), "isUnread": true})
}

// composeRequest is the wire shape of a draft patch.
type composeRequest struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc"`
	Bcc     []string `json:"bcc"`
	Subject *string  `json:"subject"`
	Body    *string  `json:"body"`
}

func (r composeRequest) toPatch() domain.ComposePatch {
	return domain.ComposePatch{
		To:      r.To,
		Cc:      r.Cc,
		Bcc:     r.Bcc,
		Subject: r.Subject,
		Body:    r.Body,
	}
}

// OpenCompose opens the shared draft, optionally prefilled.
func (h *MailboxHandler) OpenCompose(c *fiber.Ctx) error {
	var req composeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return ErrorResponse(c, 400, apperr.CodeInvalidInput, "malformed compose body")
		}
	}
	h.mailbox.OpenCompose(req.toPatch())
	return SuccessResponse(c, h.mailbox.Snapshot().Compose)
}

// UpdateCompose patches the open draft.
func (h *MailboxHandler) UpdateCompose(c *fiber.Ctx) error {
	var req composeRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, 400, apperr.CodeInvalidInput, "malformed compose body")
	}
	h.mailbox.UpdateCompose(req.toPatch())
	return SuccessResponse(c, h.mailbox.Snapshot().Compose)
}

// DiscardCompose resets the draft.
func (h *MailboxHandler) DiscardCompose(c *fiber.Ctx) error {
	h.mailbox.ResetCompose()
	return SuccessResponse(c, fiber.Map{"discarded": true})
}

// StartReply prefills the draft as a reply to a loaded message.
func (h *MailboxHandler) StartReply(c *fiber.Ctx) error {
	if err := h.mailbox.StartReply(c.Context(), c.Params("id")); err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, h.mailbox.Snapshot().Compose)
}

// Send sends the open draft.
func (h *MailboxHandler) Send(c *fiber.Ctx) error {
	sent, err := h.mailbox.Send(c.Context())
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, sent)
}
