// Package middleware provides the fiber middleware stack: panic recovery,
// request ids, request logging and session authentication.
package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestID attaches a request id for response envelopes and log correlation.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

// RequestLogger logs each request with method, path, status and duration.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		log := logger.WithField("method", c.Method()).
			WithField("path", c.Path()).
			WithField("status", status).
			WithField("duration_ms", time.Since(start).Milliseconds())

		switch {
		case status >= 500:
			log.Error("request failed")
		case status >= 400:
			log.Warn("request error")
		default:
			log.Info("request completed")
		}
		return err
	}
}

// Recover converts panics into 500 responses instead of dropping the
// connection.
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals("request_id").(string)

				logger.WithField("request_id", requestID).
					WithField("panic", fmt.Sprintf("%v", r)).
					WithField("path", c.Path()).
					WithField("method", c.Method()).
					WithField("stack", string(debug.Stack())).
					Error("panic recovered")

				c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"error": fiber.Map{
						"code":    apperr.CodeUnknown,
						"message": "an unexpected error occurred",
					},
					"request_id": requestID,
					"timestamp":  time.Now().UTC().Format(time.RFC3339),
				})
			}
		}()
		return c.Next()
	}
}
