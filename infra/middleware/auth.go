package middleware

import (
	"fmt"
	"strings"
	"time"

	"webmail_client/pkg/apperr"
	"webmail_client/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssueSessionToken mints the browser session JWT after a successful OAuth
// exchange. The subject is the signed-in account's email address, when known.
func IssueSessionToken(secret, email string, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(expiry).Unix(),
		"jti": uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// SessionAuth validates the browser session JWT. The token is read from the
// Authorization header, the session cookie, or a query param (EventSource
// cannot set headers).
func SessionAuth(secret, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		var tokenString string
		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Cookies(cookieName)
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return unauthorized(c, apperr.CodePermissionDenied, "missing session token")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unsupported signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.WithError(err).Warn("session token validation failed")
			return unauthorized(c, apperr.CodeTokenExpired, "invalid or expired session")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, apperr.CodeTokenExpired, "invalid session claims")
		}
		if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
			return unauthorized(c, apperr.CodeTokenExpired, "session expired")
		}

		email, _ := claims["sub"].(string)
		c.Locals("account_email", email)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, code, message string) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
