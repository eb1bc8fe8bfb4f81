package handler

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"activerecord/internal/http/middleware"
	"activerecord/internal/service"
)

// errorPayload is the JSON body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return s
}

// writeError writes the error envelope. code is a short machine-readable value such as
// "INVALID_ID"; message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// writeInternal logs err and answers 500 without exposing it.
func writeInternal(c *fiber.Ctx, op string, err error) error {
	slog.ErrorContext(c.UserContext(), "request failed",
		slog.String("component", "http"),
		slog.String("event", op+"_failed"),
		slog.String("request_id", requestIDFromCtx(c)),
		slog.String("error", err.Error()),
	)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// isNotFound matches both the service error and raw missing-row errors.
func isNotFound(err error) bool {
	return errors.Is(err, service.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

// ErrorHandler returns a Fiber error handler that renders errors in the standard envelope.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
