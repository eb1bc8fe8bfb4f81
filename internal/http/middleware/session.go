package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"activerecord/internal/database"
)

// InitApp installs the request session hooks for db on app. It must run before routes
// are registered. Calling it again with the same app and db is a no-op; it reports
// whether the hooks were installed.
func InitApp(app *fiber.App, db *database.DB) bool {
	if !db.Attach(app) {
		return false
	}
	app.Use(Session(db))
	return true
}

// Session binds a fresh database session to the request's user context. When the
// handler chain fails the session is rolled back, and it is always removed once the
// request is done, so nothing uncommitted outlives the request.
func Session(db *database.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, s := db.Scope(c.UserContext())
		c.SetUserContext(ctx)

		logger := db.Logger().With(slog.String("component", "session"))
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		defer func() {
			if err := s.Remove(); err != nil {
				logger.Warn("session remove failed",
					slog.String("event", "session_remove_failed"),
					slog.String("request_id", rid),
					slog.String("error", err.Error()),
				)
			}
		}()

		err := c.Next()
		if err != nil {
			if rbErr := s.Rollback(); rbErr != nil {
				logger.Error("session rollback failed",
					slog.String("event", "session_rollback_failed"),
					slog.String("request_id", rid),
					slog.String("error", rbErr.Error()),
				)
			}
		}
		return err
	}
}
