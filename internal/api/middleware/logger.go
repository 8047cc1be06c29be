// Package middleware holds the fiber middleware shared by the API server.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/openmapping/tasking/internal/logger"
)

// RequestIDKey is the Locals key the requestid middleware stores ids under
const RequestIDKey = "requestid"

// Logger returns a middleware that logs HTTP requests through logrus
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := logger.Fields{
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
			"method":  c.Method(),
			"path":    c.Path(),
			"handler": c.Route().Name,
		}
		if id, ok := c.Locals(RequestIDKey).(string); ok {
			fields["request_id"] = id
		}
		if err != nil {
			fields["error"] = err.Error()
			logger.WarnWithFields("Request failed", fields)
			return err
		}
		logger.InfoWithFields("Request", fields)
		return nil
	}
}
