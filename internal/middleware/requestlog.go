package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/logger"
)

// RequestLogger assigns a request id (reusing an incoming X-Request-ID),
// attaches a request-scoped logger to the context and writes one line per
// request once the response status is known.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" || len(id) > 128 {
				id = logger.NewRequestID()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			log := logger.Get().With("request_id", id)
			c.SetRequest(req.WithContext(logger.Into(req.Context(), log)))

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Path(),
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
				"bytes", c.Response().Size,
				"ip", c.RealIP(),
			}
			if uid, ok := UserID(c); ok {
				attrs = append(attrs, "user_id", uid)
			}
			switch {
			case status >= 500:
				log.Error("request", attrs...)
			case status >= 400:
				log.Warn("request", attrs...)
			default:
				log.Info("request", attrs...)
			}
			return nil
		}
	}
}
