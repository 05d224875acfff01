package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller's id and
// role on the context. Rejections are returned as *apperr.Error so the
// HTTP error handler renders them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperr.Unauthorized(apperr.ReasonInvalidToken, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return apperr.Unauthorized(apperr.ReasonInvalidToken, "invalid or expired token")
			}
			id, err := claims.UserID()
			if err != nil || id == 0 {
				return apperr.Unauthorized(apperr.ReasonInvalidToken, "invalid token subject")
			}
			SetIdentity(c, id, claims.Role)

			ctx := c.Request().Context()
			ctx = logger.Into(ctx, logger.WithContext(ctx).With("user_id", id))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
