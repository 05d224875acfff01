// Package handler maps HTTP requests onto the services. Handlers bind and
// validate the request, call one service method and render its result;
// every failure is returned as an error and rendered by ErrorHandler.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders errors returned by handlers and middleware. It is
// installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorResponse(c, err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func errorResponse(c echo.Context, err error) (int, errorBody) {
	log := logger.WithContext(c.Request().Context())

	if ae, ok := apperr.From(err); ok {
		status := StatusOf(ae.Kind)
		switch {
		case ae.Kind == apperr.KindInternal:
			log.Error("request failed", "error", err)
			return status, errorBody{Error: "internal server error", Code: string(apperr.ReasonInternal)}
		case ae.Kind == apperr.KindUpstream:
			log.Error("upstream dependency failed", "reason", ae.Reason, "error", err)
		}
		return status, errorBody{Error: ae.Message, Code: string(ae.Reason)}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		if he.Code >= http.StatusInternalServerError {
			log.Error("request failed", "status", he.Code, "error", err)
		}
		return he.Code, errorBody{Error: msg, Code: codeFor(he.Code)}
	}

	log.Error("request failed", "error", err)
	return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: string(apperr.ReasonInternal)}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.ReasonInvalidInput)
	case http.StatusUnauthorized:
		return string(apperr.ReasonInvalidToken)
	case http.StatusForbidden:
		return string(apperr.ReasonForbidden)
	case http.StatusNotFound:
		return string(apperr.ReasonNotFound)
	case http.StatusInternalServerError:
		return string(apperr.ReasonInternal)
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

// bind decodes the request into req and validates it with echo's Validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.ReasonInvalidInput, "invalid request body", err)
	}
	return c.Validate(req)
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.ReasonInvalidInput, fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, nil
}

// pageParams reads ?page and ?limit. Missing values take defaults; present
// values must be integers with page >= 1 and 1 <= limit <= 100.
func pageParams(c echo.Context) (model.PageRequest, error) {
	p := model.PageRequest{Page: model.DefaultPage, Limit: model.DefaultLimit}
	if s := c.QueryParam("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, apperr.Validation(apperr.ReasonInvalidInput, "the page number must be a valid number")
		}
		if n < 1 {
			return p, apperr.Validation(apperr.ReasonInvalidInput, "the page number cannot be less than 1")
		}
		p.Page = n
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, apperr.Validation(apperr.ReasonInvalidInput, "the limit must be a valid number")
		}
		if n < 1 || n > model.MaxLimit {
			return p, apperr.Validation(apperr.ReasonInvalidInput,
				fmt.Sprintf("the limit must be between 1 and %d", model.MaxLimit))
		}
		p.Limit = n
	}
	return p, nil
}

// actor returns the authenticated caller set by JWTAuth.
func actor(c echo.Context) (service.Actor, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, apperr.Unauthorized(apperr.ReasonInvalidToken, "authentication required")
	}
	return service.Actor{UserID: id, Role: middleware.Role(c)}, nil
}

// upload returns the optional multipart file in field. The caller must
// close the returned closer when it is not nil.
func upload(c echo.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperr.Wrap(apperr.KindValidation, apperr.ReasonInvalidInput, "invalid "+field+" upload", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, apperr.Internal("open upload", err)
	}
	return &service.Upload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}
