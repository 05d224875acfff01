package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/validation"
)

// Stubs embed the handler interface so that only the methods a test sets
// need an implementation.

type stubCinemas struct {
	CinemaService
	list   func(p model.PageRequest) (service.Page[model.Cinema], error)
	create func(in service.CinemaInput) (model.Cinema, error)
}

func (s *stubCinemas) List(_ context.Context, p model.PageRequest) (service.Page[model.Cinema], error) {
	return s.list(p)
}

func (s *stubCinemas) Create(_ context.Context, in service.CinemaInput) (model.Cinema, error) {
	return s.create(in)
}

type stubScreenings struct {
	ScreeningService
	create      func(in service.ScreeningInput) (model.Screening, error)
	discount    func(id uint64, percent float64) (model.Screening, error)
	listByMovie func(movieID uint64, upcoming bool, p model.PageRequest) (service.Page[model.Screening], error)
}

func (s *stubScreenings) Create(_ context.Context, in service.ScreeningInput) (model.Screening, error) {
	return s.create(in)
}

func (s *stubScreenings) AddDiscount(_ context.Context, id uint64, percent float64) (model.Screening, error) {
	return s.discount(id, percent)
}

func (s *stubScreenings) ListByMovie(_ context.Context, movieID uint64, upcoming bool, p model.PageRequest) (service.Page[model.Screening], error) {
	return s.listByMovie(movieID, upcoming, p)
}

type stubReservations struct {
	ReservationService
	mode     string
	create   func(a service.Actor, screeningID uint64) (model.Reservation, error)
	checkout func(a service.Actor, screeningID uint64, currency, redirect string) (model.Checkout, error)
}

func (s *stubReservations) Mode() string { return s.mode }

func (s *stubReservations) Create(_ context.Context, a service.Actor, screeningID uint64) (model.Reservation, error) {
	return s.create(a, screeningID)
}

func (s *stubReservations) Checkout(_ context.Context, a service.Actor, screeningID uint64, currency, redirect string) (model.Checkout, error) {
	return s.checkout(a, screeningID, currency, redirect)
}

type stubUsers struct {
	UserService
	register func(in service.UserInput, img *service.Upload) (model.User, error)
}

func (s *stubUsers) Register(_ context.Context, in service.UserInput, img *service.Upload) (model.User, error) {
	return s.register(in, img)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

// as authenticates every request as the given user.
func as(id uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetIdentity(c, id, role)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"validation", apperr.Validation(apperr.ReasonPastDate, "in the past"), 400, "past_date", "in the past"},
		{"unauthorized", apperr.Unauthorized(apperr.ReasonInvalidToken, "bad token"), 401, "invalid_token", "bad token"},
		{"forbidden", apperr.Forbidden("nope"), 403, "forbidden", "nope"},
		{"not found", apperr.NotFound("screening not found"), 404, "not_found", "screening not found"},
		{"conflict", apperr.Conflict(apperr.ReasonHallUnavailable, "busy"), 409, "hall_unavailable", "busy"},
		{"upstream", apperr.Upstream(apperr.ReasonRateFetchFailed, "rates down", errors.New("timeout")), 502, "rate_fetch_failed", "rates down"},
		{"internal", apperr.Internal("select failed", errors.New("db gone")), 500, "internal", "internal server error"},
		{"foreign", errors.New("boom"), 500, "internal", "internal server error"},
		{"echo", echo.ErrNotFound, 404, "not_found", "Not Found"},
		{"method", echo.ErrMethodNotAllowed, 405, "method_not_allowed", "Method Not Allowed"},
	}
	e := newEcho()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestPageParams(t *testing.T) {
	cinemas := &stubCinemas{list: func(p model.PageRequest) (service.Page[model.Cinema], error) {
		return service.Page[model.Cinema]{Items: []model.Cinema{}, Total: 0, Request: p}, nil
	}}
	e := newEcho()
	e.GET("/api/cinemas", NewCinemaHandler(cinemas).List)

	for _, q := range []string{"page=0", "page=x", "limit=0", "limit=101", "limit=ten"} {
		rec := do(e, http.MethodGet, "/api/cinemas?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, "invalid_input", decode(t, rec)["code"], q)
	}

	rec := do(e, http.MethodGet, "/api/cinemas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 10, body["limit"])
	assert.Equal(t, []any{}, body["data"])
}

func TestListEnvelopeLinks(t *testing.T) {
	cinemas := &stubCinemas{list: func(p model.PageRequest) (service.Page[model.Cinema], error) {
		return service.Page[model.Cinema]{
			Items:   []model.Cinema{{ID: 11, Name: "Cinema Eleven"}},
			Total:   25,
			Request: p,
		}, nil
	}}
	e := newEcho()
	e.GET("/api/cinemas", NewCinemaHandler(cinemas).List)

	rec := do(e, http.MethodGet, "/api/cinemas?page=2&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalPages int    `json:"totalPages"`
		TotalCount int    `json:"totalCount"`
		Links      []Link `json:"links"`
		Data       []struct {
			ID    uint64 `json:"id"`
			Links []Link `json:"links"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalPages)
	assert.Equal(t, 25, body.TotalCount)

	rels := map[string]string{}
	for _, l := range body.Links {
		rels[l.Rel] = l.Href
	}
	assert.Contains(t, rels["prev"], "page=1")
	assert.Contains(t, rels["next"], "page=3")
	assert.Contains(t, rels["self"], "page=2")

	require.Len(t, body.Data, 1)
	assert.Equal(t, "http://example.com/api/cinemas/11", body.Data[0].Links[0].Href)
}

func TestCinemaCreate(t *testing.T) {
	var got service.CinemaInput
	cinemas := &stubCinemas{create: func(in service.CinemaInput) (model.Cinema, error) {
		got = in
		return model.Cinema{ID: 7, Name: in.Name, Address: in.Address, City: in.City}, nil
	}}
	e := newEcho()
	e.POST("/api/cinemas", NewCinemaHandler(cinemas).Create)

	t.Run("created", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/cinemas", `{"name":"Kino Central","address":"Main Street 1","city":"Bern"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "http://example.com/api/cinemas/7", rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, "Bern", got.City)
		assert.EqualValues(t, 7, decode(t, rec)["id"])
	})
	t.Run("short name", func(t *testing.T) {
		got = service.CinemaInput{}
		rec := do(e, http.MethodPost, "/api/cinemas", `{"name":"Kin","address":"Main Street 1","city":"Bern"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "invalid_input", body["code"])
		assert.Contains(t, body["error"], "name")
		assert.Empty(t, got.Name)
	})
	t.Run("malformed json", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/cinemas", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", decode(t, rec)["code"])
	})
}

func TestScreeningCreatePassesConflicts(t *testing.T) {
	screenings := &stubScreenings{create: func(in service.ScreeningInput) (model.Screening, error) {
		assert.Equal(t, "2030-05-20", in.Date)
		assert.Equal(t, "18:15", in.Time)
		return model.Screening{}, apperr.Conflict(apperr.ReasonInsufficientBufferBefore, "need a break")
	}}
	e := newEcho()
	e.POST("/api/screenings", NewScreeningHandler(screenings).Create)

	rec := do(e, http.MethodPost, "/api/screenings",
		`{"movieId":1,"hallId":2,"date":"2030-05-20","time":"18:15","basePriceEUR":10}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_buffer_before", decode(t, rec)["code"])

	rec = do(e, http.MethodPost, "/api/screenings",
		`{"movieId":1,"hallId":2,"date":"20-05-2030","time":"6pm","basePriceEUR":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decode(t, rec)["error"].(string)
	assert.Contains(t, msg, "date")
	assert.Contains(t, msg, "time")
}

func TestScreeningDiscount(t *testing.T) {
	var gotID uint64
	var gotPercent float64
	screenings := &stubScreenings{discount: func(id uint64, percent float64) (model.Screening, error) {
		gotID, gotPercent = id, percent
		return model.Screening{ID: id}, nil
	}}
	e := newEcho()
	e.PUT("/api/screenings/:id/discount", NewScreeningHandler(screenings).Discount)

	rec := do(e, http.MethodPut, "/api/screenings/5/discount", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPut, "/api/screenings/5/discount", `{"discount":150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPut, "/api/screenings/abc/discount", `{"discount":20}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPut, "/api/screenings/5/discount", `{"discount":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(5), gotID)
	assert.Zero(t, gotPercent)

	rec = do(e, http.MethodPut, "/api/screenings/5/discount", `{"discount":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20.0, gotPercent)
}

func TestScreeningsByMovieUpcomingOnly(t *testing.T) {
	var gotUpcoming bool
	screenings := &stubScreenings{listByMovie: func(movieID uint64, upcoming bool, p model.PageRequest) (service.Page[model.Screening], error) {
		gotUpcoming = upcoming
		return service.Page[model.Screening]{Items: []model.Screening{{ID: 1, MovieID: movieID}}, Total: 1, Request: p}, nil
	}}
	e := newEcho()
	e.GET("/api/movies/:id/screenings", NewScreeningHandler(screenings).ListByMovie)

	rec := do(e, http.MethodGet, "/api/movies/3/screenings?upcomingOnly=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/movies/3/screenings?upcomingOnly=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotUpcoming)

	rec = do(e, http.MethodGet, "/api/movies/3/screenings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotUpcoming)
}

func TestReservationCreateDirect(t *testing.T) {
	reservations := &stubReservations{
		mode: service.ModeDirect,
		create: func(a service.Actor, screeningID uint64) (model.Reservation, error) {
			assert.Equal(t, uint64(42), a.UserID)
			return model.Reservation{ID: 9, UserID: a.UserID, ScreeningID: screeningID}, nil
		},
	}
	h := NewReservationHandler(reservations)

	e := newEcho()
	e.POST("/api/reservations", h.Create, as(42, model.RoleCustomer))
	rec := do(e, http.MethodPost, "/api/reservations", `{"screeningId":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "http://example.com/api/reservations/9", rec.Header().Get(echo.HeaderLocation))

	anon := newEcho()
	anon.POST("/api/reservations", h.Create)
	rec = do(anon, http.MethodPost, "/api/reservations", `{"screeningId":3}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReservationCreatePaymentMode(t *testing.T) {
	reservations := &stubReservations{
		mode: service.ModePayment,
		checkout: func(a service.Actor, screeningID uint64, currency, redirect string) (model.Checkout, error) {
			return model.Checkout{
				OrderID:     "ORDER-1",
				ApproveURL:  "https://pay.example/approve/ORDER-1",
				ScreeningID: screeningID,
				Currency:    currency,
				Amount:      12.5,
			}, nil
		},
	}
	e := newEcho()
	e.POST("/api/reservations", NewReservationHandler(reservations).Create, as(42, model.RoleCustomer))

	rec := do(e, http.MethodPost, "/api/reservations", `{"screeningId":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/reservations", `{"screeningId":3,"currency":"GBP","redirectUrl":"https://shop.example/done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/reservations", `{"screeningId":3,"currency":"USD","redirectUrl":"https://shop.example/done"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "ORDER-1", body["orderId"])
	assert.Equal(t, "https://pay.example/approve/ORDER-1", body["approveUrl"])
	assert.Equal(t, 12.5, body["amount"])
}

func TestRegisterMultipart(t *testing.T) {
	var gotImage string
	users := &stubUsers{register: func(in service.UserInput, img *service.Upload) (model.User, error) {
		require.NotNil(t, img)
		gotImage = img.Filename
		data, err := io.ReadAll(img.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
		return model.User{ID: 4, Username: in.Username, Email: in.Email, Role: model.RoleCustomer, ProfileImage: "abc.png"}, nil
	}}
	e := newEcho()
	e.POST("/api/users/register", NewUserHandler(users, nil).Register)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("username", "moviefan"))
	require.NoError(t, mw.WriteField("email", "fan@example.com"))
	require.NoError(t, mw.WriteField("password", "correct-horse"))
	fw, err := mw.CreateFormFile("profilePicture", "me.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "me.png", gotImage)
	body := decode(t, rec)
	assert.Equal(t, "http://example.com/images/abc.png", body["profileImageUrl"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	users := &stubUsers{register: func(service.UserInput, *service.Upload) (model.User, error) {
		t.Fatal("register must not be called")
		return model.User{}, nil
	}}
	e := newEcho()
	e.POST("/api/users/register", NewUserHandler(users, nil).Register)

	rec := do(e, http.MethodPost, "/api/users/register", `{"username":"moviefan","email":"fan@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "password")
}

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/up", Health(pingerFunc(func(context.Context) error { return nil })))
	e.GET("/down", Health(pingerFunc(func(context.Context) error { return errors.New("connection refused") })))

	rec := do(e, http.MethodGet, "/up", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(e, http.MethodGet, "/down", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
