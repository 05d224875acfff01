package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// ScreeningService is implemented by *service.ScreeningService.
type ScreeningService interface {
	Get(ctx context.Context, id uint64) (model.Screening, error)
	ListByMovie(ctx context.Context, movieID uint64, upcomingOnly bool, p model.PageRequest) (service.Page[model.Screening], error)
	ListByHall(ctx context.Context, hallID uint64, p model.PageRequest) (service.Page[model.Screening], error)
	Create(ctx context.Context, in service.ScreeningInput) (model.Screening, error)
	Update(ctx context.Context, id uint64, in service.ScreeningInput) (model.Screening, error)
	Delete(ctx context.Context, id uint64) error
	AddDiscount(ctx context.Context, id uint64, percent float64) (model.Screening, error)
}

type ScreeningHandler struct {
	screenings ScreeningService
}

func NewScreeningHandler(screenings ScreeningService) *ScreeningHandler {
	return &ScreeningHandler{screenings: screenings}
}

type screeningRequest struct {
	MovieID      uint64  `json:"movieId" validate:"required"`
	HallID       uint64  `json:"hallId" validate:"required"`
	Date         string  `json:"date" validate:"required,ymd"`
	Time         string  `json:"time" validate:"required,hhmm"`
	BasePriceEUR float64 `json:"basePriceEUR" validate:"min=0,max=100"`
}

func (r screeningRequest) input() service.ScreeningInput {
	return service.ScreeningInput{
		MovieID:      r.MovieID,
		HallID:       r.HallID,
		Date:         r.Date,
		Time:         r.Time,
		BasePriceEUR: r.BasePriceEUR,
	}
}

type discountRequest struct {
	Discount *float64 `json:"discount" validate:"required,min=0,max=100"`
}

type screeningView struct {
	model.Screening
	Links []Link `json:"links"`
}

func screeningViewOf(l linker, s model.Screening) screeningView {
	self := l.href("/screenings/%d", s.ID)
	links := append(l.crud(self, typeJSON),
		l.link("discount", "PUT", l.href("/screenings/%d/discount", s.ID), typeJSON),
		l.link("movie", "GET", l.href("/movies/%d", s.MovieID)),
		l.link("hall", "GET", l.href("/halls/%d", s.HallID)),
		l.link("reservation", "POST", l.href("/reservations"), typeJSON),
	)
	return screeningView{Screening: s, Links: links}
}

func screeningViews(l linker, items []model.Screening) []screeningView {
	out := make([]screeningView, 0, len(items))
	for _, s := range items {
		out = append(out, screeningViewOf(l, s))
	}
	return out
}

// Get handles GET /api/screenings/:id.
func (h *ScreeningHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	s, err := h.screenings.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, screeningViewOf(linksFor(c), s))
}

// ListByMovie handles GET /api/movies/:id/screenings?upcomingOnly=.
func (h *ScreeningHandler) ListByMovie(c echo.Context) error {
	movieID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	upcoming := false
	if s := c.QueryParam("upcomingOnly"); s != "" {
		if upcoming, err = strconv.ParseBool(s); err != nil {
			return apperr.Validation(apperr.ReasonInvalidInput, "upcomingOnly must be true or false")
		}
	}
	page, err := h.screenings.ListByMovie(c.Request().Context(), movieID, upcoming, p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	return c.JSON(http.StatusOK, list(c, page, screeningViews(l, page.Items),
		l.link("movie", "GET", l.href("/movies/%d", movieID)),
		l.link("create", "POST", l.href("/screenings"), typeJSON),
	))
}

// ListByHall handles GET /api/halls/:id/screenings.
func (h *ScreeningHandler) ListByHall(c echo.Context) error {
	hallID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	page, err := h.screenings.ListByHall(c.Request().Context(), hallID, p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	return c.JSON(http.StatusOK, list(c, page, screeningViews(l, page.Items),
		l.link("hall", "GET", l.href("/halls/%d", hallID)),
	))
}

// Create handles POST /api/screenings.
func (h *ScreeningHandler) Create(c echo.Context) error {
	var req screeningRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.screenings.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	l := linksFor(c)
	return created(c, l.href("/screenings/%d", s.ID), screeningViewOf(l, s))
}

// Update handles PUT /api/screenings/:id.
func (h *ScreeningHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req screeningRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.screenings.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, screeningViewOf(linksFor(c), s))
}

// Delete handles DELETE /api/screenings/:id.
func (h *ScreeningHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.screenings.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Discount handles PUT /api/screenings/:id/discount.
func (h *ScreeningHandler) Discount(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req discountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.screenings.AddDiscount(c.Request().Context(), id, *req.Discount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, screeningViewOf(linksFor(c), s))
}
