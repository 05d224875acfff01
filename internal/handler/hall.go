package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// HallService is implemented by *service.HallService.
type HallService interface {
	ListByCinema(ctx context.Context, cinemaID uint64, p model.PageRequest) (service.Page[model.Hall], error)
	Get(ctx context.Context, id uint64) (model.Hall, error)
	Create(ctx context.Context, in service.HallInput) (model.Hall, error)
	Update(ctx context.Context, id uint64, in service.HallInput) (model.Hall, error)
	Delete(ctx context.Context, id uint64) error
}

type HallHandler struct {
	halls HallService
}

func NewHallHandler(halls HallService) *HallHandler {
	return &HallHandler{halls: halls}
}

type hallRequest struct {
	CinemaID      uint64 `json:"cinemaId" validate:"required"`
	Name          string `json:"name" validate:"required,min=5,max=255"`
	NumberOfSeats int    `json:"numberOfSeats" validate:"required,min=10,max=50"`
}

func (r hallRequest) input() service.HallInput {
	return service.HallInput{CinemaID: r.CinemaID, Name: r.Name, NumberOfSeats: r.NumberOfSeats}
}

type hallView struct {
	model.Hall
	Links []Link `json:"links"`
}

func hallViewOf(l linker, h model.Hall) hallView {
	self := l.href("/halls/%d", h.ID)
	links := append(l.crud(self, typeJSON),
		l.link("cinema", "GET", l.href("/cinemas/%d", h.CinemaID)),
		l.link("screenings", "GET", l.href("/halls/%d/screenings", h.ID)),
	)
	return hallView{Hall: h, Links: links}
}

// ListByCinema handles GET /api/cinemas/:id/halls.
func (h *HallHandler) ListByCinema(c echo.Context) error {
	cinemaID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	page, err := h.halls.ListByCinema(c.Request().Context(), cinemaID, p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	data := make([]hallView, 0, len(page.Items))
	for _, item := range page.Items {
		data = append(data, hallViewOf(l, item))
	}
	return c.JSON(http.StatusOK, list(c, page, data,
		l.link("cinema", "GET", l.href("/cinemas/%d", cinemaID)),
		l.link("create", "POST", l.href("/halls"), typeJSON),
	))
}

// Get handles GET /api/halls/:id.
func (h *HallHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	hall, err := h.halls.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hallViewOf(linksFor(c), hall))
}

// Create handles POST /api/halls.
func (h *HallHandler) Create(c echo.Context) error {
	var req hallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	hall, err := h.halls.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	l := linksFor(c)
	return created(c, l.href("/halls/%d", hall.ID), hallViewOf(l, hall))
}

// Update handles PUT /api/halls/:id.
func (h *HallHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req hallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	hall, err := h.halls.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hallViewOf(linksFor(c), hall))
}

// Delete handles DELETE /api/halls/:id.
func (h *HallHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.halls.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
