package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// CinemaService is implemented by *service.CinemaService.
type CinemaService interface {
	List(ctx context.Context, p model.PageRequest) (service.Page[model.Cinema], error)
	Get(ctx context.Context, id uint64) (model.Cinema, error)
	Create(ctx context.Context, in service.CinemaInput) (model.Cinema, error)
	Update(ctx context.Context, id uint64, in service.CinemaInput) (model.Cinema, error)
	Delete(ctx context.Context, id uint64) error
}

type CinemaHandler struct {
	cinemas CinemaService
}

func NewCinemaHandler(cinemas CinemaService) *CinemaHandler {
	return &CinemaHandler{cinemas: cinemas}
}

type cinemaRequest struct {
	Name    string `json:"name" validate:"required,min=5,max=255"`
	Address string `json:"address" validate:"required,min=5,max=255"`
	City    string `json:"city" validate:"required,min=2,max=255"`
}

func (r cinemaRequest) input() service.CinemaInput {
	return service.CinemaInput{Name: r.Name, Address: r.Address, City: r.City}
}

type cinemaView struct {
	model.Cinema
	Links []Link `json:"links"`
}

func (h *CinemaHandler) view(l linker, c model.Cinema) cinemaView {
	self := l.href("/cinemas/%d", c.ID)
	links := append(l.crud(self, typeJSON),
		l.link("halls", "GET", l.href("/cinemas/%d/halls", c.ID)),
		l.link("halls", "POST", l.href("/halls"), typeJSON),
	)
	return cinemaView{Cinema: c, Links: links}
}

// List handles GET /api/cinemas.
func (h *CinemaHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	page, err := h.cinemas.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	data := make([]cinemaView, 0, len(page.Items))
	for _, item := range page.Items {
		data = append(data, h.view(l, item))
	}
	return c.JSON(http.StatusOK, list(c, page, data, l.link("create", "POST", l.href("/cinemas"), typeJSON)))
}

// Get handles GET /api/cinemas/:id.
func (h *CinemaHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	cinema, err := h.cinemas.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.view(linksFor(c), cinema))
}

// Create handles POST /api/cinemas.
func (h *CinemaHandler) Create(c echo.Context) error {
	var req cinemaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cinema, err := h.cinemas.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	l := linksFor(c)
	return created(c, l.href("/cinemas/%d", cinema.ID), h.view(l, cinema))
}

// Update handles PUT /api/cinemas/:id.
func (h *CinemaHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req cinemaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cinema, err := h.cinemas.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.view(linksFor(c), cinema))
}

// Delete handles DELETE /api/cinemas/:id.
func (h *CinemaHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.cinemas.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
