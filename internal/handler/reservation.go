package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// ReservationService is implemented by *service.ReservationService.
type ReservationService interface {
	Mode() string
	Create(ctx context.Context, actor service.Actor, screeningID uint64) (model.Reservation, error)
	Checkout(ctx context.Context, actor service.Actor, screeningID uint64, currency, redirectURL string) (model.Checkout, error)
	Confirm(ctx context.Context, actor service.Actor, orderID string, screeningID uint64) (model.Reservation, error)
	Cancel(ctx context.Context, actor service.Actor, id uint64) error
	ListByUser(ctx context.Context, actor service.Actor, userID uint64, p model.PageRequest) (service.Page[model.ReservationView], error)
}

type ReservationHandler struct {
	reservations ReservationService
}

func NewReservationHandler(reservations ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

type reservationRequest struct {
	ScreeningID uint64 `json:"screeningId" validate:"required"`
}

type checkoutRequest struct {
	ScreeningID uint64 `json:"screeningId" validate:"required"`
	Currency    string `json:"currency" validate:"required,oneof=USD EUR CHF"`
	RedirectURL string `json:"redirectUrl" validate:"required,url"`
}

type confirmRequest struct {
	OrderID     string `json:"orderId" validate:"required,max=64"`
	ScreeningID uint64 `json:"screeningId" validate:"required"`
}

type reservationView struct {
	model.Reservation
	Links []Link `json:"links"`
}

func reservationViewOf(l linker, r model.Reservation) reservationView {
	return reservationView{Reservation: r, Links: []Link{
		l.link("self", "DELETE", l.href("/reservations/%d", r.ID)),
		l.link("screening", "GET", l.href("/screenings/%d", r.ScreeningID)),
		l.link("reservations", "GET", l.href("/users/%d/reservations", r.UserID)),
	}}
}

type checkoutView struct {
	model.Checkout
	Links []Link `json:"links"`
}

// Create handles POST /api/reservations. In direct mode the seat is booked
// immediately (201); in payment mode a checkout order is opened (200) and
// the client must approve it and call Confirm.
func (h *ReservationHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	l := linksFor(c)
	ctx := c.Request().Context()

	if h.reservations.Mode() == service.ModePayment {
		var req checkoutRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		co, err := h.reservations.Checkout(ctx, a, req.ScreeningID, req.Currency, req.RedirectURL)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, checkoutView{Checkout: co, Links: []Link{
			l.link("approve", "GET", co.ApproveURL),
			l.link("confirm", "POST", l.href("/reservations/confirm"), typeJSON),
		}})
	}

	var req reservationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.reservations.Create(ctx, a, req.ScreeningID)
	if err != nil {
		return err
	}
	return created(c, l.href("/reservations/%d", res.ID), reservationViewOf(l, res))
}

// Confirm handles POST /api/reservations/confirm.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req confirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.reservations.Confirm(c.Request().Context(), a, req.OrderID, req.ScreeningID)
	if err != nil {
		return err
	}
	l := linksFor(c)
	return created(c, l.href("/reservations/%d", res.ID), reservationViewOf(l, res))
}

// Cancel handles DELETE /api/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.reservations.Cancel(c.Request().Context(), a, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByUser handles GET /api/users/:id/reservations.
func (h *ReservationHandler) ListByUser(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	userID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	page, err := h.reservations.ListByUser(c.Request().Context(), a, userID, p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	type item struct {
		model.ReservationView
		Links []Link `json:"links"`
	}
	data := make([]item, 0, len(page.Items))
	for _, v := range page.Items {
		data = append(data, item{ReservationView: v, Links: reservationViewOf(l, v.Reservation).Links})
	}
	return c.JSON(http.StatusOK, list(c, page, data, l.link("user", "GET", l.href("/users/%d", userID))))
}
