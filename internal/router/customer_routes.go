package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
)

// registerUsers exposes account management. Self-or-admin checks on /users/:id
// happen in the service, which knows whose account is addressed.
func registerUsers(api *echo.Group, h Handlers, g guards) {
	u := h.Users
	api.POST("/users/register", u.Register)
	api.POST("/users/login", u.Login)
	api.POST("/users/refresh", u.Refresh)
	api.POST("/users/logout", u.Logout, g.auth)

	api.GET("/users", u.List, g.auth, g.admin)
	api.GET("/users/:id", u.Get, g.auth)
	api.PUT("/users/:id", u.Update, g.auth)
	api.DELETE("/users/:id", u.Delete, g.auth)
	api.PATCH("/users/:id/role", u.ChangeRole, g.auth, g.admin)
	api.GET("/users/:id/reservations", h.Reservations.ListByUser, g.auth)
}

// registerReservations exposes booking for any signed-in role.
func registerReservations(api *echo.Group, h *handler.ReservationHandler, g guards) {
	api.POST("/reservations", h.Create, g.auth)
	api.POST("/reservations/confirm", h.Confirm, g.auth)
	api.DELETE("/reservations/:id", h.Cancel, g.auth)
}
