package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
)

// registerCatalog exposes cinemas and halls (Admin) and movies (Admin, Sales).
// Single-resource reads are public.
func registerCatalog(api *echo.Group, h Handlers, g guards) {
	c := h.Cinemas
	api.GET("/cinemas", c.List, g.auth, g.admin)
	api.GET("/cinemas/:id", c.Get)
	api.POST("/cinemas", c.Create, g.auth, g.admin)
	api.PUT("/cinemas/:id", c.Update, g.auth, g.admin)
	api.DELETE("/cinemas/:id", c.Delete, g.auth, g.admin)
	api.GET("/cinemas/:id/halls", h.Halls.ListByCinema, g.auth, g.admin)

	hl := h.Halls
	api.GET("/halls/:id", hl.Get)
	api.POST("/halls", hl.Create, g.auth, g.admin)
	api.PUT("/halls/:id", hl.Update, g.auth, g.admin)
	api.DELETE("/halls/:id", hl.Delete, g.auth, g.admin)

	m := h.Movies
	api.GET("/movies", m.List)
	api.GET("/movies/:id", m.Get)
	api.POST("/movies", m.Create, g.auth, g.catalogers)
	api.PUT("/movies/:id", m.Update, g.auth, g.catalogers)
	api.DELETE("/movies/:id", m.Delete, g.auth, g.catalogers)
}

// registerScreenings exposes scheduling to Admin and Sales; browsing is public.
func registerScreenings(api *echo.Group, h *handler.ScreeningHandler, g guards) {
	api.GET("/movies/:id/screenings", h.ListByMovie)
	api.GET("/halls/:id/screenings", h.ListByHall)
	api.GET("/screenings/:id", h.Get)
	api.POST("/screenings", h.Create, g.auth, g.catalogers)
	api.PUT("/screenings/:id", h.Update, g.auth, g.catalogers)
	api.DELETE("/screenings/:id", h.Delete, g.auth, g.catalogers)
	api.PUT("/screenings/:id/discount", h.Discount, g.auth, g.catalogers)
}
