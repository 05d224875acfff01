package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// MovieService is implemented by *service.MovieService.
type MovieService interface {
	List(ctx context.Context, p model.PageRequest) (service.Page[model.Movie], error)
	Get(ctx context.Context, id uint64) (model.Movie, error)
	Create(ctx context.Context, in service.MovieInput, img *service.Upload) (model.Movie, error)
	Update(ctx context.Context, id uint64, in service.MovieInput, img *service.Upload) (model.Movie, error)
	Delete(ctx context.Context, id uint64) error
}

type MovieHandler struct {
	movies MovieService
}

func NewMovieHandler(movies MovieService) *MovieHandler {
	return &MovieHandler{movies: movies}
}

// movieRequest is sent as multipart/form-data with an optional "image" file.
type movieRequest struct {
	Title       string  `json:"title" form:"title" validate:"required,min=2,max=255"`
	Description string  `json:"description" form:"description" validate:"required,min=20,max=500"`
	Genre       string  `json:"genre" form:"genre" validate:"required,min=5,max=255"`
	Director    string  `json:"director" form:"director" validate:"required,min=5,max=255"`
	ReleaseDate string  `json:"releaseDate" form:"releaseDate" validate:"required,ymd"`
	Duration    int     `json:"duration" form:"duration" validate:"min=0,max=240"`
	Rating      float64 `json:"rating" form:"rating" validate:"required,min=1,max=10"`
}

func (r movieRequest) input() service.MovieInput {
	return service.MovieInput{
		Title:       r.Title,
		Description: r.Description,
		Genre:       r.Genre,
		Director:    r.Director,
		ReleaseDate: r.ReleaseDate,
		Duration:    r.Duration,
		Rating:      r.Rating,
	}
}

type movieView struct {
	model.Movie
	ImageURL string `json:"imageUrl,omitempty"`
	Links    []Link `json:"links"`
}

func movieViewOf(c echo.Context, l linker, m model.Movie) movieView {
	v := movieView{Movie: m}
	if m.Image != "" {
		v.ImageURL = c.Scheme() + "://" + c.Request().Host + "/images/" + m.Image
	}
	self := l.href("/movies/%d", m.ID)
	v.Links = append(l.crud(self, typeMultipart),
		l.link("screenings", "GET", l.href("/movies/%d/screenings", m.ID)),
		l.link("movies", "GET", l.href("/movies")),
	)
	return v
}

// List handles GET /api/movies.
func (h *MovieHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	page, err := h.movies.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	l := linksFor(c)
	data := make([]movieView, 0, len(page.Items))
	for _, item := range page.Items {
		data = append(data, movieViewOf(c, l, item))
	}
	return c.JSON(http.StatusOK, list(c, page, data, l.link("create", "POST", l.href("/movies"), typeMultipart)))
}

// Get handles GET /api/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.movies.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movieViewOf(c, linksFor(c), m))
}

// Create handles POST /api/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	img, done, err := upload(c, "image")
	if err != nil {
		return err
	}
	defer done()

	m, err := h.movies.Create(c.Request().Context(), req.input(), img)
	if err != nil {
		return err
	}
	l := linksFor(c)
	return created(c, l.href("/movies/%d", m.ID), movieViewOf(c, l, m))
}

// Update handles PUT /api/movies/:id. Without a new image the current
// poster is kept.
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req movieRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	img, done, err := upload(c, "image")
	if err != nil {
		return err
	}
	defer done()

	m, err := h.movies.Update(c.Request().Context(), id, req.input(), img)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movieViewOf(c, linksFor(c), m))
}

// Delete handles DELETE /api/movies/:id.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.movies.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
