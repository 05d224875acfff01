package service

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// MovieInput carries the editable movie fields.
type MovieInput struct {
	Title       string
	Description string
	Genre       string
	Director    string
	ReleaseDate string
	Duration    int
	Rating      float64
}

type MovieService struct {
	movies MovieStore
	images ImageStore
}

func NewMovieService(movies MovieStore, images ImageStore) *MovieService {
	return &MovieService{movies: movies, images: images}
}

func (s *MovieService) List(ctx context.Context, p model.PageRequest) (Page[model.Movie], error) {
	p = p.Normalize()
	items, total, err := s.movies.List(ctx, p)
	if err != nil {
		return Page[model.Movie]{}, translate(err, "movie")
	}
	return newPage(items, total, p), nil
}

func (s *MovieService) Get(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := s.movies.GetByID(ctx, id)
	return m, translate(err, "movie")
}

func (s *MovieService) Create(ctx context.Context, in MovieInput, img *Upload) (model.Movie, error) {
	m := in.apply(model.Movie{})
	if img != nil {
		name, err := s.images.Save(img.Filename, img.Body)
		if err != nil {
			return model.Movie{}, imageErr(err)
		}
		m.Image = name
	}
	if err := s.movies.Create(ctx, &m); err != nil {
		s.discard(ctx, m.Image)
		return model.Movie{}, movieErr(err)
	}
	return m, nil
}

// Update overwrites the movie. A new poster replaces the old file, which is
// removed only after the row is written.
func (s *MovieService) Update(ctx context.Context, id uint64, in MovieInput, img *Upload) (model.Movie, error) {
	cur, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return model.Movie{}, translate(err, "movie")
	}
	m := in.apply(cur)
	if img != nil {
		name, err := s.images.Save(img.Filename, img.Body)
		if err != nil {
			return model.Movie{}, imageErr(err)
		}
		m.Image = name
	}
	if err := s.movies.Update(ctx, &m); err != nil {
		if m.Image != cur.Image {
			s.discard(ctx, m.Image)
		}
		return model.Movie{}, movieErr(err)
	}
	if m.Image != cur.Image {
		s.discard(ctx, cur.Image)
	}
	return m, nil
}

func (s *MovieService) Delete(ctx context.Context, id uint64) error {
	cur, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return translate(err, "movie")
	}
	if err := s.movies.Delete(ctx, id); err != nil {
		return movieErr(err)
	}
	s.discard(ctx, cur.Image)
	return nil
}

func (s *MovieService) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.images.Remove(name); err != nil {
		logger.WithContext(ctx).Warn("failed to remove movie image", "image", name, "error", err)
	}
}

func (in MovieInput) apply(m model.Movie) model.Movie {
	m.Title = in.Title
	m.Description = in.Description
	m.Genre = in.Genre
	m.Director = in.Director
	m.ReleaseDate = in.ReleaseDate
	m.Duration = in.Duration
	m.Rating = in.Rating
	return m
}

func movieErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate, "a movie with this title already exists", err)
	case errors.Is(err, repository.ErrInUse):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonInUse,
			"the movie has scheduled screenings; remove them first", err)
	}
	return translate(err, "movie")
}
