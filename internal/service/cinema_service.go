package service

import (
	"context"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// CinemaInput carries the editable cinema fields.
type CinemaInput struct {
	Name    string
	Address string
	City    string
}

type CinemaService struct {
	cinemas CinemaStore
}

func NewCinemaService(cinemas CinemaStore) *CinemaService {
	return &CinemaService{cinemas: cinemas}
}

func (s *CinemaService) List(ctx context.Context, p model.PageRequest) (Page[model.Cinema], error) {
	p = p.Normalize()
	items, total, err := s.cinemas.List(ctx, p)
	if err != nil {
		return Page[model.Cinema]{}, translate(err, "cinema")
	}
	return newPage(items, total, p), nil
}

func (s *CinemaService) Get(ctx context.Context, id uint64) (model.Cinema, error) {
	c, err := s.cinemas.GetByID(ctx, id)
	return c, translate(err, "cinema")
}

func (s *CinemaService) Create(ctx context.Context, in CinemaInput) (model.Cinema, error) {
	c := model.Cinema{Name: in.Name, Address: in.Address, City: in.City}
	if err := s.cinemas.Create(ctx, &c); err != nil {
		return model.Cinema{}, cinemaErr(err)
	}
	return c, nil
}

func (s *CinemaService) Update(ctx context.Context, id uint64, in CinemaInput) (model.Cinema, error) {
	c := model.Cinema{ID: id, Name: in.Name, Address: in.Address, City: in.City}
	if err := s.cinemas.Update(ctx, &c); err != nil {
		return model.Cinema{}, cinemaErr(err)
	}
	return c, nil
}

func (s *CinemaService) Delete(ctx context.Context, id uint64) error {
	return cinemaErr(s.cinemas.Delete(ctx, id))
}

func cinemaErr(err error) error {
	err = translate(err, "cinema")
	switch apperr.ReasonOf(err) {
	case apperr.ReasonDuplicate:
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate,
			"a cinema already exists at this address in this city", err)
	case apperr.ReasonInUse:
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonInUse,
			"the cinema still has halls; delete them first", err)
	}
	return err
}
