package service

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// HallInput carries the editable hall fields.
type HallInput struct {
	CinemaID      uint64
	Name          string
	NumberOfSeats int
}

type HallService struct {
	halls   HallStore
	cinemas CinemaStore
}

func NewHallService(halls HallStore, cinemas CinemaStore) *HallService {
	return &HallService{halls: halls, cinemas: cinemas}
}

// ListByCinema pages through the halls of an existing cinema.
func (s *HallService) ListByCinema(ctx context.Context, cinemaID uint64, p model.PageRequest) (Page[model.Hall], error) {
	if _, err := s.cinemas.GetByID(ctx, cinemaID); err != nil {
		return Page[model.Hall]{}, translate(err, "cinema")
	}
	p = p.Normalize()
	items, total, err := s.halls.ListByCinema(ctx, cinemaID, p)
	if err != nil {
		return Page[model.Hall]{}, translate(err, "hall")
	}
	return newPage(items, total, p), nil
}

func (s *HallService) Get(ctx context.Context, id uint64) (model.Hall, error) {
	h, err := s.halls.GetByID(ctx, id)
	return h, translate(err, "hall")
}

func (s *HallService) Create(ctx context.Context, in HallInput) (model.Hall, error) {
	if _, err := s.cinemas.GetByID(ctx, in.CinemaID); err != nil {
		return model.Hall{}, translate(err, "cinema")
	}
	h := model.Hall{CinemaID: in.CinemaID, Name: in.Name, NumberOfSeats: in.NumberOfSeats}
	if err := s.halls.Create(ctx, &h); err != nil {
		return model.Hall{}, hallErr(err)
	}
	return h, nil
}

// Update is refused while any screening is scheduled in the hall.
func (s *HallService) Update(ctx context.Context, id uint64, in HallInput) (model.Hall, error) {
	if _, err := s.halls.GetByID(ctx, id); err != nil {
		return model.Hall{}, translate(err, "hall")
	}
	if _, err := s.cinemas.GetByID(ctx, in.CinemaID); err != nil {
		return model.Hall{}, translate(err, "cinema")
	}
	h := model.Hall{ID: id, CinemaID: in.CinemaID, Name: in.Name, NumberOfSeats: in.NumberOfSeats}
	if err := s.halls.Update(ctx, &h); err != nil {
		return model.Hall{}, hallErr(err)
	}
	return h, nil
}

func (s *HallService) Delete(ctx context.Context, id uint64) error {
	return hallErr(s.halls.Delete(ctx, id))
}

func hallErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate,
			"a hall with this name already exists in the cinema", err)
	case errors.Is(err, repository.ErrInUse):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonInUse,
			"the hall has scheduled screenings; remove them first", err)
	}
	return translate(err, "hall")
}
