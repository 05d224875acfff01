package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/storage"
)

// translate turns repository sentinels into typed errors. what names the
// entity for not-found messages ("movie", "hall", ...). apperr values pass
// through untouched.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(fmt.Sprintf("there is no %s with the given id", what))
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate,
			fmt.Sprintf("a %s with these values already exists", what), err)
	case errors.Is(err, repository.ErrInUse):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonInUse,
			fmt.Sprintf("the %s is still referenced by other records", what), err)
	case errors.Is(err, repository.ErrNoSeats):
		return apperr.Conflict(apperr.ReasonNoSeatsAvailable, "there are no available seats for this screening")
	}
	return apperr.Internal(what+" store failure", err)
}

// imageErr maps storage failures for uploads.
func imageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperr.Validation(apperr.ReasonInvalidInput, "image must be a jpg, png, gif or webp file")
	case errors.Is(err, storage.ErrTooLarge):
		return apperr.Validation(apperr.ReasonInvalidInput, "image is too large")
	}
	return apperr.Internal("image storage failure", err)
}
