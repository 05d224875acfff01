package service

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// UserInput carries registration and profile fields. Password may be empty
// on update to keep the current one.
type UserInput struct {
	Username string
	Email    string
	Password string
}

type UserService struct {
	users      UserStore
	images     ImageStore
	metrics    *metrics.Metrics
	bcryptCost int
}

func NewUserService(users UserStore, images ImageStore, m *metrics.Metrics, bcryptCost int) *UserService {
	return &UserService{users: users, images: images, metrics: m, bcryptCost: bcryptCost}
}

// Register creates a Customer account.
func (s *UserService) Register(ctx context.Context, in UserInput, img *Upload) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, apperr.Internal("hash password", err)
	}
	u := model.User{Username: in.Username, Email: in.Email, PasswordHash: hash, Role: model.RoleCustomer}
	if img != nil {
		name, err := s.images.Save(img.Filename, img.Body)
		if err != nil {
			return model.User{}, imageErr(err)
		}
		u.ProfileImage = name
	}
	if err := s.users.Create(ctx, &u); err != nil {
		s.discard(ctx, u.ProfileImage)
		return model.User{}, userErr(err)
	}
	return u, nil
}

// Get returns the caller's own account.
func (s *UserService) Get(ctx context.Context, actor Actor, id uint64) (model.User, error) {
	if actor.UserID != id {
		return model.User{}, apperr.Forbidden("you can only view your own account")
	}
	u, err := s.users.GetByID(ctx, id)
	return u, translate(err, "user")
}

func (s *UserService) List(ctx context.Context, p model.PageRequest) (Page[model.User], error) {
	p = p.Normalize()
	items, total, err := s.users.List(ctx, p)
	if err != nil {
		return Page[model.User]{}, translate(err, "user")
	}
	return newPage(items, total, p), nil
}

// Update changes the caller's profile. An empty password keeps the
// current one; a new image replaces the old file.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint64, in UserInput, img *Upload) (model.User, error) {
	if actor.UserID != id {
		return model.User{}, apperr.Forbidden("you can only update your own account")
	}
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, translate(err, "user")
	}
	u := cur
	u.Username, u.Email = in.Username, in.Email
	if in.Password != "" {
		if u.PasswordHash, err = utils.HashPassword(in.Password, s.bcryptCost); err != nil {
			return model.User{}, apperr.Internal("hash password", err)
		}
	}
	if img != nil {
		name, err := s.images.Save(img.Filename, img.Body)
		if err != nil {
			return model.User{}, imageErr(err)
		}
		u.ProfileImage = name
	}
	if err := s.users.UpdateProfile(ctx, &u); err != nil {
		if u.ProfileImage != cur.ProfileImage {
			s.discard(ctx, u.ProfileImage)
		}
		return model.User{}, userErr(err)
	}
	if u.ProfileImage != cur.ProfileImage {
		s.discard(ctx, cur.ProfileImage)
	}
	return u, nil
}

// ChangeRole assigns one of the three roles.
func (s *UserService) ChangeRole(ctx context.Context, id uint64, role string) (model.User, error) {
	if !model.ValidRole(role) {
		return model.User{}, apperr.Validation(apperr.ReasonInvalidInput, "role must be one of Customer, Sales, Admin")
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return model.User{}, translate(err, "user")
	}
	u, err := s.users.UpdateRole(ctx, id, role)
	return u, translate(err, "user")
}

// Delete removes an account together with its reservations, giving every
// reserved seat back. Only the user or an admin may do this.
func (s *UserService) Delete(ctx context.Context, actor Actor, id uint64) error {
	if actor.UserID != id && !actor.IsAdmin() {
		return apperr.Forbidden("you can only delete your own account")
	}
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return translate(err, "user")
	}
	released, err := s.users.Delete(ctx, id)
	if err != nil {
		return translate(err, "user")
	}
	for range released {
		s.metrics.Reservation("cancel", "user_deleted")
	}
	logger.WithContext(ctx).Info("user deleted", "user_id", id, "reservations_released", len(released))
	s.discard(ctx, cur.ProfileImage)
	return nil
}

func (s *UserService) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.images.Remove(name); err != nil {
		logger.WithContext(ctx).Warn("failed to remove profile image", "image", name, "error", err)
	}
}

func userErr(err error) error {
	switch {
	case repository.IsDuplicateKey(err, repository.KeyUsername):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate, "this username is already taken", err)
	case repository.IsDuplicateKey(err, repository.KeyEmail):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate, "this email is already registered", err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Wrap(apperr.KindConflict, apperr.ReasonDuplicate, "user already exists", err)
	}
	return translate(err, "user")
}
