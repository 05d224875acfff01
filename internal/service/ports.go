// Package service implements the business rules on top of the repositories.
// Every rejected operation returns an *apperr.Error.
package service

import (
	"context"
	"io"
	"time"

	"github.com/iliyamo/cinema-booking/internal/external"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// CinemaStore is implemented by *repository.CinemaRepo.
type CinemaStore interface {
	Create(ctx context.Context, c *model.Cinema) error
	GetByID(ctx context.Context, id uint64) (model.Cinema, error)
	List(ctx context.Context, p model.PageRequest) ([]model.Cinema, int, error)
	Update(ctx context.Context, c *model.Cinema) error
	Delete(ctx context.Context, id uint64) error
}

// HallStore is implemented by *repository.HallRepo.
type HallStore interface {
	Create(ctx context.Context, h *model.Hall) error
	GetByID(ctx context.Context, id uint64) (model.Hall, error)
	ListByCinema(ctx context.Context, cinemaID uint64, p model.PageRequest) ([]model.Hall, int, error)
	Update(ctx context.Context, h *model.Hall) error
	Delete(ctx context.Context, id uint64) error
}

// MovieStore is implemented by *repository.MovieRepo.
type MovieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	List(ctx context.Context, p model.PageRequest) ([]model.Movie, int, error)
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id uint64) error
}

// ScreeningStore is implemented by *repository.ScreeningRepo. Create,
// Update, SetPrices and Delete run their guard while the affected rows are
// locked.
type ScreeningStore interface {
	GetByID(ctx context.Context, id uint64) (model.Screening, error)
	ListByMovie(ctx context.Context, movieID uint64, f repository.ScreeningFilter, p model.PageRequest) ([]model.Screening, int, error)
	ListByHall(ctx context.Context, hallID uint64, p model.PageRequest) ([]model.Screening, int, error)
	Create(ctx context.Context, s *model.Screening, guard repository.ScheduleGuard) error
	Update(ctx context.Context, s *model.Screening, guard repository.ScheduleGuard) error
	SetPrices(ctx context.Context, id uint64, fn func(cur model.Screening, reservations int) (pricing.Prices, error)) (model.Screening, error)
	Delete(ctx context.Context, id uint64, guard repository.LockedGuard) error
	ListRefreshable(ctx context.Context, after string) ([]model.Screening, error)
	RefreshPrices(ctx context.Context, id uint64, p pricing.Prices) (bool, error)
}

// ReservationStore is implemented by *repository.ReservationRepo. Create and
// Delete move the seat counter in the same transaction as the row.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) (int, error)
	Delete(ctx context.Context, id uint64, guard repository.CancelGuard) (model.Reservation, repository.SeatCount, error)
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	Exists(ctx context.Context, userID, screeningID uint64) (bool, error)
	CountByScreening(ctx context.Context, screeningID uint64) (int, error)
	ListByUser(ctx context.Context, userID uint64, p model.PageRequest) ([]model.ReservationView, int, error)
}

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context, p model.PageRequest) ([]model.User, int, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	UpdateRole(ctx context.Context, id uint64, role string) (model.User, error)
	Delete(ctx context.Context, id uint64) ([]uint64, error)
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Revoke(ctx context.Context, userID uint64) error
}

// RatesProvider returns the current EUR exchange-rate snapshot.
type RatesProvider interface {
	Latest(ctx context.Context) (pricing.Rates, error)
}

// PaymentProvider creates, reads and captures checkout orders.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, o external.Order) (external.OrderRef, error)
	GetOrder(ctx context.Context, orderID string) (external.OrderDetails, error)
	Capture(ctx context.Context, orderID string) (string, error)
}

// EventPublisher delivers reservation events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ImageStore persists uploaded images.
type ImageStore interface {
	Save(original string, r io.Reader) (string, error)
	Remove(name string) error
}

// Upload is an optional image attached to a request.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uint64
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time
