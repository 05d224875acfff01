package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
)

var testNow = time.Date(2030, 5, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// day returns the date n days after testNow.
func day(n int) string { return testNow.AddDate(0, 0, n).Format("2006-01-02") }

type world struct {
	db       *memDB
	rates    *fakeRates
	payments *fakePayments
	events   *recordingPublisher
	images   *memImages

	cinemas      *CinemaService
	halls        *HallService
	movies       *MovieService
	screenings   *ScreeningService
	reservations *ReservationService
	users        *UserService
	auth         *AuthService
}

func newWorld(t *testing.T, mode string) *world {
	t.Helper()
	db := newMemDB()
	w := &world{
		db:       db,
		rates:    &fakeRates{rates: pricing.Rates{pricing.USD: 1.25, pricing.CHF: 0.5}},
		payments: &fakePayments{status: "COMPLETED"},
		events:   &recordingPublisher{},
		images:   newMemImages(),
	}
	w.cinemas = NewCinemaService(memCinemas{db})
	w.halls = NewHallService(memHalls{db}, memCinemas{db})
	w.movies = NewMovieService(memMovies{db}, w.images)
	w.screenings = NewScreeningService(memScreenings{db}, memMovies{db}, memHalls{db},
		memReservations{db}, w.rates, nil, fixedClock)
	w.reservations = NewReservationService(ReservationDeps{
		Reservations: memReservations{db},
		Screenings:   memScreenings{db},
		Users:        memUsers{db},
		Payments:     w.payments,
		Events:       w.events,
		Now:          fixedClock,
		Mode:         mode,
	})
	w.users = NewUserService(memUsers{db}, w.images, nil, 4)
	w.auth = NewAuthService(memUsers{db}, memTokens{db}, "test-secret", 15*time.Minute, 7*24*time.Hour)
	return w
}

func (w *world) hall(t *testing.T, seats int) model.Hall {
	t.Helper()
	ctx := context.Background()
	c, err := w.cinemas.Create(ctx, CinemaInput{
		Name: "Kinoteka", Address: fmt.Sprintf("Main street %d", w.db.nextID+1), City: "Belgrade",
	})
	require.NoError(t, err)
	h, err := w.halls.Create(ctx, HallInput{CinemaID: c.ID, Name: "Hall number one", NumberOfSeats: seats})
	require.NoError(t, err)
	return h
}

func (w *world) movie(t *testing.T, minutes int) model.Movie {
	t.Helper()
	m, err := w.movies.Create(context.Background(), MovieInput{
		Title:       fmt.Sprintf("Movie %d", w.db.nextID+1),
		Description: "A long enough description of the movie.",
		Genre:       "Drama",
		Director:    "Some Director",
		ReleaseDate: "2029-01-01",
		Duration:    minutes,
		Rating:      8,
	}, nil)
	require.NoError(t, err)
	return m
}

func (w *world) user(t *testing.T, role string) model.User {
	t.Helper()
	n := w.db.nextID + 1
	u := model.User{
		Username:     fmt.Sprintf("user%06d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "unused",
		Role:         role,
	}
	require.NoError(t, memUsers{w.db}.Create(context.Background(), &u))
	return u
}

func (w *world) screening(t *testing.T, movieID, hallID uint64, date, clock string) model.Screening {
	t.Helper()
	sc, err := w.screenings.Create(context.Background(), ScreeningInput{
		MovieID: movieID, HallID: hallID, Date: date, Time: clock, BasePriceEUR: 10,
	})
	require.NoError(t, err)
	return sc
}

func (w *world) seats(t *testing.T, screeningID uint64) int {
	t.Helper()
	sc, err := memScreenings{w.db}.GetByID(context.Background(), screeningID)
	require.NoError(t, err)
	return sc.NumberOfAvailableSeats
}

func actorOf(u model.User) Actor { return Actor{UserID: u.ID, Role: u.Role} }
