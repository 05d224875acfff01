package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// upcomingWindow is how many days ahead an upcoming-only listing reaches.
const upcomingWindow = 7

// ScreeningInput carries the fields of a new or rescheduled screening.
type ScreeningInput struct {
	MovieID      uint64
	HallID       uint64
	Date         string
	Time         string
	BasePriceEUR float64
}

type ScreeningService struct {
	screenings   ScreeningStore
	movies       MovieStore
	halls        HallStore
	reservations ReservationStore
	rates        RatesProvider
	metrics      *metrics.Metrics
	now          Clock
}

func NewScreeningService(screenings ScreeningStore, movies MovieStore, halls HallStore,
	reservations ReservationStore, rates RatesProvider, m *metrics.Metrics, now Clock) *ScreeningService {
	if now == nil {
		now = time.Now
	}
	return &ScreeningService{
		screenings:   screenings,
		movies:       movies,
		halls:        halls,
		reservations: reservations,
		rates:        rates,
		metrics:      m,
		now:          now,
	}
}

func (s *ScreeningService) Get(ctx context.Context, id uint64) (model.Screening, error) {
	sc, err := s.screenings.GetByID(ctx, id)
	return sc, translate(err, "screening")
}

// ListByMovie returns a movie's screenings, newest first. upcomingOnly keeps
// the ones dated from today through the next seven days.
func (s *ScreeningService) ListByMovie(ctx context.Context, movieID uint64, upcomingOnly bool, p model.PageRequest) (Page[model.Screening], error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return Page[model.Screening]{}, translate(err, "movie")
	}
	var f repository.ScreeningFilter
	if upcomingOnly {
		today := schedule.Today(s.now())
		f.From = today.Format(schedule.DateLayout)
		f.To = today.AddDate(0, 0, upcomingWindow).Format(schedule.DateLayout)
	}
	p = p.Normalize()
	items, total, err := s.screenings.ListByMovie(ctx, movieID, f, p)
	if err != nil {
		return Page[model.Screening]{}, translate(err, "screening")
	}
	return newPage(items, total, p), nil
}

func (s *ScreeningService) ListByHall(ctx context.Context, hallID uint64, p model.PageRequest) (Page[model.Screening], error) {
	if _, err := s.halls.GetByID(ctx, hallID); err != nil {
		return Page[model.Screening]{}, translate(err, "hall")
	}
	p = p.Normalize()
	items, total, err := s.screenings.ListByHall(ctx, hallID, p)
	if err != nil {
		return Page[model.Screening]{}, translate(err, "screening")
	}
	return newPage(items, total, p), nil
}

// Create schedules a screening. Date and operating hours are checked before
// the exchange rates are fetched; the full schedule check is repeated while
// the hall row is locked.
func (s *ScreeningService) Create(ctx context.Context, in ScreeningInput) (model.Screening, error) {
	movie, err := s.movies.GetByID(ctx, in.MovieID)
	if err != nil {
		return model.Screening{}, translate(err, "movie")
	}
	if _, err := s.halls.GetByID(ctx, in.HallID); err != nil {
		return model.Screening{}, translate(err, "hall")
	}
	p, err := schedule.NewProposal(in.Date, in.Time, movie.Duration)
	if err != nil {
		return model.Screening{}, err
	}
	now := s.now()
	if err := s.check(now, p, nil); err != nil {
		return model.Screening{}, err
	}

	prices, err := s.price(ctx, in.BasePriceEUR, 0)
	if err != nil {
		return model.Screening{}, err
	}

	sc := newScreening(in, p, prices)
	err = s.screenings.Create(ctx, &sc, func(st repository.ScheduleState) error {
		if err := s.check(now, p, st.SameDay); err != nil {
			return err
		}
		sc.NumberOfAvailableSeats = st.Hall.NumberOfSeats
		return nil
	})
	if err != nil {
		return model.Screening{}, translate(err, "screening")
	}
	logger.WithContext(ctx).Info("screening scheduled", "screening_id", sc.ID, "hall_id", sc.HallID,
		"date", sc.Date, "time", sc.Time)
	return sc, nil
}

// Update reschedules a screening without reservations. The stored discount
// is kept and applied to the new base price.
func (s *ScreeningService) Update(ctx context.Context, id uint64, in ScreeningInput) (model.Screening, error) {
	cur, err := s.screenings.GetByID(ctx, id)
	if err != nil {
		return model.Screening{}, translate(err, "screening")
	}
	reserved, err := s.reservations.CountByScreening(ctx, id)
	if err != nil {
		return model.Screening{}, translate(err, "reservation")
	}
	now := s.now()
	if err := checkUnreserved(reserved, "update"); err != nil {
		return model.Screening{}, err
	}
	if err := modifiable(now, cur.Date); err != nil {
		return model.Screening{}, err
	}

	movie, err := s.movies.GetByID(ctx, in.MovieID)
	if err != nil {
		return model.Screening{}, translate(err, "movie")
	}
	currentHall, err := s.halls.GetByID(ctx, cur.HallID)
	if err != nil {
		return model.Screening{}, translate(err, "hall")
	}
	nextHall, err := s.halls.GetByID(ctx, in.HallID)
	if err != nil {
		return model.Screening{}, translate(err, "hall")
	}
	if err := schedule.CheckCapacity(currentHall.NumberOfSeats, nextHall.NumberOfSeats); err != nil {
		return model.Screening{}, err
	}
	p, err := schedule.NewProposal(in.Date, in.Time, movie.Duration)
	if err != nil {
		return model.Screening{}, err
	}
	if err := s.check(now, p, nil); err != nil {
		return model.Screening{}, err
	}

	prices, err := s.price(ctx, in.BasePriceEUR, cur.Discount)
	if err != nil {
		return model.Screening{}, err
	}

	sc := newScreening(in, p, prices)
	sc.ID = id
	err = s.screenings.Update(ctx, &sc, func(st repository.ScheduleState) error {
		if err := checkUnreserved(st.Reservations, "update"); err != nil {
			return err
		}
		if err := modifiable(now, st.Current.Date); err != nil {
			return err
		}
		if err := s.check(now, p, st.SameDay); err != nil {
			return err
		}
		seats, err := schedule.Reseed(st.Hall.NumberOfSeats, st.Reservations)
		if err != nil {
			return err
		}
		sc.NumberOfAvailableSeats = seats
		return nil
	})
	if err != nil {
		return model.Screening{}, translate(err, "screening")
	}
	return sc, nil
}

// Delete removes a screening at least two days ahead that has no reservations.
func (s *ScreeningService) Delete(ctx context.Context, id uint64) error {
	now := s.now()
	err := s.screenings.Delete(ctx, id, func(cur model.Screening, reservations int) error {
		if err := modifiable(now, cur.Date); err != nil {
			return err
		}
		return checkUnreserved(reservations, "delete")
	})
	return translate(err, "screening")
}

// AddDiscount sets the discount percentage and recomputes the final prices
// from the stored base prices.
func (s *ScreeningService) AddDiscount(ctx context.Context, id uint64, percent float64) (model.Screening, error) {
	if err := pricing.ValidateDiscount(percent); err != nil {
		return model.Screening{}, err
	}
	sc, err := s.screenings.SetPrices(ctx, id, func(cur model.Screening, reservations int) (pricing.Prices, error) {
		if reservations > 0 {
			return pricing.Prices{}, apperr.Conflict(apperr.ReasonHasReservations,
				"you cannot add a discount for a screening that already has reservations")
		}
		return pricing.ApplyDiscount(cur.Prices, percent)
	})
	return sc, translate(err, "screening")
}

// RefreshPrices recomputes the USD and CHF prices of every future screening
// without reservations from one rate snapshot. A rate failure aborts the run
// before anything is written.
func (s *ScreeningService) RefreshPrices(ctx context.Context) (int, error) {
	rates, err := s.rates.Latest(ctx)
	if err != nil {
		return 0, err
	}
	today := schedule.Today(s.now()).Format(schedule.DateLayout)
	targets, err := s.screenings.ListRefreshable(ctx, today)
	if err != nil {
		return 0, translate(err, "screening")
	}

	updated := 0
	for _, sc := range targets {
		p, err := pricing.Compute(sc.BaseEUR, sc.Discount, rates)
		if err != nil {
			return updated, err
		}
		ok, err := s.screenings.RefreshPrices(ctx, sc.ID, pricing.Round(p))
		if err != nil {
			return updated, translate(err, "screening")
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}

func (s *ScreeningService) check(now time.Time, p schedule.Proposal, sameDay []model.Screening) error {
	err := schedule.Check(now, p, slots(sameDay))
	if err != nil {
		s.metrics.ScheduleRejected(string(apperr.ReasonOf(err)))
	}
	return err
}

func (s *ScreeningService) price(ctx context.Context, baseEUR, discount float64) (pricing.Prices, error) {
	if err := pricing.ValidateDiscount(discount); err != nil {
		return pricing.Prices{}, err
	}
	rates, err := s.rates.Latest(ctx)
	if err != nil {
		return pricing.Prices{}, err
	}
	return pricing.Compute(baseEUR, discount, rates)
}

func newScreening(in ScreeningInput, p schedule.Proposal, prices pricing.Prices) model.Screening {
	return model.Screening{
		MovieID:  in.MovieID,
		HallID:   in.HallID,
		Date:     p.Date.Format(schedule.DateLayout),
		Time:     p.Start.Format(schedule.TimeLayout),
		EndTime:  p.EndTime(),
		StartsAt: p.Start,
		EndsAt:   p.End(),
		Prices:   prices,
	}
}

func slots(sameDay []model.Screening) []schedule.Slot {
	out := make([]schedule.Slot, 0, len(sameDay))
	for _, sc := range sameDay {
		out = append(out, schedule.Slot{ID: sc.ID, Start: sc.StartsAt, End: sc.EndsAt})
	}
	return out
}

func checkUnreserved(n int, op string) error {
	if n > 0 {
		return apperr.Conflict(apperr.ReasonHasReservations,
			"you cannot "+op+" this screening because there are reservations associated with it")
	}
	return nil
}

func modifiable(now time.Time, date string) error {
	d, err := time.ParseInLocation(schedule.DateLayout, date, time.UTC)
	if err != nil {
		return apperr.Internal("stored screening date is malformed", err)
	}
	return schedule.CheckModifiable(now, d)
}
