package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
)

const screeningColumns = `s.id, s.movie_id, s.hall_id, s.screening_date, s.start_time, s.end_time,
	s.starts_at, s.ends_at, s.available_seats,
	s.base_price_eur, s.base_price_usd, s.base_price_chf, s.discount,
	s.price_eur, s.price_usd, s.price_chf, s.created_at, s.updated_at`

// ScheduleState is what a scheduling guard observes inside the write
// transaction. Hall is row-locked, so no other screening can be scheduled
// into it until the transaction ends.
type ScheduleState struct {
	Current      *model.Screening  // nil when creating
	Reservations int               // active reservations of Current
	Hall         model.Hall        // hall the screening will occupy
	SameDay      []model.Screening // other screenings in Hall on the same date
}

// ScheduleGuard validates a pending write. Returning an error aborts it.
// The guard may adjust the screening being written (seat count, prices).
type ScheduleGuard func(st ScheduleState) error

// LockedGuard validates a mutation of a row-locked screening.
type LockedGuard func(cur model.Screening, reservations int) error

// ScreeningRepo persists screenings and serialises scheduling writes per hall.
type ScreeningRepo struct {
	db *sql.DB
}

func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

func scanScreening(s rowScanner, m *model.Screening) error {
	var date time.Time
	if err := s.Scan(&m.ID, &m.MovieID, &m.HallID, &date, &m.Time, &m.EndTime,
		&m.StartsAt, &m.EndsAt, &m.NumberOfAvailableSeats,
		&m.BaseEUR, &m.BaseUSD, &m.BaseCHF, &m.Discount,
		&m.EUR, &m.USD, &m.CHF, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	m.Date = date.Format("2006-01-02")
	return nil
}

func collectScreenings(rows *sql.Rows) ([]model.Screening, error) {
	defer rows.Close()
	out := []model.Screening{}
	for rows.Next() {
		var s model.Screening
		if err := scanScreening(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID retrieves a screening by id.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (model.Screening, error) {
	var s model.Screening
	err := scanScreening(r.db.QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings s WHERE s.id = ?`, id), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// ScreeningFilter narrows movie listings to an inclusive date range.
// Empty bounds are open.
type ScreeningFilter struct {
	From string
	To   string
}

// ListByMovie returns screenings of a movie, newest date and time first.
func (r *ScreeningRepo) ListByMovie(ctx context.Context, movieID uint64, f ScreeningFilter, p model.PageRequest) ([]model.Screening, int, error) {
	where := `s.movie_id = ?`
	args := []any{movieID}
	if f.From != "" {
		where += ` AND s.screening_date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		where += ` AND s.screening_date <= ?`
		args = append(args, f.To)
	}
	return r.page(ctx, where, args, p)
}

// ListByHall returns screenings in a hall, newest date and time first.
func (r *ScreeningRepo) ListByHall(ctx context.Context, hallID uint64, p model.PageRequest) ([]model.Screening, int, error) {
	return r.page(ctx, `s.hall_id = ?`, []any{hallID}, p)
}

func (r *ScreeningRepo) page(ctx context.Context, where string, args []any, p model.PageRequest) ([]model.Screening, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM screenings s WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings s WHERE `+where+
			` ORDER BY s.screening_date DESC, s.start_time DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectScreenings(rows)
	return out, total, err
}

func lockHall(ctx context.Context, tx *sql.Tx, id uint64) (model.Hall, error) {
	var h model.Hall
	err := scanHall(tx.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ? FOR UPDATE`, id), &h)
	if errors.Is(err, sql.ErrNoRows) {
		return h, ErrNotFound
	}
	return h, err
}

func lockScreening(ctx context.Context, tx *sql.Tx, id uint64) (model.Screening, int, error) {
	var s model.Screening
	err := scanScreening(tx.QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings s WHERE s.id = ? FOR UPDATE`, id), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return s, 0, ErrNotFound
	}
	if err != nil {
		return s, 0, err
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE screening_id = ?`, id).Scan(&n); err != nil {
		return s, 0, err
	}
	return s, n, nil
}

func sameDay(ctx context.Context, tx *sql.Tx, hallID uint64, date string, exclude uint64) ([]model.Screening, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings s
		 WHERE s.hall_id = ? AND s.screening_date = ? AND s.id <> ?
		 ORDER BY s.start_time`, hallID, date, exclude)
	if err != nil {
		return nil, err
	}
	return collectScreenings(rows)
}

// Create schedules a new screening. The hall row is locked while guard
// inspects the hall's other screenings on that date, so two concurrent
// creates cannot both pass the conflict check.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening, guard ScheduleGuard) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		hall, err := lockHall(ctx, tx, s.HallID)
		if err != nil {
			return err
		}
		others, err := sameDay(ctx, tx, s.HallID, s.Date, 0)
		if err != nil {
			return err
		}
		if err := guard(ScheduleState{Hall: hall, SameDay: others}); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO screenings (movie_id, hall_id, screening_date, start_time, end_time, starts_at, ends_at,
			 available_seats, base_price_eur, base_price_usd, base_price_chf, discount, price_eur, price_usd, price_chf)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.MovieID, s.HallID, s.Date, s.Time, s.EndTime, s.StartsAt, s.EndsAt,
			s.NumberOfAvailableSeats, s.BaseEUR, s.BaseUSD, s.BaseCHF, s.Discount, s.EUR, s.USD, s.CHF)
		if err != nil {
			return classify(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		s.ID = uint64(id)
		return nil
	})
	if err != nil {
		return err
	}
	return r.reload(ctx, s)
}

// Update reschedules an existing screening. The screening row and the
// target hall row are locked for the duration of guard and the write.
func (r *ScreeningRepo) Update(ctx context.Context, s *model.Screening, guard ScheduleGuard) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, reserved, err := lockScreening(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		hall, err := lockHall(ctx, tx, s.HallID)
		if err != nil {
			return err
		}
		others, err := sameDay(ctx, tx, s.HallID, s.Date, s.ID)
		if err != nil {
			return err
		}
		if err := guard(ScheduleState{Current: &cur, Reservations: reserved, Hall: hall, SameDay: others}); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE screenings SET movie_id = ?, hall_id = ?, screening_date = ?, start_time = ?, end_time = ?,
			 starts_at = ?, ends_at = ?, available_seats = ?, base_price_eur = ?, base_price_usd = ?,
			 base_price_chf = ?, discount = ?, price_eur = ?, price_usd = ?, price_chf = ?,
			 updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			s.MovieID, s.HallID, s.Date, s.Time, s.EndTime, s.StartsAt, s.EndsAt,
			s.NumberOfAvailableSeats, s.BaseEUR, s.BaseUSD, s.BaseCHF, s.Discount, s.EUR, s.USD, s.CHF, s.ID)
		return classify(err)
	})
	if err != nil {
		return err
	}
	return r.reload(ctx, s)
}

// SetPrices replaces a locked screening's prices with the result of fn.
func (r *ScreeningRepo) SetPrices(ctx context.Context, id uint64, fn func(cur model.Screening, reservations int) (pricing.Prices, error)) (model.Screening, error) {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, reserved, err := lockScreening(ctx, tx, id)
		if err != nil {
			return err
		}
		p, err := fn(cur, reserved)
		if err != nil {
			return err
		}
		return writePrices(ctx, tx, id, p)
	})
	if err != nil {
		return model.Screening{}, err
	}
	return r.GetByID(ctx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writePrices(ctx context.Context, db execer, id uint64, p pricing.Prices) error {
	_, err := db.ExecContext(ctx,
		`UPDATE screenings SET base_price_eur = ?, base_price_usd = ?, base_price_chf = ?, discount = ?,
		 price_eur = ?, price_usd = ?, price_chf = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.BaseEUR, p.BaseUSD, p.BaseCHF, p.Discount, p.EUR, p.USD, p.CHF, id)
	return err
}

// Delete removes a locked screening once guard accepts it.
func (r *ScreeningRepo) Delete(ctx context.Context, id uint64, guard LockedGuard) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, reserved, err := lockScreening(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := guard(cur, reserved); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM screenings WHERE id = ?`, id)
		return classify(err)
	})
}

// ListRefreshable returns screenings dated after the given day that have no
// reservations. Their prices may still follow exchange rates.
func (r *ScreeningRepo) ListRefreshable(ctx context.Context, after string) ([]model.Screening, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings s
		 WHERE s.screening_date > ?
		   AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.screening_id = s.id)
		 ORDER BY s.id`, after)
	if err != nil {
		return nil, err
	}
	return collectScreenings(rows)
}

// RefreshPrices writes p unless a reservation appeared meanwhile. It reports
// whether the row was updated.
func (r *ScreeningRepo) RefreshPrices(ctx context.Context, id uint64, p pricing.Prices) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE screenings s SET s.base_price_usd = ?, s.base_price_chf = ?,
		 s.price_eur = ?, s.price_usd = ?, s.price_chf = ?, s.updated_at = CURRENT_TIMESTAMP
		 WHERE s.id = ? AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.screening_id = s.id)`,
		p.BaseUSD, p.BaseCHF, p.EUR, p.USD, p.CHF, id)
	if err != nil {
		return false, fmt.Errorf("refresh prices of screening %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ScreeningRepo) reload(ctx context.Context, s *model.Screening) error {
	got, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = got
	return nil
}
