package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Unique key guarding one reservation per user and screening.
const KeyUserScreening = "uq_reservations_user_screening"

// ReservationRepo pairs every reservation row mutation with the matching
// seat ledger operation inside one transaction.
type ReservationRepo struct {
	db *sql.DB
}

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

func scanReservation(s rowScanner, r *model.Reservation) error {
	var order, status sql.NullString
	if err := s.Scan(&r.ID, &r.UserID, &r.ScreeningID, &order, &status, &r.CreatedAt); err != nil {
		return err
	}
	r.OrderID, r.PaymentStatus = order.String, status.String
	return nil
}

// Create inserts the reservation, takes one seat and returns the seats left.
// A second reservation for the same user and screening fails with
// ErrDuplicate before any seat is taken; an exhausted screening fails with
// ErrNoSeats and the insert is rolled back.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) (int, error) {
	var left int
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		out, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (user_id, screening_id, order_id, payment_status) VALUES (?, ?, ?, ?)`,
			res.UserID, res.ScreeningID, nullable(res.OrderID), nullable(res.PaymentStatus))
		if err != nil {
			return classify(err)
		}
		if left, err = reserveSeat(ctx, tx, res.ScreeningID); err != nil {
			return err
		}
		id, err := out.LastInsertId()
		if err != nil {
			return err
		}
		res.ID = uint64(id)
		res.CreatedAt = time.Now().UTC()
		return nil
	})
	return left, err
}

// CancelGuard decides whether a locked reservation may be deleted.
type CancelGuard func(res model.Reservation, screening model.Screening) error

// Delete removes a reservation and releases its seat. The reservation row is
// locked first, so two concurrent cancels release at most one seat; the
// loser sees ErrNotFound.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64, guard CancelGuard) (model.Reservation, SeatCount, error) {
	var (
		res   model.Reservation
		seats SeatCount
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := scanReservation(tx.QueryRowContext(ctx,
			`SELECT id, user_id, screening_id, order_id, payment_status, created_at
			 FROM reservations WHERE id = ? FOR UPDATE`, id), &res)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var s model.Screening
		err = scanScreening(tx.QueryRowContext(ctx,
			`SELECT `+screeningColumns+` FROM screenings s WHERE s.id = ?`, res.ScreeningID), &s)
		if err != nil {
			return err
		}
		if err := guard(res, s); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
			return err
		}
		seats, err = releaseSeat(ctx, tx, res.ScreeningID)
		return err
	})
	return res, seats, err
}

// GetByID retrieves a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, screening_id, order_id, payment_status, created_at FROM reservations WHERE id = ?`, id), &res)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	return res, err
}

// Exists reports whether the user already holds a reservation for the screening.
func (r *ReservationRepo) Exists(ctx context.Context, userID, screeningID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM reservations WHERE user_id = ? AND screening_id = ? LIMIT 1`,
		userID, screeningID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CountByScreening reports how many reservations a screening has.
func (r *ReservationRepo) CountByScreening(ctx context.Context, screeningID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE screening_id = ?`, screeningID).Scan(&n)
	return n, err
}

// ListByUser returns one page of a user's reservations joined with their
// screening and movie, soonest screening first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, p model.PageRequest) ([]model.ReservationView, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.screening_id, r.order_id, r.payment_status, r.created_at,
		        s.screening_date, s.start_time, s.hall_id, s.movie_id, m.title
		 FROM reservations r
		 JOIN screenings s ON s.id = r.screening_id
		 JOIN movies m ON m.id = s.movie_id
		 WHERE r.user_id = ?
		 ORDER BY s.screening_date, s.start_time, r.id
		 LIMIT ? OFFSET ?`, userID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ReservationView, 0, p.Limit)
	for rows.Next() {
		var (
			v             model.ReservationView
			order, status sql.NullString
			date          time.Time
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.ScreeningID, &order, &status, &v.CreatedAt,
			&date, &v.Time, &v.HallID, &v.MovieID, &v.MovieTitle); err != nil {
			return nil, 0, err
		}
		v.OrderID, v.PaymentStatus = order.String, status.String
		v.Date = date.Format("2006-01-02")
		out = append(out, v)
	}
	return out, total, rows.Err()
}
