package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// The seat ledger is the only writer of screenings.available_seats after a
// screening is created. Both operations are single guarded UPDATE statements
// and must run inside the transaction that writes the reservation row.

// SeatCount is the counter a ledger operation left behind, read inside the
// same transaction. Clamped is set when a release hit hall capacity.
type SeatCount struct {
	Left    int
	Clamped bool
}

// reserveSeat takes one seat from a screening and returns the seats left.
// It fails with ErrNoSeats when the counter is already zero; the decrement
// never happens as a read-modify-write in Go.
func reserveSeat(ctx context.Context, tx *sql.Tx, screeningID uint64) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE screenings SET available_seats = available_seats - 1
		 WHERE id = ? AND available_seats > 0`, screeningID)
	if err != nil {
		return 0, fmt.Errorf("reserve seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNoSeats
	}
	return seatsLeft(ctx, tx, screeningID)
}

// releaseSeat gives one seat back. The increment is capped at the hall's
// capacity; when the cap applies it reports Clamped so the caller can log
// the inconsistency.
func releaseSeat(ctx context.Context, tx *sql.Tx, screeningID uint64) (SeatCount, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE screenings s JOIN halls h ON h.id = s.hall_id
		 SET s.available_seats = s.available_seats + 1
		 WHERE s.id = ? AND s.available_seats < h.number_of_seats`, screeningID)
	if err != nil {
		return SeatCount{}, fmt.Errorf("release seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return SeatCount{}, err
	}
	left, err := seatsLeft(ctx, tx, screeningID)
	return SeatCount{Left: left, Clamped: n == 0}, err
}

// seatsLeft reads the counter. The preceding UPDATE holds the row lock, so
// the value is the one this transaction commits.
func seatsLeft(ctx context.Context, tx *sql.Tx, screeningID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT available_seats FROM screenings WHERE id = ?`, screeningID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("read seats left: %w", err)
	}
	return n, nil
}
