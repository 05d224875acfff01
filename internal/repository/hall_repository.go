package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
)

const hallColumns = `id, cinema_id, name, number_of_seats, created_at, updated_at`

// HallRepo provides methods to create and retrieve halls.  It embeds a
// database handle to perform queries and commands.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

func scanHall(s rowScanner, h *model.Hall) error {
	return s.Scan(&h.ID, &h.CinemaID, &h.Name, &h.NumberOfSeats, &h.CreatedAt, &h.UpdatedAt)
}

// Create inserts a new hall.  A missing cinema yields ErrNotFound and a
// hall name already used in the same cinema yields ErrDuplicate.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO halls (cinema_id, name, number_of_seats) VALUES (?, ?, ?)`,
		h.CinemaID, h.Name, h.NumberOfSeats)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*h = got
	return nil
}

// GetByID retrieves a hall by its ID.  It returns ErrNotFound when no row
// is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (model.Hall, error) {
	var h model.Hall
	err := scanHall(r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ?`, id), &h)
	if errors.Is(err, sql.ErrNoRows) {
		return h, ErrNotFound
	}
	return h, err
}

// ListByCinema returns one page of the halls inside a cinema.
func (r *HallRepo) ListByCinema(ctx context.Context, cinemaID uint64, p model.PageRequest) ([]model.Hall, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM halls WHERE cinema_id = ?`, cinemaID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+hallColumns+` FROM halls WHERE cinema_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		cinemaID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Hall, 0, p.Limit)
	for rows.Next() {
		var h model.Hall
		if err := scanHall(rows, &h); err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}

// Update changes a hall's name, cinema and capacity.  The hall row is
// locked and the update is refused with ErrInUse while any screening is
// scheduled in it, so capacity can never shrink under live inventory.
func (r *HallRepo) Update(ctx context.Context, h *model.Hall) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM halls WHERE id = ? FOR UPDATE`, h.ID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var screenings int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM screenings WHERE hall_id = ?`, h.ID).Scan(&screenings); err != nil {
			return err
		}
		if screenings > 0 {
			return ErrInUse
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE halls SET cinema_id = ?, name = ?, number_of_seats = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			h.CinemaID, h.Name, h.NumberOfSeats, h.ID)
		return classify(err)
	})
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	*h = got
	return nil
}

// Delete removes a hall.  Screenings referencing it yield ErrInUse.
func (r *HallRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM halls WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
