package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/model"
)

const cinemaColumns = `id, name, address, city, created_at, updated_at`

// CinemaRepo provides CRUD access to the cinemas table.
type CinemaRepo struct {
	db *sql.DB
}

// NewCinemaRepo constructs a CinemaRepo with the given DB handle.
func NewCinemaRepo(db *sql.DB) *CinemaRepo {
	return &CinemaRepo{db: db}
}

func scanCinema(s rowScanner, c *model.Cinema) error {
	return s.Scan(&c.ID, &c.Name, &c.Address, &c.City, &c.CreatedAt, &c.UpdatedAt)
}

// Create inserts a cinema and reloads it so timestamps are populated.
// A second cinema at the same address and city yields ErrDuplicate.
func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cinemas (name, address, city) VALUES (?, ?, ?)`,
		c.Name, c.Address, c.City)
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
	*c = got
	return nil
}

// GetByID retrieves a cinema by its ID.
func (r *CinemaRepo) GetByID(ctx context.Context, id uint64) (model.Cinema, error) {
	var c model.Cinema
	err := scanCinema(r.db.QueryRowContext(ctx, `SELECT `+cinemaColumns+` FROM cinemas WHERE id = ?`, id), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// List returns one page of cinemas ordered by id together with the total count.
func (r *CinemaRepo) List(ctx context.Context, p model.PageRequest) ([]model.Cinema, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cinemas`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cinemaColumns+` FROM cinemas ORDER BY id LIMIT ? OFFSET ?`, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Cinema, 0, p.Limit)
	for rows.Next() {
		var c model.Cinema
		if err := scanCinema(rows, &c); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update overwrites name, address and city.
func (r *CinemaRepo) Update(ctx context.Context, c *model.Cinema) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cinemas SET name = ?, address = ?, city = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		c.Name, c.Address, c.City, c.ID)
	if err != nil {
		return classify(err)
	}
	// MySQL reports 0 affected rows when values are unchanged, so existence
	// is decided by the reload.
	got, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// Delete removes a cinema. Halls still referencing it yield ErrInUse.
func (r *CinemaRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cinemas WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
