package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/model"
)

const movieColumns = `id, title, description, genre, director, release_date, duration, rating, image, created_at, updated_at`

// MovieRepo provides CRUD access to the movies table.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

func scanMovie(s rowScanner, m *model.Movie) error {
	var image sql.NullString
	if err := s.Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.Director,
		&m.ReleaseDate, &m.Duration, &m.Rating, &image, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	m.Image = image.String
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a movie. Titles are unique.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, description, genre, director, release_date, duration, rating, image)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.Description, m.Genre, m.Director, m.ReleaseDate, m.Duration, m.Rating, nullable(m.Image))
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
	*m = got
	return nil
}

// GetByID retrieves a movie by id.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

// List returns one page of movies ordered by title.
func (r *MovieRepo) List(ctx context.Context, p model.PageRequest) ([]model.Movie, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies ORDER BY title LIMIT ? OFFSET ?`, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0, p.Limit)
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Update overwrites every editable column of the movie.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title = ?, description = ?, genre = ?, director = ?, release_date = ?,
		 duration = ?, rating = ?, image = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		m.Title, m.Description, m.Genre, m.Director, m.ReleaseDate, m.Duration, m.Rating, nullable(m.Image), m.ID)
	if err != nil {
		return classify(err)
	}
	got, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = got
	return nil
}

// Delete removes a movie. Screenings referencing it yield ErrInUse.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
