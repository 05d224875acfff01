package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Unique keys on the users table.
const (
	KeyUsername = "uq_users_username"
	KeyEmail    = "uq_users_email"
)

const userColumns = `id, username, email, password_hash, role, profile_image,
	refresh_token_hash, refresh_expires_at, created_at, updated_at`

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func scanUser(s rowScanner, u *model.User) error {
	var image, refresh sql.NullString
	var exp sql.NullTime
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &image,
		&refresh, &exp, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	u.ProfileImage, u.RefreshTokenHash = image.String, refresh.String
	u.RefreshExpiresAt = nil
	if exp.Valid {
		t := exp.Time
		u.RefreshExpiresAt = &t
	}
	return nil
}

// Create inserts a user whose password is already hashed. Duplicate
// usernames or emails yield ErrDuplicate naming KeyUsername or KeyEmail.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, profile_image) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.Role, nullable(u.ProfileImage))
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
	*u = got
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, arg), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, `id = ?`, id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// List returns one page of users ordered by id.
func (r *UserRepo) List(ctx context.Context, p model.PageRequest) ([]model.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, p.Limit)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// UpdateProfile overwrites username, email, password hash and image.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?, profile_image = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		u.Username, u.Email, u.PasswordHash, nullable(u.ProfileImage), u.ID)
	if err != nil {
		return classify(err)
	}
	got, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = got
	return nil
}

// UpdateRole changes a user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) (model.User, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, role, id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user together with their reservations. Each deleted
// reservation gives its seat back in the same transaction. It returns the
// screenings whose reservations were cancelled.
func (r *UserRepo) Delete(ctx context.Context, id uint64) ([]uint64, error) {
	var released []uint64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT screening_id FROM reservations WHERE user_id = ? ORDER BY id FOR UPDATE`, id)
		if err != nil {
			return err
		}
		var screenings []uint64
		for rows.Next() {
			var sid uint64
			if err := rows.Scan(&sid); err != nil {
				rows.Close()
				return err
			}
			screenings = append(screenings, sid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE user_id = ?`, id); err != nil {
			return err
		}
		for _, sid := range screenings {
			if _, err := releaseSeat(ctx, tx, sid); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return err
		}
		released = screenings
		return nil
	})
	return released, err
}
