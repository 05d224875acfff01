package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migrate creates every table the service needs. Statements are idempotent
// so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	slog.Info("running database migrations")

	migrations := []string{
		createUsersTable,
		createCinemasTable,
		createHallsTable,
		createMoviesTable,
		createScreeningsTable,
		createReservationsTable,
	}

	for i, m := range migrations {
		slog.Debug("running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("database migrations completed", "count", len(migrations))
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    role ENUM('Customer','Sales','Admin') NOT NULL DEFAULT 'Customer',
    profile_image VARCHAR(255) NULL,
    refresh_token_hash CHAR(64) NULL,
    refresh_expires_at DATETIME NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_users_username (username),
    UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createCinemasTable = `
CREATE TABLE IF NOT EXISTS cinemas (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    address VARCHAR(255) NOT NULL,
    city VARCHAR(255) NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_cinemas_address_city (address, city)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createHallsTable = `
CREATE TABLE IF NOT EXISTS halls (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    cinema_id BIGINT UNSIGNED NOT NULL,
    name VARCHAR(255) NOT NULL,
    number_of_seats INT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_halls_name_cinema (name, cinema_id),
    CONSTRAINT fk_halls_cinema FOREIGN KEY (cinema_id) REFERENCES cinemas(id) ON DELETE RESTRICT,
    CHECK (number_of_seats BETWEEN 10 AND 50)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createMoviesTable = `
CREATE TABLE IF NOT EXISTS movies (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description VARCHAR(500) NOT NULL,
    genre VARCHAR(255) NOT NULL,
    director VARCHAR(255) NOT NULL,
    release_date CHAR(10) NOT NULL,
    duration INT NOT NULL,
    rating DECIMAL(4,2) NOT NULL,
    image VARCHAR(255) NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_movies_title (title)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createScreeningsTable = `
CREATE TABLE IF NOT EXISTS screenings (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    movie_id BIGINT UNSIGNED NOT NULL,
    hall_id BIGINT UNSIGNED NOT NULL,
    screening_date DATE NOT NULL,
    start_time CHAR(5) NOT NULL,
    end_time CHAR(5) NOT NULL,
    starts_at DATETIME NOT NULL,
    ends_at DATETIME NOT NULL,
    available_seats INT NOT NULL,
    base_price_eur DOUBLE NOT NULL,
    base_price_usd DOUBLE NOT NULL,
    base_price_chf DOUBLE NOT NULL,
    discount DOUBLE NOT NULL DEFAULT 0,
    price_eur DOUBLE NOT NULL,
    price_usd DOUBLE NOT NULL,
    price_chf DOUBLE NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_screenings_hall_date (hall_id, screening_date, start_time),
    KEY idx_screenings_movie_date (movie_id, screening_date, start_time),
    CONSTRAINT fk_screenings_movie FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE RESTRICT,
    CONSTRAINT fk_screenings_hall FOREIGN KEY (hall_id) REFERENCES halls(id) ON DELETE RESTRICT,
    CHECK (available_seats >= 0),
    CHECK (discount BETWEEN 0 AND 100)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT UNSIGNED NOT NULL,
    screening_id BIGINT UNSIGNED NOT NULL,
    order_id VARCHAR(64) NULL,
    payment_status VARCHAR(32) NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uq_reservations_user_screening (user_id, screening_id),
    UNIQUE KEY uq_reservations_order (order_id),
    CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT,
    CONSTRAINT fk_reservations_screening FOREIGN KEY (screening_id) REFERENCES screenings(id) ON DELETE RESTRICT
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
