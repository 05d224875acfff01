package model

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/pricing"
)

// Screening is a scheduled showing of a movie in a hall. Date, Time and
// EndTime are the display values; StartsAt and EndsAt hold the same
// interval as absolute instants so that comparisons survive midnight.
//
// Fields:
//  ID                     – primary key identifier.
//  MovieID                – movie being shown.
//  HallID                 – hall hosting the screening.
//  Date                   – YYYY-MM-DD.
//  Time                   – HH:MM start.
//  EndTime                – HH:MM of start + duration + 120 minutes.
//  NumberOfAvailableSeats – seats not yet reserved.
//  Prices                 – base and discounted prices per currency.
type Screening struct {
	ID                     uint64    `json:"id"`                     // screenings.id
	MovieID                uint64    `json:"movieId"`                // screenings.movie_id
	HallID                 uint64    `json:"hallId"`                 // screenings.hall_id
	Date                   string    `json:"date"`                   // screenings.screening_date
	Time                   string    `json:"time"`                   // screenings.start_time
	EndTime                string    `json:"endTime"`                // screenings.end_time
	StartsAt               time.Time `json:"-"`                      // screenings.starts_at
	EndsAt                 time.Time `json:"-"`                      // screenings.ends_at
	NumberOfAvailableSeats int       `json:"numberOfAvailableSeats"` // screenings.available_seats
	pricing.Prices
	CreatedAt time.Time `json:"createdAt"` // screenings.created_at
	UpdatedAt time.Time `json:"updatedAt"` // screenings.updated_at
}
