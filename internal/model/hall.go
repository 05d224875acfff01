package model

import "time"

// Hall is a screening room inside a cinema. Its seat count seeds the
// seat inventory of every screening scheduled in it.
//
// Fields:
//  ID            – primary key identifier.
//  CinemaID      – containing cinema.
//  Name          – unique per cinema.
//  NumberOfSeats – capacity, between 10 and 50.
type Hall struct {
	ID            uint64    `json:"id"`            // halls.id
	CinemaID      uint64    `json:"cinemaId"`      // halls.cinema_id
	Name          string    `json:"name"`          // halls.name
	NumberOfSeats int       `json:"numberOfSeats"` // halls.number_of_seats
	CreatedAt     time.Time `json:"createdAt"`     // halls.created_at
	UpdatedAt     time.Time `json:"updatedAt"`     // halls.updated_at
}
