package model

import "time"

// Cinema represents a movie theatre venue. A cinema contains halls and
// is unique on its (address, city) pair. This struct corresponds to a
// row in the `cinemas` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the cinema.
//  Address   – street address.
//  City      – city the cinema is located in.
//  CreatedAt – timestamp when the cinema was created.
//  UpdatedAt – timestamp of last update.
type Cinema struct {
	ID        uint64    `json:"id"`        // cinemas.id
	Name      string    `json:"name"`      // cinemas.name
	Address   string    `json:"address"`   // cinemas.address
	City      string    `json:"city"`      // cinemas.city
	CreatedAt time.Time `json:"createdAt"` // cinemas.created_at
	UpdatedAt time.Time `json:"updatedAt"` // cinemas.updated_at
}
