package model

import "time"

// Movie is a film that can be screened. Duration is in minutes and
// drives the end time of every screening of the movie.
type Movie struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Genre       string    `json:"genre"`
	Director    string    `json:"director"`
	ReleaseDate string    `json:"releaseDate"`
	Duration    int       `json:"duration"`
	Rating      float64   `json:"rating"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
