package model

import "time"

// Payment statuses recorded on reservations created through checkout.
const (
	PaymentStatusNone      = ""
	PaymentStatusCompleted = "COMPLETED"
)

// Reservation is a user's claim on one seat of a screening. A user holds
// at most one reservation per screening.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user who made the reservation.
//  ScreeningID   – screening being reserved.
//  OrderID       – payment provider order, empty for direct reservations.
//  PaymentStatus – capture status reported by the provider.
//  CreatedAt     – creation timestamp.
type Reservation struct {
	ID            uint64    `json:"id"`                      // reservations.id
	UserID        uint64    `json:"userId"`                  // reservations.user_id
	ScreeningID   uint64    `json:"screeningId"`             // reservations.screening_id
	OrderID       string    `json:"orderId,omitempty"`       // reservations.order_id (nullable)
	PaymentStatus string    `json:"paymentStatus,omitempty"` // reservations.payment_status (nullable)
	CreatedAt     time.Time `json:"createdAt"`               // reservations.created_at
}

// ReservationView joins a reservation with what the user needs to see
// about the screening it belongs to.
type ReservationView struct {
	Reservation
	Date       string `json:"date"`
	Time       string `json:"time"`
	HallID     uint64 `json:"hallId"`
	MovieID    uint64 `json:"movieId"`
	MovieTitle string `json:"movieTitle"`
}

// Checkout is returned when a reservation awaits payment approval.
type Checkout struct {
	OrderID     string  `json:"orderId"`
	ApproveURL  string  `json:"approveUrl"`
	ScreeningID uint64  `json:"screeningId"`
	Currency    string  `json:"currency"`
	Amount      float64 `json:"amount"`
}
