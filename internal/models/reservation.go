package models

import (
	"strings"
	"time"
)

type Reservation struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	VehicleID  int64     `json:"vehicle_id"`
	OwnerID    int64     `json:"owner_id,omitempty"`
	GuestName  string    `json:"guest_name,omitempty"`
	GuestEmail string    `json:"guest_email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"` // pending, confirmed, completed, cancelled
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// HasOwner reports whether the reservation belongs to a registered user.
func (r *Reservation) HasOwner() bool {
	return r.OwnerID != 0
}

// HasGuestIdentity reports whether both guest fields carry non-blank values.
func (r *Reservation) HasGuestIdentity() bool {
	return strings.TrimSpace(r.GuestName) != "" && strings.TrimSpace(r.GuestEmail) != ""
}

// Overlaps reports whether [r.StartAt, r.EndAt) intersects [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}

// ReservationFilter constrains ListReservations. Zero values mean "no constraint".
type ReservationFilter struct {
	VehicleID  int64
	OwnerID    int64
	GuestEmail string
}
