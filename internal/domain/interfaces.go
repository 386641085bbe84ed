package domain

import (
	"context"
	"time"

	"drivebook/internal/models"
)

// Store is the persistence surface consumed by the booking service and
// the HTTP layer.
type Store interface {
	HasConflict(ctx context.Context, vehicleID int64, start, end time.Time, excludeID int64) (bool, error)
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
	ListVehicleReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
	UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	CountConfirmedReservations(ctx context.Context, vehicleID int64) (int, error)

	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, onlyAvailable bool) ([]*models.Vehicle, error)
	SetVehicleAvailability(ctx context.Context, id int64, available bool) error
}

// AvailabilityCache keeps the derived availability flag close to readers.
// A nil hit means the cache holds no answer and the store decides.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, vehicleID int64) (*bool, error)
	SetAvailability(ctx context.Context, vehicleID int64, available bool) error
	Invalidate(ctx context.Context, vehicleID int64) error
}

// EventPublisher fans lifecycle events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// NotifyWorker accepts fire-and-forget notification jobs; delivery
// failures never propagate to the reservation mutation.
type NotifyWorker interface {
	EnqueueTask(ctx context.Context, taskType string, r *models.Reservation) error
}

// NotificationSink materializes a notification for a recipient.
type NotificationSink interface {
	Emit(ctx context.Context, userID int64, eventType, message string) error
}

// BookingService is the engine surface exposed to the transport layer.
type BookingService interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
	UpdateReservationStatus(ctx context.Context, id int64, status string) (*models.Reservation, error)
	SyncAvailability(ctx context.Context, vehicleID int64) error
	VehicleAvailability(ctx context.Context, vehicleID int64) (bool, error)
}
