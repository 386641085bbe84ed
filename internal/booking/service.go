package booking

import (
	"context"
	"fmt"

	"drivebook/internal/database"
	"drivebook/internal/domain"
	"drivebook/internal/events"
	"drivebook/internal/metrics"
	"drivebook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service implements the reservation engine: overlap-guarded creation,
// the status lifecycle, and the availability synchronizer. All
// mutations for one vehicle run under that vehicle's lock, so the
// overlap check and the insert, or a status change and its resync,
// cannot interleave with a concurrent mutation of the same vehicle.
type Service struct {
	store    domain.Store
	cache    domain.AvailabilityCache
	eventBus domain.EventPublisher
	notifier domain.NotifyWorker
	locks    *vehicleLocks
	logger   *zerolog.Logger
}

func NewService(store domain.Store, cache domain.AvailabilityCache, eventBus domain.EventPublisher, notifier domain.NotifyWorker, logger *zerolog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		eventBus: eventBus,
		notifier: notifier,
		locks:    newVehicleLocks(),
		logger:   logger,
	}
}

// CreateReservation validates the request, rejects overlapping intervals
// and stores the reservation. The vehicle lock covers the availability
// resync as well, so a concurrent create for the same vehicle observes
// the committed state.
func (s *Service) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if err := validateReservation(r); err != nil {
		metrics.IncReservationOp("create", "validation_error")
		return err
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.Code == "" {
		r.Code = uuid.NewString()
	}

	unlock := s.locks.Lock(r.VehicleID)
	defer unlock()

	if _, err := s.store.GetVehicle(ctx, r.VehicleID); err != nil {
		metrics.IncReservationOp("create", "error")
		return err
	}

	// The store re-checks conflicts inside the insert transaction; this
	// read keeps the rejection cheap and mutation-free.
	conflict, err := s.store.HasConflict(ctx, r.VehicleID, r.StartAt, r.EndAt, 0)
	if err != nil {
		metrics.IncReservationOp("create", "error")
		return err
	}
	if conflict {
		metrics.IncReservationOp("create", "conflict")
		return database.ErrConflict
	}

	if err := s.store.CreateReservationWithLock(ctx, r); err != nil {
		metrics.IncReservationOp("create", "error")
		return err
	}
	metrics.IncReservationOp("create", "ok")

	s.resync(ctx, r.VehicleID)

	s.publishEvent(events.EventReservationCreated, r)
	s.enqueueNotify(ctx, events.EventReservationCreated, r)
	return nil
}

func (s *Service) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

func (s *Service) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	return s.store.ListReservations(ctx, filter)
}

// UpdateReservationStatus applies one of the four recognized statuses.
// The design accepts any recognized target from any current status; the
// resync after the update keeps the vehicle flag consistent either way.
func (s *Service) UpdateReservationStatus(ctx context.Context, id int64, status string) (*models.Reservation, error) {
	if !models.ValidStatus(status) {
		metrics.IncReservationOp("update_status", "invalid_status")
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status)
	}

	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		metrics.IncReservationOp("update_status", "error")
		return nil, err
	}

	unlock := s.locks.Lock(r.VehicleID)
	defer unlock()

	if err := s.store.UpdateReservationStatusWithVersion(ctx, id, r.Version, status); err != nil {
		metrics.IncReservationOp("update_status", "error")
		return nil, err
	}
	metrics.IncReservationOp("update_status", "ok")

	s.resync(ctx, r.VehicleID)

	updated, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	eventType := statusEvent(status)
	s.publishEvent(eventType, updated)
	s.enqueueNotify(ctx, eventType, updated)
	return updated, nil
}

// DeleteReservation removes the reservation entirely and resyncs the
// vehicle, potentially restoring its availability.
func (s *Service) DeleteReservation(ctx context.Context, id int64) error {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		metrics.IncReservationOp("delete", "error")
		return err
	}

	unlock := s.locks.Lock(r.VehicleID)
	defer unlock()

	if err := s.store.DeleteReservation(ctx, id); err != nil {
		metrics.IncReservationOp("delete", "error")
		return err
	}
	metrics.IncReservationOp("delete", "ok")

	s.resync(ctx, r.VehicleID)

	s.publishEvent(events.EventReservationDeleted, r)
	s.enqueueNotify(ctx, events.EventReservationDeleted, r)
	return nil
}

// SyncAvailability recomputes the derived availability flag: true iff
// no confirmed reservation exists for the vehicle. Idempotent; safe to
// call any number of times.
func (s *Service) SyncAvailability(ctx context.Context, vehicleID int64) error {
	count, err := s.store.CountConfirmedReservations(ctx, vehicleID)
	if err != nil {
		return err
	}
	available := count == 0

	if err := s.store.SetVehicleAvailability(ctx, vehicleID, available); err != nil {
		return err
	}
	metrics.IncAvailabilitySync()

	if s.cache != nil {
		if err := s.cache.SetAvailability(ctx, vehicleID, available); err != nil {
			s.logger.Warn().Err(err).Int64("vehicle_id", vehicleID).Msg("availability cache write failed")
		}
	}
	return nil
}

// VehicleAvailability reads the availability flag, preferring the cache.
func (s *Service) VehicleAvailability(ctx context.Context, vehicleID int64) (bool, error) {
	if s.cache != nil {
		if hit, err := s.cache.GetAvailability(ctx, vehicleID); err == nil && hit != nil {
			return *hit, nil
		}
	}

	v, err := s.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return false, err
	}

	if s.cache != nil {
		if err := s.cache.SetAvailability(ctx, vehicleID, v.IsAvailable); err != nil {
			s.logger.Warn().Err(err).Int64("vehicle_id", vehicleID).Msg("availability cache write failed")
		}
	}
	return v.IsAvailable, nil
}

// resync runs the synchronizer after a committed mutation. A failure
// here is reported but never rolls the mutation back; availability
// stays stale until a later sync succeeds.
func (s *Service) resync(ctx context.Context, vehicleID int64) {
	if err := s.SyncAvailability(ctx, vehicleID); err != nil {
		s.logger.Error().Err(err).Int64("vehicle_id", vehicleID).Msg("availability resync failed")
	}
}

func statusEvent(status string) string {
	switch status {
	case models.StatusConfirmed:
		return events.EventReservationConfirmed
	case models.StatusCancelled:
		return events.EventReservationCancelled
	case models.StatusCompleted:
		return events.EventReservationCompleted
	default:
		return events.EventReservationReopened
	}
}

func (s *Service) publishEvent(eventType string, r *models.Reservation) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		Code:          r.Code,
		VehicleID:     r.VehicleID,
		OwnerID:       r.OwnerID,
		GuestName:     r.GuestName,
		GuestEmail:    r.GuestEmail,
		Status:        r.Status,
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

func (s *Service) enqueueNotify(ctx context.Context, eventType string, r *models.Reservation) {
	if s.notifier == nil {
		return
	}

	if err := s.notifier.EnqueueTask(ctx, eventType, r); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", r.ID).Str("task", eventType).Msg("notify enqueue error")
	}
}
