package repository

import (
	"context"
	"sync/atomic"
	"time"

	"drivebook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityRepository prefers the primary cache and falls
// back to the in-memory one when the primary misbehaves, probing the
// primary again after a cooldown.
type FailoverAvailabilityRepository struct {
	primary  domain.AvailabilityCache
	fallback domain.AvailabilityCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// unix nanos of the last failed probe; read and written concurrently
	lastCheck atomic.Int64
}

func NewFailoverAvailabilityRepository(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityRepository {
	return &FailoverAvailabilityRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverAvailabilityRepository) GetAvailability(ctx context.Context, vehicleID int64) (*bool, error) {
	if !r.isDown.Load() {
		hit, err := r.primary.GetAvailability(ctx, vehicleID)
		if err == nil {
			return hit, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute {
		hit, err := r.primary.GetAvailability(ctx, vehicleID)
		if err == nil {
			r.isDown.Store(false)
			return hit, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetAvailability(ctx, vehicleID)
}

func (r *FailoverAvailabilityRepository) SetAvailability(ctx context.Context, vehicleID int64, available bool) error {
	if !r.isDown.Load() {
		if err := r.primary.SetAvailability(ctx, vehicleID, available); err != nil {
			r.markDown(err)
		}
	}
	return r.fallback.SetAvailability(ctx, vehicleID, available)
}

func (r *FailoverAvailabilityRepository) Invalidate(ctx context.Context, vehicleID int64) error {
	if !r.isDown.Load() {
		if err := r.primary.Invalidate(ctx, vehicleID); err != nil {
			r.markDown(err)
		}
	}
	return r.fallback.Invalidate(ctx, vehicleID)
}

func (r *FailoverAvailabilityRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}
