package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryAvailabilityRepository is the in-process fallback cache for the
// per-vehicle availability flag.
type MemoryAvailabilityRepository struct {
	entries sync.Map
	ttl     time.Duration
}

type availabilityEntry struct {
	available bool
	expiresAt time.Time
}

func NewMemoryAvailabilityRepository(ttl time.Duration) *MemoryAvailabilityRepository {
	return &MemoryAvailabilityRepository{ttl: ttl}
}

func (r *MemoryAvailabilityRepository) GetAvailability(ctx context.Context, vehicleID int64) (*bool, error) {
	val, ok := r.entries.Load(vehicleID)
	if !ok {
		return nil, nil
	}
	entry := val.(availabilityEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.entries.Delete(vehicleID)
		return nil, nil
	}
	available := entry.available
	return &available, nil
}

func (r *MemoryAvailabilityRepository) SetAvailability(ctx context.Context, vehicleID int64, available bool) error {
	r.entries.Store(vehicleID, availabilityEntry{
		available: available,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryAvailabilityRepository) Invalidate(ctx context.Context, vehicleID int64) error {
	r.entries.Delete(vehicleID)
	return nil
}
