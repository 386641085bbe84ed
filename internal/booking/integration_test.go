package booking

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"drivebook/internal/database"
	"drivebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngine(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "engine.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, nil, nil, nil, &logger), db
}

func seedTestVehicle(t *testing.T, db *database.DB) *models.Vehicle {
	t.Helper()
	v := &models.Vehicle{
		Brand: "Renault", Model: "Kangoo", Year: 2020, Type: "van",
		PricePerDay: 55, IsActive: true,
	}
	require.NoError(t, db.CreateVehicle(context.Background(), v))
	return v
}

func TestConcurrentCreateOneWinner(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	v := seedTestVehicle(t, db)

	start := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	const attempts = 8
	var wg sync.WaitGroup
	wg.Add(attempts)
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		go func(n int) {
			defer wg.Done()
			r := &models.Reservation{
				Code:       fmt.Sprintf("race-%d", n),
				VehicleID:  v.ID,
				OwnerID:    int64(n + 1),
				StartAt:    start,
				EndAt:      end,
				TotalPrice: 165,
				Status:     models.StatusConfirmed,
			}
			results <- svc.CreateReservation(ctx, r)
		}(i)
	}

	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case err == database.ErrConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)

	// The winner was confirmed, so the vehicle must read unavailable.
	vehicle, err := db.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, vehicle.IsAvailable)
}

func TestCancelRestoresAvailability(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	v := seedTestVehicle(t, db)

	r := &models.Reservation{
		VehicleID:  v.ID,
		OwnerID:    1,
		StartAt:    time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 12, 14, 0, 0, 0, 0, time.UTC),
		TotalPrice: 220,
	}
	require.NoError(t, svc.CreateReservation(ctx, r))

	// Pending does not consume availability.
	available, err := svc.VehicleAvailability(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, available)

	_, err = svc.UpdateReservationStatus(ctx, r.ID, models.StatusConfirmed)
	require.NoError(t, err)

	available, err = svc.VehicleAvailability(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, available)

	_, err = svc.UpdateReservationStatus(ctx, r.ID, models.StatusCancelled)
	require.NoError(t, err)

	available, err = svc.VehicleAvailability(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, available)

	// The slot is free again for someone else.
	next := &models.Reservation{
		VehicleID:  v.ID,
		OwnerID:    2,
		StartAt:    r.StartAt,
		EndAt:      r.EndAt,
		TotalPrice: 220,
		Status:     models.StatusConfirmed,
	}
	require.NoError(t, svc.CreateReservation(ctx, next))
}

func TestCompleteKeepsHistoryFreesVehicle(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	v := seedTestVehicle(t, db)

	r := &models.Reservation{
		VehicleID:  v.ID,
		OwnerID:    1,
		StartAt:    time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC),
		TotalPrice: 220,
		Status:     models.StatusConfirmed,
	}
	require.NoError(t, svc.CreateReservation(ctx, r))

	_, err := svc.UpdateReservationStatus(ctx, r.ID, models.StatusCompleted)
	require.NoError(t, err)

	// Completed frees the vehicle but still blocks its own interval.
	available, err := svc.VehicleAvailability(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, available)

	clash := &models.Reservation{
		VehicleID:  v.ID,
		OwnerID:    2,
		StartAt:    r.StartAt,
		EndAt:      r.EndAt,
		TotalPrice: 220,
	}
	err = svc.CreateReservation(ctx, clash)
	assert.ErrorIs(t, err, database.ErrConflict)

	got, err := svc.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}
