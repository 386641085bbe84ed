package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"drivebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReservationSingleWinner(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	v := &models.Vehicle{
		Brand: "Skoda", Model: "Kodiaq", Year: 2023, Type: "suv",
		PricePerDay: 70, IsAvailable: true, IsActive: true,
	}
	require.NoError(t, db.CreateVehicle(ctx, v))

	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			r := &models.Reservation{
				Code:       fmt.Sprintf("race-%d", id),
				VehicleID:  v.ID,
				OwnerID:    int64(id + 1),
				StartAt:    start,
				EndAt:      end,
				TotalPrice: 280,
				Status:     models.StatusConfirmed,
			}
			results <- db.CreateReservationWithLock(ctx, r)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	conflictCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case err == ErrConflict:
			conflictCount++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount, "exactly one racing reservation must win")
	assert.Equal(t, numGoroutines-1, conflictCount, "all other requests must see a conflict")

	reservations, err := db.ListReservations(ctx, models.ReservationFilter{VehicleID: v.ID})
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
}
