package booking

import (
	"context"
	"testing"
	"time"

	"drivebook/internal/database"
	"drivebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) HasConflict(ctx context.Context, vehicleID int64, start, end time.Time, excludeID int64) (bool, error) {
	args := m.Called(ctx, vehicleID, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockStore) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockStore) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockStore) ListVehicleReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockStore) DeleteReservation(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	return m.Called(ctx, id, fromVersion, status).Error(0)
}
func (m *mockStore) CountConfirmedReservations(ctx context.Context, vehicleID int64) (int, error) {
	args := m.Called(ctx, vehicleID)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}
func (m *mockStore) ListVehicles(ctx context.Context, onlyAvailable bool) ([]*models.Vehicle, error) {
	args := m.Called(ctx, onlyAvailable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vehicle), args.Error(1)
}
func (m *mockStore) SetVehicleAvailability(ctx context.Context, id int64, available bool) error {
	return m.Called(ctx, id, available).Error(0)
}

func newTestService(store *mockStore) *Service {
	logger := zerolog.Nop()
	return NewService(store, nil, nil, nil, &logger)
}

func baseReservation() *models.Reservation {
	return &models.Reservation{
		VehicleID:  1,
		OwnerID:    7,
		StartAt:    time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		TotalPrice: 180,
	}
}

func TestCreateReservationValidation(t *testing.T) {
	svc := newTestService(new(mockStore))
	ctx := context.Background()

	t.Run("missing vehicle", func(t *testing.T) {
		r := baseReservation()
		r.VehicleID = 0
		err := svc.CreateReservation(ctx, r)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("start after end", func(t *testing.T) {
		r := baseReservation()
		r.StartAt, r.EndAt = r.EndAt, r.StartAt
		err := svc.CreateReservation(ctx, r)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("zero length interval", func(t *testing.T) {
		r := baseReservation()
		r.EndAt = r.StartAt
		err := svc.CreateReservation(ctx, r)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("no owner and no guest identity", func(t *testing.T) {
		r := baseReservation()
		r.OwnerID = 0
		err := svc.CreateReservation(ctx, r)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("whitespace guest identity rejected", func(t *testing.T) {
		r := baseReservation()
		r.OwnerID = 0
		r.GuestName = "   "
		r.GuestEmail = "\t"
		err := svc.CreateReservation(ctx, r)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("guest identity accepted", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		r := baseReservation()
		r.OwnerID = 0
		r.GuestName = "Jamie Doe"
		r.GuestEmail = "jamie@example.com"

		store.On("GetVehicle", ctx, r.VehicleID).Return(&models.Vehicle{ID: 1, IsActive: true}, nil)
		store.On("HasConflict", ctx, r.VehicleID, r.StartAt, r.EndAt, int64(0)).Return(false, nil)
		store.On("CreateReservationWithLock", ctx, r).Return(nil)
		store.On("CountConfirmedReservations", ctx, r.VehicleID).Return(0, nil)
		store.On("SetVehicleAvailability", ctx, r.VehicleID, true).Return(nil)

		err := svc.CreateReservation(ctx, r)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPending, r.Status)
		assert.NotEmpty(t, r.Code)
		store.AssertExpectations(t)
	})
}

func TestCreateReservationConflict(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store)
	ctx := context.Background()

	r := baseReservation()
	store.On("GetVehicle", ctx, r.VehicleID).Return(&models.Vehicle{ID: 1, IsActive: true}, nil)
	store.On("HasConflict", ctx, r.VehicleID, r.StartAt, r.EndAt, int64(0)).Return(true, nil)

	err := svc.CreateReservation(ctx, r)
	assert.ErrorIs(t, err, database.ErrConflict)
	store.AssertNotCalled(t, "CreateReservationWithLock", mock.Anything, mock.Anything)
}

func TestCreateReservationUnknownVehicle(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store)
	ctx := context.Background()

	r := baseReservation()
	store.On("GetVehicle", ctx, r.VehicleID).Return(nil, database.ErrNotFound)

	err := svc.CreateReservation(ctx, r)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestUpdateReservationStatusUnknownStatus(t *testing.T) {
	svc := newTestService(new(mockStore))

	_, err := svc.UpdateReservationStatus(context.Background(), 1, "parked")
	assert.ErrorIs(t, err, database.ErrInvalidStatus)
}

func TestUpdateReservationStatusConfirm(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store)
	ctx := context.Background()

	current := baseReservation()
	current.ID = 5
	current.Status = models.StatusPending
	current.Version = 1

	confirmed := *current
	confirmed.Status = models.StatusConfirmed
	confirmed.Version = 2

	store.On("GetReservation", ctx, int64(5)).Return(current, nil).Once()
	store.On("UpdateReservationStatusWithVersion", ctx, int64(5), int64(1), models.StatusConfirmed).Return(nil)
	store.On("CountConfirmedReservations", ctx, current.VehicleID).Return(1, nil)
	store.On("SetVehicleAvailability", ctx, current.VehicleID, false).Return(nil)
	store.On("GetReservation", ctx, int64(5)).Return(&confirmed, nil).Once()

	updated, err := svc.UpdateReservationStatus(ctx, 5, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
	store.AssertExpectations(t)
}

func TestUpdateReservationStatusStaleVersion(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store)
	ctx := context.Background()

	current := baseReservation()
	current.ID = 5
	current.Version = 1

	store.On("GetReservation", ctx, int64(5)).Return(current, nil)
	store.On("UpdateReservationStatusWithVersion", ctx, int64(5), int64(1), models.StatusCancelled).
		Return(database.ErrConcurrentModification)

	_, err := svc.UpdateReservationStatus(ctx, 5, models.StatusCancelled)
	assert.ErrorIs(t, err, database.ErrConcurrentModification)
}

func TestSyncAvailability(t *testing.T) {
	t.Run("confirmed reservation clears the flag", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		ctx := context.Background()

		store.On("CountConfirmedReservations", ctx, int64(1)).Return(2, nil)
		store.On("SetVehicleAvailability", ctx, int64(1), false).Return(nil)

		require.NoError(t, svc.SyncAvailability(ctx, 1))
		store.AssertExpectations(t)
	})

	t.Run("no confirmed reservations restores the flag", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		ctx := context.Background()

		store.On("CountConfirmedReservations", ctx, int64(1)).Return(0, nil)
		store.On("SetVehicleAvailability", ctx, int64(1), true).Return(nil)

		require.NoError(t, svc.SyncAvailability(ctx, 1))
		store.AssertExpectations(t)
	})

	t.Run("idempotent", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		ctx := context.Background()

		store.On("CountConfirmedReservations", ctx, int64(1)).Return(0, nil)
		store.On("SetVehicleAvailability", ctx, int64(1), true).Return(nil)

		require.NoError(t, svc.SyncAvailability(ctx, 1))
		require.NoError(t, svc.SyncAvailability(ctx, 1))
	})
}

func TestDeleteReservationResyncs(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store)
	ctx := context.Background()

	r := baseReservation()
	r.ID = 9
	r.Status = models.StatusConfirmed

	store.On("GetReservation", ctx, int64(9)).Return(r, nil)
	store.On("DeleteReservation", ctx, int64(9)).Return(nil)
	store.On("CountConfirmedReservations", ctx, r.VehicleID).Return(0, nil)
	store.On("SetVehicleAvailability", ctx, r.VehicleID, true).Return(nil)

	require.NoError(t, svc.DeleteReservation(ctx, 9))
	store.AssertExpectations(t)
}
