package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"drivebook/internal/models"
)

const vehicleColumns = `id, brand, model, year, type, price_per_day, fuel_type, transmission,
                 mileage, seat_count, color, is_available, is_active, created_at, updated_at`

func (db *DB) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `INSERT INTO vehicles (
                brand, model, year, type, price_per_day, fuel_type, transmission,
                mileage, seat_count, color, is_available, is_active, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		v.Brand, v.Model, v.Year, v.Type, v.PricePerDay, v.FuelType, v.Transmission,
		v.Mileage, v.SeatCount, v.Color, true, true, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	v.ID = id
	v.IsAvailable = true
	v.IsActive = true
	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// UpsertVehicle inserts a vehicle under a fixed id or refreshes its
// catalog fields, leaving the derived availability flag alone. Used for
// seeding from configs/vehicles.yaml at startup.
func (db *DB) UpsertVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `INSERT INTO vehicles (
                id, brand, model, year, type, price_per_day, fuel_type, transmission,
                mileage, seat_count, color, is_available, is_active, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 1, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                brand = excluded.brand,
                model = excluded.model,
                year = excluded.year,
                type = excluded.type,
                price_per_day = excluded.price_per_day,
                fuel_type = excluded.fuel_type,
                transmission = excluded.transmission,
                mileage = excluded.mileage,
                seat_count = excluded.seat_count,
                color = excluded.color,
                is_active = 1,
                updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		v.ID, v.Brand, v.Model, v.Year, v.Type, v.PricePerDay, v.FuelType, v.Transmission,
		v.Mileage, v.SeatCount, v.Color, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}
	return nil
}

func (db *DB) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	v, err := scanVehicle(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", mapNotFound(err))
	}
	return v, nil
}

// ListVehicles returns active vehicles; onlyAvailable narrows to those
// whose availability flag is currently set.
func (db *DB) ListVehicles(ctx context.Context, onlyAvailable bool) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE is_active = 1`
	if onlyAvailable {
		query += ` AND is_available = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// SetVehicleAvailability writes the derived availability flag. Only the
// synchronizer should call this.
func (db *DB) SetVehicleAvailability(ctx context.Context, id int64, available bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE vehicles SET is_available = ?, updated_at = ? WHERE id = ?`,
		available, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set vehicle availability: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeactivateVehicle(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE vehicles SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate vehicle: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	var v models.Vehicle
	var fuelType, transmission, color sql.NullString
	var seatCount sql.NullInt64
	err := row.Scan(
		&v.ID, &v.Brand, &v.Model, &v.Year, &v.Type, &v.PricePerDay, &fuelType, &transmission,
		&v.Mileage, &seatCount, &color, &v.IsAvailable, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.FuelType = fuelType.String
	v.Transmission = transmission.String
	v.Color = color.String
	v.SeatCount = int(seatCount.Int64)
	return &v, nil
}
