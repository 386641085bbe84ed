package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"drivebook/internal/models"
)

const reservationColumns = `id, code, vehicle_id, owner_id, guest_name, guest_email, phone,
                 start_at, end_at, total_price, status, created_at, updated_at, version`

// HasConflict reports whether [start, end) intersects any reservation for
// the vehicle whose status still blocks the calendar (anything but
// cancelled). excludeID > 0 removes that reservation from the conflict
// set, for re-validating an existing reservation against its own dates.
func (db *DB) HasConflict(ctx context.Context, vehicleID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM reservations
              WHERE vehicle_id = ? AND status != ? AND id != ?
              AND start_at < ? AND end_at > ?`
	var count int
	err := db.QueryRowContext(ctx, query, vehicleID, models.StatusCancelled, excludeID, end, start).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return count > 0, nil
}

// CreateReservationWithLock re-runs the conflict check and inserts the
// reservation inside one transaction, so two racing requests cannot both
// pass the check before either commits.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	queryCount := `SELECT COUNT(*) FROM reservations
                   WHERE vehicle_id = ? AND status != ? AND start_at < ? AND end_at > ?`
	var conflicts int
	err = tx.QueryRowContext(ctx, queryCount, r.VehicleID, models.StatusCancelled, r.EndAt, r.StartAt).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check conflicts in tx: %w", err)
	}
	if conflicts > 0 {
		return ErrConflict
	}

	if r.Status == "" {
		r.Status = models.StatusPending
	}

	queryInsert := `INSERT INTO reservations (
                code, vehicle_id, owner_id, guest_name, guest_email, phone,
                start_at, end_at, total_price, status, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		r.Code,
		r.VehicleID,
		r.OwnerID,
		r.GuestName,
		r.GuestEmail,
		r.Phone,
		r.StartAt,
		r.EndAt,
		r.TotalPrice,
		r.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return tx.Commit()
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", mapNotFound(err))
	}
	return r, nil
}

// ListReservations returns reservations matching the filter, newest first.
// The filter matches the single canonical owner column; translating any
// legacy query spellings onto it is the caller's job.
func (db *DB) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	var conds []string
	var args []interface{}

	if filter.VehicleID != 0 {
		conds = append(conds, "vehicle_id = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.OwnerID != 0 {
		conds = append(conds, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.GuestEmail != "" {
		conds = append(conds, "guest_email = ?")
		args = append(args, filter.GuestEmail)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// ListVehicleReservations returns every non-cancelled reservation for a
// vehicle, ordered by start date.
func (db *DB) ListVehicleReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE vehicle_id = ? AND status != ? ORDER BY start_at ASC`
	rows, err := db.QueryContext(ctx, query, vehicleID, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (db *DB) DeleteReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CountConfirmedReservations is the synchronizer's input: the number of
// reservations currently holding the vehicle in confirmed status.
func (db *DB) CountConfirmedReservations(ctx context.Context, vehicleID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE vehicle_id = ? AND status = ?`,
		vehicleID, models.StatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed reservations: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var guestName, guestEmail, phone sql.NullString
	err := row.Scan(
		&r.ID, &r.Code, &r.VehicleID, &r.OwnerID, &guestName, &guestEmail, &phone,
		&r.StartAt, &r.EndAt, &r.TotalPrice, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.GuestName = guestName.String
	r.GuestEmail = guestEmail.String
	r.Phone = phone.String
	return &r, nil
}
