package booking

import (
	"fmt"
	"strings"

	"drivebook/internal/models"
)

// ValidationError reports a malformed reservation request. It is a typed
// result, not a store error: handlers translate it into a user-facing
// rejection.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// validateReservation checks required fields and normalizes guest
// identity in place. Blank guest strings are treated as absent.
func validateReservation(r *models.Reservation) error {
	if r.VehicleID == 0 {
		return invalidf("vehicle is required")
	}
	if r.StartAt.IsZero() || r.EndAt.IsZero() {
		return invalidf("start and end dates are required")
	}
	if !r.StartAt.Before(r.EndAt) {
		return invalidf("end date must be after start date")
	}
	if r.TotalPrice <= 0 {
		return invalidf("total price must be positive")
	}

	r.GuestName = strings.TrimSpace(r.GuestName)
	r.GuestEmail = strings.TrimSpace(r.GuestEmail)
	if !r.HasOwner() && !r.HasGuestIdentity() {
		return invalidf("either a user or guest name/email must be provided")
	}

	if r.Status != "" && !models.ValidStatus(r.Status) {
		return invalidf("unknown status %q", r.Status)
	}
	return nil
}
