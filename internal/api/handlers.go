package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"drivebook/internal/booking"
	"drivebook/internal/database"
	"drivebook/internal/models"
)

type reservationRequest struct {
	VehicleID  int64   `json:"vehicle_id"`
	OwnerID    int64   `json:"owner_id"`
	UserID     int64   `json:"user_id"` // legacy spelling of owner_id
	GuestName  string  `json:"guest_name"`
	GuestEmail string  `json:"guest_email"`
	Phone      string  `json:"phone"`
	StartAt    string  `json:"start_at"`
	EndAt      string  `json:"end_at"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	var filter models.ReservationFilter

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("vehicle_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vehicle_id")
			return
		}
		filter.VehicleID = id
	}

	// Старые клиенты присылают user или user_id.
	ownerRaw := strings.TrimSpace(q.Get("owner_id"))
	if ownerRaw == "" {
		ownerRaw = strings.TrimSpace(q.Get("user_id"))
	}
	if ownerRaw == "" {
		ownerRaw = strings.TrimSpace(q.Get("user"))
	}
	if ownerRaw != "" {
		id, err := strconv.ParseInt(ownerRaw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid owner_id")
			return
		}
		filter.OwnerID = id
	}

	filter.GuestEmail = strings.TrimSpace(q.Get("guest_email"))
	if filter.GuestEmail == "" {
		filter.GuestEmail = strings.TrimSpace(q.Get("email"))
	}

	reservations, err := s.booking.ListReservations(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	var body reservationRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ownerID := body.OwnerID
	if ownerID == 0 {
		ownerID = body.UserID
	}

	startAt, err := parseAPITime(body.StartAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_at; expected YYYY-MM-DD or RFC3339")
		return
	}
	endAt, err := parseAPITime(body.EndAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_at; expected YYYY-MM-DD or RFC3339")
		return
	}

	reservation := &models.Reservation{
		VehicleID:  body.VehicleID,
		OwnerID:    ownerID,
		GuestName:  body.GuestName,
		GuestEmail: body.GuestEmail,
		Phone:      body.Phone,
		StartAt:    startAt,
		EndAt:      endAt,
		TotalPrice: body.TotalPrice,
		Status:     body.Status,
	}

	if err := s.booking.CreateReservation(r.Context(), reservation); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.updateReservationStatus(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		reservation, err := s.booking.GetReservation(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservation)
	case http.MethodDelete:
		if err := s.booking.DeleteReservation(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) updateReservationStatus(w http.ResponseWriter, r *http.Request, id int64) {
	var body statusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reservation, err := s.booking.UpdateReservationStatus(r.Context(), id, strings.TrimSpace(body.Status))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	onlyAvailable := r.URL.Query().Get("only_available") == "true"
	vehicles, err := s.db.ListVehicles(r.Context(), onlyAvailable)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

func (s *HTTPServer) handleVehicleByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/vehicles/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	switch {
	case len(parts) == 1:
		vehicle, err := s.db.GetVehicle(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vehicle)
	case len(parts) == 2 && parts[1] == "availability":
		available, err := s.booking.VehicleAvailability(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"vehicle_id": id, "available": available})
	case len(parts) == 2 && parts[1] == "reservations":
		reservations, err := s.db.ListVehicleReservations(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var userID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}

	limit := models.DefaultNotificationLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	notifications, err := s.db.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *HTTPServer) handleNotificationsSeen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	updated, err := s.db.MarkNotificationsSeen(r.Context(), body.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	var body struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	startDate, err := parseAPITime(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	endDate, err := parseAPITime(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}
	if !startDate.Before(endDate) {
		writeError(w, http.StatusBadRequest, "start_date must be before end_date")
		return
	}

	filePath, err := s.exporter.ReservationsReport(r.Context(), startDate, endDate)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": filePath})
}

// writeServiceError maps engine errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "vehicle is already reserved for this period")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "reservation was modified concurrently, retry")
	case errors.Is(err, database.ErrInvalidStatus):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseAPITime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
