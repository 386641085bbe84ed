package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drivebook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ReservationSource is the slice of storage the exporter needs.
type ReservationSource interface {
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
	ListVehicles(ctx context.Context, onlyAvailable bool) ([]*models.Vehicle, error)
}

// Exporter renders reservation reports as xlsx files.
type Exporter struct {
	source ReservationSource
	path   string
	logger *zerolog.Logger
}

func NewExporter(source ReservationSource, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{source: source, path: path, logger: logger}
}

const reportSheet = "Reservations"

// ReservationsReport writes all reservations overlapping [startDate, endDate)
// to an xlsx file and returns its path.
func (e *Exporter) ReservationsReport(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	reservations, err := e.source.ListReservations(ctx, models.ReservationFilter{})
	if err != nil {
		return "", fmt.Errorf("error getting reservations: %v", err)
	}

	vehicles, err := e.source.ListVehicles(ctx, false)
	if err != nil {
		return "", fmt.Errorf("error getting vehicles: %v", err)
	}
	vehicleNames := make(map[int64]string, len(vehicles))
	for _, v := range vehicles {
		vehicleNames[v.ID] = fmt.Sprintf("%s %s", v.Brand, v.Model)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(reportSheet, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	headers := []string{
		"Code", "Vehicle", "Customer", "Phone", "Start", "End", "Price", "Status", "Created",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(reportSheet, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(reportSheet, "A2", "I2", headerStyle)

	row := 3
	for _, r := range reservations {
		if !r.Overlaps(startDate, endDate) {
			continue
		}

		name := vehicleNames[r.VehicleID]
		if name == "" {
			name = fmt.Sprintf("vehicle %d", r.VehicleID)
		}
		customer := r.GuestName
		if r.HasOwner() {
			customer = fmt.Sprintf("user %d", r.OwnerID)
		}

		_ = f.SetCellValue(reportSheet, fmt.Sprintf("A%d", row), r.Code)
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("B%d", row), name)
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("C%d", row), customer)
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("D%d", row), r.Phone)
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("E%d", row), r.StartAt.Format("02.01.2006"))
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("F%d", row), r.EndAt.Format("02.01.2006"))
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("G%d", row), r.TotalPrice)
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("H%d", row), r.Status)
		_ = f.SetCellValue(reportSheet, fmt.Sprintf("I%d", row), r.CreatedAt.Format("02.01.2006 15:04"))

		if styleID, err := statusStyle(f, r.Status); err == nil {
			_ = f.SetCellStyle(reportSheet, fmt.Sprintf("H%d", row), fmt.Sprintf("H%d", row), styleID)
		}
		row++
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 14)
	_ = f.SetColWidth(reportSheet, "B", "C", 22)
	_ = f.SetColWidth(reportSheet, "D", "D", 16)
	_ = f.SetColWidth(reportSheet, "E", "F", 12)
	_ = f.SetColWidth(reportSheet, "G", "H", 12)
	_ = f.SetColWidth(reportSheet, "I", "I", 18)

	_ = f.MergeCell(reportSheet, "A1", "I1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(reportSheet, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("reservations_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
