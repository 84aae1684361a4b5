package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	readings "sensor-cloud/internal/readings/domain"
	sensors "sensor-cloud/internal/sensors/domain"
)

// BuildSensorReportPDF renders a one-page summary for a sensor with its
// trailing-window readings.
func BuildSensorReportPDF(sensor *sensors.Sensor, history []readings.Reading, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Sensor Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Sensor: %s", sensor.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Type: %s", sensor.Type))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Location: %s", sensor.LocationName()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", sensor.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Registered: %s", sensor.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Readings in the last 24 hours: %d", len(history)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Timestamp", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, reading := range history {
		pdf.CellFormat(70, 6, reading.Timestamp.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.3f", reading.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, reading.Type, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
