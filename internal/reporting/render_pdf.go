package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// RenderPDF lays out the sections spec.md §4.5 names: cover, executive
// summary, energy overview, per-device telemetry tables, alerts log
// (already capped to the latest 100 by Aggregate), and an optional
// analytics section.
func RenderPDF(agg Aggregation) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	renderCover(pdf, agg)
	renderExecutiveSummary(pdf, agg)
	renderEnergyOverview(pdf, agg)
	renderDeviceTelemetry(pdf, agg)
	renderAlertsLog(pdf, agg)
	if agg.Analytics != nil {
		renderAnalyticsSection(pdf, agg)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderCover(pdf *fpdf.Fpdf, agg Aggregation) {
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 20)
	title := agg.Title
	if title == "" {
		title = "Factory Telemetry Report"
	}
	pdf.CellFormat(0, 15, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	period := fmt.Sprintf("%s - %s", agg.Period[0].Format("2006-01-02"), agg.Period[1].Format("2006-01-02"))
	pdf.CellFormat(0, 8, period, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("%d devices", len(agg.Devices)), "", 1, "C", false, 0, "")
}

func renderExecutiveSummary(pdf *fpdf.Fpdf, agg Aggregation) {
	pdf.AddPage()
	sectionHeading(pdf, "Executive Summary")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Devices covered: %d", len(agg.Devices)), "", 1, "", false, 0, "")
	for _, sev := range []string{"critical", "high", "medium", "low"} {
		count := 0
		for s, n := range agg.SeverityHist {
			if string(s) == sev {
				count = n
			}
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("%s alerts: %d", sev, count), "", 1, "", false, 0, "")
	}
}

func renderEnergyOverview(pdf *fpdf.Fpdf, agg Aggregation) {
	devices := EnergyOverview(agg)
	if len(devices) == 0 {
		return
	}
	pdf.AddPage()
	sectionHeading(pdf, "Energy Overview")
	pdf.SetFont("Arial", "", 10)
	for _, d := range devices {
		for _, p := range d.Parameters {
			if p.Parameter != "power" {
				continue
			}
			pdf.CellFormat(0, 6, fmt.Sprintf("%s: min=%.1f max=%.1f avg=%.1f", deviceLabel(d.Device.DeviceKey, d.Device.Name), p.Min, p.Max, p.Avg), "", 1, "", false, 0, "")
		}
	}
}

func renderDeviceTelemetry(pdf *fpdf.Fpdf, agg Aggregation) {
	for _, d := range agg.Devices {
		pdf.AddPage()
		sectionHeading(pdf, "Device: "+deviceLabel(d.Device.DeviceKey, d.Device.Name))
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, "Parameter", "1", 0, "", false, 0, "")
		pdf.CellFormat(35, 7, "Min", "1", 0, "", false, 0, "")
		pdf.CellFormat(35, 7, "Max", "1", 0, "", false, 0, "")
		pdf.CellFormat(35, 7, "Avg", "1", 1, "", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range d.Parameters {
			pdf.CellFormat(50, 6, p.Parameter, "1", 0, "", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", p.Min), "1", 0, "", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", p.Max), "1", 0, "", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", p.Avg), "1", 1, "", false, 0, "")
		}
	}
}

func renderAlertsLog(pdf *fpdf.Fpdf, agg Aggregation) {
	pdf.AddPage()
	sectionHeading(pdf, "Alerts Log")
	pdf.SetFont("Arial", "", 9)
	for _, a := range agg.Alerts {
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s — %s", a.TriggeredAt.Format(time.RFC3339), a.Severity, a.Message), "", "", false)
	}
}

func renderAnalyticsSection(pdf *fpdf.Fpdf, agg Aggregation) {
	pdf.AddPage()
	sectionHeading(pdf, "Analytics")
	pdf.SetFont("Arial", "", 10)
	for name := range agg.Analytics {
		pdf.CellFormat(0, 6, "Included model: "+name, "", 1, "", false, 0, "")
	}
}

func sectionHeading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, text, "", 1, "", false, 0, "")
	pdf.Ln(2)
}

func deviceLabel(key, name string) string {
	if name == "" {
		return key
	}
	return fmt.Sprintf("%s (%s)", name, key)
}
