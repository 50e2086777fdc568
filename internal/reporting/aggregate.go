package reporting

import (
	"sort"
	"time"

	"github.com/factoryop/platform/internal/analytics"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/timeseries"
)

// ParameterStats is the {min, max, avg, count} summary spec.md §4.5 requires
// per device per discovered parameter.
type ParameterStats struct {
	Parameter string  `json:"parameter"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Avg       float64 `json:"avg"`
	Count     int     `json:"count"`
}

// DeviceSummary is the aggregation for one requested device.
type DeviceSummary struct {
	Device     models.Device    `json:"device"`
	Parameters []ParameterStats `json:"parameters"`
}

// SeverityHistogram counts alerts by severity.
type SeverityHistogram map[models.RuleSeverity]int

// Aggregation is the full data dictionary spec.md §4.5 describes, before
// rendering into a concrete format.
type Aggregation struct {
	Title        string
	Period       [2]time.Time
	Devices      []DeviceSummary
	Alerts       []models.Alert
	SeverityHist SeverityHistogram
	Analytics    map[string]interface{} // nil unless include_analytics resolved
}

// Aggregate builds the data dictionary for one report request: per-device
// parameter stats from the wide telemetry frame, alerts in range, and a
// severity histogram.
func Aggregate(title string, devices []models.Device, frame analytics.Frame, alerts []models.Alert, start, end time.Time) Aggregation {
	summaries := make([]DeviceSummary, 0, len(devices))
	for _, d := range devices {
		summaries = append(summaries, DeviceSummary{
			Device:     d,
			Parameters: parameterStatsForDevice(frame, d.ID),
		})
	}

	hist := make(SeverityHistogram)
	for _, a := range alerts {
		hist[a.Severity]++
	}

	latest := alerts
	sort.Slice(latest, func(i, j int) bool { return latest[i].TriggeredAt.After(latest[j].TriggeredAt) })
	if len(latest) > 100 {
		latest = latest[:100]
	}

	return Aggregation{
		Title:        title,
		Period:       [2]time.Time{start, end},
		Devices:      summaries,
		Alerts:       latest,
		SeverityHist: hist,
	}
}

func parameterStatsForDevice(frame analytics.Frame, deviceID int64) []ParameterStats {
	values := make(map[string][]float64)
	for _, row := range frame.Rows {
		if row.DeviceID != deviceID {
			continue
		}
		for param, v := range row.Columns {
			values[param] = append(values[param], v)
		}
	}

	params := make([]string, 0, len(values))
	for p := range values {
		params = append(params, p)
	}
	sort.Strings(params)

	stats := make([]ParameterStats, 0, len(params))
	for _, p := range params {
		vals := values[p]
		min, max, sum := vals[0], vals[0], 0.0
		for _, v := range vals {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
		stats = append(stats, ParameterStats{
			Parameter: p,
			Min:       min,
			Max:       max,
			Avg:       sum / float64(len(vals)),
			Count:     len(vals),
		})
	}
	return stats
}

// EnergyOverview narrows an aggregation to devices that reported a "power"
// column, for the PDF renderer's energy-overview section (§4.5).
func EnergyOverview(agg Aggregation) []DeviceSummary {
	var out []DeviceSummary
	for _, d := range agg.Devices {
		for _, p := range d.Parameters {
			if p.Parameter == "power" {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// FrameFromRows is a thin re-export so callers that already hold raw
// timeseries.Row slices don't need to import analytics directly.
func FrameFromRows(rows []timeseries.Row) analytics.Frame {
	return analytics.BuildFrame(rows)
}
