package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/timeseries"
)

func sampleAggregation() Aggregation {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	rows := []timeseries.Row{
		{DeviceID: 1, Parameter: "power", Value: 100, Time: start},
		{DeviceID: 1, Parameter: "power", Value: 200, Time: start.Add(time.Hour)},
		{DeviceID: 1, Parameter: "voltage", Value: 230, Time: start},
	}
	frame := FrameFromRows(rows)

	devices := []models.Device{{ID: 1, DeviceKey: "M01", Name: "Motor 1"}}
	alerts := []models.Alert{
		{ID: 1, DeviceID: 1, Severity: models.SeverityHigh, Message: "overvoltage", TriggeredAt: start.Add(30 * time.Minute)},
		{ID: 2, DeviceID: 1, Severity: models.SeverityLow, Message: "info", TriggeredAt: start.Add(45 * time.Minute)},
	}

	return Aggregate("Test Report", devices, frame, alerts, start, end)
}

func TestAggregate_ComputesParameterStatsAndHistogram(t *testing.T) {
	agg := sampleAggregation()
	require.Len(t, agg.Devices, 1)

	var powerStats *ParameterStats
	for i := range agg.Devices[0].Parameters {
		if agg.Devices[0].Parameters[i].Parameter == "power" {
			powerStats = &agg.Devices[0].Parameters[i]
		}
	}
	require.NotNil(t, powerStats)
	assert.Equal(t, 100.0, powerStats.Min)
	assert.Equal(t, 200.0, powerStats.Max)
	assert.Equal(t, 150.0, powerStats.Avg)
	assert.Equal(t, 2, powerStats.Count)

	assert.Equal(t, 1, agg.SeverityHist[models.SeverityHigh])
	assert.Equal(t, 1, agg.SeverityHist[models.SeverityLow])
}

func TestEnergyOverview_OnlyIncludesPowerDevices(t *testing.T) {
	agg := sampleAggregation()
	overview := EnergyOverview(agg)
	require.Len(t, overview, 1)
	assert.Equal(t, "M01", overview[0].Device.DeviceKey)
}

func TestRenderJSON_RoundTrips(t *testing.T) {
	agg := sampleAggregation()
	body, err := RenderJSON(agg)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Test Report")
}

func TestRenderExcel_ProducesValidZip(t *testing.T) {
	agg := sampleAggregation()
	body, err := RenderExcel(agg)
	require.NoError(t, err)
	assert.True(t, len(body) > 4)
	// A zip archive always starts with the local file header signature.
	assert.Equal(t, []byte{'P', 'K', 0x03, 0x04}, body[:4])
}
