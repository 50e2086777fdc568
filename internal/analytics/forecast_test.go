package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factoryop/platform/internal/timeseries"
)

func TestRunEnergyForecast_RejectsMissingPowerColumn(t *testing.T) {
	frame := BuildFrame(buildRows(30, -1)) // "voltage" column, no "power"
	_, err := RunEnergyForecast(frame)
	assert.ErrorIs(t, err, ErrInsufficientInput)
}

func TestRunEnergyForecast_ProducesWeeklyHorizon(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []timeseries.Row
	for i := 0; i < 48; i++ {
		rows = append(rows, timeseries.Row{
			DeviceID:  1,
			Parameter: "power",
			Value:     500 + float64(i),
			Time:      base.Add(time.Duration(i) * time.Hour),
		})
	}
	frame := BuildFrame(rows)

	result, err := RunEnergyForecast(frame)
	require.NoError(t, err)
	assert.Equal(t, 7, result.HorizonDays)
	assert.Len(t, result.Forecast, 7*24)
	assert.NotEmpty(t, result.Summary)
}
