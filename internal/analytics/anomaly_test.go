package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factoryop/platform/internal/timeseries"
)

func buildRows(n int, outlierIdx int) []timeseries.Row {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []timeseries.Row
	for i := 0; i < n; i++ {
		v := 100.0
		if i == outlierIdx {
			v = 900.0
		}
		rows = append(rows, timeseries.Row{
			DeviceID:  1,
			Parameter: "voltage",
			Value:     v,
			Time:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	return rows
}

func TestRunAnomalyDetection_RejectsInsufficientInput(t *testing.T) {
	frame := BuildFrame(buildRows(5, -1))
	_, err := RunAnomalyDetection(frame)
	assert.ErrorIs(t, err, ErrInsufficientInput)
}

func TestRunAnomalyDetection_FlagsOutlier(t *testing.T) {
	frame := BuildFrame(buildRows(30, 15))
	result, err := RunAnomalyDetection(frame)
	require.NoError(t, err)
	require.NotEmpty(t, result.Anomalies)
	assert.Contains(t, result.Anomalies[0].AffectedParameters, "voltage")
}

func TestRunFailurePrediction_RejectsInsufficientInput(t *testing.T) {
	frame := BuildFrame(buildRows(10, -1))
	_, err := RunFailurePrediction(frame)
	assert.ErrorIs(t, err, ErrInsufficientInput)
}

func TestRunFailurePrediction_ReturnsBucketedRisk(t *testing.T) {
	frame := BuildFrame(buildRows(40, 20))
	result, err := RunFailurePrediction(frame)
	require.NoError(t, err)
	assert.Contains(t, []string{"low", "medium", "high"}, result.RiskLevel)
}
