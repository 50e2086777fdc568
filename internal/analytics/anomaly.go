package analytics

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientInput is returned when a job type's minimum row/column
// requirements from spec.md §4.4 are not met; the worker maps this to a
// failed job with the error surfaced on the job row.
var ErrInsufficientInput = errors.New("insufficient input for this analysis")

const anomalyContamination = 0.05

// AnomalyResult is the §4.4 `anomaly` job output.
type AnomalyResult struct {
	AnomalyCount int            `json:"anomaly_count"`
	AnomalyScore float64        `json:"anomaly_score"`
	Anomalies    []AnomalyEntry `json:"top_anomalies"`
}

// AnomalyEntry is one flagged reading.
type AnomalyEntry struct {
	DeviceID           int64     `json:"device_id"`
	Timestamp          time.Time `json:"timestamp"`
	Score              float64   `json:"score"`
	AffectedParameters []string  `json:"affected_parameters"`
}

// RunAnomalyDetection flags the most anomalous rows of the frame using an
// isolation forest over every numeric column, at 5% contamination.
func RunAnomalyDetection(f Frame) (AnomalyResult, error) {
	if len(f.Rows) < 10 || len(f.Columns) < 1 {
		return AnomalyResult{}, ErrInsufficientInput
	}

	matrix := standardize(f.Matrix())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	forest := fitIsolationForest(matrix, rng)
	scores := forest.scoreAll(matrix)

	cutoff := anomalyCutoff(scores, anomalyContamination)
	entries := make([]AnomalyEntry, 0)
	for i, s := range scores {
		if s < cutoff {
			continue
		}
		entries = append(entries, AnomalyEntry{
			DeviceID:           f.Rows[i].DeviceID,
			Timestamp:          f.Rows[i].Timestamp,
			Score:              s,
			AffectedParameters: affectedParameters(f, matrix[i]),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	flagged := len(entries)
	if len(entries) > 50 {
		entries = entries[:50]
	}

	return AnomalyResult{
		AnomalyCount: flagged,
		AnomalyScore: float64(flagged) / float64(len(f.Rows)),
		Anomalies:    entries,
	}, nil
}

// anomalyCutoff returns the score threshold above which a point is in the
// top `contamination` fraction.
func anomalyCutoff(scores []float64, contamination float64) float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * (1 - contamination))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// affectedParameters names the columns whose value deviates more than two
// standard deviations from the column mean for this row, giving the
// anomaly entry a human-readable cause.
func affectedParameters(f Frame, standardizedRow []float64) []string {
	var out []string
	for i, col := range f.Columns {
		if i < len(standardizedRow) && (standardizedRow[i] > 2 || standardizedRow[i] < -2) {
			out = append(out, col)
		}
	}
	return out
}

// standardize returns a copy of matrix with every column z-scored using
// its mean and sample (n-1) standard deviation,
// so columns on different scales (voltage vs. rpm) contribute comparably
// to the isolation forest's random splits.
func standardize(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return matrix
	}
	numCols := len(matrix[0])
	out := make([][]float64, len(matrix))
	for i := range out {
		out[i] = make([]float64, numCols)
	}

	for col := 0; col < numCols; col++ {
		vals := make([]float64, len(matrix))
		for i, row := range matrix {
			vals[i] = row[col]
		}
		mean, std := stat.MeanStdDev(vals, nil)
		for i, v := range vals {
			if std == 0 {
				out[i][col] = 0
				continue
			}
			out[i][col] = (v - mean) / std
		}
	}
	return out
}
