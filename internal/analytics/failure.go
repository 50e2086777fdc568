package analytics

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	rollingWindow           = 10
	failurePredictionContam = 0.10
	riskLowCutoff           = 0.10
	riskMediumCutoff        = 0.25
)

// FailurePredictionResult is the §4.4 `failure_prediction` job output.
type FailurePredictionResult struct {
	FailureProbability float64 `json:"failure_probability"`
	RiskLevel          string  `json:"risk_level"`
	Summary            string  `json:"summary"`
}

// RunFailurePrediction derives rolling-window mean+std features per numeric
// column and scores them with an isolation forest at 10% contamination;
// the fraction flagged anomalous becomes the failure probability.
func RunFailurePrediction(f Frame) (FailurePredictionResult, error) {
	if len(f.Rows) < 20 {
		return FailurePredictionResult{}, ErrInsufficientInput
	}

	features := rollingWindowFeatures(f)
	if len(features) == 0 {
		return FailurePredictionResult{}, ErrInsufficientInput
	}

	standardized := standardize(features)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	forest := fitIsolationForest(standardized, rng)
	scores := forest.scoreAll(standardized)

	cutoff := anomalyCutoff(scores, failurePredictionContam)
	flagged := 0
	for _, s := range scores {
		if s >= cutoff {
			flagged++
		}
	}
	probability := float64(flagged) / float64(len(scores))

	return FailurePredictionResult{
		FailureProbability: probability,
		RiskLevel:          riskLevel(probability),
		Summary:            summarizeFailureRisk(probability, len(f.Rows)),
	}, nil
}

func riskLevel(p float64) string {
	switch {
	case p < riskLowCutoff:
		return "low"
	case p < riskMediumCutoff:
		return "medium"
	default:
		return "high"
	}
}

func summarizeFailureRisk(p float64, sampleCount int) string {
	level := riskLevel(p)
	switch level {
	case "low":
		return "No meaningful deviation from normal operating patterns detected."
	case "medium":
		return "Some readings deviate from normal operating patterns; continued monitoring recommended."
	default:
		return "Significant deviation from normal operating patterns detected across recent samples."
	}
}

// rollingWindowFeatures computes, for every row index >= rollingWindow-1, a
// feature vector of [mean, stddev] per numeric column over the preceding
// rollingWindow rows.
func rollingWindowFeatures(f Frame) [][]float64 {
	matrix := f.Matrix()
	if len(matrix) < rollingWindow {
		return nil
	}

	var out [][]float64
	for i := rollingWindow - 1; i < len(matrix); i++ {
		window := matrix[i-rollingWindow+1 : i+1]
		vec := make([]float64, 0, len(f.Columns)*2)
		for col := range f.Columns {
			vals := make([]float64, len(window))
			for j, row := range window {
				vals[j] = row[col]
			}
			mean, std := stat.MeanStdDev(vals, nil)
			vec = append(vec, mean, std)
		}
		out = append(out, vec)
	}
	return out
}
