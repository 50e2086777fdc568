package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	forecastHorizonDays = 7
	forecastResolution  = time.Hour
)

// ForecastPoint is one predicted interval in the §4.4 `energy_forecast`
// output.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
}

// EnergyForecastResult is the §4.4 `energy_forecast` job output.
type EnergyForecastResult struct {
	HorizonDays int             `json:"horizon_days"`
	Forecast    []ForecastPoint `json:"forecast"`
	Summary     string          `json:"summary"`
}

// RunEnergyForecast decomposes the power column into a linear trend plus
// hour-of-day and day-of-week seasonal components (daily + weekly
// seasonality, no yearly, per spec.md §4.4) and projects it forward
// forecastHorizonDays at hourly resolution. There is no Prophet binding in
// the corpus's ecosystem, so the trend+seasonality decomposition follows
// Prophet's own additive model shape (y = trend + seasonal) using
// gonum/stat for the regression and per-bucket means.
func RunEnergyForecast(f Frame) (EnergyForecastResult, error) {
	if !f.HasColumn("power") {
		return EnergyForecastResult{}, ErrInsufficientInput
	}

	type sample struct {
		t     time.Time
		value float64
	}
	var samples []sample
	for _, row := range f.Rows {
		if v, ok := row.Columns["power"]; ok {
			samples = append(samples, sample{t: row.Timestamp, value: v})
		}
	}
	if len(samples) < 24 {
		return EnergyForecastResult{}, ErrInsufficientInput
	}

	t0 := samples[0].t
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.t.Sub(t0).Hours()
		ys[i] = s.value
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	hourly := make(map[int][]float64)  // hour-of-day -> residuals
	weekly := make(map[int][]float64)  // day-of-week -> residuals
	var residuals []float64
	for i, s := range samples {
		trend := intercept + slope*xs[i]
		residual := s.value - trend
		residuals = append(residuals, residual)
		hourly[s.t.Hour()] = append(hourly[s.t.Hour()], residual)
		weekly[int(s.t.Weekday())] = append(weekly[int(s.t.Weekday())], residual)
	}
	_, residualStd := stat.MeanStdDev(residuals, nil)

	lastT := samples[len(samples)-1].t
	steps := int((forecastHorizonDays * 24 * time.Hour) / forecastResolution)

	points := make([]ForecastPoint, 0, steps)
	for i := 1; i <= steps; i++ {
		ts := lastT.Add(time.Duration(i) * forecastResolution)
		x := ts.Sub(t0).Hours()
		trend := intercept + slope*x
		seasonal := bucketMean(hourly[ts.Hour()]) + bucketMean(weekly[int(ts.Weekday())])
		yhat := trend + seasonal
		points = append(points, ForecastPoint{
			Timestamp: ts,
			Yhat:      yhat,
			YhatLower: yhat - 1.96*residualStd,
			YhatUpper: yhat + 1.96*residualStd,
		})
	}

	return EnergyForecastResult{
		HorizonDays: forecastHorizonDays,
		Forecast:    points,
		Summary:     summarizeForecast(slope, points),
	}, nil
}

func bucketMean(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	mean, _ := stat.MeanStdDev(residuals, nil)
	return mean
}

func summarizeForecast(slope float64, points []ForecastPoint) string {
	if len(points) == 0 {
		return "No forecast could be produced."
	}
	switch {
	case slope > 0.01:
		return "Power draw is trending upward over the forecast window."
	case slope < -0.01:
		return "Power draw is trending downward over the forecast window."
	default:
		return "Power draw is expected to remain stable over the forecast window."
	}
}
