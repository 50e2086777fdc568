package analytics

// AICopilotResult is the §4.4 `ai_copilot` job output: every model whose
// input preconditions hold, combined.
type AICopilotResult struct {
	ModelsUsed []string               `json:"models_used"`
	Results    map[string]interface{} `json:"results"`
	Summary    string                 `json:"summary"`
}

// RunAICopilot runs every model in the dispatch table whose precondition
// holds against f and combines the results. Unlike the single-model job
// types, a precondition miss here is not an error: the model is simply
// omitted, per spec.md §4.4.
func RunAICopilot(f Frame) (AICopilotResult, error) {
	results := make(map[string]interface{})
	var used []string

	if anomaly, err := RunAnomalyDetection(f); err == nil {
		results["anomaly"] = anomaly
		used = append(used, "anomaly")
	}
	if failure, err := RunFailurePrediction(f); err == nil {
		results["failure_prediction"] = failure
		used = append(used, "failure_prediction")
	}
	if forecast, err := RunEnergyForecast(f); err == nil {
		results["energy_forecast"] = forecast
		used = append(used, "energy_forecast")
	}

	return AICopilotResult{
		ModelsUsed: used,
		Results:    results,
		Summary:    summarizeCopilot(used),
	}, nil
}

func summarizeCopilot(used []string) string {
	if len(used) == 0 {
		return "No models had sufficient input to run."
	}
	return "Ran " + joinAnd(used) + " over the requested window."
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		out := items[0]
		for _, item := range items[1 : len(items)-1] {
			out += ", " + item
		}
		out += " and " + items[len(items)-1]
		return out
	}
}
