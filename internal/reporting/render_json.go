package reporting

import "encoding/json"

// RenderJSON serializes the aggregation verbatim plus any embedded
// analytics, per spec.md §4.5's JSON format description.
func RenderJSON(agg Aggregation) ([]byte, error) {
	return json.MarshalIndent(agg, "", "  ")
}
