package ingest

import (
	"encoding/json"
	"fmt"
	"time"
)

// payloadWire is the raw JSON shape named in spec.md §6.
type payloadWire struct {
	Timestamp *string            `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// ParsePayload parses and validates a broker message body. metrics must be
// non-empty and every value numeric; an omitted timestamp is represented
// by a nil return, letting the caller substitute server wall-clock
// (spec.md §4.1 stage 2, and the Open Question on timestamp drift).
func ParsePayload(body []byte) (timestamp *time.Time, metrics map[string]float64, err error) {
	var wire payloadWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, nil, fmt.Errorf("invalid json: %w", err)
	}
	if len(wire.Metrics) == 0 {
		return nil, nil, fmt.Errorf("metrics must be non-empty")
	}

	if wire.Timestamp != nil {
		ts, err := time.Parse(time.RFC3339, *wire.Timestamp)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timestamp: %w", err)
		}
		timestamp = &ts
	}

	return timestamp, wire.Metrics, nil
}
