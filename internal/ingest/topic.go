package ingest

import (
	"fmt"
	"strings"
)

// ParseTopic parses the fixed five-segment topic pattern
// "factories/<slug>/devices/<device_key>/telemetry" (spec.md §4.1). Any
// deviation in segment count, prefix, the literal "devices" segment, or
// suffix rejects the message.
func ParseTopic(topic string) (slug, deviceKey string, err error) {
	segments := strings.Split(topic, "/")
	if len(segments) != 5 {
		return "", "", fmt.Errorf("expected 5 segments, got %d", len(segments))
	}
	if segments[0] != "factories" || segments[2] != "devices" || segments[4] != "telemetry" {
		return "", "", fmt.Errorf("malformed topic %q", topic)
	}
	if segments[1] == "" || segments[3] == "" {
		return "", "", fmt.Errorf("empty slug or device key in topic %q", topic)
	}
	return segments[1], segments[3], nil
}

// BuildTopic constructs the topic a device would publish to; the inverse of
// ParseTopic, used by tests to assert the round-trip property in spec.md §8.
func BuildTopic(slug, deviceKey string) string {
	return fmt.Sprintf("factories/%s/devices/%s/telemetry", slug, deviceKey)
}
