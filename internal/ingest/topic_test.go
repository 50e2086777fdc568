package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic_RoundTrip(t *testing.T) {
	slug, key, err := ParseTopic(BuildTopic("vpc", "M01"))
	require.NoError(t, err)
	assert.Equal(t, "vpc", slug)
	assert.Equal(t, "M01", key)
}

func TestParseTopic_Rejections(t *testing.T) {
	cases := []string{
		"factories/vpc/devices/M01",                  // too few segments
		"factories/vpc/devices/M01/telemetry/extra",   // too many segments
		"factory/vpc/devices/M01/telemetry",           // wrong prefix
		"factories/vpc/hosts/M01/telemetry",           // missing "devices"
		"factories/vpc/devices/M01/status",            // wrong suffix
		"factories//devices/M01/telemetry",            // empty slug
	}
	for _, topic := range cases {
		_, _, err := ParseTopic(topic)
		assert.Error(t, err, "expected rejection for topic %q", topic)
	}
}
