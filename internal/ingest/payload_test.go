package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_Valid(t *testing.T) {
	ts, metrics, err := ParsePayload([]byte(`{"timestamp":"2026-03-01T10:00:00Z","metrics":{"voltage":231.4,"current":3.2,"power":745.6}}`))
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, 231.4, metrics["voltage"])
	assert.Len(t, metrics, 3)
}

func TestParsePayload_OmittedTimestamp(t *testing.T) {
	ts, metrics, err := ParsePayload([]byte(`{"metrics":{"torque":12.5}}`))
	require.NoError(t, err)
	assert.Nil(t, ts)
	assert.Equal(t, 12.5, metrics["torque"])
}

func TestParsePayload_MalformedJSON(t *testing.T) {
	_, _, err := ParsePayload([]byte(`not valid json {`))
	assert.Error(t, err)
}

func TestParsePayload_EmptyMetricsRejected(t *testing.T) {
	_, _, err := ParsePayload([]byte(`{"metrics":{}}`))
	assert.Error(t, err)
}
