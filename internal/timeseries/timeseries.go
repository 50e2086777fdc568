package timeseries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	lineprotocol "github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/factoryop/platform/internal/models"
)

// Client is a process-wide singleton HTTP client against an InfluxDB-shaped
// time-series store, matching the write/query endpoints named in spec.md §6.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	org        string
	bucket     string
}

var client *Client

// Connect initializes the process-wide time-series client.
func Connect(baseURL, token, org, bucket string) *Client {
	client = &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
		org:        org,
		bucket:     bucket,
	}
	return client
}

// Get returns the process-wide time-series client.
func Get() *Client {
	return client
}

// encodePoints renders a batch of points in InfluxDB line protocol: one
// "device_metrics" line per point, tags factory_id/device_id/parameter,
// field value, as named in spec.md §6.
func encodePoints(points []models.TelemetryPoint) ([]byte, error) {
	var buf bytes.Buffer
	enc := lineprotocol.NewEncoder(&buf)
	enc.SetPrecision(lineprotocol.Nanosecond)
	enc.SetMaxLineBytes(0)

	for _, p := range points {
		enc.StartLine("device_metrics")
		enc.AddTag("factory_id", p.FactoryID)
		enc.AddTag("device_id", p.DeviceID)
		enc.AddTag("parameter", p.Parameter)
		enc.AddField("value", lineprotocol.MustNewValue(p.Value))
		enc.EndLine(p.Time)
		if err := enc.Err(); err != nil {
			return nil, fmt.Errorf("encode line protocol: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// WritePoints writes a batch of time-series points (spec.md §4.1 stage 6).
// The batch is one HTTP POST; callers treat any error as a best-effort
// failure (the pipeline stage that calls this drops the message on error
// but never crashes the worker).
func (c *Client) WritePoints(ctx context.Context, points []models.TelemetryPoint) error {
	if len(points) == 0 {
		return nil
	}
	body, err := encodePoints(points)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=ns", c.baseURL, c.org, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("write points: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Row is one time-series sample returned by a Query, in the shape the
// analytics/report workers reshape into a wide table (spec.md §4.4/§4.5).
// DeviceID is the numeric device ID the device_id tag carries, not the
// device's human-readable key.
type Row struct {
	DeviceID  int64     `json:"deviceId"`
	Parameter string    `json:"parameter"`
	Value     float64   `json:"value"`
	Time      time.Time `json:"time"`
}

// Query fetches every device_metrics point tagged with one of deviceIDs in
// [start,end]. Queries are HTTP GETs against a /query-shaped endpoint, per
// spec.md's component-design note for C2.
func (c *Client) Query(ctx context.Context, deviceIDs []int64, start, end time.Time) ([]Row, error) {
	filter := struct {
		Bucket    string    `json:"bucket"`
		DeviceIDs []int64   `json:"deviceIds"`
		Start     time.Time `json:"start"`
		End       time.Time `json:"end"`
	}{c.bucket, deviceIDs, start, end}

	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("query points: unexpected status %d", resp.StatusCode)
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return rows, nil
}

// WideRow is one (timestamp, device) reading with every discovered
// parameter as a column, the shape spec.md §4.4 requires as analytics
// input.
type WideRow struct {
	Timestamp time.Time
	DeviceID  int64
	Columns   map[string]float64
}

// ToWideTable reshapes query rows keyed by (timestamp, device_id) with one
// column per parameter, per spec.md §4.4.
func ToWideTable(rows []Row) []WideRow {
	index := make(map[string]int)
	var wide []WideRow

	for _, row := range rows {
		key := strconv.FormatInt(row.DeviceID, 10) + "|" + strconv.FormatInt(row.Time.UnixNano(), 10)
		if i, ok := index[key]; ok {
			wide[i].Columns[row.Parameter] = row.Value
			continue
		}
		index[key] = len(wide)
		wide = append(wide, WideRow{
			Timestamp: row.Time,
			DeviceID:  row.DeviceID,
			Columns:   map[string]float64{row.Parameter: row.Value},
		})
	}
	return wide
}
