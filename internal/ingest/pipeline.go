package ingest

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/cache"
	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
	"github.com/factoryop/platform/internal/queue"
	"github.com/factoryop/platform/internal/timeseries"
)

// Pipeline runs the per-message stages described in spec.md §4.1. It holds
// no per-message state: every call to HandleMessage is independent, so the
// pipeline is safe to share across broker sessions.
type Pipeline struct {
	tenants    *database.TenantRepository
	devices    *database.DeviceRepository
	parameters *database.ParameterRepository
	ts         *timeseries.Client
	q          *queue.Client
}

// NewPipeline constructs a pipeline wired to the process-wide stores.
func NewPipeline() *Pipeline {
	return &Pipeline{
		tenants:    database.NewTenantRepository(),
		devices:    database.NewDeviceRepository(),
		parameters: database.NewParameterRepository(),
		ts:         timeseries.Get(),
		q:          queue.Get(),
	}
}

// HandleMessage runs every stage for one (topic, payload) pair. It never
// panics and never returns an error to the caller: every failure is logged
// with structured context and the message is dropped, per spec.md §4.1's
// failure policy — a malformed message must not stall or crash the worker.
func (p *Pipeline) HandleMessage(ctx context.Context, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("topic", topic).Msg("ingest pipeline panicked, message dropped")
		}
	}()

	slug, deviceKey, err := ParseTopic(topic)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Str("reason", "bad_topic").Msg("dropping message")
		return
	}

	timestamp, metrics, err := ParsePayload(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Str("reason", "bad_payload").Msg("dropping message")
		return
	}

	sampleTime := time.Now().UTC()
	if timestamp != nil {
		sampleTime = *timestamp
	}

	tenant, err := p.resolveTenant(ctx, slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("tenant lookup failed, dropping message")
		return
	}
	if tenant == nil {
		log.Warn().Str("slug", slug).Str("reason", "unknown_factory").Msg("dropping message")
		return
	}

	device, err := p.resolveOrRegisterDevice(ctx, tenant.ID, slug, deviceKey)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Str("device", deviceKey).Msg("device lookup failed, dropping message")
		return
	}

	if err := p.discoverParameters(device.ID, metrics); err != nil {
		log.Error().Err(err).Int64("deviceId", device.ID).Msg("parameter discovery failed")
		// Not fatal to the message: points can still be written.
	}

	points := buildPoints(tenant.ID, device.ID, metrics, sampleTime)
	if p.ts != nil {
		if err := p.ts.WritePoints(ctx, points); err != nil {
			log.Error().Err(err).Int64("deviceId", device.ID).Msg("time-series write failed, dropping message")
			return
		}
	}

	// Stages 7-8 are best-effort: the sample is already durably persisted,
	// so their failure must not fail the message.
	if err := p.devices.TouchLastSeen(device.ID, sql.NullTime{Time: sampleTime, Valid: true}); err != nil {
		log.Warn().Err(err).Int64("deviceId", device.ID).Msg("last_seen update failed")
	}

	if p.q != nil {
		job := models.RuleEvaluationJob{
			TenantID:  tenant.ID,
			DeviceID:  device.ID,
			HostKey:   deviceKey,
			Metrics:   metrics,
			Timestamp: sampleTime,
		}
		if err := p.q.Publish(ctx, queue.QueueRuleEngine, queue.TaskEvaluateRules, job); err != nil {
			log.Warn().Err(err).Int64("deviceId", device.ID).Msg("rule-evaluation enqueue failed")
		}
	}
}

// resolveTenant reads through the cache keyed by slug (spec.md §4.3),
// falling back to the relational store on a miss.
func (p *Pipeline) resolveTenant(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if cache.GetTenantJSON(ctx, slug, &tenant) {
		return &tenant, nil
	}

	found, err := p.tenants.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}
	cache.SetTenantJSON(ctx, slug, found)
	return found, nil
}

// resolveOrRegisterDevice reads through the device cache and auto-registers
// a never-before-seen device as is_active=true (spec.md §4.1 stage 4).
func (p *Pipeline) resolveOrRegisterDevice(ctx context.Context, tenantID int64, slug, deviceKey string) (*models.Device, error) {
	var device models.Device
	if cache.GetDeviceJSON(ctx, tenantID, deviceKey, &device) {
		return &device, nil
	}

	found, err := p.devices.GetByKey(tenantID, deviceKey)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found, err = p.devices.CreateIfMissing(tenantID, deviceKey)
		if err != nil {
			return nil, err
		}
	}
	cache.SetDeviceJSON(ctx, tenantID, deviceKey, found)
	return found, nil
}

// discoverParameters inserts a parameter row for every metric key not yet
// seen for this device. The underlying insert is idempotent (unique index
// + INSERT OR IGNORE), so it is safe to call on every message.
func (p *Pipeline) discoverParameters(deviceID int64, metrics map[string]float64) error {
	existing, err := p.parameters.ExistingKeys(deviceID)
	if err != nil {
		return err
	}
	for key := range metrics {
		if existing[key] {
			continue
		}
		if err := p.parameters.Discover(deviceID, key, models.ParameterTypeFloat, humanize(key)); err != nil {
			return err
		}
	}
	return nil
}

// buildPoints renders one time-series point per metric (spec.md §4.1 stage
// 6 / §6 wire format). Points are tagged with the tenant's and device's
// numeric IDs, not their slug/device_key strings.
func buildPoints(tenantID, deviceID int64, metrics map[string]float64, ts time.Time) []models.TelemetryPoint {
	factoryID := strconv.FormatInt(tenantID, 10)
	deviceIDTag := strconv.FormatInt(deviceID, 10)
	points := make([]models.TelemetryPoint, 0, len(metrics))
	for param, value := range metrics {
		points = append(points, models.TelemetryPoint{
			FactoryID: factoryID,
			DeviceID:  deviceIDTag,
			Parameter: param,
			Value:     value,
			Time:      ts,
		})
	}
	return points
}

// humanize turns a snake_case measurement key into a display name, e.g.
// "oil_temp" -> "Oil Temp".
func humanize(key string) string {
	out := make([]byte, 0, len(key))
	capNext := true
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '_' {
			out = append(out, ' ')
			capNext = true
			continue
		}
		if capNext && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		capNext = false
		out = append(out, c)
	}
	return string(out)
}
