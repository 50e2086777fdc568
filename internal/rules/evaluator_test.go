package rules

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.Connect(dbPath))
	t.Cleanup(func() { database.Close() })
}

func seedDevice(t *testing.T) (tenantID, deviceID int64) {
	t.Helper()
	tenants := database.NewTenantRepository()
	id, err := tenants.Create(&models.Tenant{Slug: "vpc", Name: "vpc", Timezone: "UTC", CreatedAt: time.Now()})
	require.NoError(t, err)

	devices := database.NewDeviceRepository()
	device, err := devices.CreateIfMissing(id, "M01")
	require.NoError(t, err)
	return id, device.ID
}

func TestEvaluator_FiresOnBreachAndRespectsCooldown(t *testing.T) {
	setupTestDB(t)
	tenantID, deviceID := seedDevice(t)

	rule := &models.Rule{
		ID:              "rule-overvoltage",
		TenantID:        tenantID,
		Name:            "overvoltage",
		Severity:        models.SeverityHigh,
		Scope:           models.ScopeGlobal,
		Condition:       models.ConditionNode{Parameter: "voltage", Operator: "gt", Value: 240},
		CooldownMinutes: 15,
		IsActive:        true,
		ScheduleType:    models.ScheduleAlways,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, database.NewRuleRepository().Create(rule))

	e := NewEvaluator()
	t0 := time.Now()

	fired, errs := e.Evaluate(tenantID, deviceID, map[string]float64{"voltage": 245}, t0)
	require.Empty(t, errs)
	require.Len(t, fired, 1)
	require.Equal(t, "overvoltage", rule.Name)
	require.Contains(t, fired[0].Alert.Message, "voltage (245.00) gt 240.00")

	// A second breach inside the cooldown window must not fire again.
	fired, errs = e.Evaluate(tenantID, deviceID, map[string]float64{"voltage": 250}, t0.Add(time.Minute))
	require.Empty(t, errs)
	require.Empty(t, fired)

	// Once the cooldown has elapsed, a continuing breach fires again.
	fired, errs = e.Evaluate(tenantID, deviceID, map[string]float64{"voltage": 246}, t0.Add(16*time.Minute))
	require.Empty(t, errs)
	require.Len(t, fired, 1)
}

func TestEvaluator_DoesNotFireWhenConditionFalse(t *testing.T) {
	setupTestDB(t)
	tenantID, deviceID := seedDevice(t)

	rule := &models.Rule{
		ID: "rule-overvoltage", TenantID: tenantID, Name: "overvoltage",
		Severity: models.SeverityHigh, Scope: models.ScopeGlobal,
		Condition:       models.ConditionNode{Parameter: "voltage", Operator: "gt", Value: 240},
		CooldownMinutes: 15, IsActive: true, ScheduleType: models.ScheduleAlways,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, database.NewRuleRepository().Create(rule))

	e := NewEvaluator()
	fired, errs := e.Evaluate(tenantID, deviceID, map[string]float64{"voltage": 220}, time.Now())
	require.Empty(t, errs)
	require.Empty(t, fired)
}

func TestEvaluator_ScheduleGateSuppressesOutsideWindow(t *testing.T) {
	setupTestDB(t)
	tenantID, deviceID := seedDevice(t)

	rule := &models.Rule{
		ID: "rule-business-hours", TenantID: tenantID, Name: "business-hours-only",
		Severity: models.SeverityLow, Scope: models.ScopeGlobal,
		Condition:       models.ConditionNode{Parameter: "voltage", Operator: "gt", Value: 240},
		CooldownMinutes: 0, IsActive: true,
		ScheduleType:   models.ScheduleTimeWindow,
		ScheduleConfig: `{"startTime":"08:00","endTime":"17:00"}`,
		CreatedAt:      time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, database.NewRuleRepository().Create(rule))

	e := NewEvaluator()
	midnight := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fired, errs := e.Evaluate(tenantID, deviceID, map[string]float64{"voltage": 245}, midnight)
	require.Empty(t, errs)
	require.Empty(t, fired)
}
