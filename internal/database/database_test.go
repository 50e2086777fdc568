package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/factoryop/platform/internal/models"
)

// setupTestDB connects to a fresh temp-file sqlite database for each test.
// DB is a package-level singleton (the teacher's convention), so tests run
// sequentially against it rather than in parallel.
func setupTestDB(t *testing.T) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Connect(dbPath))
	t.Cleanup(func() { Close() })
}

func seedTenant(t *testing.T, slug string) int64 {
	t.Helper()
	repo := NewTenantRepository()
	id, err := repo.Create(&models.Tenant{Slug: slug, Name: slug, Timezone: "UTC", CreatedAt: time.Now()})
	require.NoError(t, err)
	return id
}

func TestTenantRepository_CreateAndLookup(t *testing.T) {
	setupTestDB(t)
	repo := NewTenantRepository()

	id := seedTenant(t, "vpc")

	bySlug, err := repo.GetBySlug("vpc")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	require.Equal(t, id, bySlug.ID)

	byID, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, "vpc", byID.Slug)

	missing, err := repo.GetBySlug("does-not-exist")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDeviceRepository_CreateIfMissingIsIdempotent(t *testing.T) {
	setupTestDB(t)
	tenantID := seedTenant(t, "vpc")
	repo := NewDeviceRepository()

	first, err := repo.CreateIfMissing(tenantID, "M01")
	require.NoError(t, err)
	require.NotNil(t, first)
	require.True(t, first.IsActive)

	second, err := repo.CreateIfMissing(tenantID, "M01")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "a second auto-register for the same key must not create a duplicate row")
}

func TestDeviceRepository_TouchLastSeenNeverRewinds(t *testing.T) {
	setupTestDB(t)
	tenantID := seedTenant(t, "vpc")
	repo := NewDeviceRepository()

	device, err := repo.CreateIfMissing(tenantID, "M01")
	require.NoError(t, err)

	later := time.Now()
	earlier := later.Add(-time.Hour)

	require.NoError(t, repo.TouchLastSeen(device.ID, sql.NullTime{Time: later, Valid: true}))
	require.NoError(t, repo.TouchLastSeen(device.ID, sql.NullTime{Time: earlier, Valid: true}))

	fetched, err := repo.GetByID(tenantID, device.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.LastSeen)
	require.WithinDuration(t, later, *fetched.LastSeen, time.Second)
}

func TestParameterRepository_DiscoverIsIdempotent(t *testing.T) {
	setupTestDB(t)
	tenantID := seedTenant(t, "vpc")
	deviceRepo := NewDeviceRepository()
	paramRepo := NewParameterRepository()

	device, err := deviceRepo.CreateIfMissing(tenantID, "M01")
	require.NoError(t, err)

	require.NoError(t, paramRepo.Discover(device.ID, "torque", models.ParameterTypeFloat, "Torque"))
	require.NoError(t, paramRepo.Discover(device.ID, "torque", models.ParameterTypeFloat, "Torque"))

	count, err := paramRepo.CountByDevice(device.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCooldownRepository_UpsertAdvances(t *testing.T) {
	setupTestDB(t)
	tenantID := seedTenant(t, "vpc")
	deviceRepo := NewDeviceRepository()
	ruleRepo := NewRuleRepository()
	cooldownRepo := NewCooldownRepository()

	device, err := deviceRepo.CreateIfMissing(tenantID, "M01")
	require.NoError(t, err)

	rule := &models.Rule{
		ID:              "rule-1",
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
	require.NoError(t, ruleRepo.Create(rule))

	t0 := time.Now()
	require.NoError(t, cooldownRepo.Upsert(rule.ID, device.ID, t0))

	got, err := cooldownRepo.Get(rule.ID, device.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.WithinDuration(t, t0, *got, time.Second)

	t1 := t0.Add(16 * time.Minute)
	require.NoError(t, cooldownRepo.Upsert(rule.ID, device.ID, t1))

	got, err = cooldownRepo.Get(rule.ID, device.ID)
	require.NoError(t, err)
	require.WithinDuration(t, t1, *got, time.Second)
}

func TestRuleRepository_ActiveForDevice_GlobalAndScoped(t *testing.T) {
	setupTestDB(t)
	tenantID := seedTenant(t, "vpc")
	deviceRepo := NewDeviceRepository()
	ruleRepo := NewRuleRepository()

	deviceA, err := deviceRepo.CreateIfMissing(tenantID, "M01")
	require.NoError(t, err)
	deviceB, err := deviceRepo.CreateIfMissing(tenantID, "M02")
	require.NoError(t, err)

	global := &models.Rule{
		ID: "rule-global", TenantID: tenantID, Name: "global-rule",
		Severity: models.SeverityLow, Scope: models.ScopeGlobal,
		Condition: models.ConditionNode{Parameter: "p", Operator: "gt", Value: 1},
		IsActive: true, ScheduleType: models.ScheduleAlways,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, ruleRepo.Create(global))

	scoped := &models.Rule{
		ID: "rule-scoped", TenantID: tenantID, Name: "scoped-rule",
		Severity: models.SeverityMedium, Scope: models.ScopeDevice,
		Condition: models.ConditionNode{Parameter: "p", Operator: "gt", Value: 1},
		IsActive: true, ScheduleType: models.ScheduleAlways,
		DeviceIDs: []int64{deviceA.ID},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, ruleRepo.Create(scoped))

	rulesA, err := ruleRepo.ActiveForDevice(tenantID, deviceA.ID)
	require.NoError(t, err)
	require.Len(t, rulesA, 2)

	rulesB, err := ruleRepo.ActiveForDevice(tenantID, deviceB.ID)
	require.NoError(t, err)
	require.Len(t, rulesB, 1)
	require.Equal(t, "rule-global", rulesB[0].ID)
}

func TestAnalyticsJobRepository_Lifecycle(t *testing.T) {
	setupTestDB(t)
	tenantID := seedTenant(t, "vpc")
	repo := NewAnalyticsJobRepository()

	job := &models.AnalyticsJob{
		ID: "job-1", TenantID: tenantID, CreatedBy: 1, JobType: models.JobTypeAnomaly,
		DeviceIDs: []int64{1}, StartTime: time.Now().Add(-time.Hour), EndTime: time.Now(),
		Status: models.JobPending, CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(job))

	require.NoError(t, repo.MarkRunning(job.ID))
	fetched, err := repo.GetByID(tenantID, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobRunning, fetched.Status)
	require.NotNil(t, fetched.StartedAt)

	require.NoError(t, repo.MarkComplete(job.ID, "https://artifacts/job-1.json"))
	fetched, err = repo.GetByID(tenantID, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobComplete, fetched.Status)
	require.Equal(t, "https://artifacts/job-1.json", fetched.ResultURL)
}
