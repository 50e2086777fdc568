package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/factoryop/platform/internal/models"
)

func TestAdmits_Always(t *testing.T) {
	rule := &models.Rule{ScheduleType: models.ScheduleAlways}
	assert.True(t, Admits(rule, time.Now()))

	emptyType := &models.Rule{}
	assert.True(t, Admits(emptyType, time.Now()))
}

func TestAdmits_TimeWindow(t *testing.T) {
	rule := &models.Rule{
		ScheduleType:   models.ScheduleTimeWindow,
		ScheduleConfig: `{"startTime":"08:00","endTime":"17:00","days":[1,2,3,4,5]}`,
	}

	monday900 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // a Monday
	assert.True(t, Admits(rule, monday900))

	monday1800 := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	assert.False(t, Admits(rule, monday1800))

	saturday900 := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	assert.False(t, Admits(rule, saturday900))
}

func TestAdmits_TimeWindow_MalformedConfigFailsOpen(t *testing.T) {
	rule := &models.Rule{
		ScheduleType:   models.ScheduleTimeWindow,
		ScheduleConfig: `not json`,
	}
	assert.True(t, Admits(rule, time.Now()))
}

func TestAdmits_DateRange(t *testing.T) {
	rule := &models.Rule{
		ScheduleType:   models.ScheduleDateRange,
		ScheduleConfig: `{"startDate":"2026-01-01","endDate":"2026-01-31"}`,
	}

	inRange := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, Admits(rule, inRange))

	outOfRange := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, Admits(rule, outOfRange))
}

func TestAdmits_UnknownScheduleTypeFailsOpen(t *testing.T) {
	rule := &models.Rule{ScheduleType: "bogus"}
	assert.True(t, Admits(rule, time.Now()))
}
