package rules

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/models"
)

// Admits reports whether a rule is eligible to fire at ts, applying the
// schedule gate described in spec.md §4.2. Malformed schedule config
// admits evaluation (fail-open, so alerting never silently breaks on bad
// config) and logs once.
func Admits(rule *models.Rule, ts time.Time) bool {
	switch rule.ScheduleType {
	case models.ScheduleAlways, "":
		return true
	case models.ScheduleTimeWindow:
		return admitsTimeWindow(rule, ts)
	case models.ScheduleDateRange:
		return admitsDateRange(rule, ts)
	default:
		log.Warn().Str("ruleId", rule.ID).Str("scheduleType", string(rule.ScheduleType)).Msg("unknown schedule type, admitting (fail-open)")
		return true
	}
}

func admitsTimeWindow(rule *models.Rule, ts time.Time) bool {
	var cfg models.TimeWindowConfig
	if err := json.Unmarshal([]byte(rule.ScheduleConfig), &cfg); err != nil {
		log.Warn().Err(err).Str("ruleId", rule.ID).Msg("malformed time_window schedule config, admitting (fail-open)")
		return true
	}

	if len(cfg.Days) > 0 {
		weekday := isoWeekday(ts)
		if !containsInt(cfg.Days, weekday) {
			return false
		}
	}

	start, err1 := time.Parse("15:04", cfg.StartTime)
	end, err2 := time.Parse("15:04", cfg.EndTime)
	if err1 != nil || err2 != nil {
		log.Warn().Str("ruleId", rule.ID).Msg("malformed time_window start/end, admitting (fail-open)")
		return true
	}

	tod := ts.Hour()*60 + ts.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	return tod >= startMin && tod <= endMin
}

func admitsDateRange(rule *models.Rule, ts time.Time) bool {
	var cfg models.DateRangeConfig
	if err := json.Unmarshal([]byte(rule.ScheduleConfig), &cfg); err != nil {
		log.Warn().Err(err).Str("ruleId", rule.ID).Msg("malformed date_range schedule config, admitting (fail-open)")
		return true
	}

	start, err1 := time.Parse("2006-01-02", cfg.StartDate)
	end, err2 := time.Parse("2006-01-02", cfg.EndDate)
	if err1 != nil || err2 != nil {
		log.Warn().Str("ruleId", rule.ID).Msg("malformed date_range bounds, admitting (fail-open)")
		return true
	}

	date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	return !date.Before(start) && !date.After(end)
}

// isoWeekday maps Go's Sunday=0 weekday numbering to ISO 8601 (1=Mon...7=Sun).
func isoWeekday(ts time.Time) int {
	w := int(ts.Weekday())
	if w == 0 {
		return 7
	}
	return w
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
