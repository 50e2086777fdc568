package rules

import (
	"time"

	"github.com/factoryop/platform/internal/database"
	"github.com/factoryop/platform/internal/models"
)

// Evaluator runs the per-rule procedure from spec.md §4.2: schedule gate,
// cooldown gate, condition evaluation, alert emission. It holds no
// per-message state, so one instance is shared across every job handled by
// the rule worker.
type Evaluator struct {
	rules     *database.RuleRepository
	cooldowns *database.CooldownRepository
	alerts    *database.AlertRepository
}

// NewEvaluator constructs an evaluator wired to the process-wide stores.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		rules:     database.NewRuleRepository(),
		cooldowns: database.NewCooldownRepository(),
		alerts:    database.NewAlertRepository(),
	}
}

// Fired is one rule that triggered an alert, returned so the caller can
// enqueue notifications without the evaluator knowing about the queue.
type Fired struct {
	Alert      models.Alert
	ChannelIDs []string
}

// Evaluate runs every active rule for a device against one metric snapshot
// and returns the alerts it fired. A rule whose stored condition tree does
// not parse is loaded with an empty tree that never matches. A repository
// error while evaluating one rule is isolated to that rule: it is skipped
// and the rest of the device's rules still run, per spec.md §4.2's
// failure-isolation paragraph — the caller is expected to log skip reasons.
func (e *Evaluator) Evaluate(tenantID, deviceID int64, metrics map[string]float64, ts time.Time) ([]Fired, []error) {
	candidates, err := e.rules.ActiveForDevice(tenantID, deviceID)
	if err != nil {
		return nil, []error{err}
	}

	var fired []Fired
	var errs []error
	for _, rule := range candidates {
		alert, ok, err := e.evaluateRule(&rule, tenantID, deviceID, metrics, ts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			fired = append(fired, Fired{Alert: alert, ChannelIDs: rule.NotificationChannels})
		}
	}
	return fired, errs
}

// evaluateRule applies the schedule gate, then the cooldown gate, then the
// condition tree, to a single rule. It returns ok=true only when the rule
// actually fired a new alert.
func (e *Evaluator) evaluateRule(rule *models.Rule, tenantID, deviceID int64, metrics map[string]float64, ts time.Time) (models.Alert, bool, error) {
	if !Admits(rule, ts) {
		return models.Alert{}, false, nil
	}

	last, err := e.cooldowns.Get(rule.ID, deviceID)
	if err != nil {
		return models.Alert{}, false, err
	}
	if last != nil && ts.Sub(*last) < time.Duration(rule.CooldownMinutes)*time.Minute {
		return models.Alert{}, false, nil
	}

	if !rule.Condition.Evaluate(metrics) {
		return models.Alert{}, false, nil
	}

	alert := models.Alert{
		TenantID:          tenantID,
		RuleID:            rule.ID,
		DeviceID:          deviceID,
		TriggeredAt:       ts,
		Severity:          rule.Severity,
		Message:           rule.Condition.Render(rule.Name, metrics),
		TelemetrySnapshot: metrics,
	}
	id, err := e.alerts.Create(&alert)
	if err != nil {
		return models.Alert{}, false, err
	}
	alert.ID = id

	if err := e.cooldowns.Upsert(rule.ID, deviceID, ts); err != nil {
		return models.Alert{}, false, err
	}

	return alert, true, nil
}
