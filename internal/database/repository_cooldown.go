package database

import (
	"database/sql"
	"time"
)

// CooldownRepository handles per-(rule,device) suppression-window state.
// A row exists only once the rule has fired at least once for that device
// (spec.md §3 invariant).
type CooldownRepository struct{}

// NewCooldownRepository creates a new cooldown repository
func NewCooldownRepository() *CooldownRepository {
	return &CooldownRepository{}
}

// Get returns the last_triggered timestamp for (rule, device), or nil if no
// cooldown row exists yet — meaning the rule has never fired for it.
func (r *CooldownRepository) Get(ruleID string, deviceID int64) (*time.Time, error) {
	var lastTriggered time.Time
	err := DB.QueryRow(`SELECT last_triggered FROM cooldowns WHERE rule_id = ? AND device_id = ?`, ruleID, deviceID).Scan(&lastTriggered)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lastTriggered, nil
}

// Upsert records the most recent firing of (rule, device). Two concurrent
// evaluations may both read the prior value before either writes, producing
// at most one extra alert — acceptable under the at-least-once alert
// semantics described in spec.md §5.
func (r *CooldownRepository) Upsert(ruleID string, deviceID int64, triggeredAt time.Time) error {
	_, err := DB.Exec(`
		INSERT INTO cooldowns (rule_id, device_id, last_triggered)
		VALUES (?, ?, ?)
		ON CONFLICT(rule_id, device_id) DO UPDATE SET last_triggered = excluded.last_triggered
	`, ruleID, deviceID, triggeredAt)
	return err
}
