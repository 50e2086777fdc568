package database

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/factoryop/platform/internal/models"
)

// RuleRepository handles alerting-rule data operations.
type RuleRepository struct{}

// NewRuleRepository creates a new rule repository
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{}
}

const ruleSelectColumns = `id, tenant_id, name, severity, scope, condition,
	cooldown_minutes, is_active, schedule_type, schedule_config, created_at, updated_at`

func scanRuleFields(scan func(dest ...interface{}) error) (models.Rule, error) {
	var r models.Rule
	var isActive int
	var conditionJSON string
	err := scan(&r.ID, &r.TenantID, &r.Name, &r.Severity, &r.Scope, &conditionJSON,
		&r.CooldownMinutes, &isActive, &r.ScheduleType, &r.ScheduleConfig, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.IsActive = isActive == 1
	cond, err := models.UnmarshalCondition(conditionJSON)
	if err != nil {
		// An unparseable tree becomes an empty leaf, which never matches, so
		// one bad rule does not fail the lookup of every other rule.
		log.Warn().Err(err).Str("ruleId", r.ID).Msg("malformed condition tree; rule evaluates to false")
		cond = models.ConditionNode{}
	}
	r.Condition = cond
	return r, nil
}

// loadRuleDeviceIDs loads the device join set for a device-scoped rule.
func loadRuleDeviceIDs(ruleID string) ([]int64, error) {
	rows, err := DB.Query(`SELECT device_id FROM rule_devices WHERE rule_id = ?`, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadRuleChannelIDs loads the notification-channel set for a rule.
func loadRuleChannelIDs(ruleID string) ([]string, error) {
	rows, err := DB.Query(`SELECT channel_id FROM rule_channels WHERE rule_id = ?`, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetByID returns a rule scoped to a tenant, with its join sets populated.
func (r *RuleRepository) GetByID(tenantID int64, id string) (*models.Rule, error) {
	row := DB.QueryRow(`SELECT `+ruleSelectColumns+` FROM rules WHERE tenant_id = ? AND id = ?`, tenantID, id)
	rule, err := scanRuleFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := hydrateRuleJoins(&rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func hydrateRuleJoins(rule *models.Rule) error {
	deviceIDs, err := loadRuleDeviceIDs(rule.ID)
	if err != nil {
		return err
	}
	rule.DeviceIDs = deviceIDs

	channelIDs, err := loadRuleChannelIDs(rule.ID)
	if err != nil {
		return err
	}
	rule.NotificationChannels = channelIDs
	return nil
}

// ActiveForDevice returns every active rule that applies to a device: the
// ones scoped globally to its tenant, plus the device-scoped ones linked to
// it via rule_devices. This is the hot path for the rule evaluator (§4.2).
func (r *RuleRepository) ActiveForDevice(tenantID, deviceID int64) ([]models.Rule, error) {
	rows, err := DB.Query(`
		SELECT `+ruleSelectColumns+`
		FROM rules
		WHERE tenant_id = ? AND is_active = 1
		  AND (
		    scope = 'global'
		    OR id IN (SELECT rule_id FROM rule_devices WHERE device_id = ?)
		  )
	`, tenantID, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		rule, err := scanRuleFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	// Load join sets after closing the rows iterator (SetMaxOpenConns=1).
	for i := range rules {
		if err := hydrateRuleJoins(&rules[i]); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// Create inserts a rule and its join sets in a transaction.
func (r *RuleRepository) Create(rule *models.Rule) error {
	return Transaction(func(tx *sql.Tx) error {
		conditionJSON, err := models.MarshalCondition(rule.Condition)
		if err != nil {
			return err
		}
		isActive := 0
		if rule.IsActive {
			isActive = 1
		}
		_, err = tx.Exec(`
			INSERT INTO rules (id, tenant_id, name, severity, scope, condition,
			                    cooldown_minutes, is_active, schedule_type, schedule_config,
			                    created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rule.ID, rule.TenantID, rule.Name, rule.Severity, rule.Scope, conditionJSON,
			rule.CooldownMinutes, isActive, rule.ScheduleType, rule.ScheduleConfig,
			rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			return err
		}

		for _, deviceID := range rule.DeviceIDs {
			if _, err := tx.Exec(`INSERT INTO rule_devices (rule_id, device_id) VALUES (?, ?)`, rule.ID, deviceID); err != nil {
				return err
			}
		}
		for _, chID := range rule.NotificationChannels {
			if _, err := tx.Exec(`INSERT INTO rule_channels (rule_id, channel_id) VALUES (?, ?)`, rule.ID, chID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetActive flips a rule's is_active flag.
func (r *RuleRepository) SetActive(tenantID int64, id string, isActive bool) error {
	active := 0
	if isActive {
		active = 1
	}
	_, err := DB.Exec(`UPDATE rules SET is_active = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		active, time.Now(), tenantID, id)
	return err
}
