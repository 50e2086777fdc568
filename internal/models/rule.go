package models

import "time"

// RuleSeverity mirrors the severity copied onto an Alert at firing time.
type RuleSeverity string

const (
	SeverityLow      RuleSeverity = "low"
	SeverityMedium   RuleSeverity = "medium"
	SeverityHigh     RuleSeverity = "high"
	SeverityCritical RuleSeverity = "critical"
)

// RuleScope decides whether a rule applies to a fixed set of devices or to
// every device in its tenant.
type RuleScope string

const (
	ScopeDevice RuleScope = "device"
	ScopeGlobal RuleScope = "global"
)

// ScheduleType gates when a rule is eligible to fire.
type ScheduleType string

const (
	ScheduleAlways     ScheduleType = "always"
	ScheduleTimeWindow ScheduleType = "time_window"
	ScheduleDateRange  ScheduleType = "date_range"
)

// TimeWindowConfig is the schedule config for ScheduleTimeWindow.
// Days use ISO weekday numbering (1=Mon...7=Sun); an absent/empty Days
// defaults to all days, per spec.md §4.2. Days and times are matched
// against the evaluated timestamp in its own location; no conversion to
// the tenant's time zone is applied.
type TimeWindowConfig struct {
	Days      []int  `json:"days,omitempty"`
	StartTime string `json:"startTime"` // "HH:MM"
	EndTime   string `json:"endTime"`   // "HH:MM"
}

// DateRangeConfig is the schedule config for ScheduleDateRange.
type DateRangeConfig struct {
	StartDate string `json:"startDate"` // "YYYY-MM-DD"
	EndDate   string `json:"endDate"`
}

// Rule belongs to a tenant and evaluates a condition tree against
// telemetry for its linked devices (or every device, if global-scoped).
type Rule struct {
	ID                 string         `json:"id"`
	TenantID            int64          `json:"tenantId"`
	Name                string         `json:"name"`
	Severity            RuleSeverity   `json:"severity"`
	Scope               RuleScope      `json:"scope"`
	Condition           ConditionNode  `json:"condition"`
	CooldownMinutes     int            `json:"cooldownMinutes"`
	IsActive            bool           `json:"isActive"`
	ScheduleType        ScheduleType   `json:"scheduleType"`
	ScheduleConfig       string         `json:"scheduleConfig,omitempty"` // raw JSON, shape depends on ScheduleType
	NotificationChannels []string      `json:"notificationChannels"`
	DeviceIDs            []int64       `json:"deviceIds,omitempty"` // populated for scope=device
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// Cooldown suppresses duplicate alerts for (rule, device) within the rule's
// cooldown window. A row exists only once the rule has fired at least once
// for that device.
type Cooldown struct {
	RuleID        string    `json:"ruleId"`
	DeviceID      int64     `json:"deviceId"`
	LastTriggered time.Time `json:"lastTriggered"`
}

// Alert is a historical firing event. Severity is copied from the rule at
// firing time so later rule edits never mutate history.
type Alert struct {
	ID                  int64             `json:"id"`
	TenantID            int64             `json:"tenantId"`
	RuleID              string            `json:"ruleId"`
	DeviceID            int64             `json:"deviceId"`
	TriggeredAt         time.Time         `json:"triggeredAt"`
	Severity            RuleSeverity      `json:"severity"`
	Message             string            `json:"message"`
	TelemetrySnapshot    map[string]float64 `json:"telemetrySnapshot"`
	ResolvedAt           *time.Time        `json:"resolvedAt,omitempty"`
	NotificationSent     bool              `json:"notificationSent"`
}

// NotificationChannelKind is the transport a NotificationChannel dispatches
// through.
type NotificationChannelKind string

const (
	ChannelEmail    NotificationChannelKind = "email"
	ChannelWhatsApp NotificationChannelKind = "whatsapp"
)

// NotificationChannel is a tenant-owned dispatch target referenced by a
// rule's NotificationChannels set.
type NotificationChannel struct {
	ID        string                   `json:"id"`
	TenantID  int64                    `json:"tenantId"`
	Kind      NotificationChannelKind  `json:"kind"`
	Target    string                   `json:"target"` // address or phone number
	IsEnabled bool                     `json:"isEnabled"`
	CreatedAt time.Time                `json:"createdAt"`
}

// NotificationHistory records one (alert, user, channel) dispatch attempt.
type NotificationHistory struct {
	ID           int64      `json:"id"`
	AlertID      int64      `json:"alertId"`
	ChannelID    string     `json:"channelId"`
	ChannelKind  NotificationChannelKind `json:"channelKind"`
	RecipientID  int64      `json:"recipientId"`
	Status       string     `json:"status"` // pending|sent|failed
	ErrorMessage string     `json:"errorMessage,omitempty"`
	RetryCount   int        `json:"retryCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
}
