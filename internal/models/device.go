package models

import "time"

// Device is identified by (tenant_id, device_key), unique per tenant.
type Device struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"tenantId"`
	DeviceKey       string    `json:"deviceKey"`
	Name            string    `json:"name,omitempty"`
	Description     string    `json:"description,omitempty"`
	IsActive        bool      `json:"isActive"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
	ProvisioningKey string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ParameterDataType is the inferred type of a discovered measurement channel.
type ParameterDataType string

const (
	ParameterTypeFloat  ParameterDataType = "float"
	ParameterTypeInt    ParameterDataType = "int"
	ParameterTypeString ParameterDataType = "string"
)

// Parameter is a (device, parameter_key) measurement channel discovered from
// ingest. Rows exist iff at least one ingestion carried the key for the
// device (see invariants in spec.md §3).
type Parameter struct {
	ID            int64             `json:"id"`
	DeviceID      int64             `json:"deviceId"`
	ParameterKey  string            `json:"parameterKey"`
	DataType      ParameterDataType `json:"dataType"`
	DisplayName   string            `json:"displayName"`
	Unit          string            `json:"unit,omitempty"`
	IsKPISelected bool              `json:"isKpiSelected"`
	CreatedAt     time.Time         `json:"createdAt"`
}
