package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/factoryop/platform/internal/models"
)

func TestRenderMessage_IncludesRuleDeviceAndSeverity(t *testing.T) {
	alert := &models.Alert{
		DeviceID:    7,
		Severity:    models.SeverityCritical,
		Message:     "temperature exceeded 90C",
		TriggeredAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	rule := &models.Rule{Name: "overheat"}
	device := &models.Device{Name: "Press 3", DeviceKey: "PRESS-03"}

	subject, body := renderMessage(alert, rule, device)

	assert.Contains(t, subject, "critical")
	assert.Contains(t, subject, "overheat")
	assert.Contains(t, subject, "Press 3")
	assert.Contains(t, body, "temperature exceeded 90C")
	assert.Contains(t, body, "Press 3")
}

func TestRenderMessage_FallsBackToDeviceKeyWhenNameMissing(t *testing.T) {
	alert := &models.Alert{DeviceID: 7, Severity: models.SeverityLow, Message: "info", TriggeredAt: time.Now()}
	rule := &models.Rule{Name: "r1"}
	device := &models.Device{DeviceKey: "PRESS-03"}

	subject, _ := renderMessage(alert, rule, device)
	assert.Contains(t, subject, "PRESS-03")
}

func TestRenderMessage_HandlesMissingRuleAndDevice(t *testing.T) {
	alert := &models.Alert{DeviceID: 9, Severity: models.SeverityMedium, Message: "info", TriggeredAt: time.Now()}
	subject, body := renderMessage(alert, nil, nil)
	assert.Contains(t, subject, "unknown rule")
	assert.Contains(t, body, "device 9")
}
