package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/auth-service/internal/model"
)

func TestToSessionDTOMarksCurrentDevice(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	active := model.Session{ID: 1, DeviceID: "dev-a", IsActive: true, LastActivity: now, CreatedAt: now}
	other := model.Session{ID: 2, DeviceID: "dev-b", IsActive: true, LastActivity: now, CreatedAt: now}
	closed := model.Session{ID: 3, DeviceID: "dev-a", IsActive: false, LastActivity: now, CreatedAt: now}

	assert.True(t, toSessionDTO(active, "dev-a").Current)
	assert.False(t, toSessionDTO(other, "dev-a").Current)
	assert.False(t, toSessionDTO(closed, "dev-a").Current, "inactive rows are history even on the same device")
	assert.False(t, toSessionDTO(active, "").Current, "no device in the token means no current marker")

	dto := toSessionDTO(active, "dev-a")
	assert.Equal(t, "2026-08-30T12:00:00Z", dto.LastActivity)
	assert.Equal(t, "2026-08-30T12:00:00Z", dto.CreatedAt)
}
