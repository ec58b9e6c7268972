package audit

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renamedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

func TestNewEntryFromEvent(t *testing.T) {
	tenantID := uuid.New()
	aggID := uuid.New()
	event := &renamedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("Renamed", "Thing", aggID, tenantID),
		Name:            "new name",
	}

	entry, err := NewEntryFromEvent(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID(), entry.ID)
	assert.Equal(t, tenantID, entry.TenantID)
	assert.Equal(t, "Thing", entry.AggregateType)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, "Renamed", entry.Action)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Payload), &body))
	assert.Equal(t, "new name", body["name"])
	assert.Equal(t, "Renamed", body["type"])
}
