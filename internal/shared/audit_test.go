package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogValidate(t *testing.T) {
	require.NoError(t, AuditLog{Action: "inventory:submit", Entity: "stock_entry", EntityID: "STE-1"}.Validate())
	assert.Error(t, AuditLog{Action: "inventory:submit", Entity: "stock_entry"}.Validate())
	assert.Error(t, AuditLog{}.Validate())
}

func TestNilStoresAreSafe(t *testing.T) {
	var logger *AuditLogger
	assert.Error(t, logger.Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))

	var store *IdempotencyStore
	assert.Error(t, store.CheckAndInsert(context.Background(), "k", "inventory"))
	assert.NoError(t, store.Delete(context.Background(), "k"))
	assert.NoError(t, store.Cleanup(context.Background(), 0))

	empty := NewIdempotencyStore(nil)
	assert.Error(t, empty.CheckAndInsert(context.Background(), "k", "inventory"))
}
