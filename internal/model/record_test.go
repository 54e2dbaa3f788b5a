package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputationKindValid(t *testing.T) {
	assert.True(t, KindBreakEven.Valid())
	assert.True(t, KindKPI.Valid())
	assert.False(t, ComputationKind("payroll").Valid())
	assert.False(t, ComputationKind("").Valid())
}

func TestComputationRecordJSON(t *testing.T) {
	rec := ComputationRecord{
		ID:        "r1",
		Kind:      KindBreakEven,
		Subject:   "Maadi",
		Inputs:    json.RawMessage(`{"agents":10}`),
		Error:     "agents must be at least 1",
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	assert.True(t, rec.Failed())

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "r1",
		"kind": "breakeven",
		"subject": "Maadi",
		"inputs": {"agents": 10},
		"error": "agents must be at least 1",
		"created_at": "2025-03-01T12:00:00Z"
	}`, string(b))
}
