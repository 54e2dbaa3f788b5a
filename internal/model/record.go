// Package model holds the persisted shapes shared by the store and its callers.
package model

import (
	"encoding/json"
	"time"
)

// ComputationKind names the engine that produced a record.
type ComputationKind string

const (
	KindBreakEven ComputationKind = "breakeven"
	KindKPI       ComputationKind = "kpi"
)

// Valid reports whether k is a known kind.
func (k ComputationKind) Valid() bool {
	return k == KindBreakEven || k == KindKPI
}

// ComputationRecord is one entry in the audit trail. Subject is the branch
// name for break-even runs and the agent id for KPI runs. Exactly one of
// Result and Error is set.
type ComputationRecord struct {
	ID        string          `json:"id"`
	Kind      ComputationKind `json:"kind"`
	Subject   string          `json:"subject"`
	Inputs    json.RawMessage `json:"inputs"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Failed reports whether the computation ended in an error.
func (r ComputationRecord) Failed() bool {
	return r.Error != ""
}
