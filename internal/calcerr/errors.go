// Package calcerr defines the business errors returned by the computation engines.
//
// These are user-facing validation messages, not internal diagnostics: callers
// surface Error() verbatim. Match them with errors.As; eris wraps preserve them.
package calcerr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports the first input that violates its documented bound.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DegenerateModelError means the commission and tax burden consumes all gross
// revenue, so no finite positive break-even point exists.
type DegenerateModelError struct {
	NetRevPer1M float64 `json:"net_rev_per_1m"`
}

func (e *DegenerateModelError) Error() string {
	return fmt.Sprintf(
		"net revenue per 1,000,000 EGP sold is %.2f (must be > 0): commissions and taxes consume all gross revenue, adjust commission or tax assumptions",
		e.NetRevPer1M,
	)
}

// InsufficientDataError means no daily logs exist for the scored period.
// It is distinct from a legitimate zero score.
type InsufficientDataError struct {
	AgentID string `json:"agent_id,omitempty"`
	Month   string `json:"month,omitempty"`
}

func (e *InsufficientDataError) Error() string {
	switch {
	case e.AgentID != "" && e.Month != "":
		return fmt.Sprintf("no daily logs recorded for agent %s in %s", e.AgentID, e.Month)
	case e.AgentID != "":
		return fmt.Sprintf("no daily logs recorded for agent %s", e.AgentID)
	default:
		return "no daily logs recorded for the period"
	}
}

// IsUserFacing reports whether err (or anything it wraps) is one of the
// business errors above.
func IsUserFacing(err error) bool {
	var ve *ValidationError
	var de *DegenerateModelError
	var ie *InsufficientDataError
	return errors.As(err, &ve) || errors.As(err, &de) || errors.As(err, &ie)
}

// HTTPStatus maps an error to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var de *DegenerateModelError
	var ie *InsufficientDataError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ie):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text to show an end user. Business errors are returned
// without wrap prefixes; anything else collapses to a generic message.
func Message(err error) string {
	var ve *ValidationError
	var de *DegenerateModelError
	var ie *InsufficientDataError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &de):
		return de.Error()
	case errors.As(err, &ie):
		return ie.Error()
	default:
		return "internal error"
	}
}
