package compose

import (
	"github.com/kestrelworks/loom/internal/capability"
)

// Status summarizes a validation run.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Code is a stable validation error code. Codes are part of the public
// surface; callers match on them, so they never change meaning.
type Code string

const (
	CodeDuplicate              Code = "COMP-001"
	CodeBehaviorOverlap        Code = "COMP-002"
	CodePrerequisiteMissing    Code = "COMP-003"
	CodeCircularDependency     Code = "COMP-004"
	CodeVersionIncompatibility Code = "COMP-005"
	CodeContractConflict       Code = "COMP-006"
	CodeUnknownBaseTemplate    Code = "COMP-007"
	CodeCapabilityNotFound     Code = "COMP-008"
	CodeInvalidConfig          Code = "COMP-009"
)

// Issue is one structured finding. Every entry carries a suggestion so the
// failure is actionable without reading engine internals.
type Issue struct {
	Code       Code   `json:"code" yaml:"code"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Result accumulates the outcome of one composition run. It is created
// fresh per run and immutable once returned.
type Result struct {
	RunID        string                  `json:"run_id" yaml:"run_id"`
	Status       Status                  `json:"status" yaml:"status"`
	Errors       []Issue                 `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings     []Issue                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Capabilities []capability.Definition `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Contracts    []capability.Contract   `json:"contracts,omitempty" yaml:"contracts,omitempty"`
}

// Passed reports whether the run produced no errors.
func (r Result) Passed() bool {
	return len(r.Errors) == 0
}

// ErrorCodes returns the error codes in report order.
func (r Result) ErrorCodes() []Code {
	codes := make([]Code, 0, len(r.Errors))
	for _, issue := range r.Errors {
		codes = append(codes, issue.Code)
	}
	return codes
}

// HasError reports whether any error carries the given code.
func (r Result) HasError(code Code) bool {
	for _, issue := range r.Errors {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// HasWarning reports whether any warning carries the given code.
func (r Result) HasWarning(code Code) bool {
	for _, issue := range r.Warnings {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func (r *Result) addError(code Code, message, suggestion string) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: message, Suggestion: suggestion})
}

func (r *Result) addWarning(code Code, message, suggestion string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: message, Suggestion: suggestion})
}

func (r *Result) finalize() {
	switch {
	case len(r.Errors) > 0:
		r.Status = StatusFail
	case len(r.Warnings) > 0:
		r.Status = StatusWarning
	default:
		r.Status = StatusPass
	}
}
