package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ReportError represents a categorized failure inside the report engine
type ReportError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *ReportError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e *ReportError) Unwrap() error {
	return e.Err
}

// Error codes for different failure scenarios
const (
	ErrCodeTemplate       = "TEMPLATE_ERROR"
	ErrCodeClassification = "CLASSIFICATION_ERROR"
	ErrCodeConfig         = "CONFIG_ERROR"
	ErrCodeDocument       = "DOCUMENT_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
)

var (
	// ErrNoDocument is returned when replacement is attempted without a document.
	ErrNoDocument = errors.New("no document provided for field replacement")
	// ErrInvalidDocument is returned when a file is not a readable word-processing package.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrTemplateNotLoaded is returned when a report is generated before a template was chosen.
	ErrTemplateNotLoaded = errors.New("no template loaded")
	// ErrGenerationCancelled is returned when the confirmation callback declines to continue.
	ErrGenerationCancelled = errors.New("report generation cancelled")
)

// NewReportError creates a new ReportError
func NewReportError(code, message string, err error) *ReportError {
	re := &ReportError{
		Code:    code,
		Message: message,
		Err:     err,
	}
	if err != nil {
		re.Details = err.Error()
	}
	return re
}

// InstrumentError records a failure while applying one instrument's table.
type InstrumentError struct {
	Instrument string
	Err        error
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("instrument %s: %v", e.Instrument, e.Err)
}

func (e *InstrumentError) Unwrap() error {
	return e.Err
}

// ClassificationError aggregates the failures of a classification pass.
// Instruments that failed are listed; the others were still applied.
type ClassificationError struct {
	Failures []*InstrumentError
	Panic    any
}

// Error implements the error interface
func (e *ClassificationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s: classifier panicked: %v", ErrCodeClassification, e.Panic)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s: %s", ErrCodeClassification, strings.Join(parts, "; "))
}

// Unwrap returns the per-instrument failures
func (e *ClassificationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Instruments lists the instruments that failed
func (e *ClassificationError) Instruments() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Instrument)
	}
	return names
}
