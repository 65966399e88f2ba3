package domain

import (
	"errors"
	"testing"
)

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		cause    error
		expected string
	}{
		{
			name:     "Without cause",
			code:     ErrCodeTemplate,
			message:  "template has no body",
			expected: "TEMPLATE_ERROR: template has no body",
		},
		{
			name:     "With cause",
			code:     ErrCodeDocument,
			message:  "cannot open document",
			cause:    errors.New("zip: not a valid zip file"),
			expected: "DOCUMENT_ERROR: cannot open document (zip: not a valid zip file)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewReportError(tt.code, tt.message, tt.cause)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Error() != tt.expected {
				t.Errorf("Expected error string %q, got %q", tt.expected, err.Error())
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("Expected error to wrap %v", tt.cause)
			}
		})
	}
}

func TestClassificationError(t *testing.T) {
	cause := errors.New("no usable rules")
	err := &ClassificationError{Failures: []*InstrumentError{
		{Instrument: "wisc", Err: cause},
		{Instrument: "bpa", Err: errors.New("bad narrative")},
	}}

	if !errors.Is(err, cause) {
		t.Errorf("Expected ClassificationError to unwrap to the instrument cause")
	}

	var instErr *InstrumentError
	if !errors.As(err, &instErr) || instErr.Instrument != "wisc" {
		t.Errorf("Expected first instrument error to be wisc, got %+v", instErr)
	}

	names := err.Instruments()
	if len(names) != 2 || names[0] != "wisc" || names[1] != "bpa" {
		t.Errorf("Unexpected instrument list %v", names)
	}

	expected := "CLASSIFICATION_ERROR: instrument wisc: no usable rules; instrument bpa: bad narrative"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestClassificationErrorPanic(t *testing.T) {
	err := &ClassificationError{Panic: "index out of range"}

	expected := "CLASSIFICATION_ERROR: classifier panicked: index out of range"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
	if len(err.Instruments()) != 0 {
		t.Errorf("Expected no instruments for panic error")
	}
}
