package errors

import (
	"fmt"
	"testing"
)

func TestErrorBuilder(t *testing.T) {
	err := NewError(ErrorTypeValidation).
		WithMessage("invalid column").
		WithSeverity(SeverityLow).
		WithContext("column", "Code Snippet").
		WithSuggestion("Check the dataset header").
		WithRecoverable(true).
		Build()

	spErr, ok := err.(*secpatchError)
	if !ok {
		t.Fatal("Expected *secpatchError")
	}

	if spErr.Type() != ErrorTypeValidation {
		t.Errorf("Expected ErrorTypeValidation, got %v", spErr.Type())
	}

	if spErr.Severity() != SeverityLow {
		t.Errorf("Expected SeverityLow, got %v", spErr.Severity())
	}

	if !spErr.IsRecoverable() {
		t.Error("Expected error to be recoverable")
	}

	suggestions := spErr.Suggestions()
	if len(suggestions) != 1 || suggestions[0] != "Check the dataset header" {
		t.Errorf("Expected suggestion not found: %v", suggestions)
	}

	context := spErr.Context()
	if context["column"] != "Code Snippet" {
		t.Errorf("Expected context column 'Code Snippet', got %v", context["column"])
	}
}

func TestErrorMessage(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := NewError(ErrorTypePattern).
		WithMessage("detector failed").
		WithCause(cause).
		WithSeverity(SeverityMedium).
		Build()

	expectedMsg := "[pattern:medium] detector failed caused by: underlying error"
	if err.Error() != expectedMsg {
		t.Errorf("Expected message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestConvenienceErrors(t *testing.T) {
	tests := []struct {
		name                string
		errFunc             func() error
		expectedType        ErrorType
		expectedRecoverable bool
	}{
		{
			name:                "ValidationError",
			errFunc:             func() error { return ValidationError("test validation") },
			expectedType:        ErrorTypeValidation,
			expectedRecoverable: true,
		},
		{
			name:                "ConfigurationError",
			errFunc:             func() error { return ConfigurationError("bad workers") },
			expectedType:        ErrorTypeConfiguration,
			expectedRecoverable: true,
		},
		{
			name:                "DatasetError",
			errFunc:             func() error { return DatasetError("LOIS.csv", fmt.Errorf("no such file")) },
			expectedType:        ErrorTypeDataset,
			expectedRecoverable: false,
		},
		{
			name:                "PatternError",
			errFunc:             func() error { return PatternError("http-param", fmt.Errorf("boom")) },
			expectedType:        ErrorTypePattern,
			expectedRecoverable: true,
		},
		{
			name:                "CapabilityError",
			errFunc:             func() error { return CapabilityError("CALIBRE") },
			expectedType:        ErrorTypeRemediation,
			expectedRecoverable: true,
		},
		{
			name:                "PipelineError",
			errFunc:             func() error { return PipelineError("input", fmt.Errorf("panic")) },
			expectedType:        ErrorTypePipeline,
			expectedRecoverable: true,
		},
		{
			name:                "FileSystemError",
			errFunc:             func() error { return FileSystemError("write", "out.csv", fmt.Errorf("denied")) },
			expectedType:        ErrorTypeFileSystem,
			expectedRecoverable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.errFunc()

			if !IsType(err, tt.expectedType) {
				t.Errorf("Expected error type %v", tt.expectedType)
			}

			if IsRecoverable(err) != tt.expectedRecoverable {
				t.Errorf("Expected recoverable %v, got %v", tt.expectedRecoverable, IsRecoverable(err))
			}
		})
	}
}

func TestErrorTypeChecking(t *testing.T) {
	datasetErr := DatasetError("missing.csv", fmt.Errorf("open missing.csv: no such file"))

	if !IsType(datasetErr, ErrorTypeDataset) {
		t.Error("Expected dataset error to be of type Dataset")
	}

	if IsType(datasetErr, ErrorTypeValidation) {
		t.Error("Expected dataset error not to be of type Validation")
	}

	if spErr, ok := asSecpatchError(datasetErr); !ok || spErr.Severity() != SeverityHigh {
		t.Error("Expected dataset error to be high severity")
	}

	suggestions := GetSuggestions(datasetErr)
	if len(suggestions) == 0 {
		t.Error("Expected dataset error to have suggestions")
	}

	if GetContext(datasetErr)["path"] != "missing.csv" {
		t.Errorf("Expected path context, got %v", GetContext(datasetErr))
	}

	// Wrapped errors are still recognized
	wrapped := fmt.Errorf("batch: %w", CapabilityError("GHOSTSCRIPT"))
	if !IsType(wrapped, ErrorTypeRemediation) {
		t.Error("Expected wrapped capability error to keep its type")
	}

	regularErr := fmt.Errorf("regular error")
	if IsType(regularErr, ErrorTypeDataset) {
		t.Error("Expected regular error not to be typed")
	}

	if IsRecoverable(regularErr) {
		t.Error("Expected regular error not to be recoverable")
	}

	if GetContext(regularErr) != nil {
		t.Error("Expected no context for regular error")
	}
}

func TestErrorTypeStrings(t *testing.T) {
	if ErrorTypePipeline.String() != "pipeline" {
		t.Errorf("Expected 'pipeline', got %s", ErrorTypePipeline.String())
	}
	if ErrorType(99).String() != "unknown" {
		t.Errorf("Expected 'unknown', got %s", ErrorType(99).String())
	}
	if SeverityHigh.String() != "high" {
		t.Errorf("Expected 'high', got %s", SeverityHigh.String())
	}
}
