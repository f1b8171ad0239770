package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrCodeInvalidInput,
			message:   "Invalid patient profile",
			details:   "request body is not valid JSON",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrCodeDatabase,
			message:   "Trial catalog unavailable",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("stage", "must be I, II, III or IV", "V")

	if err.Field != "stage" {
		t.Errorf("Expected field stage, got %s", err.Field)
	}
	expected := "validation error for field 'stage': must be I, II, III or IV"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	var target *ValidationError
	wrapped := errors.Join(errors.New("decoding profile"), err)
	if !errors.As(wrapped, &target) {
		t.Error("Expected errors.As to find the ValidationError")
	}
}
