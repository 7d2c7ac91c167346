package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name:     "with field and value",
			err:      &ValidationError{Field: "type", Value: "phone", Message: "unsupported search type"},
			expected: `validation failed for type="phone": unsupported search type`,
		},
		{
			name:     "with field only",
			err:      &ValidationError{Field: "term", Message: "term is required"},
			expected: "validation failed for term: term is required",
		},
		{
			name:     "message only",
			err:      &ValidationError{Message: "bad input"},
			expected: "validation failed: bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("ip", "999.1.1.1", "not an IP address")

	if err.Field != "ip" {
		t.Errorf("Field = %q, want %q", err.Field, "ip")
	}
	if err.Value != "999.1.1.1" {
		t.Errorf("Value = %q, want %q", err.Value, "999.1.1.1")
	}
	if err.Message != "not an IP address" {
		t.Errorf("Message = %q, want %q", err.Message, "not an IP address")
	}
}

func TestDecodeError(t *testing.T) {
	inner := errors.New("invalid character '<'")
	err := &DecodeError{Endpoint: "/data/search", Status: 502, Body: "<html>", Err: inner}

	want := `decode /data/search response (status 502): invalid character '<': <html>`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, inner) {
		t.Error("DecodeError should unwrap to the underlying error")
	}

	noBody := &DecodeError{Endpoint: "/tools/ip-whois", Status: 200, Err: inner}
	want = `decode /tools/ip-whois response (status 200): invalid character '<'`
	if got := noBody.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", NewValidationError("term", "", "required"), true},
		{"wrapped validation error", fmt.Errorf("search: %w", NewValidationError("term", "", "required")), true},
		{"decode error", &DecodeError{Err: errors.New("x")}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDecode(t *testing.T) {
	decodeErr := &DecodeError{Endpoint: "/data/search", Err: errors.New("unexpected EOF")}

	if !IsDecode(decodeErr) {
		t.Error("IsDecode should be true for DecodeError")
	}
	if !IsDecode(fmt.Errorf("hash lookup: %w", decodeErr)) {
		t.Error("IsDecode should be true for wrapped DecodeError")
	}
	if IsDecode(NewValidationError("term", "", "required")) {
		t.Error("IsDecode should be false for ValidationError")
	}
}
