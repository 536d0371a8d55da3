package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "test error message")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeCatalog, "failed to open %s", "catalog.duckdb")

	assert.Equal(t, ErrTypeCatalog, err.Type)
	assert.Equal(t, "failed to open catalog.duckdb", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeNetwork, "network operation failed")

	assert.Equal(t, ErrTypeNetwork, wrappedErr.Type)
	assert.Equal(t, "network operation failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeNetwork,
		"failed to connect to %s:%d",
		"localhost",
		8080,
	)

	assert.Equal(t, ErrTypeNetwork, wrappedErr.Type)
	assert.Equal(t, "failed to connect to localhost:8080", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeValidation,
				Message: "invalid input",
			},
			expected: "validation: invalid input",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeRocksetAPI,
				Message: "describe failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "rockset_api: describe failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeNetwork, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeAuth, "authentication failed")
	err = err.WithSuggestion("Create a new API key")
	err = err.WithSuggestion("Check the key's role")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Create a new API key")
	assert.Contains(t, err.Suggestions, "Check the key's role")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeValidation, "validation error")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypeValidation))
	assert.False(t, IsType(structErr, ErrTypeCatalog))
	assert.False(t, IsType(regularErr, ErrTypeValidation))
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeRocksetAPI, "API error")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeRocksetAPI, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "log_level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "log_level")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
	assert.Contains(t, err.Suggestions, "Run with --help to see valid configuration options")
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}

func TestNewUnauthorizedError(t *testing.T) {
	err := NewUnauthorizedError()

	assert.True(t, IsType(err, ErrTypeAuth))
	assert.Equal(t, UnauthorizedMessage, err.Message)
	assert.NoError(t, err.Cause)
	assert.Equal(t, "auth: Unauthorized access. Please check your API key.", err.Error())
	assert.NotEmpty(t, err.Suggestions)
}

func TestGetSuggestions(t *testing.T) {
	wrapped := fmt.Errorf("export failed: %w", NewConfigError("bad", ""))

	assert.Len(t, GetSuggestions(wrapped), 2)
	assert.Nil(t, GetSuggestions(errors.New("plain")))
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrTypeRocksetAPI, "rockset_api"},
		{ErrTypeCatalog, "catalog"},
		{ErrTypeValidation, "validation"},
		{ErrTypeConfig, "config"},
		{ErrTypeNetwork, "network"},
		{ErrTypeAuth, "auth"},
		{ErrTypeFileSystem, "filesystem"},
		{ErrTypeInternal, "internal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}
