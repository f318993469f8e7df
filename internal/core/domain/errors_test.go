package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedProvider", ErrUnsupportedProvider},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorStoreUnavailable", ErrVectorStoreUnavailable},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrStoreClosed", ErrStoreClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that no two sentinels match each other
func TestErrors_Uniqueness(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrNotImplemented,
		ErrUnsupportedProvider,
		ErrEmbeddingUnavailable,
		ErrVectorStoreUnavailable,
		ErrDimensionMismatch,
		ErrStoreClosed,
	}

	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

// TestErrors_WithWrapping tests error wrapping behaviour
func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("upserting emails: %w", ErrDimensionMismatch)

	assert.True(t, errors.Is(wrapped, ErrDimensionMismatch))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "upserting emails: embedding dimension mismatch", wrapped.Error())
}

// TestErrors_ServiceErrors tests service-related errors
func TestErrors_ServiceErrors(t *testing.T) {
	serviceErrors := []error{
		ErrEmbeddingUnavailable,
		ErrVectorStoreUnavailable,
	}

	for _, err := range serviceErrors {
		assert.Contains(t, err.Error(), "unavailable",
			"Service error %v should mention unavailable", err)
	}
}
