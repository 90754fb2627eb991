//nolint:revive // Package name matches the package it tests
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	assert.NotEqual(t, ErrValidation, ErrConnectivity)
	assert.NotEqual(t, ErrValidation, ErrPermission)
	assert.NotEqual(t, ErrValidation, ErrNotFound)
	assert.NotEqual(t, ErrConflict, ErrPermission)
}

func TestDetailErrorError(t *testing.T) {
	detail := &DetailError{
		Type:     "validation failed",
		Message:  "unknown architecture",
		Location: "/repo/.glabu.yaml",
		Field:    "architectures[1]",
		Context:  map[string]string{"Project": "puterize/prebuilt"},
		Hint:     "Use amd64 or arm64",
	}

	output := detail.Error()

	assert.Contains(t, output, "Error: validation failed")
	assert.Contains(t, output, "Location: /repo/.glabu.yaml")
	assert.Contains(t, output, "Field: architectures[1]")
	assert.Contains(t, output, "Project: puterize/prebuilt")
	assert.Contains(t, output, "unknown architecture")
	assert.Contains(t, output, "Hint: Use amd64 or arm64")
}

func TestDetailErrorUnwrap(t *testing.T) {
	detail := &DetailError{
		Type:    "test",
		Message: "test message",
		Cause:   ErrValidation,
	}

	assert.True(t, errors.Is(detail, ErrValidation))
	assert.Equal(t, ErrValidation, detail.Unwrap())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("bad value", "/repo/.glabu.yaml", "compression", "Use upx, zstd or none")

	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var detail *DetailError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, "validation failed", detail.Type)
	assert.Equal(t, "compression", detail.Field)
}

func TestWrap(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "file missing")

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Contains(t, wrapped.Error(), "file missing")
}

func TestExitCodeFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "nil error returns success", err: nil, wantCode: ExitSuccess},
		{name: "validation", err: ErrValidation, wantCode: ExitValidationError},
		{name: "wrapped connectivity", err: fmt.Errorf("upload: %w", ErrConnectivity), wantCode: ExitConnectivityError},
		{name: "permission", err: ErrPermission, wantCode: ExitPermissionDenied},
		{name: "not found", err: Wrap(ErrNotFound, "x"), wantCode: ExitNotFound},
		{name: "conflict", err: ErrConflict, wantCode: ExitConflict},
		{name: "explicit exit error wins", err: NewExitError(ErrConflict, ExitGeneralError), wantCode: ExitGeneralError},
		{name: "unknown error", err: errors.New("boom"), wantCode: ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, ExitCodeFromError(tt.err))
		})
	}
}

func TestExitCodeName(t *testing.T) {
	assert.Equal(t, "Success", ExitCodeName(ExitSuccess))
	assert.Equal(t, "Conflict", ExitCodeName(ExitConflict))
	assert.Equal(t, "Unknown", ExitCodeName(99))
}

func TestExitErrorUnwrap(t *testing.T) {
	err := NewExitError(ErrPermission, ExitPermissionDenied)
	assert.True(t, errors.Is(err, ErrPermission))
	assert.Equal(t, "permission denied", err.Error())
}
