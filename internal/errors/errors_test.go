package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorChain(t *testing.T) {
	cause := fs.ErrNotExist
	err := fmt.Errorf("startup: %w", NewFatalError("ledger missing", cause).WithContext("path", "x.xlsx"))

	assert.True(t, IsFatal(err))
	assert.Equal(t, ErrTypeFatal, TypeOf(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "x.xlsx", appErr.Context["path"])
	assert.Contains(t, appErr.Error(), "[FATAL] ledger missing")
}

func TestTypeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("x")))
	assert.False(t, IsFatal(nil))
}

func TestUpstreamErrorCarriesStatus(t *testing.T) {
	err := NewUpstreamError("marinetraffic", 503)
	assert.Equal(t, 503, err.Context["status"])
	assert.Equal(t, "[UPSTREAM] marinetraffic returned HTTP 503", err.Error())
}

func TestNotFoundErrorType(t *testing.T) {
	cause := errors.New("disabled")
	err := NewNotFoundError("metrics exporter", cause)
	assert.Equal(t, ErrTypeNotFound, TypeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[NOT_FOUND] metrics exporter not found: disabled", err.Error())
}

func TestProblemDetailsMarshal(t *testing.T) {
	pd := NewProblemDetails(400, TypeValidation, "Bad Request", "grade is required", "/api/dashboard").
		WithExtension("error_code", "VALIDATION_FAILED").
		WithExtension("status", 999)

	raw, err := json.Marshal(pd)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, float64(400), out["status"])
	assert.Equal(t, "VALIDATION_FAILED", out["error_code"])
	assert.Equal(t, "grade is required", out["detail"])
}

func TestProblemDetailsOmitsEmptyMembers(t *testing.T) {
	raw, err := json.Marshal(&ProblemDetails{Type: TypeInternal, Title: "x", Status: 500})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "detail")
	assert.NotContains(t, string(raw), "instance")
}
