package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeConflict, 409},
		{ErrCodeValidation, 422},
		{ErrCodeResolverCompoundNotFound, 404},
		{ErrCodeResolverUpstreamFailed, 502},
		{ErrCodeResolverRateLimited, 429},
		{ErrCodeStorageGroupNotFound, 404},
		{ErrCodeStorageStateUnsupported, 409},
		{ErrCodeSortRunFailed, 500},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "compound not found in upstream data source", DefaultMessageForCode(ErrCodeResolverCompoundNotFound))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeResolverRateLimited))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeInternal))
	assert.True(t, IsServerError(ErrCodeResolverUpstreamFailed))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "CMPD", ModuleForCode(ErrCodeCompoundNotFound))
	assert.Equal(t, "RESV", ModuleForCode(ErrCodeResolverCompoundNotFound))
	assert.Equal(t, "CLS", ModuleForCode(ErrCodeClassificationFailed))
	assert.Equal(t, "STOR", ModuleForCode(ErrCodeStorageGroupNotFound))
	assert.Equal(t, "SORT", ModuleForCode(ErrCodeSortRunFailed))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	allCodes := []ErrorCode{
		ErrCodeInternal, ErrCodeBadRequest, ErrCodeCompoundNotFound,
		ErrCodeResolverCompoundNotFound, ErrCodeClassificationFailed,
		ErrCodeStorageGroupNotFound, ErrCodeSortRunFailed,
	}
	for _, code := range allCodes {
		assert.Regexp(t, re, string(code))
	}
}

func TestErrorCodeMappings_Completeness(t *testing.T) {
	// Every code in the status map must also carry a default message,
	// and vice versa.
	for code := range ErrorCodeHTTPStatus {
		_, hasMessage := ErrorCodeMessage[code]
		assert.True(t, hasMessage, "missing message for %s", code)
	}
	for code := range ErrorCodeMessage {
		_, hasStatus := ErrorCodeHTTPStatus[code]
		assert.True(t, hasStatus, "missing status for %s", code)
	}
}

//Personal.AI order the ending
