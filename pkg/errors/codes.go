package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Compound Module Error Codes
const (
	ErrCodeCompoundInvalidSMILES       ErrorCode = "CMPD_001"
	ErrCodeCompoundInvalidName         ErrorCode = "CMPD_002"
	ErrCodeCompoundNotFound            ErrorCode = "CMPD_003"
	ErrCodeCompoundAlreadyExists       ErrorCode = "CMPD_004"
	ErrCodeFingerprintGenerationFailed ErrorCode = "CMPD_005"
	ErrCodeFingerprintTypeUnsupported  ErrorCode = "CMPD_006"
	ErrCodeSimilaritySearchFailed      ErrorCode = "CMPD_007"
	ErrCodeSimilarityThresholdInvalid  ErrorCode = "CMPD_008"
	ErrCodeStatementSearchFailed       ErrorCode = "CMPD_009"
)

// Resolver Module Error Codes (upstream compound data providers)
const (
	ErrCodeResolverCompoundNotFound ErrorCode = "RESV_001"
	ErrCodeResolverUpstreamFailed   ErrorCode = "RESV_002"
	ErrCodeResolverRateLimited      ErrorCode = "RESV_003"
	ErrCodeResolverParseFailed      ErrorCode = "RESV_004"
)

// Classification Module Error Codes
const (
	ErrCodeClassificationFailed  ErrorCode = "CLS_001"
	ErrCodeStructureMatcherError ErrorCode = "CLS_002"
)

// Storage Module Error Codes
const (
	ErrCodeStorageGroupNotFound    ErrorCode = "STOR_001"
	ErrCodeStorageStateUnsupported ErrorCode = "STOR_002"
	ErrCodeStorageGroupExists      ErrorCode = "STOR_003"
)

// Sorting Module Error Codes
const (
	ErrCodeSortRunFailed   ErrorCode = "SORT_001"
	ErrCodeSortRunNotFound ErrorCode = "SORT_002"
	ErrCodeSortBatchEmpty  ErrorCode = "SORT_003"
)

// Aliases used by the factory functions and across layers.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	// Domain specific aliases
	CodeCompoundNotFound      = ErrCodeCompoundNotFound
	CodeCompoundInvalidSMILES = ErrCodeCompoundInvalidSMILES
	CodeStorageGroupNotFound  = ErrCodeStorageGroupNotFound
	CodeSortRunNotFound       = ErrCodeSortRunNotFound
)

// Infrastructure Error Codes (mapped onto common codes)
const (
	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeSearchError       = ErrCodeStatementSearchFailed
	CodeMessageQueueError = ErrCodeExternalService
	CodeObjectStoreError  = ErrCodeExternalService
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeFeatureDisabled:    http.StatusNotImplemented,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeCompoundInvalidSMILES:       http.StatusBadRequest,
	ErrCodeCompoundInvalidName:         http.StatusBadRequest,
	ErrCodeCompoundNotFound:            http.StatusNotFound,
	ErrCodeCompoundAlreadyExists:       http.StatusConflict,
	ErrCodeFingerprintGenerationFailed: http.StatusInternalServerError,
	ErrCodeFingerprintTypeUnsupported:  http.StatusBadRequest,
	ErrCodeSimilaritySearchFailed:      http.StatusInternalServerError,
	ErrCodeSimilarityThresholdInvalid:  http.StatusBadRequest,
	ErrCodeStatementSearchFailed:       http.StatusInternalServerError,

	ErrCodeResolverCompoundNotFound: http.StatusNotFound,
	ErrCodeResolverUpstreamFailed:   http.StatusBadGateway,
	ErrCodeResolverRateLimited:      http.StatusTooManyRequests,
	ErrCodeResolverParseFailed:      http.StatusBadGateway,

	ErrCodeClassificationFailed:  http.StatusInternalServerError,
	ErrCodeStructureMatcherError: http.StatusInternalServerError,

	ErrCodeStorageGroupNotFound:    http.StatusNotFound,
	ErrCodeStorageStateUnsupported: http.StatusConflict,
	ErrCodeStorageGroupExists:      http.StatusConflict,

	ErrCodeSortRunFailed:   http.StatusInternalServerError,
	ErrCodeSortRunNotFound: http.StatusNotFound,
	ErrCodeSortBatchEmpty:  http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeCompoundInvalidSMILES:       "invalid SMILES notation",
	ErrCodeCompoundInvalidName:         "compound name must not be empty",
	ErrCodeCompoundNotFound:            "compound not found",
	ErrCodeCompoundAlreadyExists:       "compound already exists",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeFingerprintTypeUnsupported:  "unsupported fingerprint type",
	ErrCodeSimilaritySearchFailed:      "similarity search failed",
	ErrCodeSimilarityThresholdInvalid:  "invalid similarity threshold",
	ErrCodeStatementSearchFailed:       "hazard statement search failed",

	ErrCodeResolverCompoundNotFound: "compound not found in upstream data source",
	ErrCodeResolverUpstreamFailed:   "upstream compound data source failed",
	ErrCodeResolverRateLimited:      "resolver rate limit wait aborted",
	ErrCodeResolverParseFailed:      "failed to parse upstream response",

	ErrCodeClassificationFailed:  "acid/base classification failed",
	ErrCodeStructureMatcherError: "structure matcher error",

	ErrCodeStorageGroupNotFound:    "storage group not found",
	ErrCodeStorageStateUnsupported: "physical state not supported by storage group",
	ErrCodeStorageGroupExists:      "storage group already exists",

	ErrCodeSortRunFailed:   "sort run failed",
	ErrCodeSortRunNotFound: "sort run not found",
	ErrCodeSortBatchEmpty:  "sort batch contains no compounds",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
