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
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Aliases kept for call-site brevity.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeDatabaseError  = ErrCodeDatabaseError
	CodeDBQueryError   = ErrCodeDatabaseError
	CodeCacheError     = ErrCodeCacheError
	CodeOK             = ErrorCode("OK")
)

// HSP Fitting Module Error Codes
const (
	ErrCodeHSPInsufficientData  ErrorCode = "HSP_001"
	ErrCodeHSPUnknownLoss       ErrorCode = "HSP_002"
	ErrCodeHSPInvalidParameter  ErrorCode = "HSP_003"
	ErrCodeHSPOptimizerDiverged ErrorCode = "HSP_004"
	ErrCodeHSPInvalidBounds     ErrorCode = "HSP_005"
	ErrCodeHSPInvalidScore      ErrorCode = "HSP_006"
)

// Solvent Module Error Codes
const (
	ErrCodeSolventNotFound      ErrorCode = "SOL_001"
	ErrCodeSolventAlreadyExists ErrorCode = "SOL_002"
	ErrCodeSolventInvalidRecord ErrorCode = "SOL_003"
	ErrCodeSolventImportFailed  ErrorCode = "SOL_004"
)

// Experiment Module Error Codes
const (
	ErrCodeExperimentNotFound        ErrorCode = "EXP_001"
	ErrCodeExperimentAlreadyExists   ErrorCode = "EXP_002"
	ErrCodeExperimentInvalidMode     ErrorCode = "EXP_003"
	ErrCodeExperimentInvalidTest     ErrorCode = "EXP_004"
	ErrCodeExperimentNotFitted       ErrorCode = "EXP_005"
	ErrCodeExperimentPublishFailed   ErrorCode = "EXP_006"
)

// Prediction Module Error Codes
const (
	ErrCodePredictorInvalidSMILES  ErrorCode = "PRED_001"
	ErrCodePredictorModelNotLoaded ErrorCode = "PRED_002"
	ErrCodePredictorInferenceError ErrorCode = "PRED_003"
)

// Visualization Module Error Codes
const (
	ErrCodeVisualizationFailed       ErrorCode = "VIS_001"
	ErrCodeVisualizationNoSphere     ErrorCode = "VIS_002"
	ErrCodeVisualizationUnsupported  ErrorCode = "VIS_003"
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
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeHSPInsufficientData:  http.StatusBadRequest,
	ErrCodeHSPUnknownLoss:       http.StatusBadRequest,
	ErrCodeHSPInvalidParameter:  http.StatusBadRequest,
	ErrCodeHSPOptimizerDiverged: http.StatusInternalServerError,
	ErrCodeHSPInvalidBounds:     http.StatusBadRequest,
	ErrCodeHSPInvalidScore:      http.StatusBadRequest,

	ErrCodeSolventNotFound:      http.StatusNotFound,
	ErrCodeSolventAlreadyExists: http.StatusConflict,
	ErrCodeSolventInvalidRecord: http.StatusBadRequest,
	ErrCodeSolventImportFailed:  http.StatusInternalServerError,

	ErrCodeExperimentNotFound:      http.StatusNotFound,
	ErrCodeExperimentAlreadyExists: http.StatusConflict,
	ErrCodeExperimentInvalidMode:   http.StatusBadRequest,
	ErrCodeExperimentInvalidTest:   http.StatusBadRequest,
	ErrCodeExperimentNotFitted:     http.StatusConflict,
	ErrCodeExperimentPublishFailed: http.StatusInternalServerError,

	ErrCodePredictorInvalidSMILES:  http.StatusBadRequest,
	ErrCodePredictorModelNotLoaded: http.StatusServiceUnavailable,
	ErrCodePredictorInferenceError: http.StatusInternalServerError,

	ErrCodeVisualizationFailed:      http.StatusInternalServerError,
	ErrCodeVisualizationNoSphere:    http.StatusConflict,
	ErrCodeVisualizationUnsupported: http.StatusBadRequest,
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
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeHSPInsufficientData:  "insufficient observations for sphere fitting",
	ErrCodeHSPUnknownLoss:       "unknown loss function",
	ErrCodeHSPInvalidParameter:  "invalid Hansen parameter",
	ErrCodeHSPOptimizerDiverged: "optimizer failed to converge",
	ErrCodeHSPInvalidBounds:     "invalid optimization bounds",
	ErrCodeHSPInvalidScore:      "solubility score out of range",

	ErrCodeSolventNotFound:      "solvent not found",
	ErrCodeSolventAlreadyExists: "solvent already exists",
	ErrCodeSolventInvalidRecord: "invalid solvent record",
	ErrCodeSolventImportFailed:  "solvent import failed",

	ErrCodeExperimentNotFound:      "experiment not found",
	ErrCodeExperimentAlreadyExists: "experiment already exists",
	ErrCodeExperimentInvalidMode:   "invalid experiment mode",
	ErrCodeExperimentInvalidTest:   "invalid solubility test",
	ErrCodeExperimentNotFitted:     "experiment has no fitted sphere",
	ErrCodeExperimentPublishFailed: "failed to publish experiment event",

	ErrCodePredictorInvalidSMILES:  "invalid SMILES format",
	ErrCodePredictorModelNotLoaded: "prediction model not loaded",
	ErrCodePredictorInferenceError: "property prediction failed",

	ErrCodeVisualizationFailed:      "visualization rendering failed",
	ErrCodeVisualizationNoSphere:    "no fitted sphere to visualize",
	ErrCodeVisualizationUnsupported: "unsupported visualization format",
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
