// Package errors provides standardized error handling for the dashboard
// API and BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePredictionInputInvalid ErrorCode = "PREDICTION_INPUT_INVALID"
	ErrCodePredictionFailed       ErrorCode = "PREDICTION_FAILED"
	ErrCodePredictionTimeout      ErrorCode = "PREDICTION_TIMEOUT"
	ErrCodeNoResultFound          ErrorCode = "NO_RESULT_FOUND"

	ErrCodeUnknownRegion   ErrorCode = "UNKNOWN_REGION"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeWeatherUnavailable ErrorCode = "WEATHER_UNAVAILABLE"
	ErrCodeWeatherFetchFailed ErrorCode = "WEATHER_FETCH_FAILED"

	ErrCodeMarketTrendEmpty  ErrorCode = "MARKET_TREND_EMPTY"
	ErrCodeMarketTrendFailed ErrorCode = "MARKET_TREND_FAILED"

	ErrCodePDFExportFailed ErrorCode = "PDF_EXPORT_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewPredictionInputInvalidError reports form fields that failed schema validation.
func NewPredictionInputInvalidError(details string) *StandardError {
	return newError(ErrCodePredictionInputInvalid, "Prediction input failed validation", details, false)
}

// NewPredictionFailedError wraps a prediction service failure.
func NewPredictionFailedError(err error) *StandardError {
	return newError(ErrCodePredictionFailed, "Prediction service error", err.Error(), true)
}

// NewPredictionRejectedError reports an error body returned by the prediction service.
func NewPredictionRejectedError(message string) *StandardError {
	return newError(ErrCodePredictionFailed, "Prediction service rejected the request", message, false)
}

func NewPredictionTimeoutError() *StandardError {
	return newError(ErrCodePredictionTimeout, "Prediction service timeout", "request exceeded the configured timeout", true)
}

// NewNoResultFoundError is returned when the dashboard is opened without a prediction.
func NewNoResultFoundError(sessionID string) *StandardError {
	return newError(ErrCodeNoResultFound, "Sorry, no result found. Please try again.", fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewUnknownRegionError(region string) *StandardError {
	return newError(ErrCodeUnknownRegion, "Unknown district", fmt.Sprintf("region: %s", region), false)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found or expired", fmt.Sprintf("sessionId: %s", sessionID), false)
}

// NewWeatherUnavailableError tags the "unavailable" weather fallback.
func NewWeatherUnavailableError(district, reason string) *StandardError {
	return newError(ErrCodeWeatherUnavailable, "Weather service reported no data", fmt.Sprintf("district: %s, reason: %s", district, reason), false)
}

// NewWeatherFetchFailedError tags the "error" weather fallback.
func NewWeatherFetchFailedError(district string, err error) *StandardError {
	return newError(ErrCodeWeatherFetchFailed, "Weather fetch failed", fmt.Sprintf("district: %s, error: %s", district, err.Error()), true)
}

func NewMarketTrendEmptyError(crop string) *StandardError {
	return newError(ErrCodeMarketTrendEmpty, "No market trend data", fmt.Sprintf("crop: %s", crop), false)
}

func NewMarketTrendFailedError(crop string, err error) *StandardError {
	return newError(ErrCodeMarketTrendFailed, "Market trend fetch failed", fmt.Sprintf("crop: %s, error: %s", crop, err.Error()), true)
}

func NewPDFExportFailedError(err error) *StandardError {
	return newError(ErrCodePDFExportFailed, "PDF export failed", err.Error(), false)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal codes to the codes thrown to the process engine.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodePredictionInputInvalid: "PREDICTION_INPUT_INVALID",
	ErrCodePredictionFailed:       "PREDICTION_FAILED",
	ErrCodePredictionTimeout:      "PREDICTION_TIMEOUT",
	ErrCodeNoResultFound:          "NO_RESULT_FOUND",
	ErrCodeUnknownRegion:          "UNKNOWN_REGION",
	ErrCodeWeatherUnavailable:     "WEATHER_UNAVAILABLE",
	ErrCodeWeatherFetchFailed:     "WEATHER_FETCH_FAILED",
	ErrCodeMarketTrendEmpty:       "MARKET_TREND_EMPTY",
	ErrCodeMarketTrendFailed:      "MARKET_TREND_FAILED",
	ErrCodePDFExportFailed:        "PDF_EXPORT_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePredictionFailed,
		ErrCodeWeatherFetchFailed,
		ErrCodeMarketTrendFailed:
		return 3

	case ErrCodePredictionTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodePredictionInputInvalid, ErrCodeUnknownRegion:
		return http.StatusBadRequest
	case ErrCodeNoResultFound, ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodePredictionFailed, "EXTERNAL_SERVICE_ERROR":
		return http.StatusBadGateway
	case ErrCodePredictionTimeout, "TIMEOUT_ERROR":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PREDICTION") || strings.Contains(codeStr, "RESULT"):
		return "PREDICTION"
	case strings.Contains(codeStr, "WEATHER"):
		return "WEATHER"
	case strings.Contains(codeStr, "MARKET"):
		return "MARKET"
	case strings.Contains(codeStr, "REGION") || strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "PDF"):
		return "EXPORT"
	default:
		return "OTHER"
	}
}
