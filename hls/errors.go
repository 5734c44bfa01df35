package hls

import (
	"errors"
	"maps"

	"github.com/streamtree/hlstree/logging"
)

// Error codes for manifest-engine failures.
const (
	ErrCodeFetch                 = "FETCH_FAILED"
	ErrCodeMalformedManifest     = "MALFORMED_MANIFEST"
	ErrCodeUnsupportedEncryption = "UNSUPPORTED_ENCRYPTION"
	ErrCodeEmptyTimeline         = "EMPTY_TIMELINE"
	ErrCodeConnection            = "CONNECTION_FAILED"
	ErrCodeInvalidFormat         = "INVALID_FORMAT"
)

// StreamError represents manifest-engine errors with integrated logging.
type StreamError struct {
	URL     string         `json:"url"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Fields  logging.Fields `json:"fields,omitempty"`
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Log logs this error using the global logger.
func (e *StreamError) Log() {
	e.LogWith(logging.GetGlobalLogger())
}

// LogWith logs this error using a specific logger.
func (e *StreamError) LogWith(logger logging.Logger) {
	fields := logging.Fields{
		"url":        e.URL,
		"error_code": e.Code,
	}
	maps.Copy(fields, e.Fields)

	logger.Error(e.Cause, e.Message, fields)
}

// NewStreamError creates a new manifest-engine error.
func NewStreamError(url, code, message string, cause error) *StreamError {
	return &StreamError{
		URL:     url,
		Code:    code,
		Message: message,
		Cause:   cause,
		Fields:  make(logging.Fields),
	}
}

// NewStreamErrorWithFields creates a new manifest-engine error with additional fields.
func NewStreamErrorWithFields(url, code, message string, cause error, fields logging.Fields) *StreamError {
	return &StreamError{
		URL:     url,
		Code:    code,
		Message: message,
		Cause:   cause,
		Fields:  fields,
	}
}

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	return hasCode(err, ErrCodeFetch) || hasCode(err, ErrCodeConnection)
}

// IsMalformedManifest reports whether err is (or wraps) a MalformedManifest error.
func IsMalformedManifest(err error) bool {
	return hasCode(err, ErrCodeMalformedManifest) || hasCode(err, ErrCodeInvalidFormat)
}

func hasCode(err error, code string) bool {
	var se *StreamError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == code
}
