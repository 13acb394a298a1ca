package common

import (
	"errors"
	"fmt"
)

// Sentinel causes. Every AnalysisError unwraps to exactly one of these so callers
// can branch with errors.Is without inspecting codes.
var (
	ErrFileNotFound           = errors.New("file not found")
	ErrInvalidParameter       = errors.New("invalid parameter")
	ErrChannelIndexOutOfRange = errors.New("channel index out of range")
	ErrInvalidChannelPair     = errors.New("invalid channel pair")
	ErrIndexOutOfRange        = errors.New("index out of range")
	ErrNotComputed            = errors.New("analysis not computed")
	ErrDecode                 = errors.New("decode failed")
)

// Error codes
const (
	ErrCodeFileNotFound           = "FILE_NOT_FOUND"
	ErrCodeInvalidParameter       = "INVALID_PARAMETER"
	ErrCodeChannelIndexOutOfRange = "CHANNEL_INDEX_OUT_OF_RANGE"
	ErrCodeInvalidChannelPair     = "INVALID_CHANNEL_PAIR"
	ErrCodeIndexOutOfRange        = "INDEX_OUT_OF_RANGE"
	ErrCodeNotComputed            = "NOT_COMPUTED"
	ErrCodeDecode                 = "DECODE_FAILED"
)

// AnalysisError is the structured failure surfaced by every component of the
// pipeline. Parameter and Value identify what the caller got wrong.
type AnalysisError struct {
	Code      string `json:"code"`
	Parameter string `json:"parameter,omitempty"`
	Value     any    `json:"value,omitempty"`
	Message   string `json:"message"`
	Cause     error  `json:"-"`

	// detail is an optional lower-level error (e.g. from a decoder)
	detail error
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.Parameter != "" {
		msg = fmt.Sprintf("%s=%v: %s", e.Parameter, e.Value, e.Message)
	}
	if e.detail != nil {
		msg += ": " + e.detail.Error()
	}
	if e.Cause != nil {
		return e.Cause.Error() + ": " + msg
	}
	return msg
}

// Unwrap exposes both the sentinel and the lower-level error, if any.
func (e *AnalysisError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.detail != nil {
		errs = append(errs, e.detail)
	}
	return errs
}

// NewInvalidParameter reports a non-positive or otherwise unusable parameter.
func NewInvalidParameter(parameter string, value any, message string) *AnalysisError {
	return &AnalysisError{
		Code:      ErrCodeInvalidParameter,
		Parameter: parameter,
		Value:     value,
		Message:   message,
		Cause:     ErrInvalidParameter,
	}
}

// NewChannelIndexOutOfRange reports a channel selection outside [0, channelCount).
func NewChannelIndexOutOfRange(parameter string, index, channelCount int) *AnalysisError {
	return &AnalysisError{
		Code:      ErrCodeChannelIndexOutOfRange,
		Parameter: parameter,
		Value:     index,
		Message:   fmt.Sprintf("must be in [0, %d)", channelCount),
		Cause:     ErrChannelIndexOutOfRange,
	}
}

// NewInvalidChannelPair reports a phase differential requested on a single channel.
func NewInvalidChannelPair(channel int) *AnalysisError {
	return &AnalysisError{
		Code:      ErrCodeInvalidChannelPair,
		Parameter: "channel_pair",
		Value:     [2]int{channel, channel},
		Message:   "phase differential channels must differ",
		Cause:     ErrInvalidChannelPair,
	}
}

// NewIndexOutOfRange reports a frame or time coordinate outside a computed matrix.
func NewIndexOutOfRange(parameter string, value any, message string) *AnalysisError {
	return &AnalysisError{
		Code:      ErrCodeIndexOutOfRange,
		Parameter: parameter,
		Value:     value,
		Message:   message,
		Cause:     ErrIndexOutOfRange,
	}
}

// NewNotComputed reports a query issued before the first successful recompute.
func NewNotComputed(message string) *AnalysisError {
	return &AnalysisError{
		Code:    ErrCodeNotComputed,
		Message: message,
		Cause:   ErrNotComputed,
	}
}

// NewFileNotFound reports a missing input path.
func NewFileNotFound(path string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrCodeFileNotFound,
		Parameter: "path",
		Value:     path,
		Message:   "no such file",
		Cause:     ErrFileNotFound,
		detail:    cause,
	}
}

// NewDecodeError reports an input that exists but could not be decoded.
func NewDecodeError(path string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrCodeDecode,
		Parameter: "path",
		Value:     path,
		Message:   "could not decode audio",
		Cause:     ErrDecode,
		detail:    cause,
	}
}

// IsCode reports whether err is an AnalysisError with the given code.
func IsCode(err error, code string) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
