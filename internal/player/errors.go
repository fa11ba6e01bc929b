package player

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSegments is returned when a session is configured without any segment
	ErrNoSegments = errors.New("player requires at least one segment")

	// ErrIndexOutOfRange is returned when a jump targets a segment that does not exist
	ErrIndexOutOfRange = errors.New("segment index out of range")

	// ErrMissingDependency is returned when a required capability is not injected
	ErrMissingDependency = errors.New("player dependency missing")
)

// ErrorType classifies a playback failure
type ErrorType int

const (
	// ErrorTypeAssetLoad indicates an image or video failed to fetch or decode
	ErrorTypeAssetLoad ErrorType = iota
	// ErrorTypeAudioRejected indicates the platform declined to start audio
	ErrorTypeAudioRejected
	// ErrorTypeInvalidConfig indicates a precondition violation in the session configuration
	ErrorTypeInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeAssetLoad:
		return "asset_load"
	case ErrorTypeAudioRejected:
		return "audio_rejected"
	case ErrorTypeInvalidConfig:
		return "invalid_config"
	default:
		return "unknown"
	}
}

// ErrorSeverity represents the severity of a playback failure
type ErrorSeverity int

const (
	// SeverityInfo represents expected events that need no attention
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning represents failures playback continues through
	SeverityWarning
	// SeverityError represents failures that prevent a session from running
	SeverityError
)

// String returns the string representation of ErrorSeverity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// PlaybackError is a classified playback failure
type PlaybackError struct {
	Type        ErrorType
	Severity    ErrorSeverity
	Message     string
	Cause       error
	Recoverable bool
}

// NewPlaybackError creates a PlaybackError with the attributes of its type
func NewPlaybackError(errorType ErrorType, message string, cause error) *PlaybackError {
	severity, recoverable := classifyErrorTypeAttributes(errorType)
	return &PlaybackError{
		Type:        errorType,
		Severity:    severity,
		Message:     message,
		Cause:       cause,
		Recoverable: recoverable,
	}
}

// Error implements the error interface
func (e *PlaybackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

func classifyErrorTypeAttributes(errorType ErrorType) (ErrorSeverity, bool) {
	switch errorType {
	case ErrorTypeAssetLoad:
		return SeverityWarning, true // the segment still consumes its time
	case ErrorTypeAudioRejected:
		return SeverityInfo, true // retried on the next user play
	case ErrorTypeInvalidConfig:
		return SeverityError, false
	default:
		return SeverityError, false
	}
}

// IsInvalidConfig reports whether err is a configuration precondition violation
func IsInvalidConfig(err error) bool {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe.Type == ErrorTypeInvalidConfig
	}
	return errors.Is(err, ErrNoSegments)
}

// IsRecoverable reports whether playback continues past err
func IsRecoverable(err error) bool {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}
	return false
}
