package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an orchestration failure reported to the caller.
type ErrorKind string

const (
	KindInvalidRoot            ErrorKind = "InvalidRoot"
	KindMissingFreshnessMarker ErrorKind = "MissingFreshnessMarker"
	KindInstructionsNotFound   ErrorKind = "InstructionsNotFound"
	KindNoProfilesFound        ErrorKind = "NoProfilesFound"
	KindUnknownProfile         ErrorKind = "UnknownProfile"
	KindSpawnFailure           ErrorKind = "SpawnFailure"
	KindTimedOut               ErrorKind = "TimedOut"
	KindInvalidConfig          ErrorKind = "InvalidConfig"
	KindInternal               ErrorKind = "Internal"
)

// Sentinel errors, one per kind, so callers can use errors.Is.
var (
	ErrInvalidRoot            = errors.New("invalid repository root")
	ErrMissingFreshnessMarker = errors.New("freshness marker missing")
	ErrInstructionsNotFound   = errors.New("instructions document not found")
	ErrNoProfilesFound        = errors.New("no verification profiles found")
	ErrUnknownProfile         = errors.New("unknown verification profile")
	ErrSpawnFailure           = errors.New("failed to spawn command")
	ErrTimedOut               = errors.New("command timed out")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrInternal               = errors.New("internal error")
)

var sentinels = map[ErrorKind]error{
	KindInvalidRoot:            ErrInvalidRoot,
	KindMissingFreshnessMarker: ErrMissingFreshnessMarker,
	KindInstructionsNotFound:   ErrInstructionsNotFound,
	KindNoProfilesFound:        ErrNoProfilesFound,
	KindUnknownProfile:         ErrUnknownProfile,
	KindSpawnFailure:           ErrSpawnFailure,
	KindTimedOut:               ErrTimedOut,
	KindInvalidConfig:          ErrInvalidConfig,
	KindInternal:               ErrInternal,
}

// GuardError is the structured error returned by every operation.
// It carries enough context for the caller to act on it.
type GuardError struct {
	Kind              ErrorKind // Classification of the failure
	Message           string    // Human-readable description
	Path              string    // Offending path, if any
	Profile           string    // Requested profile, if any
	AvailableProfiles []string  // Profiles that were parsed (UnknownProfile only)
	Err               error     // Underlying cause (optional)
}

// NewGuardError creates a GuardError of the given kind.
func NewGuardError(kind ErrorKind, msg string, err error) *GuardError {
	return &GuardError{
		Kind:    kind,
		Message: msg,
		Err:     err,
	}
}

// Error implements the error interface for GuardError.
func (e *GuardError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if e.Path != "" {
		sb.WriteString(fmt.Sprintf(" (path: %s)", e.Path))
	}
	if e.Kind == KindUnknownProfile {
		sb.WriteString(fmt.Sprintf(" (available: %s)", strings.Join(e.AvailableProfiles, ", ")))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *GuardError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the kind, so
// errors.Is(err, ErrUnknownProfile) works without unwrapping by hand.
func (e *GuardError) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the kind of a GuardError anywhere in the chain.
// Errors that are not GuardErrors are classified as Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// ToolError is the wire form of an operation failure.
type ToolError struct {
	Kind              ErrorKind `json:"kind"`
	Message           string    `json:"message"`
	Path              string    `json:"path,omitempty"`
	Profile           string    `json:"profile,omitempty"`
	AvailableProfiles []string  `json:"available_profiles,omitempty"`
}

// ToToolError converts any error into its wire form.
func ToToolError(err error) ToolError {
	var ge *GuardError
	if errors.As(err, &ge) {
		te := ToolError{
			Kind:              ge.Kind,
			Message:           ge.Message,
			Path:              ge.Path,
			Profile:           ge.Profile,
			AvailableProfiles: ge.AvailableProfiles,
		}
		if ge.Err != nil {
			te.Message = fmt.Sprintf("%s: %v", ge.Message, ge.Err)
		}
		return te
	}
	return ToolError{Kind: KindInternal, Message: err.Error()}
}
