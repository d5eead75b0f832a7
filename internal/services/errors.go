package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("operation conflict")
	ErrConfiguration   = errors.New("configuration error")
	ErrBackendMismatch = errors.New("backend mismatch")
	ErrExternalTool    = errors.New("external tool error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Code returns the stable classification string for err so it can cross the
// IPC boundary without losing its sentinel.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBackendMismatch):
		return "backend_mismatch"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "external_tool"
	}
}

// FromCode reconstructs a sentinel-tagged error from a classification code
// produced by Code. Unknown codes map to ErrExternalTool.
func FromCode(code, message string) error {
	message = strings.TrimSpace(message)
	var marker error
	switch code {
	case "":
		return nil
	case "validation":
		marker = ErrValidation
	case "conflict":
		marker = ErrConflict
	case "backend_mismatch":
		marker = ErrBackendMismatch
	case "configuration":
		marker = ErrConfiguration
	case "not_found":
		marker = ErrNotFound
	case "timeout":
		marker = ErrTimeout
	default:
		marker = ErrExternalTool
	}
	message = strings.TrimPrefix(message, marker.Error()+": ")
	if message == "" {
		return marker
	}
	return fmt.Errorf("%w: %s", marker, message)
}
