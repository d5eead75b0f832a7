package logging

import (
	"context"
	"log/slog"

	"platter/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldOperation is the standardized structured logging key for supervised operation kinds.
	FieldOperation = "operation"
	// FieldDisk is the standardized structured logging key for kernel disk names (sda, nvme0n1).
	FieldDisk = "disk"
	// FieldStep is the standardized structured logging key for pipeline step names.
	FieldStep = "step"
	// FieldBackend is the standardized structured logging key for the active storage backend.
	FieldBackend = "backend"
	// FieldRunID is the standardized structured logging key for operation run identifiers.
	FieldRunID = "run_id"
	// FieldProgressPercent is the standardized structured logging key for operation progress.
	FieldProgressPercent = "progress_percent"
	// FieldCommand is the standardized structured logging key for rendered external commands.
	FieldCommand = "command"
	// FieldExitCode is the standardized structured logging key for subprocess exit codes.
	FieldExitCode = "exit_code"
	// FieldPath is the standardized structured logging key for filesystem paths.
	FieldPath = "path"
	// FieldEventType is the standardized structured logging key classifying notable events.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator remediation hints.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized structured logging key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if op, ok := services.OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
