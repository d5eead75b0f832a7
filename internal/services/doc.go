// Package services holds the glue shared by every external-tool client:
// the process runner, the error taxonomy used for status classification,
// and context annotations for correlating log lines with operation runs.
package services
