package ipc

import (
	"platter/internal/appliance"
	"platter/internal/array"
	"platter/internal/deps"
	"platter/internal/disk"
	"platter/internal/journal"
	"platter/internal/state"
	"platter/internal/supervisor"
)

// OperationStatus mirrors the supervisor snapshot for IPC callers.
type OperationStatus = supervisor.Status

// Run mirrors a journal entry for IPC callers.
type Run = journal.Run

// DiskInfo mirrors the appliance inventory DTO.
type DiskInfo = appliance.DiskInfo

// DiskRole mirrors a persisted disk role assignment.
type DiskRole = state.DiskRole

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = deps.Status

// SubmitResult mirrors the appliance pool-configure report.
type SubmitResult = appliance.SubmitResult

// ArrayStatus mirrors the array state report.
type ArrayStatus = array.Status

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and appliance status.
type StatusResponse struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	Backend        string             `json:"backend"`
	PoolConfigured bool               `json:"pool_configured"`
	DiskCount      int                `json:"disk_count"`
	SocketPath     string             `json:"socket_path"`
	LockPath       string             `json:"lock_path"`
	LogPath        string             `json:"log_path"`
	JournalPath    string             `json:"journal_path"`
	HotplugActive  bool               `json:"hotplug_active"`
	ScheduleActive bool               `json:"schedule_active"`
	Dependencies   []DependencyStatus `json:"dependencies,omitempty"`
	Operations     []OperationStatus  `json:"operations,omitempty"`
}

// DiskListRequest fetches the physical disk inventory.
type DiskListRequest struct{}

// DiskListResponse lists discovered disks with their persisted roles.
type DiskListResponse struct {
	Disks []DiskInfo `json:"disks"`
}

// PoolSubmitRequest submits a pool configuration for the parity backend.
type PoolSubmitRequest struct {
	Disks []disk.Spec `json:"disks"`
}

// PoolSubmitResponse reports the configure run outcome.
type PoolSubmitResponse struct {
	Result SubmitResult `json:"result"`
}

// PoolShowRequest fetches the persisted pool configuration.
type PoolShowRequest struct{}

// PoolShowResponse describes the configured pool.
type PoolShowResponse struct {
	Backend    string     `json:"backend"`
	Configured bool       `json:"configured"`
	PoolMount  string     `json:"pool_mount"`
	Disks      []DiskRole `json:"disks,omitempty"`
}

// SyncStartRequest launches a parity sync.
type SyncStartRequest struct{}

// SyncStartResponse reports the new run.
type SyncStartResponse struct {
	RunID  string          `json:"run_id"`
	Status OperationStatus `json:"status"`
}

// SyncStatusRequest fetches the sync tracker snapshot.
type SyncStatusRequest struct{}

// SyncStatusResponse carries the sync tracker snapshot.
type SyncStatusResponse struct {
	Status OperationStatus `json:"status"`
}

// ScrubRunRequest runs a parity scrub to completion.
type ScrubRunRequest struct{}

// ScrubRunResponse carries the finished scrub snapshot.
type ScrubRunResponse struct {
	Status OperationStatus `json:"status"`
}

// ScrubStatusRequest fetches the scrub tracker snapshot.
type ScrubStatusRequest struct{}

// ScrubStatusResponse carries the scrub tracker snapshot.
type ScrubStatusResponse struct {
	Status OperationStatus `json:"status"`
}

// CheckStartRequest launches an array parity check.
type CheckStartRequest struct{}

// CheckStartResponse reports the new run.
type CheckStartResponse struct {
	RunID string `json:"run_id"`
}

// CheckStatusRequest fetches the parity-check tracker snapshot.
type CheckStatusRequest struct{}

// CheckStatusResponse carries the parity-check tracker snapshot.
type CheckStatusResponse struct {
	Status OperationStatus `json:"status"`
}

// ArrayConfigureRequest submits an array configuration for the kernel
// backend.
type ArrayConfigureRequest struct {
	DataDisks  []string `json:"data_disks"`
	ParityDisk string   `json:"parity_disk"`
	ShareMode  string   `json:"share_mode,omitempty"`
}

// ArrayConfigureResponse reports the new configure run.
type ArrayConfigureResponse struct {
	RunID string `json:"run_id"`
}

// ArrayProgressRequest fetches the configure tracker snapshot.
type ArrayProgressRequest struct{}

// ArrayProgressResponse carries the configure tracker snapshot.
type ArrayProgressResponse struct {
	Status OperationStatus `json:"status"`
}

// ArrayStartRequest starts the configured array.
type ArrayStartRequest struct{}

// ArrayStartResponse indicates the array was started.
type ArrayStartResponse struct {
	Started bool `json:"started"`
}

// ArrayStopRequest stops the running array.
type ArrayStopRequest struct{}

// ArrayStopResponse indicates the array was stopped.
type ArrayStopResponse struct {
	Stopped bool `json:"stopped"`
}

// ArrayStatusRequest fetches the live array report.
type ArrayStatusRequest struct{}

// ArrayStatusResponse carries the live array report.
type ArrayStatusResponse struct {
	Status ArrayStatus `json:"status"`
}

// CancelRequest cancels a running operation by kind.
type CancelRequest struct {
	Kind string `json:"kind"`
}

// CancelResponse indicates the cancel was delivered.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// HistoryRequest fetches recent operation runs.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse lists recent operation runs, newest first.
type HistoryResponse struct {
	Runs []Run `json:"runs"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse indicates the shutdown was scheduled.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
