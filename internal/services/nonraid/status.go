package nonraid

import "strings"

// Status is the parsed output of "nmdctl status".
type Status struct {
	State       string   `json:"state"`
	ParityValid bool     `json:"parityValid"`
	ParityDisk  string   `json:"parityDisk,omitempty"`
	DataDisks   []string `json:"dataDisks,omitempty"`
}

// Started reports whether the array is assembled and running.
func (s Status) Started() bool {
	return strings.EqualFold(s.State, "started")
}

// parseStatus reads the "key: value" lines nmdctl prints. Unknown keys are
// ignored so newer tool versions do not break the daemon.
func parseStatus(lines []string) Status {
	var status Status
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "state":
			status.State = value
		case "parity":
			status.ParityValid = strings.EqualFold(value, "valid")
		case "parity disk":
			status.ParityDisk = value
		case "data disks":
			status.DataDisks = strings.Fields(value)
		}
	}
	return status
}
