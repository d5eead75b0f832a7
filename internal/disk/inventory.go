package disk

import (
	"sort"

	"github.com/jaypipes/ghw"

	"platter/internal/services"
)

// Physical describes one disk discovered on the host.
type Physical struct {
	Name      string `json:"name"`
	SizeBytes uint64 `json:"sizeBytes"`
	Model     string `json:"model,omitempty"`
	Serial    string `json:"serial,omitempty"`
	WWN       string `json:"wwn,omitempty"`
	DriveType string `json:"driveType,omitempty"`
	Removable bool   `json:"removable,omitempty"`
}

// Inventory lists the physical disks eligible for pool membership, sorted by
// name. Virtual devices (loopbacks, md arrays, optical drives) are filtered
// with the same rules the plan validator applies.
func Inventory() ([]Physical, error) {
	info, err := ghw.Block()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "disk", "inventory", "enumerate block devices", err)
	}

	disks := make([]Physical, 0, len(info.Disks))
	for _, d := range info.Disks {
		if !IsPhysicalName(d.Name) {
			continue
		}
		disks = append(disks, Physical{
			Name:      d.Name,
			SizeBytes: d.SizeBytes,
			Model:     cleanGhwValue(d.Model),
			Serial:    cleanGhwValue(d.SerialNumber),
			WWN:       cleanGhwValue(d.WWN),
			DriveType: d.DriveType.String(),
			Removable: d.IsRemovable,
		})
	}
	sort.Slice(disks, func(i, j int) bool { return disks[i].Name < disks[j].Name })
	return disks, nil
}

// cleanGhwValue drops the "unknown" placeholder sysfs probing reports for
// absent attributes.
func cleanGhwValue(value string) string {
	if value == "unknown" {
		return ""
	}
	return value
}
