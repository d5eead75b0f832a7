package confgen

import (
	"fmt"
	"path/filepath"
	"strings"

	"platter/internal/disk"
)

const (
	parityFileName  = "snapraid.parity"
	contentFileName = ".content"
)

// Patterns snapraid should never protect. .content keeps the content files
// themselves out of the parity set.
var snapraidExcludes = []string{
	"*.unrecoverable",
	"/tmp/",
	"/lost+found/",
	".content",
	"*.bak",
}

// SnapraidConf renders the snapraid configuration for the assignment. The
// first parity disk uses the bare "parity" directive, later ones the
// numbered "<n>-parity" form; the parity section is omitted entirely when
// the pool carries no parity disks. Content files live on every data disk
// and on the first parity disk so a single disk failure cannot take out
// every copy.
func SnapraidConf(a disk.Assignment) string {
	var b strings.Builder
	b.WriteString("# snapraid configuration generated by platter\n")
	b.WriteString("# manual edits are replaced on the next pool submission\n")

	if len(a.Parity) > 0 {
		b.WriteString("\n# Parity files\n")
		for i, entry := range a.Parity {
			directive := "parity"
			if i > 0 {
				directive = fmt.Sprintf("%d-parity", i+1)
			}
			fmt.Fprintf(&b, "%s %s\n", directive, filepath.Join(entry.MountPoint, parityFileName))
		}
	}

	b.WriteString("\n# Content files\n")
	for _, entry := range a.Data {
		fmt.Fprintf(&b, "content %s\n", filepath.Join(entry.MountPoint, contentFileName))
	}
	if len(a.Parity) > 0 {
		fmt.Fprintf(&b, "content %s\n", filepath.Join(a.Parity[0].MountPoint, contentFileName))
	}

	b.WriteString("\n# Data disks\n")
	for _, entry := range a.Data {
		fmt.Fprintf(&b, "disk d%d %s/\n", entry.Ordinal, entry.MountPoint)
	}

	b.WriteString("\n# Excludes\n")
	for _, pattern := range snapraidExcludes {
		fmt.Fprintf(&b, "exclude %s\n", pattern)
	}
	return b.String()
}
