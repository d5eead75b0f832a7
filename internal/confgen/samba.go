package confgen

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"platter/internal/disk"
)

// Share presentation modes for the generated Samba configuration.
const (
	ShareModeIndividual = "individual"
	ShareModeMerged     = "merged"
	ShareModeCategories = "categories"
)

// Share is one exported Samba share: a section name and the directory it
// serves.
type Share struct {
	Name string
	Path string
}

var titleCaser = cases.Title(language.English)

// SharePlan maps the assignment onto share definitions for the chosen mode.
// individual exports one share per data-disk mount, merged a single share
// over the pool mount, and categories one share per data disk named from
// the category list in order. Data disks beyond the list length fall back
// to the DiskN name they would carry in individual mode.
func SharePlan(a disk.Assignment, mode string, categories []string, poolMount string) []Share {
	switch mode {
	case ShareModeMerged:
		return []Share{{Name: "Pool", Path: poolMount}}
	case ShareModeCategories:
		shares := make([]Share, 0, len(a.Data))
		for i, entry := range a.Data {
			name := fmt.Sprintf("Disk%d", entry.Ordinal)
			if i < len(categories) {
				name = titleCaser.String(categories[i])
			}
			shares = append(shares, Share{Name: name, Path: entry.MountPoint})
		}
		return shares
	default:
		shares := make([]Share, 0, len(a.Data))
		for _, entry := range a.Data {
			shares = append(shares, Share{Name: fmt.Sprintf("Disk%d", entry.Ordinal), Path: entry.MountPoint})
		}
		return shares
	}
}

// SambaShares renders the share sections. Masks match the 2775 setgid
// layout applied to the mount points, so files created over the network
// stay group-writable.
func SambaShares(shares []Share) string {
	var b strings.Builder
	b.WriteString("# Samba shares generated by platter\n")
	b.WriteString("# manual edits are replaced on the next pool submission\n")
	for _, share := range shares {
		fmt.Fprintf(&b, "\n[%s]\n", share.Name)
		fmt.Fprintf(&b, "  path = %s\n", share.Path)
		b.WriteString("  browseable = yes\n")
		b.WriteString("  read only = no\n")
		b.WriteString("  guest ok = no\n")
		b.WriteString("  create mask = 0664\n")
		b.WriteString("  directory mask = 2775\n")
		b.WriteString("  ea support = yes\n")
	}
	return b.String()
}
