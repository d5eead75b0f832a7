// Package fstab maintains the sentinel-bracketed block of mount entries the
// daemon owns inside the system fstab. Lines outside the block are never
// touched; the block itself is replaced wholesale on every update, so
// resubmitting a pool configuration cannot duplicate entries.
package fstab

import (
	"os"
	"strings"

	"platter/internal/fileutil"
)

const (
	sectionBegin = "# >>> platter managed block >>>"
	sectionEnd   = "# <<< platter managed block <<<"
)

// Render returns the fstab content with the managed block replaced by the
// given entries. The new block sits where the old one was, or at the end of
// the file when no block exists yet. An empty entry list removes the block
// entirely. A begin marker without its end marker claims the rest of the
// file, since everything after a machine-written marker is stale machine
// output.
func Render(existing string, entries []string) string {
	lines := strings.Split(existing, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	kept := make([]string, 0, len(lines))
	insertAt := -1
	inManaged := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == sectionBegin:
			inManaged = true
			if insertAt < 0 {
				insertAt = len(kept)
			}
		case inManaged && trimmed == sectionEnd:
			inManaged = false
		case !inManaged:
			kept = append(kept, line)
		}
	}

	block := managedBlock(entries)
	var out []string
	switch {
	case len(block) == 0:
		out = kept
	case insertAt >= 0:
		out = append(out, kept[:insertAt]...)
		out = append(out, block...)
		out = append(out, kept[insertAt:]...)
	default:
		out = append(out, kept...)
		if len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, block...)
	}

	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// Update rewrites the fstab at path with the managed block replaced,
// creating the file when it does not exist. The write goes through a
// temporary file so a crash cannot leave a truncated fstab.
func Update(path string, entries []string) error {
	existing := ""
	mode := os.FileMode(0o644)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		existing = string(data)
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case os.IsNotExist(err):
	default:
		return err
	}

	rendered := Render(existing, entries)
	if rendered == existing {
		return nil
	}
	return fileutil.WriteFileAtomic(path, []byte(rendered), mode)
}

func managedBlock(entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	block := make([]string, 0, len(entries)+2)
	block = append(block, sectionBegin)
	block = append(block, entries...)
	block = append(block, sectionEnd)
	return block
}
