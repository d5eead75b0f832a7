package confgen_test

import (
	"strings"
	"testing"

	"platter/internal/confgen"
	"platter/internal/disk"
)

func protectedAssignment(t *testing.T) disk.Assignment {
	t.Helper()
	return disk.BuildAssignment([]disk.Spec{
		{ID: "sda", Role: disk.RoleData, Format: true},
		{ID: "sdb", Role: disk.RoleData, Format: true},
		{ID: "sdc", Role: disk.RoleParity, Format: true},
		{ID: "sdd", Role: disk.RoleParity, Format: true},
	}, "/mnt")
}

func TestSnapraidConfParityDirectives(t *testing.T) {
	conf := confgen.SnapraidConf(protectedAssignment(t))

	if !strings.Contains(conf, "parity /mnt/parity1/snapraid.parity\n") {
		t.Fatalf("missing first parity directive:\n%s", conf)
	}
	if !strings.Contains(conf, "2-parity /mnt/parity2/snapraid.parity\n") {
		t.Fatalf("missing numbered parity directive:\n%s", conf)
	}
}

func TestSnapraidConfContentFiles(t *testing.T) {
	conf := confgen.SnapraidConf(protectedAssignment(t))

	for _, line := range []string{
		"content /mnt/disk1/.content\n",
		"content /mnt/disk2/.content\n",
		"content /mnt/parity1/.content\n",
	} {
		if !strings.Contains(conf, line) {
			t.Fatalf("missing %q in:\n%s", line, conf)
		}
	}
	if got := strings.Count(conf, "\ncontent "); got != 3 {
		t.Fatalf("expected 3 content lines, got %d:\n%s", got, conf)
	}
	if strings.Contains(conf, "content /mnt/parity2") {
		t.Fatalf("second parity disk should not carry a content file:\n%s", conf)
	}
}

func TestSnapraidConfDiskLines(t *testing.T) {
	conf := confgen.SnapraidConf(protectedAssignment(t))

	if !strings.Contains(conf, "disk d1 /mnt/disk1/\n") {
		t.Fatalf("missing disk d1 line:\n%s", conf)
	}
	if !strings.Contains(conf, "disk d2 /mnt/disk2/\n") {
		t.Fatalf("missing disk d2 line:\n%s", conf)
	}
}

func TestSnapraidConfOmitsParityBlockWithoutParityDisks(t *testing.T) {
	a := disk.BuildAssignment([]disk.Spec{
		{ID: "sda", Role: disk.RoleData},
	}, "/mnt")

	conf := confgen.SnapraidConf(a)
	if strings.Contains(conf, "snapraid.parity") {
		t.Fatalf("parity directive emitted for a pool without parity disks:\n%s", conf)
	}
	if strings.Contains(conf, "# Parity files") {
		t.Fatalf("parity section header emitted for a pool without parity disks:\n%s", conf)
	}
	if !strings.Contains(conf, "disk d1 /mnt/disk1/\n") {
		t.Fatalf("data disk line missing:\n%s", conf)
	}
}

func TestSnapraidConfExcludeBlock(t *testing.T) {
	conf := confgen.SnapraidConf(protectedAssignment(t))

	for _, pattern := range []string{"*.unrecoverable", "/tmp/", "/lost+found/", ".content", "*.bak"} {
		if !strings.Contains(conf, "exclude "+pattern+"\n") {
			t.Fatalf("missing exclude %s in:\n%s", pattern, conf)
		}
	}
}

func TestSnapraidConfDeterministic(t *testing.T) {
	a := protectedAssignment(t)
	if confgen.SnapraidConf(a) != confgen.SnapraidConf(a) {
		t.Fatal("identical assignments produced different output")
	}
}
