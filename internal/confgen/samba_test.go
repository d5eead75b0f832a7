package confgen_test

import (
	"strings"
	"testing"

	"platter/internal/confgen"
	"platter/internal/disk"
)

func threeDataDisks() disk.Assignment {
	return disk.BuildAssignment([]disk.Spec{
		{ID: "sda", Role: disk.RoleData},
		{ID: "sdb", Role: disk.RoleData},
		{ID: "sdc", Role: disk.RoleData},
		{ID: "sdd", Role: disk.RoleParity},
	}, "/mnt")
}

func TestSharePlanIndividual(t *testing.T) {
	shares := confgen.SharePlan(threeDataDisks(), confgen.ShareModeIndividual, nil, "/srv/pool")

	want := []confgen.Share{
		{Name: "Disk1", Path: "/mnt/disk1"},
		{Name: "Disk2", Path: "/mnt/disk2"},
		{Name: "Disk3", Path: "/mnt/disk3"},
	}
	if len(shares) != len(want) {
		t.Fatalf("expected %d shares, got %d: %v", len(want), len(shares), shares)
	}
	for i, share := range want {
		if shares[i] != share {
			t.Fatalf("share %d = %+v, want %+v", i, shares[i], share)
		}
	}
}

func TestSharePlanMerged(t *testing.T) {
	shares := confgen.SharePlan(threeDataDisks(), confgen.ShareModeMerged, nil, "/srv/pool")

	if len(shares) != 1 {
		t.Fatalf("expected a single share, got %v", shares)
	}
	if shares[0].Name != "Pool" || shares[0].Path != "/srv/pool" {
		t.Fatalf("unexpected merged share: %+v", shares[0])
	}
}

func TestSharePlanCategories(t *testing.T) {
	shares := confgen.SharePlan(threeDataDisks(), confgen.ShareModeCategories, []string{"movies", "tv shows"}, "/srv/pool")

	want := []confgen.Share{
		{Name: "Movies", Path: "/mnt/disk1"},
		{Name: "Tv Shows", Path: "/mnt/disk2"},
		{Name: "Disk3", Path: "/mnt/disk3"},
	}
	if len(shares) != len(want) {
		t.Fatalf("expected %d shares, got %d: %v", len(want), len(shares), shares)
	}
	for i, share := range want {
		if shares[i] != share {
			t.Fatalf("share %d = %+v, want %+v", i, shares[i], share)
		}
	}
}

func TestSambaSharesRendering(t *testing.T) {
	conf := confgen.SambaShares([]confgen.Share{{Name: "Movies", Path: "/mnt/disk1"}})

	if !strings.Contains(conf, "[Movies]\n  path = /mnt/disk1\n") {
		t.Fatalf("missing share section:\n%s", conf)
	}
	for _, line := range []string{
		"  guest ok = no\n",
		"  create mask = 0664\n",
		"  directory mask = 2775\n",
		"  ea support = yes\n",
	} {
		if !strings.Contains(conf, line) {
			t.Fatalf("missing %q in:\n%s", line, conf)
		}
	}
}

func TestSambaSharesDeterministic(t *testing.T) {
	shares := confgen.SharePlan(threeDataDisks(), confgen.ShareModeCategories, []string{"media"}, "/srv/pool")
	if confgen.SambaShares(shares) != confgen.SambaShares(shares) {
		t.Fatal("identical share plans produced different output")
	}
}
