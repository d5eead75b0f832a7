package hotplug

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"platter/internal/logging"
)

func TestBuildMatcher(t *testing.T) {
	matcher := buildMatcher()
	if matcher == nil {
		t.Fatal("expected non-nil matcher")
	}

	addEvent := netlink.UEvent{
		Action: netlink.ADD,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
		},
	}
	if !matcher.Evaluate(addEvent) {
		t.Error("expected matcher to accept disk add event")
	}

	removeEvent := netlink.UEvent{
		Action: netlink.REMOVE,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
		},
	}
	if !matcher.Evaluate(removeEvent) {
		t.Error("expected matcher to accept disk remove event")
	}

	changeEvent := netlink.UEvent{
		Action: netlink.CHANGE,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
		},
	}
	if matcher.Evaluate(changeEvent) {
		t.Error("expected matcher to reject change action")
	}

	partitionEvent := netlink.UEvent{
		Action: netlink.ADD,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "partition",
		},
	}
	if matcher.Evaluate(partitionEvent) {
		t.Error("expected matcher to reject partition event")
	}
}

func TestHandleEvent(t *testing.T) {
	t.Run("forwards disk event to handler", func(t *testing.T) {
		var got Event
		m := NewMonitor(logging.NewNop(), func(e Event) { got = e })

		m.handleEvent(netlink.UEvent{
			Action: netlink.ADD,
			Env: map[string]string{
				"DEVNAME": "/dev/sdb",
			},
		})

		if got.Action != "add" || got.Device != "/dev/sdb" {
			t.Errorf("unexpected event: %+v", got)
		}
	})

	t.Run("ignores event without device name", func(t *testing.T) {
		called := false
		m := NewMonitor(logging.NewNop(), func(Event) { called = true })

		m.handleEvent(netlink.UEvent{
			Action: netlink.ADD,
			Env:    map[string]string{},
		})

		if called {
			t.Error("handler should not be called without a device name")
		}
	})

	t.Run("ignores virtual block devices", func(t *testing.T) {
		called := false
		m := NewMonitor(logging.NewNop(), func(Event) { called = true })

		m.handleEvent(netlink.UEvent{
			Action: netlink.ADD,
			Env: map[string]string{
				"DEVNAME": "/dev/loop3",
			},
		})

		if called {
			t.Error("handler should not be called for loop devices")
		}
	})

	t.Run("prefixes bare kernel names", func(t *testing.T) {
		var got Event
		m := NewMonitor(logging.NewNop(), func(e Event) { got = e })

		m.handleEvent(netlink.UEvent{
			Action: netlink.REMOVE,
			Env: map[string]string{
				"DEVNAME": "sdc",
			},
		})

		if got.Device != "/dev/sdc" {
			t.Errorf("expected /dev/sdc, got %s", got.Device)
		}
	})

	t.Run("extracts device from DEVPATH when DEVNAME missing", func(t *testing.T) {
		var got Event
		m := NewMonitor(logging.NewNop(), func(e Event) { got = e })

		m.handleEvent(netlink.UEvent{
			Action: netlink.ADD,
			Env: map[string]string{
				"DEVPATH": "/devices/pci0000:00/0000:00:1f.2/ata2/host1/target1:0:0/1:0:0:0/block/sdb",
			},
		})

		if got.Device != "/dev/sdb" {
			t.Errorf("expected /dev/sdb from DEVPATH, got %s", got.Device)
		}
	})
}

func TestMonitorLifecycleSafety(t *testing.T) {
	t.Run("nil monitor is safe", func(t *testing.T) {
		var m *Monitor
		if m.Running() {
			t.Error("nil monitor should not report running")
		}
		m.Stop() // must not panic
	})

	t.Run("unstarted monitor reports not running", func(t *testing.T) {
		m := NewMonitor(logging.NewNop(), nil)
		if m.Running() {
			t.Error("unstarted monitor should not report running")
		}
	})

	t.Run("double stop is safe", func(t *testing.T) {
		m := NewMonitor(logging.NewNop(), nil)
		m.Stop()
		m.Stop()
	})
}
