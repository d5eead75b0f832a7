// Package hotplug watches udev netlink events for block devices appearing
// or disappearing while the daemon runs.
package hotplug

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"platter/internal/logging"
)

// Event describes one block-device change.
type Event struct {
	Action string
	Device string
}

// Monitor listens for whole-disk add and remove events and forwards them to
// a handler. The daemon uses it to invalidate the disk inventory cache and
// to leave an audit trail of disks coming and going.
type Monitor struct {
	logger  *slog.Logger
	handler func(Event)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor creates a monitor that forwards block-device events to handler.
func NewMonitor(logger *slog.Logger, handler func(Event)) *Monitor {
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; disk hotplug events will not be observed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "disk inventory refreshes only on request"),
		)
		return nil // the daemon still works without hotplug events
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit channel to goroutine to avoid reading m.quit without lock
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
	)

	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false

	m.logger.Info("hotplug monitor stopped",
		logging.String(logging.FieldEventType, "hotplug_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("hotplug monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "hotplug_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "disk hotplug events may be missed"),
			)
		}
	}
}

// buildMatcher creates a matcher for whole-disk events:
// SUBSYSTEM=block, DEVTYPE=disk, ACTION=add|remove. Partition events are
// excluded; the inventory cares about disks, not their partitions.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
		},
	})
	return rules
}

// handleEvent processes a matched uevent.
func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	kernelName := strings.TrimPrefix(devname, "/dev/")
	if isVirtualDevice(kernelName) {
		m.logger.Debug("ignoring virtual block device",
			logging.String(logging.FieldDisk, kernelName),
			logging.String("action", string(uevent.Action)),
		)
		return
	}

	m.logger.Info("block device event",
		logging.String(logging.FieldEventType, "hotplug_block_event"),
		logging.String(logging.FieldDisk, kernelName),
		logging.String("action", string(uevent.Action)),
	)

	if m.handler == nil {
		return
	}
	m.handler(Event{Action: string(uevent.Action), Device: devname})
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/") {
			return devname
		}
		return "/dev/" + devname
	}

	// Fall back to DEVPATH (e.g. /devices/pci.../block/sdb)
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}

func isVirtualDevice(kernelName string) bool {
	for _, prefix := range []string{"loop", "ram", "zram", "dm-"} {
		if strings.HasPrefix(kernelName, prefix) {
			return true
		}
	}
	return false
}
