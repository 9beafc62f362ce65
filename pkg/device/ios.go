// Package device locates the attached iOS device and the address of the
// XCTest runner serving it.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpaulus/go-ios/ios"

	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// Runner ports are spread over a range so several devices can be driven
// from one host.
const (
	runnerBasePort  = 22087
	runnerPortRange = 1000
)

// Device is an iOS device attached over usbmux.
type Device struct {
	UDID  string
	Entry ios.DeviceEntry
}

// Resolve finds the attached device with the given UDID, or the first
// attached device when udid is empty.
func Resolve(udid string) (*Device, error) {
	entry, err := ios.GetDevice(udid)
	if err != nil {
		if udid == "" {
			return nil, fmt.Errorf("no iOS device attached: %w\n"+
				"Hint: connect a device or pass --daemon-url for a simulator runner", err)
		}
		return nil, fmt.Errorf("device %s not attached: %w", udid, err)
	}

	d := &Device{UDID: entry.Properties.SerialNumber, Entry: entry}
	logger.Info("using iOS device %s", d.UDID)
	return d, nil
}

// List returns the UDIDs of every attached device.
func List() ([]string, error) {
	list, err := ios.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	udids := make([]string, 0, len(list.DeviceList))
	for _, entry := range list.DeviceList {
		udids = append(udids, entry.Properties.SerialNumber)
	}
	return udids, nil
}

// RunnerURL returns the runner address of this device.
func (d *Device) RunnerURL() string {
	return RunnerURL(d.UDID)
}

// RunnerPort derives a stable runner port from the last UDID segment.
// Non-hex UDIDs fall back to the base port.
func RunnerPort(udid string) uint16 {
	seg := udid
	if idx := strings.LastIndex(udid, "-"); idx >= 0 {
		seg = udid[idx+1:]
	}
	val, err := strconv.ParseUint(seg, 16, 64)
	if err != nil {
		return runnerBasePort
	}
	return runnerBasePort + uint16(val%runnerPortRange)
}

// RunnerURL returns the local runner address for udid.
func RunnerURL(udid string) string {
	return fmt.Sprintf("http://127.0.0.1:%d", RunnerPort(udid))
}
