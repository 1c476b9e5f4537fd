package serialport

import (
	"fmt"
	"os"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Device is one serial-capable device attached to the host.
type Device struct {
	Name         string // OS path, e.g. /dev/ttyACM0 or COM3
	Product      string
	VID          string
	PID          string
	SerialNumber string
	IsUSB        bool
}

// vendors maps USB vendor IDs seen on telemetry radios and flight
// controllers to a readable name.
var vendors = map[string]string{
	"0403": "FTDI",
	"0483": "STMicroelectronics",
	"067B": "Prolific",
	"10C4": "Silicon Labs",
	"1209": "ArduPilot",
	"1A86": "WCH",
	"26AC": "3D Robotics",
	"2DAE": "Hex/ProfiCNC",
	"3162": "Holybro",
}

// Manufacturer names the device vendor, falling back to the raw VID.
func (d Device) Manufacturer() string {
	vid := strings.ToUpper(d.VID)
	if name, ok := vendors[vid]; ok {
		return name
	}
	if vid != "" {
		return "VID " + vid
	}
	return "unknown"
}

func (d Device) String() string {
	product := d.Product
	if product == "" {
		product = d.Name
	}
	if d.IsUSB {
		return fmt.Sprintf("%s [%s:%s] at %s", product, d.VID, d.PID, d.Name)
	}
	return fmt.Sprintf("%s at %s", product, d.Name)
}

// DeviceSource lists candidate devices.  Order matters: the bridge
// always takes the first entry.
type DeviceSource interface {
	Devices() ([]Device, error)
}

// listPorts is overridable in tests.
var listPorts = enumerator.GetDetailedPortsList

// SystemDevices enumerates USB serial devices through
// go.bug.st/serial/enumerator.
type SystemDevices struct {
	// Pinned restricts discovery to a single device path.  It is
	// reported even when the enumerator does not list it (udev symlinks
	// such as /dev/serial/by-id/...), as long as the path exists.
	Pinned string
}

// Devices returns attached USB serial devices in enumeration order.
func (s SystemDevices) Devices() ([]Device, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}

	var out []Device
	for _, p := range ports {
		if s.Pinned != "" && p.Name != s.Pinned {
			continue
		}
		if s.Pinned == "" && !p.IsUSB {
			continue
		}
		out = append(out, Device{
			Name:         p.Name,
			Product:      p.Product,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			IsUSB:        p.IsUSB,
		})
	}

	if s.Pinned != "" && len(out) == 0 {
		if _, err := os.Stat(s.Pinned); err == nil {
			out = append(out, Device{Name: s.Pinned})
		}
	}
	return out, nil
}
