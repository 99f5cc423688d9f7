package platform

import (
	"context"
	"fmt"
	"math"

	"github.com/godbus/dbus/v5"
)

const (
	upowerService = "org.freedesktop.UPower"
	upowerDisplay = "/org/freedesktop/UPower/devices/DisplayDevice"
	upowerDevice  = "org.freedesktop.UPower.Device"
)

// UPower battery states.
const (
	batteryCharging    = 1
	batteryDischarging = 2
	batteryEmpty       = 3
	batteryFull        = 4
)

// Battery reads the aggregate battery state over the system bus.
type Battery struct {
	conn *dbus.Conn
}

// NewBattery connects to the system bus.
func NewBattery() (*Battery, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &Battery{conn: conn}, nil
}

// Status reports the display device's charge in one spoken line.
func (b *Battery) Status(ctx context.Context) (string, error) {
	device := b.conn.Object(upowerService, upowerDisplay)

	present, err := prop(ctx, device, upowerDevice, "IsPresent")
	if err != nil {
		return "", fmt.Errorf("read battery presence: %w", err)
	}
	if isPresent, ok := present.Value().(bool); ok && !isPresent {
		return "No battery", nil
	}

	percentage, err := prop(ctx, device, upowerDevice, "Percentage")
	if err != nil {
		return "", fmt.Errorf("read battery percentage: %w", err)
	}
	percent, ok := percentage.Value().(float64)
	if !ok {
		return "", fmt.Errorf("battery percentage is not a float")
	}

	state, err := propUint32(ctx, device, upowerDevice, "State")
	if err != nil {
		return "", fmt.Errorf("read battery state: %w", err)
	}
	return batteryPhrase(percent, state), nil
}

// Close releases the bus connection.
func (b *Battery) Close() error {
	return b.conn.Close()
}

func batteryPhrase(percent float64, state uint32) string {
	rounded := int(math.Round(percent))
	switch state {
	case batteryCharging:
		return fmt.Sprintf("%d percent, charging", rounded)
	case batteryDischarging, batteryEmpty:
		return fmt.Sprintf("%d percent", rounded)
	case batteryFull:
		return "Fully charged"
	default:
		return fmt.Sprintf("%d percent", rounded)
	}
}
