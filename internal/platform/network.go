package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
)

const (
	nmService    = "org.freedesktop.NetworkManager"
	nmPath       = "/org/freedesktop/NetworkManager"
	nmIface      = "org.freedesktop.NetworkManager"
	nmDeviceWifi = 2 // NM_DEVICE_TYPE_WIFI
)

// NetworkManager is a network-control session over the system bus.
type NetworkManager struct {
	conn *dbus.Conn
}

// NewNetworkManager connects to the system bus.
func NewNetworkManager() (*NetworkManager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &NetworkManager{conn: conn}, nil
}

// Status describes the primary connection in one spoken line.
func (n *NetworkManager) Status(ctx context.Context) (string, error) {
	nm := n.conn.Object(nmService, nmPath)
	primary, err := propPath(ctx, nm, nmIface, "PrimaryConnection")
	if err != nil {
		return "", fmt.Errorf("read primary connection: %w", err)
	}
	if primary == "/" {
		return "Disconnected", nil
	}

	active := n.conn.Object(nmService, primary)
	id, err := propString(ctx, active, nmIface+".Connection.Active", "Id")
	if err != nil {
		return "", fmt.Errorf("read connection id: %w", err)
	}
	return "Connected to " + id, nil
}

// Networks lists visible Wi-Fi network names, strongest signal first.
func (n *NetworkManager) Networks(ctx context.Context) ([]string, error) {
	nm := n.conn.Object(nmService, nmPath)
	devices, err := propPaths(ctx, nm, nmIface, "Devices")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	type station struct {
		name     string
		strength byte
	}
	seen := map[string]byte{}

	for _, devicePath := range devices {
		device := n.conn.Object(nmService, devicePath)
		deviceType, err := propUint32(ctx, device, nmIface+".Device", "DeviceType")
		if err != nil || deviceType != nmDeviceWifi {
			continue
		}

		var points []dbus.ObjectPath
		call := device.CallWithContext(ctx, nmIface+".Device.Wireless.GetAllAccessPoints", 0)
		if call.Err != nil {
			continue
		}
		if err := call.Store(&points); err != nil {
			continue
		}

		for _, apPath := range points {
			ap := n.conn.Object(nmService, apPath)
			ssid, err := propBytes(ctx, ap, nmIface+".AccessPoint", "Ssid")
			if err != nil || len(ssid) == 0 {
				continue
			}
			strength, _ := propByte(ctx, ap, nmIface+".AccessPoint", "Strength")
			name := string(ssid)
			if strength > seen[name] || seen[name] == 0 {
				seen[name] = strength
			}
		}
	}

	stations := make([]station, 0, len(seen))
	for name, strength := range seen {
		stations = append(stations, station{name: name, strength: strength})
	}
	sort.Slice(stations, func(i, j int) bool {
		if stations[i].strength != stations[j].strength {
			return stations[i].strength > stations[j].strength
		}
		return stations[i].name < stations[j].name
	})

	names := make([]string, len(stations))
	for i, s := range stations {
		names[i] = s.name
	}
	return names, nil
}

// Connect activates the saved connection profile whose id matches name.
// Connecting to a network with no saved profile is not supported; secrets
// stay in NetworkManager.
func (n *NetworkManager) Connect(ctx context.Context, name string) error {
	settings := n.conn.Object(nmService, nmPath+"/Settings")
	var profiles []dbus.ObjectPath
	call := settings.CallWithContext(ctx, nmIface+".Settings.ListConnections", 0)
	if call.Err != nil {
		return fmt.Errorf("list saved connections: %w", call.Err)
	}
	if err := call.Store(&profiles); err != nil {
		return fmt.Errorf("list saved connections: %w", err)
	}

	for _, profilePath := range profiles {
		profile := n.conn.Object(nmService, profilePath)
		var settingsMap map[string]map[string]dbus.Variant
		call := profile.CallWithContext(ctx, nmIface+".Settings.Connection.GetSettings", 0)
		if call.Err != nil {
			continue
		}
		if err := call.Store(&settingsMap); err != nil {
			continue
		}

		id, _ := settingsMap["connection"]["id"].Value().(string)
		if id != name {
			continue
		}

		nm := n.conn.Object(nmService, nmPath)
		activate := nm.CallWithContext(ctx, nmIface+".ActivateConnection", 0,
			profilePath, dbus.ObjectPath("/"), dbus.ObjectPath("/"))
		if activate.Err != nil {
			return fmt.Errorf("activate %q: %w", name, activate.Err)
		}
		return nil
	}
	return fmt.Errorf("no saved connection named %q", name)
}

// Close releases the bus connection.
func (n *NetworkManager) Close() error {
	return n.conn.Close()
}

func prop(ctx context.Context, obj dbus.BusObject, iface, name string) (dbus.Variant, error) {
	var value dbus.Variant
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iface, name)
	if call.Err != nil {
		return dbus.Variant{}, call.Err
	}
	if err := call.Store(&value); err != nil {
		return dbus.Variant{}, err
	}
	return value, nil
}

func propString(ctx context.Context, obj dbus.BusObject, iface, name string) (string, error) {
	value, err := prop(ctx, obj, iface, name)
	if err != nil {
		return "", err
	}
	s, ok := value.Value().(string)
	if !ok {
		return "", fmt.Errorf("property %s.%s is not a string", iface, name)
	}
	return s, nil
}

func propPath(ctx context.Context, obj dbus.BusObject, iface, name string) (dbus.ObjectPath, error) {
	value, err := prop(ctx, obj, iface, name)
	if err != nil {
		return "", err
	}
	p, ok := value.Value().(dbus.ObjectPath)
	if !ok {
		return "", fmt.Errorf("property %s.%s is not an object path", iface, name)
	}
	return p, nil
}

func propPaths(ctx context.Context, obj dbus.BusObject, iface, name string) ([]dbus.ObjectPath, error) {
	value, err := prop(ctx, obj, iface, name)
	if err != nil {
		return nil, err
	}
	paths, ok := value.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("property %s.%s is not a path list", iface, name)
	}
	return paths, nil
}

func propUint32(ctx context.Context, obj dbus.BusObject, iface, name string) (uint32, error) {
	value, err := prop(ctx, obj, iface, name)
	if err != nil {
		return 0, err
	}
	v, ok := value.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("property %s.%s is not a uint32", iface, name)
	}
	return v, nil
}

func propByte(ctx context.Context, obj dbus.BusObject, iface, name string) (byte, error) {
	value, err := prop(ctx, obj, iface, name)
	if err != nil {
		return 0, err
	}
	v, ok := value.Value().(byte)
	if !ok {
		return 0, fmt.Errorf("property %s.%s is not a byte", iface, name)
	}
	return v, nil
}

func propBytes(ctx context.Context, obj dbus.BusObject, iface, name string) ([]byte, error) {
	value, err := prop(ctx, obj, iface, name)
	if err != nil {
		return nil, err
	}
	v, ok := value.Value().([]byte)
	if !ok {
		return nil, fmt.Errorf("property %s.%s is not a byte array", iface, name)
	}
	return v, nil
}
