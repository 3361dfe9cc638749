package status

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService  = "org.bluez"
	adapterIface  = "org.bluez.Adapter1"
	upowerService = "org.freedesktop.UPower"
	upowerDevice  = "org.freedesktop.UPower.Device"
	displayDevice = dbus.ObjectPath("/org/freedesktop/UPower/devices/DisplayDevice")

	// UPower Device.State
	upowerCharging = 1
)

// BusProbe reads bluetooth and battery state from the system bus.
type BusProbe struct {
	conn *dbus.Conn
}

func ConnectSystemBus() (*BusProbe, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &BusProbe{conn: conn}, nil
}

func (p *BusProbe) Close() error {
	return p.conn.Close()
}

// BluetoothPowered reports whether any bluez adapter is powered.
func (p *BusProbe) BluetoothPowered(ctx context.Context) (bool, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := p.conn.Object(bluezService, "/").
		CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).
		Store(&objects)
	if err != nil {
		return false, fmt.Errorf("bluez GetManagedObjects: %w", err)
	}

	for _, ifaces := range objects {
		adapter, ok := ifaces[adapterIface]
		if !ok {
			continue
		}
		if powered, ok := adapter["Powered"].Value().(bool); ok && powered {
			return true, nil
		}
	}
	return false, nil
}

// Battery reads the UPower display device.
func (p *BusProbe) Battery(ctx context.Context) (BatteryStatus, error) {
	obj := p.conn.Object(upowerService, displayDevice)

	var present dbus.Variant
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, upowerDevice, "IsPresent").Store(&present); err != nil {
		return BatteryStatus{}, fmt.Errorf("upower IsPresent: %w", err)
	}
	if ok, _ := present.Value().(bool); !ok {
		return BatteryStatus{}, fmt.Errorf("no battery present")
	}

	var percentage, state dbus.Variant
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, upowerDevice, "Percentage").Store(&percentage); err != nil {
		return BatteryStatus{}, fmt.Errorf("upower Percentage: %w", err)
	}
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, upowerDevice, "State").Store(&state); err != nil {
		return BatteryStatus{}, fmt.Errorf("upower State: %w", err)
	}

	pct, _ := percentage.Value().(float64)
	st, _ := state.Value().(uint32)
	return BatteryStatus{Percentage: int(pct + 0.5), Charging: st == upowerCharging}, nil
}

// Watch calls onChange with a status key whenever NetworkManager, bluez or
// UPower report a property change. It blocks until ctx is cancelled.
func (p *BusProbe) Watch(ctx context.Context, onChange func(key string)) error {
	if err := p.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	p.conn.Signal(signals)
	defer p.conn.RemoveSignal(signals)

	log.Printf("[STATUS] Watching D-Bus property changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if len(sig.Body) == 0 {
				continue
			}
			iface, _ := sig.Body[0].(string)
			if key := keyForInterface(iface); key != "" {
				onChange(key)
			}
		}
	}
}

func keyForInterface(iface string) string {
	switch {
	case strings.HasPrefix(iface, "org.freedesktop.NetworkManager"):
		return keyWifi
	case iface == adapterIface:
		return keyBluetooth
	case iface == upowerDevice:
		return keyBattery
	}
	return ""
}
