package status

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chess10kp/bluepanel/internal/config"
)

const (
	keyWifi      = "wifi"
	keyBluetooth = "bluetooth"
	keyBattery   = "battery"
	keyVolume    = "volume"
)

// Snapshot is the payload of GET /status.
type Snapshot struct {
	Wifi      WifiStatus      `json:"wifi"`
	Bluetooth BluetoothStatus `json:"bluetooth"`
	Battery   BatteryStatus   `json:"battery"`
	Volume    VolumeStatus    `json:"volume"`
	Clock     string          `json:"clock"`
}

// Collector gathers a status snapshot from shell probes, sysfs and, when
// available, the system bus. Probe results are cached for cache_ttl_ms.
type Collector struct {
	cfg     config.StatusConfig
	run     Runner
	bus     *BusProbe
	cache   *expirable.LRU[string, any]
	timeout time.Duration
	now     func() time.Time
}

// NewCollector builds a collector. bus may be nil.
func NewCollector(cfg *config.Config, run Runner, bus *BusProbe) *Collector {
	if run == nil {
		run = ShellRunner
	}

	c := &Collector{
		cfg:     cfg.Status,
		run:     run,
		bus:     bus,
		timeout: time.Duration(cfg.Status.ProbeTimeoutMs) * time.Millisecond,
		now:     time.Now,
	}
	if cfg.Status.CacheTTLMs > 0 {
		ttl := time.Duration(cfg.Status.CacheTTLMs) * time.Millisecond
		c.cache = expirable.NewLRU[string, any](8, nil, ttl)
	}
	return c
}

// Snapshot runs all probes concurrently. Failed probes report zero values.
func (c *Collector) Snapshot(ctx context.Context) Snapshot {
	var (
		snap Snapshot
		wg   sync.WaitGroup
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		snap.Wifi = cached(ctx, c, keyWifi, func() WifiStatus { return c.wifi(ctx) })
	}()
	go func() {
		defer wg.Done()
		snap.Bluetooth = cached(ctx, c, keyBluetooth, func() BluetoothStatus { return c.bluetooth(ctx) })
	}()
	go func() {
		defer wg.Done()
		snap.Battery = cached(ctx, c, keyBattery, func() BatteryStatus { return c.battery(ctx) })
	}()
	go func() {
		defer wg.Done()
		snap.Volume = cached(ctx, c, keyVolume, func() VolumeStatus { return c.volume(ctx) })
	}()
	wg.Wait()

	snap.Clock = c.now().Format(time.RFC3339)
	return snap
}

// Invalidate forces the next Snapshot to re-run the probe for key.
func (c *Collector) Invalidate(key string) {
	if c.cache != nil {
		c.cache.Remove(key)
	}
}

// Watch evicts cached results on D-Bus change signals until ctx ends.
func (c *Collector) Watch(ctx context.Context) error {
	if c.bus == nil {
		return nil
	}
	return c.bus.Watch(ctx, c.Invalidate)
}

// cached returns the cached result for key or runs probe. Results from a
// request whose context has ended are not stored.
func cached[T any](ctx context.Context, c *Collector, key string, probe func() T) T {
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if t, ok := v.(T); ok {
				return t
			}
		}
	}

	v := probe()
	if c.cache != nil && ctx.Err() == nil {
		c.cache.Add(key, v)
	}
	return v
}

func (c *Collector) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Collector) wifi(ctx context.Context) WifiStatus {
	if c.cfg.WifiCmd == "" {
		return WifiStatus{}
	}
	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	output, err := c.run(ctx, c.cfg.WifiCmd)
	if err != nil {
		log.Printf("[STATUS] wifi probe failed: %v", err)
		return WifiStatus{}
	}
	return parseWifi(output)
}

func (c *Collector) bluetooth(ctx context.Context) BluetoothStatus {
	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	if c.bus != nil {
		powered, err := c.bus.BluetoothPowered(ctx)
		if err == nil {
			return BluetoothStatus{Enabled: powered}
		}
		log.Printf("[STATUS] bluetooth bus probe failed, falling back to command: %v", err)
	}

	if c.cfg.BluetoothCmd == "" {
		return BluetoothStatus{}
	}
	output, err := c.run(ctx, c.cfg.BluetoothCmd)
	if err != nil {
		log.Printf("[STATUS] bluetooth probe failed: %v", err)
		return BluetoothStatus{}
	}
	return BluetoothStatus{Enabled: parseBluetoothShow(output)}
}

func (c *Collector) battery(ctx context.Context) BatteryStatus {
	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	if c.bus != nil {
		status, err := c.bus.Battery(ctx)
		if err == nil {
			return status
		}
		log.Printf("[STATUS] battery bus probe failed, falling back to sysfs: %v", err)
	}

	if c.cfg.BatteryPath == "" {
		return BatteryStatus{}
	}
	status, err := readSysfsBattery(c.cfg.BatteryPath)
	if err != nil {
		log.Printf("[STATUS] battery probe failed: %v", err)
		return BatteryStatus{}
	}
	return status
}

func (c *Collector) volume(ctx context.Context) VolumeStatus {
	if c.cfg.VolumeCmd == "" {
		return VolumeStatus{}
	}
	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	output, err := c.run(ctx, c.cfg.VolumeCmd)
	if err != nil {
		log.Printf("[STATUS] volume probe failed: %v", err)
		return VolumeStatus{}
	}

	var status VolumeStatus
	if level, ok := parseVolume(output); ok {
		status.Level = level
	}

	if c.cfg.MuteCmd != "" {
		if muteOutput, err := c.run(ctx, c.cfg.MuteCmd); err == nil {
			status.Muted = parseMute(muteOutput)
		}
	}
	return status
}
