// Package levelzero implements the engine backend reaching NPU devices
// through the Level Zero driver. The driver itself is loaded at run time,
// machines without it simply do not get this backend. All driver traffic
// goes through the Driver seam, which keeps the backend testable without
// hardware.
package levelzero

import (
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName is the name this backend registers under.
const BackendName = "LEVEL0"

func init() {
	backends.Register(BackendName, New)
}

// Backend exposes the NPU devices served by one Level Zero driver.
type Backend struct {
	driver        Driver
	driverVersion uint32
	devices       map[string]*Device
}

var _ backends.EngineBackend = &Backend{}

// New loads the driver and returns the backend over it. On machines
// without the driver library the error wraps ErrBackendUnavailable and the
// registry skips the backend quietly.
func New(cfg *config.Config) (backends.EngineBackend, error) {
	driver, err := loadDriver()
	if err != nil {
		return nil, err
	}
	return NewWithDriver(driver, cfg)
}

// NewWithDriver builds the backend over an already initialized driver.
func NewWithDriver(driver Driver, cfg *config.Config) (*Backend, error) {
	version, err := driver.Version()
	if err != nil {
		return nil, errors.WithMessagef(err, "querying driver version")
	}
	handles, err := driver.Devices()
	if err != nil {
		return nil, errors.WithMessagef(err, "enumerating devices")
	}

	b := &Backend{
		driver:        driver,
		driverVersion: version,
		devices:       make(map[string]*Device),
	}
	for _, handle := range handles {
		props, err := handle.Properties()
		if err != nil {
			return nil, errors.WithMessagef(err, "querying device properties")
		}
		if !platform.IsNPUDevice(props.SwDeviceID) {
			klog.V(2).Infof("Skipping non NPU device %08x", props.SwDeviceID)
			continue
		}
		device := newDevice(handle, props, version)
		b.devices[device.Name()] = device
	}
	klog.V(1).Infof("Level Zero driver version %d serves %d NPU device(s)",
		version, len(b.devices))
	return b, nil
}

// Name implements backends.EngineBackend.
func (b *Backend) Name() string { return BackendName }

// DeviceNames implements backends.EngineBackend.
func (b *Backend) DeviceNames() []string {
	names := types.MakeSet[string](len(b.devices))
	for name := range b.devices {
		names.Insert(name)
	}
	return types.Sorted(names)
}

// Device implements backends.EngineBackend, returning the first device in
// name order.
func (b *Backend) Device() (backends.Device, error) {
	names := b.DeviceNames()
	if len(names) == 0 {
		return nil, errors.Wrapf(backends.ErrDeviceNotFound, "backend has no devices")
	}
	return b.devices[names[0]], nil
}

// DeviceByName implements backends.EngineBackend.
func (b *Backend) DeviceByName(name string) (backends.Device, error) {
	device, found := b.devices[name]
	if !found {
		return nil, errors.Wrapf(backends.ErrDeviceNotFound, "device %q", name)
	}
	return device, nil
}

// DeviceByParams implements backends.EngineBackend.
func (b *Backend) DeviceByParams(params map[string]string) (backends.Device, error) {
	if name := params[config.DeviceID.Key()]; name != "" {
		return b.DeviceByName(name)
	}
	return b.Device()
}

// RegisterOptions implements backends.EngineBackend. The Level Zero
// backend has no options of its own.
func (b *Backend) RegisterOptions(desc *config.OptionsDesc) {}

// Close releases the driver. Devices obtained from the backend are invalid
// afterwards.
func (b *Backend) Close() error {
	return b.driver.Release()
}
