package backends

import (
	"github.com/XinWangIntel/openvino/internal/metrics"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Constructor builds an engine backend from the plugin configuration.
// Constructors that cannot serve on this machine return an error, wrapping
// ErrBackendUnavailable when the backend's library is simply not present.
type Constructor func(cfg *config.Config) (EngineBackend, error)

var registeredConstructors = make(map[string]Constructor)

// Register makes a backend constructor available under the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	registeredConstructors[name] = constructor
}

// DefaultOrder is the preference order backends are scanned in when the
// plugin does not specify one.
func DefaultOrder() []string {
	return []string{"LEVEL0", "IMD"}
}

// Registry holds the engine backends that initialized successfully and the
// one selected for inference.
type Registry struct {
	registered []EngineBackend
	active     EngineBackend
}

// NewRegistry constructs every backend in order and keeps those reporting
// at least one device, the first of which becomes the active backend.
// Backends that fail to construct are logged and skipped, a registry with
// no usable backend is still returned: lookups on it fail with ErrNoBackend
// but enumeration yields empty results.
func NewRegistry(order []string, cfg *config.Config) *Registry {
	r := &Registry{}
	for _, name := range order {
		klog.V(1).Infof("Try %q backend", name)
		constructor, found := registeredConstructors[name]
		if !found {
			klog.V(1).Infof("Backend %q is not compiled in", name)
			continue
		}
		backend, err := constructor(cfg)
		if err != nil {
			if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrDynamicLoadingUnsupported) {
				klog.V(1).Infof("Backend %q is unavailable: %v", name, err)
				metrics.BackendScanTotal.WithLabelValues(name, metrics.OutcomeUnavailable).Inc()
			} else {
				klog.Errorf("Got an error during backend %q loading: %v", name, err)
				metrics.BackendScanTotal.WithLabelValues(name, metrics.OutcomeFailed).Inc()
			}
			continue
		}
		deviceNames := backend.DeviceNames()
		if len(deviceNames) == 0 {
			klog.V(1).Infof("Backend %q has no devices", name)
			metrics.BackendScanTotal.WithLabelValues(name, metrics.OutcomeNoDevices).Inc()
			continue
		}
		klog.V(1).Infof("Register %q with devices %v", name, deviceNames)
		metrics.BackendScanTotal.WithLabelValues(name, metrics.OutcomeRegistered).Inc()
		r.registered = append(r.registered, backend)
	}

	if len(r.registered) > 0 {
		r.active = r.registered[0]
		klog.V(1).Infof("Use %q backend for inference", r.active.Name())
		metrics.BackendScanTotal.WithLabelValues(r.active.Name(), metrics.OutcomeSelected).Inc()
	} else {
		klog.Errorf("Cannot find backend for inference. Make sure the device is available.")
	}
	return r
}

// BackendName returns the name of the active backend, or "" when none
// initialized.
func (r *Registry) BackendName() string {
	if r.active == nil {
		return ""
	}
	return r.active.Name()
}

// RegisteredNames returns the names of the backends that initialized with
// devices, in scan order.
func (r *Registry) RegisteredNames() []string {
	names := make([]string, 0, len(r.registered))
	for _, backend := range r.registered {
		names = append(names, backend.Name())
	}
	return names
}

// AvailableDeviceNames lists the device names of the active backend, empty
// when none initialized.
func (r *Registry) AvailableDeviceNames() []string {
	if r.active == nil {
		return nil
	}
	return r.active.DeviceNames()
}

// Device returns a device of the active backend: the one named name, or
// the backend's default device when name is empty.
func (r *Registry) Device(name string) (Device, error) {
	klog.V(2).Infof("Searching for device %q to use started", name)
	if r.active == nil {
		klog.Warning("Device not found!")
		return nil, errors.Wrapf(ErrNoBackend, "getting device %q", name)
	}
	var device Device
	var err error
	if name == "" {
		device, err = r.active.Device()
	} else {
		device, err = r.active.DeviceByName(name)
	}
	if err != nil {
		klog.Warning("Device not found!")
		return nil, err
	}
	klog.V(2).Infof("Device found: %s", device.Name())
	return device, nil
}

// DeviceForConfig returns the device selected by the DEVICE_ID option, or
// the default device when it is not set.
func (r *Registry) DeviceForConfig(cfg *config.Config) (Device, error) {
	return r.Device(config.Get(cfg, config.DeviceID))
}

// RegisterOptions lets the active backend add its options to desc.
func (r *Registry) RegisterOptions(desc *config.OptionsDesc) {
	if r.active != nil {
		r.active.RegisterOptions(desc)
	}
}

// GetCompilationPlatform resolves the platform to compile for. An explicit
// platform wins over the device id, which wins over auto detection from
// the first available device. Auto detection with no devices present is an
// error, compilation cannot guess the platform.
func (r *Registry) GetCompilationPlatform(platformName, deviceID string) (string, error) {
	if platformName != platform.AutoDetect {
		return platformName, nil
	}
	if deviceID != "" {
		return platform.ByDeviceName(deviceID), nil
	}
	deviceNames := r.AvailableDeviceNames()
	if len(deviceNames) == 0 {
		return "", errors.New("no devices found, the platform must be explicitly specified for compilation." +
			" Example: device NPU.3700 instead of NPU")
	}
	return platform.ByDeviceName(deviceNames[0]), nil
}
