package levelzero

import (
	"fmt"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Device is one NPU device served by the Level Zero driver.
type Device struct {
	handle        DeviceHandle
	props         DeviceProperties
	name          string
	driverVersion uint32
}

var _ backends.Device = &Device{}

// newDevice wraps a driver device handle. Compute slices exposed as
// devices of their own get a ".<slice>" name suffix.
func newDevice(handle DeviceHandle, props DeviceProperties, driverVersion uint32) *Device {
	name := platform.Standardize(props.PlatformName)
	if props.IsSubDevice {
		name = fmt.Sprintf("%s.%d", name, platform.SliceIDBySwDeviceID(props.SwDeviceID))
	}
	return &Device{
		handle:        handle,
		props:         props,
		name:          name,
		driverVersion: driverVersion,
	}
}

// Name implements backends.Device.
func (d *Device) Name() string { return d.name }

// FullName implements backends.Device.
func (d *Device) FullName() string { return d.props.MarketingName }

// UUID implements backends.Device.
func (d *Device) UUID() (uuid.UUID, error) { return d.props.UUID, nil }

// SubDeviceID implements backends.Device.
func (d *Device) SubDeviceID() (int64, error) {
	if !d.props.IsSubDevice {
		return 0, errors.Errorf("device %s is not a sub device", d.name)
	}
	return int64(platform.SliceIDBySwDeviceID(d.props.SwDeviceID)), nil
}

// MaxNumSlices implements backends.Device.
func (d *Device) MaxNumSlices() (uint32, error) { return d.props.NumSlices, nil }

// AllocMemSize implements backends.Device.
func (d *Device) AllocMemSize() (uint64, error) {
	mem, err := d.handle.MemoryProperties()
	return mem.AllocatedBytes, errors.WithMessagef(err, "querying memory of device %s", d.name)
}

// TotalMemSize implements backends.Device.
func (d *Device) TotalMemSize() (uint64, error) {
	mem, err := d.handle.MemoryProperties()
	return mem.TotalBytes, errors.WithMessagef(err, "querying memory of device %s", d.name)
}

// DriverVersion implements backends.Device.
func (d *Device) DriverVersion() (uint32, error) { return d.driverVersion, nil }

// CreateExecutor implements backends.Device, loading the compiled blob
// onto the device.
func (d *Device) CreateExecutor(desc *compiler.NetworkDescription, cfg *config.Config) (backends.Executor, error) {
	graph, err := d.handle.ImportGraph(desc.Blob)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading network %q onto device %s",
			desc.Metadata.Name, d.name)
	}
	klog.V(1).Infof("Network %q loaded onto device %s (%d byte blob)",
		desc.Metadata.Name, d.name, len(desc.Blob))
	return &Executor{graph: graph, device: d.name, network: desc.Metadata.Name}, nil
}

// CreateInferRequest implements backends.Device.
func (d *Device) CreateInferRequest(exec backends.Executor, metadata *compiler.NetworkMetadata, cfg *config.Config) (backends.InferRequest, error) {
	executor, ok := exec.(*Executor)
	if !ok {
		return nil, errors.Errorf("executor %T was not created by the %s backend", exec, BackendName)
	}
	sync, err := backends.NewSyncInferRequest(metadata)
	if err != nil {
		return nil, err
	}
	return &InferRequest{SyncInferRequest: sync, graph: executor.graph, device: d.name}, nil
}

// CompilerClient returns the driver's embedded compiler for this device,
// in the shape the driverc adapter consumes.
func (d *Device) CompilerClient() *CompilerInDriver {
	return &CompilerInDriver{handle: d.handle, device: d.name}
}
