// Package backends defines the interface an engine backend needs to
// implement to expose NPU devices to the plugin, and the registry that
// picks which backend to use at run time.
//
// An engine backend is one way of reaching devices, e.g. through the Level
// Zero driver or through a simulator process. Backends register themselves
// by name during initialization, see Register, and the plugin scans them in
// a fixed preference order, keeping the first one that reports at least one
// device.
package backends

import (
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/google/uuid"
)

// EngineBackend exposes the devices reachable through one driver or
// simulator stack.
type EngineBackend interface {
	// Name returns the short name of the backend, e.g. "LEVEL0".
	Name() string

	// DeviceNames lists the devices this backend exposes. Empty when no
	// device is present, which makes the registry discard the backend.
	DeviceNames() []string

	// Device returns the backend's default device.
	Device() (Device, error)

	// DeviceByName returns the device with the given name, e.g. "3720.0".
	DeviceByName(name string) (Device, error)

	// DeviceByParams returns the device selected by a property map, the
	// DEVICE_ID entry when present, the default device otherwise.
	DeviceByParams(params map[string]string) (Device, error)

	// RegisterOptions adds the backend's own options to the plugin's
	// registry.
	RegisterOptions(desc *config.OptionsDesc)
}

// Device is one NPU device of an engine backend. Executors and inference
// requests for compiled networks are created through it.
type Device interface {
	// Name returns the device name, e.g. "3720.0".
	Name() string

	// FullName returns the marketing name of the device.
	FullName() string

	// UUID returns the unique id of the device.
	UUID() (uuid.UUID, error)

	// SubDeviceID returns the slice index for sub devices, or an error
	// when the device is not a sub device.
	SubDeviceID() (int64, error)

	// MaxNumSlices returns the number of compute slices of the device.
	MaxNumSlices() (uint32, error)

	// AllocMemSize returns the bytes of device memory currently
	// allocated.
	AllocMemSize() (uint64, error)

	// TotalMemSize returns the bytes of memory available to the device.
	TotalMemSize() (uint64, error)

	// DriverVersion returns the version of the driver serving the
	// device.
	DriverVersion() (uint32, error)

	// CreateExecutor loads a compiled network onto the device.
	CreateExecutor(desc *compiler.NetworkDescription, cfg *config.Config) (Executor, error)

	// CreateInferRequest builds an inference request over an executor
	// previously created on this device.
	CreateInferRequest(exec Executor, metadata *compiler.NetworkMetadata, cfg *config.Config) (InferRequest, error)
}

// Executor is a compiled network loaded onto a device. What it holds is
// backend specific, the plugin only ever stores it and hands it back to
// the owning device.
type Executor interface {
	// Finalize releases the device resources held by the executor. The
	// executor is invalid afterwards.
	Finalize() error
}

// InferRequest runs a loaded network. Requests are not safe for concurrent
// use, create one per pipeline.
type InferRequest interface {
	// Infer runs one synchronous inference over the currently set
	// tensors.
	Infer() error

	// GetTensor returns the request tensor for a port, looked up by
	// node friendly name or tensor name.
	GetTensor(name string) (*Tensor, error)

	// SetTensor replaces the request tensor for a port. The tensor must
	// match the port's precision and shape.
	SetTensor(name string, t *Tensor) error

	// ProfilingInfo returns the per layer performance counters of the
	// last inference. It fails when the network was compiled without
	// profiling support.
	ProfilingInfo() ([]compiler.ProfilingInfo, error)
}
