package levelzero

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
)

// Driver is the seam to the Level Zero user mode driver. The production
// implementation comes from the driver binding library, see loadDriver;
// tests substitute fakes. A Driver is initialized when obtained and stays
// valid until Release.
type Driver interface {
	// Version reports the driver build version.
	Version() (uint32, error)

	// Devices lists handles for the devices the driver exposes,
	// including non NPU ones. Callers filter on the device properties.
	Devices() ([]DeviceHandle, error)

	// Release tears down the driver context. Handles obtained from the
	// driver are invalid afterwards.
	Release() error
}

// DeviceHandle is one device as the driver exposes it.
type DeviceHandle interface {
	// Properties reports the device's static properties.
	Properties() (DeviceProperties, error)

	// MemoryProperties reports the device memory state at the time of
	// the call.
	MemoryProperties() (MemoryProperties, error)

	// MaxOpsetVersion reports the newest operation set version the
	// driver's embedded compiler understands.
	MaxOpsetVersion() int

	// CompileGraph builds serialized IR into a device graph, honoring
	// the build flags.
	CompileGraph(xml, weights []byte, buildFlags string) (Graph, error)

	// ImportGraph loads a previously compiled blob onto the device.
	ImportGraph(blob []byte) (Graph, error)

	// QueryGraph reports the friendly names of the operations in the
	// serialized IR the driver can lower for this device.
	QueryGraph(xml, weights []byte, buildFlags string) ([]string, error)
}

// Graph is a compiled network loaded on a device.
type Graph interface {
	// NativeBinary returns the compiled blob of the graph.
	NativeBinary() ([]byte, error)

	// Arguments lists the graph's argument properties, inputs first,
	// then outputs, in execution order.
	Arguments() ([]GraphArgument, error)

	// Execute runs the graph once. inputs and outputs hold one buffer
	// per argument in argument order, outputs are written in place.
	Execute(inputs, outputs [][]byte) error

	// ProfilingData returns the raw profiling records of the last
	// execution. It fails when the graph was compiled without profiling
	// support.
	ProfilingData() ([]byte, error)

	// Destroy releases the device memory held by the graph.
	Destroy() error
}

// DeviceProperties mirrors the driver's device property query.
type DeviceProperties struct {
	// PlatformName is the platform the device belongs to, in any of the
	// spellings the platform package standardizes.
	PlatformName string

	// MarketingName is the human readable device name.
	MarketingName string

	// SwDeviceID encodes the device interface and slice, see the
	// platform package helpers.
	SwDeviceID uint32

	// IsSubDevice marks compute slices exposed as devices of their own.
	IsSubDevice bool

	// NumSlices is the number of compute slices of the device.
	NumSlices uint32

	// UUID is the driver assigned unique device id.
	UUID uuid.UUID
}

// MemoryProperties mirrors the driver's memory property query.
type MemoryProperties struct {
	TotalBytes     uint64
	AllocatedBytes uint64
}

// GraphArgument mirrors one argument property query of a compiled graph.
// State variables and shape tensors are reported with prefixed names, see
// the prefix constants in this package.
type GraphArgument struct {
	Name      string
	IsInput   bool
	Precision dtypes.DType
	Dims      []int64
}
