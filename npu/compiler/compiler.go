package compiler

import (
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
)

// NetworkDescription is the result of compiling a model: the device blob
// and the metadata describing its inputs and outputs. The blob is owned by
// the description, callers must not modify it after handing it over.
type NetworkDescription struct {
	Blob     []byte
	Metadata NetworkMetadata
}

// NewNetworkDescription bundles a compiled blob with its metadata.
func NewNetworkDescription(blob []byte, metadata NetworkMetadata) *NetworkDescription {
	return &NetworkDescription{Blob: blob, Metadata: metadata}
}

// Compiler turns models into device blobs and recovers network metadata
// from blobs. Implementations must be safe for concurrent use.
type Compiler interface {
	// Name identifies the compiler in logs and errors.
	Name() string

	// SupportedOpsetVersion returns the newest operation set version the
	// compiler accepts. Models of a newer opset need downgrading first.
	SupportedOpsetVersion() int

	// Compile builds model into a device blob for the platform and
	// options in cfg, with descriptor binding already applied to the
	// returned metadata.
	Compile(model *ir.Model, cfg *config.Config) (*NetworkDescription, error)

	// Query returns the friendly names of the model operations this
	// compiler can map to the device.
	Query(model *ir.Model, cfg *config.Config) (types.Set[string], error)

	// Parse recovers network metadata from a previously compiled blob,
	// with descriptor binding already applied.
	Parse(blob []byte, cfg *config.Config) (*NetworkMetadata, error)

	// ProcessProfilingOutput decodes the raw profiling buffer produced
	// by an inference of blob into per layer records.
	ProcessProfilingOutput(profData []byte, blob []byte, cfg *config.Config) ([]LayerInfo, error)
}
