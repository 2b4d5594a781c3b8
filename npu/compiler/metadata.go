// Package compiler defines the contract between the NPU plugin and its
// compilers: the Compiler interface, the network metadata a compilation
// produces alongside the blob, and the decoding of profiling output.
//
// Two implementations live in the subpackages mlirc (the compiler shipped
// with the plugin) and driverc (compilation delegated to the driver).
package compiler

import (
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/gomlx/gopjrt/dtypes"
)

// NoRelatedDescriptor marks a descriptor with no companion descriptor.
const NoRelatedDescriptor = -1

// IODescriptor describes one input or output of a compiled network, as
// reported by the compiler.
type IODescriptor struct {
	// NameFromCompiler is the name the compiler knows the entry by. For
	// state and shape tensor entries it carries the name of the
	// companion entry, which is what descriptor binding matches on.
	NameFromCompiler string

	// Precision and ShapeFromCompiler describe the buffer the device
	// expects, after any compiler applied conversions.
	Precision         dtypes.DType
	ShapeFromCompiler ir.Shape

	// IsStateInput and IsStateOutput mark the read and write halves of a
	// state variable. IsShapeTensor marks entries holding the run time
	// shape of another, dynamically shaped entry.
	IsStateInput  bool
	IsStateOutput bool
	IsShapeTensor bool

	// RelatedDescriptorIndex is the index of the companion descriptor
	// after binding: the output half of this state input, or the data
	// entry this shape tensor describes. NoRelatedDescriptor when there
	// is none.
	RelatedDescriptorIndex int

	// NodeFriendlyName and OutputTensorNames identify the model port the
	// entry corresponds to, for matching against the original model.
	NodeFriendlyName  string
	OutputTensorNames types.Set[string]

	// ShapeFromIRModel is the port shape in the original model, possibly
	// partial, when the metadata was built with the model at hand. Nil
	// when the metadata was recovered from a blob alone.
	ShapeFromIRModel *ir.Shape
}

// NewIODescriptor returns a descriptor for name with no companion bound.
func NewIODescriptor(name string, precision dtypes.DType, shape ir.Shape) IODescriptor {
	return IODescriptor{
		NameFromCompiler:       name,
		Precision:              precision,
		ShapeFromCompiler:      shape,
		RelatedDescriptorIndex: NoRelatedDescriptor,
		NodeFriendlyName:       name,
		OutputTensorNames:      types.SetWith(name),
	}
}

// IsRelated reports whether the descriptor has a companion bound.
func (d *IODescriptor) IsRelated() bool {
	return d.RelatedDescriptorIndex != NoRelatedDescriptor
}

// FindByName returns the index of the first descriptor whose
// NameFromCompiler is exactly name, or NoRelatedDescriptor.
func FindByName(descriptors []IODescriptor, name string) int {
	for i := range descriptors {
		if descriptors[i].NameFromCompiler == name {
			return i
		}
	}
	return NoRelatedDescriptor
}

// NetworkMetadata describes a compiled network: its name and the
// descriptors of its inputs, outputs and profiling outputs.
type NetworkMetadata struct {
	Name string

	Inputs           []IODescriptor
	Outputs          []IODescriptor
	ProfilingOutputs []IODescriptor

	// NumStreams is the number of inference streams the network was
	// compiled for. At least 1.
	NumStreams int
}

// NewNetworkMetadata returns empty metadata for a network, compiled for a
// single stream.
func NewNetworkMetadata(name string) *NetworkMetadata {
	return &NetworkMetadata{Name: name, NumStreams: 1}
}

// BindRelatedDescriptors links each state and shape tensor descriptor to
// its companion, matching on NameFromCompiler. Links are symmetric and
// made at most once per descriptor: descriptors already bound are skipped,
// and a shape tensor never links to itself. A state input without a
// matching output, or a shape tensor without a companion of the same name,
// is left unbound.
func (m *NetworkMetadata) BindRelatedDescriptors() {
	for i := range m.Inputs {
		in := &m.Inputs[i]
		if in.IsRelated() {
			continue
		}
		if in.IsStateInput {
			if j := FindByName(m.Outputs, in.NameFromCompiler); j != NoRelatedDescriptor {
				in.RelatedDescriptorIndex = j
				m.Outputs[j].RelatedDescriptorIndex = i
			}
		} else if in.IsShapeTensor {
			if j := FindByName(m.Inputs, in.NameFromCompiler); j != NoRelatedDescriptor && j != i {
				in.RelatedDescriptorIndex = j
				m.Inputs[j].RelatedDescriptorIndex = i
			}
		}
	}
	for i := range m.Outputs {
		out := &m.Outputs[i]
		if out.IsRelated() || !out.IsShapeTensor {
			continue
		}
		if j := FindByName(m.Outputs, out.NameFromCompiler); j != NoRelatedDescriptor && j != i {
			out.RelatedDescriptorIndex = j
			m.Outputs[j].RelatedDescriptorIndex = i
		}
	}
}

// StreamCount returns NumStreams, treating unset metadata as one stream.
func (m *NetworkMetadata) StreamCount() int {
	if m.NumStreams < 1 {
		return 1
	}
	return m.NumStreams
}
