// Package ir holds the in-memory representation of a network handed to the
// NPU plugin: its input and output ports, the operations between them, the
// constant weights and the runtime metadata attached to the graph. It also
// serializes models to the XML plus weights form consumed by driver-side
// compilers, and hosts the transformation passes applied before
// serialization.
package ir

import (
	"maps"
	"slices"

	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/gomlx/gopjrt/dtypes"
)

// Port describes one input or output of a model: the friendly name of the
// node, the set of tensor names attached to the value, its element type and
// its possibly partial shape.
type Port struct {
	Name        string
	TensorNames types.Set[string]
	Precision   dtypes.DType
	Shape       Shape

	// IsState marks ports that read (inputs) or write (outputs) a state
	// variable carried between inferences.
	IsState bool

	// IsShapeTensor marks ports whose value is the run time shape of
	// another, dynamically shaped port.
	IsShapeTensor bool
}

// Clone returns a deep copy of the port.
func (p Port) Clone() Port {
	clone := p
	clone.TensorNames = p.TensorNames.Clone()
	clone.Shape = p.Shape.Clone()
	return clone
}

// AnyTensorName returns one of the port's tensor names, preferring the
// lexicographically smallest for determinism, or the node name when the
// port carries no tensor names.
func (p Port) AnyTensorName() string {
	if len(p.TensorNames) == 0 {
		return p.Name
	}
	return types.Sorted(p.TensorNames)[0]
}

// Operation is one node of the model graph. Inputs and Outputs name the
// tensors it consumes and produces.
type Operation struct {
	Name       string
	Type       string
	Version    int
	Attributes map[string]string
	Inputs     []string
	Outputs    []string
}

// Clone returns a deep copy of the operation.
func (op Operation) Clone() Operation {
	clone := op
	clone.Attributes = maps.Clone(op.Attributes)
	clone.Inputs = slices.Clone(op.Inputs)
	clone.Outputs = slices.Clone(op.Outputs)
	return clone
}

// Model is a network handed to the plugin for compilation: parameters
// (inputs), results (outputs), the operations between them, the constant
// weights blob and a free form runtime info map.
//
// Model is not safe for concurrent mutation. Compilation paths that modify
// a shared model clone it first, see Passes and the driver packager.
type Model struct {
	name         string
	opsetVersion int

	parameters []Port
	results    []Port
	ops        []Operation

	weights []byte
	rtInfo  map[string]string
}

// NewModel creates an empty model with the given friendly name and the
// opset version its operations were written against.
func NewModel(name string, opsetVersion int) *Model {
	return &Model{
		name:         name,
		opsetVersion: opsetVersion,
		rtInfo:       make(map[string]string),
	}
}

// Name returns the friendly name of the model.
func (m *Model) Name() string { return m.name }

// OpsetVersion returns the opset version the model was written against.
func (m *Model) OpsetVersion() int { return m.opsetVersion }

// AddParameter appends an input port to the model.
func (m *Model) AddParameter(p Port) { m.parameters = append(m.parameters, p) }

// AddResult appends an output port to the model.
func (m *Model) AddResult(p Port) { m.results = append(m.results, p) }

// AddOperation appends an operation to the model graph.
func (m *Model) AddOperation(op Operation) { m.ops = append(m.ops, op) }

// Parameters returns the model's input ports, in declaration order. The
// returned slice is owned by the model.
func (m *Model) Parameters() []Port { return m.parameters }

// Results returns the model's output ports, in declaration order. The
// returned slice is owned by the model.
func (m *Model) Results() []Port { return m.results }

// Operations returns the model's graph operations. The returned slice is
// owned by the model.
func (m *Model) Operations() []Operation { return m.ops }

// SetWeights attaches the constant weights blob to the model. The model
// takes ownership of w.
func (m *Model) SetWeights(w []byte) { m.weights = w }

// Weights returns the constant weights blob, which may be empty.
func (m *Model) Weights() []byte { return m.weights }

// WeightsSize returns the size in bytes of the constant weights blob.
func (m *Model) WeightsSize() int64 { return int64(len(m.weights)) }

// SetRTInfo stores a runtime info entry on the model.
func (m *Model) SetRTInfo(key, value string) { m.rtInfo[key] = value }

// RTInfo returns the runtime info entry for key, if present.
func (m *Model) RTInfo(key string) (value string, ok bool) {
	value, ok = m.rtInfo[key]
	return
}

// EraseRTInfo removes a runtime info entry from the model.
func (m *Model) EraseRTInfo(key string) { delete(m.rtInfo, key) }

// rtInfoKeys returns the runtime info keys in sorted order.
func (m *Model) rtInfoKeys() []string {
	keys := slices.Collect(maps.Keys(m.rtInfo))
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy of the model. Transformations that must not
// mutate the caller's model run on a clone.
func (m *Model) Clone() *Model {
	clone := &Model{
		name:         m.name,
		opsetVersion: m.opsetVersion,
		parameters:   make([]Port, 0, len(m.parameters)),
		results:      make([]Port, 0, len(m.results)),
		ops:          make([]Operation, 0, len(m.ops)),
		weights:      slices.Clone(m.weights),
		rtInfo:       maps.Clone(m.rtInfo),
	}
	for _, p := range m.parameters {
		clone.parameters = append(clone.parameters, p.Clone())
	}
	for _, p := range m.results {
		clone.results = append(clone.results, p.Clone())
	}
	for _, op := range m.ops {
		clone.ops = append(clone.ops, op.Clone())
	}
	return clone
}
