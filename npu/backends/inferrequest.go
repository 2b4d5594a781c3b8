package backends

import (
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/pkg/errors"
)

type tensorRef struct {
	isInput bool
	index   int
}

// SyncInferRequest is the backend independent part of an inference
// request: the request tensors, allocated from the network metadata and
// addressable by name. Device backends embed it and add the actual
// inference.
//
// The read and write halves of a state variable share a single tensor, the
// state carries over between inferences without copies. That sharing
// follows the companion links in the metadata, so the metadata must have
// its descriptors bound.
type SyncInferRequest struct {
	metadata *compiler.NetworkMetadata

	inputs  []*Tensor
	outputs []*Tensor
	byName  map[string]tensorRef
}

// NewSyncInferRequest allocates the request tensors for a network.
// Descriptors with static shapes get their tensors allocated up front,
// dynamically shaped ones start empty and must be set before inference.
func NewSyncInferRequest(metadata *compiler.NetworkMetadata) (*SyncInferRequest, error) {
	r := &SyncInferRequest{
		metadata: metadata,
		inputs:   make([]*Tensor, len(metadata.Inputs)),
		outputs:  make([]*Tensor, len(metadata.Outputs)),
		byName:   make(map[string]tensorRef),
	}
	for i := range metadata.Inputs {
		desc := &metadata.Inputs[i]
		if desc.ShapeFromCompiler.IsStatic() {
			t, err := NewTensor(desc.Precision, desc.ShapeFromCompiler)
			if err != nil {
				return nil, errors.WithMessagef(err, "allocating input %q", desc.NodeFriendlyName)
			}
			r.inputs[i] = t
		}
		r.registerNames(desc, tensorRef{isInput: true, index: i})
	}
	for i := range metadata.Outputs {
		desc := &metadata.Outputs[i]
		if desc.IsStateOutput && desc.IsRelated() {
			// The write half of a state shares the read half's tensor.
			r.outputs[i] = r.inputs[desc.RelatedDescriptorIndex]
		} else if desc.ShapeFromCompiler.IsStatic() {
			t, err := NewTensor(desc.Precision, desc.ShapeFromCompiler)
			if err != nil {
				return nil, errors.WithMessagef(err, "allocating output %q", desc.NodeFriendlyName)
			}
			r.outputs[i] = t
		}
		r.registerNames(desc, tensorRef{index: i})
	}
	return r, nil
}

// registerNames indexes a descriptor under its friendly name and tensor
// names. The first descriptor claiming a name keeps it.
func (r *SyncInferRequest) registerNames(desc *compiler.IODescriptor, ref tensorRef) {
	if _, taken := r.byName[desc.NodeFriendlyName]; !taken {
		r.byName[desc.NodeFriendlyName] = ref
	}
	for name := range desc.OutputTensorNames {
		if _, taken := r.byName[name]; !taken {
			r.byName[name] = ref
		}
	}
}

// Metadata returns the network metadata the request was built from.
func (r *SyncInferRequest) Metadata() *compiler.NetworkMetadata { return r.metadata }

// InputTensor returns the tensor of the i-th input descriptor, nil when
// not yet set.
func (r *SyncInferRequest) InputTensor(i int) *Tensor { return r.inputs[i] }

// OutputTensor returns the tensor of the i-th output descriptor, nil when
// not yet set.
func (r *SyncInferRequest) OutputTensor(i int) *Tensor { return r.outputs[i] }

func (r *SyncInferRequest) lookup(name string) (tensorRef, *compiler.IODescriptor, error) {
	ref, found := r.byName[name]
	if !found {
		return tensorRef{}, nil, errors.Errorf("network %q has no port named %q",
			r.metadata.Name, name)
	}
	if ref.isInput {
		return ref, &r.metadata.Inputs[ref.index], nil
	}
	return ref, &r.metadata.Outputs[ref.index], nil
}

// GetTensor returns the request tensor for the named port.
func (r *SyncInferRequest) GetTensor(name string) (*Tensor, error) {
	ref, desc, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	tensors := r.outputs
	if ref.isInput {
		tensors = r.inputs
	}
	if tensors[ref.index] == nil {
		return nil, errors.Errorf("tensor %q has a dynamic shape and was not set", desc.NodeFriendlyName)
	}
	return tensors[ref.index], nil
}

// compatibleShape reports whether a concrete tensor shape satisfies a
// descriptor shape, dimension by dimension with dynamic ones free.
func compatibleShape(desc *compiler.IODescriptor, t *Tensor) bool {
	want := desc.ShapeFromCompiler
	got := t.Shape()
	if want.Rank() != got.Rank() {
		return false
	}
	for i, dim := range want.Dimensions {
		if dim != got.Dimensions[i] && dim != ir.DimDynamic {
			return false
		}
	}
	return true
}

// SetTensor replaces the tensor of the named port. The tensor must match
// the port's precision and shape, with the descriptor's dynamic dimensions
// accepting any extent. Setting either half of a state replaces the shared
// tensor for both halves.
func (r *SyncInferRequest) SetTensor(name string, t *Tensor) error {
	ref, desc, err := r.lookup(name)
	if err != nil {
		return err
	}
	if t.DType() != desc.Precision {
		return errors.Errorf("port %q expects %s, got a tensor of %s",
			desc.NodeFriendlyName, desc.Precision, t.DType())
	}
	if !compatibleShape(desc, t) {
		return errors.Errorf("port %q expects shape %s, got a tensor of shape %s",
			desc.NodeFriendlyName, desc.ShapeFromCompiler, t.Shape())
	}
	if ref.isInput {
		r.inputs[ref.index] = t
		if desc.IsStateInput && desc.IsRelated() {
			r.outputs[desc.RelatedDescriptorIndex] = t
		}
	} else {
		r.outputs[ref.index] = t
		if desc.IsStateOutput && desc.IsRelated() {
			r.inputs[desc.RelatedDescriptorIndex] = t
		}
	}
	return nil
}

// CheckTensors verifies every port has a tensor, which dynamically shaped
// ports only get once set. Device backends call it before running.
func (r *SyncInferRequest) CheckTensors() error {
	for i, t := range r.inputs {
		if t == nil {
			return errors.Errorf("input %q was not set", r.metadata.Inputs[i].NodeFriendlyName)
		}
	}
	for i, t := range r.outputs {
		if t == nil {
			return errors.Errorf("output %q was not set", r.metadata.Outputs[i].NodeFriendlyName)
		}
	}
	return nil
}
