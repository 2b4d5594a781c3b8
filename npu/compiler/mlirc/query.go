package mlirc

import (
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
)

// supportedOps are the operation types the compiler can map to the device.
var supportedOps = types.SetWith(
	"Add", "AvgPool", "Assign", "Clamp", "Concat", "Constant", "Convert",
	"Convolution", "Divide", "Elu", "FakeQuantize", "Gather",
	"GroupConvolution", "Interpolate", "MatMul", "MaxPool", "Multiply",
	"Pad", "PReLU", "ReadValue", "ReduceMax", "ReduceMean", "ReduceSum",
	"ReLU", "Reshape", "Result", "ShapeOf", "Sigmoid", "SoftMax", "Split",
	"Squeeze", "StridedSlice", "Subtract", "Tanh", "Transpose", "Unsqueeze",
)

// opSupported reports whether one operation can run on the device. The
// pillow resize modes have no device lowering.
func opSupported(op ir.Operation) bool {
	if !supportedOps.Has(op.Type) {
		return false
	}
	if op.Type == "Interpolate" {
		switch op.Attributes["mode"] {
		case "bilinear_pillow", "bicubic_pillow":
			return false
		}
	}
	return true
}

// unsupportedOps returns the friendly names of the model operations the
// compiler cannot map, in graph order.
func unsupportedOps(model *ir.Model) []string {
	var names []string
	for _, op := range model.Operations() {
		if !opSupported(op) {
			names = append(names, op.Name)
		}
	}
	return names
}
