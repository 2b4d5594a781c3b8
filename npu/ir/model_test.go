package ir

import (
	"testing"

	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

// simpleConvModel builds a small static model with one convolution, used
// across the package tests.
func simpleConvModel() *Model {
	m := NewModel("conv_net", 11)
	m.AddParameter(Port{
		Name:        "input",
		TensorNames: types.SetWith("data", "input:0"),
		Precision:   dtypes.Float32,
		Shape:       MakeShape(1, 3, 16, 16),
	})
	m.AddOperation(Operation{
		Name:       "conv1",
		Type:       "Convolution",
		Version:    1,
		Attributes: map[string]string{"strides": "1,1", "pads_begin": "0,0"},
		Inputs:     []string{"data"},
		Outputs:    []string{"conv1:0"},
	})
	m.AddResult(Port{
		Name:        "output",
		TensorNames: types.SetWith("conv1:0"),
		Precision:   dtypes.Float32,
		Shape:       MakeShape(1, 8, 16, 16),
	})
	m.SetWeights([]byte{1, 2, 3, 4})
	return m
}

func TestModelClone(t *testing.T) {
	m := simpleConvModel()
	m.SetRTInfo("is_new_api", "true")

	clone := m.Clone()
	require.Equal(t, m.Name(), clone.Name())
	require.Equal(t, m.OpsetVersion(), clone.OpsetVersion())
	require.Equal(t, m.Weights(), clone.Weights())

	// Mutating the clone must not touch the original.
	clone.Parameters()[0].TensorNames.Insert("extra")
	clone.Operations()[0].Attributes["strides"] = "2,2"
	clone.Weights()[0] = 99
	clone.EraseRTInfo("is_new_api")

	require.False(t, m.Parameters()[0].TensorNames.Has("extra"))
	require.Equal(t, "1,1", m.Operations()[0].Attributes["strides"])
	require.Equal(t, byte(1), m.Weights()[0])
	_, ok := m.RTInfo("is_new_api")
	require.True(t, ok)
}

func TestModelRTInfo(t *testing.T) {
	m := NewModel("m", 11)
	_, ok := m.RTInfo("is_new_api")
	require.False(t, ok)

	m.SetRTInfo("is_new_api", "true")
	v, ok := m.RTInfo("is_new_api")
	require.True(t, ok)
	require.Equal(t, "true", v)

	m.EraseRTInfo("is_new_api")
	_, ok = m.RTInfo("is_new_api")
	require.False(t, ok)
}

func TestPortAnyTensorName(t *testing.T) {
	p := Port{Name: "node", TensorNames: types.SetWith("zeta", "alpha")}
	require.Equal(t, "alpha", p.AnyTensorName())

	p = Port{Name: "node"}
	require.Equal(t, "node", p.AnyTensorName())
}

func TestModelWeightsSize(t *testing.T) {
	m := NewModel("m", 11)
	require.Equal(t, int64(0), m.WeightsSize())
	m.SetWeights(make([]byte, 1024))
	require.Equal(t, int64(1024), m.WeightsSize())
}
