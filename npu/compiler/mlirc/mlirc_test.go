package mlirc

import (
	"testing"

	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, values map[string]string) *config.Config {
	desc := config.NewOptionsDesc()
	config.RegisterCommonOptions(desc)
	config.RegisterCompilerOptions(desc)
	config.RegisterRuntimeOptions(desc)
	cfg := config.NewConfig(desc)
	if values != nil {
		var err error
		cfg, err = cfg.Update(values)
		require.NoError(t, err)
	}
	return cfg
}

func convModel() *ir.Model {
	m := ir.NewModel("conv_net", 11)
	m.AddParameter(ir.Port{
		Name:        "input",
		TensorNames: types.SetWith("data"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 3, 16, 16),
	})
	m.AddOperation(ir.Operation{
		Name: "conv1", Type: "Convolution", Version: 1,
		Inputs: []string{"data"}, Outputs: []string{"conv1:0"},
	})
	m.AddOperation(ir.Operation{
		Name: "relu1", Type: "ReLU", Version: 1,
		Inputs: []string{"conv1:0"}, Outputs: []string{"relu1:0"},
	})
	m.AddResult(ir.Port{
		Name:        "output",
		TensorNames: types.SetWith("relu1:0"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 8, 16, 16),
	})
	m.SetWeights([]byte{10, 20, 30, 40})
	return m
}

func TestCompileAndParse(t *testing.T) {
	cfg := testConfig(t, map[string]string{"NPU_PLATFORM": "3720"})
	desc, err := New().Compile(convModel(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, desc.Blob)
	require.Equal(t, "conv_net", desc.Metadata.Name)
	require.Len(t, desc.Metadata.Inputs, 1)
	require.Len(t, desc.Metadata.Outputs, 1)
	require.Equal(t, 1, desc.Metadata.NumStreams)
	require.Empty(t, desc.Metadata.ProfilingOutputs)

	in := desc.Metadata.Inputs[0]
	require.Equal(t, "input", in.NameFromCompiler)
	require.Equal(t, dtypes.Float32, in.Precision)
	require.True(t, in.ShapeFromCompiler.Equal(ir.MakeShape(1, 3, 16, 16)))
	require.NotNil(t, in.ShapeFromIRModel)
	require.True(t, in.OutputTensorNames.Has("data"))

	platformName, err := BlobPlatform(desc.Blob)
	require.NoError(t, err)
	require.Equal(t, "3720", platformName)

	meta, err := New().Parse(desc.Blob, cfg)
	require.NoError(t, err)
	require.Equal(t, "conv_net", meta.Name)
	require.Len(t, meta.Inputs, 1)
	require.Equal(t, "input", meta.Inputs[0].NameFromCompiler)
	require.True(t, meta.Inputs[0].ShapeFromCompiler.Equal(ir.MakeShape(1, 3, 16, 16)))
	require.Len(t, meta.Outputs, 1)
	require.Equal(t, 1, meta.StreamCount())
}

func TestCompileRequiresResolvedPlatform(t *testing.T) {
	_, err := New().Compile(convModel(), testConfig(t, nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "platform")
}

func TestCompileRejectsUnsupportedOps(t *testing.T) {
	m := convModel()
	m.AddOperation(ir.Operation{Name: "exotic", Type: "Erf", Version: 1})
	_, err := New().Compile(m, testConfig(t, map[string]string{"NPU_PLATFORM": "3720"}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exotic")
}

func TestCompileDynamicShapes(t *testing.T) {
	m := ir.NewModel("dyn", 11)
	m.AddParameter(ir.Port{
		Name:        "image",
		TensorNames: types.SetWith("image"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 3, ir.DimDynamic, ir.DimDynamic),
	})
	m.AddResult(ir.Port{
		Name:        "out",
		TensorNames: types.SetWith("out"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 10),
	})

	_, err := New().Compile(m, testConfig(t, map[string]string{"NPU_PLATFORM": "3720"}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "NPU_DYNAMIC_SHAPE_TO_STATIC")

	desc, err := New().Compile(m, testConfig(t, map[string]string{
		"NPU_PLATFORM":                "3720",
		"NPU_DYNAMIC_SHAPE_TO_STATIC": "YES",
	}))
	require.NoError(t, err)

	in := desc.Metadata.Inputs[0]
	require.True(t, in.ShapeFromCompiler.IsStatic())
	require.True(t, in.ShapeFromCompiler.Equal(ir.MakeShape(1, 3, 1, 1)))
	require.False(t, in.ShapeFromIRModel.IsStatic())

	// The caller's model keeps its dynamic shape, compilation works on a
	// clone.
	require.False(t, m.Parameters()[0].Shape.IsStatic())
}

func TestCompileBindsState(t *testing.T) {
	m := ir.NewModel("lstm", 11)
	m.AddParameter(ir.Port{
		Name:        "input",
		TensorNames: types.SetWith("input"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 16),
	})
	m.AddParameter(ir.Port{
		Name:        "hidden",
		TensorNames: types.SetWith("hidden"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 8),
		IsState:     true,
	})
	m.AddResult(ir.Port{
		Name:        "hidden",
		TensorNames: types.SetWith("hidden"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 8),
		IsState:     true,
	})

	cfg := testConfig(t, map[string]string{"NPU_PLATFORM": "3720"})
	desc, err := New().Compile(m, cfg)
	require.NoError(t, err)

	require.True(t, desc.Metadata.Inputs[1].IsStateInput)
	require.Equal(t, 0, desc.Metadata.Inputs[1].RelatedDescriptorIndex)
	require.True(t, desc.Metadata.Outputs[0].IsStateOutput)
	require.Equal(t, 1, desc.Metadata.Outputs[0].RelatedDescriptorIndex)

	// The links survive the round trip through the blob.
	meta, err := New().Parse(desc.Blob, cfg)
	require.NoError(t, err)
	require.Equal(t, 0, meta.Inputs[1].RelatedDescriptorIndex)
	require.Equal(t, 1, meta.Outputs[0].RelatedDescriptorIndex)
}

func TestCompileProfiling(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"NPU_PLATFORM": "3720",
		"PERF_COUNT":   "YES",
	})
	desc, err := New().Compile(convModel(), cfg)
	require.NoError(t, err)
	require.Len(t, desc.Metadata.ProfilingOutputs, 1)

	prof := desc.Metadata.ProfilingOutputs[0]
	require.Equal(t, dtypes.Uint8, prof.Precision)
	require.True(t, prof.ShapeFromCompiler.Equal(ir.MakeShape(2*compiler.LayerRecordSize)))

	meta, err := New().Parse(desc.Blob, cfg)
	require.NoError(t, err)
	require.Len(t, meta.ProfilingOutputs, 1)
}

func TestCompileNumStreamsFromHint(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"NPU_PLATFORM":     "3720",
		"PERFORMANCE_HINT": "THROUGHPUT",
	})
	desc, err := New().Compile(convModel(), cfg)
	require.NoError(t, err)
	require.Equal(t, 2, desc.Metadata.NumStreams)

	meta, err := New().Parse(desc.Blob, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, meta.StreamCount())
}

func TestCompileNumStreamsExplicit(t *testing.T) {
	// An explicit stream count beats the performance hint.
	cfg := testConfig(t, map[string]string{
		"NPU_PLATFORM":     "3720",
		"PERFORMANCE_HINT": "THROUGHPUT",
		"NUM_STREAMS":      "4",
	})
	desc, err := New().Compile(convModel(), cfg)
	require.NoError(t, err)
	require.Equal(t, 4, desc.Metadata.NumStreams)
}

func TestSupportedOpsetVersion(t *testing.T) {
	require.Equal(t, 11, New().SupportedOpsetVersion())
}

func TestCompileRejectsNewerOpset(t *testing.T) {
	m := ir.NewModel("future_net", 12)
	m.AddParameter(ir.Port{
		Name:        "input",
		TensorNames: types.SetWith("input"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1),
	})
	_, err := New().Compile(m, testConfig(t, map[string]string{"NPU_PLATFORM": "3720"}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "opset 12")
}

func TestQuery(t *testing.T) {
	m := convModel()
	m.AddOperation(ir.Operation{Name: "exotic", Type: "Erf", Version: 1})
	m.AddOperation(ir.Operation{
		Name: "resize", Type: "Interpolate", Version: 11,
		Attributes: map[string]string{"mode": "bicubic_pillow"},
	})

	supported, err := New().Query(m, testConfig(t, nil))
	require.NoError(t, err)
	require.True(t, supported.Has("conv1"))
	require.True(t, supported.Has("relu1"))
	require.False(t, supported.Has("exotic"))
	require.False(t, supported.Has("resize"))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := New().Parse([]byte("definitely not a blob"), testConfig(t, nil))
	require.Error(t, err)

	_, err = New().Parse(nil, testConfig(t, nil))
	require.Error(t, err)
}

func TestProcessProfilingOutput(t *testing.T) {
	cfg := testConfig(t, map[string]string{"NPU_PLATFORM": "3720", "PERF_COUNT": "YES"})
	desc, err := New().Compile(convModel(), cfg)
	require.NoError(t, err)

	raw := compiler.EncodeLayerInfo([]compiler.LayerInfo{
		{Name: "conv1", Type: "Convolution", Status: compiler.LayerStatusExecuted, DurationNs: 1000, DPUNs: 900},
		{Name: "relu1", Type: "ReLU", Status: compiler.LayerStatusExecuted, DurationNs: 200, SWNs: 200},
	})
	layers, err := New().ProcessProfilingOutput(raw, desc.Blob, cfg)
	require.NoError(t, err)
	require.Len(t, layers, 2)
	require.Equal(t, "conv1", layers[0].Name)

	_, err = New().ProcessProfilingOutput(raw, []byte("bogus"), cfg)
	require.Error(t, err)
}
