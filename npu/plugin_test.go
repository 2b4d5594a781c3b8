package npu

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/compiler/mlirc"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// stubKnob stands in for a backend specific option, it exists to show up
// in the plugin's option registry when the stub backend is active.
var stubKnob = config.StringOption("NPU_STUB_KNOB", "off", config.ModeRunTime, false)

type stubRequest struct {
	*backends.SyncInferRequest
}

func (r *stubRequest) Infer() error { return nil }

func (r *stubRequest) ProfilingInfo() ([]compiler.ProfilingInfo, error) {
	return nil, errors.New("the stub backend collects no profiling data")
}

type stubExecutor struct {
	finalized int
}

func (e *stubExecutor) Finalize() error {
	e.finalized++
	return nil
}

type stubDevice struct {
	name string

	executors    int
	lastExecutor *stubExecutor
	executorErr  error
}

func (d *stubDevice) Name() string                   { return d.name }
func (d *stubDevice) FullName() string               { return "Stub NPU " + d.name }
func (d *stubDevice) UUID() (uuid.UUID, error)       { return uuid.Nil, nil }
func (d *stubDevice) SubDeviceID() (int64, error)    { return 0, errors.New("not a sub device") }
func (d *stubDevice) MaxNumSlices() (uint32, error)  { return 1, nil }
func (d *stubDevice) AllocMemSize() (uint64, error)  { return 0, nil }
func (d *stubDevice) TotalMemSize() (uint64, error)  { return 1 << 30, nil }
func (d *stubDevice) DriverVersion() (uint32, error) { return 1, nil }

func (d *stubDevice) CreateExecutor(desc *compiler.NetworkDescription, cfg *config.Config) (backends.Executor, error) {
	if d.executorErr != nil {
		return nil, d.executorErr
	}
	d.executors++
	d.lastExecutor = &stubExecutor{}
	return d.lastExecutor, nil
}

func (d *stubDevice) CreateInferRequest(exec backends.Executor, metadata *compiler.NetworkMetadata, cfg *config.Config) (backends.InferRequest, error) {
	sync, err := backends.NewSyncInferRequest(metadata)
	if err != nil {
		return nil, err
	}
	return &stubRequest{SyncInferRequest: sync}, nil
}

type stubBackend struct {
	name    string
	devices []*stubDevice
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) DeviceNames() []string {
	names := make([]string, 0, len(b.devices))
	for _, device := range b.devices {
		names = append(names, device.name)
	}
	return names
}

func (b *stubBackend) Device() (backends.Device, error) {
	if len(b.devices) == 0 {
		return nil, errors.Wrapf(backends.ErrDeviceNotFound, "the stub backend has no devices")
	}
	return b.devices[0], nil
}

func (b *stubBackend) DeviceByName(name string) (backends.Device, error) {
	for _, device := range b.devices {
		if device.name == name {
			return device, nil
		}
	}
	return nil, errors.Wrapf(backends.ErrDeviceNotFound, "no stub device %q", name)
}

func (b *stubBackend) DeviceByParams(params map[string]string) (backends.Device, error) {
	if name := params[config.DeviceID.Key()]; name != "" {
		return b.DeviceByName(name)
	}
	return b.Device()
}

func (b *stubBackend) RegisterOptions(desc *config.OptionsDesc) {
	desc.Add(stubKnob)
}

var stubSerial int

// stubPlugin registers a stub backend under a name unique to the test and
// builds a plugin scanning only that backend.
func stubPlugin(t *testing.T, devices ...*stubDevice) *Plugin {
	t.Helper()
	stubSerial++
	name := fmt.Sprintf("STUB%d", stubSerial)
	backends.Register(name, func(cfg *config.Config) (backends.EngineBackend, error) {
		return &stubBackend{name: name, devices: devices}, nil
	})
	return newPlugin([]string{name})
}

func stubModel() *ir.Model {
	m := ir.NewModel("stub_net", 11)
	m.AddParameter(ir.Port{
		Name:        "input",
		TensorNames: types.SetWith("data"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 3, 8, 8),
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
		Shape:       ir.MakeShape(1, 4, 8, 8),
	})
	m.SetWeights([]byte{1, 2, 3, 4})
	return m
}

func TestNewPluginSelectsBackend(t *testing.T) {
	p := stubPlugin(t, &stubDevice{name: "3720.0"}, &stubDevice{name: "3720.1"})
	require.Equal(t, []string{"3720.0", "3720.1"}, p.Registry().AvailableDeviceNames())

	// The active backend contributed its own option to the registry.
	value, err := p.Property(stubKnob.Key())
	require.NoError(t, err)
	require.Equal(t, "off", value)
}

func TestPluginProperties(t *testing.T) {
	p := stubPlugin(t, &stubDevice{name: "3720.0"})

	value, err := p.Property("PERF_COUNT")
	require.NoError(t, err)
	require.Equal(t, "NO", value)

	require.NoError(t, p.SetProperties(map[string]string{"PERF_COUNT": "YES"}))
	value, err = p.Property("PERF_COUNT")
	require.NoError(t, err)
	require.Equal(t, "YES", value)

	// A bad value leaves the configuration untouched.
	require.Error(t, p.SetProperties(map[string]string{"PERF_COUNT": "MAYBE"}))
	value, err = p.Property("PERF_COUNT")
	require.NoError(t, err)
	require.Equal(t, "YES", value)

	_, err = p.Property("NO_SUCH_PROPERTY")
	require.ErrorContains(t, err, "NO_SUCH_PROPERTY")

	public := p.PublicProperties()
	require.Contains(t, public, "PERF_COUNT")
	require.Contains(t, public, "DEVICE_ID")
	require.NotContains(t, public, "NPU_PLATFORM")
}

func TestCompileModelLoadsExecutor(t *testing.T) {
	device := &stubDevice{name: "3720.0"}
	p := stubPlugin(t, device)

	compiled, err := p.CompileModel(stubModel(), nil)
	require.NoError(t, err)
	require.Equal(t, "stub_net", compiled.Metadata().Name)
	require.NotEmpty(t, compiled.Blob())
	require.Equal(t, 1, device.executors)

	// The platform was auto detected from the device name.
	platformName, err := mlirc.BlobPlatform(compiled.Blob())
	require.NoError(t, err)
	require.Equal(t, "3720", platformName)
}

func TestCompileModelDeferredExecutor(t *testing.T) {
	device := &stubDevice{name: "3720.0"}
	p := stubPlugin(t, device)

	compiled, err := p.CompileModel(stubModel(), map[string]string{"NPU_CREATE_EXECUTOR": "0"})
	require.NoError(t, err)
	require.Equal(t, 0, device.executors)

	request, err := compiled.CreateInferRequest()
	require.NoError(t, err)
	require.NotNil(t, request)
	require.Equal(t, 1, device.executors)

	// The executor is reused by further requests.
	_, err = compiled.CreateInferRequest()
	require.NoError(t, err)
	require.Equal(t, 1, device.executors)

	// Release frees it, the next request loads the network again.
	executor := device.lastExecutor
	require.NoError(t, compiled.Release())
	require.Equal(t, 1, executor.finalized)
	require.NoError(t, compiled.Release())
	require.Equal(t, 1, executor.finalized)

	_, err = compiled.CreateInferRequest()
	require.NoError(t, err)
	require.Equal(t, 2, device.executors)
}

func TestCompileModelValuesAreForOneCall(t *testing.T) {
	p := stubPlugin(t, &stubDevice{name: "3720.0"})

	_, err := p.CompileModel(stubModel(), map[string]string{"PERF_COUNT": "YES"})
	require.NoError(t, err)

	value, err := p.Property("PERF_COUNT")
	require.NoError(t, err)
	require.Equal(t, "NO", value)
}

func TestCompileModelWithoutDevices(t *testing.T) {
	p := stubPlugin(t)

	// Auto detection has nothing to detect from.
	_, err := p.CompileModel(stubModel(), nil)
	require.ErrorContains(t, err, "explicitly specified")

	// An explicit platform compiles for export only.
	compiled, err := p.CompileModel(stubModel(), map[string]string{"NPU_PLATFORM": "3720"})
	require.NoError(t, err)

	var blob bytes.Buffer
	require.NoError(t, compiled.Export(&blob))
	require.NotEmpty(t, blob.Bytes())

	_, err = compiled.CreateInferRequest()
	require.ErrorIs(t, err, backends.ErrNoBackend)
}

func TestCompileModelExecutorFailure(t *testing.T) {
	device := &stubDevice{name: "3720.0", executorErr: errors.New("out of device memory")}
	p := stubPlugin(t, device)

	_, err := p.CompileModel(stubModel(), nil)
	require.ErrorContains(t, err, "out of device memory")
}

func TestImportModelRoundTrip(t *testing.T) {
	device := &stubDevice{name: "3720.0"}
	p := stubPlugin(t, device)

	compiled, err := p.CompileModel(stubModel(), map[string]string{"NPU_CREATE_EXECUTOR": "0"})
	require.NoError(t, err)

	var blob bytes.Buffer
	require.NoError(t, compiled.Export(&blob))

	imported, err := p.ImportModel(&blob, nil)
	require.NoError(t, err)
	require.Equal(t, "stub_net", imported.Metadata().Name)
	require.Equal(t, compiled.Metadata().Inputs, imported.Metadata().Inputs)
	require.Equal(t, compiled.Metadata().Outputs, imported.Metadata().Outputs)

	// Importing loads the network onto the device right away.
	require.Equal(t, 1, device.executors)
	request, err := imported.CreateInferRequest()
	require.NoError(t, err)
	require.NotNil(t, request)
	require.Equal(t, 1, device.executors)
}

func TestQueryModel(t *testing.T) {
	p := stubPlugin(t, &stubDevice{name: "3720.0"})

	model := stubModel()
	model.AddOperation(ir.Operation{
		Name: "exotic", Type: "Erf", Version: 1,
		Inputs: []string{"relu1:0"}, Outputs: []string{"exotic:0"},
	})

	supported, err := p.QueryModel(model, nil)
	require.NoError(t, err)
	require.True(t, supported.Has("conv1"))
	require.True(t, supported.Has("relu1"))
	require.False(t, supported.Has("exotic"))
}

func TestProcessProfilingOutput(t *testing.T) {
	p := stubPlugin(t, &stubDevice{name: "3720.0"})

	compiled, err := p.CompileModel(stubModel(), map[string]string{"NPU_CREATE_EXECUTOR": "0"})
	require.NoError(t, err)

	profData := compiler.EncodeLayerInfo([]compiler.LayerInfo{{
		Name: "conv1", Type: "Convolution", Status: compiler.LayerStatusExecuted,
		DurationNs: 120_000, DPUNs: 110_000, SWNs: 4_000, DMANs: 6_000,
	}, {
		Name: "relu1", Type: "ReLU", Status: compiler.LayerStatusOptimizedOut,
	}})

	report, err := p.ProcessProfilingOutput(profData, compiled.Blob(), nil)
	require.NoError(t, err)
	require.Len(t, report, 2)
	require.Equal(t, "conv1", report[0].Name)
	require.Equal(t, "DPU", report[0].ExecType)
	require.Equal(t, 120*time.Microsecond, report[0].RealTime)
	require.Equal(t, compiler.LayerStatusOptimizedOut, report[1].Status)

	_, err = p.ProcessProfilingOutput(profData[:10], compiled.Blob(), nil)
	require.ErrorContains(t, err, "record size")
}

func TestDriverCompilerNeedsDriverBackend(t *testing.T) {
	p := stubPlugin(t, &stubDevice{name: "3720.0"})

	_, err := p.CompileModel(stubModel(), map[string]string{"NPU_COMPILER_TYPE": "DRIVER"})
	require.ErrorContains(t, err, "no compiler in its driver")

	// Without any device the driver compiler cannot run at all.
	empty := stubPlugin(t)
	_, err = empty.CompileModel(stubModel(), map[string]string{
		"NPU_COMPILER_TYPE": "DRIVER",
		"NPU_PLATFORM":      "3720",
	})
	require.ErrorIs(t, err, backends.ErrNoBackend)
}
