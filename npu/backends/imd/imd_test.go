package imd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// installTools lays out a fake simulator tool chain: a moviSim script with
// the given body and the 3720 application.
func installTools(t *testing.T, simScript string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("the fake simulator needs a POSIX shell")
	}
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "simulator"), 0o755))
	require.NoError(t, os.WriteFile(simulatorBinary(root), []byte("#!/bin/sh\n"+simScript+"\n"), 0o755))
	appDir := filepath.Join(root, "InferenceManagerDemo", "3720")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	require.NoError(t, os.WriteFile(appPath(root, "3720"), nil, 0o644))
	return root
}

func imdConfig(t *testing.T, b *Backend, values map[string]string) *config.Config {
	t.Helper()
	desc := config.NewOptionsDesc()
	config.RegisterCommonOptions(desc)
	config.RegisterRuntimeOptions(desc)
	b.RegisterOptions(desc)
	cfg := config.NewConfig(desc)
	if values != nil {
		var err error
		cfg, err = cfg.Update(values)
		require.NoError(t, err)
	}
	return cfg
}

func simMetadata() *compiler.NetworkMetadata {
	meta := compiler.NewNetworkMetadata("sim_net")
	meta.Inputs = append(meta.Inputs,
		compiler.NewIODescriptor("input", dtypes.Float32, ir.MakeShape(2)))
	meta.Outputs = append(meta.Outputs,
		compiler.NewIODescriptor("output", dtypes.Float32, ir.MakeShape(2)))
	return meta
}

func simRequest(t *testing.T, b *Backend, values map[string]string) backends.InferRequest {
	t.Helper()
	device, err := b.Device()
	require.NoError(t, err)
	meta := simMetadata()
	exec, err := device.CreateExecutor(compiler.NewNetworkDescription([]byte("blob"), *meta), imdConfig(t, b, nil))
	require.NoError(t, err)
	req, err := device.CreateInferRequest(exec, meta, imdConfig(t, b, values))
	require.NoError(t, err)
	return req
}

func TestNewAtPathDiscoversDevices(t *testing.T) {
	root := installTools(t, "exit 0")
	b, err := NewAtPath(root, imdConfig(t, &Backend{}, nil))
	require.NoError(t, err)
	require.Equal(t, BackendName, b.Name())
	require.Equal(t, []string{"3720"}, b.DeviceNames())

	device, err := b.Device()
	require.NoError(t, err)
	require.Equal(t, "3720", device.Name())

	_, err = b.DeviceByName("3700")
	require.ErrorIs(t, err, backends.ErrDeviceNotFound)

	byParams, err := b.DeviceByParams(map[string]string{config.DeviceID.Key(): "3720"})
	require.NoError(t, err)
	require.Equal(t, "3720", byParams.Name())
	byParams, err = b.DeviceByParams(nil)
	require.NoError(t, err)
	require.Equal(t, "3720", byParams.Name())
}

func TestNewWithoutToolsIsUnavailable(t *testing.T) {
	_, err := NewAtPath(filepath.Join(t.TempDir(), "missing"), nil)
	require.ErrorIs(t, err, backends.ErrBackendUnavailable)

	t.Setenv(ToolsPathEnv, "")
	_, err = New(nil)
	require.ErrorIs(t, err, backends.ErrBackendUnavailable)
}

func TestDeviceProperties(t *testing.T) {
	root := installTools(t, "exit 0")
	b, err := NewAtPath(root, nil)
	require.NoError(t, err)
	device, err := b.Device()
	require.NoError(t, err)

	require.Contains(t, device.FullName(), "3720")

	id, err := device.UUID()
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	// The id is stable across constructions.
	again, err := NewAtPath(root, nil)
	require.NoError(t, err)
	sameDevice, err := again.Device()
	require.NoError(t, err)
	sameID, err := sameDevice.UUID()
	require.NoError(t, err)
	require.Equal(t, id, sameID)

	slices, err := device.MaxNumSlices()
	require.NoError(t, err)
	require.EqualValues(t, 1, slices)

	_, err = device.SubDeviceID()
	require.Error(t, err)
	_, err = device.TotalMemSize()
	require.Error(t, err)
	_, err = device.DriverVersion()
	require.Error(t, err)
}

func TestInferRoundTrip(t *testing.T) {
	// The fake application echoes the input back.
	root := installTools(t, "cp input-0.bin output-0.bin")
	b, err := NewAtPath(root, nil)
	require.NoError(t, err)
	req := simRequest(t, b, nil)

	in, err := req.GetTensor("input")
	require.NoError(t, err)
	require.NoError(t, in.SetFloats([]float32{1.5, -2}))

	require.NoError(t, req.Infer())

	out, err := req.GetTensor("output")
	require.NoError(t, err)
	values, err := out.Floats()
	require.NoError(t, err)
	require.Equal(t, []float32{1.5, -2}, values)
}

func TestInferSimulatorFailure(t *testing.T) {
	root := installTools(t, "echo boom; exit 3")
	b, err := NewAtPath(root, nil)
	require.NoError(t, err)
	req := simRequest(t, b, nil)

	err = req.Infer()
	require.Error(t, err)
	require.Contains(t, err.Error(), "simulator failed")
	require.Contains(t, err.Error(), "boom")
}

func TestInferMissingOutput(t *testing.T) {
	root := installTools(t, "exit 0")
	b, err := NewAtPath(root, nil)
	require.NoError(t, err)
	req := simRequest(t, b, nil)

	err = req.Infer()
	require.Error(t, err)
	require.Contains(t, err.Error(), "output-0.bin")
}

func TestInferTimeout(t *testing.T) {
	root := installTools(t, "sleep 10")
	b, err := NewAtPath(root, nil)
	require.NoError(t, err)
	req := simRequest(t, b, map[string]string{"NPU_IMD_TIMEOUT_SEC": "1"})

	err = req.Infer()
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
}

func TestProfilingUnsupported(t *testing.T) {
	root := installTools(t, "exit 0")
	b, err := NewAtPath(root, nil)
	require.NoError(t, err)
	req := simRequest(t, b, nil)

	_, err = req.ProfilingInfo()
	require.Error(t, err)
}
