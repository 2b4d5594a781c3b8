// Package imd implements the engine backend running inferences on the
// InferenceManagerDemo application under a device simulator instead of
// real hardware. Each inference materializes the blob and the input
// tensors in a scratch directory, runs the simulator there and reads the
// output files back.
//
// The backend is available when the simulator tool chain is installed and
// announced through the NPU_IMD_TOOLS_PATH environment variable.
package imd

import (
	"os"
	"path/filepath"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName is the name this backend registers under.
const BackendName = "IMD"

// ToolsPathEnv announces the simulator tool chain install root.
const ToolsPathEnv = "NPU_IMD_TOOLS_PATH"

// Launch modes for the InferenceManagerDemo application.
const (
	LaunchMoviSim   = "MOVI_SIM"
	LaunchMoviDebug = "MOVI_DEBUG"
)

// Options of the IMD backend, registered through RegisterOptions.
var (
	// LaunchMode selects how the application is launched.
	LaunchMode = config.ChoiceOption("NPU_IMD_LAUNCH_MODE", LaunchMoviSim,
		config.ModeRunTime, false, LaunchMoviSim, LaunchMoviDebug)

	// InferenceTimeout bounds one simulator run, in seconds. Simulated
	// inferences run orders of magnitude slower than hardware.
	InferenceTimeout = config.IntOption("NPU_IMD_TIMEOUT_SEC", 600,
		config.ModeRunTime, false)
)

// knownPlatforms are the platforms the simulator tool chain can ship
// applications for.
var knownPlatforms = []string{platform.NPU3700, platform.NPU3720}

func init() {
	backends.Register(BackendName, New)
}

// Backend exposes one simulated device per installed application.
type Backend struct {
	toolsPath string
	devices   map[string]*Device
}

var _ backends.EngineBackend = &Backend{}

// New locates the simulator tool chain through ToolsPathEnv and returns
// the backend over it. Without the tool chain the error wraps
// ErrBackendUnavailable and the registry skips the backend quietly.
func New(cfg *config.Config) (backends.EngineBackend, error) {
	toolsPath := os.Getenv(ToolsPathEnv)
	if toolsPath == "" {
		return nil, errors.Wrapf(backends.ErrBackendUnavailable, "%s is not set", ToolsPathEnv)
	}
	return NewAtPath(toolsPath, cfg)
}

// NewAtPath builds the backend over the simulator tool chain installed at
// toolsPath.
func NewAtPath(toolsPath string, cfg *config.Config) (*Backend, error) {
	sim := simulatorBinary(toolsPath)
	if _, err := os.Stat(sim); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(backends.ErrBackendUnavailable, "simulator %s does not exist", sim)
		}
		return nil, errors.Wrapf(err, "checking simulator %s", sim)
	}

	b := &Backend{toolsPath: toolsPath, devices: make(map[string]*Device)}
	for _, platformName := range knownPlatforms {
		if _, err := os.Stat(appPath(toolsPath, platformName)); err != nil {
			klog.V(2).Infof("No %s application for platform %s", BackendName, platformName)
			continue
		}
		b.devices[platformName] = newDevice(toolsPath, platformName)
	}
	klog.V(1).Infof("IMD tool chain at %s serves %d simulated device(s)", toolsPath, len(b.devices))
	return b, nil
}

// Name implements backends.EngineBackend.
func (b *Backend) Name() string { return BackendName }

// DeviceNames implements backends.EngineBackend.
func (b *Backend) DeviceNames() []string {
	names := types.MakeSet[string](len(b.devices))
	for name := range b.devices {
		names.Insert(name)
	}
	return types.Sorted(names)
}

// Device implements backends.EngineBackend, returning the first device in
// name order.
func (b *Backend) Device() (backends.Device, error) {
	names := b.DeviceNames()
	if len(names) == 0 {
		return nil, errors.Wrapf(backends.ErrDeviceNotFound, "backend has no devices")
	}
	return b.devices[names[0]], nil
}

// DeviceByName implements backends.EngineBackend.
func (b *Backend) DeviceByName(name string) (backends.Device, error) {
	device, found := b.devices[name]
	if !found {
		return nil, errors.Wrapf(backends.ErrDeviceNotFound, "device %q", name)
	}
	return device, nil
}

// DeviceByParams implements backends.EngineBackend.
func (b *Backend) DeviceByParams(params map[string]string) (backends.Device, error) {
	if name := params[config.DeviceID.Key()]; name != "" {
		return b.DeviceByName(name)
	}
	return b.Device()
}

// RegisterOptions implements backends.EngineBackend.
func (b *Backend) RegisterOptions(desc *config.OptionsDesc) {
	desc.Add(LaunchMode, InferenceTimeout)
}

func simulatorBinary(toolsPath string) string {
	return filepath.Join(toolsPath, "simulator", "moviSim")
}

func debuggerBinary(toolsPath string) string {
	return filepath.Join(toolsPath, "simulator", "moviDebug")
}

func appPath(toolsPath, platformName string) string {
	return filepath.Join(toolsPath, "InferenceManagerDemo", platformName, "InferenceManagerDemo.elf")
}
