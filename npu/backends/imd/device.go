package imd

import (
	"fmt"
	"time"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Device is one simulated device, identified by its platform.
type Device struct {
	toolsPath string
	platform  string
	id        uuid.UUID
}

var _ backends.Device = &Device{}

func newDevice(toolsPath, platformName string) *Device {
	return &Device{
		toolsPath: toolsPath,
		platform:  platformName,
		id:        uuid.NewSHA1(uuid.NameSpaceOID, []byte("NPU.IMD."+platformName)),
	}
}

// Name implements backends.Device.
func (d *Device) Name() string { return d.platform }

// FullName implements backends.Device.
func (d *Device) FullName() string {
	return fmt.Sprintf("NPU %s (InferenceManagerDemo)", d.platform)
}

// UUID implements backends.Device. Simulated devices get a stable id
// derived from their platform.
func (d *Device) UUID() (uuid.UUID, error) { return d.id, nil }

// SubDeviceID implements backends.Device.
func (d *Device) SubDeviceID() (int64, error) {
	return 0, errors.Errorf("device %s is not a sub device", d.platform)
}

// MaxNumSlices implements backends.Device.
func (d *Device) MaxNumSlices() (uint32, error) { return 1, nil }

// AllocMemSize implements backends.Device.
func (d *Device) AllocMemSize() (uint64, error) {
	return 0, errors.Errorf("the IMD backend does not expose device memory")
}

// TotalMemSize implements backends.Device.
func (d *Device) TotalMemSize() (uint64, error) {
	return 0, errors.Errorf("the IMD backend does not expose device memory")
}

// DriverVersion implements backends.Device.
func (d *Device) DriverVersion() (uint32, error) {
	return 0, errors.Errorf("the IMD backend runs without a driver")
}

// CreateExecutor implements backends.Device. Nothing is loaded anywhere,
// the blob is materialized per inference.
func (d *Device) CreateExecutor(desc *compiler.NetworkDescription, cfg *config.Config) (backends.Executor, error) {
	return &Executor{blob: desc.Blob, network: desc.Metadata.Name}, nil
}

// CreateInferRequest implements backends.Device. The launch mode and
// timeout are fixed at creation from cfg.
func (d *Device) CreateInferRequest(exec backends.Executor, metadata *compiler.NetworkMetadata, cfg *config.Config) (backends.InferRequest, error) {
	executor, ok := exec.(*Executor)
	if !ok {
		return nil, errors.Errorf("executor %T was not created by the %s backend", exec, BackendName)
	}
	sync, err := backends.NewSyncInferRequest(metadata)
	if err != nil {
		return nil, err
	}
	return &InferRequest{
		SyncInferRequest: sync,
		toolsPath:        d.toolsPath,
		platform:         d.platform,
		blob:             executor.blob,
		launchMode:       config.Get(cfg, LaunchMode),
		timeout:          time.Duration(config.Get(cfg, InferenceTimeout)) * time.Second,
	}, nil
}

// Executor carries the blob to materialize per inference.
type Executor struct {
	blob    []byte
	network string
}

var _ backends.Executor = &Executor{}

// Finalize implements backends.Executor. Simulated networks hold no device
// resources.
func (e *Executor) Finalize() error { return nil }
