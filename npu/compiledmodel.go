package npu

import (
	"io"
	"sync"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CompiledModel is a network compiled for the NPU. It hands out inference
// requests and can export the compiled blob for caching. The executor
// loading the network onto the device is created lazily when compilation
// deferred it, see NPU_CREATE_EXECUTOR.
//
// CompiledModel is safe for concurrent use, the inference requests it
// creates are not.
type CompiledModel struct {
	desc     *compiler.NetworkDescription
	cfg      *config.Config
	registry *backends.Registry

	mu       sync.Mutex
	device   backends.Device
	executor backends.Executor
}

func (p *Plugin) newCompiledModel(desc *compiler.NetworkDescription, cfg *config.Config) (*CompiledModel, error) {
	cm := &CompiledModel{desc: desc, cfg: cfg, registry: p.registry}
	if config.Get(cfg, config.CreateExecutor) == 0 {
		klog.V(1).Infof("Executor creation for %q deferred to the first inference request", desc.Metadata.Name)
		return cm, nil
	}
	if len(p.registry.AvailableDeviceNames()) == 0 {
		klog.V(1).Infof("No device for %q, the network can only be exported", desc.Metadata.Name)
		return cm, nil
	}
	if _, _, err := cm.ensureExecutor(); err != nil {
		return nil, err
	}
	return cm, nil
}

// Metadata returns the network's I/O metadata.
func (cm *CompiledModel) Metadata() *compiler.NetworkMetadata { return &cm.desc.Metadata }

// Blob returns the compiled blob. The slice is shared, callers must not
// modify it.
func (cm *CompiledModel) Blob() []byte { return cm.desc.Blob }

// Export writes the compiled blob to w, in the format ImportModel accepts.
func (cm *CompiledModel) Export(w io.Writer) error {
	if _, err := w.Write(cm.desc.Blob); err != nil {
		return errors.Wrapf(err, "exporting network %q", cm.desc.Metadata.Name)
	}
	klog.V(2).Infof("Exported network %q (%s)", cm.desc.Metadata.Name,
		humanize.Bytes(uint64(len(cm.desc.Blob))))
	return nil
}

// ensureExecutor loads the network onto the configured device once.
func (cm *CompiledModel) ensureExecutor() (backends.Device, backends.Executor, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.executor != nil {
		return cm.device, cm.executor, nil
	}
	device, err := cm.registry.DeviceForConfig(cm.cfg)
	if err != nil {
		return nil, nil, err
	}
	executor, err := device.CreateExecutor(cm.desc, cm.cfg)
	if err != nil {
		return nil, nil, err
	}
	cm.device, cm.executor = device, executor
	return device, executor, nil
}

// CreateInferRequest builds an inference request for the network, loading
// it onto the device first when executor creation was deferred.
func (cm *CompiledModel) CreateInferRequest() (backends.InferRequest, error) {
	device, executor, err := cm.ensureExecutor()
	if err != nil {
		return nil, errors.WithMessagef(err, "creating inference request for %q", cm.desc.Metadata.Name)
	}
	return device.CreateInferRequest(executor, &cm.desc.Metadata, cm.cfg)
}

// Release frees the device resources held by the network. Export keeps
// working, and a later CreateInferRequest loads the network onto the
// device again.
func (cm *CompiledModel) Release() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.executor == nil {
		return nil
	}
	err := cm.executor.Finalize()
	cm.device, cm.executor = nil, nil
	return errors.WithMessagef(err, "releasing network %q", cm.desc.Metadata.Name)
}
