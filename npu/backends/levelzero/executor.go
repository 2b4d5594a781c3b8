package levelzero

import (
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Executor is a network loaded onto a device, wrapping the device graph.
type Executor struct {
	graph   Graph
	device  string
	network string
}

var _ backends.Executor = &Executor{}

// Finalize implements backends.Executor, releasing the graph's device
// memory.
func (e *Executor) Finalize() error {
	klog.V(2).Infof("Releasing network %q on device %s", e.network, e.device)
	return errors.WithMessagef(e.graph.Destroy(), "releasing network %q", e.network)
}
