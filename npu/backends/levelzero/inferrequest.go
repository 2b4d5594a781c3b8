package levelzero

import (
	"time"

	"github.com/XinWangIntel/openvino/internal/metrics"
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/pkg/errors"
)

// InferRequest runs a loaded network on a device. The tensor plumbing
// comes from SyncInferRequest, Infer adds the device round trip.
type InferRequest struct {
	*backends.SyncInferRequest

	graph  Graph
	device string
}

var _ backends.InferRequest = &InferRequest{}

// Infer implements backends.InferRequest.
func (r *InferRequest) Infer() error {
	err := r.infer()
	metrics.InferencesTotal.WithLabelValues(BackendName, metrics.ResultLabel(err)).Inc()
	return err
}

func (r *InferRequest) infer() error {
	if err := r.CheckTensors(); err != nil {
		return err
	}
	meta := r.Metadata()
	inputs := make([][]byte, len(meta.Inputs))
	for i := range meta.Inputs {
		inputs[i] = r.InputTensor(i).Data()
	}
	outputs := make([][]byte, len(meta.Outputs))
	for i := range meta.Outputs {
		outputs[i] = r.OutputTensor(i).Data()
	}

	start := time.Now()
	if err := r.graph.Execute(inputs, outputs); err != nil {
		return errors.WithMessagef(err, "inference of %q on device %s", meta.Name, r.device)
	}
	metrics.InferenceSeconds.WithLabelValues(BackendName).Observe(time.Since(start).Seconds())
	return nil
}

// ProfilingInfo implements backends.InferRequest.
func (r *InferRequest) ProfilingInfo() ([]compiler.ProfilingInfo, error) {
	if len(r.Metadata().ProfilingOutputs) == 0 {
		return nil, errors.Errorf("network %q was compiled without profiling support, set %s",
			r.Metadata().Name, config.PerfCount.Key())
	}
	raw, err := r.graph.ProfilingData()
	if err != nil {
		return nil, errors.WithMessagef(err, "reading profiling data of %q", r.Metadata().Name)
	}
	layers, err := compiler.DecodeLayerInfo(raw)
	if err != nil {
		return nil, err
	}
	return compiler.ToProfilingInfo(layers), nil
}
