package driverc

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// largeModelBytes is the weights size beyond which a package spills to
// temporary files instead of being held in memory.
var largeModelBytes = int64(2 << 30)

// serializeMu guards the rt_info mark set on models during serialization.
// A model may be packaged concurrently for several devices.
var serializeMu sync.Mutex

// PackagedIR is a model serialized for the driver compiler: the topology
// XML and the weights blob. Small models are held in memory, large ones
// live in temporary files until Close.
type PackagedIR struct {
	xml, weights []byte

	xmlPath, weightsPath string
}

// InMemory reports whether the package is held in memory rather than in
// spill files.
func (p *PackagedIR) InMemory() bool { return p.xmlPath == "" }

// XML returns a reader over the serialized topology. The caller closes it.
func (p *PackagedIR) XML() (io.ReadCloser, error) {
	if p.InMemory() {
		return io.NopCloser(bytes.NewReader(p.xml)), nil
	}
	f, err := os.Open(p.xmlPath)
	return f, errors.Wrapf(err, "opening packaged topology")
}

// Weights returns a reader over the weights blob. The caller closes it.
func (p *PackagedIR) Weights() (io.ReadCloser, error) {
	if p.InMemory() {
		return io.NopCloser(bytes.NewReader(p.weights)), nil
	}
	f, err := os.Open(p.weightsPath)
	return f, errors.Wrapf(err, "opening packaged weights")
}

// Close releases the package, deleting any spill files. The package is
// unusable afterwards.
func (p *PackagedIR) Close() error {
	var firstErr error
	for _, path := range []string{p.xmlPath, p.weightsPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "removing spill file")
		}
	}
	p.xml, p.weights = nil, nil
	p.xmlPath, p.weightsPath = "", ""
	return firstErr
}

// PackageModel serializes model for a driver compiler that understands
// operation sets up to maxOpsetVersion. Operations newer than that are
// downgraded where a lowering exists, on a clone so the caller's model
// keeps its version.
func PackageModel(model *ir.Model, maxOpsetVersion int) (*PackagedIR, error) {
	if maxOpsetVersion < 11 {
		clone := model.Clone()
		mgr := ir.NewManager()
		mgr.Register(ir.NewConvertInterpolate11To4())
		if err := mgr.Run(clone); err != nil {
			return nil, errors.WithMessagef(err, "packaging model %q", model.Name())
		}
		model = clone
	}

	// The driver distinguishes models coming through the current API.
	// The mark is serialized with the model and removed again, the model
	// may be shared with the caller.
	serializeMu.Lock()
	defer serializeMu.Unlock()
	model.SetRTInfo("is_new_api", "true")
	defer model.EraseRTInfo("is_new_api")

	if model.WeightsSize() >= largeModelBytes {
		return packageToFiles(model)
	}

	var xmlBuf, weightsBuf bytes.Buffer
	mgr := ir.NewManager()
	mgr.Register(ir.NewSerialize(&xmlBuf, &weightsBuf))
	if err := mgr.Run(model); err != nil {
		return nil, errors.WithMessagef(err, "packaging model %q", model.Name())
	}
	return &PackagedIR{xml: xmlBuf.Bytes(), weights: weightsBuf.Bytes()}, nil
}

func packageToFiles(model *ir.Model) (*PackagedIR, error) {
	xmlPath, err := spillFile(model, "npu_model_*.xml")
	if err != nil {
		return nil, err
	}
	weightsPath, err := spillFile(model, "npu_model_*.bin")
	if err != nil {
		removeSpill(xmlPath)
		return nil, err
	}

	mgr := ir.NewManager()
	mgr.Register(ir.NewSerializeToFiles(xmlPath, weightsPath))
	if err := mgr.Run(model); err != nil {
		removeSpill(xmlPath)
		removeSpill(weightsPath)
		return nil, errors.WithMessagef(err, "packaging model %q", model.Name())
	}
	klog.V(1).Infof("Model %q (%d byte weights) packaged to %s and %s",
		model.Name(), model.WeightsSize(), xmlPath, weightsPath)
	return &PackagedIR{xmlPath: xmlPath, weightsPath: weightsPath}, nil
}

func spillFile(model *ir.Model, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", errors.Wrapf(err, "creating spill file for model %q", model.Name())
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		removeSpill(path)
		return "", errors.Wrapf(err, "creating spill file for model %q", model.Name())
	}
	return path, nil
}

func removeSpill(path string) {
	if err := os.Remove(path); err != nil {
		klog.Warningf("Failed to remove spill file %s: %v", path, err)
	}
}
