package ir

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pass is a model transformation. Run reports whether it changed the model.
type Pass interface {
	Name() string
	Run(m *Model) (changed bool, err error)
}

// Manager runs a sequence of passes over a model, in registration order.
type Manager struct {
	passes []Pass
}

// NewManager returns an empty pass manager.
func NewManager() *Manager { return &Manager{} }

// Register appends passes to the manager's pipeline.
func (mgr *Manager) Register(passes ...Pass) {
	mgr.passes = append(mgr.passes, passes...)
}

// Run executes the registered passes in order, stopping at the first error.
func (mgr *Manager) Run(m *Model) error {
	for _, pass := range mgr.passes {
		changed, err := pass.Run(m)
		if err != nil {
			return errors.WithMessagef(err, "pass %s", pass.Name())
		}
		klog.V(2).Infof("pass %s on model %q: changed=%v", pass.Name(), m.Name(), changed)
	}
	return nil
}

// serializePass writes the model's topology and weights to two streams.
type serializePass struct {
	xmlW, weightsW io.Writer
}

// NewSerialize returns a pass that writes the model XML to xmlW and the
// weights blob to weightsW.
func NewSerialize(xmlW, weightsW io.Writer) Pass {
	return &serializePass{xmlW: xmlW, weightsW: weightsW}
}

func (*serializePass) Name() string { return "Serialize" }

func (p *serializePass) Run(m *Model) (bool, error) {
	if err := m.WriteXML(p.xmlW); err != nil {
		return false, err
	}
	if _, err := p.weightsW.Write(m.Weights()); err != nil {
		return false, errors.Wrapf(err, "writing weights for model %q", m.Name())
	}
	return false, nil
}

// serializeToFilesPass is the file backed variant of Serialize, used when
// the serialized model is too large to hold in memory.
type serializeToFilesPass struct {
	xmlPath, weightsPath string
}

// NewSerializeToFiles returns a pass that writes the model XML and weights
// to the given file paths, creating or truncating them.
func NewSerializeToFiles(xmlPath, weightsPath string) Pass {
	return &serializeToFilesPass{xmlPath: xmlPath, weightsPath: weightsPath}
}

func (*serializeToFilesPass) Name() string { return "SerializeToFiles" }

func (p *serializeToFilesPass) Run(m *Model) (bool, error) {
	xmlF, err := os.Create(p.xmlPath)
	if err != nil {
		return false, errors.Wrapf(err, "creating XML file for model %q", m.Name())
	}
	defer func() {
		if err := xmlF.Close(); err != nil {
			klog.Warningf("Failed to close %s: %v", p.xmlPath, err)
		}
	}()
	weightsF, err := os.Create(p.weightsPath)
	if err != nil {
		return false, errors.Wrapf(err, "creating weights file for model %q", m.Name())
	}
	defer func() {
		if err := weightsF.Close(); err != nil {
			klog.Warningf("Failed to close %s: %v", p.weightsPath, err)
		}
	}()
	_, err = NewSerialize(xmlF, weightsF).Run(m)
	return false, err
}

// convertInterpolate11To4 downgrades Interpolate operations from opset 11
// to opset 4, for compilers that predate opset 11. The pillow resize modes
// only exist in opset 11 and are left untouched.
type convertInterpolate11To4 struct{}

// NewConvertInterpolate11To4 returns the Interpolate downgrade pass.
func NewConvertInterpolate11To4() Pass { return convertInterpolate11To4{} }

func (convertInterpolate11To4) Name() string { return "ConvertInterpolate11To4" }

func (convertInterpolate11To4) Run(m *Model) (bool, error) {
	changed := false
	ops := m.Operations()
	for i := range ops {
		op := &ops[i]
		if op.Type != "Interpolate" || op.Version != 11 {
			continue
		}
		switch op.Attributes["mode"] {
		case "bilinear_pillow", "bicubic_pillow":
			continue
		}
		op.Version = 4
		changed = true
	}
	return changed, nil
}
