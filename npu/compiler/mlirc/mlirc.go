// Package mlirc implements the compiler shipped with the NPU plugin. It
// lowers models into framed device blobs in process, with no driver
// involved, and recovers network metadata from its own blobs.
package mlirc

import (
	"bytes"
	"strings"

	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CompilerName identifies this compiler in configuration and logs.
const CompilerName = "MLIR"

// maxOpsetVersion is the newest operation set this compiler lowers.
const maxOpsetVersion = 11

// Compiler compiles models in process. The zero value is not usable,
// construct with New. Safe for concurrent use.
type Compiler struct{}

var _ compiler.Compiler = &Compiler{}

// New returns the in process compiler.
func New() *Compiler { return &Compiler{} }

// Name implements compiler.Compiler.
func (c *Compiler) Name() string { return CompilerName }

// SupportedOpsetVersion implements compiler.Compiler.
func (c *Compiler) SupportedOpsetVersion() int { return maxOpsetVersion }

func hasDynamicPorts(model *ir.Model) bool {
	for _, p := range model.Parameters() {
		if !p.Shape.IsStatic() {
			return true
		}
	}
	for _, p := range model.Results() {
		if !p.Shape.IsStatic() {
			return true
		}
	}
	return false
}

// staticized returns a clone of model with every dynamic dimension pinned
// to its minimal extent.
func staticized(model *ir.Model) *ir.Model {
	clone := model.Clone()
	pin := func(ports []ir.Port) {
		for i := range ports {
			for j, dim := range ports[i].Shape.Dimensions {
				if dim == ir.DimDynamic {
					ports[i].Shape.Dimensions[j] = 1
				}
			}
		}
	}
	pin(clone.Parameters())
	pin(clone.Results())
	return clone
}

func portDescriptor(p ir.Port, original ir.Port) compiler.IODescriptor {
	d := compiler.NewIODescriptor(p.Name, p.Precision, p.Shape.Clone())
	d.IsShapeTensor = p.IsShapeTensor
	if len(p.TensorNames) > 0 {
		d.OutputTensorNames = p.TensorNames.Clone()
	}
	origShape := original.Shape.Clone()
	d.ShapeFromIRModel = &origShape
	return d
}

func numStreamsFor(cfg *config.Config) int {
	if n := config.Get(cfg, config.NumStreams); n > 0 {
		return int(n)
	}
	switch config.Get(cfg, config.PerformanceHint) {
	case "THROUGHPUT", "CUMULATIVE_THROUGHPUT":
		return 2
	}
	return 1
}

// buildMetadata derives network metadata from a model's ports. compiled is
// the model as lowered, original supplies the pre transformation shapes.
func buildMetadata(compiled, original *ir.Model, numStreams int, profiling bool) *compiler.NetworkMetadata {
	meta := compiler.NewNetworkMetadata(compiled.Name())
	meta.NumStreams = numStreams
	for i, p := range compiled.Parameters() {
		d := portDescriptor(p, original.Parameters()[i])
		d.IsStateInput = p.IsState
		meta.Inputs = append(meta.Inputs, d)
	}
	for i, p := range compiled.Results() {
		d := portDescriptor(p, original.Results()[i])
		d.IsStateOutput = p.IsState
		meta.Outputs = append(meta.Outputs, d)
	}
	if profiling {
		size := int64(compiler.LayerRecordSize * max(1, len(compiled.Operations())))
		meta.ProfilingOutputs = append(meta.ProfilingOutputs,
			compiler.NewIODescriptor("profilingOutput", dtypes.Uint8, ir.MakeShape(size)))
	}
	meta.BindRelatedDescriptors()
	return meta
}

// Compile implements compiler.Compiler. The platform in cfg must already
// be resolved, AUTO_DETECT is rejected.
func (c *Compiler) Compile(model *ir.Model, cfg *config.Config) (*compiler.NetworkDescription, error) {
	platformName := config.Get(cfg, config.Platform)
	if platformName == platform.AutoDetect {
		return nil, errors.Errorf("compiling model %q: the target platform was not resolved", model.Name())
	}
	if model.OpsetVersion() > maxOpsetVersion {
		return nil, errors.Errorf("model %q uses opset %d, this compiler supports up to opset %d",
			model.Name(), model.OpsetVersion(), maxOpsetVersion)
	}
	if names := unsupportedOps(model); len(names) > 0 {
		return nil, errors.Errorf("model %q has operations with no NPU lowering: %s",
			model.Name(), strings.Join(names, ", "))
	}

	compiled := model
	if hasDynamicPorts(model) {
		if !config.Get(cfg, config.DynamicShapeToStatic) {
			return nil, errors.Errorf("model %q has dynamic shapes, set %s to compile it",
				model.Name(), config.DynamicShapeToStatic.Key())
		}
		compiled = staticized(model)
	}

	profiling := config.Get(cfg, config.PerfCount)
	meta := buildMetadata(compiled, model, numStreamsFor(cfg), profiling)

	var xmlBuf bytes.Buffer
	if err := compiled.WriteXML(&xmlBuf); err != nil {
		return nil, errors.WithMessagef(err, "compiling model %q", model.Name())
	}
	cont := container{
		platform:   platformName,
		numStreams: uint32(meta.NumStreams),
		xml:        xmlBuf.Bytes(),
		weights:    compiled.Weights(),
	}
	if profiling {
		cont.flags |= flagProfiling
	}
	blob := cont.encode()
	klog.V(1).Infof("Compiled model %q for platform %s: %d byte blob, %d inputs, %d outputs",
		model.Name(), platformName, len(blob), len(meta.Inputs), len(meta.Outputs))
	return compiler.NewNetworkDescription(blob, *meta), nil
}

// Query implements compiler.Compiler.
func (c *Compiler) Query(model *ir.Model, cfg *config.Config) (types.Set[string], error) {
	supported := types.MakeSet[string](len(model.Operations()))
	for _, op := range model.Operations() {
		if opSupported(op) {
			supported.Insert(op.Name)
		}
	}
	return supported, nil
}

// Parse implements compiler.Compiler, recovering metadata from a blob
// previously produced by Compile.
func (c *Compiler) Parse(blob []byte, cfg *config.Config) (*compiler.NetworkMetadata, error) {
	cont, err := decodeContainer(blob)
	if err != nil {
		return nil, err
	}
	model, err := ir.ParseXML(bytes.NewReader(cont.xml))
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing blob topology")
	}
	meta := buildMetadata(model, model, int(cont.numStreams), cont.flags&flagProfiling != 0)
	klog.V(2).Infof("Parsed blob of model %q compiled for platform %s", model.Name(), cont.platform)
	return meta, nil
}

// ProcessProfilingOutput implements compiler.Compiler.
func (c *Compiler) ProcessProfilingOutput(profData []byte, blob []byte, cfg *config.Config) ([]compiler.LayerInfo, error) {
	if _, err := decodeContainer(blob); err != nil {
		return nil, errors.WithMessagef(err, "processing profiling output")
	}
	return compiler.DecodeLayerInfo(profData)
}

// BlobPlatform returns the platform a blob was compiled for.
func BlobPlatform(blob []byte) (string, error) {
	cont, err := decodeContainer(blob)
	if err != nil {
		return "", err
	}
	return cont.platform, nil
}
