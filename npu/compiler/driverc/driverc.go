// Package driverc delegates compilation to the compiler living in the
// device driver. Models are serialized into driver consumable packages,
// the compile time configuration is rendered as the driver's build flag
// string, and both are handed to a CompilerClient, which speaks the actual
// driver protocol. The levelzero backend provides the production client.
package driverc

import (
	"fmt"
	"strings"

	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CompilerName identifies the driver compiler in configuration and logs.
const CompilerName = "DRIVER"

// CompilerClient is the driver side of compilation.
type CompilerClient interface {
	// MaxOpsetVersion reports the newest operation set version the
	// driver compiler understands.
	MaxOpsetVersion() int

	// Compile builds the packaged model into a device blob along with
	// the network metadata the driver extracted from it.
	Compile(pkg *PackagedIR, buildFlags string) (*compiler.NetworkDescription, error)

	// Query reports the friendly names of the packaged model's
	// operations the driver can map to the device.
	Query(pkg *PackagedIR, buildFlags string) (types.Set[string], error)

	// Parse recovers network metadata from a previously compiled blob.
	Parse(blob []byte) (*compiler.NetworkMetadata, error)

	// ProcessProfilingOutput decodes profData, the raw profiling output
	// of an inference of blob.
	ProcessProfilingOutput(profData, blob []byte) ([]compiler.LayerInfo, error)
}

// Compiler adapts a CompilerClient to the compiler.Compiler contract.
type Compiler struct {
	client CompilerClient
}

var _ compiler.Compiler = &Compiler{}

// New returns a compiler delegating to client.
func New(client CompilerClient) *Compiler { return &Compiler{client: client} }

// Name implements compiler.Compiler.
func (c *Compiler) Name() string { return CompilerName }

// SupportedOpsetVersion implements compiler.Compiler, reporting what the
// driver understands.
func (c *Compiler) SupportedOpsetVersion() int { return c.client.MaxOpsetVersion() }

// Compile implements compiler.Compiler.
func (c *Compiler) Compile(model *ir.Model, cfg *config.Config) (*compiler.NetworkDescription, error) {
	pkg, err := PackageModel(model, c.client.MaxOpsetVersion())
	if err != nil {
		return nil, err
	}
	defer closePackage(pkg)

	flags := BuildFlags(model, cfg)
	klog.V(2).Infof("Driver compilation of model %q with flags: %s", model.Name(), flags)
	desc, err := c.client.Compile(pkg, flags)
	if err != nil {
		return nil, errors.WithMessagef(err, "driver compilation of model %q", model.Name())
	}
	if desc.Metadata.Name == "" {
		desc.Metadata.Name = model.Name()
	}
	desc.Metadata.BindRelatedDescriptors()
	return desc, nil
}

// Query implements compiler.Compiler.
func (c *Compiler) Query(model *ir.Model, cfg *config.Config) (types.Set[string], error) {
	pkg, err := PackageModel(model, c.client.MaxOpsetVersion())
	if err != nil {
		return nil, err
	}
	defer closePackage(pkg)

	supported, err := c.client.Query(pkg, BuildFlags(model, cfg))
	return supported, errors.WithMessagef(err, "driver query of model %q", model.Name())
}

// Parse implements compiler.Compiler.
func (c *Compiler) Parse(blob []byte, cfg *config.Config) (*compiler.NetworkMetadata, error) {
	meta, err := c.client.Parse(blob)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing driver blob")
	}
	meta.BindRelatedDescriptors()
	return meta, nil
}

// ProcessProfilingOutput implements compiler.Compiler.
func (c *Compiler) ProcessProfilingOutput(profData []byte, blob []byte, cfg *config.Config) ([]compiler.LayerInfo, error) {
	return c.client.ProcessProfilingOutput(profData, blob)
}

// BuildFlags renders the build flag string the driver compiler expects:
// the model's port precisions, the explicitly set compile time
// configuration entries, and any raw backend compilation parameters.
func BuildFlags(model *ir.Model, cfg *config.Config) string {
	var sb strings.Builder
	sb.WriteString("--inputs_precisions=\"")
	writePortPrecisions(&sb, model.Parameters())
	sb.WriteString("\" --outputs_precisions=\"")
	writePortPrecisions(&sb, model.Results())
	sb.WriteString("\"")
	if conf := compileTimeConfig(cfg); conf != "" {
		sb.WriteString(" --config ")
		sb.WriteString(conf)
	}
	if params := config.Get(cfg, config.BackendCompilationParams); params != "" {
		sb.WriteByte(' ')
		sb.WriteString(params)
	}
	return sb.String()
}

func writePortPrecisions(sb *strings.Builder, ports []ir.Port) {
	for i, p := range ports {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%s:%s", p.Name, ir.PrecisionString(p.Precision))
	}
}

// compileTimeConfig renders the explicitly set compile time entries in key
// order. Run time only options stay on the plugin side, the raw backend
// parameters go on the command line directly.
func compileTimeConfig(cfg *config.Config) string {
	var sb strings.Builder
	for _, key := range cfg.SetKeys() {
		if key == config.BackendCompilationParams.Key() {
			continue
		}
		opt, found := cfg.Desc().Option(key)
		if !found || !opt.Mode().IsCompileTime() {
			continue
		}
		raw, _ := cfg.RawString(key)
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%q", key, raw)
	}
	return sb.String()
}

func closePackage(pkg *PackagedIR) {
	if err := pkg.Close(); err != nil {
		klog.Warningf("Failed to release packaged model: %v", err)
	}
}
