// Package npu ties the pieces of the NPU plugin together: models are
// compiled through the configured compiler, loaded onto a device served by
// the engine backends and run through inference requests.
//
// A Plugin owns the option registry and a plugin wide configuration.
// Per call property maps refine that configuration for one operation, they
// never mutate it:
//
//	plugin := npu.NewPlugin()
//	compiled, err := plugin.CompileModel(model, map[string]string{"PERF_COUNT": "YES"})
//	if err != nil { ... }
//	request, err := compiled.CreateInferRequest()
package npu

import (
	"io"
	"sync"
	"time"

	"github.com/XinWangIntel/openvino/internal/metrics"
	"github.com/XinWangIntel/openvino/npu/backends"
	_ "github.com/XinWangIntel/openvino/npu/backends/imd"
	"github.com/XinWangIntel/openvino/npu/backends/levelzero"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/compiler/driverc"
	"github.com/XinWangIntel/openvino/npu/compiler/mlirc"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Plugin is the entry point of the NPU device plugin. It is safe for
// concurrent use.
type Plugin struct {
	desc     *config.OptionsDesc
	registry *backends.Registry

	mu  sync.Mutex
	cfg *config.Config
}

// NewPlugin registers the plugin options, scans the engine backends in
// their default preference order and returns a plugin ready to compile,
// import and run models. A machine with no NPU still gets a working
// plugin, it can compile for an explicit platform and export the result.
func NewPlugin() *Plugin {
	return newPlugin(backends.DefaultOrder())
}

func newPlugin(order []string) *Plugin {
	desc := config.NewOptionsDesc()
	config.RegisterCommonOptions(desc)
	config.RegisterCompilerOptions(desc)
	config.RegisterRuntimeOptions(desc)
	cfg := config.NewConfig(desc)

	registry := backends.NewRegistry(order, cfg)
	registry.RegisterOptions(desc)
	return &Plugin{desc: desc, registry: registry, cfg: cfg}
}

// Registry returns the engine backend registry built at construction.
func (p *Plugin) Registry() *backends.Registry { return p.registry }

// SetProperties validates values and applies them to the plugin wide
// configuration. On error the configuration is left unchanged.
func (p *Plugin) SetProperties(values map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, err := p.cfg.Update(values)
	if err != nil {
		return err
	}
	p.cfg = cfg
	return nil
}

// Property returns the effective string value of an option: the value set
// on the plugin, or the option's default.
func (p *Plugin) Property(key string) (string, error) {
	opt, found := p.desc.Option(key)
	if !found {
		return "", errors.Errorf("unsupported property %s", key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if value, ok := p.cfg.RawString(key); ok {
		return value, nil
	}
	return opt.DefaultString(), nil
}

// PublicProperties lists the option keys a plugin user may set, sorted.
func (p *Plugin) PublicProperties() []string { return p.desc.PublicKeys() }

// requestConfig snapshots the plugin configuration and applies per call
// values on top of it.
func (p *Plugin) requestConfig(values map[string]string) (*config.Config, error) {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()
	if len(values) == 0 {
		return cfg, nil
	}
	return cfg.Update(values)
}

// driverCompilerDevice is implemented by devices whose driver embeds a
// compiler, currently the Level Zero ones.
type driverCompilerDevice interface {
	CompilerClient() *levelzero.CompilerInDriver
}

// compilerFor returns the compiler selected by NPU_COMPILER_TYPE. The
// driver compiler lives inside the device driver, so it needs a device of
// a backend that exposes one.
func (p *Plugin) compilerFor(cfg *config.Config) (compiler.Compiler, error) {
	if config.Get(cfg, config.CompilerType) != config.CompilerDriver {
		return mlirc.New(), nil
	}
	device, err := p.registry.DeviceForConfig(cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "the %s compiler runs in the device driver", config.CompilerDriver)
	}
	provider, ok := device.(driverCompilerDevice)
	if !ok {
		return nil, errors.Errorf("the %s backend has no compiler in its driver, use NPU_COMPILER_TYPE=%s",
			p.registry.BackendName(), config.CompilerMLIR)
	}
	return driverc.New(provider.CompilerClient()), nil
}

// resolvePlatform pins NPU_PLATFORM to a concrete platform, resolving
// auto detection from the configured device.
func (p *Plugin) resolvePlatform(cfg *config.Config) (*config.Config, error) {
	platformName, err := p.registry.GetCompilationPlatform(
		config.Get(cfg, config.Platform), config.Get(cfg, config.DeviceID))
	if err != nil {
		return nil, err
	}
	return cfg.Update(map[string]string{config.Platform.Key(): platformName})
}

// CompileModel compiles model for the NPU. values overrides the plugin
// configuration for this call only. Unless NPU_CREATE_EXECUTOR is 0 or no
// device is present, the network is also loaded onto the device before
// returning, so load failures surface here rather than at the first
// inference request.
func (p *Plugin) CompileModel(model *ir.Model, values map[string]string) (*CompiledModel, error) {
	cfg, err := p.requestConfig(values)
	if err != nil {
		return nil, err
	}
	cfg, err = p.resolvePlatform(cfg)
	if err != nil {
		return nil, err
	}
	comp, err := p.compilerFor(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	desc, err := comp.Compile(model, cfg)
	metrics.CompilationsTotal.WithLabelValues(comp.Name(), metrics.ResultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.CompilationSeconds.WithLabelValues(comp.Name()).Observe(elapsed.Seconds())
	klog.V(1).Infof("Compiled model %q with the %s compiler in %s (%s)",
		model.Name(), comp.Name(), elapsed.Round(time.Millisecond),
		humanize.Bytes(uint64(len(desc.Blob))))
	return p.newCompiledModel(desc, cfg)
}

// ImportModel rebuilds a compiled model from a blob previously written by
// Export, skipping compilation. The configured compiler recovers the
// network metadata from the blob.
func (p *Plugin) ImportModel(r io.Reader, values map[string]string) (*CompiledModel, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading model blob")
	}
	cfg, err := p.requestConfig(values)
	if err != nil {
		return nil, err
	}
	comp, err := p.compilerFor(cfg)
	if err != nil {
		return nil, err
	}
	metadata, err := comp.Parse(blob, cfg)
	metrics.ImportsTotal.WithLabelValues(comp.Name(), metrics.ResultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Imported network %q (%s)", metadata.Name, humanize.Bytes(uint64(len(blob))))
	return p.newCompiledModel(compiler.NewNetworkDescription(blob, *metadata), cfg)
}

// QueryModel reports which of the model's operations the configured
// compiler can run on the NPU, keyed by node friendly name.
func (p *Plugin) QueryModel(model *ir.Model, values map[string]string) (types.Set[string], error) {
	cfg, err := p.requestConfig(values)
	if err != nil {
		return nil, err
	}
	cfg, err = p.resolvePlatform(cfg)
	if err != nil {
		return nil, err
	}
	comp, err := p.compilerFor(cfg)
	if err != nil {
		return nil, err
	}
	return comp.Query(model, cfg)
}

// ProcessProfilingOutput decodes a raw profiling buffer written by an
// inference of blob into a performance counters report. It serves offline
// analysis of saved dumps, a live request returns the same report through
// InferRequest.ProfilingInfo.
func (p *Plugin) ProcessProfilingOutput(profData, blob []byte, values map[string]string) ([]compiler.ProfilingInfo, error) {
	cfg, err := p.requestConfig(values)
	if err != nil {
		return nil, err
	}
	comp, err := p.compilerFor(cfg)
	if err != nil {
		return nil, err
	}
	layers, err := comp.ProcessProfilingOutput(profData, blob, cfg)
	if err != nil {
		return nil, err
	}
	return compiler.ToProfilingInfo(layers), nil
}
