package levelzero

import (
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// The fakes below stand in for the driver binding. The fake graph fills
// every output buffer with a fixed byte so tests can tell an executed
// inference from an untouched one.

type fakeGraph struct {
	blob       []byte
	args       []GraphArgument
	prof       []byte
	outputFill byte

	execCalls int
	execErr   error
	destroyed bool
}

func (g *fakeGraph) NativeBinary() ([]byte, error) { return g.blob, nil }

func (g *fakeGraph) Arguments() ([]GraphArgument, error) { return g.args, nil }

func (g *fakeGraph) Execute(inputs, outputs [][]byte) error {
	g.execCalls++
	if g.execErr != nil {
		return g.execErr
	}
	for _, out := range outputs {
		for i := range out {
			out[i] = g.outputFill
		}
	}
	return nil
}

func (g *fakeGraph) ProfilingData() ([]byte, error) {
	if g.prof == nil {
		return nil, errors.New("graph compiled without profiling")
	}
	return g.prof, nil
}

func (g *fakeGraph) Destroy() error {
	g.destroyed = true
	return nil
}

type fakeHandle struct {
	props    DeviceProperties
	mem      MemoryProperties
	maxOpset int

	compiled   *fakeGraph
	imported   *fakeGraph
	queryNames []string

	lastFlags string
	lastXML   []byte
	lastBlob  []byte

	compileErr error
	importErr  error
}

func (h *fakeHandle) Properties() (DeviceProperties, error) { return h.props, nil }

func (h *fakeHandle) MemoryProperties() (MemoryProperties, error) { return h.mem, nil }

func (h *fakeHandle) MaxOpsetVersion() int { return h.maxOpset }

func (h *fakeHandle) CompileGraph(xml, weights []byte, buildFlags string) (Graph, error) {
	h.lastXML, h.lastFlags = xml, buildFlags
	if h.compileErr != nil {
		return nil, h.compileErr
	}
	return h.compiled, nil
}

func (h *fakeHandle) ImportGraph(blob []byte) (Graph, error) {
	h.lastBlob = blob
	if h.importErr != nil {
		return nil, h.importErr
	}
	return h.imported, nil
}

func (h *fakeHandle) QueryGraph(xml, weights []byte, buildFlags string) ([]string, error) {
	h.lastXML, h.lastFlags = xml, buildFlags
	return h.queryNames, nil
}

type fakeDriver struct {
	version    uint32
	handles    []DeviceHandle
	versionErr error
	released   bool
}

func (d *fakeDriver) Version() (uint32, error) { return d.version, d.versionErr }

func (d *fakeDriver) Devices() ([]DeviceHandle, error) { return d.handles, nil }

func (d *fakeDriver) Release() error {
	d.released = true
	return nil
}

// npuHandle builds a fake NPU device handle. The slice index lands in the
// software device ID the way the driver encodes it.
func npuHandle(platformName string, slice uint32, sub bool) *fakeHandle {
	return &fakeHandle{
		props: DeviceProperties{
			PlatformName:  platformName,
			MarketingName: "Intel NPU",
			SwDeviceID:    slice << 1,
			IsSubDevice:   sub,
			NumSlices:     2,
			UUID:          uuid.MustParse("5a1e0000-0000-4000-8000-000000003720"),
		},
		mem:      MemoryProperties{TotalBytes: 1 << 30, AllocatedBytes: 1 << 20},
		maxOpset: 11,
	}
}

func nonNPUHandle() *fakeHandle {
	h := npuHandle("GPU", 0, false)
	h.props.SwDeviceID = 0x1000000
	return h
}

func backendConfig() *config.Config {
	desc := config.NewOptionsDesc()
	config.RegisterCommonOptions(desc)
	config.RegisterCompilerOptions(desc)
	config.RegisterRuntimeOptions(desc)
	return config.NewConfig(desc)
}
