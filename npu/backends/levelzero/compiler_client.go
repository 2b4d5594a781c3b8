package levelzero

import (
	"io"
	"strings"

	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/compiler/driverc"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// The driver compiler reports state variables and shape tensors as plain
// arguments with marker prefixes on their names. The prefixes are stripped
// here, descriptor binding matches on the bare names.
const (
	readValuePrefix   = "vpux_ie_read_value_"
	assignPrefix      = "vpux_ie_assign_"
	shapeTensorPrefix = "vpux_ie_shape_"
)

// CompilerInDriver adapts one device's embedded compiler to the
// driverc.CompilerClient contract. Obtain it from Device.CompilerClient.
type CompilerInDriver struct {
	handle DeviceHandle
	device string
}

var _ driverc.CompilerClient = &CompilerInDriver{}

// MaxOpsetVersion implements driverc.CompilerClient.
func (c *CompilerInDriver) MaxOpsetVersion() int { return c.handle.MaxOpsetVersion() }

// Compile implements driverc.CompilerClient.
func (c *CompilerInDriver) Compile(pkg *driverc.PackagedIR, buildFlags string) (*compiler.NetworkDescription, error) {
	xml, weights, err := readPackage(pkg)
	if err != nil {
		return nil, err
	}
	graph, err := c.handle.CompileGraph(xml, weights, buildFlags)
	if err != nil {
		return nil, errors.WithMessagef(err, "driver compiler on device %s", c.device)
	}
	defer destroyGraph(graph)

	blob, err := graph.NativeBinary()
	if err != nil {
		return nil, errors.WithMessagef(err, "exporting compiled graph")
	}
	meta, err := graphMetadata(graph)
	if err != nil {
		return nil, err
	}
	return compiler.NewNetworkDescription(blob, *meta), nil
}

// Query implements driverc.CompilerClient.
func (c *CompilerInDriver) Query(pkg *driverc.PackagedIR, buildFlags string) (types.Set[string], error) {
	xml, weights, err := readPackage(pkg)
	if err != nil {
		return nil, err
	}
	names, err := c.handle.QueryGraph(xml, weights, buildFlags)
	if err != nil {
		return nil, errors.WithMessagef(err, "driver query on device %s", c.device)
	}
	return types.SetWith(names...), nil
}

// Parse implements driverc.CompilerClient.
func (c *CompilerInDriver) Parse(blob []byte) (*compiler.NetworkMetadata, error) {
	graph, err := c.handle.ImportGraph(blob)
	if err != nil {
		return nil, errors.WithMessagef(err, "importing blob on device %s", c.device)
	}
	defer destroyGraph(graph)
	return graphMetadata(graph)
}

// ProcessProfilingOutput implements driverc.CompilerClient. The driver
// emits the fixed layer record layout, blob contents do not matter for
// decoding.
func (c *CompilerInDriver) ProcessProfilingOutput(profData, blob []byte) ([]compiler.LayerInfo, error) {
	return compiler.DecodeLayerInfo(profData)
}

func readPackage(pkg *driverc.PackagedIR) (xml, weights []byte, err error) {
	xml, err = readAll(pkg.XML)
	if err != nil {
		return nil, nil, err
	}
	weights, err = readAll(pkg.Weights)
	if err != nil {
		return nil, nil, err
	}
	return xml, weights, nil
}

func readAll(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return data, errors.Wrapf(err, "reading packaged model")
}

// graphMetadata rebuilds network metadata from the graph's argument
// properties. The network name is not part of the properties, the caller
// fills it in where known.
func graphMetadata(graph Graph) (*compiler.NetworkMetadata, error) {
	args, err := graph.Arguments()
	if err != nil {
		return nil, errors.WithMessagef(err, "querying graph arguments")
	}
	meta := compiler.NewNetworkMetadata("")
	for _, arg := range args {
		d := descriptorFromArgument(arg)
		if arg.IsInput {
			meta.Inputs = append(meta.Inputs, d)
		} else {
			meta.Outputs = append(meta.Outputs, d)
		}
	}
	return meta, nil
}

func descriptorFromArgument(arg GraphArgument) compiler.IODescriptor {
	name := arg.Name
	var isState, isShape bool
	switch {
	case strings.HasPrefix(name, readValuePrefix):
		name = strings.TrimPrefix(name, readValuePrefix)
		isState = true
	case strings.HasPrefix(name, assignPrefix):
		name = strings.TrimPrefix(name, assignPrefix)
		isState = true
	case strings.HasPrefix(name, shapeTensorPrefix):
		name = strings.TrimPrefix(name, shapeTensorPrefix)
		isShape = true
	}
	d := compiler.NewIODescriptor(name, arg.Precision, ir.MakeShape(arg.Dims...))
	d.IsShapeTensor = isShape
	if isState {
		d.IsStateInput = arg.IsInput
		d.IsStateOutput = !arg.IsInput
	}
	return d
}

func destroyGraph(graph Graph) {
	if err := graph.Destroy(); err != nil {
		klog.Warningf("Failed to destroy graph: %v", err)
	}
}
