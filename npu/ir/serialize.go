package ir

import (
	"encoding/xml"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/pkg/errors"
)

// The serialized form of a model is the classic pair of an XML topology
// stream and a raw weights stream. The XML schema is the "net" document:
// a list of layers with input/output ports, the edges connecting them and
// an optional rt_info section. Parameter and Result layers carry the
// element type and shape of the model's ports; state ports serialize as
// ReadValue and Assign layers.

type xmlNet struct {
	XMLName xml.Name    `xml:"net"`
	Name    string      `xml:"name,attr"`
	Version int         `xml:"version,attr"`
	Layers  []xmlLayer  `xml:"layers>layer"`
	Edges   []xmlEdge   `xml:"edges>edge"`
	RTInfo  []xmlRTAttr `xml:"rt_info>attribute"`
}

type xmlLayer struct {
	ID      int       `xml:"id,attr"`
	Name    string    `xml:"name,attr"`
	Type    string    `xml:"type,attr"`
	Version string    `xml:"version,attr"`
	Data    *xmlData  `xml:"data,omitempty"`
	Input   *xmlPorts `xml:"input"`
	Output  *xmlPorts `xml:"output"`
}

type xmlData struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type xmlPorts struct {
	Ports []xmlPort `xml:"port"`
}

type xmlPort struct {
	ID    int     `xml:"id,attr"`
	Names string  `xml:"names,attr,omitempty"`
	Dims  []int64 `xml:"dim"`
}

type xmlEdge struct {
	FromLayer int `xml:"from-layer,attr"`
	FromPort  int `xml:"from-port,attr"`
	ToLayer   int `xml:"to-layer,attr"`
	ToPort    int `xml:"to-port,attr"`
}

type xmlRTAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type portRef struct {
	layer, port int
}

func shapeAttr(s Shape) string {
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		parts = append(parts, strconv.FormatInt(dim, 10))
	}
	return strings.Join(parts, ",")
}

func parseShapeAttr(attr string) (Shape, error) {
	if attr == "" {
		return Scalar(), nil
	}
	parts := strings.Split(attr, ",")
	dims := make([]int64, 0, len(parts))
	for _, part := range parts {
		dim, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return Shape{}, errors.Wrapf(err, "invalid shape attribute %q", attr)
		}
		dims = append(dims, dim)
	}
	return Shape{Dimensions: dims}, nil
}

func namesAttr(names types.Set[string]) string {
	return strings.Join(types.Sorted(names), ",")
}

func parseNamesAttr(attr string) types.Set[string] {
	names := types.MakeSet[string]()
	for _, name := range strings.Split(attr, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names.Insert(name)
		}
	}
	return names
}

func dataAttr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func portData(p Port) *xmlData {
	data := &xmlData{Attrs: []xml.Attr{
		dataAttr("element_type", PrecisionString(p.Precision)),
		dataAttr("shape", shapeAttr(p.Shape)),
	}}
	if p.IsState {
		data.Attrs = append(data.Attrs, dataAttr("variable_id", p.Name))
	}
	if p.IsShapeTensor {
		data.Attrs = append(data.Attrs, dataAttr("shape_tensor", "true"))
	}
	return data
}

func parameterLayerType(p Port) (layerType, layerVersion string) {
	if p.IsState {
		return "ReadValue", "opset6"
	}
	return "Parameter", "opset1"
}

func resultLayerType(p Port) (layerType, layerVersion string) {
	if p.IsState {
		return "Assign", "opset6"
	}
	return "Result", "opset1"
}

// WriteXML writes the model topology as an XML document to w. The weights
// blob is not part of the document, callers write Weights to the companion
// stream, see the Serialize pass.
func (m *Model) WriteXML(w io.Writer) error {
	net := xmlNet{
		Name:    m.name,
		Version: m.opsetVersion,
	}
	for _, key := range m.rtInfoKeys() {
		net.RTInfo = append(net.RTInfo, xmlRTAttr{Name: key, Value: m.rtInfo[key]})
	}

	// Producers of tensor names: parameters first, then operation outputs.
	// Layer ids follow the same order, with results last.
	producers := make(map[string]portRef)
	nextLayer := 0
	for _, p := range m.parameters {
		layerType, layerVersion := parameterLayerType(p)
		net.Layers = append(net.Layers, xmlLayer{
			ID:      nextLayer,
			Name:    p.Name,
			Type:    layerType,
			Version: layerVersion,
			Data:    portData(p),
			Output: &xmlPorts{Ports: []xmlPort{{
				ID:    0,
				Names: namesAttr(p.TensorNames),
				Dims:  slices.Clone(p.Shape.Dimensions),
			}}},
		})
		for name := range p.TensorNames {
			producers[name] = portRef{layer: nextLayer, port: 0}
		}
		nextLayer++
	}

	for _, op := range m.ops {
		layer := xmlLayer{
			ID:      nextLayer,
			Name:    op.Name,
			Type:    op.Type,
			Version: "opset" + strconv.Itoa(op.Version),
		}
		if len(op.Attributes) > 0 {
			keys := make([]string, 0, len(op.Attributes))
			for key := range op.Attributes {
				keys = append(keys, key)
			}
			slices.Sort(keys)
			data := &xmlData{}
			for _, key := range keys {
				data.Attrs = append(data.Attrs, dataAttr(key, op.Attributes[key]))
			}
			layer.Data = data
		}
		if len(op.Inputs) > 0 {
			layer.Input = &xmlPorts{}
			for i := range op.Inputs {
				layer.Input.Ports = append(layer.Input.Ports, xmlPort{ID: i})
			}
		}
		if len(op.Outputs) > 0 {
			layer.Output = &xmlPorts{}
			for i, name := range op.Outputs {
				portID := len(op.Inputs) + i
				layer.Output.Ports = append(layer.Output.Ports, xmlPort{ID: portID, Names: name})
				producers[name] = portRef{layer: nextLayer, port: portID}
			}
		}
		net.Layers = append(net.Layers, layer)
		nextLayer++
	}

	for _, p := range m.results {
		layerType, layerVersion := resultLayerType(p)
		net.Layers = append(net.Layers, xmlLayer{
			ID:      nextLayer,
			Name:    p.Name,
			Type:    layerType,
			Version: layerVersion,
			Data:    portData(p),
			Input: &xmlPorts{Ports: []xmlPort{{
				ID:    0,
				Names: namesAttr(p.TensorNames),
				Dims:  slices.Clone(p.Shape.Dimensions),
			}}},
		})
		nextLayer++
	}

	// Edges, derived from tensor names: every operation input and every
	// result connects back to the producer of the tensor it consumes.
	layerID := len(m.parameters)
	for _, op := range m.ops {
		for i, name := range op.Inputs {
			if from, ok := producers[name]; ok {
				net.Edges = append(net.Edges, xmlEdge{
					FromLayer: from.layer, FromPort: from.port,
					ToLayer: layerID, ToPort: i,
				})
			}
		}
		layerID++
	}
	for _, p := range m.results {
		for _, name := range types.Sorted(p.TensorNames) {
			if from, ok := producers[name]; ok {
				net.Edges = append(net.Edges, xmlEdge{
					FromLayer: from.layer, FromPort: from.port,
					ToLayer: layerID, ToPort: 0,
				})
				break
			}
		}
		layerID++
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrapf(err, "writing XML for model %q", m.name)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(&net); err != nil {
		return errors.Wrapf(err, "writing XML for model %q", m.name)
	}
	return errors.Wrapf(enc.Close(), "writing XML for model %q", m.name)
}

func dataAttrMap(data *xmlData) map[string]string {
	if data == nil {
		return nil
	}
	attrs := make(map[string]string, len(data.Attrs))
	for _, attr := range data.Attrs {
		attrs[attr.Name.Local] = attr.Value
	}
	return attrs
}

func parsePortFromLayer(layer xmlLayer, ports *xmlPorts, isState bool) (Port, error) {
	attrs := dataAttrMap(layer.Data)
	precision, err := ParsePrecision(attrs["element_type"])
	if err != nil {
		return Port{}, errors.WithMessagef(err, "layer %q", layer.Name)
	}
	shape, err := parseShapeAttr(attrs["shape"])
	if err != nil {
		return Port{}, errors.WithMessagef(err, "layer %q", layer.Name)
	}
	p := Port{
		Name:          layer.Name,
		TensorNames:   types.MakeSet[string](),
		Precision:     precision,
		Shape:         shape,
		IsState:       isState,
		IsShapeTensor: attrs["shape_tensor"] == "true",
	}
	if ports != nil && len(ports.Ports) > 0 {
		p.TensorNames = parseNamesAttr(ports.Ports[0].Names)
	}
	return p, nil
}

func parseOpsetVersion(version string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(version, "opset"))
	if err != nil {
		return 0
	}
	return n
}

// ParseXML reads a model topology previously produced by WriteXML. The
// weights blob is restored separately by the caller via SetWeights.
func ParseXML(r io.Reader) (*Model, error) {
	var net xmlNet
	if err := xml.NewDecoder(r).Decode(&net); err != nil {
		return nil, errors.Wrapf(err, "parsing model XML")
	}

	// Tensor names by producing port, and the producer feeding each
	// consuming port. Both are needed to restore operation connectivity.
	portNames := make(map[portRef]string)
	for _, layer := range net.Layers {
		if layer.Output == nil {
			continue
		}
		for _, port := range layer.Output.Ports {
			if first := types.Sorted(parseNamesAttr(port.Names)); len(first) > 0 {
				portNames[portRef{layer: layer.ID, port: port.ID}] = first[0]
			}
		}
	}
	edgeInto := make(map[portRef]portRef)
	for _, edge := range net.Edges {
		edgeInto[portRef{layer: edge.ToLayer, port: edge.ToPort}] =
			portRef{layer: edge.FromLayer, port: edge.FromPort}
	}

	model := NewModel(net.Name, net.Version)
	for _, rt := range net.RTInfo {
		model.SetRTInfo(rt.Name, rt.Value)
	}
	for _, layer := range net.Layers {
		switch layer.Type {
		case "Parameter", "ReadValue":
			p, err := parsePortFromLayer(layer, layer.Output, layer.Type == "ReadValue")
			if err != nil {
				return nil, err
			}
			model.AddParameter(p)
		case "Result", "Assign":
			p, err := parsePortFromLayer(layer, layer.Input, layer.Type == "Assign")
			if err != nil {
				return nil, err
			}
			model.AddResult(p)
		default:
			op := Operation{
				Name:       layer.Name,
				Type:       layer.Type,
				Version:    parseOpsetVersion(layer.Version),
				Attributes: dataAttrMap(layer.Data),
			}
			if layer.Input != nil {
				for _, port := range layer.Input.Ports {
					from, ok := edgeInto[portRef{layer: layer.ID, port: port.ID}]
					if !ok {
						continue
					}
					op.Inputs = append(op.Inputs, portNames[from])
				}
			}
			if layer.Output != nil {
				for _, port := range layer.Output.Ports {
					op.Outputs = append(op.Outputs, portNames[portRef{layer: layer.ID, port: port.ID}])
				}
			}
			model.AddOperation(op)
		}
	}
	return model, nil
}
