package main

import (
	"bytes"
	"fmt"

	"github.com/XinWangIntel/openvino/npu"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/XinWangIntel/openvino/npu/types"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/spf13/cobra"
)

// newSelfTestCommand exercises the compile, export, import and query
// paths with a built in model. No device is needed, the blob is compiled
// for an explicit platform and never loaded.
func newSelfTestCommand() *cobra.Command {
	var platformName string
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Compile a built in model and check the blob round trips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exceptions.TryCatch[error](func() { selfTest(platformName) })
		},
	}
	cmd.Flags().StringVar(&platformName, "platform", platform.NPU3720,
		"platform to compile the test model for")
	return cmd
}

func selfTest(platformName string) {
	plugin := npu.NewPlugin()
	values := map[string]string{
		config.Platform.Key():       platformName,
		config.CreateExecutor.Key(): "0",
	}

	compiled := must.M1(plugin.CompileModel(selfTestModel(), values))
	var blob bytes.Buffer
	must.M(compiled.Export(&blob))

	imported := must.M1(plugin.ImportModel(&blob, values))
	metadata := imported.Metadata()
	if metadata.Name != "npuc_selftest" {
		exceptions.Panicf("imported network is %q, want %q", metadata.Name, "npuc_selftest")
	}
	supported := must.M1(plugin.QueryModel(selfTestModel(), values))

	table := newPlainTable(false)
	table.Row("platform", platformName)
	table.Row("blob", humanize.Bytes(uint64(blob.Len())))
	table.Row("inputs", fmt.Sprintf("%d", len(metadata.Inputs)))
	table.Row("outputs", fmt.Sprintf("%d", len(metadata.Outputs)))
	table.Row("supported ops", fmt.Sprintf("%d", len(supported)))
	fmt.Println(table.Render())
	fmt.Println("Self test passed.")
}

func selfTestModel() *ir.Model {
	m := ir.NewModel("npuc_selftest", 11)
	m.AddParameter(ir.Port{
		Name:        "input",
		TensorNames: types.SetWith("data"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 3, 32, 32),
	})
	m.AddOperation(ir.Operation{
		Name: "conv1", Type: "Convolution", Version: 1,
		Inputs: []string{"data"}, Outputs: []string{"conv1:0"},
	})
	m.AddOperation(ir.Operation{
		Name: "pool1", Type: "MaxPool", Version: 8,
		Inputs: []string{"conv1:0"}, Outputs: []string{"pool1:0"},
	})
	m.AddOperation(ir.Operation{
		Name: "relu1", Type: "ReLU", Version: 1,
		Inputs: []string{"pool1:0"}, Outputs: []string{"relu1:0"},
	})
	m.AddResult(ir.Port{
		Name:        "output",
		TensorNames: types.SetWith("relu1:0"),
		Precision:   dtypes.Float32,
		Shape:       ir.MakeShape(1, 8, 16, 16),
	})
	m.SetWeights([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	return m
}
