package main

import (
	"fmt"
	"os"

	"github.com/XinWangIntel/openvino/npu"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model.blob>",
		Short: "Print the I/O metadata of a compiled blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := aotValues()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "opening blob")
			}
			defer f.Close()
			compiled, err := npu.NewPlugin().ImportModel(f, values)
			if err != nil {
				return err
			}

			metadata := compiled.Metadata()
			fmt.Println(titleStyle.Render(fmt.Sprintf("Network %q", metadata.Name)))
			fmt.Printf("Inference streams: %d\n", metadata.StreamCount())
			describePorts("Inputs", metadata.Inputs)
			describePorts("Outputs", metadata.Outputs)
			if len(metadata.ProfilingOutputs) > 0 {
				describePorts("Profiling outputs", metadata.ProfilingOutputs)
			}
			return nil
		},
	}
}

func describePorts(title string, descriptors []compiler.IODescriptor) {
	fmt.Println(titleStyle.Render(title))
	table := newPlainTable(true)
	table.Row("Name", "Precision", "Shape", "Kind")
	for i := range descriptors {
		d := &descriptors[i]
		table.Row(d.NameFromCompiler, ir.PrecisionString(d.Precision),
			d.ShapeFromCompiler.String(), portKind(d))
	}
	fmt.Println(table.Render())
}

func portKind(d *compiler.IODescriptor) string {
	switch {
	case d.IsShapeTensor:
		return "shape tensor"
	case d.IsStateInput:
		return "state (read)"
	case d.IsStateOutput:
		return "state (assign)"
	default:
		return "data"
	}
}
