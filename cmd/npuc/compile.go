package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/XinWangIntel/openvino/npu"
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// loadModel reads a model from its XML form, with the weights from the
// sibling .bin file when one exists.
func loadModel(xmlPath string) (*ir.Model, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening model")
	}
	defer f.Close()
	model, err := ir.ParseXML(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing model %q", xmlPath)
	}

	weightsPath := strings.TrimSuffix(xmlPath, filepath.Ext(xmlPath)) + ".bin"
	weights, err := os.ReadFile(weightsPath)
	if err == nil {
		model.SetWeights(weights)
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "reading model weights")
	}
	return model, nil
}

// aotValues merges the --set flags with NPU_CREATE_EXECUTOR=0, ahead of
// time commands must not load the network onto a device.
func aotValues() (map[string]string, error) {
	values, err := setValues()
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string, 1)
	}
	key := config.CreateExecutor.Key()
	if _, ok := values[key]; !ok {
		values[key] = "0"
	}
	return values, nil
}

func newCompileCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile <model.xml>",
		Short: "Compile a model to a device blob",
		Long: `Compile a model to a device blob that 'npuc inspect' and the plugin's
import operation accept. Without a device present the target platform
must be given explicitly, e.g. --set NPU_PLATFORM=3720.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := aotValues()
			if err != nil {
				return err
			}
			model, err := loadModel(args[0])
			if err != nil {
				return err
			}
			compiled, err := npu.NewPlugin().CompileModel(model, values)
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".blob"
			}
			f, err := os.Create(output)
			if err != nil {
				return errors.Wrapf(err, "creating blob file")
			}
			if err := compiled.Export(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "writing %q", output)
			}
			fmt.Printf("Compiled %q to %s (%s)\n",
				model.Name(), output, humanize.Bytes(uint64(len(compiled.Blob()))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"blob output path (default: the model path with a .blob extension)")
	return cmd
}

func newQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <model.xml>",
		Short: "Report which model operations can run on the NPU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := setValues()
			if err != nil {
				return err
			}
			model, err := loadModel(args[0])
			if err != nil {
				return err
			}
			supported, err := npu.NewPlugin().QueryModel(model, values)
			if err != nil {
				return err
			}

			table := newPlainTable(true)
			table.Row("Operation", "Type", "Supported")
			operations := model.Operations()
			for i := range operations {
				cell := "no"
				if supported.Has(operations[i].Name) {
					cell = "yes"
				}
				table.Row(operations[i].Name, operations[i].Type, cell)
			}
			fmt.Println(table.Render())
			fmt.Printf("%d of %d operations supported\n", len(supported), len(operations))
			return nil
		},
	}
}
