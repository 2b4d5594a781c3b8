package main

import (
	"fmt"
	"os"
	"time"

	"github.com/XinWangIntel/openvino/npu"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newProfilingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiling <model.blob> <profiling.bin>",
		Short: "Decode a profiling dump into a per layer report",
		Long: `Decode the raw profiling buffer an inference wrote into a per layer
performance report. Compiling with PERF_COUNT=YES adds the buffer to the
network outputs, save it to a file to analyze it here.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := setValues()
			if err != nil {
				return err
			}
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading blob")
			}
			profData, err := os.ReadFile(args[1])
			if err != nil {
				return errors.Wrapf(err, "reading profiling dump")
			}
			report, err := npu.NewPlugin().ProcessProfilingOutput(profData, blob, values)
			if err != nil {
				return err
			}

			table := newPlainTable(true)
			table.Row("Layer", "Type", "Status", "Engine", "Real time", "CPU time")
			var total time.Duration
			for i := range report {
				info := &report[i]
				engine := info.ExecType
				if engine == "" {
					engine = "-"
				}
				table.Row(info.Name, info.Type, info.Status.String(),
					engine, info.RealTime.String(), info.CPUTime.String())
				total += info.RealTime
			}
			fmt.Println(table.Render())
			fmt.Printf("%d layers, %s total\n", len(report), total)
			return nil
		},
	}
}
