// npuc drives the NPU plugin from the command line: it lists the devices
// the engine backends expose, compiles models to device blobs and
// inspects the results.
//
// Build:
//
//	go build ./cmd/npuc
//
// Every command accepts plugin options through repeated --set flags, the
// available keys are listed by `npuc properties`. klog flags such as -v
// control logging.
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var flagSet []string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "npuc",
		Short:        "npuc compiles and inspects models for the NPU",
		SilenceUsage: true,
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)
	cmd.PersistentFlags().StringArrayVar(&flagSet, "set", nil,
		"plugin option as KEY=VALUE, repeatable, see 'npuc properties'")

	cmd.AddCommand(
		newDevicesCommand(),
		newPropertiesCommand(),
		newCompileCommand(),
		newQueryCommand(),
		newInspectCommand(),
		newProfilingCommand(),
		newSelfTestCommand(),
	)
	return cmd
}

// setValues parses the --set flags into the property map the plugin
// operations accept.
func setValues() (map[string]string, error) {
	if len(flagSet) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(flagSet))
	for _, pair := range flagSet {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, errors.Errorf("--set takes KEY=VALUE, got %q", pair)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
