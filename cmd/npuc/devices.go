package main

import (
	"fmt"

	"github.com/XinWangIntel/openvino/npu"
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the NPU devices visible to the plugin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := npu.NewPlugin().Registry()
			if registry.BackendName() == "" {
				fmt.Println("No engine backend initialized, is an NPU present?")
				return nil
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("Devices of the %s backend", registry.BackendName())))
			table := newPlainTable(true)
			table.Row("Name", "Full name", "UUID", "Slices", "Driver", "Memory")
			for _, name := range registry.AvailableDeviceNames() {
				device, err := registry.Device(name)
				if err != nil {
					return err
				}
				table.Row(device.Name(), device.FullName(),
					orDash(device.UUID()),
					orDash(device.MaxNumSlices()),
					orDash(device.DriverVersion()),
					memoryCell(device))
			}
			fmt.Println(table.Render())
			return nil
		},
	}
}

func newPropertiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "properties",
		Short: "List the public plugin options and their effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin := npu.NewPlugin()
			values, err := setValues()
			if err != nil {
				return err
			}
			if err := plugin.SetProperties(values); err != nil {
				return err
			}

			table := newPlainTable(true)
			table.Row("Key", "Value")
			for _, key := range plugin.PublicProperties() {
				value, err := plugin.Property(key)
				if err != nil {
					return err
				}
				table.Row(key, value)
			}
			fmt.Println(table.Render())
			return nil
		},
	}
}

// orDash renders a device property, or "-" for devices that do not
// expose it.
func orDash[T any](value T, err error) string {
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%v", value)
}

func memoryCell(device backends.Device) string {
	total, err := device.TotalMemSize()
	if err != nil {
		return "-"
	}
	alloc, err := device.AllocMemSize()
	if err != nil {
		return humanize.Bytes(total)
	}
	return fmt.Sprintf("%s of %s used", humanize.Bytes(alloc), humanize.Bytes(total))
}
