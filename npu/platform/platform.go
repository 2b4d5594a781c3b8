// Package platform holds the NPU platform naming scheme shared by the
// compiler and backend layers.
//
// The same platform can be spelled in several ways ("3720" vs "VPU3720" vs
// "NPU3720"). Standardize converts the prefixed spellings to the standard,
// non-prefixed form so that platform values can be compared, regardless of
// where they came from.
package platform

import "strings"

const (
	// AutoDetect asks the plugin to resolve the compilation platform from
	// the devices present on the host instead of an explicit value.
	AutoDetect = "AUTO_DETECT"

	// NPU3700 identifies the VPU30XX generation.
	NPU3700 = "3700"

	// NPU3720 identifies the VPU37XX generation.
	NPU3720 = "3720"
)

const (
	vpuPrefix = "VPU"
	npuPrefix = "NPU"
)

// Standardize converts a platform value to its standard form: the known
// "VPU"/"NPU" prefixes are stripped, values already in standard form are
// returned unchanged.
func Standardize(platform string) string {
	if strings.HasPrefix(platform, vpuPrefix) || strings.HasPrefix(platform, npuPrefix) {
		return platform[len(npuPrefix):]
	}
	return platform
}

// ByDeviceName returns the compilation platform encoded in a device name.
// Device names may carry a ".<slice>" suffix ("3720.1"); the slice does not
// change the platform.
func ByDeviceName(deviceName string) string {
	if idx := strings.LastIndexByte(deviceName, '.'); idx >= 0 {
		return Standardize(deviceName[:idx])
	}
	return Standardize(deviceName)
}

// IsNPUDevice reports whether a software device ID belongs to an NPU.
// Bits 26..24 of the ID encode the interface type; zero is the in-package
// interconnect used by NPU devices.
func IsNPUDevice(swDeviceID uint32) bool {
	const interfaceTypeSelector = 0x7000000
	return swDeviceID&interfaceTypeSelector == 0
}

// SliceIDBySwDeviceID extracts the slice index from a software device ID.
// Bit 0 is reserved, the slice index sits in bits 3..1.
func SliceIDBySwDeviceID(swDeviceID uint32) uint32 {
	return (swDeviceID >> 1) & 0x7
}
