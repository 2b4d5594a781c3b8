//go:build !linux

package levelzero

import (
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/pkg/errors"
)

// loadDriver reports that the driver binding cannot be loaded at run time
// on this platform. The registry skips the backend quietly.
func loadDriver() (Driver, error) {
	return nil, errors.Wrapf(backends.ErrBackendUnavailable,
		"driver binding requires run time loading: %v", backends.ErrDynamicLoadingUnsupported)
}
