//go:build linux

package levelzero

import (
	"os"
	"plugin"

	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/pkg/errors"
)

// driverLibrary is the driver binding loaded at run time. Overridable for
// deployments that install it elsewhere.
var driverLibrary = "libnpu_level_zero.so"

// openDriverSymbol is the factory symbol the driver binding must export, a
// function or function variable of type OpenDriverFunc.
const openDriverSymbol = "OpenDriver"

// OpenDriverFunc is the signature of the driver binding factory. The
// returned driver is initialized.
type OpenDriverFunc = func() (Driver, error)

// loadDriver loads the driver binding. A missing library reports
// backends.ErrBackendUnavailable, which the registry skips quietly.
func loadDriver() (Driver, error) {
	if _, err := os.Stat(driverLibrary); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(backends.ErrBackendUnavailable,
				"driver binding %s does not exist", driverLibrary)
		}
		return nil, errors.Wrapf(err, "checking driver binding %s", driverLibrary)
	}
	lib, err := plugin.Open(driverLibrary)
	if err != nil {
		return nil, errors.Wrapf(err, "loading driver binding %s", driverLibrary)
	}
	symbol, err := lib.Lookup(openDriverSymbol)
	if err != nil {
		return nil, errors.Wrapf(err, "driver binding %s does not export %s",
			driverLibrary, openDriverSymbol)
	}
	switch open := symbol.(type) {
	case OpenDriverFunc:
		return open()
	case *OpenDriverFunc:
		return (*open)()
	}
	return nil, errors.Errorf("symbol %s in %s has type %T, want func() (Driver, error)",
		openDriverSymbol, driverLibrary, symbol)
}
