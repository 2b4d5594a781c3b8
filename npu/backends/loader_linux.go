//go:build linux

package backends

import (
	"os"
	"plugin"

	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/pkg/errors"
)

// LoadEngineBackend loads a backend library and constructs its engine
// backend through the CreateBackendSymbol factory. A missing library file
// reports ErrBackendUnavailable, which the registry skips quietly, any
// other failure is a real loading error.
func LoadEngineBackend(path string, cfg *config.Config) (EngineBackend, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrBackendUnavailable, "backend library %s does not exist", path)
		}
		return nil, errors.Wrapf(err, "checking backend library %s", path)
	}
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading backend library %s", path)
	}
	symbol, err := lib.Lookup(CreateBackendSymbol)
	if err != nil {
		return nil, errors.Wrapf(err, "backend library %s does not export %s", path, CreateBackendSymbol)
	}
	switch create := symbol.(type) {
	case CreateBackendFunc:
		return create(cfg)
	case *CreateBackendFunc:
		return (*create)(cfg)
	}
	return nil, errors.Errorf("symbol %s in %s has type %T, want func(*config.Config) (EngineBackend, error)",
		CreateBackendSymbol, path, symbol)
}
