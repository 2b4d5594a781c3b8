//go:build !linux

package backends

import (
	"github.com/XinWangIntel/openvino/npu/config"
	"github.com/pkg/errors"
)

// LoadEngineBackend reports that backend libraries cannot be loaded at run
// time on this platform. The registry skips the backend quietly.
func LoadEngineBackend(path string, cfg *config.Config) (EngineBackend, error) {
	return nil, errors.Wrapf(ErrDynamicLoadingUnsupported, "cannot load backend library %s", path)
}
