package backends

import "github.com/XinWangIntel/openvino/npu/config"

// CreateBackendSymbol is the factory symbol a backend library must export
// to be loadable with LoadEngineBackend. The symbol must be a function or
// a function variable of type CreateBackendFunc.
const CreateBackendSymbol = "CreateEngineBackend"

// CreateBackendFunc is the signature of the backend library factory.
type CreateBackendFunc = func(cfg *config.Config) (EngineBackend, error)
