// Builds the IMD engine backend as a loadable backend library:
//
//	go build -buildmode=plugin -o libnpu_imd_backend.so ./cmd/imdbackend
//
// The plugin resolves the CreateEngineBackend symbol at run time, see
// backends.LoadEngineBackend.
package main

import (
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/backends/imd"
)

// CreateEngineBackend is the factory symbol the backend loader resolves.
var CreateEngineBackend backends.CreateBackendFunc = imd.New

func main() {}
