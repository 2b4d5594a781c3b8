package config

// Inference time options.
var (
	// CreateExecutor controls whether compiling a model also creates its
	// executor on the device. Zero defers executor creation, for flows
	// that compile and export without running.
	CreateExecutor = IntOption("NPU_CREATE_EXECUTOR", 1, ModeRunTime, false)

	// ExclusiveAsyncRequests serializes inference requests across models
	// instead of running them concurrently.
	ExclusiveAsyncRequests = BoolOption("EXCLUSIVE_ASYNC_REQUESTS", false, ModeRunTime, false)

	// NumStreams overrides the number of inference streams compiled into
	// the blob. Non positive leaves the decision to the performance hint.
	NumStreams = IntOption("NUM_STREAMS", -1, ModeBoth, true)

	// EnableCPUPinning pins inference worker threads of the host to
	// dedicated cores.
	EnableCPUPinning = BoolOption("ENABLE_CPU_PINNING", false, ModeRunTime, true)

	// ModelPriority ranks this model's inference jobs against other
	// models sharing the device.
	ModelPriority = ChoiceOption("MODEL_PRIORITY", "MEDIUM", ModeRunTime, true,
		"LOW", "MEDIUM", "HIGH")
)

// RegisterRuntimeOptions adds the inference time options to desc.
func RegisterRuntimeOptions(desc *OptionsDesc) {
	desc.Add(CreateExecutor, ExclusiveAsyncRequests, NumStreams, EnableCPUPinning, ModelPriority)
}
