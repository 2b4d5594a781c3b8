package config

// Options shared by every device plugin surface.
var (
	// DeviceID selects a device by name when several are exposed, e.g.
	// "3720.0". Empty means the plugin picks.
	DeviceID = StringOption("DEVICE_ID", "", ModeRunTime, true)

	// CacheDir enables compiled blob caching under the given directory.
	CacheDir = StringOption("CACHE_DIR", "", ModeCompileTime, true)

	// LogLevel controls plugin and compiler verbosity.
	LogLevel = ChoiceOption("LOG_LEVEL", "LOG_NONE", ModeBoth, true,
		"LOG_NONE", "LOG_ERROR", "LOG_WARNING", "LOG_INFO", "LOG_DEBUG", "LOG_TRACE")

	// PerfCount compiles profiling support into the blob and enables
	// per layer performance counters on inference.
	PerfCount = BoolOption("PERF_COUNT", false, ModeCompileTime, true)

	// PerformanceHint biases compilation towards latency or throughput.
	PerformanceHint = ChoiceOption("PERFORMANCE_HINT", "", ModeCompileTime, true,
		"LATENCY", "THROUGHPUT", "CUMULATIVE_THROUGHPUT")
)

// RegisterCommonOptions adds the shared plugin options to desc.
func RegisterCommonOptions(desc *OptionsDesc) {
	desc.Add(DeviceID, CacheDir, LogLevel, PerfCount, PerformanceHint)
}
