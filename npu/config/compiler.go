package config

import (
	"fmt"
	"strings"

	"github.com/XinWangIntel/openvino/npu/platform"
	"github.com/pkg/errors"
)

// Compiler selects which compiler implementation turns models into blobs.
type Compiler int

const (
	// CompilerMLIR is the development compiler shipped with the plugin.
	CompilerMLIR Compiler = iota

	// CompilerDriver delegates compilation to the driver.
	CompilerDriver
)

// String returns the serialized compiler type name.
func (c Compiler) String() string {
	switch c {
	case CompilerMLIR:
		return "MLIR"
	case CompilerDriver:
		return "DRIVER"
	}
	return fmt.Sprintf("Compiler(%d)", int(c))
}

// ParseCompiler parses a serialized compiler type name.
func ParseCompiler(raw string) (Compiler, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MLIR":
		return CompilerMLIR, nil
	case "DRIVER":
		return CompilerDriver, nil
	}
	return CompilerMLIR, errors.Errorf("unknown compiler type %q", raw)
}

// Profiling selects how per layer profiling data is collected.
type Profiling int

const (
	// ProfilingModel compiles profiling instrumentation into the model.
	ProfilingModel Profiling = iota

	// ProfilingInfer collects timing around inference jobs only.
	ProfilingInfer
)

// String returns the serialized profiling type name.
func (p Profiling) String() string {
	switch p {
	case ProfilingModel:
		return "MODEL"
	case ProfilingInfer:
		return "INFER"
	}
	return fmt.Sprintf("Profiling(%d)", int(p))
}

// ParseProfiling parses a serialized profiling type name.
func ParseProfiling(raw string) (Profiling, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MODEL":
		return ProfilingModel, nil
	case "INFER":
		return ProfilingInfer, nil
	}
	return ProfilingModel, errors.Errorf("unknown profiling type %q", raw)
}

// ElfBackend selects whether the compiler emits the ELF container format.
type ElfBackend int

const (
	// ElfBackendAuto lets the compiler pick based on platform.
	ElfBackendAuto ElfBackend = iota

	// ElfBackendNo forces the legacy container.
	ElfBackendNo

	// ElfBackendYes forces the ELF container.
	ElfBackendYes
)

// String returns the serialized ELF backend mode.
func (e ElfBackend) String() string {
	switch e {
	case ElfBackendAuto:
		return "AUTO"
	case ElfBackendNo:
		return "NO"
	case ElfBackendYes:
		return "YES"
	}
	return fmt.Sprintf("ElfBackend(%d)", int(e))
}

// ParseElfBackend parses a serialized ELF backend mode.
func ParseElfBackend(raw string) (ElfBackend, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AUTO":
		return ElfBackendAuto, nil
	case "NO":
		return ElfBackendNo, nil
	case "YES":
		return ElfBackendYes, nil
	}
	return ElfBackendAuto, errors.Errorf("unknown ELF compiler backend mode %q", raw)
}

// Compilation options.
var (
	// CompilerType selects the compiler implementation. The environment
	// variable overrides the default without touching the host
	// configuration, for switching compilers on deployed machines.
	CompilerType = NewOption("NPU_COMPILER_TYPE", CompilerMLIR, ModeCompileTime, false,
		ParseCompiler, Compiler.String).WithEnv("IE_NPU_COMPILER_TYPE")

	// CompilationMode names the compiler pipeline, e.g. "DefaultHW".
	CompilationMode = StringOption("NPU_COMPILATION_MODE", "", ModeCompileTime, false)

	// CompilationModeParams carries free form pipeline parameters.
	CompilationModeParams = StringOption("NPU_COMPILATION_MODE_PARAMS", "", ModeCompileTime, false)

	// Platform names the platform to compile for, or AUTO_DETECT to
	// resolve it from the available devices.
	Platform = StringOption("NPU_PLATFORM", platform.AutoDetect, ModeBoth, false)

	// Stepping overrides the hardware stepping to compile for. Negative
	// means the compiler decides.
	Stepping = IntOption("NPU_STEPPING", -1, ModeCompileTime, false)

	// DPUGroups overrides the number of DPU groups. Negative means the
	// compiler decides.
	DPUGroups = IntOption("NPU_DPU_GROUPS", -1, ModeCompileTime, false)

	// MaxTiles overrides the number of tiles available to the compiler.
	// Negative means the compiler decides.
	MaxTiles = IntOption("NPU_MAX_TILES", -1, ModeCompileTime, false)

	// DMAEngines overrides the number of DMA engines. Negative means the
	// compiler decides.
	DMAEngines = IntOption("NPU_DMA_ENGINES", -1, ModeCompileTime, false)

	// DynamicShapeToStatic turns dynamically shaped models into static
	// ones before compilation.
	DynamicShapeToStatic = BoolOption("NPU_DYNAMIC_SHAPE_TO_STATIC", false, ModeCompileTime, false)

	// ProfilingType selects the profiling collection method.
	ProfilingType = NewOption("NPU_PROFILING_TYPE", ProfilingModel, ModeCompileTime, false,
		ParseProfiling, Profiling.String)

	// UseElfCompilerBackend selects the blob container format.
	UseElfCompilerBackend = NewOption("NPU_USE_ELF_COMPILER_BACKEND", ElfBackendAuto,
		ModeCompileTime, false, ParseElfBackend, ElfBackend.String)

	// BackendCompilationParams carries backend specific flags appended to
	// the compiler command line.
	BackendCompilationParams = StringOption("NPU_BACKEND_COMPILATION_PARAMS", "", ModeCompileTime, false)
)

// RegisterCompilerOptions adds the compilation options to desc.
func RegisterCompilerOptions(desc *OptionsDesc) {
	desc.Add(CompilerType, CompilationMode, CompilationModeParams, Platform, Stepping,
		DPUGroups, MaxTiles, DMAEngines, DynamicShapeToStatic, ProfilingType,
		UseElfCompilerBackend, BackendCompilationParams)
}
