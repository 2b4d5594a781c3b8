package imd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/XinWangIntel/openvino/internal/metrics"
	"github.com/XinWangIntel/openvino/internal/parallel"
	"github.com/XinWangIntel/openvino/npu/backends"
	"github.com/XinWangIntel/openvino/npu/compiler"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// The application's file protocol: the blob and one file per input tensor
// go into the work directory, one file per output tensor comes back.
const (
	blobFileName      = "test.blob"
	inputFilePattern  = "input-%d.bin"
	outputFilePattern = "output-%d.bin"
)

// InferRequest runs a network on the simulator. Each Infer is one
// simulator process over a scratch directory.
type InferRequest struct {
	*backends.SyncInferRequest

	toolsPath  string
	platform   string
	blob       []byte
	launchMode string
	timeout    time.Duration
}

var _ backends.InferRequest = &InferRequest{}

// Infer implements backends.InferRequest.
func (r *InferRequest) Infer() error {
	err := r.infer()
	metrics.InferencesTotal.WithLabelValues(BackendName, metrics.ResultLabel(err)).Inc()
	return err
}

func (r *InferRequest) infer() error {
	if err := r.CheckTensors(); err != nil {
		return err
	}
	workDir, err := os.MkdirTemp("", "npu_imd_*")
	if err != nil {
		return errors.Wrapf(err, "creating work directory")
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			klog.Warningf("Failed to remove work directory %s: %v", workDir, err)
		}
	}()

	if err := r.writeCase(workDir); err != nil {
		return err
	}
	start := time.Now()
	if err := r.run(workDir); err != nil {
		return err
	}
	if err := r.readResults(workDir); err != nil {
		return err
	}
	metrics.InferenceSeconds.WithLabelValues(BackendName).Observe(time.Since(start).Seconds())
	return nil
}

func (r *InferRequest) writeCase(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, blobFileName), r.blob, 0o644); err != nil {
		return errors.Wrapf(err, "writing network blob")
	}
	return parallel.Each(0, len(r.Metadata().Inputs), func(i int) error {
		name := fmt.Sprintf(inputFilePattern, i)
		if err := os.WriteFile(filepath.Join(dir, name), r.InputTensor(i).Data(), 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
		return nil
	})
}

func (r *InferRequest) run(dir string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	bin, args := r.launchCommand()
	klog.V(2).Infof("Running %s %s in %s", bin, strings.Join(args, " "), dir)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Errorf("inference of %q timed out after %s", r.Metadata().Name, r.timeout)
	}
	if err != nil {
		return errors.Wrapf(err, "simulator failed: %s", truncateOutput(output))
	}
	return nil
}

func (r *InferRequest) launchCommand() (bin string, args []string) {
	app := appPath(r.toolsPath, r.platform)
	if r.launchMode == LaunchMoviDebug {
		return debuggerBinary(r.toolsPath), []string{"-D:elf=" + app, "-D:run"}
	}
	return simulatorBinary(r.toolsPath), []string{"-cv:" + r.platform, "-q", "-l:" + app}
}

func (r *InferRequest) readResults(dir string) error {
	return parallel.Each(0, len(r.Metadata().Outputs), func(i int) error {
		name := fmt.Sprintf(outputFilePattern, i)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		out := r.OutputTensor(i)
		if len(data) != out.ByteSize() {
			return errors.Errorf("%s holds %d bytes, tensor %s of %s needs %d",
				name, len(data), out.Shape(), out.DType(), out.ByteSize())
		}
		copy(out.Data(), data)
		return nil
	})
}

// ProfilingInfo implements backends.InferRequest.
func (r *InferRequest) ProfilingInfo() ([]compiler.ProfilingInfo, error) {
	return nil, errors.Errorf("the IMD backend does not collect profiling data")
}

func truncateOutput(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
