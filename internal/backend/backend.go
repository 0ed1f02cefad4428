// Package backend binds the translation engine to llama.cpp through the
// yzma purego FFI, with no CGO involved. The native libraries are loaded
// once per process; models come and go on top of them.
package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"

	"github.com/konnyaku/konnyaku/internal/logger"
)

// libPathEnv overrides the llama.cpp library directory.
const libPathEnv = "KONNYAKU_LIB"

var (
	initOnce sync.Once
	initErr  error

	gpuAvailable  bool
	gpuDeviceName string
)

// ensureInit loads the native llama.cpp libraries and probes the hardware.
// Called before any model load; the result is sticky for the process.
func ensureInit(libPath string, log logger.Logger) error {
	initOnce.Do(func() {
		path := resolveLibPath(libPath)
		log.Info("loading llama.cpp libraries", "path", path)
		if err := llama.Load(path); err != nil {
			initErr = fmt.Errorf("load llama.cpp libraries from %s: %w", path, err)
			return
		}
		llama.Init()
		detectGPU(log)
	})
	return initErr
}

func resolveLibPath(configured string) string {
	if configured != "" {
		return absOrSelf(configured)
	}
	if env := os.Getenv(libPathEnv); env != "" {
		return absOrSelf(env)
	}

	candidates := []string{
		"./lib/llama",
		filepath.Join(exeDir(), "lib", "llama"),
		filepath.Join(exeDir(), "lib"),
	}
	for _, candidate := range candidates {
		if dirHasLibrary(candidate) {
			return absOrSelf(candidate)
		}
	}
	return absOrSelf("./lib/llama")
}

func dirHasLibrary(dir string) bool {
	names := []string{"libllama.so", "libllama.dylib", "llama.dll", "libggml.so", "ggml.dll"}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func exeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// detectGPU probes the loaded libraries for an offload-capable device. A
// machine without one is not an error; loads simply stay on the CPU.
func detectGPU(log logger.Logger) {
	gpuAvailable = llama.SupportsGpuOffload()

	count := llama.GGMLBackendDeviceCount()
	for i := uint64(0); i < count; i++ {
		name := llama.GGMLBackendDeviceName(llama.GGMLBackendDeviceGet(i))
		lower := strings.ToLower(name)
		if strings.Contains(lower, "cuda") ||
			strings.Contains(lower, "metal") ||
			strings.Contains(lower, "vulkan") ||
			strings.Contains(lower, "hip") ||
			strings.Contains(lower, "gpu") {
			gpuDeviceName = name
			gpuAvailable = true
			break
		}
	}

	if gpuAvailable {
		log.Info("gpu offload available", "device", gpuDeviceName, "os", runtime.GOOS)
	} else {
		log.Info("no gpu offload available, using cpu")
	}
}
