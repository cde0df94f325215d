//go:build !ios && !android && (amd64 || arm64)

// Package shim binds the optional ffshim helper library.
//
// FFmpeg's log callback receives a va_list, which purego cannot decode. The
// shim formats each message in C and calls a plain
// void (*)(void *avcl, int level, const char *msg) callback instead.
// Everything else in the bridge works without the shim.
package shim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// EnvShimDir overrides the shim search with a single directory.
const EnvShimDir = "AVBRIDGE_SHIM_DIR"

// ErrShimNotLoaded is returned when shim functions are called but the shim is not available.
var ErrShimNotLoaded = errors.New("avbridge: shim library not loaded")

// ErrShimNotFound is returned when the shim library cannot be found.
var ErrShimNotFound = errors.New("avbridge: shim library not found")

var (
	libShim  uintptr
	loaded   bool
	loadErr  error
	loadMu   sync.Mutex
	shimPath string

	shimLogSetCallback func(cb uintptr)
	shimLog            func(avcl uintptr, level int32, msg string)
)

// Load attempts to load the ffshim library. A missing shim is not an error;
// it is recorded and reported by LoadError and Status.
func Load() error {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded || loadErr != nil {
		return nil
	}

	path, err := findShimLibrary()
	if err != nil {
		loadErr = err
		return nil
	}

	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		loadErr = fmt.Errorf("unable to load the shim at %s: %w", path, err)
		return nil
	}

	libShim = lib
	shimPath = path
	registerOptionalLibFunc(&shimLogSetCallback, libShim, "ffshim_log_set_callback")
	registerOptionalLibFunc(&shimLog, libShim, "ffshim_log")
	loaded = true
	return nil
}

// IsLoaded returns true if the shim library was successfully loaded.
func IsLoaded() bool {
	loadMu.Lock()
	defer loadMu.Unlock()
	return loaded
}

// Path returns where the shim was loaded from, or "".
func Path() string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return shimPath
}

// LoadError returns why the shim is unavailable, or nil.
func LoadError() error {
	loadMu.Lock()
	defer loadMu.Unlock()
	return loadErr
}

// Status returns a human-readable status of the shim library.
func Status() string {
	loadMu.Lock()
	defer loadMu.Unlock()

	switch {
	case loaded:
		return fmt.Sprintf("loaded from %s", shimPath)
	case loadErr != nil:
		return fmt.Sprintf("not loaded: %s", loadErr)
	default:
		return "not loaded"
	}
}

// ExpectedLibraryName returns the shim filename for the current platform.
func ExpectedLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libffshim.dylib"
	case "windows":
		return "ffshim.dll"
	default:
		return "libffshim.so"
	}
}

// purego.RegisterLibFunc panics on a missing symbol; partial shim builds exist.
func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() {
		_ = recover()
	}()
	purego.RegisterLibFunc(fptr, handle, name)
}

// SetLogCallback installs cb (made with purego.NewCallback) as the FFmpeg log
// callback. Zero restores FFmpeg's default callback.
func SetLogCallback(cb uintptr) error {
	if !IsLoaded() {
		return ErrShimNotLoaded
	}
	if shimLogSetCallback == nil {
		return fmt.Errorf("%w: ffshim_log_set_callback missing", ErrShimNotLoaded)
	}
	shimLogSetCallback(cb)
	return nil
}

// Log sends a pre-formatted message to FFmpeg's logger.
func Log(avcl unsafe.Pointer, level int32, msg string) error {
	if !IsLoaded() {
		return ErrShimNotLoaded
	}
	if shimLog == nil {
		return fmt.Errorf("%w: ffshim_log missing", ErrShimNotLoaded)
	}
	shimLog(uintptr(avcl), level, msg)
	return nil
}

func findShimLibrary() (string, error) {
	var names []string
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		names = []string{"libffshim.so", "libffshim.so.1"}
	case "darwin":
		names = []string{"libffshim.dylib", "libffshim.1.dylib"}
	case "windows":
		names = []string{"ffshim.dll", "libffshim.dll"}
	default:
		return "", fmt.Errorf("%w: unsupported platform %s/%s", ErrShimNotFound, runtime.GOOS, runtime.GOARCH)
	}

	if dir := os.Getenv(EnvShimDir); dir != "" {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		return "", fmt.Errorf("%w: %s=%s does not contain %s", ErrShimNotFound, EnvShimDir, dir, names[0])
	}

	var searchPaths []string
	switch runtime.GOOS {
	case "darwin":
		searchPaths = append(searchPaths, filepath.SplitList(os.Getenv("DYLD_LIBRARY_PATH"))...)
		searchPaths = append(searchPaths, "/opt/homebrew/lib")
	case "windows":
		searchPaths = append(searchPaths, filepath.SplitList(os.Getenv("PATH"))...)
	default:
		searchPaths = append(searchPaths, filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))...)
	}
	searchPaths = append(searchPaths, "/usr/local/lib", "/usr/lib", "/lib")
	if exe, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}

	searched := 0
	for _, name := range names {
		for _, dir := range searchPaths {
			if dir == "" {
				continue
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
			searched++
		}
	}
	return "", fmt.Errorf("%w: looked for %s in %d locations; set %s", ErrShimNotFound, names[0], searched, EnvShimDir)
}
