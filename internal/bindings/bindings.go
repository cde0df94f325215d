//go:build !ios && !android && (amd64 || arm64)

// Package bindings loads the FFmpeg shared libraries with purego and keeps the
// process-wide library handles the binding packages register against.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/internal/platform"
	"go.uber.org/atomic"
)

// EnvLibraryPath names the environment variable holding an extra directory
// searched before the platform defaults.
const EnvLibraryPath = "AVBRIDGE_LIB_PATH"

// ErrNotLoaded is returned when FFmpeg functions are called before Load().
var ErrNotLoaded = errors.New("avbridge: FFmpeg libraries not loaded")

// ErrLibraryNotFound is returned when a required FFmpeg library cannot be found.
var ErrLibraryNotFound = errors.New("avbridge: FFmpeg library not found")

// Library is a shared library the bridge may load.
type Library struct {
	Name     string
	Versions []int
	Optional bool
}

// Core libraries in dependency order. avutil must come first.
var (
	AVUtil   = Library{Name: "avutil", Versions: []int{59, 58, 57, 56}}
	AVCodec  = Library{Name: "avcodec", Versions: []int{61, 60, 59, 58}}
	AVFormat = Library{Name: "avformat", Versions: []int{61, 60, 59, 58}}

	AVFilter   = Library{Name: "avfilter", Versions: []int{10, 9, 8, 7}, Optional: true}
	SWScale    = Library{Name: "swscale", Versions: []int{8, 7, 6, 5}, Optional: true}
	SWResample = Library{Name: "swresample", Versions: []int{5, 4, 3}, Optional: true}
	FFShim     = Library{Name: "ffshim", Versions: []int{0}, Optional: true}
)

var (
	libAVUtil   uintptr
	libAVCodec  uintptr
	libAVFormat uintptr
	libFFShim   uintptr

	extraPathsMu sync.Mutex
	extraPaths   []string

	optionalMu   sync.Mutex
	optionalLibs = map[string]uintptr{}

	loadMu sync.Mutex
	loaded atomic.Bool
)

var (
	avutilVersion   func() uint32
	avcodecVersion  func() uint32
	avformatVersion func() uint32
)

// AddSearchPath prepends dir to the library search paths. It only has an effect
// until Load succeeds.
func AddSearchPath(dir string) {
	if dir == "" {
		return
	}
	extraPathsMu.Lock()
	defer extraPathsMu.Unlock()
	extraPaths = append(extraPaths, dir)
}

// IsLoaded returns true if the core libraries were loaded successfully.
func IsLoaded() bool {
	return loaded.Load()
}

// Load loads the core FFmpeg libraries and registers the version bindings.
// Once it succeeds further calls are no-ops. A failed Load is retried on the
// next call, so a search path added in between is honoured.
func Load() error {
	if loaded.Load() {
		return nil
	}
	loadMu.Lock()
	defer loadMu.Unlock()
	if loaded.Load() {
		return nil
	}
	if err := doLoad(); err != nil {
		return err
	}
	loaded.Store(true)
	return nil
}

func doLoad() error {
	var err error

	if libAVUtil, err = open(AVUtil); err != nil {
		return fmt.Errorf("loading libavutil: %w", err)
	}
	if libAVCodec, err = open(AVCodec); err != nil {
		return fmt.Errorf("loading libavcodec: %w", err)
	}
	if libAVFormat, err = open(AVFormat); err != nil {
		return fmt.Errorf("loading libavformat: %w", err)
	}

	// the shim only carries the variadic log callback trampoline
	libFFShim, _ = open(FFShim)

	purego.RegisterLibFunc(&avutilVersion, libAVUtil, "avutil_version")
	purego.RegisterLibFunc(&avcodecVersion, libAVCodec, "avcodec_version")
	purego.RegisterLibFunc(&avformatVersion, libAVFormat, "avformat_version")
	return nil
}

func open(lib Library) (uintptr, error) {
	names := platform.CandidateNames(lib.Name, lib.Versions)
	for _, dir := range LibrarySearchPaths() {
		for _, name := range names {
			if h, err := tryOpen(filepath.Join(dir, name)); err == nil {
				return h, nil
			}
		}
	}

	// let the dynamic linker resolve bare names
	for _, name := range names {
		if h, err := tryOpen(name); err == nil {
			return h, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, lib.Name)
}

// FFmpeg libraries reference each other's symbols, hence RTLD_GLOBAL.
func tryOpen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

// FindLibrary searches for a library and returns its full path without
// loading it.
func FindLibrary(lib Library) (string, error) {
	for _, dir := range LibrarySearchPaths() {
		for _, name := range platform.CandidateNames(lib.Name, lib.Versions) {
			fullPath := filepath.Join(dir, name)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, lib.Name)
}

// LibrarySearchPaths returns the directories searched for libraries, most
// specific first.
func LibrarySearchPaths() []string {
	var paths []string

	extraPathsMu.Lock()
	paths = append(paths, extraPaths...)
	extraPathsMu.Unlock()

	if p := os.Getenv(EnvLibraryPath); p != "" {
		paths = append(paths, filepath.SplitList(p)...)
	}

	switch runtime.GOOS {
	case "linux", "freebsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
			"/lib/x86_64-linux-gnu",
			"/lib",
		)

	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/opt/ffmpeg/lib",
		)

	case "windows":
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		if winPath := os.Getenv("PATH"); winPath != "" {
			paths = append(paths, filepath.SplitList(winPath)...)
		}
		paths = append(paths,
			`C:\ffmpeg\bin`,
			`C:\Program Files\ffmpeg\bin`,
		)
	}

	return paths
}

// LoadOptional loads one of the optional libraries (avfilter, swscale,
// swresample). The core libraries are loaded first. The result is cached.
func LoadOptional(lib Library) (uintptr, error) {
	if err := Load(); err != nil {
		return 0, err
	}

	optionalMu.Lock()
	defer optionalMu.Unlock()
	if h, ok := cachedOptional(lib.Name); ok {
		return h, nil
	}
	h, err := open(lib)
	if err != nil {
		return 0, err
	}
	optionalLibs[lib.Name] = h
	return h, nil
}

// must be called with optionalMu held
func cachedOptional(name string) (uintptr, bool) {
	h, ok := optionalLibs[name]
	return h, ok
}

// Versions of the core libraries, encoded as major<<16 | minor<<8 | micro.
// Zero when not loaded.
func AVUtilVersion() uint32 {
	if !loaded.Load() {
		return 0
	}
	return avutilVersion()
}

func AVCodecVersion() uint32 {
	if !loaded.Load() {
		return 0
	}
	return avcodecVersion()
}

func AVFormatVersion() uint32 {
	if !loaded.Load() {
		return 0
	}
	return avformatVersion()
}

// LibAVUtil returns the avutil library handle.
func LibAVUtil() uintptr { return libAVUtil }

// LibAVCodec returns the avcodec library handle.
func LibAVCodec() uintptr { return libAVCodec }

// LibAVFormat returns the avformat library handle.
func LibAVFormat() uintptr { return libAVFormat }

// LibFFShim returns the ffshim library handle, or 0.
func LibFFShim() uintptr { return libFFShim }

// HasFFShim returns true if the ffshim library is available.
func HasFFShim() bool { return libFFShim != 0 }
