//go:build !ios && !android && (amd64 || arm64)

// Package swresample binds libswresample for audio resampling, sample
// format conversion and channel remixing.
package swresample

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// Context is an opaque SwrContext pointer.
type Context = unsafe.Pointer

var (
	libSWResample uintptr
	initOnce      sync.Once
	initErr       error
)

var (
	swrAlloc          func() unsafe.Pointer
	swrAllocSetOpts2  func(ps *unsafe.Pointer, outChLayout unsafe.Pointer, outFmt, outRate int32, inChLayout unsafe.Pointer, inFmt, inRate int32, logOffset int32, logCtx unsafe.Pointer) int32
	swrInit           func(s unsafe.Pointer) int32
	swrFree           func(s *unsafe.Pointer)
	swrConvert        func(s, out unsafe.Pointer, outCount int32, in unsafe.Pointer, inCount int32) int32
	swrGetDelay       func(s unsafe.Pointer, base int64) int64
	swrGetOutSamples  func(s unsafe.Pointer, inSamples int32) int32
	swrIsInitialized  func(s unsafe.Pointer) int32
	swrClose          func(s unsafe.Pointer)
	swresampleVersion func() uint32
)

// Init loads libswresample. It is optional; the resampler is unavailable
// without it.
func Init() error {
	initOnce.Do(func() {
		initErr = initLibrary()
	})
	return initErr
}

func initLibrary() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	var err error
	libSWResample, err = bindings.LoadOptional(bindings.SWResample)
	if err != nil {
		return fmt.Errorf("swresample: %w", err)
	}

	purego.RegisterLibFunc(&swrAlloc, libSWResample, "swr_alloc")
	purego.RegisterLibFunc(&swrInit, libSWResample, "swr_init")
	purego.RegisterLibFunc(&swrFree, libSWResample, "swr_free")
	purego.RegisterLibFunc(&swrConvert, libSWResample, "swr_convert")
	purego.RegisterLibFunc(&swrGetDelay, libSWResample, "swr_get_delay")
	purego.RegisterLibFunc(&swrGetOutSamples, libSWResample, "swr_get_out_samples")
	purego.RegisterLibFunc(&swrIsInitialized, libSWResample, "swr_is_initialized")
	purego.RegisterLibFunc(&swrClose, libSWResample, "swr_close")
	purego.RegisterLibFunc(&swresampleVersion, libSWResample, "swresample_version")

	// swr_alloc_set_opts2 needs swresample 4.5 (FFmpeg 5.1).
	if err := registerOptional(&swrAllocSetOpts2, libSWResample, "swr_alloc_set_opts2"); err != nil {
		return fmt.Errorf("swresample: %w", err)
	}
	return nil
}

func registerOptional(fptr any, handle uintptr, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("symbol %s: %v", name, r)
		}
	}()
	purego.RegisterLibFunc(fptr, handle, name)
	return nil
}

// Version returns the packed libswresample version, or 0 when unavailable.
func Version() uint32 {
	if Init() != nil {
		return 0
	}
	return swresampleVersion()
}

// Alloc allocates an unconfigured SwrContext.
func Alloc() Context {
	if Init() != nil {
		return nil
	}
	return swrAlloc()
}

// AllocSetOpts2 configures *ps, allocating it when nil. The layouts point at
// AVChannelLayout structs, which are copied.
func AllocSetOpts2(ps *Context,
	outChLayout unsafe.Pointer, outFmt avutil.SampleFormat, outRate int32,
	inChLayout unsafe.Pointer, inFmt avutil.SampleFormat, inRate int32,
) error {
	if err := Init(); err != nil {
		return err
	}
	ret := swrAllocSetOpts2(ps,
		outChLayout, int32(outFmt), outRate,
		inChLayout, int32(inFmt), inRate,
		0, nil)
	return avutil.NewError(ret, "swr_alloc_set_opts2")
}

// InitContext initializes a configured context.
func InitContext(s Context) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.NewError(swrInit(s), "swr_init")
}

// Free frees a context and sets *s to nil.
func Free(s *Context) {
	if s == nil || *s == nil || Init() != nil {
		return
	}
	swrFree(s)
	*s = nil
}

// Convert resamples inCount samples per channel. out and in point at arrays
// of plane pointers; a nil in with inCount 0 drains buffered samples. It
// returns the number of samples written per channel.
func Convert(s Context, out unsafe.Pointer, outCount int32, in unsafe.Pointer, inCount int32) (int, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	ret := swrConvert(s, out, outCount, in, inCount)
	runtime.KeepAlive(out)
	runtime.KeepAlive(in)
	if err := avutil.NewError(ret, "swr_convert"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// GetDelay returns the buffered delay expressed in 1/base units.
func GetDelay(s Context, base int64) int64 {
	if s == nil || Init() != nil {
		return 0
	}
	return swrGetDelay(s, base)
}

// GetOutSamples returns an upper bound on the output samples the next
// Convert of inSamples may produce.
func GetOutSamples(s Context, inSamples int) int {
	if s == nil || Init() != nil {
		return 0
	}
	return int(swrGetOutSamples(s, int32(inSamples)))
}

func IsInitialized(s Context) bool {
	if s == nil || Init() != nil {
		return false
	}
	return swrIsInitialized(s) != 0
}

// Close returns the context to the unconfigured state without freeing it.
func Close(s Context) {
	if s == nil || Init() != nil {
		return
	}
	swrClose(s)
}
