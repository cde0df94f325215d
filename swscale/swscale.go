//go:build !ios && !android && (amd64 || arm64)

// Package swscale binds libswscale for video scaling and pixel format
// conversion.
package swscale

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// Context is an opaque SwsContext pointer.
type Context = unsafe.Pointer

// Scaling algorithm flags (SWS_*).
const (
	FlagFastBilinear int32 = 1
	FlagBilinear     int32 = 2
	FlagBicubic      int32 = 4
	FlagX            int32 = 8
	FlagPoint        int32 = 0x10
	FlagArea         int32 = 0x20
	FlagBicublin     int32 = 0x40
	FlagGauss        int32 = 0x80
	FlagSinc         int32 = 0x100
	FlagLanczos      int32 = 0x200
	FlagSpline       int32 = 0x400
)

var (
	libSWScale uintptr
	initOnce   sync.Once
	initErr    error
)

var (
	swsGetContext     func(srcW, srcH, srcFormat, dstW, dstH, dstFormat, flags int32, srcFilter, dstFilter, param unsafe.Pointer) unsafe.Pointer
	swsScale          func(ctx, srcSlice, srcStride unsafe.Pointer, srcSliceY, srcSliceH int32, dst, dstStride unsafe.Pointer) int32
	swsFreeContext    func(ctx unsafe.Pointer)
	swsIsSupportedIn  func(format int32) int32
	swsIsSupportedOut func(format int32) int32
	swscaleVersion    func() uint32
)

// Init loads libswscale. It is optional; the scaler is unavailable without it.
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
	libSWScale, err = bindings.LoadOptional(bindings.SWScale)
	if err != nil {
		return fmt.Errorf("swscale: %w", err)
	}

	purego.RegisterLibFunc(&swsGetContext, libSWScale, "sws_getContext")
	purego.RegisterLibFunc(&swsScale, libSWScale, "sws_scale")
	purego.RegisterLibFunc(&swsFreeContext, libSWScale, "sws_freeContext")
	purego.RegisterLibFunc(&swsIsSupportedIn, libSWScale, "sws_isSupportedInput")
	purego.RegisterLibFunc(&swsIsSupportedOut, libSWScale, "sws_isSupportedOutput")
	purego.RegisterLibFunc(&swscaleVersion, libSWScale, "swscale_version")
	return nil
}

// Version returns the packed libswscale version, or 0 when unavailable.
func Version() uint32 {
	if Init() != nil {
		return 0
	}
	return swscaleVersion()
}

// GetContext creates a scaler from srcW x srcH in srcFormat to dstW x dstH
// in dstFormat. It returns nil when the combination is unsupported.
func GetContext(srcW, srcH int, srcFormat avutil.PixelFormat, dstW, dstH int, dstFormat avutil.PixelFormat, flags int32) Context {
	if Init() != nil {
		return nil
	}
	return swsGetContext(
		int32(srcW), int32(srcH), int32(srcFormat),
		int32(dstW), int32(dstH), int32(dstFormat),
		flags, nil, nil, nil,
	)
}

// FreeContext frees a scaler. Safe to call with nil.
func FreeContext(ctx Context) {
	if ctx == nil || Init() != nil {
		return
	}
	swsFreeContext(ctx)
}

// Scale converts rows [srcSliceY, srcSliceY+srcSliceH) of the source planes
// into the destination planes. The plane and stride arguments point at
// uint8_t *[4..8] and int[4..8] arrays, such as AVFrame.data and
// AVFrame.linesize. It returns the number of output rows written.
func Scale(ctx Context, srcData, srcStride unsafe.Pointer, srcSliceY, srcSliceH int32, dstData, dstStride unsafe.Pointer) (int, error) {
	if err := Init(); err != nil {
		return 0, err
	}
	ret := swsScale(ctx, srcData, srcStride, srcSliceY, srcSliceH, dstData, dstStride)
	if err := avutil.NewError(ret, "sws_scale"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// ScaleFrame scales the whole of src into dst. dst must already own
// buffers of the context's output size and format.
func ScaleFrame(ctx Context, dst, src avutil.Frame) (int, error) {
	return Scale(ctx,
		avutil.FrameDataArray(src), avutil.FrameLinesizeArray(src),
		0, avutil.GetFrameHeight(src),
		avutil.FrameDataArray(dst), avutil.FrameLinesizeArray(dst),
	)
}

// IsSupportedInput reports whether format can be a scaler source.
func IsSupportedInput(format avutil.PixelFormat) bool {
	if Init() != nil {
		return false
	}
	return swsIsSupportedIn(int32(format)) > 0
}

// IsSupportedOutput reports whether format can be a scaler destination.
func IsSupportedOutput(format avutil.PixelFormat) bool {
	if Init() != nil {
		return false
	}
	return swsIsSupportedOut(int32(format)) > 0
}
