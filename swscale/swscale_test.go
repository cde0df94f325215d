//go:build !ios && !android && (amd64 || arm64)

package swscale

import (
	"testing"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoSWScale(t *testing.T) {
	t.Helper()
	if err := Init(); err != nil {
		t.Skipf("swscale not available: %v", err)
	}
}

func TestVersion(t *testing.T) {
	skipIfNoSWScale(t)
	assert.NotZero(t, Version()>>16)
}

func TestGetContextFlags(t *testing.T) {
	skipIfNoSWScale(t)

	for name, flags := range map[string]int32{
		"FastBilinear": FlagFastBilinear,
		"Bilinear":     FlagBilinear,
		"Bicubic":      FlagBicubic,
		"Lanczos":      FlagLanczos,
		"Point":        FlagPoint,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := GetContext(640, 480, avutil.PixelFormatYUV420P, 320, 240, avutil.PixelFormatRGB24, flags)
			require.NotNil(t, ctx)
			FreeContext(ctx)
		})
	}
	FreeContext(nil)
}

func TestSupportedFormats(t *testing.T) {
	skipIfNoSWScale(t)
	assert.True(t, IsSupportedInput(avutil.PixelFormatYUV420P))
	assert.True(t, IsSupportedOutput(avutil.PixelFormatRGB24))
	assert.False(t, IsSupportedInput(avutil.PixelFormat(100000)))
}

func allocVideoFrame(t *testing.T, w, h int32, pixFmt avutil.PixelFormat) avutil.Frame {
	t.Helper()
	frame := avutil.FrameAlloc()
	require.NotNil(t, frame)
	t.Cleanup(func() { avutil.FrameFree(&frame) })
	avutil.SetFrameWidth(frame, w)
	avutil.SetFrameHeight(frame, h)
	avutil.SetFrameFormat(frame, int32(pixFmt))
	require.NoError(t, avutil.FrameGetBuffer(frame, 0))
	return frame
}

func fillPlane(frame avutil.Frame, plane int, rows int, value byte) {
	data := avutil.GetFrameData(frame, plane)
	stride := int(avutil.GetFrameLinesize(frame, plane))
	buf := unsafe.Slice((*byte)(data), rows*stride)
	for i := range buf {
		buf[i] = value
	}
}

func TestScaleFrame(t *testing.T) {
	skipIfNoSWScale(t)

	src := allocVideoFrame(t, 320, 240, avutil.PixelFormatYUV420P)
	// mid gray: Y=128 with neutral chroma maps to RGB ~ (128,128,128)
	fillPlane(src, 0, 240, 128)
	fillPlane(src, 1, 120, 128)
	fillPlane(src, 2, 120, 128)

	dst := allocVideoFrame(t, 160, 120, avutil.PixelFormatRGB24)

	ctx := GetContext(320, 240, avutil.PixelFormatYUV420P, 160, 120, avutil.PixelFormatRGB24, FlagBicubic)
	require.NotNil(t, ctx)
	defer FreeContext(ctx)

	rows, err := ScaleFrame(ctx, dst, src)
	require.NoError(t, err)
	assert.Equal(t, 120, rows)

	px := unsafe.Slice((*byte)(avutil.GetFrameData(dst, 0)), 3)
	for _, c := range px {
		assert.InDelta(t, 130, int(c), 10)
	}
}
