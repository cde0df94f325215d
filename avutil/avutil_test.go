//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"math"
	"os"
	"testing"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/internal/bindings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := bindings.Load(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

func TestFrameFields(t *testing.T) {
	skipIfNoFFmpeg(t)
	frame := FrameAlloc()
	require.NotNil(t, frame)
	defer FrameFree(&frame)

	SetFrameWidth(frame, 1920)
	SetFrameHeight(frame, 1080)
	SetFrameFormat(frame, int32(PixelFormatYUV420P))
	SetFramePTS(frame, 42)
	SetFrameTimeBase(frame, NewRational(1, 90000))

	assert.EqualValues(t, 1920, GetFrameWidth(frame))
	assert.EqualValues(t, 1080, GetFrameHeight(frame))
	assert.EqualValues(t, PixelFormatYUV420P, GetFrameFormat(frame))
	assert.EqualValues(t, 42, GetFramePTS(frame))
	assert.Equal(t, NewRational(1, 90000), GetFrameTimeBase(frame))

	require.NoError(t, FrameGetBuffer(frame, 0))
	assert.NotNil(t, GetFrameData(frame, 0))
	assert.GreaterOrEqual(t, GetFrameLinesize(frame, 0), int32(1920))
}

func TestFrameFreeNil(t *testing.T) {
	skipIfNoFFmpeg(t)
	frame := FrameAlloc()
	FrameFree(&frame)
	assert.Nil(t, frame)
	FrameFree(&frame)
}

func TestAudioFrameChannelLayout(t *testing.T) {
	skipIfNoFFmpeg(t)
	frame := FrameAlloc()
	require.NotNil(t, frame)
	defer FrameFree(&frame)

	require.NoError(t, ChannelLayoutFromMask(FrameChLayout(frame), ChLayoutStereo))
	l := ReadChannelLayout(FrameChLayout(frame))
	assert.Equal(t, ChannelOrderNative, l.Order)
	assert.EqualValues(t, 2, l.NbChannels)
	assert.Equal(t, ChLayoutStereo, l.Mask)
	assert.Equal(t, "stereo", ChannelLayoutDescribe(FrameChLayout(frame)))
}

func TestDictionary(t *testing.T) {
	skipIfNoFFmpeg(t)
	var d Dictionary
	defer DictFree(&d)

	require.NoError(t, DictSet(&d, "b", "2", 0))
	require.NoError(t, DictSet(&d, "a", "1", 0))
	require.NoError(t, DictSet(&d, "a", "3", DictMultiKey))

	v, ok := DictGet(d, "a", DictMatchCase)
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = DictGet(d, "A", DictMatchCase)
	assert.False(t, ok)

	assert.Equal(t, []DictEntry{{"b", "2"}, {"a", "1"}, {"a", "3"}}, DictEntries(d))
	assert.Equal(t, 3, DictCount(d))
}

func TestImageBufferConsistency(t *testing.T) {
	skipIfNoFFmpeg(t)
	for _, tc := range []struct {
		fmt    PixelFormat
		w, h   int32
		align  int32
		planes int
	}{
		{PixelFormatYUV420P, 64, 48, 1, 3},
		{PixelFormatYUV420P, 33, 17, 32, 3},
		{PixelFormatRGB24, 100, 10, 1, 1},
		{PixelFormatNV12, 640, 360, 16, 2},
	} {
		size, err := ImageGetBufferSize(int32(tc.fmt), tc.w, tc.h, tc.align)
		require.NoError(t, err)

		buf := Malloc(uintptr(size))
		require.NotNil(t, buf)

		var data [4]unsafe.Pointer
		var linesize [4]int32
		used, err := ImageFillArrays(unsafe.Pointer(&data[0]), unsafe.Pointer(&linesize[0]), buf, int32(tc.fmt), tc.w, tc.h, tc.align)
		require.NoError(t, err)
		assert.LessOrEqual(t, used, size)

		for p := 0; p < tc.planes; p++ {
			ls, err := ImageGetLinesize(int32(tc.fmt), tc.w, int32(p))
			require.NoError(t, err)
			assert.LessOrEqual(t, ls, int(linesize[p]), "%v plane %d", tc.fmt, p)
			end := uintptr(data[p]) - uintptr(buf) + uintptr(linesize[p])
			assert.LessOrEqual(t, end, uintptr(size))
		}
		Free(buf)
	}
}

func TestErrorString(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.NotEmpty(t, ErrorString(AVERROR_EOF))
	assert.NotEmpty(t, ErrorString(-999999))

	err := NewError(AVERROR_EAGAIN, "avcodec_receive_frame")
	assert.True(t, IsAgain(err))
	assert.False(t, IsEOF(err))
	assert.Contains(t, err.Error(), "avcodec_receive_frame")
}

func TestNewErrorSuccess(t *testing.T) {
	assert.NoError(t, NewError(0, "op"))
	assert.NoError(t, NewError(12, "op"))
	assert.Zero(t, Code(nil))
}

func TestRationalArithmetic(t *testing.T) {
	a := NewRational(1, 2)
	b := NewRational(3, 4)
	assert.Equal(t, NewRational(3, 8), a.Mul(b))
	assert.Equal(t, NewRational(2, 3), a.Div(b))
	assert.Equal(t, NewRational(5, 4), a.Add(b))
	assert.Equal(t, NewRational(-1, 4), a.Sub(b))
	assert.Equal(t, 1, a.Cmp(NewRational(1, 3)))
	assert.Equal(t, 0, a.Cmp(NewRational(2, 4)))
	assert.InDelta(t, 29.97, NewRational(30000, 1001).Float64(), 0.001)
	assert.Zero(t, NewRational(1, 0).Float64())
}

func TestRationalValid(t *testing.T) {
	assert.True(t, NewRational(1, 25).Valid())
	assert.False(t, NewRational(0, 0).Valid())
	assert.False(t, NewRational(1, 0).Valid())
	assert.False(t, NewRational(0, 1).Valid())
	assert.False(t, NewRational(1, -1).Valid())
}

func TestD2Q(t *testing.T) {
	assert.Equal(t, NewRational(1, 2), D2Q(0.5, 1<<26))
	assert.Equal(t, NewRational(30000, 1001), D2Q(30000.0/1001.0, 1<<26))
	assert.Equal(t, NewRational(-3, 4), D2Q(-0.75, 1<<26))
	assert.Equal(t, Rational{}, D2Q(math.NaN(), 1<<26))
	assert.Equal(t, NewRational(1, 0), D2Q(math.Inf(1), 1<<26))
	assert.Equal(t, NewRational(0, 1), D2Q(0, 1<<26))
}

func TestRescale(t *testing.T) {
	assert.EqualValues(t, 90000, RescaleQ(1000, NewRational(1, 1000), NewRational(1, 90000)))
	assert.EqualValues(t, 2, RescaleQ(3, NewRational(1, 2), NewRational(1, 1)))
	assert.EqualValues(t, -2, RescaleQ(-3, NewRational(1, 2), NewRational(1, 1)))
	assert.EqualValues(t, 1, RescaleRnd(3, 1, 2, RoundDown))
	assert.EqualValues(t, -2, RescaleRnd(-3, 1, 2, RoundDown))
	assert.EqualValues(t, 2, RescaleRnd(3, 1, 2, RoundUp))
	assert.EqualValues(t, 1, RescaleRnd(3, 1, 2, RoundZero))
	assert.Equal(t, NoPTSValue, RescaleRnd(NoPTSValue, 3, 2, RoundNearInf|RoundPassMinMax))
	assert.Equal(t, NoPTSValue, RescaleRnd(1, 1, 0, RoundNearInf))

	// a*b overflowing int64 still rescales exactly
	assert.EqualValues(t, int64(math.MaxInt64/1000), RescaleRnd(math.MaxInt64/1000, 1<<40, 1<<40, RoundZero))
}
