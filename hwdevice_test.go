//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHWDeviceTypeNames(t *testing.T) {
	skipIfNoFFmpeg(t)

	typ, err := FindHWDeviceType("vaapi")
	require.NoError(t, err)
	assert.Equal(t, HWDeviceTypeVAAPI, typ)
	assert.Equal(t, "cuda", HWDeviceTypeName(HWDeviceTypeCUDA))

	_, err = FindHWDeviceType("no-such-accelerator")
	assert.ErrorIs(t, err, ErrHWDeviceTypeNotFound)

	for _, typ := range HWDeviceTypes() {
		assert.NotEqual(t, HWDeviceTypeNone, typ)
		assert.NotEmpty(t, HWDeviceTypeName(typ))
	}
}

func TestCodecHWConfigs(t *testing.T) {
	skipIfNoFFmpeg(t)

	pcm, err := FindDecoder(CodecIDPCMS16LE)
	require.NoError(t, err)
	assert.Empty(t, pcm.HWConfigs())
	assert.Empty(t, Codec{}.HWConfigs())

	h264, err := FindDecoder(CodecIDH264)
	require.NoError(t, err)
	for _, cfg := range h264.HWConfigs() {
		assert.NotEqual(t, HWDeviceTypeNone, cfg.DeviceType)
		assert.NotEqual(t, PixelFormatNone, cfg.PixelFormat)
		assert.NotZero(t, cfg.Methods)
	}

	m := HWConfigMethodHWDeviceCtx | HWConfigMethodAdHoc
	assert.True(t, m.Has(HWConfigMethodHWDeviceCtx))
	assert.False(t, m.Has(HWConfigMethodHWFramesCtx))
}

func TestNewHWDeviceContextRejectsNone(t *testing.T) {
	ctx, b := newTestBridge(t)

	_, err := b.NewHWDeviceContext(ctx, HWDeviceTypeNone, "", nil)
	assert.ErrorIs(t, err, ErrHWDeviceTypeNotFound)
	assert.Empty(t, b.LiveHandles())
}

// openAnyHWDevice returns the first device type that opens on this machine.
func openAnyHWDevice(t *testing.T, b *Bridge) HWDeviceContext {
	t.Helper()
	ctx := testCtx(t)
	for _, typ := range HWDeviceTypes() {
		dev, err := b.NewHWDeviceContext(ctx, typ, "", nil)
		if err == nil {
			return dev
		}
	}
	t.Skip("no hardware device available")
	return HWDeviceContext{}
}

func TestHWDeviceLifecycle(t *testing.T) {
	ctx, b := newTestBridge(t)
	dev := openAnyHWDevice(t, b)

	assert.True(t, dev.Valid())
	assert.NotEqual(t, HWDeviceTypeNone, dev.Type())
	assert.Equal(t, HWDeviceTypeName(dev.Type()), dev.TypeName())
	assert.Equal(t, map[string]int{"hardware device": 1}, b.LiveHandles())

	dec, err := FindDecoder(CodecIDH264)
	require.NoError(t, err)
	cc, err := b.NewCodecContext(ctx, dec)
	require.NoError(t, err)
	require.NoError(t, cc.SetHWDevice(ctx, dev))

	// The codec context keeps its own reference.
	require.NoError(t, dev.Destroy(ctx))
	assert.False(t, dev.Valid())
	assert.Equal(t, HWDeviceTypeNone, dev.Type())
	assert.ErrorIs(t, dev.Destroy(ctx), ErrStaleHandle)
	assert.ErrorIs(t, cc.SetHWDevice(ctx, dev), ErrStaleHandle)
	require.NoError(t, cc.Destroy(ctx))
}

func TestSetHWDeviceChecks(t *testing.T) {
	ctx, b := newTestBridge(t)
	_, other := newTestBridge(t)
	dev := openAnyHWDevice(t, other)
	defer dev.Destroy(ctx)

	enc, err := FindEncoderByName("pcm_s16le")
	require.NoError(t, err)
	cc, err := b.NewCodecContext(ctx, enc)
	require.NoError(t, err)
	defer cc.Destroy(ctx)
	assert.ErrorIs(t, cc.SetHWDevice(ctx, dev), ErrForeignHandle)
	assert.ErrorIs(t, cc.SetHWDevice(ctx, HWDeviceContext{}), ErrNilBridge)

	own := openAnyHWDevice(t, b)
	defer own.Destroy(ctx)
	cc.SetSampleRate(8000)
	cc.SetSampleFormat(SampleFormatS16)
	require.NoError(t, cc.SetChannelLayout(DefaultChannelLayout(1)))
	require.NoError(t, cc.Open(ctx, nil))
	assert.ErrorIs(t, cc.SetHWDevice(ctx, own), ErrCodecAlreadyOpen)
}

func TestTransferFromSoftwareFrames(t *testing.T) {
	_, b := newTestBridge(t)

	src, err := b.NewFrame()
	require.NoError(t, err)
	defer src.Destroy()
	dst, err := b.NewFrame()
	require.NoError(t, err)
	defer dst.Destroy()

	assert.False(t, src.IsHardware())
	err = dst.TransferFrom(src)
	assert.Equal(t, AVERROR_EINVAL, ErrorCode(err))
}
