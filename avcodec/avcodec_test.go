//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"os"
	"testing"

	"github.com/obinnaokechukwu/avbridge/avutil"
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

func TestFindDecoder(t *testing.T) {
	skipIfNoFFmpeg(t)
	codec := FindDecoder(CodecIDH264)
	require.NotNil(t, codec, "every FFmpeg build ships the native h264 decoder")

	assert.Equal(t, "h264", GetCodecName(codec))
	assert.NotEmpty(t, GetCodecLongName(codec))
	assert.Equal(t, avutil.MediaTypeVideo, GetCodecType(codec))
	assert.Equal(t, CodecIDH264, GetCodecID(codec))
	assert.True(t, IsDecoder(codec))
	assert.False(t, IsEncoder(codec))
}

func TestFindByName(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.Nil(t, FindDecoderByName("definitely-not-a-codec"))

	enc := FindEncoderByName("pcm_s16le")
	require.NotNil(t, enc)
	assert.Equal(t, CodecIDPCMS16LE, GetCodecID(enc))
	assert.Equal(t, avutil.MediaTypeAudio, GetCodecType(enc))
}

func TestCodecIDString(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.Equal(t, "h264", CodecIDH264.String())
	assert.Equal(t, "aac", CodecIDAAC.String())
	assert.Equal(t, "opus", CodecIDOPUS.String())
	assert.Equal(t, "flac", CodecIDFLAC.String())
}

func TestCodecIDRanges(t *testing.T) {
	assert.True(t, CodecIDH264.IsVideo())
	assert.True(t, CodecIDAAC.IsAudio())
	assert.False(t, CodecIDAAC.IsVideo())
	assert.True(t, CodecIDText.IsSubtitle())
	assert.EqualValues(t, 27, CodecIDH264)
	assert.EqualValues(t, 173, CodecIDHEVC)
	assert.EqualValues(t, 86018, CodecIDAAC)
}

func TestContextFields(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := AllocContext3(FindEncoderByName("pcm_s16le"))
	require.NotNil(t, ctx)
	defer FreeContext(&ctx)

	SetCtxSampleRate(ctx, 48000)
	SetCtxSampleFmt(ctx, int32(avutil.SampleFormatS16))
	SetCtxTimeBase(ctx, avutil.NewRational(1, 48000))
	SetCtxBitRate(ctx, 1536000)
	require.NoError(t, avutil.ChannelLayoutFromMask(GetCtxChLayout(ctx), avutil.ChLayoutStereo))

	assert.EqualValues(t, 48000, GetCtxSampleRate(ctx))
	assert.EqualValues(t, avutil.SampleFormatS16, GetCtxSampleFmt(ctx))
	assert.Equal(t, avutil.NewRational(1, 48000), GetCtxTimeBase(ctx))
	assert.EqualValues(t, 1536000, GetCtxBitRate(ctx))
	assert.Equal(t, avutil.MediaTypeAudio, GetCtxCodecType(ctx))
	assert.Equal(t, CodecIDPCMS16LE, GetCtxCodecID(ctx))

	// options-based read back confirms the offsets line up with the library
	v, err := avutil.OptGet(ctx, "ar", 0)
	require.NoError(t, err)
	assert.Equal(t, "48000", v)

	require.NoError(t, Open2(ctx, FindEncoderByName("pcm_s16le"), nil))
	assert.Equal(t, "pcm_s16le", GetCodecName(GetCtxCodec(ctx)))
}

func TestFreeContextTwice(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := AllocContext3(nil)
	require.NotNil(t, ctx)
	FreeContext(&ctx)
	assert.Nil(t, ctx)
	FreeContext(&ctx)
}

func TestExtradata(t *testing.T) {
	skipIfNoFFmpeg(t)
	par := ParametersAlloc()
	require.NotNil(t, par)
	defer ParametersFree(&par)

	assert.Nil(t, GetParExtradata(par))
	require.NoError(t, SetParExtradata(par, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, GetParExtradata(par))
	require.NoError(t, SetParExtradata(par, []byte{9}))
	assert.Equal(t, []byte{9}, GetParExtradata(par))
	require.NoError(t, SetParExtradata(par, nil))
	assert.Nil(t, GetParExtradata(par))
}

func TestParametersRoundTrip(t *testing.T) {
	skipIfNoFFmpeg(t)
	src := ParametersAlloc()
	dst := ParametersAlloc()
	defer ParametersFree(&src)
	defer ParametersFree(&dst)

	SetParCodecType(src, avutil.MediaTypeVideo)
	SetParCodecID(src, CodecIDH264)
	SetParWidth(src, 1280)
	SetParHeight(src, 720)
	SetParFormat(src, int32(avutil.PixelFormatYUV420P))
	SetParBitRate(src, 2_000_000)
	SetParCodecTag(src, 0x31637661)
	require.NoError(t, SetParExtradata(src, []byte{0, 0, 0, 1, 0x67}))

	ctx := AllocContext3(nil)
	require.NotNil(t, ctx)
	defer FreeContext(&ctx)
	require.NoError(t, ParametersToContext(ctx, src))
	assert.EqualValues(t, 1280, GetCtxWidth(ctx))
	assert.EqualValues(t, 720, GetCtxHeight(ctx))
	assert.Equal(t, []byte{0, 0, 0, 1, 0x67}, GetCtxExtradata(ctx))

	require.NoError(t, ParametersCopy(dst, src))
	assert.Equal(t, CodecIDH264, GetParCodecID(dst))
	assert.EqualValues(t, 2_000_000, GetParBitRate(dst))
	assert.EqualValues(t, 0x31637661, GetParCodecTag(dst))
}

func TestPacketBytes(t *testing.T) {
	skipIfNoFFmpeg(t)
	pkt := PacketAlloc()
	require.NotNil(t, pkt)
	defer PacketFree(&pkt)

	for _, payload := range [][]byte{{1}, []byte("hello packet"), make([]byte, 4096)} {
		require.NoError(t, SetPacketBytes(pkt, payload))
		assert.Equal(t, payload, PacketBytes(pkt))
		assert.EqualValues(t, len(payload), GetPacketSize(pkt))
	}

	require.NoError(t, SetPacketBytes(pkt, nil))
	assert.Nil(t, PacketBytes(pkt))
}

func TestPacketFields(t *testing.T) {
	skipIfNoFFmpeg(t)
	pkt := PacketAlloc()
	require.NotNil(t, pkt)
	defer PacketFree(&pkt)

	assert.Equal(t, avutil.NoPTSValue, GetPacketPTS(pkt))
	SetPacketPTS(pkt, 3000)
	SetPacketDTS(pkt, 1000)
	SetPacketDuration(pkt, 1000)
	SetPacketStreamIndex(pkt, 2)
	SetPacketFlags(pkt, PacketFlagKey)
	SetPacketTimeBase(pkt, avutil.NewRational(1, 1000))

	RescalePacketTS(pkt, avutil.NewRational(1, 1000), avutil.NewRational(1, 90000))
	assert.EqualValues(t, 270000, GetPacketPTS(pkt))
	assert.EqualValues(t, 90000, GetPacketDTS(pkt))
	assert.EqualValues(t, 90000, GetPacketDuration(pkt))
	assert.EqualValues(t, 2, GetPacketStreamIndex(pkt))
	assert.Equal(t, PacketFlagKey, GetPacketFlags(pkt))
	assert.Equal(t, avutil.NewRational(1, 1000), GetPacketTimeBase(pkt))
}

func TestPacketSideData(t *testing.T) {
	skipIfNoFFmpeg(t)
	pkt := PacketAlloc()
	require.NotNil(t, pkt)
	defer PacketFree(&pkt)

	assert.Empty(t, PacketSideData(pkt))
	require.NoError(t, PacketAddSideData(pkt, SideDataSkipSamples, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	require.NoError(t, PacketAddSideData(pkt, SideDataStringsMetadata, []byte("k\x00v\x00")))

	sd := PacketSideData(pkt)
	require.Len(t, sd, 2)
	assert.Equal(t, SideDataSkipSamples, sd[0].Type)
	assert.Len(t, sd[0].Data, 10)
	assert.Equal(t, []byte("k\x00v\x00"), sd[1].Data)

	b, ok := PacketGetSideData(pkt, SideDataStringsMetadata)
	require.True(t, ok)
	assert.Equal(t, sd[1].Data, b)
	_, ok = PacketGetSideData(pkt, SideDataA53CC)
	assert.False(t, ok)

	assert.NotEmpty(t, SideDataMasteringDisplayMetadata.String())

	PacketFreeSideData(pkt)
	assert.Empty(t, PacketSideData(pkt))
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.NotZero(t, bindings.AVCodecVersion())
}
