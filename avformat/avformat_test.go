//go:build !ios && !android && (amd64 || arm64)

package avformat

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/obinnaokechukwu/avbridge/avcodec"
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

// createTestMedia writes a one second clip with a video and an audio stream
// using the ffmpeg CLI.
func createTestMedia(t *testing.T) string {
	t.Helper()
	skipIfNoFFmpeg(t)

	testFile := filepath.Join(t.TempDir(), "test.mkv")
	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=160x120:rate=25",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-c:v", "mpeg4", "-c:a", "pcm_s16le",
		testFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg CLI not available or failed: %v: %s", err, out)
	}
	return testFile
}

func openTestInput(t *testing.T) FormatContext {
	t.Helper()
	testFile := createTestMedia(t)

	var ctx FormatContext
	require.NoError(t, OpenInput(&ctx, testFile, nil, nil))
	require.NotNil(t, ctx)
	t.Cleanup(func() { CloseInput(&ctx) })
	require.NoError(t, FindStreamInfo(ctx))
	return ctx
}

func TestAllocContext(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := AllocContext()
	require.NotNil(t, ctx)
	assert.Zero(t, GetNumStreams(ctx))
	assert.Nil(t, GetStream(ctx, 0))
	FreeContext(ctx)
}

func TestOpenInputMissingFile(t *testing.T) {
	skipIfNoFFmpeg(t)
	var ctx FormatContext
	err := OpenInput(&ctx, filepath.Join(t.TempDir(), "missing.mp4"), nil, nil)
	require.Error(t, err)
	assert.Nil(t, ctx)
}

func TestStreamsAndFormat(t *testing.T) {
	ctx := openTestInput(t)

	require.Equal(t, 2, GetNumStreams(ctx))
	assert.Contains(t, GetFormatName(GetInputFormat(ctx)), "matroska")
	assert.NotEmpty(t, GetFormatLongName(GetInputFormat(ctx)))
	assert.InDelta(t, 1_000_000, GetDuration(ctx), 100_000)

	video := FindBestStream(ctx, avutil.MediaTypeVideo, -1, -1)
	audio := FindBestStream(ctx, avutil.MediaTypeAudio, -1, -1)
	require.GreaterOrEqual(t, video, int32(0))
	require.GreaterOrEqual(t, audio, int32(0))
	assert.Equal(t, avutil.AVERROR_STREAM_NOT_FOUND, FindBestStream(ctx, avutil.MediaTypeSubtitle, -1, -1))

	vs := GetStream(ctx, int(video))
	assert.Equal(t, video, GetStreamIndex(vs))
	assert.Equal(t, avutil.NewRational(25, 1), GetStreamAvgFrameRate(vs))
	assert.True(t, GetStreamTimeBase(vs).Valid())

	par := GetStreamCodecPar(vs)
	assert.Equal(t, avutil.MediaTypeVideo, avcodec.GetParCodecType(par))
	assert.Equal(t, avcodec.CodecIDMPEG4, avcodec.GetParCodecID(par))
	assert.EqualValues(t, 160, avcodec.GetParWidth(par))
	assert.EqualValues(t, 120, avcodec.GetParHeight(par))

	apar := GetStreamCodecPar(GetStream(ctx, int(audio)))
	assert.Equal(t, avcodec.CodecIDPCMS16LE, avcodec.GetParCodecID(apar))
	assert.EqualValues(t, 44100, avcodec.GetParSampleRate(apar))
}

func TestReadFrame(t *testing.T) {
	ctx := openTestInput(t)

	pkt := avcodec.PacketAlloc()
	require.NotNil(t, pkt)
	defer avcodec.PacketFree(&pkt)

	var count int
	var err error
	for {
		avcodec.PacketUnref(pkt)
		if err = ReadFrame(ctx, pkt); err != nil {
			break
		}
		assert.Less(t, int(avcodec.GetPacketStreamIndex(pkt)), GetNumStreams(ctx))
		assert.Positive(t, avcodec.GetPacketSize(pkt))
		count++
	}
	assert.True(t, avutil.IsEOF(err), "%v", err)
	assert.Greater(t, count, 25)
}

func TestGuessFormat(t *testing.T) {
	skipIfNoFFmpeg(t)
	mp4 := GuessFormat("mp4", "", "")
	require.NotNil(t, mp4)
	assert.Equal(t, "mp4", GetFormatName(mp4))
	assert.NotZero(t, GetOutputFormatFlags(mp4)&FmtGlobalHeader)

	byName := GuessFormat("", "out.mkv", "")
	require.NotNil(t, byName)
	assert.Equal(t, "matroska", GetFormatName(byName))

	assert.NotNil(t, FindInputFormat("wav"))
	assert.Nil(t, FindInputFormat("not-a-format"))
}

func TestOutputContext(t *testing.T) {
	skipIfNoFFmpeg(t)
	var ctx FormatContext
	require.NoError(t, AllocOutputContext2(&ctx, nil, "matroska", ""))
	require.NotNil(t, ctx)
	defer FreeContext(ctx)

	st := NewStream(ctx, nil)
	require.NotNil(t, st)
	assert.Equal(t, 1, GetNumStreams(ctx))
	SetStreamTimeBase(st, avutil.NewRational(1, 1000))
	assert.Equal(t, avutil.NewRational(1, 1000), GetStreamTimeBase(st))
	assert.True(t, NeedsGlobalHeader(ctx))
	assert.Equal(t, "matroska", GetFormatName(GetOutputFormat(ctx)))

	var bad FormatContext
	err := AllocOutputContext2(&bad, nil, "no-such-muxer", "")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.NotZero(t, bindings.AVFormatVersion())
}
