//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	ctx := context.Background()
	if b, err := New(ctx, DefaultConfig()); err == nil {
		ffmpegAvailable = true
		_ = b.Close(ctx)
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

func testCtx(t *testing.T) context.Context {
	return logger.CtxWithLogger(context.Background(), NewLogger(LogLevel(logger.LevelWarning)))
}

// newTestBridge returns a bridge that is closed when the test ends. The test
// fails if it leaked any resource.
func newTestBridge(t *testing.T) (context.Context, *Bridge) {
	t.Helper()
	skipIfNoFFmpeg(t)
	ctx := testCtx(t)
	b, err := New(ctx, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.Empty(t, b.LiveHandles(), "leaked resources")
		assert.NoError(t, b.Close(ctx))
	})
	return ctx, b
}

// createTestVideo renders one second of 320x240 video at 30 fps with a sine
// tone using the ffmpeg command line tool.
func createTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-c:v", "mpeg4", "-c:a", "aac", "-pix_fmt", "yuv420p",
		path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg command line tool not usable: %v: %s", err, out)
	}
	return path
}

// openFile opens path through a reader I/O context.
func openFile(t *testing.T, ctx context.Context, b *Bridge, path string) (FormatContext, func()) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	pb, err := b.NewIOContextFromReader(ctx, f)
	require.NoError(t, err)
	fc, err := b.OpenInput(ctx, pb, "", nil)
	require.NoError(t, err)
	return fc, func() {
		require.NoError(t, fc.Destroy(ctx))
		require.NoError(t, pb.Destroy(ctx))
		require.NoError(t, f.Close())
	}
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	v := Version()
	assert.NotZero(t, v.AVUtil)
	assert.NotZero(t, v.AVCodec)
	assert.NotZero(t, v.AVFormat)
	assert.Regexp(t, `^\d+\.\d+\.\d+$`, VersionString(v.AVCodec))
}

func TestRationalHelpers(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.Equal(t, Rational{Num: 30000, Den: 1001}, D2Q(30000.0 / 1001))
	assert.Equal(t, Rational{Num: 1, Den: 2}, D2Q(0.5))
	assert.Equal(t, int64(48000), RescaleQ(1, Rational{Num: 1, Den: 1}, Rational{Num: 1, Den: 48000}))
	assert.Equal(t, int64(1500), RescaleQ(90, Rational{Num: 1, Den: 60}, Rational{Num: 1, Den: 1000}))
}

func TestEncodeSilenceIntoWAV(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := filepath.Join(t.TempDir(), "silence.wav")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	dst, err := b.NewIOContextFromWriter(ctx, out)
	require.NoError(t, err)

	stats, err := b.EncodeSilence(ctx, dst, "wav", SilenceOptions{
		Encoder:       "pcm_s16le",
		SampleRate:    8000,
		ChannelLayout: ChannelLayoutMono,
		Duration:      500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, dst.Destroy(ctx))
	assert.Equal(t, int64(4000), stats.Samples)
	assert.NotZero(t, stats.Packets)

	res, err := b.ProbeFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "wav", res.Format)
	require.Len(t, res.Streams, 1)
	assert.Equal(t, "audio", res.Streams[0].Type)
	assert.Equal(t, 8000, res.Streams[0].SampleRate)
	assert.Equal(t, 1, res.Streams[0].Channels)
	assert.InDelta(t, 500*time.Millisecond, res.Duration, float64(20*time.Millisecond))
}
