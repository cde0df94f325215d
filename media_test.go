//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/obinnaokechukwu/avbridge/internal/mp4check"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCountsVideoFrames(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := createTestVideo(t)

	fc, done := openFile(t, ctx, b, path)
	defer done()

	video := fc.BestStream(MediaTypeVideo)
	require.GreaterOrEqual(t, video, 0)
	audio := fc.BestStream(MediaTypeAudio)
	require.GreaterOrEqual(t, audio, 0)
	assert.Equal(t, -1, fc.BestStream(MediaTypeSubtitle))

	var lastPTS int64 = -1
	frames, err := b.DecodeStream(ctx, fc, video, func(frame Frame) error {
		assert.Equal(t, 320, frame.Width())
		assert.Equal(t, 240, frame.Height())
		assert.Equal(t, PixelFormatYUV420P, frame.PixelFormat())
		assert.Greater(t, frame.PTS(), lastPTS)
		assert.True(t, frame.TimeBase().Valid())
		lastPTS = frame.PTS()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30, frames)
}

func TestProbeDescribesStreams(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := createTestVideo(t)

	res, err := b.ProbeFile(ctx, path)
	require.NoError(t, err)
	assert.Contains(t, res.Format, "mp4")
	assert.InDelta(t, time.Second, res.Duration, float64(100*time.Millisecond))
	require.Len(t, res.Streams, 2)

	byType := map[string]StreamInfo{}
	for _, st := range res.Streams {
		byType[st.Type] = st
	}
	v := byType["video"]
	assert.Equal(t, "mpeg4", v.Codec)
	assert.Equal(t, 320, v.Width)
	assert.Equal(t, 240, v.Height)
	assert.Equal(t, "yuv420p", v.PixelFormat)
	assert.Equal(t, "30/1", v.FrameRate)

	a := byType["audio"]
	assert.Equal(t, "aac", a.Codec)
	assert.Equal(t, 44100, a.SampleRate)
	assert.Equal(t, 1, a.Channels)
	assert.Equal(t, "fltp", a.SampleFormat)
}

func TestEncodeSilenceIntoMP4(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := filepath.Join(t.TempDir(), "silence.mp4")
	stats := writeSilence(t, ctx, b, path, "mp4", SilenceOptions{Duration: time.Second})
	assert.Equal(t, int64(48000), stats.Samples)
	assert.Equal(t, int64(47), stats.Frames, "48000 samples in 1024 sample frames")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	sum, err := mp4check.Inspect(f)
	require.NoError(t, err)
	assert.False(t, sum.Fragmented)
	require.Len(t, sum.Tracks, 1)
	track, ok := sum.Track("soun")
	require.True(t, ok)
	assert.Equal(t, "mp4a", track.SampleEntry)
	assert.Equal(t, uint32(48000), track.Timescale)
	assert.EqualValues(t, stats.Packets, track.Samples)
	assert.InDelta(t, time.Second, track.Duration, float64(50*time.Millisecond))

	// Decoding gives the samples back, plus encoder priming at most.
	fc, done := openFile(t, ctx, b, path)
	defer done()
	var samples int
	_, err = b.DecodeStream(ctx, fc, fc.BestStream(MediaTypeAudio), func(frame Frame) error {
		samples += frame.NbSamples()
		return nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 48000, samples, 2048)
}

func TestRemuxKeepsEveryFrame(t *testing.T) {
	ctx, b := newTestBridge(t)
	inPath := createTestVideo(t)
	outPath := filepath.Join(t.TempDir(), "remuxed.mkv")

	in, err := os.Open(inPath)
	require.NoError(t, err)
	defer in.Close()
	out, err := os.Create(outPath)
	require.NoError(t, err)
	defer out.Close()

	src, err := b.NewIOContextFromReader(ctx, in)
	require.NoError(t, err)
	defer src.Destroy(ctx)
	dst, err := b.NewIOContextFromWriter(ctx, out)
	require.NoError(t, err)
	defer dst.Destroy(ctx)

	stats, err := b.Remux(ctx, src, "matroska", dst)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Streams)
	assert.Zero(t, stats.Skipped)
	assert.NotZero(t, stats.Packets)
	assert.Greater(t, dst.BytesWritten(), stats.Bytes)

	res, err := b.ProbeFile(ctx, outPath)
	require.NoError(t, err)
	assert.Equal(t, "matroska,webm", res.Format)
	require.Len(t, res.Streams, 2)

	fc, done := openFile(t, ctx, b, outPath)
	defer done()
	frames, err := b.DecodeStream(ctx, fc, fc.BestStream(MediaTypeVideo), nil)
	require.NoError(t, err)
	assert.Equal(t, 30, frames)
}

func TestMuxerStateChecks(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := filepath.Join(t.TempDir(), "state.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	pb, err := b.NewIOContextFromWriter(ctx, f)
	require.NoError(t, err)
	defer pb.Destroy(ctx)

	out, err := b.OpenOutput(ctx, pb, "wav", "")
	require.NoError(t, err)
	defer out.Destroy(ctx)
	assert.True(t, out.IsOutput())
	assert.Equal(t, "wav", out.OutputFormat().Name())

	pkt, err := b.NewPacket()
	require.NoError(t, err)
	defer pkt.Destroy()
	assert.ErrorIs(t, out.WriteFrame(ctx, pkt), ErrHeaderNotWritten)

	st, err := out.NewStream(Codec{})
	require.NoError(t, err)
	par := st.CodecParameters()
	par.SetCodecType(MediaTypeAudio)
	par.SetCodecID(CodecIDPCMS16LE)
	par.SetSampleRate(8000)
	par.SetFormat(int32(SampleFormatS16))
	require.NoError(t, par.SetChannelLayout(ChannelLayoutMono))

	opts, err := b.NewDictionaryFrom(map[string]string{"no_such_option": "1"})
	require.NoError(t, err)
	defer opts.Destroy()
	require.NoError(t, out.WriteHeader(ctx, &opts))
	assert.Equal(t, 1, opts.Len(), "unused options are handed back")
	assert.ErrorIs(t, out.WriteHeader(ctx, nil), ErrHeaderAlreadyWritten)

	_, err = out.NewStream(Codec{})
	assert.Error(t, err)

	require.NoError(t, pkt.SetData(make([]byte, 1600)))
	pkt.SetPTS(0)
	pkt.SetDTS(0)
	pkt.SetTimeBase(Rational{Num: 1, Den: 8000})
	require.NoError(t, out.WriteFrame(ctx, pkt))
	assert.Zero(t, pkt.Size(), "the muxer took the payload")

	require.NoError(t, out.WriteTrailer(ctx))
	assert.ErrorIs(t, out.WriteTrailer(ctx), ErrTrailerWritten)
	assert.ErrorIs(t, out.WriteFrame(ctx, pkt), ErrTrailerWritten)

	_, err = out.ReadFrame(ctx, pkt)
	assert.ErrorIs(t, err, ErrNotInput)
}

func TestCodecLookup(t *testing.T) {
	skipIfNoFFmpeg(t)
	dec, err := FindDecoder(CodecIDPCMS16LE)
	require.NoError(t, err)
	assert.True(t, dec.IsDecoder())
	assert.False(t, dec.IsEncoder())
	assert.Equal(t, "pcm_s16le", dec.Name)
	assert.Equal(t, MediaTypeAudio, dec.Type)

	enc, err := FindEncoderByName("pcm_s16le")
	require.NoError(t, err)
	assert.True(t, enc.IsEncoder())
	assert.Equal(t, CodecIDPCMS16LE, enc.ID)
	assert.NotEmpty(t, enc.LongName())

	_, err = FindDecoderByName("no-such-decoder")
	assert.ErrorIs(t, err, ErrDecoderNotFound)
	_, err = FindEncoderByName("no-such-encoder")
	assert.ErrorIs(t, err, ErrEncoderNotFound)

	_, err = FindInputFormat("no-such-format")
	assert.ErrorIs(t, err, ErrFormatNotFound)
	mp4, err := GuessOutputFormat("", "clip.mp4", "")
	require.NoError(t, err)
	assert.Equal(t, "mp4", mp4.Name())
	assert.True(t, mp4.NeedsGlobalHeader())
}

func TestCodecPumpStates(t *testing.T) {
	ctx, b := newTestBridge(t)
	enc, err := FindEncoderByName("pcm_s16le")
	require.NoError(t, err)
	cc, err := b.NewCodecContext(ctx, enc)
	require.NoError(t, err)
	defer cc.Destroy(ctx)

	frame := silentFrame(t, b, AudioSpec{SampleRate: 8000, SampleFormat: SampleFormatS16, ChannelLayout: ChannelLayoutMono}, 160)
	defer frame.Destroy()
	_, err = cc.SendFrame(ctx, &frame)
	assert.ErrorIs(t, err, ErrCodecNotOpen)

	cc.SetSampleFormat(SampleFormatS16)
	cc.SetSampleRate(8000)
	require.NoError(t, cc.SetChannelLayout(ChannelLayoutMono))
	cc.SetTimeBase(Rational{Num: 1, Den: 8000})
	require.NoError(t, cc.Open(ctx, nil))
	assert.True(t, cc.IsOpen())

	pkt, err := b.NewPacket()
	require.NoError(t, err)
	defer pkt.Destroy()

	status, err := cc.ReceivePacket(ctx, pkt)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsMoreInput, status)

	frame.SetPTS(0)
	status, err = cc.SendFrame(ctx, &frame)
	require.NoError(t, err)
	assert.Equal(t, StatusProduced, status)

	status, err = cc.ReceivePacket(ctx, pkt)
	require.NoError(t, err)
	require.Equal(t, StatusProduced, status)
	assert.Equal(t, 320, pkt.Size())
	assert.Equal(t, Rational{Num: 1, Den: 8000}, pkt.TimeBase())

	status, err = cc.SendFrame(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusProduced, status)
	status, err = cc.ReceivePacket(ctx, pkt)
	require.NoError(t, err)
	assert.Equal(t, StatusEndOfStream, status)

	status, err = cc.SendFrame(ctx, &frame)
	require.NoError(t, err)
	assert.Equal(t, StatusEndOfStream, status)
}

func TestVideoFilterGraphScales(t *testing.T) {
	ctx, b := newTestBridge(t)
	fg, err := b.NewVideoFilterGraph(ctx, "scale=160:120,format=gray", VideoFilterInput{
		Width: 320, Height: 240, PixelFormat: PixelFormatYUV420P,
		TimeBase: Rational{Num: 1, Den: 30},
	})
	require.NoError(t, err)
	defer fg.Destroy(ctx)
	assert.True(t, fg.Graph.Configured())
	assert.Equal(t, "buffer", fg.Source.FilterName())
	assert.Equal(t, "buffersink", fg.Sink.FilterName())
	assert.Contains(t, fg.Graph.Dump(), "scale")

	_, err = fg.Graph.CreateFilter(ctx, "null", "late", "")
	assert.ErrorIs(t, err, ErrGraphConfigured)

	in, err := b.NewFrame()
	require.NoError(t, err)
	defer in.Destroy()
	out, err := b.NewFrame()
	require.NoError(t, err)
	defer out.Destroy()

	status, err := fg.Pull(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsMoreInput, status)

	for i := range 3 {
		in.SetWidth(320)
		in.SetHeight(240)
		in.SetPixelFormat(PixelFormatYUV420P)
		require.NoError(t, in.GetBuffer(0))
		in.SetPTS(int64(i))
		require.NoError(t, fg.Push(ctx, &in))
		require.NoError(t, in.Unref())
	}
	require.NoError(t, fg.Push(ctx, nil))

	var got int
	for {
		status, err := fg.Pull(ctx, out)
		require.NoError(t, err)
		if status == StatusEndOfStream {
			break
		}
		require.Equal(t, StatusProduced, status)
		assert.Equal(t, 160, out.Width())
		assert.Equal(t, 120, out.Height())
		assert.Equal(t, PixelFormatGray8, out.PixelFormat())
		assert.Equal(t, int64(got), out.PTS())
		got++
	}
	assert.Equal(t, 3, got)
}

func TestFilterGraphManualLinks(t *testing.T) {
	ctx, b := newTestBridge(t)
	g, err := b.NewFilterGraph(ctx)
	require.NoError(t, err)
	defer g.Destroy(ctx)

	src, err := g.CreateFilter(ctx, "abuffer", "in", AudioFilterInput{
		SampleRate: 48000, SampleFormat: SampleFormatFltP, ChannelLayout: ChannelLayoutStereo,
	}.args())
	require.NoError(t, err)
	vol, err := g.CreateFilter(ctx, "volume", "vol", "volume=0.5")
	require.NoError(t, err)
	sink, err := g.CreateFilter(ctx, "abuffersink", "out", "")
	require.NoError(t, err)
	assert.Equal(t, 1, vol.NbInputs())
	assert.Equal(t, 1, vol.NbOutputs())

	require.NoError(t, g.Link(src, 0, vol, 0))
	require.NoError(t, g.Link(vol, 0, sink, 0))

	_, err = g.CreateFilter(ctx, "no-such-filter", "x", "")
	assert.ErrorIs(t, err, ErrFilterNotFound)

	frame, err := b.NewFrame()
	require.NoError(t, err)
	defer frame.Destroy()
	_, err = g.PullFrame(ctx, sink, frame)
	assert.ErrorIs(t, err, ErrGraphNotConfigured)

	require.NoError(t, g.Configure(ctx))
	sink.SetFrameSize(256)

	in := silentFrame(t, b, AudioSpec{SampleRate: 48000, SampleFormat: SampleFormatFltP, ChannelLayout: ChannelLayoutStereo}, 1000)
	defer in.Destroy()
	in.SetPTS(0)
	require.NoError(t, g.PushFrame(ctx, src, &in))
	require.NoError(t, g.PushFrame(ctx, src, nil))

	var total int
	for {
		status, err := g.PullFrame(ctx, sink, frame)
		require.NoError(t, err)
		if status == StatusEndOfStream {
			break
		}
		require.Equal(t, StatusProduced, status)
		assert.LessOrEqual(t, frame.NbSamples(), 256)
		total += frame.NbSamples()
	}
	assert.Equal(t, 1000, total)
}

func TestDecodeAnnexBFromMemory(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := filepath.Join(t.TempDir(), "test.h264")
	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-f", "h264", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("no H.264 encoder: %v: %s", err, out)
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	pb, err := b.NewIOContext(ctx, IOOptions{InitialBytes: data})
	require.NoError(t, err)
	defer pb.Destroy(ctx)
	fc, err := b.OpenInput(ctx, pb, "h264", nil)
	require.NoError(t, err)
	defer fc.Destroy(ctx)

	require.Equal(t, 1, fc.NbStreams())
	st, err := fc.Stream(0)
	require.NoError(t, err)
	assert.Equal(t, CodecIDH264, st.CodecParameters().CodecID())

	frames, err := b.DecodeStream(ctx, fc, 0, func(frame Frame) error {
		assert.Equal(t, 320, frame.Width())
		assert.Equal(t, 240, frame.Height())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30, frames)
}

func TestSeekToStartReplaysPackets(t *testing.T) {
	ctx, b := newTestBridge(t)
	fc, done := openFile(t, ctx, b, createTestVideo(t))
	defer done()

	read := func() [][]byte {
		pkt, err := b.NewPacket()
		require.NoError(t, err)
		defer pkt.Destroy()
		var payloads [][]byte
		for {
			status, err := fc.ReadFrame(ctx, pkt)
			require.NoError(t, err)
			if status == StatusEndOfStream {
				return payloads
			}
			if status.Produced() {
				payloads = append(payloads, pkt.Data())
			}
		}
	}

	first := read()
	require.NotEmpty(t, first)
	require.NoError(t, fc.Seek(ctx, -1, 0, SeekFlagBackward))
	assert.Equal(t, first, read())
}
