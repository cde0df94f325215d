//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentFrame(t *testing.T, b *Bridge, spec AudioSpec, nbSamples int) Frame {
	t.Helper()
	frame, err := b.NewFrame()
	require.NoError(t, err)
	frame.SetSampleFormat(spec.SampleFormat)
	frame.SetSampleRate(spec.SampleRate)
	require.NoError(t, frame.SetChannelLayout(spec.ChannelLayout))
	frame.SetNbSamples(nbSamples)
	require.NoError(t, frame.GetBuffer(0))
	require.NoError(t, frame.FillSilence())
	return frame
}

func TestResamplerConservesSamples(t *testing.T) {
	ctx, b := newTestBridge(t)
	in := AudioSpec{SampleRate: 44100, SampleFormat: SampleFormatS16, ChannelLayout: ChannelLayoutStereo}
	out := AudioSpec{SampleRate: 48000, SampleFormat: SampleFormatFltP, ChannelLayout: ChannelLayoutMono}

	rs, err := b.NewResampler(ctx, in, out)
	require.NoError(t, err)
	defer rs.Destroy(ctx)
	assert.Equal(t, in, rs.Input())
	assert.Equal(t, out, rs.Output())

	src := silentFrame(t, b, in, 1024)
	defer src.Destroy()
	dst, err := b.NewFrame()
	require.NoError(t, err)
	defer dst.Destroy()

	const chunks = 43
	var produced int64
	var lastPTS int64 = -1
	for range chunks {
		n, err := rs.Convert(ctx, src, dst)
		require.NoError(t, err)
		require.Equal(t, n, dst.NbSamples())
		if n > 0 {
			assert.Equal(t, SampleFormatFltP, dst.SampleFormat())
			assert.Equal(t, 48000, dst.SampleRate())
			assert.Equal(t, 1, dst.ChannelLayout().NbChannels)
			assert.Equal(t, produced, dst.PTS())
			assert.Greater(t, dst.PTS(), lastPTS)
			lastPTS = dst.PTS()
		}
		produced += int64(n)
	}
	for {
		n, err := rs.Flush(ctx, dst)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		produced += int64(n)
	}
	assert.Zero(t, rs.Delay(48000))

	want := int64(chunks*1024) * 48000 / 44100
	assert.InDelta(t, want, produced, 2)
}

func TestResamplerRejectsMismatchedInput(t *testing.T) {
	ctx, b := newTestBridge(t)
	in := AudioSpec{SampleRate: 48000, SampleFormat: SampleFormatS16, ChannelLayout: ChannelLayoutStereo}
	rs, err := b.NewResampler(ctx, in, AudioSpec{SampleRate: 48000, SampleFormat: SampleFormatFlt, ChannelLayout: ChannelLayoutStereo})
	require.NoError(t, err)
	defer rs.Destroy(ctx)

	wrong := silentFrame(t, b, AudioSpec{SampleRate: 44100, SampleFormat: SampleFormatS16, ChannelLayout: ChannelLayoutStereo}, 64)
	defer wrong.Destroy()
	dst, err := b.NewFrame()
	require.NoError(t, err)
	defer dst.Destroy()
	_, err = rs.Convert(ctx, wrong, dst)
	assert.Error(t, err)

	_, err = b.NewResampler(ctx, in, AudioSpec{})
	assert.Error(t, err)
}

func TestAudioFIFO(t *testing.T) {
	ctx, b := newTestBridge(t)
	spec := AudioSpec{SampleRate: 48000, SampleFormat: SampleFormatFltP, ChannelLayout: ChannelLayoutStereo}

	fifo, err := b.NewAudioFIFO(ctx, spec.SampleFormat, 2, 256)
	require.NoError(t, err)
	defer fifo.Destroy(ctx)
	assert.Zero(t, fifo.Size())

	in := silentFrame(t, b, spec, 1000)
	defer in.Destroy()
	n, err := fifo.Write(in)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, 1000, fifo.Size())

	out, err := b.NewFrame()
	require.NoError(t, err)
	defer out.Destroy()

	n, err = fifo.Peek(out, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	assert.Equal(t, 1000, fifo.Size())

	n, err = fifo.Read(out, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	assert.Equal(t, 300, out.NbSamples())
	assert.Equal(t, SampleFormatFltP, out.SampleFormat())
	assert.Equal(t, 2, out.ChannelLayout().NbChannels)
	assert.Equal(t, 700, fifo.Size())

	require.NoError(t, fifo.Drain(200))
	assert.Equal(t, 500, fifo.Size())

	n, err = fifo.Read(out, 4096)
	require.NoError(t, err)
	assert.Equal(t, 500, n)
	assert.Zero(t, fifo.Size())

	n, err = fifo.Read(out, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = fifo.Write(in)
	require.NoError(t, err)
	require.NoError(t, fifo.Reset())
	assert.Zero(t, fifo.Size())

	mono := silentFrame(t, b, AudioSpec{SampleRate: 48000, SampleFormat: SampleFormatFltP, ChannelLayout: ChannelLayoutMono}, 10)
	defer mono.Destroy()
	_, err = fifo.Write(mono)
	assert.Error(t, err, "channel count mismatch")
}

func TestSamplesBuffer(t *testing.T) {
	_, b := newTestBridge(t)

	size, err := SamplesBufferSize(SampleFormatS16, 2, 1024, 1)
	require.NoError(t, err)
	assert.Equal(t, 4096, size)

	s, err := b.NewSamples(SampleFormatS16P, ChannelLayoutStereo, 100, 1)
	require.NoError(t, err)
	defer s.Destroy()
	assert.Equal(t, 400, s.Size())
	assert.Equal(t, 200, s.Linesize())
	assert.Equal(t, 100, s.NbSamples())

	data := make([]byte, 400)
	for i := range data {
		data[i] = byte(i)
	}
	_, err = s.SetBytes(data)
	require.NoError(t, err)

	frame, err := b.NewFrame()
	require.NoError(t, err)
	defer frame.Destroy()
	n, err := s.Fill(frame)
	require.NoError(t, err)
	assert.Equal(t, 400, n)
	assert.Equal(t, 100, frame.NbSamples())
	assert.Equal(t, data[:200], frame.Data(0))
	assert.Equal(t, data[200:], frame.Data(1))
	require.NoError(t, frame.Unref())

	_, err = b.NewSamples(SampleFormatS16, ChannelLayout{}, 100, 1)
	assert.Error(t, err)
}
