//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// SilenceOptions configures EncodeSilence.
type SilenceOptions struct {
	// Encoder is the encoder name; "aac" when empty.
	Encoder string
	// SampleFormat defaults to what the encoder is known to accept.
	SampleFormat  SampleFormat
	SampleRate    int
	ChannelLayout ChannelLayout
	BitRate       int64
	Duration      time.Duration

	// Tags become container metadata and Language the stream's language.
	Tags     map[string]string
	Language string
}

func (opts SilenceOptions) withDefaults() SilenceOptions {
	if opts.Encoder == "" {
		opts.Encoder = "aac"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	if !opts.ChannelLayout.Valid() {
		opts.ChannelLayout = ChannelLayoutStereo
	}
	return opts
}

// encoderSampleFormat picks a sample format the built-in encoder for id
// accepts.
func encoderSampleFormat(id CodecID) SampleFormat {
	switch id {
	case CodecIDPCMS16LE, CodecIDFLAC:
		return SampleFormatS16
	case CodecIDMP3:
		return SampleFormatS16P
	default:
		return SampleFormatFltP
	}
}

// EncodeStats reports what an encoding run produced.
type EncodeStats struct {
	Samples int64
	Frames  int64
	Packets int64
	Bytes   int64
}

// silenceChunk is the size of the frames fed to the resampler.
const silenceChunk = 1024

// EncodeSilence encodes opts.Duration of silence into a new container of
// format written to dst. The silence is generated as packed s16 at the
// target rate, resampled to the encoder's sample format and regrouped into
// the encoder's frame size. dst is flushed but not destroyed.
func (b *Bridge) EncodeSilence(ctx context.Context, dst IOContext, format string, opts SilenceOptions) (_ EncodeStats, _err error) {
	var stats EncodeStats
	opts = opts.withDefaults()
	ctx = b.ctx(ctx)
	logger.Debugf(ctx, "EncodeSilence %s %s %v", format, opts.Encoder, opts.Duration)
	defer func() { logger.Debugf(ctx, "/EncodeSilence: %+v %v", stats, _err) }()

	codec, err := FindEncoderByName(opts.Encoder)
	if err != nil {
		return stats, err
	}
	if opts.SampleFormat == SampleFormatNone {
		opts.SampleFormat = encoderSampleFormat(codec.ID)
	}

	out, err := b.OpenOutput(ctx, dst, format, "")
	if err != nil {
		return stats, err
	}
	defer out.Destroy(ctx)

	enc, err := b.NewCodecContext(ctx, codec)
	if err != nil {
		return stats, err
	}
	defer enc.Destroy(ctx)
	enc.SetSampleFormat(opts.SampleFormat)
	enc.SetSampleRate(opts.SampleRate)
	if err := enc.SetChannelLayout(opts.ChannelLayout); err != nil {
		return stats, err
	}
	enc.SetTimeBase(Rational{Num: 1, Den: int32(opts.SampleRate)})
	if opts.BitRate > 0 {
		enc.SetBitRate(opts.BitRate)
	}
	if out.NeedsGlobalHeader() {
		enc.SetFlags(enc.Flags() | CodecFlagGlobalHeader)
	}
	if err := enc.Open(ctx, nil); err != nil {
		return stats, fmt.Errorf("opening %s: %w", codec, err)
	}

	st, err := out.NewStream(codec)
	if err != nil {
		return stats, err
	}
	if err := st.CodecParameters().FromContext(enc); err != nil {
		return stats, err
	}
	st.SetTimeBase(enc.TimeBase())
	if err := b.tagOutput(out, st, opts.Tags, opts.Language); err != nil {
		return stats, err
	}
	if err := out.WriteHeader(ctx, nil); err != nil {
		return stats, err
	}

	source := AudioSpec{SampleRate: opts.SampleRate, SampleFormat: SampleFormatS16, ChannelLayout: opts.ChannelLayout}
	target := AudioSpec{SampleRate: opts.SampleRate, SampleFormat: opts.SampleFormat, ChannelLayout: opts.ChannelLayout}
	rs, err := b.NewResampler(ctx, source, target)
	if err != nil {
		return stats, err
	}
	defer rs.Destroy(ctx)

	frameSize := enc.FrameSize()
	if frameSize <= 0 {
		frameSize = silenceChunk
	}
	fifo, err := b.NewAudioFIFO(ctx, target.SampleFormat, target.ChannelLayout.NbChannels, frameSize)
	if err != nil {
		return stats, err
	}
	defer fifo.Destroy(ctx)

	buf, err := b.NewSamples(source.SampleFormat, source.ChannelLayout, silenceChunk, 0)
	if err != nil {
		return stats, err
	}
	defer buf.Destroy()

	var frames [3]Frame
	for i := range frames {
		if frames[i], err = b.NewFrame(); err != nil {
			return stats, err
		}
		defer frames[i].Destroy()
	}
	src, converted, encoded := frames[0], frames[1], frames[2]
	if _, err := buf.Fill(src); err != nil {
		return stats, err
	}
	src.SetSampleRate(source.SampleRate)

	pkt, err := b.NewPacket()
	if err != nil {
		return stats, err
	}
	defer pkt.Destroy()

	drain := func() error {
		for {
			status, err := enc.ReceivePacket(ctx, pkt)
			if err != nil {
				return err
			}
			if !status.Produced() {
				return nil
			}
			stats.Packets++
			stats.Bytes += int64(pkt.Size())
			pkt.SetStreamIndex(st.Index())
			if err := out.WriteFrame(ctx, pkt); err != nil {
				return err
			}
		}
	}
	encode := func(n int) error {
		got, err := fifo.Read(encoded, n)
		if err != nil || got == 0 {
			return err
		}
		encoded.SetSampleRate(target.SampleRate)
		encoded.SetTimeBase(enc.TimeBase())
		encoded.SetPTS(stats.Samples)
		stats.Samples += int64(got)
		stats.Frames++
		for {
			status, err := enc.SendFrame(ctx, &encoded)
			if err != nil {
				return err
			}
			if err := drain(); err != nil {
				return err
			}
			if status != StatusNeedsDrain {
				return nil
			}
		}
	}
	feed := func() error {
		if converted.NbSamples() > 0 {
			if _, err := fifo.Write(converted); err != nil {
				return err
			}
		}
		for fifo.Size() >= frameSize {
			if err := encode(frameSize); err != nil {
				return err
			}
		}
		return nil
	}

	total := int64(opts.Duration) * int64(opts.SampleRate) / int64(time.Second)
	for left := total; left > 0; {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		n := int(min(left, silenceChunk))
		src.SetNbSamples(n)
		if _, err := rs.Convert(ctx, src, converted); err != nil {
			return stats, err
		}
		if err := feed(); err != nil {
			return stats, err
		}
		left -= int64(n)
	}
	for {
		n, err := rs.Flush(ctx, converted)
		if err != nil {
			return stats, err
		}
		if n == 0 {
			break
		}
		if err := feed(); err != nil {
			return stats, err
		}
	}
	for fifo.Size() > 0 {
		if err := encode(frameSize); err != nil {
			return stats, err
		}
	}
	if _, err := enc.SendFrame(ctx, nil); err != nil {
		return stats, err
	}
	if err := drain(); err != nil {
		return stats, err
	}
	if err := out.WriteTrailer(ctx); err != nil {
		return stats, err
	}
	return stats, dst.Flush(ctx)
}

func (b *Bridge) tagOutput(out FormatContext, st Stream, tags map[string]string, language string) error {
	if len(tags) > 0 {
		md, err := b.NewDictionaryFrom(tags)
		if err != nil {
			return err
		}
		defer md.Destroy()
		if err := out.SetMetadata(md); err != nil {
			return fmt.Errorf("setting metadata: %w", err)
		}
	}
	if language == "" {
		return nil
	}
	md, err := b.NewDictionaryFrom(map[string]string{"language": language})
	if err != nil {
		return err
	}
	defer md.Destroy()
	return st.SetMetadata(md)
}
