//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avformat"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// FormatContext is a demuxer or muxer. It does not own its IOContext,
// which must outlive it.
type FormatContext struct{ resource }

type formatCell struct {
	mu     xsync.Mutex
	native avformat.FormatContext
	output bool
	io     *ioCell

	headerWritten  atomic.Bool
	trailerWritten atomic.Bool
}

// OpenInput opens a demuxer reading from pb and reads enough of the input
// to fill in the stream parameters. format forces a demuxer by short name;
// "" probes. On return options holds the entries the demuxer did not use.
func (b *Bridge) OpenInput(ctx context.Context, pb IOContext, format string, options *Dictionary) (_ FormatContext, _err error) {
	if err := b.checkOpen(); err != nil {
		return FormatContext{}, err
	}
	ctx = b.ctx(ctx)
	logger.Tracef(ctx, "OpenInput")
	defer func() { logger.Tracef(ctx, "/OpenInput: %v", _err) }()

	if err := b.ref(0).sameBridge(pb.resource); err != nil {
		return FormatContext{}, err
	}
	io, err := pb.cell()
	if err != nil {
		return FormatContext{}, err
	}
	var ifmt avformat.InputFormat
	if format != "" {
		if ifmt = avformat.FindInputFormat(format); ifmt == nil {
			return FormatContext{}, notFound(ErrFormatNotFound, format)
		}
	}

	native := avformat.AllocContext()
	if native == nil {
		return FormatContext{}, ErrOutOfMemory
	}
	avformat.SetIOContext(native, io.native)
	avformat.SetFlags(native, avformat.GetFlags(native)|avformat.FlagCustomIO)

	belt.Flush(ctx)
	io.begin(ctx)
	err = options.withNative(b.ref(0), func(opts *avutil.Dictionary) error {
		// avformat_open_input frees the context on failure.
		return avformat.OpenInput(&native, "", ifmt, opts)
	})
	if err = io.end(err); err != nil {
		return FormatContext{}, err
	}

	io.begin(ctx)
	err = io.end(avformat.FindStreamInfo(native))
	if err != nil {
		avformat.CloseInput(&native)
		return FormatContext{}, err
	}

	cell := &formatCell{native: native, io: io}
	return FormatContext{b.ref(b.formats.Insert(cell))}, nil
}

// OpenInputURL opens a demuxer on a URL or file path using FFmpeg's own
// protocols.
func (b *Bridge) OpenInputURL(ctx context.Context, url, format string, options *Dictionary) (_ FormatContext, _err error) {
	if err := b.checkOpen(); err != nil {
		return FormatContext{}, err
	}
	ctx = b.ctx(ctx)
	logger.Tracef(ctx, "OpenInputURL %s", url)
	defer func() { logger.Tracef(ctx, "/OpenInputURL %s: %v", url, _err) }()

	var ifmt avformat.InputFormat
	if format != "" {
		if ifmt = avformat.FindInputFormat(format); ifmt == nil {
			return FormatContext{}, notFound(ErrFormatNotFound, format)
		}
	}
	var native avformat.FormatContext
	belt.Flush(ctx)
	err := options.withNative(b.ref(0), func(opts *avutil.Dictionary) error {
		return avformat.OpenInput(&native, url, ifmt, opts)
	})
	if err != nil {
		return FormatContext{}, fmt.Errorf("opening %q: %w", url, err)
	}
	if err := avformat.FindStreamInfo(native); err != nil {
		avformat.CloseInput(&native)
		return FormatContext{}, fmt.Errorf("probing %q: %w", url, err)
	}
	cell := &formatCell{native: native}
	return FormatContext{b.ref(b.formats.Insert(cell))}, nil
}

// OpenOutput creates a muxer writing to pb. The container is chosen by
// format (a short name such as "mp4") or, when empty, guessed from
// filename.
func (b *Bridge) OpenOutput(ctx context.Context, pb IOContext, format, filename string) (_ FormatContext, _err error) {
	if err := b.checkOpen(); err != nil {
		return FormatContext{}, err
	}
	ctx = b.ctx(ctx)
	logger.Tracef(ctx, "OpenOutput")
	defer func() { logger.Tracef(ctx, "/OpenOutput: %v", _err) }()

	if err := b.ref(0).sameBridge(pb.resource); err != nil {
		return FormatContext{}, err
	}
	io, err := pb.cell()
	if err != nil {
		return FormatContext{}, err
	}
	var native avformat.FormatContext
	if err := avformat.AllocOutputContext2(&native, nil, format, filename); err != nil {
		return FormatContext{}, fmt.Errorf("%w: %q/%q: %w", ErrFormatNotFound, format, filename, err)
	}
	avformat.SetIOContext(native, io.native)
	avformat.SetFlags(native, avformat.GetFlags(native)|avformat.FlagCustomIO)

	cell := &formatCell{native: native, output: true, io: io}
	return FormatContext{b.ref(b.formats.Insert(cell))}, nil
}

func (f FormatContext) cell() (*formatCell, error) { return resolve(f.resource, tableFormat) }

func (f FormatContext) ptr(op string) avformat.FormatContext {
	cell, err := f.cell()
	if err != nil {
		f.logLookup("FormatContext."+op, err)
		return nil
	}
	return cell.native
}

// Valid reports whether the context is still alive.
func (f FormatContext) Valid() bool { return contains(f.resource, tableFormat) }

// IsOutput reports whether the context is a muxer.
func (f FormatContext) IsOutput() bool {
	cell, err := f.cell()
	return err == nil && cell.output
}

// Destroy closes the context and frees its streams. The IOContext is left
// alone. Destroying a muxer whose header was written but not its trailer
// leaves the output incomplete.
func (f FormatContext) Destroy(ctx context.Context) error {
	if f.b == nil {
		return ErrNilBridge
	}
	cell, err := f.b.formats.Remove(f.h)
	if err != nil {
		return err
	}
	ctx = f.b.ctx(ctx)
	cell.mu.Do(ctx, func() {
		if cell.output {
			if cell.headerWritten.Load() && !cell.trailerWritten.Load() {
				logger.Warnf(ctx, "muxer %v destroyed without writing the trailer", f.h)
			}
			avformat.FreeContext(cell.native)
		} else {
			avformat.CloseInput(&cell.native)
		}
		cell.native = nil
		cell.io = nil
	})
	return nil
}

// NbStreams returns the number of streams.
func (f FormatContext) NbStreams() int { return avformat.GetNumStreams(f.ptr("NbStreams")) }

// Stream returns a view of stream i. The view is validated on every access.
func (f FormatContext) Stream(i int) (Stream, error) {
	cell, err := f.cell()
	if err != nil {
		return Stream{}, err
	}
	if i < 0 || i >= avformat.GetNumStreams(cell.native) {
		return Stream{}, fmt.Errorf("stream %d of %d: %w", i, avformat.GetNumStreams(cell.native), ErrInvalidHandle)
	}
	return Stream{owner: f.resource, index: i}, nil
}

// Streams returns views of every stream.
func (f FormatContext) Streams() []Stream {
	n := f.NbStreams()
	out := make([]Stream, n)
	for i := range out {
		out[i] = Stream{owner: f.resource, index: i}
	}
	return out
}

// BestStream returns the index of the most suitable stream of the media
// type, or -1 when there is none.
func (f FormatContext) BestStream(mediaType MediaType) int {
	native := f.ptr("BestStream")
	if native == nil {
		return -1
	}
	idx := avformat.FindBestStream(native, mediaType, -1, -1)
	if idx < 0 {
		return -1
	}
	return int(idx)
}

// Duration returns the container duration in microseconds, -1 when unknown.
func (f FormatContext) Duration() int64 { return fromNoPTS(avformat.GetDuration(f.ptr("Duration"))) }

// StartTime returns the container start time in microseconds, -1 when
// unknown.
func (f FormatContext) StartTime() int64 { return fromNoPTS(avformat.GetStartTime(f.ptr("StartTime"))) }

func (f FormatContext) BitRate() int64 { return avformat.GetBitRate(f.ptr("BitRate")) }
func (f FormatContext) Flags() int32 { return avformat.GetFlags(f.ptr("Flags")) }

// SetFlags sets AVFormatContext.flags. FormatFlagCustomIO is always kept
// on contexts using an IOContext.
func (f FormatContext) SetFlags(flags int32) {
	cell, err := f.cell()
	if err != nil {
		f.logLookup("FormatContext.SetFlags", err)
		return
	}
	if cell.io != nil {
		flags |= avformat.FlagCustomIO
	}
	avformat.SetFlags(cell.native, flags)
}

// InputFormat returns the demuxer, zero for muxers.
func (f FormatContext) InputFormat() InputFormat {
	return InputFormat{avformat.GetInputFormat(f.ptr("InputFormat"))}
}

// OutputFormat returns the muxer, zero for demuxers.
func (f FormatContext) OutputFormat() OutputFormat {
	return OutputFormat{avformat.GetOutputFormat(f.ptr("OutputFormat"))}
}

// NeedsGlobalHeader reports whether the muxer wants codec headers in
// extradata. Set CodecFlagGlobalHeader on encoders feeding it.
func (f FormatContext) NeedsGlobalHeader() bool {
	return avformat.NeedsGlobalHeader(f.ptr("NeedsGlobalHeader"))
}

// ReadFrame demuxes the next packet into pkt, replacing what it held. A
// packet without a time base gets its stream's.
func (f FormatContext) ReadFrame(ctx context.Context, pkt Packet) (Status, error) {
	if err := f.sameBridge(pkt.resource); err != nil {
		return StatusError, err
	}
	cell, err := f.cell()
	if err != nil {
		return StatusError, err
	}
	if cell.output {
		return StatusError, ErrNotInput
	}
	p, err := pkt.get()
	if err != nil {
		return StatusError, err
	}
	ctx = f.b.ctx(ctx)
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &cell.mu, func() (Status, error) {
		avcodec.PacketUnref(p)
		cell.io.begin(ctx)
		status, err := receiveStatus(cell.io.end(avformat.ReadFrame(cell.native, p)))
		if status != StatusProduced {
			return status, err
		}
		if !avcodec.GetPacketTimeBase(p).Valid() {
			st := avformat.GetStream(cell.native, int(avcodec.GetPacketStreamIndex(p)))
			avcodec.SetPacketTimeBase(p, avformat.GetStreamTimeBase(st))
		}
		return status, nil
	})
}

// Seek moves the demuxer to the key frame at or before ts, given in
// stream's time base, or in microseconds when stream is -1.
func (f FormatContext) Seek(ctx context.Context, stream int, ts int64, flags int32) error {
	cell, err := f.cell()
	if err != nil {
		return err
	}
	if cell.output {
		return ErrNotInput
	}
	ctx = f.b.ctx(ctx)
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		cell.io.begin(ctx)
		return cell.io.end(avformat.SeekFrame(cell.native, int32(stream), ts, flags))
	})
}

// Seek flags.
const (
	SeekFlagBackward = avformat.SeekFlagBackward
	SeekFlagByte     = avformat.SeekFlagByte
	SeekFlagAny      = avformat.SeekFlagAny
	SeekFlagFrame    = avformat.SeekFlagFrame
)

// NewStream adds a stream to a muxer before WriteHeader. A valid codec
// presets the stream's codec type; parameters are usually copied in
// afterwards with CodecParameters.CopyTo or FromContext.
func (f FormatContext) NewStream(codec Codec) (Stream, error) {
	cell, err := f.cell()
	if err != nil {
		return Stream{}, err
	}
	if !cell.output {
		return Stream{}, ErrNotOutput
	}
	if cell.headerWritten.Load() {
		return Stream{}, ErrHeaderAlreadyWritten
	}
	ctx := f.b.ctx(context.Background())
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &cell.mu, func() (Stream, error) {
		st := avformat.NewStream(cell.native, codec.native)
		if st == nil {
			return Stream{}, ErrOutOfMemory
		}
		return Stream{owner: f.resource, index: int(avformat.GetStreamIndex(st))}, nil
	})
}

// WriteHeader writes the container header. It may be called once. Options
// the muxer did not use are logged and left in options.
func (f FormatContext) WriteHeader(ctx context.Context, options *Dictionary) (_err error) {
	cell, err := f.cell()
	if err != nil {
		return err
	}
	if !cell.output {
		return ErrNotOutput
	}
	ctx = f.b.ctx(ctx)
	logger.Tracef(ctx, "WriteHeader")
	defer func() { logger.Tracef(ctx, "/WriteHeader: %v", _err) }()

	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		if cell.headerWritten.Load() {
			return ErrHeaderAlreadyWritten
		}
		belt.Flush(ctx)
		cell.io.begin(ctx)
		err := options.withNative(f.resource, func(opts *avutil.Dictionary) error {
			err := avformat.WriteHeader(cell.native, opts)
			if opts != nil {
				for _, e := range avutil.DictEntries(*opts) {
					logger.Warnf(ctx, "ignored option key=%q value=%q", e.Key, e.Value)
				}
			}
			return err
		})
		if err = cell.io.end(err); err != nil {
			return err
		}
		cell.headerWritten.Store(true)
		return nil
	})
}

// WriteFrame hands pkt to the interleaving muxer, which takes its data
// reference: pkt is empty afterwards. The packet is rescaled from its time
// base to the stream's. A zero Packet flushes the interleaving queue.
func (f FormatContext) WriteFrame(ctx context.Context, pkt Packet) error {
	cell, err := f.cell()
	if err != nil {
		return err
	}
	if !cell.output {
		return ErrNotOutput
	}
	var p avcodec.Packet
	if pkt != (Packet{}) {
		if err := f.sameBridge(pkt.resource); err != nil {
			return err
		}
		if p, err = pkt.get(); err != nil {
			return err
		}
	}
	ctx = f.b.ctx(ctx)
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		switch {
		case !cell.headerWritten.Load():
			return ErrHeaderNotWritten
		case cell.trailerWritten.Load():
			return ErrTrailerWritten
		}
		if p != nil {
			st := avformat.GetStream(cell.native, int(avcodec.GetPacketStreamIndex(p)))
			if st == nil {
				return fmt.Errorf("packet stream %d: %w", avcodec.GetPacketStreamIndex(p), ErrInvalidHandle)
			}
			dst := avformat.GetStreamTimeBase(st)
			if src := avcodec.GetPacketTimeBase(p); src.Valid() && src != dst {
				avcodec.RescalePacketTS(p, src, dst)
				avcodec.SetPacketTimeBase(p, dst)
			}
		}
		cell.io.begin(ctx)
		return cell.io.end(avformat.InterleavedWriteFrame(cell.native, p))
	})
}

// WriteTrailer flushes queued packets and finalizes the container.
func (f FormatContext) WriteTrailer(ctx context.Context) (_err error) {
	cell, err := f.cell()
	if err != nil {
		return err
	}
	if !cell.output {
		return ErrNotOutput
	}
	ctx = f.b.ctx(ctx)
	logger.Tracef(ctx, "WriteTrailer")
	defer func() { logger.Tracef(ctx, "/WriteTrailer: %v", _err) }()

	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		switch {
		case !cell.headerWritten.Load():
			return ErrHeaderNotWritten
		case cell.trailerWritten.Load():
			return ErrTrailerWritten
		}
		cell.io.begin(ctx)
		err := cell.io.end(avformat.WriteTrailer(cell.native))
		cell.trailerWritten.Store(true)
		return err
	})
}

// Stream is a view of one stream of a FormatContext.
type Stream struct {
	owner resource
	index int
}

func (s Stream) native(op string) avformat.Stream {
	cell, err := resolve(s.owner, tableFormat)
	if err != nil {
		s.owner.logLookup("Stream."+op, err)
		return nil
	}
	return avformat.GetStream(cell.native, s.index)
}

// Valid reports whether the owning FormatContext is alive.
func (s Stream) Valid() bool {
	cell, err := resolve(s.owner, tableFormat)
	return err == nil && avformat.GetStream(cell.native, s.index) != nil
}

func (s Stream) Index() int { return s.index }
func (s Stream) ID() int { return int(avformat.GetStreamID(s.native("ID"))) }
func (s Stream) SetID(id int) { avformat.SetStreamID(s.native("SetID"), int32(id)) }
func (s Stream) TimeBase() Rational { return avformat.GetStreamTimeBase(s.native("TimeBase")) }

// SetTimeBase suggests a time base to the muxer, which may change it in
// WriteHeader.
func (s Stream) SetTimeBase(tb Rational) { avformat.SetStreamTimeBase(s.native("SetTimeBase"), tb) }

func (s Stream) AvgFrameRate() Rational {
	return avformat.GetStreamAvgFrameRate(s.native("AvgFrameRate"))
}

// StartTime returns the first pts in TimeBase units, -1 when unknown.
func (s Stream) StartTime() int64 { return fromNoPTS(avformat.GetStreamStartTime(s.native("StartTime"))) }

// Duration returns the stream duration in TimeBase units, -1 when unknown.
func (s Stream) Duration() int64 { return fromNoPTS(avformat.GetStreamDuration(s.native("Duration"))) }

// NbFrames returns the frame count from the container, 0 when unknown.
func (s Stream) NbFrames() int64 { return avformat.GetStreamNbFrames(s.native("NbFrames")) }

// CodecParameters returns a view of the stream's codec parameters.
func (s Stream) CodecParameters() CodecParameters {
	return CodecParameters{owner: s.owner, stream: s.index}
}

// InputFormat is a demuxer description. The zero value is "none".
type InputFormat struct{ p avformat.InputFormat }

// FindInputFormat looks a demuxer up by short name.
func FindInputFormat(name string) (InputFormat, error) {
	p := avformat.FindInputFormat(name)
	if p == nil {
		return InputFormat{}, notFound(ErrFormatNotFound, name)
	}
	return InputFormat{p}, nil
}

func (f InputFormat) Name() string { return avformat.GetFormatName(f.p) }
func (f InputFormat) LongName() string { return avformat.GetFormatLongName(f.p) }
func (f InputFormat) Flags() int32 { return avformat.GetInputFormatFlags(f.p) }

// OutputFormat is a muxer description. The zero value is "none".
type OutputFormat struct{ p avformat.OutputFormat }

// GuessOutputFormat returns the muxer best matching a short name, a file
// name and a MIME type. Empty arguments are ignored.
func GuessOutputFormat(name, filename, mime string) (OutputFormat, error) {
	p := avformat.GuessFormat(name, filename, mime)
	if p == nil {
		return OutputFormat{}, notFound(ErrFormatNotFound, fmt.Sprintf("%q/%q/%q", name, filename, mime))
	}
	return OutputFormat{p}, nil
}

func (f OutputFormat) Name() string { return avformat.GetFormatName(f.p) }
func (f OutputFormat) LongName() string { return avformat.GetFormatLongName(f.p) }
func (f OutputFormat) Flags() int32 { return avformat.GetOutputFormatFlags(f.p) }

// NeedsGlobalHeader reports whether the muxer wants codec headers in
// extradata.
func (f OutputFormat) NeedsGlobalHeader() bool {
	return f.Flags()&avformat.FmtGlobalHeader != 0
}
