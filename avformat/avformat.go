//go:build !ios && !android && (amd64 || arm64)

// Package avformat binds libavformat: demuxing, muxing, streams, format
// lookup and callback-driven AVIOContexts.
package avformat

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// FormatContext is an opaque FFmpeg AVFormatContext pointer.
type FormatContext = unsafe.Pointer

// InputFormat is an opaque FFmpeg AVInputFormat pointer.
type InputFormat = unsafe.Pointer

// OutputFormat is an opaque FFmpeg AVOutputFormat pointer.
type OutputFormat = unsafe.Pointer

// Stream is an opaque FFmpeg AVStream pointer.
type Stream = unsafe.Pointer

// IOContext is an opaque FFmpeg AVIOContext pointer.
type IOContext = unsafe.Pointer

var (
	avformatOpenInput       func(ctx *unsafe.Pointer, url string, fmt unsafe.Pointer, options *unsafe.Pointer) int32
	avformatCloseInput      func(ctx *unsafe.Pointer)
	avformatFindStreamInfo  func(ctx unsafe.Pointer, options unsafe.Pointer) int32
	avformatAllocContext    func() unsafe.Pointer
	avformatFreeContext     func(ctx unsafe.Pointer)
	avformatAllocOutputCtx2 func(ctx *unsafe.Pointer, oformat unsafe.Pointer, formatName, filename unsafe.Pointer) int32
	avformatNewStream       func(ctx, codec unsafe.Pointer) unsafe.Pointer
	avformatWriteHeader     func(ctx unsafe.Pointer, options *unsafe.Pointer) int32
	avWriteTrailer          func(ctx unsafe.Pointer) int32

	avReadFrame             func(ctx, pkt unsafe.Pointer) int32
	avInterleavedWriteFrame func(ctx, pkt unsafe.Pointer) int32
	avSeekFrame             func(ctx unsafe.Pointer, streamIndex int32, timestamp int64, flags int32) int32
	avFindBestStream        func(ctx unsafe.Pointer, mediaType, wanted, related int32, decoder unsafe.Pointer, flags int32) int32

	avFindInputFormat func(name string) unsafe.Pointer
	avGuessFormat     func(shortName, filename, mimeType unsafe.Pointer) unsafe.Pointer

	avioAllocContext func(buffer unsafe.Pointer, bufferSize, writeFlag int32, opaque, read, write, seek uintptr) unsafe.Pointer
	avioContextFree  func(ctx *unsafe.Pointer)
	avioFlush        func(ctx unsafe.Pointer)

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

var bindMu sync.Mutex

// Bind registers the function bindings, retrying the library load when it
// failed at package init (for example before a search path was added).
func Bind() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	bindMu.Lock()
	defer bindMu.Unlock()
	registerBindings()
	return nil
}

func registerBindings() {
	if bindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVFormat()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avformatOpenInput, lib, "avformat_open_input")
	purego.RegisterLibFunc(&avformatCloseInput, lib, "avformat_close_input")
	purego.RegisterLibFunc(&avformatFindStreamInfo, lib, "avformat_find_stream_info")
	purego.RegisterLibFunc(&avformatAllocContext, lib, "avformat_alloc_context")
	purego.RegisterLibFunc(&avformatFreeContext, lib, "avformat_free_context")
	purego.RegisterLibFunc(&avformatAllocOutputCtx2, lib, "avformat_alloc_output_context2")
	purego.RegisterLibFunc(&avformatNewStream, lib, "avformat_new_stream")
	purego.RegisterLibFunc(&avformatWriteHeader, lib, "avformat_write_header")
	purego.RegisterLibFunc(&avWriteTrailer, lib, "av_write_trailer")

	purego.RegisterLibFunc(&avReadFrame, lib, "av_read_frame")
	purego.RegisterLibFunc(&avInterleavedWriteFrame, lib, "av_interleaved_write_frame")
	purego.RegisterLibFunc(&avSeekFrame, lib, "av_seek_frame")
	purego.RegisterLibFunc(&avFindBestStream, lib, "av_find_best_stream")

	purego.RegisterLibFunc(&avFindInputFormat, lib, "av_find_input_format")
	purego.RegisterLibFunc(&avGuessFormat, lib, "av_guess_format")

	purego.RegisterLibFunc(&avioAllocContext, lib, "avio_alloc_context")
	purego.RegisterLibFunc(&avioContextFree, lib, "avio_context_free")
	purego.RegisterLibFunc(&avioFlush, lib, "avio_flush")

	bindingsRegistered = true
}

// cString returns a NUL terminated av_strdup copy of s, or nil for "".
// The caller frees it with avutil.Free.
func cString(s string) unsafe.Pointer {
	if s == "" {
		return nil
	}
	return avutil.Strdup(s)
}

// AllocContext allocates an empty AVFormatContext, used to attach a custom
// IOContext before OpenInput.
func AllocContext() FormatContext {
	if avformatAllocContext == nil {
		return nil
	}
	return avformatAllocContext()
}

// FreeContext frees a context and its streams. It does not close pb.
func FreeContext(ctx FormatContext) {
	if ctx == nil || avformatFreeContext == nil {
		return
	}
	avformatFreeContext(ctx)
}

// OpenInput opens an input on *ctx, which may be preallocated with a custom
// pb. On failure FFmpeg frees the context and *ctx becomes nil. On return
// options holds the entries the demuxer did not consume.
func OpenInput(ctx *FormatContext, url string, fmt InputFormat, options *avutil.Dictionary) error {
	if avformatOpenInput == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatOpenInput(ctx, url, fmt, options), "avformat_open_input")
}

// CloseInput closes a demuxer context, frees it and sets *ctx to nil.
// A custom pb is left alone.
func CloseInput(ctx *FormatContext) {
	if ctx == nil || *ctx == nil || avformatCloseInput == nil {
		return
	}
	avformatCloseInput(ctx)
	*ctx = nil
}

// FindStreamInfo reads packets to fill in missing stream parameters.
func FindStreamInfo(ctx FormatContext) error {
	if avformatFindStreamInfo == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatFindStreamInfo(ctx, nil), "avformat_find_stream_info")
}

// AllocOutputContext2 allocates a muxer context. Either oformat, formatName
// or filename must identify the container.
func AllocOutputContext2(ctx *FormatContext, oformat OutputFormat, formatName, filename string) error {
	if avformatAllocOutputCtx2 == nil {
		return bindings.ErrNotLoaded
	}
	name := cString(formatName)
	file := cString(filename)
	defer avutil.Free(name)
	defer avutil.Free(file)
	return avutil.NewError(avformatAllocOutputCtx2(ctx, oformat, name, file), "avformat_alloc_output_context2")
}

// NewStream adds a stream to a muxer context.
func NewStream(ctx FormatContext, codec avcodec.Codec) Stream {
	if avformatNewStream == nil {
		return nil
	}
	return avformatNewStream(ctx, codec)
}

// WriteHeader initializes the muxer and writes the container header. On
// return options holds the entries the muxer did not consume.
func WriteHeader(ctx FormatContext, options *avutil.Dictionary) error {
	if avformatWriteHeader == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avformatWriteHeader(ctx, options), "avformat_write_header")
}

// WriteTrailer flushes interleaving queues and finalizes the container.
func WriteTrailer(ctx FormatContext) error {
	if avWriteTrailer == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avWriteTrailer(ctx), "av_write_trailer")
}

// ReadFrame demuxes the next packet. EAGAIN and EOF come back as errors.
func ReadFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avReadFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avReadFrame(ctx, pkt), "av_read_frame")
}

// InterleavedWriteFrame hands a packet to the muxer, which takes ownership
// of its reference. Nil flushes the interleaving queue.
func InterleavedWriteFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avInterleavedWriteFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avInterleavedWriteFrame(ctx, pkt), "av_interleaved_write_frame")
}

// Seek flags for SeekFrame (AVSEEK_FLAG_*).
const (
	SeekFlagBackward int32 = 1
	SeekFlagByte     int32 = 2
	SeekFlagAny      int32 = 4
	SeekFlagFrame    int32 = 8
)

// SeekFrame seeks streamIndex to timestamp in that stream's time base, or
// in AV_TIME_BASE units when streamIndex is -1.
func SeekFrame(ctx FormatContext, streamIndex int32, timestamp int64, flags int32) error {
	if avSeekFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avSeekFrame(ctx, streamIndex, timestamp, flags), "av_seek_frame")
}

// FindBestStream returns the index of the most suitable stream of the media
// type, or a negative AVERROR (AVERROR_STREAM_NOT_FOUND) when none exists.
func FindBestStream(ctx FormatContext, mediaType avutil.MediaType, wanted, related int32) int32 {
	if avFindBestStream == nil {
		return avutil.AVERROR_STREAM_NOT_FOUND
	}
	return avFindBestStream(ctx, int32(mediaType), wanted, related, nil, 0)
}

// FindInputFormat looks up a demuxer by short name, or nil.
func FindInputFormat(name string) InputFormat {
	if avFindInputFormat == nil || name == "" {
		return nil
	}
	return avFindInputFormat(name)
}

// GuessFormat returns the muxer best matching the given short name, file
// name and MIME type. Empty arguments are ignored.
func GuessFormat(shortName, filename, mimeType string) OutputFormat {
	if avGuessFormat == nil {
		return nil
	}
	s, f, m := cString(shortName), cString(filename), cString(mimeType)
	defer avutil.Free(s)
	defer avutil.Free(f)
	defer avutil.Free(m)
	return avGuessFormat(s, f, m)
}

// IOAllocContext creates an AVIOContext around buffer (allocated with
// av_malloc). read, write and seek are C function pointers or 0. opaque is
// passed to them untouched and is never dereferenced by FFmpeg.
func IOAllocContext(buffer unsafe.Pointer, bufferSize int, writable bool, opaque, read, write, seek uintptr) IOContext {
	if avioAllocContext == nil {
		return nil
	}
	var writeFlag int32
	if writable {
		writeFlag = 1
	}
	return avioAllocContext(buffer, int32(bufferSize), writeFlag, opaque, read, write, seek)
}

// IOContextFree frees an AVIOContext and sets *ctx to nil. The buffer is not
// freed; read it with GetIOBuffer first, since FFmpeg may have replaced it.
func IOContextFree(ctx *IOContext) {
	if ctx == nil || *ctx == nil || avioContextFree == nil {
		return
	}
	avioContextFree(ctx)
	*ctx = nil
}

// IOFlush writes out any buffered bytes.
func IOFlush(ctx IOContext) {
	if ctx == nil || avioFlush == nil {
		return
	}
	avioFlush(ctx)
}
