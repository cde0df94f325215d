//go:build !ios && !android && (amd64 || arm64)

package avformat

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avutil"
)

// AVFormatContext field offsets (avformat 60.3, FFmpeg 6.0).
const (
	offsetFmtIFormat   = 8
	offsetFmtOFormat   = 16
	offsetFmtPB        = 32
	offsetFmtNbStreams = 44
	offsetFmtStreams   = 48
	offsetFmtStartTime = 64
	offsetFmtDuration  = 72
	offsetFmtBitRate   = 80
	offsetFmtFlags     = 96
	offsetFmtNbChapter = 164
	offsetFmtChapters  = 168
	offsetFmtMetadata  = 176
)

// AVStream field offsets.
const (
	offsetStreamIndex        = 8
	offsetStreamID           = 12
	offsetStreamCodecPar     = 16
	offsetStreamTimeBase     = 32
	offsetStreamStartTime    = 40
	offsetStreamDuration     = 48
	offsetStreamNbFrames     = 56
	offsetStreamMetadata     = 80
	offsetStreamAvgFrameRate = 88
)

// AVInputFormat and AVOutputFormat share their first two fields.
const (
	offsetFormatName     = 0
	offsetFormatLongName = 8
	offsetIFormatFlags   = 16
	offsetOFormatFlags   = 44
)

// AVChapter field offsets.
const (
	offsetChapterID       = 0
	offsetChapterTimeBase = 8
	offsetChapterStart    = 16
	offsetChapterEnd      = 24
	offsetChapterMetadata = 32
)

// AVIOContext field offsets.
const (
	offsetIOBuffer   = 8
	offsetIOSeekable = 144
)

// AVFormatContext.flags (AVFMT_FLAG_*).
const (
	FlagGenPTS       int32 = 0x0001
	FlagIgnIdx       int32 = 0x0002
	FlagNoBuffer     int32 = 0x0040
	FlagCustomIO     int32 = 0x0080
	FlagFlushPackets int32 = 0x0200
)

// AVInputFormat/AVOutputFormat flags (AVFMT_*).
const (
	FmtNoFile       int32 = 0x0001
	FmtNeedNumber   int32 = 0x0002
	FmtGlobalHeader int32 = 0x0040
	FmtNoTimestamps int32 = 0x0080
	FmtVariableFPS  int32 = 0x0400
	FmtNoStreams    int32 = 0x1000
)

func fieldInt32(p unsafe.Pointer, off uintptr) int32 {
	if p == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(p, off))
}

func fieldInt64(p unsafe.Pointer, off uintptr) int64 {
	if p == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(p, off))
}

func fieldPointer(p unsafe.Pointer, off uintptr) unsafe.Pointer {
	if p == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(p, off))
}

// GetNumStreams returns nb_streams.
func GetNumStreams(ctx FormatContext) int {
	return int(uint32(fieldInt32(ctx, offsetFmtNbStreams)))
}

// GetStream returns streams[index], or nil when out of range.
func GetStream(ctx FormatContext, index int) Stream {
	if index < 0 || index >= GetNumStreams(ctx) {
		return nil
	}
	streams := fieldPointer(ctx, offsetFmtStreams)
	if streams == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(streams, index*int(unsafe.Sizeof(uintptr(0)))))
}

// GetDuration returns the container duration in AV_TIME_BASE units.
func GetDuration(ctx FormatContext) int64 { return fieldInt64(ctx, offsetFmtDuration) }

// GetStartTime returns the container start time in AV_TIME_BASE units.
func GetStartTime(ctx FormatContext) int64 { return fieldInt64(ctx, offsetFmtStartTime) }

// GetBitRate returns the total bit rate, 0 if unknown.
func GetBitRate(ctx FormatContext) int64 {
	if ctx == nil {
		return 0
	}
	return fieldInt64(ctx, offsetFmtBitRate)
}

func GetFlags(ctx FormatContext) int32 { return fieldInt32(ctx, offsetFmtFlags) }

func SetFlags(ctx FormatContext, flags int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetFmtFlags)) = flags
}

// GetInputFormat returns iformat, set on demuxer contexts.
func GetInputFormat(ctx FormatContext) InputFormat { return fieldPointer(ctx, offsetFmtIFormat) }

// GetOutputFormat returns oformat, set on muxer contexts.
func GetOutputFormat(ctx FormatContext) OutputFormat { return fieldPointer(ctx, offsetFmtOFormat) }

// GetIOContext returns pb.
func GetIOContext(ctx FormatContext) IOContext { return fieldPointer(ctx, offsetFmtPB) }

// SetIOContext sets pb. Set FlagCustomIO as well so FFmpeg leaves it open.
func SetIOContext(ctx FormatContext, pb IOContext) {
	if ctx == nil {
		return
	}
	*(*unsafe.Pointer)(unsafe.Add(ctx, offsetFmtPB)) = pb
}

// GetFormatName returns the short name of an input or output format.
func GetFormatName(f unsafe.Pointer) string {
	return avutil.GoString(fieldPointer(f, offsetFormatName))
}

// GetFormatLongName returns the descriptive name of an input or output format.
func GetFormatLongName(f unsafe.Pointer) string {
	return avutil.GoString(fieldPointer(f, offsetFormatLongName))
}

func GetInputFormatFlags(f InputFormat) int32 { return fieldInt32(f, offsetIFormatFlags) }
func GetOutputFormatFlags(f OutputFormat) int32 { return fieldInt32(f, offsetOFormatFlags) }

// NeedsGlobalHeader reports whether the muxer wants codec headers in
// extradata rather than in band.
func NeedsGlobalHeader(ctx FormatContext) bool {
	return GetOutputFormatFlags(GetOutputFormat(ctx))&FmtGlobalHeader != 0
}

func GetStreamIndex(s Stream) int32 { return fieldInt32(s, offsetStreamIndex) }
func GetStreamID(s Stream) int32 { return fieldInt32(s, offsetStreamID) }

func SetStreamID(s Stream, id int32) {
	if s == nil {
		return
	}
	*(*int32)(unsafe.Add(s, offsetStreamID)) = id
}

// GetStreamCodecPar returns the stream's codec parameters, owned by the
// stream.
func GetStreamCodecPar(s Stream) avcodec.Parameters { return fieldPointer(s, offsetStreamCodecPar) }

func GetStreamStartTime(s Stream) int64 { return fieldInt64(s, offsetStreamStartTime) }
func GetStreamDuration(s Stream) int64 { return fieldInt64(s, offsetStreamDuration) }

func GetStreamNbFrames(s Stream) int64 {
	if s == nil {
		return 0
	}
	return fieldInt64(s, offsetStreamNbFrames)
}

func streamRational(s Stream, off uintptr) avutil.Rational {
	if s == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(s, off))
}

func GetStreamTimeBase(s Stream) avutil.Rational { return streamRational(s, offsetStreamTimeBase) }
func GetStreamAvgFrameRate(s Stream) avutil.Rational { return streamRational(s, offsetStreamAvgFrameRate) }

// SetStreamTimeBase sets the time base a muxer should use. The muxer may
// change it during WriteHeader.
func SetStreamTimeBase(s Stream, tb avutil.Rational) {
	if s == nil {
		return
	}
	*(*avutil.Rational)(unsafe.Add(s, offsetStreamTimeBase)) = tb
}

// GetIOBuffer returns the AVIOContext's current buffer.
func GetIOBuffer(pb IOContext) unsafe.Pointer { return fieldPointer(pb, offsetIOBuffer) }

// IsSeekable reports whether the AVIOContext can seek.
func IsSeekable(pb IOContext) bool { return fieldInt32(pb, offsetIOSeekable) != 0 }

// Chapter is an AVChapter pointer owned by its format context.
type Chapter = unsafe.Pointer

// MetadataRef returns the address of the format context's metadata
// dictionary so it can be read or replaced in place.
func MetadataRef(ctx FormatContext) *avutil.Dictionary {
	if ctx == nil {
		return nil
	}
	return (*avutil.Dictionary)(unsafe.Add(ctx, offsetFmtMetadata))
}

// StreamMetadataRef is MetadataRef for a stream.
func StreamMetadataRef(s Stream) *avutil.Dictionary {
	if s == nil {
		return nil
	}
	return (*avutil.Dictionary)(unsafe.Add(s, offsetStreamMetadata))
}

// GetNumChapters returns nb_chapters.
func GetNumChapters(ctx FormatContext) int {
	return int(uint32(fieldInt32(ctx, offsetFmtNbChapter)))
}

// GetChapter returns chapters[index], or nil when out of range.
func GetChapter(ctx FormatContext, index int) Chapter {
	if index < 0 || index >= GetNumChapters(ctx) {
		return nil
	}
	chapters := fieldPointer(ctx, offsetFmtChapters)
	if chapters == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(chapters, uintptr(index)*unsafe.Sizeof(uintptr(0))))
}

func GetChapterID(ch Chapter) int64 {
	if ch == nil {
		return 0
	}
	return fieldInt64(ch, offsetChapterID)
}

func GetChapterTimeBase(ch Chapter) avutil.Rational {
	if ch == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(ch, offsetChapterTimeBase))
}

func GetChapterStart(ch Chapter) int64 { return fieldInt64(ch, offsetChapterStart) }
func GetChapterEnd(ch Chapter) int64   { return fieldInt64(ch, offsetChapterEnd) }

func GetChapterMetadata(ch Chapter) avutil.Dictionary {
	return fieldPointer(ch, offsetChapterMetadata)
}
