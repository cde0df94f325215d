//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
)

// AVCodecContext field offsets for FFmpeg 6.x (avcodec 60). These move
// between major versions; check with offsetof() when bumping.
const (
	offsetCtxCodecType     = 12
	offsetCtxCodec         = 16
	offsetCtxCodecID       = 24
	offsetCtxCodecTag      = 28
	offsetCtxBitRate       = 56
	offsetCtxFlags         = 76
	offsetCtxExtradata     = 88
	offsetCtxExtradataSize = 96
	offsetCtxTimeBase      = 100
	offsetCtxWidth         = 116
	offsetCtxHeight        = 120
	offsetCtxGopSize       = 132
	offsetCtxPixFmt        = 136
	offsetCtxMaxBFrames    = 160
	offsetCtxSampleRate    = 352
	offsetCtxSampleFmt     = 360
	offsetCtxFrameSize     = 364
	offsetCtxFramerate     = 704
	offsetCtxPktTimebase   = 716
	offsetCtxChLayout      = 912
)

// Codec context flags (AV_CODEC_FLAG_*).
const (
	FlagQScale       int32 = 1 << 1
	FlagLowDelay     int32 = 1 << 19
	FlagGlobalHeader int32 = 1 << 22
)

// InputBufferPaddingSize is AV_INPUT_BUFFER_PADDING_SIZE. Extradata and
// packet buffers carry this many zeroed bytes past their end.
const InputBufferPaddingSize = 64

func ctxInt32(ctx Context, off uintptr) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(ctx, off))
}

func setCtxInt32(ctx Context, off uintptr, v int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, off)) = v
}

func ctxRational(ctx Context, off uintptr) avutil.Rational {
	if ctx == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(ctx, off))
}

func setCtxRational(ctx Context, off uintptr, r avutil.Rational) {
	if ctx == nil {
		return
	}
	*(*avutil.Rational)(unsafe.Add(ctx, off)) = r
}

func GetCtxWidth(ctx Context) int32 { return ctxInt32(ctx, offsetCtxWidth) }
func SetCtxWidth(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxWidth, v) }
func GetCtxHeight(ctx Context) int32 { return ctxInt32(ctx, offsetCtxHeight) }
func SetCtxHeight(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxHeight, v) }
func GetCtxPixFmt(ctx Context) int32 { return ctxInt32(ctx, offsetCtxPixFmt) }
func SetCtxPixFmt(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxPixFmt, v) }
func GetCtxSampleFmt(ctx Context) int32 { return ctxInt32(ctx, offsetCtxSampleFmt) }
func SetCtxSampleFmt(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxSampleFmt, v) }
func GetCtxSampleRate(ctx Context) int32 { return ctxInt32(ctx, offsetCtxSampleRate) }
func SetCtxSampleRate(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxSampleRate, v) }
func GetCtxGopSize(ctx Context) int32 { return ctxInt32(ctx, offsetCtxGopSize) }
func SetCtxGopSize(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxGopSize, v) }
func GetCtxMaxBFrames(ctx Context) int32 { return ctxInt32(ctx, offsetCtxMaxBFrames) }
func SetCtxMaxBFrames(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxMaxBFrames, v) }
func GetCtxFlags(ctx Context) int32 { return ctxInt32(ctx, offsetCtxFlags) }
func SetCtxFlags(ctx Context, v int32) { setCtxInt32(ctx, offsetCtxFlags, v) }
func GetCtxFrameSize(ctx Context) int32 { return ctxInt32(ctx, offsetCtxFrameSize) }
func GetCtxCodecTag(ctx Context) int32 { return ctxInt32(ctx, offsetCtxCodecTag) }

func GetCtxTimeBase(ctx Context) avutil.Rational { return ctxRational(ctx, offsetCtxTimeBase) }
func SetCtxTimeBase(ctx Context, r avutil.Rational) { setCtxRational(ctx, offsetCtxTimeBase, r) }
func GetCtxFramerate(ctx Context) avutil.Rational { return ctxRational(ctx, offsetCtxFramerate) }
func SetCtxFramerate(ctx Context, r avutil.Rational) { setCtxRational(ctx, offsetCtxFramerate, r) }

// GetCtxPktTimebase returns pkt_timebase, the time base decoders see on
// incoming packets.
func GetCtxPktTimebase(ctx Context) avutil.Rational { return ctxRational(ctx, offsetCtxPktTimebase) }

// SetCtxPktTimebase sets pkt_timebase.
func SetCtxPktTimebase(ctx Context, r avutil.Rational) { setCtxRational(ctx, offsetCtxPktTimebase, r) }

// GetCtxCodecType returns the media type of the context.
func GetCtxCodecType(ctx Context) avutil.MediaType {
	if ctx == nil {
		return avutil.MediaTypeUnknown
	}
	return avutil.MediaType(ctxInt32(ctx, offsetCtxCodecType))
}

// GetCtxCodecID returns the codec ID of the context.
func GetCtxCodecID(ctx Context) CodecID {
	return CodecID(ctxInt32(ctx, offsetCtxCodecID))
}

// GetCtxCodec returns the codec the context was opened with, or nil.
func GetCtxCodec(ctx Context) Codec {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxCodec))
}

// GetCtxBitRate returns the average bit rate.
func GetCtxBitRate(ctx Context) int64 {
	if ctx == nil {
		return 0
	}
	return *(*int64)(unsafe.Add(ctx, offsetCtxBitRate))
}

// SetCtxBitRate sets the average bit rate.
func SetCtxBitRate(ctx Context, v int64) {
	if ctx == nil {
		return
	}
	*(*int64)(unsafe.Add(ctx, offsetCtxBitRate)) = v
}

// GetCtxChLayout returns a pointer to the AVChannelLayout in the context.
func GetCtxChLayout(ctx Context) unsafe.Pointer {
	if ctx == nil {
		return nil
	}
	return unsafe.Add(ctx, offsetCtxChLayout)
}

// GetCtxExtradata returns a copy of the codec extradata.
func GetCtxExtradata(ctx Context) []byte {
	if ctx == nil {
		return nil
	}
	return readExtradata(unsafe.Add(ctx, offsetCtxExtradata), ctxInt32(ctx, offsetCtxExtradataSize))
}

// SetCtxExtradata replaces the extradata with a padded native copy of data.
func SetCtxExtradata(ctx Context, data []byte) error {
	if ctx == nil {
		return avutil.NewError(avutil.AVERROR_EINVAL, "set extradata")
	}
	return writeExtradata(unsafe.Add(ctx, offsetCtxExtradata), unsafe.Add(ctx, offsetCtxExtradataSize), data)
}

// readExtradata copies size bytes from the uint8_t* stored at field.
func readExtradata(field unsafe.Pointer, size int32) []byte {
	p := *(*unsafe.Pointer)(field)
	if p == nil || size <= 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(p), size))
	return out
}

// writeExtradata frees the buffer at field and stores an av_mallocz'd,
// padded copy of data together with its size.
func writeExtradata(field, sizeField unsafe.Pointer, data []byte) error {
	old := *(*unsafe.Pointer)(field)
	*(*unsafe.Pointer)(field) = nil
	*(*int32)(sizeField) = 0
	avutil.Free(old)
	if len(data) == 0 {
		return nil
	}
	buf := avutil.Mallocz(uintptr(len(data) + InputBufferPaddingSize))
	if buf == nil {
		return avutil.NewError(avutil.AVERROR_ENOMEM, "av_mallocz")
	}
	copy(unsafe.Slice((*byte)(buf), len(data)), data)
	*(*unsafe.Pointer)(field) = buf
	*(*int32)(sizeField) = int32(len(data))
	return nil
}
