//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"math"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// NoPTSValue is AV_NOPTS_VALUE.
const NoPTSValue int64 = math.MinInt64

// AVFrame field offsets, FFmpeg 6.x (avutil 58).
const (
	offsetFrameData              = 0
	offsetFrameLinesize          = 64
	offsetFrameExtendedData      = 96
	offsetFrameWidth             = 104
	offsetFrameHeight            = 108
	offsetFrameNbSamples         = 112
	offsetFrameFormat            = 116
	offsetFrameKeyFrame          = 120
	offsetFramePictType          = 124
	offsetFrameSampleAspectRatio = 128
	offsetFramePTS               = 136
	offsetFramePktDTS            = 144
	offsetFrameTimeBase          = 152
	offsetFrameSampleRate        = 208
	offsetFrameChLayout          = 448
	offsetFrameDuration          = 472
)

// NumDataPointers is AV_NUM_DATA_POINTERS.
const NumDataPointers = 8

// FrameAlloc allocates an AVFrame. Free it with FrameFree.
func FrameAlloc() Frame {
	if avFrameAlloc == nil {
		return nil
	}
	return avFrameAlloc()
}

// FrameFree frees an AVFrame and sets the pointer to nil. Nil is a no-op.
func FrameFree(frame *Frame) {
	if frame == nil || *frame == nil || avFrameFree == nil {
		return
	}
	avFrameFree(frame)
	*frame = nil
}

// FrameRef makes dst reference the buffers of src.
func FrameRef(dst, src Frame) error {
	if avFrameRef == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameRef(dst, src), "av_frame_ref")
}

// FrameUnref drops all buffer references of frame and resets its fields.
func FrameUnref(frame Frame) {
	if frame == nil || avFrameUnref == nil {
		return
	}
	avFrameUnref(frame)
}

// FrameGetBuffer allocates data buffers for a frame whose format and size
// (video) or format, nb_samples and ch_layout (audio) are already set.
func FrameGetBuffer(frame Frame, align int32) error {
	if avFrameGetBuffer == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameGetBuffer(frame, align), "av_frame_get_buffer")
}

// FrameMakeWritable copies the frame data if it is shared.
func FrameMakeWritable(frame Frame) error {
	if avFrameMakeWritable == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameMakeWritable(frame), "av_frame_make_writable")
}

// FrameCopyProps copies metadata (timestamps, aspect, side data) but not the
// data buffers.
func FrameCopyProps(dst, src Frame) error {
	if avFrameCopyProps == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameCopyProps(dst, src), "av_frame_copy_props")
}

func frameInt32(frame Frame, off uintptr) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(frame, off))
}

func setFrameInt32(frame Frame, off uintptr, v int32) {
	if frame == nil {
		return
	}
	*(*int32)(unsafe.Add(frame, off)) = v
}

func frameInt64(frame Frame, off uintptr) int64 {
	if frame == nil {
		return NoPTSValue
	}
	return *(*int64)(unsafe.Add(frame, off))
}

func setFrameInt64(frame Frame, off uintptr, v int64) {
	if frame == nil {
		return
	}
	*(*int64)(unsafe.Add(frame, off)) = v
}

func GetFrameWidth(frame Frame) int32 { return frameInt32(frame, offsetFrameWidth) }
func SetFrameWidth(frame Frame, v int32) { setFrameInt32(frame, offsetFrameWidth, v) }
func GetFrameHeight(frame Frame) int32 { return frameInt32(frame, offsetFrameHeight) }
func SetFrameHeight(frame Frame, v int32) { setFrameInt32(frame, offsetFrameHeight, v) }
func GetFrameNbSamples(frame Frame) int32 { return frameInt32(frame, offsetFrameNbSamples) }
func SetFrameNbSamples(frame Frame, v int32) { setFrameInt32(frame, offsetFrameNbSamples, v) }
func GetFrameSampleRate(frame Frame) int32 { return frameInt32(frame, offsetFrameSampleRate) }
func SetFrameSampleRate(frame Frame, v int32) { setFrameInt32(frame, offsetFrameSampleRate, v) }
func GetFrameKeyFrame(frame Frame) int32 { return frameInt32(frame, offsetFrameKeyFrame) }
func SetFrameKeyFrame(frame Frame, v int32) { setFrameInt32(frame, offsetFrameKeyFrame, v) }
func GetFramePictType(frame Frame) int32 { return frameInt32(frame, offsetFramePictType) }
func SetFramePictType(frame Frame, v int32) { setFrameInt32(frame, offsetFramePictType, v) }
func GetFramePTS(frame Frame) int64 { return frameInt64(frame, offsetFramePTS) }
func SetFramePTS(frame Frame, v int64) { setFrameInt64(frame, offsetFramePTS, v) }
func GetFramePktDTS(frame Frame) int64 { return frameInt64(frame, offsetFramePktDTS) }
func SetFramePktDTS(frame Frame, v int64) { setFrameInt64(frame, offsetFramePktDTS, v) }
func GetFrameDuration(frame Frame) int64 { return frameInt64(frame, offsetFrameDuration) }
func SetFrameDuration(frame Frame, v int64) { setFrameInt64(frame, offsetFrameDuration, v) }

// GetFrameFormat returns the pixel format (video) or sample format (audio).
// -1 means unset.
func GetFrameFormat(frame Frame) int32 {
	if frame == nil {
		return -1
	}
	return frameInt32(frame, offsetFrameFormat)
}

// SetFrameFormat sets the pixel format (video) or sample format (audio).
func SetFrameFormat(frame Frame, format int32) {
	setFrameInt32(frame, offsetFrameFormat, format)
}

// GetFrameTimeBase returns the frame time base.
func GetFrameTimeBase(frame Frame) Rational {
	if frame == nil {
		return Rational{}
	}
	return *(*Rational)(unsafe.Add(frame, offsetFrameTimeBase))
}

// SetFrameTimeBase sets the frame time base.
func SetFrameTimeBase(frame Frame, tb Rational) {
	if frame == nil {
		return
	}
	*(*Rational)(unsafe.Add(frame, offsetFrameTimeBase)) = tb
}

// GetFrameSampleAspectRatio returns the sample aspect ratio.
func GetFrameSampleAspectRatio(frame Frame) Rational {
	if frame == nil {
		return Rational{}
	}
	return *(*Rational)(unsafe.Add(frame, offsetFrameSampleAspectRatio))
}

// SetFrameSampleAspectRatio sets the sample aspect ratio.
func SetFrameSampleAspectRatio(frame Frame, sar Rational) {
	if frame == nil {
		return
	}
	*(*Rational)(unsafe.Add(frame, offsetFrameSampleAspectRatio)) = sar
}

// FrameChLayout returns a pointer to the AVChannelLayout embedded in frame.
func FrameChLayout(frame Frame) unsafe.Pointer {
	if frame == nil {
		return nil
	}
	return unsafe.Add(frame, offsetFrameChLayout)
}

// GetFrameData returns the data pointer of one plane.
func GetFrameData(frame Frame, plane int) unsafe.Pointer {
	if frame == nil || plane < 0 || plane >= NumDataPointers {
		return nil
	}
	return (*[NumDataPointers]unsafe.Pointer)(unsafe.Add(frame, offsetFrameData))[plane]
}

// FrameDataArray returns a pointer to the frame's data[8] array, suitable for
// functions taking uint8_t *dst_data[4] or uint8_t *const src[].
func FrameDataArray(frame Frame) unsafe.Pointer {
	if frame == nil {
		return nil
	}
	return unsafe.Add(frame, offsetFrameData)
}

// FrameLinesizeArray returns a pointer to the frame's linesize[8] array.
func FrameLinesizeArray(frame Frame) unsafe.Pointer {
	if frame == nil {
		return nil
	}
	return unsafe.Add(frame, offsetFrameLinesize)
}

// GetFrameExtendedData returns frame->extended_data. For planar audio with
// more than eight channels this is the only complete plane array.
func GetFrameExtendedData(frame Frame) unsafe.Pointer {
	if frame == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(frame, offsetFrameExtendedData))
}

// GetFrameLinesize returns the line size of one plane.
func GetFrameLinesize(frame Frame, plane int) int32 {
	if frame == nil || plane < 0 || plane >= NumDataPointers {
		return 0
	}
	return (*[NumDataPointers]int32)(unsafe.Add(frame, offsetFrameLinesize))[plane]
}

// FrameUseDataAsExtended points extended_data at the frame's own data array,
// as required after filling data[] from external memory.
func FrameUseDataAsExtended(frame Frame) {
	if frame == nil {
		return
	}
	*(*unsafe.Pointer)(unsafe.Add(frame, offsetFrameExtendedData)) = unsafe.Add(frame, offsetFrameData)
}
