//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
)

// Frame is a refcounted AVFrame holding decoded video or audio.
type Frame struct{ resource }

// NewFrame allocates an empty frame.
func (b *Bridge) NewFrame() (Frame, error) {
	if err := b.checkOpen(); err != nil {
		return Frame{}, err
	}
	p := avutil.FrameAlloc()
	if p == nil {
		return Frame{}, ErrOutOfMemory
	}
	return Frame{b.ref(b.frames.Insert(p))}, nil
}

func (f Frame) get() (avutil.Frame, error) { return resolve(f.resource, tableFrame) }

// ptr resolves the frame for a getter or setter, logging a failed lookup.
func (f Frame) ptr(op string) avutil.Frame {
	p, err := f.get()
	if err != nil {
		f.logLookup("Frame."+op, err)
		return nil
	}
	return p
}

// Valid reports whether the frame is still alive.
func (f Frame) Valid() bool { return contains(f.resource, tableFrame) }

// Destroy frees the frame and its buffer reference.
func (f Frame) Destroy() error {
	if f.b == nil {
		return ErrNilBridge
	}
	p, err := f.b.frames.Remove(f.h)
	if err != nil {
		return err
	}
	avutil.FrameFree(&p)
	return nil
}

// Unref drops the data reference and resets every field.
func (f Frame) Unref() error {
	p, err := f.get()
	if err != nil {
		return err
	}
	avutil.FrameUnref(p)
	return nil
}

// Ref makes f reference the same data as src.
func (f Frame) Ref(src Frame) error {
	if err := f.sameBridge(src.resource); err != nil {
		return err
	}
	dst, err := f.get()
	if err != nil {
		return err
	}
	s, err := src.get()
	if err != nil {
		return err
	}
	avutil.FrameUnref(dst)
	return avutil.FrameRef(dst, s)
}

// GetBuffer allocates data for the frame's format and dimensions (or
// sample count). align 0 picks a suitable alignment.
func (f Frame) GetBuffer(align int) error {
	p, err := f.get()
	if err != nil {
		return err
	}
	return avutil.FrameGetBuffer(p, int32(align))
}

// MakeWritable copies the data if it is shared with another frame.
func (f Frame) MakeWritable() error {
	p, err := f.get()
	if err != nil {
		return err
	}
	return avutil.FrameMakeWritable(p)
}

// CopyProps copies metadata such as timestamps from src, not the data.
func (f Frame) CopyProps(src Frame) error {
	if err := f.sameBridge(src.resource); err != nil {
		return err
	}
	dst, err := f.get()
	if err != nil {
		return err
	}
	s, err := src.get()
	if err != nil {
		return err
	}
	return avutil.FrameCopyProps(dst, s)
}

// FillSilence overwrites every sample of an audio frame with silence.
func (f Frame) FillSilence() error {
	p, err := f.get()
	if err != nil {
		return err
	}
	layout := readChannelLayout(avutil.FrameChLayout(p))
	return avutil.SamplesSetSilence(avutil.GetFrameExtendedData(p), 0,
		avutil.GetFrameNbSamples(p), int32(layout.NbChannels), avutil.GetFrameFormat(p))
}

func (f Frame) Width() int { return int(avutil.GetFrameWidth(f.ptr("Width"))) }
func (f Frame) SetWidth(v int) { avutil.SetFrameWidth(f.ptr("SetWidth"), int32(v)) }
func (f Frame) Height() int { return int(avutil.GetFrameHeight(f.ptr("Height"))) }
func (f Frame) SetHeight(v int) { avutil.SetFrameHeight(f.ptr("SetHeight"), int32(v)) }
func (f Frame) NbSamples() int { return int(avutil.GetFrameNbSamples(f.ptr("NbSamples"))) }
func (f Frame) SetNbSamples(v int) { avutil.SetFrameNbSamples(f.ptr("SetNbSamples"), int32(v)) }
func (f Frame) SampleRate() int { return int(avutil.GetFrameSampleRate(f.ptr("SampleRate"))) }
func (f Frame) SetSampleRate(v int) { avutil.SetFrameSampleRate(f.ptr("SetSampleRate"), int32(v)) }
func (f Frame) PictType() PictureType { return PictureType(avutil.GetFramePictType(f.ptr("PictType"))) }

// Format returns the raw pixel or sample format, -1 when unset.
func (f Frame) Format() int32 {
	p := f.ptr("Format")
	if p == nil {
		return -1
	}
	return avutil.GetFrameFormat(p)
}

func (f Frame) SetFormat(format int32) { avutil.SetFrameFormat(f.ptr("SetFormat"), format) }
func (f Frame) PixelFormat() PixelFormat { return PixelFormat(f.Format()) }
func (f Frame) SetPixelFormat(format PixelFormat) { f.SetFormat(int32(format)) }
func (f Frame) SampleFormat() SampleFormat { return SampleFormat(f.Format()) }
func (f Frame) SetSampleFormat(format SampleFormat) { f.SetFormat(int32(format)) }

// KeyFrame reports whether the frame is a key frame.
func (f Frame) KeyFrame() bool { return avutil.GetFrameKeyFrame(f.ptr("KeyFrame")) != 0 }

func (f Frame) SetKeyFrame(key bool) {
	var v int32
	if key {
		v = 1
	}
	avutil.SetFrameKeyFrame(f.ptr("SetKeyFrame"), v)
}

// PTS returns the presentation timestamp in TimeBase units, -1 when unset.
func (f Frame) PTS() int64 { return fromNoPTS(avutil.GetFramePTS(f.ptr("PTS"))) }

// SetPTS sets the presentation timestamp. -1 clears it.
func (f Frame) SetPTS(pts int64) { avutil.SetFramePTS(f.ptr("SetPTS"), toNoPTS(pts)) }

// PktDTS returns the dts of the packet the frame was decoded from, -1 when
// unset.
func (f Frame) PktDTS() int64 { return fromNoPTS(avutil.GetFramePktDTS(f.ptr("PktDTS"))) }

func (f Frame) Duration() int64 { return avutil.GetFrameDuration(f.ptr("Duration")) }
func (f Frame) SetDuration(d int64) { avutil.SetFrameDuration(f.ptr("SetDuration"), d) }
func (f Frame) TimeBase() Rational { return avutil.GetFrameTimeBase(f.ptr("TimeBase")) }
func (f Frame) SetTimeBase(tb Rational) { avutil.SetFrameTimeBase(f.ptr("SetTimeBase"), tb) }

func (f Frame) SampleAspectRatio() Rational {
	return avutil.GetFrameSampleAspectRatio(f.ptr("SampleAspectRatio"))
}

func (f Frame) SetSampleAspectRatio(sar Rational) {
	avutil.SetFrameSampleAspectRatio(f.ptr("SetSampleAspectRatio"), sar)
}

// ChannelLayout returns the layout of an audio frame.
func (f Frame) ChannelLayout() ChannelLayout {
	return readChannelLayout(avutil.FrameChLayout(f.ptr("ChannelLayout")))
}

// SetChannelLayout replaces the layout of an audio frame.
func (f Frame) SetChannelLayout(l ChannelLayout) error {
	p, err := f.get()
	if err != nil {
		return err
	}
	return writeChannelLayout(avutil.FrameChLayout(p), l)
}

// Linesize returns the stride of a plane in bytes.
func (f Frame) Linesize(plane int) int {
	return int(avutil.GetFrameLinesize(f.ptr("Linesize"), plane))
}

func isAudioFrame(p avutil.Frame) bool {
	return avutil.GetFrameNbSamples(p) > 0 && avutil.GetFrameWidth(p) == 0
}

// planeView returns the native bytes of a plane: linesize*rows for video
// (chroma subsampling included), the whole channel plane for audio.
func planeView(p avutil.Frame, plane int) ([]byte, error) {
	if plane < 0 {
		return nil, fmt.Errorf("plane %d: %w", plane, avutil.NewError(avutil.AVERROR_EINVAL, "frame data"))
	}
	if isAudioFrame(p) {
		planes := 1
		if avutil.SampleFmtIsPlanar(avutil.GetFrameFormat(p)) {
			planes = readChannelLayout(avutil.FrameChLayout(p)).NbChannels
		}
		data := avutil.GetFrameExtendedData(p)
		if plane >= planes || data == nil {
			return nil, nil
		}
		ptr := *(*unsafe.Pointer)(unsafe.Add(data, plane*int(unsafe.Sizeof(uintptr(0)))))
		size := int(avutil.GetFrameLinesize(p, 0))
		if ptr == nil || size <= 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(ptr), size), nil
	}
	if plane >= 4 {
		return nil, nil
	}
	ptr := avutil.GetFrameData(p, plane)
	if ptr == nil {
		return nil, nil
	}
	var linesizes [4]int32
	for i := range linesizes {
		linesizes[i] = avutil.GetFrameLinesize(p, i)
	}
	if linesizes[plane] <= 0 {
		return nil, nil
	}
	sizes, err := avutil.ImagePlaneSizes(avutil.GetFrameFormat(p), avutil.GetFrameHeight(p), linesizes)
	if err != nil {
		return nil, err
	}
	if sizes[plane] <= 0 {
		return nil, nil
	}
	return unsafe.Slice((*byte)(ptr), sizes[plane]), nil
}

// Data returns a copy of one plane, nil when the plane is absent.
func (f Frame) Data(plane int) []byte {
	p := f.ptr("Data")
	if p == nil {
		return nil
	}
	view, err := planeView(p, plane)
	if err != nil {
		f.logLookup("Frame.Data", err)
		return nil
	}
	if view == nil {
		return nil
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out
}

// SetData copies data into an allocated plane and returns the number of
// bytes written. Call GetBuffer and MakeWritable first.
func (f Frame) SetData(plane int, data []byte) (int, error) {
	p, err := f.get()
	if err != nil {
		return 0, err
	}
	view, err := planeView(p, plane)
	if err != nil {
		return 0, err
	}
	if view == nil {
		return 0, fmt.Errorf("plane %d is not allocated: %w", plane, avutil.NewError(avutil.AVERROR_EINVAL, "frame data"))
	}
	return copy(view, data), nil
}

func fromNoPTS(v int64) int64 {
	if v == avutil.NoPTSValue {
		return -1
	}
	return v
}

func toNoPTS(v int64) int64 {
	if v == -1 {
		return avutil.NoPTSValue
	}
	return v
}
