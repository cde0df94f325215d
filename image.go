//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
)

// bufferCell owns a native buffer that frames can point into.
type bufferCell struct {
	mu    sync.Mutex
	data  unsafe.Pointer
	size  int
	align int

	image ImageSpec

	sampleFormat SampleFormat
	layout       ChannelLayout
	nbSamples    int
	linesize     int32
}

func (cell *bufferCell) free() {
	cell.mu.Lock()
	defer cell.mu.Unlock()
	avutil.Free(cell.data)
	cell.data = nil
	cell.size = 0
}

func (cell *bufferCell) bytes() []byte {
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if cell.data == nil {
		return nil
	}
	out := make([]byte, cell.size)
	copy(out, unsafe.Slice((*byte)(cell.data), cell.size))
	return out
}

func (cell *bufferCell) setBytes(data []byte) int {
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if cell.data == nil {
		return 0
	}
	return copy(unsafe.Slice((*byte)(cell.data), cell.size), data)
}

func newBufferCell(size, align int) (*bufferCell, error) {
	data := avutil.Mallocz(uintptr(size))
	if data == nil {
		return nil, ErrOutOfMemory
	}
	return &bufferCell{data: data, size: size, align: align}, nil
}

// ImageBufferSize returns the bytes needed to hold a picture with rows
// aligned to align bytes.
func ImageBufferSize(spec ImageSpec, align int) (int, error) {
	return avutil.ImageGetBufferSize(int32(spec.PixelFormat), int32(spec.Width), int32(spec.Height), int32(align))
}

// ImageLineSize returns the bytes per row of one plane at width.
func ImageLineSize(format PixelFormat, width, plane int) (int, error) {
	return avutil.ImageGetLinesize(int32(format), int32(width), int32(plane))
}

// Image is a native picture buffer. Frames filled from it borrow the
// memory: unref them before destroying the Image.
type Image struct{ resource }

// NewImage allocates a zeroed picture buffer. align is the row alignment
// in bytes; 1 packs rows tightly.
func (b *Bridge) NewImage(spec ImageSpec, align int) (Image, error) {
	if err := b.checkOpen(); err != nil {
		return Image{}, err
	}
	if align <= 0 {
		align = 1
	}
	size, err := ImageBufferSize(spec, align)
	if err != nil {
		return Image{}, fmt.Errorf("image %s: %w", spec, err)
	}
	cell, err := newBufferCell(size, align)
	if err != nil {
		return Image{}, err
	}
	cell.image = spec
	return Image{b.ref(b.images.Insert(cell))}, nil
}

func (img Image) cell() (*bufferCell, error) { return resolve(img.resource, tableImage) }

func (img Image) Valid() bool { return contains(img.resource, tableImage) }

// Destroy frees the buffer.
func (img Image) Destroy() error {
	if img.b == nil {
		return ErrNilBridge
	}
	cell, err := img.b.images.Remove(img.h)
	if err != nil {
		return err
	}
	cell.free()
	return nil
}

func (img Image) Spec() ImageSpec {
	cell, err := img.cell()
	if err != nil {
		return ImageSpec{}
	}
	return cell.image
}

func (img Image) Align() int {
	cell, err := img.cell()
	if err != nil {
		return 0
	}
	return cell.align
}

// Size returns the buffer size in bytes.
func (img Image) Size() int {
	cell, err := img.cell()
	if err != nil {
		return 0
	}
	return cell.size
}

// Bytes returns a copy of the buffer.
func (img Image) Bytes() []byte {
	cell, err := img.cell()
	if err != nil {
		img.logLookup("Image.Bytes", err)
		return nil
	}
	return cell.bytes()
}

// SetBytes copies data into the buffer and returns the bytes copied.
func (img Image) SetBytes(data []byte) (int, error) {
	cell, err := img.cell()
	if err != nil {
		return 0, err
	}
	return cell.setBytes(data), nil
}

// LineSize returns the bytes per row of one plane.
func (img Image) LineSize(plane int) (int, error) {
	cell, err := img.cell()
	if err != nil {
		return 0, err
	}
	return ImageLineSize(cell.image.PixelFormat, cell.image.Width, plane)
}

// Fill points frame's planes into the image buffer and sets its geometry.
// The frame must not hold a buffer of its own.
func (img Image) Fill(frame Frame) error {
	if err := img.sameBridge(frame.resource); err != nil {
		return err
	}
	cell, err := img.cell()
	if err != nil {
		return err
	}
	f, err := frame.get()
	if err != nil {
		return err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	spec := cell.image
	_, err = avutil.ImageFillArrays(avutil.FrameDataArray(f), avutil.FrameLinesizeArray(f), cell.data,
		int32(spec.PixelFormat), int32(spec.Width), int32(spec.Height), int32(cell.align))
	if err != nil {
		return err
	}
	avutil.FrameUseDataAsExtended(f)
	avutil.SetFrameWidth(f, int32(spec.Width))
	avutil.SetFrameHeight(f, int32(spec.Height))
	avutil.SetFrameFormat(f, int32(spec.PixelFormat))
	return nil
}

// Read copies the planes of frame into the image buffer. The frame must
// match the image geometry.
func (img Image) Read(frame Frame) error {
	if err := img.sameBridge(frame.resource); err != nil {
		return err
	}
	cell, err := img.cell()
	if err != nil {
		return err
	}
	f, err := frame.get()
	if err != nil {
		return err
	}
	got := ImageSpec{int(avutil.GetFrameWidth(f)), int(avutil.GetFrameHeight(f)), PixelFormat(avutil.GetFrameFormat(f))}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if got != cell.image {
		return fmt.Errorf("frame is %s, image is %s: %w", got, cell.image, avutil.NewError(avutil.AVERROR_EINVAL, "av_image_copy_to_buffer"))
	}
	_, err = avutil.ImageCopyToBuffer(cell.data, cell.size, avutil.FrameDataArray(f), avutil.FrameLinesizeArray(f),
		int32(got.PixelFormat), int32(got.Width), int32(got.Height), int32(cell.align))
	return err
}

// SamplesBufferSize returns the bytes needed for nbSamples per channel.
func SamplesBufferSize(format SampleFormat, channels, nbSamples, align int) (int, error) {
	size, _, err := avutil.SamplesGetBufferSize(int32(channels), int32(nbSamples), int32(format), int32(align))
	return size, err
}

// Samples is a native audio buffer. Frames filled from it borrow the
// memory: unref them before destroying the Samples.
type Samples struct{ resource }

// NewSamples allocates a zeroed buffer for nbSamples per channel. align 0
// picks the default alignment, 1 packs planes tightly.
func (b *Bridge) NewSamples(format SampleFormat, layout ChannelLayout, nbSamples, align int) (Samples, error) {
	if err := b.checkOpen(); err != nil {
		return Samples{}, err
	}
	if !layout.Valid() {
		return Samples{}, fmt.Errorf("samples layout %s: %w", layout, avutil.NewError(avutil.AVERROR_EINVAL, "av_samples_get_buffer_size"))
	}
	if avutil.SampleFmtIsPlanar(int32(format)) && layout.NbChannels > avutil.NumDataPointers {
		return Samples{}, fmt.Errorf("planar samples with %d channels: %w", layout.NbChannels, avutil.NewError(avutil.AVERROR_ENOSYS, "av_samples_fill_arrays"))
	}
	size, linesize, err := avutil.SamplesGetBufferSize(int32(layout.NbChannels), int32(nbSamples), int32(format), int32(align))
	if err != nil {
		return Samples{}, err
	}
	cell, err := newBufferCell(size, align)
	if err != nil {
		return Samples{}, err
	}
	cell.sampleFormat = format
	cell.layout = layout
	cell.nbSamples = nbSamples
	cell.linesize = linesize
	return Samples{b.ref(b.samples.Insert(cell))}, nil
}

func (s Samples) cell() (*bufferCell, error) { return resolve(s.resource, tableSamples) }

func (s Samples) Valid() bool { return contains(s.resource, tableSamples) }

// Destroy frees the buffer.
func (s Samples) Destroy() error {
	if s.b == nil {
		return ErrNilBridge
	}
	cell, err := s.b.samples.Remove(s.h)
	if err != nil {
		return err
	}
	cell.free()
	return nil
}

func (s Samples) Size() int {
	cell, err := s.cell()
	if err != nil {
		return 0
	}
	return cell.size
}

func (s Samples) NbSamples() int {
	cell, err := s.cell()
	if err != nil {
		return 0
	}
	return cell.nbSamples
}

// Linesize returns the bytes per plane.
func (s Samples) Linesize() int {
	cell, err := s.cell()
	if err != nil {
		return 0
	}
	return int(cell.linesize)
}

// Bytes returns a copy of the buffer.
func (s Samples) Bytes() []byte {
	cell, err := s.cell()
	if err != nil {
		s.logLookup("Samples.Bytes", err)
		return nil
	}
	return cell.bytes()
}

// SetBytes copies data into the buffer and returns the bytes copied.
func (s Samples) SetBytes(data []byte) (int, error) {
	cell, err := s.cell()
	if err != nil {
		return 0, err
	}
	return cell.setBytes(data), nil
}

// Fill points frame's planes into the buffer and sets its sample format,
// channel layout and sample count. It returns the bytes addressed.
func (s Samples) Fill(frame Frame) (int, error) {
	if err := s.sameBridge(frame.resource); err != nil {
		return 0, err
	}
	cell, err := s.cell()
	if err != nil {
		return 0, err
	}
	f, err := frame.get()
	if err != nil {
		return 0, err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	n, err := avutil.SamplesFillArrays(avutil.FrameDataArray(f), (*int32)(avutil.FrameLinesizeArray(f)), cell.data,
		int32(cell.layout.NbChannels), int32(cell.nbSamples), int32(cell.sampleFormat), int32(cell.align))
	if err != nil {
		return 0, err
	}
	avutil.FrameUseDataAsExtended(f)
	avutil.SetFrameFormat(f, int32(cell.sampleFormat))
	avutil.SetFrameNbSamples(f, int32(cell.nbSamples))
	if err := writeChannelLayout(avutil.FrameChLayout(f), cell.layout); err != nil {
		return 0, err
	}
	return n, nil
}
