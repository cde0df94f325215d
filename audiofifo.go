//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/xaionaro-go/xsync"
)

// AudioFIFO buffers samples so they can be regrouped into frames of a
// different size, e.g. an encoder's FrameSize.
type AudioFIFO struct{ resource }

type fifoCell struct {
	mu       xsync.Mutex
	native   avutil.AudioFIFO
	format   SampleFormat
	channels int
}

// NewAudioFIFO allocates a FIFO for format and channels with room for
// nbSamples; it grows on Write.
func (b *Bridge) NewAudioFIFO(ctx context.Context, format SampleFormat, channels, nbSamples int) (AudioFIFO, error) {
	if err := b.checkOpen(); err != nil {
		return AudioFIFO{}, err
	}
	if channels <= 0 || format == SampleFormatNone {
		return AudioFIFO{}, fmt.Errorf("audio fifo %d channels: %w", channels, avutil.NewError(avutil.AVERROR_EINVAL, "av_audio_fifo_alloc"))
	}
	native := avutil.AudioFIFOAlloc(int32(format), int32(channels), int32(max(nbSamples, 1)))
	if native == nil {
		return AudioFIFO{}, ErrOutOfMemory
	}
	cell := &fifoCell{native: native, format: format, channels: channels}
	return AudioFIFO{b.ref(b.fifos.Insert(cell))}, nil
}

func (a AudioFIFO) cell() (*fifoCell, error) { return resolve(a.resource, tableFIFO) }

// Valid reports whether the FIFO is still alive.
func (a AudioFIFO) Valid() bool { return contains(a.resource, tableFIFO) }

// Destroy frees the FIFO and the samples in it.
func (a AudioFIFO) Destroy(ctx context.Context) error {
	if a.b == nil {
		return ErrNilBridge
	}
	cell, err := a.b.fifos.Remove(a.h)
	if err != nil {
		return err
	}
	cell.mu.Do(a.b.ctx(ctx), func() {
		avutil.AudioFIFOFree(cell.native)
		cell.native = nil
	})
	return nil
}

func (a AudioFIFO) locked(fn func(cell *fifoCell) (int, error)) (int, error) {
	cell, err := a.cell()
	if err != nil {
		return 0, err
	}
	return xsync.DoR2(xsync.WithNoLogging(a.b.ctx(context.Background()), true), &cell.mu, func() (int, error) {
		return fn(cell)
	})
}

// Write appends every sample of frame.
func (a AudioFIFO) Write(frame Frame) (int, error) {
	if err := a.sameBridge(frame.resource); err != nil {
		return 0, err
	}
	f, err := frame.get()
	if err != nil {
		return 0, err
	}
	return a.locked(func(cell *fifoCell) (int, error) {
		if got := SampleFormat(avutil.GetFrameFormat(f)); got != cell.format {
			return 0, fmt.Errorf("frame sample format %d, fifo holds %d: %w", got, cell.format, avutil.NewError(avutil.AVERROR_EINVAL, "av_audio_fifo_write"))
		}
		if got := readChannelLayout(avutil.FrameChLayout(f)).NbChannels; got != cell.channels {
			return 0, fmt.Errorf("frame has %d channels, fifo holds %d: %w", got, cell.channels, avutil.NewError(avutil.AVERROR_EINVAL, "av_audio_fifo_write"))
		}
		return avutil.AudioFIFOWrite(cell.native, avutil.GetFrameExtendedData(f), avutil.GetFrameNbSamples(f))
	})
}

// Read removes up to n samples into frame, replacing its buffer, and sets
// the frame's NbSamples to the count read.
func (a AudioFIFO) Read(frame Frame, n int) (int, error) {
	return a.take(frame, n, avutil.AudioFIFORead)
}

// Peek is Read without consuming the samples.
func (a AudioFIFO) Peek(frame Frame, n int) (int, error) {
	return a.take(frame, n, avutil.AudioFIFOPeek)
}

func (a AudioFIFO) take(frame Frame, n int, op func(avutil.AudioFIFO, unsafe.Pointer, int32) (int, error)) (int, error) {
	if err := a.sameBridge(frame.resource); err != nil {
		return 0, err
	}
	f, err := frame.get()
	if err != nil {
		return 0, err
	}
	return a.locked(func(cell *fifoCell) (int, error) {
		n = min(n, avutil.AudioFIFOSize(cell.native))
		if n <= 0 {
			avutil.SetFrameNbSamples(f, 0)
			return 0, nil
		}
		layout := readChannelLayout(avutil.FrameChLayout(f))
		if layout.NbChannels != cell.channels {
			layout = DefaultChannelLayout(cell.channels)
		}
		avutil.FrameUnref(f)
		avutil.SetFrameFormat(f, int32(cell.format))
		if err := writeChannelLayout(avutil.FrameChLayout(f), layout); err != nil {
			return 0, err
		}
		avutil.SetFrameNbSamples(f, int32(n))
		if err := avutil.FrameGetBuffer(f, 0); err != nil {
			return 0, err
		}
		got, err := op(cell.native, avutil.GetFrameExtendedData(f), int32(n))
		if err != nil {
			return 0, err
		}
		avutil.SetFrameNbSamples(f, int32(got))
		return got, nil
	})
}

// Drain discards up to n samples.
func (a AudioFIFO) Drain(n int) error {
	_, err := a.locked(func(cell *fifoCell) (int, error) {
		n = min(n, avutil.AudioFIFOSize(cell.native))
		if n <= 0 {
			return 0, nil
		}
		return n, avutil.AudioFIFODrain(cell.native, int32(n))
	})
	return err
}

// Reset discards every sample.
func (a AudioFIFO) Reset() error {
	_, err := a.locked(func(cell *fifoCell) (int, error) {
		avutil.AudioFIFOReset(cell.native)
		return 0, nil
	})
	return err
}

// Size returns the number of buffered samples per channel.
func (a AudioFIFO) Size() int {
	n, err := a.locked(func(cell *fifoCell) (int, error) {
		return avutil.AudioFIFOSize(cell.native), nil
	})
	if err != nil {
		a.logLookup("AudioFIFO.Size", err)
	}
	return n
}

// Space returns how many samples fit before the FIFO grows.
func (a AudioFIFO) Space() int {
	n, err := a.locked(func(cell *fifoCell) (int, error) {
		return avutil.AudioFIFOSpace(cell.native), nil
	})
	if err != nil {
		a.logLookup("AudioFIFO.Space", err)
	}
	return n
}
