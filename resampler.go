//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/swresample"
	"github.com/xaionaro-go/xsync"
)

// AudioSpec is the sample rate, sample format and channel layout of audio.
type AudioSpec struct {
	SampleRate    int
	SampleFormat  SampleFormat
	ChannelLayout ChannelLayout
}

func (s AudioSpec) String() string {
	return fmt.Sprintf("%d Hz %s %s", s.SampleRate, avutil.GetSampleFmtName(int32(s.SampleFormat)), s.ChannelLayout)
}

func (s AudioSpec) valid() bool {
	return s.SampleRate > 0 && s.SampleFormat != SampleFormatNone && s.ChannelLayout.Valid()
}

// Resampler converts audio between sample rates, sample formats and
// channel layouts.
type Resampler struct{ resource }

type resamplerCell struct {
	mu      xsync.Mutex
	native  swresample.Context
	in, out AudioSpec

	// next pts of the output, in 1/out.SampleRate units
	nextPTS int64
}

// NewResampler creates and initializes a resampler from in to out.
func (b *Bridge) NewResampler(ctx context.Context, in, out AudioSpec) (Resampler, error) {
	if err := b.checkOpen(); err != nil {
		return Resampler{}, err
	}
	if err := swresample.Init(); err != nil {
		return Resampler{}, fmt.Errorf("loading libswresample: %w", err)
	}
	if !in.valid() || !out.valid() {
		return Resampler{}, fmt.Errorf("resampling %s to %s: %w", in, out, avutil.NewError(avutil.AVERROR_EINVAL, "swr_alloc_set_opts2"))
	}
	inLayout, outLayout := in.ChannelLayout.native(), out.ChannelLayout.native()
	var native swresample.Context
	err := swresample.AllocSetOpts2(&native,
		unsafe.Pointer(&outLayout), out.SampleFormat, int32(out.SampleRate),
		unsafe.Pointer(&inLayout), in.SampleFormat, int32(in.SampleRate),
	)
	if err != nil {
		swresample.Free(&native)
		return Resampler{}, err
	}
	if err := swresample.InitContext(native); err != nil {
		swresample.Free(&native)
		return Resampler{}, fmt.Errorf("resampling %s to %s: %w", in, out, err)
	}
	logger.Debugf(b.ctx(ctx), "NewResampler %s -> %s", in, out)
	cell := &resamplerCell{native: native, in: in, out: out}
	return Resampler{b.ref(b.resamplers.Insert(cell))}, nil
}

func (r Resampler) cell() (*resamplerCell, error) { return resolve(r.resource, tableResampler) }

// Valid reports whether the resampler is still alive.
func (r Resampler) Valid() bool { return contains(r.resource, tableResampler) }

// Input returns the input audio spec.
func (r Resampler) Input() AudioSpec {
	cell, err := r.cell()
	if err != nil {
		return AudioSpec{}
	}
	return cell.in
}

// Output returns the output audio spec.
func (r Resampler) Output() AudioSpec {
	cell, err := r.cell()
	if err != nil {
		return AudioSpec{}
	}
	return cell.out
}

// Destroy frees the resampler and any samples it still buffers.
func (r Resampler) Destroy(ctx context.Context) error {
	if r.b == nil {
		return ErrNilBridge
	}
	cell, err := r.b.resamplers.Remove(r.h)
	if err != nil {
		return err
	}
	cell.mu.Do(r.b.ctx(ctx), func() {
		swresample.Free(&cell.native)
	})
	return nil
}

// Delay returns the samples buffered inside the resampler, expressed in
// 1/base units. Pass the output sample rate to get output samples.
func (r Resampler) Delay(base int64) int64 {
	cell, err := r.cell()
	if err != nil {
		r.logLookup("Resampler.Delay", err)
		return 0
	}
	return xsync.DoR1(xsync.WithNoLogging(r.b.ctx(context.Background()), true), &cell.mu, func() int64 {
		return swresample.GetDelay(cell.native, base)
	})
}

// Convert resamples in into out, replacing out's buffer. out.NbSamples is
// set to the number of samples produced, which may be 0 while the
// resampler fills its internal buffer. The return value is that count.
func (r Resampler) Convert(ctx context.Context, in, out Frame) (int, error) {
	if err := r.sameBridge(in.resource); err != nil {
		return 0, err
	}
	f, err := in.get()
	if err != nil {
		return 0, err
	}
	cell, err := r.cell()
	if err != nil {
		return 0, err
	}
	got := AudioSpec{
		SampleRate:    int(avutil.GetFrameSampleRate(f)),
		SampleFormat:  SampleFormat(avutil.GetFrameFormat(f)),
		ChannelLayout: readChannelLayout(avutil.FrameChLayout(f)),
	}
	if got.SampleRate != cell.in.SampleRate || got.SampleFormat != cell.in.SampleFormat || got.ChannelLayout.NbChannels != cell.in.ChannelLayout.NbChannels {
		return 0, fmt.Errorf("input frame is %s, resampler expects %s: %w", got, cell.in, avutil.NewError(avutil.AVERROR_EINVAL, "swr_convert"))
	}
	return r.convert(ctx, cell, f, out)
}

// Flush drains the samples buffered inside the resampler into out.
func (r Resampler) Flush(ctx context.Context, out Frame) (int, error) {
	cell, err := r.cell()
	if err != nil {
		return 0, err
	}
	return r.convert(ctx, cell, nil, out)
}

func (r Resampler) convert(ctx context.Context, cell *resamplerCell, in avutil.Frame, out Frame) (int, error) {
	if err := r.sameBridge(out.resource); err != nil {
		return 0, err
	}
	o, err := out.get()
	if err != nil {
		return 0, err
	}
	return xsync.DoR2(xsync.WithNoLogging(r.b.ctx(ctx), true), &cell.mu, func() (int, error) {
		var (
			inData  unsafe.Pointer
			inCount int32
		)
		if in != nil {
			inData, inCount = avutil.GetFrameExtendedData(in), avutil.GetFrameNbSamples(in)
		}
		capacity := swresample.GetOutSamples(cell.native, int(inCount))
		if capacity <= 0 {
			capacity = int(inCount)
		}

		avutil.FrameUnref(o)
		avutil.SetFrameFormat(o, int32(cell.out.SampleFormat))
		avutil.SetFrameSampleRate(o, int32(cell.out.SampleRate))
		if err := writeChannelLayout(avutil.FrameChLayout(o), cell.out.ChannelLayout); err != nil {
			return 0, err
		}
		avutil.SetFrameTimeBase(o, Rational{Num: 1, Den: int32(cell.out.SampleRate)})
		if capacity <= 0 {
			avutil.SetFrameNbSamples(o, 0)
			return 0, nil
		}
		avutil.SetFrameNbSamples(o, int32(capacity))
		if err := avutil.FrameGetBuffer(o, 0); err != nil {
			return 0, err
		}

		n, err := swresample.Convert(cell.native, avutil.GetFrameExtendedData(o), int32(capacity), inData, inCount)
		if err != nil {
			return 0, err
		}
		avutil.SetFrameNbSamples(o, int32(n))
		avutil.SetFramePTS(o, cell.nextPTS)
		cell.nextPTS += int64(n)
		return n, nil
	})
}
