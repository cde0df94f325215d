//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/swscale"
	"github.com/xaionaro-go/xsync"
)

// ImageSpec is the geometry and pixel format of a picture.
type ImageSpec struct {
	Width       int
	Height      int
	PixelFormat PixelFormat
}

func (s ImageSpec) String() string {
	return fmt.Sprintf("%dx%d %s", s.Width, s.Height, avutil.GetPixFmtName(int32(s.PixelFormat)))
}

func (s ImageSpec) valid() bool {
	return s.Width > 0 && s.Height > 0 && s.PixelFormat != PixelFormatNone
}

// Scaler converts pictures between sizes and pixel formats.
type Scaler struct{ resource }

type scalerCell struct {
	mu       xsync.Mutex
	native   swscale.Context
	src, dst ImageSpec
}

// NewScaler creates a scaler from src to dst. Zero flags selects bicubic
// interpolation.
func (b *Bridge) NewScaler(ctx context.Context, src, dst ImageSpec, flags int32) (Scaler, error) {
	if err := b.checkOpen(); err != nil {
		return Scaler{}, err
	}
	if err := swscale.Init(); err != nil {
		return Scaler{}, fmt.Errorf("loading libswscale: %w", err)
	}
	if !src.valid() || !dst.valid() {
		return Scaler{}, fmt.Errorf("scaling %s to %s: %w", src, dst, avutil.NewError(avutil.AVERROR_EINVAL, "sws_getContext"))
	}
	if flags == 0 {
		flags = swscale.FlagBicubic
	}
	native := swscale.GetContext(src.Width, src.Height, src.PixelFormat, dst.Width, dst.Height, dst.PixelFormat, flags)
	if native == nil {
		return Scaler{}, fmt.Errorf("scaling %s to %s is not supported: %w", src, dst, avutil.NewError(avutil.AVERROR_EINVAL, "sws_getContext"))
	}
	logger.Debugf(b.ctx(ctx), "NewScaler %s -> %s flags=%#x", src, dst, flags)
	cell := &scalerCell{native: native, src: src, dst: dst}
	return Scaler{b.ref(b.scalers.Insert(cell))}, nil
}

func (s Scaler) cell() (*scalerCell, error) { return resolve(s.resource, tableScaler) }

// Valid reports whether the scaler is still alive.
func (s Scaler) Valid() bool { return contains(s.resource, tableScaler) }

// Source returns the input geometry.
func (s Scaler) Source() ImageSpec {
	cell, err := s.cell()
	if err != nil {
		return ImageSpec{}
	}
	return cell.src
}

// Destination returns the output geometry.
func (s Scaler) Destination() ImageSpec {
	cell, err := s.cell()
	if err != nil {
		return ImageSpec{}
	}
	return cell.dst
}

// Destroy frees the scaler.
func (s Scaler) Destroy(ctx context.Context) error {
	if s.b == nil {
		return ErrNilBridge
	}
	cell, err := s.b.scalers.Remove(s.h)
	if err != nil {
		return err
	}
	cell.mu.Do(s.b.ctx(ctx), func() {
		swscale.FreeContext(cell.native)
		cell.native = nil
	})
	return nil
}

// Scale converts rows [y, y+h) of src into dst and returns the number of
// output rows written. Bands must be passed top to bottom. dst gets src's
// properties; its buffer is allocated at the destination geometry when it
// has none, and must match that geometry when it has one.
func (s Scaler) Scale(ctx context.Context, src Frame, y, h int, dst Frame) (int, error) {
	if err := s.sameBridge(src.resource); err != nil {
		return 0, err
	}
	if err := s.sameBridge(dst.resource); err != nil {
		return 0, err
	}
	cell, err := s.cell()
	if err != nil {
		return 0, err
	}
	sf, err := src.get()
	if err != nil {
		return 0, err
	}
	df, err := dst.get()
	if err != nil {
		return 0, err
	}
	got := ImageSpec{int(avutil.GetFrameWidth(sf)), int(avutil.GetFrameHeight(sf)), PixelFormat(avutil.GetFrameFormat(sf))}
	if got != cell.src {
		return 0, fmt.Errorf("source frame is %s, scaler expects %s: %w", got, cell.src, avutil.NewError(avutil.AVERROR_EINVAL, "sws_scale"))
	}
	if y < 0 || h <= 0 || y+h > cell.src.Height {
		return 0, fmt.Errorf("band %d+%d outside %d rows: %w", y, h, cell.src.Height, avutil.NewError(avutil.AVERROR_EINVAL, "sws_scale"))
	}
	return xsync.DoR2(xsync.WithNoLogging(s.b.ctx(ctx), true), &cell.mu, func() (int, error) {
		if avutil.GetFrameData(df, 0) == nil {
			avutil.SetFrameWidth(df, int32(cell.dst.Width))
			avutil.SetFrameHeight(df, int32(cell.dst.Height))
			avutil.SetFrameFormat(df, int32(cell.dst.PixelFormat))
			if err := avutil.FrameGetBuffer(df, 0); err != nil {
				return 0, err
			}
		} else {
			have := ImageSpec{int(avutil.GetFrameWidth(df)), int(avutil.GetFrameHeight(df)), PixelFormat(avutil.GetFrameFormat(df))}
			if have != cell.dst {
				return 0, fmt.Errorf("destination frame is %s, scaler produces %s: %w", have, cell.dst, avutil.NewError(avutil.AVERROR_EINVAL, "sws_scale"))
			}
			if err := avutil.FrameMakeWritable(df); err != nil {
				return 0, err
			}
		}
		if err := avutil.FrameCopyProps(df, sf); err != nil {
			return 0, err
		}
		return swscale.Scale(cell.native,
			avutil.FrameDataArray(sf), avutil.FrameLinesizeArray(sf),
			int32(y), int32(h),
			avutil.FrameDataArray(df), avutil.FrameLinesizeArray(df),
		)
	})
}

// ScaleFrame converts the whole of src into dst.
func (s Scaler) ScaleFrame(ctx context.Context, src, dst Frame) error {
	cell, err := s.cell()
	if err != nil {
		return err
	}
	_, err = s.Scale(ctx, src, 0, cell.src.Height, dst)
	return err
}
