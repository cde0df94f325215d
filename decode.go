//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// OpenDecoder creates and opens a decoder for stream index of fc. The
// decoder's packet time base is the stream's.
func (b *Bridge) OpenDecoder(ctx context.Context, fc FormatContext, index int) (_ CodecContext, _err error) {
	st, err := fc.Stream(index)
	if err != nil {
		return CodecContext{}, err
	}
	par := st.CodecParameters()
	codec, err := FindDecoder(par.CodecID())
	if err != nil {
		return CodecContext{}, err
	}
	cc, err := b.NewCodecContext(ctx, codec)
	if err != nil {
		return CodecContext{}, err
	}
	defer func() {
		if _err != nil {
			_ = cc.Destroy(ctx)
		}
	}()
	if err := par.ToContext(cc); err != nil {
		return CodecContext{}, err
	}
	cc.SetPacketTimeBase(st.TimeBase())
	if err := cc.Open(ctx, nil); err != nil {
		return CodecContext{}, err
	}
	return cc, nil
}

// DecodeStream decodes every packet of stream index and calls fn with each
// frame. The frame is reused: Ref it to keep it past fn. Decoding stops at
// the end of the input, on the first error, or when fn fails. It returns
// the number of frames decoded.
func (b *Bridge) DecodeStream(ctx context.Context, fc FormatContext, index int, fn func(Frame) error) (_ int, _err error) {
	ctx = b.ctx(ctx)
	logger.Debugf(ctx, "DecodeStream %d", index)
	var count int
	defer func() { logger.Debugf(ctx, "/DecodeStream %d: %d frames, %v", index, count, _err) }()

	cc, err := b.OpenDecoder(ctx, fc, index)
	if err != nil {
		return 0, err
	}
	defer cc.Destroy(ctx)

	pkt, err := b.NewPacket()
	if err != nil {
		return 0, err
	}
	defer pkt.Destroy()
	frame, err := b.NewFrame()
	if err != nil {
		return 0, err
	}
	defer frame.Destroy()

	receive := func() (Status, error) {
		for {
			status, err := cc.ReceiveFrame(ctx, frame)
			if !status.Produced() {
				return status, err
			}
			count++
			if fn != nil {
				if err := fn(frame); err != nil {
					return StatusError, err
				}
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		status, err := fc.ReadFrame(ctx, pkt)
		if err != nil {
			return count, fmt.Errorf("reading: %w", err)
		}
		if status == StatusEndOfStream {
			break
		}
		if !status.Produced() || pkt.StreamIndex() != index {
			continue
		}
		for {
			sent, err := cc.SendPacket(ctx, &pkt)
			if err != nil {
				return count, fmt.Errorf("decoding: %w", err)
			}
			if _, err := receive(); err != nil {
				return count, err
			}
			if sent != StatusNeedsDrain {
				break
			}
		}
	}

	if _, err := cc.SendPacket(ctx, nil); err != nil {
		return count, fmt.Errorf("draining: %w", err)
	}
	if _, err := receive(); err != nil {
		return count, err
	}
	return count, nil
}
