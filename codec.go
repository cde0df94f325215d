//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Codec describes a registered decoder or encoder.
type Codec struct {
	Name string
	ID   CodecID
	Type MediaType

	native avcodec.Codec
}

func codecFromNative(p avcodec.Codec) Codec {
	return Codec{
		Name:   avcodec.GetCodecName(p),
		ID:     avcodec.GetCodecID(p),
		Type:   avcodec.GetCodecType(p),
		native: p,
	}
}

// FindDecoder returns the default decoder for id.
func FindDecoder(id CodecID) (Codec, error) {
	p := avcodec.FindDecoder(id)
	if p == nil {
		return Codec{}, notFound(ErrDecoderNotFound, id)
	}
	return codecFromNative(p), nil
}

// FindDecoderByName returns a decoder by name, e.g. "h264".
func FindDecoderByName(name string) (Codec, error) {
	p := avcodec.FindDecoderByName(name)
	if p == nil {
		return Codec{}, notFound(ErrDecoderNotFound, name)
	}
	return codecFromNative(p), nil
}

// FindEncoder returns the default encoder for id.
func FindEncoder(id CodecID) (Codec, error) {
	p := avcodec.FindEncoder(id)
	if p == nil {
		return Codec{}, notFound(ErrEncoderNotFound, id)
	}
	return codecFromNative(p), nil
}

// FindEncoderByName returns an encoder by name, e.g. "libx264".
func FindEncoderByName(name string) (Codec, error) {
	p := avcodec.FindEncoderByName(name)
	if p == nil {
		return Codec{}, notFound(ErrEncoderNotFound, name)
	}
	return codecFromNative(p), nil
}

func (c Codec) Valid() bool { return c.native != nil }
func (c Codec) LongName() string { return avcodec.GetCodecLongName(c.native) }
func (c Codec) IsEncoder() bool { return avcodec.IsEncoder(c.native) }
func (c Codec) IsDecoder() bool { return avcodec.IsDecoder(c.native) }
func (c Codec) Capabilities() int32 { return avcodec.GetCodecCapabilities(c.native) }

func (c Codec) String() string {
	if c.native == nil {
		return "none"
	}
	return c.Name
}

// CodecContext is a decoder or encoder instance.
type CodecContext struct{ resource }

type codecCell struct {
	mu     xsync.Mutex
	native avcodec.Context
	codec  Codec
	opened atomic.Bool
}

// NewCodecContext allocates a context with the codec's defaults. Configure
// it with the setters or CodecParameters.ToContext, then call Open.
func (b *Bridge) NewCodecContext(ctx context.Context, codec Codec) (CodecContext, error) {
	if err := b.checkOpen(); err != nil {
		return CodecContext{}, err
	}
	if !codec.Valid() {
		return CodecContext{}, fmt.Errorf("%w: zero Codec", ErrDecoderNotFound)
	}
	native := avcodec.AllocContext3(codec.native)
	if native == nil {
		return CodecContext{}, ErrOutOfMemory
	}
	logger.Tracef(b.ctx(ctx), "NewCodecContext %s", codec.Name)
	cell := &codecCell{native: native, codec: codec}
	return CodecContext{b.ref(b.codecs.Insert(cell))}, nil
}

func (c CodecContext) cell() (*codecCell, error) { return resolve(c.resource, tableCodec) }

func (c CodecContext) ptr(op string) avcodec.Context {
	cell, err := c.cell()
	if err != nil {
		c.logLookup("CodecContext."+op, err)
		return nil
	}
	return cell.native
}

// Valid reports whether the context is still alive.
func (c CodecContext) Valid() bool { return contains(c.resource, tableCodec) }

// Codec returns the codec the context was allocated for.
func (c CodecContext) Codec() Codec {
	cell, err := c.cell()
	if err != nil {
		return Codec{}
	}
	return cell.codec
}

// IsOpen reports whether Open succeeded.
func (c CodecContext) IsOpen() bool {
	cell, err := c.cell()
	return err == nil && cell.opened.Load()
}

// Destroy frees the context.
func (c CodecContext) Destroy(ctx context.Context) error {
	if c.b == nil {
		return ErrNilBridge
	}
	cell, err := c.b.codecs.Remove(c.h)
	if err != nil {
		return err
	}
	cell.mu.Do(c.b.ctx(ctx), func() {
		avcodec.FreeContext(&cell.native)
	})
	return nil
}

// Open initializes the codec. On return options holds the entries the
// codec did not use.
func (c CodecContext) Open(ctx context.Context, options *Dictionary) (_err error) {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	ctx = c.b.ctx(ctx)
	logger.Tracef(ctx, "CodecContext.Open %s", cell.codec.Name)
	defer func() { logger.Tracef(ctx, "/CodecContext.Open %s: %v", cell.codec.Name, _err) }()

	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		err := options.withNative(c.resource, func(opts *avutil.Dictionary) error {
			return avcodec.Open2(cell.native, cell.codec.native, opts)
		})
		if err != nil {
			return fmt.Errorf("opening %s: %w", cell.codec.Name, err)
		}
		cell.opened.Store(true)
		return nil
	})
}

// openCell resolves the context and checks it was opened.
func (c CodecContext) openCell() (*codecCell, error) {
	cell, err := c.cell()
	if err != nil {
		return nil, err
	}
	if !cell.opened.Load() {
		return nil, ErrCodecNotOpen
	}
	return cell, nil
}

// SendPacket feeds a decoder. A nil packet starts draining.
//
// StatusNeedsDrain means the packet was refused until frames are received;
// send it again afterwards. StatusEndOfStream means the decoder was already
// drained.
func (c CodecContext) SendPacket(ctx context.Context, pkt *Packet) (Status, error) {
	cell, err := c.openCell()
	if err != nil {
		return StatusError, err
	}
	var p avcodec.Packet
	if pkt != nil {
		if err := c.sameBridge(pkt.resource); err != nil {
			return StatusError, err
		}
		if p, err = pkt.get(); err != nil {
			return StatusError, err
		}
	}
	return xsync.DoR2(xsync.WithNoLogging(c.b.ctx(ctx), true), &cell.mu, func() (Status, error) {
		return sendStatus(avcodec.SendPacket(cell.native, p))
	})
}

// ReceiveFrame pulls a decoded frame. A frame without a time base gets the
// context's, or failing that the packet time base.
func (c CodecContext) ReceiveFrame(ctx context.Context, frame Frame) (Status, error) {
	if err := c.sameBridge(frame.resource); err != nil {
		return StatusError, err
	}
	cell, err := c.openCell()
	if err != nil {
		return StatusError, err
	}
	f, err := frame.get()
	if err != nil {
		return StatusError, err
	}
	return xsync.DoR2(xsync.WithNoLogging(c.b.ctx(ctx), true), &cell.mu, func() (Status, error) {
		status, err := receiveStatus(avcodec.ReceiveFrame(cell.native, f))
		if status != StatusProduced {
			return status, err
		}
		if !avutil.GetFrameTimeBase(f).Valid() {
			tb := avcodec.GetCtxTimeBase(cell.native)
			if !tb.Valid() {
				tb = avcodec.GetCtxPktTimebase(cell.native)
			}
			avutil.SetFrameTimeBase(f, tb)
		}
		return status, nil
	})
}

// SendFrame feeds an encoder. A nil frame starts draining.
func (c CodecContext) SendFrame(ctx context.Context, frame *Frame) (Status, error) {
	cell, err := c.openCell()
	if err != nil {
		return StatusError, err
	}
	var f avutil.Frame
	if frame != nil {
		if err := c.sameBridge(frame.resource); err != nil {
			return StatusError, err
		}
		if f, err = frame.get(); err != nil {
			return StatusError, err
		}
	}
	return xsync.DoR2(xsync.WithNoLogging(c.b.ctx(ctx), true), &cell.mu, func() (Status, error) {
		return sendStatus(avcodec.SendFrame(cell.native, f))
	})
}

// ReceivePacket pulls an encoded packet. A packet without a time base gets
// the context's.
func (c CodecContext) ReceivePacket(ctx context.Context, pkt Packet) (Status, error) {
	if err := c.sameBridge(pkt.resource); err != nil {
		return StatusError, err
	}
	cell, err := c.openCell()
	if err != nil {
		return StatusError, err
	}
	p, err := pkt.get()
	if err != nil {
		return StatusError, err
	}
	return xsync.DoR2(xsync.WithNoLogging(c.b.ctx(ctx), true), &cell.mu, func() (Status, error) {
		status, err := receiveStatus(avcodec.ReceivePacket(cell.native, p))
		if status != StatusProduced {
			return status, err
		}
		if !avcodec.GetPacketTimeBase(p).Valid() {
			avcodec.SetPacketTimeBase(p, avcodec.GetCtxTimeBase(cell.native))
		}
		return status, nil
	})
}

// Flush drops buffered state, e.g. after a seek. It also ends draining.
func (c CodecContext) Flush(ctx context.Context) error {
	cell, err := c.openCell()
	if err != nil {
		return err
	}
	cell.mu.Do(xsync.WithNoLogging(c.b.ctx(ctx), true), func() {
		avcodec.FlushBuffers(cell.native)
	})
	return nil
}

func (c CodecContext) CodecType() MediaType { return avcodec.GetCtxCodecType(c.ptr("CodecType")) }
func (c CodecContext) CodecID() CodecID { return avcodec.GetCtxCodecID(c.ptr("CodecID")) }
func (c CodecContext) BitRate() int64 { return avcodec.GetCtxBitRate(c.ptr("BitRate")) }
func (c CodecContext) SetBitRate(v int64) { avcodec.SetCtxBitRate(c.ptr("SetBitRate"), v) }
func (c CodecContext) Flags() int32 { return avcodec.GetCtxFlags(c.ptr("Flags")) }
func (c CodecContext) SetFlags(v int32) { avcodec.SetCtxFlags(c.ptr("SetFlags"), v) }
func (c CodecContext) Width() int { return int(avcodec.GetCtxWidth(c.ptr("Width"))) }
func (c CodecContext) SetWidth(v int) { avcodec.SetCtxWidth(c.ptr("SetWidth"), int32(v)) }
func (c CodecContext) Height() int { return int(avcodec.GetCtxHeight(c.ptr("Height"))) }
func (c CodecContext) SetHeight(v int) { avcodec.SetCtxHeight(c.ptr("SetHeight"), int32(v)) }

func (c CodecContext) PixelFormat() PixelFormat {
	return PixelFormat(avcodec.GetCtxPixFmt(c.ptr("PixelFormat")))
}

func (c CodecContext) SetPixelFormat(f PixelFormat) {
	avcodec.SetCtxPixFmt(c.ptr("SetPixelFormat"), int32(f))
}

func (c CodecContext) SampleFormat() SampleFormat {
	return SampleFormat(avcodec.GetCtxSampleFmt(c.ptr("SampleFormat")))
}

func (c CodecContext) SetSampleFormat(f SampleFormat) {
	avcodec.SetCtxSampleFmt(c.ptr("SetSampleFormat"), int32(f))
}

func (c CodecContext) SampleRate() int { return int(avcodec.GetCtxSampleRate(c.ptr("SampleRate"))) }
func (c CodecContext) SetSampleRate(v int) { avcodec.SetCtxSampleRate(c.ptr("SetSampleRate"), int32(v)) }

func (c CodecContext) ChannelLayout() ChannelLayout {
	return readChannelLayout(avcodec.GetCtxChLayout(c.ptr("ChannelLayout")))
}

func (c CodecContext) SetChannelLayout(l ChannelLayout) error {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	return writeChannelLayout(avcodec.GetCtxChLayout(cell.native), l)
}

func (c CodecContext) TimeBase() Rational { return avcodec.GetCtxTimeBase(c.ptr("TimeBase")) }
func (c CodecContext) SetTimeBase(tb Rational) { avcodec.SetCtxTimeBase(c.ptr("SetTimeBase"), tb) }

// PacketTimeBase is the time base of packets sent to a decoder.
func (c CodecContext) PacketTimeBase() Rational {
	return avcodec.GetCtxPktTimebase(c.ptr("PacketTimeBase"))
}

func (c CodecContext) SetPacketTimeBase(tb Rational) {
	avcodec.SetCtxPktTimebase(c.ptr("SetPacketTimeBase"), tb)
}

func (c CodecContext) Framerate() Rational { return avcodec.GetCtxFramerate(c.ptr("Framerate")) }
func (c CodecContext) SetFramerate(r Rational) { avcodec.SetCtxFramerate(c.ptr("SetFramerate"), r) }
func (c CodecContext) GopSize() int { return int(avcodec.GetCtxGopSize(c.ptr("GopSize"))) }
func (c CodecContext) SetGopSize(v int) { avcodec.SetCtxGopSize(c.ptr("SetGopSize"), int32(v)) }
func (c CodecContext) MaxBFrames() int { return int(avcodec.GetCtxMaxBFrames(c.ptr("MaxBFrames"))) }
func (c CodecContext) SetMaxBFrames(v int) { avcodec.SetCtxMaxBFrames(c.ptr("SetMaxBFrames"), int32(v)) }

// FrameSize is the number of samples per channel an audio encoder expects
// in each frame, 0 when any size is accepted.
func (c CodecContext) FrameSize() int { return int(avcodec.GetCtxFrameSize(c.ptr("FrameSize"))) }

func (c CodecContext) Extradata() []byte { return avcodec.GetCtxExtradata(c.ptr("Extradata")) }

func (c CodecContext) SetExtradata(data []byte) error {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	return avcodec.SetCtxExtradata(cell.native, data)
}
