//go:build !ios && !android && (amd64 || arm64)

// Package avcodec binds libavcodec: codec lookup, codec contexts, the
// send/receive pumps, packets with side data, and codec parameters.
package avcodec

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// Codec is an opaque FFmpeg AVCodec pointer.
type Codec = unsafe.Pointer

// Context is an opaque FFmpeg AVCodecContext pointer.
type Context = unsafe.Pointer

// Packet is an opaque FFmpeg AVPacket pointer.
type Packet = unsafe.Pointer

// Parameters is an opaque FFmpeg AVCodecParameters pointer.
type Parameters = unsafe.Pointer

var (
	avcodecFindDecoder       func(id int32) unsafe.Pointer
	avcodecFindEncoder       func(id int32) unsafe.Pointer
	avcodecFindDecoderByName func(name string) unsafe.Pointer
	avcodecFindEncoderByName func(name string) unsafe.Pointer
	avcodecGetName           func(id int32) unsafe.Pointer
	avCodecIsEncoder         func(codec unsafe.Pointer) int32
	avCodecIsDecoder         func(codec unsafe.Pointer) int32

	avcodecAllocContext3 func(codec unsafe.Pointer) unsafe.Pointer
	avcodecFreeContext   func(ctx *unsafe.Pointer)
	avcodecOpen2         func(ctx, codec unsafe.Pointer, options *unsafe.Pointer) int32
	avcodecSendPacket    func(ctx, pkt unsafe.Pointer) int32
	avcodecReceiveFrame  func(ctx, frame unsafe.Pointer) int32
	avcodecSendFrame     func(ctx, frame unsafe.Pointer) int32
	avcodecReceivePacket func(ctx, pkt unsafe.Pointer) int32
	avcodecFlushBuffers  func(ctx unsafe.Pointer)

	avcodecParametersAlloc   func() unsafe.Pointer
	avcodecParametersFree    func(par *unsafe.Pointer)
	avcodecParametersToCtx   func(ctx, par unsafe.Pointer) int32
	avcodecParametersFromCtx func(par, ctx unsafe.Pointer) int32
	avcodecParametersCopy    func(dst, src unsafe.Pointer) int32

	avPacketAlloc        func() unsafe.Pointer
	avPacketFree         func(pkt *unsafe.Pointer)
	avPacketRef          func(dst, src unsafe.Pointer) int32
	avPacketUnref        func(pkt unsafe.Pointer)
	avNewPacket          func(pkt unsafe.Pointer, size int32) int32
	avPacketMakeWritable func(pkt unsafe.Pointer) int32
	avPacketNewSideData  func(pkt unsafe.Pointer, typ int32, size uintptr) unsafe.Pointer
	avPacketGetSideData  func(pkt unsafe.Pointer, typ int32, size *uintptr) unsafe.Pointer
	avPacketSideDataName func(typ int32) unsafe.Pointer
	avPacketFreeSideData func(pkt unsafe.Pointer)

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

var bindMu sync.Mutex

// Bind registers the function bindings, retrying the library load when it
// failed at package init (for example before a search path was added).
func Bind() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	bindMu.Lock()
	defer bindMu.Unlock()
	registerBindings()
	return nil
}

func registerBindings() {
	if bindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVCodec()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avcodecFindDecoder, lib, "avcodec_find_decoder")
	purego.RegisterLibFunc(&avcodecFindEncoder, lib, "avcodec_find_encoder")
	purego.RegisterLibFunc(&avcodecFindDecoderByName, lib, "avcodec_find_decoder_by_name")
	purego.RegisterLibFunc(&avcodecFindEncoderByName, lib, "avcodec_find_encoder_by_name")
	purego.RegisterLibFunc(&avcodecGetName, lib, "avcodec_get_name")
	purego.RegisterLibFunc(&avCodecIsEncoder, lib, "av_codec_is_encoder")
	purego.RegisterLibFunc(&avCodecIsDecoder, lib, "av_codec_is_decoder")

	purego.RegisterLibFunc(&avcodecAllocContext3, lib, "avcodec_alloc_context3")
	purego.RegisterLibFunc(&avcodecFreeContext, lib, "avcodec_free_context")
	purego.RegisterLibFunc(&avcodecOpen2, lib, "avcodec_open2")
	purego.RegisterLibFunc(&avcodecSendPacket, lib, "avcodec_send_packet")
	purego.RegisterLibFunc(&avcodecReceiveFrame, lib, "avcodec_receive_frame")
	purego.RegisterLibFunc(&avcodecSendFrame, lib, "avcodec_send_frame")
	purego.RegisterLibFunc(&avcodecReceivePacket, lib, "avcodec_receive_packet")
	purego.RegisterLibFunc(&avcodecFlushBuffers, lib, "avcodec_flush_buffers")

	purego.RegisterLibFunc(&avcodecParametersAlloc, lib, "avcodec_parameters_alloc")
	purego.RegisterLibFunc(&avcodecParametersFree, lib, "avcodec_parameters_free")
	purego.RegisterLibFunc(&avcodecParametersToCtx, lib, "avcodec_parameters_to_context")
	purego.RegisterLibFunc(&avcodecParametersFromCtx, lib, "avcodec_parameters_from_context")
	purego.RegisterLibFunc(&avcodecParametersCopy, lib, "avcodec_parameters_copy")

	purego.RegisterLibFunc(&avPacketAlloc, lib, "av_packet_alloc")
	purego.RegisterLibFunc(&avPacketFree, lib, "av_packet_free")
	purego.RegisterLibFunc(&avPacketRef, lib, "av_packet_ref")
	purego.RegisterLibFunc(&avPacketUnref, lib, "av_packet_unref")
	purego.RegisterLibFunc(&avNewPacket, lib, "av_new_packet")
	purego.RegisterLibFunc(&avPacketMakeWritable, lib, "av_packet_make_writable")
	purego.RegisterLibFunc(&avPacketNewSideData, lib, "av_packet_new_side_data")
	purego.RegisterLibFunc(&avPacketGetSideData, lib, "av_packet_get_side_data")
	purego.RegisterLibFunc(&avPacketSideDataName, lib, "av_packet_side_data_name")
	purego.RegisterLibFunc(&avPacketFreeSideData, lib, "av_packet_free_side_data")

	registerHWBindings(lib)

	bindingsRegistered = true
}

// AVCodec field offsets. The public part of AVCodec has been stable since
// FFmpeg 4.
const (
	offsetCodecName         = 0
	offsetCodecLongName     = 8
	offsetCodecType         = 16
	offsetCodecID           = 20
	offsetCodecCapabilities = 24
)

// Codec capability flags (AV_CODEC_CAP_*).
const (
	CapDraw1Horiz        int32 = 1 << 0
	CapDR1               int32 = 1 << 1
	CapDelay             int32 = 1 << 5
	CapSmallLastFrame    int32 = 1 << 6
	CapVariableFrameSize int32 = 1 << 16
)

// FindDecoder finds a decoder by codec ID. Returns nil when none exists.
func FindDecoder(id CodecID) Codec {
	if avcodecFindDecoder == nil {
		return nil
	}
	return avcodecFindDecoder(int32(id))
}

// FindEncoder finds an encoder by codec ID. Returns nil when none exists.
func FindEncoder(id CodecID) Codec {
	if avcodecFindEncoder == nil {
		return nil
	}
	return avcodecFindEncoder(int32(id))
}

// FindDecoderByName finds a decoder by its registered name.
func FindDecoderByName(name string) Codec {
	if avcodecFindDecoderByName == nil {
		return nil
	}
	return avcodecFindDecoderByName(name)
}

// FindEncoderByName finds an encoder by its registered name.
func FindEncoderByName(name string) Codec {
	if avcodecFindEncoderByName == nil {
		return nil
	}
	return avcodecFindEncoderByName(name)
}

// GetCodecName returns AVCodec.name, e.g. "h264" or "libx264".
func GetCodecName(codec Codec) string {
	if codec == nil {
		return ""
	}
	return avutil.GoString(*(*unsafe.Pointer)(unsafe.Add(codec, offsetCodecName)))
}

// GetCodecLongName returns AVCodec.long_name.
func GetCodecLongName(codec Codec) string {
	if codec == nil {
		return ""
	}
	return avutil.GoString(*(*unsafe.Pointer)(unsafe.Add(codec, offsetCodecLongName)))
}

// GetCodecType returns the media type handled by the codec.
func GetCodecType(codec Codec) avutil.MediaType {
	if codec == nil {
		return avutil.MediaTypeUnknown
	}
	return avutil.MediaType(*(*int32)(unsafe.Add(codec, offsetCodecType)))
}

// GetCodecID returns the codec ID implemented by the codec.
func GetCodecID(codec Codec) CodecID {
	if codec == nil {
		return CodecIDNone
	}
	return CodecID(*(*int32)(unsafe.Add(codec, offsetCodecID)))
}

// GetCodecCapabilities returns the AV_CODEC_CAP_* bits of the codec.
func GetCodecCapabilities(codec Codec) int32 {
	if codec == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(codec, offsetCodecCapabilities))
}

// IsEncoder reports whether codec is an encoder.
func IsEncoder(codec Codec) bool {
	return codec != nil && avCodecIsEncoder != nil && avCodecIsEncoder(codec) != 0
}

// IsDecoder reports whether codec is a decoder.
func IsDecoder(codec Codec) bool {
	return codec != nil && avCodecIsDecoder != nil && avCodecIsDecoder(codec) != 0
}

// GetName returns the canonical name of a codec ID, independent of any
// implementation.
func GetName(id CodecID) string {
	if avcodecGetName == nil {
		return ""
	}
	return avutil.GoString(avcodecGetName(int32(id)))
}

// AllocContext3 allocates a codec context with defaults for codec, which may
// be nil.
func AllocContext3(codec Codec) Context {
	if avcodecAllocContext3 == nil {
		return nil
	}
	return avcodecAllocContext3(codec)
}

// FreeContext frees a codec context and sets the pointer to nil.
func FreeContext(ctx *Context) {
	if ctx == nil || *ctx == nil || avcodecFreeContext == nil {
		return
	}

	// Passing a pointer into Go memory that the callee writes through has
	// aborted under some libffi backends; stage it in native memory.
	tmp := avutil.Malloc(unsafe.Sizeof(uintptr(0)))
	if tmp == nil {
		avcodecFreeContext(ctx)
		*ctx = nil
		return
	}
	*(*unsafe.Pointer)(tmp) = *ctx
	avcodecFreeContext((*unsafe.Pointer)(tmp))
	avutil.Free(tmp)
	*ctx = nil
}

// Open2 opens a codec context. On return options holds the entries the
// codec did not consume.
func Open2(ctx Context, codec Codec, options *avutil.Dictionary) error {
	if avcodecOpen2 == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecOpen2(ctx, codec, options), "avcodec_open2")
}

// SendPacket feeds a packet to a decoder; nil enters draining mode.
// EAGAIN and EOF are returned as errors so callers can tell them apart.
func SendPacket(ctx Context, pkt Packet) error {
	if avcodecSendPacket == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecSendPacket(ctx, pkt), "avcodec_send_packet")
}

// ReceiveFrame pulls one decoded frame.
func ReceiveFrame(ctx Context, frame avutil.Frame) error {
	if avcodecReceiveFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecReceiveFrame(ctx, frame), "avcodec_receive_frame")
}

// SendFrame feeds a frame to an encoder; nil enters draining mode.
func SendFrame(ctx Context, frame avutil.Frame) error {
	if avcodecSendFrame == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecSendFrame(ctx, frame), "avcodec_send_frame")
}

// ReceivePacket pulls one encoded packet.
func ReceivePacket(ctx Context, pkt Packet) error {
	if avcodecReceivePacket == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecReceivePacket(ctx, pkt), "avcodec_receive_packet")
}

// FlushBuffers resets the internal codec state.
func FlushBuffers(ctx Context) {
	if ctx == nil || avcodecFlushBuffers == nil {
		return
	}
	avcodecFlushBuffers(ctx)
}
