//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// BufferRef is an opaque FFmpeg AVBufferRef pointer.
type BufferRef = unsafe.Pointer

// HWDeviceContext is an AVBufferRef wrapping an AVHWDeviceContext.
type HWDeviceContext = BufferRef

// HWDeviceType mirrors enum AVHWDeviceType.
type HWDeviceType int32

const (
	HWDeviceTypeNone HWDeviceType = iota
	HWDeviceTypeVDPAU
	HWDeviceTypeCUDA
	HWDeviceTypeVAAPI
	HWDeviceTypeDXVA2
	HWDeviceTypeQSV
	HWDeviceTypeVideoToolbox
	HWDeviceTypeD3D11VA
	HWDeviceTypeDRM
	HWDeviceTypeOpenCL
	HWDeviceTypeMediaCodec
	HWDeviceTypeVulkan
)

var (
	avBufferRef   func(buf unsafe.Pointer) unsafe.Pointer
	avBufferUnref func(buf *unsafe.Pointer)

	avHWDeviceCtxCreate      func(deviceCtx *unsafe.Pointer, typ int32, device unsafe.Pointer, opts unsafe.Pointer, flags int32) int32
	avHWDeviceFindTypeByName func(name string) int32
	avHWDeviceGetTypeName    func(typ int32) unsafe.Pointer
	avHWDeviceIterateTypes   func(prev int32) int32
	avHWFrameTransferData    func(dst, src unsafe.Pointer, flags int32) int32
)

func registerHWBindings(lib uintptr) {
	purego.RegisterLibFunc(&avBufferRef, lib, "av_buffer_ref")
	purego.RegisterLibFunc(&avBufferUnref, lib, "av_buffer_unref")
	purego.RegisterLibFunc(&avHWDeviceCtxCreate, lib, "av_hwdevice_ctx_create")
	purego.RegisterLibFunc(&avHWDeviceFindTypeByName, lib, "av_hwdevice_find_type_by_name")
	purego.RegisterLibFunc(&avHWDeviceGetTypeName, lib, "av_hwdevice_get_type_name")
	purego.RegisterLibFunc(&avHWDeviceIterateTypes, lib, "av_hwdevice_iterate_types")
	purego.RegisterLibFunc(&avHWFrameTransferData, lib, "av_hwframe_transfer_data")
}

// NewBufferRef returns a new reference to buf, or nil.
func NewBufferRef(buf BufferRef) BufferRef {
	if buf == nil || avBufferRef == nil {
		return nil
	}
	return avBufferRef(buf)
}

// FreeBufferRef drops the reference and clears *buf.
func FreeBufferRef(buf *BufferRef) {
	if buf == nil || *buf == nil || avBufferUnref == nil {
		return
	}
	avBufferUnref(buf)
}

// HWDeviceCtxCreate opens a device of the given type. device may be empty
// for the default device; opts may be nil.
func HWDeviceCtxCreate(typ HWDeviceType, device string, opts Dictionary) (HWDeviceContext, error) {
	if avHWDeviceCtxCreate == nil {
		return nil, bindings.ErrNotLoaded
	}
	var dev unsafe.Pointer
	if device != "" {
		dev = Strdup(device)
		if dev == nil {
			return nil, NewError(AVERROR_ENOMEM, "av_hwdevice_ctx_create")
		}
		defer Free(dev)
	}
	var ref unsafe.Pointer
	if err := NewError(avHWDeviceCtxCreate(&ref, int32(typ), dev, opts, 0), "av_hwdevice_ctx_create"); err != nil {
		return nil, err
	}
	return ref, nil
}

// HWDeviceFindTypeByName returns HWDeviceTypeNone for unknown names.
func HWDeviceFindTypeByName(name string) HWDeviceType {
	if avHWDeviceFindTypeByName == nil {
		return HWDeviceTypeNone
	}
	return HWDeviceType(avHWDeviceFindTypeByName(name))
}

// HWDeviceGetTypeName returns "" for unknown types.
func HWDeviceGetTypeName(typ HWDeviceType) string {
	if avHWDeviceGetTypeName == nil {
		return ""
	}
	return GoString(avHWDeviceGetTypeName(int32(typ)))
}

// HWDeviceIterateTypes lists the device types this build of libavutil
// supports.
func HWDeviceIterateTypes() []HWDeviceType {
	if avHWDeviceIterateTypes == nil {
		return nil
	}
	var out []HWDeviceType
	t := int32(HWDeviceTypeNone)
	for {
		t = avHWDeviceIterateTypes(t)
		if t == int32(HWDeviceTypeNone) {
			return out
		}
		out = append(out, HWDeviceType(t))
	}
}

// AVFrame.hw_frames_ctx, FFmpeg 6.x.
const offsetFrameHWFramesCtx = 392

// GetFrameHWFramesCtx is non-nil only for frames in hardware memory.
func GetFrameHWFramesCtx(frame Frame) BufferRef {
	if frame == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(frame, offsetFrameHWFramesCtx))
}

// HWFrameTransferData copies frame data between hardware and system memory.
func HWFrameTransferData(dst, src Frame, flags int32) error {
	if avHWFrameTransferData == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avHWFrameTransferData(dst, src, flags), "av_hwframe_transfer_data")
}
