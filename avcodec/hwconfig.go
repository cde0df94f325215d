//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avutil"
)

// AVCodecContext hardware fields, FFmpeg 6.x.
const (
	offsetCtxHWFramesCtx = 840 // AVBufferRef *hw_frames_ctx
	offsetCtxHWDeviceCtx = 864 // AVBufferRef *hw_device_ctx
)

// AV_CODEC_HW_CONFIG_METHOD_*
const (
	HWConfigMethodHWDeviceCtx int32 = 0x01
	HWConfigMethodHWFramesCtx int32 = 0x02
	HWConfigMethodInternal    int32 = 0x04
	HWConfigMethodAdHoc       int32 = 0x08
)

// HWConfig is a copy of one AVCodecHWConfig entry.
type HWConfig struct {
	PixFmt     int32
	Methods    int32
	DeviceType avutil.HWDeviceType
}

var avcodecGetHWConfig func(codec unsafe.Pointer, index int32) unsafe.Pointer

func registerHWBindings(lib uintptr) {
	purego.RegisterLibFunc(&avcodecGetHWConfig, lib, "avcodec_get_hw_config")
}

// GetHWConfigs lists the hardware configurations codec supports.
func GetHWConfigs(codec Codec) []HWConfig {
	if codec == nil || avcodecGetHWConfig == nil {
		return nil
	}
	var out []HWConfig
	for i := int32(0); ; i++ {
		p := avcodecGetHWConfig(codec, i)
		if p == nil {
			return out
		}
		out = append(out, HWConfig{
			PixFmt:     *(*int32)(p),
			Methods:    *(*int32)(unsafe.Add(p, 4)),
			DeviceType: avutil.HWDeviceType(*(*int32)(unsafe.Add(p, 8))),
		})
	}
}

// SetCtxHWDeviceCtx stores a new reference to dev in ctx, dropping any
// previous one. The caller keeps its own reference.
func SetCtxHWDeviceCtx(ctx Context, dev avutil.HWDeviceContext) {
	if ctx == nil {
		return
	}
	slot := (*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxHWDeviceCtx))
	avutil.FreeBufferRef(slot)
	*slot = avutil.NewBufferRef(dev)
}

// GetCtxHWDeviceCtx returns the context's device reference without taking
// a new one.
func GetCtxHWDeviceCtx(ctx Context) avutil.HWDeviceContext {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxHWDeviceCtx))
}

// GetCtxHWFramesCtx returns the context's frames pool reference, set by
// the decoder once hardware decoding starts.
func GetCtxHWFramesCtx(ctx Context) avutil.BufferRef {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxHWFramesCtx))
}
