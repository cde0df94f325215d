//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// AVCodecParameters field offsets (avcodec 60).
const (
	offsetParCodecType     = 0
	offsetParCodecID       = 4
	offsetParCodecTag      = 8
	offsetParExtradata     = 16
	offsetParExtradataSize = 24
	offsetParFormat        = 28
	offsetParBitRate       = 32
	offsetParProfile       = 48
	offsetParLevel         = 52
	offsetParWidth         = 56
	offsetParHeight        = 60
	offsetParSampleRate    = 116
	offsetParFrameSize     = 124
	offsetParChLayout      = 144
)

// ParametersAlloc allocates codec parameters with defaults.
func ParametersAlloc() Parameters {
	if avcodecParametersAlloc == nil {
		return nil
	}
	return avcodecParametersAlloc()
}

// ParametersFree frees codec parameters and sets the pointer to nil.
func ParametersFree(par *Parameters) {
	if par == nil || *par == nil || avcodecParametersFree == nil {
		return
	}
	avcodecParametersFree(par)
	*par = nil
}

// ParametersToContext fills ctx from par.
func ParametersToContext(ctx Context, par Parameters) error {
	if avcodecParametersToCtx == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecParametersToCtx(ctx, par), "avcodec_parameters_to_context")
}

// ParametersFromContext fills par from ctx.
func ParametersFromContext(par Parameters, ctx Context) error {
	if avcodecParametersFromCtx == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecParametersFromCtx(par, ctx), "avcodec_parameters_from_context")
}

// ParametersCopy deep-copies src into dst.
func ParametersCopy(dst, src Parameters) error {
	if avcodecParametersCopy == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avcodecParametersCopy(dst, src), "avcodec_parameters_copy")
}

func parInt32(par Parameters, off uintptr) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(par, off))
}

func setParInt32(par Parameters, off uintptr, v int32) {
	if par == nil {
		return
	}
	*(*int32)(unsafe.Add(par, off)) = v
}

func GetParWidth(par Parameters) int32 { return parInt32(par, offsetParWidth) }
func SetParWidth(par Parameters, v int32) { setParInt32(par, offsetParWidth, v) }
func GetParHeight(par Parameters) int32 { return parInt32(par, offsetParHeight) }
func SetParHeight(par Parameters, v int32) { setParInt32(par, offsetParHeight, v) }
func GetParFormat(par Parameters) int32 { return parInt32(par, offsetParFormat) }
func SetParFormat(par Parameters, v int32) { setParInt32(par, offsetParFormat, v) }
func GetParSampleRate(par Parameters) int32 { return parInt32(par, offsetParSampleRate) }
func SetParSampleRate(par Parameters, v int32) { setParInt32(par, offsetParSampleRate, v) }
func GetParFrameSize(par Parameters) int32 { return parInt32(par, offsetParFrameSize) }
func SetParFrameSize(par Parameters, v int32) { setParInt32(par, offsetParFrameSize, v) }
func GetParProfile(par Parameters) int32 { return parInt32(par, offsetParProfile) }
func SetParProfile(par Parameters, v int32) { setParInt32(par, offsetParProfile, v) }
func GetParLevel(par Parameters) int32 { return parInt32(par, offsetParLevel) }
func SetParLevel(par Parameters, v int32) { setParInt32(par, offsetParLevel, v) }

// GetParCodecType returns the media type described by par.
func GetParCodecType(par Parameters) avutil.MediaType {
	if par == nil {
		return avutil.MediaTypeUnknown
	}
	return avutil.MediaType(parInt32(par, offsetParCodecType))
}

// SetParCodecType sets the media type.
func SetParCodecType(par Parameters, t avutil.MediaType) {
	setParInt32(par, offsetParCodecType, int32(t))
}

// GetParCodecID returns the codec ID.
func GetParCodecID(par Parameters) CodecID {
	return CodecID(parInt32(par, offsetParCodecID))
}

// SetParCodecID sets the codec ID.
func SetParCodecID(par Parameters, id CodecID) {
	setParInt32(par, offsetParCodecID, int32(id))
}

// GetParCodecTag returns the container fourcc.
func GetParCodecTag(par Parameters) uint32 {
	return uint32(parInt32(par, offsetParCodecTag))
}

// SetParCodecTag sets the container fourcc. Zero lets the muxer choose,
// which is what remuxing between containers needs.
func SetParCodecTag(par Parameters, tag uint32) {
	setParInt32(par, offsetParCodecTag, int32(tag))
}

// GetParBitRate returns the bit rate.
func GetParBitRate(par Parameters) int64 {
	if par == nil {
		return 0
	}
	return *(*int64)(unsafe.Add(par, offsetParBitRate))
}

// SetParBitRate sets the bit rate.
func SetParBitRate(par Parameters, v int64) {
	if par == nil {
		return
	}
	*(*int64)(unsafe.Add(par, offsetParBitRate)) = v
}

// GetParChLayout returns a pointer to the AVChannelLayout in par.
func GetParChLayout(par Parameters) unsafe.Pointer {
	if par == nil {
		return nil
	}
	return unsafe.Add(par, offsetParChLayout)
}

// GetParExtradata returns a copy of the extradata.
func GetParExtradata(par Parameters) []byte {
	if par == nil {
		return nil
	}
	return readExtradata(unsafe.Add(par, offsetParExtradata), parInt32(par, offsetParExtradataSize))
}

// SetParExtradata replaces the extradata with a padded native copy of data.
func SetParExtradata(par Parameters, data []byte) error {
	if par == nil {
		return avutil.NewError(avutil.AVERROR_EINVAL, "set extradata")
	}
	return writeExtradata(unsafe.Add(par, offsetParExtradata), unsafe.Add(par, offsetParExtradataSize), data)
}
