//go:build !ios && !android && (amd64 || arm64)

// Package avbridge exposes FFmpeg's demuxers, muxers, codecs, scalers,
// resamplers and filter graphs to Go without cgo.
//
// Every native object lives behind a Bridge. Callers hold small copyable
// values (Frame, Packet, FormatContext, ...) that carry a generation-checked
// handle instead of a pointer, so a use after Destroy is reported as an
// error rather than touching freed memory.
//
// Packet and frame flow follows FFmpeg's send/receive model. Pump calls
// return a Status instead of treating EAGAIN and EOF as errors.
package avbridge

import (
	"fmt"

	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avfilter"
	"github.com/obinnaokechukwu/avbridge/avformat"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
	"github.com/obinnaokechukwu/avbridge/swresample"
	"github.com/obinnaokechukwu/avbridge/swscale"
)

type (
	Rational     = avutil.Rational
	PixelFormat  = avutil.PixelFormat
	SampleFormat = avutil.SampleFormat
	MediaType    = avutil.MediaType
	PictureType  = avutil.PictureType
	CodecID      = avcodec.CodecID
	SideDataType = avcodec.SideDataType

	// Error is a failed native call carrying the AVERROR code and its
	// av_strerror text.
	Error = avutil.Error
)

const (
	PixelFormatNone    = avutil.PixelFormatNone
	PixelFormatYUV420P = avutil.PixelFormatYUV420P
	PixelFormatYUV422P = avutil.PixelFormatYUV422P
	PixelFormatYUV444P = avutil.PixelFormatYUV444P
	PixelFormatNV12    = avutil.PixelFormatNV12
	PixelFormatRGB24   = avutil.PixelFormatRGB24
	PixelFormatBGR24   = avutil.PixelFormatBGR24
	PixelFormatRGBA    = avutil.PixelFormatRGBA
	PixelFormatBGRA    = avutil.PixelFormatBGRA
	PixelFormatGray8   = avutil.PixelFormatGray8

	SampleFormatNone = avutil.SampleFormatNone
	SampleFormatU8   = avutil.SampleFormatU8
	SampleFormatS16  = avutil.SampleFormatS16
	SampleFormatS32  = avutil.SampleFormatS32
	SampleFormatFlt  = avutil.SampleFormatFlt
	SampleFormatDbl  = avutil.SampleFormatDbl
	SampleFormatU8P  = avutil.SampleFormatU8P
	SampleFormatS16P = avutil.SampleFormatS16P
	SampleFormatS32P = avutil.SampleFormatS32P
	SampleFormatFltP = avutil.SampleFormatFltP
	SampleFormatDblP = avutil.SampleFormatDblP

	MediaTypeUnknown  = avutil.MediaTypeUnknown
	MediaTypeVideo    = avutil.MediaTypeVideo
	MediaTypeAudio    = avutil.MediaTypeAudio
	MediaTypeData     = avutil.MediaTypeData
	MediaTypeSubtitle = avutil.MediaTypeSubtitle

	CodecIDNone     = avcodec.CodecIDNone
	CodecIDMPEG4    = avcodec.CodecIDMPEG4
	CodecIDH264     = avcodec.CodecIDH264
	CodecIDHEVC     = avcodec.CodecIDHEVC
	CodecIDVP9      = avcodec.CodecIDVP9
	CodecIDAV1      = avcodec.CodecIDAV1
	CodecIDPCMS16LE = avcodec.CodecIDPCMS16LE
	CodecIDMP3      = avcodec.CodecIDMP3
	CodecIDAAC      = avcodec.CodecIDAAC
	CodecIDFLAC     = avcodec.CodecIDFLAC
	CodecIDOPUS     = avcodec.CodecIDOPUS

	PacketFlagKey     = avcodec.PacketFlagKey
	PacketFlagCorrupt = avcodec.PacketFlagCorrupt
	PacketFlagDiscard = avcodec.PacketFlagDiscard

	SideDataNewExtradata    = avcodec.SideDataNewExtradata
	SideDataSkipSamples     = avcodec.SideDataSkipSamples
	SideDataStringsMetadata = avcodec.SideDataStringsMetadata

	CodecFlagGlobalHeader = avcodec.FlagGlobalHeader
	CodecFlagLowDelay     = avcodec.FlagLowDelay

	FormatFlagCustomIO     = avformat.FlagCustomIO
	FormatFlagGenPTS       = avformat.FlagGenPTS
	FormatFlagFlushPackets = avformat.FlagFlushPackets

	ScaleFastBilinear = swscale.FlagFastBilinear
	ScaleBilinear     = swscale.FlagBilinear
	ScaleBicubic      = swscale.FlagBicubic
	ScalePoint        = swscale.FlagPoint
	ScaleLanczos      = swscale.FlagLanczos
)

// Versions reports the packed major<<16|minor<<8|micro version of each
// linked library. Optional libraries that are missing report 0.
type Versions struct {
	AVUtil     uint32
	AVCodec    uint32
	AVFormat   uint32
	AVFilter   uint32
	SWScale    uint32
	SWResample uint32
}

// Version returns the versions of the loaded FFmpeg libraries.
func Version() Versions {
	return Versions{
		AVUtil:     bindings.AVUtilVersion(),
		AVCodec:    bindings.AVCodecVersion(),
		AVFormat:   bindings.AVFormatVersion(),
		AVFilter:   avfilter.Version(),
		SWScale:    swscale.Version(),
		SWResample: swresample.Version(),
	}
}

// VersionString formats a packed library version as major.minor.micro.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}

// IsEOF reports whether err carries AVERROR_EOF.
func IsEOF(err error) bool { return avutil.IsEOF(err) }

// ErrorCode returns the AVERROR code carried by err, or 0.
func ErrorCode(err error) int32 { return avutil.Code(err) }

// D2Q approximates d as a rational with numerator and denominator at most
// 1<<26.
func D2Q(d float64) Rational { return avutil.D2Q(d, 1<<26) }

// RescaleQ converts a from time base bq to cq, rounding to nearest.
func RescaleQ(a int64, bq, cq Rational) int64 { return avutil.RescaleQ(a, bq, cq) }
