//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// ChannelOrder is enum AVChannelOrder.
type ChannelOrder int32

const (
	ChannelOrderUnspec    ChannelOrder = 0
	ChannelOrderNative    ChannelOrder = 1
	ChannelOrderCustom    ChannelOrder = 2
	ChannelOrderAmbisonic ChannelOrder = 3
)

// Channel position masks (AV_CH_*).
const (
	ChFrontLeft     uint64 = 0x1
	ChFrontRight    uint64 = 0x2
	ChFrontCenter   uint64 = 0x4
	ChLowFrequency  uint64 = 0x8
	ChBackLeft      uint64 = 0x10
	ChBackRight     uint64 = 0x20
	ChBackCenter    uint64 = 0x100
	ChSideLeft      uint64 = 0x200
	ChSideRight     uint64 = 0x400
	ChLayoutMono           = ChFrontCenter
	ChLayoutStereo         = ChFrontLeft | ChFrontRight
	ChLayout2Point1        = ChLayoutStereo | ChLowFrequency
	ChLayoutQuad           = ChLayoutStereo | ChBackLeft | ChBackRight
	ChLayout5Point1        = ChLayoutStereo | ChFrontCenter | ChLowFrequency | ChSideLeft | ChSideRight
	ChLayout5Point1Back    = ChLayoutStereo | ChFrontCenter | ChLowFrequency | ChBackLeft | ChBackRight
)

// ChannelLayoutSize is sizeof(AVChannelLayout).
const ChannelLayoutSize = 24

// ChannelLayoutStruct mirrors AVChannelLayout in memory.
type ChannelLayoutStruct struct {
	Order      ChannelOrder
	NbChannels int32
	Mask       uint64 // union with the custom channel map pointer
	Opaque     unsafe.Pointer
}

// ReadChannelLayout copies the AVChannelLayout at p.
func ReadChannelLayout(p unsafe.Pointer) ChannelLayoutStruct {
	if p == nil {
		return ChannelLayoutStruct{}
	}
	return *(*ChannelLayoutStruct)(p)
}

// ChannelLayoutDefault writes the default layout for nbChannels into dst.
func ChannelLayoutDefault(dst unsafe.Pointer, nbChannels int32) {
	if avChannelLayoutDefault == nil || dst == nil {
		return
	}
	avChannelLayoutDefault(dst, nbChannels)
}

// ChannelLayoutFromMask writes a native-order layout built from mask into dst.
func ChannelLayoutFromMask(dst unsafe.Pointer, mask uint64) error {
	if avChannelLayoutFromMask == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avChannelLayoutFromMask(dst, mask), "av_channel_layout_from_mask")
}

// ChannelLayoutCopy copies src into dst, releasing what dst held.
func ChannelLayoutCopy(dst, src unsafe.Pointer) error {
	if avChannelLayoutCopy == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avChannelLayoutCopy(dst, src), "av_channel_layout_copy")
}

// ChannelLayoutUninit frees any custom channel map held by the layout at p.
func ChannelLayoutUninit(p unsafe.Pointer) {
	if avChannelLayoutUninit == nil || p == nil {
		return
	}
	avChannelLayoutUninit(p)
}

// ChannelLayoutDescribe returns a human-readable layout name such as "stereo".
func ChannelLayoutDescribe(p unsafe.Pointer) string {
	if avChannelLayoutDescribe == nil || p == nil {
		return ""
	}
	var buf [128]byte
	if avChannelLayoutDescribe(p, unsafe.Pointer(&buf[0]), uintptr(len(buf))) < 0 {
		return ""
	}
	return GoString(unsafe.Pointer(&buf[0]))
}
