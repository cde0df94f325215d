//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
)

type ChannelOrder = avutil.ChannelOrder

const (
	ChannelOrderUnspec    = avutil.ChannelOrderUnspec
	ChannelOrderNative    = avutil.ChannelOrderNative
	ChannelOrderCustom    = avutil.ChannelOrderCustom
	ChannelOrderAmbisonic = avutil.ChannelOrderAmbisonic
)

// ChannelLayout describes the channels of an audio stream. Custom channel
// maps are not represented: a custom layout keeps its order and channel
// count only.
type ChannelLayout struct {
	Order      ChannelOrder
	NbChannels int
	Mask       uint64
}

var (
	ChannelLayoutMono    = ChannelLayout{Order: ChannelOrderNative, NbChannels: 1, Mask: avutil.ChLayoutMono}
	ChannelLayoutStereo  = ChannelLayout{Order: ChannelOrderNative, NbChannels: 2, Mask: avutil.ChLayoutStereo}
	ChannelLayout5Point1 = ChannelLayout{Order: ChannelOrderNative, NbChannels: 6, Mask: avutil.ChLayout5Point1}
)

// DefaultChannelLayout returns FFmpeg's default layout for n channels,
// or an unspecified-order layout when there is none.
func DefaultChannelLayout(n int) ChannelLayout {
	var native avutil.ChannelLayoutStruct
	avutil.ChannelLayoutDefault(unsafe.Pointer(&native), int32(n))
	if native.NbChannels == 0 {
		return ChannelLayout{Order: ChannelOrderUnspec, NbChannels: n}
	}
	return channelLayoutFromNative(native)
}

// ChannelLayoutFromMask builds a native-order layout from AV_CH_* bits.
func ChannelLayoutFromMask(mask uint64) (ChannelLayout, error) {
	var native avutil.ChannelLayoutStruct
	if err := avutil.ChannelLayoutFromMask(unsafe.Pointer(&native), mask); err != nil {
		return ChannelLayout{}, fmt.Errorf("channel mask %#x: %w", mask, err)
	}
	return channelLayoutFromNative(native), nil
}

// Valid reports whether the layout names at least one channel.
func (l ChannelLayout) Valid() bool {
	return l.NbChannels > 0 && l.Order != ChannelOrderCustom
}

// Describe returns FFmpeg's name for the layout, e.g. "stereo".
func (l ChannelLayout) Describe() string {
	if l.NbChannels <= 0 {
		return ""
	}
	native := l.native()
	return avutil.ChannelLayoutDescribe(unsafe.Pointer(&native))
}

func (l ChannelLayout) String() string {
	if s := l.Describe(); s != "" {
		return s
	}
	return fmt.Sprintf("%d channels", l.NbChannels)
}

func (l ChannelLayout) native() avutil.ChannelLayoutStruct {
	native := avutil.ChannelLayoutStruct{
		Order:      l.Order,
		NbChannels: int32(l.NbChannels),
	}
	if l.Order == ChannelOrderNative || l.Order == ChannelOrderAmbisonic {
		native.Mask = l.Mask
	}
	return native
}

func channelLayoutFromNative(native avutil.ChannelLayoutStruct) ChannelLayout {
	l := ChannelLayout{Order: native.Order, NbChannels: int(native.NbChannels)}
	if native.Order != ChannelOrderCustom {
		l.Mask = native.Mask
	}
	return l
}

func readChannelLayout(p unsafe.Pointer) ChannelLayout {
	if p == nil {
		return ChannelLayout{}
	}
	return channelLayoutFromNative(avutil.ReadChannelLayout(p))
}

// writeChannelLayout replaces the AVChannelLayout at dst.
func writeChannelLayout(dst unsafe.Pointer, l ChannelLayout) error {
	if dst == nil {
		return fmt.Errorf("channel layout: %w", avutil.NewError(avutil.AVERROR_EINVAL, "av_channel_layout_copy"))
	}
	if l.Order == ChannelOrderCustom {
		return fmt.Errorf("custom channel maps are not supported: %w", avutil.NewError(avutil.AVERROR_EINVAL, "av_channel_layout_copy"))
	}
	native := l.native()
	return avutil.ChannelLayoutCopy(dst, unsafe.Pointer(&native))
}
