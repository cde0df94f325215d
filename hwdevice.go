//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/xaionaro-go/xsync"
)

// HWDeviceType is a hardware accelerator type.
type HWDeviceType = avutil.HWDeviceType

const (
	HWDeviceTypeNone         = avutil.HWDeviceTypeNone
	HWDeviceTypeVDPAU        = avutil.HWDeviceTypeVDPAU
	HWDeviceTypeCUDA         = avutil.HWDeviceTypeCUDA
	HWDeviceTypeVAAPI        = avutil.HWDeviceTypeVAAPI
	HWDeviceTypeDXVA2        = avutil.HWDeviceTypeDXVA2
	HWDeviceTypeQSV          = avutil.HWDeviceTypeQSV
	HWDeviceTypeVideoToolbox = avutil.HWDeviceTypeVideoToolbox
	HWDeviceTypeD3D11VA      = avutil.HWDeviceTypeD3D11VA
	HWDeviceTypeDRM          = avutil.HWDeviceTypeDRM
	HWDeviceTypeOpenCL       = avutil.HWDeviceTypeOpenCL
	HWDeviceTypeMediaCodec   = avutil.HWDeviceTypeMediaCodec
	HWDeviceTypeVulkan       = avutil.HWDeviceTypeVulkan
)

// HWDeviceTypeName returns the FFmpeg name of t, e.g. "vaapi", or "".
func HWDeviceTypeName(t HWDeviceType) string { return avutil.HWDeviceGetTypeName(t) }

// FindHWDeviceType looks a device type up by name.
func FindHWDeviceType(name string) (HWDeviceType, error) {
	t := avutil.HWDeviceFindTypeByName(name)
	if t == HWDeviceTypeNone {
		return HWDeviceTypeNone, notFound(ErrHWDeviceTypeNotFound, name)
	}
	return t, nil
}

// HWDeviceTypes lists the device types the loaded libavutil was built with.
// Whether a device of that type can be opened depends on the machine.
func HWDeviceTypes() []HWDeviceType { return avutil.HWDeviceIterateTypes() }

// HWConfigMethod is a set of AV_CODEC_HW_CONFIG_METHOD_* flags.
type HWConfigMethod int32

const (
	HWConfigMethodHWDeviceCtx = HWConfigMethod(avcodec.HWConfigMethodHWDeviceCtx)
	HWConfigMethodHWFramesCtx = HWConfigMethod(avcodec.HWConfigMethodHWFramesCtx)
	HWConfigMethodInternal    = HWConfigMethod(avcodec.HWConfigMethodInternal)
	HWConfigMethodAdHoc       = HWConfigMethod(avcodec.HWConfigMethodAdHoc)
)

func (m HWConfigMethod) Has(flag HWConfigMethod) bool { return m&flag == flag }

// HWConfig is one hardware setup a codec supports.
type HWConfig struct {
	PixelFormat PixelFormat
	Methods     HWConfigMethod
	DeviceType  HWDeviceType
}

// HWConfigs lists the codec's hardware configurations, in FFmpeg's order
// of preference. Software-only codecs return none.
func (c Codec) HWConfigs() []HWConfig {
	native := avcodec.GetHWConfigs(c.native)
	if len(native) == 0 {
		return nil
	}
	out := make([]HWConfig, len(native))
	for i, n := range native {
		out[i] = HWConfig{
			PixelFormat: PixelFormat(n.PixFmt),
			Methods:     HWConfigMethod(n.Methods),
			DeviceType:  n.DeviceType,
		}
	}
	return out
}

// HWDeviceContext is an opened hardware device. Codec contexts attached to
// it hold their own reference, so it may be destroyed before them.
type HWDeviceContext struct{ resource }

type hwDeviceCell struct {
	mu     xsync.Mutex
	native avutil.HWDeviceContext
	typ    HWDeviceType
	device string
}

// NewHWDeviceContext opens a device of type typ. device selects a specific
// device (a DRM node, a GPU index) and may be empty for the default; opts
// are passed to the device backend.
func (b *Bridge) NewHWDeviceContext(ctx context.Context, typ HWDeviceType, device string, opts *Dictionary) (_ HWDeviceContext, _err error) {
	if err := b.checkOpen(); err != nil {
		return HWDeviceContext{}, err
	}
	ctx = b.ctx(ctx)
	logger.Tracef(ctx, "NewHWDeviceContext %s %q", HWDeviceTypeName(typ), device)
	defer func() { logger.Tracef(ctx, "/NewHWDeviceContext: %v", _err) }()

	if typ == HWDeviceTypeNone {
		return HWDeviceContext{}, notFound(ErrHWDeviceTypeNotFound, typ)
	}
	var native avutil.HWDeviceContext
	err := opts.withNative(resource{b: b}, func(o *avutil.Dictionary) error {
		var d avutil.Dictionary
		if o != nil {
			d = *o
		}
		var err error
		native, err = avutil.HWDeviceCtxCreate(typ, device, d)
		return err
	})
	if err != nil {
		return HWDeviceContext{}, fmt.Errorf("opening %s device %q: %w", HWDeviceTypeName(typ), device, err)
	}
	cell := &hwDeviceCell{native: native, typ: typ, device: device}
	return HWDeviceContext{b.ref(b.hwDevices.Insert(cell))}, nil
}

func (d HWDeviceContext) cell() (*hwDeviceCell, error) { return resolve(d.resource, tableHWDevice) }

// Valid reports whether the device is still alive.
func (d HWDeviceContext) Valid() bool { return contains(d.resource, tableHWDevice) }

// Type returns the device type, HWDeviceTypeNone once destroyed.
func (d HWDeviceContext) Type() HWDeviceType {
	cell, err := d.cell()
	if err != nil {
		d.logLookup("HWDeviceContext.Type", err)
		return HWDeviceTypeNone
	}
	return cell.typ
}

func (d HWDeviceContext) TypeName() string { return HWDeviceTypeName(d.Type()) }

// Device returns the device string the context was opened with.
func (d HWDeviceContext) Device() string {
	cell, err := d.cell()
	if err != nil {
		return ""
	}
	return cell.device
}

// Destroy drops the bridge's reference to the device.
func (d HWDeviceContext) Destroy(ctx context.Context) error {
	if d.b == nil {
		return ErrNilBridge
	}
	cell, err := d.b.hwDevices.Remove(d.h)
	if err != nil {
		return err
	}
	cell.mu.Do(d.b.ctx(ctx), func() {
		avutil.FreeBufferRef(&cell.native)
	})
	return nil
}

// SetHWDevice attaches a hardware device to the codec context. It must be
// called before Open.
func (c CodecContext) SetHWDevice(ctx context.Context, dev HWDeviceContext) error {
	if err := c.sameBridge(dev.resource); err != nil {
		return err
	}
	cell, err := c.cell()
	if err != nil {
		return err
	}
	dcell, err := dev.cell()
	if err != nil {
		return err
	}
	if cell.opened.Load() {
		return fmt.Errorf("attaching %s device to %s: %w", HWDeviceTypeName(dcell.typ), cell.codec.Name, ErrCodecAlreadyOpen)
	}
	ctx = c.b.ctx(ctx)
	logger.Debugf(ctx, "CodecContext.SetHWDevice %s on %s", HWDeviceTypeName(dcell.typ), cell.codec.Name)
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		return xsync.DoR1(xsync.WithNoLogging(ctx, true), &dcell.mu, func() error {
			if dcell.native == nil {
				return ErrStaleHandle
			}
			avcodec.SetCtxHWDeviceCtx(cell.native, dcell.native)
			if avcodec.GetCtxHWDeviceCtx(cell.native) == nil {
				return ErrOutOfMemory
			}
			return nil
		})
	})
}

// IsHardware reports whether the frame's data lives in device memory.
func (f Frame) IsHardware() bool {
	return avutil.GetFrameHWFramesCtx(f.ptr("IsHardware")) != nil
}

// TransferFrom copies src into f across the device boundary: download when
// src is a hardware frame, upload when f carries a hardware frames context.
// An unallocated f receives a buffer in the first format the device offers.
func (f Frame) TransferFrom(src Frame) error {
	if err := f.sameBridge(src.resource); err != nil {
		return err
	}
	dst, err := f.get()
	if err != nil {
		return err
	}
	s, err := src.get()
	if err != nil {
		return err
	}
	if avutil.GetFrameHWFramesCtx(s) == nil && avutil.GetFrameHWFramesCtx(dst) == nil {
		return fmt.Errorf("neither frame is in device memory: %w", avutil.NewError(avutil.AVERROR_EINVAL, "av_hwframe_transfer_data"))
	}
	if err := avutil.HWFrameTransferData(dst, s, 0); err != nil {
		return err
	}
	return avutil.FrameCopyProps(dst, s)
}
