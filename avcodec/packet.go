//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// AVPacket field offsets (avcodec 60/61).
const (
	offsetPacketPTS           = 8
	offsetPacketDTS           = 16
	offsetPacketData          = 24
	offsetPacketSize          = 32
	offsetPacketStreamIndex   = 36
	offsetPacketFlags         = 40
	offsetPacketSideData      = 48
	offsetPacketSideDataElems = 56
	offsetPacketDuration      = 64
	offsetPacketPos           = 72
	offsetPacketTimeBase      = 96
)

// AVPacketSideData layout: uint8_t *data; size_t size; enum type.
const (
	sizeofPacketSideData = 24
	offsetSideDataData   = 0
	offsetSideDataSize   = 8
	offsetSideDataType   = 16
)

// Packet flags (AV_PKT_FLAG_*).
const (
	PacketFlagKey        int32 = 0x0001
	PacketFlagCorrupt    int32 = 0x0002
	PacketFlagDiscard    int32 = 0x0004
	PacketFlagTrusted    int32 = 0x0008
	PacketFlagDisposable int32 = 0x0010
)

// SideDataType is enum AVPacketSideDataType.
type SideDataType int32

const (
	SideDataPalette                  SideDataType = 0
	SideDataNewExtradata             SideDataType = 1
	SideDataParamChange              SideDataType = 2
	SideDataH263MBInfo               SideDataType = 3
	SideDataReplayGain               SideDataType = 4
	SideDataDisplayMatrix            SideDataType = 5
	SideDataStereo3D                 SideDataType = 6
	SideDataAudioServiceType         SideDataType = 7
	SideDataQualityStats             SideDataType = 8
	SideDataFallbackTrack            SideDataType = 9
	SideDataCPBProperties            SideDataType = 10
	SideDataSkipSamples              SideDataType = 11
	SideDataJPDualMono               SideDataType = 12
	SideDataStringsMetadata          SideDataType = 13
	SideDataSubtitlePosition         SideDataType = 14
	SideDataMatroskaBlockAdditional  SideDataType = 15
	SideDataWebVTTIdentifier         SideDataType = 16
	SideDataWebVTTSettings           SideDataType = 17
	SideDataMetadataUpdate           SideDataType = 18
	SideDataMPEGTSStreamID           SideDataType = 19
	SideDataMasteringDisplayMetadata SideDataType = 20
	SideDataSpherical                SideDataType = 21
	SideDataContentLightLevel        SideDataType = 22
	SideDataA53CC                    SideDataType = 23
	SideDataEncryptionInitInfo       SideDataType = 24
	SideDataEncryptionInfo           SideDataType = 25
	SideDataAFD                      SideDataType = 26
	SideDataPRFT                     SideDataType = 27
	SideDataICCProfile               SideDataType = 28
	SideDataDOVIConf                 SideDataType = 29
	SideDataS12MTimecode             SideDataType = 30
	SideDataDynamicHDR10Plus         SideDataType = 31
)

// String returns the native name of the side data type, such as
// "Mastering display metadata".
func (t SideDataType) String() string {
	return SideDataName(t)
}

// SideDataName returns av_packet_side_data_name for t, or "" if unknown.
func SideDataName(t SideDataType) string {
	if avPacketSideDataName == nil {
		return ""
	}
	return avutil.GoString(avPacketSideDataName(int32(t)))
}

// PacketAlloc allocates an empty packet. Free it with PacketFree.
func PacketAlloc() Packet {
	if avPacketAlloc == nil {
		return nil
	}
	return avPacketAlloc()
}

// PacketFree unreferences and frees a packet, then sets the pointer to nil.
func PacketFree(pkt *Packet) {
	if pkt == nil || *pkt == nil || avPacketFree == nil {
		return
	}
	avPacketFree(pkt)
	*pkt = nil
}

// PacketRef makes dst reference the data of src.
func PacketRef(dst, src Packet) error {
	if avPacketRef == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avPacketRef(dst, src), "av_packet_ref")
}

// PacketUnref drops the packet's buffer and side data and resets its fields.
func PacketUnref(pkt Packet) {
	if pkt == nil || avPacketUnref == nil {
		return
	}
	avPacketUnref(pkt)
}

// NewPacket allocates a refcounted payload of size bytes for pkt. The
// previous contents must have been unreferenced.
func NewPacket(pkt Packet, size int) error {
	if avNewPacket == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avNewPacket(pkt, int32(size)), "av_new_packet")
}

// PacketMakeWritable ensures the payload is not shared.
func PacketMakeWritable(pkt Packet) error {
	if avPacketMakeWritable == nil {
		return bindings.ErrNotLoaded
	}
	return avutil.NewError(avPacketMakeWritable(pkt), "av_packet_make_writable")
}

// SetPacketBytes replaces the payload of pkt with a copy of data. Timestamps
// and other fields are reset.
func SetPacketBytes(pkt Packet, data []byte) error {
	if pkt == nil {
		return avutil.NewError(avutil.AVERROR_EINVAL, "av_new_packet")
	}
	PacketUnref(pkt)
	if err := NewPacket(pkt, len(data)); err != nil {
		return err
	}
	if len(data) > 0 {
		copy(unsafe.Slice((*byte)(GetPacketData(pkt)), len(data)), data)
	}
	return nil
}

// PacketBytes returns a copy of the packet payload.
func PacketBytes(pkt Packet) []byte {
	data := GetPacketData(pkt)
	size := GetPacketSize(pkt)
	if data == nil || size <= 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(data), size))
	return out
}

func packetInt32(pkt Packet, off uintptr) int32 {
	if pkt == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(pkt, off))
}

func setPacketInt32(pkt Packet, off uintptr, v int32) {
	if pkt == nil {
		return
	}
	*(*int32)(unsafe.Add(pkt, off)) = v
}

func packetInt64(pkt Packet, off uintptr) int64 {
	if pkt == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Add(pkt, off))
}

func setPacketInt64(pkt Packet, off uintptr, v int64) {
	if pkt == nil {
		return
	}
	*(*int64)(unsafe.Add(pkt, off)) = v
}

func GetPacketPTS(pkt Packet) int64 { return packetInt64(pkt, offsetPacketPTS) }
func SetPacketPTS(pkt Packet, v int64) { setPacketInt64(pkt, offsetPacketPTS, v) }
func GetPacketDTS(pkt Packet) int64 { return packetInt64(pkt, offsetPacketDTS) }
func SetPacketDTS(pkt Packet, v int64) { setPacketInt64(pkt, offsetPacketDTS, v) }
func GetPacketDuration(pkt Packet) int64 { return packetInt64(pkt, offsetPacketDuration) }
func SetPacketDuration(pkt Packet, v int64) { setPacketInt64(pkt, offsetPacketDuration, v) }
func GetPacketPos(pkt Packet) int64 { return packetInt64(pkt, offsetPacketPos) }
func SetPacketPos(pkt Packet, v int64) { setPacketInt64(pkt, offsetPacketPos, v) }
func GetPacketSize(pkt Packet) int32 { return packetInt32(pkt, offsetPacketSize) }
func GetPacketStreamIndex(pkt Packet) int32 { return packetInt32(pkt, offsetPacketStreamIndex) }
func SetPacketStreamIndex(pkt Packet, v int32) { setPacketInt32(pkt, offsetPacketStreamIndex, v) }
func GetPacketFlags(pkt Packet) int32 { return packetInt32(pkt, offsetPacketFlags) }
func SetPacketFlags(pkt Packet, v int32) { setPacketInt32(pkt, offsetPacketFlags, v) }

// GetPacketData returns the payload pointer.
func GetPacketData(pkt Packet) unsafe.Pointer {
	if pkt == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(pkt, offsetPacketData))
}

// GetPacketTimeBase returns the packet time base. Demuxers and older
// encoders leave it at 0/1 or 0/0.
func GetPacketTimeBase(pkt Packet) avutil.Rational {
	if pkt == nil {
		return avutil.Rational{}
	}
	return *(*avutil.Rational)(unsafe.Add(pkt, offsetPacketTimeBase))
}

// SetPacketTimeBase sets the packet time base.
func SetPacketTimeBase(pkt Packet, tb avutil.Rational) {
	if pkt == nil {
		return
	}
	*(*avutil.Rational)(unsafe.Add(pkt, offsetPacketTimeBase)) = tb
}

// RescalePacketTS converts pts, dts and duration from src to dst the way
// av_packet_rescale_ts does: NOPTS is kept, durations of 0 stay 0.
func RescalePacketTS(pkt Packet, src, dst avutil.Rational) {
	if pkt == nil {
		return
	}
	rnd := avutil.RoundNearInf | avutil.RoundPassMinMax
	if pts := GetPacketPTS(pkt); pts != avutil.NoPTSValue {
		SetPacketPTS(pkt, avutil.RescaleQRnd(pts, src, dst, rnd))
	}
	if dts := GetPacketDTS(pkt); dts != avutil.NoPTSValue {
		SetPacketDTS(pkt, avutil.RescaleQRnd(dts, src, dst, rnd))
	}
	if d := GetPacketDuration(pkt); d > 0 {
		SetPacketDuration(pkt, avutil.RescaleQ(d, src, dst))
	}
}

// SideData is one typed side data block, copied out of the packet.
type SideData struct {
	Type SideDataType
	Data []byte
}

// PacketSideData copies every side data block of pkt in storage order.
func PacketSideData(pkt Packet) []SideData {
	n := int(packetInt32(pkt, offsetPacketSideDataElems))
	if n <= 0 {
		return nil
	}
	base := *(*unsafe.Pointer)(unsafe.Add(pkt, offsetPacketSideData))
	if base == nil {
		return nil
	}
	out := make([]SideData, 0, n)
	for i := 0; i < n; i++ {
		entry := unsafe.Add(base, i*sizeofPacketSideData)
		data := *(*unsafe.Pointer)(unsafe.Add(entry, offsetSideDataData))
		size := *(*uintptr)(unsafe.Add(entry, offsetSideDataSize))
		sd := SideData{Type: SideDataType(*(*int32)(unsafe.Add(entry, offsetSideDataType)))}
		if data != nil && size > 0 {
			sd.Data = make([]byte, size)
			copy(sd.Data, unsafe.Slice((*byte)(data), size))
		}
		out = append(out, sd)
	}
	return out
}

// PacketGetSideData returns a copy of the first block of type t.
func PacketGetSideData(pkt Packet, t SideDataType) ([]byte, bool) {
	if pkt == nil || avPacketGetSideData == nil {
		return nil, false
	}
	var size uintptr
	data := avPacketGetSideData(pkt, int32(t), &size)
	if data == nil {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(data), size))
	return out, true
}

// PacketAddSideData attaches a copy of data as a new block of type t.
func PacketAddSideData(pkt Packet, t SideDataType, data []byte) error {
	if avPacketNewSideData == nil {
		return bindings.ErrNotLoaded
	}
	if pkt == nil {
		return avutil.NewError(avutil.AVERROR_EINVAL, "av_packet_new_side_data")
	}
	dst := avPacketNewSideData(pkt, int32(t), uintptr(len(data)))
	if dst == nil {
		return avutil.NewError(avutil.AVERROR_ENOMEM, "av_packet_new_side_data")
	}
	if len(data) > 0 {
		copy(unsafe.Slice((*byte)(dst), len(data)), data)
	}
	return nil
}

// PacketFreeSideData removes all side data from pkt.
func PacketFreeSideData(pkt Packet) {
	if pkt == nil || avPacketFreeSideData == nil {
		return
	}
	avPacketFreeSideData(pkt)
}
