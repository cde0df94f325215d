//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avutil"
)

// SideData is a typed block attached to a packet.
type SideData = avcodec.SideData

// Packet is a refcounted AVPacket holding compressed data.
type Packet struct{ resource }

// NewPacket allocates an empty packet.
func (b *Bridge) NewPacket() (Packet, error) {
	if err := b.checkOpen(); err != nil {
		return Packet{}, err
	}
	p := avcodec.PacketAlloc()
	if p == nil {
		return Packet{}, ErrOutOfMemory
	}
	return Packet{b.ref(b.packets.Insert(p))}, nil
}

func (p Packet) get() (avcodec.Packet, error) { return resolve(p.resource, tablePacket) }

func (p Packet) ptr(op string) avcodec.Packet {
	pkt, err := p.get()
	if err != nil {
		p.logLookup("Packet."+op, err)
		return nil
	}
	return pkt
}

// Valid reports whether the packet is still alive.
func (p Packet) Valid() bool { return contains(p.resource, tablePacket) }

// Destroy frees the packet and its data reference.
func (p Packet) Destroy() error {
	if p.b == nil {
		return ErrNilBridge
	}
	pkt, err := p.b.packets.Remove(p.h)
	if err != nil {
		return err
	}
	avcodec.PacketFree(&pkt)
	return nil
}

// Unref drops the data reference and resets every field.
func (p Packet) Unref() error {
	pkt, err := p.get()
	if err != nil {
		return err
	}
	avcodec.PacketUnref(pkt)
	return nil
}

// Ref makes p reference the same data and properties as src.
func (p Packet) Ref(src Packet) error {
	if err := p.sameBridge(src.resource); err != nil {
		return err
	}
	dst, err := p.get()
	if err != nil {
		return err
	}
	s, err := src.get()
	if err != nil {
		return err
	}
	avcodec.PacketUnref(dst)
	return avcodec.PacketRef(dst, s)
}

// Data returns a copy of the payload.
func (p Packet) Data() []byte { return avcodec.PacketBytes(p.ptr("Data")) }

// SetData replaces the payload with a copy of data, keeping the other
// fields.
func (p Packet) SetData(data []byte) error {
	pkt, err := p.get()
	if err != nil {
		return err
	}
	pts, dts := avcodec.GetPacketPTS(pkt), avcodec.GetPacketDTS(pkt)
	duration, pos := avcodec.GetPacketDuration(pkt), avcodec.GetPacketPos(pkt)
	index, flags := avcodec.GetPacketStreamIndex(pkt), avcodec.GetPacketFlags(pkt)
	tb := avcodec.GetPacketTimeBase(pkt)
	if err := avcodec.SetPacketBytes(pkt, data); err != nil {
		return err
	}
	avcodec.SetPacketPTS(pkt, pts)
	avcodec.SetPacketDTS(pkt, dts)
	avcodec.SetPacketDuration(pkt, duration)
	avcodec.SetPacketPos(pkt, pos)
	avcodec.SetPacketStreamIndex(pkt, index)
	avcodec.SetPacketFlags(pkt, flags)
	avcodec.SetPacketTimeBase(pkt, tb)
	return nil
}

func (p Packet) Size() int { return int(avcodec.GetPacketSize(p.ptr("Size"))) }
func (p Packet) StreamIndex() int { return int(avcodec.GetPacketStreamIndex(p.ptr("StreamIndex"))) }
func (p Packet) SetStreamIndex(i int) { avcodec.SetPacketStreamIndex(p.ptr("SetStreamIndex"), int32(i)) }

// PTS returns the presentation timestamp in TimeBase units, -1 when unset.
func (p Packet) PTS() int64 { return fromNoPTS(avcodec.GetPacketPTS(p.ptr("PTS"))) }

// SetPTS sets the presentation timestamp. -1 clears it.
func (p Packet) SetPTS(pts int64) { avcodec.SetPacketPTS(p.ptr("SetPTS"), toNoPTS(pts)) }

// DTS returns the decoding timestamp, -1 when unset.
func (p Packet) DTS() int64 { return fromNoPTS(avcodec.GetPacketDTS(p.ptr("DTS"))) }

func (p Packet) SetDTS(dts int64) { avcodec.SetPacketDTS(p.ptr("SetDTS"), toNoPTS(dts)) }
func (p Packet) Duration() int64 { return avcodec.GetPacketDuration(p.ptr("Duration")) }
func (p Packet) SetDuration(d int64) { avcodec.SetPacketDuration(p.ptr("SetDuration"), d) }

// Pos returns the byte position in the input, -1 when unknown.
func (p Packet) Pos() int64 { return avcodec.GetPacketPos(p.ptr("Pos")) }

func (p Packet) SetPos(pos int64) { avcodec.SetPacketPos(p.ptr("SetPos"), pos) }
func (p Packet) Flags() int32 { return avcodec.GetPacketFlags(p.ptr("Flags")) }
func (p Packet) SetFlags(flags int32) { avcodec.SetPacketFlags(p.ptr("SetFlags"), flags) }

// IsKeyFrame reports whether PacketFlagKey is set.
func (p Packet) IsKeyFrame() bool { return p.Flags()&avcodec.PacketFlagKey != 0 }

func (p Packet) TimeBase() Rational { return avcodec.GetPacketTimeBase(p.ptr("TimeBase")) }
func (p Packet) SetTimeBase(tb Rational) { avcodec.SetPacketTimeBase(p.ptr("SetTimeBase"), tb) }

// RescaleTS converts pts, dts and duration from the packet's time base to
// dst and sets the time base to dst. It does nothing and returns false
// when either time base is unset or pts or dts is unset.
func (p Packet) RescaleTS(dst Rational) bool {
	pkt := p.ptr("RescaleTS")
	if pkt == nil {
		return false
	}
	src := avcodec.GetPacketTimeBase(pkt)
	if !src.Valid() || !dst.Valid() {
		return false
	}
	if avcodec.GetPacketPTS(pkt) == avutil.NoPTSValue || avcodec.GetPacketDTS(pkt) == avutil.NoPTSValue {
		return false
	}
	avcodec.RescalePacketTS(pkt, src, dst)
	avcodec.SetPacketTimeBase(pkt, dst)
	return true
}

// SideData returns copies of every side data block in storage order.
func (p Packet) SideData() []SideData { return avcodec.PacketSideData(p.ptr("SideData")) }

// SideDataOf returns a copy of the first block of type t.
func (p Packet) SideDataOf(t SideDataType) ([]byte, bool) {
	return avcodec.PacketGetSideData(p.ptr("SideDataOf"), t)
}

// AddSideData attaches a copy of data as a new block of type t.
func (p Packet) AddSideData(t SideDataType, data []byte) error {
	pkt, err := p.get()
	if err != nil {
		return err
	}
	return avcodec.PacketAddSideData(pkt, t, data)
}

// ClearSideData removes every side data block.
func (p Packet) ClearSideData() error {
	pkt, err := p.get()
	if err != nil {
		return err
	}
	avcodec.PacketFreeSideData(pkt)
	return nil
}

// SideDataName returns FFmpeg's name for a side data type.
func SideDataName(t SideDataType) string { return avcodec.SideDataName(t) }
