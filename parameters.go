//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"fmt"

	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avformat"
)

// CodecParameters describes an encoded stream: codec, dimensions or sample
// layout, extradata.
//
// Parameters created with NewCodecParameters are owned by the caller.
// Parameters returned by Stream.CodecParameters are a view into the
// stream, re-validated through the FormatContext on every access, and
// cannot be destroyed.
type CodecParameters struct {
	resource
	owner  resource
	stream int
}

// NewCodecParameters allocates empty parameters.
func (b *Bridge) NewCodecParameters() (CodecParameters, error) {
	if err := b.checkOpen(); err != nil {
		return CodecParameters{}, err
	}
	p := avcodec.ParametersAlloc()
	if p == nil {
		return CodecParameters{}, ErrOutOfMemory
	}
	return CodecParameters{resource: b.ref(b.parameters.Insert(p))}, nil
}

func (p CodecParameters) borrowed() bool { return p.owner.b != nil }

func (p CodecParameters) get() (avcodec.Parameters, error) {
	if !p.borrowed() {
		return resolve(p.resource, tableParameters)
	}
	cell, err := resolve(p.owner, tableFormat)
	if err != nil {
		return nil, err
	}
	st := avformat.GetStream(cell.native, p.stream)
	if st == nil {
		return nil, fmt.Errorf("stream %d: %w", p.stream, ErrInvalidHandle)
	}
	return avformat.GetStreamCodecPar(st), nil
}

func (p CodecParameters) ptr(op string) avcodec.Parameters {
	par, err := p.get()
	if err != nil {
		p.logLookup("CodecParameters."+op, err)
		return nil
	}
	return par
}

// logLookup shadows resource.logLookup so views log through their owner.
func (p CodecParameters) logLookup(what string, err error) {
	if p.borrowed() {
		p.owner.logLookup(what, err)
		return
	}
	p.resource.logLookup(what, err)
}

func (p CodecParameters) bridge() *Bridge {
	if p.borrowed() {
		return p.owner.b
	}
	return p.b
}

// Valid reports whether the parameters (or the stream they belong to) are
// still alive.
func (p CodecParameters) Valid() bool {
	_, err := p.get()
	return err == nil
}

// Destroy frees owned parameters. Stream views return ErrBorrowed.
func (p CodecParameters) Destroy() error {
	if p.borrowed() {
		return ErrBorrowed
	}
	if p.b == nil {
		return ErrNilBridge
	}
	par, err := p.b.parameters.Remove(p.h)
	if err != nil {
		return err
	}
	avcodec.ParametersFree(&par)
	return nil
}

func (p CodecParameters) CodecType() MediaType { return avcodec.GetParCodecType(p.ptr("CodecType")) }
func (p CodecParameters) SetCodecType(t MediaType) { avcodec.SetParCodecType(p.ptr("SetCodecType"), t) }
func (p CodecParameters) CodecID() CodecID { return avcodec.GetParCodecID(p.ptr("CodecID")) }
func (p CodecParameters) SetCodecID(id CodecID) { avcodec.SetParCodecID(p.ptr("SetCodecID"), id) }
func (p CodecParameters) CodecTag() uint32 { return avcodec.GetParCodecTag(p.ptr("CodecTag")) }
func (p CodecParameters) SetCodecTag(tag uint32) { avcodec.SetParCodecTag(p.ptr("SetCodecTag"), tag) }

// Format returns the raw pixel or sample format.
func (p CodecParameters) Format() int32 { return avcodec.GetParFormat(p.ptr("Format")) }

func (p CodecParameters) SetFormat(format int32) { avcodec.SetParFormat(p.ptr("SetFormat"), format) }
func (p CodecParameters) BitRate() int64 { return avcodec.GetParBitRate(p.ptr("BitRate")) }
func (p CodecParameters) SetBitRate(v int64) { avcodec.SetParBitRate(p.ptr("SetBitRate"), v) }
func (p CodecParameters) Width() int { return int(avcodec.GetParWidth(p.ptr("Width"))) }
func (p CodecParameters) SetWidth(v int) { avcodec.SetParWidth(p.ptr("SetWidth"), int32(v)) }
func (p CodecParameters) Height() int { return int(avcodec.GetParHeight(p.ptr("Height"))) }
func (p CodecParameters) SetHeight(v int) { avcodec.SetParHeight(p.ptr("SetHeight"), int32(v)) }
func (p CodecParameters) SampleRate() int { return int(avcodec.GetParSampleRate(p.ptr("SampleRate"))) }
func (p CodecParameters) SetSampleRate(v int) { avcodec.SetParSampleRate(p.ptr("SetSampleRate"), int32(v)) }
func (p CodecParameters) FrameSize() int { return int(avcodec.GetParFrameSize(p.ptr("FrameSize"))) }
func (p CodecParameters) SetFrameSize(v int) { avcodec.SetParFrameSize(p.ptr("SetFrameSize"), int32(v)) }
func (p CodecParameters) Profile() int { return int(avcodec.GetParProfile(p.ptr("Profile"))) }
func (p CodecParameters) SetProfile(v int) { avcodec.SetParProfile(p.ptr("SetProfile"), int32(v)) }
func (p CodecParameters) Level() int { return int(avcodec.GetParLevel(p.ptr("Level"))) }
func (p CodecParameters) SetLevel(v int) { avcodec.SetParLevel(p.ptr("SetLevel"), int32(v)) }

func (p CodecParameters) ChannelLayout() ChannelLayout {
	return readChannelLayout(avcodec.GetParChLayout(p.ptr("ChannelLayout")))
}

func (p CodecParameters) SetChannelLayout(l ChannelLayout) error {
	par, err := p.get()
	if err != nil {
		return err
	}
	return writeChannelLayout(avcodec.GetParChLayout(par), l)
}

// Extradata returns a copy of the codec global headers.
func (p CodecParameters) Extradata() []byte { return avcodec.GetParExtradata(p.ptr("Extradata")) }

func (p CodecParameters) SetExtradata(data []byte) error {
	par, err := p.get()
	if err != nil {
		return err
	}
	return avcodec.SetParExtradata(par, data)
}

// FromContext fills the parameters from an opened codec context.
func (p CodecParameters) FromContext(cc CodecContext) error {
	par, err := p.get()
	if err != nil {
		return err
	}
	if err := (resource{b: p.bridge()}).sameBridge(cc.resource); err != nil {
		return err
	}
	cell, err := cc.cell()
	if err != nil {
		return err
	}
	return avcodec.ParametersFromContext(par, cell.native)
}

// ToContext copies the parameters into a codec context before Open.
func (p CodecParameters) ToContext(cc CodecContext) error {
	par, err := p.get()
	if err != nil {
		return err
	}
	if err := (resource{b: p.bridge()}).sameBridge(cc.resource); err != nil {
		return err
	}
	cell, err := cc.cell()
	if err != nil {
		return err
	}
	return avcodec.ParametersToContext(cell.native, par)
}

// CopyTo deep-copies the parameters into dst.
func (p CodecParameters) CopyTo(dst CodecParameters) error {
	src, err := p.get()
	if err != nil {
		return err
	}
	if err := (resource{b: p.bridge()}).sameBridge(resource{b: dst.bridge()}); err != nil {
		return err
	}
	d, err := dst.get()
	if err != nil {
		return err
	}
	return avcodec.ParametersCopy(d, src)
}
