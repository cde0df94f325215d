//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/handles"
)

// Handle identifies a native resource inside its Bridge.
type Handle = handles.Handle

// resource is embedded by every public resource value. Copying a value
// borrows the resource; only Destroy releases it.
type resource struct {
	b *Bridge
	h handles.Handle
}

func (b *Bridge) ref(h handles.Handle) resource {
	return resource{b: b, h: h}
}

// Handle returns the resource handle.
func (r resource) Handle() Handle { return r.h }

// Bridge returns the owning bridge, nil for a zero value.
func (r resource) Bridge() *Bridge { return r.b }

func resolve[T any](r resource, table func(*Bridge) *handles.Table[T]) (T, error) {
	if r.b == nil {
		var zero T
		return zero, ErrNilBridge
	}
	return table(r.b).Get(r.h)
}

func contains[T any](r resource, table func(*Bridge) *handles.Table[T]) bool {
	return r.b != nil && table(r.b).Contains(r.h)
}

// sameBridge rejects resources created by another bridge.
func (r resource) sameBridge(other resource) error {
	if other.b == nil {
		return ErrNilBridge
	}
	if other.b != r.b {
		return ErrForeignHandle
	}
	return nil
}

// logLookup reports a failed lookup from a getter that cannot return it.
func (r resource) logLookup(what string, err error) {
	if r.b == nil {
		return
	}
	r.b.logger.Errorf("%s: %v", what, err)
}

func tableFrame(b *Bridge) *handles.Table[avutil.Frame] { return b.frames }
func tablePacket(b *Bridge) *handles.Table[avcodec.Packet] { return b.packets }
func tableParameters(b *Bridge) *handles.Table[avcodec.Parameters] { return b.parameters }
func tableIO(b *Bridge) *handles.Table[*ioCell] { return b.ioContexts }
func tableFormat(b *Bridge) *handles.Table[*formatCell] { return b.formats }
func tableCodec(b *Bridge) *handles.Table[*codecCell] { return b.codecs }
func tableDictionary(b *Bridge) *handles.Table[*dictionaryCell] { return b.dictionaries }
func tableScaler(b *Bridge) *handles.Table[*scalerCell] { return b.scalers }
func tableResampler(b *Bridge) *handles.Table[*resamplerCell] { return b.resamplers }
func tableFIFO(b *Bridge) *handles.Table[*fifoCell] { return b.fifos }
func tableGraph(b *Bridge) *handles.Table[*graphCell] { return b.graphs }
func tableImage(b *Bridge) *handles.Table[*bufferCell] { return b.images }
func tableSamples(b *Bridge) *handles.Table[*bufferCell] { return b.samples }
func tableHWDevice(b *Bridge) *handles.Table[*hwDeviceCell] { return b.hwDevices }
