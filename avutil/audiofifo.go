//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// AudioFIFOAlloc allocates a FIFO sized for nbSamples; it grows on write.
func AudioFIFOAlloc(sampleFmt, channels, nbSamples int32) AudioFIFO {
	if avAudioFifoAlloc == nil {
		return nil
	}
	return avAudioFifoAlloc(sampleFmt, channels, nbSamples)
}

// AudioFIFOFree frees the FIFO.
func AudioFIFOFree(af AudioFIFO) {
	if af == nil || avAudioFifoFree == nil {
		return
	}
	avAudioFifoFree(af)
}

// AudioFIFOWrite appends nbSamples from the plane array data.
func AudioFIFOWrite(af AudioFIFO, data unsafe.Pointer, nbSamples int32) (int, error) {
	if avAudioFifoWrite == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avAudioFifoWrite(af, data, nbSamples)
	if err := NewError(ret, "av_audio_fifo_write"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// AudioFIFORead removes up to nbSamples into the plane array data.
func AudioFIFORead(af AudioFIFO, data unsafe.Pointer, nbSamples int32) (int, error) {
	if avAudioFifoRead == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avAudioFifoRead(af, data, nbSamples)
	if err := NewError(ret, "av_audio_fifo_read"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// AudioFIFOPeek copies up to nbSamples without consuming them.
func AudioFIFOPeek(af AudioFIFO, data unsafe.Pointer, nbSamples int32) (int, error) {
	if avAudioFifoPeek == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avAudioFifoPeek(af, data, nbSamples)
	if err := NewError(ret, "av_audio_fifo_peek"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// AudioFIFODrain discards nbSamples.
func AudioFIFODrain(af AudioFIFO, nbSamples int32) error {
	if avAudioFifoDrain == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avAudioFifoDrain(af, nbSamples), "av_audio_fifo_drain")
}

// AudioFIFOReset empties the FIFO.
func AudioFIFOReset(af AudioFIFO) {
	if af == nil || avAudioFifoReset == nil {
		return
	}
	avAudioFifoReset(af)
}

// AudioFIFOSize returns the number of buffered samples.
func AudioFIFOSize(af AudioFIFO) int {
	if af == nil || avAudioFifoSize == nil {
		return 0
	}
	return int(avAudioFifoSize(af))
}

// AudioFIFOSpace returns how many samples fit without reallocation.
func AudioFIFOSpace(af AudioFIFO) int {
	if af == nil || avAudioFifoSpace == nil {
		return 0
	}
	return int(avAudioFifoSpace(af))
}
