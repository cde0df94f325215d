//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// ImageGetBufferSize returns the bytes needed to store an image with the
// given alignment.
func ImageGetBufferSize(pixFmt, width, height, align int32) (int, error) {
	if avImageGetBufferSize == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avImageGetBufferSize(pixFmt, width, height, align)
	if err := NewError(ret, "av_image_get_buffer_size"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// ImageFillArrays sets up the plane pointers (uint8_t *[4]) and line sizes
// (int[4]) at dstData and dstLinesize to address buf. Returns the size used.
func ImageFillArrays(dstData, dstLinesize, buf unsafe.Pointer, pixFmt, width, height, align int32) (int, error) {
	if avImageFillArrays == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avImageFillArrays(dstData, dstLinesize, buf, pixFmt, width, height, align)
	if err := NewError(ret, "av_image_fill_arrays"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// ImagePlaneSizes returns the byte size of each plane of an image with the
// given line sizes.
func ImagePlaneSizes(pixFmt, height int32, linesizes [4]int32) ([4]int, error) {
	var out [4]int
	if avImagePlaneSizes == nil {
		return out, bindings.ErrNotLoaded
	}
	var sizes [4]uintptr
	var ls [4]int
	for i, l := range linesizes {
		ls[i] = int(l)
	}
	if err := NewError(avImagePlaneSizes(&sizes, pixFmt, height, &ls), "av_image_fill_plane_sizes"); err != nil {
		return out, err
	}
	for i, sz := range sizes {
		out[i] = int(sz)
	}
	return out, nil
}

// ImageCopyToBuffer packs the planes at srcData/srcLinesize into dst.
func ImageCopyToBuffer(dst unsafe.Pointer, dstSize int, srcData, srcLinesize unsafe.Pointer, pixFmt, width, height, align int32) (int, error) {
	if avImageCopyToBuffer == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avImageCopyToBuffer(dst, int32(dstSize), srcData, srcLinesize, pixFmt, width, height, align)
	if err := NewError(ret, "av_image_copy_to_buffer"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// ImageGetLinesize returns the line size of one plane for the given width.
func ImageGetLinesize(pixFmt, width, plane int32) (int, error) {
	if avImageGetLinesize == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avImageGetLinesize(pixFmt, width, plane)
	if err := NewError(ret, "av_image_get_linesize"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// SamplesGetBufferSize returns the bytes needed for nbSamples of audio and
// the resulting per-plane line size.
func SamplesGetBufferSize(nbChannels, nbSamples, sampleFmt, align int32) (size int, linesize int32, err error) {
	if avSamplesGetBufferSize == nil {
		return 0, 0, bindings.ErrNotLoaded
	}
	ret := avSamplesGetBufferSize(&linesize, nbChannels, nbSamples, sampleFmt, align)
	if err := NewError(ret, "av_samples_get_buffer_size"); err != nil {
		return 0, 0, err
	}
	return int(ret), linesize, nil
}

// SamplesFillArrays points the plane array at audioData into buf.
func SamplesFillArrays(audioData unsafe.Pointer, linesize *int32, buf unsafe.Pointer, nbChannels, nbSamples, sampleFmt, align int32) (int, error) {
	if avSamplesFillArrays == nil {
		return 0, bindings.ErrNotLoaded
	}
	ret := avSamplesFillArrays(audioData, linesize, buf, nbChannels, nbSamples, sampleFmt, align)
	if err := NewError(ret, "av_samples_fill_arrays"); err != nil {
		return 0, err
	}
	return int(ret), nil
}

// SamplesSetSilence fills nbSamples starting at offset with silence.
func SamplesSetSilence(audioData unsafe.Pointer, offset, nbSamples, nbChannels, sampleFmt int32) error {
	if avSamplesSetSilence == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avSamplesSetSilence(audioData, offset, nbSamples, nbChannels, sampleFmt), "av_samples_set_silence")
}

// SamplesCopy copies samples between two plane arrays.
func SamplesCopy(dst, src unsafe.Pointer, dstOffset, srcOffset, nbSamples, nbChannels, sampleFmt int32) error {
	if avSamplesCopy == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avSamplesCopy(dst, src, dstOffset, srcOffset, nbSamples, nbChannels, sampleFmt), "av_samples_copy")
}
