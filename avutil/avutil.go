//go:build !ios && !android && (amd64 || arm64)

// Package avutil binds the parts of libavutil used by the bridge: frames,
// memory, dictionaries, channel layouts, image and sample buffers, the audio
// FIFO, AVOptions, hardware device contexts, logging and error strings.
//
// All functions are thin: they take and return raw native pointers and leave
// ownership rules to the caller.
package avutil

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// Frame is an opaque FFmpeg AVFrame pointer.
type Frame = unsafe.Pointer

// Dictionary is an opaque FFmpeg AVDictionary pointer.
type Dictionary = unsafe.Pointer

// AudioFIFO is an opaque FFmpeg AVAudioFifo pointer.
type AudioFIFO = unsafe.Pointer

var (
	avFrameAlloc        func() unsafe.Pointer
	avFrameFree         func(frame *unsafe.Pointer)
	avFrameRef          func(dst, src unsafe.Pointer) int32
	avFrameUnref        func(frame unsafe.Pointer)
	avFrameGetBuffer    func(frame unsafe.Pointer, align int32) int32
	avFrameMakeWritable func(frame unsafe.Pointer) int32
	avFrameCopyProps    func(dst, src unsafe.Pointer) int32

	avMalloc  func(size uintptr) unsafe.Pointer
	avMallocz func(size uintptr) unsafe.Pointer
	avFree    func(ptr unsafe.Pointer)
	avStrdup  func(s string) unsafe.Pointer

	avDictSet   func(pm *unsafe.Pointer, key, value string, flags int32) int32
	avDictGet   func(m unsafe.Pointer, key string, prev unsafe.Pointer, flags int32) unsafe.Pointer
	avDictCount func(m unsafe.Pointer) int32
	avDictCopy  func(dst *unsafe.Pointer, src unsafe.Pointer, flags int32) int32
	avDictFree  func(pm *unsafe.Pointer)

	avStrerror func(errnum int32, errbuf unsafe.Pointer, errbufSize uintptr) int32

	avLogSetLevel func(level int32)
	avLogGetLevel func() int32

	avChannelLayoutDefault  func(chLayout unsafe.Pointer, nbChannels int32)
	avChannelLayoutFromMask func(chLayout unsafe.Pointer, mask uint64) int32
	avChannelLayoutCopy     func(dst, src unsafe.Pointer) int32
	avChannelLayoutUninit   func(chLayout unsafe.Pointer)
	avChannelLayoutDescribe func(chLayout unsafe.Pointer, buf unsafe.Pointer, bufSize uintptr) int32

	avImageGetBufferSize func(pixFmt, width, height, align int32) int32
	avImageFillArrays    func(dstData unsafe.Pointer, dstLinesize unsafe.Pointer, src unsafe.Pointer, pixFmt, width, height, align int32) int32
	avImageCopyToBuffer  func(dst unsafe.Pointer, dstSize int32, srcData unsafe.Pointer, srcLinesize unsafe.Pointer, pixFmt, width, height, align int32) int32
	avImageGetLinesize   func(pixFmt, width, plane int32) int32
	avImagePlaneSizes    func(sizes *[4]uintptr, pixFmt, height int32, linesizes *[4]int) int32

	avSamplesGetBufferSize func(linesize *int32, nbChannels, nbSamples, sampleFmt, align int32) int32
	avSamplesFillArrays    func(audioData unsafe.Pointer, linesize *int32, buf unsafe.Pointer, nbChannels, nbSamples, sampleFmt, align int32) int32
	avSamplesSetSilence    func(audioData unsafe.Pointer, offset, nbSamples, nbChannels, sampleFmt int32) int32
	avSamplesCopy          func(dst, src unsafe.Pointer, dstOffset, srcOffset, nbSamples, nbChannels, sampleFmt int32) int32

	avGetBytesPerSample func(sampleFmt int32) int32
	avSampleFmtIsPlanar func(sampleFmt int32) int32
	avGetSampleFmtName  func(sampleFmt int32) unsafe.Pointer
	avGetPixFmtName     func(pixFmt int32) unsafe.Pointer
	avGetMediaTypeStr   func(mediaType int32) unsafe.Pointer

	avAudioFifoAlloc func(sampleFmt, channels, nbSamples int32) unsafe.Pointer
	avAudioFifoFree  func(af unsafe.Pointer)
	avAudioFifoWrite func(af unsafe.Pointer, data unsafe.Pointer, nbSamples int32) int32
	avAudioFifoRead  func(af unsafe.Pointer, data unsafe.Pointer, nbSamples int32) int32
	avAudioFifoPeek  func(af unsafe.Pointer, data unsafe.Pointer, nbSamples int32) int32
	avAudioFifoDrain func(af unsafe.Pointer, nbSamples int32) int32
	avAudioFifoReset func(af unsafe.Pointer)
	avAudioFifoSize  func(af unsafe.Pointer) int32
	avAudioFifoSpace func(af unsafe.Pointer) int32

	avOptSet    func(obj unsafe.Pointer, name, val string, searchFlags int32) int32
	avOptSetInt func(obj unsafe.Pointer, name string, val int64, searchFlags int32) int32
	avOptGet    func(obj unsafe.Pointer, name string, searchFlags int32, outVal *unsafe.Pointer) int32

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

var bindMu sync.Mutex

// Bind registers the function bindings, retrying the library load when it
// failed at package init (for example before a search path was added).
func Bind() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	bindMu.Lock()
	defer bindMu.Unlock()
	registerBindings()
	return nil
}

func registerBindings() {
	if bindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avFrameAlloc, lib, "av_frame_alloc")
	purego.RegisterLibFunc(&avFrameFree, lib, "av_frame_free")
	purego.RegisterLibFunc(&avFrameRef, lib, "av_frame_ref")
	purego.RegisterLibFunc(&avFrameUnref, lib, "av_frame_unref")
	purego.RegisterLibFunc(&avFrameGetBuffer, lib, "av_frame_get_buffer")
	purego.RegisterLibFunc(&avFrameMakeWritable, lib, "av_frame_make_writable")
	purego.RegisterLibFunc(&avFrameCopyProps, lib, "av_frame_copy_props")

	purego.RegisterLibFunc(&avMalloc, lib, "av_malloc")
	purego.RegisterLibFunc(&avMallocz, lib, "av_mallocz")
	purego.RegisterLibFunc(&avFree, lib, "av_free")
	purego.RegisterLibFunc(&avStrdup, lib, "av_strdup")

	purego.RegisterLibFunc(&avDictSet, lib, "av_dict_set")
	purego.RegisterLibFunc(&avDictGet, lib, "av_dict_get")
	purego.RegisterLibFunc(&avDictCount, lib, "av_dict_count")
	purego.RegisterLibFunc(&avDictCopy, lib, "av_dict_copy")
	purego.RegisterLibFunc(&avDictFree, lib, "av_dict_free")

	purego.RegisterLibFunc(&avStrerror, lib, "av_strerror")

	purego.RegisterLibFunc(&avLogSetLevel, lib, "av_log_set_level")
	purego.RegisterLibFunc(&avLogGetLevel, lib, "av_log_get_level")

	// AVChannelLayout API appeared in avutil 57.24 (FFmpeg 5.1)
	registerOptional(&avChannelLayoutDefault, lib, "av_channel_layout_default")
	registerOptional(&avChannelLayoutFromMask, lib, "av_channel_layout_from_mask")
	registerOptional(&avChannelLayoutCopy, lib, "av_channel_layout_copy")
	registerOptional(&avChannelLayoutUninit, lib, "av_channel_layout_uninit")
	registerOptional(&avChannelLayoutDescribe, lib, "av_channel_layout_describe")

	purego.RegisterLibFunc(&avImageGetBufferSize, lib, "av_image_get_buffer_size")
	purego.RegisterLibFunc(&avImageFillArrays, lib, "av_image_fill_arrays")
	purego.RegisterLibFunc(&avImageCopyToBuffer, lib, "av_image_copy_to_buffer")
	purego.RegisterLibFunc(&avImageGetLinesize, lib, "av_image_get_linesize")
	purego.RegisterLibFunc(&avImagePlaneSizes, lib, "av_image_fill_plane_sizes")

	purego.RegisterLibFunc(&avSamplesGetBufferSize, lib, "av_samples_get_buffer_size")
	purego.RegisterLibFunc(&avSamplesFillArrays, lib, "av_samples_fill_arrays")
	purego.RegisterLibFunc(&avSamplesSetSilence, lib, "av_samples_set_silence")
	purego.RegisterLibFunc(&avSamplesCopy, lib, "av_samples_copy")

	purego.RegisterLibFunc(&avGetBytesPerSample, lib, "av_get_bytes_per_sample")
	purego.RegisterLibFunc(&avSampleFmtIsPlanar, lib, "av_sample_fmt_is_planar")
	purego.RegisterLibFunc(&avGetSampleFmtName, lib, "av_get_sample_fmt_name")
	purego.RegisterLibFunc(&avGetPixFmtName, lib, "av_get_pix_fmt_name")
	purego.RegisterLibFunc(&avGetMediaTypeStr, lib, "av_get_media_type_string")

	purego.RegisterLibFunc(&avAudioFifoAlloc, lib, "av_audio_fifo_alloc")
	purego.RegisterLibFunc(&avAudioFifoFree, lib, "av_audio_fifo_free")
	purego.RegisterLibFunc(&avAudioFifoWrite, lib, "av_audio_fifo_write")
	purego.RegisterLibFunc(&avAudioFifoRead, lib, "av_audio_fifo_read")
	purego.RegisterLibFunc(&avAudioFifoPeek, lib, "av_audio_fifo_peek")
	purego.RegisterLibFunc(&avAudioFifoDrain, lib, "av_audio_fifo_drain")
	purego.RegisterLibFunc(&avAudioFifoReset, lib, "av_audio_fifo_reset")
	purego.RegisterLibFunc(&avAudioFifoSize, lib, "av_audio_fifo_size")
	purego.RegisterLibFunc(&avAudioFifoSpace, lib, "av_audio_fifo_space")

	purego.RegisterLibFunc(&avOptSet, lib, "av_opt_set")
	purego.RegisterLibFunc(&avOptSetInt, lib, "av_opt_set_int")
	purego.RegisterLibFunc(&avOptGet, lib, "av_opt_get")

	registerHWBindings(lib)

	bindingsRegistered = true
}

// registerOptional binds a symbol that older library versions may lack.
// purego.RegisterLibFunc panics on a missing symbol.
func registerOptional(fptr any, lib uintptr, name string) {
	defer func() {
		_ = recover()
	}()
	purego.RegisterLibFunc(fptr, lib, name)
}

// Malloc allocates memory using FFmpeg's allocator.
func Malloc(size uintptr) unsafe.Pointer {
	if avMalloc == nil {
		return nil
	}
	return avMalloc(size)
}

// Mallocz is Malloc with the memory zeroed.
func Mallocz(size uintptr) unsafe.Pointer {
	if avMallocz == nil {
		return nil
	}
	return avMallocz(size)
}

// Free frees memory allocated by Malloc, Mallocz or Strdup.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || avFree == nil {
		return
	}
	avFree(ptr)
}

// Strdup copies s into av_malloc'd memory, NUL terminated.
func Strdup(s string) unsafe.Pointer {
	if avStrdup == nil {
		return nil
	}
	return avStrdup(s)
}

// GoString copies the NUL terminated C string at p.
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// ErrorString returns a human-readable error message for an FFmpeg error code.
func ErrorString(errnum int32) string {
	if avStrerror == nil {
		return "unknown error (FFmpeg not loaded)"
	}

	var buf [256]byte
	avStrerror(errnum, unsafe.Pointer(&buf[0]), uintptr(len(buf)))
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf[:])
}

// Native log levels (AV_LOG_*).
const (
	LogQuiet   int32 = -8
	LogPanic   int32 = 0
	LogFatal   int32 = 8
	LogError   int32 = 16
	LogWarning int32 = 24
	LogInfo    int32 = 32
	LogVerbose int32 = 40
	LogDebug   int32 = 48
	LogTrace   int32 = 56
)

// LogSetLevel sets the process-wide FFmpeg log level.
func LogSetLevel(level int32) {
	if avLogSetLevel == nil {
		return
	}
	avLogSetLevel(level)
}

// LogGetLevel returns the process-wide FFmpeg log level.
func LogGetLevel() int32 {
	if avLogGetLevel == nil {
		return LogQuiet
	}
	return avLogGetLevel()
}

// AV_OPT_SEARCH_CHILDREN
const OptSearchChildren int32 = 1

// OptSet sets an AVOption on obj from its string form.
func OptSet(obj unsafe.Pointer, name, value string, searchFlags int32) error {
	if avOptSet == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSet(obj, name, value, searchFlags), "av_opt_set("+name+")")
}

// OptSetInt sets an integer AVOption on obj.
func OptSetInt(obj unsafe.Pointer, name string, value int64, searchFlags int32) error {
	if avOptSetInt == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSetInt(obj, name, value, searchFlags), "av_opt_set_int("+name+")")
}

// OptGet reads an AVOption of obj in its string form.
func OptGet(obj unsafe.Pointer, name string, searchFlags int32) (string, error) {
	if avOptGet == nil {
		return "", bindings.ErrNotLoaded
	}
	var out unsafe.Pointer
	if err := NewError(avOptGet(obj, name, searchFlags, &out), "av_opt_get("+name+")"); err != nil {
		return "", err
	}
	defer Free(out)
	return GoString(out), nil
}

// GetPixFmtName returns the name of a pixel format, or "".
func GetPixFmtName(pixFmt int32) string {
	if avGetPixFmtName == nil {
		return ""
	}
	return GoString(avGetPixFmtName(pixFmt))
}

// GetSampleFmtName returns the name of a sample format, or "".
func GetSampleFmtName(sampleFmt int32) string {
	if avGetSampleFmtName == nil {
		return ""
	}
	return GoString(avGetSampleFmtName(sampleFmt))
}

// GetMediaTypeString returns the name of a media type, or "".
func GetMediaTypeString(mediaType int32) string {
	if avGetMediaTypeStr == nil {
		return ""
	}
	return GoString(avGetMediaTypeStr(mediaType))
}

// GetBytesPerSample returns the size of one sample of sampleFmt, or 0.
func GetBytesPerSample(sampleFmt int32) int32 {
	if avGetBytesPerSample == nil {
		return 0
	}
	return avGetBytesPerSample(sampleFmt)
}

// SampleFmtIsPlanar reports whether sampleFmt stores each channel separately.
func SampleFmtIsPlanar(sampleFmt int32) bool {
	if avSampleFmtIsPlanar == nil {
		return false
	}
	return avSampleFmtIsPlanar(sampleFmt) != 0
}
