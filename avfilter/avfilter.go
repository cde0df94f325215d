//go:build !ios && !android && (amd64 || arm64)

// Package avfilter binds libavfilter: graphs, filter instances, In/Out
// descriptor lists and the buffer source/sink endpoints.
package avfilter

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

type (
	// Graph is an opaque AVFilterGraph pointer.
	Graph = unsafe.Pointer
	// Context is an opaque AVFilterContext pointer.
	Context = unsafe.Pointer
	// Filter is an opaque AVFilter pointer.
	Filter = unsafe.Pointer
	// InOut is an opaque AVFilterInOut pointer.
	InOut = unsafe.Pointer
)

var (
	libAVFilter uintptr
	initOnce    sync.Once
	initErr     error
)

var (
	avfilterGraphAlloc        func() unsafe.Pointer
	avfilterGraphFree         func(graph *unsafe.Pointer)
	avfilterGraphConfig       func(graph, logCtx unsafe.Pointer) int32
	avfilterGraphParsePtr     func(graph unsafe.Pointer, filters string, inputs, outputs *unsafe.Pointer, logCtx unsafe.Pointer) int32
	avfilterGraphCreateFilter func(filtCtx *unsafe.Pointer, filt unsafe.Pointer, name string, args unsafe.Pointer, opaque, graph unsafe.Pointer) int32
	avfilterGraphDump         func(graph unsafe.Pointer, options unsafe.Pointer) unsafe.Pointer
	avfilterGetByName         func(name string) unsafe.Pointer
	avfilterLink              func(src unsafe.Pointer, srcPad uint32, dst unsafe.Pointer, dstPad uint32) int32
	avfilterInOutAlloc        func() unsafe.Pointer
	avfilterInOutFree         func(inout *unsafe.Pointer)
	avfilterVersion           func() uint32

	avBuffersrcAddFrameFlags  func(ctx, frame unsafe.Pointer, flags int32) int32
	avBuffersinkGetFrameFlags func(ctx, frame unsafe.Pointer, flags int32) int32
	avBuffersinkSetFrameSize  func(ctx unsafe.Pointer, frameSize uint32)
)

// Buffer source flags (AV_BUFFERSRC_FLAG_*).
const (
	BufferSrcFlagNoCheckFormat int32 = 1
	BufferSrcFlagPush          int32 = 4
	BufferSrcFlagKeepRef       int32 = 8
)

// Buffer sink flags (AV_BUFFERSINK_FLAG_*).
const (
	BufferSinkFlagPeek      int32 = 1
	BufferSinkFlagNoRequest int32 = 2
)

// Init loads libavfilter. It is optional; every other function reports
// bindings.ErrNotLoaded or returns nil when it is missing.
func Init() error {
	initOnce.Do(func() {
		initErr = initLibrary()
	})
	return initErr
}

func initLibrary() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	var err error
	libAVFilter, err = bindings.LoadOptional(bindings.AVFilter)
	if err != nil {
		return fmt.Errorf("avfilter: %w", err)
	}

	purego.RegisterLibFunc(&avfilterGraphAlloc, libAVFilter, "avfilter_graph_alloc")
	purego.RegisterLibFunc(&avfilterGraphFree, libAVFilter, "avfilter_graph_free")
	purego.RegisterLibFunc(&avfilterGraphConfig, libAVFilter, "avfilter_graph_config")
	purego.RegisterLibFunc(&avfilterGraphParsePtr, libAVFilter, "avfilter_graph_parse_ptr")
	purego.RegisterLibFunc(&avfilterGraphCreateFilter, libAVFilter, "avfilter_graph_create_filter")
	purego.RegisterLibFunc(&avfilterGraphDump, libAVFilter, "avfilter_graph_dump")
	purego.RegisterLibFunc(&avfilterGetByName, libAVFilter, "avfilter_get_by_name")
	purego.RegisterLibFunc(&avfilterLink, libAVFilter, "avfilter_link")
	purego.RegisterLibFunc(&avfilterInOutAlloc, libAVFilter, "avfilter_inout_alloc")
	purego.RegisterLibFunc(&avfilterInOutFree, libAVFilter, "avfilter_inout_free")
	purego.RegisterLibFunc(&avfilterVersion, libAVFilter, "avfilter_version")

	purego.RegisterLibFunc(&avBuffersrcAddFrameFlags, libAVFilter, "av_buffersrc_add_frame_flags")
	purego.RegisterLibFunc(&avBuffersinkGetFrameFlags, libAVFilter, "av_buffersink_get_frame_flags")
	purego.RegisterLibFunc(&avBuffersinkSetFrameSize, libAVFilter, "av_buffersink_set_frame_size")
	return nil
}

// Version returns the packed libavfilter version, or 0 when unavailable.
func Version() uint32 {
	if err := Init(); err != nil {
		return 0
	}
	return avfilterVersion()
}

// GraphAlloc allocates an empty filter graph.
func GraphAlloc() Graph {
	if err := Init(); err != nil {
		return nil
	}
	return avfilterGraphAlloc()
}

// GraphFree frees a graph and every filter in it, then sets *graph to nil.
func GraphFree(graph *Graph) {
	if graph == nil || *graph == nil || Init() != nil {
		return
	}
	avfilterGraphFree(graph)
	*graph = nil
}

// GraphConfig checks links and negotiates formats for the whole graph.
func GraphConfig(graph Graph) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.NewError(avfilterGraphConfig(graph, nil), "avfilter_graph_config")
}

// GraphParsePtr adds the filter chain described by filters to graph.
// inputs and outputs are linked lists of already existing endpoints to
// connect to the chain's open pads; on return they hold what stayed
// unconnected and the caller frees them.
func GraphParsePtr(graph Graph, filters string, inputs, outputs *InOut) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.NewError(avfilterGraphParsePtr(graph, filters, inputs, outputs, nil), "avfilter_graph_parse_ptr")
}

// GraphCreateFilter creates an instance of filter named name in graph and
// initializes it with args, which may be empty.
func GraphCreateFilter(graph Graph, filter Filter, name, args string) (Context, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	var cargs unsafe.Pointer
	if args != "" {
		cargs = avutil.Strdup(args)
		defer avutil.Free(cargs)
	}
	var ctx Context
	ret := avfilterGraphCreateFilter(&ctx, filter, name, cargs, nil, graph)
	if err := avutil.NewError(ret, "avfilter_graph_create_filter("+name+")"); err != nil {
		return nil, err
	}
	return ctx, nil
}

// GraphDump renders the configured graph as ASCII art.
func GraphDump(graph Graph) string {
	if graph == nil || Init() != nil {
		return ""
	}
	p := avfilterGraphDump(graph, nil)
	defer avutil.Free(p)
	return avutil.GoString(p)
}

// GetByName finds a registered filter, e.g. "buffer" or "scale".
func GetByName(name string) Filter {
	if Init() != nil {
		return nil
	}
	return avfilterGetByName(name)
}

// Link connects output pad srcPad of src to input pad dstPad of dst.
func Link(src Context, srcPad uint32, dst Context, dstPad uint32) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.NewError(avfilterLink(src, srcPad, dst, dstPad), "avfilter_link")
}

// BufferSrcAddFrameFlags pushes frame into a buffer/abuffer source. A nil
// frame marks end of stream.
func BufferSrcAddFrameFlags(ctx Context, frame avutil.Frame, flags int32) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.NewError(avBuffersrcAddFrameFlags(ctx, frame, flags), "av_buffersrc_add_frame_flags")
}

// BufferSinkGetFrameFlags pulls a filtered frame. EAGAIN and EOF come back
// as errors.
func BufferSinkGetFrameFlags(ctx Context, frame avutil.Frame, flags int32) error {
	if err := Init(); err != nil {
		return err
	}
	return avutil.NewError(avBuffersinkGetFrameFlags(ctx, frame, flags), "av_buffersink_get_frame")
}

// BufferSinkSetFrameSize makes an audio sink return frames of exactly
// frameSize samples, except the last one.
func BufferSinkSetFrameSize(ctx Context, frameSize uint32) {
	if ctx == nil || Init() != nil {
		return
	}
	avBuffersinkSetFrameSize(ctx, frameSize)
}

// AVFilterContext field offsets.
const (
	offsetCtxFilter = 8
	offsetCtxName   = 16
	offsetCtxNbIn   = 40
	offsetCtxNbOut  = 64
)

// AVFilter.name is the first field.
const offsetFilterName = 0

// GetContextName returns the instance name of a filter context.
func GetContextName(ctx Context) string {
	if ctx == nil {
		return ""
	}
	return avutil.GoString(*(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxName)))
}

// GetContextFilterName returns the name of the filter a context instantiates.
func GetContextFilterName(ctx Context) string {
	if ctx == nil {
		return ""
	}
	return GetFilterName(*(*unsafe.Pointer)(unsafe.Add(ctx, offsetCtxFilter)))
}

// GetContextNbInputs returns the number of input pads.
func GetContextNbInputs(ctx Context) int {
	if ctx == nil {
		return 0
	}
	return int(*(*uint32)(unsafe.Add(ctx, offsetCtxNbIn)))
}

// GetContextNbOutputs returns the number of output pads.
func GetContextNbOutputs(ctx Context) int {
	if ctx == nil {
		return 0
	}
	return int(*(*uint32)(unsafe.Add(ctx, offsetCtxNbOut)))
}

// GetFilterName returns AVFilter.name.
func GetFilterName(f Filter) string {
	if f == nil {
		return ""
	}
	return avutil.GoString(*(*unsafe.Pointer)(unsafe.Add(f, offsetFilterName)))
}
