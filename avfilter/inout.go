//go:build !ios && !android && (amd64 || arm64)

package avfilter

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/avutil"
)

// AVFilterInOut layout:
//
//	char *name;                   // 0
//	AVFilterContext *filter_ctx;  // 8
//	int pad_idx;                  // 16
//	struct AVFilterInOut *next;   // 24
const (
	offsetInOutName      = 0
	offsetInOutFilterCtx = 8
	offsetInOutPadIdx    = 16
	offsetInOutNext      = 24
)

// InOutAlloc allocates one zeroed AVFilterInOut node.
func InOutAlloc() InOut {
	if Init() != nil {
		return nil
	}
	return avfilterInOutAlloc()
}

// InOutFree frees a whole list, names included, and sets *inout to nil.
func InOutFree(inout *InOut) {
	if inout == nil || *inout == nil || Init() != nil {
		return
	}
	avfilterInOutFree(inout)
	*inout = nil
}

// InOutSetName replaces the node's label with an av_strdup copy of name.
func InOutSetName(inout InOut, name string) {
	if inout == nil {
		return
	}
	field := (*unsafe.Pointer)(unsafe.Add(inout, offsetInOutName))
	avutil.Free(*field)
	*field = nil
	if name != "" {
		*field = avutil.Strdup(name)
	}
}

// InOutGetName returns the node's label.
func InOutGetName(inout InOut) string {
	if inout == nil {
		return ""
	}
	return avutil.GoString(*(*unsafe.Pointer)(unsafe.Add(inout, offsetInOutName)))
}

func InOutSetFilterCtx(inout InOut, ctx Context) {
	if inout == nil {
		return
	}
	*(*unsafe.Pointer)(unsafe.Add(inout, offsetInOutFilterCtx)) = ctx
}

func InOutGetFilterCtx(inout InOut) Context {
	if inout == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(inout, offsetInOutFilterCtx))
}

func InOutSetPadIdx(inout InOut, padIdx int32) {
	if inout == nil {
		return
	}
	*(*int32)(unsafe.Add(inout, offsetInOutPadIdx)) = padIdx
}

func InOutGetPadIdx(inout InOut) int32 {
	if inout == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(inout, offsetInOutPadIdx))
}

func InOutSetNext(inout InOut, next InOut) {
	if inout == nil {
		return
	}
	*(*unsafe.Pointer)(unsafe.Add(inout, offsetInOutNext)) = next
}

func InOutGetNext(inout InOut) InOut {
	if inout == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Add(inout, offsetInOutNext))
}
