//go:build !ios && !android && (amd64 || arm64)

package avfilter

import (
	"testing"

	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoAVFilter(t *testing.T) {
	t.Helper()
	if err := Init(); err != nil {
		t.Skipf("avfilter not available: %v", err)
	}
}

func TestVersion(t *testing.T) {
	skipIfNoAVFilter(t)
	major := (Version() >> 16) & 0xFF
	assert.GreaterOrEqual(t, major, uint32(7))
}

func TestGetByName(t *testing.T) {
	skipIfNoAVFilter(t)

	for name, exists := range map[string]bool{
		"buffer":                    true,
		"buffersink":                true,
		"abuffer":                   true,
		"scale":                     true,
		"null":                      true,
		"nonexistent_filter_xyz123": false,
	} {
		t.Run(name, func(t *testing.T) {
			f := GetByName(name)
			if !exists {
				assert.Nil(t, f)
				return
			}
			require.NotNil(t, f)
			assert.Equal(t, name, GetFilterName(f))
		})
	}
}

func TestInOut(t *testing.T) {
	skipIfNoAVFilter(t)

	head := InOutAlloc()
	require.NotNil(t, head)
	tail := InOutAlloc()
	require.NotNil(t, tail)

	InOutSetName(head, "in")
	InOutSetName(head, "in0")
	InOutSetPadIdx(head, 2)
	InOutSetNext(head, tail)
	InOutSetName(tail, "out")

	assert.Equal(t, "in0", InOutGetName(head))
	assert.EqualValues(t, 2, InOutGetPadIdx(head))
	assert.Nil(t, InOutGetFilterCtx(head))
	assert.Equal(t, tail, InOutGetNext(head))
	assert.Equal(t, "out", InOutGetName(InOutGetNext(head)))
	assert.Nil(t, InOutGetNext(tail))

	InOutFree(&head)
	assert.Nil(t, head)
	InOutFree(&head)
}

func TestCreateFilterBadArgs(t *testing.T) {
	skipIfNoAVFilter(t)

	graph := GraphAlloc()
	require.NotNil(t, graph)
	defer GraphFree(&graph)

	_, err := GraphCreateFilter(graph, GetByName("buffer"), "in", "video_size=bogus")
	require.Error(t, err)
}

// buildPassthrough wires buffer -> filters -> buffersink through
// GraphParsePtr the way a filter description string is normally attached.
func buildPassthrough(t *testing.T, filters string) (Graph, Context, Context) {
	t.Helper()

	graph := GraphAlloc()
	require.NotNil(t, graph)
	t.Cleanup(func() { GraphFree(&graph) })

	src, err := GraphCreateFilter(graph, GetByName("buffer"), "in",
		"video_size=64x48:pix_fmt=0:time_base=1/25:pixel_aspect=1/1")
	require.NoError(t, err)
	sink, err := GraphCreateFilter(graph, GetByName("buffersink"), "out", "")
	require.NoError(t, err)

	outputs := InOutAlloc()
	InOutSetName(outputs, "in")
	InOutSetFilterCtx(outputs, src)
	inputs := InOutAlloc()
	InOutSetName(inputs, "out")
	InOutSetFilterCtx(inputs, sink)

	err = GraphParsePtr(graph, filters, &inputs, &outputs)
	InOutFree(&inputs)
	InOutFree(&outputs)
	require.NoError(t, err)
	require.NoError(t, GraphConfig(graph))
	return graph, src, sink
}

func TestGraphRoundTrip(t *testing.T) {
	skipIfNoAVFilter(t)

	graph, src, sink := buildPassthrough(t, "scale=32:24")
	assert.Equal(t, "in", GetContextName(src))
	assert.Equal(t, "buffer", GetContextFilterName(src))
	assert.Equal(t, 0, GetContextNbInputs(src))
	assert.Equal(t, 1, GetContextNbOutputs(src))
	assert.Equal(t, 1, GetContextNbInputs(sink))
	assert.Contains(t, GraphDump(graph), "scale")

	in := avutil.FrameAlloc()
	require.NotNil(t, in)
	defer avutil.FrameFree(&in)
	avutil.SetFrameWidth(in, 64)
	avutil.SetFrameHeight(in, 48)
	avutil.SetFrameFormat(in, int32(avutil.PixelFormatYUV420P))
	require.NoError(t, avutil.FrameGetBuffer(in, 0))
	avutil.SetFramePTS(in, 7)

	out := avutil.FrameAlloc()
	require.NotNil(t, out)
	defer avutil.FrameFree(&out)

	err := BufferSinkGetFrameFlags(sink, out, 0)
	assert.True(t, avutil.IsAgain(err), "%v", err)

	require.NoError(t, BufferSrcAddFrameFlags(src, in, BufferSrcFlagKeepRef))
	require.NoError(t, BufferSinkGetFrameFlags(sink, out, 0))
	assert.EqualValues(t, 32, avutil.GetFrameWidth(out))
	assert.EqualValues(t, 24, avutil.GetFrameHeight(out))
	assert.EqualValues(t, 7, avutil.GetFramePTS(out))
	avutil.FrameUnref(out)

	require.NoError(t, BufferSrcAddFrameFlags(src, nil, 0))
	err = BufferSinkGetFrameFlags(sink, out, 0)
	assert.True(t, avutil.IsEOF(err), "%v", err)
}
