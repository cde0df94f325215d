//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avfilter"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// FilterGraph is an AVFilterGraph. Build it with CreateFilter, Link and
// Parse, call Configure once, then push and pull frames.
type FilterGraph struct{ resource }

type graphCell struct {
	mu         xsync.Mutex
	native     avfilter.Graph
	configured atomic.Bool
}

// FilterContext is a filter instance inside a FilterGraph. It is valid as
// long as its graph is.
type FilterContext struct {
	owner  resource
	native avfilter.Context
}

// FilterInOut names an open pad of an existing filter for Parse.
type FilterInOut struct {
	Name   string
	Filter FilterContext
	Pad    int
}

// NewFilterGraph allocates an empty graph. libavfilter is loaded on first
// use.
func (b *Bridge) NewFilterGraph(ctx context.Context) (FilterGraph, error) {
	if err := b.checkOpen(); err != nil {
		return FilterGraph{}, err
	}
	if err := avfilter.Init(); err != nil {
		return FilterGraph{}, fmt.Errorf("loading libavfilter: %w", err)
	}
	native := avfilter.GraphAlloc()
	if native == nil {
		return FilterGraph{}, ErrOutOfMemory
	}
	logger.Tracef(b.ctx(ctx), "NewFilterGraph")
	return FilterGraph{b.ref(b.graphs.Insert(&graphCell{native: native}))}, nil
}

func (g FilterGraph) cell() (*graphCell, error) { return resolve(g.resource, tableGraph) }

// Valid reports whether the graph is still alive.
func (g FilterGraph) Valid() bool { return contains(g.resource, tableGraph) }

// Configured reports whether Configure succeeded.
func (g FilterGraph) Configured() bool {
	cell, err := g.cell()
	return err == nil && cell.configured.Load()
}

// Destroy frees the graph and every filter in it.
func (g FilterGraph) Destroy(ctx context.Context) error {
	if g.b == nil {
		return ErrNilBridge
	}
	cell, err := g.b.graphs.Remove(g.h)
	if err != nil {
		return err
	}
	cell.mu.Do(g.b.ctx(ctx), func() {
		avfilter.GraphFree(&cell.native)
	})
	return nil
}

// member checks that fc belongs to g.
func (g FilterGraph) member(fc FilterContext) error {
	if err := g.sameBridge(fc.owner); err != nil {
		return err
	}
	if fc.owner.h != g.h || fc.native == nil {
		return fmt.Errorf("%w: filter %q is not part of graph %v", ErrForeignHandle, avfilter.GetContextName(fc.native), g.h)
	}
	return nil
}

// CreateFilter instantiates filterName as instanceName, initialized with
// args in the filter's option syntax.
func (g FilterGraph) CreateFilter(ctx context.Context, filterName, instanceName, args string) (FilterContext, error) {
	cell, err := g.cell()
	if err != nil {
		return FilterContext{}, err
	}
	filter := avfilter.GetByName(filterName)
	if filter == nil {
		return FilterContext{}, notFound(ErrFilterNotFound, filterName)
	}
	ctx = g.b.ctx(ctx)
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &cell.mu, func() (FilterContext, error) {
		if cell.configured.Load() {
			return FilterContext{}, ErrGraphConfigured
		}
		native, err := avfilter.GraphCreateFilter(cell.native, filter, instanceName, args)
		if err != nil {
			return FilterContext{}, err
		}
		logger.Tracef(ctx, "created filter %s (%s) args=%q", instanceName, filterName, args)
		return FilterContext{owner: g.resource, native: native}, nil
	})
}

// Link connects an output pad of src to an input pad of dst.
func (g FilterGraph) Link(src FilterContext, srcPad int, dst FilterContext, dstPad int) error {
	cell, err := g.cell()
	if err != nil {
		return err
	}
	if err := g.member(src); err != nil {
		return err
	}
	if err := g.member(dst); err != nil {
		return err
	}
	ctx := g.b.ctx(context.Background())
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		if cell.configured.Load() {
			return ErrGraphConfigured
		}
		return avfilter.Link(src.native, uint32(srcPad), dst.native, uint32(dstPad))
	})
}

// inOutList converts pads to a native AVFilterInOut list.
func (g FilterGraph) inOutList(pads []FilterInOut) (avfilter.InOut, error) {
	var head, tail avfilter.InOut
	for _, pad := range pads {
		if err := g.member(pad.Filter); err != nil {
			avfilter.InOutFree(&head)
			return nil, err
		}
		node := avfilter.InOutAlloc()
		if node == nil {
			avfilter.InOutFree(&head)
			return nil, ErrOutOfMemory
		}
		avfilter.InOutSetName(node, pad.Name)
		avfilter.InOutSetFilterCtx(node, pad.Filter.native)
		avfilter.InOutSetPadIdx(node, int32(pad.Pad))
		if head == nil {
			head = node
		} else {
			avfilter.InOutSetNext(tail, node)
		}
		tail = node
	}
	return head, nil
}

func inOutNames(list avfilter.InOut) []string {
	var names []string
	for n := list; n != nil; n = avfilter.InOutGetNext(n) {
		names = append(names, avfilter.InOutGetName(n))
	}
	return names
}

// Parse adds the filter chain desc to the graph. inputs are existing input
// pads (such as a buffersink) the chain's open outputs connect to; outputs
// are existing output pads (such as a buffer source) feeding the chain's
// open inputs. Labels in desc are matched against the Name fields. Pads
// left unconnected are logged and released.
func (g FilterGraph) Parse(ctx context.Context, desc string, inputs, outputs []FilterInOut) error {
	cell, err := g.cell()
	if err != nil {
		return err
	}
	ctx = g.b.ctx(ctx)
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		if cell.configured.Load() {
			return ErrGraphConfigured
		}
		in, err := g.inOutList(inputs)
		if err != nil {
			return err
		}
		defer avfilter.InOutFree(&in)
		out, err := g.inOutList(outputs)
		if err != nil {
			return err
		}
		defer avfilter.InOutFree(&out)

		if err := avfilter.GraphParsePtr(cell.native, desc, &in, &out); err != nil {
			return fmt.Errorf("parsing %q: %w", desc, err)
		}
		if in != nil || out != nil {
			logger.Debugf(ctx, "filter chain %q left pads open: inputs=%v outputs=%v", desc, inOutNames(in), inOutNames(out))
		}
		return nil
	})
}

// Configure validates the graph and negotiates formats. It may succeed
// only once.
func (g FilterGraph) Configure(ctx context.Context) (_err error) {
	cell, err := g.cell()
	if err != nil {
		return err
	}
	ctx = g.b.ctx(ctx)
	logger.Tracef(ctx, "FilterGraph.Configure")
	defer func() { logger.Tracef(ctx, "/FilterGraph.Configure: %v", _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &cell.mu, func() error {
		if cell.configured.Load() {
			return ErrGraphConfigured
		}
		if err := avfilter.GraphConfig(cell.native); err != nil {
			return err
		}
		cell.configured.Store(true)
		return nil
	})
}

// PushFrame feeds a frame to a buffer or abuffer source, keeping the
// caller's reference. A nil frame marks end of stream.
func (g FilterGraph) PushFrame(ctx context.Context, src FilterContext, frame *Frame) error {
	cell, err := g.cell()
	if err != nil {
		return err
	}
	if err := g.member(src); err != nil {
		return err
	}
	var f avutil.Frame
	if frame != nil {
		if err := g.sameBridge(frame.resource); err != nil {
			return err
		}
		if f, err = frame.get(); err != nil {
			return err
		}
	}
	return xsync.DoR1(xsync.WithNoLogging(g.b.ctx(ctx), true), &cell.mu, func() error {
		if !cell.configured.Load() {
			return ErrGraphNotConfigured
		}
		return avfilter.BufferSrcAddFrameFlags(src.native, f, avfilter.BufferSrcFlagKeepRef)
	})
}

// PullFrame takes a filtered frame from a buffersink or abuffersink,
// replacing what frame held.
func (g FilterGraph) PullFrame(ctx context.Context, sink FilterContext, frame Frame) (Status, error) {
	cell, err := g.cell()
	if err != nil {
		return StatusError, err
	}
	if err := g.member(sink); err != nil {
		return StatusError, err
	}
	if err := g.sameBridge(frame.resource); err != nil {
		return StatusError, err
	}
	f, err := frame.get()
	if err != nil {
		return StatusError, err
	}
	return xsync.DoR2(xsync.WithNoLogging(g.b.ctx(ctx), true), &cell.mu, func() (Status, error) {
		if !cell.configured.Load() {
			return StatusError, ErrGraphNotConfigured
		}
		avutil.FrameUnref(f)
		return receiveStatus(avfilter.BufferSinkGetFrameFlags(sink.native, f, 0))
	})
}

// Dump renders the configured graph, "" before Configure.
func (g FilterGraph) Dump() string {
	cell, err := g.cell()
	if err != nil {
		g.logLookup("FilterGraph.Dump", err)
		return ""
	}
	if !cell.configured.Load() {
		return ""
	}
	return xsync.DoR1(xsync.WithNoLogging(g.b.ctx(context.Background()), true), &cell.mu, func() string {
		return avfilter.GraphDump(cell.native)
	})
}

// Valid reports whether the owning graph is alive.
func (fc FilterContext) Valid() bool {
	return fc.native != nil && contains(fc.owner, tableGraph)
}

func (fc FilterContext) ptr(op string) avfilter.Context {
	if _, err := resolve(fc.owner, tableGraph); err != nil {
		fc.owner.logLookup("FilterContext."+op, err)
		return nil
	}
	return fc.native
}

// Name returns the instance name.
func (fc FilterContext) Name() string { return avfilter.GetContextName(fc.ptr("Name")) }

// FilterName returns the name of the filter this is an instance of.
func (fc FilterContext) FilterName() string {
	return avfilter.GetContextFilterName(fc.ptr("FilterName"))
}

func (fc FilterContext) NbInputs() int { return avfilter.GetContextNbInputs(fc.ptr("NbInputs")) }
func (fc FilterContext) NbOutputs() int { return avfilter.GetContextNbOutputs(fc.ptr("NbOutputs")) }

// SetOption sets a filter option from its string form.
func (fc FilterContext) SetOption(key, value string) error {
	cell, err := resolve(fc.owner, tableGraph)
	if err != nil {
		return err
	}
	return xsync.DoR1(xsync.WithNoLogging(fc.owner.b.ctx(context.Background()), true), &cell.mu, func() error {
		return avutil.OptSet(fc.native, key, value, avutil.OptSearchChildren)
	})
}

// Option reads a filter option in its string form.
func (fc FilterContext) Option(key string) (string, error) {
	cell, err := resolve(fc.owner, tableGraph)
	if err != nil {
		return "", err
	}
	return xsync.DoR2(xsync.WithNoLogging(fc.owner.b.ctx(context.Background()), true), &cell.mu, func() (string, error) {
		return avutil.OptGet(fc.native, key, avutil.OptSearchChildren)
	})
}

// SetFrameSize makes an abuffersink return frames of exactly n samples,
// except the last. Encoders with a fixed FrameSize need this.
func (fc FilterContext) SetFrameSize(n int) {
	avfilter.BufferSinkSetFrameSize(fc.ptr("SetFrameSize"), uint32(n))
}

// VideoFilterInput describes the frames pushed into a video graph.
type VideoFilterInput struct {
	Width             int
	Height            int
	PixelFormat       PixelFormat
	TimeBase          Rational
	SampleAspectRatio Rational
	FrameRate         Rational
}

func (in VideoFilterInput) args() string {
	tb := in.TimeBase
	if !tb.Valid() {
		tb = Rational{Num: 1, Den: 90000}
	}
	sar := in.SampleAspectRatio
	if !sar.Valid() {
		sar = Rational{Num: 1, Den: 1}
	}
	args := fmt.Sprintf("video_size=%dx%d:pix_fmt=%d:time_base=%d/%d:pixel_aspect=%d/%d",
		in.Width, in.Height, int(in.PixelFormat), tb.Num, tb.Den, sar.Num, sar.Den)
	if in.FrameRate.Valid() {
		args += fmt.Sprintf(":frame_rate=%d/%d", in.FrameRate.Num, in.FrameRate.Den)
	}
	return args
}

// AudioFilterInput describes the frames pushed into an audio graph.
type AudioFilterInput struct {
	SampleRate    int
	SampleFormat  SampleFormat
	ChannelLayout ChannelLayout
	TimeBase      Rational
}

func (in AudioFilterInput) args() string {
	tb := in.TimeBase
	if !tb.Valid() {
		tb = Rational{Num: 1, Den: int32(in.SampleRate)}
	}
	return fmt.Sprintf("sample_rate=%d:sample_fmt=%s:channel_layout=%s:time_base=%d/%d",
		in.SampleRate, avutil.GetSampleFmtName(int32(in.SampleFormat)), in.ChannelLayout.Describe(), tb.Num, tb.Den)
}

// SimpleFilterGraph is a configured single-input, single-output graph.
type SimpleFilterGraph struct {
	Graph  FilterGraph
	Source FilterContext
	Sink   FilterContext
}

// NewVideoFilterGraph builds and configures buffer -> desc -> buffersink.
// An empty desc passes frames through.
func (b *Bridge) NewVideoFilterGraph(ctx context.Context, desc string, in VideoFilterInput) (*SimpleFilterGraph, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("video filter input %dx%d: %w", in.Width, in.Height, avutil.NewError(avutil.AVERROR_EINVAL, "buffer"))
	}
	return b.newSimpleFilterGraph(ctx, "buffer", "buffersink", in.args(), desc, "null")
}

// NewAudioFilterGraph builds and configures abuffer -> desc -> abuffersink.
func (b *Bridge) NewAudioFilterGraph(ctx context.Context, desc string, in AudioFilterInput) (*SimpleFilterGraph, error) {
	if in.SampleRate <= 0 || !in.ChannelLayout.Valid() {
		return nil, fmt.Errorf("audio filter input %d Hz %s: %w", in.SampleRate, in.ChannelLayout, avutil.NewError(avutil.AVERROR_EINVAL, "abuffer"))
	}
	return b.newSimpleFilterGraph(ctx, "abuffer", "abuffersink", in.args(), desc, "anull")
}

func (b *Bridge) newSimpleFilterGraph(ctx context.Context, srcName, sinkName, srcArgs, desc, passthrough string) (_ *SimpleFilterGraph, _err error) {
	g, err := b.NewFilterGraph(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _err != nil {
			_ = g.Destroy(ctx)
		}
	}()

	src, err := g.CreateFilter(ctx, srcName, "in", srcArgs)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", srcName, err)
	}
	sink, err := g.CreateFilter(ctx, sinkName, "out", "")
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", sinkName, err)
	}
	if strings.TrimSpace(desc) == "" {
		desc = passthrough
	}
	err = g.Parse(ctx, desc,
		[]FilterInOut{{Name: "out", Filter: sink}},
		[]FilterInOut{{Name: "in", Filter: src}},
	)
	if err != nil {
		return nil, err
	}
	if err := g.Configure(ctx); err != nil {
		return nil, err
	}
	return &SimpleFilterGraph{Graph: g, Source: src, Sink: sink}, nil
}

// Push feeds a frame; nil marks end of stream.
func (s *SimpleFilterGraph) Push(ctx context.Context, frame *Frame) error {
	return s.Graph.PushFrame(ctx, s.Source, frame)
}

// Pull takes a filtered frame.
func (s *SimpleFilterGraph) Pull(ctx context.Context, frame Frame) (Status, error) {
	return s.Graph.PullFrame(ctx, s.Sink, frame)
}

func (s *SimpleFilterGraph) Destroy(ctx context.Context) error { return s.Graph.Destroy(ctx) }
