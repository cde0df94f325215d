//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/google/uuid"
	"github.com/obinnaokechukwu/avbridge/avcodec"
	"github.com/obinnaokechukwu/avbridge/avformat"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
	"github.com/obinnaokechukwu/avbridge/internal/handles"
	"go.uber.org/atomic"
)

// Bridge owns every native resource created through it. Resources of
// different bridges cannot be mixed.
type Bridge struct {
	id     uuid.UUID
	config Config
	logger logger.Logger
	closed atomic.Bool

	ioContexts   *handles.Table[*ioCell]
	formats      *handles.Table[*formatCell]
	codecs       *handles.Table[*codecCell]
	parameters   *handles.Table[avcodec.Parameters]
	frames       *handles.Table[avutil.Frame]
	packets      *handles.Table[avcodec.Packet]
	dictionaries *handles.Table[*dictionaryCell]
	scalers      *handles.Table[*scalerCell]
	resamplers   *handles.Table[*resamplerCell]
	fifos        *handles.Table[*fifoCell]
	graphs       *handles.Table[*graphCell]
	images       *handles.Table[*bufferCell]
	samples      *handles.Table[*bufferCell]
	hwDevices    *handles.Table[*hwDeviceCell]
}

// NewLogger builds the default logrus-backed logger at the given level.
func NewLogger(level LogLevel) logger.Logger {
	return logrus.Default().WithLevel(logger.Level(level))
}

// New loads the FFmpeg libraries (once per process) and returns a bridge.
// The bridge logs through the logger carried by ctx, or through NewLogger
// at cfg.LogLevel when ctx has none.
func New(ctx context.Context, cfg Config) (_ *Bridge, _err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()
	cfg.applyEnv()

	l := logger.FromCtx(ctx)
	if l == nil {
		l = NewLogger(cfg.LogLevel)
	}
	id := uuid.New()
	l = l.WithField("bridge_id", id.String())
	ctx = logger.CtxWithLogger(ctx, l)

	logger.Tracef(ctx, "New")
	defer func() { logger.Tracef(ctx, "/New: %v", _err) }()

	if cfg.LibraryPath != "" {
		bindings.AddSearchPath(cfg.LibraryPath)
	}
	belt.Flush(ctx)
	for _, bind := range []func() error{avutil.Bind, avcodec.Bind, avformat.Bind} {
		if err := bind(); err != nil {
			return nil, fmt.Errorf("loading FFmpeg: %w", err)
		}
	}
	avutil.LogSetLevel(NativeLogLevel(logger.Level(cfg.NativeLogLevel)))

	b := &Bridge{
		id:     id,
		config: cfg,
		logger: l,

		ioContexts:   handles.NewTable[*ioCell]("io context"),
		formats:      handles.NewTable[*formatCell]("format context"),
		codecs:       handles.NewTable[*codecCell]("codec context"),
		parameters:   handles.NewTable[avcodec.Parameters]("codec parameters"),
		frames:       handles.NewTable[avutil.Frame]("frame"),
		packets:      handles.NewTable[avcodec.Packet]("packet"),
		dictionaries: handles.NewTable[*dictionaryCell]("dictionary"),
		scalers:      handles.NewTable[*scalerCell]("scaler"),
		resamplers:   handles.NewTable[*resamplerCell]("resampler"),
		fifos:        handles.NewTable[*fifoCell]("audio fifo"),
		graphs:       handles.NewTable[*graphCell]("filter graph"),
		images:       handles.NewTable[*bufferCell]("image"),
		samples:      handles.NewTable[*bufferCell]("samples"),
		hwDevices:    handles.NewTable[*hwDeviceCell]("hardware device"),
	}

	if cfg.ForwardNativeLogs {
		if err := b.forwardNativeLogs(); err != nil {
			logger.Warnf(ctx, "native log forwarding unavailable: %v", err)
		}
	}
	v := Version()
	logger.Debugf(ctx, "FFmpeg loaded: avutil %s, avcodec %s, avformat %s",
		VersionString(v.AVUtil), VersionString(v.AVCodec), VersionString(v.AVFormat))
	return b, nil
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.LogLevel == 0 {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.NativeLogLevel == 0 {
		cfg.NativeLogLevel = def.NativeLogLevel
	}
	if cfg.IO.BufferSize == 0 {
		cfg.IO.BufferSize = def.IO.BufferSize
	}
	return cfg
}

// ID identifies the bridge in logs.
func (b *Bridge) ID() uuid.UUID { return b.id }

// Config returns the effective configuration.
func (b *Bridge) Config() Config { return b.config }

// Logger returns the bridge logger.
func (b *Bridge) Logger() logger.Logger { return b.logger }

func (b *Bridge) ctx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.CtxWithLogger(ctx, b.logger)
}

func (b *Bridge) checkOpen() error {
	if b == nil {
		return ErrNilBridge
	}
	if b.closed.Load() {
		return ErrBridgeClosed
	}
	return nil
}

type sweeper struct {
	kind    string
	handles func() []handles.Handle
	destroy func(ctx context.Context, h handles.Handle) error
}

// sweepers lists the resource kinds in the order Close frees them:
// dependents before what they depend on.
func (b *Bridge) sweepers() []sweeper {
	return []sweeper{
		{"filter graph", b.graphs.Handles, func(ctx context.Context, h handles.Handle) error {
			return FilterGraph{b.ref(h)}.Destroy(ctx)
		}},
		{"scaler", b.scalers.Handles, func(ctx context.Context, h handles.Handle) error { return Scaler{b.ref(h)}.Destroy(ctx) }},
		{"resampler", b.resamplers.Handles, func(ctx context.Context, h handles.Handle) error { return Resampler{b.ref(h)}.Destroy(ctx) }},
		{"audio fifo", b.fifos.Handles, func(ctx context.Context, h handles.Handle) error { return AudioFIFO{b.ref(h)}.Destroy(ctx) }},
		{"codec context", b.codecs.Handles, func(ctx context.Context, h handles.Handle) error { return CodecContext{b.ref(h)}.Destroy(ctx) }},
		{"hardware device", b.hwDevices.Handles, func(ctx context.Context, h handles.Handle) error { return HWDeviceContext{b.ref(h)}.Destroy(ctx) }},
		{"format context", b.formats.Handles, func(ctx context.Context, h handles.Handle) error { return FormatContext{b.ref(h)}.Destroy(ctx) }},
		{"io context", b.ioContexts.Handles, func(ctx context.Context, h handles.Handle) error { return IOContext{b.ref(h)}.Destroy(ctx) }},
		{"packet", b.packets.Handles, func(_ context.Context, h handles.Handle) error { return Packet{b.ref(h)}.Destroy() }},
		{"frame", b.frames.Handles, func(_ context.Context, h handles.Handle) error { return Frame{b.ref(h)}.Destroy() }},
		{"dictionary", b.dictionaries.Handles, func(_ context.Context, h handles.Handle) error { return Dictionary{b.ref(h)}.Destroy() }},
		{"codec parameters", b.parameters.Handles, func(_ context.Context, h handles.Handle) error { return CodecParameters{resource: b.ref(h)}.Destroy() }},
		{"image", b.images.Handles, func(_ context.Context, h handles.Handle) error { return Image{b.ref(h)}.Destroy() }},
		{"samples", b.samples.Handles, func(_ context.Context, h handles.Handle) error { return Samples{b.ref(h)}.Destroy() }},
	}
}

// LiveHandles returns the number of live resources per kind. Kinds with no
// live resource are omitted.
func (b *Bridge) LiveHandles() map[string]int {
	result := map[string]int{}
	for _, s := range b.sweepers() {
		if n := len(s.handles()); n > 0 {
			result[s.kind] = n
		}
	}
	return result
}

// Close frees every resource still alive, logging each as a leak, and
// detaches native log forwarding. Further constructors fail with
// ErrBridgeClosed. Close is idempotent.
func (b *Bridge) Close(ctx context.Context) (_err error) {
	if b == nil {
		return ErrNilBridge
	}
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx = b.ctx(ctx)
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()

	var firstErr error
	for _, s := range b.sweepers() {
		for _, h := range s.handles() {
			logger.Warnf(ctx, "leaked %s %v freed on close", s.kind, h)
			if err := s.destroy(ctx, h); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("freeing %s %v: %w", s.kind, h, err)
			}
		}
	}
	b.stopForwardingNativeLogs()
	belt.Flush(ctx)
	return firstErr
}
