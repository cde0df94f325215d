//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avformat"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/handles"
	"go.uber.org/atomic"
)

// Seek whence values passed to IOOptions.OnSeek.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
	// SeekSize asks for the stream size without moving. Return an error
	// (or ErrSeekNotSupported) when it is unknown.
	SeekSize = 0x10000

	seekForce = 0x20000
)

// IOOptions describes a custom I/O context. Either InitialBytes or the
// callbacks are used, never both.
type IOOptions struct {
	// InitialBytes serves a complete in-memory payload. The bytes are
	// copied into native memory.
	InitialBytes []byte

	OnRead  func(ctx context.Context, buf []byte) (int, error)
	OnWrite func(ctx context.Context, buf []byte) error
	// OnSeek makes the context seekable. whence is one of SeekStart,
	// SeekCurrent, SeekEnd or SeekSize.
	OnSeek func(ctx context.Context, offset int64, whence int) (int64, error)

	BufferSize  int
	CallTimeout time.Duration
}

// IOContext is an AVIOContext whose I/O is done by Go callbacks or served
// from an in-memory payload.
//
// Callbacks run synchronously on the goroutine that called into FFmpeg. A
// callback may use other resources of the bridge, but calling back into the
// FormatContext that triggered it deadlocks.
type IOContext struct{ resource }

type ioCell struct {
	b       *Bridge
	native  avformat.IOContext
	opts    IOOptions
	slot    handles.Handle
	scratch []byte

	cancelled  atomic.Bool
	bytesRead  atomic.Int64
	bytesWrote atomic.Int64

	mu         sync.Mutex
	root       context.Context
	base       context.Context
	baseCancel context.CancelFunc
	callCtx    context.Context
	pending    error
	lastErr    error
}

// ioRegistry maps the opaque value FFmpeg hands to the trampolines back to
// the cell. It is process wide because the trampolines are.
var ioRegistry = handles.NewTable[*ioCell]("io callbacks")

var (
	ioTrampolinesOnce sync.Once
	ioReadPtr         uintptr
	ioWritePtr        uintptr
	ioSeekPtr         uintptr
)

func initIOTrampolines() {
	ioTrampolinesOnce.Do(func() {
		ioReadPtr = purego.NewCallback(ioReadTrampoline)
		ioWritePtr = purego.NewCallback(ioWriteTrampoline)
		ioSeekPtr = purego.NewCallback(ioSeekTrampoline)
	})
}

// NewIOContext creates a custom I/O context. Destroy it after every
// FormatContext that uses it.
func (b *Bridge) NewIOContext(ctx context.Context, opts IOOptions) (_ IOContext, _err error) {
	if err := b.checkOpen(); err != nil {
		return IOContext{}, err
	}
	ctx = b.ctx(ctx)
	logger.Tracef(ctx, "NewIOContext")
	defer func() { logger.Tracef(ctx, "/NewIOContext: %v", _err) }()

	if opts.InitialBytes != nil {
		if opts.OnRead != nil || opts.OnWrite != nil {
			return IOContext{}, fmt.Errorf("%w: initial bytes cannot be combined with read or write callbacks", ErrInvalidIOOptions)
		}
		if len(opts.InitialBytes) == 0 {
			return IOContext{}, fmt.Errorf("%w: empty initial bytes", ErrInvalidIOOptions)
		}
	} else if opts.OnRead == nil && opts.OnWrite == nil {
		return IOContext{}, fmt.Errorf("%w: need initial bytes, a read or a write callback", ErrInvalidIOOptions)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = b.config.ioBufferSize()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = b.config.IO.CallTimeout
	}

	cell := &ioCell{b: b, opts: opts, root: context.WithoutCancel(ctx)}
	cell.base, cell.baseCancel = context.WithCancel(cell.root)

	if opts.InitialBytes != nil {
		size := len(opts.InitialBytes)
		buf := avutil.Malloc(uintptr(size))
		if buf == nil {
			return IOContext{}, ErrOutOfMemory
		}
		copy(unsafe.Slice((*byte)(buf), size), opts.InitialBytes)
		// With neither a read callback nor the write flag FFmpeg treats the
		// buffer as already filled.
		cell.native = avformat.IOAllocContext(buf, size, false, 0, 0, 0, 0)
		if cell.native == nil {
			avutil.Free(buf)
			return IOContext{}, ErrOutOfMemory
		}
		cell.opts.InitialBytes = nil
	} else {
		initIOTrampolines()
		buf := avutil.Malloc(uintptr(opts.BufferSize))
		if buf == nil {
			return IOContext{}, ErrOutOfMemory
		}
		cell.slot = ioRegistry.Insert(cell)
		var read, write, seek uintptr
		if opts.OnRead != nil {
			read = ioReadPtr
		}
		if opts.OnWrite != nil {
			write = ioWritePtr
		}
		if opts.OnSeek != nil {
			seek = ioSeekPtr
		}
		cell.native = avformat.IOAllocContext(buf, opts.BufferSize, opts.OnWrite != nil, uintptr(cell.slot), read, write, seek)
		if cell.native == nil {
			avutil.Free(buf)
			_, _ = ioRegistry.Remove(cell.slot)
			return IOContext{}, ErrOutOfMemory
		}
	}

	h := b.ioContexts.Insert(cell)
	return IOContext{b.ref(h)}, nil
}

// NewIOContextFromReader reads from r. Seeking is enabled when r is also an
// io.Seeker.
func (b *Bridge) NewIOContextFromReader(ctx context.Context, r io.Reader) (IOContext, error) {
	opts := IOOptions{
		OnRead: func(_ context.Context, buf []byte) (int, error) {
			return r.Read(buf)
		},
	}
	if s, ok := r.(io.Seeker); ok {
		opts.OnSeek = seekerCallback(s)
	}
	return b.NewIOContext(ctx, opts)
}

// NewIOContextFromWriter writes to w. Seeking is enabled when w is also an
// io.Seeker, which lets muxers such as mp4 rewrite their header.
func (b *Bridge) NewIOContextFromWriter(ctx context.Context, w io.Writer) (IOContext, error) {
	opts := IOOptions{
		OnWrite: func(_ context.Context, buf []byte) error {
			_, err := w.Write(buf)
			return err
		},
	}
	if s, ok := w.(io.Seeker); ok {
		opts.OnSeek = seekerCallback(s)
	}
	return b.NewIOContext(ctx, opts)
}

func seekerCallback(s io.Seeker) func(context.Context, int64, int) (int64, error) {
	return func(_ context.Context, offset int64, whence int) (int64, error) {
		if whence != SeekSize {
			return s.Seek(offset, whence)
		}
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return 0, err
		}
		return end, nil
	}
}

func (c IOContext) cell() (*ioCell, error) { return resolve(c.resource, tableIO) }

// Valid reports whether the context is still alive.
func (c IOContext) Valid() bool { return contains(c.resource, tableIO) }

// Seekable reports whether FFmpeg can seek the context.
func (c IOContext) Seekable() bool {
	cell, err := c.cell()
	if err != nil {
		c.logLookup("IOContext.Seekable", err)
		return false
	}
	return avformat.IsSeekable(cell.native)
}

// Cancel makes every further callback invocation fail with AVERROR_EXIT
// and cancels the context of a callback in flight.
func (c IOContext) Cancel() error {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	cell.cancelled.Store(true)
	cell.mu.Lock()
	cell.baseCancel()
	cell.mu.Unlock()
	return nil
}

// ResetCancel re-arms a cancelled context.
func (c IOContext) ResetCancel() error {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	cell.mu.Lock()
	cell.baseCancel()
	cell.base, cell.baseCancel = context.WithCancel(cell.root)
	cell.mu.Unlock()
	cell.cancelled.Store(false)
	return nil
}

// Err returns the last error reported by a callback.
func (c IOContext) Err() error {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return cell.lastErr
}

// BytesRead returns the number of bytes delivered by the read callback.
func (c IOContext) BytesRead() int64 {
	cell, err := c.cell()
	if err != nil {
		c.logLookup("IOContext.BytesRead", err)
		return 0
	}
	return cell.bytesRead.Load()
}

// BytesWritten returns the number of bytes accepted by the write callback.
func (c IOContext) BytesWritten() int64 {
	cell, err := c.cell()
	if err != nil {
		c.logLookup("IOContext.BytesWritten", err)
		return 0
	}
	return cell.bytesWrote.Load()
}

// Flush writes out bytes buffered on the native side.
func (c IOContext) Flush(ctx context.Context) error {
	cell, err := c.cell()
	if err != nil {
		return err
	}
	cell.begin(ctx)
	avformat.IOFlush(cell.native)
	return cell.end(nil)
}

// Destroy frees the native context and its current buffer.
func (c IOContext) Destroy(ctx context.Context) error {
	if c.b == nil {
		return ErrNilBridge
	}
	cell, err := c.b.ioContexts.Remove(c.h)
	if err != nil {
		return err
	}
	logger.Tracef(c.b.ctx(ctx), "IOContext.Destroy %v", c.h)
	cell.destroy()
	return nil
}

func (cell *ioCell) destroy() {
	// FFmpeg may have replaced the buffer it was given.
	avutil.Free(avformat.GetIOBuffer(cell.native))
	avformat.IOContextFree(&cell.native)
	if !cell.slot.IsZero() {
		_, _ = ioRegistry.Remove(cell.slot)
	}
	cell.mu.Lock()
	cell.baseCancel()
	cell.opts = IOOptions{}
	cell.scratch = nil
	cell.mu.Unlock()
}

// begin marks the start of a native call that may run callbacks.
func (cell *ioCell) begin(ctx context.Context) {
	if cell == nil {
		return
	}
	cell.mu.Lock()
	cell.callCtx = ctx
	cell.pending = nil
	cell.mu.Unlock()
}

// end attaches the first callback error seen since begin to the native
// error.
func (cell *ioCell) end(nativeErr error) error {
	if cell == nil {
		return nativeErr
	}
	cell.mu.Lock()
	pending := cell.pending
	cell.pending = nil
	cell.callCtx = nil
	cell.mu.Unlock()
	if pending == nil {
		return nativeErr
	}
	if nativeErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", nativeErr, pending)
}

func (cell *ioCell) record(err error) {
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if cell.pending == nil {
		cell.pending = err
	}
	cell.lastErr = err
}

var errIOCancelled = fmt.Errorf("io context cancelled: %w", context.Canceled)

// invoke runs one callback with the call context, the cancellation of the
// context and the per-call timeout applied.
func (cell *ioCell) invoke(op string, fn func(ctx context.Context) error) (err error) {
	if cell.cancelled.Load() {
		return errIOCancelled
	}
	cell.mu.Lock()
	base := cell.base
	parent := cell.callCtx
	timeout := cell.opts.CallTimeout
	cell.mu.Unlock()
	if parent == nil {
		parent = base
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(base, cancel)
	defer stop()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	defer func() {
		if r := recover(); r != nil {
			errmon.ObserveRecoverCtx(ctx, r)
			err = fmt.Errorf("%s callback panicked: %v", op, r)
		}
	}()
	err = fn(ctx)
	switch {
	case cell.cancelled.Load():
		return errIOCancelled
	case timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s after %s", ErrIOTimeout, op, timeout)
	}
	return err
}

func lookupIOCell(opaque uintptr) *ioCell {
	cell, err := ioRegistry.Get(handles.Handle(opaque))
	if err != nil {
		return nil
	}
	return cell
}

// int read_packet(void *opaque, uint8_t *buf, int buf_size)
func ioReadTrampoline(_ purego.CDecl, opaque uintptr, buf *byte, size int32) int32 {
	cell := lookupIOCell(opaque)
	if cell == nil || size <= 0 {
		return avutil.AVERROR_EIO
	}
	if cap(cell.scratch) < int(size) {
		cell.scratch = make([]byte, size)
	}
	scratch := cell.scratch[:size]

	var n int
	err := cell.invoke("read", func(ctx context.Context) error {
		var err error
		n, err = cell.opts.OnRead(ctx, scratch)
		return err
	})
	if n < 0 {
		if err == nil || errors.Is(err, io.EOF) {
			err = fmt.Errorf("read callback returned %d bytes", n)
		}
		n = 0
	}
	n = min(n, int(size))
	if n > 0 {
		copy(unsafe.Slice(buf, size), scratch[:n])
		cell.bytesRead.Add(int64(n))
		if err != nil && !errors.Is(err, io.EOF) {
			cell.record(err)
		}
		return int32(n)
	}
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return avutil.AVERROR_EOF
	case errors.Is(err, errIOCancelled):
		cell.record(err)
		return avutil.AVERROR_EXIT
	}
	cell.record(err)
	return avutil.AVERROR_EIO
}

// int write_packet(void *opaque, const uint8_t *buf, int buf_size)
func ioWriteTrampoline(_ purego.CDecl, opaque uintptr, buf *byte, size int32) int32 {
	cell := lookupIOCell(opaque)
	if cell == nil || size < 0 {
		return avutil.AVERROR_EIO
	}
	data := make([]byte, size)
	copy(data, unsafe.Slice(buf, size))

	err := cell.invoke("write", func(ctx context.Context) error {
		return cell.opts.OnWrite(ctx, data)
	})
	switch {
	case err == nil:
		cell.bytesWrote.Add(int64(size))
		return size
	case errors.Is(err, errIOCancelled):
		cell.record(err)
		return avutil.AVERROR_EXIT
	}
	cell.record(err)
	return avutil.AVERROR_EIO
}

// int64_t seek(void *opaque, int64_t offset, int whence)
func ioSeekTrampoline(_ purego.CDecl, opaque uintptr, offset int64, whence int32) int64 {
	cell := lookupIOCell(opaque)
	if cell == nil {
		return int64(avutil.AVERROR_EIO)
	}
	whence &^= seekForce

	var pos int64
	err := cell.invoke("seek", func(ctx context.Context) error {
		var err error
		pos, err = cell.opts.OnSeek(ctx, offset, int(whence))
		return err
	})
	switch {
	case err == nil:
		return pos
	case errors.Is(err, ErrSeekNotSupported):
		// FFmpeg probes SeekSize on every open; not knowing the size is
		// not worth reporting.
		if whence != SeekSize {
			cell.record(err)
		}
		return int64(avutil.AVERROR_ENOSYS)
	case errors.Is(err, errIOCancelled):
		cell.record(err)
		return int64(avutil.AVERROR_EXIT)
	}
	cell.record(err)
	return int64(avutil.AVERROR_EIO)
}
