//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/handles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerIOCell makes a cell reachable from the trampolines the way
// NewIOContext does, without a native context behind it.
func registerIOCell(t *testing.T, opts IOOptions) (*ioCell, uintptr) {
	t.Helper()
	cell := &ioCell{opts: opts, base: context.Background()}
	h := ioRegistry.Insert(cell)
	t.Cleanup(func() { _, _ = ioRegistry.Remove(h) })
	return cell, uintptr(h)
}

func readThrough(opaque uintptr, buf []byte) int32 {
	return ioReadTrampoline(purego.CDecl{}, opaque, &buf[0], int32(len(buf)))
}

func TestReadTrampolineResults(t *testing.T) {
	for _, tc := range []struct {
		name    string
		n       int
		err     error
		want    int32
		failure bool
	}{
		{name: "bytes", n: 3, want: 3},
		{name: "clamped", n: 100, want: 8},
		{name: "zero", n: 0, want: avutil.AVERROR_EOF},
		{name: "eof", n: 0, err: io.EOF, want: avutil.AVERROR_EOF},
		{name: "bytes with eof", n: 2, err: io.EOF, want: 2},
		{name: "negative", n: -1, want: avutil.AVERROR_EIO, failure: true},
		{name: "negative with eof", n: -1, err: io.EOF, want: avutil.AVERROR_EIO, failure: true},
		{name: "error", n: 0, err: errors.New("boom"), want: avutil.AVERROR_EIO, failure: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cell, opaque := registerIOCell(t, IOOptions{
				OnRead: func(_ context.Context, buf []byte) (int, error) {
					for i := range buf {
						buf[i] = byte(i + 1)
					}
					return tc.n, tc.err
				},
			})
			buf := make([]byte, 8)
			got := readThrough(opaque, buf)
			assert.Equal(t, tc.want, got)
			if got > 0 {
				assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}[:got], buf[:got])
				assert.Equal(t, int64(got), cell.bytesRead.Load())
			}
			if tc.failure {
				assert.Error(t, cell.lastErr)
			} else {
				assert.NoError(t, cell.lastErr)
			}
		})
	}
}

func TestReadTrampolineNegativeCountIsReported(t *testing.T) {
	cell, opaque := registerIOCell(t, IOOptions{
		OnRead: func(context.Context, []byte) (int, error) { return -1, nil },
	})
	cell.begin(context.Background())
	assert.Equal(t, avutil.AVERROR_EIO, readThrough(opaque, make([]byte, 16)))

	err := cell.end(avutil.NewError(avutil.AVERROR_EIO, "av_read_frame"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned -1")
}

func TestReadTrampolineCancelled(t *testing.T) {
	var calls int
	cell, opaque := registerIOCell(t, IOOptions{
		OnRead: func(context.Context, []byte) (int, error) { calls++; return 1, nil },
	})
	cell.cancelled.Store(true)
	assert.Equal(t, avutil.AVERROR_EXIT, readThrough(opaque, make([]byte, 4)))
	assert.Zero(t, calls)
	assert.ErrorIs(t, cell.lastErr, context.Canceled)
}

func TestTrampolinesRejectUnknownOpaque(t *testing.T) {
	_, opaque := registerIOCell(t, IOOptions{})
	_, err := ioRegistry.Remove(handles.Handle(opaque))
	require.NoError(t, err)

	assert.Equal(t, avutil.AVERROR_EIO, readThrough(opaque, make([]byte, 4)))
	assert.Equal(t, int64(avutil.AVERROR_EIO), ioSeekTrampoline(purego.CDecl{}, opaque, 0, SeekStart))
	buf := []byte{1}
	assert.Equal(t, avutil.AVERROR_EIO, ioWriteTrampoline(purego.CDecl{}, opaque, &buf[0], 1))
}

func TestSeekTrampolineResults(t *testing.T) {
	var gotWhence []int
	failure := errors.New("disk on fire")
	cell, opaque := registerIOCell(t, IOOptions{
		OnSeek: func(_ context.Context, offset int64, whence int) (int64, error) {
			gotWhence = append(gotWhence, whence)
			switch {
			case whence == SeekSize, offset < 0:
				return 0, ErrSeekNotSupported
			case offset == 99:
				return 0, failure
			}
			return offset, nil
		},
	})
	seek := func(offset int64, whence int) int64 {
		return ioSeekTrampoline(purego.CDecl{}, opaque, offset, int32(whence))
	}

	assert.Equal(t, int64(42), seek(42, SeekStart|seekForce))
	assert.Equal(t, []int{SeekStart}, gotWhence, "AVSEEK_FORCE is masked off")

	// An unknown size is routine and not recorded.
	assert.Equal(t, int64(avutil.AVERROR_ENOSYS), seek(0, SeekSize))
	assert.NoError(t, cell.lastErr)

	assert.Equal(t, int64(avutil.AVERROR_ENOSYS), seek(-1, SeekCurrent))
	assert.ErrorIs(t, cell.lastErr, ErrSeekNotSupported)

	assert.Equal(t, int64(avutil.AVERROR_EIO), seek(99, SeekStart))
	assert.ErrorIs(t, cell.lastErr, failure)
}

func TestWriteTrampolineResults(t *testing.T) {
	var got []byte
	failure := errors.New("full")
	cell, opaque := registerIOCell(t, IOOptions{
		OnWrite: func(_ context.Context, buf []byte) error {
			if len(buf) > 4 {
				return failure
			}
			got = append(got, buf...)
			return nil
		},
	})
	data := []byte{9, 8, 7, 6, 5}
	assert.Equal(t, int32(3), ioWriteTrampoline(purego.CDecl{}, opaque, &data[0], 3))
	assert.Equal(t, []byte{9, 8, 7}, got)
	assert.Equal(t, int64(3), cell.bytesWrote.Load())

	assert.Equal(t, avutil.AVERROR_EIO, ioWriteTrampoline(purego.CDecl{}, opaque, &data[0], 5))
	assert.ErrorIs(t, cell.lastErr, failure)
}
