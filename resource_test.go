//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestroyMakesHandleStale(t *testing.T) {
	_, b := newTestBridge(t)

	frame, err := b.NewFrame()
	require.NoError(t, err)
	require.True(t, frame.Valid())
	require.NoError(t, frame.Destroy())

	assert.False(t, frame.Valid())
	assert.ErrorIs(t, frame.Destroy(), ErrStaleHandle)
	assert.ErrorIs(t, frame.Unref(), ErrStaleHandle)
	assert.Zero(t, frame.Width())

	// A new resource may reuse the slot but never the handle.
	again, err := b.NewFrame()
	require.NoError(t, err)
	defer again.Destroy()
	assert.NotEqual(t, frame.Handle(), again.Handle())
	assert.False(t, frame.Valid())
}

func TestZeroValueResources(t *testing.T) {
	skipIfNoFFmpeg(t)
	assert.ErrorIs(t, Frame{}.Destroy(), ErrNilBridge)
	assert.ErrorIs(t, Packet{}.Destroy(), ErrNilBridge)
	assert.ErrorIs(t, Dictionary{}.Destroy(), ErrNilBridge)
	assert.False(t, Frame{}.Valid())
	assert.Nil(t, Packet{}.Data())
}

func TestForeignHandleIsRejected(t *testing.T) {
	ctx, b1 := newTestBridge(t)
	_, b2 := newTestBridge(t)

	src, err := b1.NewFrame()
	require.NoError(t, err)
	defer src.Destroy()
	dst, err := b2.NewFrame()
	require.NoError(t, err)
	defer dst.Destroy()
	assert.ErrorIs(t, dst.Ref(src), ErrForeignHandle)
	assert.ErrorIs(t, dst.CopyProps(src), ErrForeignHandle)

	img, err := b1.NewImage(ImageSpec{Width: 16, Height: 16, PixelFormat: PixelFormatGray8}, 1)
	require.NoError(t, err)
	defer img.Destroy()
	assert.ErrorIs(t, img.Fill(dst), ErrForeignHandle)

	g, err := b1.NewFilterGraph(ctx)
	require.NoError(t, err)
	defer g.Destroy(ctx)
	other, err := b2.NewFilterGraph(ctx)
	require.NoError(t, err)
	defer other.Destroy(ctx)
	sink, err := other.CreateFilter(ctx, "nullsink", "out", "")
	require.NoError(t, err)
	src2, err := g.CreateFilter(ctx, "nullsrc", "in", "")
	require.NoError(t, err)
	assert.ErrorIs(t, g.Link(src2, 0, sink, 0), ErrForeignHandle)
}

func TestCloseFreesLeakedResources(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := testCtx(t)
	b, err := New(ctx, DefaultConfig())
	require.NoError(t, err)

	frame, err := b.NewFrame()
	require.NoError(t, err)
	_, err = b.NewPacket()
	require.NoError(t, err)
	_, err = b.NewDictionaryFrom(map[string]string{"k": "v"})
	require.NoError(t, err)
	_, err = b.NewImage(ImageSpec{Width: 8, Height: 8, PixelFormat: PixelFormatRGB24}, 1)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"frame": 1, "packet": 1, "dictionary": 1, "image": 1}, b.LiveHandles())

	require.NoError(t, b.Close(ctx))
	assert.Empty(t, b.LiveHandles())
	assert.False(t, frame.Valid())
	assert.NoError(t, b.Close(ctx))

	_, err = b.NewFrame()
	assert.ErrorIs(t, err, ErrBridgeClosed)
}

func TestBorrowedParametersFollowOwner(t *testing.T) {
	ctx, b := newTestBridge(t)

	pb, err := b.NewIOContext(ctx, IOOptions{OnWrite: func(context.Context, []byte) error { return nil }})
	require.NoError(t, err)
	defer pb.Destroy(ctx)
	out, err := b.OpenOutput(ctx, pb, "null", "")
	require.NoError(t, err)
	st, err := out.NewStream(Codec{})
	require.NoError(t, err)
	par := st.CodecParameters()
	par.SetCodecType(MediaTypeAudio)
	par.SetSampleRate(44100)
	assert.Equal(t, 44100, par.SampleRate())
	assert.ErrorIs(t, par.Destroy(), ErrBorrowed)

	require.NoError(t, out.Destroy(ctx))
	assert.False(t, st.Valid())
	assert.False(t, par.Valid())
	assert.Zero(t, par.SampleRate())
}
