//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataIsWrittenAndRead(t *testing.T) {
	ctx, b := newTestBridge(t)
	path := filepath.Join(t.TempDir(), "tagged.mka")
	writeSilence(t, ctx, b, path, "matroska", SilenceOptions{
		Duration: 200 * time.Millisecond,
		Tags:     map[string]string{"title": "Quiet"},
		Language: "eng",
	})

	res, err := b.ProbeFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Quiet", res.Tags["title"])
	require.Len(t, res.Streams, 1)
	assert.Equal(t, "eng", res.Streams[0].Language)
	assert.Empty(t, res.Chapters)

	fc, done := openFile(t, ctx, b, path)
	defer done()
	md, err := fc.Metadata()
	require.NoError(t, err)
	defer md.Destroy()
	title, ok := md.Get("title")
	assert.True(t, ok)
	assert.Equal(t, "Quiet", title)

	// The returned dictionary is a copy.
	require.NoError(t, md.Set("title", "Loud"))
	again, err := fc.Metadata()
	require.NoError(t, err)
	defer again.Destroy()
	title, _ = again.Get("title")
	assert.Equal(t, "Quiet", title)
}

func TestSetMetadataAfterHeader(t *testing.T) {
	ctx, b := newTestBridge(t)

	pb, err := b.NewIOContext(ctx, IOOptions{OnWrite: func(context.Context, []byte) error { return nil }})
	require.NoError(t, err)
	defer pb.Destroy(ctx)
	out, err := b.OpenOutput(ctx, pb, "null", "")
	require.NoError(t, err)
	defer out.Destroy(ctx)
	st, err := out.NewStream(Codec{})
	require.NoError(t, err)
	par := st.CodecParameters()
	par.SetCodecType(MediaTypeAudio)
	par.SetCodecID(CodecIDPCMS16LE)
	par.SetSampleRate(8000)
	require.NoError(t, par.SetChannelLayout(ChannelLayoutMono))
	par.SetFormat(int32(SampleFormatS16))

	md, err := b.NewDictionaryFrom(map[string]string{"title": "x"})
	require.NoError(t, err)
	defer md.Destroy()
	require.NoError(t, out.SetMetadata(md))
	require.NoError(t, st.SetMetadata(md))

	got, err := st.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []DictEntry{{Key: "title", Value: "x"}}, got.Entries())
	require.NoError(t, got.Destroy())

	require.NoError(t, out.WriteHeader(ctx, nil))
	assert.ErrorIs(t, out.SetMetadata(md), ErrHeaderAlreadyWritten)
	assert.ErrorIs(t, st.SetMetadata(md), ErrHeaderAlreadyWritten)
	require.NoError(t, out.WriteTrailer(ctx))
}

func TestChaptersAreListed(t *testing.T) {
	ctx, b := newTestBridge(t)
	dir := t.TempDir()
	meta := filepath.Join(dir, "meta.txt")
	require.NoError(t, os.WriteFile(meta, []byte(`;FFMETADATA1
title=Chaptered
[CHAPTER]
TIMEBASE=1/1000
START=0
END=500
title=First
[CHAPTER]
TIMEBASE=1/1000
START=500
END=1000
title=Second
`), 0o644))
	path := filepath.Join(dir, "chapters.mkv")
	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=10",
		"-i", meta, "-map", "0", "-map_metadata", "1", "-map_chapters", "1",
		"-c:v", "mpeg4", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg command line tool not usable: %v: %s", err, out)
	}

	res, err := b.ProbeFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Chaptered", res.Tags["title"])
	require.Len(t, res.Chapters, 2)
	first, second := res.Chapters[0], res.Chapters[1]
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "Second", second.Title)
	assert.Equal(t, time.Duration(0), first.StartTime())
	assert.Equal(t, 500*time.Millisecond, first.EndTime())
	assert.Equal(t, 500*time.Millisecond, second.StartTime())
	assert.Equal(t, time.Second, second.EndTime())
}
