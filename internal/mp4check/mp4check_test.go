package mp4check

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeInit(t *testing.T, init *mp4.InitSegment) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, init.Encode(&buf))
	return buf.Bytes()
}

func TestInspectInitSegment(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(48000, "audio", "und")
	init.AddEmptyTrack(90000, "video", "und")

	sum, err := Inspect(bytes.NewReader(encodeInit(t, init)))
	require.NoError(t, err)
	require.Len(t, sum.Tracks, 2)

	audio, ok := sum.Track("soun")
	require.True(t, ok)
	assert.Equal(t, uint32(48000), audio.Timescale)
	assert.Zero(t, audio.Samples)

	video, ok := sum.Track("vide")
	require.True(t, ok)
	assert.Equal(t, uint32(90000), video.Timescale)
	assert.NotEqual(t, audio.ID, video.ID)

	_, ok = sum.Track("subt")
	assert.False(t, ok)
}

func TestInspectRejectsGarbage(t *testing.T) {
	_, err := Inspect(bytes.NewReader([]byte("definitely not an mp4 file")))
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	assert.Zero(t, scale(1000, 0))
	assert.Equal(t, int64(1_500_000_000), int64(scale(72000, 48000)))
}
