//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avutil"
)

// ProbeResult summarizes a container and its streams.
type ProbeResult struct {
	Format   string        `yaml:"format"`
	LongName string        `yaml:"long_name,omitempty"`
	Duration time.Duration `yaml:"duration"`
	BitRate  int64         `yaml:"bit_rate,omitempty"`
	Streams  []StreamInfo  `yaml:"streams"`

	Tags     map[string]string `yaml:"tags,omitempty"`
	Chapters []Chapter         `yaml:"chapters,omitempty"`
}

// StreamInfo describes one stream of a ProbeResult.
type StreamInfo struct {
	Index     int           `yaml:"index"`
	Type      string        `yaml:"type"`
	Codec     string        `yaml:"codec"`
	CodecID   CodecID       `yaml:"-"`
	TimeBase  string        `yaml:"time_base"`
	Duration  time.Duration `yaml:"duration,omitempty"`
	NbFrames  int64         `yaml:"nb_frames,omitempty"`
	BitRate   int64         `yaml:"bit_rate,omitempty"`
	Extradata int           `yaml:"extradata_bytes,omitempty"`

	Width       int    `yaml:"width,omitempty"`
	Height      int    `yaml:"height,omitempty"`
	PixelFormat string `yaml:"pixel_format,omitempty"`
	FrameRate   string `yaml:"frame_rate,omitempty"`

	SampleRate    int    `yaml:"sample_rate,omitempty"`
	SampleFormat  string `yaml:"sample_format,omitempty"`
	ChannelLayout string `yaml:"channel_layout,omitempty"`
	Channels      int    `yaml:"channels,omitempty"`

	Language string `yaml:"language,omitempty"`
}

// Probe opens pb as a demuxer, summarizes it and closes it again. pb is
// left open.
func (b *Bridge) Probe(ctx context.Context, pb IOContext) (*ProbeResult, error) {
	fc, err := b.OpenInput(ctx, pb, "", nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := fc.Destroy(ctx); err != nil {
			logger.Errorf(b.ctx(ctx), "unable to close the probed input: %v", err)
		}
	}()
	return Describe(fc), nil
}

// ProbeFile probes a file read through the I/O bridge.
func (b *Bridge) ProbeFile(ctx context.Context, path string) (*ProbeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pb, err := b.NewIOContextFromReader(ctx, f)
	if err != nil {
		return nil, err
	}
	defer pb.Destroy(ctx)
	res, err := b.Probe(ctx, pb)
	if err != nil {
		return nil, fmt.Errorf("probing %q: %w", path, err)
	}
	return res, nil
}

// Describe summarizes an open demuxer.
func Describe(fc FormatContext) *ProbeResult {
	res := &ProbeResult{
		Format:   fc.InputFormat().Name(),
		LongName: fc.InputFormat().LongName(),
		BitRate:  fc.BitRate(),
	}
	if d := fc.Duration(); d > 0 {
		res.Duration = time.Duration(d) * time.Microsecond
	}
	for _, st := range fc.Streams() {
		res.Streams = append(res.Streams, describeStream(st))
	}
	if md, err := fc.Metadata(); err == nil {
		res.Tags = entryMap(md.Entries())
		_ = md.Destroy()
	}
	res.Chapters = fc.Chapters()
	return res
}

func describeStream(st Stream) StreamInfo {
	par := st.CodecParameters()
	tb := st.TimeBase()
	info := StreamInfo{
		Index:     st.Index(),
		Type:      par.CodecType().String(),
		Codec:     par.CodecID().String(),
		CodecID:   par.CodecID(),
		TimeBase:  tb.String(),
		NbFrames:  st.NbFrames(),
		BitRate:   par.BitRate(),
		Extradata: len(par.Extradata()),
	}
	if md, err := st.Metadata(); err == nil {
		info.Language, _ = md.Get("language")
		_ = md.Destroy()
	}
	if d := st.Duration(); d > 0 && tb.Valid() {
		info.Duration = time.Duration(avutil.RescaleQ(d, tb, Rational{Num: 1, Den: 1_000_000})) * time.Microsecond
	}
	switch par.CodecType() {
	case MediaTypeVideo:
		info.Width, info.Height = par.Width(), par.Height()
		info.PixelFormat = PixelFormat(par.Format()).String()
		if fr := st.AvgFrameRate(); fr.Valid() {
			info.FrameRate = fr.String()
		}
	case MediaTypeAudio:
		info.SampleRate = par.SampleRate()
		info.SampleFormat = SampleFormat(par.Format()).String()
		layout := par.ChannelLayout()
		info.ChannelLayout = layout.Describe()
		info.Channels = layout.NbChannels
	}
	return info
}

func entryMap(entries []DictEntry) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := m[e.Key]; !ok {
			m[e.Key] = e.Value
		}
	}
	return m
}
