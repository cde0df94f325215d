//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// RemuxStats reports what Remux copied.
type RemuxStats struct {
	Streams int
	Packets int64
	Bytes   int64
	// Skipped counts packets of streams that were not copied.
	Skipped int64
}

// Remux copies the audio, video and subtitle streams of src into a new
// container of format dstFormat written to dst, without re-encoding.
// Neither IOContext is destroyed; dst is flushed.
func (b *Bridge) Remux(ctx context.Context, src IOContext, dstFormat string, dst IOContext) (_ RemuxStats, _err error) {
	var stats RemuxStats
	ctx = b.ctx(ctx)
	logger.Debugf(ctx, "Remux to %s", dstFormat)
	defer func() { logger.Debugf(ctx, "/Remux to %s: %+v %v", dstFormat, stats, _err) }()

	in, err := b.OpenInput(ctx, src, "", nil)
	if err != nil {
		return stats, fmt.Errorf("opening the input: %w", err)
	}
	defer in.Destroy(ctx)

	out, err := b.OpenOutput(ctx, dst, dstFormat, "")
	if err != nil {
		return stats, fmt.Errorf("opening the output: %w", err)
	}
	defer out.Destroy(ctx)

	streamMap := make([]int, in.NbStreams())
	for i, st := range in.Streams() {
		streamMap[i] = -1
		par := st.CodecParameters()
		switch par.CodecType() {
		case MediaTypeAudio, MediaTypeVideo, MediaTypeSubtitle:
		default:
			continue
		}
		ost, err := out.NewStream(Codec{})
		if err != nil {
			return stats, err
		}
		opar := ost.CodecParameters()
		if err := par.CopyTo(opar); err != nil {
			return stats, fmt.Errorf("copying parameters of stream %d: %w", i, err)
		}
		// Tags are container specific.
		opar.SetCodecTag(0)
		ost.SetTimeBase(st.TimeBase())
		streamMap[i] = ost.Index()
		stats.Streams++
	}
	if stats.Streams == 0 {
		return stats, fmt.Errorf("no audio, video or subtitle stream in %s input", in.InputFormat().Name())
	}

	if err := out.WriteHeader(ctx, nil); err != nil {
		return stats, err
	}

	pkt, err := b.NewPacket()
	if err != nil {
		return stats, err
	}
	defer pkt.Destroy()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		status, err := in.ReadFrame(ctx, pkt)
		if err != nil {
			return stats, err
		}
		if status == StatusEndOfStream {
			break
		}
		if !status.Produced() {
			continue
		}
		idx := pkt.StreamIndex()
		if idx < 0 || idx >= len(streamMap) || streamMap[idx] < 0 {
			stats.Skipped++
			continue
		}
		stats.Packets++
		stats.Bytes += int64(pkt.Size())
		pkt.SetStreamIndex(streamMap[idx])
		pkt.SetPos(-1)
		if err := out.WriteFrame(ctx, pkt); err != nil {
			return stats, fmt.Errorf("writing packet %d: %w", stats.Packets, err)
		}
	}

	if err := out.WriteTrailer(ctx); err != nil {
		return stats, err
	}
	return stats, dst.Flush(ctx)
}
