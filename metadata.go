//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"context"
	"time"

	"github.com/obinnaokechukwu/avbridge/avformat"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/xaionaro-go/xsync"
)

// Metadata returns a copy of the container metadata. The caller owns the
// returned dictionary.
func (f FormatContext) Metadata() (Dictionary, error) {
	cell, err := f.cell()
	if err != nil {
		return Dictionary{}, err
	}
	ctx := xsync.WithNoLogging(f.b.ctx(context.Background()), true)
	return xsync.DoR2(ctx, &cell.mu, func() (Dictionary, error) {
		return f.b.dictionaryOf(*avformat.MetadataRef(cell.native))
	})
}

// SetMetadata replaces the container metadata with a copy of d. On a muxer
// it has to happen before WriteHeader.
func (f FormatContext) SetMetadata(d Dictionary) error {
	cell, err := f.cell()
	if err != nil {
		return err
	}
	if err := f.sameBridge(d.resource); err != nil {
		return err
	}
	if cell.output && cell.headerWritten.Load() {
		return ErrHeaderAlreadyWritten
	}
	ctx := xsync.WithNoLogging(f.b.ctx(context.Background()), true)
	return xsync.DoR1(ctx, &cell.mu, func() error {
		return d.copyInto(avformat.MetadataRef(cell.native))
	})
}

// Metadata returns a copy of the stream metadata.
func (s Stream) Metadata() (Dictionary, error) {
	cell, err := resolve(s.owner, tableFormat)
	if err != nil {
		return Dictionary{}, err
	}
	ctx := xsync.WithNoLogging(s.owner.b.ctx(context.Background()), true)
	return xsync.DoR2(ctx, &cell.mu, func() (Dictionary, error) {
		st := avformat.GetStream(cell.native, s.index)
		if st == nil {
			return Dictionary{}, ErrStaleHandle
		}
		return s.owner.b.dictionaryOf(*avformat.StreamMetadataRef(st))
	})
}

// SetMetadata replaces the stream metadata with a copy of d.
func (s Stream) SetMetadata(d Dictionary) error {
	cell, err := resolve(s.owner, tableFormat)
	if err != nil {
		return err
	}
	if err := s.owner.sameBridge(d.resource); err != nil {
		return err
	}
	if cell.output && cell.headerWritten.Load() {
		return ErrHeaderAlreadyWritten
	}
	ctx := xsync.WithNoLogging(s.owner.b.ctx(context.Background()), true)
	return xsync.DoR1(ctx, &cell.mu, func() error {
		st := avformat.GetStream(cell.native, s.index)
		if st == nil {
			return ErrStaleHandle
		}
		return d.copyInto(avformat.StreamMetadataRef(st))
	})
}

// Chapter is a named section of a demuxed input.
type Chapter struct {
	ID       int64             `yaml:"id"`
	TimeBase Rational          `yaml:"-"`
	Start    int64             `yaml:"-"`
	End      int64             `yaml:"-"`
	Title    string            `yaml:"title,omitempty"`
	Tags     map[string]string `yaml:"tags,omitempty"`
}

// StartTime is Start converted to a duration.
func (c Chapter) StartTime() time.Duration { return tsDuration(c.Start, c.TimeBase) }

// EndTime is End converted to a duration.
func (c Chapter) EndTime() time.Duration { return tsDuration(c.End, c.TimeBase) }

// Chapters returns the chapters found by the demuxer, in file order.
func (f FormatContext) Chapters() []Chapter {
	cell, err := f.cell()
	if err != nil {
		f.logLookup("FormatContext.Chapters", err)
		return nil
	}
	ctx := xsync.WithNoLogging(f.b.ctx(context.Background()), true)
	return xsync.DoR1(ctx, &cell.mu, func() []Chapter {
		n := avformat.GetNumChapters(cell.native)
		if n == 0 {
			return nil
		}
		chapters := make([]Chapter, 0, n)
		for i := 0; i < n; i++ {
			ch := avformat.GetChapter(cell.native, i)
			if ch == nil {
				continue
			}
			c := Chapter{
				ID:       avformat.GetChapterID(ch),
				TimeBase: avformat.GetChapterTimeBase(ch),
				Start:    avformat.GetChapterStart(ch),
				End:      avformat.GetChapterEnd(ch),
				Tags:     tagMap(avformat.GetChapterMetadata(ch)),
			}
			c.Title = c.Tags["title"]
			chapters = append(chapters, c)
		}
		return chapters
	})
}

// tagMap flattens a metadata dictionary, keeping the first value of
// repeated keys.
func tagMap(dict avutil.Dictionary) map[string]string {
	return entryMap(avutil.DictEntries(dict))
}

func tsDuration(ts int64, tb Rational) time.Duration {
	if ts < 0 || !tb.Valid() {
		return 0
	}
	return time.Duration(avutil.RescaleQ(ts, tb, Rational{Num: 1, Den: 1_000_000})) * time.Microsecond
}
