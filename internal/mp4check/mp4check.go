// Package mp4check inspects MP4 files without FFmpeg, so muxer output can
// be verified independently of the library that wrote it.
package mp4check

import (
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Track summarizes one trak box.
type Track struct {
	ID          uint32        `yaml:"id"`
	Handler     string        `yaml:"handler"`
	SampleEntry string        `yaml:"sample_entry,omitempty"`
	Timescale   uint32        `yaml:"timescale"`
	Duration    time.Duration `yaml:"duration"`
	Samples     uint32        `yaml:"samples"`
}

// Summary is what Inspect found.
type Summary struct {
	Brand      string        `yaml:"brand,omitempty"`
	Fragmented bool          `yaml:"fragmented"`
	Duration   time.Duration `yaml:"duration"`
	Tracks     []Track       `yaml:"tracks"`
}

// Track returns the first track with the given handler type ("soun",
// "vide", ...).
func (s *Summary) Track(handler string) (Track, bool) {
	for _, t := range s.Tracks {
		if t.Handler == handler {
			return t, true
		}
	}
	return Track{}, false
}

// Inspect decodes the box structure of r. The reader is left at an
// unspecified position.
func Inspect(r io.ReadSeeker) (*Summary, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	s := &Summary{Fragmented: f.IsFragmented()}
	if f.Ftyp != nil {
		s.Brand = f.Ftyp.MajorBrand()
	}
	moov := f.Moov
	if moov == nil && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("no moov box")
	}
	if mvhd := moov.Mvhd; mvhd != nil {
		s.Duration = scale(mvhd.Duration, mvhd.Timescale)
	}

	for _, trak := range moov.Traks {
		t := Track{}
		if trak.Tkhd != nil {
			t.ID = trak.Tkhd.TrackID
		}
		if trak.Mdia == nil {
			s.Tracks = append(s.Tracks, t)
			continue
		}
		if hdlr := trak.Mdia.Hdlr; hdlr != nil {
			t.Handler = hdlr.HandlerType
		}
		if mdhd := trak.Mdia.Mdhd; mdhd != nil {
			t.Timescale = mdhd.Timescale
			t.Duration = scale(mdhd.Duration, mdhd.Timescale)
		}
		if minf := trak.Mdia.Minf; minf != nil && minf.Stbl != nil {
			if stsd := minf.Stbl.Stsd; stsd != nil && len(stsd.Children) > 0 {
				t.SampleEntry = stsd.Children[0].Type()
			}
			if stsz := minf.Stbl.Stsz; stsz != nil {
				t.Samples = stsz.SampleNumber
			}
		}
		s.Tracks = append(s.Tracks, t)
	}

	if s.Fragmented {
		countFragmentSamples(f, s)
	}
	return s, nil
}

func countFragmentSamples(f *mp4.File, s *Summary) {
	byID := make(map[uint32]int, len(s.Tracks))
	for i, t := range s.Tracks {
		byID[t.ID] = i
	}
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd == nil {
					continue
				}
				i, ok := byID[traf.Tfhd.TrackID]
				if !ok {
					continue
				}
				for _, trun := range traf.Truns {
					s.Tracks[i].Samples += trun.SampleCount()
				}
			}
		}
	}
}

func scale(d uint64, timescale uint32) time.Duration {
	if timescale == 0 {
		return 0
	}
	return time.Duration(float64(d) / float64(timescale) * float64(time.Second))
}
