//go:build !ios && !android && (amd64 || arm64)

// Command avbridge probes, remuxes, decodes and encodes media through the
// avbridge library.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mattn/go-isatty"
	"github.com/obinnaokechukwu/avbridge"
	"github.com/obinnaokechukwu/avbridge/internal/mp4check"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

type app struct {
	cfg    avbridge.Config
	bridge *avbridge.Bridge
	out    io.Writer
	yaml   bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{out: os.Stdout}
	cliApp := &cli.App{
		Name:  "avbridge",
		Usage: "inspect and process media through FFmpeg",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file"},
			&cli.StringFlag{Name: "log-level", Usage: "error, warning, info, debug or trace"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "table or yaml; yaml when stdout is not a terminal"},
		},
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "print the linked FFmpeg library versions",
				Action: a.version,
			},
			{
				Name:      "probe",
				Usage:     "describe the streams of a file",
				ArgsUsage: "<file>",
				Action:    a.probe,
			},
			{
				Name:      "remux",
				Usage:     "copy the streams of a file into another container",
				ArgsUsage: "<in> <out>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format; guessed from <out> when empty"},
				},
				Action: a.remux,
			},
			{
				Name:      "silence",
				Usage:     "encode silence into a new file",
				ArgsUsage: "<out>",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "duration", Value: time.Second},
					&cli.IntFlag{Name: "rate", Value: 48000},
					&cli.IntFlag{Name: "channels", Value: 2},
					&cli.StringFlag{Name: "codec", Value: "aac"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}},
					&cli.Int64Flag{Name: "bitrate"},
					&cli.StringSliceFlag{Name: "tag", Usage: "container metadata as key=value, repeatable"},
					&cli.StringFlag{Name: "language", Usage: "stream language, e.g. eng"},
				},
				Action: a.silence,
			},
			{
				Name:      "verify",
				Usage:     "inspect the box structure of an MP4 file",
				ArgsUsage: "<mp4>",
				Action:    a.verify,
			},
			{
				Name:      "count-frames",
				Usage:     "decode a stream and count its frames",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: "video", Usage: "video or audio"},
				},
				Action: a.countFrames,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Errorf(ctx, "%v", err)
		fmt.Fprintf(os.Stderr, "avbridge: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(c *cli.Context) error {
	cfg := avbridge.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = avbridge.LoadConfig(path); err != nil {
			return err
		}
	}
	if name := c.String("log-level"); name != "" {
		var level logger.Level
		if err := level.Set(name); err != nil {
			return fmt.Errorf("--log-level %q: %w", name, err)
		}
		cfg.LogLevel = avbridge.LogLevel(level)
	}

	switch c.String("output") {
	case "yaml":
		a.yaml = true
	case "table":
	case "":
		fd := os.Stdout.Fd()
		a.yaml = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	default:
		return fmt.Errorf("unknown --output %q", c.String("output"))
	}

	a.cfg = cfg
	return nil
}

// open loads FFmpeg on first use so that help and flag errors work without
// the libraries.
func (a *app) open(c *cli.Context) (context.Context, error) {
	ctx := logger.CtxWithLogger(c.Context, avbridge.NewLogger(a.cfg.LogLevel))
	if a.bridge != nil {
		return ctx, nil
	}
	b, err := avbridge.New(ctx, a.cfg)
	if err != nil {
		return ctx, err
	}
	a.bridge = b
	return ctx, nil
}

func (a *app) teardown(c *cli.Context) error {
	defer belt.Flush(c.Context)
	if a.bridge == nil {
		return nil
	}
	ctx := logger.CtxWithLogger(c.Context, a.bridge.Logger())
	if live := a.bridge.LiveHandles(); len(live) > 0 {
		logger.Warnf(ctx, "resources still alive at exit: %v", live)
	}
	return a.bridge.Close(ctx)
}

func (a *app) emit(v any, table func(w *tabwriter.Writer)) error {
	if a.yaml {
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func arg(c *cli.Context, i int, name string) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("missing %s", name)
	}
	return c.Args().Get(i), nil
}

func (a *app) version(c *cli.Context) error {
	if _, err := a.open(c); err != nil {
		return err
	}
	v := avbridge.Version()
	versions := map[string]string{
		"avutil":     avbridge.VersionString(v.AVUtil),
		"avcodec":    avbridge.VersionString(v.AVCodec),
		"avformat":   avbridge.VersionString(v.AVFormat),
		"avfilter":   avbridge.VersionString(v.AVFilter),
		"swscale":    avbridge.VersionString(v.SWScale),
		"swresample": avbridge.VersionString(v.SWResample),
	}
	return a.emit(versions, func(w *tabwriter.Writer) {
		for _, lib := range []string{"avutil", "avcodec", "avformat", "avfilter", "swscale", "swresample"} {
			fmt.Fprintf(w, "%s\t%s\n", lib, versions[lib])
		}
	})
}

func (a *app) probe(c *cli.Context) error {
	path, err := arg(c, 0, "<file>")
	if err != nil {
		return err
	}
	ctx, err := a.open(c)
	if err != nil {
		return err
	}
	res, err := a.bridge.ProbeFile(ctx, path)
	if err != nil {
		return err
	}
	return a.emit(res, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "format\t%s (%s)\n", res.Format, res.LongName)
		fmt.Fprintf(w, "duration\t%v\n", res.Duration)
		if res.BitRate > 0 {
			fmt.Fprintf(w, "bit rate\t%s/s\n", humanize.SI(float64(res.BitRate), "b"))
		}
		keys := make([]string, 0, len(res.Tags))
		for k := range res.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\n", k, res.Tags[k])
		}
		fmt.Fprintln(w, "\nINDEX\tTYPE\tCODEC\tDETAILS\tTIME BASE")
		for _, st := range res.Streams {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", st.Index, st.Type, st.Codec, streamDetails(st), st.TimeBase)
		}
		if len(res.Chapters) > 0 {
			fmt.Fprintln(w, "\nCHAPTER\tSTART\tEND\tTITLE")
			for _, ch := range res.Chapters {
				fmt.Fprintf(w, "%d\t%v\t%v\t%s\n", ch.ID, ch.StartTime(), ch.EndTime(), ch.Title)
			}
		}
	})
}

func streamDetails(st avbridge.StreamInfo) string {
	switch {
	case st.Width > 0:
		s := fmt.Sprintf("%dx%d %s", st.Width, st.Height, st.PixelFormat)
		if st.FrameRate != "" {
			s += " @ " + st.FrameRate
		}
		return s
	case st.SampleRate > 0:
		s := fmt.Sprintf("%d Hz %s %s", st.SampleRate, st.SampleFormat, st.ChannelLayout)
		if st.Language != "" {
			s += " [" + st.Language + "]"
		}
		return s
	}
	return "-"
}

func (a *app) remux(c *cli.Context) error {
	inPath, err := arg(c, 0, "<in>")
	if err != nil {
		return err
	}
	outPath, err := arg(c, 1, "<out>")
	if err != nil {
		return err
	}
	ctx, err := a.open(c)
	if err != nil {
		return err
	}
	format, err := outputFormat(c.String("format"), outPath)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	src, err := a.bridge.NewIOContextFromReader(ctx, in)
	if err != nil {
		return err
	}
	defer src.Destroy(ctx)
	dst, err := a.bridge.NewIOContextFromWriter(ctx, out)
	if err != nil {
		return err
	}
	defer dst.Destroy(ctx)

	start := time.Now()
	stats, err := a.bridge.Remux(ctx, src, format, dst)
	if err != nil {
		return fmt.Errorf("remuxing %s to %s: %w", inPath, outPath, err)
	}
	report := map[string]any{
		"streams": stats.Streams,
		"packets": stats.Packets,
		"bytes":   stats.Bytes,
		"skipped": stats.Skipped,
		"written": dst.BytesWritten(),
		"took":    time.Since(start).String(),
	}
	return a.emit(report, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "streams\t%d\n", stats.Streams)
		fmt.Fprintf(w, "packets\t%d (%d skipped)\n", stats.Packets, stats.Skipped)
		fmt.Fprintf(w, "payload\t%s\n", humanize.IBytes(uint64(stats.Bytes)))
		fmt.Fprintf(w, "written\t%s\n", humanize.IBytes(uint64(dst.BytesWritten())))
		fmt.Fprintf(w, "took\t%v\n", time.Since(start).Round(time.Millisecond))
	})
}

func outputFormat(name, path string) (string, error) {
	if name != "" {
		return name, nil
	}
	f, err := avbridge.GuessOutputFormat("", filepath.Base(path), "")
	if err != nil {
		return "", fmt.Errorf("no --format given and none matches %q: %w", path, err)
	}
	return f.Name(), nil
}

func (a *app) silence(c *cli.Context) error {
	outPath, err := arg(c, 0, "<out>")
	if err != nil {
		return err
	}
	ctx, err := a.open(c)
	if err != nil {
		return err
	}
	format, err := outputFormat(c.String("format"), outPath)
	if err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	dst, err := a.bridge.NewIOContextFromWriter(ctx, out)
	if err != nil {
		return err
	}
	defer dst.Destroy(ctx)

	tags, err := parseTags(c.StringSlice("tag"))
	if err != nil {
		return err
	}
	stats, err := a.bridge.EncodeSilence(ctx, dst, format, avbridge.SilenceOptions{
		Encoder:       c.String("codec"),
		SampleRate:    c.Int("rate"),
		ChannelLayout: avbridge.DefaultChannelLayout(c.Int("channels")),
		BitRate:       c.Int64("bitrate"),
		Duration:      c.Duration("duration"),
		Tags:          tags,
		Language:      c.String("language"),
	})
	if err != nil {
		return err
	}
	return a.emit(stats, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "samples\t%d\n", stats.Samples)
		fmt.Fprintf(w, "frames\t%d\n", stats.Frames)
		fmt.Fprintf(w, "packets\t%d\n", stats.Packets)
		fmt.Fprintf(w, "size\t%s\n", humanize.IBytes(uint64(dst.BytesWritten())))
	})
}

func (a *app) verify(c *cli.Context) error {
	path, err := arg(c, 0, "<mp4>")
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sum, err := mp4check.Inspect(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return a.emit(sum, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "brand\t%s\n", sum.Brand)
		fmt.Fprintf(w, "fragmented\t%t\n", sum.Fragmented)
		fmt.Fprintf(w, "duration\t%v\n", sum.Duration)
		fmt.Fprintln(w, "\nTRACK\tHANDLER\tENTRY\tTIMESCALE\tDURATION\tSAMPLES")
		for _, t := range sum.Tracks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%v\t%d\n", t.ID, t.Handler, t.SampleEntry, t.Timescale, t.Duration, t.Samples)
		}
	})
}

func (a *app) countFrames(c *cli.Context) error {
	path, err := arg(c, 0, "<file>")
	if err != nil {
		return err
	}
	var mediaType avbridge.MediaType
	switch strings.ToLower(c.String("type")) {
	case "video":
		mediaType = avbridge.MediaTypeVideo
	case "audio":
		mediaType = avbridge.MediaTypeAudio
	default:
		return fmt.Errorf("unknown --type %q", c.String("type"))
	}

	ctx, err := a.open(c)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	pb, err := a.bridge.NewIOContextFromReader(ctx, f)
	if err != nil {
		return err
	}
	defer pb.Destroy(ctx)
	fc, err := a.bridge.OpenInput(ctx, pb, "", nil)
	if err != nil {
		return err
	}
	defer fc.Destroy(ctx)

	index := fc.BestStream(mediaType)
	if index < 0 {
		return fmt.Errorf("%s has no %s stream", path, mediaType)
	}
	var samples int64
	frames, err := a.bridge.DecodeStream(ctx, fc, index, func(frame avbridge.Frame) error {
		samples += int64(frame.NbSamples())
		return nil
	})
	if err != nil {
		return err
	}
	report := map[string]int64{"stream": int64(index), "frames": int64(frames)}
	if mediaType == avbridge.MediaTypeAudio {
		report["samples"] = samples
	}
	return a.emit(report, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "stream\t%d\n", index)
		fmt.Fprintf(w, "frames\t%s\n", humanize.Comma(int64(frames)))
		if mediaType == avbridge.MediaTypeAudio {
			fmt.Fprintf(w, "samples\t%s\n", humanize.Comma(samples))
		}
	})
}

func parseTags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("tag %q is not key=value", pair)
		}
		tags[k] = v
	}
	return tags, nil
}
