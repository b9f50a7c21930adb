// Package merge is the whole per-file pipeline: it loads the recording,
// selects the streams, resolves their overlap, resamples the audio and
// assembles the output video.
//
// A Merger keeps no state between runs, but it is also not meant to be
// shared: use one Merger per concurrently processed file.
package merge

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xdfmerge/pkg/assembler"
	"github.com/xaionaro-go/xdfmerge/pkg/audio"
	"github.com/xaionaro-go/xdfmerge/pkg/audio/planar"
	"github.com/xaionaro-go/xdfmerge/pkg/audio/resampler"
	"github.com/xaionaro-go/xdfmerge/pkg/config"
	"github.com/xaionaro-go/xdfmerge/pkg/remux"
	"github.com/xaionaro-go/xdfmerge/pkg/selector"
	"github.com/xaionaro-go/xdfmerge/pkg/syncer"
	"github.com/xaionaro-go/xdfmerge/pkg/xdf"
)

type Merger struct {
	XDFOptions xdf.Options
	Selector   *selector.Selector
	Resampler  *resampler.Resampler
	Assembler  *assembler.Assembler
}

// New builds a Merger from the config, remuxing with ffmpeg.
func New(cfg *config.Config) *Merger {
	return NewWithRemuxer(cfg, cfg.NewRemuxer())
}

func NewWithRemuxer(
	cfg *config.Config,
	remuxer remux.Remuxer,
) *Merger {
	a := assembler.New(remuxer)
	a.OutputSuffix = cfg.Output.Suffix
	a.TempDir = cfg.Output.TempDir
	return &Merger{
		XDFOptions: cfg.XDFOptions(),
		Selector:   selector.New(cfg.SelectorConfig()),
		Resampler:  resampler.New(),
		Assembler:  a,
	}
}

type Request struct {
	VideoPath string
	XDFPath   string
	Hints     selector.Hints
}

type Result struct {
	OutputPath string
	Video      *xdf.Stream
	Audio      *xdf.Stream
	Window     syncer.Window
	Trim       assembler.Trim
	NumSamples int
	SampleRate audio.SampleRate
}

func (m *Merger) Merge(
	ctx context.Context,
	req Request,
) (*Result, error) {
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, fmt.Errorf("the video file is not accessible: %w", err)
	}

	file, err := xdf.Load(ctx, req.XDFPath, m.XDFOptions)
	if err != nil {
		return nil, err
	}

	return m.MergeStreams(ctx, req.VideoPath, file.Streams, req.Hints)
}

// MergeStreams does what Merge does, but with already loaded streams.
func (m *Merger) MergeStreams(
	ctx context.Context,
	videoPath string,
	streams []*xdf.Stream,
	hints selector.Hints,
) (*Result, error) {
	sel, err := m.Selector.Select(streams, hints)
	if err != nil {
		return nil, err
	}
	logger.Infof(ctx, "using video stream '%s' and audio stream '%s'", sel.Video.Info.Name, sel.Audio.Info.Name)

	window, err := syncer.ResolveOverlap(sel.Video.TimeStamps, sel.Audio.TimeStamps)
	if err != nil {
		return nil, err
	}
	logger.Infof(ctx, "overlap from %.3fs to %.3fs (%.3fs)", window.Start, window.End, window.Duration())

	series, sourceFormat, sampleRate, err := audioSeries(sel.Audio)
	if err != nil {
		return nil, fmt.Errorf("audio stream '%s': %w", sel.Audio.Info.Name, err)
	}

	buf, err := m.Resampler.Resample(series, window, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("unable to resample audio stream '%s': %w", sel.Audio.Info.Name, err)
	}
	logger.Debugf(ctx, "resampled %d original samples into %d samples at %d Hz", sel.Audio.NumSamples(), buf.NumSamples(), sampleRate)

	videoOrigin, _, err := syncer.Range(sel.Video.TimeStamps)
	if err != nil {
		return nil, fmt.Errorf("video stream '%s': %w", sel.Video.Info.Name, err)
	}

	res, err := m.Assembler.Assemble(ctx, assembler.Request{
		VideoPath:    videoPath,
		VideoOrigin:  videoOrigin,
		Window:       window,
		Buffer:       buf,
		SourceFormat: sourceFormat,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof(ctx, "synchronized output written to '%s'", res.OutputPath)

	return &Result{
		OutputPath: res.OutputPath,
		Video:      sel.Video,
		Audio:      sel.Audio,
		Window:     window,
		Trim:       res.Trim,
		NumSamples: buf.NumSamples(),
		SampleRate: sampleRate,
	}, nil
}

func audioSeries(s *xdf.Stream) (resampler.Series, audio.PCMFormat, audio.SampleRate, error) {
	sourceFormat, ok := s.Info.ChannelFormat.PCMFormat()
	if !ok {
		return resampler.Series{}, 0, 0, fmt.Errorf("channel format '%s' is not numeric", s.Info.ChannelFormat)
	}

	rate := math.Round(s.Info.NominalSRate)
	if rate < 1 || rate > math.MaxUint32 {
		return resampler.Series{}, 0, 0, fmt.Errorf("invalid nominal sampling rate: %v", s.Info.NominalSRate)
	}

	planes, err := planar.Planarize(s.Info.ChannelCount, s.TimeSeries)
	if err != nil {
		return resampler.Series{}, 0, 0, err
	}

	return resampler.Series{
		Timestamps: s.TimeStamps,
		Channels:   planes,
	}, sourceFormat, audio.SampleRate(rate), nil
}
