// Package assembler turns a resampled audio buffer into an audio track
// of the trimmed video: it computes the trim points, encodes the audio
// and hands both over to a remuxer.
package assembler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xdfmerge/pkg/audio"
	"github.com/xaionaro-go/xdfmerge/pkg/audio/resampler"
	"github.com/xaionaro-go/xdfmerge/pkg/remux"
	"github.com/xaionaro-go/xdfmerge/pkg/syncer"
)

const DefaultOutputSuffix = "_synced"

type Assembler struct {
	Remuxer remux.Remuxer

	// OutputSuffix is inserted between the video file name and its extension.
	OutputSuffix string

	// TempDir holds the intermediate audio file; empty means os.TempDir().
	TempDir string

	// AudioFormat is the sample format of the intermediate audio file.
	AudioFormat audio.PCMFormat
}

func New(remuxer remux.Remuxer) *Assembler {
	return &Assembler{
		Remuxer:      remuxer,
		OutputSuffix: DefaultOutputSuffix,
		AudioFormat:  audio.PCMFormatS16LE,
	}
}

type Request struct {
	VideoPath string

	// VideoOrigin is the timestamp of the first video frame, it
	// corresponds to the beginning of the video file.
	VideoOrigin float64

	Window syncer.Window
	Buffer *resampler.Buffer

	// SourceFormat defines the scale of the values in Buffer.
	SourceFormat audio.PCMFormat
}

type Trim struct {
	Start    float64
	Duration float64
}

type Result struct {
	OutputPath string
	Trim       Trim
}

// PlanTrim returns where the window starts relative to the video file
// and how long it is.
func PlanTrim(
	videoOrigin float64,
	w syncer.Window,
) (Trim, error) {
	if w.Start < videoOrigin {
		return Trim{}, fmt.Errorf("the window starts at %v, before the first video frame at %v", w.Start, videoOrigin)
	}
	return Trim{
		Start:    w.Start - videoOrigin,
		Duration: w.Duration(),
	}, nil
}

// OutputPath returns the path of the merged file for the video path.
func OutputPath(videoPath, suffix string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + suffix + ext
}

func (a *Assembler) Assemble(
	ctx context.Context,
	req Request,
) (*Result, error) {
	if a.Remuxer == nil {
		return nil, fmt.Errorf("no remuxer is configured")
	}
	if req.Buffer == nil || req.Buffer.NumSamples() == 0 {
		return nil, fmt.Errorf("the audio buffer is empty")
	}

	trim, err := PlanTrim(req.VideoOrigin, req.Window)
	if err != nil {
		return nil, err
	}

	audioPath, err := a.writeAudio(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(audioPath); err != nil {
			logger.Warnf(ctx, "unable to remove the temporary audio file '%s': %v", audioPath, err)
		}
	}()

	outputPath := OutputPath(req.VideoPath, a.OutputSuffix)
	logger.Debugf(ctx, "remuxing '%s' (trim start %.3fs, duration %.3fs) with '%s' into '%s'", req.VideoPath, trim.Start, trim.Duration, audioPath, outputPath)
	outputPath, err = a.Remuxer.Remux(ctx, remux.Request{
		VideoPath:  req.VideoPath,
		AudioPath:  audioPath,
		TrimStart:  trim.Start,
		Duration:   trim.Duration,
		OutputPath: outputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to remux '%s': %w", req.VideoPath, err)
	}

	return &Result{
		OutputPath: outputPath,
		Trim:       trim,
	}, nil
}

func (a *Assembler) writeAudio(
	ctx context.Context,
	req Request,
) (_ string, _err error) {
	f, err := os.CreateTemp(a.TempDir, "xdfmerge-*.wav")
	if err != nil {
		return "", fmt.Errorf("unable to create a temporary audio file: %w", err)
	}
	defer func() {
		if _err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	err = WriteWAV(f, req.Buffer, req.SourceFormat, a.AudioFormat)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("unable to write '%s': %w", f.Name(), err)
	}

	logger.Debugf(ctx, "wrote %d samples x %d channels at %d Hz to '%s'", req.Buffer.NumSamples(), req.Buffer.NumChannels(), req.Buffer.SampleRate, f.Name())
	return f.Name(), nil
}
