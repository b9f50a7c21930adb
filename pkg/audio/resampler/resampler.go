// Package resampler reconstructs an audio signal on a uniform time grid
// from samples with actual (possibly irregular) timestamps.
package resampler

import (
	"errors"
	"fmt"
	"math"

	"github.com/xaionaro-go/xdfmerge/pkg/audio"
	"github.com/xaionaro-go/xdfmerge/pkg/interpolation"
	"github.com/xaionaro-go/xdfmerge/pkg/syncer"
)

var (
	ErrEmptyWindow            = errors.New("the window is shorter than one sample period")
	ErrNonMonotonicTimestamps = errors.New("the timestamps are not monotonically non-decreasing")
)

// Series is a multi-channel signal with one timestamp per sample.
// Channels are planar: Channels[ch][sampleIdx].
type Series struct {
	Timestamps []float64
	Channels   [][]float64
}

func (s Series) validate() error {
	if len(s.Timestamps) == 0 {
		return fmt.Errorf("the series has no samples")
	}
	if len(s.Channels) == 0 {
		return fmt.Errorf("the series has no channels")
	}
	for ch, values := range s.Channels {
		if len(values) != len(s.Timestamps) {
			return fmt.Errorf("channel %d has %d samples, but there are %d timestamps", ch, len(values), len(s.Timestamps))
		}
	}
	for i, ts := range s.Timestamps {
		if !syncer.IsFinite(ts) {
			return fmt.Errorf("%w: timestamp #%d is %v", syncer.ErrNonFiniteTimestamp, i, ts)
		}
		if i > 0 && ts < s.Timestamps[i-1] {
			return fmt.Errorf("%w: timestamp #%d (%v) is before timestamp #%d (%v)", ErrNonMonotonicTimestamps, i, s.Timestamps[i], i-1, s.Timestamps[i-1])
		}
	}
	return nil
}

// Buffer is a multi-channel signal sampled uniformly at SampleRate,
// the first sample being at Start.
type Buffer struct {
	Start      float64
	SampleRate audio.SampleRate
	Channels   [][]float64
}

func (b *Buffer) NumChannels() audio.Channel {
	return audio.Channel(len(b.Channels))
}

func (b *Buffer) NumSamples() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

func (b *Buffer) Duration() float64 {
	return float64(b.NumSamples()) / float64(b.SampleRate)
}

// NumSamples returns round(duration * sampleRate), never negative.
// A window that is not finite, or too long to be addressed, has no
// samples.
func NumSamples(
	w syncer.Window,
	sampleRate audio.SampleRate,
) int {
	n := math.Round(w.Duration() * float64(sampleRate))
	if !(n > 0) || n > maxSamples {
		return 0
	}
	return int(n)
}

// Grid returns t_i = start + i/sampleRate for i in [0, n).
func Grid(
	start float64,
	sampleRate audio.SampleRate,
	n int,
) []float64 {
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = start + float64(i)/float64(sampleRate)
	}
	return grid
}

// maxSamples bounds a single buffer; about 9 hours per channel at 48 kHz.
const maxSamples = math.MaxInt32

type Resampler struct {
	Interpolator interpolation.Interpolator
}

func New() *Resampler {
	return &Resampler{
		Interpolator: interpolation.NewLinear(),
	}
}

// Resample reconstructs the series on the uniform grid covering the
// window at the given sample rate. Every channel is interpolated
// independently on the same grid.
func (r *Resampler) Resample(
	series Series,
	window syncer.Window,
	sampleRate audio.SampleRate,
) (*Buffer, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("the sample rate must be positive")
	}
	if err := series.validate(); err != nil {
		return nil, err
	}
	if !syncer.IsFinite(window.Start) || !syncer.IsFinite(window.End) {
		return nil, fmt.Errorf("%w: window %s", syncer.ErrNonFiniteTimestamp, window)
	}
	if n := math.Round(window.Duration() * float64(sampleRate)); n > maxSamples {
		return nil, fmt.Errorf("the window %s at %d Hz needs %v samples, the limit is %d", window, sampleRate, n, maxSamples)
	}

	n := NumSamples(window, sampleRate)
	if n == 0 {
		return nil, fmt.Errorf("%w: window %s at %d Hz", ErrEmptyWindow, window, sampleRate)
	}

	grid := Grid(window.Start, sampleRate, n)
	channels := make([][]float64, len(series.Channels))
	for ch, values := range series.Channels {
		channels[ch] = r.Interpolator.Interpolate(series.Timestamps, values, grid)
	}

	return &Buffer{
		Start:      window.Start,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
