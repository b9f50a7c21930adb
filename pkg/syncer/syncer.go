// Package syncer finds the time span shared by two timestamp series
// that are already expressed in one logical clock.
package syncer

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoOverlap   = errors.New("the streams do not overlap in time")
	ErrEmptySeries = errors.New("the timestamp series is empty")

	ErrNonFiniteTimestamp = errors.New("the timestamp is not a finite number")
)

// Window is a closed time interval [Start, End], in the clock domain
// of the series it was resolved from.
type Window struct {
	Start float64
	End   float64
}

func (w Window) Duration() float64 {
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("[%.3f, %.3f] (%.3fs)", w.Start, w.End, w.Duration())
}

// Range returns the smallest and the largest timestamps. The series is
// not required to be sorted, but every timestamp must be finite.
func Range(timestamps []float64) (float64, float64, error) {
	if len(timestamps) == 0 {
		return 0, 0, ErrEmptySeries
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for idx, ts := range timestamps {
		if !IsFinite(ts) {
			return 0, 0, fmt.Errorf("%w: timestamp #%d is %v", ErrNonFiniteTimestamp, idx, ts)
		}
		lo = min(lo, ts)
		hi = max(hi, ts)
	}
	return lo, hi, nil
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ResolveOverlap returns the intersection of the spans of the two
// series. A zero-length intersection is valid; a negative one is
// ErrNoOverlap.
func ResolveOverlap(
	videoTimestamps []float64,
	audioTimestamps []float64,
) (Window, error) {
	videoStart, videoEnd, err := Range(videoTimestamps)
	if err != nil {
		return Window{}, fmt.Errorf("video: %w", err)
	}
	audioStart, audioEnd, err := Range(audioTimestamps)
	if err != nil {
		return Window{}, fmt.Errorf("audio: %w", err)
	}

	w := Window{
		Start: max(videoStart, audioStart),
		End:   min(videoEnd, audioEnd),
	}
	if w.Start > w.End {
		return Window{}, fmt.Errorf("%w: video spans [%.3f, %.3f], audio spans [%.3f, %.3f]", ErrNoOverlap, videoStart, videoEnd, audioStart, audioEnd)
	}
	return w, nil
}
