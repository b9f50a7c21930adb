package xdf

import (
	"math"
)

const (
	dejitterBreakSeconds = 1.0
	dejitterBreakSamples = 500
)

// dejitter replaces the timestamps of a regularly sampled stream with
// a linear fit against the sample index. The fit is done separately on
// every segment; segments are split where consecutive timestamps are
// farther apart than max(1s, 500 sampling periods).
func dejitter(s *Stream) {
	if s.Info.NominalSRate <= 0 || len(s.TimeStamps) == 0 {
		return
	}

	threshold := math.Max(dejitterBreakSeconds, dejitterBreakSamples/s.Info.NominalSRate)

	var (
		durationSum float64
		samplesSum  int
	)
	begin := 0
	for i := 1; i <= len(s.TimeStamps); i++ {
		if i < len(s.TimeStamps) && s.TimeStamps[i]-s.TimeStamps[i-1] <= threshold {
			continue
		}
		segment := s.TimeStamps[begin:i]
		fitSegment(segment)
		if len(segment) > 1 {
			durationSum += segment[len(segment)-1] - segment[0]
			samplesSum += len(segment) - 1
		}
		begin = i
	}

	if durationSum > 0 {
		s.EffectiveSRate = float64(samplesSum) / durationSum
	}
}

// fitSegment fits ts[i] ~ a + b*i by least squares and stores the fit.
func fitSegment(ts []float64) {
	if len(ts) < 2 {
		return
	}

	n := float64(len(ts))
	meanI := (n - 1) / 2
	var meanT float64
	for _, t := range ts {
		meanT += t
	}
	meanT /= n

	var covIT, varI float64
	for i, t := range ts {
		di := float64(i) - meanI
		covIT += di * (t - meanT)
		varI += di * di
	}

	b := covIT / varI
	a := meanT - b*meanI
	for i := range ts {
		ts[i] = a + b*float64(i)
	}
}
