package xdf

// synchronizeClock maps the stream timestamps to the recorder clock:
// the offsets are fitted as offset(t) = a + b*t by least squares and
// every timestamp t becomes t + offset(t).
func synchronizeClock(s *Stream) {
	if len(s.ClockOffsets) == 0 || len(s.TimeStamps) == 0 {
		return
	}

	a, b := fitClockOffsets(s.ClockOffsets)
	for i, ts := range s.TimeStamps {
		s.TimeStamps[i] = ts + a + b*ts
	}
}

func fitClockOffsets(offsets []ClockOffset) (float64, float64) {
	n := float64(len(offsets))
	var meanT, meanV float64
	for _, o := range offsets {
		meanT += o.CollectionTime
		meanV += o.Value
	}
	meanT /= n
	meanV /= n

	var covTV, varT float64
	for _, o := range offsets {
		dt := o.CollectionTime - meanT
		covTV += dt * (o.Value - meanV)
		varT += dt * dt
	}
	if varT == 0 {
		// a single measurement or all at the same moment
		return meanV, 0
	}

	b := covTV / varT
	return meanV - b*meanT, b
}
