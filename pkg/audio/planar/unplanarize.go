package planar

import (
	"fmt"
)

// Unplanarize interleaves planes (one slice per channel) into a single
// slice: ch0[0], ch1[0], ..., ch0[1], ch1[1], ...
func Unplanarize[T any](planes [][]T) ([]T, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("no channels provided")
	}

	samplesPerChan := len(planes[0])
	for ch, plane := range planes {
		if len(plane) != samplesPerChan {
			return nil, fmt.Errorf("the lengths of the channels are not equal: %d (ch0) != %d (ch%d)", samplesPerChan, len(plane), ch)
		}
	}

	channels := len(planes)
	output := make([]T, samplesPerChan*channels)
	for ch, plane := range planes {
		for samplePos, v := range plane {
			output[samplePos*channels+ch] = v
		}
	}

	return output, nil
}
