package planar

import (
	"fmt"
)

// Planarize converts sample frames (one row per sample, one column
// per channel) into planes (one slice per channel).
func Planarize[T any](channels int, frames [][]T) ([][]T, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("the amount of channels must be positive: %d", channels)
	}

	planes := make([][]T, channels)
	for ch := range planes {
		planes[ch] = make([]T, len(frames))
	}

	for samplePos, frame := range frames {
		if len(frame) != channels {
			return nil, fmt.Errorf("frame #%d has %d values, but expected %d", samplePos, len(frame), channels)
		}
		for ch, v := range frame {
			planes[ch][samplePos] = v
		}
	}

	return planes, nil
}
