package xdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// readSamples appends the samples of a Samples chunk to the stream and
// returns the timestamp of the last one. Samples without a timestamp
// get lastTS + 1/nominal_srate.
func readSamples(
	content []byte,
	s *Stream,
	lastTS float64,
) (float64, error) {
	r := newByteReader(content)
	numSamples, err := readVarLen(r)
	if err != nil {
		return lastTS, fmt.Errorf("unable to read the amount of samples: %w", err)
	}

	format := s.Info.ChannelFormat
	channels := s.Info.ChannelCount
	valueSize := format.valueSize()
	if channels <= 0 || channels > MaxChannelCount {
		return lastTS, fmt.Errorf("invalid channel count: %d", channels)
	}

	// the smallest possible sample: the timestamp length byte followed
	// by the values, a string value taking at least a length byte and
	// its length
	minValueSize := uint64(valueSize)
	if format == ChannelFormatString {
		minValueSize = 2
	}
	minSize := 1 + uint64(channels)*minValueSize
	if uint64(r.Len())/minSize < numSamples {
		return lastTS, fmt.Errorf("the chunk declares %d samples, but there are only %d bytes", numSamples, r.Len())
	}

	var tdiff float64
	if s.Info.NominalSRate > 0 {
		tdiff = 1 / s.Info.NominalSRate
	}

	for idx := uint64(0); idx < numSamples; idx++ {
		tsBytes, err := r.ReadByte()
		if err != nil {
			return lastTS, fmt.Errorf("sample #%d: unable to read the timestamp length: %w", idx, err)
		}
		switch tsBytes {
		case 8:
			ts, err := r.Float64()
			if err != nil {
				return lastTS, fmt.Errorf("sample #%d: unable to read the timestamp: %w", idx, err)
			}
			lastTS = ts
		case 0:
			lastTS += tdiff
		default:
			return lastTS, fmt.Errorf("sample #%d: invalid timestamp length: %d", idx, tsBytes)
		}
		s.TimeStamps = append(s.TimeStamps, lastTS)

		if format == ChannelFormatString {
			values := make([]string, channels)
			for ch := range values {
				length, err := readVarLen(r)
				if err != nil {
					return lastTS, fmt.Errorf("sample #%d channel %d: unable to read the string length: %w", idx, ch, err)
				}
				b, err := r.Next(int(length))
				if err != nil {
					return lastTS, fmt.Errorf("sample #%d channel %d: unable to read the string: %w", idx, ch, err)
				}
				values[ch] = string(b)
			}
			s.StringSeries = append(s.StringSeries, values)
			continue
		}

		b, err := r.Next(channels * valueSize)
		if err != nil {
			return lastTS, fmt.Errorf("sample #%d: unable to read the values: %w", idx, err)
		}
		values := make([]float64, channels)
		for ch := range values {
			values[ch] = decodeValue(format, b[ch*valueSize:])
		}
		s.TimeSeries = append(s.TimeSeries, values)
	}

	return lastTS, nil
}

func decodeValue(f ChannelFormat, p []byte) float64 {
	switch f {
	case ChannelFormatInt8:
		return float64(int8(p[0]))
	case ChannelFormatInt16:
		return float64(int16(binary.LittleEndian.Uint16(p)))
	case ChannelFormatInt32:
		return float64(int32(binary.LittleEndian.Uint32(p)))
	case ChannelFormatInt64:
		return float64(int64(binary.LittleEndian.Uint64(p)))
	case ChannelFormatFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case ChannelFormatDouble64:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}
