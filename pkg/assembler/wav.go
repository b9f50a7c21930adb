package assembler

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/xdfmerge/pkg/audio"
	"github.com/xaionaro-go/xdfmerge/pkg/audio/planar"
	"github.com/xaionaro-go/xdfmerge/pkg/audio/resampler"
)

const wavFormatPCM = 1

// Quantize maps a value in sourceFormat's scale to an integer sample
// of targetFormat. Float formats are full scale at 1.0; the result is
// clipped to the range of targetFormat.
func Quantize(
	v float64,
	sourceFormat audio.PCMFormat,
	targetFormat audio.PCMFormat,
) int {
	scale := targetFormat.FullScale()
	q := math.Round(v / sourceFormat.FullScale() * scale)
	switch {
	case math.IsNaN(q):
		return 0
	case q > scale-1:
		return int(scale - 1)
	case q < -scale:
		return int(-scale)
	default:
		return int(q)
	}
}

// WriteWAV encodes the buffer as integer PCM WAV in targetFormat.
func WriteWAV(
	w io.WriteSeeker,
	buf *resampler.Buffer,
	sourceFormat audio.PCMFormat,
	targetFormat audio.PCMFormat,
) error {
	switch targetFormat {
	case audio.PCMFormatS16LE, audio.PCMFormatS24LE, audio.PCMFormatS32LE:
	default:
		return fmt.Errorf("unsupported WAV sample format: %s", targetFormat)
	}
	if buf.NumChannels() == 0 {
		return fmt.Errorf("the buffer has no channels")
	}

	quantized := make([][]int, len(buf.Channels))
	for ch, values := range buf.Channels {
		quantized[ch] = make([]int, len(values))
		for i, v := range values {
			quantized[ch][i] = Quantize(v, sourceFormat, targetFormat)
		}
	}
	data, err := planar.Unplanarize(quantized)
	if err != nil {
		return fmt.Errorf("unable to interleave the channels: %w", err)
	}

	bitDepth := audio.EncodingPCM{PCMFormat: targetFormat}.BitDepth()
	enc := wav.NewEncoder(w, int(buf.SampleRate), bitDepth, len(buf.Channels), wavFormatPCM)
	err = enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: len(buf.Channels),
			SampleRate:  int(buf.SampleRate),
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	})
	if err != nil {
		return fmt.Errorf("unable to write the samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV headers: %w", err)
	}
	return nil
}
