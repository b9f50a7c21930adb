package xdf

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/xaionaro-go/xdfmerge/pkg/audio"
)

type ChannelFormat string

const (
	ChannelFormatInt8     = ChannelFormat("int8")
	ChannelFormatInt16    = ChannelFormat("int16")
	ChannelFormatInt32    = ChannelFormat("int32")
	ChannelFormatInt64    = ChannelFormat("int64")
	ChannelFormatFloat32  = ChannelFormat("float32")
	ChannelFormatDouble64 = ChannelFormat("double64")
	ChannelFormatString   = ChannelFormat("string")
)

// valueSize returns the size of one numeric value, or 0 for strings
// and unknown formats.
func (f ChannelFormat) valueSize() int {
	switch f {
	case ChannelFormatInt8:
		return 1
	case ChannelFormatInt16:
		return 2
	case ChannelFormatInt32, ChannelFormatFloat32:
		return 4
	case ChannelFormatInt64, ChannelFormatDouble64:
		return 8
	default:
		return 0
	}
}

func (f ChannelFormat) IsNumeric() bool {
	return f.valueSize() != 0
}

// PCMFormat returns the PCM sample format that has the same value
// representation as the channel format. XDF values are little-endian.
func (f ChannelFormat) PCMFormat() (audio.PCMFormat, bool) {
	switch f {
	case ChannelFormatInt8:
		return audio.PCMFormatS8, true
	case ChannelFormatInt16:
		return audio.PCMFormatS16LE, true
	case ChannelFormatInt32:
		return audio.PCMFormatS32LE, true
	case ChannelFormatInt64:
		return audio.PCMFormatS64LE, true
	case ChannelFormatFloat32:
		return audio.PCMFormatFloat32LE, true
	case ChannelFormatDouble64:
		return audio.PCMFormatFloat64LE, true
	default:
		return audio.PCMFormatUndefined, false
	}
}

// MaxChannelCount is the largest channel count a stream header may declare.
const MaxChannelCount = 1 << 16

type StreamInfo struct {
	Name          string        `xml:"name"`
	Type          string        `xml:"type"`
	ChannelCount  int           `xml:"channel_count"`
	NominalSRate  float64       `xml:"nominal_srate"`
	ChannelFormat ChannelFormat `xml:"channel_format"`
	SourceID      string        `xml:"source_id"`
	Hostname      string        `xml:"hostname"`
	CreatedAt     float64       `xml:"created_at"`
}

type StreamFooter struct {
	FirstTimestamp float64 `xml:"first_timestamp"`
	LastTimestamp  float64 `xml:"last_timestamp"`
	SampleCount    int64   `xml:"sample_count"`
}

type ClockOffset struct {
	CollectionTime float64
	Value          float64
}

type Stream struct {
	ID     uint32
	Info   StreamInfo
	Footer *StreamFooter

	// TimeStamps has one entry per sample.
	TimeStamps []float64

	// TimeSeries has one row per sample with one value per channel;
	// it is filled for numeric channel formats.
	TimeSeries [][]float64

	// StringSeries is the TimeSeries counterpart for the "string"
	// channel format.
	StringSeries [][]string

	ClockOffsets []ClockOffset

	// EffectiveSRate is the sampling rate measured while dejittering,
	// zero if it was not measured.
	EffectiveSRate float64
}

func (s *Stream) NumSamples() int {
	return len(s.TimeStamps)
}

// TimeRange returns the first and the last timestamps of the stream.
func (s *Stream) TimeRange() (float64, float64, bool) {
	if len(s.TimeStamps) == 0 {
		return 0, 0, false
	}
	return s.TimeStamps[0], s.TimeStamps[len(s.TimeStamps)-1], true
}

func (s *Stream) String() string {
	return fmt.Sprintf("%d:%s(%s)", s.ID, s.Info.Name, s.Info.Type)
}

func parseFileHeader(content []byte, h *FileHeader) error {
	if err := xml.Unmarshal(content, h); err != nil {
		return fmt.Errorf("unable to parse the file header XML: %w", err)
	}
	return nil
}

func parseStreamInfo(content []byte) (*StreamInfo, error) {
	var info StreamInfo
	if err := xml.Unmarshal(content, &info); err != nil {
		return nil, fmt.Errorf("unable to parse XML: %w", err)
	}
	info.Name = strings.TrimSpace(info.Name)
	info.Type = strings.TrimSpace(info.Type)
	info.ChannelFormat = ChannelFormat(strings.TrimSpace(string(info.ChannelFormat)))

	if info.ChannelCount <= 0 || info.ChannelCount > MaxChannelCount {
		return nil, fmt.Errorf("invalid channel count: %d", info.ChannelCount)
	}
	if !info.ChannelFormat.IsNumeric() && info.ChannelFormat != ChannelFormatString {
		return nil, fmt.Errorf("unsupported channel format '%s'", info.ChannelFormat)
	}
	if info.NominalSRate < 0 {
		return nil, fmt.Errorf("invalid nominal sampling rate: %v", info.NominalSRate)
	}
	return &info, nil
}

func parseStreamFooter(content []byte) (*StreamFooter, error) {
	var footer StreamFooter
	if err := xml.Unmarshal(content, &footer); err != nil {
		return nil, fmt.Errorf("unable to parse XML: %w", err)
	}
	return &footer, nil
}
