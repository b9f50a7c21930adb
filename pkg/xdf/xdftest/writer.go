// Package xdftest builds XDF byte streams for tests.
package xdftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// StreamHeader describes a stream to be declared in a Builder.
type StreamHeader struct {
	ID            uint32
	Name          string
	Type          string
	ChannelCount  int
	NominalSRate  float64
	ChannelFormat string
}

// Sample is one sample of a stream. A nil Timestamp makes the reader
// deduce it. Values are used for numeric formats, Strings otherwise.
type Sample struct {
	Timestamp *float64
	Values    []float64
	Strings   []string
}

func TS(v float64) *float64 {
	return &v
}

type Builder struct {
	buf     bytes.Buffer
	formats map[uint32]StreamHeader
}

func NewBuilder() *Builder {
	b := &Builder{
		formats: map[uint32]StreamHeader{},
	}
	b.buf.WriteString("XDF:")
	return b
}

func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.Bytes(), 0640)
}

func (b *Builder) FileHeader(version string) *Builder {
	b.chunk(1, []byte(fmt.Sprintf(`<?xml version="1.0"?><info><version>%s</version></info>`, version)))
	return b
}

func (b *Builder) StreamHeader(h StreamHeader) *Builder {
	b.formats[h.ID] = h
	xml := fmt.Sprintf(
		`<?xml version="1.0"?><info><name>%s</name><type>%s</type><channel_count>%d</channel_count><nominal_srate>%v</nominal_srate><channel_format>%s</channel_format><source_id>test</source_id></info>`,
		h.Name, h.Type, h.ChannelCount, h.NominalSRate, h.ChannelFormat,
	)
	b.chunk(2, append(streamID(h.ID), xml...))
	return b
}

func (b *Builder) Samples(id uint32, samples ...Sample) *Builder {
	h, ok := b.formats[id]
	if !ok {
		panic(fmt.Errorf("stream %d is not declared", id))
	}

	var content bytes.Buffer
	content.Write(streamID(id))
	writeVarLen(&content, uint64(len(samples)))
	for _, s := range samples {
		if s.Timestamp == nil {
			content.WriteByte(0)
		} else {
			content.WriteByte(8)
			binary.Write(&content, binary.LittleEndian, math.Float64bits(*s.Timestamp))
		}
		if h.ChannelFormat == "string" {
			for _, str := range s.Strings {
				writeVarLen(&content, uint64(len(str)))
				content.WriteString(str)
			}
			continue
		}
		for _, v := range s.Values {
			writeValue(&content, h.ChannelFormat, v)
		}
	}
	b.chunk(3, content.Bytes())
	return b
}

func (b *Builder) ClockOffset(id uint32, collectionTime, value float64) *Builder {
	var content bytes.Buffer
	content.Write(streamID(id))
	binary.Write(&content, binary.LittleEndian, math.Float64bits(collectionTime))
	binary.Write(&content, binary.LittleEndian, math.Float64bits(value))
	b.chunk(4, content.Bytes())
	return b
}

func (b *Builder) Boundary() *Builder {
	b.chunk(5, make([]byte, 16))
	return b
}

func (b *Builder) StreamFooter(id uint32, first, last float64, count int) *Builder {
	xml := fmt.Sprintf(
		`<?xml version="1.0"?><info><first_timestamp>%v</first_timestamp><last_timestamp>%v</last_timestamp><sample_count>%d</sample_count></info>`,
		first, last, count,
	)
	b.chunk(6, append(streamID(id), xml...))
	return b
}

// Raw appends arbitrary bytes, e.g. to produce a truncated file.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

func (b *Builder) chunk(tag uint16, content []byte) {
	writeVarLen(&b.buf, uint64(len(content)+2))
	binary.Write(&b.buf, binary.LittleEndian, tag)
	b.buf.Write(content)
}

func streamID(id uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, id)
}

func writeVarLen(buf *bytes.Buffer, v uint64) {
	switch {
	case v <= math.MaxUint8:
		buf.WriteByte(1)
		buf.WriteByte(byte(v))
	case v <= math.MaxUint32:
		buf.WriteByte(4)
		binary.Write(buf, binary.LittleEndian, uint32(v))
	default:
		buf.WriteByte(8)
		binary.Write(buf, binary.LittleEndian, v)
	}
}

func writeValue(buf *bytes.Buffer, format string, v float64) {
	switch format {
	case "int8":
		buf.WriteByte(byte(int8(v)))
	case "int16":
		binary.Write(buf, binary.LittleEndian, int16(v))
	case "int32":
		binary.Write(buf, binary.LittleEndian, int32(v))
	case "int64":
		binary.Write(buf, binary.LittleEndian, int64(v))
	case "float32":
		binary.Write(buf, binary.LittleEndian, math.Float32bits(float32(v)))
	case "double64":
		binary.Write(buf, binary.LittleEndian, math.Float64bits(v))
	default:
		panic(fmt.Errorf("unsupported format '%s'", format))
	}
}

// RegularSamples produces n samples starting at start with the given
// period; value(i) produces the values of the i-th sample.
func RegularSamples(n int, start, period float64, value func(i int) []float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: TS(start + float64(i)*period),
			Values:    value(i),
		}
	}
	return samples
}
