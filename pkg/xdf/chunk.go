package xdf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

type Tag uint16

const (
	TagFileHeader   = Tag(1)
	TagStreamHeader = Tag(2)
	TagSamples      = Tag(3)
	TagClockOffset  = Tag(4)
	TagBoundary     = Tag(5)
	TagStreamFooter = Tag(6)
)

func (t Tag) String() string {
	switch t {
	case TagFileHeader:
		return "FileHeader"
	case TagStreamHeader:
		return "StreamHeader"
	case TagSamples:
		return "Samples"
	case TagClockOffset:
		return "ClockOffset"
	case TagBoundary:
		return "Boundary"
	case TagStreamFooter:
		return "StreamFooter"
	default:
		return fmt.Sprintf("Tag(%d)", uint16(t))
	}
}

const maxChunkLength = 1 << 31

var errTruncated = errors.New("truncated chunk")

type chunk struct {
	Tag     Tag
	Content []byte
}

// readChunk returns io.EOF only if the stream ends exactly at a chunk
// boundary, and errTruncated if it ends inside a chunk.
func readChunk(r *bufio.Reader) (chunk, error) {
	if _, err := r.Peek(1); err == io.EOF {
		return chunk{}, io.EOF
	}

	length, err := readVarLen(r)
	if err != nil {
		return chunk{}, truncatedOr(err)
	}
	if length < 2 {
		return chunk{}, fmt.Errorf("chunk length %d is too small", length)
	}
	if length > maxChunkLength {
		return chunk{}, fmt.Errorf("chunk length %d is too large", length)
	}

	var tagBytes [2]byte
	if _, err := io.ReadFull(r, tagBytes[:]); err != nil {
		return chunk{}, truncatedOr(err)
	}

	content := make([]byte, length-2)
	if _, err := io.ReadFull(r, content); err != nil {
		return chunk{}, truncatedOr(err)
	}

	return chunk{
		Tag:     Tag(binary.LittleEndian.Uint16(tagBytes[:])),
		Content: content,
	}, nil
}

func truncatedOr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errTruncated
	}
	return err
}

// readVarLen reads a variable-length integer: a byte with the amount
// of bytes (1, 4 or 8) followed by the little-endian value.
func readVarLen(r io.ByteReader) (uint64, error) {
	numBytes, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	switch numBytes {
	case 1, 4, 8:
	default:
		return 0, fmt.Errorf("invalid amount of length bytes: %d", numBytes)
	}

	var v uint64
	for i := uint(0); i < uint(numBytes); i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v |= uint64(b) << (8 * i)
	}
	return v, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) Len() int {
	return len(r.buf) - r.pos
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) Next(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, fmt.Errorf("need %d bytes, but only %d are left: %w", n, r.Len(), io.ErrUnexpectedEOF)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) Uint32() (uint32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) Float64() (float64, error) {
	b, err := r.Next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func splitStreamID(content []byte) (uint32, []byte, error) {
	if len(content) < 4 {
		return 0, nil, fmt.Errorf("the chunk is too short to contain a stream ID: %d bytes", len(content))
	}
	return binary.LittleEndian.Uint32(content), content[4:], nil
}

func parseClockOffset(content []byte) (uint32, ClockOffset, error) {
	r := newByteReader(content)
	id, err := r.Uint32()
	if err != nil {
		return 0, ClockOffset{}, fmt.Errorf("unable to read the stream ID: %w", err)
	}
	collectionTime, err := r.Float64()
	if err != nil {
		return 0, ClockOffset{}, fmt.Errorf("unable to read the collection time: %w", err)
	}
	value, err := r.Float64()
	if err != nil {
		return 0, ClockOffset{}, fmt.Errorf("unable to read the offset value: %w", err)
	}
	return id, ClockOffset{
		CollectionTime: collectionTime,
		Value:          value,
	}, nil
}
