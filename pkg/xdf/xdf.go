// Package xdf reads XDF (Extensible Data Format) recordings, the
// container written by Lab Streaming Layer recorders.
//
// Only what is needed to align streams is materialized: the stream
// headers, the samples with their timestamps and the clock offsets.
// By default timestamps are post-processed the same way the reference
// loader does it: clock offsets are applied and regularly sampled
// streams are dejittered.
package xdf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/datacounter"
)

const magic = "XDF:"

type Options struct {
	// SynchronizeClocks applies the recorded clock offsets to the
	// timestamps of every stream, bringing them to the recorder's clock.
	SynchronizeClocks bool

	// DejitterTimestamps replaces the timestamps of regularly sampled
	// streams with a per-segment linear fit.
	DejitterTimestamps bool
}

func DefaultOptions() Options {
	return Options{
		SynchronizeClocks:  true,
		DejitterTimestamps: true,
	}
}

type FileHeader struct {
	Version string `xml:"version"`
}

type File struct {
	Header  FileHeader
	Streams []*Stream
}

// Load reads and parses the XDF file at the given path.
func Load(
	ctx context.Context,
	path string,
	opts Options,
) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	rc := datacounter.NewReaderCounter(f)
	file, err := Parse(ctx, rc, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	logger.Debugf(ctx, "read %d bytes from '%s', found %d streams", rc.Count(), path, len(file.Streams))
	return file, nil
}

// Parse parses an XDF byte stream.
func Parse(
	ctx context.Context,
	r io.Reader,
	opts Options,
) (*File, error) {
	br := bufio.NewReaderSize(r, 1<<20)

	var m [len(magic)]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return nil, fmt.Errorf("unable to read the magic code: %w", err)
	}
	if string(m[:]) != magic {
		return nil, fmt.Errorf("not an XDF file: magic code is %q instead of %q", m[:], magic)
	}

	p := newParser()
	for chunkIdx := 0; ; chunkIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := readChunk(br)
		switch {
		case err == io.EOF:
			return p.finish(ctx, opts)
		case err == errTruncated:
			logger.Warnf(ctx, "chunk #%d is truncated, ignoring the rest of the file", chunkIdx)
			return p.finish(ctx, opts)
		case err != nil:
			return nil, fmt.Errorf("unable to read chunk #%d: %w", chunkIdx, err)
		}

		if err := p.handleChunk(c); err != nil {
			return nil, fmt.Errorf("unable to handle chunk #%d (tag %s): %w", chunkIdx, c.Tag, err)
		}
	}
}

type parser struct {
	header     FileHeader
	streams    []*Stream
	streamByID map[uint32]*Stream
	lastTS     map[uint32]float64
}

func newParser() *parser {
	return &parser{
		streamByID: map[uint32]*Stream{},
		lastTS:     map[uint32]float64{},
	}
}

func (p *parser) stream(id uint32) (*Stream, error) {
	s, ok := p.streamByID[id]
	if !ok {
		return nil, fmt.Errorf("stream %d is referenced before its header", id)
	}
	return s, nil
}

func (p *parser) handleChunk(c chunk) error {
	switch c.Tag {
	case TagFileHeader:
		return parseFileHeader(c.Content, &p.header)
	case TagStreamHeader:
		id, content, err := splitStreamID(c.Content)
		if err != nil {
			return err
		}
		if _, ok := p.streamByID[id]; ok {
			return fmt.Errorf("duplicate header of stream %d", id)
		}
		info, err := parseStreamInfo(content)
		if err != nil {
			return fmt.Errorf("unable to parse the header of stream %d: %w", id, err)
		}
		s := &Stream{ID: id, Info: *info}
		p.streams = append(p.streams, s)
		p.streamByID[id] = s
		return nil
	case TagSamples:
		id, content, err := splitStreamID(c.Content)
		if err != nil {
			return err
		}
		s, err := p.stream(id)
		if err != nil {
			return err
		}
		last, err := readSamples(content, s, p.lastTS[id])
		if err != nil {
			return fmt.Errorf("unable to read samples of stream %d: %w", id, err)
		}
		p.lastTS[id] = last
		return nil
	case TagClockOffset:
		id, offset, err := parseClockOffset(c.Content)
		if err != nil {
			return err
		}
		s, err := p.stream(id)
		if err != nil {
			return err
		}
		s.ClockOffsets = append(s.ClockOffsets, offset)
		return nil
	case TagStreamFooter:
		id, content, err := splitStreamID(c.Content)
		if err != nil {
			return err
		}
		s, err := p.stream(id)
		if err != nil {
			return err
		}
		footer, err := parseStreamFooter(content)
		if err != nil {
			return fmt.Errorf("unable to parse the footer of stream %d: %w", id, err)
		}
		s.Footer = footer
		return nil
	case TagBoundary:
		return nil
	default:
		// unknown tags are allowed by the format
		return nil
	}
}

func (p *parser) finish(
	ctx context.Context,
	opts Options,
) (*File, error) {
	for _, s := range p.streams {
		if opts.SynchronizeClocks {
			synchronizeClock(s)
		}
		if opts.DejitterTimestamps {
			dejitter(s)
		}
		logger.Debugf(ctx, "stream %d '%s' (type '%s'): %d samples, %d clock offsets", s.ID, s.Info.Name, s.Info.Type, s.NumSamples(), len(s.ClockOffsets))
	}
	return &File{
		Header:  p.header,
		Streams: p.streams,
	}, nil
}
