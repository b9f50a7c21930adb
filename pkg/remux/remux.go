// Package remux combines a video file and an audio file into one
// container by means of an external tool.
package remux

import (
	"context"
	"fmt"
	"strings"
)

type Request struct {
	VideoPath string
	AudioPath string

	// TrimStart is the offset from the beginning of the video, in seconds.
	TrimStart float64

	// Duration is the length of the output, in seconds.
	Duration float64

	OutputPath string
}

// Remuxer produces Request.OutputPath or fails. On failure the output
// file must not be considered valid.
type Remuxer interface {
	Remux(ctx context.Context, req Request) (string, error)
}

// ErrRemux is returned when the external tool fails; Output contains
// its diagnostic output.
type ErrRemux struct {
	Err    error
	Output string
}

func (e *ErrRemux) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("remux failed: %v", e.Err)
	}
	return fmt.Sprintf("remux failed: %v: %s", e.Err, output)
}

func (e *ErrRemux) Unwrap() error {
	return e.Err
}
