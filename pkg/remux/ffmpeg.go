package remux

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
)

const (
	DefaultFFmpegPath = "ffmpeg"
	DefaultVideoCodec = "copy"
	DefaultAudioCodec = "aac"
)

const maxStderrLineSize = 4 * 1024 * 1024

type commandRunner func(ctx context.Context, stderr io.Writer, name string, args ...string) error

// FFmpeg remuxes with the ffmpeg binary: the video is seeked and cut
// to the trim window, the audio is taken as is.
type FFmpeg struct {
	BinaryPath string
	VideoCodec string
	AudioCodec string
	ExtraArgs  []string

	run commandRunner
}

var _ Remuxer = (*FFmpeg)(nil)

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		BinaryPath: DefaultFFmpegPath,
		VideoCodec: DefaultVideoCodec,
		AudioCodec: DefaultAudioCodec,
		run:        defaultCommandRunner,
	}
}

// WithCommandRunner replaces the function that executes ffmpeg.
func (f *FFmpeg) WithCommandRunner(r commandRunner) *FFmpeg {
	if r != nil {
		f.run = r
	}
	return f
}

func (f *FFmpeg) Remux(
	ctx context.Context,
	req Request,
) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	tmpPath := partialPath(req.OutputPath)
	args := f.Args(req, tmpPath)
	logger.Debugf(ctx, "running %s %s", f.BinaryPath, strings.Join(args, " "))

	output, err := f.runForwardingStderr(ctx, args)
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", &ErrRemux{Err: err, Output: output}
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return "", &ErrRemux{Err: fmt.Errorf("ffmpeg did not produce the output file: %w", err), Output: output}
	}
	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("unable to move '%s' to '%s': %w", tmpPath, req.OutputPath, err)
	}
	return req.OutputPath, nil
}

// Args returns the ffmpeg arguments that write the result to outputPath.
func (f *FFmpeg) Args(req Request, outputPath string) []string {
	args := []string{
		"-y", "-hide_banner", "-nostdin",
		"-ss", formatSeconds(req.TrimStart),
		"-t", formatSeconds(req.Duration),
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", f.VideoCodec,
		"-c:a", f.AudioCodec,
		"-shortest",
	}
	args = append(args, f.ExtraArgs...)
	return append(args, outputPath)
}

func (f *FFmpeg) runForwardingStderr(
	ctx context.Context,
	args []string,
) (string, error) {
	pr, pw := io.Pipe()
	var output bytes.Buffer
	done := make(chan struct{})
	observability.Go(ctx, func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLineSize)
		scanner.Split(scanStderrLines)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			output.WriteString(line)
			output.WriteByte('\n')
			logger.Debugf(ctx, "ffmpeg: %s", line)
		}
		_, _ = io.Copy(&output, pr)
	})

	err := f.run(ctx, pw, f.BinaryPath, args...)
	pw.Close()
	<-done
	return output.String(), err
}

// scanStderrLines splits at '\n' and at '\r', ffmpeg redraws its
// progress line with the latter only.
func scanStderrLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (req Request) validate() error {
	if req.OutputPath == "" {
		return fmt.Errorf("the output path is not set")
	}
	if req.Duration <= 0 {
		return fmt.Errorf("the duration must be positive: %v", req.Duration)
	}
	if req.TrimStart < 0 {
		return fmt.Errorf("the trim start must not be negative: %v", req.TrimStart)
	}
	for _, path := range []string{req.VideoPath, req.AudioPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file '%s' is not accessible: %w", path, err)
		}
	}
	return nil
}

// partialPath keeps the extension, ffmpeg picks the muxer by it.
func partialPath(outputPath string) string {
	dir, base := filepath.Split(outputPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".partial"+ext)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func defaultCommandRunner(ctx context.Context, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = stderr
	return cmd.Run()
}
