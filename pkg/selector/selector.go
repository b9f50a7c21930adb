// Package selector picks the video-timestamp stream and the audio
// stream out of the streams of a recording.
package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xaionaro-go/xdfmerge/pkg/xdf"
)

const (
	DefaultVideoNamePrefix = "Cam"
	DefaultAudioType       = "Audio"
)

var ErrStreamNotFound = errors.New("stream not found")

type Role string

const (
	RoleVideo = Role("video")
	RoleAudio = Role("audio")
)

// ErrStreamNotFoundDetails is returned when no stream satisfies the
// selection rule; it matches ErrStreamNotFound with errors.Is.
type ErrStreamNotFoundDetails struct {
	Role Role
	Rule string
}

func (e *ErrStreamNotFoundDetails) Error() string {
	return fmt.Sprintf("no %s stream %s", e.Role, e.Rule)
}

func (e *ErrStreamNotFoundDetails) Is(target error) bool {
	return target == ErrStreamNotFound
}

type Config struct {
	// VideoNamePrefix selects the first stream whose name starts with it.
	VideoNamePrefix string

	// AudioType selects the first stream with exactly this type label.
	AudioType string
}

func DefaultConfig() Config {
	return Config{
		VideoNamePrefix: DefaultVideoNamePrefix,
		AudioType:       DefaultAudioType,
	}
}

// Hints are optional exact stream names; an empty hint means
// "use the Config rule".
type Hints struct {
	VideoStreamName string
	AudioStreamName string
}

type Selection struct {
	Video *xdf.Stream
	Audio *xdf.Stream
}

type Selector struct {
	Config Config
}

func New(cfg Config) *Selector {
	return &Selector{
		Config: cfg,
	}
}

// Select picks one video stream and one audio stream. The result only
// depends on the arguments and the order of streams.
func (s *Selector) Select(
	streams []*xdf.Stream,
	hints Hints,
) (*Selection, error) {
	video, err := s.SelectVideo(streams, hints.VideoStreamName)
	if err != nil {
		return nil, err
	}
	audio, err := s.SelectAudio(streams, hints.AudioStreamName)
	if err != nil {
		return nil, err
	}
	return &Selection{
		Video: video,
		Audio: audio,
	}, nil
}

func (s *Selector) SelectVideo(
	streams []*xdf.Stream,
	name string,
) (*xdf.Stream, error) {
	if name != "" {
		return byName(streams, RoleVideo, name)
	}
	prefix := s.Config.VideoNamePrefix
	for _, stream := range streams {
		if strings.HasPrefix(stream.Info.Name, prefix) {
			return stream, nil
		}
	}
	return nil, &ErrStreamNotFoundDetails{
		Role: RoleVideo,
		Rule: fmt.Sprintf("with name starting with '%s'", prefix),
	}
}

func (s *Selector) SelectAudio(
	streams []*xdf.Stream,
	name string,
) (*xdf.Stream, error) {
	if name != "" {
		return byName(streams, RoleAudio, name)
	}
	for _, stream := range streams {
		if stream.Info.Type == s.Config.AudioType {
			return stream, nil
		}
	}
	return nil, &ErrStreamNotFoundDetails{
		Role: RoleAudio,
		Rule: fmt.Sprintf("with type '%s'", s.Config.AudioType),
	}
}

func byName(
	streams []*xdf.Stream,
	role Role,
	name string,
) (*xdf.Stream, error) {
	for _, stream := range streams {
		if stream.Info.Name == name {
			return stream, nil
		}
	}
	return nil, &ErrStreamNotFoundDetails{
		Role: role,
		Rule: fmt.Sprintf("named '%s'", name),
	}
}
