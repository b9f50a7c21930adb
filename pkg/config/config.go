// Package config defines the settings of xdfmerge and loads them from
// a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"github.com/xaionaro-go/xdfmerge/pkg/assembler"
	"github.com/xaionaro-go/xdfmerge/pkg/remux"
	"github.com/xaionaro-go/xdfmerge/pkg/selector"
	"github.com/xaionaro-go/xdfmerge/pkg/xdf"
)

// DefaultPath is where the config file is looked up when no path is
// given: $XDG_CONFIG_HOME/xdfmerge/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "xdfmerge", "config.toml")
}

type Selector struct {
	VideoNamePrefix string `toml:"video_name_prefix"`
	AudioType       string `toml:"audio_type"`
}

type XDF struct {
	SynchronizeClocks  bool `toml:"synchronize_clocks"`
	DejitterTimestamps bool `toml:"dejitter_timestamps"`
}

type Output struct {
	Suffix  string `toml:"suffix"`
	TempDir string `toml:"temp_dir"`
}

type FFmpeg struct {
	Path       string   `toml:"path"`
	VideoCodec string   `toml:"video_codec"`
	AudioCodec string   `toml:"audio_codec"`
	ExtraArgs  []string `toml:"extra_args"`
}

type Config struct {
	Selector Selector `toml:"selector"`
	XDF      XDF      `toml:"xdf"`
	Output   Output   `toml:"output"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
}

func Default() Config {
	xdfOpts := xdf.DefaultOptions()
	return Config{
		Selector: Selector{
			VideoNamePrefix: selector.DefaultVideoNamePrefix,
			AudioType:       selector.DefaultAudioType,
		},
		XDF: XDF{
			SynchronizeClocks:  xdfOpts.SynchronizeClocks,
			DejitterTimestamps: xdfOpts.DejitterTimestamps,
		},
		Output: Output{
			Suffix: assembler.DefaultOutputSuffix,
		},
		FFmpeg: FFmpeg{
			Path:       remux.DefaultFFmpegPath,
			VideoCodec: remux.DefaultVideoCodec,
			AudioCodec: remux.DefaultAudioCodec,
		},
	}
}

// Load reads the config file at path on top of the defaults. An empty
// path means the default location. A missing file is not an error; it
// is reported by the returned bool.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	resolvedPath, err := expandPath(path)
	if err != nil {
		return nil, false, err
	}

	file, err := os.Open(resolvedPath)
	switch {
	case err == nil:
		defer file.Close()
		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, false, fmt.Errorf("unable to parse '%s': %w", resolvedPath, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return &cfg, false, cfg.Validate()
	default:
		return nil, false, fmt.Errorf("unable to open '%s': %w", resolvedPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, true, fmt.Errorf("invalid config '%s': %w", resolvedPath, err)
	}
	return &cfg, true, nil
}

func (cfg *Config) Validate() error {
	var mErr *multierror.Error
	if cfg.Selector.VideoNamePrefix == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("selector.video_name_prefix must not be empty"))
	}
	if cfg.Selector.AudioType == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("selector.audio_type must not be empty"))
	}
	if cfg.Output.Suffix == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("output.suffix must not be empty, otherwise the input video would be overwritten"))
	}
	if strings.ContainsRune(cfg.Output.Suffix, os.PathSeparator) {
		mErr = multierror.Append(mErr, fmt.Errorf("output.suffix must not contain a path separator: '%s'", cfg.Output.Suffix))
	}
	if cfg.FFmpeg.Path == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("ffmpeg.path must not be empty"))
	}
	if cfg.FFmpeg.VideoCodec == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("ffmpeg.video_codec must not be empty"))
	}
	if cfg.FFmpeg.AudioCodec == "" {
		mErr = multierror.Append(mErr, fmt.Errorf("ffmpeg.audio_codec must not be empty"))
	}
	return mErr.ErrorOrNil()
}

func (cfg *Config) SelectorConfig() selector.Config {
	return selector.Config{
		VideoNamePrefix: cfg.Selector.VideoNamePrefix,
		AudioType:       cfg.Selector.AudioType,
	}
}

func (cfg *Config) XDFOptions() xdf.Options {
	return xdf.Options{
		SynchronizeClocks:  cfg.XDF.SynchronizeClocks,
		DejitterTimestamps: cfg.XDF.DejitterTimestamps,
	}
}

func (cfg *Config) NewRemuxer() *remux.FFmpeg {
	r := remux.NewFFmpeg()
	r.BinaryPath = cfg.FFmpeg.Path
	r.VideoCodec = cfg.FFmpeg.VideoCodec
	r.AudioCodec = cfg.FFmpeg.AudioCodec
	r.ExtraArgs = append([]string(nil), cfg.FFmpeg.ExtraArgs...)
	return r
}

func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve the home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
