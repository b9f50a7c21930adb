package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/xdfmerge/pkg/config"
	"github.com/xaionaro-go/xdfmerge/pkg/merge"
	"github.com/xaionaro-go/xdfmerge/pkg/selector"
)

func syntaxExit(message string) {
	fmt.Fprintf(os.Stderr, "syntax error: %s\n", message)
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <video_path> <xdf_path> [video_stream_name] [audio_stream_name]\n", os.Args[0])
	pflag.PrintDefaults()
	os.Exit(2)
}

type flags struct {
	ConfigPath  string
	FFmpegPath  string
	Suffix      string
	VideoPrefix string
	AudioType   string
	NoClockSync bool
	NoDejitter  bool
}

func registerFlags(fs *pflag.FlagSet) *flags {
	f := &flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "path to the config file (default: $XDG_CONFIG_HOME/xdfmerge/config.toml)")
	fs.StringVar(&f.FFmpegPath, "ffmpeg", "", "path to the ffmpeg binary")
	fs.StringVar(&f.Suffix, "suffix", "", "suffix inserted before the extension of the output file")
	fs.StringVar(&f.VideoPrefix, "video-prefix", "", "name prefix of the video stream to pick when no name is given")
	fs.StringVar(&f.AudioType, "audio-type", "", "type of the audio stream to pick when no name is given")
	fs.BoolVar(&f.NoClockSync, "no-clock-sync", false, "do not apply the recorded clock offsets to the timestamps")
	fs.BoolVar(&f.NoDejitter, "no-dejitter", false, "do not dejitter the timestamps of regularly sampled streams")
	return f
}

// applyFlags overrides the config values with the flags given on the
// command line. An explicitly empty --suffix is kept so that Validate
// can reject it.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f *flags) {
	if f.FFmpegPath != "" {
		cfg.FFmpeg.Path = f.FFmpegPath
	}
	if fs.Changed("suffix") {
		cfg.Output.Suffix = f.Suffix
	}
	if f.VideoPrefix != "" {
		cfg.Selector.VideoNamePrefix = f.VideoPrefix
	}
	if f.AudioType != "" {
		cfg.Selector.AudioType = f.AudioType
	}
	if f.NoClockSync {
		cfg.XDF.SynchronizeClocks = false
	}
	if f.NoDejitter {
		cfg.XDF.DejitterTimestamps = false
	}
}

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	cliFlags := registerFlags(pflag.CommandLine)
	pflag.Parse()

	if pflag.NArg() < 2 || pflag.NArg() > 4 {
		syntaxExit("expected 2 to 4 arguments")
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	cfg, exists, err := config.Load(cliFlags.ConfigPath)
	if err != nil {
		fatal(ctx, "unable to load the config: %v", err)
	}
	if exists {
		logger.Debugf(ctx, "loaded the config file")
	}

	applyFlags(cfg, pflag.CommandLine, cliFlags)
	if err := cfg.Validate(); err != nil {
		fatal(ctx, "invalid settings: %v", err)
	}

	req := merge.Request{
		VideoPath: pflag.Arg(0),
		XDFPath:   pflag.Arg(1),
		Hints: selector.Hints{
			VideoStreamName: pflag.Arg(2),
			AudioStreamName: pflag.Arg(3),
		},
	}

	res, err := merge.New(cfg).Merge(ctx, req)
	if err != nil {
		fatal(ctx, "unable to merge '%s' with '%s': %v", req.VideoPath, req.XDFPath, err)
	}
	fmt.Println(res.OutputPath)
}

func fatal(ctx context.Context, format string, args ...any) {
	logger.Errorf(ctx, format, args...)
	belt.Flush(ctx)
	os.Exit(1)
}
