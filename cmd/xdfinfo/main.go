package main

import (
	"context"
	"fmt"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/xdfmerge/pkg/xdf"
)

func main() {
	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	raw := pflag.Bool("raw", false, "show the timestamps as recorded, without clock synchronization and dejittering")
	pflag.Parse()
	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <xdf_path>\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(2)
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	opts := xdf.DefaultOptions()
	if *raw {
		opts = xdf.Options{}
	}

	file, err := xdf.Load(ctx, pflag.Arg(0), opts)
	if err != nil {
		logger.Errorf(ctx, "unable to load '%s': %v", pflag.Arg(0), err)
		belt.Flush(ctx)
		os.Exit(1)
	}

	fmt.Println(renderStreams(file.Streams))
}

func renderStreams(streams []*xdf.Stream) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Name", "Type", "Channels", "Format", "Rate", "Samples", "First", "Last"})
	for _, s := range streams {
		first, last := "-", "-"
		if lo, hi, ok := s.TimeRange(); ok {
			first, last = fmt.Sprintf("%.3f", lo), fmt.Sprintf("%.3f", hi)
		}
		tw.AppendRow(table.Row{
			s.ID, s.Info.Name, s.Info.Type, s.Info.ChannelCount, s.Info.ChannelFormat,
			fmt.Sprintf("%g", s.Info.NominalSRate), s.NumSamples(), first, last,
		})
	}

	columnConfigs := make([]table.ColumnConfig, 0, 9)
	for _, number := range []int{1, 4, 6, 7, 8, 9} {
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      number,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)
	return tw.Render()
}
