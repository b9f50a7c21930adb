package merge

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/xdfmerge/pkg/audio"
	"github.com/xaionaro-go/xdfmerge/pkg/audio/resampler"
	"github.com/xaionaro-go/xdfmerge/pkg/config"
	"github.com/xaionaro-go/xdfmerge/pkg/remux"
	"github.com/xaionaro-go/xdfmerge/pkg/selector"
	"github.com/xaionaro-go/xdfmerge/pkg/syncer"
	"github.com/xaionaro-go/xdfmerge/pkg/xdf"
	"github.com/xaionaro-go/xdfmerge/pkg/xdf/xdftest"
)

type fakeRemuxer struct {
	requests []remux.Request
	err      error
}

func (f *fakeRemuxer) Remux(ctx context.Context, req remux.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return req.OutputPath, nil
}

type fixture struct {
	dir       string
	videoPath string
	xdfPath   string
	remuxer   *fakeRemuxer
	merger    *Merger
}

func newFixture(t *testing.T, b *xdftest.Builder) *fixture {
	dir := t.TempDir()
	f := &fixture{
		dir:       dir,
		videoPath: filepath.Join(dir, "session.mp4"),
		xdfPath:   filepath.Join(dir, "session.xdf"),
		remuxer:   &fakeRemuxer{},
	}
	require.NoError(t, os.WriteFile(f.videoPath, []byte("not really a video"), 0640))
	require.NoError(t, b.WriteFile(f.xdfPath))

	cfg := config.Default()
	cfg.Output.TempDir = dir
	cfg.XDF.DejitterTimestamps = false
	f.merger = NewWithRemuxer(&cfg, f.remuxer)
	return f
}

func (f *fixture) merge(hints selector.Hints) (*Result, error) {
	return f.merger.Merge(context.Background(), Request{
		VideoPath: f.videoPath,
		XDFPath:   f.xdfPath,
		Hints:     hints,
	})
}

func videoStream(id uint32, name string, timestamps ...float64) (xdftest.StreamHeader, []xdftest.Sample) {
	samples := make([]xdftest.Sample, len(timestamps))
	for i, ts := range timestamps {
		samples[i] = xdftest.Sample{Timestamp: xdftest.TS(ts), Values: []float64{float64(i)}}
	}
	return xdftest.StreamHeader{ID: id, Name: name, Type: "VideoRaw", ChannelCount: 1, NominalSRate: 30, ChannelFormat: "int32"}, samples
}

func TestMergeOverlapping(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0.0, 5.0)
	audioHeader := xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 10, ChannelFormat: "float32"}
	b := xdftest.NewBuilder().
		FileHeader("1.0").
		StreamHeader(vh).
		StreamHeader(audioHeader).
		Samples(1, vs...).
		Samples(2, xdftest.RegularSamples(51, 1.0, 0.1, func(i int) []float64 {
			return []float64{float64(i) / 50}
		})...)
	f := newFixture(t, b)

	res, err := f.merge(selector.Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Cam1", res.Video.Info.Name)
	assert.Equal(t, "Mic", res.Audio.Info.Name)
	assert.InDelta(t, 1.0, res.Window.Start, 1e-6)
	assert.InDelta(t, 5.0, res.Window.End, 1e-6)
	assert.Equal(t, 40, res.NumSamples)
	assert.EqualValues(t, 10, res.SampleRate)
	assert.InDelta(t, 1.0, res.Trim.Start, 1e-6)
	assert.InDelta(t, 4.0, res.Trim.Duration, 1e-6)
	assert.Equal(t, filepath.Join(f.dir, "session_synced.mp4"), res.OutputPath)

	require.Len(t, f.remuxer.requests, 1)
	req := f.remuxer.requests[0]
	assert.Equal(t, f.videoPath, req.VideoPath)
	assert.InDelta(t, 1.0, req.TrimStart, 1e-6)
}

func TestMergeResampledValues(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0.0, 5.0)
	series := xdftest.RegularSamples(51, 1.0, 0.1, func(i int) []float64 {
		return []float64{float64(i)}
	})
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 10, ChannelFormat: "double64"}).
		Samples(1, vs...).
		Samples(2, series...)
	f := newFixture(t, b)

	file, err := xdf.Load(context.Background(), f.xdfPath, f.merger.XDFOptions)
	require.NoError(t, err)
	sel, err := f.merger.Selector.Select(file.Streams, selector.Hints{})
	require.NoError(t, err)
	w, err := syncer.ResolveOverlap(sel.Video.TimeStamps, sel.Audio.TimeStamps)
	require.NoError(t, err)
	s, format, rate, err := audioSeries(sel.Audio)
	require.NoError(t, err)
	assert.Equal(t, audio.PCMFormatFloat64LE, format)

	buf, err := f.merger.Resampler.Resample(s, w, rate)
	require.NoError(t, err)
	require.Equal(t, 40, buf.NumSamples())
	assert.InDelta(t, 0.0, buf.Channels[0][0], 1e-6)
	assert.InDelta(t, 39.0, buf.Channels[0][39], 1e-6)
}

func TestMergeNoOverlap(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 100.0, 110.0)
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 1, ChannelFormat: "int16"}).
		Samples(1, vs...).
		Samples(2,
			xdftest.Sample{Timestamp: xdftest.TS(0.0), Values: []float64{0}},
			xdftest.Sample{Timestamp: xdftest.TS(50.0), Values: []float64{0}},
		)
	f := newFixture(t, b)

	_, err := f.merge(selector.Hints{})
	require.ErrorIs(t, err, syncer.ErrNoOverlap)
	assert.Empty(t, f.remuxer.requests)
	assertNoOutput(t, f)
}

func TestMergeEmptyWindow(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0.0, 0.03)
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 1, ChannelFormat: "int16"}).
		Samples(1, vs...).
		Samples(2,
			xdftest.Sample{Timestamp: xdftest.TS(0.0), Values: []float64{0}},
			xdftest.Sample{Timestamp: xdftest.TS(0.03), Values: []float64{0}},
		)
	f := newFixture(t, b)

	_, err := f.merge(selector.Hints{})
	require.ErrorIs(t, err, resampler.ErrEmptyWindow)
	assert.Empty(t, f.remuxer.requests)
}

func TestMergeNonFiniteAudioTimestamp(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0, 3)
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 1, ChannelFormat: "int16"}).
		Samples(1, vs...).
		Samples(2,
			xdftest.Sample{Timestamp: xdftest.TS(0), Values: []float64{0}},
			xdftest.Sample{Timestamp: xdftest.TS(1), Values: []float64{1}},
			xdftest.Sample{Timestamp: xdftest.TS(2), Values: []float64{2}},
			xdftest.Sample{Timestamp: xdftest.TS(math.NaN()), Values: []float64{3}},
		)
	f := newFixture(t, b)

	_, err := f.merge(selector.Hints{})
	require.ErrorIs(t, err, syncer.ErrNonFiniteTimestamp)
	assert.Empty(t, f.remuxer.requests)
}

func TestMergeStreamNotFound(t *testing.T) {
	vh, vs := videoStream(1, "Webcam", 0, 1)
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 1, ChannelFormat: "int16"}).
		Samples(1, vs...)
	f := newFixture(t, b)

	_, err := f.merge(selector.Hints{})
	require.ErrorIs(t, err, selector.ErrStreamNotFound)

	_, err = f.merge(selector.Hints{VideoStreamName: "Webcam", AudioStreamName: "Speaker"})
	require.ErrorIs(t, err, selector.ErrStreamNotFound)

	_, err = f.merge(selector.Hints{VideoStreamName: "Webcam"})
	require.ErrorIs(t, err, syncer.ErrEmptySeries, "the audio stream has no samples")
	assert.Empty(t, f.remuxer.requests)
}

func TestMergeHintsAndStereo(t *testing.T) {
	vh1, vs1 := videoStream(1, "Cam1", 0, 2)
	vh2, vs2 := videoStream(2, "Side", 10, 20)
	b := xdftest.NewBuilder().
		StreamHeader(vh1).
		StreamHeader(vh2).
		StreamHeader(xdftest.StreamHeader{ID: 3, Name: "Mic", Type: "Audio", ChannelCount: 2, NominalSRate: 100, ChannelFormat: "int16"}).
		Samples(1, vs1...).
		Samples(2, vs2...).
		Samples(3, xdftest.RegularSamples(1000, 11, 0.01, func(i int) []float64 {
			return []float64{float64(i), -float64(i)}
		})...)
	f := newFixture(t, b)

	res, err := f.merge(selector.Hints{VideoStreamName: "Side"})
	require.NoError(t, err)
	assert.Equal(t, "Side", res.Video.Info.Name)
	assert.InDelta(t, 11.0, res.Window.Start, 1e-6)
	assert.InDelta(t, 20.0, res.Window.End, 1e-6)
	assert.Equal(t, 900, res.NumSamples)
	assert.InDelta(t, 1.0, res.Trim.Start, 1e-6)
}

func TestMergeRemuxFailure(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0, 1)
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Mic", Type: "Audio", ChannelCount: 1, NominalSRate: 8, ChannelFormat: "int16"}).
		Samples(1, vs...).
		Samples(2, xdftest.RegularSamples(8, 0, 0.125, func(i int) []float64 { return []float64{0} })...)
	f := newFixture(t, b)
	f.remuxer.err = &remux.ErrRemux{Err: errors.New("exit status 1"), Output: "Conversion failed!"}

	_, err := f.merge(selector.Hints{})
	var remuxErr *remux.ErrRemux
	require.True(t, errors.As(err, &remuxErr))
	assert.Contains(t, err.Error(), "Conversion failed!")
	require.Len(t, f.remuxer.requests, 1, "a failed remux is not retried")
}

func TestMergeMissingInputs(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0, 1)
	f := newFixture(t, xdftest.NewBuilder().StreamHeader(vh).Samples(1, vs...))

	_, err := f.merger.Merge(context.Background(), Request{
		VideoPath: filepath.Join(f.dir, "missing.mp4"),
		XDFPath:   f.xdfPath,
	})
	require.Error(t, err)

	_, err = f.merger.Merge(context.Background(), Request{
		VideoPath: f.videoPath,
		XDFPath:   filepath.Join(f.dir, "missing.xdf"),
	})
	require.Error(t, err)
}

func TestMergeStringAudioStream(t *testing.T) {
	vh, vs := videoStream(1, "Cam1", 0, 1)
	b := xdftest.NewBuilder().
		StreamHeader(vh).
		StreamHeader(xdftest.StreamHeader{ID: 2, Name: "Markers", Type: "Audio", ChannelCount: 1, NominalSRate: 0, ChannelFormat: "string"}).
		Samples(1, vs...).
		Samples(2, xdftest.Sample{Timestamp: xdftest.TS(0.5), Strings: []string{"x"}})
	f := newFixture(t, b)

	_, err := f.merge(selector.Hints{})
	require.ErrorContains(t, err, "not numeric")
}

func assertNoOutput(t *testing.T, f *fixture) {
	_, err := os.Stat(filepath.Join(f.dir, "session_synced.mp4"))
	assert.True(t, os.IsNotExist(err))
}
