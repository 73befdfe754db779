// Command mbdist renders an audio file through the three-band distortion.
//
// Usage:
//
//	mbdist [-config file.yaml] [-log-level debug] [-delta] in.(wav|mp3|flac) out.wav
//	mbdist -generate sine|sweep|noise [-freq 1000] [-level -6] [-seconds 2] out.wav
//
// Settings are read from the given YAML file, or from mbdist.yaml in the
// working directory when present. MBDIST_* environment variables override
// them, for example MBDIST_BANDS_LOW_DRIVE=40 or MBDIST_CROSSOVER_MID_HIGH=3000.
//
// With -generate the input is a rendered test signal instead of a file.
//
// The spectrum analyzer runs on its own goroutine while the file is
// processed. The strongest peak of its final frame is logged together with
// the output level and the integrated loudness before and after.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-mbdist/dsp/core"
	"github.com/cwbudde/algo-mbdist/dsp/effects/multiband"
	"github.com/cwbudde/algo-mbdist/dsp/signal"
	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
	"github.com/cwbudde/algo-mbdist/measure/loudness"
	"github.com/cwbudde/algo-mbdist/measure/thd"
)

var errUsage = errors.New("usage: mbdist [flags] input output.wav")

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "mbdist: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		l = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}

	return zerolog.New(out).Level(l).With().Timestamp().Logger()
}

func run(args []string, logOut io.Writer) error {
	fs := flag.NewFlagSet("mbdist", flag.ContinueOnError)
	fs.SetOutput(logOut)

	configPath := fs.String("config", "", "YAML settings file")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	delta := fs.Bool("delta", false, "render only what the distortion adds")

	generate := fs.String("generate", "", "render a test signal instead of reading input (sine, sweep, noise)")
	freq := fs.Float64("freq", 1000, "sine frequency, or sweep end frequency, in Hz")
	level := fs.Float64("level", -6, "test signal level in dBFS")
	seconds := fs.Float64("seconds", 2, "test signal duration")
	rate := fs.Int("rate", 48000, "test signal sample rate")
	channels := fs.Int("channels", 2, "test signal channel count")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: mbdist [flags] in.(wav|mp3|flac) out.wav\n")
		fmt.Fprintf(fs.Output(), "       mbdist -generate kind [flags] out.wav\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	wantArgs := 2
	if *generate != "" {
		wantArgs = 1
	}

	if fs.NArg() != wantArgs {
		fs.Usage()
		return errUsage
	}

	settings, err := loadSettings(*configPath)
	if err != nil {
		return err
	}

	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}

	if *delta {
		settings.Delta = true
	}

	logger := newLogger(logOut, settings.LogLevel)

	if *generate != "" {
		tone := toneRequest{
			kind:     signal.Kind(strings.ToLower(*generate)),
			freqHz:   *freq,
			levelDB:  *level,
			seconds:  *seconds,
			rate:     *rate,
			channels: *channels,
		}

		c, err := tone.render()
		if err != nil {
			return err
		}

		logger.Info().
			Str("signal", string(tone.kind)).
			Float64("freq_hz", tone.freqHz).
			Float64("level_db", tone.levelDB).
			Msg("generated input")

		return render(c, fs.Arg(0), settings, logger)
	}

	c, err := decodeFile(fs.Arg(0))
	if err != nil {
		return err
	}

	ev := logger.Info().
		Str("input", fs.Arg(0)).
		Int("sample_rate", c.sampleRate).
		Int("channels", len(c.channels)).
		Int("bit_depth", c.bitDepth).
		Dur("duration", c.duration())
	if c.meta != nil {
		ev = ev.Str("title", c.meta.Title()).Str("artist", c.meta.Artist())
	}

	ev.Msg("decoded input")

	return render(c, fs.Arg(1), settings, logger)
}

// toneRequest describes a generated test input.
type toneRequest struct {
	kind     signal.Kind
	freqHz   float64
	levelDB  float64
	seconds  float64
	rate     int
	channels int
}

func (r toneRequest) render() (*clip, error) {
	if r.rate <= 0 || r.channels <= 0 {
		return nil, fmt.Errorf("test signal needs a positive rate and channel count: %d Hz, %d channels", r.rate, r.channels)
	}

	g := signal.NewGenerator([]core.ProcessorOption{
		core.WithSampleRate(float64(r.rate)),
		core.WithChannels(r.channels),
	})

	channels, err := g.Generate(r.kind, r.freqHz, r.levelDB, r.seconds)
	if err != nil {
		return nil, err
	}

	c := &clip{sampleRate: r.rate, bitDepth: 24, channels: channels}
	if r.kind == signal.KindSine {
		c.toneHz = r.freqHz
	}

	return c, nil
}

// peakReport is the strongest bin of the last analysis frame.
type peakReport struct {
	frames int
	freqHz float64
	level  float64
}

// render processes c in place and writes it to outPath.
func render(c *clip, outPath string, s Settings, logger zerolog.Logger) error {
	d, err := multiband.New(s.config(), multiband.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := s.apply(d); err != nil {
		return err
	}

	if err := d.Prepare(float64(c.sampleRate), s.BlockSize, len(c.channels)); err != nil {
		return err
	}

	// Channels are processed in place, so the input is metered first.
	inLUFS, lufsErr := integratedLoudness(c)
	if lufsErr != nil {
		logger.Warn().Err(lufsErr).Msg("loudness not measured")
	}

	start := time.Now()
	report := process(d, c.channels, s.BlockSize)

	st := d.Stats()
	logger.Debug().
		Uint64("blocks", st.ProcessedBlocks).
		Uint64("dropped_analysis_blocks", st.DroppedBlocks).
		Int("analysis_frames", report.frames).
		Dur("elapsed", time.Since(start)).
		Msg("processing finished")

	if err := writeWAVFile(outPath, s.output(c.sampleRate), c.channels); err != nil {
		return err
	}

	if c.toneHz > 0 {
		res, err := measureDistortion(c)
		if err != nil {
			logger.Warn().Err(err).Msg("harmonic distortion not measured")
		} else {
			logger.Info().
				Float64("fundamental_hz", res.Fundamental).
				Float64("thd_db", res.THDdB()).
				Float64("thdn_db", res.THDNdB()).
				Float64("odd_hd", res.OddHD).
				Float64("even_hd", res.EvenHD).
				Msg("harmonic distortion")
		}
	}

	var outLUFS float64
	if lufsErr == nil {
		if outLUFS, err = integratedLoudness(c); err != nil {
			return err
		}
	}

	peak, rms, dc := levels(c.channels)
	xo := d.CrossoverFrequencies()

	ev := logger.Info().
		Str("output", outPath).
		Float64("low_mid_hz", xo.LowMid).
		Float64("mid_high_hz", xo.MidHigh).
		Bool("delta", d.DeltaMonitor()).
		Float64("spectrum_peak_hz", report.freqHz).
		Float64("spectrum_peak_db", report.level).
		Float64("output_peak_db", core.LinearToDB(peak)).
		Float64("output_rms_db", core.LinearToDB(rms)).
		Float64("output_dc", dc).
		Str("dither", s.Dither)

	if lufsErr == nil {
		ev = ev.Float64("input_lufs", inLUFS).Float64("output_lufs", outLUFS)
	}

	ev.Msg("rendered")

	return nil
}

// process runs channels through d in blocks of blockSize while a second
// goroutine polls the analyzer after every block.
func process(d *multiband.Distortion, channels [][]float64, blockSize int) peakReport {
	ticks := make(chan struct{}, 1)
	done := make(chan peakReport)

	go func() {
		var report peakReport

		poll := func() {
			frame, ok := d.PollAnalysis()
			if !ok || len(frame.Channels) == 0 {
				return
			}

			db := frame.Channels[0].Spectrum
			bin := spectrum.Peak(db)
			report.frames++
			report.freqHz = float64(bin) * frame.SampleRate / float64(frame.FFTSize)
			report.level = db[bin]
		}

		for range ticks {
			poll()
		}

		poll()
		done <- report
	}()

	frames := len(channels[0])
	view := make([][]float64, len(channels))

	for start := 0; start < frames; start += blockSize {
		end := min(start+blockSize, frames)
		for ch := range channels {
			view[ch] = channels[ch][start:end]
		}

		d.Process(view)

		select {
		case ticks <- struct{}{}:
		default:
		}
	}

	close(ticks)

	return <-done
}

// maxMeterSize caps the distortion meter length.
const maxMeterSize = 1 << 15

// measureDistortion meters the first channel of a rendered sine over the
// largest power-of-two tail it holds.
func measureDistortion(c *clip) (thd.Result, error) {
	size := maxMeterSize
	for size > c.frames() {
		size >>= 1
	}

	m, err := thd.NewMeter(size, thd.Config{SampleRate: float64(c.sampleRate), Fundamental: c.toneHz})
	if err != nil {
		return thd.Result{}, err
	}

	return m.Measure(c.channels[0])
}

// integratedLoudness returns the gated loudness of all of c in LUFS.
func integratedLoudness(c *clip) (float64, error) {
	m, err := loudness.NewMeter(
		core.WithSampleRate(float64(c.sampleRate)),
		core.WithChannels(len(c.channels)),
	)
	if err != nil {
		return 0, err
	}

	if err := m.ProcessBlock(c.channels); err != nil {
		return 0, err
	}

	return m.Integrated(), nil
}

// levels returns the sample peak, RMS and mean over all channels.
func levels(channels [][]float64) (peak, rms, dc float64) {
	var sumSq, sum float64

	var n int

	for _, c := range channels {
		if len(c) == 0 {
			continue
		}

		peak = math.Max(peak, math.Max(floats.Max(c), -floats.Min(c)))
		sumSq += floats.Dot(c, c)
		sum += f64.Sum(c)
		n += len(c)
	}

	if n == 0 {
		return 0, 0, 0
	}

	return peak, math.Sqrt(sumSq / float64(n)), sum / float64(n)
}
