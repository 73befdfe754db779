package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cwbudde/algo-mbdist/dsp/dither"
	"github.com/cwbudde/algo-mbdist/dsp/effects"
	"github.com/cwbudde/algo-mbdist/dsp/effects/multiband"
	"github.com/cwbudde/algo-mbdist/dsp/spectrum"
)

const envPrefix = "MBDIST"

// Settings is the render configuration read from YAML and MBDIST_* variables.
type Settings struct {
	BlockSize int    `mapstructure:"block_size"`
	BitDepth  int    `mapstructure:"bit_depth"`
	LogLevel  string `mapstructure:"log_level"`
	Delta     bool   `mapstructure:"delta"`

	Dither       string `mapstructure:"dither"`
	NoiseShaping bool   `mapstructure:"noise_shaping"`

	Crossover CrossoverSettings `mapstructure:"crossover"`
	Bands     BandsSettings     `mapstructure:"bands"`
	Analysis  AnalysisSettings  `mapstructure:"analysis"`
}

type CrossoverSettings struct {
	LowMid  float64 `mapstructure:"low_mid"`
	MidHigh float64 `mapstructure:"mid_high"`
}

type BandSettings struct {
	InputGainDB  float64 `mapstructure:"input_gain_db"`
	Drive        float64 `mapstructure:"drive"`
	OutputGainDB float64 `mapstructure:"output_gain_db"`
	Bypassed     bool    `mapstructure:"bypassed"`
}

type BandsSettings struct {
	Low  BandSettings `mapstructure:"low"`
	Mid  BandSettings `mapstructure:"mid"`
	High BandSettings `mapstructure:"high"`
}

type AnalysisSettings struct {
	FFTOrder  int     `mapstructure:"fft_order"`
	Smoothing float64 `mapstructure:"smoothing"`
	Width     float64 `mapstructure:"width"`
	Height    float64 `mapstructure:"height"`
}

func setDefaults(v *viper.Viper) {
	cfg := multiband.DefaultConfig()
	xo := cfg.DefaultCrossover()
	neutral := cfg.Bands.Neutral()

	v.SetDefault("block_size", 512)
	v.SetDefault("bit_depth", 24)
	v.SetDefault("log_level", "info")
	v.SetDefault("delta", false)
	v.SetDefault("dither", dither.Triangular.String())
	v.SetDefault("noise_shaping", false)

	v.SetDefault("crossover.low_mid", xo.LowMid)
	v.SetDefault("crossover.mid_high", xo.MidHigh)

	for _, band := range []string{"low", "mid", "high"} {
		v.SetDefault("bands."+band+".input_gain_db", neutral.InputGainDB)
		v.SetDefault("bands."+band+".drive", neutral.Drive)
		v.SetDefault("bands."+band+".output_gain_db", neutral.OutputGainDB)
		v.SetDefault("bands."+band+".bypassed", neutral.Bypassed)
	}

	v.SetDefault("analysis.fft_order", int(cfg.FFTOrder))
	v.SetDefault("analysis.smoothing", cfg.Smoothing)
	v.SetDefault("analysis.width", 800)
	v.SetDefault("analysis.height", 300)
}

// loadSettings reads path when given, otherwise an optional mbdist.yaml in
// the working directory. Environment variables override both.
func loadSettings(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("mbdist")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}

	return s, s.validate()
}

func (s Settings) validate() error {
	if s.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", s.BlockSize)
	}

	if s.BitDepth != 16 && s.BitDepth != 24 {
		return fmt.Errorf("bit_depth must be 16 or 24, got %d", s.BitDepth)
	}

	if _, err := dither.ParseType(s.Dither); err != nil {
		return err
	}

	if !spectrum.Order(s.Analysis.FFTOrder).Valid() {
		return fmt.Errorf("analysis.fft_order must be 11, 12 or 13, got %d", s.Analysis.FFTOrder)
	}

	return nil
}

// output returns the WAV format for audio at sampleRate.
func (s Settings) output(sampleRate int) outputFormat {
	// validate has already checked the name.
	typ, _ := dither.ParseType(s.Dither)

	return outputFormat{
		sampleRate:   sampleRate,
		bitDepth:     s.BitDepth,
		dither:       typ,
		noiseShaping: s.NoiseShaping,
	}
}

// config returns the processor parameter table for s.
func (s Settings) config() multiband.Config {
	cfg := multiband.DefaultConfig()
	cfg.FFTOrder = spectrum.Order(s.Analysis.FFTOrder)
	cfg.Smoothing = s.Analysis.Smoothing

	return cfg
}

func (b BandSettings) params() effects.BandParameters {
	return effects.BandParameters{
		InputGainDB:  b.InputGainDB,
		Drive:        b.Drive,
		OutputGainDB: b.OutputGainDB,
		Bypassed:     b.Bypassed,
	}
}

// apply publishes the band, crossover and analysis settings to d.
func (s Settings) apply(d *multiband.Distortion) error {
	bands := map[multiband.Band]BandSettings{
		multiband.Low:  s.Bands.Low,
		multiband.Mid:  s.Bands.Mid,
		multiband.High: s.Bands.High,
	}

	for band, b := range bands {
		if err := d.SetBandParameters(band, b.params()); err != nil {
			return err
		}
	}

	d.SetCrossoverFrequencies(s.Crossover.LowMid, s.Crossover.MidHigh)
	d.SetDeltaMonitor(s.Delta)
	d.SetAnalysisBounds(spectrum.Rect{Width: s.Analysis.Width, Height: s.Analysis.Height})

	return nil
}
