package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/simd/f64"

	"github.com/cwbudde/algo-mbdist/dsp/dither"
)

// encodeChunk is the number of frames converted per encoder write.
const encodeChunk = 4096

// outputFormat describes the PCM written by writeWAV.
type outputFormat struct {
	sampleRate   int
	bitDepth     int
	dither       dither.Type
	noiseShaping bool
}

// writeWAVFile writes channels as a PCM WAV file at path.
func writeWAVFile(path string, format outputFormat, channels [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := writeWAV(f, format, channels); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// writeWAV encodes channels as interleaved PCM through one quantizer per
// channel. Samples outside [-1, 1) are clipped to the integer range.
func writeWAV(w io.WriteSeeker, format outputFormat, channels [][]float64) error {
	numChannels := len(channels)
	if numChannels == 0 {
		return fmt.Errorf("write WAV: no channels")
	}

	quantizers := make([]*dither.Quantizer, numChannels)
	for ch := range quantizers {
		q, err := dither.NewQuantizer(
			dither.WithBitDepth(format.bitDepth),
			dither.WithType(format.dither),
			dither.WithNoiseShaping(format.noiseShaping),
		)
		if err != nil {
			return fmt.Errorf("write WAV: %w", err)
		}

		quantizers[ch] = q
	}

	enc := wav.NewEncoder(w, format.sampleRate, format.bitDepth, numChannels, 1)
	pcm := &audio.Format{NumChannels: numChannels, SampleRate: format.sampleRate}

	interleaved := make([]float64, encodeChunk*numChannels)
	ints := make([]int, encodeChunk*numChannels)

	frames := len(channels[0])
	for start := 0; start < frames; start += encodeChunk {
		end := min(start+encodeChunk, frames)
		n := (end - start) * numChannels

		interleave(interleaved[:n], channels, start, end)

		for i, v := range interleaved[:n] {
			ints[i] = quantizers[i%numChannels].ProcessInteger(v)
		}

		buf := &audio.IntBuffer{Data: ints[:n], Format: pcm, SourceBitDepth: format.bitDepth}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write WAV: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize WAV: %w", err)
	}

	return nil
}

func interleave(dst []float64, channels [][]float64, start, end int) {
	if len(channels) == 2 {
		f64.Interleave2(dst, channels[0][start:end], channels[1][start:end])
		return
	}

	numChannels := len(channels)
	for i := start; i < end; i++ {
		for ch, c := range channels {
			dst[(i-start)*numChannels+ch] = c[i]
		}
	}
}
