package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// decodeChunk is the number of frames read from a decoder at a time.
const decodeChunk = 4096

var (
	errUnsupportedFormat = errors.New("unsupported input format")
	errInvalidWAV        = errors.New("invalid WAV file")
	errUnsupportedDepth  = errors.New("unsupported bit depth")
)

// clip is decoded audio, one slice per channel scaled to [-1, 1).
type clip struct {
	sampleRate int
	bitDepth   int
	channels   [][]float64
	meta       tag.Metadata
	// toneHz is the frequency of a generated sine input, zero otherwise.
	toneHz float64
}

func (c *clip) frames() int {
	if len(c.channels) == 0 {
		return 0
	}

	return len(c.channels[0])
}

func (c *clip) duration() time.Duration {
	if c.sampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(c.frames()) / float64(c.sampleRate) * float64(time.Second))
}

// decodeFile decodes a WAV, MP3 or FLAC file chosen by extension.
func decodeFile(path string) (*clip, error) {
	var decode func(io.ReadSeeker) (*clip, error)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		decode = decodeWAV
	case ".mp3":
		decode = decodeMP3
	case ".flac":
		decode = decodeFLAC
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	c, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	if c.frames() == 0 {
		return nil, fmt.Errorf("decode %s: no audio frames", filepath.Base(path))
	}

	return c, nil
}

// readTags returns embedded metadata, leaving r rewound. Untagged files
// yield nil.
func readTags(r io.ReadSeeker) tag.Metadata {
	m, err := tag.ReadFrom(r)
	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil || err != nil {
		return nil
	}

	return m
}

func fullScale(bitDepth int) float64 {
	return float64(int64(1) << uint(bitDepth-1))
}

func decodeWAV(r io.ReadSeeker) (*clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errInvalidWAV
	}

	format := dec.Format()
	numChannels := format.NumChannels
	bitDepth := int(dec.BitDepth)

	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", errUnsupportedDepth, bitDepth)
	}

	c := &clip{
		sampleRate: format.SampleRate,
		bitDepth:   bitDepth,
		channels:   make([][]float64, numChannels),
	}

	scale := 1 / fullScale(bitDepth)
	buf := &audio.IntBuffer{
		Data:   make([]int, decodeChunk*numChannels),
		Format: format,
	}

	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read PCM: %w", err)
		}

		if n == 0 {
			break
		}

		for i := 0; i+numChannels <= n; i += numChannels {
			for ch := range numChannels {
				c.channels[ch] = append(c.channels[ch], float64(buf.Data[i+ch])*scale)
			}
		}
	}

	return c, nil
}

// decodeMP3 decodes to stereo; go-mp3 always yields 16-bit little-endian
// interleaved pairs.
func decodeMP3(r io.ReadSeeker) (*clip, error) {
	meta := readTags(r)

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("create MP3 decoder: %w", err)
	}

	const bytesPerFrame = 4

	frames := int(dec.Length() / bytesPerFrame)
	c := &clip{
		sampleRate: dec.SampleRate(),
		bitDepth:   16,
		channels:   [][]float64{make([]float64, 0, frames), make([]float64, 0, frames)},
		meta:       meta,
	}

	scale := 1 / fullScale(16)
	raw := make([]byte, decodeChunk*bytesPerFrame)

	for {
		n, err := io.ReadFull(dec, raw)
		for i := 0; i+bytesPerFrame <= n; i += bytesPerFrame {
			left := int16(binary.LittleEndian.Uint16(raw[i:]))
			right := int16(binary.LittleEndian.Uint16(raw[i+2:]))
			c.channels[0] = append(c.channels[0], float64(left)*scale)
			c.channels[1] = append(c.channels[1], float64(right)*scale)
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read MP3: %w", err)
		}
	}

	return c, nil
}

func decodeFLAC(r io.ReadSeeker) (*clip, error) {
	meta := readTags(r)

	stream, err := flac.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse FLAC stream: %w", err)
	}

	info := stream.Info
	numChannels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	c := &clip{
		sampleRate: int(info.SampleRate),
		bitDepth:   bitDepth,
		channels:   make([][]float64, numChannels),
		meta:       meta,
	}

	for ch := range c.channels {
		c.channels[ch] = make([]float64, 0, info.NSamples)
	}

	scale := 1 / fullScale(bitDepth)

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("parse FLAC frame: %w", err)
		}

		for ch, sub := range frame.Subframes {
			if ch >= numChannels {
				break
			}

			for _, s := range sub.Samples {
				c.channels[ch] = append(c.channels[ch], float64(s)*scale)
			}
		}
	}

	return c, nil
}
