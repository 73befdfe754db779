package spectrum

import (
	"iter"
	"math"
	"strconv"

	"github.com/cwbudde/algo-mbdist/dsp/core"
)

// Display defaults for the analyzer view.
const (
	DefaultMinFreq = 20.0
	DefaultMaxFreq = 20000.0
	DefaultMinDB   = DefaultFloorDB
	DefaultMaxDB   = 24.0

	// driveScale and driveOffset place a band's drive marker on the dB axis.
	driveScale  = 1.05
	driveOffset = -72.0
)

// Point is a position in display coordinates. Y grows downwards.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned display rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Left returns the left edge.
func (r Rect) Left() float64 { return r.X }

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Top returns the top edge.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Empty reports whether r has no drawable area.
func (r Rect) Empty() bool {
	return !(r.Width > 0) || !(r.Height > 0) || !core.IsFinite(r.X) || !core.IsFinite(r.Y) ||
		math.IsInf(r.Width, 0) || math.IsInf(r.Height, 0)
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// Line is a straight segment between two points.
type Line struct {
	From, To Point
}

// PathGenerator maps a dB spectrum onto a rectangle with a logarithmic
// frequency axis and a linear level axis. Zero fields take the defaults.
type PathGenerator struct {
	MinFreq, MaxFreq float64
	MinDB, MaxDB     float64
	// Resolution is the bin stride; 1 visits every bin.
	Resolution int
}

// DefaultPathGenerator returns a generator covering 20 Hz..20 kHz and
// -72..+24 dB.
func DefaultPathGenerator() PathGenerator {
	return PathGenerator{
		MinFreq:    DefaultMinFreq,
		MaxFreq:    DefaultMaxFreq,
		MinDB:      DefaultMinDB,
		MaxDB:      DefaultMaxDB,
		Resolution: 1,
	}
}

func (g PathGenerator) normalized() PathGenerator {
	def := DefaultPathGenerator()

	if !(g.MinFreq > 0) || !(g.MaxFreq > g.MinFreq) || math.IsInf(g.MaxFreq, 0) {
		g.MinFreq, g.MaxFreq = def.MinFreq, def.MaxFreq
	}

	if !(g.MaxDB > g.MinDB) || !core.IsFinite(g.MinDB) || !core.IsFinite(g.MaxDB) {
		g.MinDB, g.MaxDB = def.MinDB, def.MaxDB
	}

	if g.Resolution < 1 {
		g.Resolution = 1
	}

	return g
}

// FreqToX maps freq onto the horizontal axis of bounds.
func (g PathGenerator) FreqToX(freq float64, bounds Rect) float64 {
	g = g.normalized()
	return core.MapLog(freq, g.MinFreq, g.MaxFreq, bounds.Left(), bounds.Right())
}

// XToFreq is the inverse of [PathGenerator.FreqToX].
func (g PathGenerator) XToFreq(x float64, bounds Rect) float64 {
	g = g.normalized()
	return core.UnmapLog(x, bounds.Left(), bounds.Right(), g.MinFreq, g.MaxFreq)
}

// DBToY maps a level onto the vertical axis of bounds, MaxDB at the top.
// Levels outside [MinDB, MaxDB] are clamped to the edges.
func (g PathGenerator) DBToY(db float64, bounds Rect) float64 {
	g = g.normalized()
	if math.IsNaN(db) {
		db = g.MinDB
	}

	db = core.Clamp(db, g.MinDB, g.MaxDB)

	return core.MapLinear(db, g.MinDB, g.MaxDB, bounds.Bottom(), bounds.Top())
}

// Generate yields one point per visited bin of db whose frequency lies in
// [MinFreq, MaxFreq]. db holds NumBins values of an FFT of size
// 2*(len(db)-1). X is strictly increasing and every point lies inside bounds.
// Nothing is produced for empty bounds, fewer than two bins or an invalid
// sample rate.
func (g PathGenerator) Generate(db []float64, sampleRate float64, bounds Rect) iter.Seq[Point] {
	g = g.normalized()

	return func(yield func(Point) bool) {
		if bounds.Empty() || len(db) < 2 || !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
			return
		}

		binWidth := sampleRate / float64(2*(len(db)-1))
		lastX := math.Inf(-1)

		for bin := 1; bin < len(db); bin += g.Resolution {
			freq := float64(bin) * binWidth
			if freq < g.MinFreq {
				continue
			}

			if freq > g.MaxFreq {
				return
			}

			x := core.Clamp(g.FreqToX(freq, bounds), bounds.Left(), bounds.Right())
			if !(x > lastX) {
				continue
			}

			lastX = x

			if !yield(Point{X: x, Y: g.DBToY(db[bin], bounds)}) {
				return
			}
		}
	}
}

// AppendPath appends the points of [PathGenerator.Generate] to dst.
func (g PathGenerator) AppendPath(dst []Point, db []float64, sampleRate float64, bounds Rect) []Point {
	for p := range g.Generate(db, sampleRate, bounds) {
		dst = append(dst, p)
	}

	return dst
}

// Overlay holds the crossover markers drawn over the spectrum.
type Overlay struct {
	// Crossovers are the vertical low/mid and mid/high lines.
	Crossovers [2]Line
	// Drives are horizontal segments spanning each band, placed by drive amount.
	Drives [3]Line
}

// CrossoverOverlay builds the crossover and drive markers for bounds.
// drives are indexed low, mid, high.
func (g PathGenerator) CrossoverOverlay(lowMid, midHigh float64, drives [3]float64, bounds Rect) Overlay {
	g = g.normalized()

	clampX := func(f float64) float64 {
		return core.Clamp(g.FreqToX(f, bounds), bounds.Left(), bounds.Right())
	}

	lowMidX := clampX(lowMid)
	midHighX := math.Max(clampX(midHigh), lowMidX)

	var ov Overlay

	ov.Crossovers[0] = verticalLine(lowMidX, bounds)
	ov.Crossovers[1] = verticalLine(midHighX, bounds)

	edges := [4]float64{bounds.Left(), lowMidX, midHighX, bounds.Right()}
	for i, drive := range drives {
		y := g.DBToY(DriveLevel(drive), bounds)
		ov.Drives[i] = Line{From: Point{X: edges[i], Y: y}, To: Point{X: edges[i+1], Y: y}}
	}

	return ov
}

// DriveLevel returns the dB level at which a drive marker is drawn.
func DriveLevel(drive float64) float64 {
	return drive/driveScale + driveOffset
}

func verticalLine(x float64, bounds Rect) Line {
	return Line{From: Point{X: x, Y: bounds.Top()}, To: Point{X: x, Y: bounds.Bottom()}}
}

// GridFrequencies returns the frequencies of the vertical grid lines.
func GridFrequencies() []float64 {
	return []float64{20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 20000}
}

// GridGains returns levels from minDB to maxDB inclusive in step increments.
// It returns nil for a non-positive step or an empty range.
func GridGains(minDB, maxDB, step float64) []float64 {
	if !(step > 0) || !(maxDB >= minDB) || math.IsInf(maxDB-minDB, 0) {
		return nil
	}

	n := int(math.Floor((maxDB-minDB)/step+1e-9)) + 1
	out := make([]float64, n)

	for i := range out {
		out[i] = minDB + float64(i)*step
	}

	return out
}

// FrequencyLabel formats a grid frequency, switching to kHz above 999 Hz.
func FrequencyLabel(freq float64) string {
	if freq > 999 {
		return strconv.FormatFloat(freq/1000, 'f', -1, 64) + "kHz"
	}

	return strconv.FormatFloat(freq, 'f', -1, 64) + "Hz"
}

// GainLabel formats a grid level with an explicit sign for positive values.
func GainLabel(db float64) string {
	s := strconv.FormatFloat(db, 'f', -1, 64)
	if db > 0 {
		return "+" + s
	}

	return s
}
