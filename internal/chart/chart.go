// Package chart feeds the category breakdown to a chart renderer.
package chart

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"math"
	"sync"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"spendlog/internal/core"
)

// Palette is cycled over the series in order.
var Palette = []string{"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF", "#FF9F40"}

var ErrNoData = errors.New("chart has no data")

// Renderer accepts a dataset as parallel labels and values plus the colour
// palette to cycle. Each call replaces the previous dataset wholesale.
type Renderer interface {
	SetData(labels []string, values []float64, palette []string)
}

// Adapter republishes category breakdowns to a Renderer.
type Adapter struct {
	renderer Renderer
	palette  []string
}

func NewAdapter(r Renderer) *Adapter {
	return &Adapter{renderer: r, palette: Palette}
}

// Publish replaces the renderer's dataset with the breakdown.
func (a *Adapter) Publish(breakdown []core.CategoryAmount) {
	labels, values := core.BreakdownSeries(breakdown)
	a.renderer.SetData(labels, values, a.palette)
}

// PieRenderer draws the dataset as a PNG pie chart.
type PieRenderer struct {
	Width  int
	Height int

	mu      sync.RWMutex
	labels  []string
	values  []float64
	palette []string
}

func NewPieRenderer(width, height int) *PieRenderer {
	return &PieRenderer{Width: width, Height: height}
}

func (p *PieRenderer) SetData(labels []string, values []float64, palette []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.labels = append([]string(nil), labels...)
	p.values = append([]float64(nil), values...)
	p.palette = append([]string(nil), palette...)
}

// Data returns a copy of the current dataset.
func (p *PieRenderer) Data() (labels []string, values []float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.labels...), append([]float64(nil), p.values...)
}

// Snapshot is an immutable copy of a renderer's dataset and size. Its
// fingerprint always describes exactly what it renders.
type Snapshot struct {
	labels  []string
	values  []float64
	palette []string
	width   int
	height  int
}

// Snapshot copies the current dataset under a single lock.
func (p *PieRenderer) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		labels:  append([]string(nil), p.labels...),
		values:  append([]float64(nil), p.values...),
		palette: append([]string(nil), p.palette...),
		width:   p.Width,
		height:  p.Height,
	}
}

// Fingerprint identifies the current dataset, for caching rendered output.
func (p *PieRenderer) Fingerprint() string {
	return p.Snapshot().Fingerprint()
}

// Render writes the current chart as PNG. It returns ErrNoData when there
// is nothing positive to draw.
func (p *PieRenderer) Render(w io.Writer) error {
	return p.Snapshot().Render(w)
}

func (s Snapshot) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	for i, l := range s.labels {
		io.WriteString(h, l)
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s.values[i]))
		h.Write(buf[:])
	}
	for _, c := range s.palette {
		io.WriteString(h, c)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (s Snapshot) Render(w io.Writer) error {
	values := make([]gochart.Value, 0, len(s.labels))
	for i, label := range s.labels {
		if s.values[i] <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Label: label,
			Value: s.values[i],
			Style: gochart.Style{
				FillColor:   colorAt(s.palette, i),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	width, height := s.width, s.height
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}

	pie := gochart.PieChart{
		Width:  width,
		Height: height,
		Values: values,
	}
	return pie.Render(gochart.PNG, w)
}

func colorAt(palette []string, i int) drawing.Color {
	if len(palette) == 0 {
		return gochart.GetDefaultColor(i)
	}
	return drawing.ColorFromHex(trimHash(palette[i%len(palette)]))
}

func trimHash(s string) string {
	if len(s) > 0 && s[0] == '#' {
		return s[1:]
	}
	return s
}
