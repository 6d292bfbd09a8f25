// Package monitor provides diagnostics for the placement frame loop: PNG
// plots of plane-height convergence and debug HTTP views of the live
// placements.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/frameloop"
	"github.com/banshee-data/floorobjects/internal/security"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HeightSample is one frame's view of a placement's height.
type HeightSample struct {
	Seq     uint64
	AnchorY float64 // raw anchor estimate
	RenderY float64 // plane centre height used for drawing
}

type placementSeries struct {
	model   catalog.ModelID
	first   int // order of first appearance
	samples []HeightSample
}

// HeightPlotter records, per placement, the anchor's own height estimate
// against the reconciled render height, and plots both over time. The gap
// between the two lines is what reconciliation hides from the user.
type HeightPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	series    map[string]*placementSeries
}

var _ frameloop.FrameObserver = (*HeightPlotter)(nil)

// NewHeightPlotter creates a disabled plotter. Call Start to begin sampling.
func NewHeightPlotter() *HeightPlotter {
	return &HeightPlotter{series: make(map[string]*placementSeries)}
}

// Start creates outputDir and begins a fresh recording.
func (hp *HeightPlotter) Start(outputDir string) error {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	hp.outputDir = outputDir
	hp.enabled = true
	hp.series = make(map[string]*placementSeries)
	return nil
}

// Stop disables sampling. Call GeneratePlots to write the output files.
func (hp *HeightPlotter) Stop() {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	hp.enabled = false
}

// IsEnabled reports whether the plotter is recording.
func (hp *HeightPlotter) IsEnabled() bool {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	return hp.enabled
}

// ObserveFrame implements frameloop.FrameObserver.
func (hp *HeightPlotter) ObserveFrame(snap *frameloop.FrameSnapshot) {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	if !hp.enabled || snap == nil {
		return
	}
	for _, d := range snap.Draws {
		s, ok := hp.series[d.RecordID]
		if !ok {
			s = &placementSeries{model: d.ModelID, first: len(hp.series)}
			hp.series[d.RecordID] = s
		}
		s.samples = append(s.samples, HeightSample{
			Seq:     snap.Seq,
			AnchorY: d.AnchorPose.TY(),
			RenderY: d.Pose.TY(),
		})
	}
}

// SampleCount returns the total number of samples recorded.
func (hp *HeightPlotter) SampleCount() int {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	n := 0
	for _, s := range hp.series {
		n += len(s.samples)
	}
	return n
}

// Samples returns a copy of the samples recorded for one placement.
func (hp *HeightPlotter) Samples(recordID string) []HeightSample {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	s, ok := hp.series[recordID]
	if !ok {
		return nil
	}
	return slices.Clone(s.samples)
}

// GeneratePlots writes one PNG per placement plus an overview of every
// placement's render height. It returns the number of files written.
func (hp *HeightPlotter) GeneratePlots() (int, error) {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	if hp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(hp.series) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(hp.series))
	for id := range hp.series {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int { return hp.series[a].first - hp.series[b].first })

	overview := plot.New()
	overview.Title.Text = "Render height by placement"
	overview.X.Label.Text = "Frame"
	overview.Y.Label.Text = "Y (m)"
	colors := generateColors(len(ids))

	written := 0
	for i, id := range ids {
		s := hp.series[id]
		if err := hp.generatePlacementPlot(i, id, s); err != nil {
			return written, fmt.Errorf("placement %s: %w", id, err)
		}
		written++

		line, err := plotter.NewLine(renderXYs(s.samples))
		if err != nil {
			return written, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		overview.Add(line)
		overview.Legend.Add(fmt.Sprintf("%02d %s", i+1, s.model), line)
	}

	overview.Legend.Top = true
	overview.Legend.Left = false
	overview.Legend.XOffs = -10
	overview.Legend.YOffs = -10
	if err := overview.Save(14*vg.Inch, 6*vg.Inch, filepath.Join(hp.outputDir, "render_height_overview.png")); err != nil {
		return written, fmt.Errorf("save overview plot: %w", err)
	}
	return written + 1, nil
}

func (hp *HeightPlotter) generatePlacementPlot(idx int, id string, s *placementSeries) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Placement %02d (%s) height", idx+1, s.model)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Y (m)"

	anchorPts := make(plotter.XYs, 0, len(s.samples))
	for _, smp := range s.samples {
		anchorPts = append(anchorPts, plotter.XY{X: float64(smp.Seq), Y: smp.AnchorY})
	}
	anchorLine, err := plotter.NewLine(anchorPts)
	if err != nil {
		return err
	}
	anchorLine.Color = color.RGBA{R: 200, G: 80, B: 60, A: 255}
	anchorLine.Width = vg.Points(1)
	anchorLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	renderLine, err := plotter.NewLine(renderXYs(s.samples))
	if err != nil {
		return err
	}
	renderLine.Color = color.RGBA{R: 40, G: 110, B: 200, A: 255}
	renderLine.Width = vg.Points(1.5)

	p.Add(anchorLine, renderLine)
	p.Legend.Add("anchor", anchorLine)
	p.Legend.Add("render", renderLine)
	p.Legend.Top = true

	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	file := filepath.Join(hp.outputDir, fmt.Sprintf("placement_%02d_%s_%s.png", idx+1, security.SanitizeFilename(string(s.model)), security.SanitizeFilename(short)))
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save height plot: %w", err)
	}
	return nil
}

func renderXYs(samples []HeightSample) plotter.XYs {
	pts := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		pts = append(pts, plotter.XY{X: float64(s.Seq), Y: s.RenderY})
	}
	return pts
}

// generateColors creates a palette of n distinct colours.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// MakePlotOutputDir returns baseDir/<prefix>_<timestamp>.
func MakePlotOutputDir(baseDir, prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "run"
	}
	return filepath.Join(baseDir, prefix+"_"+now.Format("20060102_150405"))
}
