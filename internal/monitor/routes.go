package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"slices"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/frameloop"
	"github.com/banshee-data/floorobjects/internal/httputil"
	"github.com/banshee-data/floorobjects/internal/monitoring"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"
)

var logf = monitoring.Tagged("monitor")

// SnapshotSource supplies the latest frame. *frameloop.Processor satisfies it.
type SnapshotSource interface {
	Snapshot() *frameloop.FrameSnapshot
}

// DebugRoutes serves read-only views of the live placements.
type DebugRoutes struct {
	source SnapshotSource
}

// NewDebugRoutes creates debug handlers over source.
func NewDebugRoutes(source SnapshotSource) *DebugRoutes {
	return &DebugRoutes{source: source}
}

// AttachAdminRoutes registers the handlers under /debug/ on mux.
func (d *DebugRoutes) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("placements", "Latest frame and placement draw list (JSON)", d.handlePlacements)
	debug.HandleFunc("placements-map", "Top-down map of placed models", d.handlePlacementsMap)
}

type placementView struct {
	RecordID string          `json:"record_id"`
	AnchorID string          `json:"anchor_id"`
	ModelID  catalog.ModelID `json:"model_id"`
	Scale    float64         `json:"scale"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Z        float64         `json:"z"`
	AnchorY  float64         `json:"anchor_y"`
}

type snapshotView struct {
	Seq           uint64          `json:"seq"`
	CameraState   string          `json:"camera_state"`
	SelectedModel catalog.ModelID `json:"selected_model"`
	LiveScale     float64         `json:"live_scale"`
	Placements    int             `json:"placements"`
	Drawn         []placementView `json:"drawn"`
	Stats         frameloop.Stats `json:"stats"`
}

func (d *DebugRoutes) handlePlacements(w http.ResponseWriter, r *http.Request) {
	snap := d.source.Snapshot()
	if snap == nil {
		httputil.ServiceUnavailable(w, "no frame yet")
		return
	}
	view := snapshotView{
		Seq:           snap.Seq,
		CameraState:   snap.CameraState.String(),
		SelectedModel: snap.SelectedModel,
		LiveScale:     snap.LiveScale,
		Placements:    snap.Placements,
		Drawn:         make([]placementView, 0, len(snap.Draws)),
		Stats:         snap.Stats,
	}
	for _, dr := range snap.Draws {
		view.Drawn = append(view.Drawn, placementView{
			RecordID: dr.RecordID,
			AnchorID: dr.AnchorID,
			ModelID:  dr.ModelID,
			Scale:    dr.Scale,
			X:        dr.Pose.TX(),
			Y:        dr.Pose.TY(),
			Z:        dr.Pose.TZ(),
			AnchorY:  dr.AnchorPose.TY(),
		})
	}

	httputil.WriteJSONOK(w, view)
}

// handlePlacementsMap renders the drawn placements as an X/Z scatter, one
// series per model, symbol size following the scale factor.
func (d *DebugRoutes) handlePlacementsMap(w http.ResponseWriter, r *http.Request) {
	snap := d.source.Snapshot()
	if snap == nil {
		httputil.ServiceUnavailable(w, "no frame yet")
		return
	}

	byModel := make(map[catalog.ModelID][]opts.ScatterData)
	var models []catalog.ModelID
	pad := 1.0
	for _, dr := range snap.Draws {
		x, z := dr.Pose.TX(), dr.Pose.TZ()
		pad = math.Max(pad, math.Max(math.Abs(x), math.Abs(z))+0.5)
		if _, ok := byModel[dr.ModelID]; !ok {
			models = append(models, dr.ModelID)
		}
		byModel[dr.ModelID] = append(byModel[dr.ModelID], opts.ScatterData{
			Name:  dr.RecordID,
			Value: []interface{}{x, z, dr.Scale},
		})
	}
	slices.Sort(models)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Placements", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Placements (top-down)", Subtitle: fmt.Sprintf("frame=%d drawn=%d live=%d camera=%s", snap.Seq, len(snap.Draws), snap.Placements, snap.CameraState)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
	)
	for _, m := range models {
		scatter.AddSeries(string(m), byModel[m], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		logf("failed to render placements map: %v", err)
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
