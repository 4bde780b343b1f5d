package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/qrqiuren/lonepseudoranger/internal/httputil"
)

// handleCandidateScatter renders a quick scatter plot (HTML) of a stored
// estimate's candidate cloud using go-echarts. This is a debugging-only
// endpoint (no auth) to visually check cluster tightness without pulling
// the candidate JSON into another tool. Candidates are projected onto the
// X/Y plane and coloured by sphere residual.
// Query params:
//   - estimate_id (required)
func (s *Server) handleCandidateScatter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	estimateID := r.URL.Query().Get("estimate_id")
	if estimateID == "" {
		httputil.BadRequest(w, "missing 'estimate_id' parameter")
		return
	}

	rec, err := s.store.Get(estimateID)
	if err != nil {
		httputil.NotFound(w, fmt.Sprintf("load estimate: %v", err))
		return
	}
	candidates, err := s.store.Candidates(estimateID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("load candidates: %v", err))
		return
	}
	if len(candidates) == 0 {
		httputil.NotFound(w, "no candidates stored for this estimate")
		return
	}

	data := make([]opts.ScatterData, 0, len(candidates))
	maxAbs := 0.0
	maxResidual := 0.0
	for _, c := range candidates {
		x := c.Pos.X - rec.Position.X
		y := c.Pos.Y - rec.Position.Y
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		if c.Residual > maxResidual {
			maxResidual = c.Residual
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, c.Residual}})
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxResidual == 0 {
		maxResidual = 1
	}

	// Force a square plot by using equal width/height and symmetric axis ranges
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Candidate Cloud", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Candidate Cloud (relative to consensus)",
			Subtitle: fmt.Sprintf("emitter=%s estimate=%s candidates=%d confidence=%s", rec.EmitterID, estimateID, len(data), rec.Confidence),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "dX (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "dY (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxResidual),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)

	scatter.AddSeries("candidates", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
