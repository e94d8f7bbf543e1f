package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// showDecisionChart renders the published stop-waypoint timeline as an
// HTML line chart. This is a debugging-only endpoint: it shows at a
// glance when the debouncer committed or released a stop.
// Query params:
//   - session_id (optional; defaults to the current session)
//   - limit (optional; default 500) newest decisions to plot
func (s *Server) showDecisionChart(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = s.sessionID
	}

	limit := 500
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
			limit = v
		}
	}

	decisions, err := s.store.ListDecisions(sessionID, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load decisions")
		return
	}
	if len(decisions) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no decisions for session")
		return
	}

	// ListDecisions returns newest first; plot oldest to newest.
	labels := make([]string, 0, len(decisions))
	values := make([]opts.LineData, 0, len(decisions))
	for i := len(decisions) - 1; i >= 0; i-- {
		d := decisions[i]
		labels = append(labels, time.Unix(0, d.UnixNanos).Format("15:04:05.000"))
		values = append(values, opts.LineData{Value: d.StopWaypoint, Name: d.State})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Stop Waypoint Timeline", Theme: "dark", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Published stop waypoint",
			Subtitle: fmt.Sprintf("session=%s decisions=%d (-1 = no stop)", sessionID, len(decisions)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "waypoint index"}),
	)

	line.SetXAxis(labels)
	line.AddSeries("stop_waypoint", values, charts.WithLineChartOpts(opts.LineChart{Step: "end"}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
