package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stopline.report/internal/detect"
	"github.com/banshee-data/stopline.report/internal/route"
	"github.com/banshee-data/stopline.report/internal/store"
)

func newTestServer(t *testing.T) (*Server, *detect.Detector, *store.Store, string) {
	t.Helper()

	st, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessionID, err := st.NewSession("site.json")
	require.NoError(t, err)

	d := detect.NewDetector(detect.DetectorConfig{
		StopLines: []route.Point{{X: 48.2, Y: 0.1}},
	})
	return NewServer(d, st, sessionID), d, st, sessionID
}

func TestShowStatus(t *testing.T) {
	srv, d, _, sessionID := newTestServer(t)

	points := make([]route.Point, 100)
	for i := range points {
		points[i] = route.Point{X: float64(i), Y: 0}
	}
	d.UpdateWaypoints(points)
	d.UpdatePose(detect.NewPose(5, 0, 0, 0, 0, 0, 1))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Equal(t, 100, resp.Detector.WaypointCount)
	assert.Equal(t, 5, resp.Detector.VehicleWaypoint)
	assert.True(t, resp.Detector.HavePose)
	assert.Nil(t, resp.LastDecision)
}

func TestShowStatus_IncludesLastDecision(t *testing.T) {
	srv, d, _, _ := newTestServer(t)

	d.UpdateWaypoints([]route.Point{{X: 0, Y: 0}, {X: 1, Y: 0}})
	d.UpdatePose(detect.NewPose(0, 0, 0, 0, 0, 0, 1))
	d.OnFrame(detect.Frame{UnixNanos: 99})

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.LastDecision)
	assert.Equal(t, int64(1), resp.LastDecision.Seq)
	assert.Equal(t, int64(99), resp.LastDecision.UnixNanos)
}

func TestShowStatus_MethodNotAllowed(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListDecisions(t *testing.T) {
	srv, _, st, sessionID := newTestServer(t)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, st.RecordDecision(sessionID, detect.Decision{
			Seq: i, StopWaypoint: -1, State: detect.LightRed, UnixNanos: i * 100,
		}))
	}

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decisions?session_id="+sessionID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var decisions []store.StoredDecision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decisions))
	require.Len(t, decisions, 3)
	assert.Equal(t, int64(3), decisions[0].Seq)
}

func TestListDecisions_Limit(t *testing.T) {
	srv, _, st, sessionID := newTestServer(t)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, st.RecordDecision(sessionID, detect.Decision{
			Seq: i, StopWaypoint: -1, State: detect.LightGreen, UnixNanos: i * 100,
		}))
	}

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decisions?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var decisions []store.StoredDecision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decisions))
	assert.Len(t, decisions, 2)
}

func TestListDecisions_BadLimit(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	for _, limit := range []string{"0", "-1", "abc"} {
		rec := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decisions?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestShowDecisionSummary(t *testing.T) {
	srv, _, st, sessionID := newTestServer(t)

	require.NoError(t, st.RecordDecision(sessionID, detect.Decision{Seq: 1, StopWaypoint: -1, State: detect.LightGreen, UnixNanos: 100}))
	require.NoError(t, st.RecordDecision(sessionID, detect.Decision{Seq: 2, StopWaypoint: 48, State: detect.LightRed, UnixNanos: 200}))

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decisions/summary?session_id="+sessionID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary store.DecisionSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, 1, summary.StopCount)
	assert.Equal(t, map[string]int{"green": 1, "red": 1}, summary.ByState)
}

func TestShowDecisionChart(t *testing.T) {
	srv, _, st, sessionID := newTestServer(t)

	for i := int64(1); i <= 4; i++ {
		wp := -1
		if i == 4 {
			wp = 48
		}
		require.NoError(t, st.RecordDecision(sessionID, detect.Decision{
			Seq: i, StopWaypoint: wp, State: detect.LightRed, UnixNanos: i * 1e9,
		}))
	}

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decisions/chart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "stop_waypoint")
}

func TestShowDecisionChart_NoDecisions(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decisions/chart", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoggingMiddleware_PreservesStatus(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(302), "302")
	assert.Contains(t, statusCodeColor(500), "500")
	assert.Equal(t, "102", statusCodeColor(102))
}
