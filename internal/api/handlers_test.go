package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and3rn3t/network-sub004/internal/cache"
	"github.com/and3rn3t/network-sub004/internal/model"
	"github.com/and3rn3t/network-sub004/internal/store"
)

func newTestServer(t *testing.T) (*Server, *cache.Cache, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	c := cache.New()
	srv := NewServer(":0", c, s)
	return srv, c, s
}

func populateCache(c *cache.Cache) {
	c.UpdateDevices("home", map[string]*model.DeviceRecord{
		"aa:bb:cc:dd:ee:01": {
			MAC:        "aa:bb:cc:dd:ee:01",
			Controller: "home",
			Name:       "office-switch",
			Model:      "USW-24-POE",
			Type:       "usw",
			IP:         "192.168.1.2",
			Firmware:   "7.0.50",
			State:      model.StateOnline,
			UptimeSecs: 86400,
		},
		"aa:bb:cc:dd:ee:02": {
			MAC:        "aa:bb:cc:dd:ee:02",
			Controller: "home",
			Name:       "garage-ap",
			State:      model.StateMissing,
		},
	})
	c.UpdateDevices("office", map[string]*model.DeviceRecord{
		"bb:00:00:00:00:01": {
			MAC:        "bb:00:00:00:00:01",
			Controller: "office",
			Name:       "lobby-ap",
			State:      model.StateOnline,
		},
	})
	c.UpdateClients("home", map[string]*model.ClientRecord{
		"11:22:33:44:55:01": {
			MAC:        "11:22:33:44:55:01",
			Controller: "home",
			Hostname:   "laptop",
			IP:         "192.168.1.100",
			DeviceMAC:  "aa:bb:cc:dd:ee:01",
			IsOnline:   true,
		},
	})
	c.SetLastPoll("unifi:home", time.Now())
}

func TestHandleDevices(t *testing.T) {
	srv, c, _ := newTestServer(t)
	populateCache(c)

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var devices []model.DeviceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 3)
	// Sorted by MAC.
	assert.Equal(t, "aa:bb:cc:dd:ee:01", devices[0].MAC)
	assert.Equal(t, "aa:bb:cc:dd:ee:02", devices[1].MAC)
	assert.Equal(t, "bb:00:00:00:00:01", devices[2].MAC)
}

func TestHandleDevices_ControllerFilter(t *testing.T) {
	srv, c, _ := newTestServer(t)
	populateCache(c)

	req := httptest.NewRequest(http.MethodGet, "/api/devices?controller=office", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var devices []model.DeviceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "office", devices[0].Controller)
}

func TestHandleDevices_Empty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandleClients(t *testing.T) {
	srv, c, _ := newTestServer(t)
	populateCache(c)

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var clients []model.ClientRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clients))
	require.Len(t, clients, 1)
	assert.Equal(t, "laptop", clients[0].Hostname)
}

func TestHandleEvents(t *testing.T) {
	srv, _, s := newTestServer(t)

	for i := range 3 {
		ev := model.Event{
			Timestamp:   time.Unix(int64(1756400000+i), 0),
			EntityType:  model.EntityDevice,
			EntityMAC:   "aa:01",
			Type:        model.EventDeviceOffline,
			Description: "device went offline",
		}
		require.NoError(t, s.InsertEvent(&ev))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=2", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var events []model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, int64(1756400002), events[0].Timestamp.Unix())
}

func TestHandleEvents_BadLimitFallsBackToDefault(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=-5", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleMetricSeries(t *testing.T) {
	srv, _, s := newTestServer(t)

	now := time.Now()
	require.NoError(t, s.InsertMetrics([]model.Metric{
		{Timestamp: now.Add(-time.Hour), EntityMAC: "aa:01", Name: model.MetricCPUUsage, Value: 10.0, Unit: "percent"},
		{Timestamp: now, EntityMAC: "aa:01", Name: model.MetricCPUUsage, Value: 20.0, Unit: "percent"},
		{Timestamp: now.Add(-30 * 24 * time.Hour), EntityMAC: "aa:01", Name: model.MetricCPUUsage, Value: 5.0, Unit: "percent"},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/aa:01/cpu_usage?hours=24", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var points []model.MetricPoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &points))
	require.Len(t, points, 2, "points outside the window are excluded")
	assert.Equal(t, 10.0, points[0].Value)
	assert.Equal(t, 20.0, points[1].Value)
}

func TestHandleRuns(t *testing.T) {
	srv, _, s := newTestServer(t)

	require.NoError(t, s.InsertRun(model.CollectionRun{
		ID: "run-1", Controller: "home",
		StartTime: time.Unix(1756400000, 0), EndTime: time.Unix(1756400005, 0),
		Status: model.RunSuccess,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var runs []model.CollectionRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestHandleHealthz_NoData(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no_data", body["status"])
}

func TestHandleHealthz_OK(t *testing.T) {
	srv, c, _ := newTestServer(t)
	populateCache(c)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	collectors, ok := body["collectors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, collectors, "unifi:home")
}

func TestServerRun_ShutsDownOnCancel(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
