// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/velodash/velodash/internal/cache"
	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/database"
	"github.com/velodash/velodash/internal/dataset"
)

// Fixture covering two days: 2011-01-01 (Saturday) and 2011-01-03 (Monday).
const hourCSV = `instant,dteday,season,yr,mnth,hr,holiday,weekday,workingday,weathersit,temp,atemp,hum,windspeed,casual,registered,cnt
1,2011-01-01,1,0,1,0,0,6,0,1,0.2,0.2,0.5,0.1,2,8,10
2,2011-01-01,1,0,1,1,0,6,0,1,0.4,0.4,0.7,0.3,4,16,20
3,2011-01-03,1,0,1,0,0,1,1,2,0.5,0.5,0.3,0.2,3,27,30
4,2011-01-03,1,0,1,1,0,1,1,2,0.7,0.7,0.5,0.4,5,45,50
`

const dayCSV = `instant,dteday,season,yr,mnth,holiday,weekday,workingday,weathersit,temp,atemp,hum,windspeed,casual,registered,cnt
1,2011-01-01,1,0,1,0,6,0,1,0.3,0.3,0.6,0.2,5,25,30
2,2011-01-03,1,0,1,0,1,1,2,0.6,0.6,0.4,0.3,8,72,80
`

type testEnv struct {
	db      *database.DB
	manager *dataset.Manager
	server  *httptest.Server
	dataDir string
}

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8501, Timeout: 30 * time.Second},
		Data:   config.DataConfig{Dir: dataDir, HourFile: "hour.csv", DayFile: "day.csv"},
		API:    config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
		Cache: config.CacheConfig{TTL: time.Minute},
	}
}

// newTestEnv spins up the full router over a real DuckDB instance.
// When loaded is true the fixture dataset is ingested first.
func newTestEnv(t *testing.T, loaded bool) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	writeFixture(t, dataDir, "hour.csv", hourCSV)
	writeFixture(t, dataDir, "day.csv", dayCSV)

	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "500MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig(dataDir)
	c := cache.New(cfg.Cache.TTL)
	manager := dataset.NewManager(db, c, nil, cfg.Data)

	if loaded {
		if _, err := manager.Reload(context.Background()); err != nil {
			t.Fatalf("failed to load fixture dataset: %v", err)
		}
	}

	handler := NewHandler(db, manager, cfg, nil, c)
	router := NewRouter(handler, NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins, cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow, cfg.Security.RateLimitDisabled))
	router.SetWebDir(t.TempDir())

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	return &testEnv{db: db, manager: manager, server: server, dataDir: dataDir}
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
}

// get performs a GET and decodes the response envelope.
func (e *testEnv) get(t *testing.T, path string) (int, *APIResponse) {
	t.Helper()

	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("GET %s: failed to decode response: %v", path, err)
	}
	return resp.StatusCode, &envelope
}

func (e *testEnv) post(t *testing.T, path string) (int, *APIResponse) {
	t.Helper()

	resp, err := http.Post(e.server.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("POST %s: failed to decode response: %v", path, err)
	}
	return resp.StatusCode, &envelope
}

// dataMap re-marshals the envelope data into a map for field assertions.
func dataMap(t *testing.T, envelope *APIResponse) map[string]interface{} {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("failed to re-marshal data: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("failed to unmarshal data into map: %v", err)
	}
	return m
}

func dataSlice(t *testing.T, envelope *APIResponse) []interface{} {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("failed to re-marshal data: %v", err)
	}
	var s []interface{}
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("failed to unmarshal data into slice: %v", err)
	}
	return s
}

func TestHealthReadyBeforeLoad(t *testing.T) {
	env := newTestEnv(t, false)

	status, envelope := env.get(t, "/api/v1/health/ready")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before dataset load, got %d", status)
	}
	if envelope.Success {
		t.Error("expected success=false before dataset load")
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("expected %s error code, got %+v", ErrCodeServiceUnavailable, envelope.Error)
	}
}

func TestHealthReadyAfterLoad(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/health/ready")
	if status != http.StatusOK {
		t.Fatalf("expected 200 after dataset load, got %d", status)
	}
	if !envelope.Success {
		t.Error("expected success=true after dataset load")
	}
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t, false)

	status, envelope := env.get(t, "/api/v1/health/live")
	if status != http.StatusOK {
		t.Fatalf("expected 200 from liveness probe, got %d", status)
	}
	data := dataMap(t, envelope)
	if data["alive"] != true {
		t.Errorf("expected alive=true, got %v", data["alive"])
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/health")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := dataMap(t, envelope)
	if data["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", data["status"])
	}
	if data["dataset_loaded"] != true {
		t.Errorf("expected dataset_loaded=true, got %v", data["dataset_loaded"])
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/summary")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got error %+v", envelope.Error)
	}

	data := dataMap(t, envelope)
	if got := data["total_rentals"].(float64); got != 110 {
		t.Errorf("expected total_rentals 110, got %v", got)
	}
	if got := data["day_count"].(float64); got != 2 {
		t.Errorf("expected day_count 2, got %v", got)
	}
	if got := data["peak_date"]; got != "2011-01-03" {
		t.Errorf("expected peak_date 2011-01-03, got %v", got)
	}
}

func TestSummaryDateFilter(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/summary?start=2011-01-01&end=2011-01-02")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := dataMap(t, envelope)
	if got := data["total_rentals"].(float64); got != 30.5 {
		t.Errorf("expected total_rentals 30.5 for filtered range, got %v", got)
	}
	if got := data["day_count"].(float64); got != 1 {
		t.Errorf("expected day_count 1 for filtered range, got %v", got)
	}
}

func TestSummaryInvalidDate(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/summary?start=01/01/2011")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", status)
	}
	if envelope.Success {
		t.Error("expected success=false for malformed date")
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("expected %s error code, got %+v", ErrCodeValidationFailed, envelope.Error)
	}
}

func TestSummaryInvertedRange(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/summary?start=2011-01-03&end=2011-01-01")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", status)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected %s error code, got %+v", ErrCodeBadRequest, envelope.Error)
	}
}

func TestTrendsEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	cases := []struct {
		path string
		rows int
	}{
		{"/api/v1/trends/daily", 2},
		{"/api/v1/trends/weekday", 2},
		{"/api/v1/trends/seasonal", 1},
		{"/api/v1/weather/distribution", 2},
	}
	for _, tc := range cases {
		status, envelope := env.get(t, tc.path)
		if status != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tc.path, status)
			continue
		}
		if got := len(dataSlice(t, envelope)); got != tc.rows {
			t.Errorf("%s: expected %d rows, got %d", tc.path, tc.rows, got)
		}
	}
}

func TestTrendsHourly(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/trends/hourly")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	rows := dataSlice(t, envelope)
	if len(rows) != 24 {
		t.Fatalf("expected all 24 hours in the profile, got %d", len(rows))
	}
	first := rows[0].(map[string]interface{})
	if first["working_day"].(float64) != 30 {
		t.Errorf("expected hour 0 working-day average 30, got %v", first["working_day"])
	}
}

func TestWeatherTemperature(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/weather/temperature")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := dataMap(t, envelope)
	points, ok := data["points"].([]interface{})
	if !ok || len(points) != 2 {
		t.Fatalf("expected 2 scatter points, got %v", data["points"])
	}
	if data["trendline"] == nil {
		t.Error("expected a trendline with two points in range")
	}
}

func TestWeatherHumidity(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/weather/humidity")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := dataMap(t, envelope)
	if _, ok := data["bins"].([]interface{}); !ok {
		t.Errorf("expected bins array, got %v", data["bins"])
	}
}

func TestRentalsPagination(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/rentals?limit=1&offset=0")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	rows := dataSlice(t, envelope)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row with limit=1, got %d", len(rows))
	}
	if envelope.Meta == nil || envelope.Meta.Pagination == nil {
		t.Fatal("expected pagination meta")
	}
	p := envelope.Meta.Pagination
	if p.Total != 2 || p.Count != 1 || p.Limit != 1 || !p.HasMore {
		t.Errorf("unexpected pagination meta: %+v", p)
	}

	status, envelope = env.get(t, "/api/v1/rentals?limit=1&offset=1")
	if status != http.StatusOK {
		t.Fatalf("expected 200 for second page, got %d", status)
	}
	if envelope.Meta.Pagination.HasMore {
		t.Error("expected has_more=false on the last page")
	}
}

func TestRentalsLimitTooLarge(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/rentals?limit=500")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit above maximum, got %d", status)
	}
	if envelope.Success {
		t.Error("expected success=false")
	}
}

func TestDataset(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.get(t, "/api/v1/dataset")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := dataMap(t, envelope)
	if got := data["hourly_rows"].(float64); got != 4 {
		t.Errorf("expected 4 hourly rows, got %v", got)
	}
	if got := data["merged_rows"].(float64); got != 2 {
		t.Errorf("expected 2 merged rows, got %v", got)
	}
	if got := data["version"].(float64); got != 1 {
		t.Errorf("expected version 1, got %v", got)
	}
}

func TestDatasetReload(t *testing.T) {
	env := newTestEnv(t, true)

	status, envelope := env.post(t, "/api/v1/dataset/reload")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data := dataMap(t, envelope)
	if got := data["merged_rows"].(float64); got != 2 {
		t.Errorf("expected 2 merged rows after reload, got %v", got)
	}
	if env.db.DataVersion() != 2 {
		t.Errorf("expected dataset version 2 after reload, got %d", env.db.DataVersion())
	}
}

func TestDatasetReloadMissingFile(t *testing.T) {
	env := newTestEnv(t, true)

	if err := os.Remove(filepath.Join(env.dataDir, "day.csv")); err != nil {
		t.Fatalf("failed to remove fixture: %v", err)
	}

	status, envelope := env.post(t, "/api/v1/dataset/reload")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d", status)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeDatasetError {
		t.Errorf("expected %s error code, got %+v", ErrCodeDatasetError, envelope.Error)
	}
	// The previous dataset must survive a failed reload
	if env.db.DataVersion() != 1 {
		t.Errorf("expected dataset version to stay at 1, got %d", env.db.DataVersion())
	}
}

func TestExportRentalsCSV(t *testing.T) {
	env := newTestEnv(t, true)

	resp, err := http.Get(env.server.URL + "/api/v1/export/rentals.csv")
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "rentals.csv") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read export body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "date,day_name,year_month") {
		t.Errorf("unexpected CSV header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2011-01-01,Saturday") {
		t.Errorf("unexpected first data row: %q", lines[1])
	}
}

func TestRequestIDPropagation(t *testing.T) {
	env := newTestEnv(t, true)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/summary", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("X-Request-ID", "test-req-42")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("X-Request-ID"); got != "test-req-42" {
		t.Errorf("expected request ID echoed back, got %q", got)
	}

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Meta == nil || envelope.Meta.RequestID != "test-req-42" {
		t.Errorf("expected request ID in meta, got %+v", envelope.Meta)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, true)

	resp, err := http.Get(env.server.URL + "/api/v1/summary")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff header, got %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY frame options, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	// The fixture load set the dataset gauges, so they must be exposed
	if !strings.Contains(string(body), "dataset_version") {
		t.Error("expected dataset_version gauge in exposition output")
	}
}

func TestSPAFallback(t *testing.T) {
	env := newTestEnv(t, false)

	// Router tests run against an empty web dir; write an index.html into it
	webDir := t.TempDir()
	writeFixture(t, webDir, "index.html", "<html><body>velodash</body></html>")

	handler := NewHandler(env.db, env.manager, testConfig(env.dataDir), nil, nil)
	router := NewRouter(handler, NewChiMiddlewareFromSecurity([]string{"*"}, 0, 0, true))
	router.SetWebDir(webDir)
	server := httptest.NewServer(router.Setup())
	defer server.Close()

	for _, path := range []string{"/", "/dashboard", "/some/deep/route"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), "velodash") {
			t.Errorf("GET %s: expected index.html content", path)
		}
	}
}
