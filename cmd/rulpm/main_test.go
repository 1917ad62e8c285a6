package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	rulpm "github.com/lucianolorenti/rul-pm"
	"github.com/lucianolorenti/rul-pm/internal/adapters/lifestore"
	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/app/pipeline"
	"github.com/lucianolorenti/rul-pm/internal/domain"
)

func activeLife(n int) *domain.Frame {
	f := &domain.Frame{Time: make([]float64, n)}
	status := make([]float64, n)
	counter := make([]float64, n)
	for i := range f.Time {
		f.Time[i] = float64(i)
		status[i] = 1
		counter[i] = float64(i)
	}
	f.SetNum("FIXTURESHUTTERPOSITION", status)
	f.SetNum("ETCHAUXSOURCETIMER", counter)
	f.SetNum("ETCHSOURCEUSAGE", counter)
	return f
}

func testDataset(t *testing.T) *rulpm.Dataset {
	t.Helper()
	root := t.TempDir()
	store, err := lifestore.NewGzipStore(pipeline.NewLayout(root).LivesDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	lives := []domain.Life{
		{Index: 0, Tool: "01_M01", Failure: domain.FlowcoolLeak, Frame: activeLife(6)},
		{Index: 1, Tool: "01_M01", Failure: domain.FlowcoolLeak, Frame: activeLife(11)},
	}
	var entries []domain.ManifestEntry
	for _, l := range lives {
		if err := store.Put(l.Filename(), l.Frame); err != nil {
			t.Fatalf("put: %v", err)
		}
		entries = append(entries, l.ManifestEntry())
	}
	if err := store.WriteManifest(entries); err != nil {
		t.Fatalf("manifest: %v", err)
	}

	cfg := &rulpm.Config{}
	cfg.Dataset.Root = root
	obs := observability.NewPromObs(zap.NewNop(), prometheus.NewRegistry())
	ds, err := rulpm.NewDataset(context.Background(), cfg, rulpm.WithObservability(obs))
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return ds
}

func TestAPILives(t *testing.T) {
	srv := httptest.NewServer(newAPI(testDataset(t), zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/lives")
	if err != nil {
		t.Fatalf("get lives: %v", err)
	}
	defer resp.Body.Close()

	var lives []rulpm.ManifestEntry
	if err := json.NewDecoder(resp.Body).Decode(&lives); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lives) != 2 || lives[1].Samples != 11 {
		t.Fatalf("unexpected lives %+v", lives)
	}
}

func TestAPILifeCSV(t *testing.T) {
	srv := httptest.NewServer(newAPI(testDataset(t), zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/lives/0")
	if err != nil {
		t.Fatalf("get life: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,") || !strings.HasSuffix(lines[6], ",0") {
		t.Fatalf("unexpected CSV:\n%s", buf.String())
	}

	for path, want := range map[string]int{
		"/lives/9":   http.StatusNotFound,
		"/lives/abc": http.StatusBadRequest,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: status %d want %d", path, resp.StatusCode, want)
		}
	}
}

func TestAPIDurations(t *testing.T) {
	srv := httptest.NewServer(newAPI(testDataset(t), zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/durations?bins=2")
	if err != nil {
		t.Fatalf("get durations: %v", err)
	}
	defer resp.Body.Close()

	var rep durationReport
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 6 and 11 rows counted down in steps of 4
	if rep.Summary.Count != 2 || rep.Summary.Min != 20 || rep.Summary.Max != 40 {
		t.Fatalf("unexpected summary %+v", rep.Summary)
	}
	if len(rep.Histogram) != 2 {
		t.Fatalf("expected 2 bins, got %d", len(rep.Histogram))
	}

	bad, err := http.Get(srv.URL + "/durations?bins=0")
	if err != nil {
		t.Fatalf("get durations: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.StatusCode)
	}
}

func TestBuildDurationReportEmpty(t *testing.T) {
	rep, err := buildDurationReport(nil, 15, true)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := json.Marshal(rep); err != nil {
		t.Fatalf("empty report must encode: %v", err)
	}
	if rep.Weibull != nil {
		t.Fatalf("no fit expected without durations")
	}
}

func TestWriteLivesTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeLives(&buf, []rulpm.ManifestEntry{
		{Tool: "01_M01", Samples: 6, FailureType: "Flowcool leak", Filename: "Life_0_01_M01_FlowcoolLeak.pkl.gzip"},
	}, false)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "Life_0_01_M01_FlowcoolLeak.pkl.gzip") || !strings.HasPrefix(buf.String(), "INDEX") {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
}

func TestScrapeMetrics(t *testing.T) {
	body := `# HELP rulpm_valid_lives Lives surviving the filters and the validity pass.
# TYPE rulpm_valid_lives gauge
rulpm_valid_lives 12
rulpm_lives_invalid_total 3
rulpm_life_load_seconds_sum 0.5
rulpm_life_load_seconds_count 4
`
	got, err := scrapeMetrics(bufio.NewScanner(strings.NewReader(body)), statsMetrics)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if got[observability.MetricValidLives] != 12 || got[observability.MetricLivesInvalid] != 3 {
		t.Fatalf("unexpected values %v", got)
	}
	if got[observability.MetricLifeLoadSeconds+"_count"] != 4 {
		t.Fatalf("unexpected histogram count %v", got)
	}
}
