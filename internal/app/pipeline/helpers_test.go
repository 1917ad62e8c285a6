package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lucianolorenti/rul-pm/internal/ports"
)

type stubObs struct {
	mu       sync.Mutex
	counters map[string]float64
	infos    []string
	errors   []string
}

func newStubObs() *stubObs { return &stubObs{counters: make(map[string]float64)} }

func (s *stubObs) LogInfo(msg string, fields ...ports.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, msg)
}

func (s *stubObs) LogError(msg string, err error, fields ...ports.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *stubObs) LogCritical(msg string, err error, fields ...ports.Field) {
	s.LogError(msg, err, fields...)
}

func (s *stubObs) IncCounter(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += v
}

func (s *stubObs) ObserveLatency(string, float64) {}
func (s *stubObs) SetGauge(string, float64)       {}

func (s *stubObs) counter(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

// sensorCSV renders rows at times 0..n-1 with a tool label and a usage counter.
func sensorCSV(tool string, n int) string {
	var b strings.Builder
	b.WriteString("time,Tool,ETCHSOURCEUSAGE\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%s,%d\n", i, tool, i*2)
	}
	return b.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// seedRaw lays out a raw/train folder for one tool with three faults.
func seedRaw(t *testing.T, layout Layout) {
	t.Helper()
	writeFile(t, filepath.Join(layout.TrainDir(), "01_M01_DC_train.csv"), sensorCSV("01M01", 100))
	writeFile(t, filepath.Join(layout.FaultsDir(), "01_M01_train_fault_data.csv"),
		"time,fault_name,Tool\n"+
			"9.5,FlowCool Pressure Dropped Below Limit,01M01\n"+
			"24.5,Flowcool leak,01M01\n"+
			"39.5,Flowcool Pressure Too High Check Flowcool Pump,01M01\n")
}
