package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
)

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsMetrics = []string{
	observability.MetricValidLives,
	observability.MetricLivesInvalid,
	observability.MetricLivesWritten,
	observability.MetricLifeLoadSeconds + "_count",
	observability.MetricLifeLoadSeconds + "_sum",
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeMetrics(bufio.NewScanner(resp.Body), statsMetrics)
	if err != nil {
		return err
	}

	var avg float64
	if n := values[observability.MetricLifeLoadSeconds+"_count"]; n > 0 {
		avg = values[observability.MetricLifeLoadSeconds+"_sum"] / n
	}
	fmt.Printf("[%s] valid=%g invalid=%g written=%g loads=%g avg_load=%.4fs\n",
		time.Now().Format(time.RFC3339),
		values[observability.MetricValidLives],
		values[observability.MetricLivesInvalid],
		values[observability.MetricLivesWritten],
		values[observability.MetricLifeLoadSeconds+"_count"],
		avg,
	)
	return nil
}

// scrapeMetrics picks unlabelled samples out of the Prometheus text format.
func scrapeMetrics(scanner *bufio.Scanner, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range names {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
			}
		}
	}
	return out, scanner.Err()
}
