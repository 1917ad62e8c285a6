package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lucianolorenti/rul-pm/internal/ports"
)

const (
	MetricLivesWritten    = "rulpm_lives_written_total"
	MetricLivesInvalid    = "rulpm_lives_invalid_total"
	MetricDownloadBytes   = "rulpm_download_bytes_total"
	MetricArchiveMembers  = "rulpm_archive_members_total"
	MetricPreparationRuns = "rulpm_preparation_runs_total"
	MetricLifeLoadSeconds = "rulpm_life_load_seconds"
	MetricValidLives      = "rulpm_valid_lives"
)

type PromObs struct {
	logger   *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the dataset metrics on reg (the default registerer when
// nil) and logs through logger (a no-op logger when nil).
func NewPromObs(logger *zap.Logger, reg prometheus.Registerer) *PromObs {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	written := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricLivesWritten,
		Help: "Lives serialized during segmentation.",
	})
	invalid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricLivesInvalid,
		Help: "Candidate lives left empty by the post-filter during the validity pass.",
	})
	download := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricDownloadBytes,
		Help: "Bytes of dataset archive downloaded.",
	})
	members := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricArchiveMembers,
		Help: "Archive members extracted.",
	})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricPreparationRuns,
		Help: "Preparation runs that rebuilt the manifest.",
	})
	load := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricLifeLoadSeconds,
		Help:    "Time to read, decompress and filter one life.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	valid := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricValidLives,
		Help: "Lives surviving the filters and the validity pass.",
	})

	reg.MustRegister(written, invalid, download, members, runs, load, valid)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			MetricLivesWritten:    written,
			MetricLivesInvalid:    invalid,
			MetricDownloadBytes:   download,
			MetricArchiveMembers:  members,
			MetricPreparationRuns: runs,
		},
		gauges: map[string]prometheus.Gauge{
			MetricValidLives: valid,
		},
		histos: map[string]prometheus.Observer{
			MetricLifeLoadSeconds: load,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(zapFields(fields), zap.Error(err), zap.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
