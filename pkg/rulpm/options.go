package rulpm

// DatasetOption customizes the dependencies used by Dataset.
type DatasetOption func(*datasetOverrides)

type datasetOverrides struct {
	store         LifeStore
	cache         ValidityCache
	fetcher       Fetcher
	extractor     Extractor
	observability Observability
	progress      ProgressFunc
	rebuild       bool
}

// WithLifeStore replaces the gzip CSV store under processed/lives.
func WithLifeStore(s LifeStore) DatasetOption {
	return func(o *datasetOverrides) {
		o.store = s
	}
}

// WithValidityCache persists validity-pass results somewhere other than the life store.
func WithValidityCache(c ValidityCache) DatasetOption {
	return func(o *datasetOverrides) {
		o.cache = c
	}
}

// WithFetcher overrides the HTTP downloader (mirrors, local copies, tests).
func WithFetcher(f Fetcher) DatasetOption {
	return func(o *datasetOverrides) {
		o.fetcher = f
	}
}

// WithExtractor overrides the tar.gz extractor.
func WithExtractor(e Extractor) DatasetOption {
	return func(o *datasetOverrides) {
		o.extractor = e
	}
}

// WithObservability plugs in a custom logging and metrics backend.
func WithObservability(obs Observability) DatasetOption {
	return func(o *datasetOverrides) {
		o.observability = obs
	}
}

// WithProgress receives progress of download, extraction and segmentation.
func WithProgress(fn ProgressFunc) DatasetOption {
	return func(o *datasetOverrides) {
		o.progress = fn
	}
}

// WithRebuild re-segments the lives even when a manifest already exists.
func WithRebuild() DatasetOption {
	return func(o *datasetOverrides) {
		o.rebuild = true
	}
}
