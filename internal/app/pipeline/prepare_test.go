package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucianolorenti/rul-pm/internal/adapters/archive"
	"github.com/lucianolorenti/rul-pm/internal/adapters/lifestore"
	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

type stubFetcher struct {
	calls int
	err   error
}

func (s *stubFetcher) Fetch(ctx context.Context, url, dest string, progress ports.ProgressFunc) (int64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	if err := os.WriteFile(dest, []byte("archive"), 0o644); err != nil {
		return 0, err
	}
	if progress != nil {
		progress("download", 7, 7)
	}
	return 7, nil
}

// stubExtractor unpacks a fixed one-tool dataset the way the real archive nests it.
type stubExtractor struct {
	t     *testing.T
	calls int
}

func (s *stubExtractor) Extract(archive, dest string, progress ports.ProgressFunc) (int, error) {
	s.calls++
	nested := filepath.Join(dest, DatasetFolder)
	seedRaw(s.t, Layout{Root: filepath.Dir(filepath.Dir(dest))})
	// seedRaw writes into raw/train, move it under the nested folder
	if err := os.MkdirAll(nested, 0o755); err != nil {
		return 0, err
	}
	if err := os.Rename(filepath.Join(dest, "train"), filepath.Join(nested, "train")); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Join(nested, "test"), 0o755); err != nil {
		return 0, err
	}
	return 4, nil
}

func TestPrepareRawDownloadsAndExtracts(t *testing.T) {
	layout := NewLayout(t.TempDir())
	fetcher := &stubFetcher{}
	extractor := &stubExtractor{t: t}
	obs := newStubObs()

	if err := PrepareRaw(context.Background(), layout, "http://example.invalid/a.tgz", fetcher, extractor, obs, nil); err != nil {
		t.Fatalf("prepare raw: %v", err)
	}
	if !isDir(layout.TrainDir()) || !isDir(layout.TestDir()) || !isDir(layout.FaultsDir()) {
		t.Fatalf("expected train, test and fault folders under %s", layout.RawDir())
	}
	if _, err := os.Stat(layout.ArchivePath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("archive should be removed after extraction, stat err=%v", err)
	}
	if isDir(layout.nestedDir()) {
		t.Fatalf("nested folder should be removed")
	}
	if got := obs.counter(observability.MetricDownloadBytes); got != 7 {
		t.Fatalf("download bytes=%v", got)
	}
	if got := obs.counter(observability.MetricArchiveMembers); got != 4 {
		t.Fatalf("archive members=%v", got)
	}

	if err := PrepareRaw(context.Background(), layout, "http://example.invalid/a.tgz", fetcher, extractor, obs, nil); err != nil {
		t.Fatalf("second prepare raw: %v", err)
	}
	if fetcher.calls != 1 || extractor.calls != 1 {
		t.Fatalf("second run should be a no-op, fetch=%d extract=%d", fetcher.calls, extractor.calls)
	}
}

func TestPrepareRawReusesExistingArchive(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeFile(t, layout.ArchivePath(), "already here")
	fetcher := &stubFetcher{}

	if err := PrepareRaw(context.Background(), layout, "u", fetcher, &stubExtractor{t: t}, newStubObs(), nil); err != nil {
		t.Fatalf("prepare raw: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("valid archive should not be downloaded again")
	}
}

func TestPrepareRawRefetchesArchiveThatFailsToExtract(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeFile(t, layout.ArchivePath(), "<html>quota exceeded</html>")
	fetcher := &stubFetcher{}

	err := PrepareRaw(context.Background(), layout, "u", fetcher, archive.TarGz{}, newStubObs(), nil)
	if !errors.Is(err, domain.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("non-empty archive should be tried before downloading, fetch=%d", fetcher.calls)
	}
	if archiveValid(layout.ArchivePath()) {
		t.Fatalf("archive that failed to extract must be removed")
	}

	if err := PrepareRaw(context.Background(), layout, "u", fetcher, &stubExtractor{t: t}, newStubObs(), nil); err != nil {
		t.Fatalf("second prepare raw: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("second run should download again, fetch=%d", fetcher.calls)
	}
	if !isDir(layout.TrainDir()) {
		t.Fatalf("train folder missing after refetch")
	}
}

func TestPrepareRawPropagatesAcquisitionError(t *testing.T) {
	layout := NewLayout(t.TempDir())
	fetcher := &stubFetcher{err: domain.ErrAcquisition}
	extractor := &stubExtractor{t: t}

	err := PrepareRaw(context.Background(), layout, "u", fetcher, extractor, newStubObs(), nil)
	if !errors.Is(err, domain.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extraction must not run after a failed download")
	}
	if isDir(layout.TrainDir()) {
		t.Fatalf("train folder must not exist")
	}
}

func TestPreparerEndToEnd(t *testing.T) {
	layout := NewLayout(t.TempDir())
	store, err := lifestore.NewGzipStore(layout.LivesDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	obs := newStubObs()
	fetcher := &stubFetcher{}
	p := &Preparer{
		Layout:    layout,
		URL:       "u",
		Store:     store,
		Fetcher:   fetcher,
		Extractor: &stubExtractor{t: t},
		Obs:       obs,
	}

	if err := p.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	entries, err := store.ReadManifest()
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 lives, got %d", len(entries))
	}
	if got := obs.counter(observability.MetricPreparationRuns); got != 1 {
		t.Fatalf("preparation runs=%v", got)
	}

	if err := p.Prepare(context.Background()); err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if got := obs.counter(observability.MetricPreparationRuns); got != 1 {
		t.Fatalf("existing manifest should skip preparation, runs=%v", got)
	}

	if err := p.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("rebuild should reuse raw data, fetch calls=%d", fetcher.calls)
	}
}

func TestPreparerWithoutAcquisition(t *testing.T) {
	layout := NewLayout(t.TempDir())
	store, err := lifestore.NewGzipStore(layout.LivesDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	p := &Preparer{Layout: layout, Store: store, Obs: newStubObs()}

	if err := p.Prepare(context.Background()); err == nil {
		t.Fatalf("expected error when raw data is missing and nothing can fetch it")
	}
}
