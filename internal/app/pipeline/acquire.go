package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// PrepareRaw makes sure raw/train and raw/test exist, downloading and unpacking
// the archive when needed. raw/train is moved into place last, so its presence
// marks a completed extraction and an interrupted run is redone from scratch.
func PrepareRaw(ctx context.Context, layout Layout, url string, fetcher ports.Fetcher, extractor ports.Extractor, obs ports.Observability, progress ports.ProgressFunc) error {
	if isDir(layout.TrainDir()) {
		return nil
	}
	if err := os.MkdirAll(layout.RawDir(), 0o755); err != nil {
		return err
	}

	archive := layout.ArchivePath()
	if !archiveValid(archive) {
		if err := os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		obs.LogInfo("dataset_download_started", ports.Field{Key: "url", Value: url})
		n, err := fetcher.Fetch(ctx, url, archive, progress)
		if err != nil {
			return err
		}
		obs.IncCounter(observability.MetricDownloadBytes, float64(n))
		obs.LogInfo("dataset_download_complete", ports.Field{Key: "bytes", Value: n})
	}

	if err := os.RemoveAll(layout.nestedDir()); err != nil {
		return err
	}
	members, err := extractor.Extract(archive, layout.RawDir(), progress)
	if err != nil {
		// an archive that does not unpack is refetched on the next run
		cleanup := errors.Join(os.RemoveAll(layout.nestedDir()), os.Remove(archive))
		obs.LogError("dataset_extract_failed", err, ports.Field{Key: "archive", Value: archive})
		return errors.Join(fmt.Errorf("%w: extract %s: %w", domain.ErrAcquisition, archive, err), cleanup)
	}
	obs.IncCounter(observability.MetricArchiveMembers, float64(members))

	nestedTest := filepath.Join(layout.nestedDir(), "test")
	if isDir(nestedTest) {
		if err := os.RemoveAll(layout.TestDir()); err != nil {
			return err
		}
		if err := os.Rename(nestedTest, layout.TestDir()); err != nil {
			return fmt.Errorf("move test split: %w", err)
		}
	}
	nestedTrain := filepath.Join(layout.nestedDir(), "train")
	if !isDir(nestedTrain) {
		return fmt.Errorf("archive %s has no %s/train folder", archive, DatasetFolder)
	}
	if err := os.Rename(nestedTrain, layout.TrainDir()); err != nil {
		return fmt.Errorf("move train split: %w", err)
	}

	if err := os.RemoveAll(layout.nestedDir()); err != nil {
		return err
	}
	if err := os.Remove(archive); err != nil {
		return err
	}
	obs.LogInfo("dataset_extracted", ports.Field{Key: "members", Value: members})
	return nil
}
