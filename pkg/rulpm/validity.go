package rulpm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// validate keeps the candidates whose post-filtered frame is non-empty. Blobs
// are read with up to ValidityWorkers goroutines; results keep manifest order.
func (d *Dataset) validate(ctx context.Context, candidates []ManifestEntry) ([]ManifestEntry, error) {
	known, key := d.cachedValidity()

	ok := make([]bool, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Dataset.ValidityWorkers)
	for i, entry := range candidates {
		if v, hit := known[entry.Filename]; hit {
			ok[i] = v
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := d.load(entry)
			if err != nil {
				return fmt.Errorf("validate %s: %w", entry.Filename, err)
			}
			ok[i] = f.Len() > 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := make([]ManifestEntry, 0, len(candidates))
	outcome := make(map[string]bool, len(candidates)+len(known))
	for name, v := range known {
		outcome[name] = v
	}
	for i, entry := range candidates {
		outcome[entry.Filename] = ok[i]
		if ok[i] {
			valid = append(valid, entry)
		}
	}

	if invalid := len(candidates) - len(valid); invalid > 0 {
		d.obs.IncCounter(observability.MetricLivesInvalid, float64(invalid))
	}
	if d.cache != nil && key != "" {
		if err := d.cache.SaveValidity(key, outcome); err != nil {
			d.obs.LogError("validity_cache_save_failed", err, ports.Field{Key: "key", Value: key})
		}
	}
	return valid, nil
}

// cachedValidity returns earlier outcomes for the current manifest and filter
// settings. Any cache failure only costs a full pass.
func (d *Dataset) cachedValidity() (map[string]bool, string) {
	if d.cache == nil {
		return nil, ""
	}
	digest, err := d.store.ManifestDigest()
	if err != nil {
		d.obs.LogError("validity_cache_digest_failed", err)
		return nil, ""
	}
	key := validityKey(digest, d.filter.StatusColumn, d.filter.StatusActive, d.filter.UsageColumns)

	known, found, err := d.cache.LoadValidity(key)
	if err != nil {
		d.obs.LogError("validity_cache_load_failed", err, ports.Field{Key: "key", Value: key})
		return nil, key
	}
	if !found {
		return nil, key
	}
	return known, key
}

func validityKey(digest, status string, active float64, usage []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%g\x00%s", digest, status, active, strings.Join(usage, "\x00"))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
