package ports

import "github.com/lucianolorenti/rul-pm/internal/domain"

// LifeStore persists life blobs and the manifest indexing them.
type LifeStore interface {
	Put(filename string, f *domain.Frame) error
	Get(filename string) (*domain.Frame, error)

	WriteManifest(entries []domain.ManifestEntry) error
	ReadManifest() ([]domain.ManifestEntry, error)
	ManifestExists() bool
	ManifestDigest() (string, error)

	// Reset removes every stored life and the manifest before segmentation reruns.
	Reset() error
}

// ValidityCache remembers validity-pass outcomes per manifest digest.
type ValidityCache interface {
	LoadValidity(key string) (map[string]bool, bool, error)
	SaveValidity(key string, valid map[string]bool) error
}
