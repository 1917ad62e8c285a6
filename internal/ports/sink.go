package ports

import "github.com/lucianolorenti/rul-pm/internal/domain"

type Sink interface {
	WriteLife(entry domain.ManifestEntry, f *domain.Frame) error
	Name() string
}
