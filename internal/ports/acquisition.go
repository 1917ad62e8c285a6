package ports

import "context"

type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error)
}

type Extractor interface {
	Extract(archive, dest string, progress ProgressFunc) (int, error)
}
