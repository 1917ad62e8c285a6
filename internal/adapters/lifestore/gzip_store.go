package lifestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/lucianolorenti/rul-pm/internal/adapters/csvio"
	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

const (
	ManifestName = "lives_db.csv"
	lifePattern  = "Life_*.pkl.gzip"
	validityDir  = ".validity"
)

var manifestHeader = []string{"Tool", "Number of samples", "Failure Type", "Filename"}

// GzipStore keeps every life as a gzip-compressed CSV blob next to the manifest.
// Writes go through a temporary file and a rename so a crashed run never leaves
// a truncated blob or manifest behind.
type GzipStore struct {
	mu  sync.Mutex
	dir string
}

func NewGzipStore(dir string) (*GzipStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &GzipStore{dir: dir}, nil
}

func (s *GzipStore) Dir() string { return s.dir }

func (s *GzipStore) Put(filename string, f *domain.Frame) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := csvio.WriteTypedFrame(zw, f); err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", filename, err)
	}
	return s.writeAtomic(filename, buf.Bytes())
}

func (s *GzipStore) Get(filename string) (*domain.Frame, error) {
	file, err := os.Open(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptManifest, filename, err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptManifest, filename, err)
	}
	defer zr.Close()

	f, err := csvio.ReadFrame(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptManifest, filename, err)
	}
	return f, nil
}

func (s *GzipStore) WriteManifest(entries []domain.ManifestEntry) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(manifestHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Tool, strconv.Itoa(e.Samples), e.FailureType, e.Filename}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return s.writeAtomic(ManifestName, buf.Bytes())
}

func (s *GzipStore) ReadManifest() ([]domain.ManifestEntry, error) {
	raw, err := os.ReadFile(s.manifestPath())
	if err != nil {
		return nil, err
	}
	return parseManifest(raw)
}

func (s *GzipStore) ManifestExists() bool {
	st, err := os.Stat(s.manifestPath())
	return err == nil && st.Mode().IsRegular()
}

func (s *GzipStore) ManifestDigest() (string, error) {
	raw, err := os.ReadFile(s.manifestPath())
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func (s *GzipStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.manifestPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	lives, err := filepath.Glob(filepath.Join(s.dir, lifePattern))
	if err != nil {
		return err
	}
	for _, p := range lives {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(filepath.Join(s.dir, validityDir)); err != nil {
		return err
	}
	return nil
}

func (s *GzipStore) LoadValidity(key string) (map[string]bool, bool, error) {
	raw, err := os.ReadFile(s.validityPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var valid map[string]bool
	if err := json.Unmarshal(raw, &valid); err != nil {
		// a damaged cache is recomputed rather than trusted
		return nil, false, nil
	}
	return valid, true, nil
}

func (s *GzipStore) SaveValidity(key string, valid map[string]bool) error {
	raw, err := json.Marshal(valid)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.dir, validityDir), 0o755); err != nil {
		return err
	}
	return s.writeAtomic(filepath.Join(validityDir, key+".json"), raw)
}

func (s *GzipStore) manifestPath() string { return filepath.Join(s.dir, ManifestName) }

func (s *GzipStore) validityPath(key string) string {
	return filepath.Join(s.dir, validityDir, key+".json")
}

func (s *GzipStore) writeAtomic(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func parseManifest(raw []byte) ([]domain.ManifestEntry, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: manifest header: %v", domain.ErrCorruptManifest, err)
	}

	idx := make([]int, len(manifestHeader))
	for i, want := range manifestHeader {
		idx[i] = -1
		for j, h := range header {
			if strings.TrimSpace(h) == want {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: manifest lacks column %q", domain.ErrCorruptManifest, want)
		}
	}

	var entries []domain.ManifestEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorruptManifest, err)
		}
		n, err := strconv.Atoi(rec[idx[1]])
		if err != nil {
			return nil, fmt.Errorf("%w: sample count %q", domain.ErrCorruptManifest, rec[idx[1]])
		}
		entries = append(entries, domain.ManifestEntry{
			Tool:        rec[idx[0]],
			Samples:     n,
			FailureType: rec[idx[2]],
			Filename:    rec[idx[3]],
		})
	}
	return entries, nil
}

var (
	_ ports.LifeStore     = (*GzipStore)(nil)
	_ ports.ValidityCache = (*GzipStore)(nil)
)
