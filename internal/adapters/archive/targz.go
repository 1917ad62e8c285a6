package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

const StageExtract = "extract"

// TarGz unpacks gzip-compressed tarballs. ExpectedMembers, when set, is passed
// to progress callbacks as the total since tar offers no member count up front.
type TarGz struct {
	ExpectedMembers int64
}

func (t TarGz) Extract(archive, dest string, progress ports.ProgressFunc) (int, error) {
	file, err := os.Open(archive)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return 0, fmt.Errorf("open gzip %s: %w", archive, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, err
	}

	tr := tar.NewReader(zr)
	var members int
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return members, nil
		}
		if err != nil {
			return members, fmt.Errorf("read tar %s: %w", archive, err)
		}

		target, err := safeJoin(root, hdr.Name)
		if err != nil {
			return members, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return members, err
			}
		case tar.TypeReg:
			if err := writeMember(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return members, fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
		default:
			// links and devices are not part of the dataset layout
			continue
		}

		members++
		if progress != nil {
			progress(StageExtract, int64(members), t.ExpectedMembers)
		}
	}
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsafeArchivePath, name)
	}
	return target, nil
}

func writeMember(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

var _ ports.Extractor = TarGz{}
