package pipeline

import (
	"os"
	"path/filepath"
)

const (
	// DatasetFolder is the folder name inside the archive and under the dataset root.
	DatasetFolder  = "phm_data_challenge_2018"
	CompressedFile = DatasetFolder + ".tar.gz"

	// ArchiveMembers is the number of entries in the published archive.
	ArchiveMembers = 70
)

// Layout resolves the on-disk structure shared with existing cached datasets:
//
//	<root>/phm_data_challenge_2018/raw/train/*.csv
//	<root>/phm_data_challenge_2018/raw/train/train_faults/*.csv
//	<root>/phm_data_challenge_2018/processed/lives/*.pkl.gzip
//	<root>/phm_data_challenge_2018/processed/lives/lives_db.csv
type Layout struct {
	Root string
}

func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) DatasetDir() string { return filepath.Join(l.Root, DatasetFolder) }
func (l Layout) RawDir() string     { return filepath.Join(l.DatasetDir(), "raw") }
func (l Layout) TrainDir() string   { return filepath.Join(l.RawDir(), "train") }
func (l Layout) TestDir() string    { return filepath.Join(l.RawDir(), "test") }
func (l Layout) FaultsDir() string  { return filepath.Join(l.TrainDir(), "train_faults") }
func (l Layout) LivesDir() string   { return filepath.Join(l.DatasetDir(), "processed", "lives") }
func (l Layout) ArchivePath() string {
	return filepath.Join(l.RawDir(), CompressedFile)
}

// nestedDir is where the archive unpacks before train/test are moved up.
func (l Layout) nestedDir() string { return filepath.Join(l.RawDir(), DatasetFolder) }

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// archiveValid requires the archive to exist and be non-empty.
func archiveValid(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}
