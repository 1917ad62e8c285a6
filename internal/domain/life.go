package domain

import "fmt"

const (
	// RULColumn holds the remaining useful life of each row.
	RULColumn = "RUL"
	// FaultNameColumn is the free-text fault description joined from the fault log.
	FaultNameColumn = "fault_name"
	// FaultNumberColumn is the sequential index of the fault that ends a life.
	FaultNumberColumn = "fault_number"
)

// Life is one run-to-failure segment of a single tool.
type Life struct {
	Index   int
	Tool    string
	Failure FailureType
	Frame   *Frame
}

// Filename encodes life index, tool and failure category.
func (l Life) Filename() string {
	return fmt.Sprintf("Life_%d_%s_%s.pkl.gzip", l.Index, l.Tool, l.Failure.Name())
}

// ManifestEntry returns the table-of-contents row describing the life.
func (l Life) ManifestEntry() ManifestEntry {
	return ManifestEntry{
		Tool:        l.Tool,
		Samples:     l.Frame.Len(),
		FailureType: l.Failure.Text(),
		Filename:    l.Filename(),
	}
}

// ManifestEntry is one row of lives_db.csv.
type ManifestEntry struct {
	Tool        string `json:"tool"`
	Samples     int    `json:"samples"`
	FailureType string `json:"failure_type"`
	Filename    string `json:"filename"`
}
