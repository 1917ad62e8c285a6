package sink

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lucianolorenti/rul-pm/internal/domain"
)

var testEntry = domain.ManifestEntry{
	Tool:        "01_M01",
	Samples:     2,
	FailureType: "Flowcool leak",
	Filename:    "Life_0_01_M01_FlowcoolLeak.pkl.gzip",
}

func TestTimescaleSinkWriteLife(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "lives")
	frame := &domain.Frame{
		Time: []float64{10, 14},
		Columns: []domain.Column{
			{Name: "ETCHSOURCEUSAGE", Num: []float64{1, 2}},
			{Name: domain.RULColumn, Num: []float64{4, 0}},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO lives (tool, life, failure_type, ts, rul, values) VALUES ($1,$2,$3,$4,$5,$6),($7,$8,$9,$10,$11,$12) ON CONFLICT (life, ts) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(
			"01_M01", testEntry.Filename, "Flowcool leak", float64(10), float64(4), sqlmock.AnyArg(),
			"01_M01", testEntry.Filename, "Flowcool leak", float64(14), float64(0), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := sink.WriteLife(testEntry, frame); err != nil {
		t.Fatalf("write life: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkBatchesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "lives")
	sink.batchRows = 2
	frame := &domain.Frame{
		Time:    []float64{1, 2, 3},
		Columns: []domain.Column{{Name: "v", Num: []float64{1, 2, 3}}},
	}

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1,$2,$3,$4,$5,$6),($7,$8,$9,$10,$11,$12) ON CONFLICT")).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteLife(testEntry, frame); err != nil {
		t.Fatalf("write life: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkEmptyLife(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "lives")
	if err := sink.WriteLife(testEntry, &domain.Frame{}); err != nil {
		t.Fatalf("expected nil error for empty life, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRowValuesSkipsRUL(t *testing.T) {
	frame := &domain.Frame{
		Time: []float64{1},
		Columns: []domain.Column{
			{Name: "Tool", Text: []string{"01M01"}},
			{Name: domain.RULColumn, Num: []float64{0}},
		},
	}
	raw, err := json.Marshal(rowValues(frame, 0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"Tool":"01M01"}` {
		t.Fatalf("unexpected values %s", raw)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "lives")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
