package rulpm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lucianolorenti/rul-pm/internal/domain"
)

func TestNewCallbackSink(t *testing.T) {
	var received []ExportedLife
	s := NewCallbackSink("cb", func(life ExportedLife) error {
		received = append(received, life)
		return nil
	})

	entry := ManifestEntry{Tool: "01_M01", Samples: 3, FailureType: "Flowcool leak", Filename: "Life_0_01_M01_FlowcoolLeak.pkl.gzip"}
	if err := s.WriteLife(entry, lifeFrame(3, true)); err != nil {
		t.Fatalf("WriteLife returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 life, got %d", len(received))
	}
	if received[0].Entry != entry || received[0].Frame.Len() != 3 {
		t.Fatalf("mismatched life payload: %+v", received[0].Entry)
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	s := NewCallbackSink("", nil)
	if s.Name() != "callback" {
		t.Fatalf("unexpected default name %q", s.Name())
	}
	if err := s.WriteLife(ManifestEntry{}, lifeFrame(1, true)); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	s, ch, closeFn := NewChannelSink("chan", 0)
	defer closeFn()

	entry := ManifestEntry{Tool: "01_M02", Filename: "Life_1_01_M02_FlowcoolLeak.pkl.gzip"}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.WriteLife(entry, lifeFrame(2, true))
	}()

	var got ExportedLife
	select {
	case got = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exported life")
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteLife returned error: %v", err)
	}
	if got.Entry.Filename != entry.Filename {
		t.Fatalf("unexpected life %+v", got.Entry)
	}

	closeFn()
	if err := s.WriteLife(entry, lifeFrame(2, true)); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}

func TestChannelSinkCloseWithBlockedWriters(t *testing.T) {
	s, ch, closeFn := NewChannelSink("chan", 0)
	entry := ManifestEntry{Tool: "01_M02", Filename: "Life_1_01_M02_FlowcoolLeak.pkl.gzip"}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.WriteLife(entry, lifeFrame(2, true))
		}()
	}
	// drain a couple so some writers are mid-send while close runs
	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for exported life")
		}
	}
	closeFn()
	wg.Wait()
	close(errs)

	delivered := 0
	for err := range errs {
		switch {
		case err == nil:
			delivered++
		case !errors.Is(err, ErrChannelSinkClosed):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if delivered != 2 {
		t.Fatalf("expected 2 delivered lives, got %d", delivered)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed and drained")
	}
}

func TestDatasetExport(t *testing.T) {
	root := t.TempDir()
	seedStore(t, root, threeLives())

	ds, err := NewDataset(context.Background(), testConfig(root), WithObservability(newRecordingObs()))
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}

	var names []string
	n, err := ds.Export(context.Background(), NewCallbackSink("cb", func(life ExportedLife) error {
		names = append(names, life.Entry.Filename)
		rul, _ := life.Frame.Num(domain.RULColumn)
		if rul[len(rul)-1] != 0 {
			t.Errorf("exported life %s does not end at RUL 0", life.Entry.Filename)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 || len(names) != 2 {
		t.Fatalf("expected 2 exported lives, got n=%d names=%v", n, names)
	}

	boom := errors.New("boom")
	n, err = ds.Export(context.Background(), NewCallbackSink("failing", func(ExportedLife) error { return boom }))
	if !errors.Is(err, boom) || n != 0 {
		t.Fatalf("expected sink error after 0 lives, got n=%d err=%v", n, err)
	}
}

func TestOpenTimescaleSinkRequiresConnString(t *testing.T) {
	if _, _, err := OpenTimescaleSink(TimescaleConfig{}); err == nil {
		t.Fatalf("expected error without a connection string")
	}
}
