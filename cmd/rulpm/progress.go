package main

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v2"
)

// progressBars renders one terminal bar per stage. Stages reporting no total
// are not drawn.
type progressBars struct {
	mu    sync.Mutex
	w     io.Writer
	stage string
	bar   *progressbar.ProgressBar
	done  int64
}

func newProgressBars(w io.Writer) *progressBars {
	return &progressBars{w: w}
}

func (p *progressBars) report(stage string, done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total <= 0 {
		return
	}
	if stage != p.stage || p.bar == nil {
		p.finishLocked()
		p.stage = stage
		p.done = 0
		p.bar = progressbar.NewOptions(int(total),
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(stage),
			progressbar.OptionSetWidth(40),
		)
	}
	if delta := done - p.done; delta > 0 {
		_ = p.bar.Add(int(delta))
		p.done = done
	}
}

func (p *progressBars) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressBars) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	_, _ = io.WriteString(p.w, "\n")
	p.bar = nil
	p.stage = ""
}
