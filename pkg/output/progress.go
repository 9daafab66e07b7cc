package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/ritzau/encap-analyzer/pkg/analysis"
	"github.com/ritzau/encap-analyzer/pkg/logging"
)

// ProgressTracker renders reference search progress as one bar per unit
type ProgressTracker struct {
	w    io.Writer
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	unit string
}

// NewProgressTracker creates a tracker drawing to w (typically stderr)
func NewProgressTracker(w io.Writer) *ProgressTracker {
	return &ProgressTracker{w: w}
}

// Report is an analysis.ProgressFunc
func (t *ProgressTracker) Report(p analysis.Progress) {
	if p.Phase != analysis.PhaseSearch {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bar == nil || t.unit != p.Unit {
		t.finish()
		if p.Total == 0 {
			return
		}
		t.unit = p.Unit
		t.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(t.w),
			progressbar.OptionSetDescription(p.Unit),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetPredictTime(false),
		)
	}

	if p.Symbol != "" {
		t.bar.Describe(fmt.Sprintf("%s: %s", p.Unit, p.Symbol))
	}
	if err := t.bar.Set(p.Current); err != nil {
		logging.Trace("progress bar update failed", "error", err)
	}
	if p.Done {
		t.finish()
	}
}

// Close removes an unfinished bar
func (t *ProgressTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finish()
}

func (t *ProgressTracker) finish() {
	if t.bar == nil {
		return
	}
	_ = t.bar.Finish()
	t.bar = nil
	t.unit = ""
}
