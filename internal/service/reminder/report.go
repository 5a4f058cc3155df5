package reminder

import "sync"

// Report counts what a check run did. Checked counts items examined; Sent,
// Skipped and Failed count per-recipient outcomes, where Skipped means the
// dedup guard suppressed a duplicate.
type Report struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Add folds o into r.
func (r *Report) Add(o Report) {
	r.Checked += o.Checked
	r.Sent += o.Sent
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// tally is a Report shared by concurrent workers.
type tally struct {
	mu sync.Mutex
	r  Report
}

func (t *tally) add(o Report) {
	t.mu.Lock()
	t.r.Add(o)
	t.mu.Unlock()
}

func (t *tally) report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r
}
