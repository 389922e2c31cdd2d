package models

// BatchProcessResult aggregates per-item outcomes of one orchestrator call.
// It is never persisted; its deltas are folded into JobStatus counters.
// Attempted always equals Succeeded+Failed; items skipped because another
// worker holds their lock are tracked separately in SkippedLocked.
type BatchProcessResult struct {
	Attempted     int `json:"attempted"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	SkippedLocked int `json:"skipped_locked"`
}

// FailureRate returns failed/attempted, or 0 when nothing was attempted.
func (r BatchProcessResult) FailureRate() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Attempted)
}

// Add folds another result into this one.
func (r *BatchProcessResult) Add(other *BatchProcessResult) {
	if other == nil {
		return
	}
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.SkippedLocked += other.SkippedLocked
}
