package audit

// Progress is a one-way pipeline stage notification. Total is 0 when the
// stage's extent is not yet known.
type Progress struct {
	Stage   string
	Current int
	Total   int
}

// report sends a progress event without blocking: when the observer is slow
// or absent the event is dropped rather than stalling the pipeline.
func report(ch chan<- Progress, stage string, current, total int) {
	if ch == nil {
		return
	}

	select {
	case ch <- Progress{Stage: stage, Current: current, Total: total}:
	default:
	}
}
