package host

import (
	"sync"
	"time"
)

// queuedExecutionThreshold is the largest inter-cell gap that still looks
// like a client-driven "Run All" rather than a human executing cells.
const queuedExecutionThreshold = 100 * time.Millisecond

// Watcher detects queued cell executions. Notebook clients queue cells on
// the client side, so a "Run All" over a saved notebook would re-trigger
// the agent on every pilot invocation it contains. The only observable
// signal at the kernel is timing: queued cells start back-to-back, human
// ones do not.
type Watcher struct {
	mu         sync.Mutex
	lastFinish time.Time
	gaps       []time.Duration // most recent two inter-cell gaps
}

// NewWatcher creates a Watcher primed with the current time.
func NewWatcher() *Watcher {
	return &Watcher{lastFinish: time.Now()}
}

// PreRun records the gap since the previous execution finished. Call from
// the host's pre-execution hook.
func (w *Watcher) PreRun() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gaps = append(w.gaps, time.Since(w.lastFinish))
	if len(w.gaps) > 2 {
		w.gaps = w.gaps[len(w.gaps)-2:]
	}
}

// PostRun marks the end of an execution. Executions that never counted
// (e.g. replayed setup cells after a kernel restart) should pass
// counted=false so they don't skew the timing.
func (w *Watcher) PostRun(counted bool) {
	if !counted {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastFinish = time.Now()
}

// ProbablyQueued reports whether the current execution looks like part of
// a queued batch: the last two gaps were both under the threshold.
func (w *Watcher) ProbablyQueued() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.gaps) < 2 {
		return false
	}
	return w.gaps[0] < queuedExecutionThreshold && w.gaps[1] < queuedExecutionThreshold
}
