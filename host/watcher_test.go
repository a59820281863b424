package host_test

import (
	"testing"
	"time"

	"github.com/cellpilot/cellpilot/host"
)

func TestWatcher_FreshIsNotQueued(t *testing.T) {
	w := host.NewWatcher()
	if w.ProbablyQueued() {
		t.Error("fresh watcher reported queued execution")
	}

	w.PreRun()
	if w.ProbablyQueued() {
		t.Error("single gap reported queued execution")
	}
}

func TestWatcher_BackToBackIsQueued(t *testing.T) {
	w := host.NewWatcher()

	w.PreRun()
	w.PostRun(true)
	w.PreRun()
	w.PostRun(true)

	if !w.ProbablyQueued() {
		t.Error("two back-to-back executions not detected as queued")
	}
}

func TestWatcher_HumanPaceIsNotQueued(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-dependent")
	}

	w := host.NewWatcher()

	w.PreRun()
	w.PostRun(true)
	time.Sleep(120 * time.Millisecond)
	w.PreRun()
	w.PostRun(true)

	if w.ProbablyQueued() {
		t.Error("human-paced executions detected as queued")
	}
}
