package display_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cellpilot/cellpilot/display"
)

func TestTerminal_CoalescesTextBeforeStatus(t *testing.T) {
	var buf bytes.Buffer
	term := display.NewTerminal(&buf, false)

	term.Text("Hello, ")
	term.Text("world")
	term.Status(display.KindInfo, "all done")
	if err := term.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	out := buf.String()
	textIdx := strings.Index(out, "Hello, world")
	statusIdx := strings.Index(out, "all done")
	if textIdx < 0 {
		t.Fatalf("coalesced text missing from output:\n%s", out)
	}
	if statusIdx < 0 {
		t.Fatalf("status missing from output:\n%s", out)
	}
	if textIdx > statusIdx {
		t.Errorf("status rendered before preceding text:\n%s", out)
	}
}

func TestTerminal_FlushesTrailingTextOnClose(t *testing.T) {
	var buf bytes.Buffer
	term := display.NewTerminal(&buf, false)

	term.Text("unflushed tail")
	if err := term.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if !strings.Contains(buf.String(), "unflushed tail") {
		t.Errorf("trailing text lost on Close:\n%s", buf.String())
	}
}

func TestTerminal_VerboseGatesThinking(t *testing.T) {
	var quiet, loud bytes.Buffer

	term := display.NewTerminal(&quiet, false)
	term.Thinking("pondering")
	if err := term.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	termV := display.NewTerminal(&loud, true)
	termV.Thinking("pondering")
	if err := termV.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if strings.Contains(quiet.String(), "pondering") {
		t.Error("thinking rendered without verbose")
	}
	if !strings.Contains(loud.String(), "pondering") {
		t.Error("thinking not rendered with verbose")
	}
}

func TestTerminal_Interrupted(t *testing.T) {
	var buf bytes.Buffer
	term := display.NewTerminal(&buf, false)

	term.Interrupted()
	if err := term.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Interrupted by user") {
		t.Errorf("interrupt notice missing:\n%s", buf.String())
	}
}
