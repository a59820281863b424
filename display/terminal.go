package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// render commands pushed by producers and consumed by the render goroutine.
type command struct {
	op     string
	kind   Kind
	text   string
	id     string
	name   string
	input  map[string]any
	result Result
}

// Terminal renders conversation output to a writer with lipgloss styling.
//
// All Sink methods enqueue a render command; a single goroutine consumes
// the queue and writes. Consecutive text fragments are coalesced into one
// paragraph before flushing; throttling lives here, in the consumer, not
// in producer calls.
type Terminal struct {
	cmds    chan command
	done    chan struct{}
	w       io.Writer
	verbose bool

	modelStyle    lipgloss.Style
	thinkingStyle lipgloss.Style
	toolStyle     lipgloss.Style
	statusStyles  map[Kind]lipgloss.Style
}

// NewTerminal creates a Terminal sink writing to w and starts its render
// goroutine. When verbose is false, thinking fragments and tool input
// details are suppressed.
func NewTerminal(w io.Writer, verbose bool) *Terminal {
	t := &Terminal{
		cmds:          make(chan command, 256),
		done:          make(chan struct{}),
		w:             w,
		verbose:       verbose,
		modelStyle:    lipgloss.NewStyle().Bold(true),
		thinkingStyle: lipgloss.NewStyle().Faint(true).Italic(true),
		toolStyle:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "63", Dark: "117"}),
		statusStyles: map[Kind]lipgloss.Style{
			KindInfo:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "26", Dark: "39"}),
			KindSuccess: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"}),
			KindWarning: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"}),
			KindError:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "203"}),
		},
	}
	go t.consume()
	return t
}

func (t *Terminal) Status(kind Kind, message string) {
	t.cmds <- command{op: "status", kind: kind, text: message}
}

func (t *Terminal) ModelSelected(name string) {
	t.cmds <- command{op: "model", name: name}
}

func (t *Terminal) Text(text string) {
	t.cmds <- command{op: "text", text: text}
}

func (t *Terminal) Thinking(text string) {
	t.cmds <- command{op: "thinking", text: text}
}

func (t *Terminal) ToolCall(id, name string, input map[string]any) {
	t.cmds <- command{op: "tool", id: id, name: name, input: input}
}

func (t *Terminal) ToolDone(id string) {
	t.cmds <- command{op: "tooldone", id: id}
}

func (t *Terminal) SessionID(id string) {
	t.cmds <- command{op: "session", id: id}
}

func (t *Terminal) TurnResult(result Result) {
	t.cmds <- command{op: "result", result: result}
}

func (t *Terminal) Interrupted() {
	t.cmds <- command{op: "interrupted"}
}

// Close flushes pending output and stops the render goroutine. Safe to
// call once after all producers are finished.
func (t *Terminal) Close() error {
	close(t.cmds)
	<-t.done
	return nil
}

func (t *Terminal) consume() {
	defer close(t.done)

	var paragraph strings.Builder
	flush := func() {
		if paragraph.Len() == 0 {
			return
		}
		fmt.Fprintln(t.w, strings.TrimRight(paragraph.String(), "\n"))
		paragraph.Reset()
	}

	for cmd := range t.cmds {
		if cmd.op != "text" {
			flush()
		}
		switch cmd.op {
		case "text":
			paragraph.WriteString(cmd.text)
		case "thinking":
			if t.verbose {
				fmt.Fprintln(t.w, t.thinkingStyle.Render(cmd.text))
			}
		case "status":
			style, ok := t.statusStyles[cmd.kind]
			if !ok {
				style = t.statusStyles[KindInfo]
			}
			fmt.Fprintln(t.w, style.Render(cmd.text))
		case "model":
			fmt.Fprintln(t.w, t.modelStyle.Render("Model: "+cmd.name))
		case "tool":
			fmt.Fprintln(t.w, t.toolStyle.Render(formatToolCall(cmd.name, cmd.input, t.verbose)))
		case "tooldone":
			if t.verbose {
				fmt.Fprintln(t.w, t.toolStyle.Render("  done "+cmd.id))
			}
		case "session":
			if t.verbose {
				fmt.Fprintln(t.w, t.thinkingStyle.Render("session "+cmd.id))
			}
		case "result":
			fmt.Fprintln(t.w, t.thinkingStyle.Render(formatResult(cmd.result)))
		case "interrupted":
			fmt.Fprintln(t.w, t.statusStyles[KindWarning].Render("Interrupted by user"))
		}
	}
	flush()
}

func formatToolCall(name string, input map[string]any, verbose bool) string {
	if !verbose || len(input) == 0 {
		return "* " + name
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprintf("%v", input[k])
		if len(v) > 80 {
			v = v[:77] + "..."
		}
		args = append(args, k+"="+v)
	}
	return "* " + name + "(" + strings.Join(args, ", ") + ")"
}

func formatResult(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Done in %.1fs, %d turn(s)", float64(r.DurationMs)/1000, r.NumTurns)
	if r.CostUSD != nil {
		fmt.Fprintf(&b, ", $%.4f", *r.CostUSD)
	}
	return b.String()
}
