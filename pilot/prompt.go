package pilot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cellpilot/cellpilot/tools"
)

// SystemPrompt builds the system-prompt augmentation for the host
// environment. Terminal REPLs hold a single pending input, so the cell
// policy differs from a notebook's.
func SystemPrompt(terminal bool, maxCells int) string {
	cellTool := tools.CellToolName

	var env, toolCallResult, preference string
	if terminal {
		env = "shared interactive session"
		toolCallResult = fmt.Sprintf(
			"The %s tool call will populate the next input with the Python code you provide.", cellTool)
		preference = fmt.Sprintf(`You can only call %s once, since the terminal does not allow for multiple pending code blocks.

The user will see the code block and can choose to execute it or not.`, cellTool)
	} else {
		env = "notebook session"
		toolCallResult = fmt.Sprintf(
			"Each %s call will create a new cell in the user's notebook interface.", cellTool)
		preference = fmt.Sprintf(`IMPORTANT: Prefer to call %[1]s only ONCE with a short code snippet.
As a last resort, you may call it multiple times to split up a large code block. You can make at most %[2]d calls per turn (i.e., in response to each user prompt).
The user will be presented with the code blocks one by one.
If the user executes it and it succeeds, the next code block gets created in a new cell.
If the user executes it and it errors, then the error will get reported, but the chain is broken. Assume that the user does not see the subsequent code.
If the user executes a cell that is not the next code block, then the chain will pause until the proper next code block is executed.

If the user asks you to modify code in the current cell, you may do this by using the %[1]s tool EXACTLY ONCE.
Identifying that the current cell is the target is obvious because the code block is included directly in the user's request itself.

If the user asks you to edit/change/modify code in a DIFFERENT cell, inform them that you do not have that capability.`, cellTool, maxCells)
	}

	preamble := fmt.Sprintf(`You are operating in a %s.
You can see the current session state. You can create new code cells using the %s tool.
%s
Never call %s if you can answer the user's question directly with text.
%s
`, env, cellTool, toolCallResult, cellTool, preference)

	inspection := `Images from display calls (matplotlib, seaborn, PIL, etc.) are automatically captured. You do not need any special wrapper, just write normal plotting code and the images will be available to you on the next turn.

You also have two kernel inspection tools available:
- list_variables: Lists all user-defined variables with types and values
- inspect_variable: Gets detailed info about a specific variable

Use these tools when you need to understand the current kernel state without creating code cells.`

	usage := fmt.Sprintf(`For any questions you can answer on your own, DO NOT use %[1]s.
Try responding using your built-in tools first without using %[1]s. Your response does not need to invoke %[1]s.
If you want to explain something to the user, do not put your explanation in %[1]s. Just return regular prose.

IMPORTANT: Do not invoke %[1]s in parallel.
IMPORTANT: Always include a return value or expression at the end of your %[1]s output. Only return values are captured in output cells - print statements are NOT captured.
For example, instead of print(df.head()), use df.head() as the last line.
IMPORTANT: Always provide a short description when calling %[1]s. This appears as a comment at the top of the cell so the user knows what the cell does at a glance. Keep it concise (under 80 chars).

If <request> is empty, it is because the user wants you to continue from where you left off in the previous messages.`, cellTool)

	return strings.Join([]string{preamble, inspection, usage}, "\n")
}

// ImportedFilesContent reads the user's imported files into a block for
// the opening prompt. Unreadable files are skipped silently; they were
// validated when added.
func ImportedFilesContent(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	var blocks []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("%s:\n```\n%s\n```", filepath.Base(path), data))
	}
	if len(blocks) == 0 {
		return ""
	}
	return "Files imported by the user for your reference. Use this content directly. Don't read them again:\n\n" +
		strings.Join(blocks, "\n\n")
}

// enhancedPrompt composes the outbound prompt text for one turn.
func enhancedPrompt(request, varChanges, previousExecution, shellOutput string, openers []string) string {
	text := fmt.Sprintf(`
Your client's request is <request>%s</request>

%s
%s
`, request, varChanges, previousExecution)

	if shellOutput != "" {
		text += shellOutput
	}
	if len(openers) > 0 {
		text = strings.Join(openers, "\n\n") + "\n\n" + text
	}
	return text
}
