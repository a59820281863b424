package protocol

// ExecutionResult describes one host-side execution of an input unit,
// reported to the turn controller by the host's post-execution hook.
type ExecutionResult struct {
	Input        string
	Success      bool
	ErrorKind    string
	ErrorMessage string
}

// HistoryEntry is one executed input unit from the host session's
// history. HasOutput distinguishes "no output" from an empty output
// string.
type HistoryEntry struct {
	Line      int
	Input     string
	Output    string
	HasOutput bool
}
