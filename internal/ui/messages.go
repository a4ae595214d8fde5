// Package ui provides the Bubble Tea TUI for stagewatch.
//
// Result messages from the analysis service are defined by the
// orchestrator package; the ones here are local to the UI.
package ui

// FileLoaded is sent when a file has been read into the bulk input.
type FileLoaded struct {
	Path string
	Text string
	Err  error
}

// ClipboardCopied is sent after a copy to the system clipboard.
type ClipboardCopied struct {
	What string
	Err  error
}
