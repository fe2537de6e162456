// Package tui lays out and paints the split-pane view each session sees.
//
// A Screen partitions the terminal rows among panes:
//
//	Main:   info | log (3) | chat (1) | input
//	Status: status | log (2) | chat (1) | input
//
// The Status panel grows to fit the focused backend's status lines but
// always leaves two rows each for log and chat.
//
// Display owns the per-session render state. It redraws everything when
// the layout changes and otherwise rewrites only the panes whose text
// differs from the previous frame. Every frame ends with the cursor back
// on the input row.
//
// Colors come from a fixed table of named tags (see Paint) rendered by a
// lipgloss renderer pinned to the 256-color profile, since output goes to
// remote terminals rather than the local TTY.
package tui
