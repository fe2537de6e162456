package tui

// Minimum heights the Status screen keeps for the log and chat panes.
const minPaneRows = 2

// Region is a half-open range of terminal rows [Start, End).
type Region struct {
	Start int
	End   int
}

// Height returns the number of rows in the region.
func (r Region) Height() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Layout assigns a region to every pane. Panes a screen does not show get
// an empty region.
type Layout struct {
	Info   Region
	Status Region
	Log    Region
	Chat   Region
	Input  Region
}

// Regions returns the non-empty regions from top to bottom.
func (l Layout) Regions() []Region {
	var out []Region
	for _, r := range []Region{l.Info, l.Status, l.Log, l.Chat, l.Input} {
		if r.Height() > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Screen partitions terminal rows among panes.
type Screen interface {
	Name() string
	// Layout computes regions for a terminal of the given height.
	// statusLines is the number of status lines the focused backend needs;
	// screens without a status panel ignore it.
	Layout(rows, statusLines int) Layout
}

// Main shows an info row, the log and chat panes split 3:1, and the input row.
type Main struct{}

// Status shows the focused backend's status panel above log and chat
// panes split 2:1, and the input row.
type Status struct{}

func (Main) Name() string { return "main" }
func (Status) Name() string { return "status" }

func (Main) Layout(rows, _ int) Layout {
	avail := max(rows-2, 0)
	log := (avail*3 + 2) / 4
	chat := avail - log

	var l Layout
	l.Info = Region{Start: 0, End: 1}
	l.Log = Region{Start: 1, End: 1 + log}
	l.Chat = Region{Start: l.Log.End, End: l.Log.End + chat}
	l.Input = Region{Start: l.Chat.End, End: l.Chat.End + 1}
	return l
}

func (Status) Layout(rows, statusLines int) Layout {
	avail := max(rows-1, 0)
	status := min(max(avail-2*minPaneRows, 0), max(statusLines, 0))
	rest := avail - status
	log := (rest*2 + 1) / 3
	if rest >= 2*minPaneRows && rest-log < minPaneRows {
		log = rest - minPaneRows
	}
	chat := rest - log

	var l Layout
	l.Status = Region{Start: 0, End: status}
	l.Log = Region{Start: status, End: status + log}
	l.Chat = Region{Start: l.Log.End, End: l.Log.End + chat}
	l.Input = Region{Start: l.Chat.End, End: l.Chat.End + 1}
	return l
}

// Toggle returns the other screen variant.
func Toggle(s Screen) Screen {
	if _, ok := s.(Status); ok {
		return Main{}
	}
	return Status{}
}
