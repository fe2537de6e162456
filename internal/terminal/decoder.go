package terminal

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// EventKind identifies a decoded input event.
type EventKind int

const (
	// EventLine is a completed input line (Enter pressed).
	EventLine EventKind = iota
	// EventTab is a Tab keypress.
	EventTab
	// EventResize reports the terminal geometry.
	EventResize
	// EventEdit means the pending edit buffer changed.
	EventEdit
	// EventEOF means the client hung up.
	EventEOF
)

// Event is one decoded unit of client input.
type Event struct {
	Kind EventKind
	Line string
	Rows int
	Cols int
}

// Telnet protocol bytes.
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWILL = 251
	telnetWONT = 252
	telnetDO   = 253
	telnetDONT = 254
	telnetIAC  = 255

	optEcho = 1
	optSGA  = 3
	optNAWS = 31
)

// Buffer limits. Input past them is dropped.
const (
	MaxLineBytes = 1024
	maxSubneg    = 64
	maxCSI       = 32
)

type decoderState int

const (
	stNormal decoderState = iota
	stCR
	stIAC
	stOption
	stSB
	stSBIAC
	stESC
	stCSI
	stSS3
)

// Decoder turns the raw client byte stream into events. It strips telnet
// negotiation, understands NAWS window-size reports and ANSI cursor
// position reports, and keeps a line-edit buffer with backspace and
// kill-line support. The edit buffer holds at most MaxLineBytes. A Decoder
// is not safe for concurrent use.
type Decoder struct {
	state decoderState
	edit  []byte
	sb    []byte
	csi   []byte
}

// Pending returns the text typed since the last completed line.
func (d *Decoder) Pending() string {
	return string(d.edit)
}

// Feed decodes p and returns the events it completes.
func (d *Decoder) Feed(p []byte) []Event {
	var events []Event
	edited := false

	for _, b := range p {
		switch d.state {
		case stCR:
			d.state = stNormal
			if b == '\n' || b == 0 {
				continue
			}
			fallthrough

		case stNormal:
			switch {
			case b == telnetIAC:
				d.state = stIAC
			case b == 0x1b:
				d.state = stESC
			case b == '\r' || b == '\n':
				if b == '\r' {
					d.state = stCR
				}
				events = append(events, Event{Kind: EventLine, Line: string(d.edit)})
				d.edit = d.edit[:0]
				edited = false
			case b == '\t':
				events = append(events, Event{Kind: EventTab})
			case b == 0x7f || b == 0x08:
				if len(d.edit) > 0 {
					_, size := utf8.DecodeLastRune(d.edit)
					d.edit = d.edit[:len(d.edit)-size]
					edited = true
				}
			case b == 0x15:
				d.edit = d.edit[:0]
				edited = true
			case b == 0x04:
				if len(d.edit) == 0 {
					events = append(events, Event{Kind: EventEOF})
				}
			case b < 0x20:
				// Other control characters are ignored.
			default:
				edited = d.typed(b) || edited
			}

		case stIAC:
			switch b {
			case telnetIAC:
				edited = d.typed(b) || edited
				d.state = stNormal
			case telnetWILL, telnetWONT, telnetDO, telnetDONT:
				d.state = stOption
			case telnetSB:
				d.sb = d.sb[:0]
				d.state = stSB
			default:
				d.state = stNormal
			}

		case stOption:
			d.state = stNormal

		case stSB:
			if b == telnetIAC {
				d.state = stSBIAC
				continue
			}
			if len(d.sb) < maxSubneg {
				d.sb = append(d.sb, b)
			}

		case stSBIAC:
			switch b {
			case telnetIAC:
				if len(d.sb) < maxSubneg {
					d.sb = append(d.sb, b)
				}
				d.state = stSB
			case telnetSE:
				if ev, ok := parseNAWS(d.sb); ok {
					events = append(events, ev)
				}
				d.state = stNormal
			default:
				d.state = stNormal
			}

		case stESC:
			switch b {
			case '[':
				d.csi = d.csi[:0]
				d.state = stCSI
			case 'O':
				d.state = stSS3
			default:
				d.state = stNormal
			}

		case stCSI:
			if b >= 0x40 && b <= 0x7e {
				if b == 'R' && len(d.csi) < maxCSI {
					if ev, ok := parseCPR(string(d.csi)); ok {
						events = append(events, ev)
					}
				}
				d.state = stNormal
				continue
			}
			if len(d.csi) < maxCSI {
				d.csi = append(d.csi, b)
			}

		case stSS3:
			d.state = stNormal
		}
	}

	if edited {
		events = append(events, Event{Kind: EventEdit})
	}
	return events
}

// typed appends b to the edit buffer unless it is full.
func (d *Decoder) typed(b byte) bool {
	if len(d.edit) >= MaxLineBytes {
		return false
	}
	d.edit = append(d.edit, b)
	return true
}

// parseNAWS decodes "NAWS w_hi w_lo h_hi h_lo".
func parseNAWS(sb []byte) (Event, bool) {
	if len(sb) != 5 || sb[0] != optNAWS {
		return Event{}, false
	}
	cols := int(sb[1])<<8 | int(sb[2])
	rows := int(sb[3])<<8 | int(sb[4])
	return Event{Kind: EventResize, Rows: rows, Cols: cols}, true
}

// parseCPR decodes the "row;col" parameters of a cursor position report.
func parseCPR(params string) (Event, bool) {
	rowStr, colStr, ok := strings.Cut(params, ";")
	if !ok {
		return Event{}, false
	}
	rows, err := strconv.Atoi(rowStr)
	if err != nil {
		return Event{}, false
	}
	cols, err := strconv.Atoi(colStr)
	if err != nil {
		return Event{}, false
	}
	return Event{Kind: EventResize, Rows: rows, Cols: cols}, true
}
