package terminal

import "strconv"

// Escape sequences written to client terminals.
const (
	ClearScreen    = "\x1b[2J"
	EraseLineRight = "\x1b[K"
	SaveCursor     = "\x1b7"
	RestoreCursor  = "\x1b8"
	ResetStyle     = "\x1b[0m"

	// querySize parks the cursor in the far corner and asks where it
	// ended up; the answer is the terminal size.
	querySize = SaveCursor + "\x1b[999;999H\x1b[6n" + RestoreCursor
)

// MoveTo returns the sequence placing the cursor at a zero-based row and
// column.
func MoveTo(row, col int) string {
	return "\x1b[" + strconv.Itoa(row+1) + ";" + strconv.Itoa(col+1) + "H"
}

// telnet option negotiation sent on connect: the server echoes and
// suppresses go-ahead (character mode) and asks for window-size reports.
var negotiation = []byte{
	telnetIAC, telnetWILL, optEcho,
	telnetIAC, telnetWILL, optSGA,
	telnetIAC, telnetDO, optNAWS,
}
