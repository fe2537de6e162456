package backend

import "strings"

// Line is one parsed plain-text line of backend output.
type Line struct {
	// Text is the full line as received.
	Text string

	// Speaker is the account the line is attributed to, if any.
	Speaker string

	// Private marks a private message addressed to the connected account.
	Private bool

	// Tag is the bracketed event tag ("logout", "ban", ...), lowercased.
	Tag string
}

// Item is what Drain yields: exactly one of Line or Payload is set.
type Item struct {
	Line    *Line
	Payload *Payload
}

// ParseLine applies the backend's plain-line grammar:
//
//	<name> text       chat said by name
//	[pm name] text    private message from name
//	[tag] name rest   tagged event about name
//	anything else     untagged server output
func ParseLine(text string) Line {
	line := Line{Text: text}

	switch {
	case strings.HasPrefix(text, "<"):
		if end := strings.IndexByte(text, '>'); end > 1 {
			line.Speaker = text[1:end]
		}

	case strings.HasPrefix(text, "["):
		end := strings.IndexByte(text, ']')
		if end < 2 {
			return line
		}
		tag := strings.Fields(text[1:end])
		rest := strings.TrimSpace(text[end+1:])
		if len(tag) == 2 && strings.EqualFold(tag[0], "pm") {
			line.Private = true
			line.Speaker = tag[1]
			return line
		}
		if len(tag) != 1 {
			return line
		}
		line.Tag = strings.ToLower(tag[0])
		if fields := strings.Fields(rest); len(fields) > 0 {
			line.Speaker = fields[0]
		}
	}

	return line
}
