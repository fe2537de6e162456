package terminal

import (
	"reflect"
	"strings"
	"testing"
)

func kinds(events []Event) []EventKind {
	var out []EventKind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func lines(events []Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Kind == EventLine {
			out = append(out, ev.Line)
		}
	}
	return out
}

func TestDecoderLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "crlf", input: "hello\r\n", want: []string{"hello"}},
		{name: "cr nul", input: "hello\r\x00", want: []string{"hello"}},
		{name: "bare lf", input: "hello\n", want: []string{"hello"}},
		{name: "two lines", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "empty line", input: "\r\n", want: []string{""}},
		{name: "backspace", input: "helx\x7flo\r\n", want: []string{"hello"}},
		{name: "ctrl-h", input: "ab\x08c\r\n", want: []string{"ac"}},
		{name: "backspace on empty", input: "\x7f\x7fok\r\n", want: []string{"ok"}},
		{name: "multibyte backspace", input: "café\x7fe\r\n", want: []string{"cafe"}},
		{name: "kill line", input: "garbage\x15status\r\n", want: []string{"status"}},
		{name: "telnet stripped", input: "\xff\xfb\x01st\xff\xfd\x03at\r\n", want: []string{"stat"}},
		{name: "arrow keys ignored", input: "\x1b[Aup\x1bOBdown\r\n", want: []string{"updown"}},
		{name: "no terminator", input: "partial", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			got := lines(d.Feed([]byte(tt.input)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%q) lines = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecoderSplitAcrossReads(t *testing.T) {
	var d Decoder
	var got []string
	for _, chunk := range []string{"he", "llo\r", "\nwor", "ld\r", "\x00"} {
		got = append(got, lines(d.Feed([]byte(chunk)))...)
	}
	want := []string{"hello", "world"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestDecoderPending(t *testing.T) {
	var d Decoder
	events := d.Feed([]byte("stat"))
	if got := kinds(events); !reflect.DeepEqual(got, []EventKind{EventEdit}) {
		t.Errorf("Feed() kinds = %v, want [EventEdit]", got)
	}
	if got := d.Pending(); got != "stat" {
		t.Errorf("Pending() = %q, want %q", got, "stat")
	}
	d.Feed([]byte("us\r\n"))
	if got := d.Pending(); got != "" {
		t.Errorf("Pending() after Enter = %q, want empty", got)
	}
}

func TestDecoderResize(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantRows int
		wantCols int
	}{
		{
			name:     "naws",
			input:    []byte{telnetIAC, telnetSB, optNAWS, 0, 80, 0, 24, telnetIAC, telnetSE},
			wantRows: 24,
			wantCols: 80,
		},
		{
			name:     "naws wide",
			input:    []byte{telnetIAC, telnetSB, optNAWS, 1, 44, 0, 50, telnetIAC, telnetSE},
			wantRows: 50,
			wantCols: 300,
		},
		{
			name:     "naws escaped 255",
			input:    []byte{telnetIAC, telnetSB, optNAWS, 0, telnetIAC, telnetIAC, 0, 30, telnetIAC, telnetSE},
			wantRows: 30,
			wantCols: 255,
		},
		{
			name:     "cursor position report",
			input:    []byte("\x1b[24;80R"),
			wantRows: 24,
			wantCols: 80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			events := d.Feed(tt.input)
			if len(events) != 1 || events[0].Kind != EventResize {
				t.Fatalf("Feed() = %+v, want one resize event", events)
			}
			if events[0].Rows != tt.wantRows || events[0].Cols != tt.wantCols {
				t.Errorf("resize = %dx%d, want %dx%d", events[0].Rows, events[0].Cols, tt.wantRows, tt.wantCols)
			}
		})
	}
}

func TestDecoderMalformedReportsIgnored(t *testing.T) {
	inputs := [][]byte{
		[]byte("\x1b[24R"),
		[]byte("\x1b[1;R"),
		[]byte("\x1b[;R"),
		{telnetIAC, telnetSB, optNAWS, 0, 80, telnetIAC, telnetSE},
		{telnetIAC, telnetSB, optEcho, 0, 80, 0, 24, telnetIAC, telnetSE},
	}
	for _, in := range inputs {
		var d Decoder
		if events := d.Feed(in); len(events) != 0 {
			t.Errorf("Feed(%q) = %+v, want no events", in, events)
		}
	}
}

func TestDecoderLineLimit(t *testing.T) {
	var d Decoder
	d.Feed([]byte(strings.Repeat("x", 3*MaxLineBytes)))

	if got := len(d.Pending()); got != MaxLineBytes {
		t.Fatalf("len(Pending()) = %d, want %d", got, MaxLineBytes)
	}
	if events := d.Feed([]byte("y")); len(events) != 0 {
		t.Errorf("Feed() on a full line = %+v, want no events", events)
	}

	events := d.Feed([]byte("\r\nok\r\n"))
	if len(events) != 2 || events[1].Line != "ok" {
		t.Fatalf("Feed() = %+v, want the full line then %q", events, "ok")
	}
	if got := len(events[0].Line); got != MaxLineBytes {
		t.Errorf("len(line) = %d, want %d", got, MaxLineBytes)
	}
}

func TestDecoderOversizedSequences(t *testing.T) {
	var d Decoder

	csi := "\x1b[" + strings.Repeat("9", 4*maxCSI) + ";80R"
	if events := d.Feed([]byte(csi)); len(events) != 0 {
		t.Errorf("Feed(long CSI) = %+v, want no events", events)
	}

	sb := []byte{telnetIAC, telnetSB, optNAWS}
	sb = append(sb, make([]byte, 4*maxSubneg)...)
	sb = append(sb, telnetIAC, telnetSE)
	if events := d.Feed(sb); len(events) != 0 {
		t.Errorf("Feed(long subnegotiation) = %+v, want no events", events)
	}
	if len(d.sb) > maxSubneg || len(d.csi) > maxCSI {
		t.Errorf("buffers grew to sb=%d csi=%d", len(d.sb), len(d.csi))
	}

	events := d.Feed([]byte("hi\r"))
	if len(events) != 1 || events[0].Kind != EventLine || events[0].Line != "hi" {
		t.Errorf("Feed() after oversized sequences = %+v, want line %q", events, "hi")
	}
}

func TestDecoderTabAndEOF(t *testing.T) {
	var d Decoder
	if got := kinds(d.Feed([]byte("\t"))); !reflect.DeepEqual(got, []EventKind{EventTab}) {
		t.Errorf("tab kinds = %v, want [EventTab]", got)
	}
	if got := kinds(d.Feed([]byte{0x04})); !reflect.DeepEqual(got, []EventKind{EventEOF}) {
		t.Errorf("ctrl-d kinds = %v, want [EventEOF]", got)
	}

	d.Feed([]byte("x"))
	if got := kinds(d.Feed([]byte{0x04})); len(got) != 0 {
		t.Errorf("ctrl-d with pending input kinds = %v, want none", got)
	}
}

func TestCheckSize(t *testing.T) {
	tests := []struct {
		rows, cols int
		wantErr    bool
	}{
		{24, 80, false},
		{10, 40, false},
		{9, 80, true},
		{24, 39, true},
		{0, 0, true},
	}
	for _, tt := range tests {
		err := CheckSize(tt.rows, tt.cols)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckSize(%d, %d) error = %v, wantErr %v", tt.rows, tt.cols, err, tt.wantErr)
		}
	}
}
