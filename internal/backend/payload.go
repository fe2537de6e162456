package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags a structured payload.
type Kind string

// KindStatus is the only structured payload kind the gateway consumes.
const KindStatus Kind = "STATUS"

// payloadPrefix introduces a structured line: "@@<KIND> <json>".
const payloadPrefix = "@@"

// StatusPayload is the decoded body of a STATUS payload.
type StatusPayload struct {
	// Text holds "info\nheader\n<separator>\ndetail...".
	Text string `json:"text"`

	// Clients has one slot per client seat; empty seats are null.
	Clients []map[string]any `json:"clients"`

	Map *MapInfo `json:"map,omitempty"`
}

// MapInfo is the nested map descriptor of a status payload.
type MapInfo struct {
	Name string `json:"name"`
}

// Payload is a structured backend message.
type Payload struct {
	Kind Kind
	Raw  json.RawMessage
}

// Status decodes the payload as a STATUS body.
func (p *Payload) Status() (*StatusPayload, error) {
	if p.Kind != KindStatus {
		return nil, fmt.Errorf("payload kind %q is not %q", p.Kind, KindStatus)
	}
	var status StatusPayload
	if err := json.Unmarshal(p.Raw, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status payload: %w", err)
	}
	return &status, nil
}

// parsePayload recognizes "@@KIND {json}" lines.
func parsePayload(line string) (*Payload, bool) {
	if !strings.HasPrefix(line, payloadPrefix) {
		return nil, false
	}
	kind, body, _ := strings.Cut(line[len(payloadPrefix):], " ")
	if kind == "" {
		return nil, false
	}
	return &Payload{Kind: Kind(kind), Raw: json.RawMessage(strings.TrimSpace(body))}, true
}

// FormatPayload renders a payload line as a backend would send it.
func FormatPayload(kind Kind, body any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return payloadPrefix + string(kind) + " " + string(data), nil
}
