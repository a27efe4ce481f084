// Package gateway holds the tool registry and the dispatcher that turns
// every tool invocation outcome, success or failure, into one uniform
// text envelope.
package gateway

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is one item of envelope content. Every tool here emits
// exactly one text block.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Envelope is the universal tool-call result shape. There is deliberately no
// distinct error transport type: failures are serialized into the same
// envelope as a JSON payload containing an "error" field, so callers can
// always parse what comes back.
type Envelope struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextEnvelope wraps pre-rendered text in an envelope.
func TextEnvelope(text string) Envelope {
	return Envelope{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// JSONEnvelope pretty-prints a domain result into an envelope. Key order is
// stable: struct fields marshal in declaration order and maps sort by key.
func JSONEnvelope(payload any) (Envelope, error) {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Envelope{}, fmt.Errorf("gateway: encode result payload: %w", err)
	}
	return TextEnvelope(string(text)), nil
}

// errorEnvelope renders a failure payload. It never fails: payloads are built
// from map[string]any and plain strings.
func errorEnvelope(payload map[string]any) Envelope {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		// Payloads are maps of JSON-safe values; this path is unreachable in
		// practice but still yields a well-formed envelope.
		text = []byte(fmt.Sprintf(`{"error": %q}`, fmt.Sprint(payload["error"])))
	}
	env := TextEnvelope(string(text))
	env.IsError = true
	return env
}
