package domain

import (
	"encoding/json"
	"fmt"
)

// StateDocument is a source connector's resumption checkpoint: an opaque
// JSON value persisted after a successful run and handed back to the
// source on the next one.
type StateDocument struct {
	raw json.RawMessage
}

// NewStateDocument wraps a raw JSON value as a state document, validating
// that it parses.
func NewStateDocument(raw []byte) (StateDocument, error) {
	if !json.Valid(raw) {
		return StateDocument{}, fmt.Errorf("%w: not valid JSON", ErrStateUnreadable)
	}
	doc := make(json.RawMessage, len(raw))
	copy(doc, raw)
	return StateDocument{raw: doc}, nil
}

// JSON returns the document's raw JSON bytes.
func (d StateDocument) JSON() json.RawMessage {
	return d.raw
}

// Empty reports whether the document holds no checkpoint.
func (d StateDocument) Empty() bool {
	return len(d.raw) == 0
}

// StateAccumulator folds the STATE messages of one run into the final
// checkpoint. Stream-scoped states are kept last-write-wins per stream;
// global states replace each other wholesale. The final document is the
// per-stream map when any stream state was seen, otherwise the last global
// state.
type StateAccumulator struct {
	streams map[string]json.RawMessage
	global  json.RawMessage
	seen    bool
}

// NewStateAccumulator returns an empty accumulator.
func NewStateAccumulator() *StateAccumulator {
	return &StateAccumulator{streams: make(map[string]json.RawMessage)}
}

// Apply folds one STATE message into the accumulator. Messages are applied
// in emission order, so "latest" is well defined as the last one applied.
func (a *StateAccumulator) Apply(st *State) {
	if st == nil {
		return
	}
	a.seen = true
	if name := st.StreamName(); name != "" {
		a.streams[name] = st.Checkpoint()
		return
	}
	if len(st.Data) > 0 {
		a.global = st.Data
	}
}

// Seen reports whether any STATE message was applied.
func (a *StateAccumulator) Seen() bool {
	return a.seen
}

// Document returns the accumulated checkpoint, or false when no STATE
// message was seen. Map keys marshal in sorted order, so the output is
// deterministic for a given set of stream states.
func (a *StateAccumulator) Document() (StateDocument, bool) {
	if !a.seen {
		return StateDocument{}, false
	}
	if len(a.streams) > 0 {
		raw, err := json.Marshal(a.streams)
		if err != nil {
			return StateDocument{}, false
		}
		return StateDocument{raw: raw}, true
	}
	if len(a.global) > 0 {
		return StateDocument{raw: a.global}, true
	}
	// STATE seen but carrying no data: persist an empty checkpoint.
	return StateDocument{raw: json.RawMessage("{}")}, true
}
