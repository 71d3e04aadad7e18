package seglog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is a single immutable audit event. Details is a free-form mapping;
// keys unknown to this build survive decode/encode round-trips untouched.
type Record struct {
	Sequence  uint64         `json:"seq"`
	Timestamp time.Time      `json:"ts"`
	Kind      string         `json:"kind"`
	EntityID  string         `json:"entity_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Signature string         `json:"sig,omitempty"`
}

// ErrCorruptRecord marks a line that cannot be decoded, typically the
// partially written tail of a segment after a crash. Scans stop at the first
// corrupt line instead of failing.
var ErrCorruptRecord = errors.New("corrupt record")

// EncodeRecord serializes one record as a newline-terminated JSON line.
// Concatenating encoded records and splitting on '\n' recovers the sequence.
func EncodeRecord(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record seq=%d: %w", rec.Sequence, err)
	}
	return append(b, '\n'), nil
}

// DecodeRecord parses one line back into a Record.
func DecodeRecord(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, ErrCorruptRecord
	}
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Kind == "" {
		return Record{}, fmt.Errorf("%w: missing kind", ErrCorruptRecord)
	}
	return rec, nil
}

// CanonicalBytes returns a deterministic serialization of the record with the
// signature field excluded, used as HMAC input. encoding/json sorts map keys
// at every level, so equal records always canonicalize identically.
func CanonicalBytes(rec Record) []byte {
	m := map[string]any{
		"seq":  rec.Sequence,
		"ts":   rec.Timestamp,
		"kind": rec.Kind,
	}
	if rec.EntityID != "" {
		m["entity_id"] = rec.EntityID
	}
	if len(rec.Details) > 0 {
		m["details"] = rec.Details
	}
	b, err := json.Marshal(m)
	if err != nil {
		// Details already passed an encode on entry; treat as unreachable.
		return nil
	}
	return b
}
