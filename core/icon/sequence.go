package icon

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	errSequenceLen       = errors.Errorf("a registration code has exactly %d icons", SequenceLen)
	errSequenceRange     = errors.Errorf("icons must be between 1 and %d", len(Catalog))
	errSequenceDuplicate = errors.New("icons of a registration code must all be different")
)

// Sequence is a student's passcode. The order is the credential:
// a Sequence is never sorted, only replaced as a whole.
type Sequence []ID

// IconSequence is the passcode generated for a student name.
type IconSequence struct {
	StudentName string   `json:"student_name"`
	Sequence    Sequence `json:"icon_sequence"`
}

// UnmarshalJSON accepts an array of ids or the comma-joined wire form.
// Anything else decodes as an empty Sequence, so one odd record never fails a listing.
func (seq *Sequence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*seq = nil
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var ids []ID
		if err := json.Unmarshal(data, &ids); err == nil && len(ids) > 0 {
			*seq = ids
		}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if parsed, err := ParseSequence(s); err == nil {
			*seq = parsed
		}
	}
	return nil
}

func (seq Sequence) Empty() bool { return len(seq) == 0 }

// Validate checks the shape of a passcode: 4 distinct catalog ids.
func (seq Sequence) Validate() error {
	if len(seq) != SequenceLen {
		return errSequenceLen
	}
	seen := make(map[ID]bool, len(seq))
	for _, id := range seq {
		if !id.Valid() {
			return errSequenceRange
		}
		if seen[id] {
			return errSequenceDuplicate
		}
		seen[id] = true
	}
	return nil
}

// String is the wire form: ids joined by ", ", in order.
func (seq Sequence) String() string {
	parts := make([]string, len(seq))
	for i, id := range seq {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ", ")
}

// Glyphs returns the emoji of each icon, in order.
func (seq Sequence) Glyphs() []string {
	glyphs := make([]string, len(seq))
	for i, id := range seq {
		glyphs[i] = Glyph(id)
	}
	return glyphs
}

// Equal compares ids position by position.
func (seq Sequence) Equal(other Sequence) bool {
	if len(seq) != len(other) {
		return false
	}
	for i := range seq {
		if seq[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share the backing array.
func (seq Sequence) Clone() Sequence {
	if seq == nil {
		return nil
	}
	return append(Sequence(nil), seq...)
}

// ParseSequence reads the wire form ("5, 1, 19, 3"). Blank input is an empty Sequence.
// The result is not validated.
func ParseSequence(s string) (Sequence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	seq := make(Sequence, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Errorf("invalid icon id %q", strings.TrimSpace(p))
		}
		seq = append(seq, ID(n))
	}
	return seq, nil
}
