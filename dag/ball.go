package dag

import "sort"

// Ball is the commitment a unit receives once it is stable: a hash over
// the unit id plus its resolved parent/skiplist balls and nonserial flag
// (spec §4.2, §6.3). Balls are what catchup's witness-proof and hash-tree
// protocols exchange instead of full units.
type Ball struct {
	BallID        string   `json:"ball,omitempty"`
	UnitID        string   `json:"unit"`
	ParentBalls   []string `json:"parent_balls,omitempty"`
	SkiplistBalls []string `json:"skiplist_balls,omitempty"`
	IsNonserial   bool     `json:"is_nonserial,omitempty"`
}

// HashPreimage builds the canonical object ball hashing is over:
// {unit, parent_balls (sorted, omitted if empty), skiplist_balls (sorted,
// omitted if empty), is_nonserial (present iff true)} (spec §4.2).
func (b *Ball) HashPreimage() map[string]any {
	m := map[string]any{"unit": b.UnitID}
	if len(b.ParentBalls) > 0 {
		pb := append([]string(nil), b.ParentBalls...)
		sort.Strings(pb)
		m["parent_balls"] = stringsToAny(pb)
	}
	if len(b.SkiplistBalls) > 0 {
		sb := append([]string(nil), b.SkiplistBalls...)
		sort.Strings(sb)
		m["skiplist_balls"] = stringsToAny(sb)
	}
	if b.IsNonserial {
		m["is_nonserial"] = true
	}
	return m
}

// DeriveBallID computes BallID from the ball's current fields.
func (b *Ball) DeriveBallID(p HashProvider) (string, error) {
	return Hash(p, b.HashPreimage())
}
