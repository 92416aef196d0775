package validator

import (
	"sort"
)

// MaxTxKVPairs and MaxBlockHashPairs are the capacity bounds of §3.3: at
// most 1024 KV pairs for transaction state, at most 256 for the
// block-hash cache.
const (
	MaxTxKVPairs      = 1024
	MaxBlockHashPairs = 256
)

// Pair is a single (key, value, order) triple. Ownership is exclusive to
// the State that holds it (§3.3); pairs never outlive a single
// verification run.
type Pair struct {
	Key   Key
	Value Value
	Order uint32
}

// State is the append-only KV overlay of §4.2. Before normalize, late
// writes shadow earlier writes with an equal key (last-wins read); after
// normalize, pairs are in strictly ascending key order with no
// duplicates.
//
// This mirrors the teacher's connect_block_inmem.go idiom of building up a
// working set with bounded mutation, generalized from a map (UTXO set,
// unordered) to an ordered slice, because SMT proof replay needs the
// post-normalize ascending order (spec §3.3: "Ordering is used only for
// SMT proof replay — not for insertion semantics").
type State struct {
	pairs    []Pair
	capacity int
	sealed   bool
}

// NewState creates an empty overlay with the given capacity bound.
func NewState(capacity int) *State {
	return &State{pairs: make([]Pair, 0, capacity), capacity: capacity}
}

// Len reports the number of pairs currently held (pre- or post-normalize).
func (s *State) Len() int { return len(s.pairs) }

// Insert appends (key, value) if capacity remains; otherwise it scans
// newest-to-oldest for an existing key and overwrites in place. If the
// buffer is full and no match is found, it fails with FatalBufferOverflow
// (spec §4.2).
func (s *State) Insert(key Key, value Value) error {
	s.sealed = false
	if len(s.pairs) < s.capacity {
		s.pairs = append(s.pairs, Pair{Key: key, Value: value, Order: uint32(len(s.pairs))})
		return nil
	}
	for i := len(s.pairs) - 1; i >= 0; i-- {
		if s.pairs[i].Key == key {
			s.pairs[i].Value = value
			return nil
		}
	}
	return newErr(FatalBufferOverflow, "kv overlay at capacity and key not present")
}

// Fetch scans newest-to-oldest and copies the value on first match. A
// miss returns NotFound (recoverable — §6.3: absence in the overlay's
// address space is a normal outcome, not a context defect).
func (s *State) Fetch(key Key) (Value, error) {
	for i := len(s.pairs) - 1; i >= 0; i-- {
		if s.pairs[i].Key == key {
			return s.pairs[i].Value, nil
		}
	}
	return Value{}, newErr(NotFound, "key not present in kv overlay")
}

// Normalize assigns order := N-i (newer pairs get smaller order), then
// stable-sorts by (key big-endian, then order), then drops any pair whose
// key equals its predecessor's. The result is the newest write for every
// key in strictly ascending key order — normalize(normalize(s)) ==
// normalize(s) (property §8.1.3): a call with no Insert since the previous
// Normalize returns without touching the pairs, so their keys, values and
// orders stay as the first pass left them.
func (s *State) Normalize() {
	if s.sealed {
		return
	}
	n := len(s.pairs)
	for i := range s.pairs {
		s.pairs[i].Order = uint32(n - i)
	}
	sort.SliceStable(s.pairs, func(i, j int) bool {
		c := compareKeysBE(s.pairs[i].Key, s.pairs[j].Key)
		if c != 0 {
			return c < 0
		}
		return s.pairs[i].Order < s.pairs[j].Order
	})
	out := s.pairs[:0:0]
	for i, p := range s.pairs {
		if i > 0 && p.Key == s.pairs[i-1].Key {
			continue
		}
		out = append(out, p)
	}
	s.pairs = out
	s.sealed = true
}

// Pairs returns the current (possibly normalized) pairs. The returned
// slice must not be mutated by the caller.
func (s *State) Pairs() []Pair { return s.pairs }

// Normalized reports whether Normalize has been called since the last
// mutation-free window; the SMT verifier requires the overlay be
// normalized before proof replay (spec §4.3 step 8, §4.6 step 4).
func (s *State) Normalized() bool { return s.sealed }
