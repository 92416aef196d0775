package validator

import (
	"testing"

	"gw.dev/validator/crypto"
)

func key(b byte) Key {
	var k Key
	k[31] = b
	return k
}

func val(b byte) Value {
	var v Value
	v[0] = b
	return v
}

func TestStateInsertLateWins(t *testing.T) {
	s := NewState(8)
	if err := s.Insert(key(1), val(1)); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := s.Insert(key(1), val(2)); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	got, err := s.Fetch(key(1))
	if err != nil {
		t.Fatalf("Fetch() = %v", err)
	}
	if got != val(2) {
		t.Fatalf("Fetch() = %x, want late write %x", got, val(2))
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 pre-normalize (append-only)", s.Len())
	}
}

func TestStateFetchMiss(t *testing.T) {
	s := NewState(4)
	_, err := s.Fetch(key(9))
	if CodeOf(err) != NotFound {
		t.Fatalf("Fetch() code = %v, want NotFound", CodeOf(err))
	}
}

func TestStateCapacityOverflow(t *testing.T) {
	s := NewState(1)
	if err := s.Insert(key(1), val(1)); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := s.Insert(key(2), val(2)); CodeOf(err) != FatalBufferOverflow {
		t.Fatalf("Insert() at capacity with new key code = %v, want FatalBufferOverflow", CodeOf(err))
	}
	// Overwriting the existing key at capacity must still succeed.
	if err := s.Insert(key(1), val(3)); err != nil {
		t.Fatalf("Insert() overwrite at capacity = %v, want nil", err)
	}
}

func TestStateNormalizeDedupesAndSorts(t *testing.T) {
	s := NewState(8)
	_ = s.Insert(key(3), val(1))
	_ = s.Insert(key(1), val(1))
	_ = s.Insert(key(3), val(2)) // later write to key(3) should survive
	_ = s.Insert(key(2), val(1))

	s.Normalize()
	pairs := s.Pairs()
	if len(pairs) != 3 {
		t.Fatalf("Pairs() len = %d, want 3 (deduped)", len(pairs))
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].Key[31] >= pairs[i].Key[31] {
			t.Fatalf("Pairs() not strictly ascending at %d: %v", i, pairs)
		}
	}
	for _, p := range pairs {
		if p.Key == key(3) && p.Value != val(2) {
			t.Fatalf("key(3) survived with %x, want newest write %x", p.Value, val(2))
		}
	}
}

func TestStateNormalizeOrdersByByte31DownToByte0(t *testing.T) {
	// AccountNonceKey LE-encodes the account id into bytes 0-3, so two
	// nonce keys that differ only in that low-order range are exactly the
	// case bytes.Compare (byte-0-first) gets backwards: id=1 has byte0=1,
	// byte1=0; id=256 has byte0=0, byte1=1. Scanning from byte 31 down, the
	// first difference is at byte 1, where id=256's key is larger — so
	// id=256's key must sort after id=1's (spec §3.2 "sortable by account
	// id"). A byte-0-first comparator sees the difference at byte 0 first
	// and orders them the other way around.
	s := NewKeySchema(crypto.DevStdCryptoProvider{})
	keyLow := s.AccountNonceKey(1)
	keyHigh := s.AccountNonceKey(256)

	st := NewState(8)
	_ = st.Insert(keyHigh, val(1))
	_ = st.Insert(keyLow, val(2))
	st.Normalize()

	pairs := st.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("Pairs() len = %d, want 2", len(pairs))
	}
	if pairs[0].Key != keyLow || pairs[1].Key != keyHigh {
		t.Fatalf("Pairs() = %v, want AccountNonceKey(1) before AccountNonceKey(256)", pairs)
	}
}

func TestStateNormalizeIsIdempotent(t *testing.T) {
	s := NewState(8)
	_ = s.Insert(key(2), val(1))
	_ = s.Insert(key(1), val(1))
	s.Normalize()
	first := append([]Pair(nil), s.Pairs()...)
	s.Normalize()
	second := s.Pairs()
	if len(first) != len(second) {
		t.Fatalf("second Normalize() changed length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("second Normalize() changed pair %d: %v vs %v", i, first[i], second[i])
		}
	}
}
