package validator

import "math/big"

// Amount is an unsigned 256-bit integer, little-endian on the wire (§3.1).
// It wraps math/big the way the teacher's u128 type wraps two uint64 limbs
// for block_basic.go's subsidy accounting, generalized to 256 bits because
// sUDT balances need the full width.
type Amount struct {
	v *big.Int
}

var amountMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ZeroAmount is the additive identity.
func ZeroAmount() Amount { return Amount{v: new(big.Int)} }

// AmountFromUint64 lifts a uint64 into an Amount.
func AmountFromUint64(n uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(n)}
}

// AmountFromLE decodes a 32-byte little-endian unsigned integer.
func AmountFromLE(b [32]byte) Amount {
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = b[31-i]
	}
	return Amount{v: new(big.Int).SetBytes(be)}
}

// LE encodes the amount as a 32-byte little-endian unsigned integer. The
// caller must ensure the value fits in 256 bits (true for any Amount
// produced by this package, since Add/Sub are overflow-checked).
func (a Amount) LE() [32]byte {
	var out [32]byte
	if a.v == nil {
		return out
	}
	be := a.v.Bytes()
	for i := 0; i < len(be) && i < 32; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Cmp returns -1, 0, 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.big().Cmp(b.big()) }

// Add returns a+b, or AmountOverflow if the sum exceeds 2^256-1 — the
// 256-bit generalization of the teacher's addU64 overflow guard
// (consensus/util.go, consensus/block_basic.go).
func (a Amount) Add(b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.big(), b.big())
	if sum.Cmp(amountMax) > 0 {
		return Amount{}, newErr(AmountOverflow, "sudt amount addition overflows u256")
	}
	return Amount{v: sum}, nil
}

// Sub returns a-b, or InsufficientBalance if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.big().Cmp(b.big()) < 0 {
		return Amount{}, newErr(InsufficientBalance, "sudt amount subtraction underflows")
	}
	return Amount{v: new(big.Int).Sub(a.big(), b.big())}, nil
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.big().Sign() == 0 }
