// Package crypto narrows the hash primitive the validator core depends on
// to a single interface, so the core never imports a hash implementation
// directly.
package crypto

// CryptoProvider is the narrow crypto interface used by the validator core.
// The host verification machine is expected to expose an equivalent
// primitive; this interface exists so the core can be tested against a
// plain Go implementation without depending on the host syscall ABI.
type CryptoProvider interface {
	// Blake2b256 returns the 32-byte BLAKE2b-256 digest of input, with no
	// key and no personalization. Callers that need domain separation
	// prepend a tag byte to input themselves (see validator/keys.go).
	Blake2b256(input []byte) [32]byte
}
