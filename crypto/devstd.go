package crypto

import "golang.org/x/crypto/blake2b"

// DevStdCryptoProvider implements CryptoProvider on top of the standard
// golang.org/x/crypto BLAKE2b-256 implementation, unkeyed and
// unpersonalized. It is the provider used by both the CLI and the test
// suite; a host verification machine is free to substitute a native
// implementation behind the same interface.
type DevStdCryptoProvider struct{}

func (p DevStdCryptoProvider) Blake2b256(input []byte) [32]byte {
	return blake2b.Sum256(input)
}
