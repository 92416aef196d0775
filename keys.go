package validator

import (
	"encoding/binary"

	"gw.dev/validator/crypto"
)

// Hash, Key and Value are 32-byte values per spec §3.1. A zero Hash means
// "absent"; a zero Value means "deleted/absent" in the SMT.
type Hash = [32]byte
type Key = [32]byte
type Value = [32]byte

// AccountId identifies an account. 0 is reserved for the meta contract.
type AccountId = uint32

// Field tags for the account-field key kinds of §3.2. These two kinds are
// deliberately unhashed so the first 4 bytes of the key sort by account id
// (spec §3.2: "deliberately unhashed... sortable by account id").
const (
	fieldNonce      byte = 0x01
	fieldScriptHash byte = 0x02
)

// kvDomain tags, used as the pre-image prefix byte for hashed key kinds.
const (
	domainAccountKV        byte = 0x00
	domainScriptHashToId    byte = 0x03
	domainDataHashPresence  byte = 0x04
	domainShortHashToScript byte = 0x05
)

// KeySchema derives the 32-byte SMT keys for every kind named in spec §3.2.
// It is the only place the domain-separation tags live; callers never
// build a raw key by hand.
type KeySchema struct {
	Crypto crypto.CryptoProvider
}

func NewKeySchema(c crypto.CryptoProvider) KeySchema {
	return KeySchema{Crypto: c}
}

// AccountKVKey derives the key for an account's user-defined KV pair:
// H(id_LE32 || 0x00 || user_key_bytes).
func (s KeySchema) AccountKVKey(id AccountId, userKey []byte) Key {
	buf := make([]byte, 0, 4+1+len(userKey))
	buf = appendU32LE(buf, id)
	buf = append(buf, domainAccountKV)
	buf = append(buf, userKey...)
	return s.Crypto.Blake2b256(buf)
}

// AccountNonceKey derives the unhashed account-nonce field key:
// id_LE32 || 0x01 || 27 zero bytes.
func (s KeySchema) AccountNonceKey(id AccountId) Key {
	var out Key
	binary.LittleEndian.PutUint32(out[0:4], id)
	out[4] = fieldNonce
	return out
}

// AccountScriptHashKey derives the unhashed account-script-hash field key:
// id_LE32 || 0x02 || 27 zero bytes.
func (s KeySchema) AccountScriptHashKey(id AccountId) Key {
	var out Key
	binary.LittleEndian.PutUint32(out[0:4], id)
	out[4] = fieldScriptHash
	return out
}

// ScriptHashToIdKey derives the reverse-lookup key:
// H(0_LE32 || 0x03 || script_hash).
func (s KeySchema) ScriptHashToIdKey(scriptHash Hash) Key {
	buf := make([]byte, 0, 4+1+32)
	buf = appendU32LE(buf, 0)
	buf = append(buf, domainScriptHashToId)
	buf = append(buf, scriptHash[:]...)
	return s.Crypto.Blake2b256(buf)
}

// DataHashPresenceKey derives the store_data presence key:
// H(0_LE32 || 0x04 || data_hash).
func (s KeySchema) DataHashPresenceKey(dataHash Hash) Key {
	buf := make([]byte, 0, 4+1+32)
	buf = appendU32LE(buf, 0)
	buf = append(buf, domainDataHashPresence)
	buf = append(buf, dataHash[:]...)
	return s.Crypto.Blake2b256(buf)
}

// ShortHashToScriptKey derives the short-hash lookup key:
// H(0_LE32 || 0x05 || len_LE32 || short_hash).
func (s KeySchema) ShortHashToScriptKey(shortHash []byte) Key {
	buf := make([]byte, 0, 4+1+4+len(shortHash))
	buf = appendU32LE(buf, 0)
	buf = append(buf, domainShortHashToScript)
	buf = appendU32LE(buf, uint32(len(shortHash)))
	buf = append(buf, shortHash...)
	return s.Crypto.Blake2b256(buf)
}

// BlockHashKey derives the unhashed block-hash-by-number key:
// number_LE64 || 24 zero bytes.
func (s KeySchema) BlockHashKey(number uint64) Key {
	var out Key
	binary.LittleEndian.PutUint64(out[0:8], number)
	return out
}

func appendU32LE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// compareKeysBE orders two keys by byte sequence taken from byte 31 down to
// byte 0 (spec §4.1, §3.1's "big-endian byte comparison"): key bit i lives
// in byte i/8, so byte 0 holds the least-significant bits and byte 31 the
// most-significant — comparing by magnitude means starting at byte 31, the
// same direction as the original's _gw_pair_cmp (original_source/c/gw_smt.h).
func compareKeysBE(a, b Key) int {
	for i := 31; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
