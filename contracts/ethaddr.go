package contracts

import "gw.dev/validator"

// ethAddrFlag / scriptHashFlag tag the two directions of the eth address
// registry's KV space, the same flag-byte-prefix convention Sudt uses for
// its balance keys.
const (
	ethAddrFlag   byte = 1
	scriptHashFlag byte = 2
)

// EthAddrRegistry wraps a Context scoped to the eth-address-registry
// account, implementing the two-way eth_address <-> script_hash mapping
// of original_source/eth_addr_reg.c (spec SPEC_FULL.md §4.10): register
// once, then look up in either direction, with a short-hash fallback on
// forward (address-first) miss.
type EthAddrRegistry struct {
	Ctx *validator.Context
	Id  validator.AccountId
}

func ethAddrKey(ethAddr []byte) []byte {
	key := make([]byte, 0, 1+len(ethAddr))
	key = append(key, ethAddrFlag)
	return append(key, ethAddr...)
}

func scriptHashKey(scriptHash validator.Hash) []byte {
	key := make([]byte, 0, 1+32)
	key = append(key, scriptHashFlag)
	return append(key, scriptHash[:]...)
}

// Register records both directions of the mapping.
func (r EthAddrRegistry) Register(ethAddr []byte, scriptHash validator.Hash) error {
	if err := r.Ctx.Store(r.Id, ethAddrKey(ethAddr), scriptHash); err != nil {
		return err
	}
	var ethValue validator.Value
	copy(ethValue[:], ethAddr)
	return r.Ctx.Store(r.Id, scriptHashKey(scriptHash), ethValue)
}

// ScriptHashByEthAddress looks up the forward direction: a registered
// eth_address -> script_hash entry, falling back to a short-hash scan of
// the witness script table on miss (the registry may not have been
// populated for every account reachable by its short hash).
func (r EthAddrRegistry) ScriptHashByEthAddress(ethAddr []byte) (validator.Hash, error) {
	v, err := r.Ctx.Load(r.Id, ethAddrKey(ethAddr))
	if err == nil {
		return v, nil
	}
	if validator.CodeOf(err) != validator.NotFound {
		return validator.Hash{}, err
	}
	return r.Ctx.GetScriptHashByPrefix(ethAddr)
}

// EthAddressByScriptHash looks up the reverse direction.
func (r EthAddrRegistry) EthAddressByScriptHash(scriptHash validator.Hash) ([]byte, error) {
	v, err := r.Ctx.Load(r.Id, scriptHashKey(scriptHash))
	if err != nil {
		return nil, err
	}
	return trimTrailingZeros(v[:]), nil
}

func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return append([]byte(nil), b[:end]...)
}
