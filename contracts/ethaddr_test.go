package contracts

import (
	"testing"

	"gw.dev/validator"
	"gw.dev/validator/molecule"
)

func TestEthAddrRegistryRegisterAndLookupBothDirections(t *testing.T) {
	ctx := newTestContext(t, 2)
	r := EthAddrRegistry{Ctx: ctx, Id: 2}

	ethAddr := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14}
	var scriptHash validator.Hash
	scriptHash[0] = 0xAB

	if err := r.Register(ethAddr, scriptHash); err != nil {
		t.Fatalf("Register() = %v", err)
	}

	gotHash, err := r.ScriptHashByEthAddress(ethAddr)
	if err != nil {
		t.Fatalf("ScriptHashByEthAddress() = %v", err)
	}
	if gotHash != scriptHash {
		t.Fatalf("ScriptHashByEthAddress() = %x, want %x", gotHash, scriptHash)
	}

	gotAddr, err := r.EthAddressByScriptHash(scriptHash)
	if err != nil {
		t.Fatalf("EthAddressByScriptHash() = %v", err)
	}
	if string(gotAddr) != string(ethAddr) {
		t.Fatalf("EthAddressByScriptHash() = %x, want %x", gotAddr, ethAddr)
	}
}

func TestEthAddrRegistryForwardMissFallsBackToShortHashPrefix(t *testing.T) {
	ctx := newTestContext(t, 2)
	r := EthAddrRegistry{Ctx: ctx, Id: 2}

	var eoaScript molecule.Script
	eoaScript.CodeHash[0] = 0x42
	eoaScript.HashType = molecule.HashTypeType
	eoaScript.Args = []byte{0x01}
	ctx.RollupConfig = molecule.RollupConfig{AllowedEoaTypeHashes: [][32]byte{eoaScript.CodeHash}}
	if _, err := ctx.Create(eoaScript.Encode()); err != nil {
		t.Fatalf("Create() = %v", err)
	}
	scriptHash := ctx.Crypto.Blake2b256(eoaScript.Encode())

	gotHash, err := r.ScriptHashByEthAddress(scriptHash[:8])
	if err != nil {
		t.Fatalf("ScriptHashByEthAddress() fallback = %v", err)
	}
	if gotHash != scriptHash {
		t.Fatalf("ScriptHashByEthAddress() fallback = %x, want %x", gotHash, scriptHash)
	}
}

func TestEthAddrRegistryForwardMissNoFallbackIsNotFound(t *testing.T) {
	ctx := newTestContext(t, 2)
	r := EthAddrRegistry{Ctx: ctx, Id: 2}

	if _, err := r.ScriptHashByEthAddress([]byte{0x99}); validator.CodeOf(err) != validator.NotFound {
		t.Fatalf("ScriptHashByEthAddress() miss code = %v, want NotFound", validator.CodeOf(err))
	}
}
