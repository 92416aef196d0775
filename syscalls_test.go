package validator

import (
	"testing"

	"gw.dev/validator/crypto"
	"gw.dev/validator/hostio"
	"gw.dev/validator/molecule"
)

func newSyscallContext(t *testing.T, host hostio.Host) *Context {
	t.Helper()
	c := crypto.DevStdCryptoProvider{}
	return newContext(c, host)
}

func testScript(tag byte) molecule.Script {
	var s molecule.Script
	s.CodeHash[0] = tag
	s.HashType = molecule.HashTypeType
	s.Args = []byte{tag, tag}
	return s
}

func TestCreateAssignsSequentialIdsAndRegistersReverseLookup(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	ctx.RollupConfig = molecule.RollupConfig{AllowedEoaTypeHashes: [][32]byte{testScript(1).CodeHash}}

	id0, err := ctx.Create(testScript(1).Encode())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if id0 != 0 {
		t.Fatalf("Create() first id = %d, want 0", id0)
	}

	id1, err := ctx.Create(testScript(1).Encode())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if id1 != 1 {
		t.Fatalf("Create() second id = %d, want 1", id1)
	}

	nonce, err := ctx.GetAccountNonce(id0)
	if err != nil || nonce != 0 {
		t.Fatalf("GetAccountNonce(id0) = %d, %v, want 0, nil", nonce, err)
	}

	scriptHash := ctx.Crypto.Blake2b256(testScript(1).Encode())
	gotId, err := ctx.GetAccountIdByScriptHash(scriptHash)
	if err != nil {
		t.Fatalf("GetAccountIdByScriptHash() = %v", err)
	}
	if gotId != id0 {
		t.Fatalf("GetAccountIdByScriptHash() = %d, want %d (first registrant wins)", gotId, id0)
	}
}

func TestCreateRejectsDisallowedScript(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	ctx.RollupConfig = molecule.RollupConfig{}

	if _, err := ctx.Create(testScript(9).Encode()); err == nil {
		t.Fatal("Create() with script matching no allow-list entry = nil, want error")
	}
}

func TestGetAccountIdByScriptHashMissIsNotFound(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	var h Hash
	h[0] = 0xAB
	if _, err := ctx.GetAccountIdByScriptHash(h); CodeOf(err) != NotFound {
		t.Fatalf("GetAccountIdByScriptHash() miss code = %v, want NotFound", CodeOf(err))
	}
}

func TestLoadAndStoreRoundTrip(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	ctx.RollupConfig = molecule.RollupConfig{AllowedEoaTypeHashes: [][32]byte{testScript(1).CodeHash}}
	id, err := ctx.Create(testScript(1).Encode())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	var v Value
	v[0] = 0x42
	if err := ctx.Store(id, []byte("k"), v); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	got, err := ctx.Load(id, []byte("k"))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if got != v {
		t.Fatalf("Load() = %x, want %x", got, v)
	}
}

func TestLoadOnNonexistentAccount(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	if _, err := ctx.Load(5, []byte("k")); CodeOf(err) != AccountNotExists {
		t.Fatalf("Load() on nonexistent account code = %v, want AccountNotExists", CodeOf(err))
	}
}

func TestGetAccountScriptSlicesByOffsetAndLength(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	script := testScript(1)
	ctx.RollupConfig = molecule.RollupConfig{AllowedEoaTypeHashes: [][32]byte{script.CodeHash}}
	id, err := ctx.Create(script.Encode())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	full := script.Encode()
	got, n, err := ctx.GetAccountScript(id, 0, len(full))
	if err != nil {
		t.Fatalf("GetAccountScript() = %v", err)
	}
	if n != len(full) || string(got) != string(full) {
		t.Fatalf("GetAccountScript() = %x (%d), want %x (%d)", got, n, full, len(full))
	}

	_, n, err = ctx.GetAccountScript(id, len(full)+10, 4)
	if err != nil {
		t.Fatalf("GetAccountScript() past end = %v, want nil", err)
	}
	if n != 0 {
		t.Fatalf("GetAccountScript() past end returned n = %d, want 0", n)
	}
}

func TestStoreDataRecordsPresence(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	data := []byte("payload")
	if err := ctx.StoreData(data); err != nil {
		t.Fatalf("StoreData() = %v", err)
	}
	dataHash := ctx.Crypto.Blake2b256(data)
	v, err := ctx.KVState.Fetch(ctx.Keys.DataHashPresenceKey(dataHash))
	if err != nil {
		t.Fatalf("Fetch() presence = %v", err)
	}
	if v[0] != 1 {
		t.Fatalf("presence value = %x, want flag byte 1", v)
	}
}

func TestLoadDataFindsMatchingCellDep(t *testing.T) {
	host := hostio.NewFixture()
	data := []byte("cell payload bytes")
	c := crypto.DevStdCryptoProvider{}
	dataHash := c.Blake2b256(data)
	host.CellDeps = append(host.CellDeps, hostio.Cell{Data: data, DataHash: dataHash})

	ctx := newSyscallContext(t, host)
	got, n, err := ctx.LoadData(dataHash, 5, 7)
	if err != nil {
		t.Fatalf("LoadData() = %v", err)
	}
	want := data[5:12]
	if n != len(want) || string(got) != string(want) {
		t.Fatalf("LoadData() = %q (%d), want %q (%d)", got, n, want, len(want))
	}
}

func TestLoadDataMissReturnsFatal(t *testing.T) {
	host := hostio.NewFixture()
	ctx := newSyscallContext(t, host)
	var missing Hash
	missing[0] = 0xFF
	if _, _, err := ctx.LoadData(missing, 0, 1); CodeOf(err) != FatalDataCellNotFound {
		t.Fatalf("LoadData() miss code = %v, want FatalDataCellNotFound", CodeOf(err))
	}
}

func TestGetBlockHashFetchesFromBlockHashOverlay(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	var want Hash
	want[0] = 0x77
	if err := ctx.BlockHashState.Insert(ctx.Keys.BlockHashKey(42), want); err != nil {
		t.Fatalf("seed block hash: %v", err)
	}
	got, err := ctx.GetBlockHash(42)
	if err != nil {
		t.Fatalf("GetBlockHash() = %v", err)
	}
	if got != want {
		t.Fatalf("GetBlockHash() = %x, want %x", got, want)
	}
}

func TestGetBlockHashMissIsNotFound(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	if _, err := ctx.GetBlockHash(7); CodeOf(err) != NotFound {
		t.Fatalf("GetBlockHash() miss code = %v, want NotFound", CodeOf(err))
	}
}

func TestGetScriptHashByPrefixMatchesShortPrefix(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	entry := ScriptEntry{Script: testScript(1)}
	entry.Hash[0], entry.Hash[1] = 0xAA, 0xBB
	if err := ctx.appendScriptEntry(entry); err != nil {
		t.Fatalf("appendScriptEntry() = %v", err)
	}

	got, err := ctx.GetScriptHashByPrefix([]byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("GetScriptHashByPrefix() = %v", err)
	}
	if got != entry.Hash {
		t.Fatalf("GetScriptHashByPrefix() = %x, want %x", got, entry.Hash)
	}
}

func TestGetScriptHashByPrefixMissIsNotFound(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	if _, err := ctx.GetScriptHashByPrefix([]byte{0x01}); CodeOf(err) != NotFound {
		t.Fatalf("GetScriptHashByPrefix() miss code = %v, want NotFound", CodeOf(err))
	}
}

func TestRecoverAccountMatchesLockDataAndWitness(t *testing.T) {
	host := hostio.NewFixture()
	lock := testScript(3)
	var message [32]byte
	message[0] = 0x01
	signature := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	data := make([]byte, 64)
	copy(data[32:64], message[:])
	host.Inputs = append(host.Inputs, hostio.Cell{Data: data, Lock: lock})
	wargs := molecule.WitnessArgs{Lock: signature, HasLock: true}
	host.SetWitness(hostio.SourceInput, 0, wargs.Encode())

	ctx := newSyscallContext(t, host)
	got, err := ctx.RecoverAccount(message, signature, lock.CodeHash)
	if err != nil {
		t.Fatalf("RecoverAccount() = %v", err)
	}
	if got.CodeHash != lock.CodeHash {
		t.Fatalf("RecoverAccount() script = %+v, want lock %+v", got, lock)
	}
}

func TestRecoverAccountNoMatchIsFatal(t *testing.T) {
	host := hostio.NewFixture()
	ctx := newSyscallContext(t, host)
	var message [32]byte
	if _, err := ctx.RecoverAccount(message, []byte{1}, Hash{}); CodeOf(err) != FatalSignatureCellNotFound {
		t.Fatalf("RecoverAccount() no match code = %v, want FatalSignatureCellNotFound", CodeOf(err))
	}
}

func TestSetProgramReturnDataRejectsOversize(t *testing.T) {
	ctx := newSyscallContext(t, nil)
	oversized := make([]byte, MaxReceiptBytes+1)
	if err := ctx.SetProgramReturnData(oversized); CodeOf(err) != FatalInvalidData {
		t.Fatalf("SetProgramReturnData() oversized code = %v, want FatalInvalidData", CodeOf(err))
	}
}
