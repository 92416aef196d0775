package validator

import (
	"bytes"
	"encoding/binary"

	"gw.dev/validator/hostio"
	"gw.dev/validator/molecule"
)

// rawFetch reads key from the KV overlay, treating a genuine miss the same
// as an SMT read of an absent key: implicit zero (spec §3.1). It never
// itself returns NotFound — callers decide whether a zero result is an
// error (generic load()) or a legitimate value (get_account_nonce's
// freshly-created zero nonce, get_script_hash_by_account_id's "does not
// exist" zero).
func (ctx *Context) rawFetch(key Key) Value {
	v, err := ctx.KVState.Fetch(key)
	if err != nil {
		return Value{}
	}
	return v
}

func (ctx *Context) ensureAccountExists(id AccountId) error {
	h := ctx.rawFetch(ctx.Keys.AccountScriptHashKey(id))
	if h == (Hash{}) {
		return newErr(AccountNotExists, "account script-hash field is zero")
	}
	return nil
}

// Load implements the `load` syscall (spec §4.4): ensure the account
// exists, derive the raw key via C1, fetch from the overlay. A zero
// result is NotFound (§3.1: value == 0 means deleted/absent).
func (ctx *Context) Load(id AccountId, key []byte) (Value, error) {
	if err := ctx.ensureAccountExists(id); err != nil {
		return Value{}, err
	}
	raw := ctx.Keys.AccountKVKey(id, key)
	v := ctx.rawFetch(raw)
	if v == (Value{}) {
		return Value{}, newErr(NotFound, "account kv value is zero")
	}
	return v, nil
}

// Store implements the `store` syscall (spec §4.4).
func (ctx *Context) Store(id AccountId, key []byte, value Value) error {
	if err := ctx.ensureAccountExists(id); err != nil {
		return err
	}
	raw := ctx.Keys.AccountKVKey(id, key)
	return ctx.KVState.Insert(raw, value)
}

// Create implements the `create` syscall (spec §4.4): validate the script
// via C6, assign the next account id, seed its nonce and script-hash
// fields, register the reverse script-hash lookup, append to the script
// table, and bump the account counter.
func (ctx *Context) Create(scriptBytes []byte) (AccountId, error) {
	script, err := molecule.DecodeScript(scriptBytes)
	if err != nil {
		return 0, newErr(FatalInvalidData, "create: malformed script: "+err.Error())
	}
	if err := ValidateScript(script, ctx.RollupScriptHash, ctx.RollupConfig); err != nil {
		return 0, err
	}

	id := ctx.AccountCount
	scriptHash := ctx.Crypto.Blake2b256(scriptBytes)

	if err := ctx.KVState.Insert(ctx.Keys.AccountNonceKey(id), Value{}); err != nil {
		return 0, err
	}
	if err := ctx.KVState.Insert(ctx.Keys.AccountScriptHashKey(id), scriptHash); err != nil {
		return 0, err
	}
	if err := ctx.KVState.Insert(ctx.Keys.ScriptHashToIdKey(scriptHash), idToValue(id)); err != nil {
		return 0, err
	}
	if err := ctx.appendScriptEntry(ScriptEntry{Hash: scriptHash, Script: script}); err != nil {
		return 0, err
	}
	ctx.AccountCount++
	return id, nil
}

// GetAccountIdByScriptHash implements the reverse lookup of spec §4.4.
func (ctx *Context) GetAccountIdByScriptHash(scriptHash Hash) (AccountId, error) {
	v := ctx.rawFetch(ctx.Keys.ScriptHashToIdKey(scriptHash))
	if v == (Value{}) {
		return 0, newErr(NotFound, "no account registered for script hash")
	}
	return valueToId(v), nil
}

// GetScriptHashByAccountId implements spec §4.4: "zero hash means 'does
// not exist'" — never an error.
func (ctx *Context) GetScriptHashByAccountId(id AccountId) (Hash, error) {
	return ctx.rawFetch(ctx.Keys.AccountScriptHashKey(id)), nil
}

// GetAccountNonce implements spec §4.4: ensure the account exists, then
// read its nonce field. A freshly created account's nonce is legitimately
// zero, so this never maps a zero value to NotFound.
func (ctx *Context) GetAccountNonce(id AccountId) (uint64, error) {
	if err := ctx.ensureAccountExists(id); err != nil {
		return 0, err
	}
	v := ctx.rawFetch(ctx.Keys.AccountNonceKey(id))
	return binary.LittleEndian.Uint64(v[:8]), nil
}

// setAccountNonce writes the nonce field directly; used by Finalize's
// nonce-bump step (spec §4.4 "Sender nonce policy").
func (ctx *Context) setAccountNonce(id AccountId, nonce uint64) error {
	var v Value
	binary.LittleEndian.PutUint64(v[:8], nonce)
	return ctx.KVState.Insert(ctx.Keys.AccountNonceKey(id), v)
}

// GetAccountScript implements spec §4.4: find the script-table entry for
// id's script hash, copy a [offset, offset+len) slice, clamped.
func (ctx *Context) GetAccountScript(id AccountId, offset, length int) ([]byte, int, error) {
	if err := ctx.ensureAccountExists(id); err != nil {
		return nil, 0, err
	}
	scriptHash, _ := ctx.GetScriptHashByAccountId(id)
	entry, ok := ctx.scriptEntryByHash(scriptHash)
	if !ok {
		return nil, 0, newErr(FatalAccountNotFound, "account script not present in witness script table")
	}
	full := entry.Script.Encode()
	remaining := len(full) - offset
	if remaining < 0 {
		remaining = 0
	}
	actual := length
	if actual > remaining {
		actual = remaining
	}
	if actual <= 0 || offset < 0 || offset > len(full) {
		return nil, 0, nil
	}
	return full[offset : offset+actual], actual, nil
}

// StoreData implements spec §4.4 "store_data": record presence only, no
// payload storage (the payload itself lives in a cell the host already
// committed to).
func (ctx *Context) StoreData(data []byte) error {
	dataHash := ctx.Crypto.Blake2b256(data)
	present := Value{0: 1}
	return ctx.KVState.Insert(ctx.Keys.DataHashPresenceKey(dataHash), present)
}

// LoadData implements spec §4.4 "load_data": scan cell-deps for a cell
// whose data-hash matches dataHash, then slice.
func (ctx *Context) LoadData(dataHash Hash, offset, length int) ([]byte, int, error) {
	n := ctx.Host.CellCount(hostio.SourceCellDep)
	for i := 0; i < n; i++ {
		cell, err := ctx.Host.Cell(hostio.SourceCellDep, i)
		if err != nil {
			return nil, 0, newErr(FatalDataCellNotFound, err.Error())
		}
		if cell.DataHash != dataHash {
			continue
		}
		remaining := len(cell.Data) - offset
		if remaining < 0 {
			remaining = 0
		}
		actual := length
		if actual > remaining {
			actual = remaining
		}
		if actual <= 0 || offset < 0 || offset > len(cell.Data) {
			return nil, 0, nil
		}
		return cell.Data[offset : offset+actual], actual, nil
	}
	return nil, 0, newErr(FatalDataCellNotFound, "no cell-dep with matching data hash")
}

// GetBlockHash implements spec §4.4 "get_block_hash": fetch from the
// block-hash overlay (not the transaction KV overlay) by the unhashed
// block-number key.
func (ctx *Context) GetBlockHash(number uint64) (Hash, error) {
	v, err := ctx.BlockHashState.Fetch(ctx.Keys.BlockHashKey(number))
	if err != nil || v == (Value{}) {
		return Hash{}, newErr(NotFound, "no recorded hash for block number")
	}
	return v, nil
}

// GetScriptHashByPrefix implements spec §4.4 and the open-question
// resolution in DESIGN.md: a miss returns NotFound, never
// FatalInvalidContext (which is reserved for genuine context-assembly
// defects elsewhere).
func (ctx *Context) GetScriptHashByPrefix(prefix []byte) (Hash, error) {
	for _, entry := range ctx.scripts {
		if len(prefix) <= len(entry.Hash) && bytes.Equal(entry.Hash[:len(prefix)], prefix) {
			return entry.Hash, nil
		}
	}
	return Hash{}, newErr(NotFound, "no script hash with matching prefix")
}

// RecoverAccount implements spec §4.4 "recover_account": scan inputs for a
// lock whose code_hash+hash_type match, whose cell data bytes [32:64]
// equal message, and whose witness-args lock field equals signature.
func (ctx *Context) RecoverAccount(message [32]byte, signature []byte, codeHash Hash) (molecule.Script, error) {
	n := ctx.Host.CellCount(hostio.SourceInput)
	for i := 0; i < n; i++ {
		cell, err := ctx.Host.Cell(hostio.SourceInput, i)
		if err != nil {
			continue
		}
		if cell.Lock.CodeHash != codeHash || cell.Lock.HashType != molecule.HashTypeType {
			continue
		}
		if len(cell.Data) < 64 || !bytes.Equal(cell.Data[32:64], message[:]) {
			continue
		}
		raw, err := ctx.Host.Witness(hostio.SourceInput, i)
		if err != nil {
			continue
		}
		wargs, err := molecule.DecodeWitnessArgs(raw)
		if err != nil || !wargs.HasLock || !bytes.Equal(wargs.Lock, signature) {
			continue
		}
		return cell.Lock, nil
	}
	return molecule.Script{}, newErr(FatalSignatureCellNotFound, "no input matched recover_account criteria")
}

// Log implements spec §4.4 "log": no state effect in validator mode,
// beyond ensuring the account exists.
func (ctx *Context) Log(id AccountId, flag byte, data []byte) error {
	return ctx.ensureAccountExists(id)
}

// PayFee implements spec §4.4 "pay_fee": ensure the sUDT account exists;
// no state effect (the actual balance movement happens through Store,
// driven by the contract layer — see validator/contracts.Meta).
func (ctx *Context) PayFee(payer AccountId, sudtId AccountId, amount Amount) error {
	return ctx.ensureAccountExists(sudtId)
}

// SetProgramReturnData implements spec §4.4 "set_program_return_data".
func (ctx *Context) SetProgramReturnData(data []byte) error {
	if len(data) > MaxReceiptBytes {
		return newErr(FatalInvalidData, "return data exceeds max receipt size")
	}
	ctx.Receipt = Receipt{ReturnData: append([]byte(nil), data...), written: true}
	return nil
}

func idToValue(id AccountId) Value {
	var v Value
	binary.LittleEndian.PutUint32(v[:4], id)
	return v
}

func valueToId(v Value) AccountId {
	return binary.LittleEndian.Uint32(v[:4])
}
