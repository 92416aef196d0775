package validator

import (
	"gw.dev/validator/crypto"
	"gw.dev/validator/hostio"
	"gw.dev/validator/molecule"
)

// Context is the single owned value holding every buffer a verification
// run touches (spec §3.3, §9: "a single owned value (by-value struct)
// holding all buffers; syscalls receive an exclusive mutable borrow").
// There is no shared mutable state across runs: a Context is created by
// Init, lives for exactly one Finalize call, and is then discarded.
type Context struct {
	Crypto crypto.CryptoProvider
	Keys   KeySchema
	Host   hostio.Host

	RollupScriptHash Hash
	RollupConfig     molecule.RollupConfig

	Block BlockInfo
	Tx    TxContext

	KVState        *State
	BlockHashState *State

	scripts      []ScriptEntry
	scriptByHash map[Hash]int

	PreAccount  AccountMerkleState
	PostAccount AccountMerkleState

	// AccountCount tracks the live account count as create() is called
	// during the run; it starts at PreAccount.Count (spec §4.4 "create":
	// "Assign id = account_count... Increment account_count").
	AccountCount uint32

	OriginalSenderNonce uint64
	ReturnDataHash      Hash

	Receipt Receipt

	// kvStateProof is the witness-supplied compact SMT proof over the
	// kv_state leaf set. The same sibling structure is replayed against
	// both pre_account.root (Init) and post_account.root (Finalize) with
	// the leaves' current values, per spec §4.3 step 8 and §4.6 step 4 —
	// a compact update proof is valid against the old and new root alike
	// once the leaf values it commits to have changed.
	kvStateProof []byte
}

// newContext builds an empty Context around the given collaborators. The
// witness loader (Init) is responsible for populating everything else.
func newContext(c crypto.CryptoProvider, host hostio.Host) *Context {
	return &Context{
		Crypto:         c,
		Keys:           NewKeySchema(c),
		Host:           host,
		KVState:        NewState(MaxTxKVPairs),
		BlockHashState: NewState(MaxBlockHashPairs),
		scriptByHash:   make(map[Hash]int),
	}
}

// scriptEntryByHash looks up a script-table entry by its script hash.
func (ctx *Context) scriptEntryByHash(h Hash) (ScriptEntry, bool) {
	idx, ok := ctx.scriptByHash[h]
	if !ok {
		return ScriptEntry{}, false
	}
	return ctx.scripts[idx], true
}

// appendScriptEntry records a new script-table entry, enforcing the
// ≤100-entry bound (spec §3.3).
func (ctx *Context) appendScriptEntry(entry ScriptEntry) error {
	if len(ctx.scripts) >= MaxScriptEntries {
		return newErr(FatalBufferOverflow, "script table at capacity")
	}
	if ctx.scriptByHash == nil {
		ctx.scriptByHash = make(map[Hash]int)
	}
	ctx.scriptByHash[entry.Hash] = len(ctx.scripts)
	ctx.scripts = append(ctx.scripts, entry)
	return nil
}
