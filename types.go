package validator

import "gw.dev/validator/molecule"

// MaxScriptEntries bounds the script table loaded from the witness (spec
// §3.3: "an element of a bounded table (≤100)").
const MaxScriptEntries = 100

// MaxScriptBytes bounds a single account script (spec §4.5).
const MaxScriptBytes = 256

// MaxTxArgsBytes and MaxReceiptBytes bound the transaction's argument
// payload and the program's return data (spec §3.3).
const (
	MaxTxArgsBytes  = 128 * 1024
	MaxReceiptBytes = 24 * 1024
)

// MaxBlockHashLookback is the number of blocks behind the challenged one a
// block-hash entry may reference (spec §4.3 step 6: "min_allowed =
// max(0, challenged_number - 256)").
const MaxBlockHashLookback = 256

// ScriptEntry is an element of the witness' script table (spec §3.3).
type ScriptEntry struct {
	Hash   Hash
	Script molecule.Script
}

// AccountMerkleState is a witness-provided commitment to the account tree
// (spec §3.3).
type AccountMerkleState struct {
	Root  Hash
	Count uint32
}

// BlockInfo is the challenged block's immutable header data (spec §3.3).
type BlockInfo struct {
	Number     uint64
	Timestamp  uint64
	ProducerId AccountId
}

// TxContext is the challenged transaction, immutable for the run (spec
// §3.3).
type TxContext struct {
	FromId  AccountId
	ToId    AccountId
	Args    []byte
}

// Receipt is written exactly once by the executed program (spec §3.3).
type Receipt struct {
	ReturnData []byte
	written    bool
}
