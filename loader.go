package validator

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gw.dev/validator/crypto"
	"gw.dev/validator/hostio"
	"gw.dev/validator/molecule"
	"gw.dev/validator/smt"
)

// ErrNotAChallenge is returned by Init when no input cell's type-hash equals
// the rollup script hash (spec §4.3 step 2): "this verifier is not being
// used for a challenge and has no obligation." The caller (typically
// cmd/gw-validator) should treat this the same as the host's exit(0) and
// consult nothing else in the witness (spec property §8.1.10).
var ErrNotAChallenge = fmt.Errorf("validator: no input cell matches the rollup script hash")

// Init runs the witness loader of spec §4.3 end to end: it assembles a
// fresh Context from host, verifies the pre-state root, and bootstraps
// the sender's nonce. It mirrors the teacher's sequential,
// fatal-on-first-error pipeline shape (consensus/tx_parse.go,
// consensus/block_parse.go) generalized from transaction/block wire
// parsing to witness assembly.
func Init(c crypto.CryptoProvider, host hostio.Host) (*Context, error) {
	ctx := newContext(c, host)

	// Step 1: rollup script hash is the first 32 bytes of the current
	// script's args.
	currentScript, err := host.CurrentScript()
	if err != nil {
		return nil, newErr(FatalInvalidContext, "load current script: "+err.Error())
	}
	if len(currentScript.Args) < 32 {
		return nil, newErr(FatalInvalidContext, "current script args shorter than 32 bytes")
	}
	copy(ctx.RollupScriptHash[:], currentScript.Args[:32])

	// Step 2: locate the rollup cell among inputs by type-hash.
	rollupCellIdx := -1
	n := host.CellCount(hostio.SourceInput)
	for i := 0; i < n; i++ {
		cell, err := host.Cell(hostio.SourceInput, i)
		if err != nil {
			return nil, newErr(FatalInvalidContext, "load input cell: "+err.Error())
		}
		if cell.TypeHash == ctx.RollupScriptHash {
			rollupCellIdx = i
			break
		}
	}
	if rollupCellIdx < 0 {
		return nil, ErrNotAChallenge
	}
	rollupCell, err := host.Cell(hostio.SourceInput, rollupCellIdx)
	if err != nil {
		return nil, newErr(FatalInvalidContext, "reload rollup cell: "+err.Error())
	}

	// Step 3: load global state from the rollup cell's data.
	globalState, err := molecule.DecodeGlobalState(rollupCell.Data)
	if err != nil {
		return nil, newErr(FatalInvalidData, "decode global state: "+err.Error())
	}

	// Step 4: load rollup config from a cell-dep whose data-hash matches.
	cfg, err := loadRollupConfig(host, globalState.RollupConfigHash)
	if err != nil {
		return nil, err
	}
	ctx.RollupConfig = cfg

	// Step 5: locate the challenge cell among inputs.
	challengeIdx, lockArgs, err := locateChallengeCell(host, ctx.RollupScriptHash, cfg)
	if err != nil {
		return nil, err
	}
	if lockArgs.Target.TargetType != molecule.TargetTypeTransaction {
		return nil, newErr(FatalInvalidData, "challenge target is not a transaction")
	}

	// Step 6: decode the witness from the challenge cell's witness-args
	// lock field, and verify its integrity.
	rawWitnessArgs, err := host.Witness(hostio.SourceInput, challengeIdx)
	if err != nil {
		return nil, newErr(FatalInvalidContext, "load challenge witness: "+err.Error())
	}
	wargs, err := molecule.DecodeWitnessArgs(rawWitnessArgs)
	if err != nil || !wargs.HasLock {
		return nil, newErr(FatalInvalidData, "decode witness-args lock field")
	}
	witness, err := molecule.DecodeVerifyTransactionWitness(wargs.Lock)
	if err != nil {
		return nil, newErr(FatalInvalidData, "decode verify-transaction witness: "+err.Error())
	}

	if err := verifyWitnessIntegrity(c, lockArgs, witness); err != nil {
		return nil, err
	}

	if len(witness.Context.KVState) > MaxTxKVPairs {
		return nil, newErr(FatalBufferOverflow, "witness kv_state exceeds max pairs")
	}
	if len(witness.Context.Scripts) > MaxScriptEntries {
		return nil, newErr(FatalBufferOverflow, "witness scripts exceeds max entries")
	}

	ctx.Block = BlockInfo{
		Number:     witness.RawL2Block.Number,
		Timestamp:  witness.RawL2Block.Timestamp,
		ProducerId: witness.RawL2Block.ProducerId,
	}
	ctx.Tx = TxContext{
		FromId: witness.L2Tx.FromId,
		ToId:   witness.L2Tx.ToId,
		Args:   witness.L2Tx.Args,
	}
	if len(ctx.Tx.Args) > MaxTxArgsBytes {
		return nil, newErr(FatalInvalidData, "transaction args exceed max size")
	}
	ctx.ReturnDataHash = witness.Context.ReturnDataHash

	// Populate the KV overlay and script table from the witness context.
	for _, kv := range witness.Context.KVState {
		if err := ctx.KVState.Insert(kv.Key, kv.Value); err != nil {
			return nil, err
		}
	}
	for _, se := range witness.Context.Scripts {
		scriptHash := c.Blake2b256(se.Script.Encode())
		if err := ctx.appendScriptEntry(ScriptEntry{Hash: scriptHash, Script: se.Script}); err != nil {
			return nil, err
		}
	}
	for _, bh := range witness.Context.BlockHashes {
		if err := ctx.BlockHashState.Insert(ctx.Keys.BlockHashKey(bh.Number), bh.Hash); err != nil {
			return nil, err
		}
	}

	// Validate block-hash lookback window (spec §4.3 step 6) and verify
	// them against block_merkle_root.
	if err := verifyBlockHashes(c, ctx, globalState, witness); err != nil {
		return nil, err
	}

	// Step 7: load checkpoints.
	prevCheckpoint, postCheckpoint, err := loadCheckpoints(witness.RawL2Block, int(lockArgs.Target.TargetIndex))
	if err != nil {
		return nil, err
	}
	ctx.PreAccount = AccountMerkleState{Root: prevCheckpoint, Count: witness.PrevAccountCount}
	ctx.PostAccount = AccountMerkleState{Root: postCheckpoint, Count: witness.PostAccountCount}
	ctx.AccountCount = witness.PrevAccountCount

	// Step 8: verify pre-root.
	ctx.kvStateProof = witness.KVStateProof
	ctx.KVState.Normalize()
	if err := smtVerifyState(c, ctx.PreAccount.Root, ctx.KVState, ctx.kvStateProof); err != nil {
		return nil, err
	}

	// Step 9: bootstrap nonce.
	nonce, err := ctx.GetAccountNonce(ctx.Tx.FromId)
	if err != nil {
		return nil, err
	}
	ctx.OriginalSenderNonce = nonce

	return ctx, nil
}

func loadRollupConfig(host hostio.Host, rollupConfigHash Hash) (molecule.RollupConfig, error) {
	n := host.CellCount(hostio.SourceCellDep)
	for i := 0; i < n; i++ {
		cell, err := host.Cell(hostio.SourceCellDep, i)
		if err != nil {
			continue
		}
		if cell.DataHash != rollupConfigHash {
			continue
		}
		cfg, err := molecule.DecodeRollupConfig(cell.Data)
		if err != nil {
			return molecule.RollupConfig{}, newErr(FatalInvalidData, "decode rollup config: "+err.Error())
		}
		return cfg, nil
	}
	return molecule.RollupConfig{}, newErr(FatalInvalidContext, "no cell-dep matches rollup_config_hash")
}

func locateChallengeCell(host hostio.Host, rollupScriptHash Hash, cfg molecule.RollupConfig) (int, molecule.ChallengeLockArgs, error) {
	n := host.CellCount(hostio.SourceInput)
	for i := 0; i < n; i++ {
		cell, err := host.Cell(hostio.SourceInput, i)
		if err != nil {
			continue
		}
		if cell.Lock.CodeHash != cfg.ChallengeScriptTypeHash || cell.Lock.HashType != molecule.HashTypeType {
			continue
		}
		if len(cell.Lock.Args) < 32 || !bytes.Equal(cell.Lock.Args[:32], rollupScriptHash[:]) {
			continue
		}
		lockArgs, err := molecule.DecodeChallengeLockArgs(cell.Lock.Args)
		if err != nil {
			return 0, molecule.ChallengeLockArgs{}, newErr(FatalInvalidData, "decode challenge lock args: "+err.Error())
		}
		return i, lockArgs, nil
	}
	return 0, molecule.ChallengeLockArgs{}, newErr(FatalInvalidContext, "no input cell matches challenge script type hash")
}

// verifyWitnessIntegrity checks spec §4.3 step 6's two hash/proof
// obligations: the raw block hashes to the challenged block hash, and the
// challenged transaction is the correct leaf of the block's transaction
// witness-root SMT.
func verifyWitnessIntegrity(c crypto.CryptoProvider, lockArgs molecule.ChallengeLockArgs, witness molecule.VerifyTransactionWitness) error {
	blockHash := c.Blake2b256(witness.RawL2Block.Encode())
	if blockHash != lockArgs.Target.BlockHash {
		return newErr(FatalInvalidData, "raw_l2block hash does not match challenged block hash")
	}

	txHash := c.Blake2b256(witness.L2Tx.Encode())
	leafKey := txLeafKey(lockArgs.Target.TargetIndex)
	leaves := []smt.Leaf{{Key: leafKey, Value: txHash}}
	if err := smt.Verify(c, witness.RawL2Block.SubmitTransactions.TxWitnessRoot, leaves, witness.TxProof); err != nil {
		return newErr(FatalInvalidData, "tx witness-root proof: "+err.Error())
	}
	return nil
}

// txLeafKey derives the SMT leaf key for a transaction at the given index
// within the block's transaction witness-root tree. The key is the
// index's 32-byte little-endian encoding, the same unhashed "sortable by
// small integer" convention spec §3.2 uses for the block-hash-by-number
// key.
func txLeafKey(index uint32) Hash {
	var out Hash
	out[0] = byte(index)
	out[1] = byte(index >> 8)
	out[2] = byte(index >> 16)
	out[3] = byte(index >> 24)
	return out
}

func verifyBlockHashes(c crypto.CryptoProvider, ctx *Context, globalState molecule.GlobalState, witness molecule.VerifyTransactionWitness) error {
	challengedNumber := witness.RawL2Block.Number
	if challengedNumber == 0 {
		if len(witness.Context.BlockHashes) != 0 {
			return newErr(FatalInvalidData, "genesis-challenging witness carries block hash entries")
		}
		return nil
	}
	var minAllowed uint64
	if challengedNumber > MaxBlockHashLookback {
		minAllowed = challengedNumber - MaxBlockHashLookback
	}
	leaves := make([]smt.Leaf, 0, len(witness.Context.BlockHashes))
	for _, bh := range witness.Context.BlockHashes {
		if bh.Number < minAllowed || bh.Number > challengedNumber-1 {
			return newErr(FatalInvalidData, "block hash entry out of allowed window")
		}
		leaves = append(leaves, smt.Leaf{Key: ctx.Keys.BlockHashKey(bh.Number), Value: bh.Hash})
	}
	if len(leaves) == 0 {
		return nil
	}
	sortLeavesByKeyAscending(leaves)
	if err := smt.Verify(c, globalState.BlockMerkleRoot, leaves, witness.BlockHashesProof); err != nil {
		return newErr(FatalInvalidData, "block hashes proof: "+err.Error())
	}
	return nil
}

// sortLeavesByKeyAscending orders leaves by byte sequence taken from byte
// 31 down to byte 0, matching the ordering smt.Verify expects its caller to
// have already established (spec §4.1 "ordering for leaf list sorted").
func sortLeavesByKeyAscending(leaves []smt.Leaf) {
	sort.Slice(leaves, func(i, j int) bool {
		return compareKeysBE(leaves[i].Key, leaves[j].Key) < 0
	})
}

// loadCheckpoints implements spec §4.3 step 7.
func loadCheckpoints(block molecule.RawL2Block, txIndex int) (prev, post Hash, err error) {
	w := int(block.SubmitTransactions.WithdrawalsCount)
	t := txIndex
	postIdx := w + t
	if postIdx < 0 || postIdx >= len(block.StateCheckpoints) {
		return Hash{}, Hash{}, newErr(FatalInvalidData, "post_tx_checkpoint index out of range")
	}
	post = block.StateCheckpoints[postIdx]
	if t > 0 {
		prevIdx := w + t - 1
		if prevIdx < 0 || prevIdx >= len(block.StateCheckpoints) {
			return Hash{}, Hash{}, newErr(FatalInvalidData, "prev_tx_checkpoint index out of range")
		}
		prev = block.StateCheckpoints[prevIdx]
	} else {
		prev = block.SubmitTransactions.PrevStateCheckpoint
	}
	return prev, post, nil
}

// smtVerifyState normalizes a KV overlay (idempotent if already done) and
// replays its proof against root.
func smtVerifyState(c crypto.CryptoProvider, root Hash, state *State, proof []byte) error {
	if !state.Normalized() {
		state.Normalize()
	}
	pairs := state.Pairs()
	leaves := make([]smt.Leaf, len(pairs))
	for i, p := range pairs {
		leaves[i] = smt.Leaf{Key: p.Key, Value: p.Value}
	}
	if err := smt.Verify(c, root, leaves, proof); err != nil {
		return translateSMTError(err)
	}
	return nil
}

func translateSMTError(err error) error {
	switch {
	case errors.Is(err, smt.ErrInvalidStack):
		return newErr(InvalidStack, err.Error())
	case errors.Is(err, smt.ErrInvalidSibling):
		return newErr(InvalidSibling, err.Error())
	default:
		return newErr(InvalidProof, err.Error())
	}
}
