package molecule

import "fmt"

// SubmitTransactions carries the per-block transaction-processing
// checkpoints named in spec §4.3 step 7.
type SubmitTransactions struct {
	TxWitnessRoot       [32]byte
	PrevStateCheckpoint [32]byte
	WithdrawalsCount    uint32
}

func (s SubmitTransactions) Encode() []byte {
	w := NewWriter()
	w.WriteHash(s.TxWitnessRoot)
	w.WriteHash(s.PrevStateCheckpoint)
	w.WriteU32LE(s.WithdrawalsCount)
	return w.Bytes()
}

func decodeSubmitTransactions(c *Cursor) (SubmitTransactions, error) {
	root, err := c.ReadHash()
	if err != nil {
		return SubmitTransactions{}, fmt.Errorf("submit_transactions.tx_witness_root: %w", err)
	}
	prev, err := c.ReadHash()
	if err != nil {
		return SubmitTransactions{}, fmt.Errorf("submit_transactions.prev_state_checkpoint: %w", err)
	}
	w, err := c.ReadU32LE()
	if err != nil {
		return SubmitTransactions{}, fmt.Errorf("submit_transactions.withdrawals_count: %w", err)
	}
	return SubmitTransactions{TxWitnessRoot: root, PrevStateCheckpoint: prev, WithdrawalsCount: w}, nil
}

// RawL2Block is the challenged block's header (spec §3.3 "Block info" plus
// the checkpoint bookkeeping of §4.3 step 7).
type RawL2Block struct {
	Number             uint64
	Timestamp          uint64
	ProducerId         uint32
	SubmitTransactions SubmitTransactions
	StateCheckpoints   [][32]byte
}

func (b RawL2Block) Encode() []byte {
	w := NewWriter()
	w.WriteU64LE(b.Number)
	w.WriteU64LE(b.Timestamp)
	w.WriteU32LE(b.ProducerId)
	st := b.SubmitTransactions.Encode()
	w.WriteBytes(st)
	w.WriteU32LE(uint32(len(b.StateCheckpoints)))
	for _, cp := range b.StateCheckpoints {
		w.WriteHash(cp)
	}
	return w.Bytes()
}

func DecodeRawL2Block(b []byte) (RawL2Block, error) {
	c := NewCursor(b)
	number, err := c.ReadU64LE()
	if err != nil {
		return RawL2Block{}, fmt.Errorf("raw_l2block.number: %w", err)
	}
	ts, err := c.ReadU64LE()
	if err != nil {
		return RawL2Block{}, fmt.Errorf("raw_l2block.timestamp: %w", err)
	}
	producer, err := c.ReadU32LE()
	if err != nil {
		return RawL2Block{}, fmt.Errorf("raw_l2block.producer_id: %w", err)
	}
	stBytes, err := c.ReadBytes()
	if err != nil {
		return RawL2Block{}, fmt.Errorf("raw_l2block.submit_transactions: %w", err)
	}
	st, err := decodeSubmitTransactions(NewCursor(stBytes))
	if err != nil {
		return RawL2Block{}, err
	}
	cpCount, err := c.ReadU32LE()
	if err != nil {
		return RawL2Block{}, fmt.Errorf("raw_l2block.state_checkpoints.len: %w", err)
	}
	checkpoints := make([][32]byte, 0, cpCount)
	for i := uint32(0); i < cpCount; i++ {
		h, err := c.ReadHash()
		if err != nil {
			return RawL2Block{}, fmt.Errorf("raw_l2block.state_checkpoints[%d]: %w", i, err)
		}
		checkpoints = append(checkpoints, h)
	}
	return RawL2Block{
		Number: number, Timestamp: ts, ProducerId: producer,
		SubmitTransactions: st, StateCheckpoints: checkpoints,
	}, nil
}

// L2Transaction is the challenged transaction itself (spec §3.3
// "Transaction context").
type L2Transaction struct {
	FromId uint32
	ToId   uint32
	Args   []byte
}

func (t L2Transaction) Encode() []byte {
	w := NewWriter()
	w.WriteU32LE(t.FromId)
	w.WriteU32LE(t.ToId)
	w.WriteBytes(t.Args)
	return w.Bytes()
}

func DecodeL2Transaction(b []byte) (L2Transaction, error) {
	c := NewCursor(b)
	from, err := c.ReadU32LE()
	if err != nil {
		return L2Transaction{}, fmt.Errorf("l2tx.from_id: %w", err)
	}
	to, err := c.ReadU32LE()
	if err != nil {
		return L2Transaction{}, fmt.Errorf("l2tx.to_id: %w", err)
	}
	args, err := c.ReadBytes()
	if err != nil {
		return L2Transaction{}, fmt.Errorf("l2tx.args: %w", err)
	}
	return L2Transaction{FromId: from, ToId: to, Args: append([]byte(nil), args...)}, nil
}

// KVPair is a single wire-encoded (key, value) entry in a KV snapshot
// (spec §3.3 "KV Pair").
type KVPair struct {
	Key   [32]byte
	Value [32]byte
}

// ScriptEntry is a single wire-encoded account script in the witness'
// script table (spec §3.3 "Script entry").
type ScriptEntry struct {
	Script Script
}

// BlockHashEntry pins a single historical block number to its hash (spec
// §4.3 step 6, "block-hash entries").
type BlockHashEntry struct {
	Number uint64
	Hash   [32]byte
}

// VerifyTransactionContext is the nested structure carrying the KV
// snapshot, script table, return-data-hash commitment, and historical
// block-hash snapshot (spec §6.1).
type VerifyTransactionContext struct {
	KVState        []KVPair
	Scripts        []ScriptEntry
	ReturnDataHash [32]byte
	BlockHashes    []BlockHashEntry
}

func (ctx VerifyTransactionContext) Encode() []byte {
	w := NewWriter()
	w.WriteU32LE(uint32(len(ctx.KVState)))
	for _, kv := range ctx.KVState {
		w.WriteHash(kv.Key)
		w.WriteHash(kv.Value)
	}
	w.WriteU32LE(uint32(len(ctx.Scripts)))
	for _, s := range ctx.Scripts {
		w.WriteBytes(s.Script.Encode())
	}
	w.WriteHash(ctx.ReturnDataHash)
	w.WriteU32LE(uint32(len(ctx.BlockHashes)))
	for _, bh := range ctx.BlockHashes {
		w.WriteU64LE(bh.Number)
		w.WriteHash(bh.Hash)
	}
	return w.Bytes()
}

func DecodeVerifyTransactionContext(b []byte) (VerifyTransactionContext, error) {
	c := NewCursor(b)
	kvCount, err := c.ReadU32LE()
	if err != nil {
		return VerifyTransactionContext{}, fmt.Errorf("context.kv_state.len: %w", err)
	}
	kvState := make([]KVPair, 0, kvCount)
	for i := uint32(0); i < kvCount; i++ {
		key, err := c.ReadHash()
		if err != nil {
			return VerifyTransactionContext{}, fmt.Errorf("context.kv_state[%d].key: %w", i, err)
		}
		val, err := c.ReadHash()
		if err != nil {
			return VerifyTransactionContext{}, fmt.Errorf("context.kv_state[%d].value: %w", i, err)
		}
		kvState = append(kvState, KVPair{Key: key, Value: val})
	}
	scriptCount, err := c.ReadU32LE()
	if err != nil {
		return VerifyTransactionContext{}, fmt.Errorf("context.scripts.len: %w", err)
	}
	scripts := make([]ScriptEntry, 0, scriptCount)
	for i := uint32(0); i < scriptCount; i++ {
		sb, err := c.ReadBytes()
		if err != nil {
			return VerifyTransactionContext{}, fmt.Errorf("context.scripts[%d]: %w", i, err)
		}
		s, err := DecodeScript(sb)
		if err != nil {
			return VerifyTransactionContext{}, fmt.Errorf("context.scripts[%d]: %w", i, err)
		}
		scripts = append(scripts, ScriptEntry{Script: s})
	}
	returnDataHash, err := c.ReadHash()
	if err != nil {
		return VerifyTransactionContext{}, fmt.Errorf("context.return_data_hash: %w", err)
	}
	bhCount, err := c.ReadU32LE()
	if err != nil {
		return VerifyTransactionContext{}, fmt.Errorf("context.block_hashes.len: %w", err)
	}
	blockHashes := make([]BlockHashEntry, 0, bhCount)
	for i := uint32(0); i < bhCount; i++ {
		number, err := c.ReadU64LE()
		if err != nil {
			return VerifyTransactionContext{}, fmt.Errorf("context.block_hashes[%d].number: %w", i, err)
		}
		hash, err := c.ReadHash()
		if err != nil {
			return VerifyTransactionContext{}, fmt.Errorf("context.block_hashes[%d].hash: %w", i, err)
		}
		blockHashes = append(blockHashes, BlockHashEntry{Number: number, Hash: hash})
	}
	return VerifyTransactionContext{
		KVState: kvState, Scripts: scripts,
		ReturnDataHash: returnDataHash, BlockHashes: blockHashes,
	}, nil
}

// VerifyTransactionWitness is the full witness blob decoded from the
// challenge cell's witness-args lock field (spec §4.3 step 6, §6.1).
type VerifyTransactionWitness struct {
	RawL2Block       RawL2Block
	L2Tx             L2Transaction
	TxProof          []byte
	KVStateProof     []byte
	BlockHashesProof []byte
	Context          VerifyTransactionContext

	// PrevAccountCount and PostAccountCount are the account-count halves
	// of the witness-provided account merkle state of spec §3.3 "Account
	// merkle state"; the root halves are the prev/post state checkpoints
	// of RawL2Block (§4.3 step 7), which KVStateProof is checked against.
	// The spec does not say where the account *count* half of the
	// commitment comes from; this schema carries both counts explicitly so
	// Finalize's "post_account.count == account_count" check (§4.6 step 1)
	// has a concrete witness-provided value to compare against (DESIGN.md
	// open-question-adjacent decision).
	PrevAccountCount uint32
	PostAccountCount uint32
}

func (w VerifyTransactionWitness) Encode() []byte {
	wr := NewWriter()
	wr.WriteBytes(w.RawL2Block.Encode())
	wr.WriteBytes(w.L2Tx.Encode())
	wr.WriteBytes(w.TxProof)
	wr.WriteBytes(w.KVStateProof)
	wr.WriteBytes(w.BlockHashesProof)
	wr.WriteBytes(w.Context.Encode())
	wr.WriteU32LE(w.PrevAccountCount)
	wr.WriteU32LE(w.PostAccountCount)
	return wr.Bytes()
}

func DecodeVerifyTransactionWitness(b []byte) (VerifyTransactionWitness, error) {
	c := NewCursor(b)
	blockBytes, err := c.ReadBytes()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.raw_l2block: %w", err)
	}
	block, err := DecodeRawL2Block(blockBytes)
	if err != nil {
		return VerifyTransactionWitness{}, err
	}
	txBytes, err := c.ReadBytes()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.l2tx: %w", err)
	}
	tx, err := DecodeL2Transaction(txBytes)
	if err != nil {
		return VerifyTransactionWitness{}, err
	}
	txProof, err := c.ReadBytes()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.tx_proof: %w", err)
	}
	kvProof, err := c.ReadBytes()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.kv_state_proof: %w", err)
	}
	bhProof, err := c.ReadBytes()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.block_hashes_proof: %w", err)
	}
	ctxBytes, err := c.ReadBytes()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.context: %w", err)
	}
	ctx, err := DecodeVerifyTransactionContext(ctxBytes)
	if err != nil {
		return VerifyTransactionWitness{}, err
	}
	prevCount, err := c.ReadU32LE()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.prev_account_count: %w", err)
	}
	postCount, err := c.ReadU32LE()
	if err != nil {
		return VerifyTransactionWitness{}, fmt.Errorf("witness.post_account_count: %w", err)
	}
	return VerifyTransactionWitness{
		RawL2Block:       block,
		L2Tx:             tx,
		TxProof:          append([]byte(nil), txProof...),
		KVStateProof:     append([]byte(nil), kvProof...),
		BlockHashesProof: append([]byte(nil), bhProof...),
		Context:          ctx,
		PrevAccountCount: prevCount,
		PostAccountCount: postCount,
	}, nil
}
