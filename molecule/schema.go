package molecule

import "fmt"

// HashType mirrors the host's script hash-type tag. Only "type" (exact
// code hash match against a type script) matters to this spec; "data" is
// named for schema completeness but never exercised by the validator core.
type HashType byte

const (
	HashTypeData HashType = 0
	HashTypeType HashType = 1
)

// Script is the host's lock/type script representation (spec §6.1).
type Script struct {
	CodeHash [32]byte
	HashType HashType
	Args     []byte
}

func (s Script) Encode() []byte {
	w := NewWriter()
	w.WriteHash(s.CodeHash)
	w.WriteU8(byte(s.HashType))
	w.WriteBytes(s.Args)
	return w.Bytes()
}

func DecodeScript(b []byte) (Script, error) {
	c := NewCursor(b)
	codeHash, err := c.ReadHash()
	if err != nil {
		return Script{}, fmt.Errorf("script.code_hash: %w", err)
	}
	ht, err := c.ReadU8()
	if err != nil {
		return Script{}, fmt.Errorf("script.hash_type: %w", err)
	}
	args, err := c.ReadBytes()
	if err != nil {
		return Script{}, fmt.Errorf("script.args: %w", err)
	}
	return Script{CodeHash: codeHash, HashType: HashType(ht), Args: append([]byte(nil), args...)}, nil
}

// WitnessArgs carries the optional lock/input/output witness fields (spec
// §6.1).
type WitnessArgs struct {
	Lock       []byte
	HasLock    bool
	InputType  []byte
	HasInput   bool
	OutputType []byte
	HasOutput  bool
}

func (w WitnessArgs) Encode() []byte {
	wr := NewWriter()
	wr.WriteOptionalBytes(w.Lock, w.HasLock)
	wr.WriteOptionalBytes(w.InputType, w.HasInput)
	wr.WriteOptionalBytes(w.OutputType, w.HasOutput)
	return wr.Bytes()
}

func DecodeWitnessArgs(b []byte) (WitnessArgs, error) {
	c := NewCursor(b)
	lock, hasLock, err := c.ReadOptionalBytes()
	if err != nil {
		return WitnessArgs{}, fmt.Errorf("witness_args.lock: %w", err)
	}
	input, hasInput, err := c.ReadOptionalBytes()
	if err != nil {
		return WitnessArgs{}, fmt.Errorf("witness_args.input_type: %w", err)
	}
	output, hasOutput, err := c.ReadOptionalBytes()
	if err != nil {
		return WitnessArgs{}, fmt.Errorf("witness_args.output_type: %w", err)
	}
	return WitnessArgs{
		Lock: lock, HasLock: hasLock,
		InputType: input, HasInput: hasInput,
		OutputType: output, HasOutput: hasOutput,
	}, nil
}

// RollupConfig is the rollup's global policy (spec §6.1, §4.5, §4.3 step
// 4).
type RollupConfig struct {
	AllowedEoaTypeHashes      [][32]byte
	AllowedContractTypeHashes [][32]byte
	ChallengeScriptTypeHash   [32]byte
	L2SudtValidatorTypeHash   [32]byte
}

func (r RollupConfig) Encode() []byte {
	w := NewWriter()
	w.WriteU32LE(uint32(len(r.AllowedEoaTypeHashes)))
	for _, h := range r.AllowedEoaTypeHashes {
		w.WriteHash(h)
	}
	w.WriteU32LE(uint32(len(r.AllowedContractTypeHashes)))
	for _, h := range r.AllowedContractTypeHashes {
		w.WriteHash(h)
	}
	w.WriteHash(r.ChallengeScriptTypeHash)
	w.WriteHash(r.L2SudtValidatorTypeHash)
	return w.Bytes()
}

func DecodeRollupConfig(b []byte) (RollupConfig, error) {
	c := NewCursor(b)
	eoaCount, err := c.ReadU32LE()
	if err != nil {
		return RollupConfig{}, fmt.Errorf("rollup_config.allowed_eoa_type_hashes.len: %w", err)
	}
	eoa := make([][32]byte, 0, eoaCount)
	for i := uint32(0); i < eoaCount; i++ {
		h, err := c.ReadHash()
		if err != nil {
			return RollupConfig{}, fmt.Errorf("rollup_config.allowed_eoa_type_hashes[%d]: %w", i, err)
		}
		eoa = append(eoa, h)
	}
	contractCount, err := c.ReadU32LE()
	if err != nil {
		return RollupConfig{}, fmt.Errorf("rollup_config.allowed_contract_type_hashes.len: %w", err)
	}
	contracts := make([][32]byte, 0, contractCount)
	for i := uint32(0); i < contractCount; i++ {
		h, err := c.ReadHash()
		if err != nil {
			return RollupConfig{}, fmt.Errorf("rollup_config.allowed_contract_type_hashes[%d]: %w", i, err)
		}
		contracts = append(contracts, h)
	}
	challengeHash, err := c.ReadHash()
	if err != nil {
		return RollupConfig{}, fmt.Errorf("rollup_config.challenge_script_type_hash: %w", err)
	}
	sudtHash, err := c.ReadHash()
	if err != nil {
		return RollupConfig{}, fmt.Errorf("rollup_config.l2_sudt_validator_script_type_hash: %w", err)
	}
	return RollupConfig{
		AllowedEoaTypeHashes:      eoa,
		AllowedContractTypeHashes: contracts,
		ChallengeScriptTypeHash:   challengeHash,
		L2SudtValidatorTypeHash:   sudtHash,
	}, nil
}

// Target types a ChallengeTarget may name. Only TARGET_TYPE_TRANSACTION is
// accepted by this spec (spec §4.3 step 5).
const (
	TargetTypeTransaction byte = 0
	TargetTypeWithdrawal  byte = 1
)

// ChallengeTarget names the specific thing being challenged.
type ChallengeTarget struct {
	BlockHash   [32]byte
	TargetIndex uint32
	TargetType  byte
}

func (t ChallengeTarget) Encode() []byte {
	w := NewWriter()
	w.WriteHash(t.BlockHash)
	w.WriteU32LE(t.TargetIndex)
	w.WriteU8(t.TargetType)
	return w.Bytes()
}

func DecodeChallengeTarget(b []byte) (ChallengeTarget, error) {
	c := NewCursor(b)
	blockHash, err := c.ReadHash()
	if err != nil {
		return ChallengeTarget{}, fmt.Errorf("challenge_target.block_hash: %w", err)
	}
	idx, err := c.ReadU32LE()
	if err != nil {
		return ChallengeTarget{}, fmt.Errorf("challenge_target.target_index: %w", err)
	}
	tt, err := c.ReadU8()
	if err != nil {
		return ChallengeTarget{}, fmt.Errorf("challenge_target.target_type: %w", err)
	}
	return ChallengeTarget{BlockHash: blockHash, TargetIndex: idx, TargetType: tt}, nil
}

// ChallengeLockArgs is the challenge cell's lock args: the rollup's script
// hash followed by the encoded ChallengeTarget (spec §4.3 step 5).
type ChallengeLockArgs struct {
	RollupTypeHash [32]byte
	Target         ChallengeTarget
}

func DecodeChallengeLockArgs(b []byte) (ChallengeLockArgs, error) {
	c := NewCursor(b)
	rth, err := c.ReadHash()
	if err != nil {
		return ChallengeLockArgs{}, fmt.Errorf("challenge_lock_args.rollup_type_hash: %w", err)
	}
	rest, err := c.ReadExact(c.Remaining())
	if err != nil {
		return ChallengeLockArgs{}, fmt.Errorf("challenge_lock_args.target: %w", err)
	}
	target, err := DecodeChallengeTarget(rest)
	if err != nil {
		return ChallengeLockArgs{}, err
	}
	return ChallengeLockArgs{RollupTypeHash: rth, Target: target}, nil
}

// GlobalState is the rollup cell's data (spec §4.3 step 3). Only the two
// fields the loader needs are modeled; the host's real GlobalState has
// more (account merkle state, status, tip block hash, …) which are not
// exercised by this spec's finalize path beyond what the validator's Init
// threads through explicitly.
type GlobalState struct {
	BlockMerkleRoot   [32]byte
	RollupConfigHash  [32]byte
}

func (g GlobalState) Encode() []byte {
	w := NewWriter()
	w.WriteHash(g.BlockMerkleRoot)
	w.WriteHash(g.RollupConfigHash)
	return w.Bytes()
}

func DecodeGlobalState(b []byte) (GlobalState, error) {
	c := NewCursor(b)
	root, err := c.ReadHash()
	if err != nil {
		return GlobalState{}, fmt.Errorf("global_state.block_merkle_root: %w", err)
	}
	cfgHash, err := c.ReadHash()
	if err != nil {
		return GlobalState{}, fmt.Errorf("global_state.rollup_config_hash: %w", err)
	}
	return GlobalState{BlockMerkleRoot: root, RollupConfigHash: cfgHash}, nil
}
