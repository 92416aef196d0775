package validator

import (
	"testing"

	"gw.dev/validator/crypto"
	"gw.dev/validator/hostio"
	"gw.dev/validator/molecule"
	"gw.dev/validator/smt"
)

// lifecycleFixture bundles everything needed to construct a single,
// minimal but fully self-consistent challenge fixture: one sender
// account (id 0) whose script-hash field is the only present KV leaf
// pre-transaction, and whose nonce field is reserved (present at zero)
// so Finalize's nonce bump lands in the same proof-committed leaf set.
type lifecycleFixture struct {
	host       *hostio.Fixture
	crypto     crypto.CryptoProvider
	nonceKey   Key
	scriptKey  Key
	preRoot    Hash
	postRootOK Hash // post-root assuming a plain nonce bump and no other mutation
}

func buildLifecycleFixture(t *testing.T, returnDataHash Hash) lifecycleFixture {
	t.Helper()
	c := crypto.DevStdCryptoProvider{}
	keys := NewKeySchema(c)

	var rollupScriptHash Hash
	rollupScriptHash = c.Blake2b256([]byte("rollup-script"))

	var challengeScriptTypeHash Hash
	challengeScriptTypeHash = c.Blake2b256([]byte("challenge-script"))

	cfg := molecule.RollupConfig{ChallengeScriptTypeHash: challengeScriptTypeHash}
	cfgBytes := cfg.Encode()
	rollupConfigHash := c.Blake2b256(cfgBytes)

	globalState := molecule.GlobalState{RollupConfigHash: rollupConfigHash}
	globalStateBytes := globalState.Encode()

	nonceKey := keys.AccountNonceKey(0)
	scriptKey := keys.AccountScriptHashKey(0)
	var scriptHashValue Hash
	scriptHashValue[0] = 0xAB

	leafScript := leafHashForTest(c, scriptKey, scriptHashValue)
	preRoot := merge(c, zeroHashForTest(), leafScript) // nonce leaf (zero value) collapses away
	_ = preRoot

	var nonceAfterBump Value
	nonceAfterBump[0] = 1
	leafNonceAfter := leafHashForTest(c, nonceKey, nonceAfterBump)
	postRootOK := merge(c, leafNonceAfter, leafScript)

	l2tx := molecule.L2Transaction{FromId: 0, ToId: 0, Args: nil}
	txHash := c.Blake2b256(l2tx.Encode())
	txLeaf := txLeafKey(0)
	txRoot := leafHashForTest(c, txLeaf, txHash)

	rawBlock := molecule.RawL2Block{
		Number:    1,
		Timestamp: 0,
		SubmitTransactions: molecule.SubmitTransactions{
			TxWitnessRoot:       txRoot,
			PrevStateCheckpoint: merge(c, zeroHashForTest(), leafScript),
			WithdrawalsCount:    0,
		},
		StateCheckpoints: [][32]byte{postRootOK},
	}
	blockHash := c.Blake2b256(rawBlock.Encode())

	target := molecule.ChallengeTarget{BlockHash: blockHash, TargetIndex: 0, TargetType: molecule.TargetTypeTransaction}
	lockArgs := append(append([]byte{}, rollupScriptHash[:]...), target.Encode()...)

	witness := molecule.VerifyTransactionWitness{
		RawL2Block: rawBlock,
		L2Tx:       l2tx,
		TxProof:    []byte{smt.OpLeaf},
		KVStateProof: []byte{
			smt.OpLeaf, smt.OpLeaf, smt.OpMerge, 33,
		},
		Context: molecule.VerifyTransactionContext{
			KVState: []molecule.KVPair{
				{Key: nonceKey, Value: Value{}},
				{Key: scriptKey, Value: scriptHashValue},
			},
			ReturnDataHash: returnDataHash,
		},
		PrevAccountCount: 0,
		PostAccountCount: 0,
	}
	witnessBytes := witness.Encode()
	wargs := molecule.WitnessArgs{Lock: witnessBytes, HasLock: true}

	host := hostio.NewFixture()
	host.CurrentScriptValue = molecule.Script{Args: rollupScriptHash[:]}
	rollupCell := hostio.Cell{Data: globalStateBytes, DataHash: c.Blake2b256(globalStateBytes), TypeHash: rollupScriptHash}
	challengeCell := hostio.Cell{Lock: molecule.Script{CodeHash: challengeScriptTypeHash, HashType: molecule.HashTypeType, Args: lockArgs}}
	host.Inputs = []hostio.Cell{rollupCell, challengeCell}
	host.CellDeps = []hostio.Cell{{Data: cfgBytes, DataHash: rollupConfigHash}}
	host.SetWitness(hostio.SourceInput, 1, wargs.Encode())

	return lifecycleFixture{
		host: host, crypto: c,
		nonceKey: nonceKey, scriptKey: scriptKey,
		preRoot: preRoot, postRootOK: postRootOK,
	}
}

// leafHashForTest and zeroHashForTest/merge re-derive the SMT primitives
// locally so this test does not need to export internal smt helpers.
func leafHashForTest(c crypto.CryptoProvider, key, value Hash) Hash {
	if value == (Hash{}) {
		return Hash{}
	}
	buf := make([]byte, 64)
	copy(buf[0:32], key[:])
	copy(buf[32:64], value[:])
	return c.Blake2b256(buf)
}

func zeroHashForTest() Hash { return Hash{} }

func merge(c crypto.CryptoProvider, l, r Hash) Hash {
	if r == (Hash{}) {
		return l
	}
	if l == (Hash{}) {
		return r
	}
	buf := make([]byte, 64)
	copy(buf[0:32], l[:])
	copy(buf[32:64], r[:])
	return c.Blake2b256(buf)
}

func TestInitAndFinalizeNonceBump(t *testing.T) {
	c := crypto.DevStdCryptoProvider{}
	expectedReturnDataHash := c.Blake2b256(nil)
	fx := buildLifecycleFixture(t, expectedReturnDataHash)

	ctx, err := Init(fx.crypto, fx.host)
	if err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}
	if ctx.OriginalSenderNonce != 0 {
		t.Fatalf("OriginalSenderNonce = %d, want 0", ctx.OriginalSenderNonce)
	}

	// No explicit store: finalize must bump the sender's nonce by one.
	if err := ctx.Finalize(); err != nil {
		t.Fatalf("Finalize() = %v, want nil", err)
	}

	nonce, err := ctx.GetAccountNonce(0)
	if err != nil {
		t.Fatalf("GetAccountNonce() = %v", err)
	}
	if nonce != 1 {
		t.Fatalf("nonce after Finalize = %d, want 1", nonce)
	}
}

func TestFinalizeMismatchReturnData(t *testing.T) {
	var wrongHash Hash
	wrongHash[0] = 0xFF // does not match blake2b(nil)
	fx := buildLifecycleFixture(t, wrongHash)

	ctx, err := Init(fx.crypto, fx.host)
	if err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	err = ctx.Finalize()
	if CodeOf(err) != FatalMismatchReturnData {
		t.Fatalf("Finalize() code = %v, want FatalMismatchReturnData", CodeOf(err))
	}
}

func TestInitNotAChallenge(t *testing.T) {
	c := crypto.DevStdCryptoProvider{}
	host := hostio.NewFixture()
	host.CurrentScriptValue = molecule.Script{Args: make([]byte, 32)}
	// No input cells at all: no rollup cell can match.

	_, err := Init(c, host)
	if err != ErrNotAChallenge {
		t.Fatalf("Init() = %v, want ErrNotAChallenge", err)
	}
}
