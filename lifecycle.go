package validator

import (
	"gw.dev/validator/crypto"
	"gw.dev/validator/hostio"
)

// Finalize runs the four-step check of spec §4.6 against the Context's
// accumulated state, in the same "single terminal verdict, first failure
// wins" shape the teacher's consensus/block_verify.go uses for block
// acceptance.
func (ctx *Context) Finalize() error {
	// Step 1: account count.
	if ctx.PostAccount.Count != ctx.AccountCount {
		return newErr(FatalInvalidData, "post_account.count does not match observed account_count")
	}

	// Step 2: sender nonce policy (spec §4.4 "Sender nonce policy").
	if err := ctx.applyNoncePolicy(); err != nil {
		return err
	}

	// Step 3: return-data hash.
	expected := ctx.Crypto.Blake2b256(ctx.Receipt.ReturnData)
	if expected != ctx.ReturnDataHash {
		return newErr(FatalMismatchReturnData, "blake2b(return_data) does not match witness return_data_hash")
	}

	// Step 4: post-root.
	ctx.KVState.Normalize()
	if err := smtVerifyState(ctx.Crypto, ctx.PostAccount.Root, ctx.KVState, ctx.kvStateProof); err != nil {
		return err
	}
	return nil
}

// applyNoncePolicy implements spec §4.4's sender nonce policy: the current
// value must be original+0 (finalize bumps it to original+1) or
// original+k for k>=1 (accepted unchanged); anything below original is
// fatal.
func (ctx *Context) applyNoncePolicy() error {
	current, err := ctx.GetAccountNonce(ctx.Tx.FromId)
	if err != nil {
		return err
	}
	switch {
	case current < ctx.OriginalSenderNonce:
		return newErr(FatalInvalidData, "sender nonce regressed below original value")
	case current == ctx.OriginalSenderNonce:
		return ctx.setAccountNonce(ctx.Tx.FromId, current+1)
	default:
		return nil
	}
}

// Run drives a single verification end to end (spec §4.3 + §4.6): Init
// assembles the Context and checks the pre-root, the caller executes its
// program logic against ctx, and Finalize checks the post-state. If no
// input cell matches the rollup script hash, Run reports notChallenged =
// true and exits early without touching exit, matching the "not a
// challenge" early-out of spec §4.3 step 2.
func Run(c crypto.CryptoProvider, host hostio.Host, program func(*Context) error) (notChallenged bool, err error) {
	ctx, err := Init(c, host)
	if err != nil {
		if err == ErrNotAChallenge {
			return true, nil
		}
		return false, err
	}

	if err := program(ctx); err != nil {
		return false, err
	}
	return false, ctx.Finalize()
}
