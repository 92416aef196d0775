package contracts

import "gw.dev/validator"

// MetaAccountId is the reserved account id for the meta contract (spec
// §4.7: "Meta contract (to_id == 0)").
const MetaAccountId validator.AccountId = 0

// Meta wraps a Context scoped to the meta contract.
type Meta struct {
	Ctx             *validator.Context
	CanonicalSudtId validator.AccountId
}

// CreateAccount implements spec §4.7's CreateAccount{fee, script} message.
// Fee payment happens before account creation, the same ordering
// original_source/meta_contract.c uses so a failed payment never leaves a
// dangling account id.
func (m Meta) CreateAccount(payerId validator.AccountId, payer []byte, fee validator.Amount, scriptBytes []byte) (validator.AccountId, error) {
	if err := m.Ctx.PayFee(payerId, m.CanonicalSudtId, fee); err != nil {
		return 0, err
	}

	sudt := Sudt{Ctx: m.Ctx, Id: m.CanonicalSudtId}
	payerBalance, err := sudt.balance(payer)
	if err != nil {
		return 0, err
	}
	remaining, err := payerBalance.Sub(fee)
	if err != nil {
		return 0, err
	}
	if err := m.Ctx.Store(m.CanonicalSudtId, balanceKey(payer), remaining.LE()); err != nil {
		return 0, err
	}

	return m.Ctx.Create(scriptBytes)
}
