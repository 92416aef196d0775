// Package contracts implements the built-in contract glue of spec §4.7:
// thin message handlers layered on top of a *validator.Context's syscall
// surface (C5), grounded the same way the teacher's consensus package
// layers transaction-type handlers (covenant_*.go) over the shared UTXO
// state rather than reimplementing storage access per handler.
package contracts

import (
	"encoding/binary"

	"gw.dev/validator"
)

// sudtBalanceFlag tags a balance entry in a sUDT account's KV space (spec
// §4.7: "key = flag(1) || addr_len_LE32 || addr_bytes").
const sudtBalanceFlag = 1

// SudtTransferLogFlag is the log flag attached to a successful transfer
// (spec §4.4 "log", §4.7: "emit Log(sudt_id, SUDT_TRANSFER, encoded)").
const SudtTransferLogFlag = 2

// Sudt wraps a Context scoped to one sUDT account id, implementing the
// Query/Transfer message pair of spec §4.7.
type Sudt struct {
	Ctx *validator.Context
	Id  validator.AccountId
}

func balanceKey(addr []byte) []byte {
	key := make([]byte, 0, 1+4+len(addr))
	key = append(key, sudtBalanceFlag)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(addr)))
	key = append(key, lenBuf[:]...)
	key = append(key, addr...)
	return key
}

// checkAddrLen rejects addresses whose length does not match the
// registered format, per original_source/sudt_utils.h's validation ahead
// of every balance read or write.
func checkAddrLen(addr []byte) error {
	if len(addr) != 20 {
		return &validator.Error{Code: validator.ShortAddrLen, Msg: "sudt address must be 20 bytes"}
	}
	return nil
}

// Query implements spec §4.7 "sUDT contract: messages Query{addr}": read
// the balance, treating an absent entry as zero.
func (s Sudt) Query(addr []byte) (validator.Amount, error) {
	if err := checkAddrLen(addr); err != nil {
		return validator.ZeroAmount(), err
	}
	v, err := s.Ctx.Load(s.Id, balanceKey(addr))
	if validator.CodeOf(err) == validator.NotFound {
		return validator.ZeroAmount(), nil
	}
	if err != nil {
		return validator.ZeroAmount(), err
	}
	return validator.AmountFromLE(v), nil
}

// Transfer handles the sUDT transfer message for its from, to and amount:
// debit from, credit to (overflow-checked), log unconditionally,
// including on self-transfer (§8.1's open-question resolution: self-
// transfer is allowed, not rejected). It takes no fee and charges none.
func (s Sudt) Transfer(from, to []byte, amount validator.Amount) error {
	if err := checkAddrLen(from); err != nil {
		return err
	}
	if err := checkAddrLen(to); err != nil {
		return err
	}

	fromBalance, err := s.balance(from)
	if err != nil {
		return err
	}
	newFrom, err := fromBalance.Sub(amount)
	if err != nil {
		return err
	}
	if err := s.Ctx.Store(s.Id, balanceKey(from), newFrom.LE()); err != nil {
		return err
	}

	// Re-read to's balance only after debiting from: when from == to this
	// observes the just-debited value, so a self-transfer nets to no
	// change instead of double-crediting a stale pre-debit snapshot.
	toBalance, err := s.balance(to)
	if err != nil {
		return err
	}
	newTo, err := toBalance.Add(amount)
	if err != nil {
		return err
	}
	if err := s.Ctx.Store(s.Id, balanceKey(to), newTo.LE()); err != nil {
		return err
	}

	logData := make([]byte, 0, 40+8)
	logData = append(logData, from...)
	logData = append(logData, to...)
	amtBytes := amount.LE()
	logData = append(logData, amtBytes[:]...)
	return s.Ctx.Log(s.Id, SudtTransferLogFlag, logData)
}

func (s Sudt) balance(addr []byte) (validator.Amount, error) {
	v, err := s.Ctx.Load(s.Id, balanceKey(addr))
	if validator.CodeOf(err) == validator.NotFound {
		return validator.ZeroAmount(), nil
	}
	if err != nil {
		return validator.ZeroAmount(), err
	}
	return validator.AmountFromLE(v), nil
}
