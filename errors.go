package validator

import "fmt"

// Code is the stable, non-overlapping error-code space of spec §6.3. It is
// a string type (not an int) for the same reason the teacher's
// consensus.ErrorCode is: a stable, greppable wire-visible name, not a
// magic number that drifts between versions.
type Code string

const (
	Success Code = "SUCCESS"

	NotFound              Code = "NOT_FOUND"
	AccountNotExists      Code = "ACCOUNT_NOT_EXISTS"
	UnknownScriptCodeHash Code = "UNKNOWN_SCRIPT_CODE_HASH"
	InvalidContractScript Code = "INVALID_CONTRACT_SCRIPT"

	InsufficientBalance Code = "INSUFFICIENT_BALANCE"
	AmountOverflow      Code = "AMOUNT_OVERFLOW"
	ShortAddrLen        Code = "SHORT_ADDR_LEN"

	InvalidStack Code = "INVALID_STACK"
	InvalidSibling Code = "INVALID_SIBLING"
	InvalidProof Code = "INVALID_PROOF"

	FatalInvalidContext        Code = "FATAL_INVALID_CONTEXT"
	FatalInvalidData           Code = "FATAL_INVALID_DATA"
	FatalBufferOverflow        Code = "FATAL_BUFFER_OVERFLOW"
	FatalAccountNotFound       Code = "FATAL_ACCOUNT_NOT_FOUND"
	FatalDataCellNotFound      Code = "FATAL_DATA_CELL_NOT_FOUND"
	FatalSignatureCellNotFound Code = "FATAL_SIGNATURE_CELL_NOT_FOUND"
	FatalMismatchReturnData    Code = "FATAL_MISMATCH_RETURN_DATA"
	FatalInvalidSudtScript     Code = "FATAL_INVALID_SUDT_SCRIPT"
)

// Fatal reports whether c belongs to the unrecoverable class of §7: the
// first fatal code observed must short-circuit straight to the host exit
// code, never be swallowed by a contract.
func (c Code) Fatal() bool {
	switch c {
	case FatalInvalidContext, FatalInvalidData, FatalBufferOverflow,
		FatalAccountNotFound, FatalDataCellNotFound, FatalSignatureCellNotFound,
		FatalMismatchReturnData, FatalInvalidSudtScript:
		return true
	default:
		return false
	}
}

// Error pairs a stable Code with a free-form diagnostic message. The
// message is for humans only (§7: "Diagnostic messages... must never alter
// control flow"); callers must branch on Code, never on Msg.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// CodeOf extracts the Code carried by err, or Success if err is nil. A
// non-validator error (should not happen in normal operation) maps to
// FatalInvalidContext, since an untyped error reaching the host boundary
// is itself a context-assembly defect.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if ve, ok := err.(*Error); ok {
		return ve.Code
	}
	return FatalInvalidContext
}
