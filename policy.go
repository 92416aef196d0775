package validator

import (
	"bytes"

	"gw.dev/validator/molecule"
)

// ValidateScript enforces the account script allow-list of spec §4.5. It
// is the direct generalization of the teacher's
// consensus/covenant_genesis.go:ValidateTxCovenantsGenesis idiom — a
// switch over a finite tag space, one error code per violation — to a
// two-list (EOA vs. contract) membership check instead of a covenant-type
// switch.
func ValidateScript(script molecule.Script, rollupScriptHash Hash, cfg molecule.RollupConfig) error {
	if len(script.Encode()) > MaxScriptBytes {
		return newErr(InvalidContractScript, "account script exceeds max size")
	}
	if script.HashType != molecule.HashTypeType {
		return newErr(UnknownScriptCodeHash, "account script hash_type must be type")
	}

	if hashInList(script.CodeHash, cfg.AllowedEoaTypeHashes) {
		return nil
	}
	if hashInList(script.CodeHash, cfg.AllowedContractTypeHashes) {
		if len(script.Args) < 32 {
			return newErr(InvalidContractScript, "contract script args shorter than rollup script hash")
		}
		if !bytes.Equal(script.Args[:32], rollupScriptHash[:]) {
			return newErr(InvalidContractScript, "contract script args do not start with rollup script hash")
		}
		return nil
	}
	return newErr(UnknownScriptCodeHash, "account script code_hash not in allowed eoa or contract lists")
}

func hashInList(h Hash, list [][32]byte) bool {
	for _, candidate := range list {
		if candidate == h {
			return true
		}
	}
	return false
}
