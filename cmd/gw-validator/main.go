// Command gw-validator is a thin CLI harness around the validator
// package: it loads a JSON-described cell/witness fixture, runs the
// witness loader and finalize checks against it, and prints the verdict.
// It exists for manual exercise and fixture replay, the same role
// cmd/rubin-node's flag-and-print skeleton plays for the teacher's
// consensus/node packages, not as a production host integration.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"gw.dev/validator"
	"gw.dev/validator/contracts"
	"gw.dev/validator/crypto"
	"gw.dev/validator/hostio"
	"gw.dev/validator/molecule"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gw-validator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fixturePath := fs.String("fixture", "", "path to a JSON fixture file describing cells and witnesses")
	sudtId := fs.Uint("canonical-sudt-id", 1, "account id treated as the canonical fee sUDT")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *fixturePath == "" {
		_, _ = fmt.Fprintln(stderr, "gw-validator: -fixture is required")
		return 2
	}

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fixture read failed: %v\n", err)
		return 2
	}
	var doc fixtureDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		_, _ = fmt.Fprintf(stderr, "fixture decode failed: %v\n", err)
		return 2
	}
	host, err := doc.toFixture()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fixture assembly failed: %v\n", err)
		return 2
	}

	cryptoProvider := crypto.DevStdCryptoProvider{}
	notChallenged, verifyErr := validator.Run(cryptoProvider, host, func(ctx *validator.Context) error {
		return dispatch(ctx, validator.AccountId(*sudtId))
	})

	switch {
	case notChallenged:
		_, _ = fmt.Fprintln(stdout, "verdict: not_a_challenge")
		return 0
	case verifyErr == nil:
		_, _ = fmt.Fprintln(stdout, "verdict: valid")
		return 0
	default:
		code := validator.CodeOf(verifyErr)
		_, _ = fmt.Fprintf(stdout, "verdict: invalid code=%s msg=%v\n", code, verifyErr)
		if code.Fatal() {
			return 1
		}
		return 0
	}
}

// dispatch interprets ctx.Tx.Args as a tiny tag-prefixed message envelope
// (tag byte, then tag-specific fields) and routes it to the matching
// built-in contract handler. This wire shape is the CLI/test harness'
// own convenience encoding for driving the message types spec §4.7 names
// abstractly — it is not part of the witness wire format.
func dispatch(ctx *validator.Context, canonicalSudtId validator.AccountId) error {
	args := ctx.Tx.Args
	if len(args) == 0 {
		return nil
	}
	tag := args[0]
	body := args[1:]

	switch ctx.Tx.ToId {
	case contracts.MetaAccountId:
		if tag != msgTagCreateAccount {
			return nil
		}
		payer, fee, script, err := decodeCreateAccount(body)
		if err != nil {
			return err
		}
		meta := contracts.Meta{Ctx: ctx, CanonicalSudtId: canonicalSudtId}
		_, err = meta.CreateAccount(ctx.Tx.FromId, payer, fee, script)
		return err
	default:
		sudt := contracts.Sudt{Ctx: ctx, Id: ctx.Tx.ToId}
		switch tag {
		case msgTagQuery:
			_, err := sudt.Query(body)
			return err
		case msgTagTransfer:
			from, to, amount, err := decodeTransfer(body)
			if err != nil {
				return err
			}
			return sudt.Transfer(from, to, amount)
		default:
			return nil
		}
	}
}

const (
	msgTagCreateAccount byte = 0
	msgTagQuery         byte = 1
	msgTagTransfer      byte = 2
)

func decodeCreateAccount(b []byte) (payer []byte, fee validator.Amount, script []byte, err error) {
	if len(b) < 20+32 {
		return nil, validator.Amount{}, nil, fmt.Errorf("create_account message too short")
	}
	payer = append([]byte(nil), b[:20]...)
	var feeLE [32]byte
	copy(feeLE[:], b[20:52])
	return payer, validator.AmountFromLE(feeLE), append([]byte(nil), b[52:]...), nil
}

func decodeTransfer(b []byte) (from, to []byte, amount validator.Amount, err error) {
	if len(b) < 20+20+32 {
		return nil, nil, validator.Amount{}, fmt.Errorf("transfer message too short")
	}
	from = append([]byte(nil), b[:20]...)
	to = append([]byte(nil), b[20:40]...)
	var amtLE [32]byte
	copy(amtLE[:], b[40:72])
	return from, to, validator.AmountFromLE(amtLE), nil
}

// fixtureDoc is the JSON shape a fixture file is decoded from: every byte
// field is hex-encoded.
type fixtureDoc struct {
	CurrentScript scriptJSON   `json:"current_script"`
	Inputs        []cellJSON   `json:"inputs"`
	Outputs       []cellJSON   `json:"outputs"`
	CellDeps      []cellJSON   `json:"cell_deps"`
	Witnesses     []witnessJSON `json:"witnesses"`
}

type scriptJSON struct {
	CodeHash string `json:"code_hash"`
	HashType string `json:"hash_type"`
	Args     string `json:"args"`
}

type cellJSON struct {
	Data string     `json:"data"`
	Lock scriptJSON `json:"lock"`
}

type witnessJSON struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Raw    string `json:"raw"`
}

func (d fixtureDoc) toFixture() (*hostio.Fixture, error) {
	f := hostio.NewFixture()

	script, err := decodeScriptJSON(d.CurrentScript)
	if err != nil {
		return nil, fmt.Errorf("current_script: %w", err)
	}
	f.CurrentScriptValue = script

	c := crypto.DevStdCryptoProvider{}
	buildCells := func(in []cellJSON) ([]hostio.Cell, error) {
		out := make([]hostio.Cell, 0, len(in))
		for i, cj := range in {
			data, err := hex.DecodeString(cj.Data)
			if err != nil {
				return nil, fmt.Errorf("cell[%d].data: %w", i, err)
			}
			lock, err := decodeScriptJSON(cj.Lock)
			if err != nil {
				return nil, fmt.Errorf("cell[%d].lock: %w", i, err)
			}
			dataHash := c.Blake2b256(data)
			lockHash := c.Blake2b256(lock.Encode())
			out = append(out, hostio.Cell{
				Data:     data,
				DataHash: dataHash,
				Lock:     lock,
				LockHash: lockHash,
				TypeHash: lockHash,
			})
		}
		return out, nil
	}

	inputs, err := buildCells(d.Inputs)
	if err != nil {
		return nil, err
	}
	f.Inputs = inputs
	outputs, err := buildCells(d.Outputs)
	if err != nil {
		return nil, err
	}
	f.Outputs = outputs
	cellDeps, err := buildCells(d.CellDeps)
	if err != nil {
		return nil, err
	}
	f.CellDeps = cellDeps

	for i, w := range d.Witnesses {
		raw, err := hex.DecodeString(w.Raw)
		if err != nil {
			return nil, fmt.Errorf("witness[%d].raw: %w", i, err)
		}
		src, err := parseSource(w.Source)
		if err != nil {
			return nil, fmt.Errorf("witness[%d].source: %w", i, err)
		}
		f.SetWitness(src, w.Index, raw)
	}

	return f, nil
}

func decodeScriptJSON(s scriptJSON) (molecule.Script, error) {
	codeHash, err := hex.DecodeString(s.CodeHash)
	if err != nil || len(codeHash) != 32 {
		return molecule.Script{}, fmt.Errorf("invalid code_hash")
	}
	args, err := hex.DecodeString(s.Args)
	if err != nil {
		return molecule.Script{}, fmt.Errorf("invalid args")
	}
	var ht molecule.HashType
	switch s.HashType {
	case "type", "":
		ht = molecule.HashTypeType
	case "data":
		ht = molecule.HashTypeData
	default:
		return molecule.Script{}, fmt.Errorf("unknown hash_type %q", s.HashType)
	}
	var out molecule.Script
	copy(out.CodeHash[:], codeHash)
	out.HashType = ht
	out.Args = args
	return out, nil
}

func parseSource(s string) (hostio.Source, error) {
	switch s {
	case "input", "":
		return hostio.SourceInput, nil
	case "output":
		return hostio.SourceOutput, nil
	case "cell_dep":
		return hostio.SourceCellDep, nil
	default:
		return 0, fmt.Errorf("unknown source %q", s)
	}
}
