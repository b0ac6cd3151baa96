package svm

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MsgTransaction is the envelope handed to the host chain's SVM module.
// Account order is significant: instructions refer to accounts by position, and the
// list is not deduplicated.
type MsgTransaction struct {
	// Sender is the host chain address of the actor that signed the message
	Sender string `json:"sender"`
	// Accounts are the base58 SVM addresses referenced by the instructions
	Accounts []string `json:"accounts"`
	// Instructions are executed in order
	Instructions []Instruction `json:"instructions"`
	// ComputeBudget is the compute unit limit for the whole transaction
	ComputeBudget uint64 `json:"compute_budget"`
}

// Instruction is a single program invocation inside a MsgTransaction.
type Instruction struct {
	// ProgramIndex points into MsgTransaction.Accounts at the invoked program
	ProgramIndex []uint32 `json:"program_index"`
	// Accounts are the account roles, in the order the program expects them
	Accounts []InstructionAccount `json:"accounts"`
	// Data is the raw instruction payload
	Data []byte `json:"data"`
}

// InstructionAccount describes one account slot of an instruction.
// The three indices live in different spaces (envelope, caller view, callee view) and
// are not required to coincide.
type InstructionAccount struct {
	IDIndex     uint32 `json:"id_index"`
	CallerIndex uint32 `json:"caller_index"`
	CalleeIndex uint32 `json:"callee_index"`
	IsSigner    bool   `json:"is_signer"`
	IsWritable  bool   `json:"is_writable"`
}

// Validate checks that every index points inside the account list.
func (m *MsgTransaction) Validate() error {
	if m.Sender == "" {
		return fmt.Errorf("sender is required")
	}
	n := uint32(len(m.Accounts))
	for i, ix := range m.Instructions {
		if len(ix.ProgramIndex) == 0 {
			return fmt.Errorf("instruction %d: program index is required", i)
		}
		for _, p := range ix.ProgramIndex {
			if p >= n {
				return fmt.Errorf("instruction %d: program index %d out of range (%d accounts)", i, p, n)
			}
		}
		for j, acc := range ix.Accounts {
			if acc.IDIndex >= n || acc.CallerIndex >= n {
				return fmt.Errorf("instruction %d: account %d index out of range (%d accounts)", i, j, n)
			}
		}
	}
	return nil
}

// MarshalJSON is the encoding the host's message router expects.
func (m *MsgTransaction) MarshalJSON() ([]byte, error) {
	type alias MsgTransaction
	out := alias(*m)
	if out.Accounts == nil {
		out.Accounts = []string{}
	}
	if out.Instructions == nil {
		out.Instructions = []Instruction{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads compute_budget either as a number or as the quoted string proto
// JSON uses for 64-bit integers.
func (m *MsgTransaction) UnmarshalJSON(bz []byte) error {
	type alias MsgTransaction
	var raw struct {
		alias
		ComputeBudget json.Number `json:"compute_budget"`
	}
	if err := json.Unmarshal(bz, &raw); err != nil {
		return err
	}
	*m = MsgTransaction(raw.alias)
	if raw.ComputeBudget != "" {
		budget, err := strconv.ParseUint(raw.ComputeBudget.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("compute_budget: %w", err)
		}
		m.ComputeBudget = budget
	}
	return nil
}
