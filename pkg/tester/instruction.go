package tester

import (
	"fmt"

	"github.com/aretw0/stacktester/pkg/tuple"
)

// Instruction operations.
const (
	OpPush           = "PUSH"
	OpPop            = "POP"
	OpDup            = "DUP"
	OpEmptyStack     = "EMPTY_STACK"
	OpSwap           = "SWAP"
	OpSub            = "SUB"
	OpConcat         = "CONCAT"
	OpLogStack       = "LOG_STACK"
	OpNewTransaction = "NEW_TRANSACTION"
	OpUseTransaction = "USE_TRANSACTION"
	OpOnError        = "ON_ERROR"
	OpGet            = "GET"
	OpSet            = "SET"
	OpClear          = "CLEAR"
	OpClearRange     = "CLEAR_RANGE"
	OpGetRange       = "GET_RANGE"
	OpGetReadVersion = "GET_READ_VERSION"
	OpCommit         = "COMMIT"
	OpReset          = "RESET"
	OpCancel         = "CANCEL"
	OpWaitFuture     = "WAIT_FUTURE"
	OpStartThread    = "START_THREAD"
	OpWaitEmpty      = "WAIT_EMPTY"
)

// Instruction is one decoded step of an instruction stream.
type Instruction struct {
	Op     string
	Arg    any
	HasArg bool
}

// Push returns a PUSH instruction carrying v.
func Push(v any) Instruction {
	return Instruction{Op: OpPush, Arg: v, HasArg: true}
}

// Op returns an instruction without argument.
func Op(op string) Instruction {
	return Instruction{Op: op}
}

// Encode packs the instruction as a tuple.
func (i Instruction) Encode() []byte {
	if i.HasArg {
		return tuple.Pack(i.Op, i.Arg)
	}
	return tuple.Pack(i.Op)
}

func (i Instruction) String() string {
	if i.HasArg {
		return fmt.Sprintf("%s %v", i.Op, i.Arg)
	}
	return i.Op
}

// Decode unpacks an instruction. The operation may be a unicode or byte string.
func Decode(b []byte) (Instruction, error) {
	t, err := tuple.Unpack(b)
	if err != nil {
		return Instruction{}, fmt.Errorf("failed to decode instruction: %w", err)
	}
	if len(t) == 0 || len(t) > 2 {
		return Instruction{}, fmt.Errorf("%w: instruction has %d elements", ErrMalformedInstruction, len(t))
	}

	var inst Instruction
	switch op := t[0].(type) {
	case string:
		inst.Op = op
	case []byte:
		inst.Op = string(op)
	default:
		return Instruction{}, fmt.Errorf("%w: operation is %T", ErrMalformedInstruction, t[0])
	}
	if len(t) == 2 {
		inst.Arg = t[1]
		inst.HasArg = true
	}
	return inst, nil
}

// Key returns the key instruction index is stored under for prefix.
func Key(prefix []byte, index int) []byte {
	return tuple.Pack(prefix, int64(index))
}
