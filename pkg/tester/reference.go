package tester

import (
	"fmt"
	"strings"
)

// OpInfo documents one operation of the instruction set.
type OpInfo struct {
	Op      string
	Pops    string
	Pushes  string
	Summary string
}

// Reference lists the instruction set in execution-manual order.
var Reference = []OpInfo{
	{OpPush, "", "arg", "Push the instruction argument."},
	{OpPop, "any", "", "Discard the top item, pending or not."},
	{OpDup, "", "copy", "Duplicate the top item."},
	{OpEmptyStack, "all", "", "Remove every item."},
	{OpSwap, "depth", "", "Swap the top item with the one depth positions below."},
	{OpSub, "a, b", "a-b", "Integer subtraction."},
	{OpConcat, "a, b", "a+b", "Concatenate two byte strings or two unicode strings."},
	{OpLogStack, "prefix, all", "", "Write every item under prefix+(position, index) and commit."},
	{OpNewTransaction, "", "", "Register a fresh transaction under the session name."},
	{OpUseTransaction, "name", "", "Switch to the transaction registered under name, creating it if absent."},
	{OpOnError, "code", "future", "Prepare the transaction for a retry after error code; replaces it on success."},
	{OpGet, "key", "future", "Read a key; absent keys resolve to RESULT_NOT_PRESENT."},
	{OpSet, "key, value", "", "Buffer a write."},
	{OpClear, "key", "", "Buffer a delete."},
	{OpClearRange, "begin, end", "", "Buffer a range delete."},
	{OpGetRange, "begin, end, limit, reverse, mode", "future", "Read a range as a flat (k1, v1, ...) tuple."},
	{OpGetReadVersion, "", "GOT_READ_VERSION", "Record the transaction read version."},
	{OpCommit, "", "future", "Commit the transaction."},
	{OpReset, "", "", "Discard buffered writes and the read version."},
	{OpCancel, "", "", "Cancel the transaction."},
	{OpWaitFuture, "item", "value", "Resolve the top item and push it back."},
	{OpStartThread, "prefix", "", "Start a child session reading instructions under prefix."},
	{OpWaitEmpty, "prefix", "WAITED_FOR_EMPTY", "Poll until no key starts with prefix."},
}

// ReferenceMarkdown renders Reference as a markdown document.
func ReferenceMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Instruction set\n\n")
	sb.WriteString("Store errors raised by an operation are pushed as `(\"ERROR\", code)` tuples.\n\n")
	sb.WriteString("| Op | Pops | Pushes | Description |\n|---|---|---|---|\n")
	for _, info := range Reference {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", info.Op, info.Pops, info.Pushes, info.Summary)
	}
	return sb.String()
}
