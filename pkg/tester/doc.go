// Package tester executes instruction streams stored in the database.
//
// An instruction is a packed tuple (op) or (op, arg) stored under the key
// (prefix, index). A session reads its instructions in batches through its
// cursor and applies them to its stack and current transaction.
package tester
