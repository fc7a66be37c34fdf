/*
Package tuple implements the subset of the ordered tuple encoding used by the stack tester.

Packed tuples sort in the same order as the tuples they encode, which lets instruction
streams live under a key prefix and be read back in order with a range read.

# Supported Types

  - nil
  - []byte (byte string)
  - string (unicode string)
  - int, int64 (variable-length integers)
  - Tuple (nested tuples)
*/
package tuple
