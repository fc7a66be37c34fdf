/*
Package ports defines the driven ports (interfaces) of the stack tester.

These interfaces decouple sessions and instruction streams from the transactional store,
allowing the tester to run against various backends.

# Key Interfaces

  - Database: Issues transactions.
  - Transaction: An in-flight unit of work. Reads and commits complete asynchronously.
*/
package ports
