/*
Package domain contains the core domain models shared by the stack tester.

It defines the values that flow between sessions, stores and instruction streams.
This package is kept pure and free of external dependencies like I/O or persistence.

# Key Entities

  - StoreError: An operation-level failure reported by the transactional store, identified by a numeric code.
  - KeySelector: A key reference resolved relative to the keys present in the store.
  - KeyValue: A single row returned by a range read.
  - StreamingMode: The batching hint of range reads, addressable by its wire code.
*/
package domain
