/*
Package session implements the execution context of one instruction stream.

A Context owns a value stack and a logical transaction identity (its session name),
drives an Executor to completion and then waits for every child session it spawned.
Transactions are shared between sessions through a registry keyed by session name;
all registry mutations are atomic and the loser of a race cancels the transaction it created.

# Lifecycle

  - Initialized: constructed, a fresh transaction is registered under the session name.
  - Running: the Executor is consuming the instruction stream.
  - Draining: the stream ended (normally or with a logged failure); children are being joined.
  - Terminated: every child has finished.
*/
package session
