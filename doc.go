/*
Package stacktester runs stack-machine instruction streams against a
transactional key-value store.

Each session owns a value stack and a named transaction in a process-wide
registry. Sessions read their instructions from the store, may spawn child
sessions, and always wait for those children before finishing. Values pushed
by asynchronous operations stay pending on the stack until an instruction
needs them; store errors are turned into encoded byte strings so the stream
can inspect them.

# Usage

	db := memory.NewDatabase()
	s, _ := script.Load("conflict.yaml")

	t := stacktester.New(db, stacktester.WithLogger(logger))
	if err := t.Seed(ctx, s); err != nil {
		log.Fatal(err)
	}
	root, err := t.Run(ctx, []byte(s.Root))
	if err != nil {
		log.Fatal(err)
	}
	for _, item := range root.Stack().Items() {
		fmt.Println(item.Index, item.Value)
	}

Two stores ship with the module: an in-memory MVCC store (pkg/adapters/memory)
and a Redis store (pkg/adapters/redis). The stacktester command runs YAML
scripts from the shell, and pkg/adapters/mcp exposes the same runs to agents.
*/
package stacktester
