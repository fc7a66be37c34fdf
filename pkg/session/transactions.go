package session

import (
	"fmt"

	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/tuple"
)

// CurrentTransaction returns the transaction registered under the current session name.
func (c *Context) CurrentTransaction() ports.Transaction {
	return c.registry.Get(c.Name())
}

// UpdateCurrentTransaction installs tr under the current session name unconditionally.
func (c *Context) UpdateCurrentTransaction(tr ports.Transaction) {
	c.registry.Put(c.Name(), tr)
}

// ReplaceCurrentTransaction installs newTr only if oldTr is still the current transaction.
func (c *Context) ReplaceCurrentTransaction(oldTr, newTr ports.Transaction) bool {
	return c.registry.Replace(c.Name(), oldTr, newTr)
}

// NewTransaction creates a transaction and installs it under the current session name.
func (c *Context) NewTransaction() (ports.Transaction, error) {
	tr, err := c.db.CreateTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	c.registry.Put(c.Name(), tr)
	return tr, nil
}

// NewTransactionReplacing creates a transaction to take the place of oldTr.
// If oldTr was already replaced, the new transaction is cancelled and the
// one now registered is returned instead.
func (c *Context) NewTransactionReplacing(oldTr ports.Transaction) (ports.Transaction, error) {
	name := c.Name()
	tr, err := c.db.CreateTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if c.registry.Replace(name, oldTr, tr) {
		return tr, nil
	}
	tr.Cancel()
	c.metrics.RaceLost(observability.OpReplace)
	c.logger.Debug("transaction replaced concurrently", "session", name)
	return c.registry.Get(name), nil
}

// SwitchTransaction makes name the current session name. A fresh transaction
// is registered under it unless one exists already, in which case the session
// shares that one.
func (c *Context) SwitchTransaction(name []byte) error {
	trName := tuple.Printable(name)
	c.mu.Lock()
	c.trName = trName
	c.mu.Unlock()

	tr, err := c.db.CreateTransaction()
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if _, loaded := c.registry.PutIfAbsent(trName, tr); loaded {
		tr.Cancel()
		c.metrics.RaceLost(observability.OpPutIfAbsent)
	}
	return nil
}
