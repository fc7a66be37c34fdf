// Package stack implements the value stack driven by instruction streams.
package stack

import (
	"errors"
	"fmt"
	"sync"
)

// ErrEmpty is returned when popping from an empty stack.
var ErrEmpty = errors.New("stack is empty")

// Item is a stack entry. Index is the instruction that pushed it.
type Item struct {
	Index int
	Value any
}

// Stack is a LIFO of Items. Safe for concurrent use.
type Stack struct {
	mu    sync.Mutex
	items []Item
}

// New creates an empty stack.
func New() *Stack {
	return &Stack{}
}

// Push adds a value on top of the stack.
func (s *Stack) Push(index int, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Item{Index: index, Value: value})
}

// Pop removes and returns the top item.
func (s *Stack) Pop() (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return Item{}, ErrEmpty
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, nil
}

// Peek returns the top item without removing it.
func (s *Stack) Peek() (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return Item{}, ErrEmpty
	}
	return s.items[len(s.items)-1], nil
}

// Dup pushes a copy of the top item.
func (s *Stack) Dup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return ErrEmpty
	}
	s.items = append(s.items, s.items[len(s.items)-1])
	return nil
}

// Swap exchanges the top item with the item depth positions below it.
func (s *Stack) Swap(depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	top := len(s.items) - 1
	if depth < 0 || depth > top {
		return fmt.Errorf("swap depth %d out of range for stack of %d: %w", depth, len(s.items), ErrEmpty)
	}
	s.items[top], s.items[top-depth] = s.items[top-depth], s.items[top]
	return nil
}

// Clear removes every item.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Len returns the number of items.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a copy of the stack, bottom first.
func (s *Stack) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}
