package stack_test

import (
	"testing"

	"github.com/aretw0/stacktester/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_PushPopOrder(t *testing.T) {
	s := stack.New()
	s.Push(0, "a")
	s.Push(1, "b")

	top, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, stack.Item{Index: 1, Value: "b"}, top)

	top, err = s.Pop()
	require.NoError(t, err)
	assert.Equal(t, "a", top.Value)

	_, err = s.Pop()
	assert.ErrorIs(t, err, stack.ErrEmpty)
}

func TestStack_DupSwapClear(t *testing.T) {
	s := stack.New()
	assert.ErrorIs(t, s.Dup(), stack.ErrEmpty)

	s.Push(0, 1)
	s.Push(1, 2)
	s.Push(2, 3)

	require.NoError(t, s.Swap(2))
	items := s.Items()
	assert.Equal(t, 3, items[0].Value)
	assert.Equal(t, 1, items[2].Value)

	assert.Error(t, s.Swap(3))

	require.NoError(t, s.Dup())
	assert.Equal(t, 4, s.Len())
	top, _ := s.Peek()
	assert.Equal(t, 1, top.Value)

	s.Clear()
	assert.Equal(t, 0, s.Len())
}
