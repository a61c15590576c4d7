package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopPath(t *testing.T) {
	s := New()
	assert.True(t, s.Empty())

	s.Push("main expression")
	s.Push("if")
	s.Push("then")
	assert.False(t, s.Empty())
	assert.Equal(t, "main expression > if > then", s.Path())

	frame, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, "then", frame)
	assert.Equal(t, "main expression > if", s.Path())
}

func TestPopEmptyIsError(t *testing.T) {
	s := New()
	_, err := s.Pop()
	assert.Error(t, err)
}
