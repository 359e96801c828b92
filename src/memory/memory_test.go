package memory

import (
	"sync"
	"testing"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Apply([]Pair{{"b", "1"}, {"a", "2"}})
	s.Set("c", "3")
	s.Set("b", "updated")

	assert.Equal(t, []Pair{{"b", "updated"}, {"a", "2"}, {"c", "3"}}, s.Pairs())
	assert.Equal(t, 3, s.Len())

	v, ok := s.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "updated", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStoreMessage(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Message())

	s.Apply([]Pair{{"product", "84"}, {"note", `say "hi"`}})
	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, aisdk.RoleUser, msg.Role)
	assert.Equal(t, "Memory from previous steps (key/value pairs):\n"+`[["product","84"],["note","say \"hi\""]]`, msg.Content)
}

func TestStoreConcurrentUse(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Set("k", "v")
			_ = s.Pairs()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}
