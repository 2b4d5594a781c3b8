package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	// Sets are created empty.
	s := MakeSet[int](10)
	assert.Len(t, s, 0)

	// Check inserting and recovery.
	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := SetWith(5, 7)
	assert.Len(t, s2, 2)
	assert.True(t, s2.Has(5))
	assert.False(t, s2.Has(3))
	assert.False(t, s.Equal(s2))

	clone := s.Clone()
	assert.True(t, clone.Equal(s))
	clone.Insert(11)
	assert.False(t, clone.Equal(s))
	assert.False(t, s.Has(11))

	delete(s, 7)
	assert.Len(t, s, 1)
	assert.True(t, s.Equal(SetWith(3)))

	assert.Equal(t, []int{3, 5, 7, 11}, Sorted(SetWith(7, 3, 11, 5)))
	assert.Empty(t, Sorted(MakeSet[int]()))

	var nilSet Set[string]
	assert.Nil(t, nilSet.Clone())
}
