package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMembers(t *testing.T, ids ...int) *Party {
	t.Helper()
	p := New()
	require.NoError(t, p.Replace(ids))
	return p
}

func TestAddRemove(t *testing.T) {
	p := New()
	require.NoError(t, p.Add(3))
	require.NoError(t, p.Add(1))
	require.NoError(t, p.Add(3)) // already a member
	assert.Equal(t, []int{3, 1}, p.Members())
	assert.Equal(t, 3, p.Leader())

	p.Remove(3)
	assert.Equal(t, []int{1}, p.Members())
	p.Remove(42)
	assert.Equal(t, 1, p.Size())
}

func TestAdd_Invalid(t *testing.T) {
	p := New()
	assert.ErrorIs(t, p.Add(0), ErrInvalidActor)
	assert.ErrorIs(t, p.Add(-2), ErrInvalidActor)
}

func TestAdd_Full(t *testing.T) {
	p := New()
	for i := 1; i <= maxPartySize; i++ {
		require.NoError(t, p.Add(i))
	}
	assert.ErrorIs(t, p.Add(maxPartySize+1), ErrPartyFull)
}

func TestReplace(t *testing.T) {
	p := withMembers(t, 1, 2, 3)
	require.NoError(t, p.Replace([]int{4, 4, 2}))
	assert.Equal(t, []int{4, 2}, p.Members())

	err := p.Replace([]int{5, 0})
	assert.ErrorIs(t, err, ErrInvalidActor)
	assert.Equal(t, []int{4, 2}, p.Members(), "failed replace leaves party intact")
}

func TestSetupStartingMembers_RejectsBadIDs(t *testing.T) {
	p := New()
	assert.ErrorIs(t, p.SetupStartingMembers([]int{1, 0}), ErrInvalidActor)
	assert.Empty(t, p.Members())

	ids := make([]int, maxPartySize+1)
	for i := range ids {
		ids[i] = i + 1
	}
	assert.ErrorIs(t, p.SetupStartingMembers(ids), ErrPartyFull)
	assert.Empty(t, p.Members())
}

func TestSetupStartingMembersThenDesired(t *testing.T) {
	// The database default party re-adds actor 1 before the selection is
	// applied; the selection still ends up alone in the party.
	p := New()
	require.NoError(t, p.SetupStartingMembers([]int{1, 2}))
	require.NoError(t, p.Replace(DesiredMembers(3)))
	assert.Equal(t, []int{3}, p.Members())
}

func TestClearAndLeader(t *testing.T) {
	p := withMembers(t, 7)
	p.Clear()
	assert.Equal(t, 0, p.Size())
	assert.Equal(t, 0, p.Leader())
	assert.False(t, p.Contains(7))
}

func TestMembers_ReturnsCopy(t *testing.T) {
	p := withMembers(t, 1, 2)
	m := p.Members()
	m[0] = 99
	assert.Equal(t, []int{1, 2}, p.Members())
}

func TestDesiredMembers(t *testing.T) {
	assert.Equal(t, []int{2}, DesiredMembers(2))
}
