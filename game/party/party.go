package party

import (
	"errors"
	"fmt"
	"sync"
)

const maxPartySize = 8

var (
	ErrPartyFull    = errors.New("party is full")
	ErrInvalidActor = errors.New("invalid actor id")
)

// Party is the ordered list of actor ids in the player's party.
// The first member is the leader and drives the map sprite.
type Party struct {
	mu      sync.RWMutex
	members []int
}

// New creates an empty Party. Fill it with Replace or SetupStartingMembers.
func New() *Party { return &Party{} }

// SetupStartingMembers resets the party to the database's starting members.
func (p *Party) SetupStartingMembers(defaults []int) error {
	return p.Replace(defaults)
}

// Add appends an actor. Adding a current member is a no-op.
func (p *Party) Add(actorID int) error {
	if actorID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidActor, actorID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if indexOf(p.members, actorID) >= 0 {
		return nil
	}
	if len(p.members) >= maxPartySize {
		return ErrPartyFull
	}
	p.members = append(p.members, actorID)
	return nil
}

// Remove removes actorID from the party.
func (p *Party) Remove(actorID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := indexOf(p.members, actorID); i >= 0 {
		p.members = append(p.members[:i], p.members[i+1:]...)
	}
}

// Replace sets the membership to ids in one step. Duplicates keep their
// first position. On error the party is unchanged.
func (p *Party) Replace(ids []int) error {
	next := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidActor, id)
		}
		if indexOf(next, id) < 0 {
			next = append(next, id)
		}
	}
	if len(next) > maxPartySize {
		return ErrPartyFull
	}
	p.mu.Lock()
	p.members = next
	p.mu.Unlock()
	return nil
}

// Clear removes every member.
func (p *Party) Clear() {
	p.mu.Lock()
	p.members = nil
	p.mu.Unlock()
}

// Members returns a copy of the member list.
func (p *Party) Members() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int, len(p.members))
	copy(out, p.members)
	return out
}

// Size returns the current number of members.
func (p *Party) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Leader returns the first member, or 0 for an empty party.
func (p *Party) Leader() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.members) == 0 {
		return 0
	}
	return p.members[0]
}

// Contains reports whether actorID is a member.
func (p *Party) Contains(actorID int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return indexOf(p.members, actorID) >= 0
}

// DesiredMembers is the membership a confirmed selection requires:
// exactly the chosen actor.
func DesiredMembers(actorID int) []int {
	return []int{actorID}
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
