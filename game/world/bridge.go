package world

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/rmmz-charselect/game/player"
)

var ErrUnknownActor = errors.New("world: actor not in database")

// Bridge exposes a session's party and player to the selection screen.
type Bridge struct {
	s *Session
}

// Bridge returns the party/transfer bridge of the session.
func (s *Session) Bridge() *Bridge { return &Bridge{s: s} }

func (b *Bridge) checkActor(id int) error {
	if b.s.actors != nil && !b.s.actors.HasActor(id) {
		return fmt.Errorf("%w: %d", ErrUnknownActor, id)
	}
	return nil
}

// ResetParty restores the database's starting members.
func (b *Bridge) ResetParty() error {
	return b.s.Party.SetupStartingMembers(b.s.defaults.Party)
}

// RemoveMember removes an actor from the party.
func (b *Bridge) RemoveMember(actorID int) {
	b.s.Party.Remove(actorID)
}

// AddMember adds an actor known to the database.
func (b *Bridge) AddMember(actorID int) error {
	if err := b.checkActor(actorID); err != nil {
		return err
	}
	return b.s.Party.Add(actorID)
}

// ListMembers returns the party in order.
func (b *Bridge) ListMembers() []int {
	return b.s.Party.Members()
}

// ReplaceMembers sets the party to exactly ids. Every id is checked
// before anything changes.
func (b *Bridge) ReplaceMembers(ids []int) error {
	for _, id := range ids {
		if err := b.checkActor(id); err != nil {
			return err
		}
	}
	return b.s.Party.Replace(ids)
}

// SetPlayerAppearance sets the map sprite of the player.
func (b *Bridge) SetPlayerAppearance(characterName string, characterIndex int) {
	b.s.Player.SetImage(characterName, characterIndex)
}

// RefreshPlayerSprite rebuilds the player's sprite.
func (b *Bridge) RefreshPlayerSprite() {
	b.s.Player.Refresh()
}

// ReserveTransfer schedules the player's next map change.
func (b *Bridge) ReserveTransfer(mapID, x, y int, dir player.Direction, fade player.FadeType) error {
	return b.s.Player.ReserveTransfer(mapID, x, y, dir, fade)
}
