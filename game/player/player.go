package player

import (
	"errors"
	"fmt"
	"sync"
)

// Direction uses RPG Maker numbering: 2=down 4=left 6=right 8=up.
type Direction int

const (
	DirDown  Direction = 2
	DirLeft  Direction = 4
	DirRight Direction = 6
	DirUp    Direction = 8
)

func (d Direction) Valid() bool {
	return d == DirDown || d == DirLeft || d == DirRight || d == DirUp
}

// FadeType selects the screen fade used by a transfer.
type FadeType int

const (
	FadeBlack FadeType = 0
	FadeWhite FadeType = 1
	FadeNone  FadeType = 2
)

var ErrInvalidTransfer = errors.New("invalid transfer")

// Transfer is a scheduled map change.
type Transfer struct {
	MapID     int       `json:"map_id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Direction Direction `json:"direction"`
	Fade      FadeType  `json:"fade"`
}

// State is the persisted form of a Player.
type State struct {
	CharacterName  string    `json:"character_name"`
	CharacterIndex int       `json:"character_index"`
	MapID          int       `json:"map_id"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	Direction      Direction `json:"direction"`
	Pending        *Transfer `json:"pending,omitempty"`
}

// Player is the map avatar: its walking sprite, position, and any
// pending transfer.
type Player struct {
	mu sync.Mutex

	characterName  string
	characterIndex int
	mapID          int
	x, y           int
	dir            Direction
	pending        *Transfer
	spriteVersion  int
}

// New creates a Player facing down on no map.
func New() *Player {
	return &Player{dir: DirDown}
}

// SetImage sets the walking spritesheet and frame block.
func (p *Player) SetImage(characterName string, characterIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.characterName = characterName
	p.characterIndex = characterIndex
}

// Appearance returns the current spritesheet and frame block.
func (p *Player) Appearance() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.characterName, p.characterIndex
}

// Refresh invalidates the rendered sprite so renderers rebuild it from
// the current appearance.
func (p *Player) Refresh() {
	p.mu.Lock()
	p.spriteVersion++
	p.mu.Unlock()
}

// SpriteVersion increases on every Refresh.
func (p *Player) SpriteVersion() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spriteVersion
}

// ReserveTransfer schedules a move to (mapID, x, y). A later reservation
// replaces an earlier one.
func (p *Player) ReserveTransfer(mapID, x, y int, dir Direction, fade FadeType) error {
	if mapID <= 0 {
		return fmt.Errorf("%w: map %d", ErrInvalidTransfer, mapID)
	}
	if !dir.Valid() {
		return fmt.Errorf("%w: direction %d", ErrInvalidTransfer, dir)
	}
	if fade < FadeBlack || fade > FadeNone {
		return fmt.Errorf("%w: fade %d", ErrInvalidTransfer, fade)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &Transfer{MapID: mapID, X: x, Y: y, Direction: dir, Fade: fade}
	return nil
}

// IsTransferring reports whether a transfer is pending.
func (p *Player) IsTransferring() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// PendingTransfer returns the pending transfer, if any.
func (p *Player) PendingTransfer() (Transfer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Transfer{}, false
	}
	return *p.pending, true
}

// PerformTransfer applies and clears the pending transfer.
func (p *Player) PerformTransfer() (Transfer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Transfer{}, false
	}
	t := *p.pending
	p.pending = nil
	p.mapID, p.x, p.y, p.dir = t.MapID, t.X, t.Y, t.Direction
	return t, true
}

// Locate places the player without a transfer.
func (p *Player) Locate(mapID, x, y int, dir Direction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mapID, p.x, p.y, p.dir = mapID, x, y, dir
}

// Position returns the current map and tile.
func (p *Player) Position() (mapID, x, y int, dir Direction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapID, p.x, p.y, p.dir
}

// State returns a snapshot for persistence.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{
		CharacterName:  p.characterName,
		CharacterIndex: p.characterIndex,
		MapID:          p.mapID,
		X:              p.x,
		Y:              p.y,
		Direction:      p.dir,
	}
	if p.pending != nil {
		t := *p.pending
		st.Pending = &t
	}
	return st
}

// Restore replaces the player's state with st.
func (p *Player) Restore(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.characterName = st.CharacterName
	p.characterIndex = st.CharacterIndex
	p.mapID, p.x, p.y = st.MapID, st.X, st.Y
	p.dir = st.Direction
	if !p.dir.Valid() {
		p.dir = DirDown
	}
	p.pending = nil
	if st.Pending != nil {
		t := *st.Pending
		p.pending = &t
	}
	p.spriteVersion++
}
