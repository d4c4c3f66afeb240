// Package catalog holds the ordered, read-only list of selectable characters.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrEmpty          = errors.New("catalog: no characters defined")
	ErrInvalidID      = errors.New("catalog: invalid character id")
	ErrDuplicateID    = errors.New("catalog: duplicate character id")
	ErrSpriteIndex    = errors.New("catalog: sprite index out of range")
	ErrDuplicateActor = errors.New("catalog: duplicate actor id")
	ErrUnknownActor   = errors.New("catalog: actor not in database")
	ErrOutOfRange     = errors.New("catalog: index out of range")
	ErrStartingMap    = errors.New("catalog: starting map must be positive")
)

// MaxSpriteIndex is the last frame block of an 8-character spritesheet.
const MaxSpriteIndex = 7

// CharacterRecord is one selectable character.
type CharacterRecord struct {
	ID          string `mapstructure:"id" json:"id"`
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
	Picture     string `mapstructure:"picture" json:"picture"` // img/pictures name

	CharacterName  string `mapstructure:"character_name" json:"character_name"` // img/characters name
	CharacterIndex int    `mapstructure:"character_index" json:"character_index"`

	StartingMap int `mapstructure:"starting_map" json:"starting_map"`
	StartingX   int `mapstructure:"starting_x" json:"starting_x"`
	StartingY   int `mapstructure:"starting_y" json:"starting_y"`

	// ActorID is the database actor this character plays as.
	// Zero means position+1.
	ActorID int `mapstructure:"actor_id" json:"actor_id"`
}

// Catalog is immutable once built; all accessors return copies.
type Catalog struct {
	records []CharacterRecord
	byID    map[string]int
}

// New validates records and builds a Catalog from them.
func New(records []CharacterRecord) (*Catalog, error) {
	recs := make([]CharacterRecord, len(records))
	copy(recs, records)
	for i := range recs {
		if recs[i].ActorID == 0 {
			recs[i].ActorID = i + 1
		}
	}
	if err := validate(recs); err != nil {
		return nil, err
	}
	c := &Catalog{records: recs, byID: make(map[string]int, len(recs))}
	for i, r := range recs {
		c.byID[r.ID] = i
	}
	return c, nil
}

func validate(recs []CharacterRecord) error {
	if len(recs) == 0 {
		return ErrEmpty
	}
	ids := make(map[string]int, len(recs))
	actors := make(map[int]int, len(recs))
	for i, r := range recs {
		if r.ID == "" || strings.IndexFunc(r.ID, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w %q at position %d", ErrInvalidID, r.ID, i)
		}
		if prev, ok := ids[r.ID]; ok {
			return fmt.Errorf("%w %q at positions %d and %d", ErrDuplicateID, r.ID, prev, i)
		}
		ids[r.ID] = i
		if r.CharacterIndex < 0 || r.CharacterIndex > MaxSpriteIndex {
			return fmt.Errorf("%w: %q has %d", ErrSpriteIndex, r.ID, r.CharacterIndex)
		}
		if r.StartingMap <= 0 {
			return fmt.Errorf("%w: %q has map %d", ErrStartingMap, r.ID, r.StartingMap)
		}
		if r.ActorID < 0 {
			return fmt.Errorf("%w: %q has actor %d", ErrUnknownActor, r.ID, r.ActorID)
		}
		if prev, ok := actors[r.ActorID]; ok {
			return fmt.Errorf("%w %d shared by %q and %q", ErrDuplicateActor, r.ActorID, recs[prev].ID, r.ID)
		}
		actors[r.ActorID] = i
	}
	return nil
}

// Count returns the number of characters.
func (c *Catalog) Count() int { return len(c.records) }

// Get returns the record at position i.
func (c *Catalog) Get(i int) (CharacterRecord, error) {
	if i < 0 || i >= len(c.records) {
		return CharacterRecord{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(c.records))
	}
	return c.records[i], nil
}

// ByID returns the record with the given id and its position.
func (c *Catalog) ByID(id string) (CharacterRecord, int, bool) {
	i, ok := c.byID[id]
	if !ok {
		return CharacterRecord{}, -1, false
	}
	return c.records[i], i, true
}

// All returns a copy of every record in display order.
func (c *Catalog) All() []CharacterRecord {
	out := make([]CharacterRecord, len(c.records))
	copy(out, c.records)
	return out
}

// ActorLookup answers whether the actor database defines an id.
type ActorLookup interface {
	HasActor(id int) bool
}

// ValidateActors fails on the first record whose actor is missing from db.
func (c *Catalog) ValidateActors(db ActorLookup) error {
	for _, r := range c.records {
		if !db.HasActor(r.ActorID) {
			return fmt.Errorf("%w: %q uses actor %d", ErrUnknownActor, r.ID, r.ActorID)
		}
	}
	return nil
}

// AssetChecker reports whether image assets exist.
type AssetChecker interface {
	ValidPictureName(name string) bool
	ValidWalkName(name string) bool
}

// ValidateAssets lists records whose portrait or spritesheet cannot be
// found. Missing assets render blank, so these are warnings only.
func (c *Catalog) ValidateAssets(assets AssetChecker) []string {
	var warnings []string
	for _, r := range c.records {
		if r.Picture != "" && !assets.ValidPictureName(r.Picture) {
			warnings = append(warnings, fmt.Sprintf("%s: picture %q not found", r.ID, r.Picture))
		}
		if r.CharacterName != "" && !assets.ValidWalkName(r.CharacterName) {
			warnings = append(warnings, fmt.Sprintf("%s: spritesheet %q not found", r.ID, r.CharacterName))
		}
	}
	return warnings
}
