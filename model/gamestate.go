package model

import (
	"time"

	"gorm.io/datatypes"
)

// SaveGame is one save file. Switches, variables, the party and the player
// hang off its ID.
type SaveGame struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"size:64" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SaveGame) TableName() string { return "save_games" }

// GameSwitch stores an RMMZ switch (ON/OFF) state for one save.
type GameSwitch struct {
	SaveID   int64 `gorm:"primaryKey" json:"save_id"`
	SwitchID int   `gorm:"primaryKey" json:"switch_id"`
	Value    bool  `json:"value"`
}

func (GameSwitch) TableName() string { return "game_switches" }

// GameVariable stores an RMMZ variable for one save.
// RMMZ variables hold numbers or text, so the value is kept as JSON.
type GameVariable struct {
	SaveID     int64          `gorm:"primaryKey" json:"save_id"`
	VariableID int            `gorm:"primaryKey" json:"variable_id"`
	Value      datatypes.JSON `json:"value"`
}

func (GameVariable) TableName() string { return "game_variables" }

// PartyMember is one slot of a save's party, ordered by Position.
type PartyMember struct {
	SaveID   int64 `gorm:"primaryKey" json:"save_id"`
	Position int   `gorm:"primaryKey" json:"position"`
	ActorID  int   `gorm:"not null" json:"actor_id"`
}

func (PartyMember) TableName() string { return "party_members" }

// PlayerState is the map-side player of a save: appearance, position and a
// reserved transfer that has not been performed yet.
type PlayerState struct {
	SaveID         int64  `gorm:"primaryKey" json:"save_id"`
	CharacterName  string `gorm:"size:64" json:"character_name"`
	CharacterIndex int    `json:"character_index"`
	MapID          int    `json:"map_id"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	Direction      int    `gorm:"default:2" json:"direction"` // 2=down 4=left 6=right 8=up

	TransferPending bool `json:"transfer_pending"`
	NewMapID        int  `json:"new_map_id"`
	NewX            int  `json:"new_x"`
	NewY            int  `json:"new_y"`
	NewDirection    int  `json:"new_direction"`
	FadeType        int  `json:"fade_type"`
}

func (PlayerState) TableName() string { return "player_states" }
