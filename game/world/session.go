package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kasuganosora/rmmz-charselect/config"
	"github.com/kasuganosora/rmmz-charselect/game/party"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"github.com/kasuganosora/rmmz-charselect/model"
	"github.com/kasuganosora/rmmz-charselect/resource"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActorDB is the part of the RMMZ actor database a session needs.
type ActorDB interface {
	HasActor(id int) bool
	ActorName(id int) string
}

// Defaults are the new-game settings of the project.
type Defaults struct {
	Party        []int
	StartMapID   int
	StartX       int
	StartY       int
	CurrencyUnit string
}

// DefaultsFrom prefers System.json and falls back to the game config.
func DefaultsFrom(res *resource.ResourceLoader, cfg config.GameConfig) Defaults {
	d := Defaults{
		Party:      cfg.DefaultParty,
		StartMapID: cfg.StartMapID,
		StartX:     cfg.StartX,
		StartY:     cfg.StartY,
	}
	if res == nil || res.System == nil {
		return d
	}
	if members := res.StartingParty(); len(members) > 0 {
		d.Party = members
	}
	if res.System.StartMapID > 0 {
		d.StartMapID = res.System.StartMapID
		d.StartX = res.System.StartX
		d.StartY = res.System.StartY
	}
	d.CurrencyUnit = res.System.CurrencyUnit
	return d
}

// Session holds the live game objects of one save.
type Session struct {
	SaveID int64
	State  *GameState
	Party  *party.Party
	Player *player.Player

	actors   ActorDB
	defaults Defaults
	db       *gorm.DB
	logger   *zap.Logger

	saveMu sync.Mutex
}

// NewSession creates an empty session. db may be nil for in-memory use.
func NewSession(saveID int64, db *gorm.DB, actors ActorDB, defaults Defaults, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		SaveID:   saveID,
		State:    NewGameState(saveID, db, logger),
		Party:    party.New(),
		Player:   player.New(),
		actors:   actors,
		defaults: defaults,
		db:       db,
		logger:   logger.With(zap.Int64("save_id", saveID)),
	}
}

// Load reads switches, variables, the party and the player from the database.
func (s *Session) Load() error {
	if s.db == nil {
		return nil
	}
	if err := s.State.LoadFromDB(); err != nil {
		return fmt.Errorf("world: load state: %w", err)
	}

	var members []model.PartyMember
	if err := s.db.Where("save_id = ?", s.SaveID).Order("position").Find(&members).Error; err != nil {
		return fmt.Errorf("world: load party: %w", err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ActorID)
	}
	if err := s.Party.Replace(ids); err != nil {
		return fmt.Errorf("world: load party: %w", err)
	}

	var ps model.PlayerState
	err := s.db.Where("save_id = ?", s.SaveID).First(&ps).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return fmt.Errorf("world: load player: %w", err)
	default:
		s.Player.Restore(playerStateFromModel(ps))
	}
	return nil
}

// Save persists the whole session in one transaction.
func (s *Session) Save() error {
	if s.db == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.State.FlushTx(tx); err != nil {
			return err
		}
		if err := tx.Where("save_id = ?", s.SaveID).Delete(&model.PartyMember{}).Error; err != nil {
			return err
		}
		for i, id := range s.Party.Members() {
			if err := tx.Create(&model.PartyMember{SaveID: s.SaveID, Position: i, ActorID: id}).Error; err != nil {
				return err
			}
		}
		ps := playerStateToModel(s.SaveID, s.Player.State())
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&ps).Error
	})
}

// SetupNewGame prepares the save for a new game. The database's starting
// party joins unless clearParty is set, in which case the party is left
// empty for the selection screen to fill. Switches and variables carry
// over. The player is sent to the project's start position.
func (s *Session) SetupNewGame(clearParty bool) error {
	if clearParty {
		s.Party.Clear()
	} else if err := s.Party.SetupStartingMembers(s.defaults.Party); err != nil {
		return fmt.Errorf("world: starting party: %w", err)
	}
	s.logger.Debug("new game", zap.Bool("clear_party", clearParty), zap.Ints("party", s.Party.Members()))
	if s.defaults.StartMapID > 0 {
		if err := s.Player.ReserveTransfer(s.defaults.StartMapID, s.defaults.StartX, s.defaults.StartY,
			player.DirDown, player.FadeBlack); err != nil {
			return err
		}
	}
	s.Player.Refresh()
	return nil
}

// ---- textcode.Resolver ----

func (s *Session) Variable(id int) string { return s.State.VariableText(id) }

func (s *Session) ActorName(id int) string {
	if s.actors == nil {
		return ""
	}
	return s.actors.ActorName(id)
}

func (s *Session) PartyMemberName(n int) string {
	members := s.Party.Members()
	if n < 1 || n > len(members) {
		return ""
	}
	return s.ActorName(members[n-1])
}

func (s *Session) CurrencyUnit() string { return s.defaults.CurrencyUnit }

// ---- Snapshots ----

// Summary is the externally visible state of a save.
type Summary struct {
	SaveID    int64               `json:"save_id"`
	Switches  map[int]bool        `json:"switches"`
	Variables map[int]interface{} `json:"variables"`
	Party     []int               `json:"party"`
	Player    player.State        `json:"player"`
}

// Summary returns a snapshot of the session.
func (s *Session) Summary() Summary {
	sw, vars := s.State.Snapshot()
	return Summary{
		SaveID:    s.SaveID,
		Switches:  sw,
		Variables: vars,
		Party:     s.Party.Members(),
		Player:    s.Player.State(),
	}
}

func playerStateToModel(saveID int64, st player.State) model.PlayerState {
	ps := model.PlayerState{
		SaveID:         saveID,
		CharacterName:  st.CharacterName,
		CharacterIndex: st.CharacterIndex,
		MapID:          st.MapID,
		X:              st.X,
		Y:              st.Y,
		Direction:      int(st.Direction),
	}
	if t := st.Pending; t != nil {
		ps.TransferPending = true
		ps.NewMapID, ps.NewX, ps.NewY = t.MapID, t.X, t.Y
		ps.NewDirection = int(t.Direction)
		ps.FadeType = int(t.Fade)
	}
	return ps
}

func playerStateFromModel(ps model.PlayerState) player.State {
	st := player.State{
		CharacterName:  ps.CharacterName,
		CharacterIndex: ps.CharacterIndex,
		MapID:          ps.MapID,
		X:              ps.X,
		Y:              ps.Y,
		Direction:      player.Direction(ps.Direction),
	}
	if ps.TransferPending {
		st.Pending = &player.Transfer{
			MapID:     ps.NewMapID,
			X:         ps.NewX,
			Y:         ps.NewY,
			Direction: player.Direction(ps.NewDirection),
			Fade:      player.FadeType(ps.FadeType),
		}
	}
	return st
}
