package world

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/kasuganosora/rmmz-charselect/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pendingChange represents a pending database write.
type pendingChange struct {
	typ string // "switch", "variable"
	id  int
	val interface{}
}

// GameState holds one save's switches and variables.
// RMMZ variables hold either a number or text; both are kept here and a
// write of one kind replaces the other.
//
// Writes are queued and persisted in batches by Flush.
type GameState struct {
	mu        sync.RWMutex
	saveID    int64
	switches  map[int]bool
	variables map[int]int
	texts     map[int]string
	db        *gorm.DB // nil = no persistence (tests)
	logger    *zap.Logger

	pending   map[string]pendingChange
	pendingMu sync.Mutex
}

// NewGameState creates an empty GameState with optional DB persistence.
func NewGameState(saveID int64, db *gorm.DB, logger *zap.Logger) *GameState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameState{
		saveID:    saveID,
		switches:  make(map[int]bool),
		variables: make(map[int]int),
		texts:     make(map[int]string),
		db:        db,
		logger:    logger,
		pending:   make(map[string]pendingChange),
	}
}

// Dirty reports whether changes are waiting to be flushed.
func (gs *GameState) Dirty() bool {
	gs.pendingMu.Lock()
	defer gs.pendingMu.Unlock()
	return len(gs.pending) > 0
}

// Flush writes all pending changes to the database.
func (gs *GameState) Flush() error {
	if gs.db == nil {
		return nil
	}
	return gs.db.Transaction(gs.FlushTx)
}

// FlushTx writes pending changes inside an existing transaction. On failure
// the changes are queued again.
func (gs *GameState) FlushTx(tx *gorm.DB) error {
	gs.pendingMu.Lock()
	if len(gs.pending) == 0 {
		gs.pendingMu.Unlock()
		return nil
	}
	changes := gs.pending
	gs.pending = make(map[string]pendingChange)
	gs.pendingMu.Unlock()

	if err := gs.writeChanges(tx, changes); err != nil {
		gs.requeue(changes)
		gs.logger.Error("failed to flush game state", zap.Int64("save_id", gs.saveID), zap.Error(err))
		return err
	}
	return nil
}

func (gs *GameState) writeChanges(tx *gorm.DB, changes map[string]pendingChange) error {
	for _, ch := range changes {
		switch ch.typ {
		case "switch":
			if err := tx.Clauses(clause.OnConflict{
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&model.GameSwitch{SaveID: gs.saveID, SwitchID: ch.id, Value: ch.val.(bool)}).Error; err != nil {
				return err
			}
		case "variable":
			raw, err := json.Marshal(ch.val)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&model.GameVariable{SaveID: gs.saveID, VariableID: ch.id, Value: datatypes.JSON(raw)}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// requeue puts failed changes back unless a newer write superseded them.
func (gs *GameState) requeue(changes map[string]pendingChange) {
	gs.pendingMu.Lock()
	defer gs.pendingMu.Unlock()
	for k, ch := range changes {
		if _, ok := gs.pending[k]; !ok {
			gs.pending[k] = ch
		}
	}
}

// queueChange adds a change to the pending queue.
func (gs *GameState) queueChange(key string, change pendingChange) {
	gs.pendingMu.Lock()
	gs.pending[key] = change
	gs.pendingMu.Unlock()
}

// LoadFromDB populates the in-memory state from the database.
func (gs *GameState) LoadFromDB() error {
	if gs.db == nil {
		return nil
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	var switches []model.GameSwitch
	if err := gs.db.Where("save_id = ?", gs.saveID).Find(&switches).Error; err != nil {
		return err
	}
	for _, s := range switches {
		gs.switches[s.SwitchID] = s.Value
	}

	var vars []model.GameVariable
	if err := gs.db.Where("save_id = ?", gs.saveID).Find(&vars).Error; err != nil {
		return err
	}
	for _, v := range vars {
		var val interface{}
		if err := json.Unmarshal(v.Value, &val); err != nil {
			return fmt.Errorf("variable %d: %w", v.VariableID, err)
		}
		switch x := val.(type) {
		case float64:
			gs.variables[v.VariableID] = int(x)
		case string:
			gs.texts[v.VariableID] = x
		}
	}
	return nil
}

// GetSwitch returns the value of a switch.
func (gs *GameState) GetSwitch(id int) bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.switches[id]
}

// SetSwitch sets the value of a switch and queues it for persistence.
func (gs *GameState) SetSwitch(id int, val bool) {
	gs.mu.Lock()
	gs.switches[id] = val
	gs.mu.Unlock()

	gs.queueChange(fmt.Sprintf("sw:%d", id), pendingChange{typ: "switch", id: id, val: val})
}

// GetVariable returns the numeric value of a variable. Text variables read as 0.
func (gs *GameState) GetVariable(id int) int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.variables[id]
}

// SetVariable sets a numeric variable and queues it for persistence.
func (gs *GameState) SetVariable(id int, val int) {
	gs.mu.Lock()
	gs.variables[id] = val
	delete(gs.texts, id)
	gs.mu.Unlock()

	gs.queueChange(fmt.Sprintf("var:%d", id), pendingChange{typ: "variable", id: id, val: val})
}

// SetVariableText sets a text variable and queues it for persistence.
func (gs *GameState) SetVariableText(id int, val string) {
	gs.mu.Lock()
	gs.texts[id] = val
	delete(gs.variables, id)
	gs.mu.Unlock()

	gs.queueChange(fmt.Sprintf("var:%d", id), pendingChange{typ: "variable", id: id, val: val})
}

// VariableText returns a variable as message text: the text value if one
// is set, otherwise the number.
func (gs *GameState) VariableText(id int) string {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if s, ok := gs.texts[id]; ok {
		return s
	}
	return strconv.Itoa(gs.variables[id])
}

// Snapshot returns copies of the switch and variable tables. Variables are
// int or string.
func (gs *GameState) Snapshot() (map[int]bool, map[int]interface{}) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	sw := make(map[int]bool, len(gs.switches))
	for k, v := range gs.switches {
		sw[k] = v
	}
	vars := make(map[int]interface{}, len(gs.variables)+len(gs.texts))
	for k, v := range gs.variables {
		vars[k] = v
	}
	for k, v := range gs.texts {
		vars[k] = v
	}
	return sw, vars
}
