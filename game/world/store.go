package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kasuganosora/rmmz-charselect/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSaveNotFound = errors.New("world: save not found")

// Store owns the open sessions, one per save.
type Store struct {
	db       *gorm.DB
	actors   ActorDB
	defaults Defaults
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB, actors ActorDB, defaults Defaults, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:       db,
		actors:   actors,
		defaults: defaults,
		logger:   logger,
		sessions: make(map[int64]*Session),
	}
}

// Create inserts a new save and opens its session.
func (st *Store) Create(ctx context.Context, title string) (*Session, error) {
	save := &model.SaveGame{Title: title}
	if err := st.db.WithContext(ctx).Create(save).Error; err != nil {
		return nil, fmt.Errorf("world: create save: %w", err)
	}
	s := NewSession(save.ID, st.db, st.actors, st.defaults, st.logger)
	if err := s.Save(); err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.sessions[save.ID] = s
	st.mu.Unlock()
	st.logger.Info("save created", zap.Int64("save_id", save.ID))
	return s, nil
}

// Open returns the live session of a save, loading it on first use.
func (st *Store) Open(ctx context.Context, saveID int64) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[saveID]; ok {
		return s, nil
	}

	var save model.SaveGame
	err := st.db.WithContext(ctx).First(&save, saveID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSaveNotFound, saveID)
	}
	if err != nil {
		return nil, fmt.Errorf("world: open save: %w", err)
	}

	s := NewSession(saveID, st.db, st.actors, st.defaults, st.logger)
	if err := s.Load(); err != nil {
		return nil, err
	}
	st.sessions[saveID] = s
	return s, nil
}

// Get returns an already open session.
func (st *Store) Get(saveID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[saveID]
	return s, ok
}

func (st *Store) snapshot() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// FlushAll saves every open session. It keeps going after a failure and
// returns the first error.
func (st *Store) FlushAll() error { return st.FlushExcept(nil) }

// FlushExcept saves every open session whose save is not in skip. Sessions
// driven by a running game are skipped here and saved under that game's
// lock instead.
func (st *Store) FlushExcept(skip map[int64]bool) error {
	var first error
	for _, s := range st.snapshot() {
		if skip[s.SaveID] {
			continue
		}
		if err := s.Save(); err != nil {
			st.logger.Error("flush session", zap.Int64("save_id", s.SaveID), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Release saves a session and drops it from memory.
func (st *Store) Release(saveID int64) error {
	st.mu.Lock()
	s, ok := st.sessions[saveID]
	delete(st.sessions, saveID)
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Save()
}

// Close saves and drops every session.
func (st *Store) Close() error {
	err := st.FlushAll()
	st.mu.Lock()
	st.sessions = make(map[int64]*Session)
	st.mu.Unlock()
	return err
}
