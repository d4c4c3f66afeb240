package player

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionManager maintains the registry of connected PlayerSessions.
// At most one connection drives a save at a time.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[int64]*PlayerSession // saveID → session
	logger   *zap.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*PlayerSession),
		logger:   logger,
	}
}

// Register adds a session. If a previous session exists for the same save,
// it is closed first (handles a second tab / reconnect).
func (sm *SessionManager) Register(s *PlayerSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if old, ok := sm.sessions[s.SaveID]; ok {
		old.Close()
		sm.logger.Info("duplicate session displaced", zap.Int64("save_id", s.SaveID))
	}
	sm.sessions[s.SaveID] = s
	sm.logger.Info("player session registered", zap.Int64("save_id", s.SaveID))
}

// Unregister removes s if it is still the registered session for its save.
func (sm *SessionManager) Unregister(s *PlayerSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if cur, ok := sm.sessions[s.SaveID]; ok && cur == s {
		delete(sm.sessions, s.SaveID)
		sm.logger.Info("player session unregistered", zap.Int64("save_id", s.SaveID))
	}
}

// Get returns the session for a save, or nil if not found.
func (sm *SessionManager) Get(saveID int64) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[saveID]
}

// Count returns the number of currently connected sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// BroadcastToAll sends a packet to every connected session.
// Uses non-blocking send to prevent slow connections from blocking the broadcast.
func (sm *SessionManager) BroadcastToAll(pkt *Packet) {
	data, err := json.Marshal(pkt)
	if err != nil {
		sm.logger.Error("failed to marshal broadcast packet", zap.Error(err))
		return
	}
	sm.mu.RLock()
	sessions := make([]*PlayerSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		select {
		case s.SendChan <- data:
		default:
			sm.logger.Warn("broadcast dropped packet for slow client",
				zap.Int64("save_id", s.SaveID))
		}
	}
}

// CloseAllSessions gracefully closes all connected sessions.
func (sm *SessionManager) CloseAllSessions() {
	sm.mu.Lock()
	sessions := make([]*PlayerSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.Unlock()

	sm.logger.Info("closing all sessions", zap.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}

	// Wait for read loops to unregister (with timeout).
	maxWait := 10 * time.Second
	start := time.Now()
	for time.Since(start) < maxWait {
		if sm.Count() == 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
}
