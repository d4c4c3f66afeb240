package player

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadlineS = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PlayerSession is the WebSocket connection driving one save.
type PlayerSession struct {
	SaveID  int64
	TraceID string
	Conn    *websocket.Conn

	SendChan chan []byte
	Done     chan struct{}

	mu      sync.Mutex
	lastSeq uint64
	logger  *zap.Logger
}

// NewPlayerSession creates a new PlayerSession with write goroutine started.
func NewPlayerSession(saveID int64, conn *websocket.Conn, logger *zap.Logger) *PlayerSession {
	s := &PlayerSession{
		SaveID:   saveID,
		Conn:     conn,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   logger,
	}
	go s.writePump()
	return s
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections quickly.
func (s *PlayerSession) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data, ok := <-s.SendChan:
			if !ok {
				return
			}
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error",
					zap.Int64("save_id", s.SaveID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes pkt and sends it non-blocking. Drops if channel full or closed.
func (s *PlayerSession) Send(pkt *Packet) {
	if s.IsClosed() {
		return
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
	default:
		if !s.IsClosed() {
			s.logger.Warn("send channel full, dropping packet",
				zap.Int64("save_id", s.SaveID),
				zap.String("type", pkt.Type))
		}
	}
}

// SendJSON wraps payload in a Packet of the given type and sends it.
func (s *PlayerSession) SendJSON(seq uint64, typ string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal packet payload", zap.String("type", typ), zap.Error(err))
		return
	}
	s.Send(&Packet{Seq: seq, Type: typ, Payload: raw})
}

// Close signals the writePump to shut down.
func (s *PlayerSession) Close() {
	select {
	case <-s.Done:
	default:
		close(s.Done)
	}
}

// IsClosed returns true if the session has been closed.
func (s *PlayerSession) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// AcceptSeq records seq and reports whether it is newer than the last
// accepted one. Zero is always accepted.
func (s *PlayerSession) AcceptSeq(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == 0 {
		return true
	}
	if seq <= s.lastSeq {
		return false
	}
	s.lastSeq = seq
	return true
}

// SendHeartbeatPong sends a pong packet in response to a client ping.
func (s *PlayerSession) SendHeartbeatPong(clientTS int64) {
	type pongPayload struct {
		ClientTS int64 `json:"client_ts"`
		ServerTS int64 `json:"server_ts"`
	}
	s.SendJSON(0, "pong", pongPayload{
		ClientTS: clientTS,
		ServerTS: time.Now().UnixMilli(),
	})
}

// SetReadDeadline resets the WebSocket read deadline to 60 s from now.
func (s *PlayerSession) SetReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadlineS))
}
