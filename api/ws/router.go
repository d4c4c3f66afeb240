package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kasuganosora/rmmz-charselect/audit"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"go.uber.org/zap"
)

// HandlerFunc processes a decoded WS message payload.
type HandlerFunc func(ctx context.Context, session *player.PlayerSession, payload json.RawMessage) error

// Router dispatches incoming WS packets to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// On registers a HandlerFunc for the given message type.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw bytes, validates seq, and invokes the appropriate handler.
func (r *Router) Dispatch(ctx context.Context, s *player.PlayerSession, raw []byte) {
	var pkt player.Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet",
			zap.Int64("save_id", s.SaveID),
			zap.Error(err))
		return
	}

	// Seq 0 opts out of ordering.
	if !s.AcceptSeq(pkt.Seq) {
		r.logger.Warn("replayed or out-of-order packet",
			zap.Int64("save_id", s.SaveID),
			zap.Uint64("seq", pkt.Seq))
		return
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unhandled message type",
			zap.String("type", pkt.Type),
			zap.Int64("save_id", s.SaveID))
		return
	}

	s.TraceID = uuid.NewString()
	ctx = audit.WithTraceID(ctx, s.TraceID)
	if err := fn(ctx, s, pkt.Payload); err != nil {
		r.logger.Error("handler error",
			zap.String("type", pkt.Type),
			zap.Int64("save_id", s.SaveID),
			zap.String("trace_id", s.TraceID),
			zap.Error(err))
	}
}

// TraceIDFromCtx extracts the trace ID from a handler context.
func TraceIDFromCtx(ctx context.Context) string {
	return audit.TraceIDFrom(ctx)
}
