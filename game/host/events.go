package host

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/rmmz-charselect/audit"
	"github.com/kasuganosora/rmmz-charselect/cache"
	"github.com/kasuganosora/rmmz-charselect/game/charselect"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"go.uber.org/zap"
)

// SelectionMessage is published on cache.SelectionChannel.
type SelectionMessage struct {
	SaveID      int64     `json:"save_id"`
	CharacterID string    `json:"character_id"`
	Name        string    `json:"name"`
	ActorID     int       `json:"actor_id"`
	Index       int       `json:"index"`
	Party       []int     `json:"party"`
	MapID       int       `json:"map_id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	At          time.Time `json:"at"`
}

// Recorder reports confirmed selections. Any field may be nil.
type Recorder struct {
	Audit  *audit.Service
	Cache  cache.Cache
	PubSub cache.PubSub
	Logger *zap.Logger
}

// Install registers the recorder after every other selection handler.
func (r *Recorder) Install(hc *hook.HookCenter) {
	hc.Register(hook.AfterCharacterSelected, 100, "recorder", func(ctx context.Context, _ string, data interface{}) (interface{}, error) {
		if ev, ok := data.(*charselect.SelectedEvent); ok {
			r.Record(ctx, ev)
		}
		return data, nil
	})
}

// Record writes the audit entry, bumps the pick counter and publishes the
// selection.
func (r *Recorder) Record(ctx context.Context, ev *charselect.SelectedEvent) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := ev.Record
	msg := SelectionMessage{
		SaveID:      ev.SaveID,
		CharacterID: rec.ID,
		Name:        rec.Name,
		ActorID:     rec.ActorID,
		Index:       ev.Index,
		Party:       ev.Party,
		MapID:       rec.StartingMap,
		X:           rec.StartingX,
		Y:           rec.StartingY,
		At:          time.Now().UTC(),
	}

	if r.Audit != nil {
		r.Audit.Log(audit.Entry{
			TraceID:  audit.TraceIDFrom(ctx),
			SaveID:   ev.SaveID,
			Action:   audit.ActionCharacterSelected,
			Request:  map[string]interface{}{"character_id": rec.ID, "index": ev.Index},
			Response: msg,
			MapID:    rec.StartingMap,
		})
	}
	if r.Cache != nil {
		if _, err := r.Cache.HIncrBy(ctx, cache.PicksKey, rec.ID, 1); err != nil {
			logger.Warn("count selection", zap.String("character", rec.ID), zap.Error(err))
		}
	}
	if r.PubSub != nil {
		raw, err := json.Marshal(msg)
		if err == nil {
			err = r.PubSub.Publish(ctx, cache.SelectionChannel, string(raw))
		}
		if err != nil {
			logger.Warn("publish selection", zap.Int64("save_id", ev.SaveID), zap.Error(err))
		}
	}
}
