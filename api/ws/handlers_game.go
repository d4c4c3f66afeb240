package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kasuganosora/rmmz-charselect/audit"
	"github.com/kasuganosora/rmmz-charselect/game/host"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"go.uber.org/zap"
)

// ErrNoGame is returned when a packet arrives for a save that is not open.
var ErrNoGame = errors.New("ws: no open game for session")

// Packet types.
const (
	TypePing          = "ping"
	TypeInput         = "input"
	TypeNewGame       = "new_game"
	TypePluginCommand = "plugin_command"
	TypeSave          = "save"

	TypeSceneState    = "scene_state"
	TypeCommandResult = "command_result"
	TypeSaved         = "saved"
	TypeError         = "error"
)

// GameHandlers drives open games from client packets.
type GameHandlers struct {
	games  *host.Games
	audit  *audit.Service
	logger *zap.Logger
}

// NewGameHandlers creates GameHandlers. auditSvc may be nil.
func NewGameHandlers(games *host.Games, auditSvc *audit.Service, logger *zap.Logger) *GameHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandlers{games: games, audit: auditSvc, logger: logger}
}

// RegisterHandlers wires all game packet handlers into r.
func (gh *GameHandlers) RegisterHandlers(r *Router) {
	r.On(TypePing, gh.HandlePing)
	r.On(TypeInput, gh.HandleInput)
	r.On(TypeNewGame, gh.HandleNewGame)
	r.On(TypePluginCommand, gh.HandlePluginCommand)
	r.On(TypeSave, gh.HandleSave)
}

type pingPayload struct {
	TS int64 `json:"ts"`
}

// HandlePing responds to client heartbeat pings.
func (gh *GameHandlers) HandlePing(_ context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var p pingPayload
	_ = json.Unmarshal(raw, &p)
	s.SendHeartbeatPong(p.TS)
	return nil
}

func (gh *GameHandlers) game(s *player.PlayerSession) (*host.Game, error) {
	g, ok := gh.games.Get(s.SaveID)
	if !ok {
		sendError(s, "game not open")
		return nil, ErrNoGame
	}
	return g, nil
}

// HandleInput advances one frame with the client's input snapshot and
// replies with the frame to draw.
func (gh *GameHandlers) HandleInput(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var snap input.Snapshot
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap); err != nil {
			sendError(s, "invalid input")
			return err
		}
	}
	g, err := gh.game(s)
	if err != nil {
		return err
	}
	view, err := g.Frame(ctx, snap)
	s.SendJSON(0, TypeSceneState, view)
	if err != nil {
		sendError(s, err.Error())
	}
	return err
}

// HandleNewGame chooses "New Game" on the title.
func (gh *GameHandlers) HandleNewGame(ctx context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	g, err := gh.game(s)
	if err != nil {
		return err
	}
	if err := g.NewGame(ctx); err != nil {
		sendError(s, err.Error())
		return err
	}
	gh.log(ctx, s, audit.ActionNewGame, nil, "")
	s.SendJSON(0, TypeSceneState, g.View())
	return nil
}

type commandReq struct {
	Command string            `json:"command"`
	Args    map[string]string `json:"args,omitempty"`
}

// HandlePluginCommand runs a registered plugin command, e.g.
// "CharacterSelect.Open".
func (gh *GameHandlers) HandlePluginCommand(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	var req commandReq
	if err := json.Unmarshal(raw, &req); err != nil || req.Command == "" {
		sendError(s, "invalid plugin command")
		return err
	}
	g, err := gh.game(s)
	if err != nil {
		return err
	}
	err = g.Command(ctx, req.Command, req.Args)
	res := map[string]interface{}{"command": req.Command, "ok": err == nil}
	msg := ""
	if err != nil {
		msg = err.Error()
		res["error"] = msg
	}
	gh.log(ctx, s, audit.ActionPluginCommand, req, msg)
	s.SendJSON(0, TypeCommandResult, res)
	return err
}

// HandleSave writes the save to the database now.
func (gh *GameHandlers) HandleSave(_ context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	g, err := gh.game(s)
	if err != nil {
		return err
	}
	if err := g.Save(); err != nil {
		sendError(s, "save failed")
		return err
	}
	s.SendJSON(0, TypeSaved, map[string]int64{"save_id": s.SaveID, "at": time.Now().UnixMilli()})
	return nil
}

func (gh *GameHandlers) log(ctx context.Context, s *player.PlayerSession, action string, req interface{}, errMsg string) {
	if gh.audit == nil {
		return
	}
	gh.audit.Log(audit.Entry{
		TraceID: audit.TraceIDFrom(ctx),
		SaveID:  s.SaveID,
		Action:  action,
		Request: req,
		Error:   errMsg,
	})
}

func sendError(s *player.PlayerSession, msg string) {
	payload, _ := json.Marshal(map[string]string{"message": msg})
	s.Send(&player.Packet{Type: TypeError, Payload: payload})
}
