// Package charselect is the character selection screen shown before a new
// game reaches the map.
package charselect

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/game/party"
	"github.com/kasuganosora/rmmz-charselect/game/player"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/game/textcode"
	"github.com/kasuganosora/rmmz-charselect/plugin/hook"
	"go.uber.org/zap"
)

// Layout, in pixels.
const (
	titleY          = 20
	titleHeight     = 72
	titleFontSize   = 36
	spriteY         = 100
	spriteMargin    = 200 // screen height minus sprite height
	indicatorY      = 96
	indicatorHeight = 4
	indicatorAlpha  = 200
	descHeight      = 100
	descAlpha       = 192
	descBodyY       = 32
	windowPadding   = 12
	backgroundAlpha = 128

	// systemColor is the window colour index used for labels.
	systemColor = 16
)

const titleText = "Choose Your Character"

// Navigation directions.
const (
	Prev = -1
	Next = 1
)

// SaveState is the persisted switch and variable store of a save.
type SaveState interface {
	GetSwitch(id int) bool
	SetSwitch(id int, v bool)
	SetVariableText(id int, v string)
}

// PartyBridge changes the party and the player when a choice is confirmed.
type PartyBridge interface {
	ResetParty() error
	ListMembers() []int
	ReplaceMembers(ids []int) error
	SetPlayerAppearance(characterName string, characterIndex int)
	RefreshPlayerSprite()
	ReserveTransfer(mapID, x, y int, dir player.Direction, fade player.FadeType) error
}

// Slots are the switch and variables the selection is written to. Other
// game content reads them.
type Slots struct {
	SelectionSwitch  int
	CharacterIDVar   int
	CharacterNameVar int
}

// DefaultSlots is switch 1, variables 1 and 2.
func DefaultSlots() Slots {
	return Slots{SelectionSwitch: 1, CharacterIDVar: 1, CharacterNameVar: 2}
}

// Config is shared by every screen of a process.
type Config struct {
	Catalog    *catalog.Catalog
	Slots      Slots
	Background string // img/titles1 name
	Loader     AssetLoader
	Logger     *zap.Logger
}

// SelectedEvent is the data of hook.AfterCharacterSelected.
type SelectedEvent struct {
	Manager *scene.Manager
	SaveID  int64
	Index   int
	Record  catalog.CharacterRecord
	Party   []int
}

// Screen is the selection scene. It starts Active on the first record and
// becomes Locked for good once a choice is confirmed.
type Screen struct {
	cfg      Config
	state    SaveState
	bridge   PartyBridge
	resolver textcode.Resolver
	logger   *zap.Logger

	width, height int
	layer         *Layer
	sprites       []*ChoiceSprite

	selected    int
	locked      bool
	err         error
	description []textcode.Run
}

// NewScreen builds a screen for a width x height display.
func NewScreen(cfg Config, state SaveState, bridge PartyBridge, resolver textcode.Resolver, width, height int) (*Screen, error) {
	if cfg.Catalog == nil || cfg.Catalog.Count() == 0 {
		return nil, catalog.ErrEmpty
	}
	if cfg.Slots == (Slots{}) {
		cfg.Slots = DefaultSlots()
	}
	if resolver == nil {
		resolver = emptyResolver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Screen{
		cfg:      cfg,
		state:    state,
		bridge:   bridge,
		resolver: resolver,
		logger:   logger,
		width:    width,
		height:   height,
		layer:    NewLayer(nil, Point{}),
	}
	n := cfg.Catalog.Count()
	w := width / n
	for i, rec := range cfg.Catalog.All() {
		rect := Rect{X: i * w, Y: spriteY, W: w, H: height - spriteMargin}
		s.sprites = append(s.sprites, NewChoiceSprite(i, rec, s.layer, rect, cfg.Loader))
	}
	s.refreshDescription()
	return s, nil
}

// NewFactory returns the scene factory of the selection screen, bound to
// the manager's session.
func NewFactory(cfg Config) scene.Factory {
	return func(m *scene.Manager) (scene.Scene, error) {
		sess := m.Session()
		if sess == nil {
			return nil, errors.New("charselect: no session")
		}
		o := m.Options()
		return NewScreen(cfg, sess.State, sess.Bridge(), sess, o.Width, o.Height)
	}
}

func (s *Screen) Name() string { return scene.CharacterSelect }

func (s *Screen) Start(context.Context, *scene.Manager) error { return nil }

func (s *Screen) Terminate(*scene.Manager) {}

// Selected returns the selected catalog index.
func (s *Screen) Selected() int { return s.selected }

// Locked reports whether a choice has been confirmed.
func (s *Screen) Locked() bool { return s.locked }

// Err returns the error that stopped the last confirmation, if any.
func (s *Screen) Err() error { return s.err }

// Sprites returns the choice sprites in catalog order.
func (s *Screen) Sprites() []*ChoiceSprite { return s.sprites }

// Layer returns the layer holding the sprites.
func (s *Screen) Layer() *Layer { return s.layer }

// Description returns the styled description of the selected record.
func (s *Screen) Description() []textcode.Run { return s.description }

// Update handles one frame of input: left/right, then ok, then cancel,
// then the pointer.
func (s *Screen) Update(ctx context.Context, m *scene.Manager, in *input.State) {
	if s.locked || m.IsSceneChanging() {
		return
	}
	switch {
	case in.IsRepeated(input.Left):
		s.Navigate(m, Prev)
	case in.IsRepeated(input.Right):
		s.Navigate(m, Next)
	case in.IsTriggered(input.OK):
		s.Confirm(ctx, m)
	case in.IsTriggered(input.Cancel):
		s.Cancel(m)
	}
	if s.locked || m.IsSceneChanging() {
		return
	}
	s.updatePointer(ctx, m, in)
}

// updatePointer honours the first sprite under the pointer: it becomes
// the selection, and a click on it confirms.
func (s *Screen) updatePointer(ctx context.Context, m *scene.Manager, in *input.State) {
	p := in.Pointer()
	for i, sp := range s.sprites {
		if !sp.IsPointerOver(p) {
			continue
		}
		if i != s.selected {
			s.Hover(m, i)
		}
		if in.IsPointerTriggered() {
			s.Confirm(ctx, m)
		}
		return
	}
}

// Navigate moves the selection by dir (Prev or Next), wrapping around.
func (s *Screen) Navigate(m *scene.Manager, dir int) {
	if s.locked {
		return
	}
	n := len(s.sprites)
	s.selected = ((s.selected+dir)%n + n) % n
	s.onSelectionChange(m)
}

// Hover selects index directly, as if the pointer had moved onto it.
func (s *Screen) Hover(m *scene.Manager, index int) {
	if s.locked || index < 0 || index >= len(s.sprites) || index == s.selected {
		return
	}
	s.selected = index
	s.onSelectionChange(m)
}

func (s *Screen) onSelectionChange(m *scene.Manager) {
	s.refreshDescription()
	m.PlaySE(scene.CueCursor)
}

func (s *Screen) refreshDescription() {
	s.description = textcode.Parse(s.sprites[s.selected].Record.Description, s.resolver)
}

// Confirm applies the selected record once. Later calls do nothing. If
// the party or transfer cannot be applied the screen stays locked, Err
// reports why, and the selection switch and variables are left untouched.
func (s *Screen) Confirm(ctx context.Context, m *scene.Manager) {
	if s.locked {
		return
	}
	s.locked = true

	rec := s.sprites[s.selected].Record
	m.PlaySE(scene.CueOK)
	if err := ApplySelection(s.bridge, rec); err != nil {
		s.err = err
		s.logger.Error("apply character selection",
			zap.String("character", rec.ID), zap.Int("actor_id", rec.ActorID), zap.Error(err))
		return
	}
	s.state.SetVariableText(s.cfg.Slots.CharacterIDVar, rec.ID)
	s.state.SetVariableText(s.cfg.Slots.CharacterNameVar, rec.Name)
	s.state.SetSwitch(s.cfg.Slots.SelectionSwitch, true)

	m.FadeOutAll()
	m.Goto(scene.Map)

	ev := &SelectedEvent{Manager: m, Index: s.selected, Record: rec, Party: s.bridge.ListMembers()}
	if sess := m.Session(); sess != nil {
		ev.SaveID = sess.SaveID
	}
	s.logger.Info("character selected",
		zap.Int64("save_id", ev.SaveID), zap.String("character", rec.ID), zap.Int("actor_id", rec.ActorID))
	if _, err := m.Hooks().Trigger(ctx, hook.AfterCharacterSelected, ev); err != nil {
		s.logger.Warn("selection hook failed", zap.Error(err))
	}
}

// Cancel returns to the title without touching the save.
func (s *Screen) Cancel(m *scene.Manager) {
	if s.locked {
		return
	}
	m.PlaySE(scene.CueCancel)
	m.Goto(scene.Title)
}

// ApplySelection makes rec's actor the whole party, dresses the player as
// rec and reserves the transfer to rec's starting position. The default
// party is set up first and the final membership applied once afterwards,
// so no default member survives.
func ApplySelection(b PartyBridge, rec catalog.CharacterRecord) error {
	if err := b.ResetParty(); err != nil {
		return fmt.Errorf("charselect: reset party: %w", err)
	}
	if err := b.ReplaceMembers(party.DesiredMembers(rec.ActorID)); err != nil {
		return fmt.Errorf("charselect: set party: %w", err)
	}
	b.SetPlayerAppearance(rec.CharacterName, rec.CharacterIndex)
	b.RefreshPlayerSprite()
	if err := b.ReserveTransfer(rec.StartingMap, rec.StartingX, rec.StartingY, player.DirDown, player.FadeBlack); err != nil {
		return fmt.Errorf("charselect: reserve transfer: %w", err)
	}
	return nil
}

// View draws background, title, portraits, indicator and description.
func (s *Screen) View(*scene.Manager) []scene.Node {
	n := len(s.sprites)
	w := s.width / n
	nodes := []scene.Node{
		{ID: "background", Kind: scene.KindPicture, W: s.width, H: s.height, Image: s.cfg.Background, Opacity: backgroundAlpha},
		{ID: "overlay", Kind: scene.KindRect, W: s.width, H: s.height, Color: "rgba(0,0,0,0.7)", Opacity: 255},
		{ID: "title", Kind: scene.KindWindow, Y: titleY, W: s.width, H: titleHeight, Opacity: 0,
			Children: []scene.Node{{ID: "title_text", Kind: scene.KindText, W: s.width - 2*windowPadding, H: titleHeight - 2*windowPadding,
				Text: titleText, Align: "center", FontSize: titleFontSize, Opacity: 255}}},
	}
	for i, sp := range s.sprites {
		r := sp.WorldRect()
		node := scene.Node{ID: fmt.Sprintf("choice_%d", i), Kind: scene.KindPicture,
			X: r.X, Y: r.Y, W: r.W, H: r.H, Opacity: 255, Selected: i == s.selected}
		if pos, ok := sp.PortraitPosition(); ok {
			bm, _ := sp.Portrait()
			o := s.layer.WorldOrigin()
			node.Image = sp.Record.Picture
			node.X, node.Y, node.W, node.H = pos.X+o.X, pos.Y+o.Y, bm.Width, bm.Height
		}
		nodes = append(nodes, node)
	}
	rec := s.sprites[s.selected].Record
	contentW := s.width - 2*windowPadding
	nodes = append(nodes,
		scene.Node{ID: "indicator", Kind: scene.KindRect, X: s.selected * w, Y: indicatorY, W: w, H: indicatorHeight,
			Color: "#ffffff", Opacity: indicatorAlpha},
		scene.Node{ID: "description", Kind: scene.KindWindow, Y: s.height - descHeight, W: s.width, H: descHeight, Opacity: descAlpha,
			Children: []scene.Node{
				{ID: "description_name", Kind: scene.KindText, W: contentW, H: 36,
					Text: rec.Name, Align: "center", TextColor: systemColor, Opacity: 255},
				{ID: "description_body", Kind: scene.KindText, X: windowPadding, Y: descBodyY, W: contentW - 2*windowPadding,
					H: descHeight - descBodyY, Runs: s.description, Opacity: 255},
			}},
	)
	return nodes
}

type emptyResolver struct{}

func (emptyResolver) Variable(int) string        { return "0" }
func (emptyResolver) ActorName(int) string       { return "" }
func (emptyResolver) PartyMemberName(int) string { return "" }
func (emptyResolver) CurrencyUnit() string       { return "" }
