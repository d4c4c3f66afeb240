package main

import (
	"github.com/gdamore/tcell/v2"
	"github.com/kasuganosora/rmmz-charselect/game/input"
)

// keyMap follows the RMMZ default keyboard layout.
var keyMap = map[tcell.Key]input.Action{
	tcell.KeyLeft:   input.Left,
	tcell.KeyRight:  input.Right,
	tcell.KeyUp:     input.Up,
	tcell.KeyDown:   input.Down,
	tcell.KeyEnter:  input.OK,
	tcell.KeyEscape: input.Cancel,
}

var runeMap = map[rune]input.Action{
	'z': input.OK,
	' ': input.OK,
	'x': input.Cancel,
	'h': input.Left,
	'l': input.Right,
	'k': input.Up,
	'j': input.Down,
}

// collector turns terminal events into per-frame snapshots. Terminals
// report presses but not releases, so an action counts as held for the
// frame after its key event.
type collector struct {
	pressed map[input.Action]bool
	pointer struct {
		x, y int
		down bool
	}
}

func newCollector() *collector {
	return &collector{pressed: make(map[input.Action]bool)}
}

// key records a key event and reports whether it was mapped.
func (c *collector) key(ev *tcell.EventKey) bool {
	if a, ok := keyMap[ev.Key()]; ok {
		c.pressed[a] = true
		return true
	}
	if ev.Key() == tcell.KeyRune {
		if a, ok := runeMap[ev.Rune()]; ok {
			c.pressed[a] = true
			return true
		}
	}
	return false
}

// mouse records the pointer in frame pixels.
func (c *collector) mouse(ev *tcell.EventMouse, r *renderer) {
	cx, cy := ev.Position()
	c.pointer.x, c.pointer.y = r.pixel(cx, cy)
	c.pointer.down = ev.Buttons()&tcell.Button1 != 0
}

// snapshot returns this frame's input and clears the key presses.
func (c *collector) snapshot() input.Snapshot {
	snap := input.Snapshot{
		PointerX:    c.pointer.x,
		PointerY:    c.pointer.y,
		PointerDown: c.pointer.down,
	}
	for _, a := range []input.Action{input.Left, input.Right, input.Up, input.Down, input.OK, input.Cancel} {
		if c.pressed[a] {
			snap.Pressed = append(snap.Pressed, a)
		}
	}
	clear(c.pressed)
	return snap
}
