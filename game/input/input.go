// Package input turns per-frame input snapshots into trigger and repeat
// signals, sampled once at the start of each frame.
package input

// Action is a logical button.
type Action string

const (
	Left   Action = "left"
	Right  Action = "right"
	Up     Action = "up"
	Down   Action = "down"
	OK     Action = "ok"
	Cancel Action = "cancel"
)

// Snapshot is the raw device state for one frame.
type Snapshot struct {
	Pressed     []Action `json:"pressed"`
	PointerX    int      `json:"pointer_x"`
	PointerY    int      `json:"pointer_y"`
	PointerDown bool     `json:"pointer_down"`
}

// Pointer is the resolved pointer position for the current frame.
type Pointer struct {
	X, Y int
}

// State tracks how long each action has been held. Not safe for
// concurrent use; the frame loop owns it.
type State struct {
	wait     int
	interval int

	held        map[Action]int // frames held, including the current one
	pointer     Pointer
	pointerHeld int
}

// NewState creates a State with the given key-repeat timing in frames.
func NewState(wait, interval int) *State {
	if wait <= 0 {
		wait = 24
	}
	if interval <= 0 {
		interval = 6
	}
	return &State{wait: wait, interval: interval, held: make(map[Action]int)}
}

// Update samples snap. Call once per frame before any query.
func (s *State) Update(snap Snapshot) {
	down := make(map[Action]bool, len(snap.Pressed))
	for _, a := range snap.Pressed {
		down[a] = true
	}
	for a := range s.held {
		if !down[a] {
			delete(s.held, a)
		}
	}
	for a := range down {
		s.held[a]++
	}

	s.pointer = Pointer{X: snap.PointerX, Y: snap.PointerY}
	if snap.PointerDown {
		s.pointerHeld++
	} else {
		s.pointerHeld = 0
	}
}

// IsPressed reports whether a is held this frame.
func (s *State) IsPressed(a Action) bool { return s.held[a] > 0 }

// IsTriggered reports whether a went down this frame.
func (s *State) IsTriggered(a Action) bool { return s.held[a] == 1 }

// IsRepeated fires on the first frame of a press and then every interval
// frames once the action has been held for wait frames.
func (s *State) IsRepeated(a Action) bool {
	n := s.held[a]
	if n == 0 {
		return false
	}
	t := n - 1
	return t == 0 || (t >= s.wait && t%s.interval == 0)
}

// Pointer returns the pointer position sampled this frame.
func (s *State) Pointer() Pointer { return s.pointer }

// IsPointerTriggered reports whether the primary button went down this frame.
func (s *State) IsPointerTriggered() bool { return s.pointerHeld == 1 }
