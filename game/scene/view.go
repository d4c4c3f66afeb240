package scene

import "github.com/kasuganosora/rmmz-charselect/game/textcode"

// Node kinds.
const (
	KindPicture = "picture"
	KindRect    = "rect"
	KindText    = "text"
	KindWindow  = "window"
	KindSprite  = "sprite"
)

// Node is one drawable of a scene, in screen pixels. Renderers draw nodes
// in order.
type Node struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	Opacity int    `json:"opacity"` // 0-255

	Image string `json:"image,omitempty"` // asset name for pictures and sprites
	Index int    `json:"index,omitempty"` // spritesheet block
	Color string `json:"color,omitempty"` // CSS colour for rects

	Text      string         `json:"text,omitempty"`
	Align     string         `json:"align,omitempty"` // left|center|right
	FontSize  int            `json:"font_size,omitempty"`
	TextColor int            `json:"text_color,omitempty"` // window colour index
	Runs      []textcode.Run `json:"runs,omitempty"`
	Children  []Node         `json:"children,omitempty"` // window contents, relative to the window
	Selected  bool           `json:"selected,omitempty"`
}

// View is a rendered frame.
type View struct {
	Scene       string `json:"scene"`
	Frame       int    `json:"frame"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Nodes       []Node `json:"nodes"`
	FadeOpacity int    `json:"fade_opacity"` // 255 = fully faded out
}
