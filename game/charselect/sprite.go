package charselect

import (
	"sync"

	"github.com/kasuganosora/rmmz-charselect/catalog"
	"github.com/kasuganosora/rmmz-charselect/game/input"
	"github.com/kasuganosora/rmmz-charselect/resource"
)

// Point is a position in pixels.
type Point struct {
	X, Y int
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) lies in r. The right and bottom edges
// are outside.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Offset returns r moved by p.
func (r Rect) Offset(p Point) Rect {
	return Rect{X: r.X + p.X, Y: r.Y + p.Y, W: r.W, H: r.H}
}

// Layer is a container that offsets its children. Layers nest.
type Layer struct {
	mu     sync.RWMutex
	pos    Point
	parent *Layer
}

// NewLayer creates a layer at pos inside parent (nil for the screen).
func NewLayer(parent *Layer, pos Point) *Layer {
	return &Layer{pos: pos, parent: parent}
}

// MoveTo sets the layer's position relative to its parent.
func (l *Layer) MoveTo(p Point) {
	l.mu.Lock()
	l.pos = p
	l.mu.Unlock()
}

// WorldOrigin returns the on-screen position of the layer's origin.
func (l *Layer) WorldOrigin() Point {
	if l == nil {
		return Point{}
	}
	l.mu.RLock()
	p, parent := l.pos, l.parent
	l.mu.RUnlock()
	o := parent.WorldOrigin()
	return Point{X: o.X + p.X, Y: o.Y + p.Y}
}

// AssetLoader fetches images in the background. done may run on any
// goroutine.
type AssetLoader interface {
	LoadPicture(name string, done func(resource.Bitmap, error))
}

// ChoiceSprite is the portrait of one catalog entry. It knows its
// rectangle and whether the pointer is over it; it does nothing on its own.
type ChoiceSprite struct {
	Index  int
	Record catalog.CharacterRecord

	rect   Rect // relative to parent
	parent *Layer

	mu       sync.Mutex
	portrait *resource.Bitmap
}

// NewChoiceSprite creates the sprite and starts loading its portrait. A
// portrait that fails to load stays blank.
func NewChoiceSprite(index int, rec catalog.CharacterRecord, parent *Layer, rect Rect, loader AssetLoader) *ChoiceSprite {
	s := &ChoiceSprite{Index: index, Record: rec, rect: rect, parent: parent}
	if loader != nil && rec.Picture != "" {
		loader.LoadPicture(rec.Picture, func(bm resource.Bitmap, err error) {
			if err != nil {
				return
			}
			s.mu.Lock()
			s.portrait = &bm
			s.mu.Unlock()
		})
	}
	return s
}

// Rect returns the sprite's rectangle relative to its parent.
func (s *ChoiceSprite) Rect() Rect { return s.rect }

// WorldRect returns the sprite's rectangle on screen.
func (s *ChoiceSprite) WorldRect() Rect { return s.rect.Offset(s.parent.WorldOrigin()) }

// ContainsPoint reports whether (x, y), in the parent's coordinates, is
// inside the sprite.
func (s *ChoiceSprite) ContainsPoint(x, y int) bool { return s.rect.Contains(x, y) }

// IsPointerOver tests the pointer against where the sprite is drawn now.
func (s *ChoiceSprite) IsPointerOver(p input.Pointer) bool {
	return s.WorldRect().Contains(p.X, p.Y)
}

// Portrait returns the loaded portrait, if any.
func (s *ChoiceSprite) Portrait() (resource.Bitmap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.portrait == nil {
		return resource.Bitmap{}, false
	}
	return *s.portrait, true
}

// PortraitPosition returns where the portrait's top-left corner goes so it
// is centered in the sprite, relative to the parent.
func (s *ChoiceSprite) PortraitPosition() (Point, bool) {
	bm, ok := s.Portrait()
	if !ok {
		return Point{}, false
	}
	return Point{
		X: s.rect.X + (s.rect.W-bm.Width)/2,
		Y: s.rect.Y + (s.rect.H-bm.Height)/2,
	}, true
}
