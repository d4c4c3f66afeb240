package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/kasuganosora/rmmz-charselect/game/scene"
	"github.com/kasuganosora/rmmz-charselect/game/textcode"
)

// windowPalette approximates the RMMZ window skin text colours.
var windowPalette = map[int]tcell.Color{
	0:  tcell.ColorWhite,
	1:  tcell.ColorLightSkyBlue,
	2:  tcell.ColorLightCoral,
	3:  tcell.ColorLightGreen,
	4:  tcell.ColorSkyblue,
	5:  tcell.ColorPlum,
	6:  tcell.ColorYellow,
	7:  tcell.ColorGray,
	8:  tcell.ColorDarkGray,
	16: tcell.ColorLightSkyBlue,
	17: tcell.ColorKhaki,
	18: tcell.ColorRed,
}

func paletteColor(i int) tcell.Color {
	if c, ok := windowPalette[i]; ok {
		return c
	}
	return tcell.ColorWhite
}

// renderer maps a frame in screen pixels onto terminal cells.
type renderer struct {
	screen tcell.Screen
	cols   int
	rows   int
	width  int // frame pixels
	height int
}

func newRenderer(s tcell.Screen) *renderer {
	r := &renderer{screen: s}
	r.cols, r.rows = s.Size()
	return r
}

func (r *renderer) resize() {
	r.cols, r.rows = r.screen.Size()
}

func (r *renderer) cellX(px int) int {
	if r.width <= 0 {
		return 0
	}
	return px * r.cols / r.width
}

func (r *renderer) cellY(py int) int {
	if r.height <= 0 {
		return 0
	}
	return py * r.rows / r.height
}

// pixel returns the frame pixel at the centre of a terminal cell.
func (r *renderer) pixel(cx, cy int) (int, int) {
	if r.cols <= 0 || r.rows <= 0 {
		return 0, 0
	}
	return (2*cx + 1) * r.width / (2 * r.cols), (2*cy + 1) * r.height / (2 * r.rows)
}

// Draw paints v and shows it.
func (r *renderer) Draw(v scene.View) {
	r.width, r.height = v.Width, v.Height
	r.screen.Clear()
	for _, n := range v.Nodes {
		r.node(n, 0, 0)
	}
	r.status(v)
	r.screen.Show()
}

func (r *renderer) node(n scene.Node, ox, oy int) {
	if n.Opacity == 0 && n.Kind != scene.KindWindow {
		return
	}
	x0, y0 := r.cellX(ox+n.X), r.cellY(oy+n.Y)
	x1, y1 := r.cellX(ox+n.X+n.W)-1, r.cellY(oy+n.Y+n.H)-1
	switch n.Kind {
	case scene.KindRect:
		if strings.HasPrefix(n.ID, "indicator") {
			r.fill(x0, y1, x1, y1, '▀', tcell.StyleDefault.Foreground(tcell.ColorWhite))
		}
	case scene.KindPicture, scene.KindSprite:
		if n.Image == "" || n.W >= r.width {
			return
		}
		style := tcell.StyleDefault.Foreground(tcell.ColorSilver)
		if n.Selected {
			style = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
		}
		r.box(x0, y0, x1, y1, style)
		r.text(x0+1, (y0+y1)/2, x1-x0-1, n.Image, "center", style)
	case scene.KindWindow:
		r.box(x0, y0, x1, y1, tcell.StyleDefault.Foreground(tcell.ColorSteelBlue))
		for _, c := range n.Children {
			r.node(c, ox+n.X, oy+n.Y)
		}
	case scene.KindText:
		style := tcell.StyleDefault.Foreground(paletteColor(n.TextColor))
		if n.Selected {
			style = style.Reverse(true)
		}
		if len(n.Runs) > 0 {
			r.runs(x0+1, y0+1, x1, n.Runs)
			return
		}
		r.text(x0, (y0+y1)/2, x1-x0+1, n.Text, n.Align, style)
	}
}

func (r *renderer) status(v scene.View) {
	line := fmt.Sprintf(" %s  frame %d  arrows: move  enter/z: ok  esc/x: cancel  o: reopen selection  q: quit ", v.Scene, v.Frame)
	style := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	if v.FadeOpacity > 0 {
		style = style.Dim(true)
	}
	r.text(0, r.rows-1, r.cols, line, "left", style)
}

func (r *renderer) fill(x0, y0, x1, y1 int, ch rune, style tcell.Style) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			r.screen.SetContent(x, y, ch, nil, style)
		}
	}
}

func (r *renderer) box(x0, y0, x1, y1 int, style tcell.Style) {
	if x1 <= x0 || y1 <= y0 {
		return
	}
	for x := x0 + 1; x < x1; x++ {
		r.screen.SetContent(x, y0, '─', nil, style)
		r.screen.SetContent(x, y1, '─', nil, style)
	}
	for y := y0 + 1; y < y1; y++ {
		r.screen.SetContent(x0, y, '│', nil, style)
		r.screen.SetContent(x1, y, '│', nil, style)
	}
	r.screen.SetContent(x0, y0, '┌', nil, style)
	r.screen.SetContent(x1, y0, '┐', nil, style)
	r.screen.SetContent(x0, y1, '└', nil, style)
	r.screen.SetContent(x1, y1, '┘', nil, style)
}

func (r *renderer) text(x, y, width int, s, align string, style tcell.Style) {
	rs := []rune(s)
	if width <= 0 {
		return
	}
	if len(rs) > width {
		rs = rs[:width]
	}
	switch align {
	case "center":
		x += (width - len(rs)) / 2
	case "right":
		x += width - len(rs)
	}
	for i, ch := range rs {
		r.screen.SetContent(x+i, y, ch, nil, style)
	}
}

// runs lays out escape-code text, wrapping at maxX.
func (r *renderer) runs(x0, y, maxX int, runs []textcode.Run) {
	x := x0
	for _, run := range runs {
		style := tcell.StyleDefault.Foreground(paletteColor(run.Color))
		if run.Icon > 0 {
			r.screen.SetContent(x, y, '◆', nil, style)
			x++
			continue
		}
		for _, ch := range run.Text {
			if ch == '\n' || x >= maxX {
				x, y = x0, y+1
				if ch == '\n' {
					continue
				}
			}
			r.screen.SetContent(x, y, ch, nil, style)
			x++
		}
	}
}
