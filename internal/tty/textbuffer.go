// Package tty implements spec.md §4.8: a virtual TextBuffer interface,
// a TextBufferHandle that indirects to the current backing buffer so
// graphic-mode switches can swap it out from under existing users, a
// keyboard-layout blob, and a termios-style line discipline over that
// buffer.
package tty

// TextChar is one cell of a TextBuffer's grid.
type TextChar struct {
	Codepoint rune
	Attr      uint8
}

// Pos is a (column, row) grid coordinate.
type Pos struct {
	X, Y int
}

// TextBuffer is spec.md's virtual interface over a grid of TextChars.
// EmergencyRecoup/EmergencyReset exist for the panic-path log sink
// (internal/klog.Emergency) to still paint visible output onto a
// possibly-corrupted buffer without going through the normal locking
// path.
type TextBuffer interface {
	Width() int
	Height() int
	GetChar(p Pos) TextChar
	SetChar(p Pos, c TextChar)
	Scroll(delta int, fill TextChar)
	Move(to, from Pos, count int)
	Fill(from, to Pos, c TextChar)
	GetCursorPos() Pos
	SetCursorPos(p Pos)
	Invalidate()
	EmergencyRecoup()
	EmergencyReset()
}

// GridBuffer is an in-memory TextBuffer, standing in for a real
// framebuffer/VGA-text-mode backend the way memfs stands in for a real
// filesystem.
type GridBuffer struct {
	width, height int
	cells         []TextChar
	cursor        Pos
}

func NewGridBuffer(width, height int) *GridBuffer {
	return &GridBuffer{width: width, height: height, cells: make([]TextChar, width*height)}
}

func (g *GridBuffer) Width() int  { return g.width }
func (g *GridBuffer) Height() int { return g.height }

func (g *GridBuffer) index(p Pos) int { return p.Y*g.width + p.X }

func (g *GridBuffer) GetChar(p Pos) TextChar {
	if p.X < 0 || p.X >= g.width || p.Y < 0 || p.Y >= g.height {
		return TextChar{}
	}
	return g.cells[g.index(p)]
}

func (g *GridBuffer) SetChar(p Pos, c TextChar) {
	if p.X < 0 || p.X >= g.width || p.Y < 0 || p.Y >= g.height {
		return
	}
	g.cells[g.index(p)] = c
}

// Scroll shifts every row up (delta > 0) or down (delta < 0) by
// abs(delta) rows, filling the rows that scroll into view with fill.
func (g *GridBuffer) Scroll(delta int, fill TextChar) {
	if delta == 0 {
		return
	}
	n := g.width * g.height
	shifted := make([]TextChar, n)
	for i := range shifted {
		shifted[i] = fill
	}
	shift := delta * g.width
	if shift > 0 && shift < n {
		copy(shifted, g.cells[shift:])
	} else if shift < 0 && -shift < n {
		copy(shifted[-shift:], g.cells)
	}
	g.cells = shifted
}

// Move copies count cells starting at from to starting at to,
// respecting overlap the way memmove does.
func (g *GridBuffer) Move(to, from Pos, count int) {
	src := g.index(from)
	dst := g.index(to)
	if src == dst || count <= 0 {
		return
	}
	end := src + count
	if end > len(g.cells) {
		end = len(g.cells)
		count = end - src
	}
	buf := make([]TextChar, count)
	copy(buf, g.cells[src:end])
	copy(g.cells[dst:dst+count], buf)
}

func (g *GridBuffer) Fill(from, to Pos, c TextChar) {
	start := g.index(from)
	end := g.index(to)
	if start > end {
		start, end = end, start
	}
	if end > len(g.cells) {
		end = len(g.cells)
	}
	for i := start; i < end; i++ {
		g.cells[i] = c
	}
}

func (g *GridBuffer) GetCursorPos() Pos    { return g.cursor }
func (g *GridBuffer) SetCursorPos(p Pos)   { g.cursor = p }
func (g *GridBuffer) Invalidate()          {}
func (g *GridBuffer) EmergencyRecoup()     {}
func (g *GridBuffer) EmergencyReset() {
	for i := range g.cells {
		g.cells[i] = TextChar{}
	}
	g.cursor = Pos{}
}
