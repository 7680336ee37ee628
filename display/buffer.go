package display

// Line start addresses of the display RAM, for up to four rows.
var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// textBuffer is the screen content kept in memory. Text is written at
// the cursor; the screen is refreshed from it one cell at a time.
type textBuffer struct {
	columns int
	cells   []byte
	cursor  int
	refresh int
}

func newTextBuffer(columns, rows int) *textBuffer {
	b := &textBuffer{
		columns: columns,
		cells:   make([]byte, columns*rows),
	}
	b.clear()
	return b
}

func (b *textBuffer) size() int {
	return len(b.cells)
}

func (b *textBuffer) clear() {
	for i := range b.cells {
		b.cells[i] = ' '
	}
	b.cursor = 0
}

// locate moves the cursor to cell p, counted row by row. Cells outside
// the screen are ignored.
func (b *textBuffer) locate(p int) {
	if p < 0 || p >= b.size() {
		return
	}
	b.cursor = p
}

// put writes ch at the cursor.
//
// A newline moves to the start of the next row, unless the cursor
// already sits at a row start. On the last row it scrolls everything up
// one row instead. Writing past the last cell shifts the whole screen
// left by one.
func (b *textBuffer) put(ch byte) {
	size, last := b.size(), b.size()-b.columns

	switch {
	case ch == '\n':
		if b.cursor >= last {
			copy(b.cells, b.cells[b.columns:])
			for i := last; i < size; i++ {
				b.cells[i] = ' '
			}
			b.cursor = last
			return
		}
		b.cursor = (b.cursor + b.columns - 1) / b.columns * b.columns

	case b.cursor < size:
		b.cells[b.cursor] = ch
		b.cursor++

	default:
		copy(b.cells, b.cells[1:])
		b.cells[size-1] = ch
	}
}

func (b *textBuffer) print(text string) {
	for i := 0; i < len(text); i++ {
		b.put(text[i])
	}
}

// next returns the cell to refresh and advances the refresh position.
// lineStart is set when the display address has to be moved first.
func (b *textBuffer) next() (ch byte, addr byte, lineStart bool) {
	p := b.refresh
	if b.refresh++; b.refresh >= b.size() {
		b.refresh = 0
	}

	if p%b.columns == 0 {
		return b.cells[p], rowOffsets[p/b.columns], true
	}
	return b.cells[p], 0, false
}

func (b *textBuffer) String() string {
	return string(b.cells)
}
