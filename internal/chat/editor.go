// Package chat layers interactive line editing over a session: local
// echo, a small /command set, and display ordering that keeps a
// half-typed line intact when inbound data arrives.
package chat

// Editor is the line being composed by the local operator.  One
// implementation serves every interactive mode; it knows nothing about
// terminals or transports.
type Editor struct {
	buf []rune
}

// Insert appends r to the pending line.
func (e *Editor) Insert(r rune) {
	e.buf = append(e.buf, r)
}

// Backspace removes the last pending rune.  Returns false when the
// line is already empty (nothing to erase on screen).
func (e *Editor) Backspace() bool {
	if len(e.buf) == 0 {
		return false
	}
	e.buf = e.buf[:len(e.buf)-1]
	return true
}

// Submit returns the pending line and clears the buffer.
func (e *Editor) Submit() string {
	line := string(e.buf)
	e.buf = e.buf[:0]
	return line
}

// String returns the pending line without clearing it.
func (e *Editor) String() string { return string(e.buf) }

// Len returns the pending line length in runes.
func (e *Editor) Len() int { return len(e.buf) }
