package tty

import "sync"

// Keyboard holds the replaceable scancode-to-codepoint layout blob a
// TTY accepts via tcsetblob("kblayout", bytes, size), per spec.md
// §4.8. The blob's internal structure is opaque to the kernel; only
// the keyboard driver interprets it.
type Keyboard struct {
	mu   sync.Mutex
	blob []byte
}

func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// SetLayout replaces the layout blob, matching tcsetblob("kblayout", ...).
func (k *Keyboard) SetLayout(blob []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.blob = append([]byte(nil), blob...)
}

// Layout returns the current layout blob.
func (k *Keyboard) Layout() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]byte(nil), k.blob...)
}

// Translate maps a scancode to a codepoint using the current layout.
// With no layout installed, it falls back to treating the scancode as
// already being its own codepoint (an identity layout), so a TTY is
// usable before any blob is ever set.
func (k *Keyboard) Translate(scancode byte) rune {
	k.mu.Lock()
	defer k.mu.Unlock()
	if int(scancode) < len(k.blob) {
		return rune(k.blob[scancode])
	}
	return rune(scancode)
}
