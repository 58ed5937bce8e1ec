package hotkey

// Linux input-event-codes for the keys a Combo can name.
const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57
)

var letterCodes = map[byte]uint16{
	'q': 16, 'w': 17, 'e': 18, 'r': 19, 't': 20, 'y': 21, 'u': 22, 'i': 23, 'o': 24, 'p': 25,
	'a': 30, 's': 31, 'd': 32, 'f': 33, 'g': 34, 'h': 35, 'j': 36, 'k': 37, 'l': 38,
	'z': 44, 'x': 45, 'c': 46, 'v': 47, 'b': 48, 'n': 49, 'm': 50,
}

func keyCode(key string) uint16 {
	if key == "space" {
		return keySpace
	}
	return letterCodes[key[0]]
}

const (
	keyRelease = 0
	keyPress   = 1
)

// chord tracks modifier state from raw key events and reports when the
// combo's key goes down or up. Autorepeat events are ignored.
type chord struct {
	combo Combo
	code  uint16

	ctrl, shift, held bool
}

func newChord(c Combo) *chord {
	return &chord{combo: c, code: keyCode(c.Key)}
}

func (c *chord) feed(code uint16, value int32) (down, up bool) {
	pressed := value == keyPress
	released := value == keyRelease
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case c.code:
		switch {
		case pressed && !c.held && c.modsHeld():
			c.held = true
			return true, false
		case released && c.held:
			c.held = false
			return false, true
		}
	}
	return false, false
}

func (c *chord) modsHeld() bool {
	return (!c.combo.Ctrl || c.ctrl) && (!c.combo.Shift || c.shift)
}
