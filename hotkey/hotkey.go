package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const DefaultCombo = "ctrl+shift+space"

// Combo is a global key chord. Only Ctrl and Shift are portable across the
// supported platforms, so those are the only modifiers.
type Combo struct {
	Ctrl  bool
	Shift bool
	Key   string // "space" or a single lower-case letter
}

func ParseCombo(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		last := i == len(parts)-1
		switch {
		case p == "ctrl" && !last:
			c.Ctrl = true
		case p == "shift" && !last:
			c.Shift = true
		case last && validKey(p):
			c.Key = p
		default:
			return Combo{}, fmt.Errorf("invalid hotkey %q: unexpected %q", s, p)
		}
	}
	if !c.Ctrl && !c.Shift {
		return Combo{}, fmt.Errorf("invalid hotkey %q: needs ctrl or shift", s)
	}
	return c, nil
}

func validKey(k string) bool {
	if k == "space" {
		return true
	}
	return len(k) == 1 && k[0] >= 'a' && k[0] <= 'z'
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, c.Key), "+")
}
