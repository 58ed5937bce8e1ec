// Package notify delivers short user-facing messages.
package notify

import "sync"

type Notifier interface {
	Notify(msg string)
}

type Func func(msg string)

func (f Func) Notify(msg string) { f(msg) }

// Discard drops every message.
var Discard Notifier = Func(func(string) {})

// Multi fans a message out to every non-nil notifier in order.
func Multi(ns ...Notifier) Notifier {
	var out multi
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

type multi []Notifier

func (m multi) Notify(msg string) {
	for _, n := range m {
		n.Notify(msg)
	}
}

// Recorder keeps every message for later inspection.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *Recorder) Notify(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}
