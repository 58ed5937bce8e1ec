package speech

import "context"

// Config is handed to a Recognizer for every listening period.
type Config struct {
	Continuous     bool
	InterimResults bool
	Lang           Tag
}

// Engine is one running recognition stream.
//
// Events is closed when the engine halts, either on its own or after Stop
// once it has delivered its last results. Results may arrive after Stop.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan Event
}

// Recognizer is the host's speech recognition capability.
type Recognizer interface {
	Name() string
	Available() bool
	NewEngine(cfg Config) (Engine, error)
}
