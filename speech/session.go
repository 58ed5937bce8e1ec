package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxpad/log"
	"voxpad/notify"
	"voxpad/transcript"
)

var (
	ErrUnsupportedEngine = errors.New("speech recognition not supported")
	ErrAlreadyListening  = errors.New("speech session already listening")
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

type Options struct {
	Notifier notify.Notifier
	// OnUpdate runs after every applied result with the displayed text.
	OnUpdate func(text string)
	// OnError runs for every engine-reported error.
	OnError func(err RecognitionError)
	// OnHalt runs when the engine ends a listening period on its own.
	OnHalt func()
}

// Session drives one recognition engine at a time and merges its output
// into a transcript store.
type Session struct {
	rec   Recognizer
	store *transcript.Store
	opts  Options

	mu      sync.Mutex
	active  *listener
	lastErr *RecognitionError
	pumps   sync.WaitGroup
}

// listener owns the engine for exactly one listening period.
type listener struct {
	id      string
	engine  Engine
	lang    Tag
	started time.Time

	mu        sync.Mutex
	stopped   bool
	committed map[int]struct{} // final slot indexes already appended; touched by the pump only
}

func NewSession(rec Recognizer, store *transcript.Store, opts Options) *Session {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	return &Session{rec: rec, store: store, opts: opts}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return Listening
	}
	return Idle
}

// ID returns the id of the current listening period, or "" when idle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.id
}

func (s *Session) LastError() *RecognitionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) EngineName() string { return s.rec.Name() }

// Start begins a listening period in lang. Without a recognition capability
// it notifies the user once and returns ErrUnsupportedEngine.
func (s *Session) Start(ctx context.Context, lang Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return ErrAlreadyListening
	}
	if !s.rec.Available() {
		s.opts.Notifier.Notify(fmt.Sprintf("Speech recognition is not available (%s engine not configured).", s.rec.Name()))
		return ErrUnsupportedEngine
	}

	eng, err := s.rec.NewEngine(Config{Continuous: true, InterimResults: true, Lang: lang})
	if err != nil {
		return fmt.Errorf("create %s engine: %w", s.rec.Name(), err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start %s engine: %w", s.rec.Name(), err)
	}

	l := &listener{
		id:        uuid.NewString(),
		engine:    eng,
		lang:      lang,
		started:   time.Now(),
		committed: make(map[int]struct{}),
	}
	s.active = l
	s.lastErr = nil
	s.store.SetListening(true)
	log.SessionStart(l.id, s.rec.Name(), string(lang))

	s.pumps.Add(1)
	go s.pump(l)
	return nil
}

// Stop ends the listening period. Interim text is discarded; finals the
// engine still delivers for its last utterance are appended.
func (s *Session) Stop() {
	s.mu.Lock()
	l := s.active
	s.active = nil
	s.mu.Unlock()

	if l == nil {
		return
	}
	s.finish(l)
	l.engine.Stop()
	log.SessionStop(l.id, time.Since(l.started), len(s.store.Text()))
}

// Wait blocks until every engine stream has been drained.
func (s *Session) Wait() {
	s.pumps.Wait()
}

func (s *Session) finish(l *listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	s.store.DiscardInterim()
	s.store.SetListening(false)
}

func (s *Session) pump(l *listener) {
	defer s.pumps.Done()

	for ev := range l.engine.Events() {
		if rerr := NormalizeError(ev); rerr != nil {
			s.recordError(l, rerr)
			continue
		}
		res, err := Normalize(ev)
		if err != nil {
			log.Warnf("dropping recognition event: %v", err)
			continue
		}
		s.apply(l, res)
	}

	s.mu.Lock()
	halted := s.active == l
	if halted {
		s.active = nil
	}
	s.mu.Unlock()

	if !halted {
		return
	}
	s.finish(l)
	log.EngineHalted(l.id)
	log.SessionStop(l.id, time.Since(l.started), len(s.store.Text()))
	if s.opts.OnHalt != nil {
		s.opts.OnHalt()
	}
}

func (s *Session) apply(l *listener, res Result) {
	var finals []string
	for _, seg := range res.FinalSegments {
		if _, ok := l.committed[seg.Index]; ok {
			continue
		}
		l.committed[seg.Index] = struct{}{}
		finals = append(finals, seg.Text)
	}

	l.mu.Lock()
	var text string
	switch {
	case !l.stopped:
		text = s.store.Apply(finals, res.InterimText)
	case len(finals) > 0:
		text = s.store.AppendFinals(finals)
	default:
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(text)
	}
}

func (s *Session) recordError(l *listener, rerr *RecognitionError) {
	s.mu.Lock()
	s.lastErr = rerr
	s.mu.Unlock()

	log.RecognitionError(l.id, rerr.Code.String(), rerr.Message)
	if s.opts.OnError != nil {
		s.opts.OnError(*rerr)
	}
}
