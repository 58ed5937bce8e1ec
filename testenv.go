package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"voxpad/audio"
	"voxpad/beep"
	"voxpad/config"
	"voxpad/hotkey"
	"voxpad/notify"
	"voxpad/printer"
	"voxpad/session"
	"voxpad/speech"
)

const (
	testWait     = 2 * time.Second
	fakeInterval = 32 * time.Millisecond
)

// testOutput serialises result lines written from several goroutines.
type testOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *testOutput) printf(format string, args ...any) {
	o.mu.Lock()
	fmt.Fprintf(o.w, format+"\n", args...)
	o.mu.Unlock()
}

// runTestMode drives a fully wired widget from a line script on in, using
// a scripted engine and a synthetic microphone. Every observable effect is
// written to out as one line.
func runTestMode(cfg *config.Config, in io.Reader, out io.Writer) int {
	beep.Disable()
	o := &testOutput{w: out}

	mic := audio.NewFakeContext(audio.Tone(440, time.Second, 0.3), fakeInterval)
	if cfg.TestAudio != "" {
		var err error
		if mic, err = audio.NewFakeContextFromFile(cfg.TestAudio, fakeInterval); err != nil {
			o.printf("ERROR %v", err)
			return 1
		}
	}
	rec := speech.NewFakeRecognizer(true)
	var printed bytes.Buffer

	updates := make(chan string, 64)
	states := make(chan session.State, 8)
	errs := make(chan speech.RecognitionError, 8)
	a := newApp(cfg, audio.NewMicrophone(mic, nil), rec, printer.NewWriter("buffer", &printed), hooks{
		notifier: notify.Func(func(msg string) { o.printf("NOTICE %s", msg) }),
		onText: func(text string) {
			o.printf("TEXT %q", text)
			signal(updates, text)
		},
		onState: func(s session.State) {
			o.printf("STATE %s", s)
			signal(states, s)
		},
		onError: func(e speech.RecognitionError) {
			o.printf("RECOGNITION_ERROR %s", e.Code)
			signal(errs, e)
		},
	})
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hk := hotkey.NewFake()
	a.watchHotkey(ctx, hk, cfg.Hold, func(err error) { o.printf("ERROR %v", err) })

	engine := func() (*speech.FakeEngine, bool) {
		e := rec.Last()
		if e == nil || !e.Listening() {
			o.printf("ERROR not listening")
			return nil, false
		}
		return e, true
	}
	awaitUpdate := func() { await(o, updates, "no update") }
	awaitState := func() { await(o, states, "no state change") }

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "TOGGLE":
			if err := a.coord.Toggle(ctx); err != nil {
				o.printf("ERROR %v", err)
			}
			drain(states)
		case "HOTKEY":
			hk.Tap()
			awaitState()
		case "INTERIM", "FINAL":
			e, ok := engine()
			if !ok {
				continue
			}
			if cmd == "FINAL" {
				e.SayFinal(arg)
			} else {
				e.SayInterim(arg)
			}
			awaitUpdate()
		case "FAIL":
			if e, ok := engine(); ok {
				e.Fail(arg)
				await(o, errs, "no recognition error")
			}
		case "HALT":
			if e, ok := engine(); ok {
				e.Halt()
				awaitState()
			}
		case "EDIT":
			if err := a.coord.Edit(arg); err != nil {
				o.printf("ERROR %v", err)
			} else {
				o.printf("TEXT %q", a.coord.Transcript())
			}
		case "LANG":
			if err := a.coord.SetLanguage(speech.Tag(arg)); err != nil {
				o.printf("ERROR %v", err)
			} else {
				o.printf("LANG %s", a.coord.Language())
			}
		case "PRINT":
			printed.Reset()
			if err := a.coord.Print(a.printer); err != nil {
				o.printf("ERROR %v", err)
			} else {
				o.printf("PRINTED %q", printed.String())
			}
		case "DENY":
			mic.SetDeny(errors.New("permission denied"))
		case "ALLOW":
			mic.SetDeny(nil)
		case "STATUS":
			o.printf("STATUS %s lang=%s live=%d visualizer=%t", a.coord.State(), a.coord.Language(), mic.Live(), a.viz.Running())
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			return 0
		default:
			o.printf("ERROR unknown command %q", cmd)
		}
	}
	return 0
}

// signal delivers v without blocking; scripts that never wait simply drop
// the notification.
func signal[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func await[T any](o *testOutput, ch chan T, what string) {
	select {
	case <-ch:
	case <-time.After(testWait):
		o.printf("ERROR %s", what)
	}
}

func drain[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
