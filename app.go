package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"voxpad/audio"
	"voxpad/clipboard"
	"voxpad/config"
	"voxpad/doctor"
	"voxpad/hotkey"
	"voxpad/log"
	"voxpad/notify"
	"voxpad/printer"
	"voxpad/session"
	"voxpad/speech"
	"voxpad/transcript"
	"voxpad/visualizer"
)

// app is everything one widget needs, wired together. The TUI and the
// headless test mode both build one.
type app struct {
	store   *transcript.Store
	speech  *speech.Session
	viz     *visualizer.Visualizer
	raster  *visualizer.Raster
	coord   *session.Coordinator
	printer printer.Printer
}

type hooks struct {
	notifier notify.Notifier
	onText   func(text string)
	onState  func(session.State)
	onError  func(speech.RecognitionError)
	onFrame  func()
}

func newApp(cfg *config.Config, mic *audio.Microphone, rec speech.Recognizer, pr printer.Printer, h hooks) *app {
	a := &app{
		store:   transcript.NewStore(cfg.Edit),
		raster:  visualizer.NewRaster(visualizer.CanvasWidth, visualizer.CanvasHeight),
		printer: pr,
	}
	a.speech = speech.NewSession(rec, a.store, speech.Options{
		Notifier: h.notifier,
		OnUpdate: h.onText,
		OnError:  h.onError,
		OnHalt:   func() { a.coord.SpeechHalted() },
	})
	a.viz = visualizer.New(mic, visualizer.Options{
		Canvas:   a.raster,
		FPS:      cfg.FPS,
		Notifier: h.notifier,
		OnFrame:  h.onFrame,
	})
	a.coord = session.New(a.speech, a.viz, a.store, session.Options{
		Lang:          cfg.Lang,
		OnStateChange: h.onState,
	})
	return a
}

// close stops any active session and waits for the engine to drain, bounded
// so a stuck connection cannot hang exit.
func (a *app) close() {
	a.coord.Stop()
	done := make(chan struct{})
	go func() {
		a.speech.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		log.Warn("speech engine did not drain before exit")
	}
	log.AppEnd(a.coord.Sessions())
}

// watchHotkey toggles the session on global hotkey gestures until ctx ends.
func (a *app) watchHotkey(ctx context.Context, hk hotkey.Hotkey, hold time.Duration, onErr func(error)) {
	listening := func() bool { return a.coord.State() == session.Listening }
	g := hotkey.NewGestures(hk, hold, listening)
	go func() {
		defer g.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-g.Toggles():
				if err := a.coord.Toggle(ctx); err != nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()
}

func newRecognizer(cfg *config.Config, mic *audio.Microphone) speech.Recognizer {
	if cfg.Engine == "fake" {
		return speech.NewFakeRecognizer(true)
	}
	return speech.NewDeepgram(cfg.DeepgramKey, mic)
}

func resolveDevice(actx audio.Context, cfg *config.Config) *audio.DeviceInfo {
	switch {
	case cfg.Device != "":
		dev, err := audio.FindDevice(actx, cfg.Device)
		if err == nil && dev == nil {
			err = fmt.Errorf("no device named %q", cfg.Device)
		}
		if err != nil {
			log.Warnf("device lookup: %v, using default", err)
			fmt.Fprintf(os.Stderr, "Warning: %v, using default device\n", err)
		}
		return dev
	case cfg.Setup:
		dev, err := audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\nFalling back to default device\n", err)
			return nil
		}
		return dev
	}
	return nil
}

func runDoctor(ctx context.Context, cfg *config.Config, mic *audio.Microphone, rec speech.Recognizer) int {
	opts := doctor.Options{
		Out:        os.Stdout,
		Mic:        mic,
		Recognizer: rec,
		Lang:       cfg.Lang,
	}
	if cfg.Hotkey != nil {
		opts.Hotkey, opts.Combo = hotkey.New(*cfg.Hotkey), cfg.Hotkey.String()
	}
	if cfg.Print == "clipboard" {
		opts.Copy, opts.Read = clipboard.Copy, clipboard.Read
	}
	return doctor.Run(ctx, opts)
}

// initCrashLog routes fatal runtime errors to crash_log.txt in the log
// directory.
func initCrashLog() {
	f, err := os.OpenFile(filepath.Join(log.Dir(), "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}
