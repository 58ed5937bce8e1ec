package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"voxpad/audio"
	"voxpad/beep"
	"voxpad/config"
	"voxpad/hotkey"
	"voxpad/log"
	"voxpad/notify"
	"voxpad/printer"
	"voxpad/session"
	"voxpad/shutdown"
	"voxpad/speech"
)

var version = "dev"

func run() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if cfg.Version {
		fmt.Printf("voxpad %s\n", version)
		return
	}

	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.AppStart(version)

	if !cfg.Beep {
		beep.Disable()
	}

	if cfg.Test {
		code := runTestMode(cfg, os.Stdin, os.Stdout)
		log.Close()
		os.Exit(code)
	}

	pr, err := printer.New(cfg.Print)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	mic := audio.NewMicrophone(actx, resolveDevice(actx, cfg))
	rec := newRecognizer(cfg, mic)

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if cfg.Doctor {
		code := runDoctor(ctx, cfg, mic, rec)
		stop()
		actx.Close()
		log.Close()
		os.Exit(code)
	}

	notifier := notify.Multi(notify.Func(sendNotice), beep.Notifier{})
	a := newApp(cfg, mic, rec, pr, hooks{
		notifier: notifier,
		onText:   func(text string) { send(transcriptMsg{text}) },
		onState: func(s session.State) {
			if s == session.Listening {
				beep.PlayStart()
			} else {
				beep.PlayStop()
			}
			send(stateMsg{s})
		},
		onError: func(e speech.RecognitionError) { send(recognitionErrMsg{e}) },
	})
	defer a.close()

	if cfg.Hotkey != nil {
		hk := hotkey.New(*cfg.Hotkey)
		if err := hk.Register(); err != nil {
			log.Warnf("global hotkey unavailable: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: global hotkey unavailable: %v\n", err)
		} else {
			defer hk.Unregister()
			a.watchHotkey(ctx, hk, cfg.Hold, func(err error) { send(toggleDoneMsg{err}) })
		}
	}

	p := tea.NewProgram(newTUIModel(ctx, a, cfg, mic.DeviceName()), tea.WithAltScreen(), tea.WithContext(ctx))
	setProgram(p)
	defer setProgram(nil)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
