package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"

	"voxpad/hotkey"
	"voxpad/speech"
	"voxpad/transcript"
)

const (
	EnvDeepgramKey = "DEEPGRAM_API_KEY"
	EnvLogPath     = "VOXPAD_LOG_PATH"
	EnvLang        = "VOXPAD_LANG"

	DefaultDotEnv = ".env"
	DefaultHold   = 400 * time.Millisecond
	maxFPS        = 240
)

var (
	Engines      = []string{"deepgram", "fake"}
	PrintTargets = []string{"clipboard", "lp", "stdout"}
)

type Config struct {
	Lang        speech.Tag
	Engine      string
	DeepgramKey string
	Device      string
	Setup       bool
	Print       string
	Edit        transcript.EditPolicy
	FPS         int
	LogPath     string
	Hotkey      *hotkey.Combo // nil when disabled
	Hold        time.Duration
	Beep        bool
	Test        bool
	TestAudio   string
	Doctor      bool
	Version     bool
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load parses the process arguments and environment, with .env in the
// working directory as a fallback for unset variables.
func Load(args []string) (*Config, error) {
	return Parse(args, os.LookupEnv, DefaultDotEnv, os.Stderr)
}

// Parse is Load with its inputs spelled out. Real environment variables win
// over the dotenv file; flags win over both. A missing dotenv file is not an
// error.
func Parse(args []string, lookup LookupFunc, dotenv string, usage io.Writer) (*Config, error) {
	env, err := layered(lookup, dotenv)
	if err != nil {
		return nil, err
	}

	defaultLang := string(speech.DefaultTag)
	if v, ok := env(EnvLang); ok && v != "" {
		defaultLang = v
	}
	logPath, _ := env(EnvLogPath)
	key, _ := env(EnvDeepgramKey)

	fs := flag.NewFlagSet("voxpad", flag.ContinueOnError)
	fs.SetOutput(usage)
	lang := fs.String("lang", defaultLang, "Recognition language: en-IN, hi-IN or mr-IN")
	engine := fs.String("engine", "deepgram", "Recognition engine: deepgram or fake")
	device := fs.String("device", "", "Use named microphone device")
	setup := fs.Bool("setup", false, "Select microphone device interactively")
	printTo := fs.String("print", "clipboard", "Print target: clipboard, lp or stdout")
	edit := fs.String("edit", "overwrite", "Manual edits while listening: overwrite or freeze")
	fps := fs.Int("fps", 60, "Visualizer frame rate")
	logDir := fs.String("logpath", logPath, "Log directory (default: OS-specific location, use ./ for current dir)")
	hk := fs.String("hotkey", hotkey.DefaultCombo, `Global toggle hotkey, e.g. ctrl+shift+space ("off" disables)`)
	hold := fs.Duration("hold", DefaultHold, "Hold the hotkey this long to push-to-talk (0 disables)")
	beep := fs.Bool("beep", true, "Play start/stop/error cues")
	test := fs.Bool("test", false, "Test mode (headless, stdin-driven)")
	testAudio := fs.String("test-audio", "", "Recording (.wav or .flac) played as the microphone in test mode")
	doctor := fs.Bool("doctor", false, "Run interactive system diagnostics and exit")
	version := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := &Config{
		Engine:      *engine,
		DeepgramKey: key,
		Device:      *device,
		Setup:       *setup,
		Print:       *printTo,
		FPS:         *fps,
		LogPath:     *logDir,
		Hold:        *hold,
		Beep:        *beep,
		Test:        *test,
		TestAudio:   *testAudio,
		Doctor:      *doctor,
		Version:     *version,
	}

	var errs []error
	if c.Lang, err = speech.ParseTag(*lang); err != nil {
		errs = append(errs, fmt.Errorf("-lang: %w", err))
	}
	if c.Edit, err = transcript.ParseEditPolicy(*edit); err != nil {
		errs = append(errs, fmt.Errorf("-edit: %w", err))
	}
	if !slices.Contains(Engines, c.Engine) {
		errs = append(errs, fmt.Errorf("-engine: unknown engine %q", c.Engine))
	}
	if !slices.Contains(PrintTargets, c.Print) {
		errs = append(errs, fmt.Errorf("-print: unknown target %q", c.Print))
	}
	if c.FPS < 1 || c.FPS > maxFPS {
		errs = append(errs, fmt.Errorf("-fps: %d out of range 1..%d", c.FPS, maxFPS))
	}
	if c.Hold < 0 {
		errs = append(errs, fmt.Errorf("-hold: negative duration %v", c.Hold))
	}
	if *hk != "" && *hk != "off" {
		combo, err := hotkey.ParseCombo(*hk)
		if err != nil {
			errs = append(errs, fmt.Errorf("-hotkey: %w", err))
		} else {
			c.Hotkey = &combo
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func layered(lookup LookupFunc, dotenv string) (LookupFunc, error) {
	file := map[string]string{}
	if dotenv != "" {
		m, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			file = m
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", dotenv, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, nil
}
