package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const diagFileName = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: VOXPAD_LOG_PATH environment variable
	if envPath := os.Getenv("VOXPAD_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	f, err := os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	diagFile = f

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(id, engine, lang string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("engine", engine).
		Str("lang", lang).
		Msg("session_start")
}

// SessionStop records the end of a listening period. Only the transcript
// length is logged, never its text.
func SessionStop(id string, dur time.Duration, chars int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Float64("duration_s", dur.Seconds()).
		Int("transcript_chars", chars).
		Msg("session_stop")
}

func RecognitionError(id, code, message string) {
	if !logReady {
		return
	}
	ev := diagLog.Warn().
		Str("session", id).
		Str("code", code)
	if message != "" {
		ev = ev.Str("detail", message)
	}
	ev.Msg("recognition_error")
}

func EngineHalted(id string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("session", id).Msg("engine_halted")
}

func MicrophoneDenied(err error) {
	if !logReady {
		return
	}
	diagLog.Error().Err(err).Msg("microphone_denied")
}

func Printed(target string, chars int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("target", target).
		Int("chars", chars).
		Msg("print")
}

func AppStart(version string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("version", version).Msg("app_start")
}

func AppEnd(sessions int) {
	if !logReady {
		return
	}
	diagLog.Info().Int("sessions", sessions).Msg("app_end")
}
