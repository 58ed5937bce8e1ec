package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voxpad/audio"
	"voxpad/config"
	"voxpad/hotkey"
	"voxpad/notify"
	"voxpad/printer"
	"voxpad/session"
	"voxpad/speech"
	"voxpad/transcript"
)

func noEnv(string) (string, bool) { return "", false }

func testConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(append([]string{"-engine", "fake", "-test"}, args...), noEnv, "", io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func runScript(t *testing.T, cfg *config.Config, lines ...string) []string {
	t.Helper()
	var out bytes.Buffer
	if code := runTestMode(cfg, script(lines...), &out); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestTestModeDictation(t *testing.T) {
	got := runScript(t, testConfig(t),
		"TOGGLE",
		"INTERIM hel",
		"FINAL hello",
		"TOGGLE",
		"TOGGLE",
		"FINAL world",
		"EDIT override",
		"PRINT",
		"TOGGLE",
		"STATUS",
		"QUIT",
	)
	want := []string{
		"STATE listening",
		`TEXT "hel"`,
		`TEXT "hello "`,
		"STATE idle",
		"STATE listening",
		`TEXT "hello world "`,
		`TEXT "override"`,
		`PRINTED "override"`,
		"STATE idle",
		"STATUS idle lang=en-IN live=0 visualizer=false",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestTestModeMicrophoneDenied(t *testing.T) {
	got := strings.Join(runScript(t, testConfig(t), "DENY", "TOGGLE", "STATUS", "ALLOW", "TOGGLE", "STATUS", "QUIT"), "\n")

	if strings.Count(got, "NOTICE Microphone access denied.") != 1 {
		t.Errorf("want exactly one denial notice:\n%s", got)
	}
	if !strings.Contains(got, "ERROR ") || !strings.Contains(got, "microphone access denied") {
		t.Errorf("missing start error:\n%s", got)
	}
	if !strings.Contains(got, "STATUS idle lang=en-IN live=0 visualizer=false") {
		t.Errorf("denied start left resources behind:\n%s", got)
	}
	if !strings.Contains(got, "STATUS listening lang=en-IN live=1 visualizer=true") {
		t.Errorf("retry after allow did not start:\n%s", got)
	}
}

func TestTestModeHotkeyAndHalt(t *testing.T) {
	got := runScript(t, testConfig(t),
		"HOTKEY",
		"FAIL network",
		"STATUS",
		"HALT",
		"STATUS",
		"HOTKEY",
		"HOTKEY",
		"QUIT",
	)
	want := []string{
		"STATE listening",
		"RECOGNITION_ERROR network",
		"STATUS listening lang=en-IN live=1 visualizer=true",
		"STATE idle",
		"STATUS idle lang=en-IN live=0 visualizer=false",
		"STATE listening",
		"STATE idle",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestTestModeLanguageAndErrors(t *testing.T) {
	got := runScript(t, testConfig(t, "-edit", "freeze"),
		"LANG hi-IN",
		"LANG xx",
		"FINAL nobody",
		"TOGGLE",
		"EDIT nope",
		"BOGUS",
		"QUIT",
	)
	joined := strings.Join(got, "\n")
	for _, want := range []string{
		"LANG hi-IN",
		`ERROR unsupported language: "xx"`,
		"ERROR not listening",
		"STATE listening",
		"ERROR " + transcript.ErrEditFrozen.Error(),
		`ERROR unknown command "BOGUS"`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestRenderCanvas(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	blank := renderCanvas(img, 10, 2)
	if strings.ContainsAny(blank, "█▀▄") {
		t.Errorf("black canvas rendered blocks: %q", blank)
	}

	lime := color.RGBA{G: 0xff, A: 0xff}
	// bottom half lit across the left half of the canvas
	for y := 50; y < 100; y++ {
		for x := 0; x < 150; x++ {
			img.SetRGBA(x, y, lime)
		}
	}
	out := renderCanvas(img, 10, 2)
	if n := strings.Count(out, "█"); n != 5 {
		t.Errorf("full blocks = %d, want 5:\n%s", n, out)
	}
	if strings.Contains(out, "▀") {
		t.Errorf("top half lit:\n%s", out)
	}

	// a bar ending mid-cell renders as a lower half block
	img = image.NewRGBA(image.Rect(0, 0, 300, 100))
	for y := 75; y < 100; y++ {
		for x := 0; x < 300; x++ {
			img.SetRGBA(x, y, lime)
		}
	}
	if n := strings.Count(renderCanvas(img, 4, 2), "▄"); n != 4 {
		t.Errorf("lower half blocks = %d, want 4", n)
	}
}

func newTestTUI(t *testing.T, policy string) (tuiModel, *app, *speech.FakeRecognizer) {
	t.Helper()
	cfg := testConfig(t, "-edit", policy)
	rec := speech.NewFakeRecognizer(true)
	mic := audio.NewMicrophone(audio.NewFakeContext(nil, 0), nil)
	a := newApp(cfg, mic, rec, printer.NewWriter("buffer", io.Discard), hooks{})
	t.Cleanup(a.close)
	return newTUIModel(context.Background(), a, cfg, "fake"), a, rec
}

func update(m tuiModel, msg tea.Msg) tuiModel {
	next, _ := m.Update(msg)
	return next.(tuiModel)
}

func TestTUILanguageKey(t *testing.T) {
	m, a, _ := newTestTUI(t, "overwrite")
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlL})

	if a.coord.Language() != speech.Hindi {
		t.Errorf("language = %v", a.coord.Language())
	}
	view := m.View()
	for _, want := range []string{"Hindi", "fake", "edits: overwrite"} {
		if !strings.Contains(view, want) {
			t.Errorf("view does not show %q", want)
		}
	}
}

func TestTUITranscriptAndEdits(t *testing.T) {
	m, a, _ := newTestTUI(t, "freeze")
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 40})

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	if got := a.coord.Transcript(); got != "hi" {
		t.Errorf("idle typing not stored: %q", got)
	}

	if err := a.coord.Toggle(context.Background()); err != nil {
		t.Fatal(err)
	}
	m = update(m, stateMsg{session.Listening})
	m = update(m, transcriptMsg{"hi there"})
	if m.editor.Value() != "hi there" {
		t.Errorf("editor = %q", m.editor.Value())
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.editor.Value() != a.coord.Transcript() {
		t.Errorf("frozen edit not reverted: editor %q store %q", m.editor.Value(), a.coord.Transcript())
	}
	if m.notice == "" {
		t.Error("no notice for rejected edit")
	}
}

func TestTUIToggleCommand(t *testing.T) {
	m, a, rec := newTestTUI(t, "overwrite")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = next.(tuiModel)
	if cmd == nil || !m.toggling {
		t.Fatal("ctrl+t did not schedule a toggle")
	}
	// a second press while the first is in flight is ignored
	if _, again := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT}); again != nil {
		t.Error("double toggle scheduled")
	}

	m = update(m, cmd())
	if m.toggling || a.coord.State() != session.Listening || !rec.Last().Listening() {
		t.Error("toggle did not start the session")
	}
}

func TestTestModeRecordingMissing(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t, "-test-audio", "does-not-exist.flac")
	if code := runTestMode(cfg, script("QUIT"), &out); code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.HasPrefix(out.String(), "ERROR ") {
		t.Errorf("output %q", out.String())
	}
}

func TestHotkeyHoldAfterDeniedStartDoesNotRetry(t *testing.T) {
	mic := audio.NewFakeContext(nil, 0)
	mic.SetDeny(errors.New("permission denied"))
	notes := &notify.Recorder{}
	a := newApp(testConfig(t), audio.NewMicrophone(mic, nil), speech.NewFakeRecognizer(true),
		printer.NewWriter("buffer", io.Discard), hooks{notifier: notes})
	t.Cleanup(a.close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 4)
	hk := hotkey.NewFake()
	a.watchHotkey(ctx, hk, 30*time.Millisecond, func(err error) { errs <- err })

	hk.SimKeydown()
	select {
	case <-errs:
	case <-time.After(time.Second):
		t.Fatal("press did not attempt a start")
	}
	time.Sleep(60 * time.Millisecond)
	hk.SimKeyup()

	select {
	case err := <-errs:
		t.Fatalf("release started again: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	if got := notes.Messages(); len(got) != 1 {
		t.Errorf("notices = %q, want one", got)
	}
	if a.coord.State() != session.Idle {
		t.Error("denied start left the session listening")
	}
}
