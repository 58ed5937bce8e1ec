// Package doctor runs interactive checks of the pieces a dictation session
// depends on: the global hotkey, the microphone, the recognition engine and
// the clipboard.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"voxpad/audio"
	"voxpad/hotkey"
	"voxpad/speech"
	"voxpad/visualizer"
)

// Options wires the checks to real components. A nil Hotkey or Copy skips
// that check.
type Options struct {
	Out        io.Writer
	Hotkey     hotkey.Hotkey
	Combo      string
	Mic        *audio.Microphone
	Recognizer speech.Recognizer
	Lang       speech.Tag
	Copy       func(string) error
	Read       func() (string, error)

	// Listen is how long the microphone is sampled.
	Listen time.Duration
	// Timeout bounds each step that waits on the user or the network.
	Timeout time.Duration
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

var errSkipped = errors.New("skipped")

// Run executes every check in order and returns an exit code (0=all pass,
// 1=any fail).
func Run(ctx context.Context, opts Options) int {
	if opts.Listen <= 0 {
		opts.Listen = 3 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	d := &doctor{opts: opts}

	checks := []check{
		{"Hotkey detection", d.checkHotkey},
		{"Microphone level", d.checkMicrophone},
		{"Speech engine", d.checkEngine},
		{"Clipboard", d.checkClipboard},
	}

	d.printf("voxpad doctor - interactive system diagnostics")
	d.printf("===============================================")

	allPass := true
	for i, c := range checks {
		if ctx.Err() != nil {
			d.printf("\nInterrupted")
			return 1
		}
		d.printf("\n[%d/%d] %s", i+1, len(checks), c.name)
		msg, err := c.run(ctx)
		switch {
		case errors.Is(err, errSkipped):
			d.printf("  SKIP: %s", msg)
		case err != nil:
			d.printf("  FAIL: %v", err)
			allPass = false
		default:
			d.printf("  PASS: %s", msg)
		}
	}

	d.printf("")
	if allPass {
		d.printf("All checks passed!")
		return 0
	}
	d.printf("Some checks failed. See details above.")
	return 1
}

type doctor struct {
	opts Options
}

func (d *doctor) printf(format string, args ...any) {
	fmt.Fprintf(d.opts.Out, format+"\n", args...)
}

func (d *doctor) checkHotkey(ctx context.Context) (string, error) {
	hk := d.opts.Hotkey
	if hk == nil {
		return "global hotkey disabled", errSkipped
	}
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("could not register hotkey: %w", err)
	}
	defer hk.Unregister()

	d.printf("Press %s...", d.opts.Combo)
	select {
	case <-hk.Keydown():
	case <-time.After(d.opts.Timeout):
		return "", errors.New("timeout waiting for hotkey")
	case <-ctx.Done():
		return "", ctx.Err()
	}
	// wait for keyup so the release does not leak into the next step
	select {
	case <-hk.Keyup():
	case <-time.After(d.opts.Timeout / 2):
	case <-ctx.Done():
	}
	// the hotkey backend may leave the terminal in raw mode
	resetTerminal()
	return "hotkey detected", nil
}

// checkMicrophone samples the analyser the visualizer draws from and
// requires some signal in the spectrum.
func (d *doctor) checkMicrophone(ctx context.Context) (string, error) {
	if d.opts.Mic == nil {
		return "no microphone configured", errSkipped
	}
	stream, err := d.opts.Mic.GetUserMedia(ctx)
	if err != nil {
		return "", err
	}
	graph := visualizer.NewGraph(stream)
	defer graph.Close()

	d.printf("Speak for %s...", d.opts.Listen)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(d.opts.Listen)

	bins := make([]byte, visualizer.Bins)
	var peak byte
sample:
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			break sample
		case <-ticker.C:
			graph.Analyser().ByteFrequencyData(bins)
			peak = max(peak, maxByte(bins))
		}
	}
	if graph.Closed() {
		return "", fmt.Errorf("%s stopped delivering audio", graph.DeviceName())
	}
	if peak == 0 {
		return "", fmt.Errorf("no signal from %s (is it muted?)", graph.DeviceName())
	}
	return fmt.Sprintf("peak level %d/255 from %s", peak, graph.DeviceName()), nil
}

func maxByte(b []byte) byte {
	var m byte
	for _, v := range b {
		m = max(m, v)
	}
	return m
}

// checkEngine opens one recognition stream and closes it again.
func (d *doctor) checkEngine(ctx context.Context) (string, error) {
	rec := d.opts.Recognizer
	if rec == nil || !rec.Available() {
		name := "speech"
		if rec != nil {
			name = rec.Name()
		}
		return "", fmt.Errorf("%s engine not configured", name)
	}
	eng, err := rec.NewEngine(speech.Config{Continuous: true, InterimResults: true, Lang: d.opts.Lang})
	if err != nil {
		return "", err
	}

	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	if err := eng.Start(sctx); err != nil {
		return "", fmt.Errorf("start %s engine: %w", rec.Name(), err)
	}
	connect := time.Since(start)
	eng.Stop()

	// drain until the engine acknowledges the stop
	for {
		select {
		case ev, ok := <-eng.Events():
			if !ok {
				return fmt.Sprintf("%s engine ready for %s in %dms", rec.Name(), d.opts.Lang, connect.Milliseconds()), nil
			}
			if ev.IsError() {
				return "", fmt.Errorf("%s engine: %s", rec.Name(), ev.Error)
			}
		case <-time.After(d.opts.Timeout):
			return "", fmt.Errorf("%s engine did not close its stream", rec.Name())
		}
	}
}

// checkClipboard writes a sentinel and reads it back, bounded because the
// clipboard tool can hang when no display server is reachable.
func (d *doctor) checkClipboard(ctx context.Context) (string, error) {
	if d.opts.Copy == nil || d.opts.Read == nil {
		return "clipboard printing not selected", errSkipped
	}
	sentinel := fmt.Sprintf("voxpad-doctor-%d", time.Now().UnixNano())

	type result struct {
		readback string
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		if err := d.opts.Copy(sentinel); err != nil {
			ch <- result{err: fmt.Errorf("clipboard write failed: %w", err)}
			return
		}
		got, err := d.opts.Read()
		if err != nil {
			err = fmt.Errorf("clipboard read failed: %w", err)
		}
		ch <- result{got, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		if res.readback != sentinel {
			return "", fmt.Errorf("clipboard mismatch: wrote %q, got %q", sentinel, res.readback)
		}
		return "clipboard write/read verified", nil
	case <-time.After(d.opts.Timeout):
		return "", errors.New("clipboard timed out (clipboard tool hung - display server not accessible?)")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
