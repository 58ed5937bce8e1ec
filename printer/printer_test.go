package printer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNew(t *testing.T) {
	for _, kind := range []string{"", "clipboard", "lp", "stdout"} {
		if _, err := New(kind); err != nil {
			t.Errorf("New(%q): %v", kind, err)
		}
	}
	if _, err := New("fax"); err == nil {
		t.Error("unknown target accepted")
	}
}

func TestWriterPrintsUnmodified(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriter("buf", &buf)
	if err := p.Print("नमस्ते world "); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "नमस्ते world " {
		t.Errorf("got %q", got)
	}
}

func TestClipboardPrint(t *testing.T) {
	var got string
	c := &Clipboard{copy: func(s string) error { got = s; return nil }}
	if err := c.Print("hello "); err != nil {
		t.Fatal(err)
	}
	if got != "hello " {
		t.Errorf("copied %q", got)
	}

	boom := errors.New("no display")
	c.copy = func(string) error { return boom }
	if err := c.Print("x"); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestCommandPipesStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	out := filepath.Join(t.TempDir(), "printed.txt")
	p := NewCommand("sh", "-c", `cat > "$0"`, out)
	if err := p.Print("line one\nline two"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line one\nline two" {
		t.Errorf("printed %q", data)
	}
}

func TestCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	p := NewCommand("sh", "-c", "echo out of paper >&2; exit 1")
	err := p.Print("x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("out of paper")) {
		t.Errorf("stderr not in error: %v", err)
	}
}
