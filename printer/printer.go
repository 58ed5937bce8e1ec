// Package printer hands the finished transcript to something outside the
// widget: the clipboard, a print spooler, or a plain writer.
package printer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"voxpad/clipboard"
)

type Printer interface {
	Name() string
	Print(text string) error
}

// New returns the printer for a -print flag value.
func New(kind string) (Printer, error) {
	switch kind {
	case "", "clipboard":
		return NewClipboard(), nil
	case "lp":
		return NewCommand("lp"), nil
	case "stdout":
		return NewWriter("stdout", os.Stdout), nil
	}
	return nil, fmt.Errorf("unknown print target %q (want clipboard, lp or stdout)", kind)
}

type Clipboard struct {
	copy func(string) error
}

func NewClipboard() *Clipboard { return &Clipboard{copy: clipboard.Copy} }

func (c *Clipboard) Name() string { return "clipboard" }

func (c *Clipboard) Print(text string) error {
	if err := c.copy(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// Command pipes the text to an external program's stdin, lp by default.
type Command struct {
	Path string
	Args []string
}

func NewCommand(path string, args ...string) *Command {
	return &Command{Path: path, Args: args}
}

func (c *Command) Name() string { return c.Path }

func (c *Command) Print(text string) error {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Path, err, msg)
		}
		return fmt.Errorf("%s: %w", c.Path, err)
	}
	return nil
}

// Writer writes the transcript to w exactly as given, with no line
// terminator added.
type Writer struct {
	name string
	w    io.Writer
}

func NewWriter(name string, w io.Writer) *Writer { return &Writer{name: name, w: w} }

func (w *Writer) Name() string { return w.name }

func (w *Writer) Print(text string) error {
	_, err := io.WriteString(w.w, text)
	return err
}
