package main

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxpad/config"
	"voxpad/log"
	"voxpad/session"
	"voxpad/speech"
)

type transcriptMsg struct{ text string }
type stateMsg struct{ state session.State }
type noticeMsg struct{ text string }
type recognitionErrMsg struct{ err speech.RecognitionError }
type toggleDoneMsg struct{ err error }
type printedMsg struct {
	target string
	err    error
}
type tickMsg time.Time

const (
	canvasCols = 60
	canvasRows = 8
	tickEvery  = 50 * time.Millisecond
)

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func setProgram(p *tea.Program) {
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()
}

func send(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func sendNotice(text string) { send(noticeMsg{text}) }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	listenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = helpStyle.Bold(true)
	canvasStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff00")).Background(lipgloss.Color("#000000"))
	canvasBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("236"))
)

type tuiModel struct {
	ctx    context.Context
	app    *app
	cfg    *config.Config
	device string

	editor   textarea.Model
	state    session.State
	toggling bool
	notice   string
	ok       string

	width, height int
}

func newTUIModel(ctx context.Context, a *app, cfg *config.Config, device string) tuiModel {
	ta := textarea.New()
	ta.Placeholder = "Press Ctrl+T and start speaking…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(canvasCols)
	ta.SetHeight(6)
	ta.SetValue(a.coord.Transcript())
	ta.Focus()

	return tuiModel{
		ctx:    ctx,
		app:    a,
		cfg:    cfg,
		device: device,
		editor: ta,
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tuiTick())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(max(20, min(msg.Width-2, 100)))
		m.editor.SetHeight(max(3, msg.Height-canvasRows-9))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+t":
			if m.toggling {
				return m, nil
			}
			m.toggling = true
			m.notice, m.ok = "", ""
			return m, m.toggle()
		case "ctrl+l":
			tag := m.app.coord.CycleLanguage()
			m.ok = "Language: " + tag.Label()
			if m.state == session.Listening {
				m.ok += " (applies at next start)"
			}
			return m, nil
		case "ctrl+p":
			return m, m.print()
		}
		return m.edit(msg)

	case tickMsg:
		return m, tuiTick()

	case transcriptMsg:
		if msg.text != m.editor.Value() {
			m.editor.SetValue(msg.text)
			m.editor.CursorEnd()
		}
		return m, nil

	case stateMsg:
		m.state = msg.state
		if m.state == session.Idle {
			// interim text was dropped at stop
			m.editor.SetValue(m.app.coord.Transcript())
			m.editor.CursorEnd()
		}
		return m, nil

	case toggleDoneMsg:
		m.toggling = false
		if msg.err != nil {
			log.Errorf("toggle: %v", msg.err)
			if m.notice == "" {
				m.notice = msg.err.Error()
			}
		}
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		return m, nil

	case recognitionErrMsg:
		m.notice = "Recognition error: " + msg.err.Error()
		return m, nil

	case printedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.ok = "Transcript sent to " + msg.target
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m tuiModel) toggle() tea.Cmd {
	ctx, coord := m.ctx, m.app.coord
	return func() tea.Msg {
		return toggleDoneMsg{coord.Toggle(ctx)}
	}
}

func (m tuiModel) print() tea.Cmd {
	coord, pr := m.app.coord, m.app.printer
	return func() tea.Msg {
		return printedMsg{target: pr.Name(), err: coord.Print(pr)}
	}
}

// edit forwards a key to the editor and pushes any change into the
// transcript store. A rejected edit snaps the editor back.
func (m tuiModel) edit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	after := m.editor.Value()
	if after == before {
		return m, cmd
	}
	if err := m.app.coord.Edit(after); err != nil {
		m.editor.SetValue(m.app.coord.Transcript())
		m.editor.CursorEnd()
		m.notice = "Editing is disabled while listening."
	}
	return m, cmd
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	status := idleStyle.Render("○ IDLE")
	if m.state == session.Listening {
		status = listenStyle.Render("● LISTENING")
	} else if m.toggling {
		status = idleStyle.Render("◌ starting")
	}
	lang := m.app.coord.Language()
	fmt.Fprintf(&b, "%s  %s  %s\n", titleStyle.Render("voxpad"), status,
		infoStyle.Render(fmt.Sprintf("%s · %s · mic: %s · edits: %s",
			lang.Label(), m.app.speech.EngineName(), m.device, m.app.store.Policy())))

	canvas := renderCanvas(m.app.raster.Snapshot(), canvasCols, canvasRows)
	b.WriteString(canvasBorder.Render(canvas))
	b.WriteString("\n")

	b.WriteString(m.editor.View())
	b.WriteString("\n")

	switch {
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	case m.ok != "":
		b.WriteString(okStyle.Render(m.ok))
	}
	b.WriteString("\n")

	help := []string{
		helpKeyStyle.Render("ctrl+t") + helpStyle.Render(" start/stop"),
		helpKeyStyle.Render("ctrl+l") + helpStyle.Render(" language"),
		helpKeyStyle.Render("ctrl+p") + helpStyle.Render(" print"),
		helpKeyStyle.Render("ctrl+c") + helpStyle.Render(" quit"),
	}
	if m.cfg.Hotkey != nil {
		help = append(help, helpKeyStyle.Render(m.cfg.Hotkey.String())+helpStyle.Render(" anywhere"))
	}
	b.WriteString(strings.Join(help, helpStyle.Render(" · ")))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("voxpad " + version))
	return b.String()
}

// renderCanvas samples img into a cols x rows grid of half-block cells, two
// vertical pixels per cell.
func renderCanvas(img *image.RGBA, cols, rows int) string {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	lit := func(px, py int) bool {
		x := bounds.Min.X + int((float64(px)+0.5)*float64(w)/float64(cols))
		y := bounds.Min.Y + int((float64(py)+0.5)*float64(h)/float64(rows*2))
		return img.RGBAAt(x, y).G >= 0x80
	}

	lines := make([]string, rows)
	var row strings.Builder
	for cy := range rows {
		row.Reset()
		for cx := range cols {
			top, bot := lit(cx, cy*2), lit(cx, cy*2+1)
			switch {
			case top && bot:
				row.WriteString("█")
			case top:
				row.WriteString("▀")
			case bot:
				row.WriteString("▄")
			default:
				row.WriteString(" ")
			}
		}
		lines[cy] = canvasStyle.Render(row.String())
	}
	return strings.Join(lines, "\n")
}
