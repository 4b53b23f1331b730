package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gogpu/gg"

	"github.com/wippyai/canvas-host/event"
	"github.com/wippyai/canvas-host/source"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// chromeRows is the number of terminal rows not used by the canvas.
const chromeRows = 2

type keyMap struct {
	Quit  key.Binding
	Pulse key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pulse, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Pulse: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "ripple at center"),
	),
}

// frameMsg carries one presented canvas, already rendered.
type frameMsg string

// guestDoneMsg reports that the guest returned.
type guestDoneMsg struct {
	err error
}

type canvasModel struct {
	bus      *event.Bus
	win      *windowSize
	help     help.Model
	title    string
	frame    string
	err      error
	frames   uint64
	cols     int
	rows     int
	finished bool
}

func newCanvasModel(bus *event.Bus, win *windowSize, title string) *canvasModel {
	return &canvasModel{
		bus:   bus,
		win:   win,
		help:  help.New(),
		title: title,
	}
}

func (m *canvasModel) Init() tea.Cmd {
	return nil
}

func (m *canvasModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Pulse):
			w, h := canvasSize(m.cols, m.rows)
			source.PublishPointerUp(m.bus, int32(w/2), int32(h/2))
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Y >= 1 {
			// One cell holds two pixel rows; row 0 is the title bar.
			source.PublishPointerUp(m.bus, int32(msg.X), int32((msg.Y-1)*2))
		}

	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		m.help.Width = msg.Width
		w, h := canvasSize(m.cols, m.rows)
		m.win.set(w, h)
		source.PublishResize(m.bus, w, h)

	case frameMsg:
		m.frame = string(msg)
		m.frames++

	case guestDoneMsg:
		m.finished = true
		m.err = msg.err
	}
	return m, nil
}

func (m *canvasModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("canvas"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString(" ")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%d frames", m.frames)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("guest failed: %v", m.err)))
		b.WriteString("\n")
	case m.finished:
		b.WriteString(statusStyle.Render("guest finished"))
		b.WriteString("\n")
	case m.frame == "":
		b.WriteString("waiting for the first frame...\n")
	default:
		b.WriteString(m.frame)
	}

	b.WriteString(m.help.View(keys))
	return b.String()
}

// canvasSize converts a terminal size in cells to a canvas size in pixels.
func canvasSize(cols, rows int) (uint32, uint32) {
	rows -= chromeRows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return uint32(cols), uint32(rows * 2)
}

// renderPixmap draws pm with upper half blocks: the foreground is the even
// pixel row, the background the odd one.
func renderPixmap(pm *gg.Pixmap) string {
	var b strings.Builder
	w, h := pm.Width(), pm.Height()
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			top := hexColor(pm.GetPixel(x, y))
			bottom := top
			if y+1 < h {
				bottom = hexColor(pm.GetPixel(x, y+1))
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func hexColor(c gg.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
