package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// PinSetter drives one output on a relay server.
type PinSetter interface {
	SetPin(ctx context.Context, pin string, high bool) error
}

// SetTimeout bounds each write issued from the panel
const SetTimeout = 10 * time.Second

// pinResultMsg reports the outcome of a write started by the panel.
type pinResultMsg struct {
	index int
	high  bool
	err   error
}

// panelKeyMap defines key bindings for the pin panel
type panelKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	High   key.Binding
	Low    key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k panelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.High, k.Low, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k panelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.High, k.Low, k.Quit},
	}
}

func newPanelKeyMap() panelKeyMap {
	return panelKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter/space", "toggle"),
		),
		High: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "high"),
		),
		Low: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "low"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PinRow is the panel's view of one output line.
type PinRow struct {
	ID   string
	High bool
	// Confirmed is false until the server acknowledged a write
	Confirmed bool
	Pending   bool
	Err       error
}

// PanelModel is an interactive switchboard for the outputs of one server.
type PanelModel struct {
	Target string
	Rows   []PinRow

	cursor   int
	setter   PinSetter
	status   string
	width    int
	quitting bool

	spinner spinner.Model
	help    help.Model
	keys    panelKeyMap
}

// NewPanel creates a panel for pins on target. initialHigh is the level
// the server drives lines to when it opens them.
func NewPanel(target string, pins []string, initialHigh bool, setter PinSetter) PanelModel {
	rows := make([]PinRow, 0, len(pins))
	for _, id := range pins {
		rows = append(rows, PinRow{ID: id, High: initialHigh})
	}
	return PanelModel{
		Target:  target,
		Rows:    rows,
		setter:  setter,
		width:   MinTerminalWidth,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(PendingStyle)),
		help:    help.New(),
		keys:    newPanelKeyMap(),
	}
}

// Cursor returns the selected row index
func (m PanelModel) Cursor() int {
	return m.cursor
}

// Status returns the last status line
func (m PanelModel) Status() string {
	return m.status
}

// Init implements tea.Model
func (m PanelModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		m.help.Width = m.width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pinResultMsg:
		if msg.index < 0 || msg.index >= len(m.Rows) {
			return m, nil
		}
		row := &m.Rows[msg.index]
		row.Pending = false
		row.Err = msg.err
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", row.ID, msg.err)
			return m, nil
		}
		row.High = msg.high
		row.Confirmed = true
		m.status = fmt.Sprintf("%s set %s", row.ID, levelName(msg.high))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m PanelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.Rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if len(m.Rows) > 0 {
			return m.write(!m.Rows[m.cursor].High)
		}
	case key.Matches(msg, m.keys.High):
		if len(m.Rows) > 0 {
			return m.write(true)
		}
	case key.Matches(msg, m.keys.Low):
		if len(m.Rows) > 0 {
			return m.write(false)
		}
	}
	return m, nil
}

// write starts a request for the selected row unless one is in flight.
func (m PanelModel) write(high bool) (tea.Model, tea.Cmd) {
	row := &m.Rows[m.cursor]
	if row.Pending {
		return m, nil
	}
	row.Pending = true
	row.Err = nil
	m.status = fmt.Sprintf("setting %s %s", row.ID, levelName(high))
	return m, setPinCmd(m.setter, m.cursor, row.ID, high)
}

func setPinCmd(setter PinSetter, index int, pin string, high bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), SetTimeout)
		defer cancel()
		return pinResultMsg{index: index, high: high, err: setter.SetPin(ctx, pin, high)}
	}
}

// View implements tea.Model
func (m PanelModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(RenderHeader("Relay panel", m.Target, nil, m.width))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(HintStyle.Render("  No output pins configured."))
		b.WriteString("\n")
	}
	for i, row := range m.Rows {
		b.WriteString(m.renderRow(i, row))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n  ")
		b.WriteString(HintStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n  ")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m PanelModel) renderRow(i int, row PinRow) string {
	cursor := "  "
	name := fmt.Sprintf("%-10s", row.ID)
	if i == m.cursor {
		cursor = SelectedRowStyle.Render(CursorMarker + " ")
		name = SelectedRowStyle.Render(name)
	}

	var level string
	switch {
	case row.Pending:
		level = m.spinner.View() + PendingStyle.Render(" writing")
	case row.High:
		level = HighStyle.Render("● HIGH")
	default:
		level = LowStyle.Render("○ LOW")
	}
	if !row.Pending && !row.Confirmed {
		level += HintStyle.Render(" (assumed)")
	}
	if row.Err != nil {
		level += " " + ErrorMessageStyle.Render(FailureMarker+" "+row.Err.Error())
	}
	return "  " + cursor + name + " " + level
}

func levelName(high bool) string {
	if high {
		return "high"
	}
	return "low"
}

// RunPanel runs the panel until the user quits.
func RunPanel(m PanelModel) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
