// Package tui is a terminal control surface for the engine: a step grid for
// the selected pattern slot and the transport.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/engine"
)

type Model struct {
	Engine *engine.Engine

	track, step int
	status      engine.Status
	pattern     beatr.Pattern
	slot        int
	message     string
	faults      []string
	quitting    bool
}

type (
	tickMsg  time.Time
	faultMsg engine.Fault
)

const (
	refreshRate = time.Second / 30
	tempoStep   = 5
	maxFaults   = 3
)

// liveKeys play voices directly, in VoiceID order.
var liveKeys = []string{"z", "x", "c", "v", "b", "n", "m", ","}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	headStyle   = lipgloss.NewStyle().Background(lipgloss.Color("57"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func NewModel(e *engine.Engine) Model {
	m := Model{Engine: e}
	m.refresh()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ListenForFaults waits for the next fault reported by the engine.
func ListenForFaults(b *engine.Broker) tea.Cmd {
	return func() tea.Msg {
		return faultMsg(<-b.Faults)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), ListenForFaults(m.Engine.Broker()))
}

func (m *Model) refresh() {
	m.status = m.Engine.Status()
	m.slot = m.Engine.CurrentSlot()
	m.pattern, _ = m.Engine.PatternSlot(m.slot)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.message = ""
		if cmd := m.handleKey(msg.String()); cmd != nil {
			return m, cmd
		}
		m.refresh()
	case tickMsg:
		m.refresh()
		return m, tick()
	case faultMsg:
		f := engine.Fault(msg)
		if f.Kind != engine.FaultContention {
			m.faults = append(m.faults, f.String())
			if len(m.faults) > maxFaults {
				m.faults = m.faults[len(m.faults)-maxFaults:]
			}
		}
		return m, ListenForFaults(m.Engine.Broker())
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	e := m.Engine
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		e.Stop()
		return tea.Quit
	case "up", "k":
		m.track = (m.track + beatr.MaxTracks - 1) % beatr.MaxTracks
	case "down", "j":
		m.track = (m.track + 1) % beatr.MaxTracks
	case "left", "h":
		m.step = (m.step + beatr.PatternLength - 1) % beatr.PatternLength
	case "right", "l":
		m.step = (m.step + 1) % beatr.PatternLength
	case " ", "enter":
		m.setError(e.ToggleStep(m.track, m.step))
	case "tab":
		p, _ := e.PatternSlot(m.slot)
		v := beatr.VoiceID((int(p.Tracks[m.track].Voice) + 1) % beatr.NumVoices)
		m.setError(e.SetTrackVoice(m.slot, m.track, v))
	case "+", "=":
		m.setError(e.SetTempo(e.Tempo() + tempoStep))
	case "-", "_":
		m.setError(e.SetTempo(e.Tempo() - tempoStep))
	case "p":
		e.TogglePlay()
	case "s":
		e.Stop()
	case "[":
		e.SelectSlot((m.slot + beatr.NumPatternSlots - 1) % beatr.NumPatternSlots)
	case "]":
		e.SelectSlot((m.slot + 1) % beatr.NumPatternSlots)
	case "backspace":
		p, _ := e.PatternSlot(m.slot)
		p.ClearTrack(m.track)
		m.setError(e.SetPatternSlot(m.slot, p))
	default:
		for i, k := range liveKeys {
			if key == k && !e.Trigger(beatr.VoiceID(i), 1) {
				m.message = "trigger queue full"
			}
		}
	}
	return nil
}

func (m *Model) setError(err error) {
	if err != nil {
		m.message = err.Error()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.status
	state := "STOP"
	if st.Playing {
		state = "PLAY"
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("beatr  %s  %5.1fbpm  %s  slot %d/%d  %s",
		state, st.Tempo, st.Mode, m.slot+1, beatr.NumPatternSlots, m.pattern.Name)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("step %02d  %6.2fs  voices %2d  %s",
		st.Step+1, st.Position, st.ActiveVoices, meter(st.Peak))))
	b.WriteString("\n\n")
	for i := range m.pattern.Tracks {
		t := &m.pattern.Tracks[i]
		name := fmt.Sprintf("%-11s", t.Voice.Title())
		if i == m.track {
			name = activeStyle.Render(name)
		}
		b.WriteString(name)
		for k, s := range t.Steps {
			if k%beatr.StepsPerBeat == 0 {
				b.WriteString(dimStyle.Render("|"))
			}
			cell := "-"
			if s.Active {
				cell = "x"
			}
			switch {
			case i == m.track && k == m.step:
				cell = cursorStyle.Render(cell)
			case st.Playing && k == st.Step:
				cell = headStyle.Render(cell)
			case s.Active:
				cell = activeStyle.Render(cell)
			}
			b.WriteString(cell)
		}
		b.WriteString(dimStyle.Render("|"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("hjkl:move  space:toggle  tab:voice  bksp:clear  p:play  s:stop  +/-:tempo  [ ]:slot  zxcvbnm,:pads  q:quit"))
	if m.message != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.message))
	}
	for _, f := range m.faults {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(f))
	}
	return b.String()
}

// meter draws a peak level of 0..1 as ten cells.
func meter(peak float32) string {
	n := int(peak*10 + 0.5)
	n = min(max(n, 0), 10)
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", 10-n) + "]"
}
