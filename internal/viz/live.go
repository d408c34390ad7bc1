package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/avasko/laglab/internal/scenes"
	"github.com/avasko/laglab/internal/sim"
	"github.com/avasko/laglab/internal/tensor"
)

const (
	defaultWidth    = 72
	defaultHeight   = 22
	energyHistCap   = 120
	energyGraphRows = 5
)

// TickMsg drives the frame loop.
type TickMsg time.Time

// Model hosts one built system inside the bubbletea frame loop: it owns
// the frame clock, calls Update once per tick, and draws the last
// produced frame. A failed update freezes the last good frame and shows
// the error instead of aborting the program.
type Model struct {
	scene scenes.Scene
	sys   *sim.System
	frame sim.FrameState
	start time.Time
	fps   int

	canvas     *Canvas
	energyHist []float64
	paused     bool
	runErr     error
	width      int
	height     int
}

func NewModel(scene scenes.Scene, sys *sim.System, fps int) Model {
	if fps <= 0 {
		fps = 60
	}
	return Model{
		scene:      scene,
		sys:        sys,
		frame:      sys.Setup(0),
		start:      time.Now(),
		fps:        fps,
		canvas:     NewCanvas(defaultWidth, defaultHeight, scene.Extent),
		energyHist: make([]float64, 0, energyHistCap),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			m.frame = m.sys.Setup(0)
			m.start = time.Now()
			m.energyHist = m.energyHist[:0]
			m.runErr = nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := msg.Width - 6
		h := msg.Height - energyGraphRows - 7
		if w >= 16 && h >= 8 {
			m.canvas.Resize(w, h)
		}
		return m, nil

	case TickMsg:
		if m.paused || m.runErr != nil {
			return m, m.tick()
		}
		now := time.Since(m.start).Seconds()
		next, err := m.sys.Update(m.frame, now)
		if err != nil {
			// keep showing the last good frame
			m.runErr = err
			return m, m.tick()
		}
		m.frame = next
		if e, err := m.sys.Energy(m.frame); err == nil {
			if len(m.energyHist) == energyHistCap {
				copy(m.energyHist, m.energyHist[1:])
				m.energyHist = m.energyHist[:energyHistCap-1]
			}
			m.energyHist = append(m.energyHist, e)
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	m.canvas.Clear()
	pts, err := m.scene.Project(m.sys, m.frame)
	if err == nil {
		m.drawScene(pts)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf(" %s: %s", m.scene.Name, m.scene.Description)))
	b.WriteByte('\n')

	trace := tracePalette[m.frame.Color%len(tracePalette)]
	b.WriteString(canvasStyle.Render(trace.Render(m.canvas.String())))
	b.WriteByte('\n')

	b.WriteString(labelStyle.Render(" t "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%8.2fs", m.frame.Time)))
	b.WriteString(labelStyle.Render("  tick "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.frame.Tick)))
	if len(m.energyHist) > 0 {
		b.WriteString(labelStyle.Render("  energy "))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%+.6f", m.energyHist[len(m.energyHist)-1])))
	}
	b.WriteByte('\n')

	if len(m.energyHist) > 1 {
		b.WriteString(graphStyle.Render(asciigraph.Plot(m.energyHist,
			asciigraph.Height(energyGraphRows-1),
			asciigraph.Caption("total energy"))))
		b.WriteByte('\n')
	}

	if m.runErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf(" simulation halted: %v", m.runErr)))
		b.WriteByte('\n')
	}
	if m.paused {
		b.WriteString(helpStyle.Render(" paused"))
	}
	b.WriteString(helpStyle.Render(" [space] pause  [r] reset  [q] quit"))
	return b.String()
}

func (m Model) drawScene(pts *tensor.Struct) {
	points := Points(pts)
	if m.scene.Chain {
		px, py := 0.0, 0.0
		for _, p := range points {
			m.canvas.Segment(px, py, p[0], p[1])
			px, py = p[0], p[1]
		}
	}
	for _, p := range points {
		m.canvas.Dot(p[0], p[1])
	}
}

// Points reduces a rendered position structure to drawable 2D points:
// a flat pair is one point, a one-leaf structure a point on the x axis,
// and a nested structure one point per sub-tuple.
func Points(s *tensor.Struct) [][2]float64 {
	flat := s.Flatten(nil)
	switch {
	case len(flat) == 1:
		return [][2]float64{{flat[0], 0}}
	case s.IsLeaf() || allLeaves(s):
		pts := make([][2]float64, 0, (len(flat)+1)/2)
		for i := 0; i+1 < len(flat); i += 2 {
			pts = append(pts, [2]float64{flat[i], flat[i+1]})
		}
		return pts
	default:
		var pts [][2]float64
		for i := 0; i < s.Len(); i++ {
			pts = append(pts, Points(s.At(i))...)
		}
		return pts
	}
}

func allLeaves(s *tensor.Struct) bool {
	for i := 0; i < s.Len(); i++ {
		if !s.At(i).IsLeaf() {
			return false
		}
	}
	return true
}

// Run starts the interactive host for one scene.
func Run(scene scenes.Scene, sys *sim.System, fps int) error {
	p := tea.NewProgram(NewModel(scene, sys, fps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
