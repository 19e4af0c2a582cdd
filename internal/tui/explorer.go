// Package tui is the interactive terminal explorer.
package tui

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/mandelscope/internal/config"
	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/preset"
	"github.com/san-kum/mandelscope/internal/session"
	"github.com/san-kum/mandelscope/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	headerLines = 2
	footerLines = 5
	minRes      = 8

	// Arrow keys move the view by this fraction of its half-width.
	panStep = 0.1
)

type state int

const (
	stateMenu state = iota
	stateExplore
)

// Options configure where the explorer saves files.
type Options struct {
	PresetDir        string
	ImageDir         string
	ImageFormat      export.Format
	ExportScale      int
	ExportIterations int
	Theme            string
	Rand             *rand.Rand
}

type entry struct {
	name string
	file bool
}

type model struct {
	state  state
	cursor int
	items  []entry

	sess  *session.Session
	opts  Options
	theme viz.Theme

	frame     string
	res       int
	rendering bool
	pending   bool
	spin      int
	status    string
	lastErr   error

	width  int
	height int
}

func newModel(s *session.Session, opts Options) model {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if opts.ImageFormat == "" {
		opts.ImageFormat = export.PNG
	}
	m := model{
		state:  stateMenu,
		sess:   s,
		opts:   opts,
		theme:  viz.ThemeByName(opts.Theme),
		width:  80,
		height: 24,
	}
	m.items = m.loadItems()
	return m
}

func (m model) loadItems() []entry {
	items := make([]entry, 0)
	for _, name := range config.ListPresets() {
		items = append(items, entry{name: name})
	}
	files, err := preset.List(m.opts.PresetDir)
	if err == nil {
		for _, name := range files {
			items = append(items, entry{name: name, file: true})
		}
	}
	return items
}

func (m model) Init() tea.Cmd { return nil }

type renderedMsg struct {
	frame   string
	res     int
	elapsed time.Duration
	err     error
}

type savedMsg struct {
	path string
	err  error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func renderCmd(s *session.Session, res int) tea.Cmd {
	return func() tea.Msg {
		buf, err := s.Render(res)
		if err != nil {
			return renderedMsg{err: err}
		}
		return renderedMsg{frame: viz.Preview(buf), res: res, elapsed: s.LastRender()}
	}
}

func saveImageCmd(s *session.Session, path string, scale, iterations int) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{path: path, err: s.SaveImage(path, scale, iterations)}
	}
}

// imageRes is the square pixel size that fits the terminal: one column per
// pixel and two pixels per row.
func (m model) imageRes() int {
	rows := m.height - headerLines - footerLines
	res := min(m.width, 2*rows)
	res -= res % 2
	return max(res, minRes)
}

func (m model) startRender() (model, tea.Cmd) {
	if m.rendering {
		m.pending = true
		return m, nil
	}
	m.rendering = true
	m.pending = false
	return m, tea.Batch(renderCmd(m.sess, m.imageRes()), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == stateExplore {
			return m.startRender()
		}
		return m, nil
	case tickMsg:
		if !m.rendering {
			return m, nil
		}
		m.spin++
		return m, tick()
	case renderedMsg:
		m.rendering = false
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.frame = msg.frame
			m.res = msg.res
			m.status = fmt.Sprintf("rendered in %s", msg.elapsed.Round(time.Millisecond))
		}
		if m.pending {
			return m.startRender()
		}
		return m, nil
	case savedMsg:
		m.rendering = false
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.status = "saved " + msg.path
		}
		if m.pending {
			return m.startRender()
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateExplore:
		return m.exploreKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.items) == 0 {
			return m, nil
		}
		if err := m.apply(m.items[m.cursor]); err != nil {
			m.lastErr = err
			return m, nil
		}
		m.lastErr = nil
		m.state = stateExplore
		next, cmd := m.startRender()
		return next, tea.Batch(tea.ClearScreen, cmd)
	case "tab", "esc":
		m.state = stateExplore
		return m.startRender()
	}
	return m, nil
}

func (m model) apply(e entry) error {
	if e.file {
		return m.sess.ImportPreset(preset.Path(m.opts.PresetDir, e.name))
	}
	v, ok := config.GetPreset(e.name)
	if !ok {
		return fmt.Errorf("unknown preset: %s", e.name)
	}
	return m.sess.SetView(v)
}

func (m model) exploreKey(msg tea.KeyMsg) (model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "esc", "m":
		m.state = stateMenu
		m.items = m.loadItems()
		return m, tea.ClearScreen
	}

	// the session refuses changes while it renders; drop the key
	if m.rendering {
		return m, nil
	}

	var err error
	switch key {
	case "left", "h":
		err = m.sess.Pan(-panStep, 0)
	case "right", "l":
		err = m.sess.Pan(panStep, 0)
	case "up", "k":
		err = m.sess.Pan(0, -panStep)
	case "down", "j":
		err = m.sess.Pan(0, panStep)
	case "+", "=":
		err = m.sess.Zoom(1)
	case "-", "_":
		err = m.sess.Zoom(-1)
	case "]":
		err = m.sess.AddIterations(session.IterationsPerZoomStep)
	case "[":
		err = m.sess.AddIterations(-session.IterationsPerZoomStep)
	case "J":
		err = m.sess.ToggleJulia()
	case "p":
		res := m.imageRes()
		err = m.sess.PickSeed(float64(res)/2, float64(res)/2, res)
	case "c":
		err = m.sess.CycleScheme()
	case "r":
		err = m.sess.Randomize(m.opts.Rand)
	case "0":
		err = m.sess.Reset()
	case "s":
		return m.savePreset()
	case "e":
		return m.saveImage()
	default:
		return m, nil
	}

	if err != nil {
		m.lastErr = err
		return m, nil
	}
	m.lastErr = nil
	return m.startRender()
}

func (m model) savePreset() (model, tea.Cmd) {
	name := export.TimestampedName("render", preset.Ext, time.Now())
	path := filepath.Join(m.opts.PresetDir, name)
	if err := m.sess.ExportPreset(path); err != nil {
		m.lastErr = err
		return m, nil
	}
	m.lastErr = nil
	m.status = "saved " + path
	return m, nil
}

func (m model) saveImage() (model, tea.Cmd) {
	name := export.TimestampedName("render", m.opts.ImageFormat.Ext(), time.Now())
	path := filepath.Join(m.opts.ImageDir, name)
	m.rendering = true
	m.status = "saving " + path
	return m, tea.Batch(saveImageCmd(m.sess, path, m.opts.ExportScale, m.opts.ExportIterations), tick())
}

// handleMouse zooms in on left click, out on right click and recenters on
// middle click, at the clicked pixel.
func (m model) handleMouse(msg tea.MouseMsg) (model, tea.Cmd) {
	if m.state != stateExplore || m.rendering || m.res == 0 {
		return m, nil
	}
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	px, py, ok := m.pixelAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}

	var err error
	switch msg.Button {
	case tea.MouseButtonLeft:
		err = m.sess.ZoomAt(px, py, m.res, 1)
	case tea.MouseButtonRight:
		err = m.sess.ZoomAt(px, py, m.res, -1)
	case tea.MouseButtonMiddle:
		err = m.sess.Recenter(px, py, m.res)
	default:
		return m, nil
	}
	if err != nil {
		m.lastErr = err
		return m, nil
	}
	m.lastErr = nil
	return m.startRender()
}

// pixelAt maps a terminal cell to the middle of the two pixels it shows.
func (m model) pixelAt(x, y int) (px, py float64, ok bool) {
	row := y - headerLines
	if x < 0 || x >= m.res || row < 0 || 2*row >= m.res {
		return 0, 0, false
	}
	return float64(x) + 0.5, float64(2*row) + 1, true
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateExplore:
		return m.viewExplore()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("       " + viz.GradientText("m a n d e l s c o p e", m.theme.Primary, m.theme.Accent) + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, it := range m.items {
		kind := "built-in"
		if it.file {
			kind = "preset file"
		}
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-28s", it.name)) + dim.Render(kind) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-28s", it.name)) + dimmer.Render(kind) + "\n")
		}
	}

	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString("      " + m.theme.ErrorStyle().Render(m.lastErr.Error()) + "\n")
	}
	b.WriteString(dim.Render("      ↑↓ select   enter open   tab explore   q quit") + "\n")

	return b.String()
}

func (m model) viewExplore() string {
	var b strings.Builder

	v, sc := m.sess.State()
	mode := "mandelbrot"
	if v.Julia {
		mode = fmt.Sprintf("julia %s", formatComplex(v.Seed()))
	}
	b.WriteString(m.theme.TitleStyle().Render("mandelscope") + "  " + magenta.Render(mode) + "  " + dim.Render(sc.String()) + "\n\n")

	if m.frame != "" {
		b.WriteString(m.frame)
	} else {
		b.WriteString(dim.Render("rendering...") + "\n")
	}

	status := fmt.Sprintf("center %s  zoom %.2f  iterations %d",
		formatComplex(complex(v.CenterX, v.CenterY)), v.Zoom, v.MaxIterations)
	b.WriteString(m.theme.StatusStyle().Render(status) + "\n")

	switch {
	case m.rendering:
		b.WriteString(viz.StatusBusy.Render(viz.Spinner(m.spin)+" working") + "\n")
	case m.lastErr != nil:
		b.WriteString(m.theme.ErrorStyle().Render(describe(m.lastErr)) + "\n")
	default:
		b.WriteString(viz.StatusIdle.Render(m.status) + "\n")
	}

	b.WriteString(m.theme.HintStyle().Render("arrows pan  +/- zoom  click zoom  [ ] iterations  J julia  p seed  c scheme  r random  0 reset  s preset  e image  m menu  q quit") + "\n")
	return b.String()
}

func describe(err error) string {
	switch {
	case errors.Is(err, fractal.ErrBusy):
		return "busy: wait for the render to finish"
	case errors.Is(err, fractal.ErrFormat):
		return "not a valid preset: " + err.Error()
	}
	return err.Error()
}

func formatComplex(c complex128) string {
	return fmt.Sprintf("%.6g%+.6gi", real(c), imag(c))
}

// Run starts the explorer on s and blocks until the user quits.
func Run(s *session.Session, opts Options) error {
	p := tea.NewProgram(newModel(s, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
