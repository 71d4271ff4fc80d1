package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"gbtrace/internal/analysis"
	"gbtrace/internal/disasm"
	"gbtrace/internal/gbtrace/styles"
	"gbtrace/internal/render"
	"gbtrace/internal/trace"
	"gbtrace/internal/ui/colorize"
)

type viewMode int

const (
	viewInfo viewMode = iota
	viewEntries
	viewFindings
)

// contextRadius is how many entries are shown on each side of a selected one.
const contextRadius = 10

type entryItem struct {
	index      int
	entry      trace.Entry
	filterTerm string // pre-computed filter value
}

func (i entryItem) Title() string       { return fmt.Sprintf("%d  %04X  %s", i.index, i.entry.PC, i.entry.Instruction) }
func (i entryItem) Description() string { return "" }
func (i entryItem) FilterValue() string { return i.filterTerm }

// Custom item delegate for the entries list
type itemDelegate struct {
	registers bool
	color     bool
}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(entryItem)
	if !ok {
		return
	}

	indicator := " "
	addrStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}

	inst := fmt.Sprintf("%-20s", i.entry.Instruction)
	if d.color {
		// lipgloss per row; chroma is too slow for a scrolling list
		parsed := disasm.Parse(i.entry.PC, i.entry.Instruction)
		opStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
		argStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
		pad := max(0, 20-len(parsed.Op)-1-len(parsed.Operands))
		inst = opStyle.Render(parsed.Op) + " " + argStyle.Render(parsed.Operands) + strings.Repeat(" ", pad)
	}
	str := fmt.Sprintf(" %s %7d  %s  %s", indicator, i.index, addrStyle.Render(fmt.Sprintf("%04X", i.entry.PC)), inst)
	if d.registers && !i.entry.Registers.Empty() {
		regStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
		str += "  " + regStyle.Render(render.FormatRegisters(i.entry.Registers))
	}
	fmt.Fprint(w, str)
}

type model struct {
	viewport     viewport.Model
	entriesList  list.Model
	findingsView viewport.Model
	spinner      spinner.Model
	mode         viewMode
	session      *session
	color        bool
	report       string // markdown, empty until analysis finishes
	detail       string // entry context shown instead of the report
	loading      bool
	width        int
	height       int
}

type analysisMsg struct {
	report   string
	findings string
}

// analyzeCmd runs the detectors off the UI loop.
func analyzeCmd(s *session, color bool) tea.Cmd {
	return func() tea.Msg {
		var buf bytes.Buffer
		r := render.New(&buf, render.Options{Color: color, Registers: s.cfg.ShowRegisters, Limit: s.cfg.Output.Limit})

		findings := s.detectorChain().Detect(s.trace)
		r.Findings(findings, analysis.Stuck(s.trace, findings))
		r.TightLoops(s.cfg.Loops.TightThreshold, analysis.DetectTightLoops(s.trace, s.cfg.Loops.TightThreshold))
		r.SequenceRuns(analysis.DetectSequenceRuns(s.trace, s.sequenceOptions()))
		r.HotPCs(s.cfg.Loops.MinRepeats, analysis.DetectHotPCs(s.trace, s.cfg.Loops.MinRepeats))
		r.Loops(s.windowOptions(), analysis.DetectWindowedLoops(s.trace, s.windowOptions()))
		r.Histogram(fmt.Sprintf("Instruction Frequency (Top %d)", s.cfg.Histogram.Top),
			analysis.TopMnemonics(s.trace, s.cfg.Histogram.Top), s.trace.Len())

		return analysisMsg{report: s.report(), findings: strings.TrimPrefix(buf.String(), "\n")}
	}
}

func NewModel(s *session) model {
	color := !s.cfg.NoColor && colorize.Enabled()

	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	items := make([]list.Item, 0, s.trace.Len())
	for i, e := range s.trace.All() {
		items = append(items, entryItem{
			index:      i,
			entry:      e,
			filterTerm: fmt.Sprintf("%04X %s", e.PC, e.Instruction),
		})
	}
	entriesList := list.New(items, itemDelegate{registers: s.cfg.ShowRegisters, color: color}, 80, 24)
	entriesList.Title = fmt.Sprintf("Entries (%d total)", s.trace.Len())
	entriesList.SetShowStatusBar(false)
	entriesList.SetShowHelp(false)
	entriesList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	fvp := viewport.New()
	fvp.SetWidth(80)
	fvp.SetHeight(24)

	m := model{
		viewport:     vp,
		entriesList:  entriesList,
		findingsView: fvp,
		spinner:      sp,
		session:      s,
		color:        color,
		loading:      true,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		analyzeCmd(m.session, m.color),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case analysisMsg:
		m.loading = false
		m.report = msg.report
		m.findingsView.SetContent(msg.findings)
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.entriesList.SetWidth(msg.Width)
			m.entriesList.SetHeight(msg.Height - 2)
			m.findingsView.SetWidth(msg.Width)
			m.findingsView.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		// While the list is filtering it owns every key except quit
		if m.mode == viewEntries && m.entriesList.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "i":
			m.mode = viewInfo
			if m.detail != "" {
				m.detail = ""
				m.updateContent()
			}
			return m, nil
		case "e":
			m.mode = viewEntries
			return m, nil
		case "f":
			m.mode = viewFindings
			return m, nil
		case "enter":
			if m.mode == viewEntries {
				if item, ok := m.entriesList.SelectedItem().(entryItem); ok {
					m.detail = m.entryContext(item.index)
					m.mode = viewInfo
					m.viewport.SetContent(m.detail)
					m.viewport.GotoTop()
				}
			}
			return m, nil
		case "tab":
			m.mode = (m.mode + 1) % 3
			return m, nil
		case "shift+tab":
			m.mode = (m.mode + 2) % 3
			return m, nil
		}
	}

	switch m.mode {
	case viewEntries:
		m.entriesList, cmd = m.entriesList.Update(msg)
	case viewFindings:
		m.findingsView, cmd = m.findingsView.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewEntries:
		content = m.entriesList.View()
		menu = " Enter: context • /: filter • I: info • F: findings • Tab: cycle • Q: quit "
	case viewFindings:
		content = m.findingsView.View()
		if m.loading {
			content = m.spinner.View() + " Detecting loops..."
		}
		menu = " I: info • E: entries • Tab: cycle • Q: quit "
	default:
		content = m.viewport.View()
		menu = " E: entries • F: findings • Tab: cycle • Q: quit "
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

// entryContext lists the entries around index, marking the selected one.
func (m *model) entryContext(index int) string {
	t := m.session.trace
	from := max(0, index-contextRadius)
	to := min(t.Len(), index+contextRadius+1)

	var b strings.Builder
	fmt.Fprintf(&b, "Entry %d of %d\n\n", index, t.Len())
	for i, e := range t.Slice(from, to) {
		marker := "  "
		if from+i == index {
			marker = "> "
		}
		line := render.FormatEntry(e, m.session.cfg.ShowRegisters)
		if m.color {
			line = colorize.Line(line)
		}
		fmt.Fprintf(&b, "%s%7d %s\n", marker, from+i, line)
	}
	b.WriteString("\nI: back to report")
	return b.String()
}

func (m *model) updateContent() {
	if m.detail != "" {
		return
	}

	markdown := m.report
	if markdown == "" {
		markdown = fmt.Sprintf("# gbtrace\n\n`%s`\n\n%s Analyzing %d entries...",
			m.session.file, m.spinner.View(), m.session.trace.Len())
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	renderer, err := styles.MarkdownRenderer(m.session.cfg.Output.Theme, width-2)
	if err != nil {
		m.viewport.SetContent(markdown)
		return
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		m.viewport.SetContent(markdown)
		return
	}
	m.viewport.SetContent(strings.TrimSuffix(rendered, "\n"))
}
