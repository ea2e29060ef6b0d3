package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// browseTab identifies one rendering of the project.
type browseTab int

const (
	tabTree browseTab = iota
	tabTable
	tabGantt
	tabBudget
	tabStatus
)

var browseTabs = []string{"Tree", "Table", "Gantt", "Budget", "Status"}

// chromeHeight is the number of lines taken by the tab bar and status bar.
const chromeHeight = 4

type browseKeyMap struct {
	Next, Prev, Reload, Quit key.Binding
}

var browseKeys = browseKeyMap{
	Next:   key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next view")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev view")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// browseLoadedMsg carries a fresh snapshot of the project.
type browseLoadedMsg struct {
	project *domain.Project
	root    *domain.TreeNode
	summary rollup.Summary
	alloc   *budget.Allocation
	err     error
}

// browseModel is a read-only, tabbed viewer over one project.
type browseModel struct {
	app       *App
	projectID string
	period    budget.PeriodType

	tab     browseTab
	vp      viewport.Model
	width   int
	height  int
	loading bool

	snapshot browseLoadedMsg
}

func newBrowseModel(app *App, projectID string, period budget.PeriodType) browseModel {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3
	return browseModel{
		app:       app,
		projectID: projectID,
		period:    period,
		vp:        vp,
		loading:   true,
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.load()
}

func (m browseModel) load() tea.Cmd {
	app, projectID, period := m.app, m.projectID, m.period
	return func() tea.Msg {
		ctx := context.Background()
		msg := browseLoadedMsg{}
		if msg.project, msg.err = app.Projects.GetByID(ctx, projectID); msg.err != nil {
			return msg
		}
		if msg.root, msg.err = app.Trees.Tree(ctx, projectID); msg.err != nil {
			return msg
		}
		msg.summary = rollup.Summarize(msg.root)
		msg.alloc, msg.err = app.Budget.Allocate(ctx, projectID, budget.Request{
			Period: period,
			Mode:   budget.ModeByPhase,
			Now:    app.now(),
		})
		return msg
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-chromeHeight, 1)
		m.refreshContent()
		return m, nil

	case browseLoadedMsg:
		m.loading = false
		m.snapshot = msg
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, browseKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, browseKeys.Next):
			m.setTab((m.tab + 1) % browseTab(len(browseTabs)))
			return m, nil
		case key.Matches(msg, browseKeys.Prev):
			m.setTab((m.tab + browseTab(len(browseTabs)) - 1) % browseTab(len(browseTabs)))
			return m, nil
		case key.Matches(msg, browseKeys.Reload):
			m.loading = true
			return m, m.load()
		}
		if r := msg.String(); len(r) == 1 && r[0] >= '1' && int(r[0]-'1') < len(browseTabs) {
			m.setTab(browseTab(r[0] - '1'))
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *browseModel) setTab(t browseTab) {
	m.tab = t
	m.refreshContent()
	m.vp.GotoTop()
}

// refreshContent renders the active tab into the viewport.
func (m *browseModel) refreshContent() {
	m.vp.SetContent(m.render())
}

func (m *browseModel) render() string {
	s := m.snapshot
	switch {
	case m.loading:
		return formatter.Dim("Loading...")
	case s.err != nil:
		return formatter.StyleRed.Render("Error: " + s.err.Error())
	case s.root == nil:
		return ""
	}

	switch m.tab {
	case tabTable:
		return formatter.FormatNodeTable(s.root)
	case tabGantt:
		width := 0
		if m.width > 0 {
			// Leave room for the label column.
			width = max(m.width-40, 10)
		}
		return formatter.FormatGantt(s.root, formatter.GanttOptions{Width: width, Critical: scheduler.CriticalPath(s.root)})
	case tabBudget:
		return formatter.FormatAllocation(s.alloc, s.project.Currency, true)
	case tabStatus:
		return formatter.FormatStatus(s.project, s.summary, m.app.now())
	default:
		return formatter.FormatTree(s.root, formatter.TreeOptions{Currency: s.project.Currency})
	}
}

func (m browseModel) View() string {
	var b strings.Builder

	title := "wbs"
	if m.snapshot.project != nil {
		title = m.snapshot.project.Name + " " + formatter.Dim(m.snapshot.project.DisplayID())
	}
	b.WriteString(formatter.StyleHeader.Render(title) + "\n")
	b.WriteString(m.tabBar() + "\n")
	b.WriteString(m.vp.View() + "\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m browseModel) tabBar() string {
	active := lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	inactive := lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	parts := make([]string, len(browseTabs))
	for i, name := range browseTabs {
		label := fmt.Sprintf("%d %s", i+1, name)
		if browseTab(i) == m.tab {
			parts[i] = active.Render(label)
		} else {
			parts[i] = inactive.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m browseModel) statusBar() string {
	help := []string{}
	for _, k := range []key.Binding{browseKeys.Next, browseKeys.Prev, browseKeys.Reload, browseKeys.Quit} {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	return formatter.Dim(strings.Join(help, " · ")) + "  " + scrollIndicator(m.vp)
}

// scrollIndicator returns a dim scroll position string for the status bar.
func scrollIndicator(vp viewport.Model) string {
	if vp.AtTop() {
		return formatter.Dim("[TOP]")
	}
	if vp.AtBottom() {
		return formatter.Dim("[END]")
	}
	return formatter.Dim(fmt.Sprintf("[%d%%]", int(vp.ScrollPercent()*100)))
}

func newBrowseCmd(app *App) *cobra.Command {
	var projectRef, period string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a project in an interactive terminal viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := resolveProjectID(cmd.Context(), app, projectRef)
			if err != nil {
				return err
			}
			if period == "" {
				period = app.Config.Period
			}
			pt, err := budget.ParsePeriodType(period)
			if err != nil {
				return err
			}
			if !app.interactive() {
				return fmt.Errorf("browse needs an interactive terminal")
			}
			p := tea.NewProgram(newBrowseModel(app, projectID, pt),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().StringVar(&period, "period", "", "Budget bucket size: month|quarter|year (default from config)")

	return cmd
}
