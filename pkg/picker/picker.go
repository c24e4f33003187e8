// Package picker is an interactive terminal list for choosing one value of
// an exit-node field.
package picker

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MakerMaker19/exitpick/pkg/exitnode"
)

// ErrCancelled is returned when the user leaves the picker without
// choosing.
var ErrCancelled = errors.New("selection cancelled")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	docStyle = lipgloss.NewStyle().Margin(1, 2)
)

// ---- list item ----

type valueItem struct {
	value string
	count int
}

func (i valueItem) Title() string { return i.value }
func (i valueItem) Description() string {
	if i.count == 1 {
		return "1 exit node"
	}
	return fmt.Sprintf("%d exit nodes", i.count)
}
func (i valueItem) FilterValue() string { return i.value }

// ---- model ----

// Model is the bubbletea model behind Run. It is exported so callers can
// embed it or drive it in tests.
type Model struct {
	list      list.Model
	chosen    string
	cancelled bool
}

// NewModel lists the distinct values of field across nodes, each with the
// number of nodes carrying it.
func NewModel(nodes []exitnode.ExitNode, field exitnode.Field) Model {
	counts := map[string]int{}
	for _, n := range nodes {
		counts[field.Value(n)]++
	}

	values := exitnode.UniqueValues(nodes, field)
	items := make([]list.Item, 0, len(values))
	for _, v := range values {
		items = append(items, valueItem{value: v, count: counts[v]})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = fmt.Sprintf("Choose a %s", field)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

// Chosen returns the selected value, if any.
func (m Model) Chosen() (string, bool) {
	return m.chosen, m.chosen != "" && !m.cancelled
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil

	case tea.KeyMsg:
		// While the filter box is open, keys belong to the filter.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if it, ok := m.list.SelectedItem().(valueItem); ok {
				m.chosen = it.value
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return docStyle.Render(m.list.View())
}

// Run shows the picker on the given terminal streams and returns the
// chosen value or ErrCancelled.
func Run(nodes []exitnode.ExitNode, field exitnode.Field, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(NewModel(nodes, field),
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out))

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run picker: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return "", fmt.Errorf("unexpected picker model %T", final)
	}
	v, ok := m.Chosen()
	if !ok {
		return "", ErrCancelled
	}
	return v, nil
}
