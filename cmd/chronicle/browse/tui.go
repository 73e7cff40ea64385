package browsecmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/chronicle/pkg/cliui"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/utils"
)

// recordSource is the part of the API client the browser needs.
type recordSource interface {
	ListRecords(ctx context.Context) ([]*record.Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

type browseView int

const (
	viewList browseView = iota
	viewRecord
)

type browseModel struct {
	source  recordSource
	records []*record.Record
	view    browseView
	cursor  int
	offset  int
	width   int
	height  int
	status  string
	keys    browseKeyMap
	help    help.Model
}

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	browseSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	browseDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	browseErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type browseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Delete key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Delete, k.Reload, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Delete, k.Reload, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:   key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type recordsLoadedMsg struct {
	records []*record.Record
	err     error
}

type recordDeletedMsg struct {
	id  string
	err error
}

func runProgram(ctx context.Context, model browseModel) error {
	// lipgloss under-detects color support in some terminals.
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newBrowseModel(source recordSource, records []*record.Record) browseModel {
	return browseModel{
		source:  source,
		records: records,
		view:    viewList,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

func (m browseModel) Init() bubbletea.Cmd {
	return nil
}

func (m browseModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case recordsLoadedMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		m.records = msg.records
		m.status = ""
		m.cursor = clamp(m.cursor, len(m.records)-1)
		return m, nil
	case recordDeletedMsg:
		if msg.err != nil {
			m.status = "delete failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "deleted " + msg.id
		m.view = viewList
		return m, loadRecordsCmd(m.source)
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m browseModel) View() string {
	if m.view == viewRecord {
		return m.viewRecord()
	}
	return m.viewList()
}

func (m browseModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.Down):
		return m.moveCursor(1), nil
	case key.Matches(msg, m.keys.Up):
		return m.moveCursor(-1), nil
	case key.Matches(msg, m.keys.Enter):
		if m.view == viewList && len(m.records) > 0 {
			m.view = viewRecord
		}
	case key.Matches(msg, m.keys.Back):
		m.view = viewList
	case key.Matches(msg, m.keys.Delete):
		rec := m.selected()
		if rec == nil {
			return m, nil
		}
		m.status = "deleting " + rec.ID
		return m, deleteRecordCmd(m.source, rec.ID)
	case key.Matches(msg, m.keys.Reload):
		m.status = "reloading"
		return m, loadRecordsCmd(m.source)
	}

	return m, nil
}

func (m browseModel) moveCursor(delta int) browseModel {
	if m.view != viewList || len(m.records) == 0 {
		return m
	}
	m.cursor = clamp(m.cursor+delta, len(m.records)-1)
	m.offset = stableOffset(m.offset, m.cursor, m.listHeight())
	return m
}

func (m browseModel) selected() *record.Record {
	if len(m.records) == 0 || m.cursor < 0 || m.cursor >= len(m.records) {
		return nil
	}
	return m.records[m.cursor]
}

// listHeight is the number of record rows that fit between header and footer.
func (m browseModel) listHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-6, 1)
}

func (m browseModel) viewList() string {
	var b strings.Builder

	b.WriteString(browseTitleStyle.Render("chronicle"))
	b.WriteString(browseMutedStyle.Render(fmt.Sprintf("  %d records", len(m.records))))
	b.WriteString("\n")
	b.WriteString(renderRule(m.width))
	b.WriteString("\n")

	if len(m.records) == 0 {
		b.WriteString(browseMutedStyle.Render("no records"))
		b.WriteString("\n")
	}

	start, end := m.offset, min(m.offset+m.listHeight(), len(m.records))
	for i := start; i < end; i++ {
		rec := m.records[i]
		line := fmt.Sprintf("%s  %s", rec.CreatedAt.Format("2006-01-02"), utils.Preview(rec.Title, titleWidth(m.width)))
		if len(rec.Tags) > 0 {
			line += "  " + strings.Join(rec.Tags, ",")
		}
		if m.width > 0 {
			line = ansi.Truncate(line, m.width, "…")
		}
		if i == m.cursor {
			b.WriteString(browseHighlightStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.viewFooter())
	return b.String()
}

func (m browseModel) viewRecord() string {
	rec := m.selected()
	if rec == nil {
		return m.viewList()
	}

	var b strings.Builder
	b.WriteString(browseTitleStyle.Render(rec.Title))
	b.WriteString("\n")
	b.WriteString(browseMutedStyle.Render(rec.ID + "  " + rec.CreatedAt.Format("2006-01-02 15:04")))
	b.WriteString("\n")
	if len(rec.Tags) > 0 {
		b.WriteString(browseAccentStyle.Render(strings.Join(rec.Tags, "  ")))
		b.WriteString("\n")
	}
	b.WriteString(renderRule(m.width))
	b.WriteString("\n")

	body, err := cliui.RenderMarkdown(rec.Body, m.width)
	if err != nil {
		body = rec.Body
	}
	b.WriteString(body)
	b.WriteString("\n")

	if len(rec.SourceLinks) > 0 {
		b.WriteString(browseSectionStyle.Render("Sources"))
		b.WriteString("\n")
		for _, link := range rec.SourceLinks {
			b.WriteString("  " + link + "\n")
		}
	}

	if rec.DerivedText != "" {
		b.WriteString(browseSectionStyle.Render("Fetched text"))
		b.WriteString("\n")
		b.WriteString(browseMutedStyle.Render(utils.Truncate(rec.DerivedText, 500)))
		b.WriteString("\n")
	}

	b.WriteString(m.viewFooter())
	return b.String()
}

func (m browseModel) viewFooter() string {
	footer := ""
	if m.status != "" {
		style := browseMutedStyle
		if strings.Contains(m.status, "failed") {
			style = browseErrorStyle
		}
		footer = style.Render(m.status) + "\n"
	}
	return footer + browseMutedStyle.Render(m.help.View(m.keys))
}

func loadRecordsCmd(source recordSource) bubbletea.Cmd {
	return func() bubbletea.Msg {
		list, err := source.ListRecords(context.Background())
		return recordsLoadedMsg{records: list, err: err}
	}
}

func deleteRecordCmd(source recordSource, id string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		err := source.DeleteRecord(context.Background(), id)
		return recordDeletedMsg{id: id, err: err}
	}
}

func clamp(value, upper int) int {
	if value > upper {
		value = upper
	}
	if value < 0 {
		return 0
	}
	return value
}

// stableOffset scrolls only when the cursor leaves the visible window.
func stableOffset(offset, cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor < offset {
		return cursor
	}
	if cursor >= offset+size {
		return cursor - size + 1
	}
	return offset
}

func titleWidth(width int) int {
	if width <= 0 {
		return 60
	}
	return max(width-30, 10)
}

func renderRule(width int) string {
	if width <= 0 {
		width = 40
	}
	return browseDividerStyle.Render(strings.Repeat("─", width))
}
