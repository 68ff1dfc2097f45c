package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/emilythestrangee/devcove/internal/alert"
	"github.com/emilythestrangee/devcove/internal/models"
	"github.com/emilythestrangee/devcove/internal/notify"
	"github.com/emilythestrangee/devcove/internal/vote"
)

const defaultWidth = 80

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	toggleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	panelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	unreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cursorStyle   = lipgloss.NewStyle().Bold(true)
)

var severityStyles = map[alert.Severity]lipgloss.Style{
	alert.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	alert.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	alert.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	alert.Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
}

func toggleLabel(st snapshot) string {
	if !st.badgeVisible {
		return "[🔔]"
	}
	return fmt.Sprintf("[🔔 %s]", notify.BadgeLabel(st.badge))
}

func frameWidth(width int) int {
	if width <= 0 {
		return defaultWidth
	}
	return width
}

func computeLayout(width int, st snapshot) layout {
	l := layout{
		toggleStart: frameWidth(width) - lipgloss.Width(toggleLabel(st)),
		panelTop:    1,
		panelBottom: 1,
	}
	if st.panelOpen {
		// title, one line per row, footer
		l.panelBottom = l.panelTop + len(st.rows) + 2
	}
	return l
}

func (m Model) View() string {
	st := m.store.snapshot()
	width := frameWidth(m.width)
	var b strings.Builder

	title := titleStyle.Render("devcove")
	toggle := toggleLabel(st)
	gap := width - lipgloss.Width(title) - lipgloss.Width(toggle)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(title + strings.Repeat(" ", gap) + toggleStyle.Render(toggle) + "\n")

	if st.panelOpen {
		b.WriteString(renderPanel(st.rows, width))
	}

	b.WriteString("\n")
	for i, p := range m.posts {
		state := st.votes[vote.Target{Kind: models.TargetPost, ID: p.ID}]
		b.WriteString(renderPost(p, state, i == m.cursor) + "\n")
	}
	if len(m.posts) == 0 {
		b.WriteString(dimStyle.Render("  No posts yet.") + "\n")
	}

	b.WriteString("\n")
	if st.alert != nil {
		b.WriteString(renderAlert(*st.alert) + "\n")
	}
	b.WriteString(renderHelp(m.keys))
	return b.String()
}

func renderPanel(rows []notify.Row, width int) string {
	var b strings.Builder
	b.WriteString(panelStyle.Render(" Notifications") + "\n")
	for _, r := range rows {
		b.WriteString(renderRow(r) + "\n")
	}
	b.WriteString(dimStyle.Render(strings.Repeat("─", width)) + "\n")
	return b.String()
}

func renderRow(r notify.Row) string {
	if r.Kind != notify.RowNotification {
		return dimStyle.Render("   " + r.Label())
	}
	dot := " "
	if r.Unread {
		dot = unreadStyle.Render("●")
	}
	return fmt.Sprintf(" %s %s %s", dot, panelStyle.Render(r.Label()), dimStyle.Render(r.When))
}

func renderScore(score int) string {
	s := fmt.Sprintf("%4d", score)
	switch {
	case score > 0:
		return positiveStyle.Render(s)
	case score < 0:
		return negativeStyle.Render(s)
	default:
		return dimStyle.Render(s)
	}
}

func renderPost(p models.PostView, state vote.ButtonState, selected bool) string {
	up, down := "▲", "▼"
	switch {
	case state.Pending:
		up, down = dimStyle.Render(up), dimStyle.Render(down)
	case state.Up:
		up = activeStyle.Render(up)
	case state.Down:
		down = activeStyle.Render(down)
	}

	marker := "  "
	title := p.Title
	if selected {
		marker = cursorStyle.Render("> ")
		title = cursorStyle.Render(title)
	}
	return fmt.Sprintf("%s%s%s%s %s %s", marker, up, renderScore(state.Score), down, title, dimStyle.Render("by "+p.Author))
}

func renderAlert(a alert.Alert) string {
	style, ok := severityStyles[a.Severity]
	if !ok {
		style = severityStyles[alert.Info]
	}
	msg := a.Message
	if a.Link != nil {
		msg += fmt.Sprintf(" %s: %s", a.Link.Text, a.Link.URL)
	}
	return style.Render(msg)
}

func renderHelp(k keyMap) string {
	parts := make([]string, 0, len(k.shortHelp()))
	for _, b := range k.shortHelp() {
		parts = append(parts, fmt.Sprintf("%s %s", b.Help().Key, b.Help().Desc))
	}
	return dimStyle.Render(strings.Join(parts, " • "))
}
