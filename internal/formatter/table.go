package formatter

import (
	"fmt"
	"sort"

	"github.com/harunnryd/seiri/internal/daemon/components"
	"github.com/harunnryd/seiri/internal/event"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1).
			Width(20),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1).
			Width(20),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1).
			Width(20),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) FormatSessions(sessions []*event.Session) (string, error) {
	if len(sessions) == 0 {
		return "No sessions found", nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers("ID", "Status", "Directory", "Detail")

	for _, sess := range sessions {
		detail := ""
		if sess.Status.Kind == event.StatusRetry {
			detail = fmt.Sprintf("attempt %d: %s", sess.Status.Attempt, sess.Status.Message)
		}
		t.Row(
			sess.ID,
			string(sess.Status.Kind),
			truncateString(sess.Directory, 30),
			truncateString(detail, 30),
		)
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatStats(stats *components.StatsResponse) (string, error) {
	if stats == nil {
		return "No stats available", nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("Uptime", stats.Uptime)
	t.Row("Connected", fmt.Sprintf("%t", stats.Stream.Connected))
	t.Row("Received", fmt.Sprintf("%d", stats.Stream.Received))
	t.Row("Applied", fmt.Sprintf("%d", stats.Stream.Applied))
	t.Row("Dedup window", fmt.Sprintf("%d/%d", stats.Dedup.Size, stats.Dedup.Capacity))
	t.Row("Pending parts", fmt.Sprintf("%d across %d messages", stats.Pending.Parts, stats.Pending.Messages))
	t.Row("Sessions", fmt.Sprintf("%d", stats.Sessions))
	t.Row("Messages", fmt.Sprintf("%d", stats.Messages))
	t.Row("Parts", fmt.Sprintf("%d", stats.Parts))

	out := t.String()

	if len(stats.Ordering) > 0 {
		out += "\n" + f.formatOrdering(stats.Ordering)
	}
	return out, nil
}

func (f *TableFormatter) formatOrdering(ordering map[string]components.OrderingStats) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers("Session", "Cursor", "Held", "Gap Age")

	ids := make([]string, 0, len(ordering))
	for id := range ordering {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		stats := ordering[id]
		cursor := "-"
		if stats.Established {
			cursor = fmt.Sprintf("%d", stats.Cursor)
		}
		gap := stats.GapAge
		if stats.HeldCount == 0 {
			gap = "-"
		}
		t.Row(
			truncateString(id, 20),
			cursor,
			fmt.Sprintf("%d", stats.HeldCount),
			gap,
		)
	}

	return t.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
