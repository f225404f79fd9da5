package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/estatedesk/internal/listing"
)

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		return lipgloss.JoinVertical(lipgloss.Left,
			debugOverlay(a.journal, a.current().screen.ID, a.width, a.height-1),
			debugStatusBar(a.width),
		)
	}

	t := a.current()
	snap := t.ctl.Snapshot()

	header := []string{
		a.renderTabs(),
		a.renderFilterBar(t, snap),
	}
	var footer []string
	if snap.ErrorMessage != "" {
		footer = append(footer, ErrorStyle.Width(a.width).Render("Error: "+snap.ErrorMessage+" (r to retry)"))
	}
	if a.confirmID != "" {
		footer = append(footer, ConfirmStyle.Width(a.width).Render(confirmPrompt(snap, a.confirmID)))
	} else if a.notice != "" {
		footer = append(footer, NoticeStyle.Width(a.width).Render(a.notice))
	}
	footer = append(footer, a.renderStatusBar(snap))

	listHeight := a.height - len(header) - len(footer)
	body := RenderList(snap, t.cursor, t.screen.Columns, t.ctl.Pending, a.width, listHeight)

	parts := append(header, body)
	parts = append(parts, footer...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a App) renderTabs() string {
	var tabs []string
	for i, t := range a.tabs {
		style := TabInactive
		if i == a.active {
			style = TabActive
		}
		title := t.screen.Title
		if st, ok := a.counts[t.screen.ID]; ok {
			title = fmt.Sprintf("%s %d/%d", title, st.Active, st.Total)
		}
		tabs = append(tabs, style.Render(title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a App) renderFilterBar(t *tab, snap listing.Snapshot) string {
	var b strings.Builder
	b.WriteString(FilterBarPrompt.Render("/"))
	b.WriteString(" ")
	if a.searching {
		b.WriteString(a.search.View())
	} else if snap.Term != "" {
		b.WriteString(snap.Term)
	} else {
		b.WriteString(StatusBarText.Render("search"))
	}

	for i, f := range t.screen.Filters {
		v := t.ctl.Compiler().Selection(f.Name)
		if v == "" {
			v = "any"
		}
		b.WriteString(FilterBarCount.Render(fmt.Sprintf("  %d:%s=%s", i+1, f.Label, v)))
	}
	return FilterBar.Width(a.width).Render(b.String())
}

func (a App) renderStatusBar(snap listing.Snapshot) string {
	var left string
	switch {
	case snap.Loading():
		left = a.spinner.View() + " " + snap.Status.String()
	case snap.TotalCount == 0:
		left = "0 results"
	default:
		first, last := snap.Range()
		left = fmt.Sprintf("%d–%d of %d", first, last, snap.TotalCount)
	}
	pages := fmt.Sprintf("page %d/%d", snap.Page, max(snap.TotalPages, 1))

	hints := []string{
		StatusBarKey.Render("/") + StatusBarText.Render(":search"),
		StatusBarKey.Render("n/p") + StatusBarText.Render(":page"),
		StatusBarKey.Render("t") + StatusBarText.Render(":toggle"),
		StatusBarKey.Render("d") + StatusBarText.Render(":delete"),
		StatusBarKey.Render("tab") + StatusBarText.Render(":screen"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	return StatusBar.Width(a.width).Render(left + "  " + pages + "  " + strings.Join(hints, " "))
}

func confirmPrompt(snap listing.Snapshot, id string) string {
	title := id
	for _, it := range snap.Items {
		if it.ID == id {
			title = it.Title
			break
		}
	}
	return fmt.Sprintf("Delete %q? y to confirm, any other key cancels", truncateRunes(title, 50))
}

// RenderList renders one page of items, scrolled so the cursor is visible.
func RenderList(snap listing.Snapshot, cursor int, columns []string, pending func(string) bool, width, height int) string {
	if height < 1 {
		height = 1
	}
	if len(snap.Items) == 0 {
		switch {
		case snap.Loading():
			return HelpStyle.Render("Loading...")
		case snap.Empty():
			return HelpStyle.Render("No results. Change the search or filters.")
		default:
			return HelpStyle.Render("")
		}
	}

	offset := 0
	if cursor >= height {
		offset = cursor - height + 1
	}

	var lines []string
	for i := offset; i < len(snap.Items) && len(lines) < height; i++ {
		lines = append(lines, renderRow(snap.Items[i], i == cursor, columns, pending != nil && pending(snap.Items[i].ID), width))
	}
	return strings.Join(lines, "\n")
}

func renderRow(it listing.Item, isSelected bool, columns []string, isPending bool, width int) string {
	badge := ActiveBadge.Render("●")
	if !it.Active {
		badge = InactiveBadge.Render("○")
	}
	if isPending {
		badge = PendingBadge.Render("…")
	}

	var attrs []string
	for _, c := range columns {
		if v := it.Attributes[c]; v != "" {
			attrs = append(attrs, v)
		}
	}
	meta := strings.Join(attrs, " · ")

	titleWidth := width - utf8.RuneCountInString(meta) - 8
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := truncateRunes(it.Title, titleWidth)
	if it.Subtitle != "" && utf8.RuneCountInString(title)+3 < titleWidth {
		title += " — " + truncateRunes(it.Subtitle, titleWidth-utf8.RuneCountInString(title)-3)
	}

	style := NormalItem
	switch {
	case isSelected:
		style = SelectedItem
	case !it.Active:
		style = InactiveItem
	}
	return style.Render(badge+" "+title) + " " + AttrStyle.Render(meta)
}

// truncateRunes shortens s to at most n runes, adding "…" when cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
