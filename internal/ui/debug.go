package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/estatedesk/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders listID's counters and recent events from j.
// Returns the empty string when j is nil.
func debugOverlay(j *otel.Journal, listID string, width, height int) string {
	if j == nil {
		return ""
	}

	c := j.Counts(listID)
	recent := j.Recent(listID, 20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Controller "+listID))
	lines = append(lines, fmt.Sprintf("  Token:      #%d   last fetch %s", c.CurrentToken, formatAge(c.LastFetchTook)))
	lines = append(lines, fmt.Sprintf("  Fetches:    %d sent, %d complete, %d stale, %d errors",
		c.Dispatched, c.Completed, c.Stale, c.Failed))
	lines = append(lines, fmt.Sprintf("  Toggles:    %d started, %d committed, %d rolled back",
		c.Toggles, c.Committed, c.RolledBack))
	lines = append(lines, fmt.Sprintf("  Deletes:    %d started, %d committed, %d failed",
		c.Deletes, c.Deleted, c.DeleteFailed))
	lines = append(lines, fmt.Sprintf("  Conflicts:  %d   Retries: %d", c.Conflicts, j.Retries()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		ageStr := formatAge(time.Since(e.Time))

		line := fmt.Sprintf("  %6s  %-18s", ageStr, string(e.Kind))
		if e.Token != 0 {
			line += fmt.Sprintf("  #%d", e.Token)
		}
		if e.Page != 0 {
			line += fmt.Sprintf("  p%d", e.Page)
		}
		if e.ItemID != "" {
			line += "  item:" + truncateRunes(e.ItemID, 12)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 30)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
