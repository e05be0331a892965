package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6B7F86")
	colorWarning = lipgloss.Color("#F4D03F")
	colorSuccess = lipgloss.Color("#2CD7C7")

	styleProduct  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleMuted    = lipgloss.NewStyle().Foreground(colorMuted)
	styleBold     = lipgloss.NewStyle().Bold(true)
	styleBadge    = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder(), false, true)
	styleTab      = lipgloss.NewStyle().Padding(0, 2).Foreground(colorMuted)
	styleTabOn    = lipgloss.NewStyle().Padding(0, 2).Bold(true).Underline(true).Foreground(colorPrimary)
	styleCard     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
	styleHeaderBx = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(colorMuted)

	statusStyles = map[string]lipgloss.Style{
		"pending":  lipgloss.NewStyle().Foreground(colorWarning),
		"reviewed": lipgloss.NewStyle().Foreground(colorPrimary),
		"approved": lipgloss.NewStyle().Foreground(colorSuccess),
	}
)

// RenderHeader renders the top bar.
func RenderHeader(h Header, width int) string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		styleProduct.Render(h.Product),
		styleMuted.Render(h.Tagline),
	)
	right := h.Email
	if h.RoleBadge != "" {
		right = lipgloss.JoinHorizontal(lipgloss.Center, right, " ", styleBadge.Render(capitalize(h.RoleBadge)))
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right)
	return styleHeaderBx.Render(row)
}

// RenderTabs renders the tab strip with active highlighted.
func RenderTabs(tabs []Tab, active string) string {
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.ID == active {
			parts = append(parts, styleTabOn.Render(t.Label))
		} else {
			parts = append(parts, styleTab.Render(t.Label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// RenderCard renders one scan entry.
func RenderCard(c Card, width int) string {
	status := c.Status
	if st, ok := statusStyles[c.Status]; ok {
		status = st.Render(capitalize(c.Status))
	}

	sub := c.ScanType
	if c.PatientID != "" {
		sub += "   ID: " + c.PatientID
	}
	lines := []string{
		styleBold.Render(c.PatientName) + "  " + status,
		styleMuted.Render(sub),
		styleMuted.Render(c.Uploaded + " · " + c.Size),
	}
	if c.Notes != "" {
		lines = append(lines, styleBold.Render("Notes:")+" "+c.Notes)
	}
	if c.Updating {
		lines = append(lines, styleMuted.Render("updating status…"))
	}
	lines = append(lines, styleMuted.Render(c.ID.String()))

	st := styleCard
	if width > 4 {
		st = st.Width(width - 2)
	}
	return st.Render(strings.Join(lines, "\n"))
}

// Render draws the whole dashboard: header, title, tabs and, when the scans
// tab is active, the list.
func Render(v View, active string, list *ScanList, width int) string {
	if active == "" {
		active = v.DefaultTab
	}
	var b strings.Builder
	b.WriteString(RenderHeader(v.Header, width))
	b.WriteString("\n\n")
	b.WriteString(styleBold.Render(v.Title) + "\n")
	b.WriteString(styleMuted.Render(v.Subtitle) + "\n\n")
	b.WriteString(RenderTabs(v.Tabs, active))
	b.WriteString("\n\n")

	switch {
	case active == TabUpload:
		b.WriteString(styleBold.Render("Upload New Scan") + "\n")
		b.WriteString(styleMuted.Render("Upload oral health scans for dentist review") + "\n")
		b.WriteString(styleMuted.Render("Use `oralvis scans upload` to submit a file.") + "\n")
	case list == nil:
	case list.Loading():
		b.WriteString(styleMuted.Render("Loading scans…") + "\n")
	default:
		fmt.Fprintf(&b, "%s  %s\n", styleBold.Render(list.Heading()), styleBadge.Render(list.CountLabel()))
		cards := list.Cards()
		if len(cards) == 0 {
			b.WriteString(styleCard.Render(styleBold.Render("No Scans Found") + "\n" + styleMuted.Render(list.EmptyMessage())))
			b.WriteString("\n")
		}
		for _, c := range cards {
			b.WriteString(RenderCard(c, width))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
