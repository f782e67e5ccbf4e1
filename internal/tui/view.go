package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/sockmatch/internal/pairing"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.screen {
	case ScreenLoading:
		body = ListStyle.Render("Checking session...")
	case ScreenLogin:
		body = m.renderLogin()
	case ScreenSocks:
		body = m.renderSocks()
	case ScreenUpload:
		body = m.renderUpload()
	case ScreenCandidates:
		body = m.renderCandidates()
	case ScreenMatches:
		body = m.renderMatches()
	case ScreenHelp:
		body = m.renderHelp()
	}

	if m.confirm != nil {
		body = m.place(ModalStyle.Render(
			TitleStyle.Render("Confirm") + "\n\n" +
				m.confirm.question + "\n\n" +
				HelpStyle.Render("y:yes  n:no")))
	}

	parts := []string{m.renderHeader(), body}
	if m.notice != "" {
		parts = append(parts, NoticeStyle.Render("✗ "+m.notice+"  (esc to dismiss)"))
	}
	parts = append(parts, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) place(content string) string {
	return lipgloss.Place(
		m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		content,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) renderHeader() string {
	title := "SockMatch"
	if m.user != nil {
		title += HelpStyle.Render("  " + m.user.DisplayName())
	}
	return HeaderStyle.Render(title)
}

func (m Model) renderLogin() string {
	content := TitleStyle.Render("Log in") + "\n\n"
	content += "Email or username\n" + m.email.View() + "\n\n"
	content += "Password\n" + m.password.View() + "\n\n"
	content += HelpStyle.Render("tab:switch field  enter:submit  ctrl+c:quit")
	return m.place(ModalStyle.Render(content))
}

func (m Model) renderSocks() string {
	var s string

	header := fmt.Sprintf("Socks (%d)", len(m.socks))
	if m.unmatchedOnly {
		header += HelpStyle.Render("  unmatched only")
	}
	s += TitleStyle.Render(header) + "\n\n"

	if !m.tutorialDone {
		s += HelpStyle.Render("Tip: press u to upload photos, enter on a single sock to look for its partner. t hides this.") + "\n\n"
	}

	if len(m.socks) == 0 {
		s += HelpStyle.Render("  No socks yet. Press 'u' to upload one.")
	}

	for i, sock := range m.socks {
		cursor := "  "
		style := ItemStyle
		if i == m.sockCursor {
			cursor = "❯ "
			style = ItemSelectedStyle
		}
		desc := sock.Description
		if desc == "" {
			desc = sock.DominantColor
		}
		line := fmt.Sprintf("%s#%-5d %-30s", cursor, sock.ID, truncate(desc, 30))
		s += style.Render(line) + " " + FormatStatus(sock.IsMatched) + "\n"
	}

	return ListStyle.Render(s)
}

func (m Model) renderUpload() string {
	content := TitleStyle.Render("Upload photos") + "\n\n"
	content += "Image paths, separated by spaces\n" + m.upload.View() + "\n\n"
	content += HelpStyle.Render("enter:upload  esc:cancel")
	return m.place(ModalStyle.Render(content))
}

func (m Model) renderCandidates() string {
	s := TitleStyle.Render(fmt.Sprintf("Likely partners for sock #%d", m.candidateFor)) + "\n\n"

	switch {
	case m.searchFailed:
		s += HelpStyle.Render("  Could not search for partners right now. Try again with enter on the sock list.")
	case len(m.candidates) == 0:
		s += HelpStyle.Render("  No likely partners yet.")
	}

	for i, c := range m.candidates {
		cursor := "  "
		style := ItemStyle
		if i == m.candCursor {
			cursor = "❯ "
			style = ItemSelectedStyle
		}
		pct := c.Percent()
		s += style.Render(cursor+pairing.RenderCandidate(c)) + "  " +
			SimilarityStyle(pct).Render(bar(pct)) + "\n"
	}

	return ListStyle.Render(s)
}

func (m Model) renderMatches() string {
	s := TitleStyle.Render(fmt.Sprintf("Pairs (%d)", len(m.matches))) + "\n\n"

	if len(m.matches) == 0 {
		s += HelpStyle.Render("  No pairs yet. Pick a sock and confirm one of its partners.")
	}

	for i, mt := range m.matches {
		cursor := "  "
		style := ItemStyle
		if i == m.matchCursor {
			cursor = "❯ "
			style = ItemSelectedStyle
		}
		line := fmt.Sprintf("%s#%-5d sock #%d + sock #%d   %s", cursor, mt.ID, mt.Sock1ID, mt.Sock2ID,
			mt.MatchedAt.Local().Format("2006-01-02"))
		s += style.Render(line) + "\n"
	}

	return ListStyle.Render(s)
}

func (m Model) renderHelp() string {
	rows := [][2]string{
		{"↑/k ↓/j", "move"},
		{"tab", "switch socks and pairs"},
		{"enter", "find partners / confirm pair"},
		{"u", "upload photos"},
		{"f", "toggle unmatched only"},
		{"d", "delete sock or pair"},
		{"s", "split pair, keep socks"},
		{"r", "refresh"},
		{"t", "hide tips"},
		{"L", "logout"},
		{"esc", "back / dismiss error"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Keys") + "\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-10s %s\n", r[0], HelpStyle.Render(r[1]))
	}
	b.WriteString("\n" + HelpStyle.Render("press any key to go back"))
	return ListStyle.Render(b.String())
}

func (m Model) renderStatusBar() string {
	help := ""
	switch m.screen {
	case ScreenSocks:
		help = "u:upload  enter:partners  f:filter  d:del  tab:pairs  ?:help  q:quit"
	case ScreenCandidates:
		help = "enter:pair  esc:back  ?:help  q:quit"
	case ScreenMatches:
		help = "d:delete  s:split  tab:socks  ?:help  q:quit"
	}
	if m.message != "" {
		help = m.message
	}
	if m.busy {
		help = "⏳ " + help
	}
	return StatusBarStyle.Width(m.width).Render(help)
}
