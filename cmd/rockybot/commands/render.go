package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/54b3r/rockybot-go/internal/knowledge"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	answerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// renderAnswer formats a successful answer with its sources and, when
// showChunks is set, the extracts it was grounded on.
func renderAnswer(res knowledge.AnswerResult, showChunks bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(answerStyle.Render(strings.TrimSpace(res.Answer)))
	b.WriteString("\n")

	if len(res.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Sources"))
		b.WriteString("\n")
		for _, s := range res.Sources {
			b.WriteString("  • " + sourceStyle.Render(s) + "\n")
		}
	}

	if showChunks && len(res.Chunks) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Extracts"))
		b.WriteString("\n")
		for i, c := range res.Chunks {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("[%d] %s", i+1, c)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderStatus formats the knowledge-base status.
func renderStatus(st knowledge.Status) string {
	state := mutedStyle.Render(string(st.State))
	if st.State == knowledge.StateReady {
		state = okStyle.Render(string(st.State))
	}
	lines := []string{
		headerStyle.Render("Knowledge base") + " " + state,
		fmt.Sprintf("  entries:   %d", st.Entries),
	}
	if st.EmbeddingProvider != "" {
		lines = append(lines, "  embedding: "+st.EmbeddingProvider)
	}
	return strings.Join(lines, "\n") + "\n"
}

// renderSuccess formats a one-line success message.
func renderSuccess(msg string) string {
	return okStyle.Render(msg) + "\n"
}
