package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/zjy-dev/speccov/internal/coverage"
)

// TextGenerator renders a per-file summary for the console.
type TextGenerator struct {
	LowerBound         int
	UpperBound         int
	ShowUncoveredFiles bool
	ShowColors         bool
	ShowOnlySummary    bool
}

// Classify returns the band of a coverage percentage.
func (g *TextGenerator) Classify(p float64) Band {
	return Classify(p, g.LowerBound, g.UpperBound)
}

// textStyles is nil when colors are disabled.
type textStyles struct {
	bands  map[Band]lipgloss.Style
	header lipgloss.Style
}

func (g *TextGenerator) styles() *textStyles {
	if !g.ShowColors {
		return nil
	}
	// The report is returned as a string, so the renderer is pinned to plain
	// ANSI instead of probing the process's terminal.
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	return &textStyles{
		bands: map[Band]lipgloss.Style{
			BandLow:    r.NewStyle().Foreground(lipgloss.Color("1")),
			BandMedium: r.NewStyle().Foreground(lipgloss.Color("3")),
			BandHigh:   r.NewStyle().Foreground(lipgloss.Color("2")),
		},
		header: r.NewStyle().Bold(true),
	}
}

func (st *textStyles) band(b Band, text string) string {
	if st == nil {
		return text
	}
	return st.bands[b].Render(text)
}

func (st *textStyles) title(text string) string {
	if st == nil {
		return text
	}
	return st.header.Render(text)
}

// Process implements Generator. dest is ignored.
func (g *TextGenerator) Process(m *coverage.Model, dest string) (string, error) {
	st := g.styles()
	var b strings.Builder

	total := m.Summary()
	b.WriteString("\n")
	b.WriteString(st.title("Code Coverage Report Summary:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s\n", g.ratio(st, "Methods:", total.TestedFunctions, total.Functions, 0))
	fmt.Fprintf(&b, "  %s\n", g.ratio(st, "Lines:  ", total.ExecutedLines, total.ExecutableLines, 0))

	if g.ShowOnlySummary {
		return b.String(), nil
	}

	width := len(fmt.Sprint(total.ExecutableLines))
	for _, name := range m.FileNames() {
		s := m.Files[name].Summary()
		if !g.ShowUncoveredFiles && s.ExecutedLines == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(name)
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s  %s\n",
			g.ratio(st, "Methods:", s.TestedFunctions, s.Functions, width),
			g.ratio(st, "Lines:", s.ExecutedLines, s.ExecutableLines, width))
	}
	return b.String(), nil
}

func (g *TextGenerator) ratio(st *textStyles, label string, part, total, width int) string {
	p := coverage.Percent(part, total)
	text := fmt.Sprintf("%s %6.2f%% (%*d/%*d)", label, p, width, part, width, total)
	return st.band(g.Classify(p), text)
}
