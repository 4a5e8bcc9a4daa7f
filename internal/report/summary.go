package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Step is one line of the run overview.
type Step struct {
	Name   string
	Detail string
	Failed bool
}

// Summary is everything the terminal summary shows.
type Summary struct {
	Variant    string
	Domain     string
	PublicIP   string
	InstallDir string

	Steps []Step
	// Info is printed as key/value pairs; secrets are masked.
	Info     []Entry
	Warnings []string
	// NextSteps tell the operator what to do on the cluster side.
	NextSteps []string
}

// secretKeys are masked in the terminal; the full values stay in
// connection-info.txt.
var secretKeys = map[string]bool{
	"FRP_TOKEN":              true,
	"FRP_DASHBOARD_PASSWORD": true,
}

// ColorEnabled reports whether w is a terminal that should get colors.
func ColorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Print writes s to w. Colors are used only when w is a terminal.
func Print(w io.Writer, s *Summary) error {
	_, err := io.WriteString(w, Render(s, ColorEnabled(w)))
	return err
}

// Render formats s.
func Render(s *Summary, color bool) string {
	st := newStyles(color)
	var b strings.Builder

	header := st.title.Render(fmt.Sprintf("vpsgate: %s gateway for %s", s.Variant, s.Domain)) + "\n" +
		st.dim.Render(fmt.Sprintf("%s  %s", s.PublicIP, s.InstallDir))
	b.WriteString(st.box.Render(header))
	b.WriteString("\n")

	if len(s.Steps) > 0 {
		b.WriteString(st.section.Render("Run"))
		b.WriteString("\n")
		for _, step := range s.Steps {
			mark := st.ok.Render(checkMark)
			if step.Failed {
				mark = st.failed.Render(crossMark)
			}
			line := fmt.Sprintf("  %s %-14s", mark, step.Name)
			if step.Detail != "" {
				line += " " + st.dim.Render(step.Detail)
			}
			b.WriteString(strings.TrimRight(line, " ") + "\n")
		}
	}

	if len(s.Info) > 0 {
		b.WriteString(st.section.Render("Connection"))
		b.WriteString("\n")
		width := 0
		for _, e := range s.Info {
			width = max(width, len(e.Key))
		}
		for _, e := range s.Info {
			value := e.Value
			if secretKeys[e.Key] {
				value = mask(value)
			}
			fmt.Fprintf(&b, "  %s %s\n", st.key.Render(fmt.Sprintf("%-*s", width, e.Key)), value)
		}
	}

	if len(s.Warnings) > 0 {
		b.WriteString(st.section.Render("Warnings"))
		b.WriteString("\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  %s %s\n", st.warn.Render(warnMark), w)
		}
	}

	if len(s.NextSteps) > 0 {
		b.WriteString(st.section.Render("Next steps"))
		b.WriteString("\n")
		for i, n := range s.NextSteps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, n)
		}
	}
	return b.String()
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
