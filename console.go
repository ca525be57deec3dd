package animator

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const barWidth = 30

// Console prints render progress for humans. Progress bars redraw in place
// on a terminal and print at 10% steps otherwise.
type Console struct {
	out         io.Writer
	interactive bool
	mu          sync.Mutex
	lastPercent int

	title   lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failed  lipgloss.Style
	bar     lipgloss.Style
	muted   lipgloss.Style
}

// NewConsole writes to stderr, detecting whether it is a terminal
func NewConsole(noColor bool) *Console {
	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	return NewConsoleWriter(os.Stderr, interactive, noColor || !interactive)
}

// NewConsoleWriter writes to w
func NewConsoleWriter(w io.Writer, interactive, noColor bool) *Console {
	renderer := lipgloss.NewRenderer(w)
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return &Console{
		out:         w,
		interactive: interactive,
		lastPercent: -1,
		title:       renderer.NewStyle().Bold(true),
		label:       renderer.NewStyle().Foreground(lipgloss.Color("8")),
		success:     renderer.NewStyle().Foreground(lipgloss.Color("10")),
		warning:     renderer.NewStyle().Foreground(lipgloss.Color("11")),
		failed:      renderer.NewStyle().Foreground(lipgloss.Color("9")),
		bar:         renderer.NewStyle().Foreground(lipgloss.Color("14")),
		muted:       renderer.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (c *Console) printf(format string, args ...any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Header prints a title underlined to its width
func (c *Console) Header(title string) {
	c.printf("%s\n%s\n", c.style(c.title, title), strings.Repeat("=", lipgloss.Width(title)))
}

// Field prints an aligned label and value
func (c *Console) Field(label string, value any) {
	c.printf("%s %v\n", c.style(c.label, fmt.Sprintf("%-10s", label+":")), value)
}

// Step announces a stage of the pipeline
func (c *Console) Step(format string, args ...any) {
	c.printf("%s %s\n", c.style(c.bar, "→"), fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...any) {
	c.printf("   %s %s\n", c.style(c.success, "✓"), fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	c.printf("   %s %s\n", c.style(c.warning, "⚠"), fmt.Sprintf(format, args...))
}

func (c *Console) Error(format string, args ...any) {
	c.printf("   %s %s\n", c.style(c.failed, "✗"), fmt.Sprintf(format, args...))
}

// Muted prints secondary detail, such as a command to run manually
func (c *Console) Muted(format string, args ...any) {
	c.printf("   %s\n", c.style(c.muted, fmt.Sprintf(format, args...)))
}

// Progress reports done out of total for label
func (c *Console) Progress(label string, done, total int) {
	if c == nil || total <= 0 {
		return
	}
	percent := done * 100 / total
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interactive {
		filled := percent * barWidth / 100
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		fmt.Fprintf(c.out, "\r   %s %s %3d%% (%d/%d)", label, c.style(c.bar, bar), percent, done, total)
		if done >= total {
			fmt.Fprintln(c.out)
			c.lastPercent = -1
		}
		return
	}

	step := percent / 10 * 10
	if step == c.lastPercent && done < total {
		return
	}
	c.lastPercent = step
	fmt.Fprintf(c.out, "   %s %d%% (%d/%d)\n", label, step, done, total)
	if done >= total {
		c.lastPercent = -1
	}
}

// Size formats a byte count
func Size(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}

func (c *Console) style(s lipgloss.Style, v string) string {
	return s.Render(v)
}
