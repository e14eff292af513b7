package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Banner printed at the start of a fetch
const Banner = `
  ┌──────────────────────────────────────────┐
  │  cufetch · ClickUp image downloader      │
  └──────────────────────────────────────────┘
`

// Palette wraps text in ANSI color codes, or leaves it alone when disabled
type Palette struct {
	enabled bool
}

func (p Palette) wrap(code, text string) string {
	if !p.enabled {
		return text
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, text)
}

func (p Palette) Cyan(s string) string    { return p.wrap("36", s) }
func (p Palette) Yellow(s string) string  { return p.wrap("33", s) }
func (p Palette) Red(s string) string     { return p.wrap("31", s) }
func (p Palette) Green(s string) string   { return p.wrap("32", s) }
func (p Palette) Magenta(s string) string { return p.wrap("35", s) }
func (p Palette) Dim(s string) string     { return p.wrap("2", s) }
func (p Palette) Bold(s string) string    { return p.wrap("1", s) }

// Console writes human-readable progress lines
type Console struct {
	out io.Writer
	Palette
}

// NewConsole creates a console on out. Colors are used only when out is a
// terminal and NO_COLOR is unset.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, Palette: Palette{enabled: colorEnabled(out)}}
}

// Discard returns a console that prints nothing
func Discard() *Console {
	return &Console{out: io.Discard}
}

func colorEnabled(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printf writes a formatted line
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// PrintBanner prints the banner with color
func (c *Console) PrintBanner() {
	fmt.Fprint(c.out, c.Cyan(Banner))
}

// PrintInfo prints a label and value
func (c *Console) PrintInfo(label string, value string) {
	fmt.Fprintf(c.out, "%s: %s\n", c.Cyan(label), c.Yellow(value))
}

// PrintCheck prints a completed step
func (c *Console) PrintCheck(msg string) {
	fmt.Fprintf(c.out, "%s %s\n", c.Green("✓"), msg)
}

// PrintStatus prints a step that is starting
func (c *Console) PrintStatus(msg string) {
	fmt.Fprintf(c.out, "%s %s\n", c.Magenta("…"), msg)
}

// PrintDetail prints a dimmed, indented line
func (c *Console) PrintDetail(msg string) {
	fmt.Fprintf(c.out, "  %s\n", c.Dim(msg))
}

// PrintError prints an error message in red
func (c *Console) PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(c.out, c.Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(c.out, c.Red(msg))
	}
}

// PrintWarning prints a warning message in yellow
func (c *Console) PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(c.out, c.Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(c.out, c.Yellow(msg))
	}
}

// PrintSuccess prints a success message in green
func (c *Console) PrintSuccess(msg string) {
	fmt.Fprintln(c.out, c.Green(msg))
}
