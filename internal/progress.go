package internal

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UIManager handles user-facing terminal output (progress and status lines).
// Diagnostics go through slog instead.
type UIManager interface {
	NewProgressBar(total int, description string) ProgressBar
	NewSpinner(description string) ProgressBar

	Printf(format string, args ...any)
	Println(args ...any)
}

// ProgressBar interface abstracts progress bar operations
type ProgressBar interface {
	Set(current int)
	Advance()
	Describe(description string)
	Finish()
}

// StandardUIManager draws bars only when stderr is a terminal
type StandardUIManager struct {
	out         io.Writer
	quiet       bool
	interactive bool
}

func NewUIManager(quiet bool) UIManager {
	return &StandardUIManager{
		out:         os.Stdout,
		quiet:       quiet,
		interactive: !quiet && isatty.IsTerminal(os.Stderr.Fd()),
	}
}

// NewSilentUIManager discards everything; used by tests and the MCP server
func NewSilentUIManager() UIManager {
	return &StandardUIManager{out: io.Discard, quiet: true}
}

func (ui *StandardUIManager) NewProgressBar(total int, description string) ProgressBar {
	if !ui.interactive {
		return &SilentProgressBar{}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &VisibleProgressBar{bar: bar}
}

func (ui *StandardUIManager) NewSpinner(description string) ProgressBar {
	if !ui.interactive {
		return &SilentProgressBar{}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &VisibleProgressBar{bar: bar}
}

func (ui *StandardUIManager) Printf(format string, args ...any) {
	if !ui.quiet {
		fmt.Fprintf(ui.out, format, args...)
	}
}

func (ui *StandardUIManager) Println(args ...any) {
	if !ui.quiet {
		fmt.Fprintln(ui.out, args...)
	}
}

// VisibleProgressBar wraps the actual progress bar
type VisibleProgressBar struct {
	bar *progressbar.ProgressBar
}

func (v *VisibleProgressBar) Set(current int) {
	_ = v.bar.Set(current)
}

func (v *VisibleProgressBar) Advance() {
	_ = v.bar.Add(1)
}

func (v *VisibleProgressBar) Describe(description string) {
	v.bar.Describe(description)
}

func (v *VisibleProgressBar) Finish() {
	_ = v.bar.Finish()
}

// SilentProgressBar does nothing
type SilentProgressBar struct{}

func (SilentProgressBar) Set(int)         {}
func (SilentProgressBar) Advance()        {}
func (SilentProgressBar) Describe(string) {}
func (SilentProgressBar) Finish()         {}
