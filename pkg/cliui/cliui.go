// Package cliui holds the lipgloss styles and small terminal helpers shared
// by chronicle's client commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const defaultWrap = 80

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Step runs fn and reports its outcome on one line of w with the elapsed
// time. While fn runs a spinner is drawn, but only when w is a terminal;
// pipes and buffers receive just the final line.
func Step(w io.Writer, msg string, fn func() error) error {
	var (
		mu   sync.Mutex
		done = make(chan struct{})
		wg   sync.WaitGroup
	)

	if IsTerminal(w) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(80 * time.Millisecond)
			defer ticker.Stop()

			for frame := 0; ; frame++ {
				mu.Lock()
				fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
				mu.Unlock()

				select {
				case <-done:
					return
				case <-ticker.C:
				}
			}
		}()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	wg.Wait()

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, StepStyle.Render("("+FormatDuration(elapsed)+")"))

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown for the terminal, wrapped at width columns
// (80 when width is not positive). On failure the input is returned unchanged
// alongside the error.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = defaultWrap
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// Heading renders a section title the way every client command prints them.
func Heading(title string) string {
	return "\n  " + KeyStyle.Render(title) + "\n"
}

// Bullet renders an indented list item: a dim bullet, the label, then any
// dimmed details separated by spaces.
func Bullet(label string, details ...string) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(DimStyle.Render("•"))
	b.WriteString(" ")
	b.WriteString(ValueStyle.Render(label))
	for _, d := range details {
		if d == "" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(DimStyle.Render(d))
	}
	b.WriteString("\n")
	return b.String()
}
