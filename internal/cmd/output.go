package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/a2a-aptos/bidagent/internal/util"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Status line colors
var (
	colorPrimary   = lipgloss.Color("#A78BFA")
	colorSecondary = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#F87171")
	colorMuted     = lipgloss.Color("#9CA3AF")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	headerStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(16)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// hashDigits is how many leading and trailing hex digits of a hash
// status lines show.
const hashDigits = 8

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func printFailure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, failureStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warningStyle.Render("! "+fmt.Sprintf(format, args...)))
}

// printError prints a failure line for err, or a warning line when err is
// below error severity.
func printError(w io.Writer, err error, format string, args ...any) {
	if errors.GetSeverity(err) < errors.SeverityError {
		printWarning(w, format, args...)
		return
	}
	printFailure(w, format, args...)
}

// reportError prints a command failure. Errors that are not user-facing
// usually come from argument parsing, so a usage hint follows them.
func reportError(w io.Writer, err error) {
	printFailure(w, "%v", err)
	if !errors.IsUserFacing(err) {
		fmt.Fprintln(w, mutedStyle.Render("Run 'bidagent --help' for usage."))
	}
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
}

func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s %v\n", labelStyle.Render(label+":"), value)
}

// printReceipt prints the transaction that applied an operation.
func printReceipt(w io.Writer, r *registry.Receipt) {
	if r == nil {
		return
	}
	printField(w, "Transaction", util.ShortHash(r.TxHash, hashDigits))
	if r.Version > 0 {
		printField(w, "Version", r.Version)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
