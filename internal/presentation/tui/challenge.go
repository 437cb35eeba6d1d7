package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ChallengeRenderer prints authentication challenges for the operator.
// It styles the output only when writing to a terminal.
type ChallengeRenderer struct {
	w   io.Writer
	out *termenv.Output
}

// NewChallengeRenderer writes to w (os.Stderr when nil).
func NewChallengeRenderer(w io.Writer) *ChallengeRenderer {
	if w == nil {
		w = os.Stderr
	}
	return &ChallengeRenderer{w: w, out: newOutput(w)}
}

// RenderChallenge prints the challenge payload and the attempt counter.
func (r *ChallengeRenderer) RenderChallenge(challenge string, attempt, max int) error {
	title := r.out.String(fmt.Sprintf(" Link device (%d/%d) ", attempt, max)).Bold().
		Foreground(r.out.Color("#0f172a")).Background(r.out.Color("#34d399"))
	hint := r.out.String("Open the app, go to Linked devices and scan or enter the code below.").Faint()

	width := len(challenge) + 4
	if width > 80 {
		width = 80
	}
	rule := strings.Repeat("─", width)

	_, err := fmt.Fprintf(r.w, "\n%s\n%s\n%s\n  %s\n%s\n\n", title, hint, rule, challenge, rule)
	return err
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newOutput(w io.Writer) *termenv.Output {
	if !IsTerminal(w) {
		return termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	return termenv.NewOutput(w)
}
