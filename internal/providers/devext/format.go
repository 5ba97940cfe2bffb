package devext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/devext/internal/domain/session"
)

const stderrLabel = "[stderr]"

// FormatResult renders a completion for tool callers:
//
//	Session test-1a2b3c4d finished in 12.3s (exit code: 0)
//
//	Output:
//	...
func FormatResult(res session.CompletionResult, budget int) string {
	code := "none"
	if res.ExitCode != nil {
		code = fmt.Sprintf("%d", *res.ExitCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s finished in %.1fs (exit code: %s)", res.SessionID, res.Duration.Seconds(), code)

	output, _ := TruncateOutput(CombineOutput(res.Stdout, res.Stderr), budget)
	b.WriteString("\n\nOutput:\n")
	if output == "" {
		b.WriteString("(no output)")
	} else {
		b.WriteString(output)
	}
	return b.String()
}

// CombineOutput joins stdout and a labelled stderr section.
func CombineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderrLabel + "\n" + stderr
	}
	sep := "\n"
	if strings.HasSuffix(stdout, "\n") {
		sep = ""
	}
	return stdout + sep + stderrLabel + "\n" + stderr
}

// TruncateOutput keeps the first budget characters and appends a marker
// naming how many were dropped.
func TruncateOutput(s string, budget int) (string, bool) {
	if budget <= 0 {
		return s, false
	}
	total := utf8.RuneCountInString(s)
	if total <= budget {
		return s, false
	}

	cut := 0
	for i := range s {
		if cut == budget {
			return fmt.Sprintf("%s\n... [truncated %d characters]", s[:i], total-budget), true
		}
		cut++
	}
	return s, false
}
