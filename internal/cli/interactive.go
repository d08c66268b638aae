package cli

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/opencode-ai/promptctl/internal/vars"
)

// ttyCheck is replaced in tests.
var ttyCheck = hasTTY

// driverFactory builds the terminal prompt driver; replaced in tests.
var driverFactory = func(out io.Writer) vars.PromptDriver {
	return vars.NewSurveyDriver(out)
}

// IsNonInteractive reports whether prompts should be skipped.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("PROMPT_NON_INTERACTIVE"); ok {
		return true
	}
	return !ttyCheck()
}

// IsInteractive reports whether the session can prompt for user input.
func IsInteractive() bool {
	return !IsNonInteractive()
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func requireInteractive(what string) error {
	if IsInteractive() {
		return nil
	}
	return &PreflightError{
		Message: what + " requires an interactive terminal",
		Hint:    "Run with a TTY and without --non-interactive, or pass values with --var",
	}
}
