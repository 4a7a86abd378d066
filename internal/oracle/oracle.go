// Package oracle talks to the locally hosted model that writes intent code.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"intents/internal/extract"
)

// ErrUnavailable is wrapped when the model process could not be started at
// all, as opposed to running and exiting non-zero.
var ErrUnavailable = errors.New("oracle unavailable")

// Result is the raw outcome of one model invocation. When Succeeded is false
// Text carries the process error stream.
type Result struct {
	Text      string
	Succeeded bool
}

// Oracle is an opaque text-completion function. Calls block until the model
// finishes; ctx is the only way to bound them.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// GeneratePrompt asks for code implementing description and nothing else.
func GeneratePrompt(description string) string {
	return fmt.Sprintf(
		"Generate only the Python code for the following, without explanations: %s. "+
			"Respond with code only, no additional text. Return the code inside triple backticks %s.",
		description, extract.Fence)
}

// FixPrompt asks the model to correct code and return only the result.
func FixPrompt(code string) string {
	return fmt.Sprintf(
		"Fix the errors in the following Python code and return only the corrected code, without explanations. "+
			"Return the code inside triple backticks %s. The code to fix is:\n%s\n%s\n```",
		extract.Fence, extract.Fence, code)
}
