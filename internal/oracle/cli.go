package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultArgs invokes `ollama run <model> <prompt>`.
var DefaultArgs = []string{"run", "{model}", "{prompt}"}

// CLI runs the model as a child process per call.
type CLI struct {
	Binary string
	Model  string
	// Args is the argument template; "{model}" and "{prompt}" are substituted.
	Args []string
	Log  *zap.Logger
}

// NewCLI returns a client for binary/model using DefaultArgs.
func NewCLI(binary, model string, log *zap.Logger) *CLI {
	if log == nil {
		log = zap.NewNop()
	}
	return &CLI{Binary: binary, Model: model, Args: DefaultArgs, Log: log}
}

func (c *CLI) args(prompt string) []string {
	tmpl := c.Args
	if len(tmpl) == 0 {
		tmpl = DefaultArgs
	}
	out := make([]string, len(tmpl))
	r := strings.NewReplacer("{model}", c.Model, "{prompt}", prompt)
	for i, a := range tmpl {
		out[i] = r.Replace(a)
	}
	return out
}

// Generate runs the model synchronously. A non-zero exit is reported through
// Result; only a failure to start the process is returned as an error.
func (c *CLI) Generate(ctx context.Context, prompt string) (Result, error) {
	start := time.Now()
	c.Log.Info("🤖 [ORACLE] invoking model",
		zap.String("binary", c.Binary),
		zap.String("model", c.Model),
		zap.Int("prompt_chars", len(prompt)))

	cmd := exec.CommandContext(ctx, c.Binary, c.args(prompt)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		c.Log.Info("✅ [ORACLE] model finished",
			zap.Duration("elapsed", elapsed),
			zap.Int("output_chars", stdout.Len()))
		return Result{Text: strings.TrimSpace(stdout.String()), Succeeded: true}, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		c.Log.Warn("⚠️ [ORACLE] model exited with error",
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.Duration("elapsed", elapsed),
			zap.String("stderr", stderr.String()))
		return Result{Text: strings.TrimSpace(stderr.String())}, nil
	default:
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		c.Log.Error("❌ [ORACLE] could not run model", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, c.Binary, err)
	}
}
