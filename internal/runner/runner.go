// Package runner checks and executes stored intent code. Executing generated
// code is dangerous; the Runner interface keeps the execution strategy
// swappable between a local interpreter, a container and a parse-only mode.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Status classifies an Outcome.
type Status string

const (
	StatusOK           Status = "ok"
	StatusSyntaxError  Status = "syntax_error"
	StatusRuntimeError Status = "runtime_error"
)

// Outcome is what running a piece of code produced. Line and Column are
// 1-based and only set for syntax errors.
type Outcome struct {
	Status  Status
	Line    int
	Column  int
	Message string
	Trace   string
	Output  string
}

// Runner validates and (depending on the implementation) executes code.
// An error means the runner itself failed, not the code.
type Runner interface {
	Run(ctx context.Context, code string) (Outcome, error)
}

// Modes accepted by New.
const (
	ModePython = "python"
	ModeDocker = "docker"
	ModeSyntax = "syntax"
)

// Options selects and configures a runner.
type Options struct {
	Mode    string
	Python  string
	Timeout time.Duration
	Docker  DockerOptions
}

// New builds the runner named by opts.Mode.
func New(opts Options, log *zap.Logger) (Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var r Runner
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModePython:
		r = &Python{Interpreter: opts.Python, Log: log}
	case ModeDocker:
		r = &Docker{Options: opts.Docker, Log: log}
	case ModeSyntax:
		r = &SyntaxOnly{}
	default:
		return nil, fmt.Errorf("unknown runner mode %q", opts.Mode)
	}
	if opts.Timeout > 0 {
		r = &timeoutRunner{next: r, timeout: opts.Timeout}
	}
	log.Info("🧪 [RUNNER] configured", zap.String("mode", opts.Mode), zap.Duration("timeout", opts.Timeout))
	return r, nil
}

type timeoutRunner struct {
	next    Runner
	timeout time.Duration
}

func (t *timeoutRunner) Run(ctx context.Context, code string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Run(ctx, code)
}
