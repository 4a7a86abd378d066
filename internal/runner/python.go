package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPython is the interpreter used when none is configured.
const DefaultPython = "python3"

// Python runs code with a local interpreter, in a separate process but with
// the full privileges of the service.
type Python struct {
	Interpreter string
	Log         *zap.Logger
}

func (p *Python) Run(ctx context.Context, code string) (Outcome, error) {
	interp := p.Interpreter
	if interp == "" {
		interp = DefaultPython
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	out, err := runHarness(ctx, []string{interp, "-c", harness}, code)
	if err != nil {
		log.Error("❌ [RUNNER] python run failed", zap.Error(err))
		return Outcome{}, err
	}
	log.Info("🧪 [RUNNER] python run finished",
		zap.String("status", string(out.Status)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
