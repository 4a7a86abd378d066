package intents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"intents/internal/eventbus"
	"intents/internal/metrics"
	"intents/internal/runner"
	"intents/internal/store"
)

// Validation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error kinds reported by Validate.
const (
	KindSyntax  = "syntax"
	KindRuntime = "runtime"
)

// Validation is the report of Validate. On error Code carries the stored
// source so it can be edited and saved again.
type Validation struct {
	Status  string
	Kind    string
	Message string
	Line    int
	Column  int
	Trace   string
	Output  string
	Code    string
}

// Validate parses and, depending on the runner, executes the stored code of
// name. Problems with the code are reported in the Validation; an error
// means the intent is missing or the runner itself failed.
func (s *Service) Validate(ctx context.Context, name string) (Validation, error) {
	code, err := s.store.Read(name)
	if err != nil {
		return Validation{}, err
	}
	start := s.now()
	log := s.log.With(zap.String("intent", store.Normalize(name)))

	out, err := s.runner.Run(ctx, code)
	if err != nil {
		s.observe(ctx, name, metrics.ActionValidate, eventbus.TypeValidated, start, false, err.Error())
		return Validation{}, fmt.Errorf("run intent: %w", err)
	}

	var v Validation
	switch out.Status {
	case runner.StatusSyntaxError:
		v = Validation{
			Status:  StatusError,
			Kind:    KindSyntax,
			Message: fmt.Sprintf("Syntax error at line %d, column %d: %s", out.Line, out.Column, out.Message),
			Line:    out.Line,
			Column:  out.Column,
			Code:    code,
		}
	case runner.StatusRuntimeError:
		v = Validation{
			Status:  StatusError,
			Kind:    KindRuntime,
			Message: "Runtime error:\n" + out.Trace,
			Trace:   out.Trace,
			Output:  out.Output,
			Code:    code,
		}
		if out.Trace == "" {
			v.Message = "Runtime error: " + out.Message
		}
	default:
		v = Validation{
			Status:  StatusSuccess,
			Message: "✅ Code is valid and ran without errors.",
			Output:  out.Output,
		}
	}

	ok := v.Status == StatusSuccess
	s.observe(ctx, name, metrics.ActionValidate, eventbus.TypeValidated, start, ok, v.Message)
	if ok {
		log.Info("✅ [INTENTS] validation passed")
	} else {
		log.Info("❌ [INTENTS] validation failed", zap.String("kind", v.Kind), zap.Int("line", v.Line))
	}
	return v, nil
}
